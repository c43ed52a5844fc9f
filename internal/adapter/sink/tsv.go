// Package sink writes resolved annotations to their output formats: TSV,
// FASTA-like architecture/sequence records, and SQLite tables.
package sink

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AndreLecona/Dotate/internal/domain"
	"github.com/AndreLecona/Dotate/internal/port"
)

// TSV writes one tab-separated line per annotation row. Output is
// byte-deterministic for a given input.
type TSV struct {
	w       *bufio.Writer
	closer  io.Closer
	withFID bool
	started bool
}

var _ port.RowSink = (*TSV)(nil)

// NewTSV wraps an existing writer. The caller keeps ownership of w.
func NewTSV(w io.Writer, withFID bool) *TSV {
	return &TSV{w: bufio.NewWriter(w), withFID: withFID}
}

// CreateTSV creates (truncating) the file at path and owns it until Close.
func CreateTSV(path string, withFID bool) (*TSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating tsv: %w", err)
	}
	t := NewTSV(f, withFID)
	t.closer = f
	return t, nil
}

func (t *TSV) header() string {
	cols := []string{"query_id"}
	if t.withFID {
		cols = append(cols, "f_id")
	}
	cols = append(cols, "domain_id", "start", "end", "i_evalue", "hmm_cov", "domain_cov")
	return strings.Join(cols, "\t")
}

// WriteRow emits one line, writing the header first if needed.
func (t *TSV) WriteRow(row domain.Row) error {
	if !t.started {
		if _, err := fmt.Fprintln(t.w, t.header()); err != nil {
			return fmt.Errorf("writing tsv header: %w", err)
		}
		t.started = true
	}

	var evalue, hmmCov, domCov string
	switch row.Kind {
	case domain.RowNoHit:
		evalue, hmmCov, domCov = "NA", "NA", "NA"
	case domain.RowGap:
		evalue, hmmCov, domCov = "0", "0.000", "0.000"
	default:
		evalue = fmt.Sprintf("%g", row.IEvalue)
		hmmCov = fmt.Sprintf("%.3f", row.HMMCov)
		domCov = fmt.Sprintf("%.3f", row.DomainCov)
	}

	var err error
	if t.withFID {
		_, err = fmt.Fprintf(t.w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			row.Protein, row.FID, row.Domain, row.Start, row.End, evalue, hmmCov, domCov)
	} else {
		_, err = fmt.Fprintf(t.w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			row.Protein, row.Domain, row.Start, row.End, evalue, hmmCov, domCov)
	}
	if err != nil {
		return fmt.Errorf("writing tsv row: %w", err)
	}
	return nil
}

// WriteBatch emits the rows in order.
func (t *TSV) WriteBatch(rows []domain.Row) error {
	for _, row := range rows {
		if err := t.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes buffered output and, when the sink owns the file, closes it.
// An empty result still gets its header line.
func (t *TSV) Close() error {
	if !t.started {
		if _, err := fmt.Fprintln(t.w, t.header()); err != nil {
			return fmt.Errorf("writing tsv header: %w", err)
		}
		t.started = true
	}
	if err := t.w.Flush(); err != nil {
		return fmt.Errorf("flushing tsv: %w", err)
	}
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}
