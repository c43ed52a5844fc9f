package sink

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/AndreLecona/Dotate/internal/domain"
	"github.com/AndreLecona/Dotate/internal/port"
)

const fastaLineWidth = 60

// Fasta writes per-protein records in one of two shapes. Architecture mode
// renders each protein's domain string (ids joined by "-", unannotated runs
// as "(length)"). Sequence mode emits one record per accepted domain with the
// residues sliced from a source FASTA.
type Fasta struct {
	w       *bufio.Writer
	closer  io.Closer
	withFID bool
	seqs    port.SequenceSource // nil in architecture mode
	log     *zap.Logger
}

var _ port.ProteinSink = (*Fasta)(nil)

// NewFasta wraps w as an architecture-mode sink.
func NewFasta(w io.Writer, withFID bool) *Fasta {
	return &Fasta{w: bufio.NewWriter(w), withFID: withFID, log: zap.NewNop()}
}

// NewSequenceFasta wraps w as a sequence-mode sink backed by seqs.
func NewSequenceFasta(w io.Writer, withFID bool, seqs port.SequenceSource) *Fasta {
	f := NewFasta(w, withFID)
	f.seqs = seqs
	return f
}

// CreateFasta creates (truncating) an architecture-mode sink at path.
func CreateFasta(path string, withFID bool) (*Fasta, error) {
	fh, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating fasta: %w", err)
	}
	f := NewFasta(fh, withFID)
	f.closer = fh
	return f, nil
}

// CreateSequenceFasta creates (truncating) a sequence-mode sink at path.
func CreateSequenceFasta(path string, withFID bool, seqs port.SequenceSource) (*Fasta, error) {
	f, err := CreateFasta(path, withFID)
	if err != nil {
		return nil, err
	}
	f.seqs = seqs
	return f, nil
}

// SetLogger replaces the no-op logger.
func (f *Fasta) SetLogger(l *zap.Logger) {
	if l != nil {
		f.log = l
	}
}

// WriteProtein emits the record(s) for one protein.
func (f *Fasta) WriteProtein(pa domain.ProteinAnnotation) error {
	if f.seqs != nil {
		return f.writeSequences(pa)
	}
	return f.writeArchitecture(pa)
}

// writeArchitecture renders ">protein" followed by the domain string, with a
// blank line after each record.
func (f *Fasta) writeArchitecture(pa domain.ProteinAnnotation) error {
	if _, err := fmt.Fprintf(f.w, ">%s\n", pa.Protein); err != nil {
		return fmt.Errorf("writing fasta record: %w", err)
	}
	for i, row := range pa.Rows() {
		part := fmt.Sprintf("(%d)", row.End-row.Start+1)
		if row.Kind == domain.RowDomain {
			part = f.rowID(row)
		}
		if i > 0 {
			if _, err := io.WriteString(f.w, "-"); err != nil {
				return fmt.Errorf("writing fasta record: %w", err)
			}
		}
		if _, err := io.WriteString(f.w, part); err != nil {
			return fmt.Errorf("writing fasta record: %w", err)
		}
	}
	if _, err := io.WriteString(f.w, "\n\n"); err != nil {
		return fmt.Errorf("writing fasta record: %w", err)
	}
	return nil
}

// writeSequences emits ">protein|domain|start-end" plus the wrapped
// subsequence for every accepted domain. Proteins absent from the source
// FASTA are skipped with a warning.
func (f *Fasta) writeSequences(pa domain.ProteinAnnotation) error {
	if len(pa.Domains) == 0 {
		return nil
	}
	seq, ok := f.seqs.Sequence(pa.Protein)
	if !ok {
		f.log.Warn("protein missing from source fasta", zap.String("protein", pa.Protein))
		return nil
	}
	for _, a := range pa.Domains {
		start, end := a.Start, a.End
		if end > len(seq) {
			f.log.Warn("annotation extends past sequence end",
				zap.String("protein", pa.Protein),
				zap.Int("end", end),
				zap.Int("sequence_length", len(seq)))
			end = len(seq)
		}
		if start < 1 || start > end {
			continue
		}
		id := a.Domain
		if f.withFID && a.FID != "" {
			id = a.FID
		}
		if _, err := fmt.Fprintf(f.w, ">%s|%s|%d-%d\n", pa.Protein, id, a.Start, a.End); err != nil {
			return fmt.Errorf("writing fasta record: %w", err)
		}
		if err := wrapSequence(f.w, seq[start-1:end]); err != nil {
			return fmt.Errorf("writing fasta record: %w", err)
		}
	}
	return nil
}

func (f *Fasta) rowID(row domain.Row) string {
	if f.withFID && row.FID != "" {
		return row.FID
	}
	return row.Domain
}

// wrapSequence writes s in fixed-width lines.
func wrapSequence(w io.Writer, s string) error {
	for len(s) > 0 {
		n := fastaLineWidth
		if n > len(s) {
			n = len(s)
		}
		if _, err := fmt.Fprintln(w, s[:n]); err != nil {
			return err
		}
		s = s[n:]
	}
	return nil
}

// Close flushes buffered output and, when the sink owns the file, closes it.
func (f *Fasta) Close() error {
	if err := f.w.Flush(); err != nil {
		return fmt.Errorf("flushing fasta: %w", err)
	}
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}
