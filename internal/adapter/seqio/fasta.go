// Package seqio loads protein sequences from FASTA files for sinks that
// slice annotated regions out of the source sequence.
package seqio

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AndreLecona/Dotate/internal/port"
)

// Index maps record ids (the first whitespace-separated token of each FASTA
// header) to their residue sequence. It is built once and then shared
// read-only.
type Index struct {
	seqs map[string]string
}

var _ port.SequenceSource = (*Index)(nil)

// LoadFasta reads an entire FASTA file into an Index. Sequences are
// uppercased; a duplicated id keeps the first occurrence.
func LoadFasta(path string) (*Index, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening fasta: %w", err)
	}
	defer rc.Close()

	ix := &Index{seqs: make(map[string]string)}
	var (
		id  string
		buf bytes.Buffer
	)
	flush := func() {
		if id == "" {
			return
		}
		if _, dup := ix.seqs[id]; !dup {
			ix.seqs[id] = buf.String()
		}
	}

	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			flush()
			buf.Reset()
			id = ""
			if fields := strings.Fields(string(line[1:])); len(fields) > 0 {
				id = fields[0]
			}
			continue
		}
		buf.Write(bytes.ToUpper(bytes.TrimSpace(line)))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading fasta: %w", err)
	}
	flush()
	return ix, nil
}

// Sequence returns the residues for id.
func (ix *Index) Sequence(id string) (string, bool) {
	s, ok := ix.seqs[id]
	return s, ok
}

// Len returns the number of indexed records.
func (ix *Index) Len() int { return len(ix.seqs) }

func openReader(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			fh.Close()
			return nil, err
		}
		return struct {
			io.Reader
			io.Closer
		}{Reader: gr, Closer: fh}, nil
	}
	return fh, nil
}
