// Package hmmer reads HMMER3 per-domain table output (--domtblout) into hit
// records grouped by protein.
package hmmer

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/AndreLecona/Dotate/internal/domain"
)

// Layout selects which side of the table is the protein. hmmsearch runs
// profiles against sequences (target = protein); hmmscan is the reverse.
type Layout int

const (
	LayoutSearch Layout = iota
	LayoutScan
)

// ParseLayout parses a layout name from config or flags.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(s) {
	case "", "hmmsearch":
		return LayoutSearch, nil
	case "hmmscan":
		return LayoutScan, nil
	}
	return LayoutSearch, fmt.Errorf("unknown table layout %q (want hmmsearch or hmmscan)", s)
}

func (l Layout) String() string {
	if l == LayoutScan {
		return "hmmscan"
	}
	return "hmmsearch"
}

// minFields is the fixed column count of a domtbl row before the free-text
// description: 22 columns from target name through acc.
const minFields = 22

// Reader scans one domain-table file. It tolerates malformed lines: each one
// is logged, counted and skipped, and the scan continues.
type Reader struct {
	path   string
	layout Layout
	log    *zap.Logger
}

// ScanStats reports what a full scan consumed.
type ScanStats struct {
	Lines   int // data lines seen (comments and blanks excluded)
	Skipped int // malformed data lines dropped
}

func NewReader(path string, layout Layout) *Reader {
	return &Reader{path: path, layout: layout, log: zap.NewNop()}
}

// SetLogger sets the logger used for per-line warnings.
func (r *Reader) SetLogger(l *zap.Logger) {
	if l != nil {
		r.log = l
	}
}

// ReadGroups scans the whole table and returns the hits grouped by protein in
// first-seen order. The full scan is unavoidable: domtbl rows are blocked by
// profile, so one protein's hits are scattered across the file.
func (r *Reader) ReadGroups() ([]domain.Group, ScanStats, error) {
	var stats ScanStats

	rc, err := openReader(r.path)
	if err != nil {
		return nil, stats, fmt.Errorf("opening domain table: %w", err)
	}
	defer rc.Close()

	var (
		groups []domain.Group
		index  = make(map[string]int)
	)

	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	lineno := 0
	for sc.Scan() {
		lineno++
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		stats.Lines++

		hit, err := ParseLine(line, lineno, r.layout)
		if err != nil {
			stats.Skipped++
			r.log.Warn("skipping malformed line", zap.String("file", r.path), zap.Error(err))
			continue
		}

		i, ok := index[hit.Protein]
		if !ok {
			i = len(groups)
			index[hit.Protein] = i
			groups = append(groups, domain.Group{Protein: hit.Protein, Length: hit.ProteinLen})
		}
		groups[i].Hits = append(groups[i].Hits, hit)
	}
	if err := sc.Err(); err != nil {
		return nil, stats, fmt.Errorf("reading domain table: %w", err)
	}

	return groups, stats, nil
}

// openReader opens path for reading, transparently handling "-" for stdin
// and gzip-compressed files.
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
