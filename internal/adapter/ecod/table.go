// Package ecod maps HMM profile names to ECOD F-group identifiers. The
// mapping is loaded once per run into an immutable table shared by all
// workers.
package ecod

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Table is a read-only name -> f_id mapping.
type Table struct {
	entries map[string]string
	release string
}

func NewTable(entries map[string]string, release string) *Table {
	return &Table{entries: entries, release: release}
}

// Map resolves a profile name to its F-group id. The exact name is tried
// first, then progressively shorter dot-prefixes of it. A miss returns the
// input unchanged, so Map is total.
func (t *Table) Map(name string) (string, bool) {
	if fid, ok := t.entries[name]; ok {
		return fid, true
	}
	s := name
	for {
		i := strings.LastIndexByte(s, '.')
		if i < 0 {
			break
		}
		s = s[:i]
		if fid, ok := t.entries[s]; ok {
			return fid, true
		}
	}
	return name, false
}

// Len returns the number of mapping entries.
func (t *Table) Len() int { return len(t.entries) }

// Entries exposes the underlying mapping for compilation into a store.
// Callers must not modify it.
func (t *Table) Entries() map[string]string { return t.entries }

// Release returns the ECOD release the table was built from, if recorded.
func (t *Table) Release() string { return t.release }

// LoadFile loads a mapping table from path. ".db" files are opened as a
// compiled bolt mapping database; ".json" as a {"name": "f_id"} object;
// ".tsv" and ".txt" as two-column name/f_id text.
func LoadFile(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".bolt":
		store, err := OpenReadOnly(path)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.Load()
	case ".json":
		return loadJSON(path)
	case ".tsv", ".txt":
		return loadTSV(path)
	}
	return nil, fmt.Errorf("unsupported mapping file %q (want .db, .json, .tsv or .txt)", path)
}

func loadJSON(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping file: %w", err)
	}
	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing mapping JSON: %w", err)
	}
	return NewTable(entries, ""), nil
}

func loadTSV(path string) (*Table, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping file: %w", err)
	}
	defer fh.Close()

	entries := make(map[string]string)
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("parsing mapping TSV: line %d: expected 2 columns, got %d", lineno, len(fields))
		}
		entries[fields[0]] = fields[1]
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading mapping file: %w", err)
	}
	return NewTable(entries, ""), nil
}
