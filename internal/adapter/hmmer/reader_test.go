package hmmer

import (
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// domtblLine fabricates one well-formed row under the hmmsearch layout.
func domtblLine(protein string, tlen int, model string, qlen int, iEvalue string, envFrom, envTo int) string {
	return fmt.Sprintf("%s - %d %s - %d 1e-30 100.0 0.1 1 1 1e-25 %s 50.0 0.0 1 %d %d %d %d %d 0.90 -",
		protein, tlen, model, qlen, iEvalue, qlen, envFrom, envTo, envFrom, envTo)
}

func TestReadGroupsFirstSeenOrder(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "reader_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	// Rows arrive blocked by profile, so one protein's hits are scattered.
	content := "# comment header\n" +
		domtblLine("P2", 400, "modelA", 100, "1e-10", 10, 120) + "\n" +
		domtblLine("P1", 250, "modelA", 100, "1e-12", 5, 110) + "\n" +
		"\n" +
		domtblLine("P1", 250, "modelB", 80, "1e-08", 130, 210) + "\n"

	path := filepath.Join(tmpDir, "search.domtbl")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	groups, stats, err := NewReader(path, LayoutSearch).ReadGroups()
	if err != nil {
		t.Fatal(err)
	}

	if stats.Lines != 3 {
		t.Errorf("expected 3 data lines, got %d", stats.Lines)
	}
	if stats.Skipped != 0 {
		t.Errorf("expected 0 skipped lines, got %d", stats.Skipped)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Protein != "P2" || groups[1].Protein != "P1" {
		t.Errorf("expected first-seen order P2, P1; got %s, %s", groups[0].Protein, groups[1].Protein)
	}
	if groups[0].Length != 400 {
		t.Errorf("expected P2 length 400, got %d", groups[0].Length)
	}
	if len(groups[1].Hits) != 2 {
		t.Errorf("expected 2 hits for P1, got %d", len(groups[1].Hits))
	}
	if groups[1].Hits[1].Domain != "modelB" {
		t.Errorf("expected P1's second hit from modelB, got %s", groups[1].Hits[1].Domain)
	}
}

func TestReadGroupsSkipsMalformed(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "reader_skip_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	content := domtblLine("P1", 250, "modelA", 100, "1e-12", 5, 110) + "\n" +
		"P1 - oops modelA - 100 bad line\n" +
		domtblLine("P1", 250, "modelB", 80, "1e-08", 130, 210) + "\n"

	path := filepath.Join(tmpDir, "search.domtbl")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	groups, stats, err := NewReader(path, LayoutSearch).ReadGroups()
	if err != nil {
		t.Fatal(err)
	}

	if stats.Lines != 3 {
		t.Errorf("expected 3 data lines, got %d", stats.Lines)
	}
	if stats.Skipped != 1 {
		t.Errorf("expected 1 skipped line, got %d", stats.Skipped)
	}
	if len(groups) != 1 || len(groups[0].Hits) != 2 {
		t.Fatalf("expected 1 group with 2 hits, got %d groups", len(groups))
	}
}

func TestReadGroupsGzip(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "reader_gz_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "search.domtbl.gz")
	fh, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	gw := gzip.NewWriter(fh)
	fmt.Fprintln(gw, "# comment")
	fmt.Fprintln(gw, domtblLine("P1", 250, "modelA", 100, "1e-12", 5, 110))
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := fh.Close(); err != nil {
		t.Fatal(err)
	}

	groups, stats, err := NewReader(path, LayoutSearch).ReadGroups()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Lines != 1 || len(groups) != 1 {
		t.Fatalf("expected 1 line and 1 group, got %d lines, %d groups", stats.Lines, len(groups))
	}
	if groups[0].Protein != "P1" {
		t.Errorf("expected protein P1, got %s", groups[0].Protein)
	}
}

func TestReadGroupsMissingFile(t *testing.T) {
	_, _, err := NewReader("does-not-exist.domtbl", LayoutSearch).ReadGroups()
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
