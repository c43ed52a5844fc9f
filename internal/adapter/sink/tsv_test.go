package sink

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AndreLecona/Dotate/internal/domain"
)

func annotatedProtein() domain.ProteinAnnotation {
	return domain.ProteinAnnotation{
		Protein: "P1",
		Length:  120,
		Domains: []domain.Annotation{{
			Protein:   "P1",
			Domain:    "PF00001.24",
			FID:       "2004.1.1.1",
			Start:     55,
			End:       100,
			IEvalue:   1.1e-18,
			HMMCov:    1.0,
			DomainCov: 0.964,
		}},
		Unannotated: []domain.Segment{{Start: 1, End: 54}, {Start: 101, End: 120}},
	}
}

func emptyProtein() domain.ProteinAnnotation {
	return domain.ProteinAnnotation{
		Protein:     "P2",
		Length:      80,
		Unannotated: []domain.Segment{{Start: 1, End: 80}},
	}
}

func TestTSVGoldenOutput(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTSV(&buf, false)

	for _, pa := range []domain.ProteinAnnotation{annotatedProtein(), emptyProtein()} {
		if err := sink.WriteBatch(pa.Rows()); err != nil {
			t.Fatal(err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	want := "query_id\tdomain_id\tstart\tend\ti_evalue\thmm_cov\tdomain_cov\n" +
		"P1\tUNN\t1\t54\t0\t0.000\t0.000\n" +
		"P1\tPF00001.24\t55\t100\t1.1e-18\t1.000\t0.964\n" +
		"P1\tUNN\t101\t120\t0\t0.000\t0.000\n" +
		"P2\tUNN\t1\t80\tNA\tNA\tNA\n"
	if buf.String() != want {
		t.Errorf("output mismatch:\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestTSVGoldenOutputWithFID(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTSV(&buf, true)

	for _, pa := range []domain.ProteinAnnotation{annotatedProtein(), emptyProtein()} {
		if err := sink.WriteBatch(pa.Rows()); err != nil {
			t.Fatal(err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	want := "query_id\tf_id\tdomain_id\tstart\tend\ti_evalue\thmm_cov\tdomain_cov\n" +
		"P1\tUNN\tUNN\t1\t54\t0\t0.000\t0.000\n" +
		"P1\t2004.1.1.1\tPF00001.24\t55\t100\t1.1e-18\t1.000\t0.964\n" +
		"P1\tUNN\tUNN\t101\t120\t0\t0.000\t0.000\n" +
		"P2\tUNN\tUNN\t1\t80\tNA\tNA\tNA\n"
	if buf.String() != want {
		t.Errorf("output mismatch:\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestTSVEmptyStillWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTSV(&buf, false)
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	want := "query_id\tdomain_id\tstart\tend\ti_evalue\thmm_cov\tdomain_cov\n"
	if buf.String() != want {
		t.Errorf("expected header only, got %q", buf.String())
	}
}

func TestCreateTSVOwnsFile(t *testing.T) {
	dir, err := os.MkdirTemp("", "tsv-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "out.tsv")
	sink, err := CreateTSV(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.WriteBatch(emptyProtein().Rows()); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "query_id\t") {
		t.Errorf("missing header, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "P2\tUNN\t1\t80\t") {
		t.Errorf("unexpected row %q", lines[1])
	}
}
