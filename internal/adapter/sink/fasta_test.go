package sink

import (
	"bytes"
	"strings"
	"testing"

	"github.com/AndreLecona/Dotate/internal/domain"
)

type seqMap map[string]string

func (m seqMap) Sequence(id string) (string, bool) {
	s, ok := m[id]
	return s, ok
}

func TestFastaArchitecture(t *testing.T) {
	var buf bytes.Buffer
	sink := NewFasta(&buf, false)

	for _, pa := range []domain.ProteinAnnotation{annotatedProtein(), emptyProtein()} {
		if err := sink.WriteProtein(pa); err != nil {
			t.Fatal(err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	want := ">P1\n(54)-PF00001.24-(20)\n\n" +
		">P2\n(80)\n\n"
	if buf.String() != want {
		t.Errorf("output mismatch:\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestFastaArchitectureWithFID(t *testing.T) {
	var buf bytes.Buffer
	sink := NewFasta(&buf, true)

	if err := sink.WriteProtein(annotatedProtein()); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	want := ">P1\n(54)-2004.1.1.1-(20)\n\n"
	if buf.String() != want {
		t.Errorf("output mismatch:\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestFastaSequenceMode(t *testing.T) {
	seq := strings.Repeat("ACDEFGHIKL", 12)
	seqs := seqMap{"P1": seq}

	var buf bytes.Buffer
	sink := NewSequenceFasta(&buf, false, seqs)

	if err := sink.WriteProtein(annotatedProtein()); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	want := ">P1|PF00001.24|55-100\n" + seq[54:100] + "\n"
	if buf.String() != want {
		t.Errorf("output mismatch:\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestFastaSequenceWrapping(t *testing.T) {
	seq := strings.Repeat("M", 80)
	pa := domain.ProteinAnnotation{
		Protein: "P3",
		Length:  80,
		Domains: []domain.Annotation{{
			Protein: "P3", Domain: "d1", Start: 1, End: 70,
		}},
	}

	var buf bytes.Buffer
	sink := NewSequenceFasta(&buf, false, seqMap{"P3": seq})
	if err := sink.WriteProtein(pa); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus two sequence lines, got %d: %q", len(lines), lines)
	}
	if lines[0] != ">P3|d1|1-70" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if len(lines[1]) != 60 || len(lines[2]) != 10 {
		t.Errorf("expected 60+10 residue lines, got %d+%d", len(lines[1]), len(lines[2]))
	}
}

func TestFastaSequenceMissingProtein(t *testing.T) {
	pa := domain.ProteinAnnotation{
		Protein: "ghost",
		Length:  50,
		Domains: []domain.Annotation{{
			Protein: "ghost", Domain: "d1", Start: 1, End: 40,
		}},
	}

	var buf bytes.Buffer
	sink := NewSequenceFasta(&buf, false, seqMap{})
	if err := sink.WriteProtein(pa); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	if buf.Len() != 0 {
		t.Errorf("expected no output for missing protein, got %q", buf.String())
	}
}

func TestFastaSequenceClampsPastEnd(t *testing.T) {
	seq := strings.Repeat("ACDEFGHIKL", 12)
	pa := domain.ProteinAnnotation{
		Protein: "P1",
		Length:  120,
		Domains: []domain.Annotation{{
			Protein: "P1", Domain: "d1", Start: 100, End: 130,
		}},
	}

	var buf bytes.Buffer
	sink := NewSequenceFasta(&buf, false, seqMap{"P1": seq})
	if err := sink.WriteProtein(pa); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	want := ">P1|d1|100-130\n" + seq[99:120] + "\n"
	if buf.String() != want {
		t.Errorf("output mismatch:\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestFastaSequenceSkipsEmptyProteins(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSequenceFasta(&buf, false, seqMap{"P2": "MKT"})
	if err := sink.WriteProtein(emptyProtein()); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	if buf.Len() != 0 {
		t.Errorf("expected no output for protein without domains, got %q", buf.String())
	}
}
