package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestRowsInterleavesByStart(t *testing.T) {
	pa := ProteinAnnotation{
		Protein: "P1",
		Length:  300,
		Domains: []Annotation{
			{Protein: "P1", Domain: "d1", Start: 40, End: 100, IEvalue: 1e-20},
			{Protein: "P1", Domain: "d2", Start: 180, End: 260, IEvalue: 1e-8},
		},
		Unannotated: []Segment{
			{Start: 1, End: 39},
			{Start: 101, End: 179},
			{Start: 261, End: 300},
		},
	}

	rows := pa.Rows()
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}

	wantKinds := []RowKind{RowGap, RowDomain, RowGap, RowDomain, RowGap}
	wantStarts := []int{1, 40, 101, 180, 261}
	for i, row := range rows {
		if row.Kind != wantKinds[i] {
			t.Errorf("row %d: expected kind %d, got %d", i, wantKinds[i], row.Kind)
		}
		if row.Start != wantStarts[i] {
			t.Errorf("row %d: expected start %d, got %d", i, wantStarts[i], row.Start)
		}
		if i > 0 && rows[i-1].End >= row.Start {
			t.Errorf("row %d overlaps its predecessor: %d >= %d", i, rows[i-1].End, row.Start)
		}
	}

	for _, row := range rows {
		if row.Kind == RowGap && row.Domain != UnannotatedID {
			t.Errorf("gap row has domain id %q", row.Domain)
		}
	}
}

func TestRowsNoHitProtein(t *testing.T) {
	pa := ProteinAnnotation{
		Protein:     "P2",
		Length:      150,
		Unannotated: []Segment{{Start: 1, End: 150}},
	}

	rows := pa.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected a single row, got %d", len(rows))
	}
	row := rows[0]
	if row.Kind != RowNoHit {
		t.Errorf("expected RowNoHit, got %d", row.Kind)
	}
	if row.Domain != UnannotatedID || row.FID != UnannotatedID {
		t.Errorf("expected %s ids, got domain=%q fid=%q", UnannotatedID, row.Domain, row.FID)
	}
	if row.Start != 1 || row.End != 150 {
		t.Errorf("expected full-length span, got %d-%d", row.Start, row.End)
	}
}

func TestRowsEmptyAnnotation(t *testing.T) {
	var pa ProteinAnnotation
	if rows := pa.Rows(); rows != nil {
		t.Errorf("expected nil rows, got %v", rows)
	}
}

func TestRowsLeadingDomain(t *testing.T) {
	pa := ProteinAnnotation{
		Protein:     "P3",
		Length:      200,
		Domains:     []Annotation{{Protein: "P3", Domain: "d1", Start: 1, End: 120}},
		Unannotated: []Segment{{Start: 121, End: 200}},
	}

	rows := pa.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Kind != RowDomain || rows[1].Kind != RowGap {
		t.Errorf("expected domain then gap, got kinds %d, %d", rows[0].Kind, rows[1].Kind)
	}
}

func TestResultCounters(t *testing.T) {
	res := Result{
		Proteins: []ProteinAnnotation{
			{
				Protein:     "P1",
				Domains:     []Annotation{{Domain: "d1"}, {Domain: "d2"}},
				Unannotated: []Segment{{Start: 1, End: 10}},
			},
			{
				Protein:     "P2",
				Unannotated: []Segment{{Start: 1, End: 80}},
			},
		},
	}

	if got := res.DomainCount(); got != 2 {
		t.Errorf("expected 2 domains, got %d", got)
	}
	if got := res.UnannotatedCount(); got != 2 {
		t.Errorf("expected 2 unannotated segments, got %d", got)
	}
}

func TestHitEnvLen(t *testing.T) {
	h := Hit{EnvFrom: 15, EnvTo: 295}
	if h.EnvLen() != 281 {
		t.Errorf("expected 281, got %d", h.EnvLen())
	}
}

func TestSummaryPartial(t *testing.T) {
	var s Summary
	if s.Partial() {
		t.Error("clean summary reported partial")
	}

	for _, mutate := range []func(*Summary){
		func(s *Summary) { s.LinesSkipped = 1 },
		func(s *Summary) { s.ChunksFailed = 1 },
		func(s *Summary) { s.SinksFailed = 1 },
	} {
		s := Summary{}
		mutate(&s)
		if !s.Partial() {
			t.Errorf("expected partial for %+v", s)
		}
	}

	full := Summary{Inputs: 2, Proteins: 10, Domains: 15, Unmapped: 3, SinksWritten: 2}
	if full.Partial() {
		t.Error("summary with only informational counters reported partial")
	}
}

func TestErrorWrapping(t *testing.T) {
	cause := fmt.Errorf("disk full")

	ce := &ChunkError{Chunk: 3, Err: cause}
	if !errors.Is(ce, cause) {
		t.Error("ChunkError should unwrap to its cause")
	}
	if ce.Error() != "chunk 3: disk full" {
		t.Errorf("unexpected message %q", ce.Error())
	}

	se := &SinkError{Sink: "tsv", Err: cause}
	if !errors.Is(se, cause) {
		t.Error("SinkError should unwrap to its cause")
	}
	if se.Error() != "tsv sink: disk full" {
		t.Errorf("unexpected message %q", se.Error())
	}

	pe := &ParseError{Line: 12, Reason: "expected at least 22 fields"}
	if pe.Error() != "line 12: expected at least 22 fields" {
		t.Errorf("unexpected message %q", pe.Error())
	}
}
