package cli

import (
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/AndreLecona/Dotate/internal/domain"
)

// recordingSink counts writes and can be told to fail.
type recordingSink struct {
	rows    int
	failAt  int // fail the write once this many rows have been seen; 0 = never
	closed  bool
	batches int
}

func (s *recordingSink) WriteRow(row domain.Row) error {
	return s.WriteBatch([]domain.Row{row})
}

func (s *recordingSink) WriteBatch(rows []domain.Row) error {
	s.batches++
	s.rows += len(rows)
	if s.failAt > 0 && s.rows >= s.failAt {
		return fmt.Errorf("write failed")
	}
	return nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func TestSinkEntryIsolatesFailure(t *testing.T) {
	logger = zap.NewNop()

	broken := &recordingSink{failAt: 1}
	healthy := &recordingSink{}
	entries := []*sinkEntry{
		{name: "broken", rows: broken},
		{name: "healthy", rows: healthy},
	}

	rows := []domain.Row{{Protein: "P1", Domain: "d1", Start: 1, End: 50}}
	for i := 0; i < 3; i++ {
		for _, e := range entries {
			e.write(rows, domain.ProteinAnnotation{Protein: "P1"})
		}
	}

	// The broken sink stops receiving after its first failure.
	if broken.batches != 1 {
		t.Errorf("expected 1 write attempt on the broken sink, got %d", broken.batches)
	}
	if healthy.rows != 3 {
		t.Errorf("expected the healthy sink to receive all 3 rows, got %d", healthy.rows)
	}

	if entries[0].close() {
		t.Error("broken sink should not close cleanly")
	}
	if !entries[1].close() {
		t.Error("healthy sink should close cleanly")
	}
	if !healthy.closed {
		t.Error("healthy sink was never closed")
	}
}

func TestSinkEntryCloseFailure(t *testing.T) {
	logger = zap.NewNop()

	e := &sinkEntry{name: "flaky", rows: &failingCloser{}}
	e.write([]domain.Row{{Protein: "P1"}}, domain.ProteinAnnotation{})
	if e.failed {
		t.Fatal("write should have succeeded")
	}
	if e.close() {
		t.Error("close failure should mark the sink failed")
	}
}

type failingCloser struct{}

func (f *failingCloser) WriteRow(domain.Row) error     { return nil }
func (f *failingCloser) WriteBatch([]domain.Row) error { return nil }
func (f *failingCloser) Close() error                  { return fmt.Errorf("flush failed") }
