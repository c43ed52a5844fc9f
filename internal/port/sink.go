package port

import "github.com/AndreLecona/Dotate/internal/domain"

// RowSink receives flattened annotation rows. Implementations are written to
// sequentially and must be closed to flush. WriteBatch preserves row order.
type RowSink interface {
	WriteRow(row domain.Row) error
	WriteBatch(rows []domain.Row) error
	Close() error
}

// ProteinSink receives whole per-protein annotations, for outputs that need
// the protein-level view rather than flat rows.
type ProteinSink interface {
	WriteProtein(pa domain.ProteinAnnotation) error
	Close() error
}
