package sink

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/AndreLecona/Dotate/internal/domain"
	"github.com/AndreLecona/Dotate/internal/port"
)

const sqliteBatchSize = 500

// SQLite appends annotation rows to one table per input file. The table is
// dropped and recreated when the sink opens, so a rerun replaces the
// previous annotation of the same input.
type SQLite struct {
	db      *sql.DB
	table   string
	withFID bool
	pending []domain.Row
}

var _ port.RowSink = (*SQLite)(nil)

// TableName derives a SQL table name from an input path: the base name
// without its extension, lowercased, with anything outside [a-z0-9_]
// replaced by underscores.
func TableName(path string) string {
	if path == "-" {
		return "stdin"
	}
	name := filepath.Base(path)
	if ext := filepath.Ext(name); ext != "" && ext != name {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.ToLower(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name = b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "t_" + name
	}
	return name
}

// NewSQLite opens (or creates) the database at path and replaces the table.
func NewSQLite(path, table string, withFID bool) (*SQLite, error) {
	table = TableName(table)

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLite{db: db, table: table, withFID: withFID}
	if err := s.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) createTable() error {
	if _, err := s.db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %q`, s.table)); err != nil {
		return fmt.Errorf("dropping table: %w", err)
	}

	fidCol := ""
	if s.withFID {
		fidCol = "f_id TEXT,\n\t\t"
	}
	create := fmt.Sprintf(`
		CREATE TABLE %q (
		query_id TEXT NOT NULL,
		%sdomain_id TEXT NOT NULL,
		start INTEGER NOT NULL,
		"end" INTEGER NOT NULL,
		i_evalue REAL,
		hmm_cov REAL,
		domain_cov REAL
		)`, s.table, fidCol)
	if _, err := s.db.Exec(create); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}
	return nil
}

// Table returns the sanitized table name rows are written to.
func (s *SQLite) Table() string { return s.table }

// WriteRow queues one row, flushing a batch when enough have accumulated.
func (s *SQLite) WriteRow(row domain.Row) error {
	s.pending = append(s.pending, row)
	if len(s.pending) >= sqliteBatchSize {
		return s.flush()
	}
	return nil
}

// WriteBatch queues rows in order, flushing full batches.
func (s *SQLite) WriteBatch(rows []domain.Row) error {
	s.pending = append(s.pending, rows...)
	if len(s.pending) >= sqliteBatchSize {
		return s.flush()
	}
	return nil
}

// flush writes all pending rows in one transaction.
func (s *SQLite) flush() error {
	if len(s.pending) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	cols := `query_id, domain_id, start, "end", i_evalue, hmm_cov, domain_cov`
	marks := "?, ?, ?, ?, ?, ?, ?"
	if s.withFID {
		cols = `query_id, f_id, domain_id, start, "end", i_evalue, hmm_cov, domain_cov`
		marks = "?, ?, ?, ?, ?, ?, ?, ?"
	}
	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`, s.table, cols, marks))
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range s.pending {
		var evalue, hmmCov, domCov any
		switch row.Kind {
		case domain.RowNoHit:
			// NULL metrics
		case domain.RowGap:
			evalue, hmmCov, domCov = 0.0, 0.0, 0.0
		default:
			evalue, hmmCov, domCov = row.IEvalue, row.HMMCov, row.DomainCov
		}

		args := make([]any, 0, 8)
		args = append(args, row.Protein)
		if s.withFID {
			args = append(args, row.FID)
		}
		args = append(args, row.Domain, row.Start, row.End, evalue, hmmCov, domCov)
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("inserting row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	s.pending = s.pending[:0]
	return nil
}

// Close flushes the remaining rows and closes the database.
func (s *SQLite) Close() error {
	flushErr := s.flush()
	if err := s.db.Close(); err != nil {
		if flushErr != nil {
			return flushErr
		}
		return fmt.Errorf("closing database: %w", err)
	}
	return flushErr
}
