package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/mechanic-shop/internal/config"
)

// querier is the subset of *sql.DB and *sql.Tx used by the repositories, so
// every read can run either standalone or inside a caller's transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect selects the few statements whose syntax differs between drivers.
type Dialect string

const (
	DialectMySQL  Dialect = config.DriverMySQL
	DialectSQLite Dialect = config.DriverSQLite
)

// DialectFor maps a DB_DRIVER value onto a Dialect.  Unknown drivers fall
// back to MySQL, the production store.
func DialectFor(driver string) Dialect {
	if driver == config.DriverSQLite {
		return DialectSQLite
	}
	return DialectMySQL
}

// insertIgnore builds an INSERT of one row that silently does nothing when
// the row already violates the table's primary key.  The first column is
// reassigned to itself on MySQL, which leaves the row unchanged without
// swallowing unrelated errors the way INSERT IGNORE would.
func (d Dialect) insertIgnore(table string, cols ...string) string {
	ph := placeholders(len(cols))
	q := "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + ph + ")"
	if d == DialectSQLite {
		return q + " ON CONFLICT DO NOTHING"
	}
	return q + " ON DUPLICATE KEY UPDATE " + cols[0] + " = " + cols[0]
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// idArgs converts ids into query arguments for an IN list.
func idArgs(ids []uint64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// setClause accumulates "col = ?" pairs for a partial update.
type setClause struct {
	cols []string
	args []any
}

func (s *setClause) add(col string, v any) {
	s.cols = append(s.cols, col+" = ?")
	s.args = append(s.args, v)
}

func (s *setClause) empty() bool { return len(s.cols) == 0 }

// sql renders the SET list, always bumping updated_at since SQLite has no
// ON UPDATE CURRENT_TIMESTAMP.
func (s *setClause) sql() string {
	return strings.Join(append(s.cols, "updated_at = CURRENT_TIMESTAMP"), ", ")
}

// filterExisting returns the subset of ids that have a row in table,
// preserving the order of first appearance and dropping duplicates.
func filterExisting(ctx context.Context, q querier, table string, ids []uint64) ([]uint64, error) {
	uniq := dedupe(ids)
	if len(uniq) == 0 {
		return nil, nil
	}
	rows, err := q.QueryContext(ctx,
		"SELECT id FROM "+table+" WHERE id IN ("+placeholders(len(uniq))+")", idArgs(uniq)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found := make(map[uint64]bool, len(uniq))
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(found))
	for _, id := range uniq {
		if found[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func exists(ctx context.Context, q querier, table string, id uint64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ? LIMIT 1", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func countRows(ctx context.Context, q querier, query string, args ...any) (int64, error) {
	var n int64
	err := q.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}
