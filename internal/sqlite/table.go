package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/alchemist/pkg/types"
)

// record is an entity the table can validate before writing.
type record interface {
	types.Entity
	Validate() error
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// entitySchema describes how one entity type maps onto its SQLite table.
type entitySchema[T record] struct {
	table string
	// columns are the non-key columns, in values order.
	columns []string
	values  func(T) []any
	// scan reads "id" followed by columns.
	scan   func(rowScanner) (T, error)
	withID func(T, int64) T
	// stamp is nil if the entity has no timestamps.
	stamp func(e T, created, updated time.Time) T
	times func(T) (created, updated time.Time)
}

// table implements types.Repository for a single entity type.
type table[T record] struct {
	schema  entitySchema[T]
	backend *Backend
}

func (t *table[T]) selectSQL() string {
	return fmt.Sprintf("SELECT id, %s FROM %s", strings.Join(t.schema.columns, ", "), t.schema.table)
}

// GetAll returns every entity in key order.
func (t *table[T]) GetAll(ctx context.Context) ([]T, error) {
	return t.query(ctx, "", nil)
}

// GetByID returns the entity stored under id; found is false if absent.
func (t *table[T]) GetByID(ctx context.Context, id int64) (T, bool, error) {
	var zero T
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()

	if !t.backend.attached {
		return zero, false, types.ErrDetached
	}

	e, err := t.getLocked(ctx, t.backend.db, id)
	if errors.Is(err, types.ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		t.logError("get", err)
		return zero, false, err
	}
	return e, true, nil
}

// Create validates e, assigns a fresh key and stamps timestamps.
func (t *table[T]) Create(ctx context.Context, e T) (T, error) {
	var zero T
	if err := e.Validate(); err != nil {
		return zero, err
	}

	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()

	if !t.backend.attached {
		return zero, types.ErrDetached
	}

	e = t.schema.withID(e, 0)
	if t.schema.stamp != nil {
		now := t.backend.stamp()
		e = t.schema.stamp(e, now, now)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.schema.columns)), ", ")
	res, err := t.backend.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			t.schema.table, strings.Join(t.schema.columns, ", "), placeholders),
		t.schema.values(e)...)
	if err != nil {
		err = fmt.Errorf("inserting into %s: %w", t.schema.table, err)
		t.logError("create", err)
		return zero, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		err = fmt.Errorf("reading %s key: %w", t.schema.table, err)
		t.logError("create", err)
		return zero, err
	}
	return t.schema.withID(e, id), nil
}

// Update replaces the record stored under e's key. It fails with
// ErrInvalidID for a zero key and ErrNotFound if the key is absent.
// CreatedAt is kept from the stored record and UpdatedAt strictly
// increases.
func (t *table[T]) Update(ctx context.Context, e T) (T, error) {
	var zero T
	if e.Key() <= 0 {
		return zero, types.ErrInvalidID
	}
	if err := e.Validate(); err != nil {
		return zero, err
	}

	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()

	if !t.backend.attached {
		return zero, types.ErrDetached
	}

	tx, err := t.backend.db.BeginTx(ctx, nil)
	if err != nil {
		t.logError("update", err)
		return zero, fmt.Errorf("beginning update: %w", err)
	}
	defer tx.Rollback()

	prev, err := t.getLocked(ctx, tx, e.Key())
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			t.logError("update", err)
		}
		return zero, err
	}

	if t.schema.stamp != nil {
		created, prevUpdated := t.schema.times(prev)
		now := t.backend.stamp()
		if !now.After(prevUpdated) {
			now = prevUpdated.Add(time.Nanosecond)
		}
		e = t.schema.stamp(e, created, now)
	}

	sets := make([]string, len(t.schema.columns))
	for i, c := range t.schema.columns {
		sets[i] = c + " = ?"
	}
	args := append(t.schema.values(e), e.Key())
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", t.schema.table, strings.Join(sets, ", ")),
		args...); err != nil {
		err = fmt.Errorf("updating %s: %w", t.schema.table, err)
		t.logError("update", err)
		return zero, err
	}
	if err := tx.Commit(); err != nil {
		err = fmt.Errorf("committing update: %w", err)
		t.logError("update", err)
		return zero, err
	}
	return e, nil
}

// Delete removes the record; an absent key is not an error.
func (t *table[T]) Delete(ctx context.Context, id int64) error {
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()

	if !t.backend.attached {
		return types.ErrDetached
	}

	if _, err := t.backend.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.schema.table), id); err != nil {
		err = fmt.Errorf("deleting from %s: %w", t.schema.table, err)
		t.logError("delete", err)
		return err
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// getLocked reads one record. The caller must hold the backend lock.
func (t *table[T]) getLocked(ctx context.Context, q queryer, id int64) (T, error) {
	var zero T
	row := q.QueryRowContext(ctx, t.selectSQL()+" WHERE id = ?", id)
	e, err := t.schema.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, types.ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("scanning %s: %w", t.schema.table, err)
	}
	return e, nil
}

// query returns the records matching an optional WHERE clause in key order.
func (t *table[T]) query(ctx context.Context, where string, args []any) ([]T, error) {
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()

	if !t.backend.attached {
		return nil, types.ErrDetached
	}

	q := t.selectSQL()
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY id"

	rows, err := t.backend.db.QueryContext(ctx, q, args...)
	if err != nil {
		err = fmt.Errorf("querying %s: %w", t.schema.table, err)
		t.logError("query", err)
		return nil, err
	}
	defer rows.Close()

	result := []T{}
	for rows.Next() {
		e, err := t.schema.scan(rows)
		if err != nil {
			err = fmt.Errorf("scanning %s: %w", t.schema.table, err)
			t.logError("query", err)
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		t.logError("query", err)
		return nil, err
	}
	return result, nil
}

func (t *table[T]) logError(op string, err error) {
	t.backend.logger.Error("storage operation failed",
		"table", t.schema.table,
		"op", op,
		"err", err)
}

// formatTime and parseTime define the on-disk timestamp encoding.
func formatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
