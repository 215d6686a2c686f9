package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/i474232898/forecast-cache/internal/weather"
)

// SQLiteStore is the durable forecast store backed by a single SQLite table.
//
// All writes take the write lock and all reads take the read lock, so a
// reader never observes a half-applied Replace.
type SQLiteStore struct {
	mu      sync.RWMutex
	db      *sql.DB
	version int
	schema  string
}

var _ weather.Store = (*SQLiteStore)(nil)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const insertSQL = `INSERT INTO forecast
	(day, condition_code, min_temp, max_temp, humidity, pressure, wind_speed, wind_direction)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Insert writes one record and returns its new id.
// A record with a missing required field returns FailedInsert and a
// *weather.ConstraintViolation; no id is consumed and nothing is written.
func (s *SQLiteStore) Insert(ctx context.Context, rec weather.ForecastRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return insertRecord(ctx, s.db, rec)
}

// BulkInsert writes records in one transaction. Rejected records are skipped
// and reported together; the returned count covers only the written ones.
func (s *SQLiteStore) BulkInsert(ctx context.Context, recs []weather.ForecastRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bulk insert: %w", err)
	}

	n, err := bulkInsert(ctx, tx, recs)
	if err != nil && !isRejection(err) {
		_ = tx.Rollback()
		return 0, err
	}
	if cerr := tx.Commit(); cerr != nil {
		return 0, fmt.Errorf("commit bulk insert: %w", cerr)
	}
	return n, err
}

// Replace clears the table and writes recs as one atomic step.
// A non-empty batch in which every record is rejected is rolled back, so the
// previous rows stay in place.
func (s *SQLiteStore) Replace(ctx context.Context, recs []weather.ForecastRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin replace: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+TableName); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("clear forecast: %w", err)
	}

	n, err := bulkInsert(ctx, tx, recs)
	if err != nil && (!isRejection(err) || n == 0) {
		_ = tx.Rollback()
		return 0, err
	}
	if cerr := tx.Commit(); cerr != nil {
		return 0, fmt.Errorf("commit replace: %w", cerr)
	}
	return n, err
}

// DeleteAll removes every row and returns how many were removed.
func (s *SQLiteStore) DeleteAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM "+TableName)
	if err != nil {
		return 0, fmt.Errorf("delete all: %w", err)
	}
	return res.RowsAffected()
}

// Delete removes rows matching f. Both fields set means both must hold.
func (s *SQLiteStore) Delete(ctx context.Context, f weather.Filter) (int64, error) {
	var (
		conds []string
		args  []any
	)
	if f.Day != nil {
		conds = append(conds, "day = ?")
		args = append(args, *f.Day)
	}
	if f.Before != nil {
		conds = append(conds, "day < ?")
		args = append(args, *f.Before)
	}
	if len(conds) == 0 {
		return 0, ErrEmptyFilter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM "+TableName+" WHERE "+strings.Join(conds, " AND "), args...)
	if err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}
	return res.RowsAffected()
}

// Query returns rows ordered by day. Columns outside the projection are left nil.
func (s *SQLiteStore) Query(ctx context.Context, q weather.Query) ([]weather.ForecastRecord, error) {
	cols := q.Columns
	if len(cols) == 0 {
		cols = weather.AllColumns
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, c)
		}
		names[i] = string(c)
	}

	stmt := "SELECT " + strings.Join(names, ", ") + " FROM " + TableName
	var args []any
	if q.Day != nil {
		stmt += " WHERE day = ?"
		args = append(args, *q.Day)
	}
	stmt += " ORDER BY day"

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query forecast: %w", err)
	}
	defer rows.Close()

	var out []weather.ForecastRecord
	for rows.Next() {
		var rec weather.ForecastRecord
		if err := rows.Scan(scanTargets(&rec, cols)...); err != nil {
			return nil, fmt.Errorf("scan forecast: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate forecast: %w", err)
	}
	return out, nil
}

// Count returns the number of stored rows.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+TableName).Scan(&n); err != nil {
		return 0, fmt.Errorf("count forecast: %w", err)
	}
	return n, nil
}

func insertRecord(ctx context.Context, ex execer, rec weather.ForecastRecord) (int64, error) {
	if missing := rec.Missing(); len(missing) > 0 {
		return FailedInsert, &weather.ConstraintViolation{Day: rec.Day, Columns: missing}
	}
	res, err := ex.ExecContext(ctx, insertSQL,
		nullable(rec.Day),
		nullable(rec.ConditionCode),
		nullable(rec.MinTemp),
		nullable(rec.MaxTemp),
		nullable(rec.Humidity),
		nullable(rec.Pressure),
		nullable(rec.WindSpeed),
		nullable(rec.WindDirection),
	)
	if err != nil {
		if isConstraint(err) {
			return FailedInsert, &weather.ConstraintViolation{Day: rec.Day, Columns: rec.Missing(), Err: err}
		}
		return FailedInsert, fmt.Errorf("insert forecast: %w", err)
	}
	return res.LastInsertId()
}

func bulkInsert(ctx context.Context, ex execer, recs []weather.ForecastRecord) (int, error) {
	var rejected *multierror.Error
	written := 0
	for _, rec := range recs {
		if _, err := insertRecord(ctx, ex, rec); err != nil {
			var cv *weather.ConstraintViolation
			if !errors.As(err, &cv) {
				return written, err
			}
			rejected = multierror.Append(rejected, err)
			continue
		}
		written++
	}
	return written, rejected.ErrorOrNil()
}

func scanTargets(rec *weather.ForecastRecord, cols []weather.Column) []any {
	dest := make([]any, len(cols))
	for i, c := range cols {
		switch c {
		case weather.ColumnID:
			dest[i] = &rec.ID
		case weather.ColumnDay:
			dest[i] = &rec.Day
		case weather.ColumnConditionCode:
			dest[i] = &rec.ConditionCode
		case weather.ColumnMinTemp:
			dest[i] = &rec.MinTemp
		case weather.ColumnMaxTemp:
			dest[i] = &rec.MaxTemp
		case weather.ColumnHumidity:
			dest[i] = &rec.Humidity
		case weather.ColumnPressure:
			dest[i] = &rec.Pressure
		case weather.ColumnWindSpeed:
			dest[i] = &rec.WindSpeed
		case weather.ColumnWindDirection:
			dest[i] = &rec.WindDirection
		}
	}
	return dest
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
