package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/i474232898/forecast-cache/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory forecast store.
// It follows the same rules as SQLiteStore: one row per day, a new row for
// an existing day replaces it, and ids are never reused.
type MemoryStore struct {
	mu sync.RWMutex

	// key: day, value: stored row
	rows map[int64]weather.ForecastRecord

	lastID int64
}

var _ weather.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[int64]weather.ForecastRecord),
	}
}

// Insert stores rec, replacing any row for the same day.
func (s *MemoryStore) Insert(_ context.Context, rec weather.ForecastRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(rec)
}

// BulkInsert stores every valid record and reports the rejected ones together.
func (s *MemoryStore) BulkInsert(_ context.Context, recs []weather.ForecastRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.bulkInsertLocked(recs)
}

// Replace clears the store and writes recs under one lock.
// A non-empty batch in which every record is rejected leaves the store as it was.
func (s *MemoryStore) Replace(_ context.Context, recs []weather.ForecastRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.rows
	s.rows = make(map[int64]weather.ForecastRecord)
	n, err := s.bulkInsertLocked(recs)
	if err != nil && n == 0 {
		s.rows = prev
	}
	return n, err
}

// DeleteAll removes every row.
func (s *MemoryStore) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.rows))
	s.rows = make(map[int64]weather.ForecastRecord)
	return n, nil
}

// Delete removes rows matching f.
func (s *MemoryStore) Delete(_ context.Context, f weather.Filter) (int64, error) {
	if f.Day == nil && f.Before == nil {
		return 0, ErrEmptyFilter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for day := range s.rows {
		if f.Day != nil && day != *f.Day {
			continue
		}
		if f.Before != nil && day >= *f.Before {
			continue
		}
		delete(s.rows, day)
		n++
	}
	return n, nil
}

// Query returns rows ordered by day, projected to q.Columns.
func (s *MemoryStore) Query(_ context.Context, q weather.Query) ([]weather.ForecastRecord, error) {
	for _, c := range q.Columns {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, c)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if q.Day != nil {
		rec, ok := s.rows[*q.Day]
		if !ok {
			return nil, nil
		}
		return []weather.ForecastRecord{copyRecord(rec).Project(q.Columns)}, nil
	}

	days := make([]int64, 0, len(s.rows))
	for day := range s.rows {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	out := make([]weather.ForecastRecord, 0, len(days))
	for _, day := range days {
		out = append(out, copyRecord(s.rows[day]).Project(q.Columns))
	}
	return out, nil
}

// Count returns the number of stored rows.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows), nil
}

func (s *MemoryStore) insertLocked(rec weather.ForecastRecord) (int64, error) {
	if missing := rec.Missing(); len(missing) > 0 {
		return FailedInsert, &weather.ConstraintViolation{Day: rec.Day, Columns: missing}
	}

	s.lastID++
	stored := copyRecord(rec)
	stored.ID = s.lastID
	s.rows[*stored.Day] = stored
	return stored.ID, nil
}

func (s *MemoryStore) bulkInsertLocked(recs []weather.ForecastRecord) (int, error) {
	var rejected *multierror.Error
	written := 0
	for _, rec := range recs {
		if _, err := s.insertLocked(rec); err != nil {
			rejected = multierror.Append(rejected, err)
			continue
		}
		written++
	}
	return written, rejected.ErrorOrNil()
}

// copyRecord detaches the stored row from pointers the caller still holds.
func copyRecord(rec weather.ForecastRecord) weather.ForecastRecord {
	return weather.ForecastRecord{
		ID:            rec.ID,
		Day:           weather.Int64(*rec.Day),
		ConditionCode: weather.Int(*rec.ConditionCode),
		MinTemp:       weather.Float(*rec.MinTemp),
		MaxTemp:       weather.Float(*rec.MaxTemp),
		Humidity:      weather.Float(*rec.Humidity),
		Pressure:      weather.Float(*rec.Pressure),
		WindSpeed:     weather.Float(*rec.WindSpeed),
		WindDirection: weather.Float(*rec.WindDirection),
	}
}
