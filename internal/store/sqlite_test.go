package store

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/forecast-cache/internal/weather"
)

const day0 int64 = 1_700_006_400_000 // 2023-11-15 00:00 UTC

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(day int64, code int, minT, maxT float64) weather.ForecastRecord {
	return weather.ForecastRecord{
		Day:           weather.Int64(day),
		ConditionCode: weather.Int(code),
		MinTemp:       weather.Float(minT),
		MaxTemp:       weather.Float(maxT),
		Humidity:      weather.Float(81),
		Pressure:      weather.Float(1013.2),
		WindSpeed:     weather.Float(4.5),
		WindDirection: weather.Float(270),
	}
}

func TestSQLiteInsertReplacesSameDay(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id1, err := s.Insert(ctx, record(day0, 800, 5, 12))
	require.NoError(t, err)
	id2, err := s.Insert(ctx, record(day0, 500, 3, 9))
	require.NoError(t, err)

	assert.Greater(t, id2, id1)

	rows, err := s.Query(ctx, weather.Query{Day: weather.Int64(day0)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, id2, rows[0].ID)
	assert.Equal(t, 500, *rows[0].ConditionCode)
	assert.Equal(t, 9.0, *rows[0].MaxTemp)
}

func TestSQLiteIDsNeverReused(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	var last int64
	for i := int64(0); i < 3; i++ {
		id, err := s.Insert(ctx, record(day0+i*weather.DayMillis, 800, 1, 2))
		require.NoError(t, err)
		last = id
	}

	n, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	id, err := s.Insert(ctx, record(day0, 800, 1, 2))
	require.NoError(t, err)
	assert.Greater(t, id, last)
}

func TestSQLiteInsertRejectsMissingField(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.Insert(ctx, record(day0, 800, 1, 2))
	require.NoError(t, err)

	bad := record(day0+weather.DayMillis, 800, 1, 2)
	bad.MinTemp = nil

	id, err := s.Insert(ctx, bad)
	assert.Equal(t, FailedInsert, id)

	var cv *weather.ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, []weather.Column{weather.ColumnMinTemp}, cv.Columns)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	next, err := s.Insert(ctx, record(day0+2*weather.DayMillis, 800, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, first+1, next, "rejected insert must not consume an id")
}

func TestSQLiteBulkInsertSkipsRejected(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	bad := record(day0+weather.DayMillis, 800, 1, 2)
	bad.ConditionCode = nil

	n, err := s.BulkInsert(ctx, []weather.ForecastRecord{
		record(day0, 800, 1, 2),
		bad,
		record(day0+2*weather.DayMillis, 800, 1, 2),
	})
	assert.Equal(t, 2, n)

	var me *multierror.Error
	require.ErrorAs(t, err, &me)
	assert.Len(t, me.Errors, 1)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSQLiteQueryProjection(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.BulkInsert(ctx, []weather.ForecastRecord{
		record(day0+weather.DayMillis, 500, 3, 9),
		record(day0, 800, 5, 12),
	})
	require.NoError(t, err)

	rows, err := s.Query(ctx, weather.Query{Columns: []weather.Column{weather.ColumnDay, weather.ColumnMaxTemp}})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, day0, *rows[0].Day, "rows are ordered by day")
	assert.Equal(t, 12.0, *rows[0].MaxTemp)
	assert.Nil(t, rows[0].MinTemp)
	assert.Nil(t, rows[0].ConditionCode)
	assert.Zero(t, rows[0].ID)

	_, err = s.Query(ctx, weather.Query{Columns: []weather.Column{"day; DROP TABLE forecast"}})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestSQLiteQueryMissingDay(t *testing.T) {
	s := openTestStore(t)

	rows, err := s.Query(context.Background(), weather.Query{Day: weather.Int64(day0)})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLiteDeleteFilter(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	var recs []weather.ForecastRecord
	for i := int64(0); i < 5; i++ {
		recs = append(recs, record(day0+i*weather.DayMillis, 800, 1, 2))
	}
	_, err := s.BulkInsert(ctx, recs)
	require.NoError(t, err)

	n, err := s.Delete(ctx, weather.Filter{Before: weather.Int64(day0 + 2*weather.DayMillis)})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = s.Delete(ctx, weather.Filter{Day: weather.Int64(day0 + 4*weather.DayMillis)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.Delete(ctx, weather.Filter{})
	assert.ErrorIs(t, err, ErrEmptyFilter)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSQLiteReplace(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.BulkInsert(ctx, []weather.ForecastRecord{
		record(day0-weather.DayMillis, 800, 1, 2),
		record(day0, 800, 1, 2),
	})
	require.NoError(t, err)

	n, err := s.Replace(ctx, []weather.ForecastRecord{
		record(day0, 601, -4, 0),
		record(day0+weather.DayMillis, 601, -6, -1),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := s.Query(ctx, weather.Query{Columns: []weather.Column{weather.ColumnDay, weather.ColumnConditionCode}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, day0, *rows[0].Day)
	assert.Equal(t, 601, *rows[0].ConditionCode)
	assert.Equal(t, day0+weather.DayMillis, *rows[1].Day)
}

func TestSQLiteSevenDayBatch(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	var recs []weather.ForecastRecord
	for i := int64(0); i < 7; i++ {
		recs = append(recs, record(day0+i*weather.DayMillis, 800, float64(i), float64(i+10)))
	}
	n, err := s.Replace(ctx, recs)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	rows, err := s.Query(ctx, weather.Query{})
	require.NoError(t, err)
	require.Len(t, rows, 7)
	for i, r := range rows {
		assert.Equal(t, day0+int64(i)*weather.DayMillis, *r.Day)
		assert.Equal(t, float64(i+10), *r.MaxTemp)
	}
}

func TestSQLiteConstraintDetection(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Insert(context.Background(), weather.ForecastRecord{})
	var cv *weather.ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, weather.RequiredColumns, cv.Columns)

	_, err = s.db.ExecContext(context.Background(), insertSQL, nil, nil, nil, nil, nil, nil, nil, nil)
	require.Error(t, err)
	assert.True(t, isConstraint(err))
	assert.False(t, isConstraint(errors.New("disk I/O error")))
}

func TestSQLiteRepeatedDayInOneBatch(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n, err := s.BulkInsert(ctx, []weather.ForecastRecord{
		record(day0, 800, 1, 2),
		record(day0+weather.DayMillis, 800, 3, 4),
		record(day0, 500, 7, 9),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := s.Query(ctx, weather.Query{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, day0, *rows[0].Day)
	assert.Equal(t, 500, *rows[0].ConditionCode)
	assert.Equal(t, 7.0, *rows[0].MinTemp)
	assert.Greater(t, rows[0].ID, rows[1].ID, "the last write for a day gets the newest id")

	n, err = s.Replace(ctx, []weather.ForecastRecord{
		record(day0, 800, 1, 2),
		record(day0, 601, -3, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err = s.Query(ctx, weather.Query{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 601, *rows[0].ConditionCode)
	assert.Equal(t, -3.0, *rows[0].MinTemp)
}

func TestSQLiteReplaceAllRejectedKeepsRows(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Replace(ctx, []weather.ForecastRecord{
		record(day0, 800, 1, 2),
		record(day0+weather.DayMillis, 800, 1, 2),
	})
	require.NoError(t, err)

	bad := record(day0+2*weather.DayMillis, 800, 1, 2)
	bad.Humidity = nil

	n, err := s.Replace(ctx, []weather.ForecastRecord{bad})
	assert.Zero(t, n)
	var cv *weather.ConstraintViolation
	require.ErrorAs(t, err, &cv)

	rows, err := s.Query(ctx, weather.Query{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, day0, *rows[0].Day)
}

func TestSQLiteRejectsNaN(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	bad := record(day0, 800, 1, 2)
	bad.Humidity = weather.Float(math.NaN())

	id, err := s.Insert(ctx, bad)
	assert.Equal(t, FailedInsert, id)

	var cv *weather.ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, []weather.Column{weather.ColumnHumidity}, cv.Columns)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
