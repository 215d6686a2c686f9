package weather_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/forecast-cache/internal/route"
	"github.com/i474232898/forecast-cache/internal/store"
	"github.com/i474232898/forecast-cache/internal/weather"
)

func TestReaderDispatch(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	_, err := st.BulkInsert(ctx, sevenDays())
	require.NoError(t, err)

	r := weather.NewReader(route.NewMatcher("forecast"), st)

	all, err := r.QueryPath(ctx, "/forecast", nil)
	require.NoError(t, err)
	assert.Len(t, all, 7)

	one, err := r.QueryPath(ctx, r.Matcher().DayPath(day0+weather.DayMillis), []weather.Column{weather.ColumnMaxTemp})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, 13.0, *one[0].MaxTemp)
	assert.Nil(t, one[0].Day)

	none, err := r.QueryPath(ctx, "/forecast/42", nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = r.QueryPath(ctx, "/weather", nil)
	assert.ErrorIs(t, err, route.ErrUnrecognized)

	_, err = r.Query(ctx, route.Route{Kind: route.Unrecognized}, nil)
	assert.ErrorIs(t, err, route.ErrUnrecognized)
}

func TestReaderDay(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	_, err := st.BulkInsert(ctx, sevenDays())
	require.NoError(t, err)

	r := weather.NewReader(route.NewMatcher(""), st)

	rec, err := r.Day(ctx, day0, nil)
	require.NoError(t, err)
	assert.Equal(t, day0, *rec.Day)

	_, err = r.Day(ctx, day0-weather.DayMillis, nil)
	assert.ErrorIs(t, err, weather.ErrNotFound)
}
