package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/forecast-cache/internal/weather"
)

func TestFakeSourceGeneratesSevenValidDays(t *testing.T) {
	f := NewFakeSource(0, 42)
	f.now = func() time.Time { return fixedNow }

	payload, err := f.Fetch(context.Background(), weather.Location{})
	require.NoError(t, err)

	recs, err := f.Parse(payload)
	require.NoError(t, err)
	require.Len(t, recs, 7)

	today := weather.NormalizeDay(fixedNow)
	for i, r := range recs {
		assert.Empty(t, r.Missing())
		assert.Equal(t, today+int64(i)*weather.DayMillis, *r.Day)
		assert.LessOrEqual(t, *r.MinTemp, *r.MaxTemp)
		assert.Contains(t, fakeConditionCodes, *r.ConditionCode)
	}
}
