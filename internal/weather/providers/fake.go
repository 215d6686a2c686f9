package providers

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/i474232898/forecast-cache/internal/weather"
)

var fakeConditionCodes = []int{200, 300, 500, 711, 900, 962}

// FakeSource generates random forecast data starting today, for local development.
type FakeSource struct {
	days int
	now  func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

var _ weather.Source = (*FakeSource)(nil)

// NewFakeSource creates a FakeSource producing days records. A zero seed picks a random one.
func NewFakeSource(days int, seed uint64) *FakeSource {
	if days <= 0 {
		days = 7
	}
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &FakeSource{
		days: days,
		now:  time.Now,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (f *FakeSource) Name() string {
	return "fake"
}

// Fetch returns the generated records as JSON.
func (f *FakeSource) Fetch(_ context.Context, _ weather.Location) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	today := weather.NormalizeDay(f.now())
	recs := make([]weather.ForecastRecord, 0, f.days)
	for i := 0; i < f.days; i++ {
		maxTemp := float64(f.rng.IntN(40))
		recs = append(recs, weather.ForecastRecord{
			Day:           weather.Int64(today + int64(i)*weather.DayMillis),
			ConditionCode: weather.Int(fakeConditionCodes[f.rng.IntN(len(fakeConditionCodes))]),
			MinTemp:       weather.Float(maxTemp - float64(f.rng.IntN(10))),
			MaxTemp:       weather.Float(maxTemp),
			Humidity:      weather.Float(f.rng.Float64() * 100),
			Pressure:      weather.Float(870 + f.rng.Float64()*100),
			WindSpeed:     weather.Float(f.rng.Float64() * 10),
			WindDirection: weather.Float(float64(f.rng.IntN(360))),
		})
	}
	return json.Marshal(recs)
}

// Parse decodes what Fetch produced.
func (f *FakeSource) Parse(payload []byte) ([]weather.ForecastRecord, error) {
	var recs []weather.ForecastRecord
	if err := json.Unmarshal(payload, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}
