package weather

import (
	"math"
	"sort"
	"time"
)

// Sample is one sub-daily forecast reading, such as a 3-hour step.
type Sample struct {
	Time          time.Time
	ConditionCode int
	MinTemp       float64 // Celsius
	MaxTemp       float64 // Celsius
	Humidity      float64
	Pressure      float64
	WindSpeed     float64
	WindDirection float64 // degrees
}

// AggregateDaily combines samples into one record per UTC day, ordered by day.
// Temperatures take the day's extremes, humidity, pressure and wind speed are
// averaged, wind direction is the vector mean, and the condition is the most
// frequent code (the lower, more severe code wins a tie).
func AggregateDaily(samples []Sample) []ForecastRecord {
	if len(samples) == 0 {
		return nil
	}

	type bucket struct {
		minTemp, maxTemp         float64
		sumHumidity, sumPressure float64
		sumWind, sumSin, sumCos  float64
		n                        int
		conditionCounts          map[int]int
	}

	buckets := make(map[int64]*bucket)
	for _, s := range samples {
		day := NormalizeDay(s.Time)
		b, ok := buckets[day]
		if !ok {
			b = &bucket{
				minTemp:         s.MinTemp,
				maxTemp:         s.MaxTemp,
				conditionCounts: make(map[int]int),
			}
			buckets[day] = b
		}

		b.minTemp = math.Min(b.minTemp, s.MinTemp)
		b.maxTemp = math.Max(b.maxTemp, s.MaxTemp)
		b.sumHumidity += s.Humidity
		b.sumPressure += s.Pressure
		b.sumWind += s.WindSpeed

		rad := s.WindDirection * math.Pi / 180
		b.sumSin += math.Sin(rad)
		b.sumCos += math.Cos(rad)

		b.conditionCounts[s.ConditionCode]++
		b.n++
	}

	days := make([]int64, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	out := make([]ForecastRecord, 0, len(days))
	for _, day := range days {
		b := buckets[day]
		n := float64(b.n)

		bestCode, bestCount := 0, 0
		for code, count := range b.conditionCounts {
			if count > bestCount || (count == bestCount && code < bestCode) {
				bestCode, bestCount = code, count
			}
		}

		dir := math.Atan2(b.sumSin, b.sumCos) * 180 / math.Pi
		dir = math.Mod(math.Round(dir)+360, 360)

		out = append(out, ForecastRecord{
			Day:           Int64(day),
			ConditionCode: Int(bestCode),
			MinTemp:       Float(b.minTemp),
			MaxTemp:       Float(b.maxTemp),
			Humidity:      Float(b.sumHumidity / n),
			Pressure:      Float(b.sumPressure / n),
			WindSpeed:     Float(b.sumWind / n),
			WindDirection: Float(dir),
		})
	}
	return out
}
