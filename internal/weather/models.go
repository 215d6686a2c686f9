package weather

import (
	"fmt"
	"math"
	"time"
)

// DayMillis is the length of one forecast day in milliseconds.
const DayMillis int64 = 24 * 60 * 60 * 1000

// Column names a field of the forecast table.
type Column string

const (
	ColumnID            Column = "_id"
	ColumnDay           Column = "day"
	ColumnConditionCode Column = "condition_code"
	ColumnMinTemp       Column = "min_temp"
	ColumnMaxTemp       Column = "max_temp"
	ColumnHumidity      Column = "humidity"
	ColumnPressure      Column = "pressure"
	ColumnWindSpeed     Column = "wind_speed"
	ColumnWindDirection Column = "wind_direction"
)

// AllColumns lists every column in table order.
var AllColumns = []Column{
	ColumnID,
	ColumnDay,
	ColumnConditionCode,
	ColumnMinTemp,
	ColumnMaxTemp,
	ColumnHumidity,
	ColumnPressure,
	ColumnWindSpeed,
	ColumnWindDirection,
}

// RequiredColumns are the columns that may never hold an absent value.
var RequiredColumns = AllColumns[1:]

// Valid reports whether c is a known column.
func (c Column) Valid() bool {
	for _, known := range AllColumns {
		if c == known {
			return true
		}
	}
	return false
}

// ParseColumns converts raw column names, rejecting unknown ones.
func ParseColumns(names []string) ([]Column, error) {
	cols := make([]Column, 0, len(names))
	for _, n := range names {
		c := Column(n)
		if !c.Valid() {
			return nil, fmt.Errorf("unknown column %q", n)
		}
		cols = append(cols, c)
	}
	return cols, nil
}

// Location represents the place the forecast is fetched for.
// Either City (optionally with Country) or Lat/Lon must be provided.
type Location struct {
	City    string   `json:"city,omitempty"`
	Country string   `json:"country,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// HasCoordinates reports whether the location is pinned by latitude and longitude.
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lon != nil
}

// Key returns a canonical string key for logging and metrics labels.
func (l Location) Key() string {
	if l.HasCoordinates() {
		return fmt.Sprintf("%.4f,%.4f", *l.Lat, *l.Lon)
	}
	if l.Country == "" {
		return l.City
	}
	return l.City + ":" + l.Country
}

// ForecastRecord is one stored day of forecast.
//
// Pointer fields are nil when the value is absent: either the parser could not
// supply it, or the column was not part of a query projection.
type ForecastRecord struct {
	ID            int64    `json:"id,omitempty"`
	Day           *int64   `json:"day,omitempty"` // ms since epoch, midnight UTC
	ConditionCode *int     `json:"conditionCode,omitempty"`
	MinTemp       *float64 `json:"minTemp,omitempty"` // Celsius
	MaxTemp       *float64 `json:"maxTemp,omitempty"` // Celsius
	Humidity      *float64 `json:"humidity,omitempty"`
	Pressure      *float64 `json:"pressure,omitempty"`
	WindSpeed     *float64 `json:"windSpeed,omitempty"`
	WindDirection *float64 `json:"windDirection,omitempty"`
}

// Missing returns the required columns that have no value. NaN counts as no value.
func (r ForecastRecord) Missing() []Column {
	var missing []Column
	if r.Day == nil {
		missing = append(missing, ColumnDay)
	}
	if r.ConditionCode == nil {
		missing = append(missing, ColumnConditionCode)
	}
	if absent(r.MinTemp) {
		missing = append(missing, ColumnMinTemp)
	}
	if absent(r.MaxTemp) {
		missing = append(missing, ColumnMaxTemp)
	}
	if absent(r.Humidity) {
		missing = append(missing, ColumnHumidity)
	}
	if absent(r.Pressure) {
		missing = append(missing, ColumnPressure)
	}
	if absent(r.WindSpeed) {
		missing = append(missing, ColumnWindSpeed)
	}
	if absent(r.WindDirection) {
		missing = append(missing, ColumnWindDirection)
	}
	return missing
}

func absent(v *float64) bool {
	return v == nil || math.IsNaN(*v)
}

// Project returns a copy holding only the given columns. An empty list keeps everything.
func (r ForecastRecord) Project(cols []Column) ForecastRecord {
	if len(cols) == 0 {
		return r
	}
	var out ForecastRecord
	for _, c := range cols {
		switch c {
		case ColumnID:
			out.ID = r.ID
		case ColumnDay:
			out.Day = r.Day
		case ColumnConditionCode:
			out.ConditionCode = r.ConditionCode
		case ColumnMinTemp:
			out.MinTemp = r.MinTemp
		case ColumnMaxTemp:
			out.MaxTemp = r.MaxTemp
		case ColumnHumidity:
			out.Humidity = r.Humidity
		case ColumnPressure:
			out.Pressure = r.Pressure
		case ColumnWindSpeed:
			out.WindSpeed = r.WindSpeed
		case ColumnWindDirection:
			out.WindDirection = r.WindDirection
		}
	}
	return out
}

// Query selects rows from the store. A nil Day returns the whole table.
type Query struct {
	Day     *int64
	Columns []Column
}

// Filter selects rows for targeted deletion. At least one field must be set.
type Filter struct {
	Day    *int64 // exact day
	Before *int64 // every day strictly before this one
}

// Summary is the compact payload pushed to the companion device.
type Summary struct {
	MaxTemp       int   `json:"maxTemp"`
	MinTemp       int   `json:"minTemp"`
	ConditionCode int   `json:"conditionCode"`
	Timestamp     int64 `json:"timestamp"` // ms since epoch
}

// Notification is what the notification surface shows to the user.
type Notification struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	DeepLink string `json:"deepLink"`
}

// NormalizeDay truncates t to midnight UTC and returns it in milliseconds.
func NormalizeDay(t time.Time) int64 {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).UnixMilli()
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
