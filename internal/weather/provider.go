package weather

import (
	"context"
	"time"
)

// Fetcher retrieves the raw forecast payload for a location.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, loc Location) ([]byte, error)
}

// Parser turns a raw payload into forecast records.
// A nil or empty result means the source had no data.
type Parser interface {
	Parse(payload []byte) ([]ForecastRecord, error)
}

// Source is a forecast provider that both fetches and parses.
type Source interface {
	Fetcher
	Parser
}

// Store is the contract the SQLite store (and the in-memory store) must satisfy.
type Store interface {
	Insert(ctx context.Context, rec ForecastRecord) (int64, error)
	BulkInsert(ctx context.Context, recs []ForecastRecord) (int, error)
	Replace(ctx context.Context, recs []ForecastRecord) (int, error)
	DeleteAll(ctx context.Context) (int64, error)
	Delete(ctx context.Context, f Filter) (int64, error)
	Query(ctx context.Context, q Query) ([]ForecastRecord, error)
	Count(ctx context.Context) (int, error)
}

// Preferences exposes the user's settings relevant to a sync cycle.
type Preferences interface {
	IsMetric() bool
	NotificationsEnabled() bool
	LastNotificationElapsed() time.Duration
	SaveNotificationTime(t time.Time) error
}

// Pusher sends a forecast summary to the companion device.
type Pusher interface {
	Push(ctx context.Context, s Summary) error
}

// Notifier shows a notification to the user.
type Notifier interface {
	Show(ctx context.Context, n Notification) error
}

// Locator supplies the location to sync for. Preferences implementations may
// provide it; ok is false when the user has not chosen one.
type Locator interface {
	Location() (loc Location, ok bool)
}

// Recorder receives sync cycle outcomes for metrics.
type Recorder interface {
	SyncSucceeded(source string, written, rejected int, elapsed time.Duration)
	SyncFailed(source, stage string)
	SyncEmpty(source string)
	NotificationShown()
	SideEffectFailed(kind string)
}

type nopRecorder struct{}

func (nopRecorder) SyncSucceeded(string, int, int, time.Duration) {}
func (nopRecorder) SyncFailed(string, string)                     {}
func (nopRecorder) SyncEmpty(string)                              {}
func (nopRecorder) NotificationShown()                            {}
func (nopRecorder) SideEffectFailed(string)                       {}
