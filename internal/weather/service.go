package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/forecast-cache/internal/units"
)

// DefaultNotifyInterval is the minimum time between two forecast notifications.
const DefaultNotifyInterval = 24 * time.Hour

// ServiceConfig holds the collaborators and settings of a Service.
// Prefs, Pusher, Notifier and Recorder are optional.
type ServiceConfig struct {
	AppName        string
	NotifyInterval time.Duration
	Location       Location

	Prefs    Preferences
	Pusher   Pusher
	Notifier Notifier
	Recorder Recorder
}

// SyncResult describes one sync cycle.
type SyncResult struct {
	CycleID  string        `json:"cycleId"`
	Source   string        `json:"source"`
	Fetched  int           `json:"fetched"`
	Written  int           `json:"written"`
	Rejected int           `json:"rejected"`
	NoData   bool          `json:"noData"`
	Notified bool          `json:"notified"`
	Pushed   bool          `json:"pushed"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Service runs sync cycles: fetch, validate, commit, then notify and push.
type Service struct {
	mu sync.Mutex

	store  Store
	reader *Reader
	source Source
	cfg    ServiceConfig

	now func() time.Time
}

// NewService creates a new Service.
func NewService(store Store, reader *Reader, source Source, cfg ServiceConfig) *Service {
	if cfg.NotifyInterval <= 0 {
		cfg.NotifyInterval = DefaultNotifyInterval
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	return &Service{
		store:  store,
		reader: reader,
		source: source,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Reader returns the route reader the service reads day zero through.
func (s *Service) Reader() *Reader {
	return s.reader
}

// Location returns the location the next cycle will fetch.
func (s *Service) Location() Location {
	if l, ok := s.cfg.Prefs.(Locator); ok {
		if loc, ok := l.Location(); ok {
			return loc
		}
	}
	return s.cfg.Location
}

// Sync runs one cycle. Cycles never overlap: a second caller waits for the
// running one to finish.
//
// Fetch and parse failures abort the cycle before the store is touched.
// An empty batch, or one in which every record is rejected, leaves the store
// as it is. Notification and push failures are logged and never fail the cycle.
func (s *Service) Sync(ctx context.Context) (SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := SyncResult{CycleID: uuid.NewString()}
	if s.source == nil {
		log.Printf("ERROR: sync %s: no forecast source configured", res.CycleID)
		return res, ErrNoSource
	}

	started := s.now()
	res.Source = s.source.Name()
	loc := s.Location()

	log.Printf("DEBUG: sync %s: fetching forecast from %s for %s", res.CycleID, res.Source, loc.Key())

	payload, err := s.source.Fetch(ctx, loc)
	if err != nil {
		log.Printf("ERROR: sync %s: fetch from %s failed for %s: %v", res.CycleID, res.Source, loc.Key(), err)
		s.cfg.Recorder.SyncFailed(res.Source, "fetch")
		return res, &SyncFetchError{Source: res.Source, Err: err}
	}

	recs, err := s.source.Parse(payload)
	if err != nil {
		log.Printf("ERROR: sync %s: %s payload could not be parsed: %v", res.CycleID, res.Source, err)
		s.cfg.Recorder.SyncFailed(res.Source, "parse")
		return res, &SyncParseError{Source: res.Source, Err: err}
	}

	res.Fetched = len(recs)
	if len(recs) == 0 {
		res.NoData = true
		res.Elapsed = s.now().Sub(started)
		log.Printf("INFO: sync %s: %s returned no forecast for %s; keeping cached data", res.CycleID, res.Source, loc.Key())
		s.cfg.Recorder.SyncEmpty(res.Source)
		return res, nil
	}

	written, err := s.store.Replace(ctx, recs)
	if err != nil {
		var cv *ConstraintViolation
		if !errors.As(err, &cv) {
			log.Printf("ERROR: sync %s: commit failed: %v", res.CycleID, err)
			s.cfg.Recorder.SyncFailed(res.Source, "commit")
			return res, fmt.Errorf("commit forecast: %w", err)
		}
		log.Printf("ERROR: sync %s: %d of %d records rejected: %v", res.CycleID, len(recs)-written, len(recs), err)
	}
	res.Written = written
	res.Rejected = len(recs) - written

	if written == 0 {
		res.NoData = true
		res.Elapsed = s.now().Sub(started)
		log.Printf("INFO: sync %s: no usable records from %s for %s; keeping cached data", res.CycleID, res.Source, loc.Key())
		s.cfg.Recorder.SyncEmpty(res.Source)
		return res, nil
	}

	log.Printf("INFO: sync %s: stored %d days from %s for %s", res.CycleID, written, res.Source, loc.Key())

	if recs[0].Day != nil {
		res.Notified, res.Pushed = s.publish(ctx, res.CycleID, *recs[0].Day)
	}

	res.Elapsed = s.now().Sub(started)
	s.cfg.Recorder.SyncSucceeded(res.Source, res.Written, res.Rejected, res.Elapsed)
	return res, nil
}

// publish notifies the user and pushes to the companion for day zero.
// Both run after the commit and outside any store lock.
func (s *Service) publish(ctx context.Context, cycleID string, day int64) (notified, pushed bool) {
	today, err := s.reader.Day(ctx, day, []Column{ColumnDay, ColumnConditionCode, ColumnMinTemp, ColumnMaxTemp})
	if err != nil {
		log.Printf("ERROR: sync %s: day zero %d not readable after commit: %v", cycleID, day, err)
		return false, false
	}

	sys := units.FromMetric(s.cfg.Prefs == nil || s.cfg.Prefs.IsMetric())

	if s.shouldNotify() {
		if err := s.notify(ctx, today, sys); err != nil {
			log.Printf("ERROR: sync %s: %v", cycleID, err)
			s.cfg.Recorder.SideEffectFailed("notify")
		} else {
			notified = true
			s.cfg.Recorder.NotificationShown()
		}
	}

	if s.cfg.Pusher != nil {
		if err := s.push(ctx, today, sys); err != nil {
			log.Printf("ERROR: sync %s: %v", cycleID, err)
			s.cfg.Recorder.SideEffectFailed("push")
		} else {
			pushed = true
		}
	}
	return notified, pushed
}

func (s *Service) shouldNotify() bool {
	if s.cfg.Prefs == nil || s.cfg.Notifier == nil {
		return false
	}
	if !s.cfg.Prefs.NotificationsEnabled() {
		return false
	}
	return s.cfg.Prefs.LastNotificationElapsed() >= s.cfg.NotifyInterval
}

func (s *Service) notify(ctx context.Context, today ForecastRecord, sys units.System) error {
	n := BuildNotification(s.cfg.AppName, today, sys, s.reader.Matcher().DayPath(*today.Day))
	if err := s.cfg.Notifier.Show(ctx, n); err != nil {
		return &NotifyError{Err: err}
	}
	if err := s.cfg.Prefs.SaveNotificationTime(s.now()); err != nil {
		return &NotifyError{Err: fmt.Errorf("save notification time: %w", err)}
	}
	return nil
}

func (s *Service) push(ctx context.Context, today ForecastRecord, sys units.System) error {
	summary := Summary{
		MaxTemp:       units.WholeTemperature(*today.MaxTemp, sys),
		MinTemp:       units.WholeTemperature(*today.MinTemp, sys),
		ConditionCode: *today.ConditionCode,
		Timestamp:     s.now().UnixMilli(),
	}
	if err := s.cfg.Pusher.Push(ctx, summary); err != nil {
		return &PushError{Err: err}
	}
	return nil
}

// BuildNotification renders the forecast notification for one stored day.
// rec must carry the condition code and both temperatures.
func BuildNotification(title string, rec ForecastRecord, sys units.System, deepLink string) Notification {
	return Notification{
		Title: title,
		Text: fmt.Sprintf("Forecast: %s - High: %s Low: %s",
			Describe(*rec.ConditionCode),
			units.FormatTemperature(*rec.MaxTemp, sys),
			units.FormatTemperature(*rec.MinTemp, sys),
		),
		DeepLink: deepLink,
	}
}
