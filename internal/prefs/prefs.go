// Package prefs keeps the user's preferences in a YAML file.
//
// The file is reloaded when it changes on disk, so a user can edit it while
// the service runs. Writes go through a temporary file and a rename.
package prefs

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/forecast-cache/internal/weather"
)

// LocationPrefs is the location the user chose.
type LocationPrefs struct {
	City    string   `yaml:"city,omitempty"`
	Country string   `yaml:"country,omitempty"`
	Lat     *float64 `yaml:"lat,omitempty"`
	Lon     *float64 `yaml:"lon,omitempty"`
}

// Coordinates are the coordinates a provider reported for the chosen location.
type Coordinates struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// Preferences is the file content.
type Preferences struct {
	Units            string        `yaml:"units,omitempty"` // metric (default) or imperial
	Notifications    *bool         `yaml:"notifications,omitempty"`
	LastNotification int64         `yaml:"last_notification_ms,omitempty"`
	Location         LocationPrefs `yaml:"location,omitempty"`
	Reported         *Coordinates  `yaml:"reported_coordinates,omitempty"`
}

// Store serves preferences from memory and persists changes to path.
// An empty path keeps everything in memory.
type Store struct {
	path string

	mu   sync.RWMutex
	data Preferences

	now func() time.Time

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

var _ weather.Preferences = (*Store)(nil)
var _ weather.Locator = (*Store)(nil)

// Load reads the preferences at path. A missing file yields defaults.
func Load(path string) (*Store, error) {
	s := &Store{path: path, now: time.Now}
	if path == "" {
		return s, nil
	}

	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	s.data = data
	return s, nil
}

func readFile(path string) (Preferences, error) {
	var p Preferences
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read preferences: %w", err)
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("parse preferences %s: %w", path, err)
	}
	if p.Units != "" && p.Units != "metric" && p.Units != "imperial" {
		return p, fmt.Errorf("parse preferences %s: unknown units %q", path, p.Units)
	}
	return p, nil
}

// Snapshot returns a copy of the current preferences.
func (s *Store) Snapshot() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// IsMetric reports whether temperatures are shown in Celsius.
func (s *Store) IsMetric() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Units != "imperial"
}

// NotificationsEnabled defaults to true.
func (s *Store) NotificationsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Notifications == nil || *s.data.Notifications
}

// LastNotificationElapsed returns the time since the last notification,
// or the maximum duration if none was ever shown.
func (s *Store) LastNotificationElapsed() time.Duration {
	s.mu.RLock()
	last := s.data.LastNotification
	s.mu.RUnlock()

	if last == 0 {
		return time.Duration(math.MaxInt64)
	}
	return s.now().Sub(time.UnixMilli(last))
}

// SaveNotificationTime records when a notification was shown.
func (s *Store) SaveNotificationTime(t time.Time) error {
	return s.update(func(p *Preferences) {
		p.LastNotification = t.UnixMilli()
	})
}

// SaveCoordinates records the coordinates a provider reported for the location.
func (s *Store) SaveCoordinates(lat, lon float64) error {
	s.mu.RLock()
	same := s.data.Reported != nil && s.data.Reported.Lat == lat && s.data.Reported.Lon == lon
	s.mu.RUnlock()
	if same {
		return nil
	}
	return s.update(func(p *Preferences) {
		p.Reported = &Coordinates{Lat: lat, Lon: lon}
	})
}

// SetUnits switches between "metric" and "imperial".
func (s *Store) SetUnits(units string) error {
	if units != "metric" && units != "imperial" {
		return fmt.Errorf("unknown units %q", units)
	}
	return s.update(func(p *Preferences) { p.Units = units })
}

// SetNotifications enables or disables forecast notifications.
func (s *Store) SetNotifications(enabled bool) error {
	return s.update(func(p *Preferences) { p.Notifications = &enabled })
}

// Location returns the user's chosen location, if any.
func (s *Store) Location() (weather.Location, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l := s.data.Location
	loc := weather.Location{City: l.City, Country: l.Country, Lat: l.Lat, Lon: l.Lon}
	if loc.City == "" && !loc.HasCoordinates() {
		return weather.Location{}, false
	}
	return loc, true
}

func (s *Store) update(fn func(p *Preferences)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.data)
	if s.path == "" {
		return nil
	}
	return writeFile(s.path, s.data)
}

func writeFile(path string, p Preferences) error {
	raw, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".prefs-*.yaml")
	if err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}

// Watch reloads the file whenever it changes. The directory is watched
// rather than the file, since editors and writeFile replace it by rename.
func (s *Store) Watch() error {
	if s.path == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(s.path), err)
	}

	s.watcher = w
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.processEvents()
	return nil
}

// Close stops watching.
func (s *Store) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	err := s.watcher.Close()
	s.wg.Wait()
	s.watcher = nil
	return err
}

func (s *Store) processEvents() {
	defer s.wg.Done()

	target := filepath.Clean(s.path)
	for {
		select {
		case <-s.done:
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.reload()

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("ERROR: prefs: watcher: %v", err)
		}
	}
}

func (s *Store) reload() {
	data, err := readFile(s.path)
	if err != nil {
		// keep the last good preferences
		log.Printf("ERROR: prefs: reload %s: %v", s.path, err)
		return
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	log.Printf("INFO: prefs: reloaded %s", s.path)
}
