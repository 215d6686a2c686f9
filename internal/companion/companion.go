// Package companion talks to the companion device over NATS.
//
// The service publishes a forecast summary after every sync, and the device
// announces itself on an "installed" subject, which triggers an immediate sync.
package companion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/i474232898/forecast-cache/internal/weather"
)

const (
	DefaultPushSubject      = "forecast.companion.summary"
	DefaultInstalledSubject = "forecast.companion.installed"
)

// Publisher is the part of *nats.Conn the pusher needs.
type Publisher interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// Pusher publishes forecast summaries for the companion device.
type Pusher struct {
	pub     Publisher
	subject string
}

var _ weather.Pusher = (*Pusher)(nil)

func NewPusher(pub Publisher, subject string) *Pusher {
	if subject == "" {
		subject = DefaultPushSubject
	}
	return &Pusher{pub: pub, subject: subject}
}

// Push publishes s and waits for the server to acknowledge it.
func (p *Pusher) Push(ctx context.Context, s weather.Summary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := p.pub.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	if err := p.pub.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", p.subject, err)
	}
	log.Printf("DEBUG: companion: pushed summary to %s", p.subject)
	return nil
}

// Connect dials the NATS server and keeps reconnecting for the life of the process.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("ERROR: companion: disconnected from NATS: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Printf("INFO: companion: reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS %s: %w", url, err)
	}
	return nc, nil
}

// Syncer runs a sync cycle.
type Syncer interface {
	Sync(ctx context.Context) (weather.SyncResult, error)
}

// InstalledHandler returns a handler that runs one sync when the companion
// announces it was installed, so the device gets data right away.
func InstalledHandler(syncer Syncer, timeout time.Duration) nats.MsgHandler {
	return func(m *nats.Msg) {
		log.Printf("INFO: companion: installed message on %s; syncing", m.Subject)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if _, err := syncer.Sync(ctx); err != nil {
			log.Printf("ERROR: companion: sync after install failed: %v", err)
		}
	}
}

// ListenInstalled subscribes the installed handler on subject.
func ListenInstalled(nc *nats.Conn, subject string, syncer Syncer, timeout time.Duration) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultInstalledSubject
	}
	sub, err := nc.Subscribe(subject, InstalledHandler(syncer, timeout))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	log.Printf("INFO: companion: listening for installs on %s", subject)
	return sub, nil
}
