// Package netmon observes connectivity to the remote backend. It probes the
// backend's health endpoint on an interval and publishes transition events
// (offline->online, online->offline) on a channel, so consumers get a
// stream to select on instead of registering callbacks.
package netmon

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event is a connectivity transition.
type Event struct {
	Online bool
	At     time.Time
}

// Monitor probes the remote and reports reachability transitions.
type Monitor struct {
	url      string
	interval time.Duration
	client   *http.Client
	log      zerolog.Logger

	mu     sync.Mutex
	online bool
	known  bool // false until the first probe completes

	events chan Event
}

// New constructs a Monitor probing healthURL every interval. The probe
// client's timeout is bounded by the interval so probes never pile up.
func New(healthURL string, interval time.Duration, log zerolog.Logger) *Monitor {
	timeout := interval / 2
	if timeout < time.Second {
		timeout = time.Second
	}
	return &Monitor{
		url:      healthURL,
		interval: interval,
		client:   &http.Client{Timeout: timeout},
		log:      log.With().Str("component", "netmon").Logger(),
		events:   make(chan Event, 8),
	}
}

// Events returns the transition stream. Events are dropped, not blocked on,
// when the consumer lags; the current state remains queryable via Online.
func (m *Monitor) Events() <-chan Event { return m.events }

// Online reports the last observed reachability. Before the first probe it
// reports false.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Run probes until ctx is cancelled. The first probe fires immediately so
// consumers learn the initial state without waiting a full interval.
func (m *Monitor) Run(ctx context.Context) {
	t := time.NewTicker(m.interval)
	defer t.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		m.observe(false)
		return
	}
	resp, err := m.client.Do(req)
	if err != nil {
		m.observe(false)
		return
	}
	resp.Body.Close()
	m.observe(resp.StatusCode < 500)
}

// observe records the probe result and emits an event when the state
// changed (or on the very first observation).
func (m *Monitor) observe(online bool) {
	m.mu.Lock()
	changed := !m.known || m.online != online
	m.known = true
	m.online = online
	m.mu.Unlock()

	if !changed {
		return
	}
	m.log.Info().Bool("online", online).Msg("connectivity changed")
	select {
	case m.events <- Event{Online: online, At: time.Now().UTC()}:
	default:
		// Consumer is behind; state is still queryable via Online().
	}
}
