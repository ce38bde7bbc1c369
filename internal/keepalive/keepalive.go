// Package keepalive runs the recurring self-ping that prevents the hosting
// platform from idling the service. The ping is suppressed while any feature
// request is in flight and stays inert until the webhook registration sequence
// has completed.
package keepalive

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/apirelay/featbot/internal/metrics"
)

// Pinger issues a lightweight GET against the service's own public URL on a
// recurring schedule. It implements the dispatch queue's Gate: Pause and
// Resume track an in-flight request counter and the ping only fires when the
// counter is zero and the pinger has been enabled.
type Pinger struct {
	scheduler gocron.Scheduler
	client    *http.Client
	url       string
	log       *slog.Logger

	inflight atomic.Int64
	enabled  atomic.Bool
}

// NewPinger creates a pinger targeting url every interval, with the given
// per-attempt timeout. The pinger starts disabled; call Enable once startup
// registration has finished.
func NewPinger(url string, interval, timeout time.Duration, log *slog.Logger) (*Pinger, error) {
	if log == nil {
		log = slog.Default()
	}

	p := &Pinger{
		client: &http.Client{Timeout: timeout},
		url:    url,
		log:    log.With("component", "keepalive"),
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	if _, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(p.tick),
		gocron.WithName("keepalive_ping"),
	); err != nil {
		return nil, fmt.Errorf("failed to schedule keep-alive job: %w", err)
	}

	p.scheduler = s
	return p, nil
}

// Start begins ticking. Ticks are no-ops until Enable is called.
func (p *Pinger) Start() {
	p.scheduler.Start()
	p.log.Info("keep-alive scheduler started", "url", p.url)
}

// Stop shuts the scheduler down, waiting for a running tick to finish.
func (p *Pinger) Stop() error {
	if err := p.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	return nil
}

// Enable arms the ping. Called once webhook registration has completed; in
// development mode it is never called and the pinger stays inert.
func (p *Pinger) Enable() {
	p.enabled.Store(true)
	p.log.Info("keep-alive ping enabled")
}

// Pause records one in-flight request. Idempotent in effect: the ping stays
// suppressed for as long as any request holds a slot.
func (p *Pinger) Pause() {
	p.inflight.Add(1)
}

// Resume releases one in-flight request. The ping becomes eligible again only
// once every overlapping request has resumed.
func (p *Pinger) Resume() {
	p.inflight.Add(-1)
}

// Active reports whether a tick would currently ping.
func (p *Pinger) Active() bool {
	return p.enabled.Load() && p.inflight.Load() == 0
}

func (p *Pinger) tick() {
	if !p.Active() {
		p.log.Debug("keep-alive tick skipped", "inflight", p.inflight.Load())
		return
	}
	p.ping(context.Background())
}

// ping is a single attempt; failures are swallowed.
func (p *Pinger) ping(ctx context.Context) {
	metrics.KeepAlivePings.Inc()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		p.log.Debug("keep-alive request build failed", "error", err)
		return
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Debug("keep-alive ping failed", "error", err)
		return
	}
	resp.Body.Close()
	p.log.Debug("keep-alive ping sent", "status", resp.StatusCode)
}
