// Package queue provides the bounded-concurrency admission gate every inbound
// feature call passes through before its provider runs. Outbound calls to the
// rate-limited third parties are serialized to at most N in-flight executions;
// waiters are unbounded, so backpressure surfaces only as client latency.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/semaphore"
)

// Gate is paused while any admitted task is in flight and resumed once none
// are. The keep-alive scheduler implements it with an in-flight counter, so
// overlapping tasks cannot strand it in the resumed state.
type Gate interface {
	Pause()
	Resume()
}

// nopGate is used when no gate is wired, e.g. in tests.
type nopGate struct{}

func (nopGate) Pause()  {}
func (nopGate) Resume() {}

// Dispatcher admits tasks up to a fixed concurrency limit.
type Dispatcher struct {
	sem      *semaphore.Weighted
	gate     Gate
	delayMin time.Duration
	delayMax time.Duration
	log      *slog.Logger
}

// NewDispatcher creates a dispatcher with the given concurrency limit. The
// delay bounds set the randomized throttle applied inside each admitted slot
// before the task runs; pass zeros to disable it.
func NewDispatcher(limit int64, gate Gate, delayMin, delayMax time.Duration, log *slog.Logger) *Dispatcher {
	if gate == nil {
		gate = nopGate{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		sem:      semaphore.NewWeighted(limit),
		gate:     gate,
		delayMin: delayMin,
		delayMax: delayMax,
		log:      log.With("component", "dispatch_queue"),
	}
}

// Do waits for a free slot, pauses the gate, applies the throttle delay, and
// runs fn. The slot is released and the gate resumed unconditionally once fn
// returns. Do returns only after fn has finished; the only error is admission
// failure through ctx cancellation.
func (d *Dispatcher) Do(ctx context.Context, fn func(context.Context)) error {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("queue admission failed: %w", err)
	}

	d.gate.Pause()
	defer func() {
		d.gate.Resume()
		d.sem.Release(1)
	}()

	d.throttle()
	fn(ctx)
	return nil
}

// throttle sleeps a random duration in [delayMin, delayMax] to spread burst
// traffic before the external call is attempted.
func (d *Dispatcher) throttle() {
	if d.delayMax <= 0 {
		return
	}
	delay := d.delayMin
	if span := d.delayMax - d.delayMin; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span) + 1))
	}
	time.Sleep(delay)
}
