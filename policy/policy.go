// Package policy runs the two background loops spec.md §4.6 calls the
// Policy Refresher: a snapshot loop that pushes registered Policy rows
// into every AuthDriver (and backfills cache + search with the same
// set), and an invalidation loop that evicts the auth gate's in-process
// AuthInfo memo on a fixed interval. Both loops are started once at
// lifecycle bring-up and run until the process shuts down.
package policy

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tierforge/tierserve/logger"
	"github.com/tierforge/tierserve/schema"
)

// Source lists every registered Policy row, however the caller's tier
// Coordinator is wired. Decoupling the refresher from a concrete
// Coordinator[M] instantiation keeps this package generic-free and easy
// to fake in tests.
type Source interface {
	ListPolicies(ctx context.Context) ([]schema.Policy, error)
}

// Sink receives a policy snapshot. schema.AuthDriver satisfies this
// directly; Refresher also accepts any number of additional sinks so the
// same snapshot can backfill cache and search alongside the primary
// AuthDriver.
type Sink interface {
	RefreshRBACs(ctx context.Context, policies []schema.Policy) error
}

// Invalidator evicts a process-local AuthInfo memo. *authgate.Gate
// satisfies this.
type Invalidator interface {
	Invalidate()
}

// MemoSizer optionally reports an Invalidator's current memo entry count.
// *authgate.Gate satisfies this too, letting the invalidation loop sample
// memo pressure into MemoGauge immediately before each eviction sweep.
type MemoSizer interface {
	MemoSize() int
}

// Refresher owns the two cooperative background loops. Zero value is not
// usable; construct with New.
type Refresher struct {
	Source      Source
	Sinks       []Sink
	Invalidator Invalidator

	// MemoGauge, if set, is sampled with the Invalidator's memo size on
	// every invalidation tick, ahead of the sweep that clears it.
	MemoGauge prometheus.Gauge

	SnapshotInterval   time.Duration
	InvalidateInterval time.Duration

	wg sync.WaitGroup
}

func New(source Source, invalidator Invalidator, snapshotInterval, invalidateInterval time.Duration, sinks ...Sink) *Refresher {
	return &Refresher{
		Source:             source,
		Sinks:              sinks,
		Invalidator:        invalidator,
		SnapshotInterval:   snapshotInterval,
		InvalidateInterval: invalidateInterval,
	}
}

// Start launches both loops in their own goroutine. They run until ctx is
// canceled; Wait blocks until both have returned.
func (r *Refresher) Start(ctx context.Context) {
	r.wg.Add(2)
	go r.runSnapshotLoop(ctx)
	go r.runInvalidateLoop(ctx)
}

// Wait blocks until both loops have exited, for the lifecycle sequencer's
// ordered shutdown.
func (r *Refresher) Wait() {
	r.wg.Wait()
}

func (r *Refresher) runSnapshotLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Policy.Info("policy snapshot loop exiting")
			return
		case <-ticker.C:
			r.snapshotOnce(ctx)
		}
	}
}

func (r *Refresher) snapshotOnce(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Policy.Errorw("policy snapshot loop panicked, continuing", "recovered", rec)
		}
	}()

	policies, err := r.Source.ListPolicies(ctx)
	if err != nil {
		logger.Policy.Warnw("policy snapshot fetch failed", "error", err)
		return
	}
	if len(policies) == 0 {
		return
	}

	for _, sink := range r.Sinks {
		if err := sink.RefreshRBACs(ctx, policies); err != nil {
			logger.Policy.Warnw("policy snapshot push failed", "error", err)
		}
	}
}

func (r *Refresher) runInvalidateLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.InvalidateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Policy.Info("authinfo invalidation loop exiting")
			return
		case <-ticker.C:
			r.invalidateOnce()
		}
	}
}

func (r *Refresher) invalidateOnce() {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Policy.Errorw("authinfo invalidation loop panicked, continuing", "recovered", rec)
		}
	}()
	if r.MemoGauge != nil {
		if sizer, ok := r.Invalidator.(MemoSizer); ok {
			r.MemoGauge.Set(float64(sizer.MemoSize()))
		}
	}
	r.Invalidator.Invalidate()
}
