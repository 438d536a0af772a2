// Package lifecycle sequences a process's ordered bring-up and teardown:
// ambient infra first (config, logging, metrics, middleware), then the
// tier drivers and background loops a concrete deployment wires in, then
// the HTTP router — and the exact reverse on shutdown, draining every
// backfill pool and background loop before any driver disconnects. Built
// around a staged Register/Init-then-serve shape rather than a single
// linear function, generalized to a caller-supplied set of connectors and
// loops rather than a fixed, hardcoded roster of provider packages, since
// this framework has no fixed roster of tiers — a deployment wires
// whichever database/cache/search/identity backends its schemas need.
package lifecycle

import (
	"context"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/tierforge/tierserve/config"
	"github.com/tierforge/tierserve/logger"
	pkgzap "github.com/tierforge/tierserve/logger/zap"
	"github.com/tierforge/tierserve/metrics"
	"github.com/tierforge/tierserve/middleware"
	"github.com/tierforge/tierserve/policy"
	"github.com/tierforge/tierserve/router"
	"github.com/tierforge/tierserve/tier"
)

// Connector is the narrow surface every schema.*Driver and schema.AuthDriver
// satisfies regardless of their entity type parameter — Connect/Disconnect/
// Health needs no M, so a *Sequencer can track them without becoming
// generic itself.
type Connector interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Health() error
}

// Sequencer owns one process's ambient bring-up, the drivers and
// background loops a deployment registers against it, and their ordered
// teardown. Zero value is not usable; construct with New.
type Sequencer struct {
	mu sync.Mutex

	drivers    []Connector
	backfills  []*tier.BackfillPool
	refreshers []*policy.Refresher

	refreshCtx    context.Context
	refreshCancel context.CancelFunc
}

func New() *Sequencer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sequencer{refreshCtx: ctx, refreshCancel: cancel}
}

// Bootstrap brings up the ambient layer every other step depends on:
// config, structured logging (replacing zap's globals so third-party
// libraries land in the same sink), process metrics, and the gin
// middleware chain's route-parameter manager.
func (s *Sequencer) Bootstrap() error {
	for _, fn := range []func() error{
		config.Init,
		pkgzap.Init,
		metrics.Init,
		middleware.Init,
	} {
		if err := s.runTimed(fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequencer) runTimed(fn func() error) error {
	start := time.Now()
	err := fn()
	logger.Lifecycle.Debugw("lifecycle step executed", "step", funcName(fn), "cost", time.Since(start), "error", err)
	return err
}

func funcName(fn func() error) string {
	pc := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if pc == nil {
		return "<unknown>"
	}
	name := pc.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// ConnectDrivers connects every tier/auth driver supplied, in the order
// given — the caller is expected to pass database drivers ahead of
// search ahead of cache, mirroring schema.Register's own Layer
// consultation order, though Sequencer itself only tracks order for
// Shutdown's reverse drain. A failed Connect aborts before connecting
// the remainder; whatever already connected is still tracked for
// Shutdown to unwind.
func (s *Sequencer) ConnectDrivers(ctx context.Context, drivers ...Connector) error {
	for _, d := range drivers {
		if err := d.Connect(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		s.drivers = append(s.drivers, d)
		s.mu.Unlock()
	}
	return nil
}

// TrackBackfill registers a coordinator's backfill pool so Shutdown
// drains it before any driver disconnects — an in-flight repair write
// must never race a closed connection.
func (s *Sequencer) TrackBackfill(pools ...*tier.BackfillPool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backfills = append(s.backfills, pools...)
}

// TrackRefresher starts r against the Sequencer's shared background
// context and registers it so Shutdown cancels and waits for both its
// loops ahead of driver disconnect. Every refresher a Sequencer owns
// shares one cancellation so Shutdown stops them together rather than
// hunting down each caller's own context.
func (s *Sequencer) TrackRefresher(r *policy.Refresher) {
	r.Start(s.refreshCtx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshers = append(s.refreshers, r)
}

// Serve builds the router engine, lets configure mount schemas and
// health routes against it via router.Register/RegisterHealth, then
// blocks on router.Run until Shutdown stops it. Deliberately has no
// signal handling of its own — callers own their process-signal wiring
// so Sequencer stays embeddable in a CLI command or a test harness alike.
func (s *Sequencer) Serve(configure func()) error {
	router.Init()
	if configure != nil {
		configure()
	}
	return router.Run()
}

// Shutdown unwinds bring-up in reverse: cancel and wait for every
// tracked policy refresher, drain every tracked backfill pool, stop the
// HTTP server, then disconnect every tracked driver in the reverse of
// its connect order. Schema registration has no teardown counterpart —
// registered schemas simply stop receiving traffic once the router has
// stopped.
func (s *Sequencer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	refreshers := append([]*policy.Refresher(nil), s.refreshers...)
	backfills := append([]*tier.BackfillPool(nil), s.backfills...)
	drivers := append([]Connector(nil), s.drivers...)
	s.mu.Unlock()

	if len(refreshers) > 0 {
		s.refreshCancel()
		for _, r := range refreshers {
			r.Wait()
		}
	}

	for _, p := range backfills {
		p.Stop()
	}

	err := router.Stop(ctx)

	for i := len(drivers) - 1; i >= 0; i-- {
		if dErr := drivers[i].Disconnect(ctx); dErr != nil {
			logger.Lifecycle.Warnw("driver disconnect failed", "error", dErr)
			if err == nil {
				err = dErr
			}
		}
	}

	config.Clean()
	pkgzap.Clean()
	return err
}
