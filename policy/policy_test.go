package policy

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/tierforge/tierserve/logger"
	pkgzap "github.com/tierforge/tierserve/logger/zap"
	"github.com/tierforge/tierserve/schema"
)

func init() {
	logger.Policy = pkgzap.New("/dev/stdout")
}

type fakeSource struct {
	policies []schema.Policy
	calls    int32
}

func (f *fakeSource) ListPolicies(context.Context) ([]schema.Policy, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.policies, nil
}

type fakeSink struct {
	pushed atomic.Int32
	last   []schema.Policy
}

func (f *fakeSink) RefreshRBACs(_ context.Context, policies []schema.Policy) error {
	f.pushed.Add(1)
	f.last = policies
	return nil
}

type fakeInvalidator struct {
	count atomic.Int32
	size  int
}

func (f *fakeInvalidator) Invalidate() { f.count.Add(1) }
func (f *fakeInvalidator) MemoSize() int { return f.size }

func TestRefresherPushesNonEmptySnapshotToAllSinks(t *testing.T) {
	source := &fakeSource{policies: []schema.Policy{{Name: "mod.X", ReadAllowed: []string{"alice"}}}}
	sinkA, sinkB := &fakeSink{}, &fakeSink{}
	inv := &fakeInvalidator{}

	r := New(source, inv, 20*time.Millisecond, time.Hour, sinkA, sinkB)
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)

	time.Sleep(60 * time.Millisecond)
	cancel()
	r.Wait()

	assert.GreaterOrEqual(t, sinkA.pushed.Load(), int32(1))
	assert.GreaterOrEqual(t, sinkB.pushed.Load(), int32(1))
	assert.Equal(t, "mod.X", sinkA.last[0].Name)
}

func TestRefresherSkipsEmptySnapshot(t *testing.T) {
	source := &fakeSource{policies: nil}
	sink := &fakeSink{}
	inv := &fakeInvalidator{}

	r := New(source, inv, 15*time.Millisecond, time.Hour, sink)
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)

	time.Sleep(50 * time.Millisecond)
	cancel()
	r.Wait()

	assert.GreaterOrEqual(t, source.calls, int32(2))
	assert.Equal(t, int32(0), sink.pushed.Load())
}

func TestRefresherInvalidatesOnInterval(t *testing.T) {
	source := &fakeSource{}
	inv := &fakeInvalidator{}

	r := New(source, inv, time.Hour, 15*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)

	time.Sleep(50 * time.Millisecond)
	cancel()
	r.Wait()

	assert.GreaterOrEqual(t, inv.count.Load(), int32(2))
}

func TestRefresherSamplesMemoGaugeBeforeInvalidating(t *testing.T) {
	source := &fakeSource{}
	inv := &fakeInvalidator{size: 7}
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_authinfo_memo_size"})

	r := New(source, inv, time.Hour, 15*time.Millisecond)
	r.MemoGauge = gauge
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)

	time.Sleep(50 * time.Millisecond)
	cancel()
	r.Wait()

	assert.GreaterOrEqual(t, inv.count.Load(), int32(2))
	var m dto.Metric
	_ = gauge.Write(&m)
	assert.Equal(t, float64(7), m.GetGauge().GetValue())
}

func TestRefresherExitsOnContextCancel(t *testing.T) {
	source := &fakeSource{}
	inv := &fakeInvalidator{}

	r := New(source, inv, 5*time.Millisecond, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not exit after context cancel")
	}
}
