package lifecycle

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tierforge/tierserve/logger"
	pkgzap "github.com/tierforge/tierserve/logger/zap"
	"github.com/tierforge/tierserve/policy"
	"github.com/tierforge/tierserve/schema"
	"github.com/tierforge/tierserve/tier"
	"go.uber.org/zap"
)

func init() {
	logger.Lifecycle = pkgzap.New("/dev/stdout")
	logger.Policy = pkgzap.New("/dev/stdout")
}

type fakeConnector struct {
	name       string
	order      *[]string
	connectErr error
}

func (f *fakeConnector) Connect(context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	*f.order = append(*f.order, "connect:"+f.name)
	return nil
}

func (f *fakeConnector) Disconnect(context.Context) error {
	*f.order = append(*f.order, "disconnect:"+f.name)
	return nil
}

func (f *fakeConnector) Health() error { return nil }

func TestConnectDriversTracksInOrder(t *testing.T) {
	var order []string
	db := &fakeConnector{name: "database", order: &order}
	cache := &fakeConnector{name: "cache", order: &order}

	s := New()
	require.NoError(t, s.ConnectDrivers(context.Background(), db, cache))
	assert.Equal(t, []string{"connect:database", "connect:cache"}, order)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, []string{
		"connect:database", "connect:cache",
		"disconnect:cache", "disconnect:database",
	}, order)
}

func TestConnectDriversStopsOnFirstError(t *testing.T) {
	var order []string
	boom := assert.AnError
	bad := &fakeConnector{name: "bad", order: &order, connectErr: boom}
	never := &fakeConnector{name: "never", order: &order}

	s := New()
	err := s.ConnectDrivers(context.Background(), bad, never)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, order)
}

type fakeSource struct{}

func (fakeSource) ListPolicies(context.Context) ([]schema.Policy, error) { return nil, nil }

type fakeInvalidator struct {
	count atomic.Int32
}

func (f *fakeInvalidator) Invalidate() { f.count.Add(1) }

func TestShutdownStopsRefresherAndDrainsBackfillBeforeDrivers(t *testing.T) {
	var order []string
	db := &fakeConnector{name: "database", order: &order}

	s := New()
	require.NoError(t, s.ConnectDrivers(context.Background(), db))

	pool := tier.NewBackfillPool(1, 4, zap.NewNop().Sugar())
	s.TrackBackfill(pool)

	inv := &fakeInvalidator{}
	r := policy.New(fakeSource{}, inv, time.Hour, 10*time.Millisecond)
	s.TrackRefresher(r)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, s.Shutdown(context.Background()))

	assert.GreaterOrEqual(t, inv.count.Load(), int32(2))
	assert.Equal(t, []string{"connect:database", "disconnect:database"}, order)
}
