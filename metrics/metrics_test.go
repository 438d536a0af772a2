package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInitRegistersTierAndAuthGauges(t *testing.T) {
	require.NoError(t, Init())

	Coordinator.ObserveProbe("cache", "mod.widget.1.0", true)
	Coordinator.ObserveProbe("database", "mod.widget.1.0", false)
	Coordinator.ObserveFallback("search", "database", "mod.widget.1.0")

	require.Equal(t, float64(1), testutil.ToFloat64(TierProbeTotal.WithLabelValues("cache", "hit")))
	require.Equal(t, float64(1), testutil.ToFloat64(TierProbeTotal.WithLabelValues("database", "miss")))
	require.Equal(t, float64(1), testutil.ToFloat64(TierFallbackTotal.WithLabelValues("search", "database")))

	AuthInfoMemoSize.Set(3)
	require.Equal(t, float64(3), testutil.ToFloat64(AuthInfoMemoSize))
}
