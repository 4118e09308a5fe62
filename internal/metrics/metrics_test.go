package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.OfferCreated()
	m.CreationAborted("tefORACLE_FAILED")
	m.ObserveOracle(time.Second)
	m.SetOutboxDepth(3)
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.OfferCreated()
	m.OfferCreated()
	m.Notification("accepted")
	m.TransferFailed("asset")
	m.SetPending(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OffersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransferFailures.WithLabelValues("asset")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.PendingCreations))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
