package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"framewire/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusCollector_Samples(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.ObserveSample(domain.RoleProducer, domain.SizeSample(100, 400))
	c.ObserveSample(domain.RoleProducer, domain.SizeSample(50, 200))
	c.ObserveSample(domain.RoleConsumer, domain.LatencySample(0.02))

	assert.Equal(t, 150.0, testutil.ToFloat64(c.payloadBytes.WithLabelValues("producer", "compressed")))
	assert.Equal(t, 600.0, testutil.ToFloat64(c.payloadBytes.WithLabelValues("producer", "raw")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.latency))
}

func TestPrometheusCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.ObserveSessionStarted(domain.RolePeer)
	c.ObserveFrameSent(time.Millisecond)
	c.ObserveFrameSent(time.Millisecond)
	c.ObserveFrameReceived()
	c.ObserveFrameDropped("decode")
	c.ObserveFrameDropped("decode")
	c.ObserveFrameDropped("send")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.sessionsActive.WithLabelValues("peer")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.framesSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.framesReceived))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.framesDropped.WithLabelValues("decode")))

	c.ObserveSessionStopped(domain.RolePeer)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.sessionsActive.WithLabelValues("peer")))
}

func TestPrometheusCollector_SeparateRegistries(t *testing.T) {
	// two collectors must not collide when given their own registries
	NewPrometheusCollector(prometheus.NewRegistry())
	NewPrometheusCollector(prometheus.NewRegistry())
}

func TestHealthChecker(t *testing.T) {
	h := NewHealthChecker()
	h.AddPingCheck("ok", func(ctx context.Context) error { return nil }, time.Second)

	status := h.CheckAll(context.Background())
	assert.True(t, status.Healthy())
	assert.Equal(t, "healthy", status.Checks["ok"])

	h.AddPingCheck("redis", func(ctx context.Context) error { return errors.New("connection refused") }, time.Second)
	status = h.CheckAll(context.Background())
	assert.False(t, status.Healthy())
	assert.Equal(t, "connection refused", status.Checks["redis"])
}

func TestHealthChecker_Timeout(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("slow", func(ctx context.Context) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	}, 20*time.Millisecond)

	status := h.CheckAll(context.Background())
	assert.False(t, status.Healthy())
}
