package monitoring

import (
	"time"

	"framewire/internal/core/domain"
	"framewire/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector mirrors session events into Prometheus series.
type PrometheusCollector struct {
	sessionsActive *prometheus.GaugeVec

	framesSent     prometheus.Counter
	framesReceived prometheus.Counter
	framesDropped  *prometheus.CounterVec

	payloadBytes *prometheus.CounterVec

	latency      prometheus.Histogram
	sendDuration prometheus.Histogram
	payloadSize  *prometheus.HistogramVec
}

var _ ports.MetricsObserver = (*PrometheusCollector)(nil)

// NewPrometheusCollector registers the collector's series with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		sessionsActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "framewire_sessions_active",
			Help: "Number of sessions currently streaming",
		}, []string{"role"}),

		framesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "framewire_frames_sent_total",
			Help: "Frames transmitted by producer loops",
		}),

		framesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "framewire_frames_received_total",
			Help: "Frames decoded and delivered by consumer loops",
		}),

		framesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "framewire_frames_dropped_total",
			Help: "Frames or datagrams abandoned, by pipeline stage",
		}, []string{"stage"}),

		payloadBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "framewire_payload_bytes_total",
			Help: "Payload bytes before (raw) and after (compressed) the compression stage",
		}, []string{"role", "kind"}),

		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "framewire_frame_latency_seconds",
			Help:    "Producer send time to consumer receipt, as measured by the consumer clock",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		sendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "framewire_frame_send_duration_seconds",
			Help:    "Time spent handing the timestamp and data datagrams to the socket",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),

		payloadSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "framewire_payload_size_bytes",
			Help:    "Compressed payload size per frame",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 7),
		}, []string{"role"}),
	}
}

func (p *PrometheusCollector) ObserveSample(role domain.Role, sample domain.MetricSample) {
	if sample.LatencySeconds != nil && *sample.LatencySeconds >= 0 {
		p.latency.Observe(*sample.LatencySeconds)
	}
	if sample.CompressedBytes != nil {
		p.payloadBytes.WithLabelValues(string(role), "compressed").Add(float64(*sample.CompressedBytes))
		p.payloadSize.WithLabelValues(string(role)).Observe(float64(*sample.CompressedBytes))
	}
	if sample.RawEncodedBytes != nil {
		p.payloadBytes.WithLabelValues(string(role), "raw").Add(float64(*sample.RawEncodedBytes))
	}
}

func (p *PrometheusCollector) ObserveFrameSent(sendDuration time.Duration) {
	p.framesSent.Inc()
	p.sendDuration.Observe(sendDuration.Seconds())
}

func (p *PrometheusCollector) ObserveFrameReceived() {
	p.framesReceived.Inc()
}

func (p *PrometheusCollector) ObserveFrameDropped(stage string) {
	p.framesDropped.WithLabelValues(stage).Inc()
}

func (p *PrometheusCollector) ObserveSessionStarted(role domain.Role) {
	p.sessionsActive.WithLabelValues(string(role)).Inc()
}

func (p *PrometheusCollector) ObserveSessionStopped(role domain.Role) {
	p.sessionsActive.WithLabelValues(string(role)).Dec()
}
