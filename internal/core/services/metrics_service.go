package services

import (
	"sync"

	"framewire/internal/core/domain"
)

// MetricsService accumulates MetricSamples into running sums. It is the only
// state shared between the producer and consumer loops of a session.
type MetricsService struct {
	mu sync.Mutex

	latencySum   float64
	latencyCount int

	compressedSum   int64
	compressedCount int

	rawSum   int64
	rawCount int
}

func NewMetricsService() *MetricsService {
	return &MetricsService{}
}

// Record folds one sample into the running totals. Nil fields are skipped.
func (m *MetricsService) Record(sample domain.MetricSample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sample.LatencySeconds != nil {
		m.latencySum += *sample.LatencySeconds
		m.latencyCount++
	}
	if sample.CompressedBytes != nil {
		m.compressedSum += int64(*sample.CompressedBytes)
		m.compressedCount++
	}
	if sample.RawEncodedBytes != nil {
		m.rawSum += int64(*sample.RawEncodedBytes)
		m.rawCount++
	}
}

// Summary returns arithmetic means over the samples that carried each field.
func (m *MetricsService) Summary() domain.MetricsSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := domain.MetricsSummary{
		LatencySamples: m.latencyCount,
		SizeSamples:    m.compressedCount,
	}
	if m.latencyCount > 0 {
		summary.AvgLatencySeconds = m.latencySum / float64(m.latencyCount)
	}
	if m.compressedCount > 0 {
		summary.AvgCompressedBytes = float64(m.compressedSum) / float64(m.compressedCount)
	}
	if m.rawCount > 0 {
		summary.AvgRawBytes = float64(m.rawSum) / float64(m.rawCount)
	}
	return summary
}
