package ports

import (
	"time"

	"framewire/internal/core/domain"
)

// MetricsObserver receives every event a session produces. Implementations must be
// safe for concurrent use since producer and consumer loops call them independently.
type MetricsObserver interface {
	ObserveSample(role domain.Role, sample domain.MetricSample)
	ObserveFrameSent(sendDuration time.Duration)
	ObserveFrameReceived()
	ObserveFrameDropped(stage string)
	ObserveSessionStarted(role domain.Role)
	ObserveSessionStopped(role domain.Role)
}
