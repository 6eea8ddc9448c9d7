package monitoring

import (
	"context"
	"sync"
	"time"

	"framewire/internal/core/ports"
)

type HealthChecker struct {
	checks []HealthCheck
	mu     sync.RWMutex
}

type HealthCheck struct {
	Name    string
	Check   func(ctx context.Context) (bool, error)
	Timeout time.Duration
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func (s HealthStatus) Healthy() bool {
	return s.Status == "healthy"
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make([]HealthCheck, 0),
	}
}

func (h *HealthChecker) AddCheck(name string, check func(ctx context.Context) (bool, error), timeout time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.checks = append(h.checks, HealthCheck{
		Name:    name,
		Check:   check,
		Timeout: timeout,
	})
}

// AddReportStoreCheck probes the report repository with a one-item listing
func (h *HealthChecker) AddReportStoreCheck(repo ports.ReportRepository, timeout time.Duration) {
	h.AddCheck("report_store", func(ctx context.Context) (bool, error) {
		if _, err := repo.List(ctx, 1); err != nil {
			return false, err
		}
		return true, nil
	}, timeout)
}

// AddPingCheck wraps a ping-style dependency check
func (h *HealthChecker) AddPingCheck(name string, ping func(ctx context.Context) error, timeout time.Duration) {
	h.AddCheck(name, func(ctx context.Context) (bool, error) {
		if err := ping(ctx); err != nil {
			return false, err
		}
		return true, nil
	}, timeout)
}

func (h *HealthChecker) CheckAll(ctx context.Context) HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	for _, check := range h.checks {
		healthy, err := h.run(ctx, check)
		if err != nil || !healthy {
			status.Status = "unhealthy"
			if err != nil {
				status.Checks[check.Name] = err.Error()
			} else {
				status.Checks[check.Name] = "check failed"
			}
		} else {
			status.Checks[check.Name] = "healthy"
		}
	}

	return status
}

func (h *HealthChecker) run(ctx context.Context, check HealthCheck) (bool, error) {
	timeout := check.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return check.Check(checkCtx)
}
