package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/freekieb/go-gate/internal/credstore"
)

// Checker provides liveness and readiness checks. The credential store is a
// hard dependency for correctness, so readiness treats it as critical.
type Checker struct {
	Store  credstore.Store
	Logger *slog.Logger
}

func NewChecker(store credstore.Store, logger *slog.Logger) Checker {
	return Checker{
		Store:  store,
		Logger: logger,
	}
}

// Status represents health information for orchestrator probes
type Status struct {
	Status     string                     `json:"status"`
	Timestamp  string                     `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents individual component health
type ComponentHealth struct {
	Status      string        `json:"status"`
	Message     string        `json:"message,omitempty"`
	Latency     time.Duration `json:"latency_ms"`
	LastChecked string        `json:"last_checked"`
	Critical    bool          `json:"critical"`
}

// CheckLiveness is a lightweight probe: the process is responsive.
func (h *Checker) CheckLiveness(ctx context.Context) Status {
	now := time.Now()

	return Status{
		Status:    "healthy",
		Timestamp: now.UTC().Format(time.RFC3339),
		Components: map[string]ComponentHealth{
			"process": {
				Status:      "healthy",
				Message:     "service is responsive",
				Latency:     time.Since(now),
				LastChecked: now.UTC().Format(time.RFC3339),
				Critical:    true,
			},
		},
	}
}

// CheckReadiness pings the credential store. Without the store the service
// rejects all traffic (fail-closed), so an unreachable store means unready.
func (h *Checker) CheckReadiness(ctx context.Context) Status {
	now := time.Now()
	components := map[string]ComponentHealth{
		"store": h.checkStore(ctx),
	}

	overallStatus := components["store"].Status

	return Status{
		Status:     overallStatus,
		Timestamp:  now.UTC().Format(time.RFC3339),
		Components: components,
	}
}

func (h *Checker) checkStore(ctx context.Context) ComponentHealth {
	start := time.Now()

	if h.Store == nil {
		return ComponentHealth{
			Status:      "unhealthy",
			Message:     "store not configured",
			Latency:     time.Since(start),
			LastChecked: time.Now().UTC().Format(time.RFC3339),
			Critical:    true,
		}
	}

	err := h.Store.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		h.Logger.Error("Store health check failed", "error", err, "latency", latency)
		return ComponentHealth{
			Status:      "unhealthy",
			Message:     "store connection failed: " + err.Error(),
			Latency:     latency,
			LastChecked: time.Now().UTC().Format(time.RFC3339),
			Critical:    true,
		}
	}

	status := "healthy"
	message := "store connection successful"
	if latency > 100*time.Millisecond {
		status = "degraded"
		message = "store response time elevated"
	}

	return ComponentHealth{
		Status:      status,
		Message:     message,
		Latency:     latency,
		LastChecked: time.Now().UTC().Format(time.RFC3339),
		Critical:    true,
	}
}
