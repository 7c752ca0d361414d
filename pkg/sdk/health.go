package factgpt

import (
	"context"
	"time"

	healthuc "github.com/ohmygaugh/factgpt/internal/usecase/health"
)

// HealthStatus is the aggregated component status.
type HealthStatus struct {
	Status string
	Checks map[string]string
}

// Healthy reports whether every check passed.
func (h HealthStatus) Healthy() bool {
	return h.Status == string(healthuc.Healthy)
}

// Health checks the pipeline and the cache connection.
func (c *Client) Health(ctx context.Context) (h HealthStatus, err error) {
	if c == nil {
		return HealthStatus{}, errNilClient
	}
	defer func(start time.Time) { c.obs.observe("health", start, len(h.Checks), err) }(time.Now())

	report := c.health.Check(ctx)
	h = HealthStatus{Status: string(report.Status), Checks: make(map[string]string, len(report.Checks))}
	for name, res := range report.Checks {
		h.Checks[name] = string(res)
	}
	return h, nil
}
