package providers

import (
	"context"
	"log/slog"
	"time"
)

// StartHealthChecker launches a background goroutine that probes the
// provider on a fixed interval. While the provider stays unhealthy the
// probe interval backs off up to 4x to avoid hammering a dead backend.
//
// The goroutine exits when Close is called on the base client.
func (c *HTTPClient) StartHealthChecker(p Provider) {
	c.healthCheckOnce.Do(func() {
		go c.healthCheckLoop(p)
	})
}

func (c *HTTPClient) healthCheckLoop(p Provider) {
	defer close(c.healthCheckStopped)

	interval := c.config.HealthCheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	baseInterval := interval

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-c.stopHealthCheck:
			return
		case <-timer.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := p.HealthCheck(ctx)
		cancel()

		if err != nil {
			// Back off while the backend is down.
			if interval < 4*baseInterval {
				interval *= 2
			}
			slog.Debug("health check failed",
				"provider", c.config.Name,
				"error", err,
				"next_check", interval,
			)
		} else {
			interval = baseInterval
		}

		timer.Reset(interval)
	}
}
