package gateway

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rmarinho/toonchat/internal/notify"
)

// DefaultPollInterval is how often the service health is probed.
const DefaultPollInterval = 300 * time.Second

// Poller periodically checks service health and publishes a toast when the
// service transitions between healthy and unhealthy.
type Poller struct {
	client   *Client
	bus      *notify.Bus
	interval time.Duration
}

// NewPoller creates a health poller. A non-positive interval falls back to
// the default.
func NewPoller(client *Client, bus *notify.Bus, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{client: client, bus: bus, interval: interval}
}

// Run blocks, polling until the context is cancelled. The first probe runs
// immediately.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	wasHealthy := true
	p.probe(ctx, &wasHealthy)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probe(ctx, &wasHealthy)
		}
	}
}

func (p *Poller) probe(ctx context.Context, wasHealthy *bool) {
	status := p.client.CheckHealth(ctx)

	log.Debug().
		Str("status", status.Status).
		Str("database", status.Database).
		Int("collections", status.Collections).
		Msg("health probe")

	healthy := status.Healthy()
	if healthy == *wasHealthy {
		return
	}
	*wasHealthy = healthy

	if healthy {
		p.bus.Publish("Service is back online", notify.TypeInfo, 4*time.Second)
	} else {
		p.bus.Publish("Service is unavailable", notify.TypeWarning, 6*time.Second)
	}
}
