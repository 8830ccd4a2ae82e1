package dispatcher

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Poller drives the dispatcher on a fixed interval for deployments without
// an external scheduler hitting the HTTP trigger. Each tick is one complete
// invocation; ticks and HTTP triggers may overlap safely because the per-row
// claim is the only contention point.
type Poller struct {
	d        *Dispatcher
	interval time.Duration
	logger   *zap.Logger
}

func NewPoller(d *Dispatcher, interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{d: d, interval: interval, logger: logger}
}

// Run ticks every interval and performs one dispatch run per tick.
// Stops cleanly when ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("dispatch poller started", zap.Duration("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("dispatch poller stopping")
			return
		case <-ticker.C:
			if _, err := p.d.Run(ctx); err != nil {
				p.logger.Error("scheduled dispatch run failed", zap.Error(err))
			}
		}
	}
}
