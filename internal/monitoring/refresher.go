package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Refresher periodically collects a snapshot and publishes it to the
// Prometheus gauges.
type Refresher struct {
	collector     *Collector
	interval      time.Duration
	lookbackHours int
}

// NewRefresher creates a background gauge refresher.
func NewRefresher(collector *Collector, interval time.Duration, lookbackHours int) *Refresher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Refresher{collector: collector, interval: interval, lookbackHours: lookbackHours}
}

// Run refreshes immediately and then on every tick. It blocks until ctx is
// cancelled.
func (r *Refresher) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.refresher"))
	log.Info("starting stats refresher", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh(ctx, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("stats refresher stopped")
			return
		case <-ticker.C:
			r.refresh(ctx, log)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context, log *zap.Logger) {
	snap, err := r.collector.Collect(ctx, "", r.lookbackHours)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("stats collection failed", zap.Error(err))
		}
		return
	}
	Publish(snap)
}
