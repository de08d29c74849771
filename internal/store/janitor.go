package store

import (
	"context"
	"time"

	"github.com/book-expert/logger"
)

// Janitor periodically evicts stale artifacts from the output store.
type Janitor struct {
	store    *Store
	maxAge   time.Duration
	interval time.Duration
	log      *logger.Logger
}

// NewJanitor creates a janitor sweeping the given store. Artifacts older
// than maxAge are removed on every interval tick.
func NewJanitor(store *Store, maxAge, interval time.Duration, log *logger.Logger) *Janitor {
	return &Janitor{
		store:    store,
		maxAge:   maxAge,
		interval: interval,
		log:      log,
	}
}

// Run sweeps the store until the context is cancelled. Sweep failures are
// logged and the loop continues; a broken sweep must not take the service
// down.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, sweepErr := j.store.EvictOlderThan(j.maxAge)
			if sweepErr != nil {
				j.log.Warn("Artifact sweep failed: %v", sweepErr)

				continue
			}

			if removed > 0 {
				j.log.Info("Evicted %d stale audio artifacts", removed)
			}
		}
	}
}
