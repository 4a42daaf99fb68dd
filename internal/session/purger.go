package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const purgeTimeout = 30 * time.Second

// Purger periodically deletes expired session rows. Expiry is still enforced
// on every read, so the purge only reclaims storage.
type Purger struct {
	cron    *cron.Cron
	manager *Manager
	logger  *slog.Logger
}

// NewPurger schedules the purge with a cron spec such as "@every 1h"
func NewPurger(manager *Manager, schedule string, logger *slog.Logger) (*Purger, error) {
	p := &Purger{
		cron:    cron.New(),
		manager: manager,
		logger:  logger,
	}
	if _, err := p.cron.AddFunc(schedule, p.Run); err != nil {
		return nil, fmt.Errorf("invalid session purge schedule %q: %w", schedule, err)
	}
	return p, nil
}

// Start runs the schedule in the background
func (p *Purger) Start() {
	p.cron.Start()
	p.logger.Info("session purge scheduled", "entries", len(p.cron.Entries()))
}

// Stop halts the schedule and waits for a running purge to finish or ctx to end
func (p *Purger) Stop(ctx context.Context) {
	select {
	case <-p.cron.Stop().Done():
	case <-ctx.Done():
		p.logger.Warn("session purge still running at shutdown")
	}
}

// Run performs one purge
func (p *Purger) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	n, err := p.manager.PurgeExpired(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "session purge failed", "error", err)
		return
	}
	if n > 0 {
		p.logger.InfoContext(ctx, "purged expired sessions", "count", n)
	}
}
