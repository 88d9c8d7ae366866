package service

import (
	"context"
	"time"

	"github.com/linkauth/server/internal/logger"
	"github.com/linkauth/server/internal/model"
)

// Janitor periodically clears expired token state so stale magic links do
// not accumulate in storage. It never touches the verified flag and never
// runs inside a request path.
type Janitor struct {
	accounts model.AccountStore
	interval time.Duration
	clock    model.Clock
	logger   *logger.Logger
}

func NewJanitor(accounts model.AccountStore, interval time.Duration, clock model.Clock, logger *logger.Logger) *Janitor {
	return &Janitor{
		accounts: accounts,
		interval: interval,
		clock:    clock,
		logger:   logger,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("Janitor: started",
		"interval", j.interval.String())

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("Janitor: stopped")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep clears expired tokens once. Failures are logged and swallowed;
// request serving never depends on a sweep succeeding.
func (j *Janitor) Sweep(ctx context.Context) {
	swept, err := j.accounts.SweepExpiredTokens(ctx, j.clock.Now())
	if err != nil {
		j.logger.Error("Janitor: sweep failed",
			"error", err.Error())
		return
	}

	if swept > 0 {
		j.logger.Info("Janitor: cleared expired tokens",
			"count", swept)
	}
}
