package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/txlens/internal/store"
)

// Pruner deletes cached transactions older than the configured TTL on a
// cron schedule. The transaction cache only holds already-produced inputs,
// so pruning is always safe: a pruned transaction is simply re-fetched.
type Pruner struct {
	store    store.Store
	parser   cron.Parser
	schedule cron.Schedule
	ttl      time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewPruner creates a Pruner that fires per the cron expression (standard
// five-field syntax) and deletes transactions fetched more than ttl ago.
func NewPruner(s store.Store, cronExpr string, ttl time.Duration, logger *slog.Logger) (*Pruner, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("retention ttl must be positive, got %s", ttl)
	}

	return &Pruner{
		store:    s,
		parser:   parser,
		schedule: schedule,
		ttl:      ttl,
		logger:   logger,
	}, nil
}

// Start launches the background pruning loop.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.done != nil {
		p.mu.Unlock()
		return fmt.Errorf("pruner already started")
	}

	pruneCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.mu.Unlock()

	go p.loop(pruneCtx)
	p.logger.Info("retention pruner started", slog.String("ttl", p.ttl.String()))
	return nil
}

func (p *Pruner) loop(ctx context.Context) {
	defer close(p.done)

	for {
		now := time.Now().UTC()
		next := p.schedule.Next(now)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			p.prune(ctx)
		}
	}
}

// prune deletes every transaction fetched more than ttl ago.
func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-p.ttl)
	deleted, err := p.store.DeleteTransactionsBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("retention prune failed", slog.String("error", err.Error()))
		return
	}
	if deleted > 0 {
		p.logger.Info("pruned cached transactions",
			slog.Int64("count", deleted),
			slog.Time("cutoff", cutoff),
		)
	}
}

// NextRun computes the next prune time after the given instant.
func (p *Pruner) NextRun(from time.Time) time.Time {
	return p.schedule.Next(from)
}

// Stop gracefully shuts down the pruner.
func (p *Pruner) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return nil
	}

	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil

	p.logger.Info("retention pruner stopped")
	return nil
}
