package synth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is the wait between two status checks.
const DefaultPollInterval = 10 * time.Second

// Poller waits for an operation by re-reading it at a fixed interval until it
// reports done. There is no backoff and no overall deadline; the context is
// only checked while sleeping between polls.
type Poller struct {
	Interval time.Duration
	Log      *zap.Logger
}

// NewPoller creates a poller. A non-positive interval selects DefaultPollInterval.
func NewPoller(interval time.Duration, log *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{Interval: interval, Log: log}
}

// Wait blocks until op is done and returns its final state.
func (p *Poller) Wait(ctx context.Context, gen VideoGenerator, op *Operation) (*Operation, error) {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	start := time.Now()
	for polls := 0; !op.Done; polls++ {
		log.Info("Waiting for generation...",
			zap.String("operation", op.Name),
			zap.Int("polls", polls),
			zap.Duration("elapsed", time.Since(start).Round(time.Second)))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.Interval):
		}

		next, err := gen.PollVideo(ctx, op)
		if err != nil {
			return nil, fmt.Errorf("poll operation %s: %w", op.Name, err)
		}
		op = next
	}

	log.Debug("Generation finished", zap.String("operation", op.Name), zap.Duration("elapsed", time.Since(start)))
	return op, nil
}
