package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/coder-ph/m-fua-services/internal/marketplace"
)

// Sweeper periodically expires service requests whose deadline passed while
// they were still pending.
type Sweeper struct {
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewSweeper(interval time.Duration) *Sweeper {
	return &Sweeper{
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called. One sweep fires
// immediately so a restarted instance catches up without waiting a full
// interval.
func (s *Sweeper) Start() {
	go func() {
		defer close(s.done)

		s.sweep()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	expired, err := marketplace.ExpireDue(ctx)
	if err != nil {
		zap.L().Error("expiry sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		zap.L().Info("expired overdue services", zap.Int("count", expired))
	}
}
