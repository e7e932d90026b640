package sessions

import (
	"context"
	"log/slog"
	"time"
)

const DefaultIdleTTL = 24 * time.Hour

// Sweeper periodically evicts idle sessions from a Registry.
type Sweeper struct {
	registry *Registry
	idle     time.Duration
	every    time.Duration
}

func NewSweeper(registry *Registry, idle time.Duration) *Sweeper {
	if idle <= 0 {
		idle = DefaultIdleTTL
	}
	return &Sweeper{
		registry: registry,
		idle:     idle,
		every:    max(idle/4, 10*time.Millisecond),
	}
}

func (s *Sweeper) Name() string {
	return "session sweeper"
}

func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.registry.Evict(s.idle); n > 0 {
				slog.InfoContext(ctx, "Evicted idle sessions", "count", n, "remaining", s.registry.Len())
			}
		}
	}
}
