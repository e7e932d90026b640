package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dskvich/classifier-bot/pkg/logger"
	"github.com/hashicorp/go-multierror"
)

type Service interface {
	Name() string
	Start(ctx context.Context) error
}

type Group []Service

// Start runs every service until ctx is done or one of them fails; a failure
// stops the rest. All errors are reported together.
func (g Group) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs *multierror.Error
	)

	for _, svc := range g {
		wg.Add(1)
		go func(svc Service) {
			defer wg.Done()

			slog.InfoContext(ctx, "Starting service", "service", svc.Name())
			err := svc.Start(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "Service stopped with error", "service", svc.Name(), logger.Err(err))
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", svc.Name(), err))
				mu.Unlock()
			} else {
				slog.InfoContext(ctx, "Service stopped", "service", svc.Name())
			}
			cancel()
		}(svc)
	}

	wg.Wait()
	return errs.ErrorOrNil()
}
