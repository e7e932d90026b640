// Package shell orchestrates one chat's view of the classifier: model info,
// the latest prediction, the error banner and the prediction history.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dskvich/classifier-bot/pkg/classifier"
	"github.com/dskvich/classifier-bot/pkg/domain"
	"github.com/dskvich/classifier-bot/pkg/logger"
	"github.com/hashicorp/go-multierror"
)

const GenericErrorMessage = "Something went wrong"

var ErrNoPendingClear = errors.New("no clear history confirmation pending")

type API interface {
	GetModelInfo(ctx context.Context) (*domain.ModelInfo, error)
	GetHistory(ctx context.Context) ([]domain.HistoryEntry, error)
	PredictImage(ctx context.Context, file domain.ImageFile) (*domain.PredictionResult, error)
	ClearHistory(ctx context.Context) error
}

type Shell struct {
	api API

	mu    sync.Mutex
	state State
}

func New(api API) *Shell {
	return &Shell{
		api:   api,
		state: State{History: []domain.HistoryEntry{}},
	}
}

func (s *Shell) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Shell) dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Reduce(s.state, a)
	return s.state
}

// Mount loads model info and history concurrently. Either may fail; the
// returned error only reports what is missing.
func (s *Shell) Mount(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs *multierror.Error
	)

	collect := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		errs = multierror.Append(errs, err)
		mu.Unlock()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		collect(s.LoadModelInfo(ctx))
	}()
	go func() {
		defer wg.Done()
		collect(s.LoadHistory(ctx))
	}()
	wg.Wait()

	return errs.ErrorOrNil()
}

func (s *Shell) LoadModelInfo(ctx context.Context) error {
	info, err := s.api.GetModelInfo(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Loading model info failed", logger.Err(err))
		return fmt.Errorf("loading model info: %w", err)
	}

	s.dispatch(ModelInfoLoaded{Info: info})
	return nil
}

// LoadHistory refreshes the history snapshot. A response is applied only if
// no newer history request or clear was issued meanwhile.
func (s *Shell) LoadHistory(ctx context.Context) error {
	s.mu.Lock()
	gen := s.state.HistoryGen + 1
	s.state = Reduce(s.state, HistoryRequested{Gen: gen})
	s.mu.Unlock()

	entries, err := s.api.GetHistory(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Loading history failed", logger.Err(err))
		return fmt.Errorf("loading history: %w", err)
	}

	if st := s.dispatch(HistoryLoaded{Gen: gen, Entries: entries}); st.HistoryGen != gen {
		slog.DebugContext(ctx, "Discarding stale history", "gen", gen, "latest", st.HistoryGen)
	}
	return nil
}

// Predict classifies file and refreshes history on success. The loading flag
// is cleared last in every outcome.
func (s *Shell) Predict(ctx context.Context, file domain.ImageFile) error {
	s.mu.Lock()
	gen := s.state.PredictGen + 1
	s.state = Reduce(s.state, PredictStarted{Gen: gen})
	s.mu.Unlock()

	defer s.dispatch(PredictFinished{Gen: gen})

	result, err := s.api.PredictImage(ctx, file)
	if err != nil {
		s.dispatch(PredictFailed{Gen: gen, Message: errorMessage(err)})
		slog.ErrorContext(ctx, "Prediction failed", "file", file.Name, logger.Err(err))
		return err
	}

	s.dispatch(PredictSucceeded{Gen: gen, Result: result})
	slog.InfoContext(ctx, "Prediction received",
		"file", file.Name,
		"class", result.PredictedClass,
		"confidence", result.Confidence,
	)

	if err := s.LoadHistory(ctx); err != nil {
		slog.DebugContext(ctx, "History not refreshed after prediction", logger.Err(err))
	}

	return nil
}

func (s *Shell) RequestClear() State {
	return s.dispatch(ClearRequested{})
}

// ConfirmClear answers a pending RequestClear. A positive answer issues
// exactly one clear request and empties the local history without re-fetching.
func (s *Shell) ConfirmClear(ctx context.Context, yes bool) error {
	s.mu.Lock()
	if !s.state.ConfirmingClear {
		s.mu.Unlock()
		return ErrNoPendingClear
	}
	if !yes {
		s.state = Reduce(s.state, ClearCancelled{})
		s.mu.Unlock()
		return nil
	}
	gen := s.state.HistoryGen + 1
	s.state = Reduce(s.state, ClearStarted{Gen: gen})
	s.mu.Unlock()

	if err := s.api.ClearHistory(ctx); err != nil {
		slog.ErrorContext(ctx, "Clearing history failed", logger.Err(err))
		return fmt.Errorf("clearing history: %w", err)
	}

	s.mu.Lock()
	s.state = Reduce(s.state, HistoryCleared{Gen: s.state.HistoryGen + 1})
	s.mu.Unlock()
	return nil
}

func (s *Shell) ToggleHistory() State {
	return s.dispatch(HistoryToggled{})
}

func (s *Shell) Restore(sess *domain.Session) State {
	if sess == nil {
		return s.State()
	}
	return s.dispatch(SessionRestored{ShowHistory: sess.ShowHistory, Prediction: sess.LastPrediction})
}

func errorMessage(err error) string {
	if detail, ok := classifier.Detail(err); ok {
		return detail
	}
	return GenericErrorMessage
}
