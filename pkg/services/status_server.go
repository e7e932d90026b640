package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dskvich/classifier-bot/pkg/domain"
	"github.com/dskvich/classifier-bot/pkg/logger"
	"github.com/gorilla/mux"
)

const (
	shutdownTimeout = 5 * time.Second
	readTimeout     = 10 * time.Second
)

type HealthChecker interface {
	CheckHealth(ctx context.Context) (*domain.Health, error)
}

type SessionCounter interface {
	Len() int
}

type statusServer struct {
	srv *http.Server
}

type statusResponse struct {
	Status     string         `json:"status"`
	Sessions   int            `json:"sessions"`
	Classifier *domain.Health `json:"classifier,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// NewStatusServer exposes liveness of the bot and of the upstream classifier
// for container probes.
func NewStatusServer(addr string, checker HealthChecker, sessions SessionCounter) *statusServer {
	return &statusServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           newStatusRouter(checker, sessions),
			ReadHeaderTimeout: readTimeout,
		},
	}
}

func newStatusRouter(checker HealthChecker, sessions SessionCounter) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		resp := statusResponse{Status: "ok", Sessions: sessions.Len()}
		code := http.StatusOK

		health, err := checker.CheckHealth(req.Context())
		if err != nil {
			resp.Status = "degraded"
			resp.Error = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			resp.Classifier = health
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.ErrorContext(req.Context(), "Writing status response failed", logger.Err(err))
		}
	}).Methods(http.MethodGet)

	r.HandleFunc("/live", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)

	return r
}

func (s *statusServer) Name() string {
	return "status server"
}

func (s *statusServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Status server listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
