package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/dskvich/classifier-bot/pkg/batch"
	"github.com/dskvich/classifier-bot/pkg/classifier"
	"github.com/dskvich/classifier-bot/pkg/database"
	"github.com/dskvich/classifier-bot/pkg/domain"
	"github.com/dskvich/classifier-bot/pkg/logger"
	"github.com/dskvich/classifier-bot/pkg/repository"
	"github.com/dskvich/classifier-bot/pkg/services"
	"github.com/dskvich/classifier-bot/pkg/sessions"
	"github.com/dskvich/classifier-bot/pkg/telegram/handlers"
	"github.com/dskvich/classifier-bot/pkg/telegram/middleware"
	"github.com/go-telegram/bot"
	"github.com/samber/lo"
)

type Config struct {
	TelegramBotToken          string        `env:"TELEGRAM_BOT_TOKEN,required"`
	TelegramAuthorizedUserIDs []int64       `env:"TELEGRAM_AUTHORIZED_USER_IDS" envSeparator:" "`
	AppEnv                    string        `env:"APP_ENV" envDefault:"development"`
	APIOrigin                 string        `env:"API_ORIGIN" envDefault:"http://localhost"`
	ClassifierAPIURL          string        `env:"CLASSIFIER_API_URL"`
	PgURL                     string        `env:"DATABASE_URL"`
	PgHost                    string        `env:"DB_HOST" envDefault:"localhost:61234"`
	BunDebug                  int           `env:"BUNDEBUG" envDefault:"0"`
	StatusAddr                string        `env:"STATUS_ADDR" envDefault:":8080"`
	BatchWait                 time.Duration `env:"BATCH_WAIT" envDefault:"1500ms"`
	SessionIdleTTL            time.Duration `env:"SESSION_IDLE_TTL" envDefault:"24h"`
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.DefaultOptions)))

	if err := runMain(); err != nil {
		slog.Error("shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func runMain() error {
	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	svcGroup, err := setupServices(ctx)
	if err != nil {
		return err
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		select {
		case s := <-sigCh:
			slog.Info("shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	return svcGroup.Start(ctx)
}

func setupServices(ctx context.Context) (services.Group, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing env config: %w", err)
	}

	var svc services.Service
	var svcGroup services.Group

	db, err := database.NewDB(ctx, cfg.PgURL, cfg.PgHost)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}

	baseURL := lo.CoalesceOrEmpty(cfg.ClassifierAPIURL, classifier.ResolveBaseURL(cfg.AppEnv == "production", cfg.APIOrigin))
	classifierClient, err := classifier.NewClient(baseURL)
	if err != nil {
		return nil, fmt.Errorf("creating classifier client: %w", err)
	}
	slog.Info("Classifier API configured", "base_url", baseURL, "env", cfg.AppEnv)

	sessionRepository := repository.NewSessionRepository(db)
	registry := sessions.NewRegistry(classifierClient, sessionRepository, nil)
	albums := batch.NewCollector(ctx, cfg.BatchWait, classifier.MaxBatchSize)

	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.RequestID,
			middleware.Auth(cfg.TelegramAuthorizedUserIDs),
		),

		bot.WithDefaultHandler(handlers.ReceiveImage(registry, albums, classifierClient)),
		bot.WithMessageTextHandler("/start", bot.MatchTypePrefix, handlers.Start(registry)),
		bot.WithMessageTextHandler("/history", bot.MatchTypePrefix, handlers.ToggleHistory(registry)),
		bot.WithMessageTextHandler("/clear", bot.MatchTypePrefix, handlers.ClearHistory(registry)),
		bot.WithMessageTextHandler("/model", bot.MatchTypePrefix, handlers.ShowModelInfo(classifierClient)),
		bot.WithMessageTextHandler("/health", bot.MatchTypePrefix, handlers.ShowHealth(classifierClient)),

		bot.WithCallbackQueryDataHandler(domain.ClassifyCallback, bot.MatchTypeExact, handlers.Classify(registry)),
		bot.WithCallbackQueryDataHandler(domain.RemoveImageCallback, bot.MatchTypeExact, handlers.RemoveImage(registry)),
		bot.WithCallbackQueryDataHandler(domain.ToggleHistoryCallback, bot.MatchTypeExact, handlers.ToggleHistory(registry)),
		bot.WithCallbackQueryDataHandler(domain.ClearHistoryCallback, bot.MatchTypeExact, handlers.ClearHistory(registry)),
		bot.WithCallbackQueryDataHandler(domain.ConfirmClearCallbackPrefix, bot.MatchTypePrefix, handlers.ConfirmClear(registry)),
	}

	b, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	if svc, err = services.NewTelegramBot(b); err == nil {
		svcGroup = append(svcGroup, svc)
	} else {
		return nil, err
	}

	svcGroup = append(svcGroup,
		services.NewStatusServer(cfg.StatusAddr, classifierClient, registry),
		sessions.NewSweeper(registry, cfg.SessionIdleTTL),
	)

	return svcGroup, nil
}
