package handlers

import (
	"context"

	"github.com/dskvich/classifier-bot/pkg/domain"
	"github.com/dskvich/classifier-bot/pkg/render"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type ModelInfoProvider interface {
	GetModelInfo(ctx context.Context) (*domain.ModelInfo, error)
}

type HealthChecker interface {
	CheckHealth(ctx context.Context) (*domain.Health, error)
}

func ShowModelInfo(provider ModelInfoProvider) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		chatID, topicID, ok := chatOf(update)
		if !ok {
			return
		}

		info, err := provider.GetModelInfo(ctx)
		if err != nil {
			sendError(ctx, b, chatID, topicID, "Could not load model info", err)
			return
		}

		sendHTML(ctx, b, chatID, topicID, render.ModelInfo(info), nil)
	}
}

func ShowHealth(checker HealthChecker) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		chatID, topicID, ok := chatOf(update)
		if !ok {
			return
		}

		health, err := checker.CheckHealth(ctx)
		if err != nil {
			sendError(ctx, b, chatID, topicID, "Classifier is unreachable", err)
			return
		}

		sendHTML(ctx, b, chatID, topicID, render.Health(health), nil)
	}
}
