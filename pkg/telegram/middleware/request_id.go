package middleware

import (
	"context"
	"strconv"

	"github.com/dskvich/classifier-bot/pkg/logger"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// RequestID tags the context with the update id so every log line of one
// update can be correlated.
func RequestID(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		ctx = logger.WithRequestID(ctx, strconv.FormatInt(update.ID, 10))
		next(ctx, b, update)
	}
}
