package handlers

import (
	"context"
	"log/slog"

	"github.com/dskvich/classifier-bot/pkg/render"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const helpText = `Send me a **photo** or an image file and I will tell you what is on it.

- Press *Classify Image* under the preview to run the model
- Send an album to classify up to 10 images at once
- /history shows or hides your recent predictions
- /clear removes the prediction history
- /model describes the model, /health checks the classifier`

func Start(provider SessionProvider) bot.HandlerFunc {
	help := render.ToHTML(helpText)

	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		chatID, topicID, ok := chatOf(update)
		if !ok {
			return
		}
		slog.InfoContext(ctx, "Starting session", "chat_id", chatID)

		sess := provider.Get(ctx, chatID, topicID)

		sendHTML(ctx, b, chatID, topicID, help, nil)

		st := sess.Shell.State()
		sendScreen(ctx, b, chatID, topicID, st, render.Screen(st))
	}
}
