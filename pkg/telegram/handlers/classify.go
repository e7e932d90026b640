package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dskvich/classifier-bot/pkg/render"
	"github.com/dskvich/classifier-bot/pkg/upload"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Classify submits the selected image. Prediction failures are part of the
// screen, so only selection problems get a separate notice.
func Classify(provider SessionProvider) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		answerCallback(ctx, b, update)

		chatID, topicID, ok := chatOf(update)
		if !ok {
			return
		}
		sess := provider.Get(ctx, chatID, topicID)

		b.SendChatAction(ctx, &bot.SendChatActionParams{
			ChatID:          chatID,
			MessageThreadID: topicID,
			Action:          models.ChatActionUploadPhoto,
		})

		err := sess.Classify(ctx)
		switch {
		case errors.Is(err, upload.ErrNoFile):
			sendHTML(ctx, b, chatID, topicID, "🖼 Send an image first.", nil)
			return
		case errors.Is(err, upload.ErrBusy):
			sendHTML(ctx, b, chatID, topicID, "⏳ Still processing the previous image.", nil)
			return
		case err != nil:
			slog.InfoContext(ctx, "Classification ended with error", "chat_id", chatID)
		}

		persist(ctx, provider, sess)

		st := sess.Shell.State()
		sendScreen(ctx, b, chatID, topicID, st, render.Screen(st))
	}
}

func RemoveImage(provider SessionProvider) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		answerCallback(ctx, b, update)

		chatID, topicID, ok := chatOf(update)
		if !ok {
			return
		}
		sess := provider.Get(ctx, chatID, topicID)

		if sess.Widget.State() == upload.StateEmpty {
			sendHTML(ctx, b, chatID, topicID, "🖼 Nothing to remove.", nil)
			return
		}

		sess.Widget.Remove()
		sendHTML(ctx, b, chatID, topicID, "🗑 Image removed. Send another one when ready.", nil)
	}
}
