package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/dskvich/classifier-bot/pkg/domain"
	"github.com/dskvich/classifier-bot/pkg/render"
	"github.com/dskvich/classifier-bot/pkg/shell"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ToggleHistory serves both the /history command and the inline button.
func ToggleHistory(provider SessionProvider) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		answerCallback(ctx, b, update)

		chatID, topicID, ok := chatOf(update)
		if !ok {
			return
		}
		sess := provider.Get(ctx, chatID, topicID)

		st := sess.Shell.ToggleHistory()
		persist(ctx, provider, sess)

		sendScreen(ctx, b, chatID, topicID, st, render.Screen(st))
	}
}

func ClearHistory(provider SessionProvider) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		answerCallback(ctx, b, update)

		chatID, topicID, ok := chatOf(update)
		if !ok {
			return
		}
		sess := provider.Get(ctx, chatID, topicID)

		sess.Shell.RequestClear()

		sendHTML(ctx, b, chatID, topicID, "🧹 Are you sure you want to clear all prediction history?", confirmKeyboard())
	}
}

func ConfirmClear(provider SessionProvider) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		answerCallback(ctx, b, update)

		chatID, topicID, ok := chatOf(update)
		if !ok {
			return
		}
		sess := provider.Get(ctx, chatID, topicID)

		answer := strings.TrimPrefix(update.CallbackQuery.Data, domain.ConfirmClearCallbackPrefix)
		yes := answer == domain.ConfirmYes

		err := sess.Shell.ConfirmClear(ctx, yes)
		switch {
		case errors.Is(err, shell.ErrNoPendingClear):
			sendHTML(ctx, b, chatID, topicID, "ℹ️ This request has already been answered.", nil)
			return
		case err != nil:
			sendError(ctx, b, chatID, topicID, "Could not clear history", err)
			return
		case !yes:
			sendHTML(ctx, b, chatID, topicID, "↩️ History kept.", nil)
			return
		}

		st := sess.Shell.State()
		sendScreen(ctx, b, chatID, topicID, st, "🧹 History cleared!\n\n"+render.Screen(st))
	}
}
