package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/dskvich/classifier-bot/pkg/domain"
	"github.com/dskvich/classifier-bot/pkg/logger"
	"github.com/dskvich/classifier-bot/pkg/sessions"
	"github.com/dskvich/classifier-bot/pkg/shell"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type SessionProvider interface {
	Get(ctx context.Context, chatID int64, topicID int) *sessions.Session
	Persist(ctx context.Context, sess *sessions.Session) error
}

// chatOf returns the chat and topic an update belongs to, for both messages
// and inline button presses. Callbacks on messages the bot can no longer
// access have no usable chat.
func chatOf(update *models.Update) (int64, int, bool) {
	if update.CallbackQuery != nil {
		msg := update.CallbackQuery.Message.Message
		if msg == nil {
			return 0, 0, false
		}
		return msg.Chat.ID, msg.MessageThreadID, true
	}
	if update.Message != nil {
		return update.Message.Chat.ID, update.Message.MessageThreadID, true
	}
	return 0, 0, false
}

func answerCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
		ShowAlert:       false,
	})
}

func sendHTML(ctx context.Context, b *bot.Bot, chatID int64, topicID int, text string, kb models.ReplyMarkup) {
	params := &bot.SendMessageParams{
		ChatID:          chatID,
		MessageThreadID: topicID,
		Text:            text,
		ParseMode:       models.ParseModeHTML,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}

	if _, err := b.SendMessage(ctx, params); err != nil {
		slog.ErrorContext(ctx, "Sending message failed", "chat_id", chatID, logger.Err(err))
	}
}

// sendError logs err and shows the user a fixed notice. Transport details
// stay in the log.
func sendError(ctx context.Context, b *bot.Bot, chatID int64, topicID int, notice string, err error) {
	slog.ErrorContext(ctx, notice, "chat_id", chatID, logger.Err(err))

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          chatID,
		MessageThreadID: topicID,
		Text:            "❌ " + notice + ". Please try again later.",
	})
}

// sendScreen shows the current shell state with the history controls under it.
func sendScreen(ctx context.Context, b *bot.Bot, chatID int64, topicID int, st shell.State, text string) {
	sendHTML(ctx, b, chatID, topicID, text, screenKeyboard(st))
}

func persist(ctx context.Context, provider SessionProvider, sess *sessions.Session) {
	if err := provider.Persist(ctx, sess); err != nil {
		slog.WarnContext(ctx, "Saving session failed", "chat_id", sess.Key.ChatID, logger.Err(err))
	}
}

func downloadFile(ctx context.Context, b *bot.Bot, fileID string) ([]byte, error) {
	file, err := b.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("getting file metadata: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading file: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// imageOf extracts the file carried by a message: the largest photo size or
// a document. The declared MIME type of photos is always JPEG.
func imageOf(ctx context.Context, b *bot.Bot, msg *models.Message) (domain.ImageFile, bool, error) {
	switch {
	case len(msg.Photo) > 0:
		photo := msg.Photo[len(msg.Photo)-1]
		data, err := downloadFile(ctx, b, photo.FileID)
		if err != nil {
			return domain.ImageFile{}, true, err
		}
		return domain.ImageFile{Name: photo.FileUniqueID + ".jpg", MimeType: "image/jpeg", Data: data}, true, nil
	case msg.Document != nil:
		data, err := downloadFile(ctx, b, msg.Document.FileID)
		if err != nil {
			return domain.ImageFile{}, true, err
		}
		return domain.ImageFile{Name: msg.Document.FileName, MimeType: msg.Document.MimeType, Data: data}, true, nil
	default:
		return domain.ImageFile{}, false, nil
	}
}
