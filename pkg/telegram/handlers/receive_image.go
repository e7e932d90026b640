package handlers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"github.com/dskvich/classifier-bot/pkg/batch"
	"github.com/dskvich/classifier-bot/pkg/domain"
	"github.com/dskvich/classifier-bot/pkg/logger"
	"github.com/dskvich/classifier-bot/pkg/render"
	"github.com/dskvich/classifier-bot/pkg/upload"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const notImageNotice = "⚠️ Please choose an image file!"

type AlbumCollector interface {
	Add(id string, file domain.ImageFile, flush batch.FlushFunc)
}

type BatchPredictor interface {
	PredictBatch(ctx context.Context, files []domain.ImageFile) ([]domain.PredictionResult, error)
}

// ReceiveImage turns an incoming photo or document into a widget selection and
// replies with the preview. Albums are collected and classified as a batch.
func ReceiveImage(provider SessionProvider, albums AlbumCollector, predictor BatchPredictor) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}

		chatID, topicID, ok := chatOf(update)
		if !ok {
			return
		}
		msg := update.Message

		file, ok, err := imageOf(ctx, b, msg)
		if !ok {
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:          chatID,
				MessageThreadID: topicID,
				Text:            "🖼 Send me an image to classify, or /start for help.",
			})
			return
		}
		if err != nil {
			sendError(ctx, b, chatID, topicID, "Could not get the file", err)
			return
		}

		if msg.MediaGroupID != "" {
			if !file.IsImage() {
				sendHTML(ctx, b, chatID, topicID, notImageNotice, nil)
				return
			}
			slog.InfoContext(ctx, "Album image queued", "group", msg.MediaGroupID, "file", file.Name)
			albums.Add(msg.MediaGroupID, file, classifyAlbum(b, predictor, chatID, topicID))
			return
		}

		sess := provider.Get(ctx, chatID, topicID)

		if err := sess.Widget.FileSelected(file); err != nil {
			if errors.Is(err, upload.ErrNotImage) {
				sendHTML(ctx, b, chatID, topicID, notImageNotice, nil)
				return
			}
			sendError(ctx, b, chatID, topicID, "Could not select the file", err)
			return
		}

		slog.InfoContext(ctx, "Image selected", "file", file.Name, "size", len(file.Data))

		preview, err := sess.Widget.LoadPreview(ctx)
		if err != nil {
			if errors.Is(err, upload.ErrStale) {
				return
			}
			sess.Widget.Remove()
			sendError(ctx, b, chatID, topicID, "Could not read the image", err)
			return
		}

		if _, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:          chatID,
			MessageThreadID: topicID,
			Photo: &models.InputFileUpload{
				Filename: "preview.jpg",
				Data:     bytes.NewReader(preview.Image),
			},
			Caption:     render.FileInfo(file),
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: previewKeyboard(),
		}); err != nil {
			slog.ErrorContext(ctx, "Sending preview failed", logger.Err(err))
		}
	}
}

func classifyAlbum(b *bot.Bot, predictor BatchPredictor, chatID int64, topicID int) batch.FlushFunc {
	return func(ctx context.Context, files []domain.ImageFile) {
		slog.InfoContext(ctx, "Classifying album", "chat_id", chatID, "files", len(files))

		results, err := predictor.PredictBatch(ctx, files)
		if err != nil {
			sendError(ctx, b, chatID, topicID, "Batch classification failed", err)
			return
		}

		sendHTML(ctx, b, chatID, topicID, render.Batch(results), nil)
	}
}
