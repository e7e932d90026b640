package handlers

import (
	"github.com/dskvich/classifier-bot/pkg/domain"
	"github.com/dskvich/classifier-bot/pkg/shell"
	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"
)

func previewKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "🔍 Classify Image", CallbackData: domain.ClassifyCallback},
			{Text: "🗑 Remove", CallbackData: domain.RemoveImageCallback},
		}},
	}
}

// screenKeyboard offers the history toggle, and clearing only when there is
// something to clear.
func screenKeyboard(st shell.State) *models.InlineKeyboardMarkup {
	row := []models.InlineKeyboardButton{{
		Text:         lo.Ternary(st.ShowHistory, "🙈 Hide History", "📜 Show History"),
		CallbackData: domain.ToggleHistoryCallback,
	}}
	if len(st.History) > 0 {
		row = append(row, models.InlineKeyboardButton{Text: "🧹 Clear History", CallbackData: domain.ClearHistoryCallback})
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{row}}
}

func confirmKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "✅ Yes", CallbackData: domain.ConfirmClearCallbackPrefix + domain.ConfirmYes},
			{Text: "↩️ No", CallbackData: domain.ConfirmClearCallbackPrefix + domain.ConfirmNo},
		}},
	}
}
