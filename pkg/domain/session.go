package domain

import "time"

// Session holds the per-chat view preferences that survive a restart.
type Session struct {
	ChatID         int64             `bun:",pk"`
	TopicID        int               `bun:",pk"`
	ShowHistory    bool              `bun:"show_history"`
	LastPrediction *PredictionResult `bun:"last_prediction,type:jsonb"`
	UpdatedAt      time.Time         `bun:"updated_at"`
}

func NewSession(chatID int64, topicID int) *Session {
	return &Session{
		ChatID:  chatID,
		TopicID: topicID,
	}
}
