package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dskvich/classifier-bot/pkg/domain"
	"github.com/uptrace/bun"
)

type sessionRepository struct {
	db *bun.DB
}

func NewSessionRepository(db *bun.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func (s *sessionRepository) Save(ctx context.Context, session *domain.Session) error {
	session.UpdatedAt = time.Now()

	_, err := s.db.NewInsert().
		Model(session).
		On("CONFLICT (chat_id, topic_id) DO UPDATE").
		Set("show_history = EXCLUDED.show_history").
		Set("last_prediction = EXCLUDED.last_prediction").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	return nil
}

func (s *sessionRepository) Get(ctx context.Context, chatID int64, topicID int) (*domain.Session, error) {
	var session domain.Session

	err := s.db.NewSelect().
		Model(&session).
		Where("chat_id = ?", chatID).
		Where("topic_id = ?", topicID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("fetching session: %w", err)
	}

	return &session, nil
}
