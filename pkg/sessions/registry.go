// Package sessions keeps one Application Shell and one Upload Widget per chat.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dskvich/classifier-bot/pkg/domain"
	"github.com/dskvich/classifier-bot/pkg/logger"
	"github.com/dskvich/classifier-bot/pkg/shell"
	"github.com/dskvich/classifier-bot/pkg/upload"
)

type Key struct {
	ChatID  int64
	TopicID int
}

type Store interface {
	Get(ctx context.Context, chatID int64, topicID int) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
}

type Session struct {
	Key    Key
	Shell  *shell.Shell
	Widget *upload.Widget

	// guarded by Registry.mu
	lastUsed time.Time
}

// Classify submits the selected image and clears the selection once the
// prediction succeeds.
func (s *Session) Classify(ctx context.Context) error {
	if err := s.Widget.Submit(ctx, s.Shell.State().Loading); err != nil {
		return err
	}
	s.Widget.Remove()
	return nil
}

type Registry struct {
	api       shell.API
	store     Store
	previewer upload.Previewer

	now func() time.Time

	mu       sync.Mutex
	sessions map[Key]*Session
}

func NewRegistry(api shell.API, store Store, previewer upload.Previewer) *Registry {
	if previewer == nil {
		previewer = upload.NewThumbnailPreviewer(upload.DefaultPreviewSide)
	}
	return &Registry{
		api:       api,
		store:     store,
		previewer: previewer,
		now:       time.Now,
		sessions:  make(map[Key]*Session),
	}
}

// Get returns the chat's session, mounting a new one on first use. A new
// session restores persisted preferences and loads model info and history;
// neither failing is fatal.
func (r *Registry) Get(ctx context.Context, chatID int64, topicID int) *Session {
	key := Key{ChatID: chatID, TopicID: topicID}

	r.mu.Lock()
	if sess, ok := r.sessions[key]; ok {
		sess.lastUsed = r.now()
		r.mu.Unlock()
		return sess
	}

	sh := shell.New(r.api)
	sess := &Session{
		Key:      key,
		Shell:    sh,
		Widget:   upload.NewWidget(sh.Predict, upload.WithPreviewer(r.previewer)),
		lastUsed: r.now(),
	}
	r.sessions[key] = sess
	r.mu.Unlock()

	r.restore(ctx, sess)

	if err := sh.Mount(ctx); err != nil {
		slog.WarnContext(ctx, "Session mounted without some data", "chat_id", chatID, logger.Err(err))
	}

	return sess
}

func (r *Registry) restore(ctx context.Context, sess *Session) {
	if r.store == nil {
		return
	}

	saved, err := r.store.Get(ctx, sess.Key.ChatID, sess.Key.TopicID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.WarnContext(ctx, "Restoring session failed", "chat_id", sess.Key.ChatID, logger.Err(err))
		}
		return
	}

	sess.Shell.Restore(saved)
}

// Persist stores the view preferences of the session.
func (r *Registry) Persist(ctx context.Context, sess *Session) error {
	if r.store == nil {
		return nil
	}

	st := sess.Shell.State()
	record := domain.NewSession(sess.Key.ChatID, sess.Key.TopicID)
	record.ShowHistory = st.ShowHistory
	record.LastPrediction = st.Prediction

	if err := r.store.Save(ctx, record); err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

// Evict drops sessions unused for longer than idle, except those waiting on a
// prediction. Preferences survive in the store and come back on the next Get;
// an unclassified selection does not.
func (r *Registry) Evict(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for key, sess := range r.sessions {
		if sess.lastUsed.After(cutoff) || sess.Shell.State().Loading {
			continue
		}
		delete(r.sessions, key)
		evicted++
	}
	return evicted
}
