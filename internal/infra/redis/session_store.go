package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"shule-quiz-service/internal/domain"
	"shule-quiz-service/internal/quiz"
)

// SessionStore decorates a persistent quiz.SessionStore with Redis liveness
// markers for in-progress attempts. Notes:
//   - The inner store remains the source of truth; Redis only marks which
//     sessions are active (useful for dashboards and idle-session sweeps).
//   - Markers are best-effort: a Redis outage never fails a quiz operation.
type SessionStore struct {
	inner  quiz.SessionStore
	client *redis.Client
	ttl    time.Duration
}

var _ quiz.SessionStore = (*SessionStore)(nil)

func NewSessionStore(inner quiz.SessionStore, client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{inner: inner, client: client, ttl: ttl}
}

func (s *SessionStore) CreateSession(ctx context.Context, session domain.Session) error {
	if err := s.inner.CreateSession(ctx, session); err != nil {
		return err
	}
	_ = s.client.Set(ctx, s.key(session.ID), "1", s.ttl).Err()
	return nil
}

func (s *SessionStore) GetSession(ctx context.Context, id string) (domain.Session, error) {
	return s.inner.GetSession(ctx, id)
}

func (s *SessionStore) AppendAnswer(ctx context.Context, answer domain.Answer) error {
	if err := s.inner.AppendAnswer(ctx, answer); err != nil {
		return err
	}
	// refresh liveness while the attempt is active
	_ = s.client.Expire(ctx, s.key(answer.SessionID), s.ttl).Err()
	return nil
}

func (s *SessionStore) ListAnswers(ctx context.Context, sessionID string) ([]domain.Answer, error) {
	return s.inner.ListAnswers(ctx, sessionID)
}

func (s *SessionStore) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	won, err := s.inner.MarkCompleted(ctx, id, at)
	if won {
		_ = s.client.Del(ctx, s.key(id)).Err()
	}
	return won, err
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
