package memory

import (
	"context"
	"sync"
	"time"

	"shule-quiz-service/internal/domain"
	"shule-quiz-service/internal/quiz"
)

// SessionStore is an in-memory implementation of quiz.SessionStore.
// Sessions and answers are stored by value; callers never share slices with
// the store, so a snapshot cannot be mutated after creation.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	answers  map[string][]domain.Answer
}

var _ quiz.SessionStore = (*SessionStore)(nil)

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.Session),
		answers:  make(map[string][]domain.Answer),
	}
}

func (s *SessionStore) CreateSession(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.Snapshot = cloneSnapshot(session.Snapshot)
	s.sessions[session.ID] = session
	return nil
}

func (s *SessionStore) GetSession(_ context.Context, id string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	session.Snapshot = cloneSnapshot(session.Snapshot)
	return session, nil
}

func (s *SessionStore) AppendAnswer(_ context.Context, answer domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[answer.SessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	for _, a := range s.answers[answer.SessionID] {
		if a.QuestionID == answer.QuestionID {
			return domain.ErrQuestionAnswered
		}
	}
	s.answers[answer.SessionID] = append(s.answers[answer.SessionID], answer)
	return nil
}

func (s *SessionStore) ListAnswers(_ context.Context, sessionID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return nil, domain.ErrSessionNotFound
	}
	answers := s.answers[sessionID]
	out := make([]domain.Answer, len(answers))
	copy(out, answers)
	return out, nil
}

func (s *SessionStore) MarkCompleted(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return false, domain.ErrSessionNotFound
	}
	if session.Completed {
		return false, nil
	}
	session.Completed = true
	completedAt := at
	session.CompletedAt = &completedAt
	s.sessions[id] = session
	return true, nil
}

func cloneSnapshot(snapshot []domain.SnapshotQuestion) []domain.SnapshotQuestion {
	out := make([]domain.SnapshotQuestion, len(snapshot))
	for i, q := range snapshot {
		q.Choices = append([]domain.SnapshotChoice(nil), q.Choices...)
		out[i] = q
	}
	return out
}
