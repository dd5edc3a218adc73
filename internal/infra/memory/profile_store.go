package memory

import (
	"context"
	"sync"
	"time"

	"shule-quiz-service/internal/domain"
	"shule-quiz-service/internal/quiz"
)

// ProfileStore is an in-memory implementation of quiz.ProfileStore.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

var _ quiz.ProfileStore = (*ProfileStore)(nil)

func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]domain.Profile)}
}

func (s *ProfileStore) CreateProfile(_ context.Context, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.ID] = profile
	return nil
}

func (s *ProfileStore) GetProfile(_ context.Context, id string) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[id]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return profile, nil
}

func (s *ProfileStore) ApplyQuizReward(_ context.Context, profileID string, sparksDelta, newStreak, newLongestStreak int, day time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[profileID]
	if !ok {
		return domain.ErrProfileNotFound
	}
	profile.Sparks += sparksDelta
	profile.CurrentStreak = newStreak
	profile.LongestStreak = newLongestStreak
	lastQuiz := day
	profile.LastQuizDate = &lastQuiz
	s.profiles[profileID] = profile
	return nil
}
