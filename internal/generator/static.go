package generator

import (
	"context"

	"shule-quiz-service/internal/domain"
)

// Static is a canned generator backed by fixed batches, keyed by subject
// (useful for tests and demos without a model endpoint).
type Static struct {
	batches map[string][]domain.GeneratedQuestion
	notes   map[string]string
}

func NewStatic(batches map[string][]domain.GeneratedQuestion, notes map[string]string) *Static {
	return &Static{batches: batches, notes: notes}
}

func (s *Static) GenerateQuestions(_ context.Context, gc domain.GenerationContext) ([]domain.GeneratedQuestion, error) {
	if batch, ok := s.batches[gc.Subject]; ok {
		return batch, nil
	}
	return nil, &GenerateError{Reason: "no canned batch for subject " + gc.Subject}
}

func (s *Static) GenerateTopicNotes(_ context.Context, gc domain.GenerationContext) (string, error) {
	if notes, ok := s.notes[gc.Topic]; ok {
		return notes, nil
	}
	return "", &GenerateError{Reason: "no canned notes for topic " + gc.Topic}
}
