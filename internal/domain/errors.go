package domain

import "errors"

var (
	// ErrTemplateNotFound indicates no quiz template matches the request.
	ErrTemplateNotFound = errors.New("quiz template not found")
	// ErrSessionNotFound is returned when a session id does not resolve.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionCompleted is returned when a completed session is graded or completed again.
	ErrSessionCompleted = errors.New("quiz session already completed")
	// ErrQuestionNotFound indicates a question id is not in the session snapshot.
	ErrQuestionNotFound = errors.New("question not found in session snapshot")
	// ErrChoiceNotFound indicates the submitted letter or choice id is invalid.
	ErrChoiceNotFound = errors.New("choice not found for question")
	// ErrQuestionAnswered indicates the question already has an answer on record.
	ErrQuestionAnswered = errors.New("question already answered")
	// ErrNoQuestionsLeft indicates every question in the session has been answered.
	ErrNoQuestionsLeft = errors.New("all questions already answered")
	// ErrProfileNotFound is returned when a profile id does not resolve.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrInvalidBatch indicates a generated question batch failed validation.
	ErrInvalidBatch = errors.New("generated question batch failed validation")
)
