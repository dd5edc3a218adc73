package quiz

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"shule-quiz-service/internal/domain"
)

// TemplateFilter narrows the template lookup for a new session.
type TemplateFilter struct {
	Curriculum string
	Level      string
	Subject    string
	QuizType   domain.QuizType
	TopicID    string
	Term       int
}

// TemplateRepository loads admin-curated quiz templates (from cache/backing store).
type TemplateRepository interface {
	FindTemplate(ctx context.Context, filter TemplateFilter) (domain.QuizTemplate, error)
}

// SessionStore persists sessions and their append-only answer logs.
// MarkCompleted is a compare-and-set on the completed flag: it reports false
// when the session was already completed, so completion applies at most once.
type SessionStore interface {
	CreateSession(ctx context.Context, session domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, error)
	AppendAnswer(ctx context.Context, answer domain.Answer) error
	ListAnswers(ctx context.Context, sessionID string) ([]domain.Answer, error)
	MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error)
}

// ProfileStore holds per-user reward records. ApplyQuizReward is the single
// mutating call made on completion.
type ProfileStore interface {
	CreateProfile(ctx context.Context, profile domain.Profile) error
	GetProfile(ctx context.Context, id string) (domain.Profile, error)
	ApplyQuizReward(ctx context.Context, profileID string, sparksDelta, newStreak, newLongestStreak int, day time.Time) error
}

// ContentGenerator manufactures quiz content when no template matches.
type ContentGenerator interface {
	GenerateQuestions(ctx context.Context, gc domain.GenerationContext) ([]domain.GeneratedQuestion, error)
	GenerateTopicNotes(ctx context.Context, gc domain.GenerationContext) (string, error)
}

// Engine contains the quiz-session lifecycle use cases: snapshot creation,
// answer grading, and completion rewards.
type Engine struct {
	templates TemplateRepository
	sessions  SessionStore
	profiles  ProfileStore
	generator ContentGenerator
	now       func() time.Time
	newID     func() string
}

func NewEngine(templates TemplateRepository, sessions SessionStore, profiles ProfileStore, generator ContentGenerator) *Engine {
	return &Engine{
		templates: templates,
		sessions:  sessions,
		profiles:  profiles,
		generator: generator,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// NewEngineWithClock is test-only for deterministic timestamps and ids.
func NewEngineWithClock(templates TemplateRepository, sessions SessionStore, profiles ProfileStore, generator ContentGenerator, now func() time.Time, newID func() string) *Engine {
	e := NewEngine(templates, sessions, profiles, generator)
	if now != nil {
		e.now = now
	}
	if newID != nil {
		e.newID = newID
	}
	return e
}

// CreateSessionRequest carries the classification parameters for a new attempt.
type CreateSessionRequest struct {
	UserID           string          `json:"userId"`
	ProfileID        string          `json:"profileId"`
	Curriculum       string          `json:"curriculum"`
	Level            string          `json:"level"`
	Subject          string          `json:"subject"`
	QuizType         domain.QuizType `json:"quizType"`
	TopicID          string          `json:"topicId,omitempty"`
	Term             int             `json:"term,omitempty"`
	QuestionCount    int             `json:"questionCount"`
	TimeLimitMinutes int             `json:"timeLimitMinutes"`
}

// CreateSession resolves a template (falling back to the content generator
// when none matches), freezes its questions into a snapshot, and persists a
// new session. Generation failures abort the whole request; nothing partial
// is stored.
func (e *Engine) CreateSession(ctx context.Context, req CreateSessionRequest) (domain.Session, error) {
	snapshot, err := e.resolveSnapshot(ctx, req)
	if err != nil {
		return domain.Session{}, err
	}

	session := domain.Session{
		ID:               e.newID(),
		UserID:           req.UserID,
		ProfileID:        req.ProfileID,
		Curriculum:       req.Curriculum,
		Level:            req.Level,
		Subject:          req.Subject,
		QuizType:         req.QuizType,
		TopicID:          req.TopicID,
		Term:             req.Term,
		TotalQuestions:   len(snapshot),
		TimeLimitMinutes: req.TimeLimitMinutes,
		Snapshot:         snapshot,
		StartedAt:        e.now(),
	}
	if err := e.sessions.CreateSession(ctx, session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

func (e *Engine) resolveSnapshot(ctx context.Context, req CreateSessionRequest) ([]domain.SnapshotQuestion, error) {
	tmpl, err := e.templates.FindTemplate(ctx, TemplateFilter{
		Curriculum: req.Curriculum,
		Level:      req.Level,
		Subject:    req.Subject,
		QuizType:   req.QuizType,
		TopicID:    req.TopicID,
		Term:       req.Term,
	})
	if err == nil {
		return SnapshotFromTemplate(tmpl.Questions, req.QuestionCount)
	}
	if !errors.Is(err, domain.ErrTemplateNotFound) || e.generator == nil {
		return nil, err
	}

	batch, err := e.generator.GenerateQuestions(ctx, domain.GenerationContext{
		Curriculum: req.Curriculum,
		Level:      req.Level,
		Subject:    req.Subject,
		Topic:      req.TopicID,
		Term:       req.Term,
		Count:      req.QuestionCount,
	})
	if err != nil {
		return nil, err
	}
	return SnapshotFromGenerated(batch, req.QuestionCount)
}

// SubmitAnswer grades one submission against the session snapshot, appends it
// to the answer log, and reports sparks awarded. The cursor position is the
// answer count, so it advances by exactly one per accepted submission.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID string, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	session, err := e.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if session.Completed {
		return domain.AnswerResult{}, domain.ErrSessionCompleted
	}

	answers, err := e.sessions.ListAnswers(ctx, sessionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if len(answers) >= session.TotalQuestions {
		return domain.AnswerResult{}, domain.ErrNoQuestionsLeft
	}
	for _, a := range answers {
		if a.QuestionID == sub.QuestionID {
			return domain.AnswerResult{}, domain.ErrQuestionAnswered
		}
	}

	question, err := findQuestion(session.Snapshot, sub.QuestionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	choice, err := resolveChoice(question, sub.Choice)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	sparks := 0
	if choice.IsCorrect {
		sparks = SparksFor(question.Difficulty)
	}
	answer := domain.Answer{
		SessionID:        sessionID,
		QuestionID:       question.ID,
		ChoiceID:         choice.ID,
		Correct:          choice.IsCorrect,
		Sparks:           sparks,
		TimeSpentSeconds: sub.TimeSpentSeconds,
		SubmittedAt:      e.now(),
	}
	if err := e.sessions.AppendAnswer(ctx, answer); err != nil {
		return domain.AnswerResult{}, err
	}

	return domain.AnswerResult{
		QuestionID:    question.ID,
		ChoiceID:      choice.ID,
		Correct:       choice.IsCorrect,
		Sparks:        sparks,
		QuestionIndex: len(answers) + 1,
		Explanation:   question.Explanation,
	}, nil
}

// Complete freezes the session, derives the final tally from the answer log,
// and applies the reward to the owning profile exactly once. A second call
// loses the compare-and-set and gets ErrSessionCompleted.
func (e *Engine) Complete(ctx context.Context, sessionID string) (domain.QuizResult, error) {
	session, err := e.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.QuizResult{}, err
	}

	completedAt := e.now()
	won, err := e.sessions.MarkCompleted(ctx, sessionID, completedAt)
	if err != nil {
		return domain.QuizResult{}, err
	}
	if !won {
		return domain.QuizResult{}, domain.ErrSessionCompleted
	}

	answers, err := e.sessions.ListAnswers(ctx, sessionID)
	if err != nil {
		return domain.QuizResult{}, err
	}
	correctAnswers, sparksEarned := tally(answers)

	finalSparks := FinalSparks(sparksEarned, correctAnswers, session.TotalQuestions)
	percentage := Percentage(correctAnswers, session.TotalQuestions)

	profile, err := e.profiles.GetProfile(ctx, session.ProfileID)
	if err != nil {
		return domain.QuizResult{}, err
	}
	today := DateOnly(completedAt)
	newStreak := NextStreak(profile.LastQuizDate, profile.CurrentStreak, today)
	newLongest := profile.LongestStreak
	if newStreak > newLongest {
		newLongest = newStreak
	}
	if err := e.profiles.ApplyQuizReward(ctx, session.ProfileID, finalSparks, newStreak, newLongest, today); err != nil {
		return domain.QuizResult{}, err
	}

	return domain.QuizResult{
		SessionID:      sessionID,
		TotalQuestions: session.TotalQuestions,
		CorrectAnswers: correctAnswers,
		SparksEarned:   sparksEarned,
		FinalSparks:    finalSparks,
		Accuracy:       Accuracy(correctAnswers, session.TotalQuestions),
		Percentage:     percentage,
		Grade:          GradeFor(percentage),
		CurrentStreak:  newStreak,
		LongestStreak:  newLongest,
	}, nil
}

// GetSession returns a client view of a session with correct flags and
// explanations stripped from the snapshot, plus the derived cursor state.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (domain.Session, int, int, error) {
	session, err := e.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, 0, 0, err
	}
	answers, err := e.sessions.ListAnswers(ctx, sessionID)
	if err != nil {
		return domain.Session{}, 0, 0, err
	}
	correctAnswers, _ := tally(answers)
	session.Snapshot = RedactSnapshot(session.Snapshot)
	return session, len(answers), correctAnswers, nil
}

// CreateProfile registers a fresh reward record for a user and curriculum.
func (e *Engine) CreateProfile(ctx context.Context, userID, curriculum string) (domain.Profile, error) {
	profile := domain.Profile{
		ID:         e.newID(),
		UserID:     userID,
		Curriculum: curriculum,
	}
	if err := e.profiles.CreateProfile(ctx, profile); err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}

// GetProfile is a read-side passthrough.
func (e *Engine) GetProfile(ctx context.Context, profileID string) (domain.Profile, error) {
	return e.profiles.GetProfile(ctx, profileID)
}

// GenerateTopicNotes asks the content generator for markdown study notes.
func (e *Engine) GenerateTopicNotes(ctx context.Context, gc domain.GenerationContext) (string, error) {
	if e.generator == nil {
		return "", errors.New("content generator not configured")
	}
	return e.generator.GenerateTopicNotes(ctx, gc)
}

func tally(answers []domain.Answer) (correct, sparks int) {
	for _, a := range answers {
		if a.Correct {
			correct++
		}
		sparks += a.Sparks
	}
	return correct, sparks
}

func findQuestion(snapshot []domain.SnapshotQuestion, questionID string) (domain.SnapshotQuestion, error) {
	for i := range snapshot {
		if snapshot[i].ID == questionID {
			return snapshot[i], nil
		}
	}
	return domain.SnapshotQuestion{}, domain.ErrQuestionNotFound
}

// resolveChoice accepts either a letter (A-D, resolved through orderIndex) or
// a snapshot choice id. Literal answer text is not accepted: choice contents
// are not unique by construction, so text matching is ambiguous.
func resolveChoice(q domain.SnapshotQuestion, choice string) (domain.SnapshotChoice, error) {
	if idx := letterIndex(choice); idx > 0 {
		for i := range q.Choices {
			if q.Choices[i].OrderIndex == idx {
				return q.Choices[i], nil
			}
		}
		return domain.SnapshotChoice{}, domain.ErrChoiceNotFound
	}
	for i := range q.Choices {
		if q.Choices[i].ID == choice {
			return q.Choices[i], nil
		}
	}
	return domain.SnapshotChoice{}, domain.ErrChoiceNotFound
}

// letterIndex maps A-D (or a-d) to orderIndex 1-4, 0 otherwise.
func letterIndex(s string) int {
	if len(s) != 1 {
		return 0
	}
	switch c := s[0]; {
	case c >= 'A' && c <= 'D':
		return int(c-'A') + 1
	case c >= 'a' && c <= 'd':
		return int(c-'a') + 1
	default:
		return 0
	}
}
