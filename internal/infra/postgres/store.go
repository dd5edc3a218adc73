package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"shule-quiz-service/internal/domain"
	"shule-quiz-service/internal/quiz"
)

// Store persists sessions, their append-only answer logs, and profiles.
// It implements both quiz.SessionStore and quiz.ProfileStore.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ quiz.SessionStore = (*Store)(nil)
	_ quiz.ProfileStore = (*Store)(nil)
)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateSession(ctx context.Context, session domain.Session) error {
	snapshot, err := json.Marshal(session.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quiz_sessions
			(id, user_id, profile_id, curriculum, level, subject, quiz_type, topic_id, term,
			 total_questions, time_limit_minutes, questions_snapshot, completed, started_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,false,$13)`,
		session.ID, session.UserID, session.ProfileID, session.Curriculum, session.Level,
		session.Subject, string(session.QuizType), session.TopicID, session.Term,
		session.TotalQuestions, session.TimeLimitMinutes, snapshot, session.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (domain.Session, error) {
	var (
		session  domain.Session
		quizType string
		raw      []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, profile_id, curriculum, level, subject, quiz_type, topic_id, term,
		       total_questions, time_limit_minutes, questions_snapshot, completed, started_at, completed_at
		FROM quiz_sessions WHERE id = $1`, id,
	).Scan(
		&session.ID, &session.UserID, &session.ProfileID, &session.Curriculum, &session.Level,
		&session.Subject, &quizType, &session.TopicID, &session.Term,
		&session.TotalQuestions, &session.TimeLimitMinutes, &raw, &session.Completed,
		&session.StartedAt, &session.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	session.QuizType = domain.QuizType(quizType)
	if err := json.Unmarshal(raw, &session.Snapshot); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return session, nil
}

func (s *Store) AppendAnswer(ctx context.Context, answer domain.Answer) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quiz_answers
			(session_id, question_id, choice_id, correct, sparks, time_spent_seconds, submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		answer.SessionID, answer.QuestionID, answer.ChoiceID, answer.Correct,
		answer.Sparks, answer.TimeSpentSeconds, answer.SubmittedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation on (session_id, question_id)
			return domain.ErrQuestionAnswered
		case "23503": // foreign_key_violation on session_id
			return domain.ErrSessionNotFound
		}
	}
	if err != nil {
		return fmt.Errorf("append answer: %w", err)
	}
	return nil
}

func (s *Store) ListAnswers(ctx context.Context, sessionID string) ([]domain.Answer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, question_id, choice_id, correct, sparks, time_spent_seconds, submitted_at
		FROM quiz_answers WHERE session_id = $1 ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var answers []domain.Answer
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.SessionID, &a.QuestionID, &a.ChoiceID, &a.Correct, &a.Sparks, &a.TimeSpentSeconds, &a.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return answers, nil
}

// MarkCompleted flips the completed flag with a compare-and-set so a session
// can be completed at most once, even under racing requests.
func (s *Store) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	ct, err := s.pool.Exec(ctx, `
		UPDATE quiz_sessions SET completed = true, completed_at = $2
		WHERE id = $1 AND NOT completed`, id, at)
	if err != nil {
		return false, fmt.Errorf("mark completed: %w", err)
	}
	if ct.RowsAffected() == 1 {
		return true, nil
	}

	var completed bool
	err = s.pool.QueryRow(ctx, `SELECT completed FROM quiz_sessions WHERE id = $1`, id).Scan(&completed)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, domain.ErrSessionNotFound
	}
	if err != nil {
		return false, fmt.Errorf("mark completed: %w", err)
	}
	return false, nil
}

func (s *Store) CreateProfile(ctx context.Context, profile domain.Profile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (id, user_id, curriculum, sparks, current_streak, longest_streak, last_quiz_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		profile.ID, profile.UserID, profile.Curriculum, profile.Sparks,
		profile.CurrentStreak, profile.LongestStreak, profile.LastQuizDate,
	)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (domain.Profile, error) {
	var profile domain.Profile
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, curriculum, sparks, current_streak, longest_streak, last_quiz_date
		FROM profiles WHERE id = $1`, id,
	).Scan(&profile.ID, &profile.UserID, &profile.Curriculum, &profile.Sparks,
		&profile.CurrentStreak, &profile.LongestStreak, &profile.LastQuizDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

func (s *Store) ApplyQuizReward(ctx context.Context, profileID string, sparksDelta, newStreak, newLongestStreak int, day time.Time) error {
	ct, err := s.pool.Exec(ctx, `
		UPDATE profiles
		SET sparks = sparks + $2, current_streak = $3, longest_streak = $4, last_quiz_date = $5
		WHERE id = $1`,
		profileID, sparksDelta, newStreak, newLongestStreak, day)
	if err != nil {
		return fmt.Errorf("apply quiz reward: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}
