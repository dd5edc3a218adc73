package quiz_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"shule-quiz-service/internal/domain"
	"shule-quiz-service/internal/generator"
	"shule-quiz-service/internal/infra/memory"
	"shule-quiz-service/internal/quiz"
)

var testNow = time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

func TestPerfectRunAwardsAllBonuses(t *testing.T) {
	ctx := context.Background()
	engine, profiles := newTestEngine(t, []domain.QuizTemplate{threeQuestionTemplate()}, nil)

	profile := mustCreateProfile(t, ctx, engine)
	session := mustCreateSession(t, ctx, engine, profile.ID)
	if session.TotalQuestions != 3 {
		t.Fatalf("expected 3 questions, got %d", session.TotalQuestions)
	}

	// correct letters are B, A, D; timings must not affect grading
	wantSparks := []int{5, 10, 15}
	for i, letter := range []string{"B", "A", "D"} {
		result, err := engine.SubmitAnswer(ctx, session.ID, domain.AnswerSubmission{
			QuestionID:       fmt.Sprintf("q_%d", i+1),
			Choice:           letter,
			TimeSpentSeconds: 7 * (i + 1),
		})
		if err != nil {
			t.Fatalf("submit %s: %v", letter, err)
		}
		if !result.Correct || result.Sparks != wantSparks[i] {
			t.Fatalf("answer %d: got correct=%v sparks=%d, want correct with %d", i+1, result.Correct, result.Sparks, wantSparks[i])
		}
		if result.QuestionIndex != i+1 {
			t.Fatalf("expected cursor %d, got %d", i+1, result.QuestionIndex)
		}
	}

	result, err := engine.Complete(ctx, session.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.SparksEarned != 30 || result.FinalSparks != 100 {
		t.Fatalf("expected 30 earned / 100 final, got %d / %d", result.SparksEarned, result.FinalSparks)
	}
	if result.Percentage != 100 || result.Grade != "A" {
		t.Fatalf("expected 100%% grade A, got %d%% %s", result.Percentage, result.Grade)
	}
	if result.CurrentStreak != 1 {
		t.Fatalf("expected streak 1, got %d", result.CurrentStreak)
	}

	updated, err := profiles.GetProfile(ctx, profile.ID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if updated.Sparks != 100 || updated.CurrentStreak != 1 || updated.LongestStreak != 1 {
		t.Fatalf("profile not rewarded: %+v", updated)
	}
	if updated.LastQuizDate == nil || !updated.LastQuizDate.Equal(quiz.DateOnly(testNow)) {
		t.Fatalf("expected lastQuizDate %v, got %v", quiz.DateOnly(testNow), updated.LastQuizDate)
	}
}

func TestOneWrongAnswerScenario(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, []domain.QuizTemplate{threeQuestionTemplate()}, nil)

	profile := mustCreateProfile(t, ctx, engine)
	session := mustCreateSession(t, ctx, engine, profile.ID)

	first, err := engine.SubmitAnswer(ctx, session.ID, domain.AnswerSubmission{QuestionID: "q_1", Choice: "A"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if first.Correct || first.Sparks != 0 {
		t.Fatalf("expected wrong answer with 0 sparks, got %+v", first)
	}
	for i, letter := range []string{"A", "D"} {
		if _, err := engine.SubmitAnswer(ctx, session.ID, domain.AnswerSubmission{
			QuestionID: fmt.Sprintf("q_%d", i+2), Choice: letter,
		}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	result, err := engine.Complete(ctx, session.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.CorrectAnswers != 2 || result.SparksEarned != 25 {
		t.Fatalf("expected 2 correct / 25 sparks, got %d / %d", result.CorrectAnswers, result.SparksEarned)
	}
	if result.FinalSparks != 45 {
		t.Fatalf("expected 45 final sparks (no perfect bonus), got %d", result.FinalSparks)
	}
	if result.Percentage != 67 || result.Grade != "C+" {
		t.Fatalf("expected 67%% grade C+, got %d%% %s", result.Percentage, result.Grade)
	}
}

func TestCompletionAppliesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	engine, profiles := newTestEngine(t, []domain.QuizTemplate{threeQuestionTemplate()}, nil)

	profile := mustCreateProfile(t, ctx, engine)
	session := mustCreateSession(t, ctx, engine, profile.ID)

	if _, err := engine.Complete(ctx, session.ID); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	if _, err := engine.Complete(ctx, session.ID); !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected ErrSessionCompleted, got %v", err)
	}

	// the profile must have been rewarded once, not twice
	updated, _ := profiles.GetProfile(ctx, profile.ID)
	if updated.Sparks != quiz.CompletionBonus {
		t.Fatalf("expected %d sparks after double complete, got %d", quiz.CompletionBonus, updated.Sparks)
	}

	if _, err := engine.SubmitAnswer(ctx, session.ID, domain.AnswerSubmission{QuestionID: "q_1", Choice: "B"}); !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected ErrSessionCompleted on post-completion submit, got %v", err)
	}
}

func TestCursorMonotonicity(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, []domain.QuizTemplate{threeQuestionTemplate()}, nil)

	profile := mustCreateProfile(t, ctx, engine)
	session := mustCreateSession(t, ctx, engine, profile.ID)

	if _, err := engine.SubmitAnswer(ctx, session.ID, domain.AnswerSubmission{QuestionID: "q_1", Choice: "B"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := engine.SubmitAnswer(ctx, session.ID, domain.AnswerSubmission{QuestionID: "q_1", Choice: "C"}); !errors.Is(err, domain.ErrQuestionAnswered) {
		t.Fatalf("expected ErrQuestionAnswered, got %v", err)
	}
	_, cursor, _, err := engine.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if cursor != 1 {
		t.Fatalf("rejected submission moved the cursor: %d", cursor)
	}

	for i, letter := range []string{"A", "D"} {
		if _, err := engine.SubmitAnswer(ctx, session.ID, domain.AnswerSubmission{
			QuestionID: fmt.Sprintf("q_%d", i+2), Choice: letter,
		}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if _, err := engine.SubmitAnswer(ctx, session.ID, domain.AnswerSubmission{QuestionID: "q_1", Choice: "B"}); !errors.Is(err, domain.ErrNoQuestionsLeft) {
		t.Fatalf("expected ErrNoQuestionsLeft, got %v", err)
	}
}

func TestChoiceIDAndBadSubmissions(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, []domain.QuizTemplate{threeQuestionTemplate()}, nil)

	profile := mustCreateProfile(t, ctx, engine)
	session := mustCreateSession(t, ctx, engine, profile.ID)

	// snapshot choice ids are accepted alongside letters
	result, err := engine.SubmitAnswer(ctx, session.ID, domain.AnswerSubmission{QuestionID: "q_1", Choice: "q_1_c_2"})
	if err != nil {
		t.Fatalf("submit by choice id: %v", err)
	}
	if !result.Correct {
		t.Fatalf("expected q_1_c_2 to be correct")
	}

	if _, err := engine.SubmitAnswer(ctx, session.ID, domain.AnswerSubmission{QuestionID: "q_99", Choice: "A"}); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
	if _, err := engine.SubmitAnswer(ctx, session.ID, domain.AnswerSubmission{QuestionID: "q_2", Choice: "E"}); !errors.Is(err, domain.ErrChoiceNotFound) {
		t.Fatalf("expected ErrChoiceNotFound for letter E, got %v", err)
	}
	// literal answer text is not a valid submission
	if _, err := engine.SubmitAnswer(ctx, session.ID, domain.AnswerSubmission{QuestionID: "q_2", Choice: "Nairobi"}); !errors.Is(err, domain.ErrChoiceNotFound) {
		t.Fatalf("expected ErrChoiceNotFound for literal text, got %v", err)
	}
}

func TestSnapshotImmuneToTemplateEdits(t *testing.T) {
	ctx := context.Background()
	template := threeQuestionTemplate()
	engine, _ := newTestEngine(t, []domain.QuizTemplate{template}, nil)

	profile := mustCreateProfile(t, ctx, engine)
	session := mustCreateSession(t, ctx, engine, profile.ID)

	// edit the backing template after the session exists
	template.Questions[0].Content = "EDITED"
	template.Questions[0].Choices[1].IsCorrect = false

	stored, _, _, err := engine.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if stored.Snapshot[0].Content == "EDITED" {
		t.Fatalf("template edit leaked into snapshot")
	}
	result, err := engine.SubmitAnswer(ctx, session.ID, domain.AnswerSubmission{QuestionID: "q_1", Choice: "B"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Correct {
		t.Fatalf("grading must use the frozen snapshot, not the edited template")
	}
}

func TestGeneratorFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("valid batch creates a session", func(t *testing.T) {
		gen := generator.NewStatic(map[string][]domain.GeneratedQuestion{
			"chemistry": {
				{
					Question:      "Chemical symbol for sodium?",
					Options:       []string{"S", "So", "Na", "N"},
					CorrectAnswer: "Na",
					Explanation:   "From the Latin natrium.",
					Difficulty:    "easy",
				},
				{
					Question:      "Atomic number of carbon?",
					Options:       []string{"4", "6", "8", "12"},
					CorrectAnswer: "6",
					Explanation:   "Carbon has six protons.",
					Difficulty:    "medium",
				},
			},
		}, nil)
		engine, _ := newTestEngine(t, nil, gen)
		profile := mustCreateProfile(t, ctx, engine)

		session, err := engine.CreateSession(ctx, quiz.CreateSessionRequest{
			UserID: profile.UserID, ProfileID: profile.ID,
			Curriculum: "kcse", Level: "form-3", Subject: "chemistry",
			QuizType: domain.QuizTypeRandom, QuestionCount: 2,
		})
		if err != nil {
			t.Fatalf("create session: %v", err)
		}
		if session.TotalQuestions != 2 || session.Snapshot[0].ID != "q_1" {
			t.Fatalf("unexpected generated session: %+v", session)
		}
	})

	t.Run("invalid batch aborts the request", func(t *testing.T) {
		gen := generator.NewStatic(map[string][]domain.GeneratedQuestion{
			"chemistry": {
				{
					Question:      "Broken question",
					Options:       []string{"a", "b", "c", "d"},
					CorrectAnswer: "e", // not among the options
				},
			},
		}, nil)
		engine, _ := newTestEngine(t, nil, gen)
		profile := mustCreateProfile(t, ctx, engine)

		_, err := engine.CreateSession(ctx, quiz.CreateSessionRequest{
			UserID: profile.UserID, ProfileID: profile.ID,
			Curriculum: "kcse", Level: "form-3", Subject: "chemistry",
			QuizType: domain.QuizTypeRandom, QuestionCount: 1,
		})
		if !errors.Is(err, domain.ErrInvalidBatch) {
			t.Fatalf("expected ErrInvalidBatch, got %v", err)
		}
	})

	t.Run("no template and no generator", func(t *testing.T) {
		engine, _ := newTestEngine(t, nil, nil)
		profile := mustCreateProfile(t, ctx, engine)
		_, err := engine.CreateSession(ctx, quiz.CreateSessionRequest{
			UserID: profile.UserID, ProfileID: profile.ID,
			Curriculum: "kcse", Level: "form-2", Subject: "mathematics",
			QuizType: domain.QuizTypeRandom, QuestionCount: 3,
		})
		if !errors.Is(err, domain.ErrTemplateNotFound) {
			t.Fatalf("expected ErrTemplateNotFound, got %v", err)
		}
	})
}

func TestStreakContinuesFromYesterday(t *testing.T) {
	ctx := context.Background()
	engine, profiles := newTestEngine(t, []domain.QuizTemplate{threeQuestionTemplate()}, nil)

	yesterday := quiz.DateOnly(testNow.AddDate(0, 0, -1))
	seeded := domain.Profile{
		ID: "p-streak", UserID: "u1", Curriculum: "kcse",
		Sparks: 200, CurrentStreak: 4, LongestStreak: 9, LastQuizDate: &yesterday,
	}
	if err := profiles.CreateProfile(ctx, seeded); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	session := mustCreateSession(t, ctx, engine, seeded.ID)
	result, err := engine.Complete(ctx, session.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.CurrentStreak != 5 || result.LongestStreak != 9 {
		t.Fatalf("expected streak 5 / longest 9, got %d / %d", result.CurrentStreak, result.LongestStreak)
	}
}

func newTestEngine(t *testing.T, templates []domain.QuizTemplate, gen quiz.ContentGenerator) (*quiz.Engine, *memory.ProfileStore) {
	t.Helper()
	repo := memory.NewTemplateCache(memory.NewStaticTemplates(templates), 5*time.Minute)
	sessions := memory.NewSessionStore()
	profiles := memory.NewProfileStore()
	ids := 0
	newID := func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}
	engine := quiz.NewEngineWithClock(repo, sessions, profiles, gen, func() time.Time { return testNow }, newID)
	return engine, profiles
}

func mustCreateProfile(t *testing.T, ctx context.Context, engine *quiz.Engine) domain.Profile {
	t.Helper()
	profile, err := engine.CreateProfile(ctx, "u1", "kcse")
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return profile
}

func mustCreateSession(t *testing.T, ctx context.Context, engine *quiz.Engine, profileID string) domain.Session {
	t.Helper()
	session, err := engine.CreateSession(ctx, quiz.CreateSessionRequest{
		UserID:        "u1",
		ProfileID:     profileID,
		Curriculum:    "kcse",
		Level:         "form-2",
		Subject:       "mathematics",
		QuizType:      domain.QuizTypeRandom,
		QuestionCount: 3,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session
}

func threeQuestionTemplate() domain.QuizTemplate {
	return domain.QuizTemplate{
		ID:               "kcse-f2-math-random",
		Curriculum:       "kcse",
		Level:            "form-2",
		Subject:          "mathematics",
		QuizType:         domain.QuizTypeRandom,
		TimeLimitMinutes: 10,
		Questions: []domain.Question{
			{
				ID:      "t1",
				Content: "What is 2 + 2?",
				Choices: []domain.Choice{
					{ID: "c1", Content: "3", OrderIndex: 1},
					{ID: "c2", Content: "4", IsCorrect: true, OrderIndex: 2},
					{ID: "c3", Content: "5", OrderIndex: 3},
					{ID: "c4", Content: "6", OrderIndex: 4},
				},
				Explanation: "2 + 2 = 4.",
				Difficulty:  domain.DifficultyEasy,
				Marks:       1,
			},
			{
				ID:      "t2",
				Content: "Capital of Kenya?",
				Choices: []domain.Choice{
					{ID: "c1", Content: "Nairobi", IsCorrect: true, OrderIndex: 1},
					{ID: "c2", Content: "Mombasa", OrderIndex: 2},
					{ID: "c3", Content: "Kisumu", OrderIndex: 3},
					{ID: "c4", Content: "Nakuru", OrderIndex: 4},
				},
				Explanation: "Nairobi is the capital city.",
				Difficulty:  domain.DifficultyMedium,
				Marks:       1,
			},
			{
				ID:      "t3",
				Content: "What is 15% of 200?",
				Choices: []domain.Choice{
					{ID: "c1", Content: "15", OrderIndex: 1},
					{ID: "c2", Content: "20", OrderIndex: 2},
					{ID: "c3", Content: "25", OrderIndex: 3},
					{ID: "c4", Content: "30", IsCorrect: true, OrderIndex: 4},
				},
				Explanation: "0.15 x 200 = 30.",
				Difficulty:  domain.DifficultyHard,
				Marks:       1,
			},
		},
	}
}
