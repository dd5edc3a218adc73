package quiz

import (
	"fmt"

	"shule-quiz-service/internal/domain"
)

// Every snapshot question carries exactly this many choices.
const choicesPerQuestion = 4

// SnapshotFromTemplate copies template questions into a session snapshot,
// assigning synthetic ids (q_1, q_1_c_2, ...) scoped to the session. The
// snapshot is a structural copy; later edits to the template cannot leak into
// an existing session. limit > 0 truncates the question list.
func SnapshotFromTemplate(questions []domain.Question, limit int) ([]domain.SnapshotQuestion, error) {
	if limit > 0 && limit < len(questions) {
		questions = questions[:limit]
	}
	snapshot := make([]domain.SnapshotQuestion, 0, len(questions))
	for i, q := range questions {
		if len(q.Choices) != choicesPerQuestion {
			return nil, fmt.Errorf("%w: question %d has %d choices, want %d", domain.ErrInvalidBatch, i+1, len(q.Choices), choicesPerQuestion)
		}
		correct := 0
		choices := make([]domain.SnapshotChoice, 0, choicesPerQuestion)
		for j, c := range q.Choices {
			if c.IsCorrect {
				correct++
			}
			choices = append(choices, domain.SnapshotChoice{
				ID:         choiceID(i+1, j+1),
				Content:    c.Content,
				IsCorrect:  c.IsCorrect,
				OrderIndex: j + 1,
			})
		}
		if correct != 1 {
			return nil, fmt.Errorf("%w: question %d has %d correct choices, want 1", domain.ErrInvalidBatch, i+1, correct)
		}
		snapshot = append(snapshot, domain.SnapshotQuestion{
			ID:           questionID(i + 1),
			Content:      q.Content,
			QuestionType: "mcq",
			Marks:        marksOrDefault(q.Marks),
			Difficulty:   difficultyOrDefault(q.Difficulty),
			Explanation:  q.Explanation,
			OrderIndex:   i + 1,
			Choices:      choices,
		})
	}
	return snapshot, nil
}

// SnapshotFromGenerated validates a generated batch and materializes it into a
// snapshot. Validation is all-or-nothing: one malformed question rejects the
// whole batch, and nothing is persisted for it.
func SnapshotFromGenerated(batch []domain.GeneratedQuestion, want int) ([]domain.SnapshotQuestion, error) {
	if want > 0 && len(batch) != want {
		return nil, fmt.Errorf("%w: generator returned %d questions, want %d", domain.ErrInvalidBatch, len(batch), want)
	}
	snapshot := make([]domain.SnapshotQuestion, 0, len(batch))
	for i, g := range batch {
		if len(g.Options) != choicesPerQuestion {
			return nil, fmt.Errorf("%w: question %d has %d options, want %d", domain.ErrInvalidBatch, i+1, len(g.Options), choicesPerQuestion)
		}
		correct := 0
		choices := make([]domain.SnapshotChoice, 0, choicesPerQuestion)
		for j, opt := range g.Options {
			isCorrect := opt == g.CorrectAnswer
			if isCorrect {
				correct++
			}
			choices = append(choices, domain.SnapshotChoice{
				ID:         choiceID(i+1, j+1),
				Content:    opt,
				IsCorrect:  isCorrect,
				OrderIndex: j + 1,
			})
		}
		// correct_answer must match exactly one option verbatim
		if correct != 1 {
			return nil, fmt.Errorf("%w: question %d correct_answer matches %d options, want 1", domain.ErrInvalidBatch, i+1, correct)
		}
		snapshot = append(snapshot, domain.SnapshotQuestion{
			ID:           questionID(i + 1),
			Content:      g.Question,
			QuestionType: "mcq",
			Marks:        1,
			Difficulty:   difficultyOrDefault(domain.Difficulty(g.Difficulty)),
			Explanation:  g.Explanation,
			OrderIndex:   i + 1,
			Choices:      choices,
		})
	}
	return snapshot, nil
}

// RedactSnapshot strips correct flags and explanations so the client view of
// an in-progress session cannot reveal answers.
func RedactSnapshot(snapshot []domain.SnapshotQuestion) []domain.SnapshotQuestion {
	out := make([]domain.SnapshotQuestion, len(snapshot))
	for i, q := range snapshot {
		redacted := q
		redacted.Explanation = ""
		redacted.Choices = make([]domain.SnapshotChoice, len(q.Choices))
		for j, c := range q.Choices {
			c.IsCorrect = false
			redacted.Choices[j] = c
		}
		out[i] = redacted
	}
	return out
}

func questionID(n int) string {
	return fmt.Sprintf("q_%d", n)
}

func choiceID(n, m int) string {
	return fmt.Sprintf("q_%d_c_%d", n, m)
}

func marksOrDefault(marks int) int {
	if marks <= 0 {
		return 1
	}
	return marks
}

func difficultyOrDefault(d domain.Difficulty) domain.Difficulty {
	switch d {
	case domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard:
		return d
	default:
		return domain.DifficultyMedium
	}
}
