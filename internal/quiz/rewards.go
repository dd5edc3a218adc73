package quiz

import (
	"math"

	"shule-quiz-service/internal/domain"
)

// Spark rewards use the additive formula: a fixed amount per correct answer by
// difficulty, a flat completion bonus, and a perfect-score bonus on top.
const (
	CompletionBonus = 20
	PerfectBonus    = 50
)

var sparksByDifficulty = map[domain.Difficulty]int{
	domain.DifficultyEasy:   5,
	domain.DifficultyMedium: 10,
	domain.DifficultyHard:   15,
}

// SparksFor returns the spark reward for a correct answer at the given
// difficulty. Unknown or empty difficulties count as medium.
func SparksFor(d domain.Difficulty) int {
	if v, ok := sparksByDifficulty[d]; ok {
		return v
	}
	return sparksByDifficulty[domain.DifficultyMedium]
}

// FinalSparks applies the completion and perfect-score bonuses to the
// running spark total.
func FinalSparks(sparksEarned, correctAnswers, totalQuestions int) int {
	final := sparksEarned + CompletionBonus
	if totalQuestions > 0 && correctAnswers == totalQuestions {
		final += PerfectBonus
	}
	return final
}

// Accuracy is the correct-answer ratio, 0 for an empty session.
func Accuracy(correctAnswers, totalQuestions int) float64 {
	if totalQuestions == 0 {
		return 0
	}
	return float64(correctAnswers) / float64(totalQuestions)
}

// Percentage rounds accuracy to a whole percent.
func Percentage(correctAnswers, totalQuestions int) int {
	return int(math.Round(Accuracy(correctAnswers, totalQuestions) * 100))
}

// GradeFor maps a percentage onto the KCSE-style letter bands.
func GradeFor(percentage int) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B+"
	case percentage >= 70:
		return "B"
	case percentage >= 60:
		return "C+"
	case percentage >= 50:
		return "C"
	case percentage >= 40:
		return "D"
	default:
		return "F"
	}
}
