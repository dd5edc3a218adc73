package domain

import "time"

// Difficulty weights a question for spark rewards.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// QuizType classifies how a quiz is assembled.
type QuizType string

const (
	QuizTypeRandom  QuizType = "random"
	QuizTypeTopical QuizType = "topical"
	QuizTypeTerm    QuizType = "term"
)

// Choice is a possible answer inside an authored question.
type Choice struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	IsCorrect  bool   `json:"isCorrect"`
	OrderIndex int    `json:"orderIndex"`
}

// Question is an authored MCQ with exactly one correct choice.
type Question struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	Choices     []Choice   `json:"choices"`
	Explanation string     `json:"explanation"`
	Difficulty  Difficulty `json:"difficulty"`
	Marks       int        `json:"marks"` // defaults to 1 if zero
}

// QuizTemplate is an admin-curated, reusable set of questions.
// Sessions copy it at creation time and never read it again.
type QuizTemplate struct {
	ID               string     `json:"id"`
	Curriculum       string     `json:"curriculum"` // kcse, igcse, kpsea
	Level            string     `json:"level"`
	Subject          string     `json:"subject"`
	QuizType         QuizType   `json:"quizType"`
	TopicID          string     `json:"topicId,omitempty"`
	Term             int        `json:"term,omitempty"`
	TimeLimitMinutes int        `json:"timeLimitMinutes"`
	Questions        []Question `json:"questions"`
}

// SnapshotChoice is a choice as frozen into a session snapshot.
type SnapshotChoice struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	IsCorrect  bool   `json:"isCorrect"`
	OrderIndex int    `json:"orderIndex"` // 1-4, maps to letters A-D
}

// SnapshotQuestion is a question as frozen into a session snapshot.
// Snapshots are validated once at session creation; downstream code may
// assume exactly four choices with exactly one marked correct.
type SnapshotQuestion struct {
	ID           string           `json:"id"`
	Content      string           `json:"content"`
	QuestionType string           `json:"questionType"`
	Marks        int              `json:"marks"`
	Difficulty   Difficulty       `json:"difficulty"`
	Explanation  string           `json:"explanation"`
	OrderIndex   int              `json:"orderIndex"`
	Choices      []SnapshotChoice `json:"choices"`
}

// Session is one quiz attempt. The snapshot is immutable after creation;
// progress counters are derived from the append-only answer log.
type Session struct {
	ID               string             `json:"id"`
	UserID           string             `json:"userId"`
	ProfileID        string             `json:"profileId"`
	Curriculum       string             `json:"curriculum"`
	Level            string             `json:"level"`
	Subject          string             `json:"subject"`
	QuizType         QuizType           `json:"quizType"`
	TopicID          string             `json:"topicId,omitempty"`
	Term             int                `json:"term,omitempty"`
	TotalQuestions   int                `json:"totalQuestions"`
	TimeLimitMinutes int                `json:"timeLimitMinutes"`
	Snapshot         []SnapshotQuestion `json:"questionsSnapshot"`
	Completed        bool               `json:"completed"`
	StartedAt        time.Time          `json:"startedAt"`
	CompletedAt      *time.Time         `json:"completedAt,omitempty"`
}

// Answer is one graded submission, append-only per session.
type Answer struct {
	SessionID        string    `json:"sessionId"`
	QuestionID       string    `json:"questionId"`
	ChoiceID         string    `json:"choiceId"`
	Correct          bool      `json:"correct"`
	Sparks           int       `json:"sparks"`
	TimeSpentSeconds int       `json:"timeSpentSeconds"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

// Profile is a per-user, per-curriculum reward record.
type Profile struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	Curriculum    string     `json:"curriculum"`
	Sparks        int        `json:"sparks"`
	CurrentStreak int        `json:"currentStreak"`
	LongestStreak int        `json:"longestStreak"`
	LastQuizDate  *time.Time `json:"lastQuizDate,omitempty"` // date granularity
}

// AnswerSubmission is the grading signal from clients.
// Choice is either a letter A-D or a snapshot choice id.
type AnswerSubmission struct {
	QuestionID       string `json:"questionId"`
	Choice           string `json:"choice"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
}

// AnswerResult summarizes the outcome of one submission.
type AnswerResult struct {
	QuestionID    string `json:"questionId"`
	ChoiceID      string `json:"choiceId"`
	Correct       bool   `json:"correct"`
	Sparks        int    `json:"sparks"`
	QuestionIndex int    `json:"questionIndex"` // cursor after this answer
	Explanation   string `json:"explanation,omitempty"`
}

// QuizResult is the completion summary returned exactly once per session.
type QuizResult struct {
	SessionID      string  `json:"sessionId"`
	TotalQuestions int     `json:"totalQuestions"`
	CorrectAnswers int     `json:"correctAnswers"`
	SparksEarned   int     `json:"sparksEarned"` // pre-bonus running total
	FinalSparks    int     `json:"finalSparks"`
	Accuracy       float64 `json:"accuracy"`
	Percentage     int     `json:"percentage"`
	Grade          string  `json:"grade"`
	CurrentStreak  int     `json:"currentStreak"`
	LongestStreak  int     `json:"longestStreak"`
}

// GenerationContext describes what the content generator should produce.
type GenerationContext struct {
	Curriculum string
	Level      string
	Subject    string
	Topic      string
	Term       int
	Count      int
}

// GeneratedQuestion is the wire shape the content generator returns.
// CorrectAnswer must match one option verbatim.
type GeneratedQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	Difficulty    string   `json:"difficulty,omitempty"`
}
