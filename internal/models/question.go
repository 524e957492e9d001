package models

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"

	// DifficultyAll is the request-side wildcard; it is never stored.
	DifficultyAll Difficulty = "all"
)

var ValidDifficulties = map[Difficulty]bool{
	DifficultyEasy:   true,
	DifficultyMedium: true,
	DifficultyHard:   true,
}

// OptionCount is the fixed number of answer options per question.
const OptionCount = 4

// ── Content Structs ────────────────────────────────────

type Subject struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Streams     []string  `json:"streams"`
	Image       string    `json:"image"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Ref is the minimal projection attached to served questions.
func (s Subject) Ref() SubjectRef {
	return SubjectRef{ID: s.ID, Name: s.Name, Slug: s.Slug}
}

type SubjectRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Chapter struct {
	ID          int64     `json:"id"`
	SubjectID   int64     `json:"subjectId"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Question struct {
	ID            int64      `json:"id"`
	SubjectID     int64      `json:"subjectId"`
	ChapterID     *int64     `json:"chapterId,omitempty"`
	Text          string     `json:"text"`
	Options       []string   `json:"options"`
	CorrectOption int        `json:"correctOption"`
	Explanation   string     `json:"explanation"`
	Difficulty    Difficulty `json:"difficulty"`
	AverageTime   float64    `json:"averageTime"`
	AttemptCount  int        `json:"attemptCount"`
	CorrectCount  int        `json:"correctCount"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// ToExamQuestion strips the answer key and attaches the subject projection.
func (q *Question) ToExamQuestion(subject SubjectRef) ExamQuestion {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return ExamQuestion{
		ID:         q.ID,
		Text:       q.Text,
		Options:    options,
		Subject:    subject,
		ChapterID:  q.ChapterID,
		Difficulty: q.Difficulty,
	}
}

// ExamQuestion is what a learner sees while sitting a paper. It never
// carries the correct option or the explanation.
type ExamQuestion struct {
	ID         int64      `json:"id"`
	Text       string     `json:"text"`
	Options    []string   `json:"options"`
	Subject    SubjectRef `json:"subject"`
	ChapterID  *int64     `json:"chapterId,omitempty"`
	Difficulty Difficulty `json:"difficulty"`
}

// ── Request Types ─────────────────────────────────────

type SubjectRequest struct {
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Streams     []string `json:"streams"`
	Image       string   `json:"image"`
	Description string   `json:"description"`
}

type ChapterRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

type QuestionRequest struct {
	SubjectID     int64      `json:"subjectId"`
	ChapterID     *int64     `json:"chapterId,omitempty"`
	Text          string     `json:"text"`
	Options       []string   `json:"options"`
	CorrectOption int        `json:"correctOption"`
	Explanation   string     `json:"explanation"`
	Difficulty    Difficulty `json:"difficulty"`
}

// ── Response Types ────────────────────────────────────

type QuestionListResponse struct {
	Questions []Question `json:"questions"`
	Total     int        `json:"total"`
	Page      int        `json:"page"`
	PageSize  int        `json:"pageSize"`
}

// ── Admin Types ───────────────────────────────────────

type TimingCandidate struct {
	QuestionID          int64      `json:"questionId"`
	SubjectID           int64      `json:"subjectId"`
	LabeledDifficulty   Difficulty `json:"labeledDifficulty"`
	SuggestedDifficulty Difficulty `json:"suggestedDifficulty"`
	AverageTime         float64    `json:"averageTime"`
	AttemptCount        int        `json:"attemptCount"`
	CorrectCount        int        `json:"correctCount"`
	Accuracy            float64    `json:"accuracy"`
}

type TimingReport struct {
	TotalEvaluated int               `json:"totalEvaluated"`
	Mislabeled     int               `json:"mislabeled"`
	Applied        bool              `json:"applied"`
	Details        []TimingCandidate `json:"details"`
}
