package models

import "time"

// ── Submission Types ─────────────────────────────────────

// QuestionOutcome is one answered item inside a submission.
type QuestionOutcome struct {
	QuestionID int64   `json:"question"`
	TimeTaken  float64 `json:"timeTaken"`
	UserChoice *int    `json:"userChoice"`
	IsCorrect  bool    `json:"isCorrect"`
}

// Submission is the persisted record of one finished paper. SubjectID is
// nil for stream papers.
type Submission struct {
	ID             int64             `json:"id"`
	UserID         int64             `json:"user"`
	SubjectID      *int64            `json:"subject"`
	Score          int               `json:"score"`
	TotalQuestions int               `json:"totalQuestions"`
	Percentage     float64           `json:"percentage"`
	Questions      []QuestionOutcome `json:"questions"`
	CreatedAt      time.Time         `json:"createdAt"`
}

type SubmitResultRequest struct {
	SubjectID      *int64            `json:"subjectId"`
	Score          int               `json:"score"`
	TotalQuestions int               `json:"totalQuestions"`
	Questions      []QuestionOutcome `json:"questions"`
}

// ── Entitlement Types ────────────────────────────────────

type EntitlementResponse struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	IsPremium bool   `json:"isPremium"`
}

type EntitlementStatus struct {
	IsPremium          bool `json:"isPremium"`
	FreeTestsRemaining int  `json:"freeTestsRemaining"`
	FreeTestLimit      int  `json:"freeTestLimit"`
}

// PoolAvailability sizes one subject's slice of a paper for a learner.
// Unseen below Requested means the next paper will repeat questions.
type PoolAvailability struct {
	Subject   SubjectRef `json:"subject"`
	Requested int        `json:"requested"`
	Total     int        `json:"total"`
	Unseen    int        `json:"unseen"`
}

// ── Progress Types ───────────────────────────────────────

type RecentActivity struct {
	ID      int64     `json:"id"`
	Subject string    `json:"subject"`
	Score   string    `json:"score"`
	Date    time.Time `json:"date"`
	Points  string    `json:"points"`
}

type SubjectProgress struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Image      string `json:"image"`
	TestsCount int    `json:"testsCount"`
	Accuracy   int    `json:"accuracy"`
}

type ProgressResponse struct {
	TotalTests      int               `json:"totalTests"`
	AvgPercentage   int               `json:"avgPercentage"`
	Level           int               `json:"level"`
	RecentActivity  []RecentActivity  `json:"recentActivity"`
	SubjectProgress []SubjectProgress `json:"subjectProgress"`
}

// ── History Types ────────────────────────────────────────

type HistoryEntry struct {
	ID             int64       `json:"id"`
	Subject        *SubjectRef `json:"subject"`
	Score          int         `json:"score"`
	TotalQuestions int         `json:"totalQuestions"`
	Percentage     float64     `json:"percentage"`
	Date           time.Time   `json:"date"`
}

// ── Leaderboard Types ────────────────────────────────────

type LeaderboardEntry struct {
	Rank           int     `json:"rank"`
	UserID         int64   `json:"userId"`
	FullName       string  `json:"fullName"`
	TotalScore     int     `json:"totalScore"`
	TotalQuestions int     `json:"totalQuestions"`
	TestsTaken     int     `json:"testsTaken"`
	AvgPercentage  float64 `json:"avgPercentage"`
}

// ── Explanation Types ────────────────────────────────────

type ExplainRequest struct {
	QuestionID int64 `json:"questionId"`
	UserChoice *int  `json:"userChoice"`
}

type ExplainResponse struct {
	Explanation string `json:"explanation"`
}

type AssistRequest struct {
	Message string `json:"message"`
	Context string `json:"context"`
}

type AssistResponse struct {
	Reply string `json:"reply"`
}
