package exam

import (
	"context"

	"github.com/pucet-prep/backend/internal/models"
)

// Pool narrows a subject's questions before any exclusion logic runs.
type Pool struct {
	SubjectID  int64
	ChapterID  *int64
	Difficulty models.Difficulty // empty or DifficultyAll means no filter
}

// Membership selects which side of an id set a sample is drawn from.
type Membership int

const (
	NotIn Membership = iota
	In
)

// QuestionRepository is the durable question bank.
type QuestionRepository interface {
	// SampleQuestions draws up to k questions uniformly at random without
	// replacement from the pool, restricted to ids NotIn or In the given set.
	SampleQuestions(ctx context.Context, pool Pool, ids []int64, membership Membership, k int) ([]models.Question, error)
	// CountQuestions counts the pool under the same id restriction.
	CountQuestions(ctx context.Context, pool Pool, ids []int64, membership Membership) (int, error)
	GetSubjectBySlug(ctx context.Context, slug string) (*models.Subject, error)
	GetSubjectsBySlugs(ctx context.Context, slugs []string) ([]models.Subject, error)
	GetChapter(ctx context.Context, id int64) (*models.Chapter, error)
}

// StatsRepository exposes per-question statistics for the read-then-write fold.
type StatsRepository interface {
	GetQuestionStats(ctx context.Context, questionID int64) (QuestionStats, error)
	SaveQuestionStats(ctx context.Context, questionID int64, stats QuestionStats) error
}

// AtomicStatsFolder is implemented by repositories that can fold one
// sample into a question's running mean in a single statement.
type AtomicStatsFolder interface {
	FoldQuestionStats(ctx context.Context, questionID int64, timeTaken float64, correct bool) error
}

// LearnerLedger holds entitlement state and the seen-set.
type LearnerLedger interface {
	GetLearner(ctx context.Context, learnerID int64) (*models.Learner, error)
	AttemptedQuestionIDs(ctx context.Context, learnerID int64) ([]int64, error)
	// RecordAttempt adds questionIDs to the seen-set (set union) and, when
	// countTowardQuota is set, increments freeTestsTaken by one. Both
	// happen atomically.
	RecordAttempt(ctx context.Context, learnerID int64, questionIDs []int64, countTowardQuota bool) error
}

// SubmissionRepository appends finished papers.
type SubmissionRepository interface {
	SaveSubmission(ctx context.Context, sub *models.Submission) error
}

// QuestionStats is the durable (averageTime, attemptCount) pair plus the
// correctness tally used by the timing report.
type QuestionStats struct {
	AverageTime  float64
	AttemptCount int
	CorrectCount int
}
