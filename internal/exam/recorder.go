package exam

import (
	"context"
	"fmt"
	"math"

	"github.com/pucet-prep/backend/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Recorder persists finished papers and folds their timings into the
// question bank. Only saving the submission itself can fail the call.
type Recorder struct {
	submissions SubmissionRepository
	ledger      LearnerLedger
	stats       StatsRepository
	logger      *zap.Logger
	observer    Observer
}

func NewRecorder(submissions SubmissionRepository, ledger LearnerLedger, stats StatsRepository, logger *zap.Logger, observer Observer) *Recorder {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Recorder{
		submissions: submissions,
		ledger:      ledger,
		stats:       stats,
		logger:      logger,
		observer:    observer,
	}
}

// RecordSubmission saves the submission, applies the learner ledger
// mutation once, then updates each question's running mean. Ledger and
// per-question failures are logged and do not fail the submission.
func (r *Recorder) RecordSubmission(ctx context.Context, learner *models.Learner, req models.SubmitResultRequest) (*models.Submission, error) {
	ctx, span := tracer.Start(ctx, "exam.RecordSubmission")
	defer span.End()

	if err := validateSubmission(req); err != nil {
		return nil, err
	}

	questions := req.Questions
	if questions == nil {
		questions = []models.QuestionOutcome{}
	}
	sub := &models.Submission{
		UserID:         learner.ID,
		SubjectID:      req.SubjectID,
		Score:          req.Score,
		TotalQuestions: req.TotalQuestions,
		Percentage:     Percentage(req.Score, req.TotalQuestions),
		Questions:      questions,
	}

	if err := r.submissions.SaveSubmission(ctx, sub); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("save submission: %w", err)
	}
	span.SetAttributes(
		attribute.Int64("exam.submission_id", sub.ID),
		attribute.Int("exam.question_count", len(sub.Questions)),
	)
	r.observer.SubmissionRecorded(learner.IsPremium)

	// Once the submission exists the ledger must follow it, even if the
	// caller has gone away.
	ids := uniqueQuestionIDs(sub.Questions)
	if err := r.ledger.RecordAttempt(context.WithoutCancel(ctx), learner.ID, ids, !learner.IsPremium); err != nil {
		r.observer.LedgerUpdateFailed()
		r.logger.Error("learner ledger update failed",
			zap.Int64("learner_id", learner.ID),
			zap.Int64("submission_id", sub.ID),
			zap.Error(err),
		)
	}

	r.foldStats(ctx, sub)
	return sub, nil
}

func (r *Recorder) foldStats(ctx context.Context, sub *models.Submission) {
	folder, canFold := r.stats.(AtomicStatsFolder)

	for i, q := range sub.Questions {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("stats update interrupted",
				zap.Int64("submission_id", sub.ID),
				zap.Int("skipped", len(sub.Questions)-i),
				zap.Error(err),
			)
			return
		}

		var err error
		if canFold {
			err = folder.FoldQuestionStats(ctx, q.QuestionID, q.TimeTaken, q.IsCorrect)
		} else {
			err = r.readFoldWrite(ctx, q)
		}
		if err != nil {
			r.observer.StatsFoldFailed()
			r.logger.Warn("failed to update question stats",
				zap.Int64("question_id", q.QuestionID),
				zap.Int64("submission_id", sub.ID),
				zap.Error(err),
			)
		}
	}
}

// readFoldWrite is the fallback for repositories without an atomic fold.
// Concurrent submissions on the same question may lose an update here.
func (r *Recorder) readFoldWrite(ctx context.Context, q models.QuestionOutcome) error {
	current, err := r.stats.GetQuestionStats(ctx, q.QuestionID)
	if err != nil {
		return fmt.Errorf("read question stats: %w", err)
	}
	if err := r.stats.SaveQuestionStats(ctx, q.QuestionID, FoldMean(current, q.TimeTaken, q.IsCorrect)); err != nil {
		return fmt.Errorf("write question stats: %w", err)
	}
	return nil
}

// FoldMean folds one more response time into a running mean:
// newAverage = (oldAverage*oldCount + t) / (oldCount + 1).
func FoldMean(s QuestionStats, timeTaken float64, correct bool) QuestionStats {
	n := float64(s.AttemptCount)
	out := QuestionStats{
		AverageTime:  (s.AverageTime*n + timeTaken) / (n + 1),
		AttemptCount: s.AttemptCount + 1,
		CorrectCount: s.CorrectCount,
	}
	if correct {
		out.CorrectCount++
	}
	return out
}

// Percentage is 100*score/total.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(score) / float64(total)
}

func validateSubmission(req models.SubmitResultRequest) error {
	if req.TotalQuestions <= 0 {
		return invalidSubmission("totalQuestions must be positive")
	}
	if req.Score < 0 || req.Score > req.TotalQuestions {
		return invalidSubmission("score must be between 0 and %d", req.TotalQuestions)
	}
	if req.SubjectID != nil && *req.SubjectID <= 0 {
		return invalidSubmission("subjectId must be positive")
	}
	for i, q := range req.Questions {
		if q.QuestionID <= 0 {
			return invalidSubmission("questions[%d]: question id is required", i)
		}
		if q.TimeTaken < 0 || math.IsNaN(q.TimeTaken) || math.IsInf(q.TimeTaken, 0) {
			return invalidSubmission("questions[%d]: timeTaken must be a non-negative number", i)
		}
		if q.UserChoice != nil && (*q.UserChoice < 0 || *q.UserChoice >= models.OptionCount) {
			return invalidSubmission("questions[%d]: userChoice must be between 0 and %d", i, models.OptionCount-1)
		}
	}
	return nil
}

func uniqueQuestionIDs(outcomes []models.QuestionOutcome) []int64 {
	seen := make(map[int64]bool, len(outcomes))
	ids := make([]int64, 0, len(outcomes))
	for _, q := range outcomes {
		if seen[q.QuestionID] {
			continue
		}
		seen[q.QuestionID] = true
		ids = append(ids, q.QuestionID)
	}
	return ids
}
