package exam

import (
	"context"
	"errors"
	"fmt"

	"github.com/pucet-prep/backend/internal/models"
	"go.uber.org/zap"
)

type Service struct {
	catalog  Catalog
	gate     Gate
	composer *Composer
	recorder *Recorder
	ledger   LearnerLedger
	logger   *zap.Logger
	observer Observer
}

// Repository is everything the engine needs from persistence. *Store
// satisfies it.
type Repository interface {
	QuestionRepository
	StatsRepository
	LearnerLedger
	SubmissionRepository
}

func NewService(store Repository, catalog Catalog, logger *zap.Logger, observer Observer, opts ...ComposerOption) *Service {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Service{
		catalog:  catalog,
		gate:     NewGate(catalog),
		composer: NewComposer(store, catalog, opts...),
		recorder: NewRecorder(store, store, store, logger, observer),
		ledger:   store,
		logger:   logger,
		observer: observer,
	}
}

func (s *Service) Catalog() Catalog {
	return s.catalog
}

// AssembleExam gates the learner, reads their seen-set and composes a
// paper. Nothing is written.
func (s *Service) AssembleExam(ctx context.Context, learnerID int64, req Request) ([]models.ExamQuestion, error) {
	learner, err := s.learner(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	if err := s.gate.Admit(learner, req); err != nil {
		var denied *EntitlementError
		if errors.As(err, &denied) {
			s.observer.EntitlementDenied(denied.Code)
			s.logger.Info("exam denied",
				zap.Int64("learner_id", learnerID),
				zap.String("mode", req.mode()),
				zap.String("code", denied.Code),
			)
		}
		return nil, err
	}

	seen, err := s.ledger.AttemptedQuestionIDs(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("load attempted questions: %w", err)
	}

	paper, err := s.composer.Compose(ctx, req, seen)
	if err != nil {
		return nil, err
	}

	s.observer.ExamAssembled(req.mode(), len(paper))
	s.logger.Debug("exam assembled",
		zap.Int64("learner_id", learnerID),
		zap.String("mode", req.mode()),
		zap.Int("questions", len(paper)),
		zap.Int("seen", len(seen)),
	)
	return paper, nil
}

func (s *Service) SubmitResult(ctx context.Context, learnerID int64, req models.SubmitResultRequest) (*models.Submission, error) {
	learner, err := s.learner(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	return s.recorder.RecordSubmission(ctx, learner, req)
}

// Availability reports how much of each pool the learner has not yet
// seen. It does not consult the gate.
func (s *Service) Availability(ctx context.Context, learnerID int64, req Request) ([]models.PoolAvailability, error) {
	if _, err := s.learner(ctx, learnerID); err != nil {
		return nil, err
	}
	seen, err := s.ledger.AttemptedQuestionIDs(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("load attempted questions: %w", err)
	}
	return s.composer.Availability(ctx, req, seen)
}

// Entitlement reports the learner's remaining free papers (-1 for premium).
func (s *Service) Entitlement(ctx context.Context, learnerID int64) (int, error) {
	learner, err := s.learner(ctx, learnerID)
	if err != nil {
		return 0, err
	}
	return s.gate.Remaining(learner), nil
}

func (s *Service) learner(ctx context.Context, learnerID int64) (*models.Learner, error) {
	learner, err := s.ledger.GetLearner(ctx, learnerID)
	if errors.Is(err, ErrLearnerNotFound) {
		return nil, ErrLearnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load learner: %w", err)
	}
	return learner, nil
}
