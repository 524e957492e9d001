package exam

import (
	"context"
	"fmt"

	"github.com/pucet-prep/backend/internal/models"
)

// Sampler draws questions a learner has not seen before, topping up with
// already-seen ones only when the fresh pool runs short.
type Sampler struct {
	repo QuestionRepository
}

func NewSampler(repo QuestionRepository) *Sampler {
	return &Sampler{repo: repo}
}

// Sample returns exactly count questions whenever the pool holds at least
// that many, preferring ids outside exclude. Fewer come back only when
// the pool itself is smaller than count.
func (s *Sampler) Sample(ctx context.Context, pool Pool, subject models.SubjectRef, count int, exclude []int64) ([]models.ExamQuestion, error) {
	if count <= 0 {
		return nil, nil
	}

	fresh, err := s.repo.SampleQuestions(ctx, pool, exclude, NotIn, count)
	if err != nil {
		return nil, fmt.Errorf("sample unseen questions: %w", err)
	}

	drawn := fresh
	if short := count - len(fresh); short > 0 && len(exclude) > 0 {
		repeats, err := s.repo.SampleQuestions(ctx, pool, exclude, In, short)
		if err != nil {
			return nil, fmt.Errorf("sample seen questions: %w", err)
		}
		drawn = append(drawn, repeats...)
	}

	out := make([]models.ExamQuestion, 0, len(drawn))
	for i := range drawn {
		out = append(out, drawn[i].ToExamQuestion(subject))
	}
	return out, nil
}
