package exam

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/pucet-prep/backend/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/pucet-prep/backend/internal/exam")

// Composer turns a Request into one shuffled paper.
type Composer struct {
	repo    QuestionRepository
	sampler *Sampler
	catalog Catalog
	intn    func(n int) int
}

type ComposerOption func(*Composer)

// WithIntn replaces the random source used by the final shuffle. intn
// must return a uniform value in [0, n).
func WithIntn(intn func(n int) int) ComposerOption {
	return func(c *Composer) { c.intn = intn }
}

func NewComposer(repo QuestionRepository, catalog Catalog, opts ...ComposerOption) *Composer {
	c := &Composer{
		repo:    repo,
		sampler: NewSampler(repo),
		catalog: catalog,
		intn:    rand.Intn,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// draw is one Sampler call in a composition plan.
type draw struct {
	pool    Pool
	subject models.SubjectRef
	count   int
}

// Compose samples every subject the request needs, concatenates the
// results and shuffles the whole paper once. It performs no writes.
func (c *Composer) Compose(ctx context.Context, req Request, exclude []int64) ([]models.ExamQuestion, error) {
	ctx, span := tracer.Start(ctx, "exam.Compose", trace.WithAttributes(
		attribute.String("exam.mode", req.mode()),
		attribute.Int("exam.exclude_count", len(exclude)),
	))
	defer span.End()

	plan, err := c.plan(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	parts := make([][]models.ExamQuestion, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range plan {
		i, d := i, d
		g.Go(func() error {
			qs, err := c.sampler.Sample(gctx, d.pool, d.subject, d.count, exclude)
			if err != nil {
				return fmt.Errorf("sample subject %s: %w", d.subject.Slug, err)
			}
			parts[i] = qs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	paper := make([]models.ExamQuestion, 0, total)
	for _, p := range parts {
		paper = append(paper, p...)
	}

	Shuffle(paper, c.intn)

	span.SetAttributes(attribute.Int("exam.question_count", len(paper)))
	return paper, nil
}

// Availability counts, for every draw the request would make, the whole
// pool and the part of it outside seen. It samples nothing.
func (c *Composer) Availability(ctx context.Context, req Request, seen []int64) ([]models.PoolAvailability, error) {
	plan, err := c.plan(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make([]models.PoolAvailability, len(plan))
	for i, d := range plan {
		total, err := c.repo.CountQuestions(ctx, d.pool, nil, NotIn)
		if err != nil {
			return nil, fmt.Errorf("count subject %s: %w", d.subject.Slug, err)
		}
		unseen := total
		if len(seen) > 0 {
			unseen, err = c.repo.CountQuestions(ctx, d.pool, seen, NotIn)
			if err != nil {
				return nil, fmt.Errorf("count unseen in subject %s: %w", d.subject.Slug, err)
			}
		}
		out[i] = models.PoolAvailability{Subject: d.subject, Requested: d.count, Total: total, Unseen: unseen}
	}
	return out, nil
}

func (c *Composer) plan(ctx context.Context, req Request) ([]draw, error) {
	pool := func(subjectID int64, chapterID *int64) Pool {
		return Pool{SubjectID: subjectID, ChapterID: chapterID, Difficulty: req.difficulty()}
	}

	switch r := req.(type) {
	case SingleSubject:
		subject, err := c.resolveSubject(ctx, r.Slug)
		if err != nil {
			return nil, err
		}
		return []draw{{pool: pool(subject.ID, nil), subject: subject.Ref(), count: c.catalog.SingleSubjectCount()}}, nil

	case Stream:
		slugs, ok := c.catalog.StreamSlugs(r.Name)
		if !ok {
			return nil, ErrInvalidStream
		}
		subjects, err := c.repo.GetSubjectsBySlugs(ctx, slugs)
		if err != nil {
			return nil, fmt.Errorf("resolve stream subjects: %w", err)
		}
		if len(subjects) < len(slugs) {
			return nil, ErrSubjectsIncomplete
		}
		bySlug := make(map[string]models.Subject, len(subjects))
		for _, s := range subjects {
			bySlug[s.Slug] = s
		}
		plan := make([]draw, 0, len(slugs))
		for _, slug := range slugs {
			s, ok := bySlug[slug]
			if !ok {
				return nil, ErrSubjectsIncomplete
			}
			plan = append(plan, draw{pool: pool(s.ID, nil), subject: s.Ref(), count: c.catalog.StreamSubjectCount()})
		}
		return plan, nil

	case Practice:
		subject, err := c.resolveSubject(ctx, r.SubjectSlug)
		if err != nil {
			return nil, err
		}
		if r.ChapterID != nil {
			chapter, err := c.repo.GetChapter(ctx, *r.ChapterID)
			if errors.Is(err, ErrChapterNotFound) || (err == nil && chapter.SubjectID != subject.ID) {
				return nil, ErrChapterNotFound
			}
			if err != nil {
				return nil, fmt.Errorf("resolve chapter: %w", err)
			}
		}
		return []draw{{pool: pool(subject.ID, r.ChapterID), subject: subject.Ref(), count: c.catalog.PracticeCount()}}, nil

	default:
		return nil, ErrInvalidRequest
	}
}

func (c *Composer) resolveSubject(ctx context.Context, slug string) (*models.Subject, error) {
	subject, err := c.repo.GetSubjectBySlug(ctx, slug)
	if errors.Is(err, ErrSubjectNotFound) {
		return nil, ErrSubjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve subject: %w", err)
	}
	return subject, nil
}

// Shuffle is an in-place Fisher–Yates shuffle: scanning from the end, each
// position i swaps with a partner drawn uniformly from [0, i].
func Shuffle[T any](items []T, intn func(n int) int) {
	for i := len(items) - 1; i > 0; i-- {
		j := intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
