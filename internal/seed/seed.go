// Package seed loads a TOML content catalog and writes it through the
// content service.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pucet-prep/backend/internal/content"
	"github.com/pucet-prep/backend/internal/models"
	"go.uber.org/zap"
)

// Catalog is the root of a seed file.
type Catalog struct {
	Subjects []Subject `toml:"subject"`
}

type Subject struct {
	Name        string     `toml:"name"`
	Slug        string     `toml:"slug"`
	Streams     []string   `toml:"streams"`
	Image       string     `toml:"image"`
	Description string     `toml:"description"`
	Chapters    []Chapter  `toml:"chapter"`
	Questions   []Question `toml:"question"`
}

type Chapter struct {
	Name        string `toml:"name"`
	Slug        string `toml:"slug"`
	Description string `toml:"description"`
}

// Question.Chapter names a chapter slug of the same subject; empty leaves
// the question unassigned.
type Question struct {
	Chapter     string   `toml:"chapter"`
	Text        string   `toml:"text"`
	Options     []string `toml:"options"`
	Correct     int      `toml:"correct"`
	Explanation string   `toml:"explanation"`
	Difficulty  string   `toml:"difficulty"`
}

// Load decodes a catalog file. Unknown keys are rejected so typos do not
// silently drop content.
func Load(path string) (*Catalog, error) {
	var cat Catalog
	md, err := toml.DecodeFile(path, &cat)
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return finish(&cat, md)
}

// Parse is Load for an in-memory document.
func Parse(doc string) (*Catalog, error) {
	var cat Catalog
	md, err := toml.Decode(doc, &cat)
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return finish(&cat, md)
}

func finish(cat *Catalog, md toml.MetaData) (*Catalog, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown catalog keys: %s", strings.Join(keys, ", "))
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// Validate checks references and question shape before anything is written.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool)
	for i := range c.Subjects {
		s := &c.Subjects[i]
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("subject %d: name is required", i)
		}
		slug := s.slug()
		if seen[slug] {
			return fmt.Errorf("subject %q: duplicate slug", slug)
		}
		seen[slug] = true

		chapters := make(map[string]bool, len(s.Chapters))
		for _, ch := range s.Chapters {
			chapters[ch.slug()] = true
		}
		for j, q := range s.Questions {
			if q.Chapter != "" && !chapters[content.Slugify(q.Chapter)] {
				return fmt.Errorf("subject %q question %d: unknown chapter %q", slug, j, q.Chapter)
			}
			if len(q.Options) != models.OptionCount {
				return fmt.Errorf("subject %q question %d: want %d options, got %d", slug, j, models.OptionCount, len(q.Options))
			}
			if q.Correct < 0 || q.Correct >= models.OptionCount {
				return fmt.Errorf("subject %q question %d: correct must be between 0 and %d", slug, j, models.OptionCount-1)
			}
			if q.Difficulty != "" && !models.ValidDifficulties[models.Difficulty(q.Difficulty)] {
				return fmt.Errorf("subject %q question %d: unknown difficulty %q", slug, j, q.Difficulty)
			}
		}
	}
	return nil
}

func (s Subject) slug() string {
	if s.Slug != "" {
		return content.Slugify(s.Slug)
	}
	return content.Slugify(s.Name)
}

func (c Chapter) slug() string {
	if c.Slug != "" {
		return content.Slugify(c.Slug)
	}
	return content.Slugify(c.Name)
}

// Writer is the slice of the content service seeding needs.
type Writer interface {
	GetSubjectBySlug(ctx context.Context, slug string) (*models.Subject, error)
	CreateSubject(ctx context.Context, req models.SubjectRequest) (*models.Subject, error)
	CreateChapter(ctx context.Context, subjectID int64, req models.ChapterRequest) (*models.Chapter, error)
	CreateQuestion(ctx context.Context, req models.QuestionRequest) (*models.Question, error)
}

type Summary struct {
	Subjects  int
	Skipped   int
	Chapters  int
	Questions int
}

// Apply writes every subject whose slug is not already stored. Existing
// subjects are left untouched, so re-running a catalog is safe.
func Apply(ctx context.Context, w Writer, cat *Catalog, logger *zap.Logger) (Summary, error) {
	var sum Summary
	for _, s := range cat.Subjects {
		slug := s.slug()
		_, err := w.GetSubjectBySlug(ctx, slug)
		if err == nil {
			logger.Info("subject exists, skipping", zap.String("slug", slug))
			sum.Skipped++
			continue
		}
		if !errors.Is(err, content.ErrNotFound) {
			return sum, fmt.Errorf("look up subject %q: %w", slug, err)
		}

		subject, err := w.CreateSubject(ctx, models.SubjectRequest{
			Name:        s.Name,
			Slug:        slug,
			Streams:     s.Streams,
			Image:       s.Image,
			Description: s.Description,
		})
		if err != nil {
			return sum, fmt.Errorf("create subject %q: %w", slug, err)
		}
		sum.Subjects++

		chapterIDs := make(map[string]int64, len(s.Chapters))
		for i, ch := range s.Chapters {
			created, err := w.CreateChapter(ctx, subject.ID, models.ChapterRequest{
				Name:        ch.Name,
				Slug:        ch.slug(),
				Description: ch.Description,
				Order:       i + 1,
			})
			if err != nil {
				return sum, fmt.Errorf("create chapter %q in %q: %w", ch.Name, slug, err)
			}
			chapterIDs[created.Slug] = created.ID
			sum.Chapters++
		}

		for i, q := range s.Questions {
			req := models.QuestionRequest{
				SubjectID:     subject.ID,
				Text:          q.Text,
				Options:       q.Options,
				CorrectOption: q.Correct,
				Explanation:   q.Explanation,
				Difficulty:    models.Difficulty(q.Difficulty),
			}
			if q.Chapter != "" {
				id := chapterIDs[content.Slugify(q.Chapter)]
				req.ChapterID = &id
			}
			if _, err := w.CreateQuestion(ctx, req); err != nil {
				return sum, fmt.Errorf("create question %d in %q: %w", i, slug, err)
			}
			sum.Questions++
		}

		logger.Info("subject seeded",
			zap.String("slug", slug),
			zap.Int("chapters", len(s.Chapters)),
			zap.Int("questions", len(s.Questions)),
		)
	}
	return sum, nil
}
