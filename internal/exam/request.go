package exam

import (
	"strconv"
	"strings"

	"github.com/pucet-prep/backend/internal/models"
)

// Request is the closed set of paper shapes the composer understands:
// SingleSubject, Stream and Practice.
type Request interface {
	difficulty() models.Difficulty
	mode() string
}

// SingleSubject is a full mock paper for one subject.
type SingleSubject struct {
	Slug       string
	Difficulty models.Difficulty
}

// Stream is a combined paper over a configured bundle of subjects.
type Stream struct {
	Name       string
	Difficulty models.Difficulty
}

// Practice is a shorter set from one subject, optionally scoped to a
// chapter. Chapter-scoped practice is a premium feature.
type Practice struct {
	SubjectSlug string
	ChapterID   *int64
	Difficulty  models.Difficulty
}

func (r SingleSubject) difficulty() models.Difficulty { return r.Difficulty }
func (r Stream) difficulty() models.Difficulty        { return r.Difficulty }
func (r Practice) difficulty() models.Difficulty      { return r.Difficulty }

func (SingleSubject) mode() string { return "subject" }
func (Stream) mode() string        { return "stream" }
func (r Practice) mode() string {
	if r.ChapterID != nil {
		return "chapter_practice"
	}
	return "practice"
}

// Mode names the request shape for logs and metrics.
func Mode(r Request) string { return r.mode() }

// requiresPremium reports whether the request uses a premium-only feature.
func requiresPremium(r Request) bool {
	p, ok := r.(Practice)
	return ok && p.ChapterID != nil
}

// ParseRequest validates raw query values into a paper request. Exactly
// one of subject and stream must be set.
func (c Catalog) ParseRequest(subject, stream, difficulty string) (Request, error) {
	subject = strings.ToLower(strings.TrimSpace(subject))
	stream = strings.TrimSpace(stream)

	d, err := ParseDifficulty(difficulty)
	if err != nil {
		return nil, err
	}

	switch {
	case subject != "" && stream != "":
		return nil, ErrInvalidRequest
	case subject != "":
		return SingleSubject{Slug: subject, Difficulty: d}, nil
	case stream != "":
		if _, ok := c.StreamSlugs(stream); !ok {
			return nil, ErrInvalidStream
		}
		return Stream{Name: normalizeStream(stream), Difficulty: d}, nil
	default:
		return nil, ErrInvalidRequest
	}
}

// ParsePracticeRequest validates raw query values into a practice request.
func ParsePracticeRequest(subject, chapterID, difficulty string) (Request, error) {
	subject = strings.ToLower(strings.TrimSpace(subject))
	if subject == "" {
		return nil, ErrInvalidRequest
	}

	d, err := ParseDifficulty(difficulty)
	if err != nil {
		return nil, err
	}

	req := Practice{SubjectSlug: subject, Difficulty: d}
	if chapterID = strings.TrimSpace(chapterID); chapterID != "" {
		id, err := strconv.ParseInt(chapterID, 10, 64)
		if err != nil || id <= 0 {
			return nil, ErrChapterNotFound
		}
		req.ChapterID = &id
	}
	return req, nil
}

// ParseDifficulty maps "" and "all" to DifficultyAll.
func ParseDifficulty(raw string) (models.Difficulty, error) {
	d := models.Difficulty(strings.ToLower(strings.TrimSpace(raw)))
	if d == "" || d == models.DifficultyAll {
		return models.DifficultyAll, nil
	}
	if !models.ValidDifficulties[d] {
		return "", ErrInvalidDifficulty
	}
	return d, nil
}
