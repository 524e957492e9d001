package exam

import (
	"errors"
	"testing"

	"github.com/pucet-prep/backend/internal/config"
	"github.com/pucet-prep/backend/internal/models"
)

func TestNewCatalogNormalizesStreams(t *testing.T) {
	c := testCatalog(t)

	got := c.StreamNames()
	want := []string{"PCB", "PCM"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("StreamNames() = %v, want %v", got, want)
	}

	slugs, ok := c.StreamSlugs("pcb")
	if !ok || len(slugs) != 3 || slugs[2] != "biology" {
		t.Errorf("StreamSlugs(pcb) = %v, %v", slugs, ok)
	}

	// Callers get a copy.
	slugs[0] = "mutated"
	again, _ := c.StreamSlugs("PCB")
	if again[0] != "physics" {
		t.Errorf("StreamSlugs(PCB)[0] = %q after caller mutation, want physics", again[0])
	}
}

func TestNewCatalogRejectsBadConfig(t *testing.T) {
	base := config.ExamConfig{FreeTestLimit: 5, SingleSubjectCount: 60, StreamSubjectCount: 20, PracticeCount: 30}

	tests := []struct {
		name   string
		mutate func(*config.ExamConfig)
	}{
		{"negative limit", func(c *config.ExamConfig) { c.FreeTestLimit = -1 }},
		{"zero count", func(c *config.ExamConfig) { c.StreamSubjectCount = 0 }},
		{"empty stream", func(c *config.ExamConfig) { c.Streams = map[string][]string{"PCB": {}} }},
		{"duplicate slug", func(c *config.ExamConfig) { c.Streams = map[string][]string{"PCB": {"physics", "Physics"}} }},
	}

	for _, tt := range tests {
		cfg := base
		tt.mutate(&cfg)
		if _, err := NewCatalog(cfg); err == nil {
			t.Errorf("NewCatalog(%s) error = nil, want error", tt.name)
		}
	}
}

func TestParseRequest(t *testing.T) {
	c := testCatalog(t)

	tests := []struct {
		subject, stream, difficulty string
		want                        Request
		err                         error
	}{
		{"Physics", "", "", SingleSubject{Slug: "physics", Difficulty: models.DifficultyAll}, nil},
		{"physics", "", "hard", SingleSubject{Slug: "physics", Difficulty: models.DifficultyHard}, nil},
		{"", "pcm", "all", Stream{Name: "PCM", Difficulty: models.DifficultyAll}, nil},
		{"", "PCX", "", nil, ErrInvalidStream},
		{"", "", "", nil, ErrInvalidRequest},
		{"physics", "PCB", "", nil, ErrInvalidRequest},
		{"physics", "", "brutal", nil, ErrInvalidDifficulty},
	}

	for _, tt := range tests {
		got, err := c.ParseRequest(tt.subject, tt.stream, tt.difficulty)
		if !errors.Is(err, tt.err) {
			t.Errorf("ParseRequest(%q, %q, %q) error = %v, want %v", tt.subject, tt.stream, tt.difficulty, err, tt.err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRequest(%q, %q, %q) = %#v, want %#v", tt.subject, tt.stream, tt.difficulty, got, tt.want)
		}
	}
}

func TestParsePracticeRequest(t *testing.T) {
	tests := []struct {
		subject, chapter string
		wantMode         string
		err              error
	}{
		{"physics", "", "practice", nil},
		{"physics", "12", "chapter_practice", nil},
		{"physics", "abc", "", ErrChapterNotFound},
		{"physics", "-4", "", ErrChapterNotFound},
		{"", "12", "", ErrInvalidRequest},
	}

	for _, tt := range tests {
		got, err := ParsePracticeRequest(tt.subject, tt.chapter, "")
		if !errors.Is(err, tt.err) {
			t.Errorf("ParsePracticeRequest(%q, %q) error = %v, want %v", tt.subject, tt.chapter, err, tt.err)
			continue
		}
		if err == nil && Mode(got) != tt.wantMode {
			t.Errorf("Mode(ParsePracticeRequest(%q, %q)) = %s, want %s", tt.subject, tt.chapter, Mode(got), tt.wantMode)
		}
	}
}
