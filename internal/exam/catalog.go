package exam

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pucet-prep/backend/internal/config"
)

// Catalog is the immutable exam configuration shared by the gate and the
// composer. Build it once at startup with NewCatalog.
type Catalog struct {
	freeTestLimit      int
	singleSubjectCount int
	streamSubjectCount int
	practiceCount      int
	streams            map[string][]string
}

func NewCatalog(cfg config.ExamConfig) (Catalog, error) {
	if cfg.FreeTestLimit < 0 {
		return Catalog{}, fmt.Errorf("free test limit must be >= 0, got %d", cfg.FreeTestLimit)
	}
	if cfg.SingleSubjectCount <= 0 || cfg.StreamSubjectCount <= 0 || cfg.PracticeCount <= 0 {
		return Catalog{}, fmt.Errorf("question counts must be positive")
	}

	streams := make(map[string][]string, len(cfg.Streams))
	for name, slugs := range cfg.Streams {
		if len(slugs) == 0 {
			return Catalog{}, fmt.Errorf("stream %q has no subjects", name)
		}
		seen := make(map[string]bool, len(slugs))
		normalized := make([]string, 0, len(slugs))
		for _, slug := range slugs {
			slug = strings.ToLower(strings.TrimSpace(slug))
			if slug == "" || seen[slug] {
				return Catalog{}, fmt.Errorf("stream %q has an empty or duplicate subject slug", name)
			}
			seen[slug] = true
			normalized = append(normalized, slug)
		}
		// viper lowercases map keys; stream names are matched upper-case.
		streams[normalizeStream(name)] = normalized
	}

	return Catalog{
		freeTestLimit:      cfg.FreeTestLimit,
		singleSubjectCount: cfg.SingleSubjectCount,
		streamSubjectCount: cfg.StreamSubjectCount,
		practiceCount:      cfg.PracticeCount,
		streams:            streams,
	}, nil
}

func (c Catalog) FreeTestLimit() int      { return c.freeTestLimit }
func (c Catalog) SingleSubjectCount() int { return c.singleSubjectCount }
func (c Catalog) StreamSubjectCount() int { return c.streamSubjectCount }
func (c Catalog) PracticeCount() int      { return c.practiceCount }

// StreamSlugs returns a copy of the ordered subject slugs for a stream.
func (c Catalog) StreamSlugs(name string) ([]string, bool) {
	slugs, ok := c.streams[normalizeStream(name)]
	if !ok {
		return nil, false
	}
	out := make([]string, len(slugs))
	copy(out, slugs)
	return out, true
}

// StreamNames lists the configured streams in sorted order.
func (c Catalog) StreamNames() []string {
	names := make([]string, 0, len(c.streams))
	for name := range c.streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeStream(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
