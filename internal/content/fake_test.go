package content

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/pucet-prep/backend/internal/models"
)

type memRepo struct {
	mu        sync.Mutex
	nextID    int64
	subjects  map[int64]*models.Subject
	chapters  map[int64]*models.Chapter
	questions map[int64]*models.Question
	failIDs   map[int64]bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		subjects:  make(map[int64]*models.Subject),
		chapters:  make(map[int64]*models.Chapter),
		questions: make(map[int64]*models.Question),
		failIDs:   make(map[int64]bool),
	}
}

func (m *memRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memRepo) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Subject{}
	for _, s := range m.subjects {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memRepo) GetSubject(ctx context.Context, id int64) (*models.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) GetSubjectBySlug(ctx context.Context, slug string) (*models.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subjects {
		if s.Slug == slug {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) slugTaken(slug string, except int64) bool {
	for _, s := range m.subjects {
		if s.Slug == slug && s.ID != except {
			return true
		}
	}
	return false
}

func (m *memRepo) CreateSubject(ctx context.Context, req models.SubjectRequest) (*models.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slugTaken(req.Slug, 0) {
		return nil, ErrConflict
	}
	s := &models.Subject{ID: m.id(), Name: req.Name, Slug: req.Slug, Streams: req.Streams, Image: req.Image, Description: req.Description}
	m.subjects[s.ID] = s
	cp := *s
	return &cp, nil
}

func (m *memRepo) UpdateSubject(ctx context.Context, id int64, req models.SubjectRequest) (*models.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[id]
	if !ok {
		return nil, ErrNotFound
	}
	if m.slugTaken(req.Slug, id) {
		return nil, ErrConflict
	}
	s.Name, s.Slug, s.Streams, s.Image, s.Description = req.Name, req.Slug, req.Streams, req.Image, req.Description
	cp := *s
	return &cp, nil
}

func (m *memRepo) DeleteSubject(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subjects[id]; !ok {
		return ErrNotFound
	}
	delete(m.subjects, id)
	for cid, c := range m.chapters {
		if c.SubjectID == id {
			delete(m.chapters, cid)
		}
	}
	for qid, q := range m.questions {
		if q.SubjectID == id {
			delete(m.questions, qid)
		}
	}
	return nil
}

func (m *memRepo) ListChapters(ctx context.Context, subjectID int64) ([]models.Chapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Chapter{}
	for _, c := range m.chapters {
		if c.SubjectID == subjectID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *memRepo) GetChapter(ctx context.Context, id int64) (*models.Chapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chapters[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) CreateChapter(ctx context.Context, subjectID int64, req models.ChapterRequest) (*models.Chapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.chapters {
		if c.SubjectID == subjectID && c.Slug == req.Slug {
			return nil, ErrConflict
		}
	}
	c := &models.Chapter{ID: m.id(), SubjectID: subjectID, Name: req.Name, Slug: req.Slug, Description: req.Description, Order: req.Order}
	m.chapters[c.ID] = c
	cp := *c
	return &cp, nil
}

func (m *memRepo) UpdateChapter(ctx context.Context, id int64, req models.ChapterRequest) (*models.Chapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chapters[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.Name, c.Slug, c.Description, c.Order = req.Name, req.Slug, req.Description, req.Order
	cp := *c
	return &cp, nil
}

func (m *memRepo) DeleteChapter(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chapters[id]; !ok {
		return ErrNotFound
	}
	delete(m.chapters, id)
	return nil
}

func (m *memRepo) ListQuestions(ctx context.Context, f QuestionFilter) ([]models.Question, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.Question
	for _, q := range m.questions {
		if f.SubjectID != 0 && q.SubjectID != f.SubjectID {
			continue
		}
		if f.Difficulty != "" && q.Difficulty != f.Difficulty {
			continue
		}
		all = append(all, *q)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	if f.Offset > len(all) {
		f.Offset = len(all)
	}
	all = all[f.Offset:]
	if len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func (m *memRepo) GetQuestion(ctx context.Context, id int64) (*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (m *memRepo) CreateQuestion(ctx context.Context, req models.QuestionRequest) (*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := &models.Question{
		ID: m.id(), SubjectID: req.SubjectID, ChapterID: req.ChapterID, Text: req.Text,
		Options: req.Options, CorrectOption: req.CorrectOption, Explanation: req.Explanation, Difficulty: req.Difficulty,
	}
	m.questions[q.ID] = q
	cp := *q
	return &cp, nil
}

func (m *memRepo) UpdateQuestion(ctx context.Context, id int64, req models.QuestionRequest) (*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return nil, ErrNotFound
	}
	q.SubjectID, q.ChapterID, q.Text, q.Options = req.SubjectID, req.ChapterID, req.Text, req.Options
	q.CorrectOption, q.Explanation, q.Difficulty = req.CorrectOption, req.Explanation, req.Difficulty
	cp := *q
	return &cp, nil
}

func (m *memRepo) DeleteQuestion(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return ErrNotFound
	}
	delete(m.questions, id)
	return nil
}

func (m *memRepo) TimedQuestions(ctx context.Context, minAttempts int) ([]models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Question
	for _, q := range m.questions {
		if q.AttemptCount >= minAttempts {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) UpdateQuestionDifficulty(ctx context.Context, id int64, d models.Difficulty) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failIDs[id] {
		return errors.New("lock timeout")
	}
	q, ok := m.questions[id]
	if !ok {
		return ErrNotFound
	}
	q.Difficulty = d
	return nil
}
