package exam

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"

	"github.com/pucet-prep/backend/internal/config"
	"github.com/pucet-prep/backend/internal/models"
)

// memRepo is an in-memory Repository. It does not implement
// AtomicStatsFolder; wrap it in atomicRepo for that.
type memRepo struct {
	mu sync.Mutex

	subjects    map[string]models.Subject
	chapters    map[int64]models.Chapter
	questions   map[int64]*models.Question
	learners    map[int64]*models.Learner
	attempted   map[int64]map[int64]bool
	submissions []*models.Submission
	rng         *rand.Rand

	sampleErr  error
	saveErr    error
	ledgerErr  error
	statsErr   map[int64]error
	statsCalls int
}

func newMemRepo() *memRepo {
	return &memRepo{
		subjects:  make(map[string]models.Subject),
		chapters:  make(map[int64]models.Chapter),
		questions: make(map[int64]*models.Question),
		learners:  make(map[int64]*models.Learner),
		attempted: make(map[int64]map[int64]bool),
		rng:       rand.New(rand.NewSource(42)),
		statsErr:  make(map[int64]error),
	}
}

func (m *memRepo) addSubject(id int64, slug string) models.Subject {
	s := models.Subject{ID: id, Name: slug, Slug: slug}
	m.subjects[slug] = s
	return s
}

// addQuestions creates n questions with consecutive ids starting at first.
func (m *memRepo) addQuestions(subjectID int64, first int64, n int, d models.Difficulty) []int64 {
	ids := make([]int64, 0, n)
	for id := first; id < first+int64(n); id++ {
		m.questions[id] = &models.Question{
			ID:            id,
			SubjectID:     subjectID,
			Text:          "question",
			Options:       []string{"a", "b", "c", "d"},
			CorrectOption: 2,
			Explanation:   "because",
			Difficulty:    d,
		}
		ids = append(ids, id)
	}
	return ids
}

func (m *memRepo) addLearner(l models.Learner) {
	m.learners[l.ID] = &l
}

func (m *memRepo) matches(q *models.Question, pool Pool) bool {
	if q.SubjectID != pool.SubjectID {
		return false
	}
	if pool.ChapterID != nil && (q.ChapterID == nil || *q.ChapterID != *pool.ChapterID) {
		return false
	}
	if pool.Difficulty != "" && pool.Difficulty != models.DifficultyAll && q.Difficulty != pool.Difficulty {
		return false
	}
	return true
}

func (m *memRepo) SampleQuestions(ctx context.Context, pool Pool, ids []int64, membership Membership, k int) ([]models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sampleErr != nil {
		return nil, m.sampleErr
	}

	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}

	var candidates []models.Question
	for _, q := range m.questions {
		if !m.matches(q, pool) {
			continue
		}
		if set[q.ID] == (membership == In) {
			candidates = append(candidates, *q)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	m.rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

func (m *memRepo) CountQuestions(ctx context.Context, pool Pool, ids []int64, membership Membership) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sampleErr != nil {
		return 0, m.sampleErr
	}

	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	n := 0
	for _, q := range m.questions {
		if m.matches(q, pool) && set[q.ID] == (membership == In) {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) GetSubjectBySlug(ctx context.Context, slug string) (*models.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[slug]
	if !ok {
		return nil, ErrSubjectNotFound
	}
	return &s, nil
}

func (m *memRepo) GetSubjectsBySlugs(ctx context.Context, slugs []string) ([]models.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Subject
	for _, slug := range slugs {
		if s, ok := m.subjects[slug]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memRepo) GetChapter(ctx context.Context, id int64) (*models.Chapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chapters[id]
	if !ok {
		return nil, ErrChapterNotFound
	}
	return &c, nil
}

func (m *memRepo) GetQuestionStats(ctx context.Context, questionID int64) (QuestionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsCalls++
	if err := m.statsErr[questionID]; err != nil {
		return QuestionStats{}, err
	}
	q, ok := m.questions[questionID]
	if !ok {
		return QuestionStats{}, errors.New("question not found")
	}
	return QuestionStats{AverageTime: q.AverageTime, AttemptCount: q.AttemptCount, CorrectCount: q.CorrectCount}, nil
}

func (m *memRepo) SaveQuestionStats(ctx context.Context, questionID int64, stats QuestionStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[questionID]
	if !ok {
		return errors.New("question not found")
	}
	q.AverageTime = stats.AverageTime
	q.AttemptCount = stats.AttemptCount
	q.CorrectCount = stats.CorrectCount
	return nil
}

func (m *memRepo) GetLearner(ctx context.Context, learnerID int64) (*models.Learner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.learners[learnerID]
	if !ok {
		return nil, ErrLearnerNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memRepo) AttemptedQuestionIDs(ctx context.Context, learnerID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.attempted[learnerID]))
	for id := range m.attempted[learnerID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memRepo) RecordAttempt(ctx context.Context, learnerID int64, questionIDs []int64, countTowardQuota bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ledgerErr != nil {
		return m.ledgerErr
	}
	l, ok := m.learners[learnerID]
	if !ok {
		return ErrLearnerNotFound
	}
	if countTowardQuota {
		l.FreeTestsTaken++
	}
	if m.attempted[learnerID] == nil {
		m.attempted[learnerID] = make(map[int64]bool)
	}
	for _, id := range questionIDs {
		m.attempted[learnerID][id] = true
	}
	return nil
}

func (m *memRepo) SaveSubmission(ctx context.Context, sub *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	sub.ID = int64(len(m.submissions) + 1)
	m.submissions = append(m.submissions, sub)
	return nil
}

func (m *memRepo) seen(learnerID int64) map[int64]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]bool, len(m.attempted[learnerID]))
	for id := range m.attempted[learnerID] {
		out[id] = true
	}
	return out
}

// atomicRepo adds the single-statement fold.
type atomicRepo struct {
	*memRepo
	folds int
}

func (a *atomicRepo) FoldQuestionStats(ctx context.Context, questionID int64, timeTaken float64, correct bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.folds++
	if err := a.statsErr[questionID]; err != nil {
		return err
	}
	q, ok := a.questions[questionID]
	if !ok {
		return errors.New("question not found")
	}
	next := FoldMean(QuestionStats{AverageTime: q.AverageTime, AttemptCount: q.AttemptCount, CorrectCount: q.CorrectCount}, timeTaken, correct)
	q.AverageTime, q.AttemptCount, q.CorrectCount = next.AverageTime, next.AttemptCount, next.CorrectCount
	return nil
}

// countingObserver records engine events.
type countingObserver struct {
	mu             sync.Mutex
	assembled      map[string]int
	denied         map[string]int
	submissions    int
	ledgerFailures int
	statsFailures  int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{assembled: map[string]int{}, denied: map[string]int{}}
}

func (o *countingObserver) ExamAssembled(mode string, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.assembled[mode]++
}

func (o *countingObserver) EntitlementDenied(code string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.denied[code]++
}

func (o *countingObserver) SubmissionRecorded(bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.submissions++
}

func (o *countingObserver) LedgerUpdateFailed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ledgerFailures++
}

func (o *countingObserver) StatsFoldFailed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statsFailures++
}

func testCatalog(t interface{ Fatalf(string, ...any) }) Catalog {
	c, err := NewCatalog(config.ExamConfig{
		FreeTestLimit:      5,
		SingleSubjectCount: 60,
		StreamSubjectCount: 20,
		PracticeCount:      30,
		Streams: map[string][]string{
			"pcb": {"physics", "chemistry", "biology"},
			"PCM": {"physics", "chemistry", "mathematics"},
		},
	})
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return c
}

func paperIDs(qs []models.ExamQuestion) []int64 {
	out := make([]int64, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}
