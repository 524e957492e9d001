package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/pucet-prep/backend/internal/models"
	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
	ErrInvalid  = errors.New("invalid content")
)

// DefaultSubjectImage is stored when a subject is created without one.
const DefaultSubjectImage = "https://placehold.co/400x300?text=Subject"

// Accuracy bands used to suggest a difficulty from observed answers.
const (
	EasyAccuracy = 0.80
	HardAccuracy = 0.40

	DefaultMinAttempts = 20
)

type QuestionFilter struct {
	SubjectID  int64
	ChapterID  *int64
	Difficulty models.Difficulty
	Limit      int
	Offset     int
}

// Repository is the content persistence. *Store satisfies it.
type Repository interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	GetSubject(ctx context.Context, id int64) (*models.Subject, error)
	GetSubjectBySlug(ctx context.Context, slug string) (*models.Subject, error)
	CreateSubject(ctx context.Context, req models.SubjectRequest) (*models.Subject, error)
	UpdateSubject(ctx context.Context, id int64, req models.SubjectRequest) (*models.Subject, error)
	DeleteSubject(ctx context.Context, id int64) error

	ListChapters(ctx context.Context, subjectID int64) ([]models.Chapter, error)
	GetChapter(ctx context.Context, id int64) (*models.Chapter, error)
	CreateChapter(ctx context.Context, subjectID int64, req models.ChapterRequest) (*models.Chapter, error)
	UpdateChapter(ctx context.Context, id int64, req models.ChapterRequest) (*models.Chapter, error)
	DeleteChapter(ctx context.Context, id int64) error

	ListQuestions(ctx context.Context, f QuestionFilter) ([]models.Question, int, error)
	GetQuestion(ctx context.Context, id int64) (*models.Question, error)
	CreateQuestion(ctx context.Context, req models.QuestionRequest) (*models.Question, error)
	UpdateQuestion(ctx context.Context, id int64, req models.QuestionRequest) (*models.Question, error)
	DeleteQuestion(ctx context.Context, id int64) error

	TimedQuestions(ctx context.Context, minAttempts int) ([]models.Question, error)
	UpdateQuestionDifficulty(ctx context.Context, id int64, d models.Difficulty) error
}

type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// ── Subjects ────────────────────────────────────────────

func (s *Service) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	return s.repo.ListSubjects(ctx)
}

func (s *Service) GetSubjectBySlug(ctx context.Context, slug string) (*models.Subject, error) {
	return s.repo.GetSubjectBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
}

func (s *Service) CreateSubject(ctx context.Context, req models.SubjectRequest) (*models.Subject, error) {
	if err := normalizeSubject(&req); err != nil {
		return nil, err
	}
	return s.repo.CreateSubject(ctx, req)
}

func (s *Service) UpdateSubject(ctx context.Context, id int64, req models.SubjectRequest) (*models.Subject, error) {
	if err := normalizeSubject(&req); err != nil {
		return nil, err
	}
	return s.repo.UpdateSubject(ctx, id, req)
}

func (s *Service) DeleteSubject(ctx context.Context, id int64) error {
	if err := s.repo.DeleteSubject(ctx, id); err != nil {
		return err
	}
	s.logger.Info("subject deleted", zap.Int64("subject_id", id))
	return nil
}

func normalizeSubject(req *models.SubjectRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return invalid("name is required")
	}
	req.Slug = Slugify(req.Slug)
	if req.Slug == "" {
		req.Slug = Slugify(req.Name)
	}
	if req.Slug == "" {
		return invalid("slug must contain letters or digits")
	}
	if strings.TrimSpace(req.Image) == "" {
		req.Image = DefaultSubjectImage
	}
	streams := make([]string, 0, len(req.Streams))
	for _, st := range req.Streams {
		if st = strings.ToUpper(strings.TrimSpace(st)); st != "" {
			streams = append(streams, st)
		}
	}
	req.Streams = streams
	return nil
}

// ── Chapters ────────────────────────────────────────────

func (s *Service) ListChapters(ctx context.Context, subjectID int64) ([]models.Chapter, error) {
	if _, err := s.repo.GetSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	return s.repo.ListChapters(ctx, subjectID)
}

func (s *Service) CreateChapter(ctx context.Context, subjectID int64, req models.ChapterRequest) (*models.Chapter, error) {
	if err := normalizeChapter(&req); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	return s.repo.CreateChapter(ctx, subjectID, req)
}

func (s *Service) UpdateChapter(ctx context.Context, id int64, req models.ChapterRequest) (*models.Chapter, error) {
	if err := normalizeChapter(&req); err != nil {
		return nil, err
	}
	return s.repo.UpdateChapter(ctx, id, req)
}

func (s *Service) DeleteChapter(ctx context.Context, id int64) error {
	return s.repo.DeleteChapter(ctx, id)
}

func normalizeChapter(req *models.ChapterRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return invalid("name is required")
	}
	req.Slug = Slugify(req.Slug)
	if req.Slug == "" {
		req.Slug = Slugify(req.Name)
	}
	if req.Slug == "" {
		return invalid("slug must contain letters or digits")
	}
	return nil
}

// ── Questions ───────────────────────────────────────────

func (s *Service) ListQuestions(ctx context.Context, f QuestionFilter) ([]models.Question, int, error) {
	if f.Difficulty != "" && !models.ValidDifficulties[f.Difficulty] {
		return nil, 0, invalid("difficulty must be 'easy', 'medium', or 'hard'")
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.ListQuestions(ctx, f)
}

func (s *Service) GetQuestion(ctx context.Context, id int64) (*models.Question, error) {
	return s.repo.GetQuestion(ctx, id)
}

func (s *Service) CreateQuestion(ctx context.Context, req models.QuestionRequest) (*models.Question, error) {
	if err := s.checkQuestion(ctx, &req); err != nil {
		return nil, err
	}
	return s.repo.CreateQuestion(ctx, req)
}

func (s *Service) UpdateQuestion(ctx context.Context, id int64, req models.QuestionRequest) (*models.Question, error) {
	if err := s.checkQuestion(ctx, &req); err != nil {
		return nil, err
	}
	return s.repo.UpdateQuestion(ctx, id, req)
}

func (s *Service) DeleteQuestion(ctx context.Context, id int64) error {
	return s.repo.DeleteQuestion(ctx, id)
}

// checkQuestion validates the request and confirms the subject exists and
// owns the chapter, if one is given.
func (s *Service) checkQuestion(ctx context.Context, req *models.QuestionRequest) error {
	if err := ValidateQuestion(req); err != nil {
		return err
	}
	if _, err := s.repo.GetSubject(ctx, req.SubjectID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalid("subject %d does not exist", req.SubjectID)
		}
		return err
	}
	if req.ChapterID != nil {
		chapter, err := s.repo.GetChapter(ctx, *req.ChapterID)
		if errors.Is(err, ErrNotFound) || (err == nil && chapter.SubjectID != req.SubjectID) {
			return invalid("chapter %d does not belong to subject %d", *req.ChapterID, req.SubjectID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ValidateQuestion checks the authored fields and defaults the difficulty
// to medium.
func ValidateQuestion(req *models.QuestionRequest) error {
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return invalid("text is required")
	}
	if req.SubjectID <= 0 {
		return invalid("subjectId is required")
	}
	if len(req.Options) != models.OptionCount {
		return invalid("exactly %d options are required", models.OptionCount)
	}
	for i, opt := range req.Options {
		if strings.TrimSpace(opt) == "" {
			return invalid("option %d is empty", i)
		}
	}
	if req.CorrectOption < 0 || req.CorrectOption >= models.OptionCount {
		return invalid("correctOption must be between 0 and %d", models.OptionCount-1)
	}
	if req.Difficulty == "" {
		req.Difficulty = models.DifficultyMedium
	}
	if !models.ValidDifficulties[req.Difficulty] {
		return invalid("difficulty must be 'easy', 'medium', or 'hard'")
	}
	return nil
}

// ── Timing report ───────────────────────────────────────

// SuggestDifficulty maps observed accuracy onto a difficulty band.
func SuggestDifficulty(accuracy float64) models.Difficulty {
	switch {
	case accuracy >= EasyAccuracy:
		return models.DifficultyEasy
	case accuracy <= HardAccuracy:
		return models.DifficultyHard
	default:
		return models.DifficultyMedium
	}
}

// TimingReport lists every question with enough attempts, flagging those
// whose label disagrees with observed accuracy. With apply set the
// suggested difficulty is written back; individual failures are logged
// and skipped.
func (s *Service) TimingReport(ctx context.Context, minAttempts int, apply bool) (*models.TimingReport, error) {
	if minAttempts <= 0 {
		minAttempts = DefaultMinAttempts
	}
	questions, err := s.repo.TimedQuestions(ctx, minAttempts)
	if err != nil {
		return nil, fmt.Errorf("get timed questions: %w", err)
	}

	report := &models.TimingReport{
		TotalEvaluated: len(questions),
		Applied:        apply,
		Details:        []models.TimingCandidate{},
	}
	for _, q := range questions {
		accuracy := 0.0
		if q.AttemptCount > 0 {
			accuracy = float64(q.CorrectCount) / float64(q.AttemptCount)
		}
		c := models.TimingCandidate{
			QuestionID:          q.ID,
			SubjectID:           q.SubjectID,
			LabeledDifficulty:   q.Difficulty,
			SuggestedDifficulty: SuggestDifficulty(accuracy),
			AverageTime:         q.AverageTime,
			AttemptCount:        q.AttemptCount,
			CorrectCount:        q.CorrectCount,
			Accuracy:            accuracy,
		}
		report.Details = append(report.Details, c)
		if c.SuggestedDifficulty == c.LabeledDifficulty {
			continue
		}
		report.Mislabeled++

		if !apply {
			continue
		}
		if err := s.repo.UpdateQuestionDifficulty(ctx, c.QuestionID, c.SuggestedDifficulty); err != nil {
			s.logger.Warn("failed to recalibrate question",
				zap.Int64("question_id", c.QuestionID),
				zap.Error(err),
			)
		}
	}
	return report, nil
}

// Slugify lowercases s and joins its alphanumeric runs with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false
			continue
		}
		pendingDash = true
	}
	return b.String()
}
