package content

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pucet-prep/backend/internal/database"
	"github.com/pucet-prep/backend/internal/models"
)

// Store is the PostgreSQL content repository.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ Repository = (*Store)(nil)

// mapErr turns driver errors into package sentinels.
func mapErr(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case err == sql.ErrNoRows:
		return ErrNotFound
	case database.IsUniqueViolation(err):
		return ErrConflict
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// ── Subjects ────────────────────────────────────────────

func (s *Store) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+database.SubjectColumns+` FROM subjects s ORDER BY s.name`)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	subjects := []models.Subject{}
	for rows.Next() {
		subject, err := database.ScanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, *subject)
	}
	return subjects, rows.Err()
}

func (s *Store) GetSubject(ctx context.Context, id int64) (*models.Subject, error) {
	subject, err := database.ScanSubject(s.db.QueryRowContext(ctx,
		`SELECT `+database.SubjectColumns+` FROM subjects s WHERE s.id = $1`, id))
	return subject, mapErr(err, "get subject")
}

func (s *Store) GetSubjectBySlug(ctx context.Context, slug string) (*models.Subject, error) {
	subject, err := database.ScanSubject(s.db.QueryRowContext(ctx,
		`SELECT `+database.SubjectColumns+` FROM subjects s WHERE s.slug = $1`, slug))
	return subject, mapErr(err, "get subject by slug")
}

func (s *Store) CreateSubject(ctx context.Context, req models.SubjectRequest) (*models.Subject, error) {
	subject, err := database.ScanSubject(s.db.QueryRowContext(ctx,
		`INSERT INTO subjects AS s (name, slug, streams, image, description)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+database.SubjectColumns,
		req.Name, req.Slug, pq.Array(req.Streams), req.Image, req.Description,
	))
	return subject, mapErr(err, "insert subject")
}

func (s *Store) UpdateSubject(ctx context.Context, id int64, req models.SubjectRequest) (*models.Subject, error) {
	subject, err := database.ScanSubject(s.db.QueryRowContext(ctx,
		`UPDATE subjects AS s
		 SET name = $2, slug = $3, streams = $4, image = $5, description = $6
		 WHERE s.id = $1
		 RETURNING `+database.SubjectColumns,
		id, req.Name, req.Slug, pq.Array(req.Streams), req.Image, req.Description,
	))
	return subject, mapErr(err, "update subject")
}

// DeleteSubject removes the subject; chapters and questions follow via
// ON DELETE CASCADE.
func (s *Store) DeleteSubject(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `DELETE FROM subjects WHERE id = $1`, id)
}

// ── Chapters ────────────────────────────────────────────

func (s *Store) ListChapters(ctx context.Context, subjectID int64) ([]models.Chapter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+database.ChapterColumns+` FROM chapters c
		 WHERE c.subject_id = $1
		 ORDER BY c.sort_order, c.name`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	chapters := []models.Chapter{}
	for rows.Next() {
		c, err := database.ScanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		chapters = append(chapters, *c)
	}
	return chapters, rows.Err()
}

func (s *Store) GetChapter(ctx context.Context, id int64) (*models.Chapter, error) {
	c, err := database.ScanChapter(s.db.QueryRowContext(ctx,
		`SELECT `+database.ChapterColumns+` FROM chapters c WHERE c.id = $1`, id))
	return c, mapErr(err, "get chapter")
}

func (s *Store) CreateChapter(ctx context.Context, subjectID int64, req models.ChapterRequest) (*models.Chapter, error) {
	c, err := database.ScanChapter(s.db.QueryRowContext(ctx,
		`INSERT INTO chapters AS c (subject_id, name, slug, description, sort_order)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+database.ChapterColumns,
		subjectID, req.Name, req.Slug, req.Description, req.Order,
	))
	return c, mapErr(err, "insert chapter")
}

func (s *Store) UpdateChapter(ctx context.Context, id int64, req models.ChapterRequest) (*models.Chapter, error) {
	c, err := database.ScanChapter(s.db.QueryRowContext(ctx,
		`UPDATE chapters AS c
		 SET name = $2, slug = $3, description = $4, sort_order = $5
		 WHERE c.id = $1
		 RETURNING `+database.ChapterColumns,
		id, req.Name, req.Slug, req.Description, req.Order,
	))
	return c, mapErr(err, "update chapter")
}

func (s *Store) DeleteChapter(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `DELETE FROM chapters WHERE id = $1`, id)
}

// ── Questions ───────────────────────────────────────────

func (s *Store) ListQuestions(ctx context.Context, f QuestionFilter) ([]models.Question, int, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.SubjectID != 0 {
		add("q.subject_id = $%d", f.SubjectID)
	}
	if f.ChapterID != nil {
		add("q.chapter_id = $%d", *f.ChapterID)
	}
	if f.Difficulty != "" {
		add("q.difficulty = $%d", f.Difficulty)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions q`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count questions: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+database.QuestionColumns+` FROM questions q`+clause+
			fmt.Sprintf(` ORDER BY q.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	questions := []models.Question{}
	for rows.Next() {
		q, err := database.ScanQuestion(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, *q)
	}
	return questions, total, rows.Err()
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (*models.Question, error) {
	q, err := database.ScanQuestion(s.db.QueryRowContext(ctx,
		`SELECT `+database.QuestionColumns+` FROM questions q WHERE q.id = $1`, id))
	return q, mapErr(err, "get question")
}

func (s *Store) CreateQuestion(ctx context.Context, req models.QuestionRequest) (*models.Question, error) {
	q, err := database.ScanQuestion(s.db.QueryRowContext(ctx,
		`INSERT INTO questions AS q (subject_id, chapter_id, text, options, correct_option, explanation, difficulty)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+database.QuestionColumns,
		req.SubjectID, req.ChapterID, req.Text, pq.Array(req.Options), req.CorrectOption, req.Explanation, req.Difficulty,
	))
	return q, mapErr(err, "insert question")
}

// UpdateQuestion replaces the authored fields. Collected statistics are
// left alone.
func (s *Store) UpdateQuestion(ctx context.Context, id int64, req models.QuestionRequest) (*models.Question, error) {
	q, err := database.ScanQuestion(s.db.QueryRowContext(ctx,
		`UPDATE questions AS q
		 SET subject_id = $2, chapter_id = $3, text = $4, options = $5, correct_option = $6,
		     explanation = $7, difficulty = $8, updated_at = NOW()
		 WHERE q.id = $1
		 RETURNING `+database.QuestionColumns,
		id, req.SubjectID, req.ChapterID, req.Text, pq.Array(req.Options), req.CorrectOption, req.Explanation, req.Difficulty,
	))
	return q, mapErr(err, "update question")
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `DELETE FROM questions WHERE id = $1`, id)
}

// TimedQuestions returns questions answered at least minAttempts times,
// most-attempted first.
func (s *Store) TimedQuestions(ctx context.Context, minAttempts int) ([]models.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+database.QuestionColumns+` FROM questions q
		 WHERE q.attempt_count >= $1
		 ORDER BY q.attempt_count DESC, q.id`, minAttempts)
	if err != nil {
		return nil, fmt.Errorf("timed questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		q, err := database.ScanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

func (s *Store) UpdateQuestionDifficulty(ctx context.Context, id int64, d models.Difficulty) error {
	_, err := s.db.ExecContext(ctx, `UPDATE questions SET difficulty = $1, updated_at = NOW() WHERE id = $2`, d, id)
	return err
}

func (s *Store) deleteByID(ctx context.Context, query string, id int64) error {
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
