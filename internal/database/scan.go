package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/pucet-prep/backend/internal/models"
)

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// QuestionColumns matches the scan order of ScanQuestion. Queries alias
// the questions table as q.
const QuestionColumns = `q.id, q.subject_id, q.chapter_id, q.text, q.options, q.correct_option,
	q.explanation, q.difficulty, q.average_time, q.attempt_count, q.correct_count,
	q.created_at, q.updated_at`

func ScanQuestion(row Scanner) (*models.Question, error) {
	var q models.Question
	var chapterID sql.NullInt64
	err := row.Scan(
		&q.ID, &q.SubjectID, &chapterID, &q.Text, pq.Array(&q.Options), &q.CorrectOption,
		&q.Explanation, &q.Difficulty, &q.AverageTime, &q.AttemptCount, &q.CorrectCount,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if chapterID.Valid {
		id := chapterID.Int64
		q.ChapterID = &id
	}
	return &q, nil
}

// SubjectColumns matches the scan order of ScanSubject. Queries alias the
// subjects table as s.
const SubjectColumns = `s.id, s.name, s.slug, s.streams, s.image, s.description, s.created_at`

func ScanSubject(row Scanner) (*models.Subject, error) {
	var s models.Subject
	err := row.Scan(&s.ID, &s.Name, &s.Slug, pq.Array(&s.Streams), &s.Image, &s.Description, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if s.Streams == nil {
		s.Streams = []string{}
	}
	return &s, nil
}

// ChapterColumns matches the scan order of ScanChapter. Queries alias the
// chapters table as c.
const ChapterColumns = `c.id, c.subject_id, c.name, c.slug, c.description, c.sort_order, c.created_at`

func ScanChapter(row Scanner) (*models.Chapter, error) {
	var c models.Chapter
	err := row.Scan(&c.ID, &c.SubjectID, &c.Name, &c.Slug, &c.Description, &c.Order, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// LearnerColumns matches the scan order of ScanLearner. Queries alias the
// users table as u.
const LearnerColumns = `u.id, u.email, u.full_name, u.role, u.is_premium, u.free_tests_taken, u.created_at, u.updated_at`

func ScanLearner(row Scanner) (*models.Learner, error) {
	var l models.Learner
	err := row.Scan(&l.ID, &l.Email, &l.FullName, &l.Role, &l.IsPremium, &l.FreeTestsTaken, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
