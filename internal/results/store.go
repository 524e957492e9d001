package results

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pucet-prep/backend/internal/database"
	"github.com/pucet-prep/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ Repository = (*Store)(nil)

func (s *Store) UserAttempts(ctx context.Context, userID int64) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.score, r.total_questions, r.percentage, r.created_at,
		        s.id, s.name, s.slug
		 FROM results r
		 LEFT JOIN subjects s ON s.id = r.subject_id
		 WHERE r.user_id = $1
		 ORDER BY r.created_at DESC, r.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var subjectID sql.NullInt64
		var name, slug sql.NullString
		if err := rows.Scan(&a.ID, &a.Score, &a.TotalQuestions, &a.Percentage, &a.CreatedAt, &subjectID, &name, &slug); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if subjectID.Valid {
			a.Subject = &models.SubjectRef{ID: subjectID.Int64, Name: name.String, Slug: slug.String}
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (s *Store) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+database.SubjectColumns+` FROM subjects s ORDER BY s.name`)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	var subjects []models.Subject
	for rows.Next() {
		subject, err := database.ScanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, *subject)
	}
	return subjects, rows.Err()
}

func (s *Store) Leaderboard(ctx context.Context, subjectID *int64, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.full_name,
		        SUM(r.score), SUM(r.total_questions), COUNT(*), AVG(r.percentage)
		 FROM results r
		 JOIN users u ON u.id = r.user_id
		 WHERE $1::bigint IS NULL OR r.subject_id = $1
		 GROUP BY u.id, u.full_name
		 ORDER BY SUM(r.score) DESC, AVG(r.percentage) DESC, u.id
		 LIMIT $2`, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.FullName, &e.TotalScore, &e.TotalQuestions, &e.TestsTaken, &e.AvgPercentage); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
