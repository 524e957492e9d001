package exam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pucet-prep/backend/internal/database"
	"github.com/pucet-prep/backend/internal/models"
)

// Store is the PostgreSQL implementation of every engine repository.
type Store struct {
	db *sql.DB
}

var (
	_ Repository        = (*Store)(nil)
	_ AtomicStatsFolder = (*Store)(nil)
)

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Question Repository ────────────────────────────────

// poolPredicate renders the pool filter starting at placeholder $1.
func poolPredicate(pool Pool) (string, []any) {
	conditions := []string{"q.subject_id = $1"}
	args := []any{pool.SubjectID}

	if pool.ChapterID != nil {
		args = append(args, *pool.ChapterID)
		conditions = append(conditions, fmt.Sprintf("q.chapter_id = $%d", len(args)))
	}
	if pool.Difficulty != "" && pool.Difficulty != models.DifficultyAll {
		args = append(args, string(pool.Difficulty))
		conditions = append(conditions, fmt.Sprintf("q.difficulty = $%d", len(args)))
	}
	return strings.Join(conditions, " AND "), args
}

// samplePredicate adds the id restriction to the pool filter.
func samplePredicate(pool Pool, ids []int64, membership Membership) (string, []any) {
	where, args := poolPredicate(pool)
	if len(ids) > 0 {
		args = append(args, pq.Array(ids))
		if membership == In {
			where += fmt.Sprintf(" AND q.id = ANY($%d)", len(args))
		} else {
			where += fmt.Sprintf(" AND NOT (q.id = ANY($%d))", len(args))
		}
	}
	return where, args
}

func (s *Store) SampleQuestions(ctx context.Context, pool Pool, ids []int64, membership Membership, k int) ([]models.Question, error) {
	if k <= 0 {
		return nil, nil
	}
	if membership == In && len(ids) == 0 {
		return nil, nil
	}

	where, args := samplePredicate(pool, ids, membership)
	args = append(args, k)

	query := `SELECT ` + database.QuestionColumns + `
		FROM questions q
		WHERE ` + where + fmt.Sprintf(`
		ORDER BY RANDOM()
		LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sample questions: %w", err)
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

func (s *Store) CountQuestions(ctx context.Context, pool Pool, ids []int64, membership Membership) (int, error) {
	if membership == In && len(ids) == 0 {
		return 0, nil
	}

	where, args := samplePredicate(pool, ids, membership)
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions q WHERE `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

func (s *Store) GetSubjectBySlug(ctx context.Context, slug string) (*models.Subject, error) {
	subject, err := database.ScanSubject(s.db.QueryRowContext(ctx,
		`SELECT `+database.SubjectColumns+` FROM subjects s WHERE s.slug = $1`, slug,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subject %q: %w", slug, err)
	}
	return subject, nil
}

func (s *Store) GetSubjectsBySlugs(ctx context.Context, slugs []string) ([]models.Subject, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+database.SubjectColumns+` FROM subjects s WHERE s.slug = ANY($1)`, pq.Array(slugs),
	)
	if err != nil {
		return nil, fmt.Errorf("get subjects: %w", err)
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

func (s *Store) GetChapter(ctx context.Context, id int64) (*models.Chapter, error) {
	chapter, err := database.ScanChapter(s.db.QueryRowContext(ctx,
		`SELECT `+database.ChapterColumns+` FROM chapters c WHERE c.id = $1`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChapterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chapter %d: %w", id, err)
	}
	return chapter, nil
}

// ── Question Statistics ────────────────────────────────

func (s *Store) GetQuestionStats(ctx context.Context, questionID int64) (QuestionStats, error) {
	var stats QuestionStats
	err := s.db.QueryRowContext(ctx,
		`SELECT average_time, attempt_count, correct_count FROM questions WHERE id = $1`, questionID,
	).Scan(&stats.AverageTime, &stats.AttemptCount, &stats.CorrectCount)
	if err != nil {
		return QuestionStats{}, fmt.Errorf("get stats for question %d: %w", questionID, err)
	}
	return stats, nil
}

func (s *Store) SaveQuestionStats(ctx context.Context, questionID int64, stats QuestionStats) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET average_time = $2, attempt_count = $3, correct_count = $4, updated_at = NOW()
		 WHERE id = $1`,
		questionID, stats.AverageTime, stats.AttemptCount, stats.CorrectCount,
	)
	if err != nil {
		return fmt.Errorf("save stats for question %d: %w", questionID, err)
	}
	return expectOneRow(res, questionID)
}

// FoldQuestionStats updates the running mean in one statement. Every SET
// expression reads the pre-update row, so average_time uses the old count.
func (s *Store) FoldQuestionStats(ctx context.Context, questionID int64, timeTaken float64, correct bool) error {
	correctInc := 0
	if correct {
		correctInc = 1
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET
			average_time  = (average_time * attempt_count + $2) / (attempt_count + 1),
			attempt_count = attempt_count + 1,
			correct_count = correct_count + $3,
			updated_at    = NOW()
		 WHERE id = $1`,
		questionID, timeTaken, correctInc,
	)
	if err != nil {
		return fmt.Errorf("fold stats for question %d: %w", questionID, err)
	}
	return expectOneRow(res, questionID)
}

func expectOneRow(res sql.Result, questionID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("question %d no longer exists", questionID)
	}
	return nil
}

// ── Learner Ledger ─────────────────────────────────────

func (s *Store) GetLearner(ctx context.Context, learnerID int64) (*models.Learner, error) {
	learner, err := database.ScanLearner(s.db.QueryRowContext(ctx,
		`SELECT `+database.LearnerColumns+` FROM users u WHERE u.id = $1`, learnerID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLearnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get learner %d: %w", learnerID, err)
	}
	return learner, nil
}

func (s *Store) AttemptedQuestionIDs(ctx context.Context, learnerID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id FROM user_attempted_questions WHERE user_id = $1`, learnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("get attempted questions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan attempted question: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) RecordAttempt(ctx context.Context, learnerID int64, questionIDs []int64, countTowardQuota bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer tx.Rollback()

	if countTowardQuota {
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET free_tests_taken = free_tests_taken + 1, updated_at = NOW() WHERE id = $1`,
			learnerID,
		)
		if err != nil {
			return fmt.Errorf("increment free tests: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrLearnerNotFound
		}
	}

	if len(questionIDs) > 0 {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO user_attempted_questions (user_id, question_id)
			 SELECT $1, unnest($2::bigint[])
			 ON CONFLICT (user_id, question_id) DO NOTHING`,
			learnerID, pq.Array(questionIDs),
		)
		if err != nil {
			return fmt.Errorf("add attempted questions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

// ── Submissions ────────────────────────────────────────

func (s *Store) SaveSubmission(ctx context.Context, sub *models.Submission) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin submission tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO results (user_id, subject_id, score, total_questions, percentage)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		sub.UserID, sub.SubjectID, sub.Score, sub.TotalQuestions, sub.Percentage,
	).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	if len(sub.Questions) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO result_questions (result_id, position, question_id, time_taken, user_choice, is_correct)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
		)
		if err != nil {
			return fmt.Errorf("prepare result question insert: %w", err)
		}
		defer stmt.Close()

		for i, q := range sub.Questions {
			if _, err := stmt.ExecContext(ctx, sub.ID, i, q.QuestionID, q.TimeTaken, q.UserChoice, q.IsCorrect); err != nil {
				return fmt.Errorf("insert result question %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit submission tx: %w", err)
	}
	return nil
}
