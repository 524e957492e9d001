package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pucet-prep/backend/internal/database"
	"github.com/pucet-prep/backend/internal/models"
)

var (
	ErrNotFound   = errors.New("account not found")
	ErrEmailTaken = errors.New("an account with this email already exists")
)

// Store persists learner accounts in PostgreSQL.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateLearner(ctx context.Context, email, fullName, passwordHash string) (*models.Learner, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO users AS u (email, full_name, password)
		 VALUES ($1, $2, $3)
		 RETURNING `+database.LearnerColumns,
		email, fullName, passwordHash,
	)
	l, err := database.ScanLearner(row)
	if database.IsUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert learner: %w", err)
	}
	return l, nil
}

// GetByEmail returns the learner with its password hash populated.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Learner, error) {
	var hash string
	row := s.db.QueryRowContext(ctx,
		`SELECT `+database.LearnerColumns+`, u.password FROM users u WHERE u.email = $1`, email)
	var l models.Learner
	err := row.Scan(&l.ID, &l.Email, &l.FullName, &l.Role, &l.IsPremium, &l.FreeTestsTaken, &l.CreatedAt, &l.UpdatedAt, &hash)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query learner by email: %w", err)
	}
	l.Password = hash
	return &l, nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*models.Learner, error) {
	l, err := database.ScanLearner(s.db.QueryRowContext(ctx,
		`SELECT `+database.LearnerColumns+` FROM users u WHERE u.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query learner: %w", err)
	}
	return l, nil
}

// Role satisfies middleware.RoleLookup.
func (s *Store) Role(ctx context.Context, id int64) (models.Role, error) {
	var role models.Role
	err := s.db.QueryRowContext(ctx, `SELECT role FROM users WHERE id = $1`, id).Scan(&role)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query role: %w", err)
	}
	return role, nil
}

// ── Operator commands ───────────────────────────────────

func (s *Store) SetRole(ctx context.Context, email string, role models.Role) error {
	return s.updateByEmail(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE email = $1`, email, role)
}

func (s *Store) SetPremium(ctx context.Context, email string, premium bool) error {
	return s.updateByEmail(ctx, `UPDATE users SET is_premium = $2, updated_at = NOW() WHERE email = $1`, email, premium)
}

func (s *Store) updateByEmail(ctx context.Context, query, email string, value any) error {
	res, err := s.db.ExecContext(ctx, query, email, value)
	if err != nil {
		return fmt.Errorf("update learner: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update learner: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListLearners(ctx context.Context) ([]models.Learner, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+database.LearnerColumns+` FROM users u ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("query learners: %w", err)
	}
	defer rows.Close()

	learners := []models.Learner{}
	for rows.Next() {
		l, err := database.ScanLearner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan learner: %w", err)
		}
		learners = append(learners, *l)
	}
	return learners, rows.Err()
}
