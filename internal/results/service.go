package results

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pucet-prep/backend/internal/models"
)

const (
	recentActivityLimit = 5
	testsPerLevel       = 5
	LeaderboardSize     = 20
)

// Attempt is one stored submission joined with its subject. Subject is
// nil for stream papers and for subjects deleted since.
type Attempt struct {
	ID             int64
	Subject        *models.SubjectRef
	Score          int
	TotalQuestions int
	Percentage     float64
	CreatedAt      time.Time
}

// Repository is the read side over stored submissions. *Store satisfies it.
type Repository interface {
	// UserAttempts returns the learner's submissions, newest first.
	UserAttempts(ctx context.Context, userID int64) ([]Attempt, error)
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	// Leaderboard aggregates per learner, ordered by total score then
	// average percentage, both descending.
	Leaderboard(ctx context.Context, subjectID *int64, limit int) ([]models.LeaderboardEntry, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Progress(ctx context.Context, userID int64) (*models.ProgressResponse, error) {
	attempts, err := s.repo.UserAttempts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}
	subjects, err := s.repo.ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}
	return BuildProgress(attempts, subjects), nil
}

func (s *Service) History(ctx context.Context, userID int64) ([]models.HistoryEntry, error) {
	attempts, err := s.repo.UserAttempts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}
	history := make([]models.HistoryEntry, 0, len(attempts))
	for _, a := range attempts {
		history = append(history, models.HistoryEntry{
			ID:             a.ID,
			Subject:        a.Subject,
			Score:          a.Score,
			TotalQuestions: a.TotalQuestions,
			Percentage:     math.Round(a.Percentage),
			Date:           a.CreatedAt,
		})
	}
	return history, nil
}

func (s *Service) Leaderboard(ctx context.Context, subjectID *int64) ([]models.LeaderboardEntry, error) {
	entries, err := s.repo.Leaderboard(ctx, subjectID, LeaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].AvgPercentage = round2(entries[i].AvgPercentage)
	}
	return entries, nil
}

// BuildProgress summarises attempts (newest first) against the full
// subject list.
func BuildProgress(attempts []Attempt, subjects []models.Subject) *models.ProgressResponse {
	resp := &models.ProgressResponse{
		TotalTests:      len(attempts),
		Level:           Level(len(attempts)),
		RecentActivity:  []models.RecentActivity{},
		SubjectProgress: make([]models.SubjectProgress, 0, len(subjects)),
	}

	sum := 0.0
	perSubject := make(map[int64][]float64)
	for _, a := range attempts {
		sum += a.Percentage
		if a.Subject != nil {
			perSubject[a.Subject.ID] = append(perSubject[a.Subject.ID], a.Percentage)
		}
	}
	if len(attempts) > 0 {
		resp.AvgPercentage = roundInt(sum / float64(len(attempts)))
	}

	for i, a := range attempts {
		if i == recentActivityLimit {
			break
		}
		name := "Unknown"
		if a.Subject != nil {
			name = a.Subject.Name
		}
		resp.RecentActivity = append(resp.RecentActivity, models.RecentActivity{
			ID:      a.ID,
			Subject: name,
			Score:   fmt.Sprintf("%d/%d", a.Score, a.TotalQuestions),
			Date:    a.CreatedAt,
			Points:  Points(a.Percentage),
		})
	}

	for _, sub := range subjects {
		pcts := perSubject[sub.ID]
		accuracy := 0
		if len(pcts) > 0 {
			total := 0.0
			for _, p := range pcts {
				total += p
			}
			accuracy = roundInt(total / float64(len(pcts)))
		}
		resp.SubjectProgress = append(resp.SubjectProgress, models.SubjectProgress{
			ID:         sub.ID,
			Name:       sub.Name,
			Slug:       sub.Slug,
			Image:      sub.Image,
			TestsCount: len(pcts),
			Accuracy:   accuracy,
		})
	}
	return resp
}

// Level is one plus a level for every five completed papers.
func Level(totalTests int) int {
	return totalTests/testsPerLevel + 1
}

// Points is the activity-feed reward for a paper, one point per ten
// percent.
func Points(percentage float64) string {
	return fmt.Sprintf("+%d", roundInt(percentage/10))
}

// roundInt rounds half away from zero.
func roundInt(x float64) int {
	return int(math.Round(x))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
