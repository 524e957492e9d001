package exam

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/pucet-prep/backend/internal/middleware"
	"github.com/pucet-prep/backend/internal/models"
	"go.uber.org/zap"
)

// asUser stands in for the Auth middleware.
func asUser(id int64) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), id)))
		})
	}
}

func newTestRouter(t *testing.T, repo *memRepo, userID int64) *mux.Router {
	svc := NewService(repo, testCatalog(t), zap.NewNop(), nil)
	r := mux.NewRouter()
	r.Use(asUser(userID))
	NewHandler(svc, zap.NewNop()).RegisterRoutes(r)
	return r
}

func TestHandlerAssembleExam(t *testing.T) {
	repo := streamRepo(25)
	repo.addLearner(models.Learner{ID: 1})
	repo.addLearner(models.Learner{ID: 2, FreeTestsTaken: 5})
	chapter := int64(9)
	repo.chapters[chapter] = models.Chapter{ID: chapter, SubjectID: 1}

	tests := []struct {
		user   int64
		url    string
		status int
		code   string
	}{
		{1, "/exam?stream=PCM", http.StatusOK, ""},
		{1, "/exam?subject=physics&difficulty=medium", http.StatusOK, ""},
		{1, "/exam?stream=XYZ", http.StatusBadRequest, ""},
		{1, "/exam?subject=astrology", http.StatusNotFound, ""},
		{1, "/exam?subject=physics&difficulty=extreme", http.StatusBadRequest, ""},
		{1, "/exam", http.StatusBadRequest, ""},
		{2, "/exam?subject=physics", http.StatusForbidden, CodeLimitReached},
		{1, "/practice?subject=physics&chapterId=9", http.StatusForbidden, CodePremiumOnly},
		{1, "/practice?subject=physics", http.StatusOK, ""},
		{99, "/exam?subject=physics", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		rr := httptest.NewRecorder()
		newTestRouter(t, repo, tt.user).ServeHTTP(rr, httptest.NewRequest("GET", tt.url, nil))

		if rr.Code != tt.status {
			t.Errorf("GET %s (user %d) status = %d, want %d: %s", tt.url, tt.user, rr.Code, tt.status, rr.Body)
			continue
		}
		if tt.code != "" {
			var body models.EntitlementResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode denial: %v", err)
			}
			if body.Code != tt.code || body.IsPremium {
				t.Errorf("GET %s denial = %+v, want code %s and isPremium false", tt.url, body, tt.code)
			}
		}
	}
}

func TestHandlerSubmitResult(t *testing.T) {
	repo := streamRepo(5)
	repo.addLearner(models.Learner{ID: 1})
	router := newTestRouter(t, repo, 1)

	body := `{"subjectId":1,"score":1,"totalQuestions":2,"questions":[` +
		`{"question":1,"timeTaken":12.5,"userChoice":2,"isCorrect":true},` +
		`{"question":2,"timeTaken":30,"userChoice":null,"isCorrect":false}]}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("POST", "/results", strings.NewReader(body)))

	if rr.Code != http.StatusCreated {
		t.Fatalf("POST /results status = %d, want 201: %s", rr.Code, rr.Body)
	}
	var sub models.Submission
	if err := json.NewDecoder(rr.Body).Decode(&sub); err != nil {
		t.Fatalf("decode submission: %v", err)
	}
	if sub.Percentage != 50 || len(sub.Questions) != 2 {
		t.Errorf("submission = %+v, want percentage 50 and 2 questions", sub)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("POST", "/results", strings.NewReader(`{"score":3,"totalQuestions":2}`)))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("POST /results invalid score status = %d, want 400", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("POST", "/results", strings.NewReader(`not json`)))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("POST /results malformed status = %d, want 400", rr.Code)
	}
}

func TestHandlerEntitlement(t *testing.T) {
	repo := streamRepo(1)
	repo.addLearner(models.Learner{ID: 1, FreeTestsTaken: 3})

	rr := httptest.NewRecorder()
	newTestRouter(t, repo, 1).ServeHTTP(rr, httptest.NewRequest("GET", "/entitlement", nil))

	var got models.EntitlementStatus
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode entitlement: %v", err)
	}
	want := models.EntitlementStatus{IsPremium: false, FreeTestsRemaining: 2, FreeTestLimit: 5}
	if got != want {
		t.Errorf("GET /entitlement = %+v, want %+v", got, want)
	}
}

func TestHandlerAvailability(t *testing.T) {
	repo := streamRepo(25)
	repo.addLearner(models.Learner{ID: 1, FreeTestsTaken: 5})
	chapter := int64(9)
	repo.chapters[chapter] = models.Chapter{ID: chapter, SubjectID: 1}

	tests := []struct {
		url    string
		status int
		pools  int
		total  int
	}{
		{"/availability?subject=physics", http.StatusOK, 1, 25},
		{"/availability?stream=pcb", http.StatusOK, 3, 25},
		{"/availability?subject=physics&chapterId=9", http.StatusOK, 1, 0},
		{"/availability?subject=physics&chapterId=abc", http.StatusNotFound, 0, 0},
		{"/availability?stream=XYZ", http.StatusBadRequest, 0, 0},
		{"/availability?subject=astrology", http.StatusNotFound, 0, 0},
	}

	for _, tt := range tests {
		rr := httptest.NewRecorder()
		newTestRouter(t, repo, 1).ServeHTTP(rr, httptest.NewRequest("GET", tt.url, nil))

		if rr.Code != tt.status {
			t.Errorf("GET %s status = %d, want %d: %s", tt.url, rr.Code, tt.status, rr.Body)
			continue
		}
		if tt.status != http.StatusOK {
			continue
		}
		var pools []models.PoolAvailability
		if err := json.NewDecoder(rr.Body).Decode(&pools); err != nil {
			t.Fatalf("decode availability: %v", err)
		}
		if len(pools) != tt.pools {
			t.Errorf("GET %s returned %d pools, want %d", tt.url, len(pools), tt.pools)
			continue
		}
		for _, p := range pools {
			if p.Total != tt.total || p.Unseen != tt.total {
				t.Errorf("GET %s pool %s = %+v, want total and unseen %d", tt.url, p.Subject.Slug, p, tt.total)
			}
		}
	}
}
