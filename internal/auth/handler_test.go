package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/pucet-prep/backend/internal/middleware"
	"github.com/pucet-prep/backend/internal/models"
	"github.com/pucet-prep/backend/internal/token"
	"go.uber.org/zap"
)

type memAccounts struct {
	mu      sync.Mutex
	byEmail map[string]*models.Learner
	nextID  int64
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byEmail: make(map[string]*models.Learner)}
}

func (m *memAccounts) CreateLearner(ctx context.Context, email, fullName, hash string) (*models.Learner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return nil, ErrEmailTaken
	}
	m.nextID++
	l := &models.Learner{ID: m.nextID, Email: email, FullName: fullName, Password: hash, Role: models.RoleUser}
	m.byEmail[email] = l
	cp := *l
	return &cp, nil
}

func (m *memAccounts) GetByEmail(ctx context.Context, email string) (*models.Learner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memAccounts) GetByID(ctx context.Context, id int64) (*models.Learner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.byEmail {
		if l.ID == id {
			cp := *l
			cp.Password = ""
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func newAuthRouter(accounts Accounts, issuer *token.Issuer) *mux.Router {
	r := mux.NewRouter()
	protected := r.NewRoute().Subrouter()
	protected.Use(middleware.Auth(issuer))
	NewHandler(accounts, issuer, zap.NewNop()).RegisterRoutes(r, protected)
	return r
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("POST", path, strings.NewReader(body)))
	return rr
}

func TestRegisterLoginMe(t *testing.T) {
	issuer := token.NewIssuer("test-secret", time.Hour)
	router := newAuthRouter(newMemAccounts(), issuer)

	rr := post(router, "/auth/register", `{"fullName":"Asha Verma","email":"Asha@Example.com","password":"correct horse"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want 201: %s", rr.Code, rr.Body)
	}
	var reg models.AuthResponse
	json.NewDecoder(rr.Body).Decode(&reg)
	if reg.Token == "" || reg.User.Email != "asha@example.com" || reg.User.IsPremium || reg.User.FreeTestsTaken != 0 {
		t.Errorf("register response = %+v", reg)
	}
	if strings.Contains(rr.Body.String(), "password") {
		t.Error("register response leaks the password field")
	}

	rr = post(router, "/auth/login", `{"email":"asha@example.com","password":"correct horse"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200: %s", rr.Code, rr.Body)
	}
	var login models.AuthResponse
	json.NewDecoder(rr.Body).Decode(&login)

	req := httptest.NewRequest("GET", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("me status = %d, want 200", rr.Code)
	}
	var me models.Learner
	json.NewDecoder(rr.Body).Decode(&me)
	if me.ID != reg.User.ID || me.FullName != "Asha Verma" {
		t.Errorf("me = %+v, want learner %d", me, reg.User.ID)
	}
}

func TestRegisterAndLoginFailures(t *testing.T) {
	issuer := token.NewIssuer("test-secret", time.Hour)
	router := newAuthRouter(newMemAccounts(), issuer)
	post(router, "/auth/register", `{"fullName":"Ravi","email":"ravi@example.com","password":"longenough"}`)

	tests := []struct {
		path, body string
		want       int
	}{
		{"/auth/register", `{"fullName":"Ravi","email":"ravi@example.com","password":"longenough"}`, http.StatusConflict},
		{"/auth/register", `{"fullName":"","email":"x@example.com","password":"longenough"}`, http.StatusBadRequest},
		{"/auth/register", `{"fullName":"X","email":"not-an-email","password":"longenough"}`, http.StatusBadRequest},
		{"/auth/register", `{"fullName":"X","email":"x@example.com","password":"short"}`, http.StatusBadRequest},
		{"/auth/register", `{`, http.StatusBadRequest},
		{"/auth/login", `{"email":"ravi@example.com","password":"wrong-password"}`, http.StatusUnauthorized},
		{"/auth/login", `{"email":"nobody@example.com","password":"longenough"}`, http.StatusUnauthorized},
		{"/auth/login", `{"email":"","password":""}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		if rr := post(router, tt.path, tt.body); rr.Code != tt.want {
			t.Errorf("POST %s %s status = %d, want %d", tt.path, tt.body, rr.Code, tt.want)
		}
	}
}
