package content

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/pucet-prep/backend/internal/models"
	"go.uber.org/zap"
)

func newContentRouter(repo Repository) *mux.Router {
	r := mux.NewRouter()
	admin := r.PathPrefix("/admin").Subrouter()
	NewHandler(NewService(repo, zap.NewNop()), zap.NewNop()).RegisterRoutes(r, admin)
	return r
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rr
}

func TestContentLifecycle(t *testing.T) {
	repo := newMemRepo()
	router := newContentRouter(repo)

	rr := do(router, "POST", "/admin/subjects", `{"name":"Chemistry","streams":["PCB","PCM"]}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create subject status = %d: %s", rr.Code, rr.Body)
	}
	var subject models.Subject
	json.NewDecoder(rr.Body).Decode(&subject)

	if rr := do(router, "POST", "/admin/subjects", `{"name":"Chemistry"}`); rr.Code != http.StatusConflict {
		t.Errorf("duplicate subject status = %d, want 409", rr.Code)
	}

	if rr := do(router, "GET", "/subjects/chemistry", ""); rr.Code != http.StatusOK {
		t.Errorf("GET /subjects/chemistry status = %d, want 200", rr.Code)
	}
	if rr := do(router, "GET", "/subjects/alchemy", ""); rr.Code != http.StatusNotFound {
		t.Errorf("GET /subjects/alchemy status = %d, want 404", rr.Code)
	}

	chapterPath := "/admin/subjects/" + itoa(subject.ID) + "/chapters"
	do(router, "POST", chapterPath, `{"name":"Thermodynamics","order":2}`)
	rr = do(router, "POST", chapterPath, `{"name":"Atomic Structure","order":1}`)
	var chapter models.Chapter
	json.NewDecoder(rr.Body).Decode(&chapter)
	if rr := do(router, "POST", chapterPath, `{"name":"Atomic Structure"}`); rr.Code != http.StatusConflict {
		t.Errorf("duplicate chapter status = %d, want 409", rr.Code)
	}

	rr = do(router, "GET", "/subjects/"+itoa(subject.ID)+"/chapters", "")
	var chapters []models.Chapter
	json.NewDecoder(rr.Body).Decode(&chapters)
	if len(chapters) != 2 || chapters[0].Name != "Atomic Structure" {
		t.Errorf("chapters = %+v, want Atomic Structure first", chapters)
	}

	body := `{"subjectId":` + itoa(subject.ID) + `,"chapterId":` + itoa(chapter.ID) +
		`,"text":"Which gas is inert?","options":["O2","N2","He","H2"],"correctOption":2}`
	rr = do(router, "POST", "/admin/questions", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create question status = %d: %s", rr.Code, rr.Body)
	}
	var question models.Question
	json.NewDecoder(rr.Body).Decode(&question)
	if question.Difficulty != models.DifficultyMedium {
		t.Errorf("question difficulty = %s, want medium", question.Difficulty)
	}

	bad := `{"subjectId":` + itoa(subject.ID) + `,"text":"x","options":["a","b"],"correctOption":0}`
	if rr := do(router, "POST", "/admin/questions", bad); rr.Code != http.StatusBadRequest {
		t.Errorf("two-option question status = %d, want 400", rr.Code)
	}

	rr = do(router, "GET", "/admin/questions?subjectId="+itoa(subject.ID), "")
	var list models.QuestionListResponse
	json.NewDecoder(rr.Body).Decode(&list)
	if list.Total != 1 || list.Page != 1 || list.PageSize != 20 {
		t.Errorf("question list = %+v, want 1 total on page 1 of size 20", list)
	}

	if rr := do(router, "GET", "/admin/questions/timing", ""); rr.Code != http.StatusOK {
		t.Errorf("GET timing report status = %d, want 200", rr.Code)
	}

	if rr := do(router, "DELETE", "/admin/subjects/"+itoa(subject.ID), ""); rr.Code != http.StatusOK {
		t.Fatalf("delete subject status = %d", rr.Code)
	}
	if rr := do(router, "GET", "/admin/questions/"+itoa(question.ID), ""); rr.Code != http.StatusNotFound {
		t.Errorf("question after subject delete status = %d, want 404", rr.Code)
	}
	if len(repo.chapters) != 0 {
		t.Errorf("chapters after subject delete = %d, want 0", len(repo.chapters))
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
