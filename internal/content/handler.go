package content

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pucet-prep/backend/internal/models"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the read-only catalog on public and the authoring
// endpoints on admin.
func (h *Handler) RegisterRoutes(public, admin *mux.Router) {
	public.HandleFunc("/subjects", h.ListSubjects).Methods("GET")
	public.HandleFunc("/subjects/{id:[0-9]+}/chapters", h.ListChapters).Methods("GET")
	public.HandleFunc("/subjects/{slug}", h.GetSubject).Methods("GET")

	admin.HandleFunc("/subjects", h.CreateSubject).Methods("POST")
	admin.HandleFunc("/subjects/{id:[0-9]+}", h.UpdateSubject).Methods("PUT")
	admin.HandleFunc("/subjects/{id:[0-9]+}", h.DeleteSubject).Methods("DELETE")
	admin.HandleFunc("/subjects/{id:[0-9]+}/chapters", h.CreateChapter).Methods("POST")
	admin.HandleFunc("/chapters/{id:[0-9]+}", h.UpdateChapter).Methods("PUT")
	admin.HandleFunc("/chapters/{id:[0-9]+}", h.DeleteChapter).Methods("DELETE")

	admin.HandleFunc("/questions", h.ListQuestions).Methods("GET")
	admin.HandleFunc("/questions", h.CreateQuestion).Methods("POST")
	admin.HandleFunc("/questions/timing", h.GetTimingReport).Methods("GET")
	admin.HandleFunc("/questions/recalibrate", h.Recalibrate).Methods("POST")
	admin.HandleFunc("/questions/{id:[0-9]+}", h.GetQuestion).Methods("GET")
	admin.HandleFunc("/questions/{id:[0-9]+}", h.UpdateQuestion).Methods("PUT")
	admin.HandleFunc("/questions/{id:[0-9]+}", h.DeleteQuestion).Methods("DELETE")
}

// ── Subjects ────────────────────────────────────────────

func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.service.ListSubjects(r.Context())
	if err != nil {
		h.writeError(w, err, "Subject")
		return
	}
	writeJSON(w, http.StatusOK, subjects)
}

func (h *Handler) GetSubject(w http.ResponseWriter, r *http.Request) {
	subject, err := h.service.GetSubjectBySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		h.writeError(w, err, "Subject")
		return
	}
	writeJSON(w, http.StatusOK, subject)
}

func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	var req models.SubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	subject, err := h.service.CreateSubject(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "Subject")
		return
	}
	writeJSON(w, http.StatusCreated, subject)
}

func (h *Handler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	var req models.SubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	subject, err := h.service.UpdateSubject(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err, "Subject")
		return
	}
	writeJSON(w, http.StatusOK, subject)
}

func (h *Handler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err := h.service.DeleteSubject(r.Context(), id); err != nil {
		h.writeError(w, err, "Subject")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Subject removed"})
}

// ── Chapters ────────────────────────────────────────────

func (h *Handler) ListChapters(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	chapters, err := h.service.ListChapters(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "Subject")
		return
	}
	writeJSON(w, http.StatusOK, chapters)
}

func (h *Handler) CreateChapter(w http.ResponseWriter, r *http.Request) {
	subjectID, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	var req models.ChapterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	chapter, err := h.service.CreateChapter(r.Context(), subjectID, req)
	if err != nil {
		h.writeError(w, err, "Chapter")
		return
	}
	writeJSON(w, http.StatusCreated, chapter)
}

func (h *Handler) UpdateChapter(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	var req models.ChapterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	chapter, err := h.service.UpdateChapter(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err, "Chapter")
		return
	}
	writeJSON(w, http.StatusOK, chapter)
}

func (h *Handler) DeleteChapter(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err := h.service.DeleteChapter(r.Context(), id); err != nil {
		h.writeError(w, err, "Chapter")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Chapter removed"})
}

// ── Questions ───────────────────────────────────────────

func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := intQueryParam(query, "limit", 20)
	offset := intQueryParam(query, "offset", 0)

	f := QuestionFilter{
		SubjectID:  int64(intQueryParam(query, "subjectId", 0)),
		Difficulty: models.Difficulty(query.Get("difficulty")),
		Limit:      limit,
		Offset:     offset,
	}
	if c := intQueryParam(query, "chapterId", 0); c > 0 {
		chapterID := int64(c)
		f.ChapterID = &chapterID
	}

	questions, total, err := h.service.ListQuestions(r.Context(), f)
	if err != nil {
		h.writeError(w, err, "Question")
		return
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	writeJSON(w, http.StatusOK, models.QuestionListResponse{
		Questions: questions,
		Total:     total,
		Page:      offset/limit + 1,
		PageSize:  limit,
	})
}

func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	question, err := h.service.GetQuestion(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "Question")
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req models.QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	question, err := h.service.CreateQuestion(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "Question")
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

func (h *Handler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	var req models.QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	question, err := h.service.UpdateQuestion(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err, "Question")
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err := h.service.DeleteQuestion(r.Context(), id); err != nil {
		h.writeError(w, err, "Question")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Question removed"})
}

// ── Admin Handlers ──────────────────────────────────────

func (h *Handler) GetTimingReport(w http.ResponseWriter, r *http.Request) {
	minAttempts := intQueryParam(r.URL.Query(), "minAttempts", DefaultMinAttempts)
	report, err := h.service.TimingReport(r.Context(), minAttempts, false)
	if err != nil {
		h.writeError(w, err, "Question")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) Recalibrate(w http.ResponseWriter, r *http.Request) {
	minAttempts := intQueryParam(r.URL.Query(), "minAttempts", DefaultMinAttempts)
	report, err := h.service.TimingReport(r.Context(), minAttempts, true)
	if err != nil {
		h.writeError(w, err, "Question")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// writeError maps content sentinels to statuses; entity names the
// resource in not-found and conflict messages.
func (h *Handler) writeError(w http.ResponseWriter, err error, entity string) {
	switch {
	case errors.Is(err, ErrInvalid):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: entity + " not found"})
	case errors.Is(err, ErrConflict):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: entity + " already exists"})
	default:
		h.logger.Error("content request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
