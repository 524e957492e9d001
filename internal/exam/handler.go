package exam

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pucet-prep/backend/internal/middleware"
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

// RegisterRoutes mounts the learner-facing engine endpoints on an
// authenticated router.
func (h *Handler) RegisterRoutes(protected *mux.Router) {
	protected.HandleFunc("/exam", h.AssembleExam).Methods("GET")
	protected.HandleFunc("/practice", h.Practice).Methods("GET")
	protected.HandleFunc("/results", h.SubmitResult).Methods("POST")
	protected.HandleFunc("/entitlement", h.GetEntitlement).Methods("GET")
	protected.HandleFunc("/availability", h.GetAvailability).Methods("GET")
}

// AssembleExam serves GET /exam?subject=<slug> or ?stream=<name>, with an
// optional difficulty.
func (h *Handler) AssembleExam(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	query := r.URL.Query()
	req, err := h.service.Catalog().ParseRequest(query.Get("subject"), query.Get("stream"), query.Get("difficulty"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	paper, err := h.service.AssembleExam(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paper)
}

// Practice serves GET /practice?subject=<slug>&chapterId=&difficulty=.
func (h *Handler) Practice(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	query := r.URL.Query()
	req, err := ParsePracticeRequest(query.Get("subject"), query.Get("chapterId"), query.Get("difficulty"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	questions, err := h.service.AssembleExam(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req models.SubmitResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	sub, err := h.service.SubmitResult(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) GetEntitlement(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	remaining, err := h.service.Entitlement(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.EntitlementStatus{
		IsPremium:          remaining < 0,
		FreeTestsRemaining: remaining,
		FreeTestLimit:      h.service.Catalog().FreeTestLimit(),
	})
}

// GetAvailability serves GET /availability with the query of /exam, or of
// /practice when chapterId is present.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	query := r.URL.Query()
	var (
		req Request
		err error
	)
	if query.Get("chapterId") != "" {
		req, err = ParsePracticeRequest(query.Get("subject"), query.Get("chapterId"), query.Get("difficulty"))
	} else {
		req, err = h.service.Catalog().ParseRequest(query.Get("subject"), query.Get("stream"), query.Get("difficulty"))
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	pools, err := h.service.Availability(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pools)
}

// writeError maps engine errors onto HTTP responses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var denied *EntitlementError
	switch {
	case errors.As(err, &denied):
		writeJSON(w, http.StatusForbidden, models.EntitlementResponse{
			Message:   denied.Message(),
			Code:      denied.Code,
			IsPremium: denied.IsPremium,
		})
	case errors.Is(err, ErrSubjectNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Subject not found"})
	case errors.Is(err, ErrChapterNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Chapter not found"})
	case errors.Is(err, ErrSubjectsIncomplete):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "One or more subjects for this stream not found"})
	case errors.Is(err, ErrInvalidStream):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid stream"})
	case errors.Is(err, ErrInvalidDifficulty), errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidSubmission):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrLearnerNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "User not found"})
	default:
		h.logger.Error("exam request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
