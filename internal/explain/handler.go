package explain

import (
	"encoding/json"
	"errors"
	"net/http"

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

// RegisterRoutes mounts /explain for learners and /assist under admin.
func (h *Handler) RegisterRoutes(protected, admin *mux.Router) {
	protected.HandleFunc("/explain", h.Explain).Methods("POST")
	admin.HandleFunc("/assist", h.Assist).Methods("POST")
}

func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	var req models.ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	text, err := h.service.Explain(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "Failed to generate AI explanation")
		return
	}
	writeJSON(w, http.StatusOK, models.ExplainResponse{Explanation: text})
}

func (h *Handler) Assist(w http.ResponseWriter, r *http.Request) {
	var req models.AssistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	reply, err := h.service.Assist(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "Failed to generate AI response")
		return
	}
	writeJSON(w, http.StatusOK, models.AssistResponse{Reply: reply})
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalid):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrQuestionNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Question not found"})
	case errors.Is(err, ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "AI Service currently unavailable"})
	default:
		h.logger.Error("llm request", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: fallback})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
