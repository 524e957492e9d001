package results

import (
	"encoding/json"
	"net/http"
	"strconv"

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

// RegisterRoutes mounts the learner dashboards on protected and the
// leaderboard on public.
func (h *Handler) RegisterRoutes(public, protected *mux.Router) {
	protected.HandleFunc("/progress", h.GetProgress).Methods("GET")
	protected.HandleFunc("/history", h.GetHistory).Methods("GET")
	public.HandleFunc("/leaderboard", h.GetLeaderboard).Methods("GET")
}

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.Progress(r.Context(), userID)
	if err != nil {
		h.logger.Error("get progress", zap.Int64("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get progress"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	history, err := h.service.History(r.Context(), userID)
	if err != nil {
		h.logger.Error("get history", zap.Int64("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get history"})
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// GetLeaderboard serves GET /leaderboard?subjectId=<id|all>.
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	var subjectID *int64
	if raw := r.URL.Query().Get("subjectId"); raw != "" && raw != "all" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid subjectId"})
			return
		}
		subjectID = &id
	}

	entries, err := h.service.Leaderboard(r.Context(), subjectID)
	if err != nil {
		h.logger.Error("get leaderboard", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get leaderboard"})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
