package history

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/enem-practice/backend/internal/apperr"
	"github.com/enem-practice/backend/internal/auth"
	"github.com/enem-practice/backend/internal/models"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the history endpoints on the protected subrouter.
func (h *Handler) RegisterRoutes(protected *mux.Router) {
	protected.HandleFunc("/history", h.ListHistory).Methods("GET")
	protected.HandleFunc("/history/add", h.AddAnswer).Methods("POST")
	protected.HandleFunc("/history", h.ClearHistory).Methods("DELETE")
	protected.HandleFunc("/history/stats", h.GetStats).Methods("GET")
}

func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	outcome := models.Outcome(r.URL.Query().Get("outcome"))

	records, err := h.service.List(r.Context(), auth.FromContext(r.Context()), outcome)
	if err != nil {
		writeError(w, err, "Failed to get history")
		return
	}

	writeJSON(w, http.StatusOK, models.HistoryListResponse{History: records})
}

func (h *Handler) AddAnswer(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	if caller == nil {
		writeError(w, apperr.ErrUnauthenticated, "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req models.AddAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	rec, err := h.service.Upsert(r.Context(), caller, req)
	if err != nil {
		writeError(w, err, "Failed to save answer")
		return
	}

	writeJSON(w, http.StatusOK, models.AddAnswerResponse{Success: true, Data: rec})
}

func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearAll(r.Context(), auth.FromContext(r.Context())); err != nil {
		writeError(w, err, "Failed to clear history")
		return
	}

	writeJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeError(w, err, "Failed to get history stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// writeError maps err onto a status. Internal failures are reported with
// fallback instead of the underlying message.
func writeError(w http.ResponseWriter, err error, fallback string) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		msg = "Authentication required"
	case status == http.StatusInternalServerError:
		msg = fallback
	}
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
