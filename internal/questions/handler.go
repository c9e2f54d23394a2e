package questions

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/enem-practice/backend/internal/apperr"
	"github.com/enem-practice/backend/internal/logger"
	"github.com/enem-practice/backend/internal/models"
	"github.com/gorilla/mux"
)

// Handler exposes the question source with the same routes and payloads as
// the upstream API, so clients can point at either.
type Handler struct {
	source Source
	log    *logger.Logger
}

func NewHandler(source Source, log *logger.Logger) *Handler {
	return &Handler{source: source, log: log.With("component", "question_proxy")}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/exams", h.ListExams).Methods("GET")
	r.HandleFunc("/exams/{year:[0-9]+}/questions", h.ListQuestions).Methods("GET")
	r.HandleFunc("/exams/{year:[0-9]+}/questions/{index:[0-9]+}", h.GetQuestion).Methods("GET")
}

func (h *Handler) ListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.source.ListExams(r.Context())
	if err != nil || len(exams) == 0 {
		h.log.Warn("exam list unavailable, serving default years", "error", err)
		exams = DefaultYears()
	}

	writeJSON(w, http.StatusOK, exams)
}

func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(mux.Vars(r)["year"])
	if err != nil || year <= 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid year"})
		return
	}

	query := r.URL.Query()
	limit := intQueryParam(query, "limit", DefaultPageSize)
	if limit == 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	offset := intQueryParam(query, "offset", 0)

	page, err := h.source.ListQuestions(r.Context(), year, limit, offset)
	if err != nil {
		h.writeSourceError(w, err, "Failed to list questions")
		return
	}

	filter := Filter{Discipline: query.Get("discipline"), Language: query.Get("language")}
	if !filter.Empty() {
		filtered := *page
		filtered.Questions = filter.Apply(page.Questions)
		page = &filtered
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	year, yerr := strconv.Atoi(vars["year"])
	index, ierr := strconv.Atoi(vars["index"])
	if yerr != nil || ierr != nil || year <= 0 || index <= 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid question ID"})
		return
	}

	q, err := h.source.GetQuestion(r.Context(), year, index)
	if err != nil {
		h.writeSourceError(w, err, "Failed to get question")
		return
	}

	writeJSON(w, http.StatusOK, q)
}

// writeSourceError reports upstream failures as 502 and keeps 404 for
// missing questions.
func (h *Handler) writeSourceError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Question not found"})
		return
	}
	h.log.Error(msg, "error", err)
	writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: msg})
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
