package history

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/enem-practice/backend/internal/auth"
	"github.com/enem-practice/backend/internal/logger"
	"github.com/enem-practice/backend/internal/middleware"
	"github.com/enem-practice/backend/internal/models"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "history-handler-secret"

func newTestRouter(t *testing.T, store Store) *mux.Router {
	t.Helper()
	log := logger.NewNop()
	verifier := auth.NewVerifier(testSecret, "", "")

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(verifier, log))
	NewHandler(NewService(store, log)).RegisterRoutes(api)
	return r
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.NewVerifier(testSecret, "", "").IssueToken(auth.Identity{ID: userID, Email: userID + "@example.com"}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandler_AddListClear(t *testing.T) {
	store := NewMemoryStore()
	store.now = steppingClock()
	r := newTestRouter(t, store)
	tok := bearer(t, "u1")

	w := do(t, r, "POST", "/api/history/add", tok,
		`{"questionId":"2023-5","year":2023,"index":5,"selectedAnswer":"B","correctAnswer":"B","isCorrect":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var added models.AddAnswerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &added))
	assert.True(t, added.Success)
	require.NotNil(t, added.Data)
	assert.Equal(t, "u1", added.Data.UserID)
	assert.Equal(t, "2023-5", added.Data.QuestionID)

	w = do(t, r, "GET", "/api/history", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list models.HistoryListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.History, 1)
	assert.Equal(t, "B", list.History[0].SelectedAnswer)

	w = do(t, r, "DELETE", "/api/history", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = do(t, r, "GET", "/api/history", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"history":[]}`, w.Body.String())
}

func TestHandler_RequiresToken(t *testing.T) {
	r := newTestRouter(t, NewMemoryStore())

	for _, tc := range []struct{ method, path, body string }{
		{"GET", "/api/history", ""},
		{"POST", "/api/history/add", `{}`},
		{"DELETE", "/api/history", ""},
		{"GET", "/api/history/stats", ""},
	} {
		w := do(t, r, tc.method, tc.path, "", tc.body)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestHandler_AddAnswerValidation(t *testing.T) {
	store := NewMemoryStore()
	r := newTestRouter(t, store)
	tok := bearer(t, "u1")

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"questionId":`},
		{"missing selectedAnswer", `{"questionId":"2023-5","year":2023,"index":5,"correctAnswer":"B","isCorrect":true}`},
		{"isCorrect as string", `{"questionId":"2023-5","year":2023,"index":5,"selectedAnswer":"B","correctAnswer":"B","isCorrect":"true"}`},
		{"missing isCorrect", `{"questionId":"2023-5","year":2023,"index":5,"selectedAnswer":"B","correctAnswer":"B"}`},
		{"year as string", `{"questionId":"2023-5","year":"2023","index":5,"selectedAnswer":"B","correctAnswer":"B","isCorrect":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, "POST", "/api/history/add", tok, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}

	records, err := store.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHandler_AddAnswerRejectsOversizedBody(t *testing.T) {
	r := newTestRouter(t, NewMemoryStore())
	big := `{"questionId":"` + strings.Repeat("x", maxBodyBytes+1) + `"}`

	w := do(t, r, "POST", "/api/history/add", bearer(t, "u1"), big)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ListOutcome(t *testing.T) {
	r := newTestRouter(t, NewMemoryStore())
	tok := bearer(t, "u1")

	do(t, r, "POST", "/api/history/add", tok,
		`{"questionId":"2023-1","year":2023,"index":1,"selectedAnswer":"A","correctAnswer":"A","isCorrect":true}`)
	do(t, r, "POST", "/api/history/add", tok,
		`{"questionId":"2023-2","year":2023,"index":2,"selectedAnswer":"A","correctAnswer":"C","isCorrect":false}`)

	w := do(t, r, "GET", "/api/history?outcome=incorrect", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list models.HistoryListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.History, 1)
	assert.Equal(t, "2023-2", list.History[0].QuestionID)

	w = do(t, r, "GET", "/api/history?outcome=sometimes", tok, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Stats(t *testing.T) {
	r := newTestRouter(t, NewMemoryStore())
	tok := bearer(t, "u1")

	do(t, r, "POST", "/api/history/add", tok,
		`{"questionId":"2023-1","year":2023,"index":1,"discipline":"matematica","selectedAnswer":"A","correctAnswer":"A","isCorrect":true}`)

	w := do(t, r, "GET", "/api/history/stats", tok, "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.HistoryStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 100, stats.CorrectPercentage)
	assert.Equal(t, models.AccuracyStat{Answered: 1, Correct: 1}, stats.ByDiscipline["matematica"])
}

func TestHandler_StorageFailureHidesDetail(t *testing.T) {
	r := newTestRouter(t, failingStore{err: errors.New("pq: password authentication failed")})

	w := do(t, r, "GET", "/api/history", bearer(t, "u1"), "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to get history"}`, w.Body.String())
}
