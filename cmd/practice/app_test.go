package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enem-practice/backend/internal/apperr"
	"github.com/enem-practice/backend/internal/auth"
	"github.com/enem-practice/backend/internal/history"
	"github.com/enem-practice/backend/internal/historyclient"
	"github.com/enem-practice/backend/internal/logger"
	"github.com/enem-practice/backend/internal/middleware"
	"github.com/enem-practice/backend/internal/models"
)

func init() {
	color.NoColor = true
}

// listedTotal is how many questions fixedSource lists per exam.
const listedTotal = 25

type fixedSource struct{}

func (fixedSource) ListExams(context.Context) ([]models.Exam, error) {
	return []models.Exam{{Year: 2023}, {Year: 2022}}, nil
}

func (fixedSource) ListQuestions(_ context.Context, year, limit, offset int) (*models.QuestionPage, error) {
	page := &models.QuestionPage{Metadata: models.PageMetadata{Total: listedTotal, Limit: limit, Offset: offset}}
	for i := offset + 1; i <= offset+limit && i <= listedTotal; i++ {
		discipline := "linguagens"
		if i%2 == 0 {
			discipline = "matematica"
		}
		page.Questions = append(page.Questions, models.Question{
			Title:      fmt.Sprintf("Questão %d", i),
			Year:       year,
			Index:      i,
			Discipline: discipline,
		})
	}
	return page, nil
}

type noExamsSource struct{ fixedSource }

func (noExamsSource) ListExams(context.Context) ([]models.Exam, error) {
	return nil, errors.New("upstream down")
}

type fakeStats struct {
	stats *models.HistoryStats
	err   error
}

func (f fakeStats) Stats(context.Context) (*models.HistoryStats, error) { return f.stats, f.err }

func (fixedSource) GetQuestion(_ context.Context, year, index int) (*models.Question, error) {
	if index > 3 {
		return nil, fmt.Errorf("%w: question", apperr.ErrNotFound)
	}
	return &models.Question{
		Title:              fmt.Sprintf("Questão %d", index),
		Year:               year,
		Index:              index,
		CorrectAlternative: "C",
		Alternatives: []models.Alternative{
			{Letter: "A", Text: "um"}, {Letter: "B", Text: "dois"}, {Letter: "C", Text: "três"},
		},
	}, nil
}

func newTestApp(state *historyclient.State, input string) (*app, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &app{
		source: fixedSource{},
		state:  state,
		in:     strings.NewReader(input),
		out:    out,
		now:    time.Now,
	}, out
}

func runApp(t *testing.T, state *historyclient.State, start, input string) string {
	t.Helper()
	a, out := newTestApp(state, input)
	require.NoError(t, a.run(context.Background(), start))
	return out.String()
}

func TestApp_AnonymousFlow(t *testing.T) {
	out := runApp(t, historyclient.NewState(logger.NewNop()), "2023-1", "\nc\n\nn\nb\n\np\np\nq\n")

	assert.Contains(t, out, "Questão 1 (2023-1)")
	assert.Contains(t, out, "pick an alternative first")
	assert.Contains(t, out, "correct! C")
	assert.Contains(t, out, "Questão 2 (2023-2)")
	assert.Contains(t, out, "wrong: you chose B, answer is C")
	assert.Contains(t, out, "already at the first question")
}

func TestApp_NotFoundAndBadInput(t *testing.T) {
	out := runApp(t, historyclient.NewState(logger.NewNop()), "2023-3", "n\nz\ng nope\nclear\ns\nq\n")

	assert.Contains(t, out, "question 2023-4 not found")
	assert.Contains(t, out, "not an alternative")
	assert.Contains(t, out, "could not load nope")
	assert.Contains(t, out, "nothing to clear")
	assert.Contains(t, out, "history is not kept")
}

func TestApp_SignedInRecordsAndResumes(t *testing.T) {
	const secret = "practice-secret"
	log := logger.NewNop()
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(auth.NewVerifier(secret, "", ""), log))
	history.NewHandler(history.NewService(history.NewMemoryStore(), log)).RegisterRoutes(api)
	srv := httptest.NewServer(r)
	defer srv.Close()

	tok, err := auth.NewVerifier(secret, "", "").IssueToken(auth.Identity{ID: "u1"}, time.Hour)
	require.NoError(t, err)

	state := historyclient.NewState(log)
	require.NoError(t, state.SignIn(context.Background(), historyclient.NewClient(srv.URL, tok, srv.Client())))

	out := runApp(t, state, "2023-2", "a\n\ns\nq\n")
	assert.Contains(t, out, "wrong: you chose A, answer is C")
	assert.Contains(t, out, "1 answered, 0 correct (0%)")
	assert.Contains(t, out, "2023: 0/1")

	out = runApp(t, state, "2023-2", "q\n")
	assert.Contains(t, out, "answered before:")

	out = runApp(t, state, "2023-2", "clear\nq\n")
	assert.Contains(t, out, "history cleared")
	assert.Empty(t, state.Snapshot())
}

func TestApp_RejectsBadStart(t *testing.T) {
	a := &app{source: fixedSource{}, state: historyclient.NewState(logger.NewNop()), in: strings.NewReader(""), out: &bytes.Buffer{}, now: time.Now}
	assert.ErrorIs(t, a.run(context.Background(), "latest"), apperr.ErrInvalidArgument)
}

func TestApp_ListsExamPages(t *testing.T) {
	out := runApp(t, historyclient.NewState(logger.NewNop()), "2023-1", "l 2022 2\nq\n")

	assert.Contains(t, out, "ENEM 2022, page 2 of 3")
	assert.Contains(t, out, "2022-11")
	assert.Contains(t, out, "2022-20")
	assert.NotContains(t, out, "2022-21")
	assert.Contains(t, out, "pages: 1 [2] 3")
}

func TestApp_ListDefaultsToCurrentYearAndClampsPage(t *testing.T) {
	out := runApp(t, historyclient.NewState(logger.NewNop()), "2021-1", "l\nl 2021 9\nl 2021 x\nq\n")

	assert.Contains(t, out, "ENEM 2021, page 1 of 3")
	assert.Contains(t, out, "ENEM 2021, page 3 of 3")
	assert.Contains(t, out, "2021-25")
	assert.Contains(t, out, "pages: 1 2 [3]")
	assert.Contains(t, out, "usage: l [YEAR] [PAGE]")
}

func TestApp_ListAppliesFilter(t *testing.T) {
	a, out := newTestApp(historyclient.NewState(logger.NewNop()), "l 2023\nq\n")
	a.filter.Discipline = "Matematica"
	require.NoError(t, a.run(context.Background(), "2023-1"))

	assert.Contains(t, out.String(), "2023-2 ")
	assert.Contains(t, out.String(), "2023-10")
	assert.NotContains(t, out.String(), "2023-3 ")
	assert.NotContains(t, out.String(), "[linguagens]")
}

func TestApp_ExamYears(t *testing.T) {
	out := runApp(t, historyclient.NewState(logger.NewNop()), "2023-1", "y\nq\n")
	assert.Contains(t, out, "exams: 2023 2022\n")

	a, buf := newTestApp(historyclient.NewState(logger.NewNop()), "y\nq\n")
	a.source = noExamsSource{}
	require.NoError(t, a.run(context.Background(), "2023-1"))
	assert.Contains(t, buf.String(), "exams: 2023 2022 2021")
	assert.Contains(t, buf.String(), " 2009\n")
}

func TestApp_StatsPreferServer(t *testing.T) {
	api := &stubAPI{records: []models.AnswerRecord{{QuestionID: "2023-1", Year: 2023, Index: 1, IsCorrect: true, AnsweredAt: time.Now()}}}
	state := historyclient.NewState(logger.NewNop())
	require.NoError(t, state.SignIn(context.Background(), api))

	a, out := newTestApp(state, "s\nq\n")
	a.remote = fakeStats{stats: &models.HistoryStats{
		Total: 4, Correct: 3, CorrectPercentage: 75,
		ByYear: []models.YearStat{{Year: 2022, Answered: 4, Correct: 3}},
	}}
	require.NoError(t, a.run(context.Background(), "2023-1"))
	assert.Contains(t, out.String(), "4 answered, 3 correct (75%)")
	assert.Contains(t, out.String(), "2022: 3/4")

	a, out = newTestApp(state, "s\nq\n")
	a.remote = fakeStats{err: apperr.ErrInternal}
	require.NoError(t, a.run(context.Background(), "2023-1"))
	assert.Contains(t, out.String(), "server stats unavailable")
	assert.Contains(t, out.String(), "1 answered, 1 correct (100%)")
	assert.Contains(t, out.String(), "2023: 1/1")
}

type stubAPI struct {
	records []models.AnswerRecord
}

func (s *stubAPI) List(context.Context) ([]models.AnswerRecord, error) { return s.records, nil }

func (s *stubAPI) Add(context.Context, models.AddAnswerRequest) (*models.AnswerRecord, error) {
	return nil, apperr.ErrInternal
}

func (s *stubAPI) Clear(context.Context) error { return nil }
