package questions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/enem-practice/backend/internal/apperr"
	"github.com/enem-practice/backend/internal/logger"
	"github.com/enem-practice/backend/internal/models"
)

// Source is the read-only question catalogue.
type Source interface {
	ListExams(ctx context.Context) ([]models.Exam, error)
	ListQuestions(ctx context.Context, year, limit, offset int) (*models.QuestionPage, error)
	GetQuestion(ctx context.Context, year, index int) (*models.Question, error)
}

const maxResponseBytes = 8 << 20

// HTTPSource reads the public ENEM question API.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

func NewHTTPSource(baseURL string, timeout time.Duration, log *logger.Logger) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log.With("component", "question_source"),
	}
}

func (s *HTTPSource) ListExams(ctx context.Context) ([]models.Exam, error) {
	raw, err := s.get(ctx, "/exams", nil)
	if err != nil {
		return nil, err
	}
	exams, err := NormalizeExams(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInternal, err)
	}
	return exams, nil
}

func (s *HTTPSource) ListQuestions(ctx context.Context, year, limit, offset int) (*models.QuestionPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	raw, err := s.get(ctx, fmt.Sprintf("/exams/%d/questions", year), q)
	if err != nil {
		return nil, err
	}
	page, err := NormalizeQuestionPage(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInternal, err)
	}
	if page.Metadata.Limit == 0 {
		page.Metadata.Limit = limit
	}
	if page.Metadata.Offset == 0 {
		page.Metadata.Offset = offset
	}
	return page, nil
}

// GetQuestion asks the single-question endpoint first. If that fails it scans
// the first listing page and then, when the reported total allows it, the
// page that should contain index.
func (s *HTTPSource) GetQuestion(ctx context.Context, year, index int) (*models.Question, error) {
	q, err := s.getDirect(ctx, year, index)
	if err == nil {
		return q, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	s.log.Debug("direct question lookup failed, scanning list", "year", year, "index", index, "error", err)

	first, err := s.ListQuestions(ctx, year, DefaultPageSize, 0)
	if err != nil {
		return nil, err
	}
	if found := findByIndex(first, index); found != nil {
		return found, nil
	}

	total := first.Metadata.Total
	if total > DefaultPageSize && index <= total {
		offset := OffsetForIndex(index, DefaultPageSize)
		if offset > 0 {
			page, err := s.ListQuestions(ctx, year, DefaultPageSize, offset)
			if err != nil {
				return nil, err
			}
			if found := findByIndex(page, index); found != nil {
				return found, nil
			}
		}
	}

	s.log.Info("question not found", "year", year, "index", index)
	return nil, fmt.Errorf("%w: question %s", apperr.ErrNotFound, QuestionID(year, index))
}

func (s *HTTPSource) getDirect(ctx context.Context, year, index int) (*models.Question, error) {
	raw, err := s.get(ctx, fmt.Sprintf("/exams/%d/questions/%d", year, index), nil)
	if err != nil {
		return nil, err
	}
	var q models.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("decode question: %w", err)
	}
	if q.Index == 0 && q.Title == "" {
		return nil, errors.New("empty question payload")
	}
	return &q, nil
}

func (s *HTTPSource) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := s.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", apperr.ErrInternal, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", apperr.ErrInternal, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", apperr.ErrInternal, path, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: GET %s", apperr.ErrNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: GET %s: status %d", apperr.ErrInternal, path, resp.StatusCode)
	}
	return body, nil
}
