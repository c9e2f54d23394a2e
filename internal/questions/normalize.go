package questions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/enem-practice/backend/internal/models"
)

// ErrUnexpectedShape is returned when an upstream payload matches none of the
// known response layouts.
var ErrUnexpectedShape = errors.New("unexpected response shape")

type questionEnvelope struct {
	Questions *[]models.Question `json:"questions"`
	Metadata  *struct {
		Total  int `json:"total"`
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	} `json:"metadata"`
}

// NormalizeQuestionPage accepts either a bare question array or an object
// with a questions array and optional metadata. Total falls back to the
// number of questions when metadata is absent.
func NormalizeQuestionPage(raw []byte) (*models.QuestionPage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUnexpectedShape)
	}

	page := &models.QuestionPage{}
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &page.Questions); err != nil {
			return nil, fmt.Errorf("decode question list: %w", err)
		}
	case '{':
		var env questionEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode question page: %w", err)
		}
		if env.Questions == nil {
			return nil, fmt.Errorf("%w: object without questions", ErrUnexpectedShape)
		}
		page.Questions = *env.Questions
		if env.Metadata != nil {
			page.Metadata.Total = env.Metadata.Total
			page.Metadata.Limit = env.Metadata.Limit
			page.Metadata.Offset = env.Metadata.Offset
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedShape, raw[0])
	}

	if page.Questions == nil {
		page.Questions = []models.Question{}
	}
	if page.Metadata.Total <= 0 {
		page.Metadata.Total = len(page.Questions)
	}
	return page, nil
}

// NormalizeExams accepts a bare exam array or {"exams": [...]}. The result
// is sorted newest first with zero and duplicate years removed.
func NormalizeExams(raw []byte) ([]models.Exam, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUnexpectedShape)
	}

	var exams []models.Exam
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &exams); err != nil {
			return nil, fmt.Errorf("decode exam list: %w", err)
		}
	case '{':
		var env struct {
			Exams *[]models.Exam `json:"exams"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode exams: %w", err)
		}
		if env.Exams == nil {
			return nil, fmt.Errorf("%w: object without exams", ErrUnexpectedShape)
		}
		exams = *env.Exams
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedShape, raw[0])
	}

	seen := make(map[int]bool, len(exams))
	out := make([]models.Exam, 0, len(exams))
	for _, e := range exams {
		if e.Year == 0 || seen[e.Year] {
			continue
		}
		seen[e.Year] = true
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out, nil
}

// Years extracts the exam years, preserving order.
func Years(exams []models.Exam) []int {
	years := make([]int, len(exams))
	for i, e := range exams {
		years[i] = e.Year
	}
	return years
}

func findByIndex(page *models.QuestionPage, index int) *models.Question {
	for i := range page.Questions {
		if page.Questions[i].Index == index {
			q := page.Questions[i]
			return &q
		}
	}
	return nil
}
