package questions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/enem-practice/backend/internal/apperr"
	"github.com/enem-practice/backend/internal/models"
)

const (
	// DefaultPageSize matches the listing page size of the question API.
	DefaultPageSize = 10
	MaxPageSize     = 50

	firstDefaultYear = 2009
	lastDefaultYear  = 2023
)

// DefaultYears is the exam list served when the upstream exams endpoint is
// unavailable.
func DefaultYears() []models.Exam {
	exams := make([]models.Exam, 0, lastDefaultYear-firstDefaultYear+1)
	for y := lastDefaultYear; y >= firstDefaultYear; y-- {
		exams = append(exams, models.Exam{Year: y})
	}
	return exams
}

// PageOffset converts a 1-based page number into a list offset.
func PageOffset(page, perPage int) int {
	if page < 1 || perPage < 1 {
		return 0
	}
	return (page - 1) * perPage
}

func TotalPages(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// ClampPage keeps page within [1, totalPages].
func ClampPage(page, totalPages int) int {
	if page < 1 || totalPages < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// PageWindow returns up to width consecutive page numbers centred on current
// where possible.
func PageWindow(current, totalPages, width int) []int {
	if totalPages < 1 || width < 1 {
		return nil
	}
	if width > totalPages {
		width = totalPages
	}
	current = ClampPage(current, totalPages)

	start := current - width/2
	if start < 1 {
		start = 1
	}
	if start+width-1 > totalPages {
		start = totalPages - width + 1
	}

	pages := make([]int, width)
	for i := range pages {
		pages[i] = start + i
	}
	return pages
}

// OffsetForIndex is the offset of the listing page holding the question with
// the given 1-based index.
func OffsetForIndex(index, pageSize int) int {
	if index < 1 || pageSize < 1 {
		return 0
	}
	return ((index - 1) / pageSize) * pageSize
}

// Filter narrows a page client-side. Empty fields match everything.
type Filter struct {
	Discipline string
	Language   string
}

func (f Filter) Empty() bool {
	return f.Discipline == "" && f.Language == ""
}

func (f Filter) Apply(qs []models.Question) []models.Question {
	if f.Empty() {
		return qs
	}
	out := make([]models.Question, 0, len(qs))
	for _, q := range qs {
		if f.Discipline != "" && !strings.EqualFold(q.Discipline, f.Discipline) {
			continue
		}
		if f.Language != "" && !strings.EqualFold(q.Language, f.Language) {
			continue
		}
		out = append(out, q)
	}
	return out
}

// QuestionID formats the "{year}-{index}" key used by answer history.
func QuestionID(year, index int) string {
	return strconv.Itoa(year) + "-" + strconv.Itoa(index)
}

func ParseQuestionID(id string) (year, index int, err error) {
	y, i, ok := strings.Cut(strings.TrimSpace(id), "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: question id %q is not year-index", apperr.ErrInvalidArgument, id)
	}
	year, err = strconv.Atoi(y)
	if err != nil || year <= 0 {
		return 0, 0, fmt.Errorf("%w: bad year in question id %q", apperr.ErrInvalidArgument, id)
	}
	index, err = strconv.Atoi(i)
	if err != nil || index <= 0 {
		return 0, 0, fmt.Errorf("%w: bad index in question id %q", apperr.ErrInvalidArgument, id)
	}
	return year, index, nil
}

func NextQuestionID(id string) (string, bool) {
	year, index, err := ParseQuestionID(id)
	if err != nil {
		return "", false
	}
	return QuestionID(year, index+1), true
}

// PrevQuestionID reports false on the first question of an exam.
func PrevQuestionID(id string) (string, bool) {
	year, index, err := ParseQuestionID(id)
	if err != nil || index-1 <= 0 {
		return "", false
	}
	return QuestionID(year, index-1), true
}
