package models

import (
	"math"
	"sort"
	"strings"
	"time"
)

// ── History Types ────────────────────────────────────────

// AnswerRecord is the latest answer a user submitted for one question.
// QuestionID is "{year}-{index}" by caller contract.
type AnswerRecord struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"userId"`
	QuestionID     string    `json:"questionId"`
	Year           int       `json:"year"`
	Index          int       `json:"index"`
	Discipline     *string   `json:"discipline,omitempty"`
	SelectedAnswer string    `json:"selectedAnswer"`
	CorrectAnswer  string    `json:"correctAnswer"`
	IsCorrect      bool      `json:"isCorrect"`
	AnsweredAt     time.Time `json:"answeredAt"`
}

// ── Request Types ────────────────────────────────────────

// AddAnswerRequest is the body of POST /history/add. Numeric and boolean
// fields are pointers so a missing field can be told apart from a zero value.
type AddAnswerRequest struct {
	QuestionID     string  `json:"questionId"`
	Year           *int    `json:"year"`
	Index          *int    `json:"index"`
	Discipline     *string `json:"discipline,omitempty"`
	SelectedAnswer string  `json:"selectedAnswer"`
	CorrectAnswer  string  `json:"correctAnswer"`
	IsCorrect      *bool   `json:"isCorrect"`
}

// Outcome filters a history listing.
type Outcome string

const (
	OutcomeAll       Outcome = "all"
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
)

var ValidOutcomes = map[Outcome]bool{
	OutcomeAll:       true,
	OutcomeCorrect:   true,
	OutcomeIncorrect: true,
}

// ── Response Types ────────────────────────────────────────

type HistoryListResponse struct {
	History []AnswerRecord `json:"history"`
}

type AddAnswerResponse struct {
	Success bool          `json:"success"`
	Data    *AnswerRecord `json:"data"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type HistoryStats struct {
	Total             int                     `json:"total"`
	Correct           int                     `json:"correct"`
	Incorrect         int                     `json:"incorrect"`
	CorrectPercentage int                     `json:"correctPercentage"`
	ByYear            []YearStat              `json:"byYear"`
	ByDiscipline      map[string]AccuracyStat `json:"byDiscipline"`
}

type YearStat struct {
	Year     int `json:"year"`
	Answered int `json:"answered"`
	Correct  int `json:"correct"`
}

type AccuracyStat struct {
	Answered int `json:"answered"`
	Correct  int `json:"correct"`
}

// ── Derived views ────────────────────────────────────────

// FilterRecords keeps the records matching outcome. Unknown outcomes behave
// like OutcomeAll.
func FilterRecords(records []AnswerRecord, outcome Outcome) []AnswerRecord {
	out := make([]AnswerRecord, 0, len(records))
	for _, r := range records {
		switch outcome {
		case OutcomeCorrect:
			if !r.IsCorrect {
				continue
			}
		case OutcomeIncorrect:
			if r.IsCorrect {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// GroupByYear buckets records by exam year, keeping their relative order.
// The returned years are sorted newest first.
func GroupByYear(records []AnswerRecord) ([]int, map[int][]AnswerRecord) {
	groups := make(map[int][]AnswerRecord)
	for _, r := range records {
		groups[r.Year] = append(groups[r.Year], r)
	}
	years := make([]int, 0, len(groups))
	for y := range groups {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, groups
}

// SummarizeHistory computes the totals shown on the history page.
func SummarizeHistory(records []AnswerRecord) HistoryStats {
	stats := HistoryStats{
		Total:        len(records),
		ByYear:       []YearStat{},
		ByDiscipline: make(map[string]AccuracyStat),
	}

	years, groups := GroupByYear(records)
	for _, y := range years {
		ys := YearStat{Year: y}
		for _, r := range groups[y] {
			ys.Answered++
			if r.IsCorrect {
				ys.Correct++
			}
		}
		stats.ByYear = append(stats.ByYear, ys)
	}

	for _, r := range records {
		if r.IsCorrect {
			stats.Correct++
		}
		if r.Discipline != nil && strings.TrimSpace(*r.Discipline) != "" {
			d := stats.ByDiscipline[*r.Discipline]
			d.Answered++
			if r.IsCorrect {
				d.Correct++
			}
			stats.ByDiscipline[*r.Discipline] = d
		}
	}
	stats.Incorrect = stats.Total - stats.Correct
	if stats.Total > 0 {
		stats.CorrectPercentage = int(math.Round(float64(stats.Correct) / float64(stats.Total) * 100))
	}
	return stats
}
