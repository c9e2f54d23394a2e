package models

import "strings"

// ── Question Source Types ───────────────────────────────
//
// These mirror the external question API. Optional fields are omitted when
// the API leaves them out.

type Exam struct {
	Year  int    `json:"year"`
	Title string `json:"title,omitempty"`
}

type Alternative struct {
	Letter    string `json:"letter"`
	Text      string `json:"text"`
	File      string `json:"file,omitempty"`
	IsCorrect bool   `json:"isCorrect"`
}

type Question struct {
	Title                    string        `json:"title"`
	Index                    int           `json:"index"`
	Discipline               string        `json:"discipline,omitempty"`
	Language                 string        `json:"language,omitempty"`
	Year                     int           `json:"year"`
	Context                  string        `json:"context,omitempty"`
	Files                    []string      `json:"files,omitempty"`
	CorrectAlternative       string        `json:"correctAlternative"`
	AlternativesIntroduction string        `json:"alternativesIntroduction,omitempty"`
	Alternatives             []Alternative `json:"alternatives"`
}

// FindAlternative looks letter up among the question's options, ignoring
// case and surrounding space.
func (q Question) FindAlternative(letter string) (Alternative, bool) {
	letter = strings.TrimSpace(letter)
	for _, a := range q.Alternatives {
		if strings.EqualFold(a.Letter, letter) {
			return a, true
		}
	}
	return Alternative{}, false
}

type PageMetadata struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// QuestionPage is the normalized shape of a question listing.
type QuestionPage struct {
	Questions []Question   `json:"questions"`
	Metadata  PageMetadata `json:"metadata"`
}
