// Package practice holds the per-question answering flow: pick an
// alternative, check it, and record the result when signed in.
package practice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/enem-practice/backend/internal/models"
	"github.com/enem-practice/backend/internal/questions"
)

type Phase int

const (
	Unanswered Phase = iota
	Selected
	Checked
)

func (p Phase) String() string {
	switch p {
	case Unanswered:
		return "unanswered"
	case Selected:
		return "selected"
	case Checked:
		return "checked"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

var (
	ErrSaveInProgress = errors.New("answer is being saved")
	ErrNoSelection    = errors.New("no alternative selected")
	ErrAlreadyChecked = errors.New("answer already checked")
	ErrInvalidChoice  = errors.New("not an alternative of this question")
)

// Recorder persists checked answers. historyclient.State satisfies it.
type Recorder interface {
	Authenticated() bool
	Lookup(questionID string) (models.AnswerRecord, bool)
	AddAnswer(ctx context.Context, req models.AddAnswerRequest) error
}

// Result is the outcome of a check.
type Result struct {
	Selected  string
	Correct   string
	IsCorrect bool
}

type Session struct {
	mu         sync.Mutex
	question   models.Question
	questionID string
	recorder   Recorder

	phase    Phase
	selected string
	saving   bool
}

// NewSession starts a session for q. A previously recorded answer puts the
// session straight into Checked with that selection.
func NewSession(q models.Question, recorder Recorder) *Session {
	s := &Session{
		question:   q,
		questionID: questions.QuestionID(q.Year, q.Index),
		recorder:   recorder,
	}
	if recorder != nil {
		if rec, ok := recorder.Lookup(s.questionID); ok {
			s.selected = rec.SelectedAnswer
			s.phase = Checked
		}
	}
	return s
}

func (s *Session) QuestionID() string { return s.questionID }

func (s *Session) Question() models.Question { return s.question }

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) Selection() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

func (s *Session) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// Result reports the checked outcome. ok is false before Check succeeds.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Checked {
		return Result{}, false
	}
	return s.resultLocked(), true
}

// Select picks an alternative. Letters match case-insensitively.
func (s *Session) Select(letter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saving {
		return ErrSaveInProgress
	}
	if s.phase == Checked {
		return ErrAlreadyChecked
	}

	alt, ok := s.question.FindAlternative(letter)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidChoice, strings.TrimSpace(letter))
	}
	s.selected = alt.Letter
	s.phase = Selected
	return nil
}

// Check grades the selection. When the recorder is signed in the answer is
// saved first and the session only moves to Checked once the save succeeds.
func (s *Session) Check(ctx context.Context) (Result, error) {
	s.mu.Lock()
	switch {
	case s.saving:
		s.mu.Unlock()
		return Result{}, ErrSaveInProgress
	case s.phase == Checked:
		s.mu.Unlock()
		return Result{}, ErrAlreadyChecked
	case s.phase != Selected:
		s.mu.Unlock()
		return Result{}, ErrNoSelection
	}

	res := s.resultLocked()
	if s.recorder == nil || !s.recorder.Authenticated() {
		s.phase = Checked
		s.mu.Unlock()
		return res, nil
	}

	s.saving = true
	req := s.requestLocked(res)
	s.mu.Unlock()

	err := s.recorder.AddAnswer(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	if err != nil {
		return Result{}, fmt.Errorf("save answer: %w", err)
	}
	s.phase = Checked
	return res, nil
}

// Reset clears the selection so the question can be tried again.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saving {
		return ErrSaveInProgress
	}
	s.phase = Unanswered
	s.selected = ""
	return nil
}

// resultLocked grades the selection. Letters compare case-insensitively and
// the correct letter is reported as spelled in the alternatives.
func (s *Session) resultLocked() Result {
	correct := strings.TrimSpace(s.question.CorrectAlternative)
	if alt, ok := s.question.FindAlternative(correct); ok {
		correct = alt.Letter
	}
	return Result{
		Selected:  s.selected,
		Correct:   correct,
		IsCorrect: s.selected != "" && strings.EqualFold(s.selected, correct),
	}
}

func (s *Session) requestLocked(res Result) models.AddAnswerRequest {
	year, index, isCorrect := s.question.Year, s.question.Index, res.IsCorrect
	req := models.AddAnswerRequest{
		QuestionID:     s.questionID,
		Year:           &year,
		Index:          &index,
		SelectedAnswer: res.Selected,
		CorrectAnswer:  res.Correct,
		IsCorrect:      &isCorrect,
	}
	if s.question.Discipline != "" {
		d := s.question.Discipline
		req.Discipline = &d
	}
	return req
}
