package history

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/enem-practice/backend/internal/apperr"
	"github.com/enem-practice/backend/internal/auth"
	"github.com/enem-practice/backend/internal/logger"
	"github.com/enem-practice/backend/internal/models"
)

// Service owns the answer-history rules. Every store call is keyed on the
// verified caller, never on request data.
type Service struct {
	store Store
	log   *logger.Logger
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log.With("component", "history")}
}

// List returns the caller's records, newest first, optionally filtered by
// outcome.
func (s *Service) List(ctx context.Context, caller *auth.Identity, outcome models.Outcome) ([]models.AnswerRecord, error) {
	if caller == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if outcome == "" {
		outcome = models.OutcomeAll
	}
	if !models.ValidOutcomes[outcome] {
		return nil, fmt.Errorf("%w: outcome must be one of all, correct, incorrect", apperr.ErrInvalidArgument)
	}

	records, err := s.store.ListByUser(ctx, caller.ID)
	if err != nil {
		s.log.Error("list history failed", "user_id", caller.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrInternal, err)
	}
	if outcome == models.OutcomeAll {
		return records, nil
	}
	return models.FilterRecords(records, outcome), nil
}

// Upsert validates req and records it as the caller's latest answer to
// req.QuestionID.
func (s *Service) Upsert(ctx context.Context, caller *auth.Identity, req models.AddAnswerRequest) (*models.AnswerRecord, error) {
	if caller == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if err := validateAddAnswer(req); err != nil {
		return nil, err
	}

	rec := models.AnswerRecord{
		QuestionID:     strings.TrimSpace(req.QuestionID),
		Year:           *req.Year,
		Index:          *req.Index,
		Discipline:     req.Discipline,
		SelectedAnswer: strings.TrimSpace(req.SelectedAnswer),
		CorrectAnswer:  strings.TrimSpace(req.CorrectAnswer),
		IsCorrect:      *req.IsCorrect,
	}

	if rec.QuestionID != strconv.Itoa(rec.Year)+"-"+strconv.Itoa(rec.Index) {
		s.log.Warn("question id does not match year and index",
			"user_id", caller.ID, "question_id", rec.QuestionID, "year", rec.Year, "index", rec.Index)
	}
	if rec.IsCorrect != (rec.SelectedAnswer == rec.CorrectAnswer) {
		s.log.Warn("isCorrect disagrees with selected and correct answers",
			"user_id", caller.ID, "question_id", rec.QuestionID)
	}

	saved, err := s.store.Upsert(ctx, caller.User(), rec)
	if err != nil {
		s.log.Error("upsert answer failed", "user_id", caller.ID, "question_id", rec.QuestionID, "error", err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrInternal, err)
	}
	s.log.Debug("answer recorded", "user_id", caller.ID, "question_id", saved.QuestionID, "is_correct", saved.IsCorrect)
	return saved, nil
}

// ClearAll deletes every record of the caller. Clearing an empty history
// succeeds.
func (s *Service) ClearAll(ctx context.Context, caller *auth.Identity) error {
	if caller == nil {
		return apperr.ErrUnauthenticated
	}
	if err := s.store.ClearByUser(ctx, caller.ID); err != nil {
		s.log.Error("clear history failed", "user_id", caller.ID, "error", err)
		return fmt.Errorf("%w: %v", apperr.ErrInternal, err)
	}
	s.log.Info("history cleared", "user_id", caller.ID)
	return nil
}

func (s *Service) Stats(ctx context.Context, caller *auth.Identity) (*models.HistoryStats, error) {
	records, err := s.List(ctx, caller, models.OutcomeAll)
	if err != nil {
		return nil, err
	}
	stats := models.SummarizeHistory(records)
	return &stats, nil
}

func validateAddAnswer(req models.AddAnswerRequest) error {
	var missing []string
	if strings.TrimSpace(req.QuestionID) == "" {
		missing = append(missing, "questionId")
	}
	if req.Year == nil || *req.Year == 0 {
		missing = append(missing, "year")
	}
	if req.Index == nil || *req.Index == 0 {
		missing = append(missing, "index")
	}
	if strings.TrimSpace(req.SelectedAnswer) == "" {
		missing = append(missing, "selectedAnswer")
	}
	if strings.TrimSpace(req.CorrectAnswer) == "" {
		missing = append(missing, "correctAnswer")
	}
	if req.IsCorrect == nil {
		missing = append(missing, "isCorrect")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", apperr.ErrInvalidArgument, strings.Join(missing, ", "))
	}
	return nil
}
