package historyclient

import (
	"context"
	"sync"
	"time"

	"github.com/enem-practice/backend/internal/logger"
	"github.com/enem-practice/backend/internal/models"
)

const DefaultCallTimeout = 10 * time.Second

// State mirrors the signed-in user's history. Mutations run one at a time and
// the snapshot is replaced wholesale after each of them; nothing is applied
// optimistically.
type State struct {
	opMu sync.Mutex

	mu      sync.RWMutex
	api     API
	records []models.AnswerRecord

	timeout time.Duration
	log     *logger.Logger
}

type Option func(*State)

// WithCallTimeout bounds every network call made by the State.
func WithCallTimeout(d time.Duration) Option {
	return func(s *State) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewState(log *logger.Logger, opts ...Option) *State {
	s := &State{
		timeout: DefaultCallTimeout,
		log:     log.With("component", "history_state"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignIn binds an authenticated API and loads the snapshot. The binding is
// kept even when the initial load fails.
func (s *State) SignIn(ctx context.Context, api API) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.api = api
	s.records = nil
	s.mu.Unlock()

	return s.refreshLocked(ctx)
}

func (s *State) SignOut() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.api = nil
	s.records = nil
	s.mu.Unlock()
}

func (s *State) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.api != nil
}

// Refresh replaces the snapshot with the server's list. On failure the
// snapshot is emptied and the error returned.
func (s *State) Refresh(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.refreshLocked(ctx)
}

// AddAnswer records req and reloads the snapshot. Only the write's error is
// returned. Anonymous callers get a no-op.
func (s *State) AddAnswer(ctx context.Context, req models.AddAnswerRequest) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	api := s.currentAPI()
	if api == nil {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	_, err := api.Add(callCtx, req)
	cancel()
	if err != nil {
		s.log.Warn("add answer failed", "question_id", req.QuestionID, "error", err)
		return err
	}
	// The answer is stored at this point; a failed reload only empties the
	// snapshot and is logged by refreshLocked.
	_ = s.refreshLocked(ctx)
	return nil
}

// ClearHistory deletes the user's records and empties the snapshot without
// reloading it.
func (s *State) ClearHistory(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	api := s.currentAPI()
	if api == nil {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := api.Clear(callCtx); err != nil {
		s.log.Warn("clear history failed", "error", err)
		return err
	}

	s.mu.Lock()
	s.records = []models.AnswerRecord{}
	s.mu.Unlock()
	return nil
}

// Lookup finds the snapshot record for questionID.
func (s *State) Lookup(questionID string) (models.AnswerRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.QuestionID == questionID {
			return r, true
		}
	}
	return models.AnswerRecord{}, false
}

// Snapshot returns a copy of the current records.
func (s *State) Snapshot() []models.AnswerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AnswerRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *State) Stats() models.HistoryStats {
	return models.SummarizeHistory(s.Snapshot())
}

func (s *State) currentAPI() API {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.api
}

func (s *State) refreshLocked(ctx context.Context) error {
	api := s.currentAPI()
	if api == nil {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	records, err := api.List(callCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.records = []models.AnswerRecord{}
		s.log.Error("refresh history failed", "error", err)
		return err
	}
	s.records = records
	return nil
}
