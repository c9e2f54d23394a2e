package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/enem-practice/backend/internal/models"
)

// MemoryStore keeps history in process memory. It backs STORE_DRIVER=memory
// and the service tests.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	users   map[string]models.User
	records map[string]map[string]models.AnswerRecord
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]models.User),
		records: make(map[string]map[string]models.AnswerRecord),
		now:     time.Now,
	}
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]models.AnswerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.AnswerRecord, 0, len(s.records[userID]))
	for _, rec := range s.records[userID] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AnsweredAt.Equal(out[j].AnsweredAt) {
			return out[i].AnsweredAt.After(out[j].AnsweredAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Upsert(_ context.Context, user models.User, rec models.AnswerRecord) (*models.AnswerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		user.CreatedAt = s.now()
		s.users[user.ID] = user
	}

	byQuestion, ok := s.records[user.ID]
	if !ok {
		byQuestion = make(map[string]models.AnswerRecord)
		s.records[user.ID] = byQuestion
	}

	existing, ok := byQuestion[rec.QuestionID]
	if ok {
		existing.SelectedAnswer = rec.SelectedAnswer
		existing.CorrectAnswer = rec.CorrectAnswer
		existing.IsCorrect = rec.IsCorrect
		existing.AnsweredAt = s.now()
		byQuestion[rec.QuestionID] = existing
		return &existing, nil
	}

	s.nextID++
	rec.ID = s.nextID
	rec.UserID = user.ID
	rec.AnsweredAt = s.now()
	byQuestion[rec.QuestionID] = rec
	return &rec, nil
}

func (s *MemoryStore) ClearByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}

// User returns the mirrored user row, if one was created.
func (s *MemoryStore) User(userID string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	return u, ok
}
