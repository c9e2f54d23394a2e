package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/enem-practice/backend/internal/models"
)

// Store persists answer records keyed on (userID, questionID).
type Store interface {
	ListByUser(ctx context.Context, userID string) ([]models.AnswerRecord, error)
	// Upsert creates the user row if absent, then inserts or overwrites the
	// caller's record for rec.QuestionID. answered_at is assigned by the store.
	Upsert(ctx context.Context, user models.User, rec models.AnswerRecord) (*models.AnswerRecord, error)
	ClearByUser(ctx context.Context, userID string) error
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `id, user_id, question_id, year, question_index, discipline,
	        selected_answer, correct_answer, is_correct, answered_at`

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]models.AnswerRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+`
		 FROM answer_history
		 WHERE user_id = $1
		 ORDER BY answered_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	records := []models.AnswerRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, user models.User, rec models.AnswerRecord) (*models.AnswerRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, given_name, family_name, picture)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		user.ID, user.Email, user.GivenName, user.FamilyName, user.Picture,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}

	row := tx.QueryRowContext(ctx,
		`INSERT INTO answer_history
		   (user_id, question_id, year, question_index, discipline,
		    selected_answer, correct_answer, is_correct, answered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		 ON CONFLICT (user_id, question_id) DO UPDATE SET
		   selected_answer = EXCLUDED.selected_answer,
		   correct_answer  = EXCLUDED.correct_answer,
		   is_correct      = EXCLUDED.is_correct,
		   answered_at     = NOW()
		 RETURNING `+recordColumns,
		user.ID, rec.QuestionID, rec.Year, rec.Index, rec.Discipline,
		rec.SelectedAnswer, rec.CorrectAnswer, rec.IsCorrect,
	)
	saved, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("upsert answer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert: %w", err)
	}
	return saved, nil
}

func (s *PostgresStore) ClearByUser(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM answer_history WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*models.AnswerRecord, error) {
	var rec models.AnswerRecord
	var discipline sql.NullString
	err := sc.Scan(&rec.ID, &rec.UserID, &rec.QuestionID, &rec.Year, &rec.Index, &discipline,
		&rec.SelectedAnswer, &rec.CorrectAnswer, &rec.IsCorrect, &rec.AnsweredAt)
	if err != nil {
		return nil, err
	}
	if discipline.Valid {
		d := discipline.String
		rec.Discipline = &d
	}
	return &rec, nil
}
