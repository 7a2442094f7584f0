package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/quiz-tournament/models"
	"github.com/lib/pq"
)

var ErrQuestionNotFound = errors.New("match question not found")

type QuestionRepository interface {
	BatchInsert(ctx context.Context, exec SQLExecutor, matchID int, questions []models.Question) error
	Get(ctx context.Context, matchID, index int) (*models.MatchQuestion, error)
	ListByMatch(ctx context.Context, matchID int) ([]*models.MatchQuestion, error)
	// Close marks (matchID, index) answered and attributes it to playerID.
	// It is the question-close gate: exactly one of any number of
	// concurrent callers for the same index gets true.
	Close(ctx context.Context, exec SQLExecutor, matchID, index, playerID int) (bool, error)
	// Counts returns (total, answered) for the match's batch.
	Counts(ctx context.Context, exec SQLExecutor, matchID int) (int, int, error)
}

type postgresQuestionRepository struct {
	db *sql.DB
}

func NewPostgresQuestionRepository(db *sql.DB) QuestionRepository {
	return &postgresQuestionRepository{db: db}
}

func (r *postgresQuestionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresQuestionRepository) BatchInsert(ctx context.Context, exec SQLExecutor, matchID int, questions []models.Question) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO match_questions
			(match_id, question_index, question_text, correct_answer, options, difficulty, answered)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)`
	for idx, q := range questions {
		_, err := executor.ExecContext(ctx, query,
			matchID, idx, q.Text, q.Correct, pq.Array(q.Options), q.Difficulty)
		if err != nil {
			return fmt.Errorf("failed to insert question %d for match %d: %w", idx, matchID, err)
		}
	}
	return nil
}

func (r *postgresQuestionRepository) scanQuestion(rowScanner interface{ Scan(...interface{}) error }) (*models.MatchQuestion, error) {
	var q models.MatchQuestion
	err := rowScanner.Scan(
		&q.MatchID, &q.QuestionIndex, &q.QuestionText, &q.CorrectAnswer,
		pq.Array(&q.Options), &q.Difficulty, &q.Answered, &q.AnsweredBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *postgresQuestionRepository) Get(ctx context.Context, matchID, index int) (*models.MatchQuestion, error) {
	query := `
		SELECT match_id, question_index, question_text, correct_answer, options, difficulty, answered, answered_by
		FROM match_questions WHERE match_id = $1 AND question_index = $2`
	return r.scanQuestion(r.db.QueryRowContext(ctx, query, matchID, index))
}

func (r *postgresQuestionRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchQuestion, error) {
	query := `
		SELECT match_id, question_index, question_text, correct_answer, options, difficulty, answered, answered_by
		FROM match_questions WHERE match_id = $1 ORDER BY question_index`
	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make([]*models.MatchQuestion, 0)
	for rows.Next() {
		q, err := r.scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (r *postgresQuestionRepository) Close(ctx context.Context, exec SQLExecutor, matchID, index, playerID int) (bool, error) {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `
		UPDATE match_questions SET answered = TRUE, answered_by = $1
		WHERE match_id = $2 AND question_index = $3 AND answered = FALSE`,
		playerID, matchID, index)
	if err != nil {
		return false, fmt.Errorf("failed to close question %d of match %d: %w", index, matchID, err)
	}
	return affected(result)
}

func (r *postgresQuestionRepository) Counts(ctx context.Context, exec SQLExecutor, matchID int) (int, int, error) {
	executor := r.getExecutor(exec)
	var total, answered int
	err := executor.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE answered)
		FROM match_questions WHERE match_id = $1`, matchID).Scan(&total, &answered)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count questions for match %d: %w", matchID, err)
	}
	return total, answered, nil
}
