package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/quiz-tournament/models"
	"github.com/lib/pq"
)

var ErrAnswerConflict = errors.New("player already answered this question")

// PlayerStats is the lifetime aggregate shown on a player's profile.
type PlayerStats struct {
	Matches int `json:"matches"`
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
}

type AnswerRepository interface {
	Record(ctx context.Context, exec SQLExecutor, answer *models.PlayerAnswer) error
	// CorrectCountForPlayers sums correct answers in one match over the
	// given roster.
	CorrectCountForPlayers(ctx context.Context, exec SQLExecutor, matchID int, playerIDs []int) (int, error)
	// TopScorers ranks players of one match by correct answers descending,
	// then by earliest last correct answer, then by lowest player id. The
	// ordering is total, so MVP selection is deterministic.
	TopScorers(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.PlayerScore, error)
	StatsForPlayer(ctx context.Context, playerID int) (*PlayerStats, error)
}

type postgresAnswerRepository struct {
	db *sql.DB
}

func NewPostgresAnswerRepository(db *sql.DB) AnswerRepository {
	return &postgresAnswerRepository{db: db}
}

func (r *postgresAnswerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAnswerRepository) Record(ctx context.Context, exec SQLExecutor, answer *models.PlayerAnswer) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO player_answers (match_id, player_id, question_index, answer, is_correct, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := executor.ExecContext(ctx, query,
		answer.MatchID, answer.PlayerID, answer.QuestionIndex, answer.Answer, answer.IsCorrect, answer.AnsweredAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrAnswerConflict
		}
		return fmt.Errorf("failed to record answer of player %d for match %d index %d: %w",
			answer.PlayerID, answer.MatchID, answer.QuestionIndex, err)
	}
	return nil
}

func (r *postgresAnswerRepository) CorrectCountForPlayers(ctx context.Context, exec SQLExecutor, matchID int, playerIDs []int) (int, error) {
	if len(playerIDs) == 0 {
		return 0, nil
	}
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM player_answers
		WHERE match_id = $1 AND is_correct = TRUE AND player_id = ANY($2)`,
		matchID, pq.Array(playerIDs)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count correct answers for match %d: %w", matchID, err)
	}
	return count, nil
}

func (r *postgresAnswerRepository) TopScorers(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.PlayerScore, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `
		SELECT pa.player_id, p.first_name, COUNT(*) AS correct, MAX(pa.answered_at) AS last_correct_at
		FROM player_answers pa
		JOIN players p ON pa.player_id = p.id
		WHERE pa.match_id = $1 AND pa.is_correct = TRUE
		GROUP BY pa.player_id, p.first_name
		ORDER BY correct DESC, last_correct_at ASC, pa.player_id ASC`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make([]*models.PlayerScore, 0)
	for rows.Next() {
		var s models.PlayerScore
		if err := rows.Scan(&s.PlayerID, &s.FirstName, &s.Correct, &s.LastCorrectAt); err != nil {
			return nil, err
		}
		scores = append(scores, &s)
	}
	return scores, rows.Err()
}

func (r *postgresAnswerRepository) StatsForPlayer(ctx context.Context, playerID int) (*PlayerStats, error) {
	var stats PlayerStats
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT match_id),
		       COUNT(*) FILTER (WHERE is_correct),
		       COUNT(*) FILTER (WHERE NOT is_correct)
		FROM player_answers WHERE player_id = $1`, playerID).Scan(&stats.Matches, &stats.Correct, &stats.Wrong)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &PlayerStats{}, nil
		}
		return nil, fmt.Errorf("failed to load stats for player %d: %w", playerID, err)
	}
	return &stats, nil
}
