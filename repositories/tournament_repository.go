package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/quiz-tournament/models"
)

// TournamentStateRepository guards the singleton phase row. Phase
// transitions go through CASPhase so that racing callers (several matches
// finalizing at once) advance the tournament exactly once.
type TournamentStateRepository interface {
	GetPhase(ctx context.Context, exec SQLExecutor) (models.Phase, error)
	SetPhase(ctx context.Context, exec SQLExecutor, phase models.Phase) error
	CASPhase(ctx context.Context, exec SQLExecutor, from, to models.Phase) (bool, error)

	// GetValue/SetValue/CASValue expose the same key-value row machinery for
	// auxiliary state, such as the current knockout round.
	GetValue(ctx context.Context, exec SQLExecutor, key string) (string, error)
	SetValue(ctx context.Context, exec SQLExecutor, key, value string) error
	CASValue(ctx context.Context, exec SQLExecutor, key, from, to string) (bool, error)

	DeleteAll(ctx context.Context, exec SQLExecutor) error
}

type postgresTournamentStateRepository struct {
	db *sql.DB
}

func NewPostgresTournamentStateRepository(db *sql.DB) TournamentStateRepository {
	return &postgresTournamentStateRepository{db: db}
}

func (r *postgresTournamentStateRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const phaseKey = "phase"

func (r *postgresTournamentStateRepository) GetPhase(ctx context.Context, exec SQLExecutor) (models.Phase, error) {
	value, err := r.GetValue(ctx, exec, phaseKey)
	if err != nil {
		return models.PhaseNone, fmt.Errorf("failed to read tournament phase: %w", err)
	}
	if value == "" {
		return models.PhaseNone, nil
	}
	return models.Phase(value), nil
}

func (r *postgresTournamentStateRepository) SetPhase(ctx context.Context, exec SQLExecutor, phase models.Phase) error {
	if err := r.SetValue(ctx, exec, phaseKey, string(phase)); err != nil {
		return fmt.Errorf("failed to set tournament phase to %s: %w", phase, err)
	}
	return nil
}

func (r *postgresTournamentStateRepository) CASPhase(ctx context.Context, exec SQLExecutor, from, to models.Phase) (bool, error) {
	won, err := r.CASValue(ctx, exec, phaseKey, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("failed to advance tournament phase %s -> %s: %w", from, to, err)
	}
	return won, nil
}

func (r *postgresTournamentStateRepository) GetValue(ctx context.Context, exec SQLExecutor, key string) (string, error) {
	executor := r.getExecutor(exec)
	var value string
	err := executor.QueryRowContext(ctx,
		`SELECT value FROM tournament_state WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

func (r *postgresTournamentStateRepository) SetValue(ctx context.Context, exec SQLExecutor, key, value string) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `
		INSERT INTO tournament_state (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	return err
}

func (r *postgresTournamentStateRepository) CASValue(ctx context.Context, exec SQLExecutor, key, from, to string) (bool, error) {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE tournament_state SET value = $1 WHERE key = $2 AND value = $3`,
		to, key, from)
	if err != nil {
		return false, err
	}
	return affected(result)
}

func (r *postgresTournamentStateRepository) DeleteAll(ctx context.Context, exec SQLExecutor) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM tournament_state`)
	return err
}
