package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrMembershipNotFound = errors.New("player is not in a team")
	ErrMembershipConflict = errors.New("player is already in a team")
)

// RosterRepository manages the player->team membership relation. The
// memberships table keys on player_id alone, so the one-team-per-player
// rule is enforced by the schema, not by application checks.
type RosterRepository interface {
	Join(ctx context.Context, playerID, teamID int) error
	Leave(ctx context.Context, playerID int) error
	// TeamOf returns nil without error when the player has no team.
	TeamOf(ctx context.Context, playerID int) (*int, error)
	PlayerIDs(ctx context.Context, teamID int) ([]int, error)
}

type postgresRosterRepository struct {
	db *sql.DB
}

func NewPostgresRosterRepository(db *sql.DB) RosterRepository {
	return &postgresRosterRepository{db: db}
}

func (r *postgresRosterRepository) Join(ctx context.Context, playerID, teamID int) error {
	query := `INSERT INTO memberships (player_id, team_id) VALUES ($1, $2)`
	_, err := r.db.ExecContext(ctx, query, playerID, teamID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrMembershipConflict
		}
		return fmt.Errorf("failed to join player %d to team %d: %w", playerID, teamID, err)
	}
	return nil
}

func (r *postgresRosterRepository) Leave(ctx context.Context, playerID int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM memberships WHERE player_id = $1`, playerID)
	if err != nil {
		return fmt.Errorf("failed to remove player %d from their team: %w", playerID, err)
	}
	return checkAffectedRows(result, ErrMembershipNotFound)
}

func (r *postgresRosterRepository) TeamOf(ctx context.Context, playerID int) (*int, error) {
	var teamID int
	err := r.db.QueryRowContext(ctx,
		`SELECT team_id FROM memberships WHERE player_id = $1`, playerID).Scan(&teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up team of player %d: %w", playerID, err)
	}
	return &teamID, nil
}

func (r *postgresRosterRepository) PlayerIDs(ctx context.Context, teamID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT player_id FROM memberships WHERE team_id = $1 ORDER BY joined_at`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
