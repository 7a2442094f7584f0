package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/quiz-tournament/models"
)

var ErrStandingNotFound = errors.New("team standing not found")

// GroupOutcome is one team's slice of a group-stage finalization. Exactly
// one of Win/Draw/Loss is set; Points and Correct are added cumulatively.
type GroupOutcome struct {
	Win     bool
	Draw    bool
	Loss    bool
	Points  int
	Correct int
}

type StandingRepository interface {
	BatchCreate(ctx context.Context, exec SQLExecutor, teamIDs []int, groupName string) error
	GetByTeam(ctx context.Context, exec SQLExecutor, teamID int) (*models.TeamStanding, error)
	// ApplyGroupOutcome bumps played plus the win/draw/loss, points and
	// correct-answer counters in a single statement.
	ApplyGroupOutcome(ctx context.Context, exec SQLExecutor, teamID int, outcome GroupOutcome) error
	// AddCorrect bumps only the cumulative correct-answer counter, used in
	// the knockout phase where points and win/loss are not tracked.
	AddCorrect(ctx context.Context, exec SQLExecutor, teamID, correct int) error
	// ListByGroup returns standings ranked by points desc, then cumulative
	// correct answers desc, then team id for a stable order.
	ListByGroup(ctx context.Context, groupName string, activeOnly bool) ([]*models.TeamStanding, error)
	ListAll(ctx context.Context) ([]*models.TeamStanding, error)
	DeleteAll(ctx context.Context, exec SQLExecutor) error
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresStandingRepository) BatchCreate(ctx context.Context, exec SQLExecutor, teamIDs []int, groupName string) error {
	executor := r.getExecutor(exec)
	query := `INSERT INTO team_standings (team_id, group_name) VALUES ($1, $2)`
	for _, teamID := range teamIDs {
		if _, err := executor.ExecContext(ctx, query, teamID, groupName); err != nil {
			return fmt.Errorf("failed to create standing for team %d in group %s: %w", teamID, groupName, err)
		}
	}
	return nil
}

func (r *postgresStandingRepository) GetByTeam(ctx context.Context, exec SQLExecutor, teamID int) (*models.TeamStanding, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT team_id, group_name, played, wins, draws, losses, points, correct_answers
		FROM team_standings WHERE team_id = $1`
	var s models.TeamStanding
	err := executor.QueryRowContext(ctx, query, teamID).Scan(
		&s.TeamID, &s.GroupName, &s.Played, &s.Wins, &s.Draws, &s.Losses, &s.Points, &s.CorrectAnswers)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStandingNotFound
		}
		return nil, fmt.Errorf("failed to scan standing for team %d: %w", teamID, err)
	}
	return &s, nil
}

func (r *postgresStandingRepository) ApplyGroupOutcome(ctx context.Context, exec SQLExecutor, teamID int, outcome GroupOutcome) error {
	executor := r.getExecutor(exec)
	win, draw, loss := 0, 0, 0
	if outcome.Win {
		win = 1
	}
	if outcome.Draw {
		draw = 1
	}
	if outcome.Loss {
		loss = 1
	}
	result, err := executor.ExecContext(ctx, `
		UPDATE team_standings
		SET played = played + 1,
		    wins = wins + $1, draws = draws + $2, losses = losses + $3,
		    points = points + $4, correct_answers = correct_answers + $5
		WHERE team_id = $6`,
		win, draw, loss, outcome.Points, outcome.Correct, teamID)
	if err != nil {
		return fmt.Errorf("failed to apply group outcome for team %d: %w", teamID, err)
	}
	return checkAffectedRows(result, ErrStandingNotFound)
}

func (r *postgresStandingRepository) AddCorrect(ctx context.Context, exec SQLExecutor, teamID, correct int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE team_standings SET correct_answers = correct_answers + $1 WHERE team_id = $2`,
		correct, teamID)
	if err != nil {
		return fmt.Errorf("failed to add correct answers for team %d: %w", teamID, err)
	}
	return checkAffectedRows(result, ErrStandingNotFound)
}

func (r *postgresStandingRepository) listStandings(ctx context.Context, query string, args ...interface{}) ([]*models.TeamStanding, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	standings := make([]*models.TeamStanding, 0)
	for rows.Next() {
		var s models.TeamStanding
		if err := rows.Scan(&s.TeamID, &s.GroupName, &s.Played, &s.Wins, &s.Draws,
			&s.Losses, &s.Points, &s.CorrectAnswers); err != nil {
			return nil, err
		}
		standings = append(standings, &s)
	}
	return standings, rows.Err()
}

func (r *postgresStandingRepository) ListByGroup(ctx context.Context, groupName string, activeOnly bool) ([]*models.TeamStanding, error) {
	query := `
		SELECT ts.team_id, ts.group_name, ts.played, ts.wins, ts.draws, ts.losses, ts.points, ts.correct_answers
		FROM team_standings ts
		JOIN teams t ON ts.team_id = t.id
		WHERE ts.group_name = $1`
	if activeOnly {
		query += ` AND t.active = TRUE`
	}
	query += ` ORDER BY ts.points DESC, ts.correct_answers DESC, ts.team_id ASC`
	return r.listStandings(ctx, query, groupName)
}

func (r *postgresStandingRepository) ListAll(ctx context.Context) ([]*models.TeamStanding, error) {
	return r.listStandings(ctx, `
		SELECT team_id, group_name, played, wins, draws, losses, points, correct_answers
		FROM team_standings ORDER BY group_name, team_id`)
}

func (r *postgresStandingRepository) DeleteAll(ctx context.Context, exec SQLExecutor) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM team_standings`)
	return err
}
