package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/quiz-tournament/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	List(ctx context.Context) ([]*models.Match, error)
	ListByPhase(ctx context.Context, phase models.Phase) ([]*models.Match, error)
	CountUnplayed(ctx context.Context, exec SQLExecutor, phase models.Phase) (int, error)

	// MarkActive is the match-start gate: pending and unplayed -> active.
	// Exactly one of any number of concurrent callers gets true.
	MarkActive(ctx context.Context, id int) (bool, error)
	// RevertToPending undoes a start that could not complete (empty roster,
	// no content) so the next scheduler tick can retry.
	RevertToPending(ctx context.Context, id int) error
	// FinishWithResult is the finalize gate: active -> finished plus the
	// final score and winner, in one compare-and-set statement. Exactly one
	// of any number of concurrent finalizers gets true.
	FinishWithResult(ctx context.Context, exec SQLExecutor, id, score1, score2 int, winnerID *int) (bool, error)

	SetSchedule(ctx context.Context, id int, at time.Time) error
	ClearSchedule(ctx context.Context, id int) error
	ListDue(ctx context.Context, now time.Time) ([]int, error)
	ListDueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]*models.Match, error)
	MarkReminderSent(ctx context.Context, id int) (bool, error)

	DeleteAll(ctx context.Context, exec SQLExecutor) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, phase, round, group_name, team1_id, team2_id, score1, score2,
	played, winner_id, status, scheduled_at, reminder_sent`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches
			(phase, round, group_name, team1_id, team2_id, score1, score2, played, winner_id, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	err := executor.QueryRowContext(ctx, query,
		match.Phase, match.Round, match.GroupName, match.Team1ID, match.Team2ID,
		match.Score1, match.Score2, match.Played, match.WinnerID, match.Status, match.ScheduledAt,
	).Scan(&match.ID)
	if err != nil {
		return fmt.Errorf("failed to create %s match %d vs %d: %w", match.Phase, match.Team1ID, match.Team2ID, err)
	}
	return nil
}

func scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	err := rowScanner.Scan(
		&m.ID, &m.Phase, &m.Round, &m.GroupName, &m.Team1ID, &m.Team2ID,
		&m.Score1, &m.Score2, &m.Played, &m.WinnerID, &m.Status, &m.ScheduledAt, &m.ReminderSent,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return scanMatch(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) List(ctx context.Context) ([]*models.Match, error) {
	return r.list(ctx, `SELECT `+matchColumns+` FROM matches ORDER BY id`)
}

func (r *postgresMatchRepository) ListByPhase(ctx context.Context, phase models.Phase) ([]*models.Match, error) {
	return r.list(ctx, `SELECT `+matchColumns+` FROM matches WHERE phase = $1 ORDER BY id`, phase)
}

func (r *postgresMatchRepository) CountUnplayed(ctx context.Context, exec SQLExecutor, phase models.Phase) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE phase = $1 AND played = FALSE`, phase).Scan(&count)
	return count, err
}

func (r *postgresMatchRepository) MarkActive(ctx context.Context, id int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE matches SET status = $1 WHERE id = $2 AND status = $3 AND played = FALSE`,
		models.MatchStatusActive, id, models.MatchStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to mark match %d active: %w", id, err)
	}
	return affected(result)
}

func (r *postgresMatchRepository) RevertToPending(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE matches SET status = $1 WHERE id = $2 AND status = $3`,
		models.MatchStatusPending, id, models.MatchStatusActive)
	if err != nil {
		return fmt.Errorf("failed to revert match %d to pending: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) FinishWithResult(ctx context.Context, exec SQLExecutor, id, score1, score2 int, winnerID *int) (bool, error) {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `
		UPDATE matches
		SET status = $1, played = TRUE, score1 = $2, score2 = $3, winner_id = $4
		WHERE id = $5 AND status = $6`,
		models.MatchStatusFinished, score1, score2, winnerID, id, models.MatchStatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to finish match %d: %w", id, err)
	}
	return affected(result)
}

func (r *postgresMatchRepository) SetSchedule(ctx context.Context, id int, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE matches SET scheduled_at = $1, reminder_sent = FALSE WHERE id = $2 AND played = FALSE`,
		at, id)
	if err != nil {
		return fmt.Errorf("failed to schedule match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) ClearSchedule(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE matches SET scheduled_at = NULL, reminder_sent = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to unschedule match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) ListDue(ctx context.Context, now time.Time) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM matches
		WHERE status = $1 AND played = FALSE AND scheduled_at IS NOT NULL AND scheduled_at <= $2
		ORDER BY scheduled_at`,
		models.MatchStatusPending, now)
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

func (r *postgresMatchRepository) ListDueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]*models.Match, error) {
	return r.list(ctx, `
		SELECT `+matchColumns+` FROM matches
		WHERE status = $1 AND played = FALSE AND reminder_sent = FALSE
		  AND scheduled_at IS NOT NULL AND scheduled_at > $2 AND scheduled_at <= $3
		ORDER BY scheduled_at`,
		models.MatchStatusPending, now, now.Add(lead))
}

func (r *postgresMatchRepository) MarkReminderSent(ctx context.Context, id int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE matches SET reminder_sent = TRUE WHERE id = $1 AND reminder_sent = FALSE`, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder sent for match %d: %w", id, err)
	}
	return affected(result)
}

func (r *postgresMatchRepository) DeleteAll(ctx context.Context, exec SQLExecutor) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM matches`)
	return err
}
