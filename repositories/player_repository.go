package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/quiz-tournament/models"
)

var ErrPlayerNotFound = errors.New("player not found")

type PlayerRepository interface {
	// Upsert registers the player or refreshes username/first_name for an
	// existing one. The language preference is not overwritten on conflict.
	Upsert(ctx context.Context, player *models.Player) error
	GetByID(ctx context.Context, id int) (*models.Player, error)
	ListIDs(ctx context.Context) ([]int, error)
	SetLang(ctx context.Context, id int, lang string) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) Upsert(ctx context.Context, player *models.Player) error {
	query := `
		INSERT INTO players (id, username, first_name, lang)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, first_name = EXCLUDED.first_name`
	_, err := r.db.ExecContext(ctx, query, player.ID, player.Username, player.FirstName, player.Lang)
	if err != nil {
		return fmt.Errorf("failed to upsert player %d: %w", player.ID, err)
	}
	return nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	query := `SELECT id, username, first_name, lang FROM players WHERE id = $1`
	var p models.Player
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Username, &p.FirstName, &p.Lang)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player %d: %w", id, err)
	}
	return &p, nil
}

func (r *postgresPlayerRepository) ListIDs(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM players ORDER BY id`)
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

func (r *postgresPlayerRepository) SetLang(ctx context.Context, id int, lang string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE players SET lang = $1 WHERE id = $2`, lang, id)
	if err != nil {
		return fmt.Errorf("failed to set lang for player %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}
