package services

import (
	"context"
	"strings"

	"github.com/Dosada05/quiz-tournament/models"
	"github.com/Dosada05/quiz-tournament/repositories"
)

// MaxActiveTeams caps registrations so the two-group format stays playable.
const MaxActiveTeams = 8

type TeamService interface {
	CreateTeam(ctx context.Context, name string) (*models.Team, error)
	GetTeam(ctx context.Context, id int) (*models.Team, error)
	ListTeams(ctx context.Context, activeOnly bool) ([]*models.Team, error)
	// Roster returns the players currently in the team, in join order.
	Roster(ctx context.Context, teamID int) ([]*models.Player, error)
	DeactivateTeam(ctx context.Context, id int) error
}

type teamService struct {
	teamRepo   repositories.TeamRepository
	playerRepo repositories.PlayerRepository
	rosterRepo repositories.RosterRepository
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	playerRepo repositories.PlayerRepository,
	rosterRepo repositories.RosterRepository,
) TeamService {
	return &teamService{teamRepo: teamRepo, playerRepo: playerRepo, rosterRepo: rosterRepo}
}

func (s *teamService) CreateTeam(ctx context.Context, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	count, err := s.teamRepo.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	if count >= MaxActiveTeams {
		return nil, ErrTeamLimitReached
	}

	team := &models.Team{Name: name, Active: true}
	if err := s.teamRepo.Create(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

func (s *teamService) GetTeam(ctx context.Context, id int) (*models.Team, error) {
	return s.teamRepo.GetByID(ctx, id)
}

func (s *teamService) ListTeams(ctx context.Context, activeOnly bool) ([]*models.Team, error) {
	return s.teamRepo.List(ctx, activeOnly)
}

func (s *teamService) Roster(ctx context.Context, teamID int) ([]*models.Player, error) {
	if _, err := s.teamRepo.GetByID(ctx, teamID); err != nil {
		return nil, err
	}
	playerIDs, err := s.rosterRepo.PlayerIDs(ctx, teamID)
	if err != nil {
		return nil, err
	}

	players := make([]*models.Player, 0, len(playerIDs))
	for _, id := range playerIDs {
		player, err := s.playerRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		players = append(players, player)
	}
	return players, nil
}

func (s *teamService) DeactivateTeam(ctx context.Context, id int) error {
	return s.teamRepo.Deactivate(ctx, nil, id)
}
