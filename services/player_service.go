package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Dosada05/quiz-tournament/models"
	"github.com/Dosada05/quiz-tournament/notify"
	"github.com/Dosada05/quiz-tournament/repositories"
)

// SupportedLangs are the interface languages players can pick.
var SupportedLangs = map[string]bool{"en": true, "ar": true}

const defaultLang = "en"

// PlayerProfile is the aggregate shown to a player: identity, current team
// and lifetime answer statistics.
type PlayerProfile struct {
	Player *models.Player            `json:"player"`
	Team   *models.Team              `json:"team,omitempty"`
	Stats  *repositories.PlayerStats `json:"stats"`
}

// BroadcastReport counts delivery outcomes of an admin broadcast.
type BroadcastReport struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

type PlayerService interface {
	// Register creates the player or refreshes their identity fields.
	Register(ctx context.Context, player *models.Player) error
	JoinTeam(ctx context.Context, playerID, teamID int) error
	LeaveTeam(ctx context.Context, playerID int) error
	Profile(ctx context.Context, playerID int) (*PlayerProfile, error)
	SetLang(ctx context.Context, playerID int, lang string) error
	// Broadcast sends text to every registered player, best-effort.
	Broadcast(ctx context.Context, text string) (*BroadcastReport, error)
}

type playerService struct {
	playerRepo repositories.PlayerRepository
	teamRepo   repositories.TeamRepository
	rosterRepo repositories.RosterRepository
	answerRepo repositories.AnswerRepository
	notifier   notify.Notifier
	logger     *slog.Logger
}

func NewPlayerService(
	playerRepo repositories.PlayerRepository,
	teamRepo repositories.TeamRepository,
	rosterRepo repositories.RosterRepository,
	answerRepo repositories.AnswerRepository,
	notifier notify.Notifier,
	logger *slog.Logger,
) PlayerService {
	return &playerService{
		playerRepo: playerRepo,
		teamRepo:   teamRepo,
		rosterRepo: rosterRepo,
		answerRepo: answerRepo,
		notifier:   notifier,
		logger:     logger,
	}
}

func (s *playerService) Register(ctx context.Context, player *models.Player) error {
	if player.ID <= 0 {
		return ErrValidationFailed
	}
	if player.FirstName == "" {
		player.FirstName = player.Username
	}
	if player.Lang == "" {
		player.Lang = defaultLang
	}
	return s.playerRepo.Upsert(ctx, player)
}

func (s *playerService) JoinTeam(ctx context.Context, playerID, teamID int) error {
	if _, err := s.playerRepo.GetByID(ctx, playerID); err != nil {
		return err
	}
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return err
	}
	if !team.Active {
		return repositories.ErrTeamNotFound
	}

	if err := s.rosterRepo.Join(ctx, playerID, teamID); err != nil {
		if errors.Is(err, repositories.ErrMembershipConflict) {
			return ErrPlayerInTeam
		}
		return err
	}
	return nil
}

func (s *playerService) LeaveTeam(ctx context.Context, playerID int) error {
	if err := s.rosterRepo.Leave(ctx, playerID); err != nil {
		if errors.Is(err, repositories.ErrMembershipNotFound) {
			return ErrPlayerNotInTeam
		}
		return err
	}
	return nil
}

func (s *playerService) Profile(ctx context.Context, playerID int) (*PlayerProfile, error) {
	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return nil, err
	}

	profile := &PlayerProfile{Player: player}

	teamID, err := s.rosterRepo.TeamOf(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if teamID != nil {
		if team, err := s.teamRepo.GetByID(ctx, *teamID); err == nil {
			profile.Team = team
		}
	}

	stats, err := s.answerRepo.StatsForPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	profile.Stats = stats
	return profile, nil
}

func (s *playerService) SetLang(ctx context.Context, playerID int, lang string) error {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if !SupportedLangs[lang] {
		return ErrUnsupportedLang
	}
	return s.playerRepo.SetLang(ctx, playerID, lang)
}

func (s *playerService) Broadcast(ctx context.Context, text string) (*BroadcastReport, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrValidationFailed
	}

	playerIDs, err := s.playerRepo.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	report := &BroadcastReport{}
	for _, playerID := range playerIDs {
		if err := s.notifier.SendMessage(ctx, playerID, text, nil); err != nil {
			report.Failed++
			s.logger.Warn("broadcast delivery failed",
				slog.Int("player_id", playerID), slog.Any("error", err))
			continue
		}
		report.Sent++
	}
	return report, nil
}
