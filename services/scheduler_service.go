package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/quiz-tournament/notify"
	"github.com/Dosada05/quiz-tournament/repositories"
)

// MatchStarter is the slice of the match engine the scheduler needs.
type MatchStarter interface {
	StartMatch(ctx context.Context, matchID int) error
}

type SchedulerService interface {
	// Tick runs one scheduler pass: pre-match reminders first, then every
	// match whose scheduled time has arrived. Returns the started match ids.
	Tick(ctx context.Context, now time.Time) ([]int, error)
}

type schedulerService struct {
	matchRepo  repositories.MatchRepository
	teamRepo   repositories.TeamRepository
	rosterRepo repositories.RosterRepository
	starter    MatchStarter
	notifier   notify.Notifier
	logger     *slog.Logger

	reminderLead time.Duration
}

func NewSchedulerService(
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	rosterRepo repositories.RosterRepository,
	starter MatchStarter,
	notifier notify.Notifier,
	logger *slog.Logger,
	reminderLead time.Duration,
) SchedulerService {
	return &schedulerService{
		matchRepo:    matchRepo,
		teamRepo:     teamRepo,
		rosterRepo:   rosterRepo,
		starter:      starter,
		notifier:     notifier,
		logger:       logger,
		reminderLead: reminderLead,
	}
}

func (s *schedulerService) Tick(ctx context.Context, now time.Time) ([]int, error) {
	s.fireReminders(ctx, now)
	return s.startDueMatches(ctx, now)
}

func (s *schedulerService) fireReminders(ctx context.Context, now time.Time) {
	upcoming, err := s.matchRepo.ListDueReminders(ctx, now, s.reminderLead)
	if err != nil {
		s.logger.Error("reminder query failed", slog.Any("error", err))
		return
	}

	for _, match := range upcoming {
		// The reminder-sent flag is a compare-and-set, so overlapping ticks
		// notify each roster at most once.
		sent, err := s.matchRepo.MarkReminderSent(ctx, match.ID)
		if err != nil {
			s.logger.Error("failed to mark reminder sent",
				slog.Int("match_id", match.ID), slog.Any("error", err))
			continue
		}
		if !sent {
			continue
		}

		name1 := s.teamName(ctx, match.Team1ID)
		name2 := s.teamName(ctx, match.Team2ID)
		minutes := int(match.ScheduledAt.Sub(now).Round(time.Minute).Minutes())
		if minutes < 1 {
			minutes = 1
		}
		text := fmt.Sprintf("Reminder: %s vs %s starts in about %d minutes.", name1, name2, minutes)

		for _, teamID := range []int{match.Team1ID, match.Team2ID} {
			playerIDs, err := s.rosterRepo.PlayerIDs(ctx, teamID)
			if err != nil {
				s.logger.Error("roster lookup for reminder failed",
					slog.Int("team_id", teamID), slog.Any("error", err))
				continue
			}
			for _, playerID := range playerIDs {
				if err := s.notifier.SendMessage(ctx, playerID, text, nil); err != nil {
					s.logger.Warn("reminder delivery failed",
						slog.Int("player_id", playerID), slog.Any("error", err))
				}
			}
		}
		s.logger.Info("reminder sent", slog.Int("match_id", match.ID))
	}
}

func (s *schedulerService) startDueMatches(ctx context.Context, now time.Time) ([]int, error) {
	due, err := s.matchRepo.ListDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due matches: %w", err)
	}

	started := make([]int, 0, len(due))
	for _, matchID := range due {
		err := s.starter.StartMatch(ctx, matchID)
		switch {
		case err == nil:
			started = append(started, matchID)
		case errors.Is(err, ErrMatchNotStartable):
			// Someone else (another tick, a manual start) beat us to it.
		case errors.Is(err, ErrEmptyRoster), errors.Is(err, ErrContentUnavailable):
			// The match stays pending; the next tick retries.
			s.logger.Warn("scheduled match could not start",
				slog.Int("match_id", matchID), slog.Any("error", err))
		default:
			s.logger.Error("scheduled match start failed",
				slog.Int("match_id", matchID), slog.Any("error", err))
		}
	}
	return started, nil
}

func (s *schedulerService) teamName(ctx context.Context, teamID int) string {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return fmt.Sprintf("team %d", teamID)
	}
	return team.Name
}
