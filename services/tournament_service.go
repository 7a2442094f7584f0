package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/quiz-tournament/live"
	"github.com/Dosada05/quiz-tournament/metrics"
	"github.com/Dosada05/quiz-tournament/models"
	"github.com/Dosada05/quiz-tournament/notify"
	"github.com/Dosada05/quiz-tournament/repositories"
)

const knockoutRoundKey = "knockout_round"

// GroupDraw is the result of a tournament start: the random group split and
// the generated round-robin fixtures.
type GroupDraw struct {
	GroupA  []*models.Team  `json:"group_a"`
	GroupB  []*models.Team  `json:"group_b"`
	Matches []*models.Match `json:"matches"`
}

type TournamentService interface {
	// StartTournament wipes any previous tournament, splits the active teams
	// into two random groups and generates round-robin fixtures per group.
	StartTournament(ctx context.Context) (*GroupDraw, error)
	// CheckAndAdvance inspects the current phase and advances the tournament
	// when its matches are exhausted. Concurrent callers advance at most once.
	CheckAndAdvance(ctx context.Context) error

	Phase(ctx context.Context) (models.Phase, error)
	Standings(ctx context.Context) (map[string][]*models.TeamStanding, error)
}

type tournamentService struct {
	db           DBTX
	teamRepo     repositories.TeamRepository
	matchRepo    repositories.MatchRepository
	standingRepo repositories.StandingRepository
	stateRepo    repositories.TournamentStateRepository

	notifier notify.Notifier
	hub      *live.Hub
	logger   *slog.Logger

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewTournamentService(
	db DBTX,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	standingRepo repositories.StandingRepository,
	stateRepo repositories.TournamentStateRepository,
	notifier notify.Notifier,
	hub *live.Hub,
	logger *slog.Logger,
	drawSeed int64,
) TournamentService {
	if drawSeed == 0 {
		drawSeed = time.Now().UnixNano()
	}
	return &tournamentService{
		db:           db,
		teamRepo:     teamRepo,
		matchRepo:    matchRepo,
		standingRepo: standingRepo,
		stateRepo:    stateRepo,
		notifier:     notifier,
		hub:          hub,
		logger:       logger,
		rnd:          rand.New(rand.NewSource(drawSeed)),
	}
}

func (s *tournamentService) StartTournament(ctx context.Context) (*GroupDraw, error) {
	teams, err := s.teamRepo.List(ctx, true)
	if err != nil {
		return nil, err
	}
	if len(teams) < 2 {
		return nil, ErrInsufficientTeams
	}

	shuffled := make([]*models.Team, len(teams))
	copy(shuffled, teams)
	s.rndMu.Lock()
	s.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	s.rndMu.Unlock()

	mid := (len(shuffled) + 1) / 2
	groupA, groupB := shuffled[:mid], shuffled[mid:]

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tournament start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.matchRepo.DeleteAll(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to clear previous matches: %w", err)
	}
	if err := s.standingRepo.DeleteAll(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to clear previous standings: %w", err)
	}
	if err := s.stateRepo.DeleteAll(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to clear previous tournament state: %w", err)
	}

	if err := s.standingRepo.BatchCreate(ctx, tx, teamIDs(groupA), models.GroupA); err != nil {
		return nil, err
	}
	if err := s.standingRepo.BatchCreate(ctx, tx, teamIDs(groupB), models.GroupB); err != nil {
		return nil, err
	}

	matches := make([]*models.Match, 0)
	for _, group := range []struct {
		name  string
		teams []*models.Team
	}{{models.GroupA, groupA}, {models.GroupB, groupB}} {
		groupName := group.name
		for _, pair := range roundRobin(teamIDs(group.teams)) {
			match := &models.Match{
				Phase:     models.PhaseGroup,
				Round:     models.RoundGroup,
				GroupName: &groupName,
				Team1ID:   pair[0],
				Team2ID:   pair[1],
				Status:    models.MatchStatusPending,
			}
			if err := s.matchRepo.Create(ctx, tx, match); err != nil {
				return nil, err
			}
			matches = append(matches, match)
		}
	}

	if err := s.stateRepo.SetPhase(ctx, tx, models.PhaseGroup); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit tournament start: %w", err)
	}
	metrics.PhaseAdvances.Inc()

	s.announceDraw(ctx, groupA, groupB, len(matches))
	if s.hub != nil {
		s.hub.BroadcastEvent(live.Event{Type: live.EventPhaseAdvanced, Payload: string(models.PhaseGroup)})
	}
	s.logger.Info("tournament started",
		slog.Int("teams", len(teams)),
		slog.Int("group_matches", len(matches)))

	return &GroupDraw{GroupA: groupA, GroupB: groupB, Matches: matches}, nil
}

func (s *tournamentService) CheckAndAdvance(ctx context.Context) error {
	phase, err := s.stateRepo.GetPhase(ctx, nil)
	if err != nil {
		return err
	}
	switch phase {
	case models.PhaseGroup:
		return s.advanceFromGroup(ctx)
	case models.PhaseKnockout:
		return s.advanceKnockout(ctx)
	default:
		return nil
	}
}

func (s *tournamentService) advanceFromGroup(ctx context.Context) error {
	unplayed, err := s.matchRepo.CountUnplayed(ctx, nil, models.PhaseGroup)
	if err != nil {
		return err
	}
	if unplayed > 0 {
		return nil
	}

	qualifiersA, err := s.qualifiers(ctx, models.GroupA)
	if err != nil {
		return err
	}
	qualifiersB, err := s.qualifiers(ctx, models.GroupB)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin knockout transition: %w", err)
	}
	defer tx.Rollback()

	advanced, err := s.stateRepo.CASPhase(ctx, tx, models.PhaseGroup, models.PhaseKnockout)
	if err != nil {
		return err
	}
	if !advanced {
		return nil
	}
	if err := s.stateRepo.SetValue(ctx, tx, knockoutRoundKey, string(models.RoundSemi)); err != nil {
		return err
	}

	// Cross-pairing: group winners meet the other group's runner-up.
	semis := [][2]*models.TeamStanding{
		{qualifiersA[0], qualifiersB[1]},
		{qualifiersB[0], qualifiersA[1]},
	}
	created := make([]*models.Match, 0, len(semis))
	for _, pair := range semis {
		match := &models.Match{
			Phase:   models.PhaseKnockout,
			Round:   models.RoundSemi,
			Team1ID: pair[0].TeamID,
			Team2ID: pair[1].TeamID,
			Status:  models.MatchStatusPending,
		}
		if err := s.matchRepo.Create(ctx, tx, match); err != nil {
			return err
		}
		created = append(created, match)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit knockout transition: %w", err)
	}
	metrics.PhaseAdvances.Inc()

	s.announceFixtures(ctx, "Group stage complete. Semifinals:", created)
	if s.hub != nil {
		s.hub.BroadcastEvent(live.Event{Type: live.EventPhaseAdvanced, Payload: string(models.PhaseKnockout)})
	}
	s.logger.Info("advanced to knockout stage", slog.Int("semifinals", len(created)))
	return nil
}

func (s *tournamentService) advanceKnockout(ctx context.Context) error {
	unplayed, err := s.matchRepo.CountUnplayed(ctx, nil, models.PhaseKnockout)
	if err != nil {
		return err
	}
	if unplayed > 0 {
		return nil
	}

	round, err := s.stateRepo.GetValue(ctx, nil, knockoutRoundKey)
	if err != nil {
		return err
	}
	switch models.Round(round) {
	case models.RoundSemi:
		return s.createFinal(ctx)
	case models.RoundFinal:
		return s.crownChampion(ctx)
	default:
		return nil
	}
}

func (s *tournamentService) createFinal(ctx context.Context) error {
	knockoutMatches, err := s.matchRepo.ListByPhase(ctx, models.PhaseKnockout)
	if err != nil {
		return err
	}
	winners := make([]int, 0, 2)
	for _, m := range knockoutMatches {
		if m.Round == models.RoundSemi && m.WinnerID != nil {
			winners = append(winners, *m.WinnerID)
		}
	}
	if len(winners) != 2 {
		// A concurrent finalization may not have recorded its winner yet;
		// the next advance will see the complete pair.
		s.logger.Warn("semifinal winners incomplete", slog.Int("winners", len(winners)))
		return nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin final creation: %w", err)
	}
	defer tx.Rollback()

	seeded, err := s.stateRepo.CASValue(ctx, tx, knockoutRoundKey, string(models.RoundSemi), string(models.RoundFinal))
	if err != nil {
		return err
	}
	if !seeded {
		return nil
	}

	final := &models.Match{
		Phase:   models.PhaseKnockout,
		Round:   models.RoundFinal,
		Team1ID: winners[0],
		Team2ID: winners[1],
		Status:  models.MatchStatusPending,
	}
	if err := s.matchRepo.Create(ctx, tx, final); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit final creation: %w", err)
	}

	s.announceFixtures(ctx, "Semifinals complete. The final:", []*models.Match{final})
	s.logger.Info("final created",
		slog.Int("team1_id", final.Team1ID), slog.Int("team2_id", final.Team2ID))
	return nil
}

func (s *tournamentService) crownChampion(ctx context.Context) error {
	knockoutMatches, err := s.matchRepo.ListByPhase(ctx, models.PhaseKnockout)
	if err != nil {
		return err
	}
	var champion *int
	for _, m := range knockoutMatches {
		if m.Round == models.RoundFinal && m.Played && m.WinnerID != nil {
			champion = m.WinnerID
		}
	}
	if champion == nil {
		return fmt.Errorf("final is played but has no winner")
	}

	finished, err := s.stateRepo.CASPhase(ctx, nil, models.PhaseKnockout, models.PhaseFinished)
	if err != nil {
		return err
	}
	if !finished {
		return nil
	}
	metrics.PhaseAdvances.Inc()

	name := s.teamName(ctx, *champion)
	if err := s.notifier.SendAdminNotice(ctx, fmt.Sprintf("Tournament over. Champion: %s!", name)); err != nil {
		s.logger.Warn("admin notice failed", slog.Any("error", err))
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(live.Event{Type: live.EventPhaseAdvanced, Payload: string(models.PhaseFinished)})
	}
	s.logger.Info("tournament finished", slog.Int("champion_team_id", *champion))
	return nil
}

// qualifiers returns the top two still-active teams of a group, notifying
// the admin channel when the group cannot fill a semifinal slot.
func (s *tournamentService) qualifiers(ctx context.Context, groupName string) ([]*models.TeamStanding, error) {
	standings, err := s.standingRepo.ListByGroup(ctx, groupName, true)
	if err != nil {
		return nil, err
	}
	if len(standings) < 2 {
		text := fmt.Sprintf("Cannot advance: group %s has only %d qualifying team(s).", groupName, len(standings))
		if err := s.notifier.SendAdminNotice(ctx, text); err != nil {
			s.logger.Warn("admin notice failed", slog.Any("error", err))
		}
		return nil, ErrGroupUnderfilled
	}
	return standings[:2], nil
}

func (s *tournamentService) Phase(ctx context.Context) (models.Phase, error) {
	return s.stateRepo.GetPhase(ctx, nil)
}

func (s *tournamentService) Standings(ctx context.Context) (map[string][]*models.TeamStanding, error) {
	result := make(map[string][]*models.TeamStanding, 2)
	for _, groupName := range []string{models.GroupA, models.GroupB} {
		standings, err := s.standingRepo.ListByGroup(ctx, groupName, false)
		if err != nil {
			return nil, err
		}
		for _, standing := range standings {
			if team, err := s.teamRepo.GetByID(ctx, standing.TeamID); err == nil {
				standing.Team = team
			}
		}
		result[groupName] = standings
	}
	return result, nil
}

func (s *tournamentService) announceDraw(ctx context.Context, groupA, groupB []*models.Team, matchCount int) {
	var b strings.Builder
	b.WriteString("Tournament started!\nGroup A: ")
	b.WriteString(joinTeamNames(groupA))
	b.WriteString("\nGroup B: ")
	b.WriteString(joinTeamNames(groupB))
	fmt.Fprintf(&b, "\n%d group matches scheduled.", matchCount)
	if err := s.notifier.SendAdminNotice(ctx, b.String()); err != nil {
		s.logger.Warn("admin notice failed", slog.Any("error", err))
	}
}

func (s *tournamentService) announceFixtures(ctx context.Context, header string, matches []*models.Match) {
	lines := make([]string, 0, len(matches)+1)
	lines = append(lines, header)
	for _, m := range matches {
		lines = append(lines, fmt.Sprintf("%s vs %s", s.teamName(ctx, m.Team1ID), s.teamName(ctx, m.Team2ID)))
	}
	if err := s.notifier.SendAdminNotice(ctx, strings.Join(lines, "\n")); err != nil {
		s.logger.Warn("admin notice failed", slog.Any("error", err))
	}
}

func (s *tournamentService) teamName(ctx context.Context, teamID int) string {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return fmt.Sprintf("team %d", teamID)
	}
	return team.Name
}

func teamIDs(teams []*models.Team) []int {
	ids := make([]int, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
	}
	return ids
}

func joinTeamNames(teams []*models.Team) string {
	names := make([]string, len(teams))
	for i, t := range teams {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

func roundRobin(ids []int) [][2]int {
	pairs := make([][2]int, 0, len(ids)*(len(ids)-1)/2)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			pairs = append(pairs, [2]int{ids[i], ids[j]})
		}
	}
	return pairs
}
