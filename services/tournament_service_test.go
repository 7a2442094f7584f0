package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/quiz-tournament/models"
)

type tournamentHarness struct {
	store    *memStore
	notifier *recordingNotifier
	svc      TournamentService
}

func newTournamentHarness() *tournamentHarness {
	store := newMemStore()
	notifier := newRecordingNotifier()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewTournamentService(
		fakeDBTX{},
		&fakeTeamRepo{store: store},
		&fakeMatchRepo{store: store},
		&fakeStandingRepo{store: store},
		&fakeStateRepo{store: store},
		notifier,
		nil,
		logger,
		7,
	)
	return &tournamentHarness{store: store, notifier: notifier, svc: svc}
}

// seedQualifiedGroups puts four teams into a finished group stage with an
// unambiguous ranking: Falcons/Wolves in A, Ravens/Lions in B, first listed
// leading each group.
func (h *tournamentHarness) seedQualifiedGroups() (a1, a2, b1, b2 *models.Team) {
	a1 = h.store.addTeam("Falcons", true)
	a2 = h.store.addTeam("Wolves", true)
	b1 = h.store.addTeam("Ravens", true)
	b2 = h.store.addTeam("Lions", true)

	for team, setup := range map[*models.Team]struct {
		group  string
		points int
	}{
		a1: {models.GroupA, 6},
		a2: {models.GroupA, 3},
		b1: {models.GroupB, 6},
		b2: {models.GroupB, 3},
	} {
		standing := h.store.addStanding(team.ID, setup.group)
		h.store.mu.Lock()
		standing.Points = setup.points
		h.store.mu.Unlock()
	}

	h.store.mu.Lock()
	h.store.state["phase"] = string(models.PhaseGroup)
	h.store.mu.Unlock()
	return a1, a2, b1, b2
}

func TestStartTournamentSplitsGroupsAndFixtures(t *testing.T) {
	h := newTournamentHarness()
	for _, name := range []string{"Falcons", "Wolves", "Ravens", "Lions"} {
		h.store.addTeam(name, true)
	}

	draw, err := h.svc.StartTournament(context.Background())
	require.NoError(t, err)

	assert.Len(t, draw.GroupA, 2)
	assert.Len(t, draw.GroupB, 2)
	// Two teams per group means one round-robin fixture each.
	assert.Len(t, draw.Matches, 2)

	phase, err := h.svc.Phase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.PhaseGroup, phase)

	h.store.mu.Lock()
	standingCount := len(h.store.standings)
	h.store.mu.Unlock()
	assert.Equal(t, 4, standingCount)

	for _, match := range draw.Matches {
		assert.Equal(t, models.PhaseGroup, match.Phase)
		assert.Equal(t, models.MatchStatusPending, match.Status)
		assert.NotEqual(t, match.Team1ID, match.Team2ID)
	}
}

func TestStartTournamentOddSplitAndFullRoundRobin(t *testing.T) {
	h := newTournamentHarness()
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		h.store.addTeam(name, true)
	}

	draw, err := h.svc.StartTournament(context.Background())
	require.NoError(t, err)

	assert.Len(t, draw.GroupA, 3)
	assert.Len(t, draw.GroupB, 2)
	// 3 fixtures in the group of three, 1 in the group of two.
	assert.Len(t, draw.Matches, 4)
}

func TestStartTournamentRequiresTwoTeams(t *testing.T) {
	h := newTournamentHarness()
	h.store.addTeam("Loners", true)

	_, err := h.svc.StartTournament(context.Background())
	assert.ErrorIs(t, err, ErrInsufficientTeams)
}

func TestStartTournamentWipesPreviousState(t *testing.T) {
	h := newTournamentHarness()
	h.seedQualifiedGroups()
	h.store.addMatch(&models.Match{
		Phase: models.PhaseGroup, Round: models.RoundGroup,
		Team1ID: 1, Team2ID: 2, Played: true, Status: models.MatchStatusFinished,
	})

	draw, err := h.svc.StartTournament(context.Background())
	require.NoError(t, err)

	h.store.mu.Lock()
	matchCount := len(h.store.matches)
	h.store.mu.Unlock()
	// Only the fresh fixtures survive the reset.
	assert.Equal(t, len(draw.Matches), matchCount)

	for _, standing := range mustStandings(t, h) {
		assert.Zero(t, standing.Points)
		assert.Zero(t, standing.Played)
	}
}

func mustStandings(t *testing.T, h *tournamentHarness) []*models.TeamStanding {
	t.Helper()
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	standings := make([]*models.TeamStanding, 0, len(h.store.standings))
	for _, s := range h.store.standings {
		copied := *s
		standings = append(standings, &copied)
	}
	return standings
}

func TestAdvanceWaitsForGroupMatches(t *testing.T) {
	h := newTournamentHarness()
	h.seedQualifiedGroups()
	h.store.addMatch(&models.Match{
		Phase: models.PhaseGroup, Round: models.RoundGroup,
		Team1ID: 1, Team2ID: 2, Status: models.MatchStatusPending,
	})

	require.NoError(t, h.svc.CheckAndAdvance(context.Background()))

	phase, err := h.svc.Phase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.PhaseGroup, phase)
}

func TestAdvanceCreatesCrossPairedSemis(t *testing.T) {
	h := newTournamentHarness()
	a1, a2, b1, b2 := h.seedQualifiedGroups()

	require.NoError(t, h.svc.CheckAndAdvance(context.Background()))

	phase, err := h.svc.Phase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.PhaseKnockout, phase)

	h.store.mu.Lock()
	semis := make([]*models.Match, 0)
	for _, match := range h.store.matches {
		if match.Round == models.RoundSemi {
			semis = append(semis, match)
		}
	}
	h.store.mu.Unlock()
	require.Len(t, semis, 2)

	pairings := map[int]int{}
	for _, semi := range semis {
		pairings[semi.Team1ID] = semi.Team2ID
	}
	// Winners face the other group's runner-up.
	assert.Equal(t, b2.ID, pairings[a1.ID])
	assert.Equal(t, a2.ID, pairings[b1.ID])
}

func TestAdvanceConcurrentCreatesSemisOnce(t *testing.T) {
	h := newTournamentHarness()
	h.seedQualifiedGroups()

	const racers = 10
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.svc.CheckAndAdvance(context.Background()))
		}()
	}
	wg.Wait()

	h.store.mu.Lock()
	semiCount := 0
	for _, match := range h.store.matches {
		if match.Round == models.RoundSemi {
			semiCount++
		}
	}
	h.store.mu.Unlock()
	assert.Equal(t, 2, semiCount)
}

func TestAdvanceReportsUnderfilledGroup(t *testing.T) {
	h := newTournamentHarness()
	_, _, b1, b2 := h.seedQualifiedGroups()
	// Both teams of group B fell inactive; the group cannot qualify two.
	h.store.mu.Lock()
	h.store.teams[b1.ID].Active = false
	h.store.teams[b2.ID].Active = false
	h.store.mu.Unlock()

	err := h.svc.CheckAndAdvance(context.Background())
	assert.ErrorIs(t, err, ErrGroupUnderfilled)

	phase, perr := h.svc.Phase(context.Background())
	require.NoError(t, perr)
	assert.Equal(t, models.PhaseGroup, phase)

	var found bool
	for _, notice := range h.notifier.notices() {
		if strings.Contains(notice, "group B") {
			found = true
		}
	}
	assert.True(t, found, "admin channel should hear about the underfilled group")
}

func TestKnockoutProgressionToChampion(t *testing.T) {
	h := newTournamentHarness()
	a1, a2, b1, b2 := h.seedQualifiedGroups()

	require.NoError(t, h.svc.CheckAndAdvance(context.Background()))

	// Play out both semifinals: the group winners go through.
	h.store.mu.Lock()
	for _, match := range h.store.matches {
		if match.Round != models.RoundSemi {
			continue
		}
		winner := match.Team1ID
		loser := match.Team2ID
		if winner == a2.ID || winner == b2.ID {
			winner, loser = loser, winner
		}
		match.Played = true
		match.Status = models.MatchStatusFinished
		match.WinnerID = &winner
		h.store.teams[loser].Active = false
	}
	h.store.mu.Unlock()

	require.NoError(t, h.svc.CheckAndAdvance(context.Background()))

	h.store.mu.Lock()
	var final *models.Match
	for _, match := range h.store.matches {
		if match.Round == models.RoundFinal {
			copied := *match
			final = &copied
		}
	}
	h.store.mu.Unlock()
	require.NotNil(t, final, "final should be seeded from semifinal winners")
	assert.ElementsMatch(t, []int{a1.ID, b1.ID}, []int{final.Team1ID, final.Team2ID})
	assert.Equal(t, models.MatchStatusPending, final.Status)

	// A second advance while the final is unplayed changes nothing.
	require.NoError(t, h.svc.CheckAndAdvance(context.Background()))
	phase, err := h.svc.Phase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.PhaseKnockout, phase)

	// Play the final; Falcons take it.
	h.store.mu.Lock()
	finalStored := h.store.matches[final.ID]
	finalStored.Played = true
	finalStored.Status = models.MatchStatusFinished
	finalStored.WinnerID = &a1.ID
	h.store.mu.Unlock()

	require.NoError(t, h.svc.CheckAndAdvance(context.Background()))

	phase, err = h.svc.Phase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.PhaseFinished, phase)

	var champion bool
	for _, notice := range h.notifier.notices() {
		if strings.Contains(notice, "Champion") && strings.Contains(notice, "Falcons") {
			champion = true
		}
	}
	assert.True(t, champion, "champion announcement expected")
}
