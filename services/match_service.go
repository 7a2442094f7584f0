package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/quiz-tournament/content"
	"github.com/Dosada05/quiz-tournament/live"
	"github.com/Dosada05/quiz-tournament/metrics"
	"github.com/Dosada05/quiz-tournament/models"
	"github.com/Dosada05/quiz-tournament/notify"
	"github.com/Dosada05/quiz-tournament/repositories"
)

const notifyConcurrency = 8

// AnswerCommand is one player's attempt at one question of an active match.
type AnswerCommand struct {
	MatchID       int    `json:"match_id"`
	PlayerID      int    `json:"player_id"`
	QuestionIndex int    `json:"question_index"`
	Answer        string `json:"answer"`
}

func (c AnswerCommand) Validate() error {
	if c.MatchID <= 0 {
		return fmt.Errorf("%w: match_id must be positive", ErrValidationFailed)
	}
	if c.PlayerID <= 0 {
		return fmt.Errorf("%w: player_id must be positive", ErrValidationFailed)
	}
	if c.QuestionIndex < 0 {
		return fmt.Errorf("%w: question_index must not be negative", ErrValidationFailed)
	}
	if strings.TrimSpace(c.Answer) == "" {
		return fmt.Errorf("%w: answer must not be empty", ErrValidationFailed)
	}
	return nil
}

// AnswerResult reports back to the acting player: whether they scored, what
// the correct answer was, and how far the match has progressed.
type AnswerResult struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correct_answer"`
	AnsweredCount int    `json:"answered_count"`
	TotalCount    int    `json:"total_count"`
	Finalized     bool   `json:"finalized"`
}

// TournamentAdvancer is the hook the match engine fires after every
// finalization so the tournament can progress between phases.
type TournamentAdvancer interface {
	CheckAndAdvance(ctx context.Context) error
}

type MatchService interface {
	// StartMatch transitions a pending match to active, builds its question
	// batch and pushes the first question to every participant.
	StartMatch(ctx context.Context, matchID int) error
	// SubmitAnswer runs the full answer pipeline for one (player, question)
	// attempt, finalizing the match when the last question closes.
	SubmitAnswer(ctx context.Context, cmd AnswerCommand) (*AnswerResult, error)
	// FinalizeMatch settles an active match: scores, winner, standings, MVP.
	// Safe to call concurrently and repeatedly; at most one call settles.
	FinalizeMatch(ctx context.Context, matchID int) error

	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	ListMatches(ctx context.Context) ([]*models.Match, error)
	ListQuestions(ctx context.Context, matchID int) ([]*models.MatchQuestion, error)

	Schedule(ctx context.Context, matchID int, at time.Time) error
	Unschedule(ctx context.Context, matchID int) error
}

type matchService struct {
	db           DBTX
	matchRepo    repositories.MatchRepository
	questionRepo repositories.QuestionRepository
	answerRepo   repositories.AnswerRepository
	teamRepo     repositories.TeamRepository
	rosterRepo   repositories.RosterRepository
	standingRepo repositories.StandingRepository

	provider content.Provider
	notifier notify.Notifier
	hub      *live.Hub
	advancer TournamentAdvancer
	logger   *slog.Logger

	questionsPerMatch int

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewMatchService(
	db DBTX,
	matchRepo repositories.MatchRepository,
	questionRepo repositories.QuestionRepository,
	answerRepo repositories.AnswerRepository,
	teamRepo repositories.TeamRepository,
	rosterRepo repositories.RosterRepository,
	standingRepo repositories.StandingRepository,
	provider content.Provider,
	notifier notify.Notifier,
	hub *live.Hub,
	advancer TournamentAdvancer,
	logger *slog.Logger,
	questionsPerMatch int,
	tiebreakSeed int64,
) MatchService {
	if tiebreakSeed == 0 {
		tiebreakSeed = time.Now().UnixNano()
	}
	return &matchService{
		db:                db,
		matchRepo:         matchRepo,
		questionRepo:      questionRepo,
		answerRepo:        answerRepo,
		teamRepo:          teamRepo,
		rosterRepo:        rosterRepo,
		standingRepo:      standingRepo,
		provider:          provider,
		notifier:          notifier,
		hub:               hub,
		advancer:          advancer,
		logger:            logger,
		questionsPerMatch: questionsPerMatch,
		rnd:               rand.New(rand.NewSource(tiebreakSeed)),
	}
}

func (s *matchService) StartMatch(ctx context.Context, matchID int) error {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return err
	}

	started, err := s.matchRepo.MarkActive(ctx, matchID)
	if err != nil {
		return err
	}
	if !started {
		return ErrMatchNotStartable
	}

	roster1, err := s.rosterRepo.PlayerIDs(ctx, match.Team1ID)
	if err != nil {
		s.revert(ctx, matchID)
		return err
	}
	roster2, err := s.rosterRepo.PlayerIDs(ctx, match.Team2ID)
	if err != nil {
		s.revert(ctx, matchID)
		return err
	}
	if len(roster1) == 0 || len(roster2) == 0 {
		s.revert(ctx, matchID)
		return ErrEmptyRoster
	}

	boost := s.difficultyBoost(ctx, match)
	mix := content.MixForBoost(boost, s.questionsPerMatch)

	questions, err := s.provider.FetchQuestions(ctx, mix)
	if err != nil {
		s.logger.Warn("question fetch failed, falling back to padding",
			slog.Int("match_id", matchID), slog.Any("error", err))
		questions = nil
	}
	questions = content.Pad(questions, s.questionsPerMatch)
	if len(questions) == 0 {
		s.revert(ctx, matchID)
		return ErrContentUnavailable
	}

	if err := s.questionRepo.BatchInsert(ctx, nil, matchID, questions); err != nil {
		s.revert(ctx, matchID)
		return fmt.Errorf("failed to store question batch for match %d: %w", matchID, err)
	}

	name1 := s.teamLabel(ctx, match.Team1ID)
	name2 := s.teamLabel(ctx, match.Team2ID)
	startText := fmt.Sprintf("Match started: %s vs %s. Good luck!", name1, name2)
	questionText := formatQuestion(questions[0].Text, 0, len(questions))

	s.fanOut(ctx, append(append([]int{}, roster1...), roster2...), func(gctx context.Context, playerID int) {
		if err := s.notifier.SendMessage(gctx, playerID, startText, nil); err != nil {
			s.logger.Warn("match start notification failed",
				slog.Int("player_id", playerID), slog.Any("error", err))
			return
		}
		if err := s.notifier.SendMessage(gctx, playerID, questionText, questions[0].Options); err != nil {
			s.logger.Warn("first question delivery failed",
				slog.Int("player_id", playerID), slog.Any("error", err))
		}
	})

	if err := s.notifier.SendAdminNotice(ctx, startText); err != nil {
		s.logger.Warn("admin notice failed", slog.Any("error", err))
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(live.Event{Type: live.EventMatchStarted, Payload: map[string]interface{}{
			"match_id": matchID, "team1": name1, "team2": name2,
		}})
	}
	metrics.MatchesStarted.Inc()

	s.logger.Info("match started",
		slog.Int("match_id", matchID),
		slog.String("round", string(match.Round)),
		slog.Int("questions", len(questions)))
	return nil
}

func (s *matchService) SubmitAnswer(ctx context.Context, cmd AnswerCommand) (*AnswerResult, error) {
	if err := cmd.Validate(); err != nil {
		metrics.AnswersRejected.WithLabelValues("invalid").Inc()
		return nil, err
	}

	match, err := s.matchRepo.GetByID(ctx, cmd.MatchID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusActive {
		metrics.AnswersRejected.WithLabelValues("match_not_active").Inc()
		return nil, ErrMatchNotActive
	}

	question, err := s.questionRepo.Get(ctx, cmd.MatchID, cmd.QuestionIndex)
	if err != nil {
		return nil, err
	}
	if question.Answered {
		metrics.AnswersRejected.WithLabelValues("question_closed").Inc()
		return nil, ErrQuestionClosed
	}

	correct := cmd.Answer == question.CorrectAnswer

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin answer transaction: %w", err)
	}
	defer tx.Rollback()

	closed, err := s.questionRepo.Close(ctx, tx, cmd.MatchID, cmd.QuestionIndex, cmd.PlayerID)
	if err != nil {
		return nil, err
	}
	if !closed {
		metrics.AnswersRejected.WithLabelValues("question_closed").Inc()
		return nil, ErrQuestionClosed
	}

	answer := &models.PlayerAnswer{
		MatchID:       cmd.MatchID,
		PlayerID:      cmd.PlayerID,
		QuestionIndex: cmd.QuestionIndex,
		Answer:        cmd.Answer,
		IsCorrect:     correct,
		AnsweredAt:    time.Now().UTC(),
	}
	if err := s.answerRepo.Record(ctx, tx, answer); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit answer for match %d: %w", cmd.MatchID, err)
	}
	metrics.AnswersAccepted.Inc()

	result := &AnswerResult{Correct: correct, CorrectAnswer: question.CorrectAnswer}

	total, answered, err := s.questionRepo.Counts(ctx, nil, cmd.MatchID)
	if err != nil {
		s.logger.Error("question count after answer failed",
			slog.Int("match_id", cmd.MatchID), slog.Any("error", err))
		return result, nil
	}
	result.AnsweredCount = answered
	result.TotalCount = total

	if answered >= total {
		if err := s.FinalizeMatch(ctx, cmd.MatchID); err != nil {
			s.logger.Error("finalize after last answer failed",
				slog.Int("match_id", cmd.MatchID), slog.Any("error", err))
		} else {
			result.Finalized = true
		}
	}
	return result, nil
}

func (s *matchService) FinalizeMatch(ctx context.Context, matchID int) error {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return err
	}
	if match.Played || match.Status == models.MatchStatusFinished {
		return nil
	}

	roster1, err := s.rosterRepo.PlayerIDs(ctx, match.Team1ID)
	if err != nil {
		return err
	}
	roster2, err := s.rosterRepo.PlayerIDs(ctx, match.Team2ID)
	if err != nil {
		return err
	}

	correct1, err := s.answerRepo.CorrectCountForPlayers(ctx, nil, matchID, roster1)
	if err != nil {
		return err
	}
	correct2, err := s.answerRepo.CorrectCountForPlayers(ctx, nil, matchID, roster2)
	if err != nil {
		return err
	}
	scorers, err := s.answerRepo.TopScorers(ctx, nil, matchID)
	if err != nil {
		return err
	}

	var winnerID *int
	draw := false
	switch {
	case correct1 > correct2:
		winnerID = &match.Team1ID
	case correct2 > correct1:
		winnerID = &match.Team2ID
	default:
		if match.Phase == models.PhaseKnockout {
			// Knockout matches must produce a winner; draws are settled by a
			// seeded coin flip so reruns are reproducible.
			winnerID = s.tiebreakWinner(match)
		} else {
			draw = true
		}
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin finalize transaction: %w", err)
	}
	defer tx.Rollback()

	settled, err := s.matchRepo.FinishWithResult(ctx, tx, matchID, correct1, correct2, winnerID)
	if err != nil {
		return err
	}
	if !settled {
		// Another finalizer got here first.
		return nil
	}

	switch match.Phase {
	case models.PhaseGroup:
		if err := s.applyGroupOutcomes(ctx, tx, match, correct1, correct2, winnerID, draw); err != nil {
			return err
		}
	case models.PhaseKnockout:
		if err := s.applyKnockoutOutcomes(ctx, tx, match, correct1, correct2, winnerID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit finalize for match %d: %w", matchID, err)
	}
	metrics.MatchesFinished.Inc()

	s.announceResult(ctx, match, correct1, correct2, winnerID, draw, scorers)
	s.fanOut(ctx, append(append([]int{}, roster1...), roster2...), func(gctx context.Context, playerID int) {
		text := fmt.Sprintf("Match over! Final score %d - %d.", correct1, correct2)
		if err := s.notifier.SendMessage(gctx, playerID, text, nil); err != nil {
			s.logger.Warn("match end notification failed",
				slog.Int("player_id", playerID), slog.Any("error", err))
		}
	})

	if s.advancer != nil {
		if err := s.advancer.CheckAndAdvance(ctx); err != nil {
			s.logger.Error("tournament advancement failed",
				slog.Int("match_id", matchID), slog.Any("error", err))
		}
	}
	return nil
}

func (s *matchService) applyGroupOutcomes(ctx context.Context, tx repositories.SQLExecutor, match *models.Match, correct1, correct2 int, winnerID *int, draw bool) error {
	outcome1 := repositories.GroupOutcome{Correct: correct1}
	outcome2 := repositories.GroupOutcome{Correct: correct2}
	switch {
	case draw:
		outcome1.Draw, outcome1.Points = true, 1
		outcome2.Draw, outcome2.Points = true, 1
	case winnerID != nil && *winnerID == match.Team1ID:
		outcome1.Win, outcome1.Points = true, 3
		outcome2.Loss = true
	default:
		outcome2.Win, outcome2.Points = true, 3
		outcome1.Loss = true
	}

	if err := s.standingRepo.ApplyGroupOutcome(ctx, tx, match.Team1ID, outcome1); err != nil {
		return err
	}
	return s.standingRepo.ApplyGroupOutcome(ctx, tx, match.Team2ID, outcome2)
}

func (s *matchService) applyKnockoutOutcomes(ctx context.Context, tx repositories.SQLExecutor, match *models.Match, correct1, correct2 int, winnerID *int) error {
	if err := s.standingRepo.AddCorrect(ctx, tx, match.Team1ID, correct1); err != nil {
		return err
	}
	if err := s.standingRepo.AddCorrect(ctx, tx, match.Team2ID, correct2); err != nil {
		return err
	}

	loserID := match.Team1ID
	if winnerID != nil && *winnerID == match.Team1ID {
		loserID = match.Team2ID
	}
	if err := s.teamRepo.Deactivate(ctx, tx, loserID); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func (s *matchService) announceResult(ctx context.Context, match *models.Match, correct1, correct2 int, winnerID *int, draw bool, scorers []*models.PlayerScore) {
	name1 := s.teamLabel(ctx, match.Team1ID)
	name2 := s.teamLabel(ctx, match.Team2ID)

	var text string
	switch {
	case draw:
		text = fmt.Sprintf("Result: %s %d - %d %s. Draw.", name1, correct1, correct2, name2)
	case winnerID != nil && *winnerID == match.Team1ID:
		text = fmt.Sprintf("Result: %s %d - %d %s. %s win!", name1, correct1, correct2, name2, name1)
	default:
		text = fmt.Sprintf("Result: %s %d - %d %s. %s win!", name1, correct1, correct2, name2, name2)
	}
	if err := s.notifier.SendAdminNotice(ctx, text); err != nil {
		s.logger.Warn("admin notice failed", slog.Any("error", err))
	}

	if len(scorers) > 0 {
		mvp := scorers[0]
		mvpText := fmt.Sprintf("MVP: %s with %d correct answers.", mvp.FirstName, mvp.Correct)
		if err := s.notifier.SendAdminNotice(ctx, mvpText); err != nil {
			s.logger.Warn("admin notice failed", slog.Any("error", err))
		}
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(live.Event{Type: live.EventMatchFinished, Payload: map[string]interface{}{
			"match_id": match.ID, "team1": name1, "team2": name2,
			"score1": correct1, "score2": correct2,
		}})
		s.hub.BroadcastEvent(live.Event{Type: live.EventStandingsUpdated})
	}
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	s.attachTeams(ctx, []*models.Match{match})
	return match, nil
}

func (s *matchService) ListMatches(ctx context.Context) ([]*models.Match, error) {
	matches, err := s.matchRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	s.attachTeams(ctx, matches)
	return matches, nil
}

func (s *matchService) ListQuestions(ctx context.Context, matchID int) ([]*models.MatchQuestion, error) {
	if _, err := s.matchRepo.GetByID(ctx, matchID); err != nil {
		return nil, err
	}
	return s.questionRepo.ListByMatch(ctx, matchID)
}

func (s *matchService) Schedule(ctx context.Context, matchID int, at time.Time) error {
	if !at.After(time.Now()) {
		return ErrSchedulingInvalid
	}
	return s.matchRepo.SetSchedule(ctx, matchID, at.UTC())
}

func (s *matchService) Unschedule(ctx context.Context, matchID int) error {
	return s.matchRepo.ClearSchedule(ctx, matchID)
}

// difficultyBoost scales with both teams' historical accuracy: a team that
// averages more correct answers per played match gets a harder mix.
func (s *matchService) difficultyBoost(ctx context.Context, match *models.Match) float64 {
	rate := func(teamID int) float64 {
		standing, err := s.standingRepo.GetByTeam(ctx, nil, teamID)
		if err != nil || standing.Played == 0 {
			return 0
		}
		return float64(standing.CorrectAnswers) / float64(standing.Played)
	}
	avg := (rate(match.Team1ID) + rate(match.Team2ID)) / 2
	return 1 + avg/float64(s.questionsPerMatch)
}

func (s *matchService) tiebreakWinner(match *models.Match) *int {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	if s.rnd.Intn(2) == 0 {
		return &match.Team1ID
	}
	return &match.Team2ID
}

func (s *matchService) revert(ctx context.Context, matchID int) {
	if err := s.matchRepo.RevertToPending(ctx, matchID); err != nil {
		s.logger.Error("failed to revert match to pending",
			slog.Int("match_id", matchID), slog.Any("error", err))
	}
}

func (s *matchService) teamLabel(ctx context.Context, teamID int) string {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return fmt.Sprintf("team %d", teamID)
	}
	return team.Name
}

func (s *matchService) attachTeams(ctx context.Context, matches []*models.Match) {
	cache := make(map[int]*models.Team)
	lookup := func(id int) *models.Team {
		if team, ok := cache[id]; ok {
			return team
		}
		team, err := s.teamRepo.GetByID(ctx, id)
		if err != nil {
			cache[id] = nil
			return nil
		}
		cache[id] = team
		return team
	}
	for _, m := range matches {
		m.Team1 = lookup(m.Team1ID)
		m.Team2 = lookup(m.Team2ID)
	}
}

// fanOut delivers to every player concurrently, best-effort. Delivery
// failures are the callback's problem; fanOut never fails the caller.
func (s *matchService) fanOut(ctx context.Context, playerIDs []int, deliver func(ctx context.Context, playerID int)) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(notifyConcurrency)
	for _, playerID := range playerIDs {
		id := playerID
		g.Go(func() error {
			deliver(gctx, id)
			return nil
		})
	}
	_ = g.Wait()
}

func formatQuestion(text string, index, total int) string {
	return fmt.Sprintf("Question %d/%d\n%s", index+1, total, text)
}
