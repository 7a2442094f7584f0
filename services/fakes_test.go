package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/quiz-tournament/content"
	"github.com/Dosada05/quiz-tournament/models"
	"github.com/Dosada05/quiz-tournament/notify"
	"github.com/Dosada05/quiz-tournament/repositories"
)

// memStore backs every fake repository with one mutex so the compare-and-set
// operations behave like their single-statement SQL counterparts.
type memStore struct {
	mu sync.Mutex

	teams      map[int]*models.Team
	nextTeamID int

	players     map[int]*models.Player
	memberships map[int]int
	joinOrder   []int

	matches     map[int]*models.Match
	nextMatchID int

	questions map[int]map[int]*models.MatchQuestion
	answers   map[string]*models.PlayerAnswer

	standings         map[int]*models.TeamStanding
	groupOutcomeCalls map[int]int

	state map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		teams:             make(map[int]*models.Team),
		players:           make(map[int]*models.Player),
		memberships:       make(map[int]int),
		matches:           make(map[int]*models.Match),
		questions:         make(map[int]map[int]*models.MatchQuestion),
		answers:           make(map[string]*models.PlayerAnswer),
		standings:         make(map[int]*models.TeamStanding),
		groupOutcomeCalls: make(map[int]int),
		state:             make(map[string]string),
	}
}

func answerKey(matchID, playerID, index int) string {
	return fmt.Sprintf("%d:%d:%d", matchID, playerID, index)
}

// Seeding helpers, called from test setup only.

func (s *memStore) addTeam(name string, active bool) *models.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTeamID++
	team := &models.Team{ID: s.nextTeamID, Name: name, Active: active}
	s.teams[team.ID] = team
	return team
}

func (s *memStore) addPlayer(id int, firstName string, teamID int) *models.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	player := &models.Player{ID: id, Username: firstName, FirstName: firstName, Lang: "en"}
	s.players[id] = player
	if teamID > 0 {
		s.memberships[id] = teamID
		s.joinOrder = append(s.joinOrder, id)
	}
	return player
}

func (s *memStore) addMatch(match *models.Match) *models.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMatchID++
	match.ID = s.nextMatchID
	s.matches[match.ID] = match
	return match
}

func (s *memStore) addQuestions(matchID int, questions []models.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := make(map[int]*models.MatchQuestion, len(questions))
	for idx, q := range questions {
		batch[idx] = &models.MatchQuestion{
			MatchID:       matchID,
			QuestionIndex: idx,
			QuestionText:  q.Text,
			CorrectAnswer: q.Correct,
			Options:       q.Options,
			Difficulty:    q.Difficulty,
		}
	}
	s.questions[matchID] = batch
}

func (s *memStore) addStanding(teamID int, groupName string) *models.TeamStanding {
	s.mu.Lock()
	defer s.mu.Unlock()
	standing := &models.TeamStanding{TeamID: teamID, GroupName: groupName}
	s.standings[teamID] = standing
	return standing
}

func (s *memStore) addAnswer(answer *models.PlayerAnswer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[answerKey(answer.MatchID, answer.PlayerID, answer.QuestionIndex)] = answer
}

func (s *memStore) matchByID(id int) models.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.matches[id]
}

// --- TeamRepository ---

type fakeTeamRepo struct{ store *memStore }

func (r *fakeTeamRepo) Create(ctx context.Context, team *models.Team) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.teams {
		if existing.Name == team.Name {
			return repositories.ErrTeamNameConflict
		}
	}
	r.store.nextTeamID++
	team.ID = r.store.nextTeamID
	copied := *team
	r.store.teams[team.ID] = &copied
	return nil
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	team, ok := r.store.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	copied := *team
	return &copied, nil
}

func (r *fakeTeamRepo) GetByName(ctx context.Context, name string) (*models.Team, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, team := range r.store.teams {
		if team.Name == name {
			copied := *team
			return &copied, nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (r *fakeTeamRepo) List(ctx context.Context, activeOnly bool) ([]*models.Team, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	teams := make([]*models.Team, 0, len(r.store.teams))
	for _, team := range r.store.teams {
		if activeOnly && !team.Active {
			continue
		}
		copied := *team
		teams = append(teams, &copied)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	return teams, nil
}

func (r *fakeTeamRepo) CountActive(ctx context.Context) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for _, team := range r.store.teams {
		if team.Active {
			count++
		}
	}
	return count, nil
}

func (r *fakeTeamRepo) Deactivate(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	team, ok := r.store.teams[id]
	if !ok || !team.Active {
		return repositories.ErrTeamNotFound
	}
	team.Active = false
	return nil
}

// --- PlayerRepository ---

type fakePlayerRepo struct{ store *memStore }

func (r *fakePlayerRepo) Upsert(ctx context.Context, player *models.Player) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if existing, ok := r.store.players[player.ID]; ok {
		existing.Username = player.Username
		existing.FirstName = player.FirstName
		player.Lang = existing.Lang
		return nil
	}
	copied := *player
	r.store.players[player.ID] = &copied
	return nil
}

func (r *fakePlayerRepo) GetByID(ctx context.Context, id int) (*models.Player, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	player, ok := r.store.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	copied := *player
	return &copied, nil
}

func (r *fakePlayerRepo) ListIDs(ctx context.Context) ([]int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ids := make([]int, 0, len(r.store.players))
	for id := range r.store.players {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (r *fakePlayerRepo) SetLang(ctx context.Context, id int, lang string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	player, ok := r.store.players[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	player.Lang = lang
	return nil
}

// --- RosterRepository ---

type fakeRosterRepo struct{ store *memStore }

func (r *fakeRosterRepo) Join(ctx context.Context, playerID, teamID int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.memberships[playerID]; ok {
		return repositories.ErrMembershipConflict
	}
	r.store.memberships[playerID] = teamID
	r.store.joinOrder = append(r.store.joinOrder, playerID)
	return nil
}

func (r *fakeRosterRepo) Leave(ctx context.Context, playerID int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.memberships[playerID]; !ok {
		return repositories.ErrMembershipNotFound
	}
	delete(r.store.memberships, playerID)
	return nil
}

func (r *fakeRosterRepo) TeamOf(ctx context.Context, playerID int) (*int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	teamID, ok := r.store.memberships[playerID]
	if !ok {
		return nil, nil
	}
	return &teamID, nil
}

func (r *fakeRosterRepo) PlayerIDs(ctx context.Context, teamID int) ([]int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ids := make([]int, 0)
	for _, playerID := range r.store.joinOrder {
		if r.store.memberships[playerID] == teamID {
			ids = append(ids, playerID)
		}
	}
	return ids, nil
}

// --- MatchRepository ---

type fakeMatchRepo struct{ store *memStore }

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.nextMatchID++
	match.ID = r.store.nextMatchID
	copied := *match
	r.store.matches[match.ID] = &copied
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *match
	return &copied, nil
}

func (r *fakeMatchRepo) List(ctx context.Context) ([]*models.Match, error) {
	return r.listWhere(func(m *models.Match) bool { return true }), nil
}

func (r *fakeMatchRepo) ListByPhase(ctx context.Context, phase models.Phase) ([]*models.Match, error) {
	return r.listWhere(func(m *models.Match) bool { return m.Phase == phase }), nil
}

func (r *fakeMatchRepo) listWhere(keep func(*models.Match) bool) []*models.Match {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	matches := make([]*models.Match, 0)
	for _, match := range r.store.matches {
		if keep(match) {
			copied := *match
			matches = append(matches, &copied)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches
}

func (r *fakeMatchRepo) CountUnplayed(ctx context.Context, exec repositories.SQLExecutor, phase models.Phase) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for _, match := range r.store.matches {
		if match.Phase == phase && !match.Played {
			count++
		}
	}
	return count, nil
}

func (r *fakeMatchRepo) MarkActive(ctx context.Context, id int) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[id]
	if !ok || match.Status != models.MatchStatusPending || match.Played {
		return false, nil
	}
	match.Status = models.MatchStatusActive
	return true, nil
}

func (r *fakeMatchRepo) RevertToPending(ctx context.Context, id int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[id]
	if !ok || match.Status != models.MatchStatusActive {
		return repositories.ErrMatchNotFound
	}
	match.Status = models.MatchStatusPending
	return nil
}

func (r *fakeMatchRepo) FinishWithResult(ctx context.Context, exec repositories.SQLExecutor, id, score1, score2 int, winnerID *int) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[id]
	if !ok || match.Status != models.MatchStatusActive {
		return false, nil
	}
	match.Status = models.MatchStatusFinished
	match.Played = true
	match.Score1 = score1
	match.Score2 = score2
	match.WinnerID = winnerID
	return true, nil
}

func (r *fakeMatchRepo) SetSchedule(ctx context.Context, id int, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[id]
	if !ok || match.Played {
		return repositories.ErrMatchNotFound
	}
	match.ScheduledAt = &at
	match.ReminderSent = false
	return nil
}

func (r *fakeMatchRepo) ClearSchedule(ctx context.Context, id int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.ScheduledAt = nil
	match.ReminderSent = false
	return nil
}

func (r *fakeMatchRepo) ListDue(ctx context.Context, now time.Time) ([]int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ids := make([]int, 0)
	for _, match := range r.store.matches {
		if match.Status == models.MatchStatusPending && !match.Played &&
			match.ScheduledAt != nil && !match.ScheduledAt.After(now) {
			ids = append(ids, match.ID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (r *fakeMatchRepo) ListDueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]*models.Match, error) {
	return r.listWhere(func(m *models.Match) bool {
		return m.Status == models.MatchStatusPending && !m.Played && !m.ReminderSent &&
			m.ScheduledAt != nil && m.ScheduledAt.After(now) && !m.ScheduledAt.After(now.Add(lead))
	}), nil
}

func (r *fakeMatchRepo) MarkReminderSent(ctx context.Context, id int) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[id]
	if !ok || match.ReminderSent {
		return false, nil
	}
	match.ReminderSent = true
	return true, nil
}

func (r *fakeMatchRepo) DeleteAll(ctx context.Context, exec repositories.SQLExecutor) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.matches = make(map[int]*models.Match)
	return nil
}

// --- QuestionRepository ---

type fakeQuestionRepo struct{ store *memStore }

func (r *fakeQuestionRepo) BatchInsert(ctx context.Context, exec repositories.SQLExecutor, matchID int, questions []models.Question) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	batch := make(map[int]*models.MatchQuestion, len(questions))
	for idx, q := range questions {
		batch[idx] = &models.MatchQuestion{
			MatchID:       matchID,
			QuestionIndex: idx,
			QuestionText:  q.Text,
			CorrectAnswer: q.Correct,
			Options:       q.Options,
			Difficulty:    q.Difficulty,
		}
	}
	r.store.questions[matchID] = batch
	return nil
}

func (r *fakeQuestionRepo) Get(ctx context.Context, matchID, index int) (*models.MatchQuestion, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	question, ok := r.store.questions[matchID][index]
	if !ok {
		return nil, repositories.ErrQuestionNotFound
	}
	copied := *question
	return &copied, nil
}

func (r *fakeQuestionRepo) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchQuestion, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	questions := make([]*models.MatchQuestion, 0, len(r.store.questions[matchID]))
	for _, question := range r.store.questions[matchID] {
		copied := *question
		questions = append(questions, &copied)
	}
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].QuestionIndex < questions[j].QuestionIndex
	})
	return questions, nil
}

func (r *fakeQuestionRepo) Close(ctx context.Context, exec repositories.SQLExecutor, matchID, index, playerID int) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	question, ok := r.store.questions[matchID][index]
	if !ok || question.Answered {
		return false, nil
	}
	question.Answered = true
	question.AnsweredBy = &playerID
	return true, nil
}

func (r *fakeQuestionRepo) Counts(ctx context.Context, exec repositories.SQLExecutor, matchID int) (int, int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	total, answered := 0, 0
	for _, question := range r.store.questions[matchID] {
		total++
		if question.Answered {
			answered++
		}
	}
	return total, answered, nil
}

// --- AnswerRepository ---

type fakeAnswerRepo struct{ store *memStore }

func (r *fakeAnswerRepo) Record(ctx context.Context, exec repositories.SQLExecutor, answer *models.PlayerAnswer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := answerKey(answer.MatchID, answer.PlayerID, answer.QuestionIndex)
	if _, ok := r.store.answers[key]; ok {
		return repositories.ErrAnswerConflict
	}
	copied := *answer
	r.store.answers[key] = &copied
	return nil
}

func (r *fakeAnswerRepo) CorrectCountForPlayers(ctx context.Context, exec repositories.SQLExecutor, matchID int, playerIDs []int) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	members := make(map[int]bool, len(playerIDs))
	for _, id := range playerIDs {
		members[id] = true
	}
	count := 0
	for _, answer := range r.store.answers {
		if answer.MatchID == matchID && answer.IsCorrect && members[answer.PlayerID] {
			count++
		}
	}
	return count, nil
}

func (r *fakeAnswerRepo) TopScorers(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]*models.PlayerScore, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	byPlayer := make(map[int]*models.PlayerScore)
	for _, answer := range r.store.answers {
		if answer.MatchID != matchID || !answer.IsCorrect {
			continue
		}
		score, ok := byPlayer[answer.PlayerID]
		if !ok {
			firstName := fmt.Sprintf("player %d", answer.PlayerID)
			if player, ok := r.store.players[answer.PlayerID]; ok {
				firstName = player.FirstName
			}
			score = &models.PlayerScore{PlayerID: answer.PlayerID, FirstName: firstName}
			byPlayer[answer.PlayerID] = score
		}
		score.Correct++
		if answer.AnsweredAt.After(score.LastCorrectAt) {
			score.LastCorrectAt = answer.AnsweredAt
		}
	}

	scores := make([]*models.PlayerScore, 0, len(byPlayer))
	for _, score := range byPlayer {
		scores = append(scores, score)
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Correct != scores[j].Correct {
			return scores[i].Correct > scores[j].Correct
		}
		if !scores[i].LastCorrectAt.Equal(scores[j].LastCorrectAt) {
			return scores[i].LastCorrectAt.Before(scores[j].LastCorrectAt)
		}
		return scores[i].PlayerID < scores[j].PlayerID
	})
	return scores, nil
}

func (r *fakeAnswerRepo) StatsForPlayer(ctx context.Context, playerID int) (*repositories.PlayerStats, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stats := &repositories.PlayerStats{}
	matches := make(map[int]bool)
	for _, answer := range r.store.answers {
		if answer.PlayerID != playerID {
			continue
		}
		matches[answer.MatchID] = true
		if answer.IsCorrect {
			stats.Correct++
		} else {
			stats.Wrong++
		}
	}
	stats.Matches = len(matches)
	return stats, nil
}

// --- StandingRepository ---

type fakeStandingRepo struct{ store *memStore }

func (r *fakeStandingRepo) BatchCreate(ctx context.Context, exec repositories.SQLExecutor, teamIDs []int, groupName string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, teamID := range teamIDs {
		r.store.standings[teamID] = &models.TeamStanding{TeamID: teamID, GroupName: groupName}
	}
	return nil
}

func (r *fakeStandingRepo) GetByTeam(ctx context.Context, exec repositories.SQLExecutor, teamID int) (*models.TeamStanding, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	standing, ok := r.store.standings[teamID]
	if !ok {
		return nil, repositories.ErrStandingNotFound
	}
	copied := *standing
	return &copied, nil
}

func (r *fakeStandingRepo) ApplyGroupOutcome(ctx context.Context, exec repositories.SQLExecutor, teamID int, outcome repositories.GroupOutcome) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	standing, ok := r.store.standings[teamID]
	if !ok {
		return repositories.ErrStandingNotFound
	}
	r.store.groupOutcomeCalls[teamID]++
	standing.Played++
	if outcome.Win {
		standing.Wins++
	}
	if outcome.Draw {
		standing.Draws++
	}
	if outcome.Loss {
		standing.Losses++
	}
	standing.Points += outcome.Points
	standing.CorrectAnswers += outcome.Correct
	return nil
}

func (r *fakeStandingRepo) AddCorrect(ctx context.Context, exec repositories.SQLExecutor, teamID, correct int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	standing, ok := r.store.standings[teamID]
	if !ok {
		return repositories.ErrStandingNotFound
	}
	standing.CorrectAnswers += correct
	return nil
}

func (r *fakeStandingRepo) ListByGroup(ctx context.Context, groupName string, activeOnly bool) ([]*models.TeamStanding, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	standings := make([]*models.TeamStanding, 0)
	for _, standing := range r.store.standings {
		if standing.GroupName != groupName {
			continue
		}
		if activeOnly {
			team, ok := r.store.teams[standing.TeamID]
			if !ok || !team.Active {
				continue
			}
		}
		copied := *standing
		standings = append(standings, &copied)
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Points != standings[j].Points {
			return standings[i].Points > standings[j].Points
		}
		if standings[i].CorrectAnswers != standings[j].CorrectAnswers {
			return standings[i].CorrectAnswers > standings[j].CorrectAnswers
		}
		return standings[i].TeamID < standings[j].TeamID
	})
	return standings, nil
}

func (r *fakeStandingRepo) ListAll(ctx context.Context) ([]*models.TeamStanding, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	standings := make([]*models.TeamStanding, 0, len(r.store.standings))
	for _, standing := range r.store.standings {
		copied := *standing
		standings = append(standings, &copied)
	}
	sort.Slice(standings, func(i, j int) bool { return standings[i].TeamID < standings[j].TeamID })
	return standings, nil
}

func (r *fakeStandingRepo) DeleteAll(ctx context.Context, exec repositories.SQLExecutor) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.standings = make(map[int]*models.TeamStanding)
	return nil
}

// --- TournamentStateRepository ---

type fakeStateRepo struct{ store *memStore }

func (r *fakeStateRepo) GetPhase(ctx context.Context, exec repositories.SQLExecutor) (models.Phase, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	value, ok := r.store.state["phase"]
	if !ok {
		return models.PhaseNone, nil
	}
	return models.Phase(value), nil
}

func (r *fakeStateRepo) SetPhase(ctx context.Context, exec repositories.SQLExecutor, phase models.Phase) error {
	return r.SetValue(ctx, exec, "phase", string(phase))
}

func (r *fakeStateRepo) CASPhase(ctx context.Context, exec repositories.SQLExecutor, from, to models.Phase) (bool, error) {
	return r.CASValue(ctx, exec, "phase", string(from), string(to))
}

func (r *fakeStateRepo) GetValue(ctx context.Context, exec repositories.SQLExecutor, key string) (string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.state[key], nil
}

func (r *fakeStateRepo) SetValue(ctx context.Context, exec repositories.SQLExecutor, key, value string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.state[key] = value
	return nil
}

func (r *fakeStateRepo) CASValue(ctx context.Context, exec repositories.SQLExecutor, key, from, to string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.state[key] != from {
		return false, nil
	}
	r.store.state[key] = to
	return true, nil
}

func (r *fakeStateRepo) DeleteAll(ctx context.Context, exec repositories.SQLExecutor) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.state = make(map[string]string)
	return nil
}

// --- DBTX ---

type fakeTx struct{}

func (fakeTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (fakeTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (fakeTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }

type fakeDBTX struct{}

func (fakeDBTX) BeginTx(ctx context.Context) (Tx, error) { return fakeTx{}, nil }

// --- content.Provider ---

type fakeProvider struct {
	err error
}

func (p *fakeProvider) FetchQuestions(ctx context.Context, mix content.Mix) ([]models.Question, error) {
	if p.err != nil {
		return nil, p.err
	}
	questions := make([]models.Question, 0, mix.Total())
	for i := 0; i < mix.Total(); i++ {
		questions = append(questions, models.Question{
			Text:       fmt.Sprintf("question %d", i),
			Correct:    fmt.Sprintf("answer %d", i),
			Options:    []string{fmt.Sprintf("answer %d", i), "wrong 1", "wrong 2", "wrong 3"},
			Difficulty: models.DifficultyEasy,
		})
	}
	return questions, nil
}

// --- notify.Notifier ---

// recordingNotifier captures outbound messages for assertions.
type recordingNotifier struct {
	mu           sync.Mutex
	messages     map[int][]string
	adminNotices []string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{messages: make(map[int][]string)}
}

func (n *recordingNotifier) SendMessage(ctx context.Context, playerID int, text string, choices []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages[playerID] = append(n.messages[playerID], text)
	return nil
}

func (n *recordingNotifier) SendAdminNotice(ctx context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.adminNotices = append(n.adminNotices, text)
	return nil
}

func (n *recordingNotifier) playerMessageCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, msgs := range n.messages {
		count += len(msgs)
	}
	return count
}

func (n *recordingNotifier) notices() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.adminNotices...)
}

var _ notify.Notifier = (*recordingNotifier)(nil)
