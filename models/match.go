package models

import "time"

type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "pending"
	MatchStatusActive   MatchStatus = "active"
	MatchStatusFinished MatchStatus = "finished"
)

type Round string

const (
	RoundGroup Round = "group"
	RoundSemi  Round = "semi"
	RoundFinal Round = "final"
)

type Match struct {
	ID           int         `json:"id" db:"id"`
	Phase        Phase       `json:"phase" db:"phase"`
	Round        Round       `json:"round" db:"round"`
	GroupName    *string     `json:"group_name,omitempty" db:"group_name"`
	Team1ID      int         `json:"team1_id" db:"team1_id"`
	Team2ID      int         `json:"team2_id" db:"team2_id"`
	Score1       int         `json:"score1" db:"score1"`
	Score2       int         `json:"score2" db:"score2"`
	Played       bool        `json:"played" db:"played"`
	WinnerID     *int        `json:"winner_id,omitempty" db:"winner_id"`
	Status       MatchStatus `json:"status" db:"status"`
	ScheduledAt  *time.Time  `json:"scheduled_at,omitempty" db:"scheduled_at"`
	ReminderSent bool        `json:"reminder_sent" db:"reminder_sent"`

	// Optional linked data, populated by services for listings.
	Team1 *Team `json:"team1,omitempty" db:"-"`
	Team2 *Team `json:"team2,omitempty" db:"-"`
}

// MatchQuestion is one entry of a match's fixed question batch, keyed by
// (match_id, question_index). Once answered it stays answered: the first
// valid answer closes the index for every participant of both teams.
type MatchQuestion struct {
	MatchID       int        `json:"match_id" db:"match_id"`
	QuestionIndex int        `json:"question_index" db:"question_index"`
	QuestionText  string     `json:"question_text" db:"question_text"`
	CorrectAnswer string     `json:"correct_answer" db:"correct_answer"`
	Options       []string   `json:"options" db:"options"`
	Difficulty    Difficulty `json:"difficulty" db:"difficulty"`
	Answered      bool       `json:"answered" db:"answered"`
	AnsweredBy    *int       `json:"answered_by,omitempty" db:"answered_by"`
}

type PlayerAnswer struct {
	MatchID       int       `json:"match_id" db:"match_id"`
	PlayerID      int       `json:"player_id" db:"player_id"`
	QuestionIndex int       `json:"question_index" db:"question_index"`
	Answer        string    `json:"answer" db:"answer"`
	IsCorrect     bool      `json:"is_correct" db:"is_correct"`
	AnsweredAt    time.Time `json:"answered_at" db:"answered_at"`
}

// PlayerScore aggregates a player's correct answers within a single match,
// used for MVP selection. LastCorrectAt carries the timestamp of the
// player's latest correct answer so ties can be broken deterministically.
type PlayerScore struct {
	PlayerID      int       `json:"player_id"`
	FirstName     string    `json:"first_name"`
	Correct       int       `json:"correct"`
	LastCorrectAt time.Time `json:"last_correct_at"`
}
