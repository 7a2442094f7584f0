package models

type Phase string

const (
	PhaseNone     Phase = "none"
	PhaseGroup    Phase = "group"
	PhaseKnockout Phase = "knockout"
	PhaseFinished Phase = "finished"
)

const (
	GroupA = "A"
	GroupB = "B"
)

// TeamStanding is the per-(team, group) cumulative ledger row. It is written
// only by match finalization and wiped only by a full tournament reset.
type TeamStanding struct {
	TeamID         int    `json:"team_id" db:"team_id"`
	GroupName      string `json:"group_name" db:"group_name"`
	Played         int    `json:"played" db:"played"`
	Wins           int    `json:"wins" db:"wins"`
	Draws          int    `json:"draws" db:"draws"`
	Losses         int    `json:"losses" db:"losses"`
	Points         int    `json:"points" db:"points"`
	CorrectAnswers int    `json:"correct_answers" db:"correct_answers"`

	Team *Team `json:"team,omitempty" db:"-"`
}
