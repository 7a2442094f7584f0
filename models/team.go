package models

import "time"

type Team struct {
	ID     int    `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Active bool   `json:"active" db:"active"`
}

type Player struct {
	ID        int    `json:"id" db:"id"`
	Username  string `json:"username" db:"username"`
	FirstName string `json:"first_name" db:"first_name"`
	Lang      string `json:"lang" db:"lang"`
}

// Membership links a player to a team. A player belongs to at most one team
// at a time, which is why player_id is the primary key of the relation.
type Membership struct {
	PlayerID int       `json:"player_id" db:"player_id"`
	TeamID   int       `json:"team_id" db:"team_id"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}
