package models

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is a trivia item as delivered by the content provider, before it
// is bound to a match slot.
type Question struct {
	Text       string     `json:"text"`
	Correct    string     `json:"correct"`
	Options    []string   `json:"options"`
	Difficulty Difficulty `json:"difficulty"`
}
