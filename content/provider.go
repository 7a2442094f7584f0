package content

import (
	"context"

	"github.com/Dosada05/quiz-tournament/models"
)

// Mix is the per-tier split of a question batch.
type Mix struct {
	Easy   int
	Medium int
	Hard   int
}

func (m Mix) Total() int {
	return m.Easy + m.Medium + m.Hard
}

// Provider fetches trivia questions from a content source. Implementations
// may under-deliver (partial or zero results); callers pad the shortfall
// with Pad so a match batch always has the configured size.
type Provider interface {
	FetchQuestions(ctx context.Context, mix Mix) ([]models.Question, error)
}

// MixForBoost maps the difficulty-boost scalar to a tier split. Higher
// historical accuracy means fewer easy and more hard questions. The base
// splits are defined over a 25-question batch and rescaled proportionally
// for other totals, with hard absorbing the rounding remainder.
func MixForBoost(boost float64, total int) Mix {
	var easy, medium, hard int
	switch {
	case boost > 1.5:
		easy, medium, hard = 5, 8, 12
	case boost > 1.0:
		easy, medium, hard = 7, 8, 10
	default:
		easy, medium, hard = 9, 8, 8
	}

	base := easy + medium + hard
	if total != base {
		scaledEasy := easy * total / base
		scaledMedium := medium * total / base
		easy = scaledEasy
		medium = scaledMedium
		hard = total - scaledEasy - scaledMedium
	}
	return Mix{Easy: easy, Medium: medium, Hard: hard}
}

// FallbackQuestion is the fixed item used to fill batch shortfalls when the
// remote source under-delivers.
func FallbackQuestion() models.Question {
	return models.Question{
		Text:       "What is the capital of France?",
		Correct:    "Paris",
		Options:    []string{"Paris", "London", "Berlin", "Madrid"},
		Difficulty: models.DifficultyEasy,
	}
}

// Pad returns a batch of exactly count questions, truncating an oversized
// input and filling a shortfall with FallbackQuestion.
func Pad(questions []models.Question, count int) []models.Question {
	if len(questions) >= count {
		return questions[:count]
	}
	padded := make([]models.Question, 0, count)
	padded = append(padded, questions...)
	for len(padded) < count {
		padded = append(padded, FallbackQuestion())
	}
	return padded
}
