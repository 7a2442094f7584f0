package content

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/Dosada05/quiz-tournament/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// OpenTDBProvider pulls multiple-choice questions from the Open Trivia
// Database API, one request per difficulty tier. Tier failures are logged
// and tolerated; the caller pads whatever came back.
type OpenTDBProvider struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewOpenTDBProvider(baseURL string, logger *slog.Logger) *OpenTDBProvider {
	return &OpenTDBProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		// opentdb throttles aggressively; one request per second is the
		// documented safe ceiling.
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
		logger:  logger,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type openTDBResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Question         string   `json:"question"`
		CorrectAnswer    string   `json:"correct_answer"`
		IncorrectAnswers []string `json:"incorrect_answers"`
		Difficulty       string   `json:"difficulty"`
	} `json:"results"`
}

func (p *OpenTDBProvider) FetchQuestions(ctx context.Context, mix Mix) ([]models.Question, error) {
	tiers := []struct {
		difficulty models.Difficulty
		count      int
	}{
		{models.DifficultyEasy, mix.Easy},
		{models.DifficultyMedium, mix.Medium},
		{models.DifficultyHard, mix.Hard},
	}

	batches := make([][]models.Question, len(tiers))
	g, gCtx := errgroup.WithContext(ctx)
	for i, tier := range tiers {
		i, tier := i, tier
		if tier.count <= 0 {
			continue
		}
		g.Go(func() error {
			questions, err := p.fetchTier(gCtx, tier.difficulty, tier.count)
			if err != nil {
				// Under-delivery is compensated by the caller; a dead
				// tier must not sink the whole batch.
				p.logger.Warn("trivia tier fetch failed",
					slog.String("difficulty", string(tier.difficulty)),
					slog.Any("error", err))
				return nil
			}
			batches[i] = questions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	questions := make([]models.Question, 0, mix.Total())
	for _, batch := range batches {
		questions = append(questions, batch...)
	}

	p.mu.Lock()
	p.rnd.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
	p.mu.Unlock()

	if len(questions) > mix.Total() {
		questions = questions[:mix.Total()]
	}
	return questions, nil
}

func (p *OpenTDBProvider) fetchTier(ctx context.Context, difficulty models.Difficulty, count int) ([]models.Question, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("amount", strconv.Itoa(count))
	params.Set("difficulty", string(difficulty))
	params.Set("type", "multiple")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build trivia request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trivia request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trivia API returned status %d", resp.StatusCode)
	}

	var decoded openTDBResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode trivia response: %w", err)
	}
	if decoded.ResponseCode != 0 {
		return nil, fmt.Errorf("trivia API returned response_code %d", decoded.ResponseCode)
	}

	questions := make([]models.Question, 0, len(decoded.Results))
	for _, item := range decoded.Results {
		options := make([]string, 0, len(item.IncorrectAnswers)+1)
		for _, wrong := range item.IncorrectAnswers {
			options = append(options, html.UnescapeString(wrong))
		}
		correct := html.UnescapeString(item.CorrectAnswer)
		options = append(options, correct)

		p.mu.Lock()
		p.rnd.Shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
		})
		p.mu.Unlock()

		questions = append(questions, models.Question{
			Text:       html.UnescapeString(item.Question),
			Correct:    correct,
			Options:    options,
			Difficulty: difficulty,
		})
	}
	return questions, nil
}
