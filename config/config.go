package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime parameters of the application.
type Config struct {
	DatabaseURL  string
	ServerPort   int
	JWTSecretKey string
	// OwnerPassword authenticates the single administrative identity.
	OwnerPassword string

	TriviaAPIURL      string
	QuestionsPerMatch int
	SchedulerInterval time.Duration
	ReminderLead      time.Duration
	// MatchTiebreakSeed seeds the knockout draw tie-break. Zero means seed
	// from the clock.
	MatchTiebreakSeed int64

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load reads configuration from environment variables, optionally seeded
// from a .env file for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	ownerPassword := os.Getenv("OWNER_PASSWORD")
	if ownerPassword == "" {
		return nil, fmt.Errorf("OWNER_PASSWORD environment variable is not set")
	}

	port, err := intFromEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	questions, err := intFromEnv("QUESTIONS_PER_MATCH", 25)
	if err != nil {
		return nil, err
	}
	if questions <= 0 {
		return nil, fmt.Errorf("QUESTIONS_PER_MATCH must be positive, got %d", questions)
	}

	schedulerInterval, err := durationFromEnv("SCHEDULER_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	reminderLead, err := durationFromEnv("REMINDER_LEAD", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	var seed int64
	if seedStr := os.Getenv("MATCH_TIEBREAK_SEED"); seedStr != "" {
		seed, err = strconv.ParseInt(seedStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MATCH_TIEBREAK_SEED: %w", err)
		}
	}

	triviaURL := os.Getenv("TRIVIA_API_URL")
	if triviaURL == "" {
		triviaURL = "https://opentdb.com/api.php"
	}

	cfg := &Config{
		DatabaseURL:       dbURL,
		ServerPort:        port,
		JWTSecretKey:      jwtKey,
		OwnerPassword:     ownerPassword,
		TriviaAPIURL:      triviaURL,
		QuestionsPerMatch: questions,
		SchedulerInterval: schedulerInterval,
		ReminderLead:      reminderLead,
		MatchTiebreakSeed: seed,
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}

// BackupsEnabled reports whether all R2 credentials are present. Backups
// are optional; everything else runs without them.
func (c *Config) BackupsEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" &&
		c.R2SecretAccessKey != "" && c.R2BucketName != "" && c.R2PublicBaseURL != ""
}

func intFromEnv(name string, fallback int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}

func durationFromEnv(name string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(name)
	if s == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}
