package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/quiz-tournament/models"
	"github.com/Dosada05/quiz-tournament/repositories"
	"github.com/Dosada05/quiz-tournament/storage"
)

// backupSnapshot is the JSON document uploaded to object storage. It holds
// enough to reconstruct the tournament table without the per-answer detail.
type backupSnapshot struct {
	CreatedAt time.Time              `json:"created_at"`
	Phase     models.Phase           `json:"phase"`
	Teams     []*models.Team         `json:"teams"`
	Matches   []*models.Match        `json:"matches"`
	Standings []*models.TeamStanding `json:"standings"`
}

type BackupService interface {
	// Run snapshots the tournament state and uploads it as a JSON object.
	Run(ctx context.Context) (*storage.UploadResult, error)
}

type backupService struct {
	teamRepo     repositories.TeamRepository
	matchRepo    repositories.MatchRepository
	standingRepo repositories.StandingRepository
	stateRepo    repositories.TournamentStateRepository
	uploader     storage.FileUploader
	logger       *slog.Logger
}

func NewBackupService(
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	standingRepo repositories.StandingRepository,
	stateRepo repositories.TournamentStateRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) BackupService {
	return &backupService{
		teamRepo:     teamRepo,
		matchRepo:    matchRepo,
		standingRepo: standingRepo,
		stateRepo:    stateRepo,
		uploader:     uploader,
		logger:       logger,
	}
}

func (s *backupService) Run(ctx context.Context) (*storage.UploadResult, error) {
	if s.uploader == nil {
		return nil, ErrBackupsDisabled
	}

	snapshot := backupSnapshot{CreatedAt: time.Now().UTC()}

	var err error
	if snapshot.Phase, err = s.stateRepo.GetPhase(ctx, nil); err != nil {
		return nil, err
	}
	if snapshot.Teams, err = s.teamRepo.List(ctx, false); err != nil {
		return nil, err
	}
	if snapshot.Matches, err = s.matchRepo.List(ctx); err != nil {
		return nil, err
	}
	if snapshot.Standings, err = s.standingRepo.ListAll(ctx); err != nil {
		return nil, err
	}

	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup snapshot: %w", err)
	}

	key := fmt.Sprintf("backups/tournament_%s.json", snapshot.CreatedAt.Format("20060102_150405"))
	result, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	s.logger.Info("backup uploaded",
		slog.String("key", result.Key),
		slog.Int("bytes", len(payload)))
	return result, nil
}
