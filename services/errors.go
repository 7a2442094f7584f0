package services

import "errors"

// Shared errors surfaced by the service layer and mapped to HTTP in handlers.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Match engine preconditions.
	ErrMatchNotStartable  = errors.New("match is not in a startable state")
	ErrEmptyRoster        = errors.New("a match cannot start with an empty roster on either side")
	ErrContentUnavailable = errors.New("no questions available for the match")
	ErrMatchNotActive     = errors.New("match is not active")
	ErrQuestionClosed     = errors.New("question has already been answered")

	// Tournament orchestration.
	ErrInsufficientTeams = errors.New("at least two active teams are required to start a tournament")
	ErrGroupUnderfilled  = errors.New("a group has fewer than two qualifying teams")
	ErrTournamentNotLive = errors.New("no tournament is currently running")

	// Validation and business rules.
	ErrValidationFailed  = errors.New("validation failed")
	ErrTeamNameRequired  = errors.New("team name is required")
	ErrTeamLimitReached  = errors.New("maximum number of active teams reached")
	ErrPlayerInTeam      = errors.New("player is already in a team")
	ErrPlayerNotInTeam   = errors.New("player is not in a team")
	ErrUnsupportedLang   = errors.New("unsupported language")
	ErrBackupsDisabled   = errors.New("backups are not configured")
	ErrSchedulingInvalid = errors.New("scheduled time must be in the future")

	// Authentication.
	ErrAuthInvalidCredentials = errors.New("invalid owner credentials")
)
