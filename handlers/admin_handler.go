package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/quiz-tournament/services"
)

type AdminHandler struct {
	playerService services.PlayerService
	backupService services.BackupService
}

func NewAdminHandler(playerService services.PlayerService, backupService services.BackupService) *AdminHandler {
	return &AdminHandler{playerService: playerService, backupService: backupService}
}

// Broadcast sends a message to every registered player.
func (h *AdminHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Text string `json:"text"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Text == "" {
		badRequestResponse(w, r, errors.New("text is required"))
		return
	}

	report, err := h.playerService.Broadcast(r.Context(), input.Text)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"report": report}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Backup snapshots the tournament state to object storage.
func (h *AdminHandler) Backup(w http.ResponseWriter, r *http.Request) {
	result, err := h.backupService.Run(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"backup": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
