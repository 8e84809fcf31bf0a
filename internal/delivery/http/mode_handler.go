package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"hunter-backend/internal/domain"
)

// ModeService is the mode controller surface exposed over HTTP.
type ModeService interface {
	Mode() domain.Mode
	SetMode(ctx context.Context, mode domain.Mode) error
	Toggle(ctx context.Context) (domain.Mode, error)
}

type ModeHandler struct {
	modes ModeService
}

func NewModeHandler(modes ModeService) *ModeHandler {
	return &ModeHandler{modes: modes}
}

type ModeRequest struct {
	Mode string `json:"mode"`
}

type ModeResponse struct {
	Success bool        `json:"success"`
	Mode    domain.Mode `json:"mode"`
}

func (h *ModeHandler) HandleGetMode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ModeResponse{Success: true, Mode: h.modes.Mode()})
}

func (h *ModeHandler) HandleSetMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.modes.SetMode(r.Context(), domain.Mode(req.Mode))
	switch {
	case errors.Is(err, domain.ErrUnknownMode):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ModeResponse{Success: true, Mode: h.modes.Mode()})
}

func (h *ModeHandler) HandleToggleMode(w http.ResponseWriter, r *http.Request) {
	mode, err := h.modes.Toggle(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ModeResponse{Success: true, Mode: mode})
}
