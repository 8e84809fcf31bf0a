package http

import (
	"net/http"

	"hunter-backend/internal/domain"

	"go.uber.org/zap"
)

const defaultSignalLimit = 50

type SignalHandler struct {
	signals domain.SignalRepository
	log     *zap.Logger
}

func NewSignalHandler(signals domain.SignalRepository, log *zap.Logger) *SignalHandler {
	return &SignalHandler{signals: signals, log: log}
}

type SignalsResponse struct {
	Count   int                  `json:"count"`
	Signals []domain.SignalEvent `json:"signals"`
}

// HandleRecent lists the newest bias transitions, ?limit= (default 50).
func (h *SignalHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	events, err := h.signals.Recent(r.Context(), queryInt(r, "limit", defaultSignalLimit))
	if err != nil {
		h.log.Error("load signals", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load signals")
		return
	}
	writeJSON(w, http.StatusOK, SignalsResponse{Count: len(events), Signals: events})
}
