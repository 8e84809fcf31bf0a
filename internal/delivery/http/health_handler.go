package http

import (
	"net/http"
	"time"

	"hunter-backend/internal/domain"
)

type HealthHandler struct {
	stream    func() string
	snapshots domain.SnapshotRepository
	started   time.Time
}

// NewHealthHandler takes the stream state as a func so the handler does not
// depend on the stream client.
func NewHealthHandler(streamState func() string, snapshots domain.SnapshotRepository) *HealthHandler {
	return &HealthHandler{stream: streamState, snapshots: snapshots, started: time.Now()}
}

type HealthResponse struct {
	Status      string      `json:"status"`
	Stream      string      `json:"stream"`
	Mode        domain.Mode `json:"mode,omitempty"`
	Symbols     int         `json:"symbols"`
	SnapshotSeq uint64      `json:"snapshotSeq"`
	SnapshotAge string      `json:"snapshotAge,omitempty"`
	Uptime      string      `json:"uptime"`
}

// HandleHealth answers 200 while the stream is connected and 503 otherwise.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Latest()
	resp := HealthResponse{
		Status:      "ok",
		Stream:      h.stream(),
		Mode:        snap.Mode,
		Symbols:     len(snap.Symbols),
		SnapshotSeq: snap.Seq,
		Uptime:      time.Since(h.started).Round(time.Second).String(),
	}
	if !snap.TakenAt.IsZero() {
		resp.SnapshotAge = time.Since(snap.TakenAt).Round(time.Millisecond).String()
	}

	status := http.StatusOK
	if resp.Stream != "CONNECTED" {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
