package http

import (
	"net/http"
	"strings"

	"hunter-backend/internal/delivery/view"
	"hunter-backend/internal/domain"
)

type MarketHandler struct {
	snapshots domain.SnapshotRepository
}

func NewMarketHandler(snapshots domain.SnapshotRepository) *MarketHandler {
	return &MarketHandler{snapshots: snapshots}
}

// HandleMarket serves the latest snapshot. Query: bias, limit, klines=1.
func (h *MarketHandler) HandleMarket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := view.Filter{
		Limit:      queryInt(r, "limit", 0),
		WithKlines: q.Get("klines") == "1",
	}
	if b := strings.ToUpper(q.Get("bias")); b != "" {
		switch domain.Bias(b) {
		case domain.BiasLong, domain.BiasShort, domain.BiasBoth, domain.BiasNeutral:
			f.Bias = domain.Bias(b)
		default:
			writeError(w, http.StatusBadRequest, "unknown bias "+b)
			return
		}
	}

	writeJSON(w, http.StatusOK, view.FromSnapshot(h.snapshots.Latest(), f))
}

// HandleSymbol serves one symbol including its candle series.
func (h *MarketHandler) HandleSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	st, ok := h.snapshots.Latest().Find(symbol)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrSymbolNotFound.Error()+": "+symbol)
		return
	}
	writeJSON(w, http.StatusOK, view.FromState(st, r.URL.Query().Get("klines") != "0"))
}
