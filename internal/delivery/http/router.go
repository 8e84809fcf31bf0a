package http

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Handlers groups everything the router mounts. Nil handlers are skipped.
type Handlers struct {
	Market  *MarketHandler
	Mode    *ModeHandler
	Signals *SignalHandler
	Tokens  *TokenHandler
	Test    *TestHandler
	Health  *HealthHandler
	Metrics http.Handler
	Stream  http.Handler
}

// NewRouter mounts the API on a method-aware ServeMux.
func NewRouter(h Handlers, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	if h.Market != nil {
		mux.HandleFunc("GET /api/market", h.Market.HandleMarket)
		mux.HandleFunc("GET /api/market/{symbol}", h.Market.HandleSymbol)
	}
	if h.Mode != nil {
		mux.HandleFunc("GET /api/mode", h.Mode.HandleGetMode)
		mux.HandleFunc("POST /api/mode", h.Mode.HandleSetMode)
		mux.HandleFunc("POST /api/mode/toggle", h.Mode.HandleToggleMode)
	}
	if h.Signals != nil {
		mux.HandleFunc("GET /api/signals", h.Signals.HandleRecent)
	}
	if h.Tokens != nil {
		mux.HandleFunc("POST /api/tokens/register", h.Tokens.HandleRegisterToken)
		mux.HandleFunc("POST /api/tokens/unregister", h.Tokens.HandleUnregisterToken)
		mux.HandleFunc("GET /api/tokens/count", h.Tokens.HandleGetTokenCount)
	}
	if h.Test != nil {
		mux.HandleFunc("POST /api/test/notification", h.Test.SendTestNotification)
	}
	if h.Health != nil {
		mux.HandleFunc("GET /healthz", h.Health.HandleHealth)
	}
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}
	if h.Stream != nil {
		mux.Handle("/ws", h.Stream)
	}

	return withCORS(withAccessLog(mux, log))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the hijacker for /ws.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func withAccessLog(next http.Handler, log *zap.Logger) http.Handler {
	log = log.Named("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)))
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
