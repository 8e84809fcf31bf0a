package websocket

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"hunter-backend/internal/delivery/view"
	"hunter-backend/internal/domain"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	snapshots domain.SnapshotRepository
	log       *zap.Logger
}

func NewHandler(snapshots domain.SnapshotRepository, log *zap.Logger) *Handler {
	return &Handler{
		snapshots: snapshots,
		log:       log.Named("ws"),
	}
}

// filterFrom reads the same query parameters as GET /api/market.
func filterFrom(r *http.Request) view.Filter {
	q := r.URL.Query()
	f := view.Filter{
		Bias:       domain.Bias(strings.ToUpper(q.Get("bias"))),
		WithKlines: q.Get("klines") == "1",
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		f.Limit = n
	}
	return f
}

// ServeHTTP pushes every published snapshot to the client. A slow client
// only ever sees the newest one.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	f := filterFrom(r)
	updates, cancel := h.snapshots.Subscribe(1)
	defer cancel()

	h.log.Info("client connected", zap.String("remote", r.RemoteAddr))
	defer h.log.Info("client disconnected", zap.String("remote", r.RemoteAddr))

	closed := readPump(conn)

	if snap := h.snapshots.Latest(); snap.Seq > 0 {
		if err := h.write(conn, snap, f); err != nil {
			return
		}
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := h.write(conn, snap, f); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, snap domain.Snapshot, f view.Filter) error {
	payload, err := sonic.Marshal(view.FromSnapshot(snap, f))
	if err != nil {
		h.log.Error("encode snapshot", zap.Uint64("seq", snap.Seq), zap.Error(err))
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		h.log.Debug("write failed", zap.Error(err))
		return err
	}
	return nil
}

// readPump drains client frames so control messages are handled and
// closes the returned channel once the connection goes away.
func readPump(conn *websocket.Conn) <-chan struct{} {
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return closed
}
