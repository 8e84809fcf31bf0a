package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hunter-backend/internal/delivery/view"
	"hunter-backend/internal/domain"
	"hunter-backend/internal/repository"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func readMarket(t *testing.T, conn *websocket.Conn) view.Market {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m view.Market
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

func TestHandlerPushesLatestAndUpdates(t *testing.T) {
	hub := repository.NewSnapshotHub()
	hub.Publish(domain.Snapshot{Seq: 1, Symbols: []domain.SymbolState{
		{Symbol: "BTCUSDT", Bias: domain.BiasLong},
		{Symbol: "ETHUSDT", Bias: domain.BiasNeutral},
	}})

	srv := httptest.NewServer(NewHandler(hub, zap.NewNop()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?bias=long"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := readMarket(t, conn)
	if first.Seq != 1 || first.Count != 1 || first.Symbols[0].Symbol != "BTCUSDT" {
		t.Fatalf("first frame = %+v", first)
	}

	// wait for the handler to subscribe before publishing again
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	hub.Publish(domain.Snapshot{Seq: 2})

	if next := readMarket(t, conn); next.Seq != 2 || next.Count != 0 {
		t.Fatalf("second frame = %+v", next)
	}
}

func TestHandlerUnsubscribesOnClose(t *testing.T) {
	hub := repository.NewSnapshotHub()
	srv := httptest.NewServer(NewHandler(hub, zap.NewNop()))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for hub.Subscribers() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := hub.Subscribers(); n != 0 {
		t.Fatalf("subscribers after close = %d", n)
	}
}
