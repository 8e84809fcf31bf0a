package http

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// Pusher sends one push notification to a set of device tokens.
type Pusher interface {
	IsEnabled() bool
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

// Tokens lists the registered device tokens.
type Tokens interface {
	GetAllTokens() []string
}

type TestHandler struct {
	push   Pusher
	tokens Tokens
}

func NewTestHandler(push Pusher, tokens Tokens) *TestHandler {
	return &TestHandler{push: push, tokens: tokens}
}

type TestNotificationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// SendTestNotification pushes a fixed message to every registered device.
func (h *TestHandler) SendTestNotification(w http.ResponseWriter, r *http.Request) {
	if h.push == nil || !h.push.IsEnabled() {
		writeJSON(w, http.StatusServiceUnavailable, TestNotificationResponse{Message: "FCM not configured"})
		return
	}

	tokens := h.tokens.GetAllTokens()
	if len(tokens) == 0 {
		writeJSON(w, http.StatusOK, TestNotificationResponse{Message: "No registered devices"})
		return
	}

	data := map[string]string{
		"type":      "test",
		"timestamp": strconv.FormatInt(time.Now().Unix(), 10),
	}
	err := h.push.SendMulticast(r.Context(), tokens, "Test notification",
		"Hunter notifications are working.", data)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, TestNotificationResponse{
			Message: "Failed to send notification: " + err.Error(),
			Count:   len(tokens),
		})
		return
	}

	writeJSON(w, http.StatusOK, TestNotificationResponse{
		Success: true,
		Message: "Test notification sent",
		Count:   len(tokens),
	})
}
