package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"hunter-backend/internal/repository"
)

type TokenHandler struct {
	tokenRepo *repository.TokenRepository
}

func NewTokenHandler(tokenRepo *repository.TokenRepository) *TokenHandler {
	return &TokenHandler{
		tokenRepo: tokenRepo,
	}
}

type RegisterTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type TokenResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

func (h *TokenHandler) HandleRegisterToken(w http.ResponseWriter, r *http.Request) {
	var req RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.tokenRepo.RegisterToken(req.Token, req.Platform, time.Now()); err != nil {
		if errors.Is(err, repository.ErrInvalidToken) {
			writeError(w, http.StatusBadRequest, "Token is required")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		Success: true,
		Message: "Token registered",
		Count:   h.tokenRepo.GetTokenCount(),
	})
}

func (h *TokenHandler) HandleUnregisterToken(w http.ResponseWriter, r *http.Request) {
	var req RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "Token is required")
		return
	}

	msg := "Token unregistered"
	if !h.tokenRepo.UnregisterToken(req.Token) {
		msg = "Token was not registered"
	}
	writeJSON(w, http.StatusOK, TokenResponse{
		Success: true,
		Message: msg,
		Count:   h.tokenRepo.GetTokenCount(),
	})
}

func (h *TokenHandler) HandleGetTokenCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TokenResponse{
		Success: true,
		Message: "Token count",
		Count:   h.tokenRepo.GetTokenCount(),
	})
}
