package repository

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var ErrInvalidToken = errors.New("invalid device token")

// DeviceToken is one FCM registration.
type DeviceToken struct {
	Token        string    `json:"token"`
	Platform     string    `json:"platform"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// TokenRepository keeps FCM device tokens in memory.
type TokenRepository struct {
	tokens map[string]DeviceToken
	mu     sync.RWMutex
}

func NewTokenRepository() *TokenRepository {
	return &TokenRepository{
		tokens: make(map[string]DeviceToken),
	}
}

// RegisterToken adds or refreshes a token. Unknown platforms are stored as "android".
func (r *TokenRepository) RegisterToken(token, platform string, at time.Time) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	platform = strings.ToLower(strings.TrimSpace(platform))
	if platform != "ios" && platform != "web" {
		platform = "android"
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = DeviceToken{Token: token, Platform: platform, RegisteredAt: at}
	return nil
}

// UnregisterToken removes a token and reports whether it was present.
func (r *TokenRepository) UnregisterToken(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[token]; !ok {
		return false
	}
	delete(r.tokens, token)
	return true
}

// GetAllTokens returns every registered token, oldest registration first.
func (r *TokenRepository) GetAllTokens() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]DeviceToken, 0, len(r.tokens))
	for _, t := range r.tokens {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].RegisteredAt.Before(all[j].RegisteredAt)
	})

	tokens := make([]string, len(all))
	for i, t := range all {
		tokens[i] = t.Token
	}
	return tokens
}

func (r *TokenRepository) GetTokenCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}
