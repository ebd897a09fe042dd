// Package auth handles the client side of gateway authentication: logging
// in for a token pair and refreshing the access token before it expires.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"coursechat/internal/transport/wire"
)

// expiryMargin refreshes the access token a little before its actual
// expiry so in-flight requests never carry a token about to lapse.
const expiryMargin = 30 * time.Second

var ErrNotLoggedIn = errors.New("not logged in")

// Credentials are the login payload accepted by the gateway.
type Credentials struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

// Manager holds the current token pair and hands out a valid access token
// on demand, refreshing it transparently. It satisfies the TokenSource
// interfaces of the rest and ws packages.
type Manager struct {
	baseURL string
	http    *http.Client

	mu        sync.Mutex
	access    string
	refresh   string
	expiresAt time.Time
}

func NewManager(baseURL string) *Manager {
	return &Manager{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Login exchanges credentials for a token pair and stores it.
func (m *Manager) Login(ctx context.Context, creds Credentials) error {
	pair, err := m.postJSON(ctx, "/api/v1/auth/login", creds)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	m.setPair(pair)
	return nil
}

// Token returns the current access token, refreshing it first when it is
// expired or about to expire. Concurrent callers share one refresh.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.access == "" && m.refresh == "" {
		return "", ErrNotLoggedIn
	}
	if m.access != "" && time.Until(m.expiresAt) > expiryMargin {
		return m.access, nil
	}

	pair, err := m.postJSON(ctx, "/api/v1/auth/refresh", map[string]string{"refreshToken": m.refresh})
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	m.storePair(pair)
	return m.access, nil
}

func (m *Manager) setPair(pair wire.TokenPair) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storePair(pair)
}

// storePair requires m.mu to be held.
func (m *Manager) storePair(pair wire.TokenPair) {
	m.access = pair.AccessToken
	if pair.RefreshToken != "" {
		m.refresh = pair.RefreshToken
	}
	m.expiresAt = tokenExpiry(pair.AccessToken)
}

// tokenExpiry reads the exp claim without verifying the signature; the
// client only needs the timestamp, verification is the gateway's job.
func tokenExpiry(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func (m *Manager) postJSON(ctx context.Context, path string, payload any) (wire.TokenPair, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return wire.TokenPair{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return wire.TokenPair{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return wire.TokenPair{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr wire.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return wire.TokenPair{}, errors.New(apiErr.Error)
		}
		return wire.TokenPair{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var pair wire.TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return wire.TokenPair{}, fmt.Errorf("decode token pair: %w", err)
	}
	return pair, nil
}
