package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursechat/internal/common"
	"coursechat/internal/transport/wire"
)

type tokenServer struct {
	issuer       *common.TokenIssuer
	refreshed    *common.TokenIssuer
	loginCalls   atomic.Int32
	refreshCalls atomic.Int32
	*httptest.Server
}

// newTokenServer issues access tokens with loginTTL at login; tokens handed
// out by the refresh endpoint always get a one-hour TTL.
func newTokenServer(t *testing.T, loginTTL time.Duration) *tokenServer {
	t.Helper()
	ts := &tokenServer{
		issuer:    common.NewTokenIssuer([]byte("test-secret"), loginTTL),
		refreshed: common.NewTokenIssuer([]byte("test-secret"), time.Hour),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		ts.loginCalls.Add(1)
		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "secret123" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(wire.ErrorResponse{Error: "invalid credentials"})
			return
		}
		ts.writePair(t, w, ts.issuer, creds.UserID)
	})
	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		ts.refreshCalls.Add(1)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["refreshToken"] == "" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(wire.ErrorResponse{Error: "missing refresh token"})
			return
		}
		ts.writePair(t, w, ts.refreshed, "u1")
	})

	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) writePair(t *testing.T, w http.ResponseWriter, issuer *common.TokenIssuer, userID string) {
	access, err := issuer.Issue(userID, "Alice", common.RoleStudent)
	require.NoError(t, err)
	json.NewEncoder(w).Encode(wire.TokenPair{AccessToken: access, RefreshToken: "refresh-" + userID})
}

func TestManagerLogin(t *testing.T) {
	srv := newTokenServer(t, time.Hour)
	mgr := NewManager(srv.URL)

	err := mgr.Login(context.Background(), Credentials{UserID: "u1", Password: "secret123"})
	require.NoError(t, err)

	token, err := mgr.Token(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, int32(1), srv.loginCalls.Load())
	assert.Equal(t, int32(0), srv.refreshCalls.Load(), "fresh token must not trigger a refresh")
}

func TestManagerLoginRejected(t *testing.T) {
	srv := newTokenServer(t, time.Hour)
	mgr := NewManager(srv.URL)

	err := mgr.Login(context.Background(), Credentials{UserID: "u1", Password: "wrong"})
	assert.ErrorContains(t, err, "invalid credentials")
}

func TestManagerTokenWithoutLogin(t *testing.T) {
	mgr := NewManager("http://unused")
	_, err := mgr.Token(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestManagerRefreshesExpiringToken(t *testing.T) {
	// TTL below the expiry margin, so the first Token call already refreshes.
	srv := newTokenServer(t, 5*time.Second)
	mgr := NewManager(srv.URL)

	require.NoError(t, mgr.Login(context.Background(), Credentials{UserID: "u1", Password: "secret123"}))

	token, err := mgr.Token(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, int32(1), srv.refreshCalls.Load())
}

func TestManagerConcurrentRefreshSingleFlight(t *testing.T) {
	srv := newTokenServer(t, 5*time.Second)
	mgr := NewManager(srv.URL)
	require.NoError(t, mgr.Login(context.Background(), Credentials{UserID: "u1", Password: "secret123"}))

	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := mgr.Token(context.Background())
			done <- err
		}()
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-done)
	}

	// The mutex serializes callers; only the first sees an expiring token.
	assert.Equal(t, int32(1), srv.refreshCalls.Load())
}
