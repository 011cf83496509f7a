package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bookswapapp/bookswap-server/internal/auth"
	"github.com/bookswapapp/bookswap-server/internal/store"
)

// testKeyHex is a fixed PASETO key for tests.
func testKeyHex() string {
	return "0000000000000000000000000000000000000000000000000000000000000000"
}

// setupTestStore creates a temporary store for testing
func setupTestStore(t *testing.T) (*store.Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "bookswap-service-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")

	st, err := store.New(dbPath, nil)
	require.NoError(t, err)

	cleanup := func() {
		st.Close()
		os.RemoveAll(tmpDir)
	}

	return st, cleanup
}

// testLogger discards all output.
func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// setupAuthService wires an AuthService over a fresh store.
func setupAuthService(t *testing.T) (*AuthService, *store.Store, func()) {
	t.Helper()

	st, cleanup := setupTestStore(t)

	tokenService, err := auth.NewTokenService(testKeyHex(), 15*time.Minute)
	require.NoError(t, err)

	return NewAuthService(st, tokenService, testLogger()), st, cleanup
}

// registerUser creates an account through the auth service and returns the
// response containing the user and a valid token.
func registerUser(t *testing.T, svc *AuthService, username string) *AuthResponse {
	t.Helper()

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Username: username,
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)
	return resp
}
