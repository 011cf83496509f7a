package api

import (
	"bytes"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bookswapapp/bookswap-server/internal/auth"
	"github.com/bookswapapp/bookswap-server/internal/http/response"
	"github.com/bookswapapp/bookswap-server/internal/ratelimit"
	"github.com/bookswapapp/bookswap-server/internal/service"
	"github.com/bookswapapp/bookswap-server/internal/store"
)

func setupTestServer(t *testing.T) (server *Server, cleanup func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "bookswap-api-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := store.New(dbPath, logger)
	require.NoError(t, err)

	// Use a test key (32 bytes as hex = 64 hex chars).
	testKeyHex := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	tokenService, err := auth.NewTokenService(testKeyHex, 15*time.Minute)
	require.NoError(t, err)

	authService := service.NewAuthService(s, tokenService, logger)
	bookService := service.NewBookService(s, logger)
	exchangeService := service.NewExchangeService(s, logger)
	matchService := service.NewMatchService(s, logger, 17, 10, nil)

	// Generous limits so ordinary tests never trip the limiter.
	limiter := ratelimit.New(100, 100)

	server = NewServer(s, authService, bookService, exchangeService, matchService, limiter, logger)

	cleanup = func() {
		limiter.Stop()
		_ = s.Close()            //nolint:errcheck // Cleanup function
		_ = os.RemoveAll(tmpDir) //nolint:errcheck // Cleanup function
	}

	return server, cleanup
}

// doRequest executes an HTTP request against the server and records the result.
func doRequest(t *testing.T, server *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

// decodeData unmarshals the envelope's data field into dest.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()

	var envelope struct {
		Data    jsontext.Value `json:"data"`
		Error   string         `json:"error"`
		Success bool           `json:"success"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "expected success envelope, got error: %s", envelope.Error)
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

// registerTestUser registers a user through the API and returns the auth
// response with user and token.
func registerTestUser(t *testing.T, server *Server, username string) *service.AuthResponse {
	t.Helper()

	rec := doRequest(t, server, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"password": "testpassword123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp service.AuthResponse
	decodeData(t, rec, &resp)
	return &resp
}

// createTestBook lists a book through the API for the given token.
func createTestBook(t *testing.T, server *Server, token, title, author, genre string) string {
	t.Helper()

	rec := doRequest(t, server, http.MethodPost, "/api/v1/books/", token, map[string]string{
		"title":  title,
		"author": author,
		"genre":  genre,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var book struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &book)
	return book.ID
}

// errorEnvelope decodes the error message from a failed response.
func errorEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.Envelope {
	t.Helper()

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.False(t, envelope.Success)
	return envelope
}
