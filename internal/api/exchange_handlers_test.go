package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookswapapp/bookswap-server/internal/domain"
	"github.com/bookswapapp/bookswap-server/internal/service"
)

// swapFixture holds two API users each owning one book.
type swapFixture struct {
	server  *Server
	cleanup func()

	alice *service.AuthResponse
	bob   *service.AuthResponse

	alicesBookID string
	bobsBookID   string
}

func setupSwapFixture(t *testing.T) *swapFixture {
	t.Helper()

	server, cleanup := setupTestServer(t)

	alice := registerTestUser(t, server, "alice")
	bob := registerTestUser(t, server, "bob")

	return &swapFixture{
		server:       server,
		cleanup:      cleanup,
		alice:        alice,
		bob:          bob,
		alicesBookID: createTestBook(t, server, alice.AccessToken, "Dune", "Frank Herbert", "Science Fiction"),
		bobsBookID:   createTestBook(t, server, bob.AccessToken, "Hyperion", "Dan Simmons", "Science Fiction"),
	}
}

// propose files Bob's request for Alice's book and returns the request ID.
func (f *swapFixture) propose(t *testing.T) string {
	t.Helper()

	rec := doRequest(t, f.server, http.MethodPost, "/api/v1/exchange-requests/", f.bob.AccessToken, map[string]string{
		"requested_book_id": f.alicesBookID,
		"offered_book_id":   f.bobsBookID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var req domain.ExchangeRequest
	decodeData(t, rec, &req)
	return req.ID
}

func TestProposeEndpoint(t *testing.T) {
	f := setupSwapFixture(t)
	defer f.cleanup()

	rec := doRequest(t, f.server, http.MethodPost, "/api/v1/exchange-requests/", f.bob.AccessToken, map[string]string{
		"requested_book_id": f.alicesBookID,
		"offered_book_id":   f.bobsBookID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var req domain.ExchangeRequest
	decodeData(t, rec, &req)
	assert.Equal(t, string(domain.ExchangePending), string(req.Status))
}

func TestProposeEndpoint_SelfExchange(t *testing.T) {
	f := setupSwapFixture(t)
	defer f.cleanup()

	rec := doRequest(t, f.server, http.MethodPost, "/api/v1/exchange-requests/", f.bob.AccessToken, map[string]string{
		"requested_book_id": f.bobsBookID,
		"offered_book_id":   f.bobsBookID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProposeEndpoint_NotOwnedOffer(t *testing.T) {
	f := setupSwapFixture(t)
	defer f.cleanup()

	rec := doRequest(t, f.server, http.MethodPost, "/api/v1/exchange-requests/", f.bob.AccessToken, map[string]string{
		"requested_book_id": f.bobsBookID,
		"offered_book_id":   f.alicesBookID,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProposeEndpoint_DuplicatePending(t *testing.T) {
	f := setupSwapFixture(t)
	defer f.cleanup()

	f.propose(t)

	rec := doRequest(t, f.server, http.MethodPost, "/api/v1/exchange-requests/", f.bob.AccessToken, map[string]string{
		"requested_book_id": f.alicesBookID,
		"offered_book_id":   f.bobsBookID,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAcceptEndpoint(t *testing.T) {
	f := setupSwapFixture(t)
	defer f.cleanup()

	reqID := f.propose(t)

	rec := doRequest(t, f.server, http.MethodPost, "/api/v1/exchange-requests/"+reqID+"/accept", f.alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var req domain.ExchangeRequest
	decodeData(t, rec, &req)
	assert.Equal(t, string(domain.ExchangeAccepted), string(req.Status))

	// Ownership swapped in both directions.
	var dune domain.Book
	getRec := doRequest(t, f.server, http.MethodGet, "/api/v1/books/"+f.alicesBookID, f.alice.AccessToken, nil)
	decodeData(t, getRec, &dune)
	assert.Equal(t, f.bob.User.ID, dune.OwnerID)

	var hyperion domain.Book
	getRec = doRequest(t, f.server, http.MethodGet, "/api/v1/books/"+f.bobsBookID, f.alice.AccessToken, nil)
	decodeData(t, getRec, &hyperion)
	assert.Equal(t, f.alice.User.ID, hyperion.OwnerID)
}

func TestAcceptEndpoint_SecondAcceptRejected(t *testing.T) {
	f := setupSwapFixture(t)
	defer f.cleanup()

	reqID := f.propose(t)

	rec := doRequest(t, f.server, http.MethodPost, "/api/v1/exchange-requests/"+reqID+"/accept", f.alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, f.server, http.MethodPost, "/api/v1/exchange-requests/"+reqID+"/accept", f.alice.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAcceptEndpoint_RequesterCannotAccept(t *testing.T) {
	f := setupSwapFixture(t)
	defer f.cleanup()

	reqID := f.propose(t)

	rec := doRequest(t, f.server, http.MethodPost, "/api/v1/exchange-requests/"+reqID+"/accept", f.bob.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAcceptEndpoint_NotFound(t *testing.T) {
	f := setupSwapFixture(t)
	defer f.cleanup()

	rec := doRequest(t, f.server, http.MethodPost, "/api/v1/exchange-requests/exchange-missing/accept", f.alice.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeclineEndpoint(t *testing.T) {
	f := setupSwapFixture(t)
	defer f.cleanup()

	reqID := f.propose(t)

	rec := doRequest(t, f.server, http.MethodPost, "/api/v1/exchange-requests/"+reqID+"/decline", f.alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var req domain.ExchangeRequest
	decodeData(t, rec, &req)
	assert.Equal(t, string(domain.ExchangeRejected), string(req.Status))

	// Ownership untouched.
	var dune domain.Book
	getRec := doRequest(t, f.server, http.MethodGet, "/api/v1/books/"+f.alicesBookID, f.alice.AccessToken, nil)
	decodeData(t, getRec, &dune)
	assert.Equal(t, f.alice.User.ID, dune.OwnerID)
}

func TestIncomingAndSentEndpoints(t *testing.T) {
	f := setupSwapFixture(t)
	defer f.cleanup()

	reqID := f.propose(t)

	// Alice sees it incoming, enriched with books and requester name.
	rec := doRequest(t, f.server, http.MethodGet, "/api/v1/exchange-requests/", f.alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var incoming []*service.ExchangeDetails
	decodeData(t, rec, &incoming)
	require.Len(t, incoming, 1)
	assert.Equal(t, reqID, incoming[0].ID)
	assert.Equal(t, "bob", incoming[0].RequesterUsername)
	require.NotNil(t, incoming[0].RequestedBook)
	assert.Equal(t, "Dune", incoming[0].RequestedBook.Title)

	// Bob sees it in sent.
	rec = doRequest(t, f.server, http.MethodGet, "/api/v1/exchange-requests/sent", f.bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var sent []*service.ExchangeDetails
	decodeData(t, rec, &sent)
	require.Len(t, sent, 1)
	assert.Equal(t, reqID, sent[0].ID)

	// And nothing the other way around.
	rec = doRequest(t, f.server, http.MethodGet, "/api/v1/exchange-requests/sent", f.alice.AccessToken, nil)
	var aliceSent []*service.ExchangeDetails
	decodeData(t, rec, &aliceSent)
	assert.Empty(t, aliceSent)
}
