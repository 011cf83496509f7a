package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookswapapp/bookswap-server/internal/domain"
	domainerrors "github.com/bookswapapp/bookswap-server/internal/errors"
)

// exchangeFixture bundles the services and two seeded users, each owning one
// book, for exchange tests.
type exchangeFixture struct {
	exchanges *ExchangeService
	books     *BookService
	auth      *AuthService

	alice *domain.User
	bob   *domain.User

	alicesBook *domain.Book
	bobsBook   *domain.Book

	cleanup func()
}

func setupExchangeFixture(t *testing.T) *exchangeFixture {
	t.Helper()

	authSvc, st, cleanup := setupAuthService(t)
	books := NewBookService(st, testLogger())
	exchanges := NewExchangeService(st, testLogger())

	alice := registerUser(t, authSvc, "alice").User
	bob := registerUser(t, authSvc, "bob").User

	return &exchangeFixture{
		exchanges:  exchanges,
		books:      books,
		auth:       authSvc,
		alice:      alice,
		bob:        bob,
		alicesBook: listBook(t, books, alice.ID, "Dune", "Frank Herbert", "Science Fiction"),
		bobsBook:   listBook(t, books, bob.ID, "Hyperion", "Dan Simmons", "Science Fiction"),
		cleanup:    cleanup,
	}
}

// propose creates a pending request from Bob for Alice's book.
func (f *exchangeFixture) propose(t *testing.T) *domain.ExchangeRequest {
	t.Helper()

	req, err := f.exchanges.Propose(context.Background(), f.bob.ID, ProposeExchangeRequest{
		RequestedBookID: f.alicesBook.ID,
		OfferedBookID:   f.bobsBook.ID,
	})
	require.NoError(t, err)
	return req
}

func TestPropose(t *testing.T) {
	f := setupExchangeFixture(t)
	defer f.cleanup()

	req := f.propose(t)
	assert.Equal(t, domain.ExchangePending, req.Status)
	assert.Equal(t, f.bob.ID, req.RequesterID)
}

func TestPropose_SameBookBothSides(t *testing.T) {
	f := setupExchangeFixture(t)
	defer f.cleanup()

	_, err := f.exchanges.Propose(context.Background(), f.bob.ID, ProposeExchangeRequest{
		RequestedBookID: f.bobsBook.ID,
		OfferedBookID:   f.bobsBook.ID,
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestPropose_OfferedNotOwned(t *testing.T) {
	f := setupExchangeFixture(t)
	defer f.cleanup()

	// Bob offers a book he does not own.
	_, err := f.exchanges.Propose(context.Background(), f.bob.ID, ProposeExchangeRequest{
		RequestedBookID: f.bobsBook.ID,
		OfferedBookID:   f.alicesBook.ID,
	})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestPropose_AlreadyOwnsRequested(t *testing.T) {
	f := setupExchangeFixture(t)
	defer f.cleanup()

	second := listBook(t, f.books, f.bob.ID, "Endymion", "Dan Simmons", "Science Fiction")

	_, err := f.exchanges.Propose(context.Background(), f.bob.ID, ProposeExchangeRequest{
		RequestedBookID: second.ID,
		OfferedBookID:   f.bobsBook.ID,
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestPropose_BookMissing(t *testing.T) {
	f := setupExchangeFixture(t)
	defer f.cleanup()

	_, err := f.exchanges.Propose(context.Background(), f.bob.ID, ProposeExchangeRequest{
		RequestedBookID: "book-missing",
		OfferedBookID:   f.bobsBook.ID,
	})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestPropose_DuplicatePending(t *testing.T) {
	f := setupExchangeFixture(t)
	defer f.cleanup()

	f.propose(t)

	_, err := f.exchanges.Propose(context.Background(), f.bob.ID, ProposeExchangeRequest{
		RequestedBookID: f.alicesBook.ID,
		OfferedBookID:   f.bobsBook.ID,
	})
	assert.ErrorIs(t, err, domainerrors.ErrConflict)
}

func TestAccept_SwapsOwnership(t *testing.T) {
	f := setupExchangeFixture(t)
	defer f.cleanup()

	ctx := context.Background()
	req := f.propose(t)

	accepted, err := f.exchanges.Accept(ctx, req.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExchangeAccepted, accepted.Status)

	dune, err := f.books.Get(ctx, f.alicesBook.ID)
	require.NoError(t, err)
	assert.Equal(t, f.bob.ID, dune.OwnerID)

	hyperion, err := f.books.Get(ctx, f.bobsBook.ID)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, hyperion.OwnerID)
}

func TestAccept_NotIdempotent(t *testing.T) {
	f := setupExchangeFixture(t)
	defer f.cleanup()

	ctx := context.Background()
	req := f.propose(t)

	_, err := f.exchanges.Accept(ctx, req.ID, f.alice.ID)
	require.NoError(t, err)

	_, err = f.exchanges.Accept(ctx, req.ID, f.alice.ID)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidState)

	// Ownership is unchanged from the first acceptance.
	dune, err := f.books.Get(ctx, f.alicesBook.ID)
	require.NoError(t, err)
	assert.Equal(t, f.bob.ID, dune.OwnerID)
}

func TestAccept_WrongActor(t *testing.T) {
	f := setupExchangeFixture(t)
	defer f.cleanup()

	req := f.propose(t)

	_, err := f.exchanges.Accept(context.Background(), req.ID, f.bob.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestAccept_NotFound(t *testing.T) {
	f := setupExchangeFixture(t)
	defer f.cleanup()

	_, err := f.exchanges.Accept(context.Background(), "exchange-missing", f.alice.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestAccept_ConcurrentRace(t *testing.T) {
	f := setupExchangeFixture(t)
	defer f.cleanup()

	ctx := context.Background()

	// Carol also wants Alice's book.
	carol := registerUser(t, f.auth, "carol").User
	carolsBook := listBook(t, f.books, carol.ID, "Foundation", "Isaac Asimov", "Science Fiction")

	reqBob := f.propose(t)
	reqCarol, err := f.exchanges.Propose(ctx, carol.ID, ProposeExchangeRequest{
		RequestedBookID: f.alicesBook.ID,
		OfferedBookID:   carolsBook.ID,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, id := range []string{reqBob.ID, reqCarol.ID} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = f.exchanges.Accept(ctx, id, f.alice.ID)
		}()
	}
	wg.Wait()

	var wins int
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		// The loser gets a conflict, a stale-state rejection, or a
		// forbidden if Alice no longer owns the book it targets.
		assert.True(t,
			domainerrors.Is(err, domainerrors.ErrConflict) ||
				domainerrors.Is(err, domainerrors.ErrInvalidState) ||
				domainerrors.Is(err, domainerrors.ErrForbidden),
			"unexpected loser error: %v", err)
	}
	assert.Equal(t, 1, wins, "exactly one accept must win")
}

func TestDecline(t *testing.T) {
	f := setupExchangeFixture(t)
	defer f.cleanup()

	ctx := context.Background()
	req := f.propose(t)

	declined, err := f.exchanges.Decline(ctx, req.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExchangeRejected, declined.Status)

	// No ownership effect.
	dune, err := f.books.Get(ctx, f.alicesBook.ID)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, dune.OwnerID)

	// Terminal: a second decline is rejected.
	_, err = f.exchanges.Decline(ctx, req.ID, f.alice.ID)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidState)
}

func TestListIncomingAndSent(t *testing.T) {
	f := setupExchangeFixture(t)
	defer f.cleanup()

	ctx := context.Background()
	req := f.propose(t)

	incoming, err := f.exchanges.ListIncoming(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, req.ID, incoming[0].ID)
	assert.Equal(t, "bob", incoming[0].RequesterUsername)
	require.NotNil(t, incoming[0].RequestedBook)
	assert.Equal(t, "Dune", incoming[0].RequestedBook.Title)
	require.NotNil(t, incoming[0].OfferedBook)
	assert.Equal(t, "Hyperion", incoming[0].OfferedBook.Title)

	sent, err := f.exchanges.ListSent(ctx, f.bob.ID)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, req.ID, sent[0].ID)

	// Alice sent nothing, Bob has nothing incoming.
	sent, err = f.exchanges.ListSent(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Empty(t, sent)

	incoming, err = f.exchanges.ListIncoming(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Empty(t, incoming)
}
