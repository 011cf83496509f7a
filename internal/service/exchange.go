package service

import (
	"context"
	"log/slog"

	"github.com/bookswapapp/bookswap-server/internal/domain"
	domainerrors "github.com/bookswapapp/bookswap-server/internal/errors"
	"github.com/bookswapapp/bookswap-server/internal/id"
	"github.com/bookswapapp/bookswap-server/internal/store"
)

// ExchangeService coordinates the exchange request lifecycle: proposal,
// acceptance with the atomic ownership swap and cascade, and decline.
type ExchangeService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewExchangeService creates a new exchange service.
func NewExchangeService(store *store.Store, logger *slog.Logger) *ExchangeService {
	return &ExchangeService{
		store:  store,
		logger: logger,
	}
}

// ProposeExchangeRequest contains the two sides of a proposed swap.
type ProposeExchangeRequest struct {
	RequestedBookID string `json:"requested_book_id" validate:"required"`
	OfferedBookID   string `json:"offered_book_id" validate:"required,nefield=RequestedBookID"`
}

// ExchangeDetails is an exchange request enriched with its books and the
// requester's username for display.
type ExchangeDetails struct {
	*domain.ExchangeRequest
	RequesterUsername string       `json:"requester_username,omitempty"`
	RequestedBook     *domain.Book `json:"requested_book,omitempty"`
	OfferedBook       *domain.Book `json:"offered_book,omitempty"`
}

// Propose creates a new pending exchange request from requesterID.
func (s *ExchangeService) Propose(ctx context.Context, requesterID string, req ProposeExchangeRequest) (*domain.ExchangeRequest, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	requestID, err := id.Generate("exchange")
	if err != nil {
		return nil, domainerrors.Internal("failed to generate request ID").WithCause(err)
	}

	exchange := &domain.ExchangeRequest{
		Timestamps:      domain.Timestamps{ID: requestID},
		RequesterID:     requesterID,
		RequestedBookID: req.RequestedBookID,
		OfferedBookID:   req.OfferedBookID,
		Status:          domain.ExchangePending,
	}
	exchange.InitTimestamps()

	if err := s.store.CreateExchange(ctx, exchange); err != nil {
		switch {
		case domainerrors.Is(err, store.ErrBookNotFound):
			return nil, domainerrors.NotFound("book not found")
		case domainerrors.Is(err, store.ErrOfferedNotOwned):
			return nil, domainerrors.Forbidden("you do not own the offered book")
		case domainerrors.Is(err, store.ErrSelfExchange):
			return nil, domainerrors.Validation("you already own the requested book")
		case domainerrors.Is(err, store.ErrDuplicateExchange):
			return nil, domainerrors.Conflict("an identical pending request already exists")
		case domainerrors.Is(err, store.ErrTxnConflict):
			return nil, domainerrors.Conflict("catalog changed concurrently, retry")
		}
		return nil, domainerrors.Internal("failed to create exchange request").WithCause(err)
	}

	s.logger.Info("exchange proposed",
		"request_id", exchange.ID,
		"requester_id", requesterID,
		"requested_book_id", req.RequestedBookID,
		"offered_book_id", req.OfferedBookID)

	return exchange, nil
}

// Accept settles a pending request: the two books swap owners, the request
// becomes accepted, and competing pending requests on either book are
// rejected. The whole effect commits atomically or not at all.
//
// Accept is not idempotent. Repeating it on a settled request fails with
// an invalid state error and has no ownership effect.
func (s *ExchangeService) Accept(ctx context.Context, requestID, actingUserID string) (*domain.ExchangeRequest, error) {
	accepted, err := s.store.AcceptExchange(ctx, requestID, actingUserID)
	if err != nil {
		return nil, mapSettleError(err, "accept")
	}

	s.logger.Info("exchange accepted",
		"request_id", accepted.ID,
		"requester_id", accepted.RequesterID,
		"owner_id", actingUserID)

	return accepted, nil
}

// Decline rejects a pending request with no ownership effect. Same
// preconditions as Accept.
func (s *ExchangeService) Decline(ctx context.Context, requestID, actingUserID string) (*domain.ExchangeRequest, error) {
	declined, err := s.store.DeclineExchange(ctx, requestID, actingUserID)
	if err != nil {
		return nil, mapSettleError(err, "decline")
	}

	s.logger.Info("exchange declined", "request_id", declined.ID, "owner_id", actingUserID)

	return declined, nil
}

// ListIncoming returns requests targeting books the user currently owns.
func (s *ExchangeService) ListIncoming(ctx context.Context, userID string) ([]*ExchangeDetails, error) {
	requests, err := s.store.ListExchangesForOwner(ctx, userID)
	if err != nil {
		return nil, domainerrors.Internal("failed to list incoming requests").WithCause(err)
	}
	return s.enrich(ctx, requests)
}

// ListSent returns the user's own outgoing requests.
func (s *ExchangeService) ListSent(ctx context.Context, userID string) ([]*ExchangeDetails, error) {
	requests, err := s.store.ListExchangesByRequester(ctx, userID)
	if err != nil {
		return nil, domainerrors.Internal("failed to list sent requests").WithCause(err)
	}
	return s.enrich(ctx, requests)
}

// mapSettleError translates store errors from accept/decline into domain
// errors per the transition rules.
func mapSettleError(err error, action string) error {
	switch {
	case domainerrors.Is(err, store.ErrExchangeNotFound):
		return domainerrors.NotFound("exchange request not found")
	case domainerrors.Is(err, store.ErrExchangeNotPending):
		return domainerrors.InvalidState("exchange request is no longer pending")
	case domainerrors.Is(err, store.ErrNotRequestedOwner):
		return domainerrors.Forbidden("only the owner of the requested book may " + action)
	case domainerrors.Is(err, store.ErrOwnRequest):
		return domainerrors.Forbidden("you cannot " + action + " your own request")
	case domainerrors.Is(err, store.ErrBookNotFound):
		return domainerrors.NotFound("a book in this request no longer exists")
	case domainerrors.Is(err, store.ErrTxnConflict):
		return domainerrors.Conflict("a concurrent exchange touched these books, retry")
	}
	return domainerrors.Internal("failed to " + action + " exchange request").WithCause(err)
}

// enrich loads the books and requester usernames for a list of requests.
// Books that have since been deleted are left nil rather than failing the
// whole listing.
func (s *ExchangeService) enrich(ctx context.Context, requests []*domain.ExchangeRequest) ([]*ExchangeDetails, error) {
	requesterIDs := make([]string, 0, len(requests))
	for _, req := range requests {
		requesterIDs = append(requesterIDs, req.RequesterID)
	}

	requesters, err := s.store.GetUsersByIDs(ctx, requesterIDs)
	if err != nil {
		return nil, domainerrors.Internal("failed to load requesters").WithCause(err)
	}

	details := make([]*ExchangeDetails, 0, len(requests))
	for _, req := range requests {
		d := &ExchangeDetails{ExchangeRequest: req}
		if requester, ok := requesters[req.RequesterID]; ok {
			d.RequesterUsername = requester.Username
		}
		if book, err := s.store.GetBook(ctx, req.RequestedBookID); err == nil {
			d.RequestedBook = book
		}
		if book, err := s.store.GetBook(ctx, req.OfferedBookID); err == nil {
			d.OfferedBook = book
		}
		details = append(details, d)
	}
	return details, nil
}
