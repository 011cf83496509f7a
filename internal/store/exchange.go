package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/bookswapapp/bookswap-server/internal/domain"
)

var (
	// ErrExchangeNotFound is returned when an exchange request cannot be found by ID.
	ErrExchangeNotFound = errors.New("exchange request not found")
	// ErrDuplicateExchange is returned when an identical pending request already exists.
	ErrDuplicateExchange = errors.New("identical pending exchange request already exists")
	// ErrExchangeNotPending is returned when acting on a request that has already been settled.
	ErrExchangeNotPending = errors.New("exchange request is not pending")
	// ErrNotRequestedOwner is returned when the actor does not own the requested book.
	ErrNotRequestedOwner = errors.New("actor does not own the requested book")
	// ErrOwnRequest is returned when a requester tries to settle their own request.
	ErrOwnRequest = errors.New("cannot act on your own exchange request")
	// ErrOfferedNotOwned is returned when the requester does not own the offered book.
	ErrOfferedNotOwned = errors.New("requester does not own the offered book")
	// ErrSelfExchange is returned when the requester already owns the requested book.
	ErrSelfExchange = errors.New("cannot request a book you already own")
)

// pendingGuardKey builds the duplicate-pending guard key for a request
// triple. It exists exactly while a request with this triple is pending.
func pendingGuardKey(requesterID, requestedBookID, offeredBookID string) []byte {
	return []byte(exchangePendingPrefix + requesterID + ":" + requestedBookID + ":" + offeredBookID)
}

// requesterKey builds the requester index key for a request.
func requesterKey(requesterID, requestID string) []byte {
	return []byte(exchangeByRequesterPrefix + requesterID + ":" + requestID)
}

// CreateExchange persists a new pending exchange request.
//
// The transaction is authoritative for every creation invariant: both books
// exist, the requester owns the offered book but not the requested one, the
// two books differ, and no identical pending triple exists.
func (s *Store) CreateExchange(_ context.Context, req *domain.ExchangeRequest) error {
	key := []byte(exchangePrefix + req.ID)
	guard := pendingGuardKey(req.RequesterID, req.RequestedBookID, req.OfferedBookID)

	return s.update(func(txn *badger.Txn) error {
		var requested, offered domain.Book
		if err := txnGet(txn, []byte(bookPrefix+req.RequestedBookID), &requested); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("requested book: %w", ErrBookNotFound)
			}
			return fmt.Errorf("load requested book: %w", err)
		}
		if err := txnGet(txn, []byte(bookPrefix+req.OfferedBookID), &offered); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("offered book: %w", ErrBookNotFound)
			}
			return fmt.Errorf("load offered book: %w", err)
		}

		if offered.OwnerID != req.RequesterID {
			return ErrOfferedNotOwned
		}
		if requested.OwnerID == req.RequesterID {
			return ErrSelfExchange
		}

		if _, err := txn.Get(guard); err == nil {
			return ErrDuplicateExchange
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check pending guard: %w", err)
		}

		if err := txnSet(txn, key, req); err != nil {
			return fmt.Errorf("set exchange: %w", err)
		}
		if err := txn.Set(guard, []byte(req.ID)); err != nil {
			return fmt.Errorf("set pending guard: %w", err)
		}
		return txn.Set(requesterKey(req.RequesterID, req.ID), []byte(req.ID))
	})
}

// GetExchange retrieves an exchange request by ID.
func (s *Store) GetExchange(_ context.Context, id string) (*domain.ExchangeRequest, error) {
	var req domain.ExchangeRequest
	if err := s.get([]byte(exchangePrefix+id), &req); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrExchangeNotFound
		}
		return nil, fmt.Errorf("get exchange: %w", err)
	}

	return &req, nil
}

// ListExchangesByRequester returns a user's outgoing requests, newest first.
func (s *Store) ListExchangesByRequester(_ context.Context, requesterID string) ([]*domain.ExchangeRequest, error) {
	prefix := []byte(exchangeByRequesterPrefix + requesterID + ":")
	var requests []*domain.ExchangeRequest

	err := s.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, prefix, func(val []byte) error {
			var req domain.ExchangeRequest
			if err := txnGet(txn, []byte(exchangePrefix+string(val)), &req); err != nil {
				return fmt.Errorf("load exchange %s: %w", string(val), err)
			}
			requests = append(requests, &req)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("exchanges by requester: %w", err)
	}

	sortNewestFirst(requests)
	return requests, nil
}

// ListExchangesForOwner returns the requests whose requested book the user
// currently owns, newest first. Ownership is resolved at read time, so a
// request "follows" its book if the book changes hands.
func (s *Store) ListExchangesForOwner(_ context.Context, ownerID string) ([]*domain.ExchangeRequest, error) {
	var requests []*domain.ExchangeRequest

	err := s.db.View(func(txn *badger.Txn) error {
		return forEachExchange(txn, func(req *domain.ExchangeRequest) error {
			var requested domain.Book
			err := txnGet(txn, []byte(bookPrefix+req.RequestedBookID), &requested)
			if errors.Is(err, badger.ErrKeyNotFound) {
				// Requested book was deleted; nothing to show.
				return nil
			}
			if err != nil {
				return fmt.Errorf("load requested book: %w", err)
			}

			if requested.OwnerID == ownerID {
				requests = append(requests, req)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("exchanges for owner: %w", err)
	}

	sortNewestFirst(requests)
	return requests, nil
}

// AcceptExchange settles a pending request in a single transaction: both
// books swap owners, the request becomes accepted, and every other pending
// request touching either book is rejected.
//
// All preconditions are re-checked inside the transaction; the caller's
// earlier reads may be stale by the time this commits. A concurrent accept
// racing on a shared record surfaces as ErrTxnConflict.
func (s *Store) AcceptExchange(_ context.Context, requestID, actingUserID string) (*domain.ExchangeRequest, error) {
	var accepted *domain.ExchangeRequest

	err := s.update(func(txn *badger.Txn) error {
		req, requested, offered, err := loadActionableExchange(txn, requestID, actingUserID)
		if err != nil {
			return err
		}

		// Ownership swap: requester receives the requested book, the
		// accepting owner receives the offered book.
		if err := moveBook(txn, requested, req.RequesterID); err != nil {
			return fmt.Errorf("transfer requested book: %w", err)
		}
		if err := moveBook(txn, offered, actingUserID); err != nil {
			return fmt.Errorf("transfer offered book: %w", err)
		}

		if err := settleExchange(txn, req, domain.ExchangeAccepted); err != nil {
			return err
		}

		// Cascade: both books changed hands, so every other pending request
		// referencing either one can no longer be honored.
		if err := rejectPendingReferencing(txn, req.RequestedBookID, req.ID); err != nil {
			return err
		}
		if err := rejectPendingReferencing(txn, req.OfferedBookID, req.ID); err != nil {
			return err
		}

		accepted = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	return accepted, nil
}

// DeclineExchange rejects a pending request. Same preconditions as accept,
// no ownership effect.
func (s *Store) DeclineExchange(_ context.Context, requestID, actingUserID string) (*domain.ExchangeRequest, error) {
	var declined *domain.ExchangeRequest

	err := s.update(func(txn *badger.Txn) error {
		req, _, _, err := loadActionableExchange(txn, requestID, actingUserID)
		if err != nil {
			return err
		}

		if err := settleExchange(txn, req, domain.ExchangeRejected); err != nil {
			return err
		}

		declined = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	return declined, nil
}

// loadActionableExchange loads a request and its books and checks every
// settlement precondition: the request is pending, the actor owns the
// requested book, and the actor is not the requester.
func loadActionableExchange(txn *badger.Txn, requestID, actingUserID string) (*domain.ExchangeRequest, *domain.Book, *domain.Book, error) {
	var req domain.ExchangeRequest
	if err := txnGet(txn, []byte(exchangePrefix+requestID), &req); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil, nil, ErrExchangeNotFound
		}
		return nil, nil, nil, fmt.Errorf("load exchange: %w", err)
	}

	if req.RequesterID == actingUserID {
		return nil, nil, nil, ErrOwnRequest
	}
	if !req.IsPending() {
		return nil, nil, nil, ErrExchangeNotPending
	}

	var requested, offered domain.Book
	if err := txnGet(txn, []byte(bookPrefix+req.RequestedBookID), &requested); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil, nil, fmt.Errorf("requested book: %w", ErrBookNotFound)
		}
		return nil, nil, nil, fmt.Errorf("load requested book: %w", err)
	}
	if err := txnGet(txn, []byte(bookPrefix+req.OfferedBookID), &offered); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil, nil, fmt.Errorf("offered book: %w", ErrBookNotFound)
		}
		return nil, nil, nil, fmt.Errorf("load offered book: %w", err)
	}

	if requested.OwnerID != actingUserID {
		return nil, nil, nil, ErrNotRequestedOwner
	}

	return &req, &requested, &offered, nil
}

// moveBook reassigns a book to a new owner inside an open transaction,
// keeping the owner index in step with Book.OwnerID.
func moveBook(txn *badger.Txn, book *domain.Book, newOwnerID string) error {
	if err := txn.Delete(ownerKey(book.OwnerID, book.ID)); err != nil {
		return fmt.Errorf("delete owner index: %w", err)
	}

	book.OwnerID = newOwnerID
	book.Touch()

	if err := txnSet(txn, []byte(bookPrefix+book.ID), book); err != nil {
		return fmt.Errorf("set book: %w", err)
	}
	return txn.Set(ownerKey(newOwnerID, book.ID), []byte(book.ID))
}

// settleExchange moves a request out of pending, removing its duplicate
// guard so the same triple may be proposed again later.
func settleExchange(txn *badger.Txn, req *domain.ExchangeRequest, status domain.ExchangeStatus) error {
	req.Status = status
	req.Touch()

	if err := txnSet(txn, []byte(exchangePrefix+req.ID), req); err != nil {
		return fmt.Errorf("set exchange: %w", err)
	}
	return txn.Delete(pendingGuardKey(req.RequesterID, req.RequestedBookID, req.OfferedBookID))
}

// rejectPendingReferencing rejects every pending request referencing bookID,
// skipping exceptID. Used by the accept cascade and the book delete cascade.
func rejectPendingReferencing(txn *badger.Txn, bookID, exceptID string) error {
	var stale []*domain.ExchangeRequest

	err := forEachExchange(txn, func(req *domain.ExchangeRequest) error {
		if req.ID == exceptID || !req.IsPending() || !req.References(bookID) {
			return nil
		}
		stale = append(stale, req)
		return nil
	})
	if err != nil {
		return err
	}

	for _, req := range stale {
		if err := settleExchange(txn, req, domain.ExchangeRejected); err != nil {
			return fmt.Errorf("cascade reject %s: %w", req.ID, err)
		}
	}
	return nil
}

// forEachExchange walks every exchange record inside an open transaction.
func forEachExchange(txn *badger.Txn, fn func(*domain.ExchangeRequest) error) error {
	prefix := []byte(exchangePrefix)
	idxPrefix := []byte(exchangePrefix + "idx:")

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		if bytes.HasPrefix(item.Key(), idxPrefix) {
			continue
		}

		err := item.Value(func(val []byte) error {
			var req domain.ExchangeRequest
			if err := unmarshalValue(val, &req); err != nil {
				return fmt.Errorf("unmarshal exchange %s: %w", string(item.Key()), err)
			}
			return fn(&req)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// sortNewestFirst orders requests by creation time, newest first, with ID as
// a stable tiebreak.
func sortNewestFirst(requests []*domain.ExchangeRequest) {
	sort.SliceStable(requests, func(i, j int) bool {
		if requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].ID < requests[j].ID
		}
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
}
