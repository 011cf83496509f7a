package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/bookswapapp/bookswap-server/internal/domain"
)

var (
	// ErrBookNotFound is returned when a book cannot be found by ID.
	ErrBookNotFound = errors.New("book not found")
	// ErrBookExists is returned when a book with the same ID already exists.
	ErrBookExists = errors.New("book already exists")
)

// ownerKey builds the owner index key for a book.
// The owner index is the derived owned-book set: Book.OwnerID is the source
// of truth and these keys are maintained alongside it in the same transaction.
func ownerKey(ownerID, bookID string) []byte {
	return []byte(bookByOwnerPrefix + ownerID + ":" + bookID)
}

// CreateBook persists a new book owned by book.OwnerID. Multiple copies of
// the same title and author may coexist in the catalog under different
// owners; the match engine collapses them at read time.
func (s *Store) CreateBook(_ context.Context, book *domain.Book) error {
	key := []byte(bookPrefix + book.ID)

	return s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("book %s: %w", book.ID, ErrBookExists)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check book exists: %w", err)
		}

		if err := txnSet(txn, key, book); err != nil {
			return fmt.Errorf("set book: %w", err)
		}
		return txn.Set(ownerKey(book.OwnerID, book.ID), []byte(book.ID))
	})
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(_ context.Context, id string) (*domain.Book, error) {
	var book domain.Book
	if err := s.get([]byte(bookPrefix+id), &book); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	return &book, nil
}

// ListBooks returns every book in the catalog, in key order.
func (s *Store) ListBooks(_ context.Context) ([]*domain.Book, error) {
	var books []*domain.Book

	err := s.db.View(func(txn *badger.Txn) error {
		return forEachBook(txn, func(book *domain.Book) error {
			books = append(books, book)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	return books, nil
}

// GetBooksByOwner returns the books currently owned by a user, derived from
// the owner index.
func (s *Store) GetBooksByOwner(_ context.Context, ownerID string) ([]*domain.Book, error) {
	prefix := []byte(bookByOwnerPrefix + ownerID + ":")
	var books []*domain.Book

	err := s.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, prefix, func(val []byte) error {
			var book domain.Book
			if err := txnGet(txn, []byte(bookPrefix+string(val)), &book); err != nil {
				return fmt.Errorf("load owned book %s: %w", string(val), err)
			}
			books = append(books, &book)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("books by owner: %w", err)
	}

	return books, nil
}

// UpdateBook rewrites a book's metadata. Ownership is never changed here;
// only the accept transaction moves books between owners.
func (s *Store) UpdateBook(_ context.Context, book *domain.Book) error {
	key := []byte(bookPrefix + book.ID)

	return s.update(func(txn *badger.Txn) error {
		var existing domain.Book
		if err := txnGet(txn, key, &existing); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrBookNotFound
			}
			return fmt.Errorf("load book: %w", err)
		}

		book.OwnerID = existing.OwnerID

		return txnSet(txn, key, book)
	})
}

// DeleteBook removes a book and, in the same transaction, rejects every
// pending exchange request that references it. A pending request whose
// requested or offered book no longer exists cannot be honored.
func (s *Store) DeleteBook(_ context.Context, id string) error {
	key := []byte(bookPrefix + id)

	return s.update(func(txn *badger.Txn) error {
		var book domain.Book
		if err := txnGet(txn, key, &book); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrBookNotFound
			}
			return fmt.Errorf("load book: %w", err)
		}

		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("delete book: %w", err)
		}
		if err := txn.Delete(ownerKey(book.OwnerID, id)); err != nil {
			return fmt.Errorf("delete owner index: %w", err)
		}

		// Cascade: invalidate pending requests that reference this book.
		return rejectPendingReferencing(txn, id, "")
	})
}

// forEachBook walks every book record inside an open transaction.
func forEachBook(txn *badger.Txn, fn func(*domain.Book) error) error {
	prefix := []byte(bookPrefix)
	idxPrefix := []byte(bookPrefix + "idx:")

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		// Skip index keys sharing the record prefix.
		if bytes.HasPrefix(item.Key(), idxPrefix) {
			continue
		}

		err := item.Value(func(val []byte) error {
			var book domain.Book
			if err := unmarshalValue(val, &book); err != nil {
				return fmt.Errorf("unmarshal book %s: %w", string(item.Key()), err)
			}
			return fn(&book)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
