// Package store provides BadgerDB-backed persistence for the BookSwap
// catalog and exchange ledger.
//
// All cross-record mutations (the accept swap, the delete cascade) run inside
// a single Badger transaction. Badger's SSI conflict detection makes two
// concurrent transactions that touch the same records fail the loser with
// badger.ErrConflict, which callers receive as ErrTxnConflict.
package store

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for the persisted layout.
//
//	user:<id>                                   user record
//	user:idx:username:<lower(username)>         username -> user id
//	book:<id>                                   book record
//	book:idx:owner:<ownerID>:<bookID>           owner index (derived owned set)
//	exchange:<id>                               exchange request record
//	exchange:idx:requester:<userID>:<reqID>     requester index
//	exchange:idx:pending:<req>:<wanted>:<given> duplicate-pending guard
const (
	userPrefix                = "user:"
	userByUsernamePrefix      = "user:idx:username:"
	bookPrefix                = "book:"
	bookByOwnerPrefix         = "book:idx:owner:"
	exchangePrefix            = "exchange:"
	exchangeByRequesterPrefix = "exchange:idx:requester:"
	exchangePendingPrefix     = "exchange:idx:pending:"
)

// ErrTxnConflict is returned when a transaction lost a race against a
// concurrent commit touching the same records. The caller's view is stale;
// re-read and decide again.
var ErrTxnConflict = errors.New("transaction conflict")

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// New creates a new Store instance with the given database path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
	}

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is usable. Used by the health endpoint.
func (s *Store) Ping() error {
	if s.db.IsClosed() {
		return errors.New("database is closed")
	}
	return s.db.View(func(_ *badger.Txn) error { return nil })
}

// get retrieves a value by key and unmarshals it into dest.
func (s *Store) get(key []byte, dest any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
}

// set stores a value by key.
func (s *Store) set(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// exists checks if a key exists.
func (s *Store) exists(key []byte) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// update runs fn inside a read-write transaction, translating Badger's
// conflict error into ErrTxnConflict.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	err := s.db.Update(fn)
	if errors.Is(err, badger.ErrConflict) {
		return ErrTxnConflict
	}
	return err
}

// txnGet loads and unmarshals a value inside an open transaction.
func txnGet(txn *badger.Txn, key []byte, dest any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

// txnSet marshals and stores a value inside an open transaction.
func txnSet(txn *badger.Txn, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return txn.Set(key, data)
}

// unmarshalValue decodes a raw stored value into dest.
func unmarshalValue(val []byte, dest any) error {
	return json.Unmarshal(val, dest)
}

// iteratePrefix walks every value under prefix inside an open transaction,
// invoking fn with each raw value. Iteration stops on the first error.
func iteratePrefix(txn *badger.Txn, prefix []byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}
