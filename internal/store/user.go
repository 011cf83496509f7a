package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/bookswapapp/bookswap-server/internal/domain"
)

var (
	// ErrUserNotFound is returned when a user cannot be found by ID or username.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when attempting to create a user with an existing ID.
	ErrUserExists = errors.New("user already exists")
	// ErrUsernameExists is returned when attempting to create a user with a username that's already taken.
	ErrUsernameExists = errors.New("username already taken")
)

// normalizeUsername lowercases and trims a username for index lookups.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// CreateUser creates a new user account.
func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	key := []byte(userPrefix + user.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check user exists: %w", err)
	}
	if exists {
		return ErrUserExists
	}

	usernameKey := []byte(userByUsernamePrefix + normalizeUsername(user.Username))

	return s.update(func(txn *badger.Txn) error {
		// Check if username is already taken
		_, err := txn.Get(usernameKey)
		if err == nil {
			return ErrUsernameExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check username exists: %w", err)
		}

		if err := txnSet(txn, key, user); err != nil {
			return fmt.Errorf("set user: %w", err)
		}

		return txn.Set(usernameKey, []byte(user.ID))
	})
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	key := []byte(userPrefix + id)

	var user domain.User
	if err := s.get(key, &user); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username, case-insensitively.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	usernameKey := []byte(userByUsernamePrefix + normalizeUsername(username))

	var userID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			userID = string(val)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup username: %w", err)
	}

	return s.GetUser(ctx, userID)
}

// GetUsersByIDs retrieves multiple users at once, keyed by ID.
// Missing users are silently skipped; callers use this for display
// annotation, not authorization.
func (s *Store) GetUsersByIDs(_ context.Context, ids []string) (map[string]*domain.User, error) {
	users := make(map[string]*domain.User, len(ids))

	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			if _, ok := users[id]; ok {
				continue
			}

			var user domain.User
			err := txnGet(txn, []byte(userPrefix+id), &user)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("get user %s: %w", id, err)
			}
			users[id] = &user
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return users, nil
}
