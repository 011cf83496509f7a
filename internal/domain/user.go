// Package domain contains the core business entities for the BookSwap catalog
// and exchange workflow.
package domain

// User represents a registered book owner.
//
// A user's owned-book set is intentionally not stored here. Book.OwnerID is
// the single source of truth for ownership; the store derives the owned set
// from its owner index on demand.
type User struct {
	Timestamps
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // Argon2id encoded, never serialized to clients
}
