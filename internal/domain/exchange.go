package domain

// ExchangeStatus represents the lifecycle state of an exchange request.
type ExchangeStatus string

const (
	// ExchangePending indicates the request is awaiting the owner's decision.
	ExchangePending ExchangeStatus = "pending"
	// ExchangeAccepted indicates the owner accepted and the swap was applied.
	ExchangeAccepted ExchangeStatus = "accepted"
	// ExchangeRejected indicates the request was declined or invalidated by a
	// completed swap involving one of its books.
	ExchangeRejected ExchangeStatus = "rejected"
)

// ExchangeRequest is a proposal by a requester to trade their offered book
// for another user's requested book.
//
// Pending is the only mutable state. Once a request is accepted or rejected
// it is terminal and no further transitions are permitted.
type ExchangeRequest struct {
	Timestamps
	RequesterID     string         `json:"requester_id"`
	RequestedBookID string         `json:"requested_book_id"`
	OfferedBookID   string         `json:"offered_book_id"`
	Status          ExchangeStatus `json:"status"`
}

// IsPending reports whether the request is still actionable.
func (r *ExchangeRequest) IsPending() bool {
	return r.Status == ExchangePending
}

// References reports whether the request involves the given book, either as
// the requested or the offered side.
func (r *ExchangeRequest) References(bookID string) bool {
	return r.RequestedBookID == bookID || r.OfferedBookID == bookID
}
