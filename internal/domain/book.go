package domain

// Book represents a physical book offered for exchange.
// Every book has exactly one current owner at all times.
type Book struct {
	Timestamps
	Title       string `json:"title"`
	Author      string `json:"author"`
	Genre       string `json:"genre"`
	Description string `json:"description,omitempty"`
	OwnerID     string `json:"owner_id"`
}

// EditionKey returns the identity used to collapse multiple owners' copies of
// the same edition in match results: the (title, author, genre) triple.
func (b *Book) EditionKey() string {
	return b.Title + "\x00" + b.Author + "\x00" + b.Genre
}
