package service

import (
	"context"
	"log/slog"

	"github.com/bookswapapp/bookswap-server/internal/domain"
	domainerrors "github.com/bookswapapp/bookswap-server/internal/errors"
	"github.com/bookswapapp/bookswap-server/internal/id"
	"github.com/bookswapapp/bookswap-server/internal/store"
)

// BookService manages the shared book catalog.
type BookService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(store *store.Store, logger *slog.Logger) *BookService {
	return &BookService{
		store:  store,
		logger: logger,
	}
}

// CreateBookRequest contains data for listing a new book.
type CreateBookRequest struct {
	Title       string `json:"title" validate:"required,max=256"`
	Author      string `json:"author" validate:"required,max=256"`
	Genre       string `json:"genre" validate:"required,max=64"`
	Description string `json:"description" validate:"max=2048"`
}

// UpdateBookRequest contains editable book metadata.
type UpdateBookRequest struct {
	Title       string `json:"title" validate:"required,max=256"`
	Author      string `json:"author" validate:"required,max=256"`
	Genre       string `json:"genre" validate:"required,max=64"`
	Description string `json:"description" validate:"max=2048"`
}

// BookWithOwner is a catalog entry annotated with its owner's username for
// display. The username is resolved at read time.
type BookWithOwner struct {
	*domain.Book
	OwnerUsername string `json:"owner_username,omitempty"`
}

// Create lists a new book owned by ownerID.
func (s *BookService) Create(ctx context.Context, ownerID string, req CreateBookRequest) (*domain.Book, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	bookID, err := id.Generate("book")
	if err != nil {
		return nil, domainerrors.Internal("failed to generate book ID").WithCause(err)
	}

	book := &domain.Book{
		Timestamps:  domain.Timestamps{ID: bookID},
		Title:       req.Title,
		Author:      req.Author,
		Genre:       req.Genre,
		Description: req.Description,
		OwnerID:     ownerID,
	}
	book.InitTimestamps()

	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, domainerrors.Internal("failed to create book").WithCause(err)
	}

	s.logger.Info("book listed", "book_id", book.ID, "owner_id", ownerID, "title", book.Title)

	return book, nil
}

// Get retrieves a single book by ID.
func (s *BookService) Get(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if domainerrors.Is(err, store.ErrBookNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, domainerrors.Internal("failed to load book").WithCause(err)
	}
	return book, nil
}

// List returns the whole catalog with owner usernames attached.
func (s *BookService) List(ctx context.Context) ([]*BookWithOwner, error) {
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, domainerrors.Internal("failed to list books").WithCause(err)
	}
	return annotateOwners(ctx, s.store, books)
}

// ListOwned returns the books the user currently owns.
func (s *BookService) ListOwned(ctx context.Context, ownerID string) ([]*domain.Book, error) {
	books, err := s.store.GetBooksByOwner(ctx, ownerID)
	if err != nil {
		return nil, domainerrors.Internal("failed to list owned books").WithCause(err)
	}
	return books, nil
}

// Update rewrites a book's metadata. Only the current owner may edit.
func (s *BookService) Update(ctx context.Context, bookID, actingUserID string, req UpdateBookRequest) (*domain.Book, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	book, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.OwnerID != actingUserID {
		return nil, domainerrors.Forbidden("only the owner may edit this book")
	}

	book.Title = req.Title
	book.Author = req.Author
	book.Genre = req.Genre
	book.Description = req.Description
	book.Touch()

	if err := s.store.UpdateBook(ctx, book); err != nil {
		switch {
		case domainerrors.Is(err, store.ErrBookNotFound):
			return nil, domainerrors.NotFound("book not found")
		case domainerrors.Is(err, store.ErrTxnConflict):
			return nil, domainerrors.Conflict("book was modified concurrently, retry")
		}
		return nil, domainerrors.Internal("failed to update book").WithCause(err)
	}

	return book, nil
}

// Delete removes a book from the catalog. Only the current owner may delete.
// Pending exchange requests referencing the book are rejected in the same
// transaction.
func (s *BookService) Delete(ctx context.Context, bookID, actingUserID string) error {
	book, err := s.Get(ctx, bookID)
	if err != nil {
		return err
	}
	if book.OwnerID != actingUserID {
		return domainerrors.Forbidden("only the owner may delete this book")
	}

	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		switch {
		case domainerrors.Is(err, store.ErrBookNotFound):
			return domainerrors.NotFound("book not found")
		case domainerrors.Is(err, store.ErrTxnConflict):
			return domainerrors.Conflict("book was modified concurrently, retry")
		}
		return domainerrors.Internal("failed to delete book").WithCause(err)
	}

	s.logger.Info("book removed", "book_id", bookID, "owner_id", actingUserID)

	return nil
}

// annotateOwners attaches owner usernames to a list of books.
func annotateOwners(ctx context.Context, st *store.Store, books []*domain.Book) ([]*BookWithOwner, error) {
	ownerIDs := make([]string, 0, len(books))
	for _, b := range books {
		ownerIDs = append(ownerIDs, b.OwnerID)
	}

	owners, err := st.GetUsersByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, domainerrors.Internal("failed to load book owners").WithCause(err)
	}

	annotated := make([]*BookWithOwner, 0, len(books))
	for _, b := range books {
		entry := &BookWithOwner{Book: b}
		if owner, ok := owners[b.OwnerID]; ok {
			entry.OwnerUsername = owner.Username
		}
		annotated = append(annotated, entry)
	}
	return annotated, nil
}
