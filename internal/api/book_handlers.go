package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bookswapapp/bookswap-server/internal/http/response"
	"github.com/bookswapapp/bookswap-server/internal/service"
)

// handleListBooks returns the whole catalog with owner usernames.
func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.bookService.List(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, books, s.logger)
}

// handleCreateBook lists a new book owned by the caller.
func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req service.CreateBookRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	user := userFromContext(r.Context())
	book, err := s.bookService.Create(r.Context(), user.ID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, book, s.logger)
}

// handleListOwnedBooks returns the caller's own books.
func (s *Server) handleListOwnedBooks(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	books, err := s.bookService.ListOwned(r.Context(), user.ID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, books, s.logger)
}

// handleGetBook returns a single book by ID.
func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.bookService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, book, s.logger)
}

// handleUpdateBook edits a book's metadata. Owner only.
func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateBookRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	user := userFromContext(r.Context())
	book, err := s.bookService.Update(r.Context(), chi.URLParam(r, "id"), user.ID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, book, s.logger)
}

// handleDeleteBook removes a book from the catalog. Owner only.
func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	if err := s.bookService.Delete(r.Context(), chi.URLParam(r, "id"), user.ID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleGetMatches returns match engine candidates for the caller.
func (s *Server) handleGetMatches(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	matches, err := s.matchService.Matches(r.Context(), user.ID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, matches, s.logger)
}
