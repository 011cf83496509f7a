package api

import (
	"net/http"

	"github.com/bookswapapp/bookswap-server/internal/http/response"
	"github.com/bookswapapp/bookswap-server/internal/service"
)

// handleRegister creates a new account and returns it with an access token.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	resp, err := s.authService.Register(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, resp, s.logger)
}

// handleLogin authenticates a user and returns an access token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	resp, err := s.authService.Login(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, resp, s.logger)
}

// handleGetCurrentUser returns the authenticated user's own record.
func (s *Server) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	response.Success(w, userFromContext(r.Context()), s.logger)
}
