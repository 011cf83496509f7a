package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bookswapapp/bookswap-server/internal/http/response"
	"github.com/bookswapapp/bookswap-server/internal/service"
)

// handleProposeExchange creates a new pending exchange request.
func (s *Server) handleProposeExchange(w http.ResponseWriter, r *http.Request) {
	var req service.ProposeExchangeRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	user := userFromContext(r.Context())
	exchange, err := s.exchangeService.Propose(r.Context(), user.ID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, exchange, s.logger)
}

// handleListIncomingExchanges returns requests targeting books the caller
// currently owns.
func (s *Server) handleListIncomingExchanges(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	requests, err := s.exchangeService.ListIncoming(r.Context(), user.ID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, requests, s.logger)
}

// handleListSentExchanges returns the caller's outgoing requests.
func (s *Server) handleListSentExchanges(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	requests, err := s.exchangeService.ListSent(r.Context(), user.ID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, requests, s.logger)
}

// handleAcceptExchange settles a pending request with the atomic ownership
// swap and cascade.
func (s *Server) handleAcceptExchange(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	exchange, err := s.exchangeService.Accept(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, exchange, s.logger)
}

// handleDeclineExchange rejects a pending request.
func (s *Server) handleDeclineExchange(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	exchange, err := s.exchangeService.Decline(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, exchange, s.logger)
}
