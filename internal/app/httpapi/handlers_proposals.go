package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ujamaadao/backend/internal/app/domain/proposal"
	"github.com/ujamaadao/backend/internal/app/services/proposals"
)

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var req proposals.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if claims := claimsFrom(r.Context()); claims != nil && req.CreatorUserID == "" && req.CreatorGroupID == "" {
		req.CreatorUserID = claims.UserID
	}
	created, err := s.proposals.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	p, err := s.proposals.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := proposal.Filter{
		Status:        proposal.Status(strings.ToUpper(q.Get("status"))),
		LocationScope: proposal.LocationScope(strings.ToUpper(q.Get("locationScope"))),
		County:        q.Get("county"),
		Constituency:  q.Get("constituency"),
		Type:          q.Get("proposalType"),
	}
	out, err := s.proposals.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"proposals": out})
}

func (s *Server) handleUpdateProposal(w http.ResponseWriter, r *http.Request) {
	var req proposals.UpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	updated, err := s.proposals.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
