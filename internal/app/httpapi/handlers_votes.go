package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ujamaadao/backend/internal/app/services/votes"
)

// handleCastVote records an authenticated vote.
func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req votes.CastRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if claims := claimsFrom(r.Context()); claims != nil && req.VoterID == "" &&
		req.IsGroup != nil && !*req.IsGroup {
		req.VoterID = claims.UserID
	}
	if _, err := s.votes.Cast(r.Context(), req); err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.VoteCast()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "vote recorded",
	})
}

// handleTally returns the aggregate voting result for a proposal.
func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	proposalID := mux.Vars(r)["id"]
	tally, err := s.votes.Tally(r.Context(), proposalID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"totalVotes": tally.TotalVotes,
		"yesVotes":   tally.YesVotes,
		"noVotes":    tally.NoVotes,
		"result":     tally.Result,
	})
}
