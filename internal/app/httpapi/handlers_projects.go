package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

type createProjectRequest struct {
	ProposalID string `json:"proposalId"`
}

type addParticipantRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// handleCreateProject spins up a project from an approved proposal.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	created, err := s.projects.CreateFromProposal(r.Context(), req.ProposalID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleAddParticipant enrols a user on a project.
func (s *Server) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	var req addParticipantRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	p, err := s.projects.AddParticipant(r.Context(), mux.Vars(r)["id"], req.UserID, req.Role)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleListParticipants returns a project's roster.
func (s *Server) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	out, err := s.projects.ListParticipants(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"participants": out})
}
