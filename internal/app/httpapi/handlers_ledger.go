package httpapi

import (
	"net/http"

	"github.com/ujamaadao/backend/internal/app/domain/ledger"
	"github.com/ujamaadao/backend/internal/errors"
)

// holderFromQuery reads holderId and holderType (default USER) from the
// query string.
func holderFromQuery(r *http.Request) (ledger.Holder, error) {
	id := r.URL.Query().Get("holderId")
	if id == "" {
		return ledger.Holder{}, errors.Validation("holderId query parameter is required")
	}
	rawKind := r.URL.Query().Get("holderType")
	if rawKind == "" {
		return ledger.UserHolder(id), nil
	}
	kind, err := ledger.ParseHolderKind(rawKind)
	if err != nil {
		return ledger.Holder{}, errors.Validation(err.Error())
	}
	return ledger.Holder{Kind: kind, ID: id}, nil
}

func (s *Server) handleGetTokenBalance(w http.ResponseWriter, r *http.Request) {
	holder, err := holderFromQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	bal, err := s.tokens.Balance(r.Context(), holder)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

type adjustTokensRequest struct {
	HolderID   string `json:"holderId"`
	HolderType string `json:"holderType"`
	Amount     int64  `json:"amount"`
}

func (s *Server) handleAdjustTokenBalance(w http.ResponseWriter, r *http.Request) {
	var req adjustTokensRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	holder, err := holderFromBody(req.HolderID, req.HolderType)
	if err != nil {
		s.writeError(w, err)
		return
	}
	bal, err := s.tokens.Adjust(r.Context(), holder, req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

func (s *Server) handleGetImpactPoints(w http.ResponseWriter, r *http.Request) {
	holder, err := holderFromQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	pt, err := s.points.Points(r.Context(), holder, r.URL.Query().Get("locationScope"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pt)
}

type adjustPointsRequest struct {
	HolderID      string `json:"holderId"`
	HolderType    string `json:"holderType"`
	LocationScope string `json:"locationScope"`
	Points        int64  `json:"points"`
}

func (s *Server) handleAdjustImpactPoints(w http.ResponseWriter, r *http.Request) {
	var req adjustPointsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	holder, err := holderFromBody(req.HolderID, req.HolderType)
	if err != nil {
		s.writeError(w, err)
		return
	}
	pt, err := s.points.Add(r.Context(), holder, req.LocationScope, req.Points)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pt)
}

func holderFromBody(id, rawKind string) (ledger.Holder, error) {
	if id == "" {
		return ledger.Holder{}, errors.Validation("holderId is required")
	}
	if rawKind == "" {
		return ledger.UserHolder(id), nil
	}
	kind, err := ledger.ParseHolderKind(rawKind)
	if err != nil {
		return ledger.Holder{}, errors.Validation(err.Error())
	}
	return ledger.Holder{Kind: kind, ID: id}, nil
}
