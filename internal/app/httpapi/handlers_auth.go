package httpapi

import (
	"net/http"

	"github.com/ujamaadao/backend/internal/app/services/auth"
	"github.com/ujamaadao/backend/internal/errors"
)

// handleNonce returns the login challenge for a wallet, creating a
// placeholder account on first contact.
func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	wallet := r.URL.Query().Get("walletAddress")
	if wallet == "" {
		s.writeError(w, errors.Validation("walletAddress query parameter is required"))
		return
	}
	nonce, err := s.auth.Nonce(r.Context(), wallet)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"nonce":   nonce,
		"message": auth.MessagePrefix + nonce,
	})
}

type verifyRequest struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"`
}

// handleVerify checks the signed challenge and returns a session token.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	session, err := s.auth.Verify(r.Context(), req.WalletAddress, req.Signature)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}
