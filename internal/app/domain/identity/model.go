// Package identity holds the member and group aggregates. Both are keyed by
// a unique lower-cased wallet address; the nonce on User is the single-use
// login challenge and is never serialised in API responses.
package identity

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// User is a registered member.
type User struct {
	ID                 string    `json:"id"`
	WalletAddress      string    `json:"walletAddress"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	CountyOrigin       string    `json:"countyOrigin"`
	ConstituencyOrigin string    `json:"constituencyOrigin"`
	CountyLive         string    `json:"countyLive"`
	ConstituencyLive   string    `json:"constituencyLive"`
	Nonce              string    `json:"-"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Group is a registered collective with its own wallet and ledger accounts.
type Group struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	WalletAddress string    `json:"walletAddress"`
	County        string    `json:"county"`
	Constituency  string    `json:"constituency"`
	IndustryFocus string    `json:"industryFocus"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewNonce generates a fresh login challenge: 16 cryptographically random
// bytes, hex encoded.
func NewNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
