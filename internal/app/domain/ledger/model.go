// Package ledger defines the two unit-of-account balances and the holder
// identity they are keyed by.
package ledger

import (
	"fmt"
	"strings"
	"time"
)

// HolderKind discriminates the two ledger holder populations.
type HolderKind string

const (
	KindUser  HolderKind = "USER"
	KindGroup HolderKind = "GROUP"
)

// ParseHolderKind validates an externally supplied holder type string.
func ParseHolderKind(raw string) (HolderKind, error) {
	switch HolderKind(strings.ToUpper(strings.TrimSpace(raw))) {
	case KindUser:
		return KindUser, nil
	case KindGroup:
		return KindGroup, nil
	default:
		return "", fmt.Errorf("invalid holder type %q", raw)
	}
}

// Holder identifies a ledger account: a user or a group plus its id. Using a
// closed kind keeps invalid discriminators unrepresentable past the API edge.
type Holder struct {
	Kind HolderKind `json:"kind"`
	ID   string     `json:"id"`
}

// UserHolder builds a holder for a user id.
func UserHolder(id string) Holder { return Holder{Kind: KindUser, ID: id} }

// GroupHolder builds a holder for a group id.
func GroupHolder(id string) Holder { return Holder{Kind: KindGroup, ID: id} }

// HolderFor derives the holder from the isGroup flag used on the wire.
func HolderFor(isGroup bool, id string) Holder {
	if isGroup {
		return GroupHolder(id)
	}
	return UserHolder(id)
}

func (h Holder) String() string {
	return string(h.Kind) + ":" + h.ID
}

// TokenBalance is the spendable balance row for one holder. Balance is never
// negative; rows are created lazily at zero.
type TokenBalance struct {
	Holder    Holder    `json:"holder"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ImpactPoint is the non-spendable reputation row for one holder, optionally
// scoped to a location ("" means the global scope).
type ImpactPoint struct {
	Holder        Holder    `json:"holder"`
	LocationScope string    `json:"locationScope,omitempty"`
	Points        int64     `json:"points"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
