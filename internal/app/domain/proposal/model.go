// Package proposal holds the proposal aggregate. Proposals are created in
// DRAFT and only accept votes while in VOTING.
package proposal

import "time"

// Status is the proposal lifecycle state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusVoting    Status = "VOTING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusFunded    Status = "FUNDED"
	StatusCompleted Status = "COMPLETED"
)

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusVoting, StatusApproved, StatusRejected, StatusFunded, StatusCompleted:
		return true
	}
	return false
}

// LocationScope bounds the geography a proposal applies to.
type LocationScope string

const (
	ScopeLocal        LocationScope = "LOCAL"
	ScopeConstituency LocationScope = "CONSTITUENCY"
	ScopeCounty       LocationScope = "COUNTY"
	ScopeNational     LocationScope = "NATIONAL"
)

// ValidScope reports whether s is a known location scope.
func ValidScope(s LocationScope) bool {
	switch s {
	case ScopeLocal, ScopeConstituency, ScopeCounty, ScopeNational:
		return true
	}
	return false
}

// Proposal is a funding or policy item put to the membership. Exactly one of
// CreatorUserID and CreatorGroupID is set.
type Proposal struct {
	ID             string        `json:"id"`
	CreatorUserID  string        `json:"creatorUserId,omitempty"`
	CreatorGroupID string        `json:"creatorGroupId,omitempty"`
	Type           string        `json:"proposalType"`
	Funded         bool          `json:"funded"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Budget         int64         `json:"budget,omitempty"`
	Timeline       string        `json:"timeline,omitempty"`
	LocationScope  LocationScope `json:"locationScope"`
	Constituency   string        `json:"constituency,omitempty"`
	County         string        `json:"county,omitempty"`
	PurposeDetails string        `json:"purposeDetails,omitempty"`
	Status         Status        `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Filter narrows proposal listings. Empty fields match everything.
type Filter struct {
	Status        Status
	LocationScope LocationScope
	County        string
	Constituency  string
	Type          string
}
