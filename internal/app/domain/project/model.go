// Package project holds the execution record spun up from an approved
// proposal and its participant roster.
package project

import (
	"time"

	"github.com/ujamaadao/backend/internal/app/domain/identity"
	"github.com/ujamaadao/backend/internal/app/domain/proposal"
)

// Status is the project execution state.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusOnHold    Status = "ON_HOLD"
	StatusCancelled Status = "CANCELLED"
)

// ValidStatus reports whether s is a known execution state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusCompleted, StatusOnHold, StatusCancelled:
		return true
	}
	return false
}

// ParticipantRole is a member's role on a project.
type ParticipantRole string

const (
	RoleMember ParticipantRole = "MEMBER"
	RoleAdmin  ParticipantRole = "ADMIN"
)

// ValidRole reports whether r is a known participant role.
func ValidRole(r ParticipantRole) bool {
	return r == RoleMember || r == RoleAdmin
}

// Project carries out one approved proposal. The descriptive fields are
// copied from the proposal at creation; at most one project exists per
// proposal.
type Project struct {
	ID            string                 `json:"id"`
	ProposalID    string                 `json:"proposalId"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Budget        int64                  `json:"budget,omitempty"`
	Timeline      string                 `json:"timeline,omitempty"`
	Status        Status                 `json:"status"`
	LocationScope proposal.LocationScope `json:"locationScope"`
	Constituency  string                 `json:"constituency,omitempty"`
	County        string                 `json:"county,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// Participant is one user's membership on a project. User is populated on
// roster listings.
type Participant struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"projectId"`
	UserID    string          `json:"userId"`
	Role      ParticipantRole `json:"role"`
	CreatedAt time.Time       `json:"createdAt"`
	User      *identity.User  `json:"user,omitempty"`
}
