// Package storage defines the persistence contracts the services depend on.
// Implementations live in the memory and postgres subpackages; both honour
// the same sentinel errors so services stay backend agnostic.
package storage

import (
	"context"
	"errors"

	"github.com/ujamaadao/backend/internal/app/domain/identity"
	"github.com/ujamaadao/backend/internal/app/domain/ledger"
	"github.com/ujamaadao/backend/internal/app/domain/project"
	"github.com/ujamaadao/backend/internal/app/domain/proposal"
	"github.com/ujamaadao/backend/internal/app/domain/vote"
)

// Sentinel errors shared by all backends.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("already exists")
	ErrStaleNonce          = errors.New("nonce already consumed")
	ErrInsufficientBalance = errors.New("insufficient token balance")
	ErrNegativePoints      = errors.New("impact points cannot go negative")
)

// IdentityStore persists users and groups. Wallet addresses are stored
// lower-cased and unique across each table.
type IdentityStore interface {
	CreateUser(ctx context.Context, u identity.User) (identity.User, error)
	GetUser(ctx context.Context, id string) (identity.User, error)
	GetUserByWallet(ctx context.Context, walletAddress string) (identity.User, error)
	GetUserByEmail(ctx context.Context, email string) (identity.User, error)
	UpdateUser(ctx context.Context, u identity.User) (identity.User, error)

	// RotateNonce swaps the stored login nonce from current to next only if
	// current is still the stored value. ErrStaleNonce reports a lost race.
	RotateNonce(ctx context.Context, walletAddress, current, next string) error

	CreateGroup(ctx context.Context, g identity.Group) (identity.Group, error)
	GetGroup(ctx context.Context, id string) (identity.Group, error)
	GetGroupByName(ctx context.Context, name string) (identity.Group, error)
	UpdateGroup(ctx context.Context, g identity.Group) (identity.Group, error)
}

// ProposalStore persists proposals.
type ProposalStore interface {
	CreateProposal(ctx context.Context, p proposal.Proposal) (proposal.Proposal, error)
	GetProposal(ctx context.Context, id string) (proposal.Proposal, error)
	ListProposals(ctx context.Context, filter proposal.Filter) ([]proposal.Proposal, error)
	UpdateProposal(ctx context.Context, p proposal.Proposal) (proposal.Proposal, error)
}

// ProjectStore persists projects and their participant rosters. At most one
// project exists per proposal and one roster row per (project, user);
// ErrConflict reports either duplicate.
type ProjectStore interface {
	CreateProject(ctx context.Context, p project.Project) (project.Project, error)
	GetProject(ctx context.Context, id string) (project.Project, error)
	AddParticipant(ctx context.Context, p project.Participant) (project.Participant, error)
	ListParticipants(ctx context.Context, projectID string) ([]project.Participant, error)
}

// TokenStore persists spendable token balances. Adjust applies a signed
// delta atomically and fails with ErrInsufficientBalance rather than letting
// a balance go negative.
type TokenStore interface {
	GetTokenBalance(ctx context.Context, holder ledger.Holder) (ledger.TokenBalance, error)
	AdjustTokenBalance(ctx context.Context, holder ledger.Holder, delta int64) (ledger.TokenBalance, error)
}

// PointStore persists impact points per holder and location scope. Adjust
// fails with ErrNegativePoints rather than letting a total go negative.
type PointStore interface {
	GetImpactPoints(ctx context.Context, holder ledger.Holder, locationScope string) (ledger.ImpactPoint, error)
	AdjustImpactPoints(ctx context.Context, holder ledger.Holder, locationScope string, delta int64) (ledger.ImpactPoint, error)
}

// VoteStore persists the append-only vote log.
type VoteStore interface {
	CreateVote(ctx context.Context, rec vote.Record) (vote.Record, error)
	ListVotesByProposal(ctx context.Context, proposalID string) ([]vote.Record, error)
}

// TxStores is the slice of the store surface available inside a transaction.
type TxStores interface {
	TokenStore
	PointStore
	VoteStore
}

// TxRunner runs fn atomically: either every write fn makes through TxStores
// commits, or none do.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx TxStores) error) error
}
