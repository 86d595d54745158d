// Package votes orchestrates vote casting: eligibility checks, the token
// spend, the reward, and the audit record all commit in one transaction.
package votes

import (
	"context"

	"github.com/ujamaadao/backend/internal/app/domain/ledger"
	"github.com/ujamaadao/backend/internal/app/domain/proposal"
	"github.com/ujamaadao/backend/internal/app/domain/vote"
	"github.com/ujamaadao/backend/internal/app/storage"
	"github.com/ujamaadao/backend/internal/errors"
	"github.com/ujamaadao/backend/pkg/logger"
)

const (
	// MinImpactPointsToVote is the reputation floor for casting any vote.
	MinImpactPointsToVote = 10
	// ImpactPointsReward is credited for every successfully cast vote.
	ImpactPointsReward = 5
)

// CastRequest carries one vote submission. IsGroup and Vote are pointers so
// an absent field is distinguishable from an explicit false and rejected.
type CastRequest struct {
	ProposalID  string `json:"proposalId"`
	VoterID     string `json:"voterId"`
	IsGroup     *bool  `json:"isGroup"`
	Vote        *bool  `json:"vote"`
	TokensSpent int64  `json:"tokensSpent"`
}

// Service casts votes and tallies results.
type Service struct {
	proposals storage.ProposalStore
	votes     storage.VoteStore
	tx        storage.TxRunner
	log       *logger.Logger
}

// New creates the vote service.
func New(proposals storage.ProposalStore, votes storage.VoteStore, tx storage.TxRunner, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("votes")
	}
	return &Service{proposals: proposals, votes: votes, tx: tx, log: log}
}

// Cast records a vote. The voter must hold at least MinImpactPointsToVote
// impact points and the proposal must be in VOTING. The token spend, the
// ImpactPointsReward credit and the vote row commit atomically; a failure at
// any step leaves every balance untouched.
func (s *Service) Cast(ctx context.Context, req CastRequest) (vote.Record, error) {
	if req.ProposalID == "" || req.VoterID == "" {
		return vote.Record{}, errors.Validation("proposalId and voterId are required")
	}
	if req.IsGroup == nil || req.Vote == nil {
		return vote.Record{}, errors.Validation("isGroup and vote must be booleans")
	}
	if req.TokensSpent <= 0 {
		return vote.Record{}, errors.Validation("tokensSpent must be a positive integer")
	}

	prop, err := s.proposals.GetProposal(ctx, req.ProposalID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return vote.Record{}, errors.NotFound("proposal not found")
		}
		return vote.Record{}, errors.Internal("look up proposal", err)
	}
	if prop.Status != proposal.StatusVoting {
		return vote.Record{}, errors.Ineligible("proposal is not open for voting").
			WithDetails("status", string(prop.Status))
	}

	holder := ledger.HolderFor(*req.IsGroup, req.VoterID)

	var rec vote.Record
	err = s.tx.RunInTx(ctx, func(tx storage.TxStores) error {
		pts, err := tx.GetImpactPoints(ctx, holder, "")
		if err != nil {
			return errors.Internal("read impact points", err)
		}
		if pts.Points < MinImpactPointsToVote {
			return errors.Ineligible("insufficient impact points to vote").
				WithDetails("required", MinImpactPointsToVote).
				WithDetails("current", pts.Points)
		}

		if _, err := tx.AdjustTokenBalance(ctx, holder, -req.TokensSpent); err != nil {
			if errors.Is(err, storage.ErrInsufficientBalance) {
				return errors.Ineligible("insufficient token balance")
			}
			return errors.Internal("spend tokens", err)
		}

		if _, err := tx.AdjustImpactPoints(ctx, holder, "", ImpactPointsReward); err != nil {
			return errors.Internal("credit impact points", err)
		}

		rec, err = tx.CreateVote(ctx, vote.Record{
			ProposalID:  req.ProposalID,
			VoterID:     req.VoterID,
			IsGroup:     *req.IsGroup,
			Vote:        *req.Vote,
			TokensSpent: req.TokensSpent,
		})
		if err != nil {
			return errors.Internal("record vote", err)
		}
		return nil
	})
	if err != nil {
		return vote.Record{}, err
	}

	s.log.WithFields(map[string]interface{}{
		"proposal_id": req.ProposalID,
		"voter":       holder.String(),
		"vote":        *req.Vote,
	}).Info("vote cast")
	return rec, nil
}

// Tally aggregates every vote on a proposal.
func (s *Service) Tally(ctx context.Context, proposalID string) (vote.Tally, error) {
	if proposalID == "" {
		return vote.Tally{}, errors.Validation("proposalId is required")
	}
	if _, err := s.proposals.GetProposal(ctx, proposalID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return vote.Tally{}, errors.NotFound("proposal not found")
		}
		return vote.Tally{}, errors.Internal("look up proposal", err)
	}
	records, err := s.votes.ListVotesByProposal(ctx, proposalID)
	if err != nil {
		return vote.Tally{}, errors.Internal("list votes", err)
	}
	if len(records) == 0 {
		return vote.Tally{}, errors.NotFound("no votes found for proposal")
	}
	return vote.Count(records), nil
}
