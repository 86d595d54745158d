// Package proposals manages the proposal lifecycle from draft to funding.
package proposals

import (
	"context"
	"strings"

	"github.com/ujamaadao/backend/internal/app/domain/proposal"
	"github.com/ujamaadao/backend/internal/app/storage"
	"github.com/ujamaadao/backend/internal/errors"
	"github.com/ujamaadao/backend/pkg/logger"
)

// maxListResults caps a single listing page.
const maxListResults = 100

// Service wraps a ProposalStore with validation.
type Service struct {
	store storage.ProposalStore
	log   *logger.Logger
}

// New creates the proposal service.
func New(store storage.ProposalStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("proposals")
	}
	return &Service{store: store, log: log}
}

// CreateRequest carries a new proposal submission.
type CreateRequest struct {
	CreatorUserID  string `json:"creatorUserId"`
	CreatorGroupID string `json:"creatorGroupId"`
	Type           string `json:"proposalType"`
	Funded         bool   `json:"funded"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Budget         int64  `json:"budget"`
	Timeline       string `json:"timeline"`
	LocationScope  string `json:"locationScope"`
	Constituency   string `json:"constituency"`
	County         string `json:"county"`
	PurposeDetails string `json:"purposeDetails"`
}

// Create validates and stores a proposal in DRAFT.
func (s *Service) Create(ctx context.Context, req CreateRequest) (proposal.Proposal, error) {
	if strings.TrimSpace(req.Title) == "" {
		return proposal.Proposal{}, errors.Validation("title is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return proposal.Proposal{}, errors.Validation("description is required")
	}
	if (req.CreatorUserID == "") == (req.CreatorGroupID == "") {
		return proposal.Proposal{}, errors.Validation("exactly one of creatorUserId and creatorGroupId is required")
	}
	scope := proposal.LocationScope(strings.ToUpper(strings.TrimSpace(req.LocationScope)))
	if !proposal.ValidScope(scope) {
		return proposal.Proposal{}, errors.Validation("invalid location scope")
	}
	if req.Funded && req.Budget <= 0 {
		return proposal.Proposal{}, errors.Validation("funded proposals require a positive budget")
	}
	switch scope {
	case proposal.ScopeLocal:
		if req.Constituency == "" || req.County == "" {
			return proposal.Proposal{}, errors.Validation("local proposals require constituency and county")
		}
	case proposal.ScopeConstituency:
		if req.Constituency == "" {
			return proposal.Proposal{}, errors.Validation("constituency proposals require a constituency")
		}
	case proposal.ScopeCounty:
		if req.County == "" {
			return proposal.Proposal{}, errors.Validation("county proposals require a county")
		}
	}

	created, err := s.store.CreateProposal(ctx, proposal.Proposal{
		CreatorUserID:  req.CreatorUserID,
		CreatorGroupID: req.CreatorGroupID,
		Type:           req.Type,
		Funded:         req.Funded,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Budget:         req.Budget,
		Timeline:       req.Timeline,
		LocationScope:  scope,
		Constituency:   req.Constituency,
		County:         req.County,
		PurposeDetails: req.PurposeDetails,
		Status:         proposal.StatusDraft,
	})
	if err != nil {
		return proposal.Proposal{}, errors.Internal("create proposal", err)
	}
	s.log.WithField("proposal_id", created.ID).Info("proposal created")
	return created, nil
}

// Get fetches a proposal by id.
func (s *Service) Get(ctx context.Context, id string) (proposal.Proposal, error) {
	p, err := s.store.GetProposal(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return proposal.Proposal{}, errors.NotFound("proposal not found")
		}
		return proposal.Proposal{}, errors.Internal("get proposal", err)
	}
	return p, nil
}

// List returns proposals matching the filter, newest first, capped at
// maxListResults.
func (s *Service) List(ctx context.Context, filter proposal.Filter) ([]proposal.Proposal, error) {
	if filter.Status != "" && !proposal.ValidStatus(filter.Status) {
		return nil, errors.Validation("invalid status filter")
	}
	if filter.LocationScope != "" && !proposal.ValidScope(filter.LocationScope) {
		return nil, errors.Validation("invalid location scope filter")
	}
	out, err := s.store.ListProposals(ctx, filter)
	if err != nil {
		return nil, errors.Internal("list proposals", err)
	}
	if len(out) > maxListResults {
		out = out[:maxListResults]
	}
	return out, nil
}

// UpdateRequest patches a proposal. Nil fields are left unchanged.
type UpdateRequest struct {
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	Budget         *int64  `json:"budget"`
	Timeline       *string `json:"timeline"`
	PurposeDetails *string `json:"purposeDetails"`
	Status         *string `json:"status"`
}

// Update applies a partial update; status changes are checked against the
// known lifecycle states.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (proposal.Proposal, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return proposal.Proposal{}, err
	}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return proposal.Proposal{}, errors.Validation("title cannot be empty")
		}
		p.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Budget != nil {
		if *req.Budget < 0 {
			return proposal.Proposal{}, errors.Validation("budget cannot be negative")
		}
		p.Budget = *req.Budget
	}
	if req.Timeline != nil {
		p.Timeline = *req.Timeline
	}
	if req.PurposeDetails != nil {
		p.PurposeDetails = *req.PurposeDetails
	}
	if req.Status != nil {
		status := proposal.Status(strings.ToUpper(strings.TrimSpace(*req.Status)))
		if !proposal.ValidStatus(status) {
			return proposal.Proposal{}, errors.Validation("invalid status")
		}
		p.Status = status
	}

	updated, err := s.store.UpdateProposal(ctx, p)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return proposal.Proposal{}, errors.NotFound("proposal not found")
		}
		return proposal.Proposal{}, errors.Internal("update proposal", err)
	}
	return updated, nil
}
