// Package projects turns approved proposals into execution projects and
// manages their participant rosters.
package projects

import (
	"context"
	"strings"

	"github.com/ujamaadao/backend/internal/app/domain/project"
	"github.com/ujamaadao/backend/internal/app/domain/proposal"
	"github.com/ujamaadao/backend/internal/app/storage"
	"github.com/ujamaadao/backend/internal/errors"
	"github.com/ujamaadao/backend/pkg/logger"
)

// Service creates projects and manages who works on them.
type Service struct {
	proposals storage.ProposalStore
	projects  storage.ProjectStore
	users     storage.IdentityStore
	log       *logger.Logger
}

// New creates the project service.
func New(proposals storage.ProposalStore, projects storage.ProjectStore, users storage.IdentityStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("projects")
	}
	return &Service{proposals: proposals, projects: projects, users: users, log: log}
}

// CreateFromProposal spins up the execution project for an approved proposal,
// copying its descriptive fields. Only one project can exist per proposal.
func (s *Service) CreateFromProposal(ctx context.Context, proposalID string) (project.Project, error) {
	if proposalID == "" {
		return project.Project{}, errors.Validation("proposalId is required")
	}

	prop, err := s.proposals.GetProposal(ctx, proposalID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return project.Project{}, errors.NotFound("proposal not found")
		}
		return project.Project{}, errors.Internal("look up proposal", err)
	}
	if prop.Status != proposal.StatusApproved {
		return project.Project{}, errors.Ineligible("proposal must be approved to create a project").
			WithDetails("status", string(prop.Status))
	}

	created, err := s.projects.CreateProject(ctx, project.Project{
		ProposalID:    prop.ID,
		Title:         prop.Title,
		Description:   prop.Description,
		Budget:        prop.Budget,
		Timeline:      prop.Timeline,
		Status:        project.StatusActive,
		LocationScope: prop.LocationScope,
		Constituency:  prop.Constituency,
		County:        prop.County,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return project.Project{}, errors.Conflict("a project already exists for this proposal")
		}
		return project.Project{}, errors.Internal("create project", err)
	}

	s.log.WithFields(map[string]interface{}{
		"project_id":  created.ID,
		"proposal_id": prop.ID,
	}).Info("project created")
	return created, nil
}

// AddParticipant enrols a user on a project. The role defaults to MEMBER;
// a user can appear on a roster only once.
func (s *Service) AddParticipant(ctx context.Context, projectID, userID, role string) (project.Participant, error) {
	if projectID == "" || userID == "" {
		return project.Participant{}, errors.Validation("projectId and userId are required")
	}
	r := project.RoleMember
	if trimmed := strings.ToUpper(strings.TrimSpace(role)); trimmed != "" {
		r = project.ParticipantRole(trimmed)
		if !project.ValidRole(r) {
			return project.Participant{}, errors.Validation("invalid participant role")
		}
	}

	if _, err := s.projects.GetProject(ctx, projectID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return project.Participant{}, errors.NotFound("project not found")
		}
		return project.Participant{}, errors.Internal("look up project", err)
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return project.Participant{}, errors.NotFound("user not found")
		}
		return project.Participant{}, errors.Internal("look up user", err)
	}

	p, err := s.projects.AddParticipant(ctx, project.Participant{
		ProjectID: projectID,
		UserID:    userID,
		Role:      r,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return project.Participant{}, errors.Conflict("user is already a participant of this project")
		}
		return project.Participant{}, errors.Internal("add participant", err)
	}

	s.log.WithFields(map[string]interface{}{
		"project_id": projectID,
		"user_id":    userID,
		"role":       string(r),
	}).Info("participant added")
	return p, nil
}

// ListParticipants returns a project's roster with each member's profile
// attached.
func (s *Service) ListParticipants(ctx context.Context, projectID string) ([]project.Participant, error) {
	if projectID == "" {
		return nil, errors.Validation("projectId is required")
	}
	if _, err := s.projects.GetProject(ctx, projectID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errors.NotFound("project not found")
		}
		return nil, errors.Internal("look up project", err)
	}

	out, err := s.projects.ListParticipants(ctx, projectID)
	if err != nil {
		return nil, errors.Internal("list participants", err)
	}
	for i := range out {
		u, err := s.users.GetUser(ctx, out[i].UserID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, errors.Internal("look up participant user", err)
		}
		out[i].User = &u
	}
	return out, nil
}
