// Package identities manages user and group registration and profiles.
package identities

import (
	"context"
	"strings"

	"github.com/ujamaadao/backend/internal/app/domain/identity"
	"github.com/ujamaadao/backend/internal/app/storage"
	"github.com/ujamaadao/backend/internal/errors"
	"github.com/ujamaadao/backend/pkg/logger"
)

// Service wraps an IdentityStore with validation and conflict mapping.
type Service struct {
	store storage.IdentityStore
	log   *logger.Logger
}

// New creates the identity service.
func New(store storage.IdentityStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("identities")
	}
	return &Service{store: store, log: log}
}

// CreateUserRequest carries a new user registration.
type CreateUserRequest struct {
	WalletAddress      string `json:"walletAddress"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	CountyOrigin       string `json:"countyOrigin"`
	ConstituencyOrigin string `json:"constituencyOrigin"`
	CountyLive         string `json:"countyLive"`
	ConstituencyLive   string `json:"constituencyLive"`
}

// CreateUser registers a user. Wallet address and email must be unused.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (identity.User, error) {
	req.WalletAddress = strings.ToLower(strings.TrimSpace(req.WalletAddress))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.WalletAddress == "" {
		return identity.User{}, errors.Validation("wallet address is required")
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return identity.User{}, errors.Validation("a valid email is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return identity.User{}, errors.Validation("name is required")
	}

	user, err := s.store.CreateUser(ctx, identity.User{
		WalletAddress:      req.WalletAddress,
		Email:              req.Email,
		Name:               strings.TrimSpace(req.Name),
		CountyOrigin:       req.CountyOrigin,
		ConstituencyOrigin: req.ConstituencyOrigin,
		CountyLive:         req.CountyLive,
		ConstituencyLive:   req.ConstituencyLive,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return identity.User{}, errors.Conflict("wallet address or email already registered")
		}
		return identity.User{}, errors.Internal("create user", err)
	}
	s.log.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

// GetUser fetches a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (identity.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return identity.User{}, errors.NotFound("user not found")
		}
		return identity.User{}, errors.Internal("get user", err)
	}
	return user, nil
}

// GetUserByWallet fetches a user by wallet address.
func (s *Service) GetUserByWallet(ctx context.Context, walletAddress string) (identity.User, error) {
	user, err := s.store.GetUserByWallet(ctx, walletAddress)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return identity.User{}, errors.NotFound("user not found")
		}
		return identity.User{}, errors.Internal("get user", err)
	}
	return user, nil
}

// UpdateUserRequest patches a user profile. Nil fields are left unchanged.
type UpdateUserRequest struct {
	Email              *string `json:"email"`
	Name               *string `json:"name"`
	CountyOrigin       *string `json:"countyOrigin"`
	ConstituencyOrigin *string `json:"constituencyOrigin"`
	CountyLive         *string `json:"countyLive"`
	ConstituencyLive   *string `json:"constituencyLive"`
}

// UpdateUser applies a partial profile update.
func (s *Service) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (identity.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return identity.User{}, err
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" || !strings.Contains(email, "@") {
			return identity.User{}, errors.Validation("a valid email is required")
		}
		user.Email = email
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return identity.User{}, errors.Validation("name cannot be empty")
		}
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.CountyOrigin != nil {
		user.CountyOrigin = *req.CountyOrigin
	}
	if req.ConstituencyOrigin != nil {
		user.ConstituencyOrigin = *req.ConstituencyOrigin
	}
	if req.CountyLive != nil {
		user.CountyLive = *req.CountyLive
	}
	if req.ConstituencyLive != nil {
		user.ConstituencyLive = *req.ConstituencyLive
	}

	updated, err := s.store.UpdateUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return identity.User{}, errors.Conflict("email already in use")
		}
		return identity.User{}, errors.Internal("update user", err)
	}
	return updated, nil
}

// CreateGroupRequest carries a new group registration.
type CreateGroupRequest struct {
	Name          string `json:"name"`
	WalletAddress string `json:"walletAddress"`
	County        string `json:"county"`
	Constituency  string `json:"constituency"`
	IndustryFocus string `json:"industryFocus"`
}

// CreateGroup registers a group. Names are unique.
func (s *Service) CreateGroup(ctx context.Context, req CreateGroupRequest) (identity.Group, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return identity.Group{}, errors.Validation("group name is required")
	}

	group, err := s.store.CreateGroup(ctx, identity.Group{
		Name:          req.Name,
		WalletAddress: strings.ToLower(strings.TrimSpace(req.WalletAddress)),
		County:        req.County,
		Constituency:  req.Constituency,
		IndustryFocus: req.IndustryFocus,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return identity.Group{}, errors.Conflict("group name already registered")
		}
		return identity.Group{}, errors.Internal("create group", err)
	}
	s.log.WithField("group_id", group.ID).Info("group registered")
	return group, nil
}

// GetGroup fetches a group by id.
func (s *Service) GetGroup(ctx context.Context, id string) (identity.Group, error) {
	group, err := s.store.GetGroup(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return identity.Group{}, errors.NotFound("group not found")
		}
		return identity.Group{}, errors.Internal("get group", err)
	}
	return group, nil
}
