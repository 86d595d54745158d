// Package tokens manages the spendable token ledger.
package tokens

import (
	"context"

	"github.com/ujamaadao/backend/internal/app/domain/ledger"
	"github.com/ujamaadao/backend/internal/app/storage"
	"github.com/ujamaadao/backend/internal/errors"
	"github.com/ujamaadao/backend/pkg/logger"
)

// Service wraps a TokenStore with validation and error mapping.
type Service struct {
	store storage.TokenStore
	log   *logger.Logger
}

// New creates the token ledger service.
func New(store storage.TokenStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tokens")
	}
	return &Service{store: store, log: log}
}

// Balance reports the holder's current balance, zero when no row exists.
func (s *Service) Balance(ctx context.Context, holder ledger.Holder) (ledger.TokenBalance, error) {
	if holder.ID == "" {
		return ledger.TokenBalance{}, errors.Validation("holder id is required")
	}
	bal, err := s.store.GetTokenBalance(ctx, holder)
	if err != nil {
		return ledger.TokenBalance{}, errors.Internal("read token balance", err)
	}
	return bal, nil
}

// Mint credits amount to the holder. Amount must be positive.
func (s *Service) Mint(ctx context.Context, holder ledger.Holder, amount int64) (ledger.TokenBalance, error) {
	if holder.ID == "" {
		return ledger.TokenBalance{}, errors.Validation("holder id is required")
	}
	if amount <= 0 {
		return ledger.TokenBalance{}, errors.Validation("amount must be positive")
	}
	bal, err := s.store.AdjustTokenBalance(ctx, holder, amount)
	if err != nil {
		return ledger.TokenBalance{}, errors.Internal("credit tokens", err)
	}
	s.log.WithFields(map[string]interface{}{"holder": holder.String(), "amount": amount}).Info("tokens minted")
	return bal, nil
}

// Deduct debits amount from the holder. Amount must be positive; an
// overdraft is rejected without changing the balance.
func (s *Service) Deduct(ctx context.Context, holder ledger.Holder, amount int64) (ledger.TokenBalance, error) {
	if holder.ID == "" {
		return ledger.TokenBalance{}, errors.Validation("holder id is required")
	}
	if amount <= 0 {
		return ledger.TokenBalance{}, errors.Validation("amount must be positive")
	}
	bal, err := s.store.AdjustTokenBalance(ctx, holder, -amount)
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientBalance) {
			return ledger.TokenBalance{}, errors.Ineligible("insufficient token balance")
		}
		return ledger.TokenBalance{}, errors.Internal("debit tokens", err)
	}
	return bal, nil
}

// Adjust applies a signed delta, the shape the balance update endpoint uses.
// A delta that would push the balance negative is a validation failure.
func (s *Service) Adjust(ctx context.Context, holder ledger.Holder, delta int64) (ledger.TokenBalance, error) {
	if holder.ID == "" {
		return ledger.TokenBalance{}, errors.Validation("holder id is required")
	}
	if delta == 0 {
		return ledger.TokenBalance{}, errors.Validation("amount must be non-zero")
	}
	bal, err := s.store.AdjustTokenBalance(ctx, holder, delta)
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientBalance) {
			return ledger.TokenBalance{}, errors.Validation("token balance cannot be negative")
		}
		return ledger.TokenBalance{}, errors.Internal("adjust tokens", err)
	}
	return bal, nil
}
