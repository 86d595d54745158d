// Package points manages the non-transferable impact point ledger that
// gates voting eligibility.
package points

import (
	"context"

	"github.com/ujamaadao/backend/internal/app/domain/ledger"
	"github.com/ujamaadao/backend/internal/app/storage"
	"github.com/ujamaadao/backend/internal/errors"
	"github.com/ujamaadao/backend/pkg/logger"
)

// Service wraps a PointStore with validation and error mapping.
type Service struct {
	store storage.PointStore
	log   *logger.Logger
}

// New creates the impact point service.
func New(store storage.PointStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("points")
	}
	return &Service{store: store, log: log}
}

// Points reports the holder's total for a location scope, zero when no row
// exists.
func (s *Service) Points(ctx context.Context, holder ledger.Holder, locationScope string) (ledger.ImpactPoint, error) {
	if holder.ID == "" {
		return ledger.ImpactPoint{}, errors.Validation("holder id is required")
	}
	pt, err := s.store.GetImpactPoints(ctx, holder, locationScope)
	if err != nil {
		return ledger.ImpactPoint{}, errors.Internal("read impact points", err)
	}
	return pt, nil
}

// Add applies a signed delta to the holder's points. A delta that would push
// the total negative is a validation failure.
func (s *Service) Add(ctx context.Context, holder ledger.Holder, locationScope string, delta int64) (ledger.ImpactPoint, error) {
	if holder.ID == "" {
		return ledger.ImpactPoint{}, errors.Validation("holder id is required")
	}
	if delta == 0 {
		return ledger.ImpactPoint{}, errors.Validation("points must be non-zero")
	}
	pt, err := s.store.AdjustImpactPoints(ctx, holder, locationScope, delta)
	if err != nil {
		if errors.Is(err, storage.ErrNegativePoints) {
			return ledger.ImpactPoint{}, errors.Validation("impact points cannot be negative")
		}
		return ledger.ImpactPoint{}, errors.Internal("adjust impact points", err)
	}
	s.log.WithFields(map[string]interface{}{"holder": holder.String(), "delta": delta}).Debug("impact points adjusted")
	return pt, nil
}
