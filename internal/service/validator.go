package service

import (
	"context"
	"errors"
	"time"

	"teamseat-backend/internal/domain"
	"teamseat-backend/internal/repository"
)

// validateCode checks a code's existence, status and warranty expiry. Pure
// read, no side effects: the consumption decision happens later under lock,
// because validity can change between this check and the reservation.
func validateCode(ctx context.Context, codes repository.CodeRepository, code string, now time.Time) (*domain.RedemptionCode, error) {
	rc, err := codes.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &domain.ValidationError{Reason: "redemption code not found"}
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get redemption code", Err: err}
	}

	if rc.Status == domain.CodeStatusUnused {
		return rc, nil
	}

	// A consumed warranty code may still be redeemable; the policy check under
	// lock has the final say. Anything else is spent.
	if rc.HasWarranty && !rc.WarrantyExpired(now) {
		return rc, nil
	}

	return nil, &domain.ValidationError{Reason: "redemption code already consumed"}
}
