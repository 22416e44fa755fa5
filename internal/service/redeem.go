package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"teamseat-backend/internal/domain"
	"teamseat-backend/internal/logger"
	"teamseat-backend/internal/provider"
	"teamseat-backend/internal/repository"
)

type redemptionService struct {
	store    repository.Store
	vault    CredentialVault
	notifier InviteNotifier
	email    EmailService // optional
	now      func() time.Time
	log      *slog.Logger
}

func NewRedemptionService(store repository.Store, vault CredentialVault, notifier InviteNotifier, email EmailService) RedemptionService {
	return &redemptionService{
		store:    store,
		vault:    vault,
		notifier: notifier,
		email:    email,
		now:      time.Now,
		log:      logger.WithService("redemption"),
	}
}

func (s *redemptionService) VerifyCode(ctx context.Context, code string) (*VerifyResult, error) {
	if _, err := validateCode(ctx, s.store.Codes(), code, s.now()); err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return &VerifyResult{Valid: false, Reason: ve.Reason}, nil
		}
		return nil, err
	}

	available, err := s.store.Teams().ListAvailable(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list available teams", Err: err}
	}

	teams := make([]TeamInfo, 0, len(available))
	for _, t := range available {
		teams = append(teams, teamInfo(&t))
	}
	return &VerifyResult{Valid: true, Teams: teams}, nil
}

// reservation carries the phase-1 snapshot into phases 2 and 3 so they never
// have to re-read (and re-lock) the rows.
type reservation struct {
	teamID               int32
	teamName             string
	accountID            string
	expiresAt            *time.Time
	accessTokenEncrypted string
	isWarranty           bool
}

// Redeem implements the three-phase protocol: reserve under row locks, call
// the provider with no locks held, then finalize or compensate.
func (s *redemptionService) Redeem(ctx context.Context, email, code string, teamID *int32) (*RedeemResult, error) {
	var snap reservation

	// Phase 1: reserve inside one short transaction. Any error here aborts the
	// transaction, so no explicit compensation is needed yet.
	err := s.store.ExecTx(ctx, func(st repository.TxStore) error {
		rc, err := validateCode(ctx, st.Codes(), code, s.now())
		if err != nil {
			return err
		}

		targetID, err := s.resolveTeam(ctx, st, teamID)
		if err != nil {
			return err
		}

		// Lock order is always Team then Code. The rollback path takes the
		// same order; do not change one without the other.
		team, err := st.Teams().GetByIDForUpdate(ctx, targetID)
		if errors.Is(err, repository.ErrNotFound) {
			return &domain.ValidationError{Reason: fmt.Sprintf("team %d does not exist", targetID)}
		}
		if err != nil {
			return &domain.PersistenceError{Op: "lock team", Err: err}
		}

		if team.Status == domain.TeamStatusFull || !team.HasCapacity() {
			return &domain.ConflictError{Reason: "team is full, pick another team"}
		}
		if team.Status != domain.TeamStatusActive {
			return &domain.ValidationError{Reason: fmt.Sprintf("team is not accepting members (status %s)", team.Status)}
		}

		rc, err = st.Codes().GetByCodeForUpdate(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return &domain.ValidationError{Reason: "redemption code not found"}
		}
		if err != nil {
			return &domain.PersistenceError{Op: "lock redemption code", Err: err}
		}

		firstUse := rc.Status == domain.CodeStatusUnused
		if !firstUse {
			if !rc.HasWarranty {
				// A concurrent winner already consumed it.
				return &domain.ConflictError{Reason: "redemption code already consumed"}
			}
			decision, err := reuseAllowed(ctx, st, rc, email, s.now())
			if err != nil {
				return err
			}
			if !decision.CanReuse {
				return &domain.ConflictError{Reason: decision.Reason}
			}
		}

		now := s.now()
		if rc.HasWarranty {
			rc.Status = domain.CodeStatusWarrantyActive
			if firstUse {
				expires := now.Add(WarrantyGracePeriod)
				rc.WarrantyExpiresAt = &expires
			}
		} else {
			rc.Status = domain.CodeStatusUsed
		}
		rc.UsedByEmail = &email
		rc.UsedTeamID = &team.ID
		rc.UsedAt = &now
		if err := st.Codes().Update(ctx, rc); err != nil {
			return &domain.PersistenceError{Op: "update redemption code", Err: err}
		}

		team.CurrentMembers++
		if team.CurrentMembers >= team.MaxMembers {
			team.Status = domain.TeamStatusFull
		}
		if err := st.Teams().Update(ctx, team); err != nil {
			return &domain.PersistenceError{Op: "update team", Err: err}
		}

		snap = reservation{
			teamID:               team.ID,
			teamName:             team.Name,
			accountID:            team.AccountID,
			expiresAt:            team.ExpiresAt,
			accessTokenEncrypted: team.AccessTokenEncrypted,
			isWarranty:           rc.HasWarranty,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The reservation exists now. Phases 2 and 3 must run to completion even
	// if the caller's context ends, or the seat stays orphaned.
	ctx = context.WithoutCancel(ctx)

	// Phase 2: provider call, no locks held.
	secret, err := s.vault.Decrypt(snap.accessTokenEncrypted)
	if err != nil {
		s.rollback(ctx, code, snap.teamID)
		return nil, &domain.CredentialError{Err: err}
	}
	if err := provider.CheckTokenExpiry(secret, s.now()); err != nil {
		s.rollback(ctx, code, snap.teamID)
		return nil, &domain.CredentialError{Err: err}
	}

	if err := s.notifier.SendInvite(ctx, secret, snap.accountID, email); err != nil {
		s.log.Warn("invite failed, rolling back reservation", "code", code, "team_id", snap.teamID, "error", err)
		s.rollback(ctx, code, snap.teamID)
		return nil, &domain.ExternalServiceError{Service: "provider invite", Err: err}
	}

	// Phase 3: finalize with the immutable record.
	err = s.store.ExecTx(ctx, func(st repository.TxStore) error {
		return st.Records().Append(ctx, &domain.RedemptionRecord{
			Email:                email,
			Code:                 code,
			TeamID:               snap.teamID,
			AccountID:            snap.accountID,
			IsWarrantyRedemption: snap.isWarranty,
			RedeemedAt:           s.now(),
		})
	})
	if err != nil {
		s.rollback(ctx, code, snap.teamID)
		return nil, &domain.PersistenceError{Op: "append redemption record", Err: err}
	}

	s.log.Info("redemption succeeded", "email", email, "code", code, "team_id", snap.teamID)

	if s.email != nil {
		// Best effort; the seat is already confirmed.
		if err := s.email.SendRedemptionConfirmation(ctx, email, snap.teamName, snap.expiresAt); err != nil {
			s.log.Warn("confirmation email failed", "email", email, "error", err)
		}
	}

	return &RedeemResult{
		Message: fmt.Sprintf("joined team %s", snap.teamName),
		Team: TeamInfo{
			TeamID:    snap.teamID,
			TeamName:  snap.teamName,
			AccountID: snap.accountID,
			ExpiresAt: snap.expiresAt,
		},
	}, nil
}

func (s *redemptionService) resolveTeam(ctx context.Context, st repository.TxStore, teamID *int32) (int32, error) {
	if teamID != nil {
		return *teamID, nil
	}
	team, err := selectTeamAuto(ctx, st.Teams())
	if err != nil {
		return 0, err
	}
	return team.ID, nil
}

// rollback compensates a phase-1 reservation. It is idempotent: the team
// counter is only touched when this invocation actually reverted the code, so
// running it twice converges to the same state as running it once. Failures
// are logged and swallowed so they can never mask the original error.
func (s *redemptionService) rollback(ctx context.Context, code string, teamID int32) {
	err := s.store.ExecTx(ctx, func(st repository.TxStore) error {
		// Same lock order as the reserve path: Team then Code.
		team, err := st.Teams().GetByIDForUpdate(ctx, teamID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		rc, err := st.Codes().GetByCodeForUpdate(ctx, code)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		reverted := false
		if rc != nil {
			before := *rc
			if rc.HasWarranty {
				records, err := st.Records().ListByCode(ctx, rc.Code)
				if err != nil {
					return err
				}
				if len(records) > 0 {
					// The visible state must reflect the last confirmed
					// holder, never the in-flight attempt being undone.
					prior := records[0]
					rc.Status = domain.CodeStatusWarrantyActive
					rc.UsedByEmail = &prior.Email
					rc.UsedTeamID = &prior.TeamID
					rc.UsedAt = &prior.RedeemedAt
				} else {
					rc.Status = domain.CodeStatusUnused
					rc.WarrantyExpiresAt = nil
					rc.ClearAssignment()
				}
			} else {
				rc.Status = domain.CodeStatusUnused
				rc.ClearAssignment()
			}
			if !sameCodeState(&before, rc) {
				if err := st.Codes().Update(ctx, rc); err != nil {
					return err
				}
				reverted = true
			}
		}

		if team != nil && reverted {
			if team.CurrentMembers > 0 {
				team.CurrentMembers--
			}
			if team.Status == domain.TeamStatusFull && team.HasCapacity() {
				team.Status = domain.TeamStatusActive
			}
			if err := st.Teams().Update(ctx, team); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("rollback failed", "code", code, "team_id", teamID, "error", err)
		return
	}
	s.log.Info("reservation rolled back", "code", code, "team_id", teamID)
}

func sameCodeState(a, b *domain.RedemptionCode) bool {
	return a.Status == b.Status &&
		equalTime(a.WarrantyExpiresAt, b.WarrantyExpiresAt) &&
		equalStr(a.UsedByEmail, b.UsedByEmail) &&
		equalInt32(a.UsedTeamID, b.UsedTeamID) &&
		equalTime(a.UsedAt, b.UsedAt)
}

func equalStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalInt32(a, b *int32) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func teamInfo(t *domain.Team) TeamInfo {
	return TeamInfo{
		TeamID:    t.ID,
		TeamName:  t.Name,
		AccountID: t.AccountID,
		ExpiresAt: t.ExpiresAt,
	}
}
