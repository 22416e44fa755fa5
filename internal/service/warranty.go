package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"teamseat-backend/internal/domain"
	"teamseat-backend/internal/logger"
	"teamseat-backend/internal/ratelimit"
	"teamseat-backend/internal/repository"
)

type warrantyService struct {
	store   repository.Store
	health  TeamHealthSync
	limiter *ratelimit.Limiter
	now     func() time.Time
	log     *slog.Logger
}

func NewWarrantyService(store repository.Store, health TeamHealthSync, limiter *ratelimit.Limiter) WarrantyService {
	return &warrantyService{
		store:   store,
		health:  health,
		limiter: limiter,
		now:     time.Now,
		log:     logger.WithService("warranty"),
	}
}

// reuseAllowed is the warranty reuse policy, evaluated in strict order. It is
// shared between ValidateReuse (plain reads) and the orchestrator's phase-1
// check (tx-bound reads under lock).
func reuseAllowed(ctx context.Context, st repository.TxStore, rc *domain.RedemptionCode, email string, now time.Time) (*ReuseDecision, error) {
	if !rc.HasWarranty {
		return &ReuseDecision{CanReuse: false, Reason: "code is not warranty-backed"}, nil
	}
	if rc.WarrantyExpired(now) {
		return &ReuseDecision{CanReuse: false, Reason: "warranty has expired"}, nil
	}

	records, err := st.Records().ListByCodeAndEmail(ctx, rc.Code, email)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list redemption records", Err: err}
	}
	if len(records) == 0 {
		return &ReuseDecision{CanReuse: true, Reason: "first use"}, nil
	}

	// Still served by a live team? Then no second seat.
	hasFailedTeam := false
	for _, rec := range records {
		team, err := st.Teams().GetByID(ctx, rec.TeamID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, &domain.PersistenceError{Op: "get team", Err: err}
		}
		if (team.Status == domain.TeamStatusActive || team.Status == domain.TeamStatusFull) && !team.Expired(now) {
			return &ReuseDecision{
				CanReuse: false,
				Reason:   fmt.Sprintf("already served by team %s", team.Name),
			}, nil
		}
		if team.Failed() {
			hasFailedTeam = true
		}
	}

	if hasFailedTeam {
		return &ReuseDecision{CanReuse: true, Reason: "previous team failed, warranty applies"}, nil
	}
	return &ReuseDecision{CanReuse: false, Reason: "warranty does not cover ordinary team expiry"}, nil
}

func (s *warrantyService) ValidateReuse(ctx context.Context, code, email string) (*ReuseDecision, error) {
	rc, err := s.store.Codes().GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return &ReuseDecision{CanReuse: false, Reason: "redemption code not found"}, nil
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get redemption code", Err: err}
	}
	return reuseAllowed(ctx, s.store, rc, email, s.now())
}

// CheckStatus aggregates the warranty read side: resolve the code, re-check
// linked teams against the provider, report what is banned. Applies the
// per-key rate limit before touching storage.
func (s *warrantyService) CheckStatus(ctx context.Context, email, code string) (*WarrantyStatus, error) {
	if email == "" && code == "" {
		return nil, &domain.ValidationError{Reason: "an email or a code is required"}
	}

	key := ratelimit.Key{Kind: "code", Value: code}
	if email != "" {
		key = ratelimit.Key{Kind: "email", Value: email}
	}
	if ok, wait := s.limiter.Allow(key); !ok {
		return nil, &domain.RateLimitError{RetryAfterSeconds: int(math.Ceil(wait.Seconds()))}
	}

	rc, records, err := s.resolve(ctx, email, code)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return &WarrantyStatus{BannedTeams: []BannedTeam{}, Message: "no warranty code found"}, nil
	}
	if !rc.HasWarranty {
		return &WarrantyStatus{
			BannedTeams:  []BannedTeam{},
			OriginalCode: rc.Code,
			Message:      "code is not warranty-backed",
		}, nil
	}

	warrantyValid := !rc.WarrantyExpired(s.now())

	banned := []BannedTeam{}
	seen := make(map[int32]bool)
	for _, rec := range records {
		if seen[rec.TeamID] {
			continue
		}
		seen[rec.TeamID] = true

		team, err := s.store.Teams().GetByID(ctx, rec.TeamID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, &domain.PersistenceError{Op: "get team", Err: err}
		}

		if team.Status != domain.TeamStatusBanned {
			// Re-check against the provider before reporting; the sync
			// persists whatever it learns.
			synced, err := s.health.Sync(ctx, team.ID)
			if err != nil {
				s.log.Warn("team health sync failed", "team_id", team.ID, "error", err)
			} else {
				team = synced
			}
		}

		if team.Status == domain.TeamStatusBanned {
			banned = append(banned, BannedTeam{
				TeamID:   team.ID,
				TeamName: team.Name,
				Email:    team.Email,
				BannedAt: team.LastSync,
			})
		}
	}

	return &WarrantyStatus{
		HasWarranty:       true,
		WarrantyValid:     warrantyValid,
		WarrantyExpiresAt: rc.WarrantyExpiresAt,
		BannedTeams:       banned,
		CanReuse:          warrantyValid && len(banned) > 0,
		OriginalCode:      rc.Code,
	}, nil
}

// resolve finds the warranty code and its redemption history from either a
// code or an email. With only an email, the first record whose code is
// warranty-backed wins.
func (s *warrantyService) resolve(ctx context.Context, email, code string) (*domain.RedemptionCode, []domain.RedemptionRecord, error) {
	if code != "" {
		rc, err := s.store.Codes().GetByCode(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, nil
		}
		if err != nil {
			return nil, nil, &domain.PersistenceError{Op: "get redemption code", Err: err}
		}
		records, err := s.store.Records().ListByCode(ctx, code)
		if err != nil {
			return nil, nil, &domain.PersistenceError{Op: "list redemption records", Err: err}
		}
		return rc, records, nil
	}

	records, err := s.store.Records().ListByEmail(ctx, email)
	if err != nil {
		return nil, nil, &domain.PersistenceError{Op: "list redemption records", Err: err}
	}
	for _, rec := range records {
		rc, err := s.store.Codes().GetByCode(ctx, rec.Code)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, &domain.PersistenceError{Op: "get redemption code", Err: err}
		}
		if rc.HasWarranty {
			return rc, records, nil
		}
	}
	return nil, records, nil
}
