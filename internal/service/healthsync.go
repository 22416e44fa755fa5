package service

import (
	"context"
	"log/slog"
	"time"

	"teamseat-backend/internal/domain"
	"teamseat-backend/internal/logger"
	"teamseat-backend/internal/repository"
)

// HealthChecker is the provider-side half of the health sync. Implemented by
// provider.Client.
type HealthChecker interface {
	FetchTeamHealth(ctx context.Context, accessToken, accountID string) (banned bool, err error)
}

type teamHealthSyncer struct {
	store   repository.Store
	vault   CredentialVault
	checker HealthChecker
	now     func() time.Time
	log     *slog.Logger
}

func NewTeamHealthSyncer(store repository.Store, vault CredentialVault, checker HealthChecker) TeamHealthSync {
	return &teamHealthSyncer{
		store:   store,
		vault:   vault,
		checker: checker,
		now:     time.Now,
		log:     logger.WithService("healthsync"),
	}
}

// Sync re-checks one team against the provider and persists the outcome. A
// broken credential marks the team error: a team we cannot talk to cannot
// serve its members either. Provider connectivity failures change nothing.
func (s *teamHealthSyncer) Sync(ctx context.Context, teamID int32) (*domain.Team, error) {
	team, err := s.store.Teams().GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	secret, err := s.vault.Decrypt(team.AccessTokenEncrypted)
	if err != nil {
		s.log.Warn("team credential unusable, marking error", "team_id", teamID, "error", err)
		return s.persist(ctx, teamID, func(t *domain.Team) {
			t.Status = domain.TeamStatusError
		})
	}

	banned, err := s.checker.FetchTeamHealth(ctx, secret, team.AccountID)
	if err != nil {
		return nil, err
	}

	return s.persist(ctx, teamID, func(t *domain.Team) {
		if banned {
			t.Status = domain.TeamStatusBanned
		} else if t.Status == domain.TeamStatusError {
			// Recovered: capacity decides whether it reopens.
			if t.HasCapacity() {
				t.Status = domain.TeamStatusActive
			} else {
				t.Status = domain.TeamStatusFull
			}
		}
	})
}

// persist applies fn to the row re-read under lock, then writes only status
// and last_sync. Seat counters belong to the redemption transactions; writing
// the unlocked snapshot back would silently undo a concurrent reservation.
func (s *teamHealthSyncer) persist(ctx context.Context, teamID int32, fn func(*domain.Team)) (*domain.Team, error) {
	var team *domain.Team
	err := s.store.ExecTx(ctx, func(st repository.TxStore) error {
		t, err := st.Teams().GetByIDForUpdate(ctx, teamID)
		if err != nil {
			return err
		}
		fn(t)
		now := s.now()
		t.LastSync = &now
		if err := st.Teams().UpdateStatus(ctx, t.ID, t.Status, t.LastSync); err != nil {
			return err
		}
		team = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}
