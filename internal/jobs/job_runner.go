package jobs

import (
	"context"

	"teamseat-backend/internal/config"
	"teamseat-backend/internal/domain"
	"teamseat-backend/internal/logger"
	"teamseat-backend/internal/repository"
	"teamseat-backend/internal/service"
)

// JobRunner coordinates the scheduled maintenance jobs.
type JobRunner struct {
	store  repository.Store
	health service.TeamHealthSync
	config *config.Config
}

func NewJobRunner(store repository.Store, health service.TeamHealthSync, cfg *config.Config) *JobRunner {
	return &JobRunner{
		store:  store,
		health: health,
		config: cfg,
	}
}

// Config exposes the configuration for schedule registration.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// SyncTeamHealth re-checks every non-banned team against the provider so
// warranty queries and the selector see fresh statuses. Banned is terminal;
// those teams are skipped.
func (jr *JobRunner) SyncTeamHealth() {
	jr.runWithRecovery("SyncTeamHealth", func() {
		ctx := context.Background()

		teams, err := jr.store.Teams().ListByStatusNot(ctx, domain.TeamStatusBanned)
		if err != nil {
			logger.Error("Failed to list teams for health sync", "error", err)
			return
		}

		var synced, failed int
		for _, t := range teams {
			if _, err := jr.health.Sync(ctx, t.ID); err != nil {
				logger.Warn("Team health sync failed", "team_id", t.ID, "error", err)
				failed++
				continue
			}
			synced++
		}
		logger.Info("Team health sweep done", "synced", synced, "failed", failed)
	})
}

// ReleaseFullTeams re-opens teams marked full whose membership dropped back
// below capacity through out-of-band changes (manual seat removal, support
// interventions). The redeem and rollback paths keep the flag consistent on
// their own; this sweep catches everything else.
func (jr *JobRunner) ReleaseFullTeams() {
	jr.runWithRecovery("ReleaseFullTeams", func() {
		ctx := context.Background()

		teams, err := jr.store.Teams().ListByStatusNot(ctx, domain.TeamStatusBanned)
		if err != nil {
			logger.Error("Failed to list teams for release sweep", "error", err)
			return
		}

		var reopened int
		for i := range teams {
			if teams[i].Status != domain.TeamStatusFull {
				continue
			}
			// Re-check under lock: the listing snapshot may be stale by the
			// time we get here, and only the locked row's counter counts.
			id := teams[i].ID
			err := jr.store.ExecTx(ctx, func(st repository.TxStore) error {
				t, err := st.Teams().GetByIDForUpdate(ctx, id)
				if err != nil {
					return err
				}
				if t.Status != domain.TeamStatusFull || !t.HasCapacity() {
					return nil
				}
				if err := st.Teams().UpdateStatus(ctx, t.ID, domain.TeamStatusActive, t.LastSync); err != nil {
					return err
				}
				reopened++
				return nil
			})
			if err != nil {
				logger.Warn("Failed to reopen team", "team_id", id, "error", err)
			}
		}
		logger.Info("Release sweep done", "reopened", reopened)
	})
}
