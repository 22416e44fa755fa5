package service

import (
	"context"

	"teamseat-backend/internal/domain"
	"teamseat-backend/internal/repository"
)

// selectTeamAuto picks the soonest-expiring team that still has capacity, so
// seats get used before the team lapses. Ties go to the lowest id. The
// ordering is the repository's contract.
func selectTeamAuto(ctx context.Context, teams repository.TeamRepository) (*domain.Team, error) {
	available, err := teams.ListAvailable(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list available teams", Err: err}
	}
	if len(available) == 0 {
		return nil, &domain.ValidationError{Reason: "no teams available"}
	}
	return &available[0], nil
}
