package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"teamseat-backend/internal/domain"
	"teamseat-backend/internal/repository"
)

type teamRepository struct {
	q queryer
}

func NewTeamRepository(q queryer) repository.TeamRepository {
	return &teamRepository{q: q}
}

const teamColumns = `id, name, account_id, email, status, current_members, max_members, expires_at, access_token_encrypted, last_sync, created_on`

func scanTeamRow(row *sql.Row) (*domain.Team, error) {
	t := &domain.Team{}
	err := row.Scan(&t.ID, &t.Name, &t.AccountID, &t.Email, &t.Status, &t.CurrentMembers,
		&t.MaxMembers, &t.ExpiresAt, &t.AccessTokenEncrypted, &t.LastSync, &t.CreatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *teamRepository) GetByID(ctx context.Context, id int32) (*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	return scanTeamRow(r.q.QueryRowContext(ctx, query, id))
}

func (r *teamRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1 FOR UPDATE`
	return scanTeamRow(r.q.QueryRowContext(ctx, query, id))
}

func (r *teamRepository) ListAvailable(ctx context.Context) ([]domain.Team, error) {
	// Soonest-expiring first so teams get filled before they lapse; id breaks
	// ties deterministically.
	query := `SELECT ` + teamColumns + ` FROM teams
	          WHERE status = $1 AND current_members < max_members
	          ORDER BY expires_at ASC NULLS LAST, id ASC`
	return r.listTeams(ctx, query, domain.TeamStatusActive)
}

func (r *teamRepository) ListByStatusNot(ctx context.Context, status string) ([]domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE status <> $1 ORDER BY id ASC`
	return r.listTeams(ctx, query, status)
}

func (r *teamRepository) listTeams(ctx context.Context, query string, args ...any) ([]domain.Team, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []domain.Team
	for rows.Next() {
		var t domain.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.AccountID, &t.Email, &t.Status, &t.CurrentMembers,
			&t.MaxMembers, &t.ExpiresAt, &t.AccessTokenEncrypted, &t.LastSync, &t.CreatedOn); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (r *teamRepository) UpdateStatus(ctx context.Context, id int32, status string, lastSync *time.Time) error {
	query := `UPDATE teams SET status = $1, last_sync = $2 WHERE id = $3`
	_, err := r.q.ExecContext(ctx, query, status, lastSync, id)
	return err
}

func (r *teamRepository) Update(ctx context.Context, t *domain.Team) error {
	query := `UPDATE teams
	          SET status = $1, current_members = $2, max_members = $3, expires_at = $4, last_sync = $5
	          WHERE id = $6`
	_, err := r.q.ExecContext(ctx, query, t.Status, t.CurrentMembers, t.MaxMembers, t.ExpiresAt, t.LastSync, t.ID)
	return err
}
