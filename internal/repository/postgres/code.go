package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"teamseat-backend/internal/domain"
	"teamseat-backend/internal/repository"
)

type codeRepository struct {
	q queryer
}

func NewCodeRepository(q queryer) repository.CodeRepository {
	return &codeRepository{q: q}
}

const codeColumns = `id, code, status, has_warranty, warranty_expires_at, used_by_email, used_team_id, used_at, created_on`

func scanCode(row *sql.Row) (*domain.RedemptionCode, error) {
	c := &domain.RedemptionCode{}
	err := row.Scan(&c.ID, &c.Code, &c.Status, &c.HasWarranty, &c.WarrantyExpiresAt,
		&c.UsedByEmail, &c.UsedTeamID, &c.UsedAt, &c.CreatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *codeRepository) GetByCode(ctx context.Context, code string) (*domain.RedemptionCode, error) {
	query := `SELECT ` + codeColumns + ` FROM redemption_codes WHERE code = $1`
	return scanCode(r.q.QueryRowContext(ctx, query, code))
}

func (r *codeRepository) GetByCodeForUpdate(ctx context.Context, code string) (*domain.RedemptionCode, error) {
	query := `SELECT ` + codeColumns + ` FROM redemption_codes WHERE code = $1 FOR UPDATE`
	return scanCode(r.q.QueryRowContext(ctx, query, code))
}

func (r *codeRepository) Create(ctx context.Context, c *domain.RedemptionCode) error {
	query := `INSERT INTO redemption_codes (code, status, has_warranty, warranty_expires_at, created_on)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	return r.q.QueryRowContext(ctx, query, c.Code, c.Status, c.HasWarranty, c.WarrantyExpiresAt, time.Now()).Scan(&c.ID)
}

func (r *codeRepository) Update(ctx context.Context, c *domain.RedemptionCode) error {
	query := `UPDATE redemption_codes
	          SET status = $1, warranty_expires_at = $2, used_by_email = $3, used_team_id = $4, used_at = $5
	          WHERE id = $6`
	_, err := r.q.ExecContext(ctx, query, c.Status, c.WarrantyExpiresAt, c.UsedByEmail, c.UsedTeamID, c.UsedAt, c.ID)
	return err
}
