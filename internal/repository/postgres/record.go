package postgres

import (
	"context"
	"time"

	"teamseat-backend/internal/domain"
	"teamseat-backend/internal/repository"
)

type recordRepository struct {
	q queryer
}

func NewRecordRepository(q queryer) repository.RecordRepository {
	return &recordRepository{q: q}
}

const recordColumns = `id, email, code, team_id, account_id, is_warranty_redemption, redeemed_at`

func (r *recordRepository) Append(ctx context.Context, rec *domain.RedemptionRecord) error {
	if rec.RedeemedAt.IsZero() {
		rec.RedeemedAt = time.Now()
	}
	query := `INSERT INTO redemption_records (email, code, team_id, account_id, is_warranty_redemption, redeemed_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	return r.q.QueryRowContext(ctx, query, rec.Email, rec.Code, rec.TeamID, rec.AccountID,
		rec.IsWarrantyRedemption, rec.RedeemedAt).Scan(&rec.ID)
}

func (r *recordRepository) ListByCode(ctx context.Context, code string) ([]domain.RedemptionRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM redemption_records WHERE code = $1 ORDER BY redeemed_at DESC, id DESC`
	return r.listRecords(ctx, query, code)
}

func (r *recordRepository) ListByCodeAndEmail(ctx context.Context, code, email string) ([]domain.RedemptionRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM redemption_records WHERE code = $1 AND email = $2 ORDER BY redeemed_at DESC, id DESC`
	return r.listRecords(ctx, query, code, email)
}

func (r *recordRepository) ListByEmail(ctx context.Context, email string) ([]domain.RedemptionRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM redemption_records WHERE email = $1 ORDER BY redeemed_at DESC, id DESC`
	return r.listRecords(ctx, query, email)
}

func (r *recordRepository) listRecords(ctx context.Context, query string, args ...any) ([]domain.RedemptionRecord, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.RedemptionRecord
	for rows.Next() {
		var rec domain.RedemptionRecord
		if err := rows.Scan(&rec.ID, &rec.Email, &rec.Code, &rec.TeamID, &rec.AccountID,
			&rec.IsWarrantyRedemption, &rec.RedeemedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
