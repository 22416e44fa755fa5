package repository

import (
	"context"
	"errors"
	"time"

	"teamseat-backend/internal/domain"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("not found")

type CodeRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.RedemptionCode, error)
	// GetByCodeForUpdate acquires a row-level exclusive lock. Only meaningful
	// inside a transaction obtained through Store.ExecTx.
	GetByCodeForUpdate(ctx context.Context, code string) (*domain.RedemptionCode, error)
	Create(ctx context.Context, code *domain.RedemptionCode) error
	Update(ctx context.Context, code *domain.RedemptionCode) error
}

type TeamRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Team, error)
	// GetByIDForUpdate acquires a row-level exclusive lock. Lock order across
	// entities is always Team before Code.
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.Team, error)
	// ListAvailable returns active teams with spare capacity, soonest-expiring
	// first, ties broken by lowest id.
	ListAvailable(ctx context.Context) ([]domain.Team, error)
	ListByStatusNot(ctx context.Context, status string) ([]domain.Team, error)
	Update(ctx context.Context, team *domain.Team) error
	// UpdateStatus writes only status and last_sync. Seat counters are owned
	// by the redemption paths and must never be written from a health check.
	UpdateStatus(ctx context.Context, id int32, status string, lastSync *time.Time) error
}

type RecordRepository interface {
	Append(ctx context.Context, rec *domain.RedemptionRecord) error
	// ListByCode returns records newest first.
	ListByCode(ctx context.Context, code string) ([]domain.RedemptionRecord, error)
	// ListByCodeAndEmail returns records newest first.
	ListByCodeAndEmail(ctx context.Context, code, email string) ([]domain.RedemptionRecord, error)
	ListByEmail(ctx context.Context, email string) ([]domain.RedemptionRecord, error)
}

// TxStore groups the repositories bound to one connection or transaction.
type TxStore interface {
	Codes() CodeRepository
	Teams() TeamRepository
	Records() RecordRepository
}

// Store is the root storage handle. ExecTx runs fn inside a database
// transaction; fn's repositories see uncommitted writes and hold any row
// locks they take until commit or rollback.
type Store interface {
	TxStore
	ExecTx(ctx context.Context, fn func(TxStore) error) error
}
