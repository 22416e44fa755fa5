package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"teamseat-backend/internal/repository"

	_ "github.com/lib/pq"
)

// queryer is the subset of *sql.DB and *sql.Tx the repositories need, so the
// same implementations serve plain reads and transactional locked reads.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type txStore struct {
	codes   repository.CodeRepository
	teams   repository.TeamRepository
	records repository.RecordRepository
}

func (s *txStore) Codes() repository.CodeRepository     { return s.codes }
func (s *txStore) Teams() repository.TeamRepository     { return s.teams }
func (s *txStore) Records() repository.RecordRepository { return s.records }

func newTxStore(q queryer) *txStore {
	return &txStore{
		codes:   NewCodeRepository(q),
		teams:   NewTeamRepository(q),
		records: NewRecordRepository(q),
	}
}

type Store struct {
	db *sql.DB
	*txStore
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, txStore: newTxStore(db)}
}

// ExecTx runs fn inside a transaction. Row locks taken by the ForUpdate
// lookups are held until the transaction ends. Any error from fn aborts the
// transaction, discarding all tentative writes.
func (s *Store) ExecTx(ctx context.Context, fn func(repository.TxStore) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(newTxStore(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %v, rollback err: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
