package service

import (
	"context"
	"time"

	"teamseat-backend/internal/domain"
	"teamseat-backend/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockCodeRepo
type MockCodeRepo struct {
	mock.Mock
}

func (m *MockCodeRepo) GetByCode(ctx context.Context, code string) (*domain.RedemptionCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RedemptionCode), args.Error(1)
}
func (m *MockCodeRepo) GetByCodeForUpdate(ctx context.Context, code string) (*domain.RedemptionCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RedemptionCode), args.Error(1)
}
func (m *MockCodeRepo) Create(ctx context.Context, code *domain.RedemptionCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}
func (m *MockCodeRepo) Update(ctx context.Context, code *domain.RedemptionCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

// MockTeamRepo
type MockTeamRepo struct {
	mock.Mock
}

func (m *MockTeamRepo) GetByID(ctx context.Context, id int32) (*domain.Team, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Team), args.Error(1)
}
func (m *MockTeamRepo) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Team, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Team), args.Error(1)
}
func (m *MockTeamRepo) ListAvailable(ctx context.Context) ([]domain.Team, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Team), args.Error(1)
}
func (m *MockTeamRepo) ListByStatusNot(ctx context.Context, status string) ([]domain.Team, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Team), args.Error(1)
}
func (m *MockTeamRepo) Update(ctx context.Context, team *domain.Team) error {
	args := m.Called(ctx, team)
	return args.Error(0)
}
func (m *MockTeamRepo) UpdateStatus(ctx context.Context, id int32, status string, lastSync *time.Time) error {
	args := m.Called(ctx, id, status, lastSync)
	return args.Error(0)
}

// MockRecordRepo
type MockRecordRepo struct {
	mock.Mock
}

func (m *MockRecordRepo) Append(ctx context.Context, rec *domain.RedemptionRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}
func (m *MockRecordRepo) ListByCode(ctx context.Context, code string) ([]domain.RedemptionRecord, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RedemptionRecord), args.Error(1)
}
func (m *MockRecordRepo) ListByCodeAndEmail(ctx context.Context, code, email string) ([]domain.RedemptionRecord, error) {
	args := m.Called(ctx, code, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RedemptionRecord), args.Error(1)
}
func (m *MockRecordRepo) ListByEmail(ctx context.Context, email string) ([]domain.RedemptionRecord, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RedemptionRecord), args.Error(1)
}

// mockStore satisfies repository.Store; ExecTx just runs fn against the same
// repositories, which is enough for service-level tests.
type mockStore struct {
	codes   *MockCodeRepo
	teams   *MockTeamRepo
	records *MockRecordRepo
}

func newMockStore() *mockStore {
	return &mockStore{
		codes:   new(MockCodeRepo),
		teams:   new(MockTeamRepo),
		records: new(MockRecordRepo),
	}
}

func (s *mockStore) Codes() repository.CodeRepository     { return s.codes }
func (s *mockStore) Teams() repository.TeamRepository     { return s.teams }
func (s *mockStore) Records() repository.RecordRepository { return s.records }
func (s *mockStore) ExecTx(ctx context.Context, fn func(repository.TxStore) error) error {
	return fn(s)
}

func (s *mockStore) assertExpectations(t mock.TestingT) {
	s.codes.AssertExpectations(t)
	s.teams.AssertExpectations(t)
	s.records.AssertExpectations(t)
}

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendInvite(ctx context.Context, accessToken, accountID, email string) error {
	args := m.Called(ctx, accessToken, accountID, email)
	return args.Error(0)
}

// MockVault
type MockVault struct {
	mock.Mock
}

func (m *MockVault) Decrypt(ciphertext string) (string, error) {
	args := m.Called(ciphertext)
	return args.String(0), args.Error(1)
}

// MockHealthSync
type MockHealthSync struct {
	mock.Mock
}

func (m *MockHealthSync) Sync(ctx context.Context, teamID int32) (*domain.Team, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Team), args.Error(1)
}

// MockEmail
type MockEmail struct {
	mock.Mock
}

func (m *MockEmail) SendRedemptionConfirmation(ctx context.Context, email, teamName string, expiresAt *time.Time) error {
	args := m.Called(ctx, email, teamName, expiresAt)
	return args.Error(0)
}

// MockHealthChecker
type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) FetchTeamHealth(ctx context.Context, accessToken, accountID string) (bool, error) {
	args := m.Called(ctx, accessToken, accountID)
	return args.Bool(0), args.Error(1)
}
