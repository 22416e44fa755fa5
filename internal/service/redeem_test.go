package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"teamseat-backend/internal/domain"
	"teamseat-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newRedemptionForTest(store *mockStore, vault *MockVault, notifier *MockNotifier, email EmailService) *redemptionService {
	s := NewRedemptionService(store, vault, notifier, email).(*redemptionService)
	s.now = func() time.Time { return testNow }
	return s
}

func activeTeam(id int32, members, cap int32) *domain.Team {
	expires := testNow.Add(20 * 24 * time.Hour)
	return &domain.Team{
		ID:                   id,
		Name:                 "team-a",
		AccountID:            "acct-1",
		Status:               domain.TeamStatusActive,
		CurrentMembers:       members,
		MaxMembers:           cap,
		ExpiresAt:            &expires,
		AccessTokenEncrypted: "enc-token",
	}
}

func unusedCode(code string, warranty bool) *domain.RedemptionCode {
	return &domain.RedemptionCode{
		ID:          1,
		Code:        code,
		Status:      domain.CodeStatusUnused,
		HasWarranty: warranty,
	}
}

func teamIDPtr(id int32) *int32 { return &id }

func TestRedeem_Success(t *testing.T) {
	store := newMockStore()
	vault := new(MockVault)
	notifier := new(MockNotifier)
	svc := newRedemptionForTest(store, vault, notifier, nil)
	ctx := context.Background()

	code := unusedCode("CODE1", false)
	team := activeTeam(7, 2, 5)

	store.codes.On("GetByCode", ctx, "CODE1").Return(code, nil)
	store.teams.On("GetByIDForUpdate", ctx, int32(7)).Return(team, nil)
	store.codes.On("GetByCodeForUpdate", ctx, "CODE1").Return(code, nil)
	store.codes.On("Update", mock.Anything, code).Return(nil)
	store.teams.On("Update", mock.Anything, team).Return(nil)
	vault.On("Decrypt", "enc-token").Return("secret-token", nil)
	notifier.On("SendInvite", mock.Anything, "secret-token", "acct-1", "a@x.com").Return(nil)
	store.records.On("Append", mock.Anything, mock.MatchedBy(func(rec *domain.RedemptionRecord) bool {
		return rec.Email == "a@x.com" && rec.Code == "CODE1" && rec.TeamID == 7 && !rec.IsWarrantyRedemption
	})).Return(nil)

	result, err := svc.Redeem(ctx, "a@x.com", "CODE1", teamIDPtr(7))
	require.NoError(t, err)
	assert.Equal(t, int32(7), result.Team.TeamID)

	assert.Equal(t, domain.CodeStatusUsed, code.Status)
	require.NotNil(t, code.UsedByEmail)
	assert.Equal(t, "a@x.com", *code.UsedByEmail)
	assert.Nil(t, code.WarrantyExpiresAt)
	assert.Equal(t, int32(3), team.CurrentMembers)
	assert.Equal(t, domain.TeamStatusActive, team.Status)

	store.assertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestRedeem_WarrantyFirstUse(t *testing.T) {
	store := newMockStore()
	vault := new(MockVault)
	notifier := new(MockNotifier)
	svc := newRedemptionForTest(store, vault, notifier, nil)
	ctx := context.Background()

	code := unusedCode("WCODE", true)
	team := activeTeam(7, 4, 5)

	store.codes.On("GetByCode", ctx, "WCODE").Return(code, nil)
	store.teams.On("GetByIDForUpdate", ctx, int32(7)).Return(team, nil)
	store.codes.On("GetByCodeForUpdate", ctx, "WCODE").Return(code, nil)
	store.codes.On("Update", mock.Anything, code).Return(nil)
	store.teams.On("Update", mock.Anything, team).Return(nil)
	vault.On("Decrypt", "enc-token").Return("secret-token", nil)
	notifier.On("SendInvite", mock.Anything, "secret-token", "acct-1", "a@x.com").Return(nil)
	store.records.On("Append", mock.Anything, mock.MatchedBy(func(rec *domain.RedemptionRecord) bool {
		return rec.IsWarrantyRedemption
	})).Return(nil)

	_, err := svc.Redeem(ctx, "a@x.com", "WCODE", teamIDPtr(7))
	require.NoError(t, err)

	assert.Equal(t, domain.CodeStatusWarrantyActive, code.Status)
	require.NotNil(t, code.WarrantyExpiresAt)
	assert.Equal(t, testNow.Add(WarrantyGracePeriod), *code.WarrantyExpiresAt)

	// Last seat taken: team flips to full.
	assert.Equal(t, int32(5), team.CurrentMembers)
	assert.Equal(t, domain.TeamStatusFull, team.Status)
}

func TestRedeem_AutoSelectsSoonestExpiring(t *testing.T) {
	store := newMockStore()
	vault := new(MockVault)
	notifier := new(MockNotifier)
	svc := newRedemptionForTest(store, vault, notifier, nil)
	ctx := context.Background()

	code := unusedCode("CODE1", false)
	soon := *activeTeam(2, 1, 5)
	later := *activeTeam(9, 1, 5)
	team := activeTeam(2, 1, 5)

	store.codes.On("GetByCode", ctx, "CODE1").Return(code, nil)
	// The repository contract puts the soonest-expiring team first.
	store.teams.On("ListAvailable", ctx).Return([]domain.Team{soon, later}, nil)
	store.teams.On("GetByIDForUpdate", ctx, int32(2)).Return(team, nil)
	store.codes.On("GetByCodeForUpdate", ctx, "CODE1").Return(code, nil)
	store.codes.On("Update", mock.Anything, code).Return(nil)
	store.teams.On("Update", mock.Anything, team).Return(nil)
	vault.On("Decrypt", "enc-token").Return("secret-token", nil)
	notifier.On("SendInvite", mock.Anything, "secret-token", "acct-1", "a@x.com").Return(nil)
	store.records.On("Append", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Redeem(ctx, "a@x.com", "CODE1", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), result.Team.TeamID)
}

func TestRedeem_NoTeamsAvailable(t *testing.T) {
	store := newMockStore()
	svc := newRedemptionForTest(store, new(MockVault), new(MockNotifier), nil)
	ctx := context.Background()

	store.codes.On("GetByCode", ctx, "CODE1").Return(unusedCode("CODE1", false), nil)
	store.teams.On("ListAvailable", ctx).Return([]domain.Team{}, nil)

	_, err := svc.Redeem(ctx, "a@x.com", "CODE1", nil)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestRedeem_TeamFullConflict(t *testing.T) {
	store := newMockStore()
	svc := newRedemptionForTest(store, new(MockVault), new(MockNotifier), nil)
	ctx := context.Background()

	team := activeTeam(7, 5, 5)
	store.codes.On("GetByCode", ctx, "CODE1").Return(unusedCode("CODE1", false), nil)
	store.teams.On("GetByIDForUpdate", ctx, int32(7)).Return(team, nil)

	_, err := svc.Redeem(ctx, "a@x.com", "CODE1", teamIDPtr(7))
	var ce *domain.ConflictError
	require.ErrorAs(t, err, &ce)

	// Nothing was reserved, nothing mutated.
	assert.Equal(t, int32(5), team.CurrentMembers)
	store.codes.AssertNotCalled(t, "GetByCodeForUpdate", mock.Anything, mock.Anything)
}

func TestRedeem_ConcurrentWinnerTookCode(t *testing.T) {
	store := newMockStore()
	svc := newRedemptionForTest(store, new(MockVault), new(MockNotifier), nil)
	ctx := context.Background()

	// Valid at the pre-check, consumed by someone else by the time the lock
	// is acquired.
	fresh := unusedCode("CODE1", false)
	email := "b@x.com"
	taken := &domain.RedemptionCode{ID: 1, Code: "CODE1", Status: domain.CodeStatusUsed, UsedByEmail: &email}
	team := activeTeam(7, 2, 5)

	store.codes.On("GetByCode", ctx, "CODE1").Return(fresh, nil)
	store.teams.On("GetByIDForUpdate", ctx, int32(7)).Return(team, nil)
	store.codes.On("GetByCodeForUpdate", ctx, "CODE1").Return(taken, nil)

	_, err := svc.Redeem(ctx, "a@x.com", "CODE1", teamIDPtr(7))
	var ce *domain.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, int32(2), team.CurrentMembers)
}

func TestRedeem_CodeNotFound(t *testing.T) {
	store := newMockStore()
	svc := newRedemptionForTest(store, new(MockVault), new(MockNotifier), nil)
	ctx := context.Background()

	store.codes.On("GetByCode", ctx, "NOPE").Return(nil, repository.ErrNotFound)

	_, err := svc.Redeem(ctx, "a@x.com", "NOPE", teamIDPtr(7))
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestRedeem_NotifierFailureRollsBack(t *testing.T) {
	store := newMockStore()
	vault := new(MockVault)
	notifier := new(MockNotifier)
	svc := newRedemptionForTest(store, vault, notifier, nil)
	ctx := context.Background()

	code := unusedCode("CODE1", false)
	team := activeTeam(7, 2, 5)

	store.codes.On("GetByCode", ctx, "CODE1").Return(code, nil)
	store.teams.On("GetByIDForUpdate", mock.Anything, int32(7)).Return(team, nil)
	store.codes.On("GetByCodeForUpdate", mock.Anything, "CODE1").Return(code, nil)
	store.codes.On("Update", mock.Anything, code).Return(nil)
	store.teams.On("Update", mock.Anything, team).Return(nil)
	vault.On("Decrypt", "enc-token").Return("secret-token", nil)
	notifier.On("SendInvite", mock.Anything, "secret-token", "acct-1", "a@x.com").Return(errors.New("provider down"))

	_, err := svc.Redeem(ctx, "a@x.com", "CODE1", teamIDPtr(7))
	var ee *domain.ExternalServiceError
	require.ErrorAs(t, err, &ee)

	// Everything back to pre-attempt values.
	assert.Equal(t, domain.CodeStatusUnused, code.Status)
	assert.Nil(t, code.UsedByEmail)
	assert.Nil(t, code.UsedTeamID)
	assert.Nil(t, code.UsedAt)
	assert.Equal(t, int32(2), team.CurrentMembers)
	assert.Equal(t, domain.TeamStatusActive, team.Status)

	store.records.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestRedeem_DecryptFailureRollsBack(t *testing.T) {
	store := newMockStore()
	vault := new(MockVault)
	svc := newRedemptionForTest(store, vault, new(MockNotifier), nil)
	ctx := context.Background()

	code := unusedCode("CODE1", false)
	team := activeTeam(7, 2, 5)

	store.codes.On("GetByCode", ctx, "CODE1").Return(code, nil)
	store.teams.On("GetByIDForUpdate", mock.Anything, int32(7)).Return(team, nil)
	store.codes.On("GetByCodeForUpdate", mock.Anything, "CODE1").Return(code, nil)
	store.codes.On("Update", mock.Anything, code).Return(nil)
	store.teams.On("Update", mock.Anything, team).Return(nil)
	vault.On("Decrypt", "enc-token").Return("", errors.New("bad key"))

	_, err := svc.Redeem(ctx, "a@x.com", "CODE1", teamIDPtr(7))
	var ce *domain.CredentialError
	require.ErrorAs(t, err, &ce)

	assert.Equal(t, domain.CodeStatusUnused, code.Status)
	assert.Equal(t, int32(2), team.CurrentMembers)
}

func TestRedeem_WarrantyRollbackRestoresPriorHolder(t *testing.T) {
	store := newMockStore()
	vault := new(MockVault)
	notifier := new(MockNotifier)
	svc := newRedemptionForTest(store, vault, notifier, nil)
	ctx := context.Background()

	priorAt := testNow.Add(-10 * 24 * time.Hour)
	priorEmail := "a@x.com"
	priorTeam := int32(3)
	code := &domain.RedemptionCode{
		ID:          1,
		Code:        "WCODE",
		Status:      domain.CodeStatusWarrantyActive,
		HasWarranty: true,
		UsedByEmail: &priorEmail,
		UsedTeamID:  &priorTeam,
		UsedAt:      &priorAt,
	}
	team := activeTeam(7, 2, 5)
	prior := domain.RedemptionRecord{Email: priorEmail, Code: "WCODE", TeamID: priorTeam, RedeemedAt: priorAt}

	store.codes.On("GetByCode", ctx, "WCODE").Return(code, nil)
	store.teams.On("GetByIDForUpdate", mock.Anything, int32(7)).Return(team, nil)
	store.codes.On("GetByCodeForUpdate", mock.Anything, "WCODE").Return(code, nil)
	// Reuse policy: b@x.com never used this code before.
	store.records.On("ListByCodeAndEmail", mock.Anything, "WCODE", "b@x.com").Return([]domain.RedemptionRecord{}, nil)
	store.codes.On("Update", mock.Anything, code).Return(nil)
	store.teams.On("Update", mock.Anything, team).Return(nil)
	vault.On("Decrypt", "enc-token").Return("secret-token", nil)
	notifier.On("SendInvite", mock.Anything, "secret-token", "acct-1", "b@x.com").Return(errors.New("provider down"))
	store.records.On("ListByCode", mock.Anything, "WCODE").Return([]domain.RedemptionRecord{prior}, nil)

	_, err := svc.Redeem(ctx, "b@x.com", "WCODE", teamIDPtr(7))
	require.Error(t, err)

	// The code's visible state reflects the last confirmed holder, not the
	// failed in-flight attempt.
	assert.Equal(t, domain.CodeStatusWarrantyActive, code.Status)
	assert.Equal(t, "a@x.com", *code.UsedByEmail)
	assert.Equal(t, int32(3), *code.UsedTeamID)
	assert.True(t, priorAt.Equal(*code.UsedAt))
	assert.Equal(t, int32(2), team.CurrentMembers)
}

func TestRollback_Idempotent(t *testing.T) {
	store := newMockStore()
	svc := newRedemptionForTest(store, new(MockVault), new(MockNotifier), nil)
	ctx := context.Background()

	// A failed in-flight warranty reuse: code stamped with the attempt, team
	// counter already incremented.
	attemptAt := testNow
	attemptEmail := "b@x.com"
	attemptTeam := int32(7)
	code := &domain.RedemptionCode{
		ID:          1,
		Code:        "WCODE",
		Status:      domain.CodeStatusWarrantyActive,
		HasWarranty: true,
		UsedByEmail: &attemptEmail,
		UsedTeamID:  &attemptTeam,
		UsedAt:      &attemptAt,
	}
	team := activeTeam(7, 3, 5)
	priorAt := testNow.Add(-10 * 24 * time.Hour)
	prior := domain.RedemptionRecord{Email: "a@x.com", Code: "WCODE", TeamID: 3, RedeemedAt: priorAt}

	store.teams.On("GetByIDForUpdate", mock.Anything, int32(7)).Return(team, nil)
	store.codes.On("GetByCodeForUpdate", mock.Anything, "WCODE").Return(code, nil)
	store.records.On("ListByCode", mock.Anything, "WCODE").Return([]domain.RedemptionRecord{prior}, nil)
	store.codes.On("Update", mock.Anything, code).Return(nil)
	store.teams.On("Update", mock.Anything, team).Return(nil)

	svc.rollback(ctx, "WCODE", 7)
	svc.rollback(ctx, "WCODE", 7)

	// Converged: second invocation found nothing left to revert.
	assert.Equal(t, "a@x.com", *code.UsedByEmail)
	assert.Equal(t, int32(2), team.CurrentMembers)
	store.codes.AssertNumberOfCalls(t, "Update", 1)
	store.teams.AssertNumberOfCalls(t, "Update", 1)
}

func TestVerifyCode(t *testing.T) {
	ctx := context.Background()

	t.Run("ValidListsTeams", func(t *testing.T) {
		store := newMockStore()
		svc := newRedemptionForTest(store, new(MockVault), new(MockNotifier), nil)

		store.codes.On("GetByCode", ctx, "CODE1").Return(unusedCode("CODE1", false), nil)
		store.teams.On("ListAvailable", ctx).Return([]domain.Team{*activeTeam(2, 1, 5)}, nil)

		result, err := svc.VerifyCode(ctx, "CODE1")
		require.NoError(t, err)
		assert.True(t, result.Valid)
		require.Len(t, result.Teams, 1)
		assert.Equal(t, int32(2), result.Teams[0].TeamID)
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newMockStore()
		svc := newRedemptionForTest(store, new(MockVault), new(MockNotifier), nil)

		store.codes.On("GetByCode", ctx, "NOPE").Return(nil, repository.ErrNotFound)

		result, err := svc.VerifyCode(ctx, "NOPE")
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, "redemption code not found", result.Reason)
	})

	t.Run("AlreadyConsumed", func(t *testing.T) {
		store := newMockStore()
		svc := newRedemptionForTest(store, new(MockVault), new(MockNotifier), nil)

		spent := unusedCode("SPENT", false)
		spent.Status = domain.CodeStatusUsed
		store.codes.On("GetByCode", ctx, "SPENT").Return(spent, nil)

		result, err := svc.VerifyCode(ctx, "SPENT")
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, "redemption code already consumed", result.Reason)
	})
}
