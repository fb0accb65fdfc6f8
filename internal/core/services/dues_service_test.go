package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/campusbooks/fee_ledger_app/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalPendingDues_NetSumIncludesAdvances(t *testing.T) {
	ctx := context.Background()
	duesRepo := new(MockDuesRepository)
	svc := services.NewDuesService(duesRepo)

	// One student owes 7000, another holds a 3000 advance. The aggregate is
	// the net receivable 4000, not the 7000 sum of positive balances.
	duesRepo.On("TotalPendingDues", ctx).Return(decimal.NewFromInt(4000), nil).Once()

	total, err := svc.TotalPendingDues(ctx)

	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(4000)))
	duesRepo.AssertExpectations(t)
}

func TestTotalPendingDues_RepoError(t *testing.T) {
	ctx := context.Background()
	duesRepo := new(MockDuesRepository)
	svc := services.NewDuesService(duesRepo)

	repoErr := errors.New("connection refused")
	duesRepo.On("TotalPendingDues", ctx).Return(decimal.Zero, repoErr).Once()

	_, err := svc.TotalPendingDues(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, repoErr)
}

func TestStudentIDsWithDues(t *testing.T) {
	ctx := context.Background()
	duesRepo := new(MockDuesRepository)
	svc := services.NewDuesService(duesRepo)

	duesRepo.On("StudentIDsWithDues", ctx).Return([]string{"STU-1001", "STU-1002"}, nil).Once()

	studentIDs, err := svc.StudentIDsWithDues(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"STU-1001", "STU-1002"}, studentIDs)
}

func TestStudentIDsWithDues_Empty(t *testing.T) {
	ctx := context.Background()
	duesRepo := new(MockDuesRepository)
	svc := services.NewDuesService(duesRepo)

	duesRepo.On("StudentIDsWithDues", ctx).Return([]string{}, nil).Once()

	studentIDs, err := svc.StudentIDsWithDues(ctx)

	require.NoError(t, err)
	assert.Empty(t, studentIDs)
}

func TestHasFeeChargeEntries(t *testing.T) {
	ctx := context.Background()
	duesRepo := new(MockDuesRepository)
	svc := services.NewDuesService(duesRepo)

	duesRepo.On("HasFeeChargeEntries", ctx, "STU-1001", "2025-26").Return(true, nil).Once()
	duesRepo.On("HasFeeChargeEntries", ctx, "STU-1001", "2026-27").Return(false, nil).Once()

	exists, err := svc.HasFeeChargeEntries(ctx, "STU-1001", "2025-26")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.HasFeeChargeEntries(ctx, "STU-1001", "2026-27")
	require.NoError(t, err)
	assert.False(t, exists)
}
