package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusbooks/fee_ledger_app/internal/apperrors"
	"github.com/campusbooks/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/campusbooks/fee_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/campusbooks/fee_ledger_app/internal/core/ports/services"
	"github.com/campusbooks/fee_ledger_app/internal/core/services"
	"github.com/campusbooks/fee_ledger_app/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock LedgerRepository ---
type MockLedgerRepository struct {
	mock.Mock
}

// Ensure MockLedgerRepository implements portsrepo.LedgerRepositoryFacade
var _ portsrepo.LedgerRepositoryFacade = (*MockLedgerRepository)(nil)

func (m *MockLedgerRepository) FindEntriesByStudent(ctx context.Context, studentID string, sessionID *string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	args := m.Called(ctx, studentID, sessionID, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.LedgerEntry), returnedNextToken, args.Error(2)
}

func (m *MockLedgerRepository) FindAllChronological(ctx context.Context, studentID string) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) FindLastEntry(ctx context.Context, studentID string) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) FindEntriesByReference(ctx context.Context, referenceType domain.ReferenceType, referenceID int64) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, referenceType, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) CurrentBalance(ctx context.Context, studentID string) (decimal.Decimal, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return decimal.Zero, args.Error(1)
	}
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedgerRepository) SaveEntries(ctx context.Context, entries []domain.LedgerEntry) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, entries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) MarkReversedByReference(ctx context.Context, referenceType domain.ReferenceType, referenceID int64, updatedBy string, updatedAt time.Time) (int64, error) {
	args := m.Called(ctx, referenceType, referenceID, updatedBy, updatedAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) UpdateEntryBalance(ctx context.Context, entryID int64, balance decimal.Decimal, updatedBy string, updatedAt time.Time) error {
	args := m.Called(ctx, entryID, balance, updatedBy, updatedAt)
	return args.Error(0)
}

func (m *MockLedgerRepository) RecomputeStudentBalances(ctx context.Context, studentID string, updatedBy string) (int64, error) {
	args := m.Called(ctx, studentID, updatedBy)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) DeleteEntriesForStudent(ctx context.Context, studentID string) (int64, error) {
	args := m.Called(ctx, studentID)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock DuesRepository ---
type MockDuesRepository struct {
	mock.Mock
}

var _ portsrepo.DuesReader = (*MockDuesRepository)(nil)

func (m *MockDuesRepository) SumDebits(ctx context.Context, studentID string) (decimal.Decimal, error) {
	args := m.Called(ctx, studentID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockDuesRepository) SumCredits(ctx context.Context, studentID string) (decimal.Decimal, error) {
	args := m.Called(ctx, studentID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockDuesRepository) SumCreditsForSession(ctx context.Context, studentID string, sessionID string) (decimal.Decimal, error) {
	args := m.Called(ctx, studentID, sessionID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockDuesRepository) TotalPendingDues(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockDuesRepository) StudentIDsWithDues(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDuesRepository) HasFeeChargeEntries(ctx context.Context, studentID string, sessionID string) (bool, error) {
	args := m.Called(ctx, studentID, sessionID)
	return args.Bool(0), args.Error(1)
}

// --- Mock BalanceNotifier ---
type MockBalanceNotifier struct {
	mock.Mock
}

func (m *MockBalanceNotifier) BalanceChanged(ctx context.Context, studentID string, balance decimal.Decimal) {
	m.Called(ctx, studentID, balance)
}

// --- Test Suite Setup ---
type LedgerServiceTestSuite struct {
	suite.Suite
	mockLedgerRepo *MockLedgerRepository
	mockDuesRepo   *MockDuesRepository
	mockNotifier   *MockBalanceNotifier
	service        portssvc.LedgerSvcFacade
	studentID      string
	sessionID      string
	userID         string
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	suite.mockLedgerRepo = new(MockLedgerRepository)
	suite.mockDuesRepo = new(MockDuesRepository)
	suite.mockNotifier = new(MockBalanceNotifier)
	suite.service = services.NewLedgerService(suite.mockLedgerRepo, suite.mockDuesRepo, suite.mockNotifier)

	suite.studentID = "STU-1001"
	suite.sessionID = "2025-26"
	suite.userID = "clerk-7"
}

func (suite *LedgerServiceTestSuite) feeChargeRequest(amount int64) dto.CreateLedgerEntryRequest {
	return dto.CreateLedgerEntryRequest{
		SessionID:     suite.sessionID,
		EntryDate:     time.Date(2025, 4, 1, 10, 30, 0, 0, time.UTC),
		Particulars:   "Annual tuition fee",
		EntryType:     domain.Debit,
		Amount:        decimal.NewFromInt(amount),
		ReferenceType: domain.RefFeeCharge,
		ReferenceID:   501,
	}
}

// --- Append ---

func (suite *LedgerServiceTestSuite) TestAppendEntry_Success() {
	ctx := context.Background()
	req := suite.feeChargeRequest(12000)

	saved := domain.LedgerEntry{
		EntryID:       1,
		StudentID:     suite.studentID,
		SessionID:     suite.sessionID,
		EntryDate:     time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EntryType:     domain.Debit,
		DebitAmount:   decimal.NewFromInt(12000),
		Balance:       decimal.NewFromInt(12000),
		ReferenceType: domain.RefFeeCharge,
		ReferenceID:   501,
	}

	suite.mockLedgerRepo.On("SaveEntries", ctx, mock.MatchedBy(func(entries []domain.LedgerEntry) bool {
		if len(entries) != 1 {
			return false
		}
		e := entries[0]
		// The service must truncate the entry date to the day and place the
		// amount on the debit side.
		return e.StudentID == suite.studentID &&
			e.EntryDate.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) &&
			e.DebitAmount.Equal(decimal.NewFromInt(12000)) &&
			e.CreditAmount.IsZero() &&
			e.CreatedBy == suite.userID
	})).Return([]domain.LedgerEntry{saved}, nil).Once()
	suite.mockLedgerRepo.On("CurrentBalance", ctx, suite.studentID).Return(decimal.NewFromInt(12000), nil).Once()
	suite.mockNotifier.On("BalanceChanged", ctx, suite.studentID, decimal.NewFromInt(12000)).Once()

	entry, err := suite.service.AppendEntry(ctx, suite.studentID, req, suite.userID)

	suite.Require().NoError(err)
	suite.Equal(int64(1), entry.EntryID)
	suite.True(entry.Balance.Equal(decimal.NewFromInt(12000)))
	suite.mockLedgerRepo.AssertExpectations(suite.T())
	suite.mockNotifier.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestAppendEntries_EmptyBatch() {
	ctx := context.Background()

	_, err := suite.service.AppendEntries(ctx, suite.studentID, dto.CreateLedgerEntryBatchRequest{}, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrBatchEmpty)
	suite.mockLedgerRepo.AssertNotCalled(suite.T(), "SaveEntries", mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestAppendEntries_MissingStudent() {
	ctx := context.Background()
	batch := dto.CreateLedgerEntryBatchRequest{Entries: []dto.CreateLedgerEntryRequest{suite.feeChargeRequest(100)}}

	_, err := suite.service.AppendEntries(ctx, "", batch, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrStudentRequired)
}

func (suite *LedgerServiceTestSuite) TestAppendEntry_NonPositiveAmount() {
	ctx := context.Background()
	req := suite.feeChargeRequest(0)

	_, err := suite.service.AppendEntry(ctx, suite.studentID, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrAmountNotPositive)
	suite.mockLedgerRepo.AssertNotCalled(suite.T(), "SaveEntries", mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestAppendEntry_UnknownReferenceType() {
	ctx := context.Background()
	req := suite.feeChargeRequest(100)
	req.ReferenceType = domain.ReferenceType("INVOICE")

	_, err := suite.service.AppendEntry(ctx, suite.studentID, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *LedgerServiceTestSuite) TestAppendEntries_AtomicBatchFailure() {
	ctx := context.Background()
	batch := dto.CreateLedgerEntryBatchRequest{Entries: []dto.CreateLedgerEntryRequest{
		suite.feeChargeRequest(12000),
		suite.feeChargeRequest(500),
	}}

	repoErr := errors.New("constraint violation")
	suite.mockLedgerRepo.On("SaveEntries", ctx, mock.Anything).Return(nil, repoErr).Once()

	_, err := suite.service.AppendEntries(ctx, suite.studentID, batch, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, repoErr)
	suite.mockNotifier.AssertNotCalled(suite.T(), "BalanceChanged", mock.Anything, mock.Anything, mock.Anything)
}

// --- Reads ---

func (suite *LedgerServiceTestSuite) TestGetStatement_DefaultLimit() {
	ctx := context.Background()
	entries := []domain.LedgerEntry{{EntryID: 1, StudentID: suite.studentID}}

	suite.mockLedgerRepo.On("FindEntriesByStudent", ctx, suite.studentID, (*string)(nil), 50, (*string)(nil)).
		Return(entries, nil, nil).Once()

	statement, err := suite.service.GetStatement(ctx, suite.studentID, dto.ListLedgerEntriesParams{})

	suite.Require().NoError(err)
	suite.Len(statement.Entries, 1)
	suite.Nil(statement.NextToken)
	suite.mockLedgerRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestCurrentBalance_ZeroForEmptyLedger() {
	ctx := context.Background()

	suite.mockLedgerRepo.On("CurrentBalance", ctx, suite.studentID).Return(decimal.Zero, nil).Once()

	balance, err := suite.service.CurrentBalance(ctx, suite.studentID)

	suite.Require().NoError(err)
	suite.True(balance.IsZero(), "a student with no entries has balance zero, not an error")
}

func (suite *LedgerServiceTestSuite) TestGetLastEntry_NotFound() {
	ctx := context.Background()

	suite.mockLedgerRepo.On("FindLastEntry", ctx, suite.studentID).
		Return(nil, apperrors.NewNotFoundError("no ledger entries")).Once()

	_, err := suite.service.GetLastEntry(ctx, suite.studentID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *LedgerServiceTestSuite) TestGetBalanceSummary() {
	ctx := context.Background()

	suite.mockLedgerRepo.On("CurrentBalance", ctx, suite.studentID).Return(decimal.NewFromInt(7000), nil).Once()
	suite.mockDuesRepo.On("SumDebits", ctx, suite.studentID).Return(decimal.NewFromInt(12000), nil).Once()
	suite.mockDuesRepo.On("SumCredits", ctx, suite.studentID).Return(decimal.NewFromInt(5000), nil).Once()

	totals, err := suite.service.GetBalanceSummary(ctx, suite.studentID)

	suite.Require().NoError(err)
	suite.True(totals.Balance.Equal(decimal.NewFromInt(7000)))
	suite.True(totals.TotalDebits.Equal(decimal.NewFromInt(12000)))
	suite.True(totals.TotalCredits.Equal(decimal.NewFromInt(5000)))
}

// --- Recompute ---

func (suite *LedgerServiceTestSuite) TestRecomputeChronological_NotifiesWhenChanged() {
	ctx := context.Background()

	suite.mockLedgerRepo.On("RecomputeStudentBalances", ctx, suite.studentID, suite.userID).Return(int64(3), nil).Once()
	suite.mockLedgerRepo.On("CurrentBalance", ctx, suite.studentID).Return(decimal.NewFromInt(4500), nil).Once()
	suite.mockNotifier.On("BalanceChanged", ctx, suite.studentID, decimal.NewFromInt(4500)).Once()

	updated, err := suite.service.RecomputeChronological(ctx, suite.studentID, suite.userID)

	suite.Require().NoError(err)
	suite.Equal(int64(3), updated)
	suite.mockNotifier.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestRecomputeChronological_IdempotentNoChanges() {
	ctx := context.Background()

	suite.mockLedgerRepo.On("RecomputeStudentBalances", ctx, suite.studentID, suite.userID).Return(int64(0), nil).Once()

	updated, err := suite.service.RecomputeChronological(ctx, suite.studentID, suite.userID)

	suite.Require().NoError(err)
	suite.Equal(int64(0), updated)
	suite.mockNotifier.AssertNotCalled(suite.T(), "BalanceChanged", mock.Anything, mock.Anything, mock.Anything)
}

// --- Reversal ---

func (suite *LedgerServiceTestSuite) TestReversePayment_Success() {
	ctx := context.Background()
	entries := []domain.LedgerEntry{
		{EntryID: 10, StudentID: suite.studentID, ReferenceType: domain.RefReceipt, ReferenceID: 77},
	}

	suite.mockLedgerRepo.On("FindEntriesByReference", ctx, domain.RefReceipt, int64(77)).Return(entries, nil).Once()
	suite.mockLedgerRepo.On("MarkReversedByReference", ctx, domain.RefReceipt, int64(77), suite.userID, mock.AnythingOfType("time.Time")).
		Return(int64(1), nil).Once()
	suite.mockLedgerRepo.On("RecomputeStudentBalances", ctx, suite.studentID, suite.userID).Return(int64(2), nil).Once()
	suite.mockLedgerRepo.On("CurrentBalance", ctx, suite.studentID).Return(decimal.NewFromInt(12000), nil).Once()
	suite.mockNotifier.On("BalanceChanged", ctx, suite.studentID, decimal.NewFromInt(12000)).Once()

	reversed, err := suite.service.ReversePayment(ctx, domain.RefReceipt, 77, suite.userID)

	suite.Require().NoError(err)
	suite.Equal(int64(1), reversed)
	suite.mockLedgerRepo.AssertExpectations(suite.T())
	suite.mockNotifier.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestReversePayment_UnknownReferenceIsNoOp() {
	ctx := context.Background()

	suite.mockLedgerRepo.On("FindEntriesByReference", ctx, domain.RefReceipt, int64(999)).
		Return([]domain.LedgerEntry{}, nil).Once()

	reversed, err := suite.service.ReversePayment(ctx, domain.RefReceipt, 999, suite.userID)

	suite.Require().NoError(err, "a reference with no ledger entries reverses nothing, not an error")
	suite.Equal(int64(0), reversed)
	suite.mockLedgerRepo.AssertNotCalled(suite.T(), "MarkReversedByReference", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestReversePayment_AlreadyReversedIsNoOp() {
	ctx := context.Background()
	entries := []domain.LedgerEntry{
		{EntryID: 10, StudentID: suite.studentID, ReferenceType: domain.RefReceipt, ReferenceID: 77, IsReversed: true},
	}

	suite.mockLedgerRepo.On("FindEntriesByReference", ctx, domain.RefReceipt, int64(77)).Return(entries, nil).Once()
	suite.mockLedgerRepo.On("MarkReversedByReference", ctx, domain.RefReceipt, int64(77), suite.userID, mock.AnythingOfType("time.Time")).
		Return(int64(0), nil).Once()

	reversed, err := suite.service.ReversePayment(ctx, domain.RefReceipt, 77, suite.userID)

	suite.Require().NoError(err, "reversing twice must not fail")
	suite.Equal(int64(0), reversed)
	suite.mockLedgerRepo.AssertNotCalled(suite.T(), "RecomputeStudentBalances", mock.Anything, mock.Anything, mock.Anything)
	suite.mockNotifier.AssertNotCalled(suite.T(), "BalanceChanged", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestReversePayment_InvalidReferenceID() {
	ctx := context.Background()

	_, err := suite.service.ReversePayment(ctx, domain.RefReceipt, 0, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrReferenceRequired)
}

func (suite *LedgerServiceTestSuite) TestReversePayment_InvalidReferenceType() {
	ctx := context.Background()

	_, err := suite.service.ReversePayment(ctx, domain.ReferenceType("INVOICE"), 77, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

// --- Purge ---

func (suite *LedgerServiceTestSuite) TestPurgeStudentLedger() {
	ctx := context.Background()

	suite.mockLedgerRepo.On("DeleteEntriesForStudent", ctx, suite.studentID).Return(int64(5), nil).Once()

	deleted, err := suite.service.PurgeStudentLedger(ctx, suite.studentID)

	suite.Require().NoError(err)
	suite.Equal(int64(5), deleted)
}

func (suite *LedgerServiceTestSuite) TestPurgeStudentLedger_MissingStudent() {
	ctx := context.Background()

	_, err := suite.service.PurgeStudentLedger(ctx, "")

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrStudentRequired)
}

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}

func TestNewLedgerService_NilNotifierDefaultsToNoop(t *testing.T) {
	ledgerRepo := new(MockLedgerRepository)
	duesRepo := new(MockDuesRepository)

	svc := services.NewLedgerService(ledgerRepo, duesRepo, nil)
	assert.NotNil(t, svc)

	// Appending through the noop notifier must not panic.
	ledgerRepo.On("SaveEntries", mock.Anything, mock.Anything).Return([]domain.LedgerEntry{{EntryID: 1}}, nil).Once()
	ledgerRepo.On("CurrentBalance", mock.Anything, "STU-1").Return(decimal.NewFromInt(100), nil).Once()

	_, err := svc.AppendEntry(context.Background(), "STU-1", dto.CreateLedgerEntryRequest{
		SessionID:     "2025-26",
		EntryDate:     time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EntryType:     domain.Debit,
		Amount:        decimal.NewFromInt(100),
		ReferenceType: domain.RefFeeCharge,
	}, "clerk-7")
	assert.NoError(t, err)
}
