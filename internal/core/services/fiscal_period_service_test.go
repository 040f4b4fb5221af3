package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/core/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
)

type FiscalPeriodServiceTestSuite struct {
	suite.Suite
	periodRepo  *MockFiscalPeriodRepository
	accountRepo *MockAccountRepository
	policyRepo  *MockCurrencyPolicyRepository
	audit       *recordingAudit
	service     portssvc.FiscalPeriodSvcFacade
}

func (suite *FiscalPeriodServiceTestSuite) SetupTest() {
	suite.periodRepo = new(MockFiscalPeriodRepository)
	suite.accountRepo = new(MockAccountRepository)
	suite.policyRepo = new(MockCurrencyPolicyRepository)
	suite.audit = &recordingAudit{}

	settings := testSettings()
	rateRepo := new(MockExchangeRateRepository)
	accounts := services.NewAccountService(suite.accountRepo, settings)
	rates := services.NewExchangeRateService(rateRepo, settings, nil, nil)
	currency := services.NewCurrencyService(suite.policyRepo, rateRepo, rates, settings)
	suite.service = services.NewFiscalPeriodService(suite.periodRepo, accounts, currency, settings,
		services.WithFiscalPeriodAudit(suite.audit))
}

func (suite *FiscalPeriodServiceTestSuite) TestAssertDateOpen() {
	ctx := context.Background()
	closed := openPeriod()
	closed.IsClosed = true
	locked := openPeriod()
	locked.IsClosed, locked.IsLocked = true, true

	tests := []struct {
		name   string
		period *domain.FiscalPeriod
		repErr error
		want   error
	}{
		{"open", openPeriod(), nil, nil},
		{"closed", closed, nil, apperrors.ErrPeriodClosed},
		{"locked wins over closed", locked, nil, apperrors.ErrPeriodLocked},
		{"no period", nil, apperrors.ErrNotFound, apperrors.ErrNoPeriodDefined},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			repo := new(MockFiscalPeriodRepository)
			repo.On("FindPeriodForDate", ctx, date(2024, 3, 15)).Return(tt.period, tt.repErr).Once()
			svc := services.NewFiscalPeriodService(repo, nil, nil, testSettings())

			// time of day is ignored
			period, err := svc.AssertDateOpen(ctx, date(2024, 3, 15).Add(17*time.Hour))

			if tt.want == nil {
				suite.Require().NoError(err)
				suite.Equal("p-2024-03", period.PeriodID)
				return
			}
			suite.Nil(period)
			suite.ErrorIs(err, tt.want)
		})
	}
}

func (suite *FiscalPeriodServiceTestSuite) TestCreatePeriod() {
	ctx := context.Background()
	req := dto.CreateFiscalPeriodRequest{Name: "April 2024", StartDate: date(2024, 4, 1), EndDate: date(2024, 4, 30)}
	suite.periodRepo.On("FindOverlappingPeriods", ctx, date(2024, 4, 1), date(2024, 4, 30)).Return([]domain.FiscalPeriod{}, nil).Once()
	suite.periodRepo.On("SavePeriod", ctx, mock.AnythingOfType("domain.FiscalPeriod")).Return(nil).Once()

	period, err := suite.service.CreatePeriod(ctx, admin, req)

	suite.Require().NoError(err)
	suite.Equal(domain.PeriodOpen, period.Status())
	suite.Equal([]string{"fiscal_period.created"}, suite.audit.actions())
	suite.periodRepo.AssertExpectations(suite.T())
}

func (suite *FiscalPeriodServiceTestSuite) TestCreatePeriod_Overlap() {
	ctx := context.Background()
	req := dto.CreateFiscalPeriodRequest{Name: "Q1", StartDate: date(2024, 3, 20), EndDate: date(2024, 4, 10)}
	suite.periodRepo.On("FindOverlappingPeriods", ctx, mock.Anything, mock.Anything).Return([]domain.FiscalPeriod{*openPeriod()}, nil).Once()

	_, err := suite.service.CreatePeriod(ctx, admin, req)

	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.periodRepo.AssertNotCalled(suite.T(), "SavePeriod", mock.Anything, mock.Anything)
}

func (suite *FiscalPeriodServiceTestSuite) TestCreatePeriod_EndBeforeStart() {
	req := dto.CreateFiscalPeriodRequest{Name: "Bad", StartDate: date(2024, 4, 30), EndDate: date(2024, 4, 1)}

	_, err := suite.service.CreatePeriod(context.Background(), admin, req)

	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *FiscalPeriodServiceTestSuite) TestClosePeriod_BuildsClosingEntry() {
	ctx := context.Background()
	retained := leaf("3200", domain.Equity)
	suite.accountRepo.On("FindAccountByCode", ctx, "3200").Return(&retained, nil).Once()
	suite.policyRepo.On("FindActivePolicy", ctx).Return(sarPolicy(domain.Normalization, domain.TimingPosting), nil).Once()

	var bundle *portsrepo.PostingBundle
	closed := openPeriod()
	closed.IsClosed = true
	suite.periodRepo.On("ClosePeriod", ctx, "p-2024-03", admin.ID, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			build := args.Get(4).(portsrepo.ClosingEntryBuilder)
			var err error
			bundle, err = build(*openPeriod(), []domain.AccountActivity{
				{AccountID: "acc-4100", AccountCode: "4100", AccountType: domain.Revenue, Debits: dec("50"), Credits: dec("1050")},
				{AccountID: "acc-5100", AccountCode: "5100", AccountType: domain.Expense, Debits: dec("400"), Credits: dec("0")},
				{AccountID: "acc-1110", AccountCode: "1110", AccountType: domain.Asset, Debits: dec("999"), Credits: dec("0")},
			})
			suite.Require().NoError(err)
		}).
		Return(closed, &domain.JournalEntry{VoucherNumber: "VOU-000010"}, nil).Once()

	resp, err := suite.service.ClosePeriod(ctx, admin, "p-2024-03")

	suite.Require().NoError(err)
	suite.Equal(domain.PeriodClosed, resp.Period.Status())
	suite.Require().NotNil(resp.ClosingEntry)

	suite.Require().NotNil(bundle)
	suite.Equal(services.ReferenceTypePeriodClose, bundle.Entry.ReferenceType)
	suite.Equal(date(2024, 3, 31), bundle.Entry.EntryDate)
	suite.Equal("SAR", bundle.Entry.LedgerCurrency)
	suite.Require().Len(bundle.Lines, 3)

	byCode := map[string]domain.JournalEntryLine{}
	for _, l := range bundle.Lines {
		byCode[l.AccountCode] = l
	}
	// revenue had a 1000 credit balance, expense a 400 debit balance; profit 600
	suite.True(dec("1000").Equal(byCode["4100"].Debit))
	suite.True(dec("400").Equal(byCode["5100"].Credit))
	suite.True(dec("600").Equal(byCode["3200"].Credit))
	suite.NotContains(byCode, "1110")
	suite.NoError(domain.CheckBalance(bundle.Lines))

	suite.Equal([]string{"fiscal_period.closed"}, suite.audit.actions())
}

func (suite *FiscalPeriodServiceTestSuite) TestClosePeriod_NothingToClose() {
	ctx := context.Background()
	retained := leaf("3200", domain.Equity)
	suite.accountRepo.On("FindAccountByCode", ctx, "3200").Return(&retained, nil).Once()
	suite.policyRepo.On("FindActivePolicy", ctx).Return(nil, apperrors.ErrNotFound).Once()

	suite.periodRepo.On("ClosePeriod", ctx, "p-2024-03", admin.ID, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			build := args.Get(4).(portsrepo.ClosingEntryBuilder)
			bundle, err := build(*openPeriod(), []domain.AccountActivity{
				{AccountCode: "4100", AccountType: domain.Revenue, Debits: dec("10"), Credits: dec("10")},
			})
			suite.NoError(err)
			suite.Nil(bundle)
		}).
		Return(openPeriod(), nil, nil).Once()

	resp, err := suite.service.ClosePeriod(ctx, admin, "p-2024-03")

	suite.Require().NoError(err)
	suite.Nil(resp.ClosingEntry)
}

func (suite *FiscalPeriodServiceTestSuite) TestClosePeriod_LossDebitsRetainedEarnings() {
	ctx := context.Background()
	retained := leaf("3200", domain.Equity)
	suite.accountRepo.On("FindAccountByCode", ctx, "3200").Return(&retained, nil).Once()
	suite.policyRepo.On("FindActivePolicy", ctx).Return(sarPolicy(domain.Normalization, domain.TimingPosting), nil).Once()

	suite.periodRepo.On("ClosePeriod", ctx, "p-2024-03", admin.ID, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			build := args.Get(4).(portsrepo.ClosingEntryBuilder)
			bundle, err := build(*openPeriod(), []domain.AccountActivity{
				{AccountCode: "4100", AccountType: domain.Revenue, Debits: dec("0"), Credits: dec("100")},
				{AccountCode: "5100", AccountType: domain.Expense, Debits: dec("250"), Credits: dec("0")},
			})
			suite.Require().NoError(err)
			last := bundle.Lines[len(bundle.Lines)-1]
			suite.Equal("3200", last.AccountCode)
			suite.True(dec("150").Equal(last.Debit))
		}).
		Return(openPeriod(), nil, nil).Once()

	_, err := suite.service.ClosePeriod(ctx, admin, "p-2024-03")
	suite.Require().NoError(err)
}

func (suite *FiscalPeriodServiceTestSuite) TestClosePeriod_RequiresPermission() {
	_, err := suite.service.ClosePeriod(context.Background(), clerk, "p-2024-03")

	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.periodRepo.AssertNotCalled(suite.T(), "ClosePeriod", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *FiscalPeriodServiceTestSuite) TestLockPeriod_NeedsLockPermission() {
	ctx := context.Background()
	manager := domain.Actor{ID: "mgr", Permissions: []string{"fiscal_periods.manage"}}

	_, err := suite.service.LockPeriod(ctx, manager, "p-2024-03")
	suite.ErrorIs(err, apperrors.ErrForbidden)

	locker := domain.Actor{ID: "ctrl", Permissions: []string{"fiscal_periods.lock"}}
	closed := openPeriod()
	closed.IsClosed = true
	suite.periodRepo.On("FindPeriodByID", ctx, "p-2024-03").Return(closed, nil).Once()
	locked := openPeriod()
	locked.IsClosed, locked.IsLocked = true, true
	suite.periodRepo.On("LockPeriod", ctx, "p-2024-03", "ctrl", mock.Anything).Return(locked, nil).Once()

	period, err := suite.service.LockPeriod(ctx, locker, "p-2024-03")
	suite.Require().NoError(err)
	suite.Equal(domain.PeriodLocked, period.Status())
	suite.Equal([]string{"fiscal_period.locked"}, suite.audit.actions())
}

func (suite *FiscalPeriodServiceTestSuite) TestLockPeriod_OpenPeriodMustBeClosedFirst() {
	ctx := context.Background()
	suite.periodRepo.On("FindPeriodByID", ctx, "p-2024-03").Return(openPeriod(), nil).Once()

	period, err := suite.service.LockPeriod(ctx, admin, "p-2024-03")

	suite.Nil(period)
	suite.ErrorIs(err, apperrors.ErrBusinessLogic)
	suite.ErrorContains(err, "must be closed before it is locked")
	suite.periodRepo.AssertNotCalled(suite.T(), "LockPeriod", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.Empty(suite.audit.actions())
}

func (suite *FiscalPeriodServiceTestSuite) TestReopenPeriod_LockedIsRejected() {
	ctx := context.Background()
	suite.periodRepo.On("ReopenPeriod", ctx, "p-2024-03", admin.ID, mock.Anything).
		Return(nil, apperrors.NewBusinessError(apperrors.ErrPeriodLocked, "fiscal period March 2024 is locked and cannot change state")).Once()

	_, err := suite.service.ReopenPeriod(ctx, admin, "p-2024-03")

	suite.ErrorIs(err, apperrors.ErrPeriodLocked)
	suite.Empty(suite.audit.actions())
}

func TestFiscalPeriodServiceTestSuite(t *testing.T) {
	suite.Run(t, new(FiscalPeriodServiceTestSuite))
}
