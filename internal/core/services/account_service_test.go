package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/core/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/platform/config"
)

// --- Test Suite Setup ---

type AccountServiceTestSuite struct {
	suite.Suite
	mockRepo *MockAccountRepository
	settings config.AccountingSettings
	audit    *recordingAudit
	service  portssvc.AccountSvcFacade
}

// Accounting implements config.SettingsProvider so tests can flip settings between calls.
func (suite *AccountServiceTestSuite) Accounting() config.AccountingSettings {
	return suite.settings
}

func (suite *AccountServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockAccountRepository)
	suite.settings = config.DefaultAccountingSettings()
	suite.audit = &recordingAudit{}
	suite.service = services.NewAccountService(suite.mockRepo, suite, services.WithAccountAudit(suite.audit))
}

// --- Test Cases ---

func (suite *AccountServiceTestSuite) TestResolveLeafAccount_Success() {
	ctx := context.Background()
	cash := leaf("1110", domain.Asset)
	suite.mockRepo.On("FindAccountByCode", ctx, "1110").Return(&cash, nil).Once()

	account, err := suite.service.ResolveLeafAccount(ctx, "1110")

	suite.Require().NoError(err)
	suite.Equal("1110", account.Code)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestResolveLeafAccount_UnknownCode() {
	ctx := context.Background()
	suite.mockRepo.On("FindAccountByCode", ctx, "9999").Return(nil, apperrors.ErrNotFound).Once()

	account, err := suite.service.ResolveLeafAccount(ctx, "9999")

	suite.Nil(account)
	suite.ErrorIs(err, apperrors.ErrAccountNotFound)
}

func (suite *AccountServiceTestSuite) TestResolveLeafAccount_ParentRejectedWhileSettingOn() {
	ctx := context.Background()
	parent := leaf("1100", domain.Asset)
	parent.HasChildren = true
	suite.mockRepo.On("FindAccountByCode", ctx, "1100").Return(&parent, nil)

	account, err := suite.service.ResolveLeafAccount(ctx, "1100")
	suite.Nil(account)
	suite.ErrorIs(err, apperrors.ErrInvalidPostingTarget)

	// the setting is read on every call
	suite.settings.PreventPostingToParentAccounts = false
	account, err = suite.service.ResolveLeafAccount(ctx, "1100")
	suite.Require().NoError(err)
	suite.Equal("1100", account.Code)
}

func (suite *AccountServiceTestSuite) TestResolveLeafAccount_InactiveRejected() {
	ctx := context.Background()
	old := leaf("1190", domain.Asset)
	old.IsActive = false
	suite.mockRepo.On("FindAccountByCode", ctx, "1190").Return(&old, nil).Once()

	_, err := suite.service.ResolveLeafAccount(ctx, "1190")

	suite.ErrorIs(err, apperrors.ErrInvalidPostingTarget)
}

func (suite *AccountServiceTestSuite) TestResolveLeafAccount_RepositoryFailure() {
	ctx := context.Background()
	suite.mockRepo.On("FindAccountByCode", ctx, "1110").Return(nil, errors.New("connection reset")).Once()

	_, err := suite.service.ResolveLeafAccount(ctx, "1110")

	suite.Require().Error(err)
	suite.False(errors.Is(err, apperrors.ErrAccountNotFound))
}

func (suite *AccountServiceTestSuite) TestResolvePostingAccounts_DeduplicatesAndChecksEach() {
	ctx := context.Background()
	parent := leaf("4000", domain.Revenue)
	parent.HasChildren = true
	suite.mockRepo.On("FindAccountsByCodes", ctx, []string{"1110", "4000"}).
		Return(map[string]domain.Account{"1110": leaf("1110", domain.Asset), "4000": parent}, nil).Once()

	accounts, err := suite.service.ResolvePostingAccounts(ctx, []string{"1110", "4000", "1110"})

	suite.Nil(accounts)
	suite.ErrorIs(err, apperrors.ErrInvalidPostingTarget)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestResolvePostingAccounts_MissingCode() {
	ctx := context.Background()
	suite.mockRepo.On("FindAccountsByCodes", ctx, []string{"1110", "4100"}).
		Return(map[string]domain.Account{"1110": leaf("1110", domain.Asset)}, nil).Once()

	_, err := suite.service.ResolvePostingAccounts(ctx, []string{"1110", "4100"})

	suite.ErrorIs(err, apperrors.ErrAccountNotFound)
}

func (suite *AccountServiceTestSuite) TestCreateAccount_Success() {
	ctx := context.Background()
	parent := leaf("1100", domain.Asset)
	req := dto.CreateAccountRequest{Code: "1110", Name: "Cash", AccountType: domain.Asset, ParentCode: "1100"}

	suite.mockRepo.On("FindAccountByCode", ctx, "1110").Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRepo.On("FindAccountByCode", ctx, "1100").Return(&parent, nil).Once()
	suite.mockRepo.On("SaveAccount", ctx, mock.AnythingOfType("domain.Account")).Return(nil).Once()

	account, err := suite.service.CreateAccount(ctx, admin, req)

	suite.Require().NoError(err)
	suite.NotEmpty(account.AccountID)
	suite.True(account.IsActive)
	suite.Equal("1100", account.ParentCode)
	suite.Equal(admin.ID, account.CreatedBy)
	suite.Equal([]string{"account.created"}, suite.audit.actions())
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestCreateAccount_Rejections() {
	ctx := context.Background()
	existing := leaf("1110", domain.Asset)
	inactiveParent := leaf("1200", domain.Asset)
	inactiveParent.IsActive = false
	revenueParent := leaf("4000", domain.Revenue)

	suite.mockRepo.On("FindAccountByCode", ctx, "1110").Return(&existing, nil)
	suite.mockRepo.On("FindAccountByCode", ctx, "1111").Return(nil, apperrors.ErrNotFound)
	suite.mockRepo.On("FindAccountByCode", ctx, "1200").Return(&inactiveParent, nil)
	suite.mockRepo.On("FindAccountByCode", ctx, "4000").Return(&revenueParent, nil)
	suite.mockRepo.On("FindAccountByCode", ctx, "8888").Return(nil, apperrors.ErrNotFound)

	tests := []struct {
		name  string
		actor domain.Actor
		req   dto.CreateAccountRequest
		want  error
	}{
		{"no permission", clerk, dto.CreateAccountRequest{Code: "1111", Name: "x", AccountType: domain.Asset}, apperrors.ErrForbidden},
		{"duplicate code", admin, dto.CreateAccountRequest{Code: "1110", Name: "x", AccountType: domain.Asset}, apperrors.ErrDuplicate},
		{"unknown parent", admin, dto.CreateAccountRequest{Code: "1111", Name: "x", AccountType: domain.Asset, ParentCode: "8888"}, apperrors.ErrValidation},
		{"inactive parent", admin, dto.CreateAccountRequest{Code: "1111", Name: "x", AccountType: domain.Asset, ParentCode: "1200"}, apperrors.ErrValidation},
		{"type differs from parent", admin, dto.CreateAccountRequest{Code: "1111", Name: "x", AccountType: domain.Asset, ParentCode: "4000"}, apperrors.ErrValidation},
		{"unknown type", admin, dto.CreateAccountRequest{Code: "1111", Name: "x", AccountType: "INCOME"}, apperrors.ErrValidation},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			account, err := suite.service.CreateAccount(ctx, tt.actor, tt.req)
			suite.Nil(account)
			suite.ErrorIs(err, tt.want)
		})
	}
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveAccount", mock.Anything, mock.Anything)
}

func (suite *AccountServiceTestSuite) TestDeactivateAccount() {
	ctx := context.Background()
	cash := leaf("1110", domain.Asset)
	suite.mockRepo.On("FindAccountByCode", ctx, "1110").Return(&cash, nil).Once()
	suite.mockRepo.On("DeactivateAccount", ctx, "1110", admin.ID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.DeactivateAccount(ctx, admin, "1110")

	suite.Require().NoError(err)
	suite.Equal([]string{"account.deactivated"}, suite.audit.actions())
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestGetAccountBalance_UsesNormalSide() {
	ctx := context.Background()
	payable := leaf("2100", domain.Liability)
	suite.mockRepo.On("FindAccountByCode", ctx, "2100").Return(&payable, nil).Once()
	suite.mockRepo.On("AccountActivity", ctx, "2100", date(2024, 3, 31)).
		Return(&domain.AccountActivity{AccountCode: "2100", AccountType: domain.Liability, Debits: dec("40"), Credits: dec("100")}, nil).Once()

	balance, err := suite.service.GetAccountBalance(ctx, "2100", date(2024, 3, 31).Add(15*time.Hour))

	suite.Require().NoError(err)
	suite.True(dec("60").Equal(balance.Balance), "got %s", balance.Balance)
	suite.Equal(date(2024, 3, 31), balance.AsOf)
}

func (suite *AccountServiceTestSuite) TestGetTrialBalance() {
	ctx := context.Background()
	suite.mockRepo.On("ListAccountActivity", ctx, date(2024, 3, 31)).Return([]domain.AccountActivity{
		{AccountCode: "1110", AccountType: domain.Asset, Debits: dec("1150"), Credits: dec("0")},
		{AccountCode: "4100", AccountType: domain.Revenue, Debits: dec("0"), Credits: dec("1000")},
		{AccountCode: "2210", AccountType: domain.Liability, Debits: dec("0"), Credits: dec("150")},
		{AccountCode: "5100", AccountType: domain.Expense, Debits: dec("10"), Credits: dec("10")},
	}, nil).Once()

	tb, err := suite.service.GetTrialBalance(ctx, date(2024, 3, 31))

	suite.Require().NoError(err)
	suite.Len(tb.Rows, 3)
	suite.True(dec("1150").Equal(tb.TotalDebit))
	suite.True(dec("1150").Equal(tb.TotalCredit))
	suite.True(tb.IsBalanced)
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}
