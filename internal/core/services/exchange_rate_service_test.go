package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/core/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
)

type ExchangeRateServiceTestSuite struct {
	suite.Suite
	mockRateRepo *MockExchangeRateRepository
	audit        *recordingAudit
	service      portssvc.ExchangeRateSvcFacade
}

func (suite *ExchangeRateServiceTestSuite) SetupTest() {
	suite.mockRateRepo = new(MockExchangeRateRepository)
	suite.audit = &recordingAudit{}
	suite.service = services.NewExchangeRateService(suite.mockRateRepo, testSettings(), nil, suite.audit)
}

func (suite *ExchangeRateServiceTestSuite) TestRecordRate_Success() {
	ctx := context.Background()
	effective := date(2024, 3, 10)
	req := dto.RecordExchangeRateRequest{
		FromCurrency: "usd",
		ToCurrency:   "sar",
		Rate:         dec("3.750000001"),
		EffectiveAt:  &effective,
	}

	suite.mockRateRepo.On("AppendRate", ctx, mock.MatchedBy(func(r domain.ExchangeRate) bool {
		return r.FromCurrency == "USD" && r.ToCurrency == "SAR" && r.Source == domain.RateManual
	})).Return(nil).Once()

	rate, err := suite.service.RecordRate(ctx, admin, req)

	suite.Require().NoError(err)
	suite.NotEmpty(rate.RateID)
	// rounded to eight places
	suite.True(dec("3.75").Equal(rate.Rate), "got %s", rate.Rate)
	suite.Equal(effective, rate.EffectiveAt)
	suite.Equal(admin.ID, rate.CreatedBy)
	suite.Equal([]string{"exchange_rate.recorded"}, suite.audit.actions())
	suite.mockRateRepo.AssertExpectations(suite.T())
}

func (suite *ExchangeRateServiceTestSuite) TestRecordRate_Rejections() {
	ctx := context.Background()
	tests := []struct {
		name  string
		actor domain.Actor
		req   dto.RecordExchangeRateRequest
		want  error
	}{
		{"missing permission", clerk, dto.RecordExchangeRateRequest{FromCurrency: "USD", ToCurrency: "SAR", Rate: dec("3.75")}, apperrors.ErrForbidden},
		{"same currency", admin, dto.RecordExchangeRateRequest{FromCurrency: "USD", ToCurrency: "usd", Rate: dec("1")}, apperrors.ErrValidation},
		{"zero rate", admin, dto.RecordExchangeRateRequest{FromCurrency: "USD", ToCurrency: "SAR", Rate: decimal.Zero}, apperrors.ErrValidation},
		{"unknown source", admin, dto.RecordExchangeRateRequest{FromCurrency: "USD", ToCurrency: "SAR", Rate: dec("3.75"), Source: "GUESS"}, apperrors.ErrValidation},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			rate, err := suite.service.RecordRate(ctx, tt.actor, tt.req)
			suite.Nil(rate)
			suite.ErrorIs(err, tt.want)
		})
	}
	suite.mockRateRepo.AssertNotCalled(suite.T(), "AppendRate", mock.Anything, mock.Anything)
}

func (suite *ExchangeRateServiceTestSuite) TestFindRate_SameCurrencyIsOne() {
	rate, err := suite.service.FindRate(context.Background(), "SAR", "sar", fixedNow)

	suite.Require().NoError(err)
	suite.True(decimal.NewFromInt(1).Equal(rate.Rate))
	suite.Equal(domain.RateSystem, rate.Source)
	suite.mockRateRepo.AssertNotCalled(suite.T(), "FindRateOnOrBefore", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ExchangeRateServiceTestSuite) TestFindRate_Direct() {
	ctx := context.Background()
	direct := &domain.ExchangeRate{FromCurrency: "USD", ToCurrency: "SAR", Rate: dec("3.75"), Source: domain.RateManual}
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "USD", "SAR", mock.AnythingOfType("time.Time")).Return(direct, nil).Once()

	rate, err := suite.service.FindRate(ctx, "usd", "sar", date(2024, 3, 15))

	suite.Require().NoError(err)
	suite.Same(direct, rate)
}

func (suite *ExchangeRateServiceTestSuite) TestFindRate_InverseOfReversePair() {
	ctx := context.Background()
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "USD", "SAR", mock.Anything).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "SAR", "USD", mock.Anything).
		Return(&domain.ExchangeRate{FromCurrency: "SAR", ToCurrency: "USD", Rate: dec("0.25"), Source: domain.RateCentralBank}, nil).Once()

	rate, err := suite.service.FindRate(ctx, "USD", "SAR", date(2024, 3, 15))

	suite.Require().NoError(err)
	suite.Equal("USD", rate.FromCurrency)
	suite.Equal("SAR", rate.ToCurrency)
	suite.True(dec("4").Equal(rate.Rate), "got %s", rate.Rate)
	suite.Equal(domain.RateCentralBank, rate.Source)
}

func (suite *ExchangeRateServiceTestSuite) TestFindRate_NoneAvailable() {
	ctx := context.Background()
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil, apperrors.ErrNotFound).Twice()

	rate, err := suite.service.FindRate(ctx, "EUR", "SAR", date(2024, 3, 15))

	suite.Nil(rate)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *ExchangeRateServiceTestSuite) TestFindRate_CrossThroughReferenceCurrency() {
	ctx := context.Background()
	// USD/SAR is recorded directly, EUR only as SAR/EUR
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "USD", "EUR", mock.Anything).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "EUR", "USD", mock.Anything).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "USD", "SAR", mock.Anything).
		Return(&domain.ExchangeRate{FromCurrency: "USD", ToCurrency: "SAR", Rate: dec("3.75"), Source: domain.RateManual, EffectiveAt: date(2024, 3, 10)}, nil).Once()
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "SAR", "EUR", mock.Anything).
		Return(&domain.ExchangeRate{FromCurrency: "SAR", ToCurrency: "EUR", Rate: dec("0.25"), Source: domain.RateCentralBank, EffectiveAt: date(2024, 3, 12)}, nil).Once()

	rate, err := suite.service.FindRate(ctx, "usd", "eur", date(2024, 3, 15))

	suite.Require().NoError(err)
	suite.Equal("USD", rate.FromCurrency)
	suite.Equal("EUR", rate.ToCurrency)
	suite.True(dec("0.9375").Equal(rate.Rate), "got %s", rate.Rate)
	suite.Equal(domain.RateSystem, rate.Source)
	suite.Equal(date(2024, 3, 10), rate.EffectiveAt)
	suite.Contains(rate.Notes, "via SAR")
	suite.mockRateRepo.AssertExpectations(suite.T())
}

func (suite *ExchangeRateServiceTestSuite) TestFindRate_CrossUsesInverseLegs() {
	ctx := context.Background()
	// only SAR/USD and EUR/SAR exist, so both legs are inverted
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "USD", "EUR", mock.Anything).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "EUR", "USD", mock.Anything).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "USD", "SAR", mock.Anything).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "SAR", "USD", mock.Anything).
		Return(&domain.ExchangeRate{FromCurrency: "SAR", ToCurrency: "USD", Rate: dec("0.25")}, nil).Once()
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "SAR", "EUR", mock.Anything).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "EUR", "SAR", mock.Anything).
		Return(&domain.ExchangeRate{FromCurrency: "EUR", ToCurrency: "SAR", Rate: dec("5")}, nil).Once()

	rate, err := suite.service.FindRate(ctx, "USD", "EUR", date(2024, 3, 15))

	suite.Require().NoError(err)
	// 4 SAR per USD, 0.2 EUR per SAR
	suite.True(dec("0.8").Equal(rate.Rate), "got %s", rate.Rate)
}

func (suite *ExchangeRateServiceTestSuite) TestFindRate_CrossNeedsBothLegs() {
	ctx := context.Background()
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "USD", "SAR", mock.Anything).
		Return(&domain.ExchangeRate{FromCurrency: "USD", ToCurrency: "SAR", Rate: dec("3.75")}, nil).Once()
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil, apperrors.ErrNotFound)

	rate, err := suite.service.FindRate(ctx, "USD", "EUR", date(2024, 3, 15))

	suite.Nil(rate)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *ExchangeRateServiceTestSuite) TestFindRate_IncludesWholeDay() {
	ctx := context.Background()
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "USD", "SAR", mock.MatchedBy(func(at time.Time) bool {
		return at.Hour() == 23
	})).Return(&domain.ExchangeRate{Rate: dec("3.75")}, nil).Once()

	_, err := suite.service.FindRate(ctx, "USD", "SAR", date(2024, 3, 15))

	suite.Require().NoError(err)
	suite.mockRateRepo.AssertExpectations(suite.T())
}

func TestExchangeRateServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ExchangeRateServiceTestSuite))
}
