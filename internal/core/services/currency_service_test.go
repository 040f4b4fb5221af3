package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/core/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/platform/config"
)

type currencyFixture struct {
	policyRepo *MockCurrencyPolicyRepository
	rateRepo   *MockExchangeRateRepository
	audit      *recordingAudit
	svc        portssvc.CurrencySvcFacade
}

func newCurrencyFixture(settings config.SettingsProvider) *currencyFixture {
	f := &currencyFixture{
		policyRepo: new(MockCurrencyPolicyRepository),
		rateRepo:   new(MockExchangeRateRepository),
		audit:      &recordingAudit{},
	}
	rates := services.NewExchangeRateService(f.rateRepo, settings, nil, f.audit)
	f.svc = services.NewCurrencyService(f.policyRepo, f.rateRepo, rates, settings, services.WithCurrencyAudit(f.audit))
	return f
}

// withUSDRate makes USD/SAR 3.75 available and accepts the auto-recorded copy.
func (f *currencyFixture) withUSDRate() {
	f.rateRepo.On("FindRateOnOrBefore", mock.Anything, "USD", "SAR", mock.Anything).
		Return(&domain.ExchangeRate{FromCurrency: "USD", ToCurrency: "SAR", Rate: dec("3.75"), Source: domain.RateManual, EffectiveAt: date(2024, 3, 1)}, nil)
	f.rateRepo.On("AppendRate", mock.Anything, mock.Anything).Return(nil).Maybe()
}

func TestDecideConversion_DecisionTable(t *testing.T) {
	tests := []struct {
		name          string
		policy        *domain.CurrencyPolicy
		currency      string
		stage         domain.ConversionTiming
		userRequested bool
		exempt        bool
		want          domain.ConversionDecision
	}{
		{"same currency", sarPolicy(domain.Normalization, domain.TimingPosting), "SAR", domain.TimingPosting, false, false, domain.SameCurrency},
		{"empty currency means reference", sarPolicy(domain.Normalization, domain.TimingPosting), "", domain.TimingPosting, false, false, domain.SameCurrency},
		{"exempt", sarPolicy(domain.Normalization, domain.TimingPosting), "USD", domain.TimingPosting, false, true, domain.Exempted},
		{"no policy converts", nil, "USD", domain.TimingPosting, false, false, domain.PolicyMandated},
		{"normalization converts", sarPolicy(domain.Normalization, domain.TimingPosting), "usd", domain.TimingPosting, false, false, domain.PolicyMandated},
		{"valued asset at its stage", sarPolicy(domain.ValuedAsset, domain.TimingPosting), "USD", domain.TimingPosting, false, false, domain.PolicyMandated},
		{"valued asset before its stage", sarPolicy(domain.ValuedAsset, domain.TimingSettlement), "USD", domain.TimingPosting, false, false, domain.Deferred},
		{"valued asset user requested", sarPolicy(domain.ValuedAsset, domain.TimingSettlement), "USD", domain.TimingPosting, true, false, domain.UserRequested},
		{"unit of measure never", sarPolicy(domain.UnitOfMeasure, domain.TimingNever), "USD", domain.TimingPosting, false, false, domain.Deferred},
		{"unit of measure at reporting", sarPolicy(domain.UnitOfMeasure, domain.TimingReporting), "USD", domain.TimingReporting, false, false, domain.PolicyMandated},
		{"unit of measure reporting policy at posting", sarPolicy(domain.UnitOfMeasure, domain.TimingReporting), "USD", domain.TimingPosting, false, false, domain.Deferred},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCurrencyFixture(testSettings())
			if tt.policy == nil {
				f.policyRepo.On("FindActivePolicy", mock.Anything).Return(nil, apperrors.ErrNotFound).Once()
			} else {
				f.policyRepo.On("FindActivePolicy", mock.Anything).Return(tt.policy, nil).Once()
			}
			f.withUSDRate()

			cc, err := f.svc.DecideConversion(context.Background(), domain.ConversionRequest{
				TransactionCurrency: tt.currency,
				Stage:               tt.stage,
				Date:                date(2024, 3, 15),
				UserRequested:       tt.userRequested,
				Exempt:              tt.exempt,
			})

			require.NoError(t, err)
			assert.Equal(t, tt.want, cc.Decision)
			assert.Equal(t, "SAR", cc.ReferenceCurrency)
			if tt.want.InvolvesConversion() {
				require.NotNil(t, cc.Rate)
				assert.True(t, dec("3.75").Equal(*cc.Rate))
				assert.True(t, dec("375").Equal(cc.Apply(dec("100"), 4)))
			} else {
				assert.Nil(t, cc.Rate)
				assert.True(t, dec("100").Equal(cc.Apply(dec("100"), 4)))
			}
		})
	}
}

func TestDecideConversion_RecordsUsedRate(t *testing.T) {
	f := newCurrencyFixture(testSettings())
	f.policyRepo.On("FindActivePolicy", mock.Anything).Return(sarPolicy(domain.Normalization, domain.TimingPosting), nil).Once()
	f.rateRepo.On("FindRateOnOrBefore", mock.Anything, "USD", "SAR", mock.Anything).
		Return(&domain.ExchangeRate{FromCurrency: "USD", ToCurrency: "SAR", Rate: dec("3.75"), Source: domain.RateManual}, nil).Once()
	f.rateRepo.On("AppendRate", mock.Anything, mock.MatchedBy(func(r domain.ExchangeRate) bool {
		return r.FromCurrency == "USD" && r.ToCurrency == "SAR" && r.Rate.Equal(dec("3.75"))
	})).Return(nil).Once()

	cc, err := f.svc.DecideConversion(context.Background(), domain.ConversionRequest{TransactionCurrency: "USD", Date: date(2024, 3, 15)})

	require.NoError(t, err)
	assert.Equal(t, domain.PolicyMandated, cc.Decision)
	require.NotNil(t, cc.Policy)
	assert.Equal(t, "pol-1", cc.Policy.PolicyID)
	f.rateRepo.AssertExpectations(t)
}

func TestDecideConversion_MissingRate(t *testing.T) {
	t.Run("required rate fails", func(t *testing.T) {
		f := newCurrencyFixture(testSettings())
		f.policyRepo.On("FindActivePolicy", mock.Anything).Return(sarPolicy(domain.Normalization, domain.TimingPosting), nil).Once()
		f.rateRepo.On("FindRateOnOrBefore", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, apperrors.ErrNotFound)

		cc, err := f.svc.DecideConversion(context.Background(), domain.ConversionRequest{TransactionCurrency: "EUR", Date: date(2024, 3, 15)})

		assert.Nil(t, cc)
		assert.ErrorIs(t, err, apperrors.ErrMissingExchangeRate)
	})

	t.Run("optional rate defers", func(t *testing.T) {
		settings := config.DefaultAccountingSettings()
		settings.Currency.RequireExchangeRate = false
		f := newCurrencyFixture(config.StaticSettings(settings))
		f.policyRepo.On("FindActivePolicy", mock.Anything).Return(sarPolicy(domain.Normalization, domain.TimingPosting), nil).Once()
		f.rateRepo.On("FindRateOnOrBefore", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, apperrors.ErrNotFound)

		cc, err := f.svc.DecideConversion(context.Background(), domain.ConversionRequest{TransactionCurrency: "EUR", Date: date(2024, 3, 15)})

		require.NoError(t, err)
		assert.Equal(t, domain.Deferred, cc.Decision)
		assert.Nil(t, cc.Rate)
	})
}

func TestActivePolicy_CachedUntilActivation(t *testing.T) {
	ctx := context.Background()
	f := newCurrencyFixture(testSettings())
	usd := sarPolicy(domain.Normalization, domain.TimingPosting)
	usd.PolicyID = "pol-usd"
	usd.ReferenceCurrency = "USD"

	f.policyRepo.On("FindActivePolicy", ctx).Return(sarPolicy(domain.Normalization, domain.TimingPosting), nil).Once()
	ref, err := f.svc.ReferenceCurrency(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SAR", ref)

	// served from cache
	ref, err = f.svc.ReferenceCurrency(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SAR", ref)

	f.policyRepo.On("ActivatePolicy", ctx, "pol-usd", admin.ID, mock.Anything).Return(usd, nil).Once()
	_, err = f.svc.ActivatePolicy(ctx, admin, "pol-usd")
	require.NoError(t, err)

	f.policyRepo.On("FindActivePolicy", ctx).Return(usd, nil).Once()
	ref, err = f.svc.ReferenceCurrency(ctx)
	require.NoError(t, err)
	assert.Equal(t, "USD", ref)

	f.policyRepo.AssertNumberOfCalls(t, "FindActivePolicy", 2)
	assert.Equal(t, []string{"currency_policy.activated"}, f.audit.actions())
}

func TestActivePolicy_ZeroTTLDisablesCache(t *testing.T) {
	ctx := context.Background()
	policyRepo := new(MockCurrencyPolicyRepository)
	rateRepo := new(MockExchangeRateRepository)
	rates := services.NewExchangeRateService(rateRepo, testSettings(), nil, nil)
	svc := services.NewCurrencyService(policyRepo, rateRepo, rates, testSettings(), services.WithPolicyCacheTTL(0))
	policyRepo.On("FindActivePolicy", ctx).Return(sarPolicy(domain.Normalization, domain.TimingPosting), nil)

	for i := 0; i < 3; i++ {
		ref, err := svc.ReferenceCurrency(ctx)
		require.NoError(t, err)
		assert.Equal(t, "SAR", ref)
	}

	policyRepo.AssertNumberOfCalls(t, "FindActivePolicy", 3)
}

func TestDecideConversion_RepeatedDecisionIsStable(t *testing.T) {
	ctx := context.Background()
	f := newCurrencyFixture(testSettings())
	f.policyRepo.On("FindActivePolicy", ctx).Return(sarPolicy(domain.ValuedAsset, domain.TimingPosting), nil)
	f.withUSDRate()
	req := domain.ConversionRequest{TransactionCurrency: "usd", Stage: domain.TimingPosting, Date: date(2024, 3, 15)}

	first, err := f.svc.DecideConversion(ctx, req)
	require.NoError(t, err)
	second, err := f.svc.DecideConversion(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, domain.PolicyMandated, first.Decision)
	assert.Equal(t, first.Decision, second.Decision)
	assert.Equal(t, first.ReferenceCurrency, second.ReferenceCurrency)
	assert.Equal(t, first.RateSource, second.RateSource)
	assert.Equal(t, first.Policy, second.Policy)
	require.NotNil(t, first.Rate)
	require.NotNil(t, second.Rate)
	assert.True(t, first.Rate.Equal(*second.Rate))
	for _, amount := range []string{"0.0001", "10.005", "99999.99995", "123456789.1234"} {
		assert.True(t, first.Apply(dec(amount), 4).Equal(second.Apply(dec(amount), 4)), "amount %s", amount)
	}
}

func TestDecideConversion_RecordedRateReproducesConversion(t *testing.T) {
	tests := []struct {
		name   string
		stored *domain.ExchangeRate
	}{
		{"direct pair", &domain.ExchangeRate{FromCurrency: "USD", ToCurrency: "SAR", Rate: dec("3.75"), Source: domain.RateManual, EffectiveAt: date(2024, 3, 1)}},
		{"inverse pair", &domain.ExchangeRate{FromCurrency: "SAR", ToCurrency: "USD", Rate: dec("0.26666667"), Source: domain.RateCentralBank, EffectiveAt: date(2024, 3, 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newCurrencyFixture(testSettings())
			f.policyRepo.On("FindActivePolicy", ctx).Return(sarPolicy(domain.Normalization, domain.TimingPosting), nil)
			f.rateRepo.On("FindRateOnOrBefore", ctx, tt.stored.FromCurrency, tt.stored.ToCurrency, mock.Anything).Return(tt.stored, nil)
			f.rateRepo.On("FindRateOnOrBefore", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil, apperrors.ErrNotFound)
			var recorded domain.ExchangeRate
			f.rateRepo.On("AppendRate", ctx, mock.AnythingOfType("domain.ExchangeRate")).
				Run(func(args mock.Arguments) { recorded = args.Get(1).(domain.ExchangeRate) }).
				Return(nil).Once()

			cc, err := f.svc.DecideConversion(ctx, domain.ConversionRequest{TransactionCurrency: "USD", Date: date(2024, 3, 15)})
			require.NoError(t, err)
			f.rateRepo.AssertExpectations(t)

			assert.Equal(t, "USD", recorded.FromCurrency)
			assert.Equal(t, "SAR", recorded.ToCurrency)
			assert.Equal(t, tt.stored.Source, recorded.Source)
			for _, amount := range []string{"1", "10.005", "10000", "0.3333"} {
				converted := cc.Apply(dec(amount), 4)
				replayed := dec(amount).Mul(recorded.Rate).Round(4)
				assert.True(t, converted.Equal(replayed), "amount %s: converted %s, replayed %s", amount, converted, replayed)
			}
			// the recorded inverse stays within rounding of dividing by the stored rate
			if tt.stored.FromCurrency == "SAR" {
				direct := dec("10000").DivRound(tt.stored.Rate, 8)
				assert.True(t, cc.Apply(dec("10000"), 4).Sub(direct).Abs().LessThanOrEqual(dec("0.0001")))
			}
		})
	}
}

func TestActivatePolicy_RequiresPermission(t *testing.T) {
	f := newCurrencyFixture(testSettings())

	policy, err := f.svc.ActivatePolicy(context.Background(), clerk, "pol-1")

	assert.Nil(t, policy)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	f.policyRepo.AssertNotCalled(t, "ActivatePolicy", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreatePolicy(t *testing.T) {
	tests := []struct {
		name    string
		req     dto.CreateCurrencyPolicyRequest
		wantErr error
	}{
		{
			name: "normalization at posting",
			req:  dto.CreateCurrencyPolicyRequest{Name: "Normalize", PolicyType: domain.Normalization, ConversionTiming: domain.TimingPosting, ReferenceCurrency: "sar"},
		},
		{
			name: "explicit rate source",
			req:  dto.CreateCurrencyPolicyRequest{Name: "Bank rates", PolicyType: domain.Normalization, ConversionTiming: domain.TimingPosting, ReferenceCurrency: "SAR", ExchangeRateSource: domain.RateCentralBank},
		},
		{
			name:    "system is not a policy rate source",
			req:     dto.CreateCurrencyPolicyRequest{Name: "Bad", PolicyType: domain.Normalization, ConversionTiming: domain.TimingPosting, ReferenceCurrency: "SAR", ExchangeRateSource: domain.RateSystem},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "normalization must convert at posting",
			req:     dto.CreateCurrencyPolicyRequest{Name: "Bad", PolicyType: domain.Normalization, ConversionTiming: domain.TimingSettlement, ReferenceCurrency: "SAR"},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "unit of measure must allow multi-currency balances",
			req:     dto.CreateCurrencyPolicyRequest{Name: "Bad", PolicyType: domain.UnitOfMeasure, ConversionTiming: domain.TimingNever, ReferenceCurrency: "SAR"},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "revaluation only for valued asset",
			req:     dto.CreateCurrencyPolicyRequest{Name: "Bad", PolicyType: domain.Normalization, ConversionTiming: domain.TimingPosting, ReferenceCurrency: "SAR", RevaluationEnabled: true},
			wantErr: apperrors.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCurrencyFixture(testSettings())
			f.policyRepo.On("SavePolicy", mock.Anything, mock.AnythingOfType("domain.CurrencyPolicy")).Return(nil).Maybe()

			policy, err := f.svc.CreatePolicy(context.Background(), admin, tt.req)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				f.policyRepo.AssertNotCalled(t, "SavePolicy", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "SAR", policy.ReferenceCurrency)
			if tt.req.ExchangeRateSource == "" {
				assert.Equal(t, domain.RateManual, policy.ExchangeRateSource)
			} else {
				assert.Equal(t, tt.req.ExchangeRateSource, policy.ExchangeRateSource)
			}
			assert.False(t, policy.IsActive)
			assert.NotEmpty(t, policy.PolicyID)
		})
	}
}

func TestCreatePolicy_RateSourceFromConfig(t *testing.T) {
	settings := config.DefaultAccountingSettings()
	settings.Currency.DefaultExchangeRateSource = "api"
	f := newCurrencyFixture(config.StaticSettings(settings))
	f.policyRepo.On("SavePolicy", mock.Anything, mock.MatchedBy(func(p domain.CurrencyPolicy) bool {
		return p.ExchangeRateSource == domain.RateAPI
	})).Return(nil).Once()

	policy, err := f.svc.CreatePolicy(context.Background(), admin,
		dto.CreateCurrencyPolicyRequest{Name: "Feed", PolicyType: domain.Normalization, ConversionTiming: domain.TimingPosting, ReferenceCurrency: "SAR"})

	require.NoError(t, err)
	assert.Equal(t, domain.RateAPI, policy.ExchangeRateSource)
	f.policyRepo.AssertExpectations(t)
}

func TestConvert(t *testing.T) {
	ctx := context.Background()

	t.Run("converts at the found rate", func(t *testing.T) {
		f := newCurrencyFixture(testSettings())
		f.withUSDRate()

		result, err := f.svc.Convert(ctx, dec("10.005"), "usd", "sar", date(2024, 3, 15))

		require.NoError(t, err)
		assert.Equal(t, domain.UserRequested, result.Decision)
		// 37.51875 rounded half away from zero to four places
		assert.True(t, dec("37.5188").Equal(result.ConvertedAmount), "got %s", result.ConvertedAmount)
	})

	t.Run("same currency is unchanged", func(t *testing.T) {
		f := newCurrencyFixture(testSettings())

		result, err := f.svc.Convert(ctx, dec("10"), "SAR", "SAR", date(2024, 3, 15))

		require.NoError(t, err)
		assert.Equal(t, domain.SameCurrency, result.Decision)
		assert.True(t, dec("10").Equal(result.ConvertedAmount))
	})

	t.Run("missing rate", func(t *testing.T) {
		f := newCurrencyFixture(testSettings())
		f.rateRepo.On("FindRateOnOrBefore", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, apperrors.ErrNotFound)

		_, err := f.svc.Convert(ctx, dec("10"), "EUR", "SAR", date(2024, 3, 15))

		assert.ErrorIs(t, err, apperrors.ErrMissingExchangeRate)
	})
}

func TestPolicyStatus_WithoutPolicy(t *testing.T) {
	f := newCurrencyFixture(testSettings())
	f.policyRepo.On("FindActivePolicy", mock.Anything).Return(nil, apperrors.ErrNotFound).Once()

	status, err := f.svc.PolicyStatus(context.Background())

	require.NoError(t, err)
	assert.Nil(t, status.ActivePolicy)
	assert.Equal(t, "SAR", status.ReferenceCurrency)
	assert.True(t, status.RequiresPostingConversion)
	assert.Equal(t, domain.RateManual, status.ExchangeRateSource)
}
