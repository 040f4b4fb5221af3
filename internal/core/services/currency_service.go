package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/authz"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/platform/config"
)

const activePolicyCacheKey = "currency_policy:active"

// DefaultPolicyCacheTTL bounds how long the active policy is served from memory
// when no activation happened in this process.
const DefaultPolicyCacheTTL = 5 * time.Minute

// currencyPolicyService decides when foreign amounts are converted to the reference currency.
type currencyPolicyService struct {
	BaseService
	policyRepo portsrepo.CurrencyPolicyRepositoryFacade
	rateWriter portsrepo.ExchangeRateWriter
	rates      portssvc.ExchangeRateSvcFacade
	settings   config.SettingsProvider
	cache      *gocache.Cache
}

// CurrencyServiceOption is a functional option for the currency policy service.
type CurrencyServiceOption func(*currencyPolicyService)

// WithCurrencyPolicy sets the authorization policy.
func WithCurrencyPolicy(policy *authz.Policy) CurrencyServiceOption {
	return func(s *currencyPolicyService) {
		s.Policy = policy
	}
}

// WithCurrencyAudit adds the audit recorder dependency.
func WithCurrencyAudit(recorder portssvc.AuditRecorderSvc) CurrencyServiceOption {
	return func(s *currencyPolicyService) {
		s.Audit = recorder
	}
}

// WithPolicyCacheTTL overrides DefaultPolicyCacheTTL. A ttl of zero or less turns
// the cache off and every lookup reads the repository.
func WithPolicyCacheTTL(ttl time.Duration) CurrencyServiceOption {
	return func(s *currencyPolicyService) {
		if ttl <= 0 {
			s.cache = nil
			return
		}
		s.cache = gocache.New(ttl, 2*ttl)
	}
}

// NewCurrencyService creates a new CurrencySvcFacade.
func NewCurrencyService(
	policyRepo portsrepo.CurrencyPolicyRepositoryFacade,
	rateWriter portsrepo.ExchangeRateWriter,
	rates portssvc.ExchangeRateSvcFacade,
	settings config.SettingsProvider,
	options ...CurrencyServiceOption,
) portssvc.CurrencySvcFacade {
	svc := &currencyPolicyService{
		policyRepo: policyRepo,
		rateWriter: rateWriter,
		rates:      rates,
		settings:   settings,
		cache:      gocache.New(DefaultPolicyCacheTTL, 2*DefaultPolicyCacheTTL),
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.CurrencySvcFacade = (*currencyPolicyService)(nil)

// activePolicy returns the active policy or nil when none is configured.
func (s *currencyPolicyService) activePolicy(ctx context.Context) (*domain.CurrencyPolicy, error) {
	if s.cache != nil {
		if cached, found := s.cache.Get(activePolicyCacheKey); found {
			return cached.(*domain.CurrencyPolicy), nil
		}
	}
	policy, err := s.policyRepo.FindActivePolicy(ctx)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to load active currency policy")
			return nil, err
		}
		policy = nil
	}
	if s.cache != nil {
		s.cache.SetDefault(activePolicyCacheKey, policy)
	}
	return policy, nil
}

func (s *currencyPolicyService) invalidate() {
	if s.cache != nil {
		s.cache.Delete(activePolicyCacheKey)
	}
}

func (s *currencyPolicyService) ReferenceCurrency(ctx context.Context) (string, error) {
	policy, err := s.activePolicy(ctx)
	if err != nil {
		return "", err
	}
	if policy != nil {
		return policy.ReferenceCurrency, nil
	}
	return s.settings.Accounting().Currency.ReferenceCurrency, nil
}

// decideConversion is the pure decision table. policy may be nil.
func decideConversion(policy *domain.CurrencyPolicy, req domain.ConversionRequest, referenceCurrency string) domain.ConversionDecision {
	if req.TransactionCurrency == referenceCurrency {
		return domain.SameCurrency
	}
	if req.Exempt {
		return domain.Exempted
	}
	if policy == nil {
		return domain.PolicyMandated
	}
	switch policy.PolicyType {
	case domain.Normalization:
		return domain.PolicyMandated
	case domain.ValuedAsset:
		if policy.ConversionTiming == req.Stage {
			return domain.PolicyMandated
		}
	case domain.UnitOfMeasure:
		if policy.ConversionTiming == domain.TimingReporting && req.Stage == domain.TimingReporting {
			return domain.PolicyMandated
		}
	}
	if req.UserRequested {
		return domain.UserRequested
	}
	return domain.Deferred
}

func (s *currencyPolicyService) DecideConversion(ctx context.Context, req domain.ConversionRequest) (*domain.ConversionContext, error) {
	policy, err := s.activePolicy(ctx)
	if err != nil {
		return nil, err
	}
	cur := s.settings.Accounting().Currency
	reference := cur.ReferenceCurrency
	if policy != nil {
		reference = policy.ReferenceCurrency
	} else {
		s.LogWarn(ctx, "No active currency policy, defaulting to conversion at posting",
			slog.String("reference_currency", reference))
	}

	req.TransactionCurrency = strings.ToUpper(req.TransactionCurrency)
	if req.TransactionCurrency == "" {
		req.TransactionCurrency = reference
	}
	if req.Stage == "" {
		req.Stage = domain.TimingPosting
	}
	if req.Date.IsZero() {
		req.Date = s.Now()
	}

	cc := &domain.ConversionContext{
		Decision:            decideConversion(policy, req, reference),
		TransactionCurrency: req.TransactionCurrency,
		ReferenceCurrency:   reference,
	}
	if policy != nil {
		snapshot := policy.Snapshot()
		cc.Policy = &snapshot
	}
	if !cc.Decision.InvolvesConversion() {
		return cc, nil
	}

	rate, err := s.rates.FindRate(ctx, req.TransactionCurrency, reference, req.Date)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		if cur.RequireExchangeRate {
			return nil, apperrors.NewBusinessError(apperrors.ErrMissingExchangeRate,
				fmt.Sprintf("no %s/%s exchange rate available for %s", req.TransactionCurrency, reference, req.Date.Format(time.DateOnly)))
		}
		s.LogWarn(ctx, "Exchange rate missing, conversion deferred",
			slog.String("pair", req.TransactionCurrency+"/"+reference),
			slog.String("date", req.Date.Format(time.DateOnly)))
		cc.Decision = domain.Deferred
		return cc, nil
	}

	value := rate.Rate.Round(cur.ExchangeRatePrecision)
	effective := rate.EffectiveAt
	cc.Rate = &value
	cc.RateSource = rate.Source
	cc.RateDate = &effective

	if cur.AutoRecordRates {
		s.recordUsedRate(ctx, *rate, value)
	}
	return cc, nil
}

// recordUsedRate appends the rate a conversion used so the conversion can be reproduced.
// A failure is logged only; the history keeps the first record per pair and timestamp.
func (s *currencyPolicyService) recordUsedRate(ctx context.Context, rate domain.ExchangeRate, value decimal.Decimal) {
	if s.rateWriter == nil {
		return
	}
	used := rate
	used.RateID = uuid.NewString()
	used.Rate = value
	used.CreatedAt = s.Now()
	if used.CreatedBy == "" {
		used.CreatedBy = string(domain.RateSystem)
	}
	if err := s.rateWriter.AppendRate(ctx, used); err != nil {
		s.LogError(ctx, err, "Failed to record used exchange rate", slog.String("pair", used.FromCurrency+"/"+used.ToCurrency))
	}
}

func (s *currencyPolicyService) Convert(ctx context.Context, amount decimal.Decimal, from, to string, date time.Time) (*dto.ConversionResult, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	cur := s.settings.Accounting().Currency
	result := &dto.ConversionResult{
		Decision:        domain.SameCurrency,
		FromCurrency:    from,
		ToCurrency:      to,
		OriginalAmount:  amount,
		ConvertedAmount: amount,
	}
	if from != to {
		rate, err := s.rates.FindRate(ctx, from, to, date)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NewBusinessError(apperrors.ErrMissingExchangeRate,
					fmt.Sprintf("no %s/%s exchange rate available for %s", from, to, date.Format(time.DateOnly)))
			}
			return nil, err
		}
		value := rate.Rate.Round(cur.ExchangeRatePrecision)
		effective := rate.EffectiveAt
		result.Decision = domain.UserRequested
		result.Rate = &value
		result.RateSource = rate.Source
		result.RateDate = &effective
		result.ConvertedAmount = amount.Mul(value).Round(cur.AmountPrecision)
	}
	result.Label = result.Decision.Label()
	return result, nil
}

func (s *currencyPolicyService) Preview(ctx context.Context, req dto.ConvertRequest) (*dto.ConversionResult, error) {
	date := s.Now()
	if req.Date != nil {
		date = *req.Date
	}
	cc, err := s.DecideConversion(ctx, domain.ConversionRequest{
		TransactionCurrency: req.FromCurrency,
		Stage:               req.Stage,
		Date:                date,
		UserRequested:       req.UserRequested,
		Exempt:              req.Exempt,
	})
	if err != nil {
		return nil, err
	}
	result := &dto.ConversionResult{
		Decision:        cc.Decision,
		Label:           cc.Decision.Label(),
		FromCurrency:    cc.TransactionCurrency,
		ToCurrency:      cc.TransactionCurrency,
		OriginalAmount:  req.Amount,
		ConvertedAmount: cc.Apply(req.Amount, s.settings.Accounting().Currency.AmountPrecision),
		Rate:            cc.Rate,
		RateSource:      cc.RateSource,
		RateDate:        cc.RateDate,
	}
	if cc.Decision.InvolvesConversion() {
		result.ToCurrency = cc.ReferenceCurrency
	}
	return result, nil
}

func (s *currencyPolicyService) CreatePolicy(ctx context.Context, actor domain.Actor, req dto.CreateCurrencyPolicyRequest) (*domain.CurrencyPolicy, error) {
	if err := s.RequirePermission(ctx, actor, authz.PermManageCurrency); err != nil {
		return nil, err
	}
	source := req.ExchangeRateSource
	if source == "" {
		source = domain.RateSource(strings.ToUpper(s.settings.Accounting().Currency.DefaultExchangeRateSource))
	}
	now := s.Now()
	policy := domain.CurrencyPolicy{
		PolicyID:                   uuid.NewString(),
		Name:                       req.Name,
		PolicyType:                 req.PolicyType,
		ConversionTiming:           req.ConversionTiming,
		ReferenceCurrency:          strings.ToUpper(req.ReferenceCurrency),
		AllowMultiCurrencyBalances: req.AllowMultiCurrencyBalances,
		RevaluationEnabled:         req.RevaluationEnabled,
		RevaluationFrequency:       req.RevaluationFrequency,
		ExchangeRateSource:         source,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actor.ID,
			LastUpdatedAt: now,
			LastUpdatedBy: actor.ID,
		},
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if err := s.policyRepo.SavePolicy(ctx, policy); err != nil {
		s.LogError(ctx, err, "Failed to save currency policy", slog.String("name", policy.Name))
		return nil, err
	}
	s.RecordAudit(ctx, &actor, portssvc.AuditEvent{
		Action:      "currency_policy.created",
		Module:      moduleCurrency,
		Description: fmt.Sprintf("Created currency policy %s (%s)", policy.Name, policy.PolicyType),
		Metadata: map[string]any{
			"policy_type":        string(policy.PolicyType),
			"conversion_timing":  string(policy.ConversionTiming),
			"reference_currency": policy.ReferenceCurrency,
			"rate_source":        string(policy.ExchangeRateSource),
		},
	})
	return &policy, nil
}

func (s *currencyPolicyService) ListPolicies(ctx context.Context) ([]domain.CurrencyPolicy, error) {
	return s.policyRepo.ListPolicies(ctx)
}

// ActivatePolicy switches the active policy and drops the cached one, so the next
// conversion cannot run against a stale reference currency.
func (s *currencyPolicyService) ActivatePolicy(ctx context.Context, actor domain.Actor, policyID string) (*domain.CurrencyPolicy, error) {
	if err := s.RequirePermission(ctx, actor, authz.PermManageCurrency); err != nil {
		return nil, err
	}
	policy, err := s.policyRepo.ActivatePolicy(ctx, policyID, actor.ID, s.Now())
	s.invalidate()
	if err != nil {
		return nil, err
	}
	s.RecordAudit(ctx, &actor, portssvc.AuditEvent{
		Action:      "currency_policy.activated",
		Module:      moduleCurrency,
		Description: fmt.Sprintf("Activated currency policy %s", policy.Name),
		Metadata:    map[string]any{"policy_id": policy.PolicyID, "reference_currency": policy.ReferenceCurrency},
	})
	s.LogInfo(ctx, "Currency policy activated", slog.String("policy_id", policy.PolicyID))
	return policy, nil
}

func (s *currencyPolicyService) PolicyStatus(ctx context.Context) (*dto.CurrencyPolicyStatus, error) {
	policy, err := s.activePolicy(ctx)
	if err != nil {
		return nil, err
	}
	status := &dto.CurrencyPolicyStatus{
		ReferenceCurrency:         s.settings.Accounting().Currency.ReferenceCurrency,
		RequiresPostingConversion: true,
		ExchangeRateSource:        domain.RateSource(strings.ToUpper(s.settings.Accounting().Currency.DefaultExchangeRateSource)),
	}
	if policy != nil {
		status.ActivePolicy = policy
		status.ReferenceCurrency = policy.ReferenceCurrency
		status.RequiresPostingConversion = policy.RequiresPostingConversion()
		status.AllowsMultiCurrencyBalances = policy.AllowsMultiCurrencyBalances()
		status.RevaluationEnabled = policy.RevaluationEnabled
		status.ExchangeRateSource = policy.ExchangeRateSource
	}
	return status, nil
}
