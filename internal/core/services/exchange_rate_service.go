package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/authz"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/platform/config"
)

const moduleCurrency = "currency"

// exchangeRateService maintains the append-only rate history.
type exchangeRateService struct {
	BaseService
	rateRepo portsrepo.ExchangeRateRepositoryFacade
	settings config.SettingsProvider
}

// NewExchangeRateService creates a new ExchangeRateSvcFacade.
func NewExchangeRateService(rateRepo portsrepo.ExchangeRateRepositoryFacade, settings config.SettingsProvider, policy *authz.Policy, recorder portssvc.AuditRecorderSvc) portssvc.ExchangeRateSvcFacade {
	return &exchangeRateService{
		BaseService: BaseService{Policy: policy, Audit: recorder},
		rateRepo:    rateRepo,
		settings:    settings,
	}
}

var _ portssvc.ExchangeRateSvcFacade = (*exchangeRateService)(nil)

func (s *exchangeRateService) RecordRate(ctx context.Context, actor domain.Actor, req dto.RecordExchangeRateRequest) (*domain.ExchangeRate, error) {
	if err := s.RequirePermission(ctx, actor, authz.PermManageCurrency); err != nil {
		return nil, err
	}
	from, to := strings.ToUpper(req.FromCurrency), strings.ToUpper(req.ToCurrency)
	if from == to {
		return nil, apperrors.NewValidationError("from and to currencies must differ")
	}
	if !req.Rate.IsPositive() {
		return nil, apperrors.NewValidationError("rate must be positive")
	}

	cur := s.settings.Accounting().Currency
	source := req.Source
	if source == "" {
		source = domain.RateSource(cur.DefaultExchangeRateSource)
	}
	if !source.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown rate source %q", source))
	}

	now := s.Now()
	effective := now
	if req.EffectiveAt != nil {
		effective = req.EffectiveAt.UTC()
	}
	rate := domain.ExchangeRate{
		RateID:       uuid.NewString(),
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         req.Rate.Round(cur.ExchangeRatePrecision),
		Source:       source,
		EffectiveAt:  effective,
		Notes:        req.Notes,
		CreatedBy:    actor.ID,
		CreatedAt:    now,
	}
	if err := s.rateRepo.AppendRate(ctx, rate); err != nil {
		s.LogError(ctx, err, "Failed to record exchange rate", slog.String("pair", from+"/"+to))
		return nil, err
	}

	s.RecordAudit(ctx, &actor, portssvc.AuditEvent{
		Action:      "exchange_rate.recorded",
		Module:      moduleCurrency,
		Description: fmt.Sprintf("Recorded %s/%s rate %s", from, to, rate.Rate.String()),
		Metadata: map[string]any{
			"rate":         rate.Rate.String(),
			"source":       string(rate.Source),
			"effective_at": rate.EffectiveAt.Format(time.RFC3339),
		},
	})
	return &rate, nil
}

// FindRate looks up the direct rate first and falls back to inverting the reverse pair.
// When neither exists it derives a cross rate through the configured reference currency.
func (s *exchangeRateService) FindRate(ctx context.Context, from, to string, date time.Time) (*domain.ExchangeRate, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return &domain.ExchangeRate{FromCurrency: from, ToCurrency: to, Rate: decimal.NewFromInt(1), Source: domain.RateSystem, EffectiveAt: date}, nil
	}
	at := endOfDay(date)

	rate, err := s.pairRate(ctx, from, to, at)
	if err == nil {
		return rate, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	cross, err := s.crossRate(ctx, from, to, at)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("no %s/%s exchange rate on or before %s", from, to, date.Format(time.DateOnly)))
		}
		return nil, err
	}
	return cross, nil
}

// pairRate returns the direct rate or the inverse of the reverse pair.
func (s *exchangeRateService) pairRate(ctx context.Context, from, to string, at time.Time) (*domain.ExchangeRate, error) {
	rate, err := s.rateRepo.FindRateOnOrBefore(ctx, from, to, at)
	if err == nil || !errors.Is(err, apperrors.ErrNotFound) {
		return rate, err
	}
	reverse, err := s.rateRepo.FindRateOnOrBefore(ctx, to, from, at)
	if err != nil {
		return nil, err
	}
	inverse := reverse.Inverse(s.settings.Accounting().Currency.ExchangeRatePrecision)
	return &inverse, nil
}

// crossRate chains from/reference and reference/to. The result is a SYSTEM rate
// effective at the older of its two legs.
func (s *exchangeRateService) crossRate(ctx context.Context, from, to string, at time.Time) (*domain.ExchangeRate, error) {
	cur := s.settings.Accounting().Currency
	pivot := strings.ToUpper(cur.ReferenceCurrency)
	if pivot == "" || pivot == from || pivot == to {
		return nil, apperrors.ErrNotFound
	}
	first, err := s.pairRate(ctx, from, pivot, at)
	if err != nil {
		return nil, err
	}
	second, err := s.pairRate(ctx, pivot, to, at)
	if err != nil {
		return nil, err
	}
	effective := first.EffectiveAt
	if second.EffectiveAt.Before(effective) {
		effective = second.EffectiveAt
	}
	return &domain.ExchangeRate{
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         first.Rate.Mul(second.Rate).Round(cur.ExchangeRatePrecision),
		Source:       domain.RateSystem,
		EffectiveAt:  effective,
		Notes:        fmt.Sprintf("cross rate via %s (%s, %s)", pivot, first.Rate.String(), second.Rate.String()),
	}, nil
}

func (s *exchangeRateService) ListRates(ctx context.Context, params dto.ListExchangeRatesParams) ([]domain.ExchangeRate, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	return s.rateRepo.ListRates(ctx, strings.ToUpper(params.FromCurrency), strings.ToUpper(params.ToCurrency), limit)
}

// endOfDay makes a calendar date include rates recorded at any time on that day.
func endOfDay(t time.Time) time.Time {
	return domain.DateOnly(t).Add(24*time.Hour - time.Nanosecond)
}
