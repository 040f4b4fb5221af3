package services

import (
	"context"
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

// ReferenceTypeRevaluation marks unrealized gain/loss entries.
const ReferenceTypeRevaluation = domain.ReferenceRevaluation

// revaluationService restates foreign currency balances at a new rate under a
// VALUED_ASSET policy, booking the difference as unrealized gain or loss.
type revaluationService struct {
	BaseService
	balances   portsrepo.AccountBalanceReader
	rateWriter portsrepo.ExchangeRateWriter
	currency   portssvc.CurrencySvcFacade
	journal    portssvc.JournalPostingSvc
	settings   config.SettingsProvider
}

// NewRevaluationService creates a RevaluationSvc.
func NewRevaluationService(
	balances portsrepo.AccountBalanceReader,
	rateWriter portsrepo.ExchangeRateWriter,
	currency portssvc.CurrencySvcFacade,
	journal portssvc.JournalPostingSvc,
	settings config.SettingsProvider,
	policy *authz.Policy,
	recorder portssvc.AuditRecorderSvc,
) portssvc.RevaluationSvc {
	return &revaluationService{
		BaseService: BaseService{Policy: policy, Audit: recorder},
		balances:    balances,
		rateWriter:  rateWriter,
		currency:    currency,
		journal:     journal,
		settings:    settings,
	}
}

var _ portssvc.RevaluationSvc = (*revaluationService)(nil)

func (s *revaluationService) Revalue(ctx context.Context, actor domain.Actor, req dto.RevaluationRequest) (*dto.RevaluationResult, error) {
	if err := s.RequirePermission(ctx, actor, authz.PermManageCurrency); err != nil {
		return nil, err
	}
	status, err := s.currency.PolicyStatus(ctx)
	if err != nil {
		return nil, err
	}
	policy := status.ActivePolicy
	if policy == nil || policy.PolicyType != domain.ValuedAsset || !policy.RevaluationEnabled {
		return nil, apperrors.NewBusinessError(apperrors.ErrBusinessLogic,
			"revaluation requires an active VALUED_ASSET policy with revaluation enabled")
	}
	currency := strings.ToUpper(req.Currency)
	if currency == policy.ReferenceCurrency {
		return nil, apperrors.NewValidationError("cannot revalue the reference currency")
	}

	settings := s.settings.Accounting()
	rate := req.Rate.Round(settings.Currency.ExchangeRatePrecision)
	date := domain.DateOnly(req.RevaluationDate)

	positions, err := s.balances.ListForeignCurrencyBalances(ctx, currency, date)
	if err != nil {
		s.LogError(ctx, err, "Failed to load foreign currency balances", slog.String("currency", currency))
		return nil, err
	}

	result := &dto.RevaluationResult{
		Currency:        currency,
		Rate:            rate,
		RevaluationDate: date,
		Adjustments:     []dto.RevaluationAdjustment{},
	}
	lines := make([]dto.JournalLineRequest, 0, len(positions)+2)
	gain, loss := decimal.Zero, decimal.Zero
	for _, p := range positions {
		if !p.AccountType.IsMonetary() {
			continue
		}
		revalued := p.ForeignAmount.Mul(rate).Round(settings.Currency.AmountPrecision)
		diff := revalued.Sub(p.CarryingAmount)
		if diff.IsZero() {
			continue
		}
		result.Adjustments = append(result.Adjustments, dto.RevaluationAdjustment{
			AccountCode:    p.AccountCode,
			ForeignAmount:  p.ForeignAmount,
			CarryingAmount: p.CarryingAmount,
			RevaluedAmount: revalued,
			Difference:     diff,
		})
		// amounts are debit-positive, so a positive difference increases a debit balance
		line := dto.JournalLineRequest{
			AccountCode: p.AccountCode,
			Debit:       decimal.Zero,
			Credit:      decimal.Zero,
			Description: fmt.Sprintf("Revaluation of %s %s at %s", p.ForeignAmount.String(), currency, rate.String()),
		}
		if diff.IsPositive() {
			line.Debit = diff
			gain = gain.Add(diff)
		} else {
			line.Credit = diff.Neg()
			loss = loss.Add(diff.Neg())
		}
		lines = append(lines, line)
	}

	if len(lines) > 0 {
		if gain.IsPositive() {
			lines = append(lines, dto.JournalLineRequest{
				AccountCode: settings.Currency.UnrealizedGainAccount,
				Debit:       decimal.Zero,
				Credit:      gain,
				Description: "Unrealized exchange gain",
			})
		}
		if loss.IsPositive() {
			lines = append(lines, dto.JournalLineRequest{
				AccountCode: settings.Currency.UnrealizedLossAccount,
				Debit:       loss,
				Credit:      decimal.Zero,
				Description: "Unrealized exchange loss",
			})
		}
		entry, err := s.journal.Post(ctx, actor, dto.PostJournalEntryRequest{
			EntryDate:     date,
			Description:   fmt.Sprintf("%s revaluation at %s", currency, rate.String()),
			CurrencyCode:  policy.ReferenceCurrency,
			ReferenceType: ReferenceTypeRevaluation,
			ReferenceID:   currency + ":" + date.Format(time.DateOnly),
			Lines:         lines,
		})
		if err != nil {
			return nil, err
		}
		result.Entry = entry
	}

	if s.rateWriter != nil {
		now := s.Now()
		if err := s.rateWriter.AppendRate(ctx, domain.ExchangeRate{
			RateID:       uuid.NewString(),
			FromCurrency: currency,
			ToCurrency:   policy.ReferenceCurrency,
			Rate:         rate,
			Source:       domain.RateSystem,
			EffectiveAt:  date,
			Notes:        "revaluation",
			CreatedBy:    actor.ID,
			CreatedAt:    now,
		}); err != nil {
			s.LogError(ctx, err, "Failed to record revaluation rate", slog.String("currency", currency))
		}
	}

	s.RecordAudit(ctx, &actor, portssvc.AuditEvent{
		Action:      "currency.revalued",
		Module:      moduleCurrency,
		Description: fmt.Sprintf("Revalued %s balances at %s", currency, rate.String()),
		Metadata: map[string]any{
			"accounts": len(result.Adjustments),
			"gain":     gain.String(),
			"loss":     loss.String(),
		},
	})
	return result, nil
}
