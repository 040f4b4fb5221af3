package services

import (
	"github.com/SscSPs/erp_ledger/internal/authz"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// recorder is owned by the caller, which starts it before and closes it after the container.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, recorder AuditRecorder) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}
	policy := authz.NewPolicy(authz.DefaultModuleMap)
	settings := cfg.Settings

	container.Audit = recorder

	container.Account = NewAccountService(
		repos.AccountRepo,
		settings,
		WithAccountPolicy(policy),
		WithAccountAudit(recorder),
	)

	// exchange rates come before the policy engine, which looks rates up through them
	container.ExchangeRate = NewExchangeRateService(repos.ExchangeRateRepo, settings, policy, recorder)
	container.Currency = NewCurrencyService(
		repos.CurrencyPolicyRepo,
		repos.ExchangeRateRepo,
		container.ExchangeRate,
		settings,
		WithCurrencyPolicy(policy),
		WithCurrencyAudit(recorder),
		WithPolicyCacheTTL(cfg.PolicyCacheTTL),
	)

	container.FiscalPeriod = NewFiscalPeriodService(
		repos.FiscalPeriodRepo,
		container.Account,
		container.Currency,
		settings,
		WithFiscalPeriodPolicy(policy),
		WithFiscalPeriodAudit(recorder),
	)

	container.Journal = NewJournalService(
		repos.JournalRepo,
		container.Account,
		container.FiscalPeriod,
		container.Currency,
		settings,
		recorder,
	)

	container.Revaluation = NewRevaluationService(
		repos.AccountRepo,
		repos.ExchangeRateRepo,
		container.Currency,
		container.Journal,
		settings,
		policy,
		recorder,
	)

	container.Document = NewDocumentService(
		repos.DocumentRepo,
		container.Journal,
		container.FiscalPeriod,
		settings,
		policy,
		recorder,
	)

	container.APIToken = NewAPITokenService(repos.APITokenRepo, policy, recorder)

	return container
}
