package pgsql

import (
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires every repository over one pool. maxRetries bounds the
// retries of the transactional writes on serialization failures and deadlocks.
func NewRepositoryProvider(dbPool *pgxpool.Pool, maxRetries int) portsrepo.RepositoryProvider {
	journalRepo := newPgxJournalRepository(dbPool, maxRetries)
	periodRepo := newPgxFiscalPeriodRepository(dbPool, journalRepo)
	periodRepo.MaxRetries = maxRetries
	policyRepo := newPgxCurrencyPolicyRepository(dbPool)
	policyRepo.MaxRetries = maxRetries

	return portsrepo.RepositoryProvider{
		AccountRepo:        newPgxAccountRepository(dbPool),
		FiscalPeriodRepo:   periodRepo,
		JournalRepo:        journalRepo,
		CurrencyPolicyRepo: policyRepo,
		ExchangeRateRepo:   newPgxExchangeRateRepository(dbPool),
		DocumentRepo:       newPgxDocumentRepository(dbPool),
		AuditRepo:          newPgxAuditRepository(dbPool),
		APITokenRepo:       newPgxAPITokenRepository(dbPool),
	}
}
