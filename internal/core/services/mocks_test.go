package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/platform/config"
)

// --- Accounts ---

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountsByCodes(ctx context.Context, codes []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, codes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAccounts(ctx context.Context, includeInactive bool) ([]domain.Account, error) {
	args := m.Called(ctx, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) DeactivateAccount(ctx context.Context, code string, userID string, now time.Time) error {
	args := m.Called(ctx, code, userID, now)
	return args.Error(0)
}

func (m *MockAccountRepository) AccountActivity(ctx context.Context, code string, asOf time.Time) (*domain.AccountActivity, error) {
	args := m.Called(ctx, code, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountActivity), args.Error(1)
}

func (m *MockAccountRepository) ListAccountActivity(ctx context.Context, asOf time.Time) ([]domain.AccountActivity, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AccountActivity), args.Error(1)
}

func (m *MockAccountRepository) ListForeignCurrencyBalances(ctx context.Context, currency string, asOf time.Time) ([]domain.ForeignCurrencyBalance, error) {
	args := m.Called(ctx, currency, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ForeignCurrencyBalance), args.Error(1)
}

// --- Fiscal periods ---

type MockFiscalPeriodRepository struct {
	mock.Mock
}

func (m *MockFiscalPeriodRepository) FindPeriodForDate(ctx context.Context, date time.Time) (*domain.FiscalPeriod, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FiscalPeriod), args.Error(1)
}

func (m *MockFiscalPeriodRepository) FindPeriodByID(ctx context.Context, periodID string) (*domain.FiscalPeriod, error) {
	args := m.Called(ctx, periodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FiscalPeriod), args.Error(1)
}

func (m *MockFiscalPeriodRepository) ListPeriods(ctx context.Context) ([]domain.FiscalPeriod, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FiscalPeriod), args.Error(1)
}

func (m *MockFiscalPeriodRepository) FindOverlappingPeriods(ctx context.Context, start, end time.Time) ([]domain.FiscalPeriod, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FiscalPeriod), args.Error(1)
}

func (m *MockFiscalPeriodRepository) SavePeriod(ctx context.Context, period domain.FiscalPeriod) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

// ClosePeriod records the builder so tests can run it against their own activity.
func (m *MockFiscalPeriodRepository) ClosePeriod(ctx context.Context, periodID string, actorID string, at time.Time, build portsrepo.ClosingEntryBuilder) (*domain.FiscalPeriod, *domain.JournalEntry, error) {
	args := m.Called(ctx, periodID, actorID, at, build)
	var period *domain.FiscalPeriod
	if args.Get(0) != nil {
		period = args.Get(0).(*domain.FiscalPeriod)
	}
	var entry *domain.JournalEntry
	if args.Get(1) != nil {
		entry = args.Get(1).(*domain.JournalEntry)
	}
	return period, entry, args.Error(2)
}

func (m *MockFiscalPeriodRepository) LockPeriod(ctx context.Context, periodID string, actorID string, at time.Time) (*domain.FiscalPeriod, error) {
	args := m.Called(ctx, periodID, actorID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FiscalPeriod), args.Error(1)
}

func (m *MockFiscalPeriodRepository) ReopenPeriod(ctx context.Context, periodID string, actorID string, at time.Time) (*domain.FiscalPeriod, error) {
	args := m.Called(ctx, periodID, actorID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FiscalPeriod), args.Error(1)
}

// --- Journal ---

type MockJournalRepository struct {
	mock.Mock
}

func (m *MockJournalRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

func (m *MockJournalRepository) FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.JournalEntryLine, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JournalEntryLine), args.Error(1)
}

func (m *MockJournalRepository) ListEntries(ctx context.Context, params portsrepo.ListEntriesParams) ([]domain.JournalEntry, *string, error) {
	args := m.Called(ctx, params)
	var next *string
	if args.Get(1) != nil {
		next = args.Get(1).(*string)
	}
	if args.Get(0) == nil {
		return nil, next, args.Error(2)
	}
	return args.Get(0).([]domain.JournalEntry), next, args.Error(2)
}

func (m *MockJournalRepository) ExistsByVoucherNumber(ctx context.Context, voucherNumber string) (bool, error) {
	args := m.Called(ctx, voucherNumber)
	return args.Bool(0), args.Error(1)
}

// SaveEntry echoes the bundle's entry back with a voucher number, the way the
// database adapter does, unless the expectation returns an error.
func (m *MockJournalRepository) SaveEntry(ctx context.Context, bundle portsrepo.PostingBundle, hooks ...portsrepo.TxHook) (*domain.JournalEntry, error) {
	args := m.Called(ctx, bundle, hooks)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if args.Get(0) != nil {
		return args.Get(0).(*domain.JournalEntry), nil
	}
	entry := bundle.Entry
	if entry.VoucherNumber == "" {
		entry.VoucherNumber = bundle.VoucherPrefix + "-000001"
	}
	for _, hook := range hooks {
		if err := hook(ctx, nil, &entry); err != nil {
			return nil, err
		}
	}
	return &entry, nil
}

func (m *MockJournalRepository) SaveReversal(ctx context.Context, originalID string, bundle portsrepo.PostingBundle, hooks ...portsrepo.TxHook) (*domain.JournalEntry, error) {
	args := m.Called(ctx, originalID, bundle, hooks)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	entry := bundle.Entry
	if entry.VoucherNumber == "" {
		entry.VoucherNumber = bundle.VoucherPrefix + "-000002"
	}
	for _, hook := range hooks {
		if err := hook(ctx, nil, &entry); err != nil {
			return nil, err
		}
	}
	return &entry, nil
}

// --- Currency ---

type MockCurrencyPolicyRepository struct {
	mock.Mock
}

func (m *MockCurrencyPolicyRepository) FindActivePolicy(ctx context.Context) (*domain.CurrencyPolicy, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CurrencyPolicy), args.Error(1)
}

func (m *MockCurrencyPolicyRepository) FindPolicyByID(ctx context.Context, policyID string) (*domain.CurrencyPolicy, error) {
	args := m.Called(ctx, policyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CurrencyPolicy), args.Error(1)
}

func (m *MockCurrencyPolicyRepository) ListPolicies(ctx context.Context) ([]domain.CurrencyPolicy, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CurrencyPolicy), args.Error(1)
}

func (m *MockCurrencyPolicyRepository) SavePolicy(ctx context.Context, policy domain.CurrencyPolicy) error {
	args := m.Called(ctx, policy)
	return args.Error(0)
}

func (m *MockCurrencyPolicyRepository) ActivatePolicy(ctx context.Context, policyID string, actorID string, at time.Time) (*domain.CurrencyPolicy, error) {
	args := m.Called(ctx, policyID, actorID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CurrencyPolicy), args.Error(1)
}

type MockExchangeRateRepository struct {
	mock.Mock
}

func (m *MockExchangeRateRepository) FindRateOnOrBefore(ctx context.Context, from, to string, at time.Time) (*domain.ExchangeRate, error) {
	args := m.Called(ctx, from, to, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExchangeRate), args.Error(1)
}

func (m *MockExchangeRateRepository) ListRates(ctx context.Context, from, to string, limit int) ([]domain.ExchangeRate, error) {
	args := m.Called(ctx, from, to, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExchangeRate), args.Error(1)
}

func (m *MockExchangeRateRepository) AppendRate(ctx context.Context, rate domain.ExchangeRate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

// --- Documents ---

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) FindDocumentByID(ctx context.Context, documentID string) (*domain.FinancialDocument, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FinancialDocument), args.Error(1)
}

func (m *MockDocumentRepository) SaveDocument(ctx context.Context, doc domain.FinancialDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) ApplyPayment(ctx context.Context, documentID string, amount decimal.Decimal, actorID string, at time.Time) (*domain.FinancialDocument, error) {
	args := m.Called(ctx, documentID, amount, actorID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FinancialDocument), args.Error(1)
}

func (m *MockDocumentRepository) DeleteDraft(ctx context.Context, documentID string, actorID string, at time.Time) error {
	args := m.Called(ctx, documentID, actorID, at)
	return args.Error(0)
}

func (m *MockDocumentRepository) MarkPostedInTx(ctx context.Context, tx pgx.Tx, documentID, entryID, actorID string, at time.Time) error {
	args := m.Called(ctx, tx, documentID, entryID, actorID, at)
	return args.Error(0)
}

func (m *MockDocumentRepository) MarkVoidedInTx(ctx context.Context, tx pgx.Tx, documentID, reversalEntryID string, target domain.DocumentStatus, actorID string, at time.Time) error {
	args := m.Called(ctx, tx, documentID, reversalEntryID, target, actorID, at)
	return args.Error(0)
}

// --- Audit and tokens ---

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) InsertAuditEntry(ctx context.Context, entry domain.AuditLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) ListAuditEntries(ctx context.Context, module string, params portsrepo.PageParams) ([]domain.AuditLogEntry, *string, error) {
	args := m.Called(ctx, module, params)
	var next *string
	if args.Get(1) != nil {
		next = args.Get(1).(*string)
	}
	if args.Get(0) == nil {
		return nil, next, args.Error(2)
	}
	return args.Get(0).([]domain.AuditLogEntry), next, args.Error(2)
}

type MockAPITokenRepository struct {
	mock.Mock
}

func (m *MockAPITokenRepository) FindTokensByPrefix(ctx context.Context, prefix string) ([]domain.APIToken, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.APIToken), args.Error(1)
}

func (m *MockAPITokenRepository) ListTokens(ctx context.Context) ([]domain.APIToken, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.APIToken), args.Error(1)
}

func (m *MockAPITokenRepository) SaveToken(ctx context.Context, token domain.APIToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockAPITokenRepository) RevokeToken(ctx context.Context, tokenID string, at time.Time) error {
	args := m.Called(ctx, tokenID, at)
	return args.Error(0)
}

func (m *MockAPITokenRepository) TouchLastUsed(ctx context.Context, tokenID string, at time.Time) error {
	args := m.Called(ctx, tokenID, at)
	return args.Error(0)
}

// recordingAudit captures audit events synchronously.
type recordingAudit struct {
	mu     sync.Mutex
	events []portssvc.AuditEvent
}

func (r *recordingAudit) Record(_ context.Context, _ *domain.Actor, event portssvc.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

// --- Fixtures ---

var (
	fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	admin    = domain.Actor{ID: "admin-1", Name: "Admin", Kind: domain.ActorUser, Permissions: []string{"bypass_all"}}
	clerk    = domain.Actor{ID: "clerk-1", Name: "Clerk", Kind: domain.ActorUser}
)

func testSettings() config.StaticSettings {
	return config.StaticSettings(config.DefaultAccountingSettings())
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func leaf(code string, t domain.AccountType) domain.Account {
	return domain.Account{AccountID: "acc-" + code, Code: code, Name: "Account " + code, AccountType: t, IsActive: true}
}

func openPeriod() *domain.FiscalPeriod {
	return &domain.FiscalPeriod{
		PeriodID:  "p-2024-03",
		Name:      "March 2024",
		StartDate: date(2024, 3, 1),
		EndDate:   date(2024, 3, 31),
	}
}

func sarPolicy(t domain.PolicyType, timing domain.ConversionTiming) *domain.CurrencyPolicy {
	return &domain.CurrencyPolicy{
		PolicyID:                   "pol-1",
		Name:                       "Default",
		PolicyType:                 t,
		ConversionTiming:           timing,
		ReferenceCurrency:          "SAR",
		AllowMultiCurrencyBalances: t != domain.Normalization,
		ExchangeRateSource:         domain.RateManual,
		IsActive:                   true,
	}
}
