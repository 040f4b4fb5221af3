package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/authz"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/platform/config"
)

const moduleAccounts = "accounts"

// accountService implements the AccountSvcFacade interface
type accountService struct {
	BaseService
	accountRepo portsrepo.AccountRepositoryFacade
	settings    config.SettingsProvider
}

// AccountServiceOption is a functional option for configuring the account service
type AccountServiceOption func(*accountService)

// WithAccountPolicy sets the authorization policy used for chart maintenance.
func WithAccountPolicy(policy *authz.Policy) AccountServiceOption {
	return func(s *accountService) {
		s.Policy = policy
	}
}

// WithAccountAudit adds the audit recorder dependency
func WithAccountAudit(recorder portssvc.AuditRecorderSvc) AccountServiceOption {
	return func(s *accountService) {
		s.Audit = recorder
	}
}

// NewAccountService creates a new account service with the provided options
func NewAccountService(repo portsrepo.AccountRepositoryFacade, settings config.SettingsProvider, options ...AccountServiceOption) portssvc.AccountSvcFacade {
	svc := &accountService{
		accountRepo: repo,
		settings:    settings,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

// Ensure accountService implements the AccountSvcFacade interface
var _ portssvc.AccountSvcFacade = (*accountService)(nil)

// IsPostable reads prevent_posting_to_parent_accounts on every call.
func (s *accountService) IsPostable(account domain.Account) bool {
	if !s.settings.Accounting().PreventPostingToParentAccounts {
		return true
	}
	return account.IsLeaf()
}

func (s *accountService) checkPostable(account domain.Account) error {
	if !account.IsActive {
		return apperrors.NewBusinessError(apperrors.ErrInvalidPostingTarget,
			fmt.Sprintf("account %s is inactive", account.Code))
	}
	if !s.IsPostable(account) {
		return apperrors.NewBusinessError(apperrors.ErrInvalidPostingTarget,
			fmt.Sprintf("account %s is a parent account; post to one of its sub-accounts", account.Code))
	}
	return nil
}

func accountNotFound(code string) error {
	return apperrors.NewBusinessError(apperrors.ErrAccountNotFound, fmt.Sprintf("account %s not found", code))
}

func (s *accountService) ResolveLeafAccount(ctx context.Context, code string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, accountNotFound(code)
		}
		s.LogError(ctx, err, "Failed to resolve account", slog.String("account_code", code))
		return nil, fmt.Errorf("failed to resolve account %s: %w", code, err)
	}
	if err := s.checkPostable(*account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *accountService) ResolvePostingAccounts(ctx context.Context, codes []string) (map[string]domain.Account, error) {
	unique := uniqueStrings(codes)
	accounts, err := s.accountRepo.FindAccountsByCodes(ctx, unique)
	if err != nil {
		s.LogError(ctx, err, "Failed to resolve posting accounts", slog.Int("count", len(unique)))
		return nil, fmt.Errorf("failed to resolve accounts: %w", err)
	}
	for _, code := range unique {
		account, found := accounts[code]
		if !found {
			return nil, accountNotFound(code)
		}
		if err := s.checkPostable(account); err != nil {
			return nil, err
		}
	}
	return accounts, nil
}

func (s *accountService) GetAccount(ctx context.Context, code string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", code))
		}
		s.LogError(ctx, err, "Failed to get account", slog.String("account_code", code))
		return nil, err
	}
	return account, nil
}

func (s *accountService) ListAccounts(ctx context.Context, includeInactive bool) ([]domain.Account, error) {
	accounts, err := s.accountRepo.ListAccounts(ctx, includeInactive)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts")
		return nil, err
	}
	return accounts, nil
}

func (s *accountService) GetAccountBalance(ctx context.Context, code string, asOf time.Time) (*dto.AccountBalanceResponse, error) {
	account, err := s.GetAccount(ctx, code)
	if err != nil {
		return nil, err
	}
	activity, err := s.accountRepo.AccountActivity(ctx, code, domain.DateOnly(asOf))
	if err != nil {
		s.LogError(ctx, err, "Failed to aggregate account activity", slog.String("account_code", code))
		return nil, err
	}
	return &dto.AccountBalanceResponse{
		AccountCode: account.Code,
		AccountType: account.AccountType,
		AsOf:        domain.DateOnly(asOf),
		Debits:      activity.Debits,
		Credits:     activity.Credits,
		Balance:     account.AccountType.NormalBalance(activity.Debits, activity.Credits),
	}, nil
}

func (s *accountService) GetTrialBalance(ctx context.Context, asOf time.Time) (*domain.TrialBalance, error) {
	asOf = domain.DateOnly(asOf)
	activity, err := s.accountRepo.ListAccountActivity(ctx, asOf)
	if err != nil {
		s.LogError(ctx, err, "Failed to aggregate activity for trial balance")
		return nil, err
	}
	tb := domain.BuildTrialBalance(asOf, activity)
	if !tb.IsBalanced {
		s.LogWarn(ctx, "Trial balance does not balance",
			slog.String("as_of", asOf.Format(time.DateOnly)),
			slog.String("total_debit", tb.TotalDebit.String()),
			slog.String("total_credit", tb.TotalCredit.String()))
	}
	return &tb, nil
}

func (s *accountService) CreateAccount(ctx context.Context, actor domain.Actor, req dto.CreateAccountRequest) (*domain.Account, error) {
	if err := s.RequirePermission(ctx, actor, authz.PermManageAccounts); err != nil {
		return nil, err
	}
	if !req.AccountType.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown account type %q", req.AccountType))
	}

	existing, err := s.accountRepo.FindAccountByCode(ctx, req.Code)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.NewAppError(409, fmt.Sprintf("account code %s already exists", req.Code), apperrors.ErrDuplicate)
	}

	if req.ParentCode != "" {
		parent, err := s.accountRepo.FindAccountByCode(ctx, req.ParentCode)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NewValidationError(fmt.Sprintf("parent account %s not found", req.ParentCode))
			}
			return nil, err
		}
		if !parent.IsActive {
			return nil, apperrors.NewValidationError(fmt.Sprintf("parent account %s is inactive", req.ParentCode))
		}
		// children aggregate into the parent, so the types must agree
		if parent.AccountType != req.AccountType {
			return nil, apperrors.NewValidationError(fmt.Sprintf("account type %s does not match parent %s type %s",
				req.AccountType, parent.Code, parent.AccountType))
		}
	}

	now := s.Now()
	account := domain.Account{
		AccountID:   uuid.NewString(),
		Code:        req.Code,
		Name:        req.Name,
		AccountType: req.AccountType,
		ParentCode:  req.ParentCode,
		Description: req.Description,
		IsActive:    true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actor.ID,
			LastUpdatedAt: now,
			LastUpdatedBy: actor.ID,
		},
	}
	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		s.LogError(ctx, err, "Failed to save account", slog.String("account_code", account.Code))
		return nil, err
	}

	s.RecordAudit(ctx, &actor, portssvc.AuditEvent{
		Action:      "account.created",
		Module:      moduleAccounts,
		Description: fmt.Sprintf("Created account %s %s", account.Code, account.Name),
		Metadata:    map[string]any{"code": account.Code, "type": string(account.AccountType), "parent": account.ParentCode},
	})
	s.LogInfo(ctx, "Account created", slog.String("account_code", account.Code))
	return &account, nil
}

func (s *accountService) DeactivateAccount(ctx context.Context, actor domain.Actor, code string) error {
	if err := s.RequirePermission(ctx, actor, authz.PermManageAccounts); err != nil {
		return err
	}
	account, err := s.GetAccount(ctx, code)
	if err != nil {
		return err
	}
	if !account.IsActive {
		return nil
	}
	if err := s.accountRepo.DeactivateAccount(ctx, code, actor.ID, s.Now()); err != nil {
		s.LogError(ctx, err, "Failed to deactivate account", slog.String("account_code", code))
		return err
	}
	s.RecordAudit(ctx, &actor, portssvc.AuditEvent{
		Action:      "account.deactivated",
		Module:      moduleAccounts,
		Description: fmt.Sprintf("Deactivated account %s", code),
	})
	return nil
}

// uniqueStrings returns the distinct values of in, keeping first-seen order.
func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
