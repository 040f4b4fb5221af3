package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates that the request conflicts with the current state of a resource.
var ErrConflict = errors.New("resource conflict")

// ErrForbidden indicates that the actor lacks the permission for the action (AuthorizationError).
var ErrForbidden = errors.New("forbidden")

// ErrInternal indicates an unexpected infrastructure failure.
var ErrInternal = errors.New("internal error")

// Ledger error taxonomy.
var (
	// ErrAccountNotFound is returned when an account code does not resolve.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidPostingTarget is returned when posting to a parent (non-leaf) or inactive account.
	ErrInvalidPostingTarget = errors.New("invalid posting target")
	// ErrUnbalancedEntry is returned when debits and credits differ by more than the tolerance.
	ErrUnbalancedEntry = errors.New("journal entry is not balanced")
	// ErrNoPeriodDefined is returned when no fiscal period covers a date.
	ErrNoPeriodDefined = errors.New("no fiscal period defined for date")
	// ErrPeriodClosed is returned when posting into a soft-closed period.
	ErrPeriodClosed = errors.New("fiscal period is closed")
	// ErrPeriodLocked is returned when posting into a hard-locked period.
	ErrPeriodLocked = errors.New("fiscal period is locked")
	// ErrMissingExchangeRate is returned when a mandated conversion has no rate available.
	ErrMissingExchangeRate = errors.New("missing exchange rate")
	// ErrModificationForbidden is returned when a document state forbids reversal or deletion.
	ErrModificationForbidden = errors.New("modification forbidden")
	// ErrBusinessLogic is a generic business-rule violation.
	ErrBusinessLogic = errors.New("business rule violation")
)

// AppError carries an HTTP status code and a user facing message on top of a wrapped error.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewValidationError wraps ErrValidation with a message.
func NewValidationError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message, ErrValidation)
}

// NewNotFoundError wraps ErrNotFound with a message.
func NewNotFoundError(message string) *AppError {
	return NewAppError(http.StatusNotFound, message, ErrNotFound)
}

// NewForbiddenError wraps ErrForbidden with a message.
func NewForbiddenError(message string) *AppError {
	return NewAppError(http.StatusForbidden, message, ErrForbidden)
}

// NewBusinessError wraps one of the ledger sentinels as a 400.
func NewBusinessError(sentinel error, message string) *AppError {
	return NewAppError(http.StatusBadRequest, message, sentinel)
}

// ModificationReason names the invariant that blocked a reversal or deletion.
type ModificationReason string

const (
	ReasonPaymentsApplied ModificationReason = "PAYMENTS_APPLIED"
	ReasonPeriodClosed    ModificationReason = "PERIOD_CLOSED"
	ReasonPeriodLocked    ModificationReason = "PERIOD_LOCKED"
	ReasonPostedToLedger  ModificationReason = "POSTED_TO_LEDGER"
	ReasonInvalidState    ModificationReason = "INVALID_STATE"
	ReasonDocumentLinked  ModificationReason = "DOCUMENT_LINKED"
)

// ModificationForbiddenError reports why a document cannot be reversed or deleted.
type ModificationForbiddenError struct {
	Reason  ModificationReason
	Message string
}

func (e *ModificationForbiddenError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrModificationForbidden.Error(), e.Message, e.Reason)
}

// Is makes errors.Is(err, ErrModificationForbidden) match.
func (e *ModificationForbiddenError) Is(target error) bool {
	return target == ErrModificationForbidden
}

// NewModificationForbidden builds a ModificationForbiddenError.
func NewModificationForbidden(reason ModificationReason, message string) *ModificationForbiddenError {
	return &ModificationForbiddenError{Reason: reason, Message: message}
}

// IsBusinessState reports whether err is one of the ledger business-state errors (HTTP 400).
func IsBusinessState(err error) bool {
	for _, sentinel := range []error{
		ErrValidation,
		ErrAccountNotFound,
		ErrInvalidPostingTarget,
		ErrUnbalancedEntry,
		ErrNoPeriodDefined,
		ErrPeriodClosed,
		ErrPeriodLocked,
		ErrMissingExchangeRate,
		ErrModificationForbidden,
		ErrBusinessLogic,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// HTTPStatus maps an error to the status code the API answers with.
// Permission failures are 403, business-state failures 400, missing resources 404.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrAccountNotFound):
		// a posting line naming an unknown account is a business-state failure
		return http.StatusBadRequest
	case IsBusinessState(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrConflict):
		return http.StatusConflict
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// Code returns a short machine-readable code for an error, used in API envelopes.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrForbidden):
		return "AUTHORIZATION_ERROR"
	case errors.Is(err, ErrAccountNotFound):
		return "ACCOUNT_NOT_FOUND"
	case errors.Is(err, ErrInvalidPostingTarget):
		return "INVALID_POSTING_TARGET"
	case errors.Is(err, ErrUnbalancedEntry):
		return "UNBALANCED_ENTRY"
	case errors.Is(err, ErrNoPeriodDefined):
		return "NO_PERIOD_DEFINED"
	case errors.Is(err, ErrPeriodClosed):
		return "PERIOD_CLOSED"
	case errors.Is(err, ErrPeriodLocked):
		return "PERIOD_LOCKED"
	case errors.Is(err, ErrMissingExchangeRate):
		return "MISSING_EXCHANGE_RATE"
	case errors.Is(err, ErrModificationForbidden):
		return "MODIFICATION_FORBIDDEN"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrBusinessLogic):
		return "BUSINESS_LOGIC_ERROR"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrDuplicate):
		return "DUPLICATE"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	}
	return "INTERNAL_ERROR"
}

// PublicMessage returns the message safe to show to API callers.
// Internal failures never leak their wrapped cause.
func PublicMessage(err error) string {
	if HTTPStatus(err) >= http.StatusInternalServerError {
		return "an internal error occurred"
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	var modErr *ModificationForbiddenError
	if errors.As(err, &modErr) {
		return modErr.Message
	}
	return err.Error()
}
