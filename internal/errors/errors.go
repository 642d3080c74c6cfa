package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error codes
const (
	ErrCodeNotFound         = "not_found"
	ErrCodeAlreadyExists    = "already_exists"
	ErrCodeValidation       = "validation_error"
	ErrCodeInvalidOperation = "invalid_operation"
	ErrCodeDatabase         = "database_error"
	ErrCodeInternal         = "internal_error"
	ErrCodeSystem           = "system_error"

	// ledger specific codes
	ErrCodePlanDisabled   = "plan_disabled"
	ErrCodePlanFullyPaid  = "plan_fully_paid"
	ErrCodeInvalidAmount  = "invalid_amount"
	ErrCodePlanNotFound   = "plan_not_found"
	ErrCodeWriteConflict  = "write_conflict"
	ErrCodeLockNotAcquire = "lock_not_acquired"
)

var (
	ErrNotFound         = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists    = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation       = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation = new(ErrCodeInvalidOperation, "invalid operation")
	ErrDatabase         = new(ErrCodeDatabase, "database error")
	ErrInternal         = new(ErrCodeInternal, "internal error")
	ErrSystem           = new(ErrCodeSystem, "system error")

	ErrPlanDisabled   = new(ErrCodePlanDisabled, "installment plan is disabled")
	ErrPlanFullyPaid  = new(ErrCodePlanFullyPaid, "installment plan is fully paid")
	ErrInvalidAmount  = new(ErrCodeInvalidAmount, "payment amount must be positive")
	ErrPlanNotFound   = new(ErrCodePlanNotFound, "installment plan not found")
	ErrWriteConflict  = new(ErrCodeWriteConflict, "installment plan was modified concurrently")
	ErrLockNotAcquire = new(ErrCodeLockNotAcquire, "could not acquire lock")
)

// InternalError is a sentinel error identified by its code
type InternalError struct {
	Code    string
	Message string
}

func new(code, message string) *InternalError {
	return &InternalError{Code: code, Message: message}
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches sentinels by code so marked copies compare equal
func (e *InternalError) Is(target error) bool {
	t, ok := target.(*InternalError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

func IsPlanDisabled(err error) bool {
	return errors.Is(err, ErrPlanDisabled)
}

func IsPlanFullyPaid(err error) bool {
	return errors.Is(err, ErrPlanFullyPaid)
}

func IsInvalidAmount(err error) bool {
	return errors.Is(err, ErrInvalidAmount)
}

func IsPlanNotFound(err error) bool {
	return errors.Is(err, ErrPlanNotFound)
}

func IsWriteConflict(err error) bool {
	return errors.Is(err, ErrWriteConflict)
}

// HTTPStatusFromErr maps a marked error to the HTTP status returned to API callers
func HTTPStatusFromErr(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsPlanNotFound(err), IsNotFound(err):
		return http.StatusNotFound
	case IsWriteConflict(err), IsAlreadyExists(err), errors.Is(err, ErrLockNotAcquire):
		return http.StatusConflict
	case IsPlanDisabled(err), IsPlanFullyPaid(err), errors.Is(err, ErrInvalidOperation):
		return http.StatusUnprocessableEntity
	case IsInvalidAmount(err), IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
