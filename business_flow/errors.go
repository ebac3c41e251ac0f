// Package businessflow contains the core business logic and use cases for lead distribution workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Auth errors
	ErrUserNotFound      = errors.New("user not found")
	ErrAccountInactive   = errors.New("account is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")

	// Tenant errors
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrTenantInactive     = errors.New("tenant is inactive")
	ErrTenantAccessDenied = errors.New("tenant access denied")

	// Lead errors
	ErrLeadNotFound       = errors.New("lead not found")
	ErrEmptyLeadSelection = errors.New("no leads selected")

	// Assignment errors
	ErrAssigneeNotManager = errors.New("assignee is not on the manager roster")

	// Rule errors
	ErrRuleNotFound        = errors.New("auto-assign rule not found")
	ErrInvalidStrategy     = errors.New("invalid assignment strategy")
	ErrFixedUserIDRequired = errors.New("fixed_user_id is required for fixed_user strategy")
	ErrInvalidTimeWindow   = errors.New("time_from and time_to must be hours between 0 and 23")
	ErrInvalidDaysOfWeek   = errors.New("days_of_week must be ISO weekday numbers between 1 and 7")

	// Import errors
	ErrImportFileEmpty       = errors.New("import file is empty")
	ErrImportFileUnsupported = errors.New("unsupported import file format")
	ErrImportColumnMissing   = errors.New("required import column missing")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsTenantNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound)
}

func IsTenantAccessDenied(err error) bool {
	return errors.Is(err, ErrTenantAccessDenied)
}

func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}

func IsAssigneeNotManager(err error) bool {
	return errors.Is(err, ErrAssigneeNotManager)
}

func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}

func IsInvalidStrategy(err error) bool {
	return errors.Is(err, ErrInvalidStrategy)
}
