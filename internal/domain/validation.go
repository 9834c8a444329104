package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validation errors
var (
	ErrInvalidAccountName = errors.New("invalid account name")
	ErrInvalidAccountCode = errors.New("invalid account code")
	ErrInvalidCurrency    = errors.New("invalid currency code")
	ErrReasonTooLong      = errors.New("reason exceeds maximum length")
)

// Validation constants
const (
	MaxAccountNameLength = 255
	MinAccountNameLength = 1
	MaxAccountCodeLength = 32
	MaxTenantIDLength    = 64
	MaxReasonLength      = 500
)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "AUD": true, "CAD": true, "CHF": true,
	"SEK": true, "NZD": true, "KRW": true, "SGD": true,
	"NOK": true, "MXN": true, "INR": true, "BRL": true,
	"ZAR": true, "MYR": true, "IDR": true, "HKD": true,
}

var (
	tenantIDRegex    = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	accountCodeRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.\-]*$`)
)

// ValidateTenantID validates a tenant identifier supplied by the caller.
func ValidateTenantID(tenantID string) error {
	if tenantID == "" {
		return ErrTenantRequired
	}

	if len(tenantID) > MaxTenantIDLength || !tenantIDRegex.MatchString(tenantID) {
		return fmt.Errorf("%w: %q", ErrInvalidTenant, tenantID)
	}

	return nil
}

// ValidateAccountName validates account name
func ValidateAccountName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) < MinAccountNameLength {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidAccountName)
	}

	if len(name) > MaxAccountNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidAccountName, MaxAccountNameLength)
	}

	return nil
}

// ValidateAccountCode validates a chart of accounts code such as "4000" or "1100.01".
func ValidateAccountCode(code string) error {
	if code == "" || len(code) > MaxAccountCodeLength || !accountCodeRegex.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrInvalidAccountCode, code)
	}

	return nil
}

// ValidateCurrency validates currency code
func ValidateCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if !validCurrencies[currency] {
		return fmt.Errorf("%w: %s is not a valid ISO 4217 currency code", ErrInvalidCurrency, currency)
	}

	return nil
}

// ValidateReason checks a void or reversal reason. required is returned when
// the reason is blank.
func ValidateReason(reason string, required error) error {
	reason = strings.TrimSpace(reason)

	if reason == "" {
		return required
	}

	if len(reason) > MaxReasonLength {
		return fmt.Errorf("%w: limit is %d characters", ErrReasonTooLong, MaxReasonLength)
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 100
	const DefaultPageSize = 20

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
