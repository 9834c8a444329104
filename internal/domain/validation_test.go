package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateTenantID(t *testing.T) {
	t.Parallel()

	if err := ValidateTenantID("acme_01"); err != nil {
		t.Fatalf("expected valid tenant, got %v", err)
	}

	if err := ValidateTenantID(""); !errors.Is(err, ErrTenantRequired) {
		t.Fatalf("expected ErrTenantRequired, got %v", err)
	}

	for _, bad := range []string{"acme corp", "a/b", strings.Repeat("x", MaxTenantIDLength+1)} {
		if err := ValidateTenantID(bad); !errors.Is(err, ErrInvalidTenant) {
			t.Errorf("%q: expected ErrInvalidTenant, got %v", bad, err)
		}
	}
}

func TestValidateAccountName(t *testing.T) {
	t.Parallel()

	t.Run("valid name", func(t *testing.T) {
		if err := ValidateAccountName("Sales Revenue"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		err := ValidateAccountName("   ")
		if !errors.Is(err, ErrInvalidAccountName) {
			t.Fatalf("expected ErrInvalidAccountName, got %v", err)
		}
	})

	t.Run("name too long", func(t *testing.T) {
		tooLong := strings.Repeat("a", MaxAccountNameLength+1)
		err := ValidateAccountName(tooLong)
		if !errors.Is(err, ErrInvalidAccountName) {
			t.Fatalf("expected ErrInvalidAccountName, got %v", err)
		}
	})
}

func TestValidateAccountCode(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"4000", "1100.01", "AR-TRADE"} {
		if err := ValidateAccountCode(ok); err != nil {
			t.Errorf("%q: unexpected error %v", ok, err)
		}
	}

	for _, bad := range []string{"", ".4000", "40 00"} {
		if err := ValidateAccountCode(bad); !errors.Is(err, ErrInvalidAccountCode) {
			t.Errorf("%q: expected ErrInvalidAccountCode, got %v", bad, err)
		}
	}
}

func TestValidateCurrency(t *testing.T) {
	t.Parallel()

	if err := ValidateCurrency("sgd"); err != nil {
		t.Fatalf("expected uppercase conversion to succeed, got %v", err)
	}

	if err := ValidateCurrency("XYZ"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
}

func TestValidateReason(t *testing.T) {
	t.Parallel()

	if err := ValidateReason("  ", ErrVoidReasonRequired); !errors.Is(err, ErrVoidReasonRequired) {
		t.Fatalf("expected ErrVoidReasonRequired, got %v", err)
	}

	if err := ValidateReason(strings.Repeat("r", MaxReasonLength+1), ErrVoidReasonRequired); !errors.Is(err, ErrReasonTooLong) {
		t.Fatalf("expected ErrReasonTooLong, got %v", err)
	}

	if err := ValidateReason("duplicate invoice", ErrVoidReasonRequired); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidatePagination(t *testing.T) {
	t.Parallel()

	limit, offset, _ := ValidatePagination(0, -5)
	if limit != 20 || offset != 0 {
		t.Fatalf("expected defaults 20/0, got %d/%d", limit, offset)
	}

	limit, _, _ = ValidatePagination(1000, 0)
	if limit != 100 {
		t.Fatalf("expected cap at 100, got %d", limit)
	}
}
