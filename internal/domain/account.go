package domain

import (
	"fmt"
	"time"
)

// MaxAccountDepth is the deepest level allowed in a chart of accounts.
const MaxAccountDepth = 3

// AccountType classifies an account in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether t is one of the five account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// Account is a node in a tenant's chart of accounts.
type Account struct {
	ID        string
	TenantID  string
	Code      string
	Name      string
	Type      AccountType
	ParentID  *string
	Depth     int
	IsHeader  bool
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidatePostable checks that journal lines may target the account.
func (a *Account) ValidatePostable() error {
	if a.IsHeader {
		return &AccountError{AccountID: a.ID, Err: ErrHeaderAccount}
	}
	if !a.IsActive {
		return &AccountError{AccountID: a.ID, Err: ErrAccountInactive}
	}
	return nil
}

// ValidateChildOf checks that a may be placed under parent.
func (a *Account) ValidateChildOf(parent *Account) error {
	if parent.TenantID != a.TenantID {
		return &AccountError{AccountID: parent.ID, Err: ErrAccountNotFound}
	}
	if !parent.IsHeader {
		return fmt.Errorf("%w: parent %s is not a header account", ErrInvalidParentAccount, parent.Code)
	}
	if parent.Type != a.Type {
		return fmt.Errorf("%w: parent type %s differs from %s", ErrInvalidParentAccount, parent.Type, a.Type)
	}
	if parent.Depth+1 > MaxAccountDepth {
		return fmt.Errorf("%w: max depth is %d", ErrAccountDepthExceeded, MaxAccountDepth)
	}
	return nil
}
