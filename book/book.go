// Package book keeps the custodial balance book: per-tenant per-token
// balances plus the operator-wide revenue pool.
//
// Mutating a balance is pure internal bookkeeping; it does not move any
// external asset. The caller is responsible for pairing a book mutation
// with the external transfer primitive as one atomic unit and rolling the
// mutation back when the transfer cannot be confirmed.
package book

import (
	"errors"

	"github.com/xraph/treasury/types"
)

// Sentinel errors returned by Book operations.
var (
	ErrInsufficientBalance = errors.New("treasury/book: insufficient balance")
	ErrOverflow            = errors.New("treasury/book: balance overflow")
	ErrZeroAmount          = errors.New("treasury/book: amount must be positive")
)

// Book holds all balances. Entries are created implicitly on first
// credit, persist at zero and are never deleted. It is not safe for
// concurrent use; the owning engine serializes access.
type Book struct {
	balances map[types.BalanceKey]types.Amount
	operator map[types.TokenID]types.Amount
}

// New creates an empty balance book.
func New() *Book {
	return &Book{
		balances: make(map[types.BalanceKey]types.Amount),
		operator: make(map[types.TokenID]types.Amount),
	}
}

// Credit adds amount to the tenant's balance in the given token.
// It fails with ErrOverflow only on arithmetic overflow.
func (b *Book) Credit(tenant types.TenantID, tok types.TokenID, amount types.Amount) error {
	if amount.IsZero() {
		return ErrZeroAmount
	}
	key := types.BalanceKey{Tenant: tenant, Token: tok}
	sum, overflow := b.balances[key].Add(amount)
	if overflow {
		return ErrOverflow
	}
	b.balances[key] = sum
	return nil
}

// Debit subtracts amount from the tenant's balance. It fails with
// ErrInsufficientBalance when the balance is smaller than amount, leaving
// the balance unchanged.
func (b *Book) Debit(tenant types.TenantID, tok types.TokenID, amount types.Amount) error {
	if amount.IsZero() {
		return ErrZeroAmount
	}
	key := types.BalanceKey{Tenant: tenant, Token: tok}
	rest, underflow := b.balances[key].Sub(amount)
	if underflow {
		return ErrInsufficientBalance
	}
	b.balances[key] = rest
	return nil
}

// CreditOperator adds amount to the operator-wide balance in the given
// token. Same contract as Credit, separate namespace.
func (b *Book) CreditOperator(tok types.TokenID, amount types.Amount) error {
	if amount.IsZero() {
		return ErrZeroAmount
	}
	sum, overflow := b.operator[tok].Add(amount)
	if overflow {
		return ErrOverflow
	}
	b.operator[tok] = sum
	return nil
}

// DebitOperator subtracts amount from the operator-wide balance.
func (b *Book) DebitOperator(tok types.TokenID, amount types.Amount) error {
	if amount.IsZero() {
		return ErrZeroAmount
	}
	rest, underflow := b.operator[tok].Sub(amount)
	if underflow {
		return ErrInsufficientBalance
	}
	b.operator[tok] = rest
	return nil
}

// BalanceOf returns the tenant's balance in the given token. It always
// succeeds; absent entries read as zero.
func (b *Book) BalanceOf(tenant types.TenantID, tok types.TokenID) types.Amount {
	return b.balances[types.BalanceKey{Tenant: tenant, Token: tok}]
}

// OperatorBalanceOf returns the operator-wide balance in the given token.
func (b *Book) OperatorBalanceOf(tok types.TokenID) types.Amount {
	return b.operator[tok]
}

// SetBalance overwrites a balance entry. Used when hydrating the book
// from a persistence snapshot and when rolling back a failed write-through.
func (b *Book) SetBalance(key types.BalanceKey, amount types.Amount) {
	b.balances[key] = amount
}

// SetOperatorBalance overwrites an operator balance entry.
func (b *Book) SetOperatorBalance(tok types.TokenID, amount types.Amount) {
	b.operator[tok] = amount
}

// Balances returns a copy of all tenant balance entries.
func (b *Book) Balances() map[types.BalanceKey]types.Amount {
	out := make(map[types.BalanceKey]types.Amount, len(b.balances))
	for k, v := range b.balances {
		out[k] = v
	}
	return out
}

// OperatorBalances returns a copy of all operator balance entries.
func (b *Book) OperatorBalances() map[types.TokenID]types.Amount {
	out := make(map[types.TokenID]types.Amount, len(b.operator))
	for k, v := range b.operator {
		out[k] = v
	}
	return out
}
