// Package types provides common types used across Treasury.
package types

import (
	"fmt"
	"math"
	"strconv"
)

// TenantID identifies an independent tenant (app) sharing the custodial
// pool. Zero is the invalid/unset value.
type TenantID uint32

// Valid reports whether the tenant id is set.
func (t TenantID) Valid() bool { return t != 0 }

// String returns the decimal representation.
func (t TenantID) String() string { return strconv.FormatUint(uint64(t), 10) }

// TokenID is an opaque, equality-comparable asset identifier.
type TokenID string

// Valid reports whether the token id is non-empty.
func (t TokenID) Valid() bool { return t != "" }

func (t TokenID) String() string { return string(t) }

// Amount is an unsigned token quantity in the asset's smallest unit.
// All arithmetic is integer-only and overflow-checked.
type Amount uint64

// MaxAmount is the largest representable quantity.
const MaxAmount = Amount(math.MaxUint64)

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// Add returns a+b and reports whether the sum overflowed.
func (a Amount) Add(b Amount) (Amount, bool) {
	sum := a + b
	return sum, sum < a
}

// Sub returns a-b and reports whether b exceeded a.
func (a Amount) Sub(b Amount) (Amount, bool) {
	return a - b, b > a
}

func (a Amount) String() string { return strconv.FormatUint(uint64(a), 10) }

// BalanceKey addresses one tenant's balance in one token. Modeled as a
// genuine composite key rather than nested maps so ownership and
// iteration stay explicit.
type BalanceKey struct {
	Tenant TenantID `json:"tenant"`
	Token  TokenID  `json:"token"`
}

func (k BalanceKey) String() string {
	return fmt.Sprintf("%s/%s", k.Tenant, k.Token)
}

// DisbursementKey addresses one recipient's disbursement history for a
// (tenant, token) pair.
type DisbursementKey struct {
	Tenant    TenantID `json:"tenant"`
	Token     TokenID  `json:"token"`
	Recipient string   `json:"recipient"`
}

func (k DisbursementKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Tenant, k.Token, k.Recipient)
}
