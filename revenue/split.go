// Package revenue splits marketplace sale proceeds between a tenant and
// the operator.
package revenue

import (
	"errors"

	"github.com/xraph/treasury/types"
)

// ErrInvalidPercent is returned when a fee percent is outside [0, 100].
var ErrInvalidPercent = errors.New("treasury/revenue: fee percent out of range")

// Fee is the operator's cut of sale proceeds for one token. Absence of a
// configured fee is a distinct state from a configured 0% fee, even
// though both split identically.
type Fee struct {
	Percent uint8 `json:"percent"`
	set     bool
}

// NoFee is the unset fee.
var NoFee = Fee{}

// FeeOf returns a configured fee. It fails with ErrInvalidPercent when
// percent exceeds 100.
func FeeOf(percent uint8) (Fee, error) {
	if percent > 100 {
		return Fee{}, ErrInvalidPercent
	}
	return Fee{Percent: percent, set: true}, nil
}

// MustFee is like FeeOf but panics on error. Use for constants.
func MustFee(percent uint8) Fee {
	f, err := FeeOf(percent)
	if err != nil {
		panic(err)
	}
	return f
}

// Configured reports whether a fee entry is present.
func (f Fee) Configured() bool { return f.set }

// Split divides gross sale proceeds. The operator share is
// floor(gross * percent / 100); the tenant receives the remainder, so
// the two shares always sum to gross. An unset fee sends everything to
// the tenant.
func Split(gross types.Amount, fee Fee) (tenantShare, operatorShare types.Amount) {
	if !fee.Configured() {
		return gross, 0
	}
	operatorShare = mulDiv100(gross, fee.Percent)
	return gross - operatorShare, operatorShare
}

// mulDiv100 computes floor(gross * percent / 100) without overflowing
// the 64-bit quantity: split gross into hundreds and remainder first.
func mulDiv100(gross types.Amount, percent uint8) types.Amount {
	g := uint64(gross)
	p := uint64(percent)
	return types.Amount(g/100*p + g%100*p/100)
}
