package treasury

import (
	"github.com/xraph/treasury/id"
	"github.com/xraph/treasury/ratelimit"
	"github.com/xraph/treasury/types"
)

// Re-export common types for convenience so users don't have to import types package.

// TenantID is re-exported from types package.
type TenantID = types.TenantID

// TokenID is re-exported from types package.
type TokenID = types.TokenID

// Amount is re-exported from types package.
type Amount = types.Amount

// BalanceKey is re-exported from types package.
type BalanceKey = types.BalanceKey

// DisbursementKey is re-exported from types package.
type DisbursementKey = types.DisbursementKey

// Cap is re-exported from ratelimit package.
type Cap = ratelimit.Cap

// Caps is re-exported from ratelimit package.
type Caps = ratelimit.Caps

// ReceiptID is re-exported from id package.
type ReceiptID = id.ReceiptID

// SaleID is re-exported from id package.
type SaleID = id.SaleID

// Re-export identifier constructors
var (
	NewReceiptID   = id.NewReceiptID
	NewSaleID      = id.NewSaleID
	ParseReceiptID = id.ParseReceiptID
	ParseSaleID    = id.ParseSaleID
)
