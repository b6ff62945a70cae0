package store

import (
	"context"

	"github.com/xraph/treasury/ratelimit"
	"github.com/xraph/treasury/types"
)

// Snapshot is the full persisted treasury state. Drivers produce it from
// Load and the engine hydrates its in-memory components from it at startup.
type Snapshot struct {
	Tokens           []types.TokenID
	Balances         map[types.BalanceKey]types.Amount
	OperatorBalances map[types.TokenID]types.Amount
	Caps             map[types.BalanceKey]ratelimit.Caps
	Fees             map[types.TokenID]uint8
	Queues           map[types.DisbursementKey]ratelimit.State
}

// NewSnapshot returns an empty snapshot with all maps allocated.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Balances:         make(map[types.BalanceKey]types.Amount),
		OperatorBalances: make(map[types.TokenID]types.Amount),
		Caps:             make(map[types.BalanceKey]ratelimit.Caps),
		Fees:             make(map[types.TokenID]uint8),
		Queues:           make(map[types.DisbursementKey]ratelimit.State),
	}
}

// Store is the unified write-through persistence interface for the treasury.
// The engine holds authoritative state in memory; every mutating call pushes
// the affected rows here after the in-memory update succeeds.
type Store interface {
	// Token registry methods
	PutToken(ctx context.Context, tok types.TokenID) error
	DeleteToken(ctx context.Context, tok types.TokenID) error

	// Balance methods
	PutBalance(ctx context.Context, key types.BalanceKey, amount types.Amount) error
	PutOperatorBalance(ctx context.Context, tok types.TokenID, amount types.Amount) error

	// Disbursement cap methods
	PutCaps(ctx context.Context, key types.BalanceKey, caps ratelimit.Caps) error

	// Revenue fee methods. Row presence means the fee is configured, so a
	// stored percent of 0 is distinct from no row at all.
	PutFee(ctx context.Context, tok types.TokenID, percent uint8) error
	DeleteFee(ctx context.Context, tok types.TokenID) error

	// Disbursement history methods
	PutQueue(ctx context.Context, key types.DisbursementKey, state ratelimit.State) error
	DeleteQueue(ctx context.Context, key types.DisbursementKey) error

	// Core methods
	Load(ctx context.Context) (*Snapshot, error)
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
