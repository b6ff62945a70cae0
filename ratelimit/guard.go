package ratelimit

import (
	"math"

	"github.com/xraph/treasury/types"
)

// Window is the rolling cap window in time-units, measured backward from
// the call time. It is a fixed trailing window, not a calendar day.
const Window int64 = 86400

// Cap is a disbursement limit. The zero value means "unlimited"; that is
// the public reset sentinel, so Cap carries a predicate instead of raw
// zero comparisons leaking into the guard logic.
type Cap uint64

// Limited reports whether the cap is configured.
func (c Cap) Limited() bool { return c != 0 }

// Allows reports whether quantity passes the cap. Caps are inclusive:
// quantity == cap passes. An unconfigured cap allows everything.
func (c Cap) Allows(quantity uint64) bool {
	return !c.Limited() || quantity <= uint64(c)
}

// Caps holds the per-transaction and rolling-daily limits for one
// (tenant, token) pair.
type Caps struct {
	Tx    Cap `json:"tx"`
	Daily Cap `json:"daily"`
}

// IsZero reports whether both caps are unconfigured.
func (c Caps) IsZero() bool { return !c.Tx.Limited() && !c.Daily.Limited() }

// validate enforces dailyCap >= txCap whenever both are configured.
func (c Caps) validate() error {
	if c.Tx.Limited() && c.Daily.Limited() && c.Daily < c.Tx {
		return ErrInvalidCapOrdering
	}
	return nil
}

// Guard applies disbursement caps using one history queue per
// (tenant, token, recipient) triple. Queues are created lazily on first
// disbursement and never torn down wholesale; only stale entries are
// evicted. Not safe for concurrent use; the owning engine serializes.
type Guard struct {
	caps   map[types.BalanceKey]Caps
	queues map[types.DisbursementKey]*Queue
}

// NewGuard creates a guard with no caps configured and no history.
func NewGuard() *Guard {
	return &Guard{
		caps:   make(map[types.BalanceKey]Caps),
		queues: make(map[types.DisbursementKey]*Queue),
	}
}

// SetTxCap configures the per-transaction cap for (tenant, token).
// Zero resets to unlimited. Fails with ErrInvalidCapOrdering when the
// result would put the daily cap below the per-transaction cap.
func (g *Guard) SetTxCap(tenant types.TenantID, tok types.TokenID, cap Cap) error {
	key := types.BalanceKey{Tenant: tenant, Token: tok}
	next := g.caps[key]
	next.Tx = cap
	if err := next.validate(); err != nil {
		return err
	}
	g.caps[key] = next
	return nil
}

// SetDailyCap configures the rolling-daily cap for (tenant, token).
// Zero resets to unlimited.
func (g *Guard) SetDailyCap(tenant types.TenantID, tok types.TokenID, cap Cap) error {
	key := types.BalanceKey{Tenant: tenant, Token: tok}
	next := g.caps[key]
	next.Daily = cap
	if err := next.validate(); err != nil {
		return err
	}
	g.caps[key] = next
	return nil
}

// CapsFor returns the configured caps for (tenant, token); the zero value
// when none were ever set.
func (g *Guard) CapsFor(tenant types.TenantID, tok types.TokenID) Caps {
	return g.caps[types.BalanceKey{Tenant: tenant, Token: tok}]
}

// Record validates a disbursement of quantity to the keyed recipient at
// time now and, when it passes, appends it to the history. The entry is
// appended even when no caps are configured so future cap changes have
// history to evaluate against.
//
// Stale entries (older than Window relative to now) are evicted before
// the daily check. Entries are enqueued in non-decreasing time order, so
// the first stale entry found scanning newest to oldest marks a
// contiguous stale prefix at the front; exactly that prefix is discarded.
// Returns the number of entries evicted.
func (g *Guard) Record(key types.DisbursementKey, quantity uint64, now int64) (int, error) {
	caps := g.caps[types.BalanceKey{Tenant: key.Tenant, Token: key.Token}]

	if !caps.Tx.Allows(quantity) {
		return 0, ErrTxLimitExceeded
	}

	q, ok := g.queues[key]
	if !ok {
		q = NewQueue()
		g.queues[key] = q
	}

	var fresh uint64
	var freshCount uint64
	for off := q.Len(); off > 0; off-- {
		entry, err := q.At(off - 1)
		if err != nil {
			return 0, err
		}
		if now-entry.Time > Window {
			break
		}
		freshCount++
		if fresh > math.MaxUint64-entry.Quantity {
			fresh = math.MaxUint64
		} else {
			fresh += entry.Quantity
		}
	}

	evicted := 0
	for stale := q.Len() - freshCount; stale > 0; stale-- {
		if _, err := q.Dequeue(); err != nil {
			return evicted, err
		}
		evicted++
	}

	if caps.Daily.Limited() {
		total := fresh + quantity
		if total < fresh || !caps.Daily.Allows(total) {
			return evicted, ErrDailyLimitExceeded
		}
	}

	if err := q.Enqueue(Entry{Time: now, Quantity: quantity}); err != nil {
		return evicted, err
	}
	return evicted, nil
}

// QueueFor returns the history queue for a key, or nil when that key was
// never disbursed to.
func (g *Guard) QueueFor(key types.DisbursementKey) *Queue {
	return g.queues[key]
}

// RestoreCaps installs caps without validation, used when hydrating from
// a persistence snapshot.
func (g *Guard) RestoreCaps(key types.BalanceKey, caps Caps) {
	g.caps[key] = caps
}

// RestoreQueue installs a queue when hydrating from a snapshot.
func (g *Guard) RestoreQueue(key types.DisbursementKey, q *Queue) {
	g.queues[key] = q
}

// DropQueue removes a key's history queue, undoing a lazy creation.
func (g *Guard) DropQueue(key types.DisbursementKey) {
	delete(g.queues, key)
}

// AllCaps returns a copy of every configured caps entry.
func (g *Guard) AllCaps() map[types.BalanceKey]Caps {
	out := make(map[types.BalanceKey]Caps, len(g.caps))
	for k, v := range g.caps {
		out[k] = v
	}
	return out
}

// AllQueues returns the live queue map. Callers must not mutate entries;
// the engine uses this for persistence snapshots only.
func (g *Guard) AllQueues() map[types.DisbursementKey]*Queue {
	out := make(map[types.DisbursementKey]*Queue, len(g.queues))
	for k, v := range g.queues {
		out[k] = v
	}
	return out
}
