package memory

import (
	"context"
	"sync"

	"github.com/xraph/treasury"
	"github.com/xraph/treasury/ratelimit"
	"github.com/xraph/treasury/store"
	"github.com/xraph/treasury/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store keeps treasury state in process memory. It is the default driver
// and the one used throughout the test suite.
type Store struct {
	mu sync.RWMutex

	// Token registry storage
	tokens map[types.TokenID]struct{}

	// Balance storage
	balances         map[types.BalanceKey]types.Amount
	operatorBalances map[types.TokenID]types.Amount

	// Rate limit storage
	caps   map[types.BalanceKey]ratelimit.Caps
	queues map[types.DisbursementKey]ratelimit.State

	// Revenue fee storage
	fees map[types.TokenID]uint8

	closed bool
}

func New() *Store {
	return &Store{
		tokens:           make(map[types.TokenID]struct{}),
		balances:         make(map[types.BalanceKey]types.Amount),
		operatorBalances: make(map[types.TokenID]types.Amount),
		caps:             make(map[types.BalanceKey]ratelimit.Caps),
		queues:           make(map[types.DisbursementKey]ratelimit.State),
		fees:             make(map[types.TokenID]uint8),
	}
}

func (s *Store) PutToken(_ context.Context, tok types.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[tok] = struct{}{}
	return nil
}

func (s *Store) DeleteToken(_ context.Context, tok types.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, tok)
	return nil
}

func (s *Store) PutBalance(_ context.Context, key types.BalanceKey, amount types.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances[key] = amount
	return nil
}

func (s *Store) PutOperatorBalance(_ context.Context, tok types.TokenID, amount types.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.operatorBalances[tok] = amount
	return nil
}

func (s *Store) PutCaps(_ context.Context, key types.BalanceKey, caps ratelimit.Caps) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.caps[key] = caps
	return nil
}

func (s *Store) PutFee(_ context.Context, tok types.TokenID, percent uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fees[tok] = percent
	return nil
}

func (s *Store) DeleteFee(_ context.Context, tok types.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.fees, tok)
	return nil
}

func (s *Store) PutQueue(_ context.Context, key types.DisbursementKey, state ratelimit.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queues[key] = state
	return nil
}

func (s *Store) DeleteQueue(_ context.Context, key types.DisbursementKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.queues, key)
	return nil
}

func (s *Store) Load(_ context.Context) (*store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := store.NewSnapshot()
	snap.Tokens = make([]types.TokenID, 0, len(s.tokens))
	for tok := range s.tokens {
		snap.Tokens = append(snap.Tokens, tok)
	}
	for key, amount := range s.balances {
		snap.Balances[key] = amount
	}
	for tok, amount := range s.operatorBalances {
		snap.OperatorBalances[tok] = amount
	}
	for key, caps := range s.caps {
		snap.Caps[key] = caps
	}
	for tok, pct := range s.fees {
		snap.Fees[tok] = pct
	}
	for key, state := range s.queues {
		snap.Queues[key] = state
	}
	return snap, nil
}

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return treasury.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
