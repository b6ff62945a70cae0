// Package token provides the allow-list of tokens the treasury accepts.
//
// A Registry tracks explicitly registered tokens next to a fixed reserved
// set supplied by an external asset-registry collaborator. Registration
// order is not stable across removals: unregistering swaps the last entry
// into the removed slot so both operations stay O(1).
package token

import (
	"errors"

	"github.com/xraph/treasury/types"
)

// Sentinel errors returned by Registry operations.
var (
	ErrAlreadyRegistered = errors.New("treasury/token: token already registered")
	ErrNotRegistered     = errors.New("treasury/token: token not registered")
)

// ReservedResolver supplies the fixed set of always-allowed tokens.
// It is an external collaborator; the registry never mutates it.
type ReservedResolver interface {
	IsReserved(token types.TokenID) bool
}

// ReservedFunc adapts a plain function to a ReservedResolver.
type ReservedFunc func(token types.TokenID) bool

// IsReserved implements ReservedResolver.
func (f ReservedFunc) IsReserved(token types.TokenID) bool { return f(token) }

// NoReserved is a resolver with an empty reserved set.
var NoReserved = ReservedFunc(func(types.TokenID) bool { return false })

// Registry is the token allow-list. It keeps registered tokens in a slice
// with a 1-based index map so removal can swap with the last element.
// The zero index means "absent", so indices stored in the map are offset
// by one from slice positions.
type Registry struct {
	reserved ReservedResolver
	tokens   []types.TokenID
	index    map[types.TokenID]int
}

// NewRegistry creates an empty registry with the given reserved resolver.
// A nil resolver is treated as an empty reserved set.
func NewRegistry(reserved ReservedResolver) *Registry {
	if reserved == nil {
		reserved = NoReserved
	}
	return &Registry{
		reserved: reserved,
		index:    make(map[types.TokenID]int),
	}
}

// Register adds a token to the allow-list. It fails with
// ErrAlreadyRegistered when the token is already present, including
// members of the reserved set.
func (r *Registry) Register(token types.TokenID) error {
	if r.reserved.IsReserved(token) {
		return ErrAlreadyRegistered
	}
	if r.index[token] != 0 {
		return ErrAlreadyRegistered
	}

	r.tokens = append(r.tokens, token)
	r.index[token] = len(r.tokens)
	return nil
}

// Unregister removes a token from the allow-list. It fails with
// ErrNotRegistered when the token is absent. Reserved tokens cannot be
// unregistered; they were never registered.
func (r *Registry) Unregister(token types.TokenID) error {
	pos := r.index[token]
	if pos == 0 {
		return ErrNotRegistered
	}

	last := len(r.tokens)
	if pos != last {
		moved := r.tokens[last-1]
		r.tokens[pos-1] = moved
		r.index[moved] = pos
	}
	r.tokens = r.tokens[:last-1]
	delete(r.index, token)
	return nil
}

// IsAllowed reports whether the token is registered or reserved.
func (r *Registry) IsAllowed(token types.TokenID) bool {
	return r.index[token] != 0 || r.reserved.IsReserved(token)
}

// IsRegistered reports whether the token was explicitly registered,
// excluding the reserved set.
func (r *Registry) IsRegistered(token types.TokenID) bool {
	return r.index[token] != 0
}

// Len returns the number of explicitly registered tokens.
func (r *Registry) Len() int { return len(r.tokens) }

// Tokens returns a copy of the registered tokens. Order is not stable
// across removals.
func (r *Registry) Tokens() []types.TokenID {
	out := make([]types.TokenID, len(r.tokens))
	copy(out, r.tokens)
	return out
}
