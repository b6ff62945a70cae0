package token

import (
	"errors"
	"testing"

	"github.com/xraph/treasury/types"
)

func reservedSet(tokens ...types.TokenID) ReservedResolver {
	set := make(map[types.TokenID]bool, len(tokens))
	for _, tok := range tokens {
		set[tok] = true
	}
	return ReservedFunc(func(t types.TokenID) bool { return set[t] })
}

func TestRegisterRoundTrip(t *testing.T) {
	r := NewRegistry(nil)

	if r.IsAllowed("gold") {
		t.Fatal("unregistered token must not be allowed")
	}
	if err := r.Register("gold"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !r.IsAllowed("gold") {
		t.Error("registered token must be allowed")
	}
	if err := r.Unregister("gold"); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if r.IsAllowed("gold") {
		t.Error("unregistered token must not be allowed")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry(nil)

	if err := r.Register("gold"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register("gold"); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("got %v, want ErrAlreadyRegistered", err)
	}
}

func TestRegisterReserved(t *testing.T) {
	r := NewRegistry(reservedSet("native"))

	if !r.IsAllowed("native") {
		t.Error("reserved token must always be allowed")
	}
	if r.IsRegistered("native") {
		t.Error("reserved token is not explicitly registered")
	}
	if err := r.Register("native"); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("got %v, want ErrAlreadyRegistered", err)
	}
	if err := r.Unregister("native"); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("got %v, want ErrNotRegistered", err)
	}
}

func TestUnregisterAbsent(t *testing.T) {
	r := NewRegistry(nil)

	if err := r.Unregister("gold"); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("got %v, want ErrNotRegistered", err)
	}
}

// Removing from the middle swaps the last entry into the hole; the moved
// entry must stay reachable through the fixed-up index.
func TestUnregisterSwapsLast(t *testing.T) {
	r := NewRegistry(nil)

	for _, tok := range []types.TokenID{"a", "b", "c", "d"} {
		if err := r.Register(tok); err != nil {
			t.Fatalf("register %s: %v", tok, err)
		}
	}

	if err := r.Unregister("b"); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if r.Len() != 3 {
		t.Fatalf("len: got %d, want 3", r.Len())
	}
	for _, tok := range []types.TokenID{"a", "c", "d"} {
		if !r.IsAllowed(tok) {
			t.Errorf("token %s lost after swap removal", tok)
		}
	}

	// The moved entry must still be removable through its new slot.
	if err := r.Unregister("d"); err != nil {
		t.Fatalf("unregister moved entry: %v", err)
	}
	if r.IsAllowed("d") {
		t.Error("moved entry still allowed after removal")
	}
}

func TestTokensCopy(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Register("gold"); err != nil {
		t.Fatalf("register: %v", err)
	}

	got := r.Tokens()
	got[0] = "mutated"
	if !r.IsAllowed("gold") {
		t.Error("Tokens must return a copy, not the backing slice")
	}
}
