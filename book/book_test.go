package book

import (
	"errors"
	"testing"

	"github.com/xraph/treasury/types"
)

func TestCreditDebit(t *testing.T) {
	b := New()

	if got := b.BalanceOf(1, "gold"); got != 0 {
		t.Fatalf("fresh balance: got %d, want 0", got)
	}
	if err := b.Credit(1, "gold", 500); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := b.Debit(1, "gold", 200); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if got := b.BalanceOf(1, "gold"); got != 300 {
		t.Errorf("balance: got %d, want 300", got)
	}
}

func TestDebitInsufficient(t *testing.T) {
	b := New()
	if err := b.Credit(1, "gold", 100); err != nil {
		t.Fatalf("credit: %v", err)
	}

	err := b.Debit(1, "gold", 101)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
	// A rejected debit leaves the balance unchanged.
	if got := b.BalanceOf(1, "gold"); got != 100 {
		t.Errorf("balance after rejected debit: got %d, want 100", got)
	}
}

func TestCreditOverflow(t *testing.T) {
	b := New()
	if err := b.Credit(1, "gold", types.MaxAmount); err != nil {
		t.Fatalf("credit: %v", err)
	}

	if err := b.Credit(1, "gold", 1); !errors.Is(err, ErrOverflow) {
		t.Fatalf("got %v, want ErrOverflow", err)
	}
	if got := b.BalanceOf(1, "gold"); got != types.MaxAmount {
		t.Errorf("balance after rejected credit: got %d, want MaxAmount", got)
	}
}

func TestZeroAmountRejected(t *testing.T) {
	b := New()

	if err := b.Credit(1, "gold", 0); !errors.Is(err, ErrZeroAmount) {
		t.Errorf("credit zero: got %v, want ErrZeroAmount", err)
	}
	if err := b.Debit(1, "gold", 0); !errors.Is(err, ErrZeroAmount) {
		t.Errorf("debit zero: got %v, want ErrZeroAmount", err)
	}
	if err := b.CreditOperator("gold", 0); !errors.Is(err, ErrZeroAmount) {
		t.Errorf("credit operator zero: got %v, want ErrZeroAmount", err)
	}
}

func TestOperatorNamespaceSeparate(t *testing.T) {
	b := New()

	if err := b.CreditOperator("gold", 70); err != nil {
		t.Fatalf("credit operator: %v", err)
	}
	if err := b.Credit(3, "gold", 30); err != nil {
		t.Fatalf("credit: %v", err)
	}

	if got := b.OperatorBalanceOf("gold"); got != 70 {
		t.Errorf("operator balance: got %d, want 70", got)
	}
	if got := b.BalanceOf(3, "gold"); got != 30 {
		t.Errorf("tenant balance: got %d, want 30", got)
	}

	if err := b.DebitOperator("gold", 71); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("debit operator: got %v, want ErrInsufficientBalance", err)
	}
	if err := b.DebitOperator("gold", 70); err != nil {
		t.Errorf("debit operator: %v", err)
	}
}

func TestBalancePersistsAtZero(t *testing.T) {
	b := New()
	if err := b.Credit(1, "gold", 10); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := b.Debit(1, "gold", 10); err != nil {
		t.Fatalf("debit: %v", err)
	}

	if _, ok := b.Balances()[types.BalanceKey{Tenant: 1, Token: "gold"}]; !ok {
		t.Error("zeroed balance entry must persist, not be deleted")
	}
}

func TestTenantsIsolated(t *testing.T) {
	b := New()
	if err := b.Credit(1, "gold", 100); err != nil {
		t.Fatalf("credit: %v", err)
	}

	if err := b.Debit(2, "gold", 1); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("cross-tenant debit: got %v, want ErrInsufficientBalance", err)
	}
	if err := b.Debit(1, "silver", 1); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("cross-token debit: got %v, want ErrInsufficientBalance", err)
	}
}
