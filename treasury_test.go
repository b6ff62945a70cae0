package treasury_test

import (
	"context"
	"errors"
	"testing"

	treasury "github.com/xraph/treasury"
	"github.com/xraph/treasury/ratelimit"
	"github.com/xraph/treasury/store"
	"github.com/xraph/treasury/store/memory"
	"github.com/xraph/treasury/types"
)

const (
	tenant    types.TenantID = 7
	gold      types.TokenID  = "gold"
	recipient                = "alice"
)

func newTreasury(t *testing.T, opts ...treasury.Option) *treasury.Treasury {
	t.Helper()
	eng := treasury.New(memory.New(), opts...)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return eng
}

func registerGold(t *testing.T, eng *treasury.Treasury) {
	t.Helper()
	if err := eng.RegisterToken(context.Background(), gold); err != nil {
		t.Fatalf("register token: %v", err)
	}
}

func TestTokenRegistry(t *testing.T) {
	ctx := context.Background()
	eng := newTreasury(t)

	if eng.TokenAllowed(ctx, gold) {
		t.Fatal("token allowed before registration")
	}
	registerGold(t, eng)
	if !eng.TokenAllowed(ctx, gold) {
		t.Fatal("token not allowed after registration")
	}

	if err := eng.RegisterToken(ctx, gold); !errors.Is(err, treasury.ErrTokenAlreadyRegistered) {
		t.Errorf("duplicate register: got %v, want ErrTokenAlreadyRegistered", err)
	}

	if err := eng.UnregisterToken(ctx, gold); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if eng.TokenAllowed(ctx, gold) {
		t.Error("token still allowed after unregistration")
	}
	if err := eng.UnregisterToken(ctx, gold); !errors.Is(err, treasury.ErrTokenNotRegistered) {
		t.Errorf("double unregister: got %v, want ErrTokenNotRegistered", err)
	}
}

func TestReservedTokens(t *testing.T) {
	ctx := context.Background()
	eng := newTreasury(t, treasury.WithReservedTokens("house"))

	// Reserved tokens are always allowed but can never be (un)registered.
	if !eng.TokenAllowed(ctx, "house") {
		t.Fatal("reserved token not allowed")
	}
	if err := eng.RegisterToken(ctx, "house"); err == nil {
		t.Error("registering a reserved token must fail")
	}
	if err := eng.UnregisterToken(ctx, "house"); err == nil {
		t.Error("unregistering a reserved token must fail")
	}

	// Reserved tokens are not listed.
	if toks := eng.Tokens(ctx); len(toks) != 0 {
		t.Errorf("reserved token listed: %v", toks)
	}
}

func TestCreditDebit(t *testing.T) {
	ctx := context.Background()
	eng := newTreasury(t)
	registerGold(t, eng)

	if err := eng.Credit(ctx, tenant, gold, 100); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if got := eng.BalanceOf(ctx, tenant, gold); got != 100 {
		t.Fatalf("balance = %d, want 100", got)
	}

	if err := eng.Debit(ctx, tenant, gold, 40); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if got := eng.BalanceOf(ctx, tenant, gold); got != 60 {
		t.Fatalf("balance = %d, want 60", got)
	}

	if err := eng.Debit(ctx, tenant, gold, 61); !errors.Is(err, treasury.ErrInsufficientBalance) {
		t.Errorf("overdraw: got %v, want ErrInsufficientBalance", err)
	}
	if err := eng.Credit(ctx, tenant, gold, 0); !errors.Is(err, treasury.ErrZeroAmount) {
		t.Errorf("zero credit: got %v, want ErrZeroAmount", err)
	}
	if err := eng.Credit(ctx, tenant, "silver", 10); !errors.Is(err, treasury.ErrTokenNotAllowed) {
		t.Errorf("unregistered token: got %v, want ErrTokenNotAllowed", err)
	}
	if err := eng.Credit(ctx, 0, gold, 10); !errors.Is(err, treasury.ErrInvalidTenant) {
		t.Errorf("zero tenant: got %v, want ErrInvalidTenant", err)
	}
}

func TestCreditOverflow(t *testing.T) {
	ctx := context.Background()
	eng := newTreasury(t)
	registerGold(t, eng)

	if err := eng.Credit(ctx, tenant, gold, ^types.Amount(0)); err != nil {
		t.Fatalf("credit max: %v", err)
	}
	if err := eng.Credit(ctx, tenant, gold, 1); !errors.Is(err, treasury.ErrBalanceOverflow) {
		t.Fatalf("overflow credit: got %v, want ErrBalanceOverflow", err)
	}
	// Balance unchanged by the failed credit.
	if got := eng.BalanceOf(ctx, tenant, gold); got != ^types.Amount(0) {
		t.Errorf("balance = %d after failed credit", got)
	}
}

func TestOperatorBalances(t *testing.T) {
	ctx := context.Background()
	eng := newTreasury(t)
	registerGold(t, eng)

	if err := eng.CreditOperator(ctx, gold, 500); err != nil {
		t.Fatalf("credit operator: %v", err)
	}
	if err := eng.DebitOperator(ctx, gold, 200); err != nil {
		t.Fatalf("debit operator: %v", err)
	}
	if got := eng.OperatorBalanceOf(ctx, gold); got != 300 {
		t.Fatalf("operator balance = %d, want 300", got)
	}
	if err := eng.DebitOperator(ctx, gold, 301); !errors.Is(err, treasury.ErrInsufficientBalance) {
		t.Errorf("operator overdraw: got %v, want ErrInsufficientBalance", err)
	}
}

func TestDisburseFlow(t *testing.T) {
	ctx := context.Background()
	eng := newTreasury(t)
	registerGold(t, eng)

	if err := eng.Credit(ctx, tenant, gold, 1000); err != nil {
		t.Fatal(err)
	}
	if err := eng.SetTxCap(ctx, tenant, gold, 100); err != nil {
		t.Fatal(err)
	}
	if err := eng.SetDailyCap(ctx, tenant, gold, 150); err != nil {
		t.Fatal(err)
	}

	receipt, err := eng.Disburse(ctx, tenant, gold, recipient, 100, 0)
	if err != nil {
		t.Fatalf("first disbursement: %v", err)
	}
	if receipt.IsNil() {
		t.Error("disbursement returned nil receipt")
	}
	if got := eng.BalanceOf(ctx, tenant, gold); got != 900 {
		t.Fatalf("balance = %d, want 900", got)
	}

	// Per-transaction cap is inclusive; 101 exceeds it.
	if _, err := eng.Disburse(ctx, tenant, gold, recipient, 101, 1); !errors.Is(err, treasury.ErrTxLimitExceeded) {
		t.Errorf("tx cap: got %v, want ErrTxLimitExceeded", err)
	}

	// 100 already sent in the window; 51 more would exceed the daily 150.
	if _, err := eng.Disburse(ctx, tenant, gold, recipient, 51, 2); !errors.Is(err, treasury.ErrDailyLimitExceeded) {
		t.Errorf("daily cap: got %v, want ErrDailyLimitExceeded", err)
	}
	// A rejected disbursement must not touch the balance.
	if got := eng.BalanceOf(ctx, tenant, gold); got != 900 {
		t.Fatalf("balance changed by rejected disbursement: %d", got)
	}

	// 50 fits exactly (inclusive daily cap).
	if _, err := eng.Disburse(ctx, tenant, gold, recipient, 50, 3); err != nil {
		t.Fatalf("disbursement at daily cap: %v", err)
	}

	// A different recipient has an independent window.
	if _, err := eng.Disburse(ctx, tenant, gold, "bob", 100, 4); err != nil {
		t.Fatalf("second recipient: %v", err)
	}

	// After the window slides past the first disbursement, capacity returns.
	if _, err := eng.Disburse(ctx, tenant, gold, recipient, 100, 86401); err != nil {
		t.Fatalf("disbursement after window slide: %v", err)
	}
}

func TestDisburseValidation(t *testing.T) {
	ctx := context.Background()
	eng := newTreasury(t)
	registerGold(t, eng)

	if _, err := eng.Disburse(ctx, tenant, gold, "", 10, 0); !errors.Is(err, treasury.ErrEmptyRecipient) {
		t.Errorf("empty recipient: got %v, want ErrEmptyRecipient", err)
	}
	if _, err := eng.Disburse(ctx, tenant, gold, recipient, 0, 0); !errors.Is(err, treasury.ErrZeroAmount) {
		t.Errorf("zero quantity: got %v, want ErrZeroAmount", err)
	}
	if _, err := eng.Disburse(ctx, tenant, gold, recipient, 10, 0); !errors.Is(err, treasury.ErrInsufficientBalance) {
		t.Errorf("no balance: got %v, want ErrInsufficientBalance", err)
	}
}

func TestGuardDisbursementRecordsWithoutCaps(t *testing.T) {
	ctx := context.Background()
	eng := newTreasury(t)
	registerGold(t, eng)

	// History is recorded even with no caps, so caps applied later see it.
	if _, err := eng.GuardDisbursement(ctx, tenant, gold, recipient, 120, 0); err != nil {
		t.Fatalf("uncapped guard: %v", err)
	}
	if err := eng.SetDailyCap(ctx, tenant, gold, 150); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.GuardDisbursement(ctx, tenant, gold, recipient, 31, 1); !errors.Is(err, treasury.ErrDailyLimitExceeded) {
		t.Errorf("prior history ignored: got %v, want ErrDailyLimitExceeded", err)
	}
}

func TestCapOrdering(t *testing.T) {
	ctx := context.Background()
	eng := newTreasury(t)
	registerGold(t, eng)

	if err := eng.SetTxCap(ctx, tenant, gold, 100); err != nil {
		t.Fatal(err)
	}
	if err := eng.SetDailyCap(ctx, tenant, gold, 50); !errors.Is(err, treasury.ErrInvalidCapOrdering) {
		t.Errorf("daily < tx: got %v, want ErrInvalidCapOrdering", err)
	}
	// The failed update must not change the configured caps.
	caps := eng.Caps(ctx, tenant, gold)
	if caps.Tx != 100 || caps.Daily != 0 {
		t.Errorf("caps = %+v after rejected update", caps)
	}

	// Resetting the tx cap to zero lifts the ordering constraint.
	if err := eng.SetTxCap(ctx, tenant, gold, 0); err != nil {
		t.Fatal(err)
	}
	if err := eng.SetDailyCap(ctx, tenant, gold, 50); err != nil {
		t.Fatalf("daily cap after reset: %v", err)
	}
}

func TestRevenueFees(t *testing.T) {
	ctx := context.Background()
	eng := newTreasury(t)
	registerGold(t, eng)

	if _, ok := eng.RevenueFee(ctx, gold); ok {
		t.Fatal("fee reported before configuration")
	}

	if err := eng.SetRevenueFee(ctx, gold, 30); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	if pct, ok := eng.RevenueFee(ctx, gold); !ok || pct != 30 {
		t.Fatalf("fee = %d,%v, want 30,true", pct, ok)
	}

	// Percent zero is a configured fee, distinct from unset.
	if err := eng.SetRevenueFee(ctx, gold, 0); err != nil {
		t.Fatalf("set zero fee: %v", err)
	}
	if pct, ok := eng.RevenueFee(ctx, gold); !ok || pct != 0 {
		t.Fatalf("fee = %d,%v, want 0,true", pct, ok)
	}

	if err := eng.SetRevenueFee(ctx, gold, 101); !errors.Is(err, treasury.ErrInvalidFeePercent) {
		t.Errorf("percent > 100: got %v, want ErrInvalidFeePercent", err)
	}

	if err := eng.ClearRevenueFee(ctx, gold); err != nil {
		t.Fatalf("clear fee: %v", err)
	}
	if _, ok := eng.RevenueFee(ctx, gold); ok {
		t.Error("fee reported after clear")
	}
	// Clearing an unset fee is a no-op.
	if err := eng.ClearRevenueFee(ctx, gold); err != nil {
		t.Errorf("clear unset fee: %v", err)
	}
}

func TestRecordPurchase(t *testing.T) {
	ctx := context.Background()
	eng := newTreasury(t)
	registerGold(t, eng)

	// No fee configured: everything goes to the tenant.
	sale, err := eng.RecordPurchase(ctx, tenant, gold, 100)
	if err != nil {
		t.Fatalf("purchase without fee: %v", err)
	}
	if sale.IsNil() {
		t.Error("purchase returned nil sale id")
	}
	if got := eng.BalanceOf(ctx, tenant, gold); got != 100 {
		t.Fatalf("tenant balance = %d, want 100", got)
	}
	if got := eng.OperatorBalanceOf(ctx, gold); got != 0 {
		t.Fatalf("operator balance = %d, want 0", got)
	}

	// 30% fee: operator share rounds down, shares sum to gross.
	if err := eng.SetRevenueFee(ctx, gold, 30); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.RecordPurchase(ctx, tenant, gold, 101); err != nil {
		t.Fatalf("purchase with fee: %v", err)
	}
	if got := eng.OperatorBalanceOf(ctx, gold); got != 30 {
		t.Fatalf("operator balance = %d, want 30", got)
	}
	if got := eng.BalanceOf(ctx, tenant, gold); got != 171 {
		t.Fatalf("tenant balance = %d, want 171", got)
	}

	if _, err := eng.RecordPurchase(ctx, tenant, gold, 0); !errors.Is(err, treasury.ErrZeroAmount) {
		t.Errorf("zero gross: got %v, want ErrZeroAmount", err)
	}
}

func TestHydration(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	eng := treasury.New(st)
	if err := eng.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := eng.RegisterToken(ctx, gold); err != nil {
		t.Fatal(err)
	}
	if err := eng.Credit(ctx, tenant, gold, 500); err != nil {
		t.Fatal(err)
	}
	if err := eng.CreditOperator(ctx, gold, 70); err != nil {
		t.Fatal(err)
	}
	if err := eng.SetDailyCap(ctx, tenant, gold, 150); err != nil {
		t.Fatal(err)
	}
	if err := eng.SetRevenueFee(ctx, gold, 25); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Disburse(ctx, tenant, gold, recipient, 100, 10); err != nil {
		t.Fatal(err)
	}

	// A fresh engine over the same store sees identical state.
	eng2 := treasury.New(st)
	if err := eng2.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}

	if !eng2.TokenAllowed(ctx, gold) {
		t.Error("token lost across restart")
	}
	if got := eng2.BalanceOf(ctx, tenant, gold); got != 400 {
		t.Errorf("balance = %d, want 400", got)
	}
	if got := eng2.OperatorBalanceOf(ctx, gold); got != 70 {
		t.Errorf("operator balance = %d, want 70", got)
	}
	if caps := eng2.Caps(ctx, tenant, gold); caps.Daily != 150 {
		t.Errorf("caps = %+v, want daily 150", caps)
	}
	if pct, ok := eng2.RevenueFee(ctx, gold); !ok || pct != 25 {
		t.Errorf("fee = %d,%v, want 25,true", pct, ok)
	}

	// Disbursement history survives: the window still counts the first 100.
	if _, err := eng2.GuardDisbursement(ctx, tenant, gold, recipient, 51, 11); !errors.Is(err, treasury.ErrDailyLimitExceeded) {
		t.Errorf("restored history ignored: got %v, want ErrDailyLimitExceeded", err)
	}
}

// failingStore wraps a store and fails selected writes to exercise the
// engine's rollback paths.
type failingStore struct {
	store.Store
	failBalance bool
	failQueue   bool
	failToken   bool
}

var errStoreDown = errors.New("store down")

func (s *failingStore) PutBalance(ctx context.Context, key types.BalanceKey, amount types.Amount) error {
	if s.failBalance {
		return errStoreDown
	}
	return s.Store.PutBalance(ctx, key, amount)
}

func (s *failingStore) PutQueue(ctx context.Context, key types.DisbursementKey, state ratelimit.State) error {
	if s.failQueue {
		return errStoreDown
	}
	return s.Store.PutQueue(ctx, key, state)
}

func (s *failingStore) PutToken(ctx context.Context, tok types.TokenID) error {
	if s.failToken {
		return errStoreDown
	}
	return s.Store.PutToken(ctx, tok)
}

func TestStoreFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{Store: memory.New()}

	eng := treasury.New(fs)
	if err := eng.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := eng.RegisterToken(ctx, gold); err != nil {
		t.Fatal(err)
	}
	if err := eng.Credit(ctx, tenant, gold, 100); err != nil {
		t.Fatal(err)
	}

	// Failed balance write: credit must be rolled back in memory.
	fs.failBalance = true
	if err := eng.Credit(ctx, tenant, gold, 50); !errors.Is(err, errStoreDown) {
		t.Fatalf("credit with failing store: got %v", err)
	}
	if got := eng.BalanceOf(ctx, tenant, gold); got != 100 {
		t.Errorf("balance = %d after failed credit, want 100", got)
	}
	fs.failBalance = false

	// Failed queue write: the disbursement leaves no history behind.
	fs.failQueue = true
	if _, err := eng.Disburse(ctx, tenant, gold, recipient, 10, 0); !errors.Is(err, errStoreDown) {
		t.Fatalf("disburse with failing store: got %v", err)
	}
	fs.failQueue = false
	if got := eng.BalanceOf(ctx, tenant, gold); got != 100 {
		t.Errorf("balance = %d after failed disbursement, want 100", got)
	}

	// With a daily cap in place, the failed attempt must not count.
	if err := eng.SetDailyCap(ctx, tenant, gold, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Disburse(ctx, tenant, gold, recipient, 10, 1); err != nil {
		t.Fatalf("full daily capacity should remain: %v", err)
	}

	// Failed token write: registration must be rolled back.
	fs.failToken = true
	if err := eng.RegisterToken(ctx, "silver"); !errors.Is(err, errStoreDown) {
		t.Fatalf("register with failing store: got %v", err)
	}
	if eng.TokenAllowed(ctx, "silver") {
		t.Error("token allowed after failed registration")
	}
}

func TestFailedDisbursementInvisibleAfterRestart(t *testing.T) {
	ctx := context.Background()
	ms := memory.New()
	fs := &failingStore{Store: ms}

	eng := treasury.New(fs)
	if err := eng.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := eng.RegisterToken(ctx, gold); err != nil {
		t.Fatal(err)
	}
	if err := eng.Credit(ctx, tenant, gold, 100); err != nil {
		t.Fatal(err)
	}
	if err := eng.SetDailyCap(ctx, tenant, gold, 100); err != nil {
		t.Fatal(err)
	}

	// The queue row is persisted before the balance write fails, so the
	// rollback must also remove it from the store.
	fs.failBalance = true
	if _, err := eng.Disburse(ctx, tenant, gold, recipient, 100, 0); !errors.Is(err, errStoreDown) {
		t.Fatalf("disburse with failing store: got %v", err)
	}

	// A fresh engine over the same store must not see the failed
	// disbursement's history: the full daily window is still available.
	eng2 := treasury.New(ms)
	if err := eng2.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if _, err := eng2.GuardDisbursement(ctx, tenant, gold, recipient, 100, 1); err != nil {
		t.Errorf("failed disbursement visible after restart: %v", err)
	}
	if got := eng2.BalanceOf(ctx, tenant, gold); got != 100 {
		t.Errorf("balance = %d after restart, want 100", got)
	}
}
