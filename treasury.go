package treasury

import (
	"context"
	"log/slog"
	"sync"

	"github.com/xraph/treasury/book"
	"github.com/xraph/treasury/id"
	"github.com/xraph/treasury/plugin"
	"github.com/xraph/treasury/ratelimit"
	"github.com/xraph/treasury/revenue"
	"github.com/xraph/treasury/store"
	"github.com/xraph/treasury/token"
	"github.com/xraph/treasury/types"
)

// Treasury is the custodial treasury engine. It owns the authoritative
// in-memory state (token registry, balance book, disbursement guard and
// revenue fees) and writes through to a store.Store after every mutation.
//
// All operations serialize under a single mutex: at most one mutating call
// runs at a time, and a failed call leaves no observable state change.
type Treasury struct {
	mu sync.RWMutex

	registry *token.Registry
	book     *book.Book
	guard    *ratelimit.Guard
	fees     map[types.TokenID]revenue.Fee

	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	reserved token.ReservedResolver
}

// New creates a new Treasury instance backed by the given store.
func New(s store.Store, opts ...Option) *Treasury {
	t := &Treasury{
		fees:     make(map[types.TokenID]revenue.Fee),
		store:    s,
		plugins:  plugin.NewRegistry(),
		logger:   slog.Default(),
		reserved: token.NoReserved,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.registry = token.NewRegistry(t.reserved)
	t.book = book.New()
	t.guard = ratelimit.NewGuard()

	return t
}

// Option configures a Treasury instance.
type Option func(*Treasury)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Treasury) {
		t.logger = logger
		t.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(t *Treasury) {
		_ = t.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithReservedResolver sets the resolver for reserved token identifiers.
// Reserved tokens are always allowed but can never be registered or
// unregistered.
func WithReservedResolver(r token.ReservedResolver) Option {
	return func(t *Treasury) {
		t.reserved = r
	}
}

// WithReservedTokens marks a fixed set of token identifiers as reserved.
func WithReservedTokens(toks ...types.TokenID) Option {
	set := make(map[types.TokenID]struct{}, len(toks))
	for _, tok := range toks {
		set[tok] = struct{}{}
	}
	return WithReservedResolver(token.ReservedFunc(func(tok types.TokenID) bool {
		_, ok := set[tok]
		return ok
	}))
}

// Start migrates the store, hydrates in-memory state from it and
// initializes plugins.
func (t *Treasury) Start(ctx context.Context) error {
	if err := t.store.Migrate(ctx); err != nil {
		return err
	}

	snap, err := t.store.Load(ctx)
	if err != nil {
		return err
	}
	t.hydrate(snap)

	t.plugins.EmitInit(ctx, t)

	t.logger.Info("treasury started",
		"tokens", t.registry.Len(),
		"plugins", t.plugins.Count(),
	)

	return nil
}

// Stop shuts down the Treasury.
func (t *Treasury) Stop() error {
	ctx := context.Background()
	t.plugins.EmitShutdown(ctx)

	return t.store.Close()
}

// Plugins returns the plugin registry.
func (t *Treasury) Plugins() *plugin.Registry { return t.plugins }

// hydrate rebuilds in-memory state from a store snapshot.
func (t *Treasury) hydrate(snap *store.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, tok := range snap.Tokens {
		if err := t.registry.Register(tok); err != nil {
			t.logger.Warn("skipping persisted token during hydration",
				"token", string(tok),
				"error", err,
			)
		}
	}
	for key, amount := range snap.Balances {
		t.book.SetBalance(key, amount)
	}
	for tok, amount := range snap.OperatorBalances {
		t.book.SetOperatorBalance(tok, amount)
	}
	for key, caps := range snap.Caps {
		t.guard.RestoreCaps(key, caps)
	}
	for tok, pct := range snap.Fees {
		fee, err := revenue.FeeOf(pct)
		if err != nil {
			t.logger.Warn("skipping persisted fee during hydration",
				"token", string(tok),
				"percent", pct,
				"error", err,
			)
			continue
		}
		t.fees[tok] = fee
	}
	for key, state := range snap.Queues {
		t.guard.RestoreQueue(key, ratelimit.FromState(state))
	}
}

// ──────────────────────────────────────────────────
// Token registry
// ──────────────────────────────────────────────────

// RegisterToken adds a token to the allow-list.
func (t *Treasury) RegisterToken(ctx context.Context, tok types.TokenID) error {
	if !tok.Valid() {
		return ErrInvalidToken
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.registry.Register(tok); err != nil {
		return err
	}
	if err := t.store.PutToken(ctx, tok); err != nil {
		_ = t.registry.Unregister(tok) //nolint:errcheck // rollback of the registration just made
		return err
	}

	t.plugins.EmitTokenRegistered(ctx, tok)
	t.logger.Debug("token registered", "token", string(tok))
	return nil
}

// UnregisterToken removes a token from the allow-list. Balances and
// disbursement history recorded under the token are retained.
func (t *Treasury) UnregisterToken(ctx context.Context, tok types.TokenID) error {
	if !tok.Valid() {
		return ErrInvalidToken
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.registry.Unregister(tok); err != nil {
		return err
	}
	if err := t.store.DeleteToken(ctx, tok); err != nil {
		_ = t.registry.Register(tok) //nolint:errcheck // rollback of the removal just made
		return err
	}

	t.plugins.EmitTokenUnregistered(ctx, tok)
	t.logger.Debug("token unregistered", "token", string(tok))
	return nil
}

// TokenAllowed reports whether a token is registered or reserved.
func (t *Treasury) TokenAllowed(_ context.Context, tok types.TokenID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.registry.IsAllowed(tok)
}

// Tokens returns the registered tokens. Reserved tokens are not listed.
func (t *Treasury) Tokens(_ context.Context) []types.TokenID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.registry.Tokens()
}

// ──────────────────────────────────────────────────
// Balances
// ──────────────────────────────────────────────────

// Credit increases a tenant balance.
func (t *Treasury) Credit(ctx context.Context, tenant types.TenantID, tok types.TokenID, amount types.Amount) error {
	if err := t.validateAccount(tenant, tok); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.registry.IsAllowed(tok) {
		return ErrTokenNotAllowed
	}
	if err := t.book.Credit(tenant, tok, amount); err != nil {
		return err
	}

	key := types.BalanceKey{Tenant: tenant, Token: tok}
	balance := t.book.BalanceOf(tenant, tok)
	if err := t.store.PutBalance(ctx, key, balance); err != nil {
		_ = t.book.Debit(tenant, tok, amount) //nolint:errcheck // rollback of the credit just made
		return err
	}

	t.plugins.EmitBalanceCredited(ctx, tenant, tok, amount, balance)
	return nil
}

// Debit decreases a tenant balance.
func (t *Treasury) Debit(ctx context.Context, tenant types.TenantID, tok types.TokenID, amount types.Amount) error {
	if err := t.validateAccount(tenant, tok); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.registry.IsAllowed(tok) {
		return ErrTokenNotAllowed
	}
	if err := t.book.Debit(tenant, tok, amount); err != nil {
		return err
	}

	key := types.BalanceKey{Tenant: tenant, Token: tok}
	balance := t.book.BalanceOf(tenant, tok)
	if err := t.store.PutBalance(ctx, key, balance); err != nil {
		_ = t.book.Credit(tenant, tok, amount) //nolint:errcheck // rollback of the debit just made
		return err
	}

	t.plugins.EmitBalanceDebited(ctx, tenant, tok, amount, balance)
	return nil
}

// CreditOperator increases the operator pool balance for a token.
func (t *Treasury) CreditOperator(ctx context.Context, tok types.TokenID, amount types.Amount) error {
	if !tok.Valid() {
		return ErrInvalidToken
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.registry.IsAllowed(tok) {
		return ErrTokenNotAllowed
	}
	if err := t.book.CreditOperator(tok, amount); err != nil {
		return err
	}

	balance := t.book.OperatorBalanceOf(tok)
	if err := t.store.PutOperatorBalance(ctx, tok, balance); err != nil {
		_ = t.book.DebitOperator(tok, amount) //nolint:errcheck // rollback of the credit just made
		return err
	}

	t.plugins.EmitBalanceCredited(ctx, 0, tok, amount, balance)
	return nil
}

// DebitOperator decreases the operator pool balance for a token.
func (t *Treasury) DebitOperator(ctx context.Context, tok types.TokenID, amount types.Amount) error {
	if !tok.Valid() {
		return ErrInvalidToken
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.registry.IsAllowed(tok) {
		return ErrTokenNotAllowed
	}
	if err := t.book.DebitOperator(tok, amount); err != nil {
		return err
	}

	balance := t.book.OperatorBalanceOf(tok)
	if err := t.store.PutOperatorBalance(ctx, tok, balance); err != nil {
		_ = t.book.CreditOperator(tok, amount) //nolint:errcheck // rollback of the debit just made
		return err
	}

	t.plugins.EmitBalanceDebited(ctx, 0, tok, amount, balance)
	return nil
}

// BalanceOf returns a tenant balance. Unknown accounts read as zero.
func (t *Treasury) BalanceOf(_ context.Context, tenant types.TenantID, tok types.TokenID) types.Amount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.book.BalanceOf(tenant, tok)
}

// OperatorBalanceOf returns the operator pool balance for a token.
func (t *Treasury) OperatorBalanceOf(_ context.Context, tok types.TokenID) types.Amount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.book.OperatorBalanceOf(tok)
}

// ──────────────────────────────────────────────────
// Disbursement limits
// ──────────────────────────────────────────────────

// SetTxCap sets the per-transaction disbursement cap for a tenant and
// token. A zero cap resets to unlimited.
func (t *Treasury) SetTxCap(ctx context.Context, tenant types.TenantID, tok types.TokenID, cap ratelimit.Cap) error {
	if err := t.validateAccount(tenant, tok); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := types.BalanceKey{Tenant: tenant, Token: tok}
	prev := t.guard.CapsFor(tenant, tok)

	if err := t.guard.SetTxCap(tenant, tok, cap); err != nil {
		return err
	}
	caps := t.guard.CapsFor(tenant, tok)
	if err := t.store.PutCaps(ctx, key, caps); err != nil {
		t.guard.RestoreCaps(key, prev)
		return err
	}

	t.plugins.EmitCapsUpdated(ctx, tenant, tok, caps)
	return nil
}

// SetDailyCap sets the rolling daily disbursement cap for a tenant and
// token. A zero cap resets to unlimited.
func (t *Treasury) SetDailyCap(ctx context.Context, tenant types.TenantID, tok types.TokenID, cap ratelimit.Cap) error {
	if err := t.validateAccount(tenant, tok); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := types.BalanceKey{Tenant: tenant, Token: tok}
	prev := t.guard.CapsFor(tenant, tok)

	if err := t.guard.SetDailyCap(tenant, tok, cap); err != nil {
		return err
	}
	caps := t.guard.CapsFor(tenant, tok)
	if err := t.store.PutCaps(ctx, key, caps); err != nil {
		t.guard.RestoreCaps(key, prev)
		return err
	}

	t.plugins.EmitCapsUpdated(ctx, tenant, tok, caps)
	return nil
}

// Caps returns the configured caps for a tenant and token.
func (t *Treasury) Caps(_ context.Context, tenant types.TenantID, tok types.TokenID) ratelimit.Caps {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.guard.CapsFor(tenant, tok)
}

// GuardDisbursement checks a disbursement against the per-transaction and
// rolling daily caps and, when it passes, records it in the recipient's
// history. now is the caller's clock in the same time units as the window.
//
// The history is recorded even when no caps are configured, so that caps
// applied later see prior activity.
func (t *Treasury) GuardDisbursement(ctx context.Context, tenant types.TenantID, tok types.TokenID, recipient string, quantity types.Amount, now int64) (id.ReceiptID, error) {
	if err := t.validateDisbursement(tenant, tok, recipient, quantity); err != nil {
		return id.ID{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.registry.IsAllowed(tok) {
		return id.ID{}, ErrTokenNotAllowed
	}

	key := types.DisbursementKey{Tenant: tenant, Token: tok, Recipient: recipient}
	receipt, err := t.recordDisbursement(ctx, key, quantity, now)
	if err != nil {
		return id.ID{}, err
	}
	return receipt, nil
}

// Disburse is the full disbursement flow: balance precheck, rate limit
// check and record, then debit. The call is atomic: any failure leaves
// balances and caps unchanged.
func (t *Treasury) Disburse(ctx context.Context, tenant types.TenantID, tok types.TokenID, recipient string, quantity types.Amount, now int64) (id.ReceiptID, error) {
	if err := t.validateDisbursement(tenant, tok, recipient, quantity); err != nil {
		return id.ID{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.registry.IsAllowed(tok) {
		return id.ID{}, ErrTokenNotAllowed
	}
	if t.book.BalanceOf(tenant, tok) < quantity {
		return id.ID{}, ErrInsufficientBalance
	}

	key := types.DisbursementKey{Tenant: tenant, Token: tok, Recipient: recipient}
	prev := t.captureQueue(key)

	receipt, err := t.recordDisbursement(ctx, key, quantity, now)
	if err != nil {
		return id.ID{}, err
	}

	if err := t.book.Debit(tenant, tok, quantity); err != nil {
		t.revertRecordedDisbursement(ctx, key, prev)
		return id.ID{}, err
	}

	balanceKey := types.BalanceKey{Tenant: tenant, Token: tok}
	balance := t.book.BalanceOf(tenant, tok)
	if err := t.store.PutBalance(ctx, balanceKey, balance); err != nil {
		_ = t.book.Credit(tenant, tok, quantity) //nolint:errcheck // rollback of the debit just made
		t.revertRecordedDisbursement(ctx, key, prev)
		return id.ID{}, err
	}

	t.plugins.EmitBalanceDebited(ctx, tenant, tok, quantity, balance)

	t.logger.Debug("disbursement complete",
		"tenant", uint32(tenant),
		"token", string(tok),
		"recipient", recipient,
		"quantity", uint64(quantity),
		"receipt", receipt.String(),
	)
	return receipt, nil
}

// recordDisbursement runs the guard for one disbursement and persists the
// recipient's queue. Callers must hold t.mu.
func (t *Treasury) recordDisbursement(ctx context.Context, key types.DisbursementKey, quantity types.Amount, now int64) (id.ReceiptID, error) {
	prev := t.captureQueue(key)

	evicted, err := t.guard.Record(key, uint64(quantity), now)
	if err != nil {
		// Stale entries evicted before the rejection stay evicted: they
		// can never satisfy a future window, so dropping them is not an
		// observable state change. Persist the trimmed queue.
		if q := t.guard.QueueFor(key); q != nil && evicted > 0 {
			if perr := t.store.PutQueue(ctx, key, q.State()); perr != nil {
				t.logger.Warn("failed to persist evicted queue entries",
					"recipient", key.Recipient,
					"error", perr,
				)
			}
		}
		t.plugins.EmitLimitExceeded(ctx, key, quantity, err)
		return id.ID{}, err
	}

	q := t.guard.QueueFor(key)
	if err := t.store.PutQueue(ctx, key, q.State()); err != nil {
		t.rollbackQueue(key, prev)
		return id.ID{}, err
	}

	if evicted > 0 {
		t.logger.Debug("evicted stale disbursement entries",
			"recipient", key.Recipient,
			"evicted", evicted,
		)
	}

	t.plugins.EmitDisbursementRecorded(ctx, key, quantity)
	return id.NewReceiptID(), nil
}

// captureQueue snapshots a recipient queue for rollback, or nil when the
// queue does not exist yet. Callers must hold t.mu.
func (t *Treasury) captureQueue(key types.DisbursementKey) *ratelimit.State {
	q := t.guard.QueueFor(key)
	if q == nil {
		return nil
	}
	s := q.State()
	return &s
}

// rollbackQueue restores a recipient queue to a captured state. A nil
// state removes the lazily-created queue. Callers must hold t.mu.
func (t *Treasury) rollbackQueue(key types.DisbursementKey, prev *ratelimit.State) {
	if prev == nil {
		t.guard.DropQueue(key)
		return
	}
	t.guard.RestoreQueue(key, ratelimit.FromState(*prev))
}

// revertRecordedDisbursement undoes a disbursement that already reached
// the store: the in-memory queue is rolled back and the restored state is
// re-persisted best-effort. A nil prev means the queue was created by this
// call, so its persisted row is removed rather than rewritten; otherwise
// hydration would resurrect the failed disbursement's entry.
// Callers must hold t.mu.
func (t *Treasury) revertRecordedDisbursement(ctx context.Context, key types.DisbursementKey, prev *ratelimit.State) {
	t.rollbackQueue(key, prev)
	if prev == nil {
		if err := t.store.DeleteQueue(ctx, key); err != nil {
			t.logger.Warn("failed to remove queue after rollback",
				"recipient", key.Recipient,
				"error", err,
			)
		}
		return
	}
	if err := t.store.PutQueue(ctx, key, *prev); err != nil {
		t.logger.Warn("failed to restore queue after rollback",
			"recipient", key.Recipient,
			"error", err,
		)
	}
}

// ──────────────────────────────────────────────────
// Revenue fees
// ──────────────────────────────────────────────────

// SetRevenueFee configures the operator fee percent for a token. Percent
// zero is a valid configured fee, distinct from no fee at all.
func (t *Treasury) SetRevenueFee(ctx context.Context, tok types.TokenID, percent uint8) error {
	if !tok.Valid() {
		return ErrInvalidToken
	}
	fee, err := revenue.FeeOf(percent)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	prev, hadPrev := t.fees[tok]
	t.fees[tok] = fee
	if err := t.store.PutFee(ctx, tok, percent); err != nil {
		if hadPrev {
			t.fees[tok] = prev
		} else {
			delete(t.fees, tok)
		}
		return err
	}

	t.logger.Debug("revenue fee set", "token", string(tok), "percent", percent)
	return nil
}

// ClearRevenueFee removes the fee configuration for a token, restoring
// the unset state.
func (t *Treasury) ClearRevenueFee(ctx context.Context, tok types.TokenID) error {
	if !tok.Valid() {
		return ErrInvalidToken
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	prev, hadPrev := t.fees[tok]
	if !hadPrev {
		return nil
	}
	delete(t.fees, tok)
	if err := t.store.DeleteFee(ctx, tok); err != nil {
		t.fees[tok] = prev
		return err
	}

	t.logger.Debug("revenue fee cleared", "token", string(tok))
	return nil
}

// RevenueFee returns the configured fee percent for a token and whether
// one is configured at all.
func (t *Treasury) RevenueFee(_ context.Context, tok types.TokenID) (uint8, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	fee, ok := t.fees[tok]
	if !ok {
		return 0, false
	}
	return fee.Percent, true
}

// RecordPurchase splits a gross purchase amount between the tenant and the
// operator pool per the token's configured fee and credits both sides.
// With no fee configured the tenant receives the full gross amount.
func (t *Treasury) RecordPurchase(ctx context.Context, tenant types.TenantID, tok types.TokenID, gross types.Amount) (id.SaleID, error) {
	if err := t.validateAccount(tenant, tok); err != nil {
		return id.ID{}, err
	}
	if gross == 0 {
		return id.ID{}, ErrZeroAmount
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.registry.IsAllowed(tok) {
		return id.ID{}, ErrTokenNotAllowed
	}

	fee := t.fees[tok] // zero value is the unset fee
	tenantShare, operatorShare := revenue.Split(gross, fee)

	if tenantShare > 0 {
		if err := t.book.Credit(tenant, tok, tenantShare); err != nil {
			return id.ID{}, err
		}
	}
	if operatorShare > 0 {
		if err := t.book.CreditOperator(tok, operatorShare); err != nil {
			if tenantShare > 0 {
				_ = t.book.Debit(tenant, tok, tenantShare) //nolint:errcheck // rollback of the credit just made
			}
			return id.ID{}, err
		}
	}

	balanceKey := types.BalanceKey{Tenant: tenant, Token: tok}
	if err := t.store.PutBalance(ctx, balanceKey, t.book.BalanceOf(tenant, tok)); err != nil {
		t.rollbackPurchase(tenant, tok, tenantShare, operatorShare)
		return id.ID{}, err
	}
	if err := t.store.PutOperatorBalance(ctx, tok, t.book.OperatorBalanceOf(tok)); err != nil {
		t.rollbackPurchase(tenant, tok, tenantShare, operatorShare)
		// Re-persist the tenant balance we just rolled back.
		if perr := t.store.PutBalance(ctx, balanceKey, t.book.BalanceOf(tenant, tok)); perr != nil {
			t.logger.Error("failed to restore tenant balance after rollback",
				"tenant", uint32(tenant),
				"token", string(tok),
				"error", perr,
			)
		}
		return id.ID{}, err
	}

	t.plugins.EmitRevenueSplit(ctx, tenant, tok, gross, tenantShare, operatorShare)

	t.logger.Debug("purchase recorded",
		"tenant", uint32(tenant),
		"token", string(tok),
		"gross", uint64(gross),
		"tenant_share", uint64(tenantShare),
		"operator_share", uint64(operatorShare),
	)
	return id.NewSaleID(), nil
}

// rollbackPurchase undoes the credits made by RecordPurchase. Callers
// must hold t.mu.
func (t *Treasury) rollbackPurchase(tenant types.TenantID, tok types.TokenID, tenantShare, operatorShare types.Amount) {
	if tenantShare > 0 {
		_ = t.book.Debit(tenant, tok, tenantShare) //nolint:errcheck // rollback of the credit just made
	}
	if operatorShare > 0 {
		_ = t.book.DebitOperator(tok, operatorShare) //nolint:errcheck // rollback of the credit just made
	}
}

// ──────────────────────────────────────────────────
// Validation helpers
// ──────────────────────────────────────────────────

func (t *Treasury) validateAccount(tenant types.TenantID, tok types.TokenID) error {
	if !tenant.Valid() {
		return ErrInvalidTenant
	}
	if !tok.Valid() {
		return ErrInvalidToken
	}
	return nil
}

func (t *Treasury) validateDisbursement(tenant types.TenantID, tok types.TokenID, recipient string, quantity types.Amount) error {
	if err := t.validateAccount(tenant, tok); err != nil {
		return err
	}
	if recipient == "" {
		return ErrEmptyRecipient
	}
	if quantity == 0 {
		return ErrZeroAmount
	}
	return nil
}
