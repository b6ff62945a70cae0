package sqlite

import (
	"context"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/treasury/ratelimit"
	treasurystore "github.com/xraph/treasury/store"
	"github.com/xraph/treasury/types"
)

// compile-time interface check
var _ treasurystore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("treasury/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("treasury/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Token registry ====================

func (s *Store) PutToken(ctx context.Context, tok types.TokenID) error {
	m := &tokenModel{Token: string(tok)}
	_, err := s.sdb.NewInsert(m).
		OnConflict("(token) DO NOTHING").
		Exec(ctx)
	return err
}

func (s *Store) DeleteToken(ctx context.Context, tok types.TokenID) error {
	_, err := s.sdb.NewDelete((*tokenModel)(nil)).
		Where("token = ?", string(tok)).
		Exec(ctx)
	return err
}

// ==================== Balances ====================

func (s *Store) PutBalance(ctx context.Context, key types.BalanceKey, amount types.Amount) error {
	m := toBalanceModel(key, amount)
	_, err := s.sdb.NewInsert(m).
		OnConflict("(tenant_id, token) DO UPDATE").
		Set("amount = EXCLUDED.amount").
		Exec(ctx)
	return err
}

func (s *Store) PutOperatorBalance(ctx context.Context, tok types.TokenID, amount types.Amount) error {
	m := &operatorBalanceModel{Token: string(tok), Amount: formatAmount(amount)}
	_, err := s.sdb.NewInsert(m).
		OnConflict("(token) DO UPDATE").
		Set("amount = EXCLUDED.amount").
		Exec(ctx)
	return err
}

// ==================== Disbursement caps ====================

func (s *Store) PutCaps(ctx context.Context, key types.BalanceKey, caps ratelimit.Caps) error {
	m := toCapsModel(key, caps)
	_, err := s.sdb.NewInsert(m).
		OnConflict("(tenant_id, token) DO UPDATE").
		Set("tx_cap = EXCLUDED.tx_cap").
		Set("daily_cap = EXCLUDED.daily_cap").
		Exec(ctx)
	return err
}

// ==================== Revenue fees ====================

func (s *Store) PutFee(ctx context.Context, tok types.TokenID, percent uint8) error {
	m := &feeModel{Token: string(tok), Percent: int64(percent)}
	_, err := s.sdb.NewInsert(m).
		OnConflict("(token) DO UPDATE").
		Set("percent = EXCLUDED.percent").
		Exec(ctx)
	return err
}

func (s *Store) DeleteFee(ctx context.Context, tok types.TokenID) error {
	_, err := s.sdb.NewDelete((*feeModel)(nil)).
		Where("token = ?", string(tok)).
		Exec(ctx)
	return err
}

// ==================== Disbursement history ====================

func (s *Store) PutQueue(ctx context.Context, key types.DisbursementKey, state ratelimit.State) error {
	m, err := toQueueModel(key, state)
	if err != nil {
		return err
	}
	_, err = s.sdb.NewInsert(m).
		OnConflict("(tenant_id, token, recipient) DO UPDATE").
		Set("initialized = EXCLUDED.initialized").
		Set("first_index = EXCLUDED.first_index").
		Set("last_index = EXCLUDED.last_index").
		Set("entries = EXCLUDED.entries").
		Exec(ctx)
	return err
}

func (s *Store) DeleteQueue(ctx context.Context, key types.DisbursementKey) error {
	_, err := s.sdb.NewDelete((*queueModel)(nil)).
		Where("tenant_id = ? AND token = ? AND recipient = ?",
			int64(key.Tenant), string(key.Token), key.Recipient).
		Exec(ctx)
	return err
}

// ==================== Snapshot ====================

func (s *Store) Load(ctx context.Context) (*treasurystore.Snapshot, error) {
	snap := treasurystore.NewSnapshot()

	var tokens []tokenModel
	if err := s.sdb.NewSelect(&tokens).Scan(ctx); err != nil {
		return nil, err
	}
	snap.Tokens = make([]types.TokenID, len(tokens))
	for i := range tokens {
		snap.Tokens[i] = types.TokenID(tokens[i].Token)
	}

	var balances []balanceModel
	if err := s.sdb.NewSelect(&balances).Scan(ctx); err != nil {
		return nil, err
	}
	for i := range balances {
		amount, err := parseAmount(balances[i].Amount)
		if err != nil {
			return nil, err
		}
		key := types.BalanceKey{
			Tenant: types.TenantID(balances[i].TenantID),
			Token:  types.TokenID(balances[i].Token),
		}
		snap.Balances[key] = amount
	}

	var operator []operatorBalanceModel
	if err := s.sdb.NewSelect(&operator).Scan(ctx); err != nil {
		return nil, err
	}
	for i := range operator {
		amount, err := parseAmount(operator[i].Amount)
		if err != nil {
			return nil, err
		}
		snap.OperatorBalances[types.TokenID(operator[i].Token)] = amount
	}

	var caps []capsModel
	if err := s.sdb.NewSelect(&caps).Scan(ctx); err != nil {
		return nil, err
	}
	for i := range caps {
		key, c, err := fromCapsModel(&caps[i])
		if err != nil {
			return nil, err
		}
		snap.Caps[key] = c
	}

	var fees []feeModel
	if err := s.sdb.NewSelect(&fees).Scan(ctx); err != nil {
		return nil, err
	}
	for i := range fees {
		snap.Fees[types.TokenID(fees[i].Token)] = uint8(fees[i].Percent)
	}

	var queues []queueModel
	if err := s.sdb.NewSelect(&queues).Scan(ctx); err != nil {
		return nil, err
	}
	for i := range queues {
		key, state, err := fromQueueModel(&queues[i])
		if err != nil {
			return nil, err
		}
		snap.Queues[key] = state
	}

	return snap, nil
}
