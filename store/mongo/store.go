package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/treasury/ratelimit"
	treasurystore "github.com/xraph/treasury/store"
	"github.com/xraph/treasury/types"
)

// Collection name constants.
const (
	colTokens           = "treasury_tokens"
	colBalances         = "treasury_balances"
	colOperatorBalances = "treasury_operator_balances"
	colCaps             = "treasury_caps"
	colFees             = "treasury_fees"
	colQueues           = "treasury_queues"
)

// compile-time interface check
var _ treasurystore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all treasury collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("treasury/mongo: migrate %s indexes: %w", col, err)
		}
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
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Token}).
		SetUpdate(bson.M{"$set": bson.M{"_id": m.Token}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("treasury/mongo: put token: %w", err)
	}
	return nil
}

func (s *Store) DeleteToken(ctx context.Context, tok types.TokenID) error {
	_, err := s.mdb.NewDelete((*tokenModel)(nil)).
		Filter(bson.M{"_id": string(tok)}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("treasury/mongo: delete token: %w", err)
	}
	return nil
}

// ==================== Balances ====================

func (s *Store) PutBalance(ctx context.Context, key types.BalanceKey, amount types.Amount) error {
	m := toBalanceModel(key, amount)
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":       m.ID,
			"tenant_id": m.TenantID,
			"token":     m.Token,
			"amount":    m.Amount,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("treasury/mongo: put balance: %w", err)
	}
	return nil
}

func (s *Store) PutOperatorBalance(ctx context.Context, tok types.TokenID, amount types.Amount) error {
	m := &operatorBalanceModel{Token: string(tok), Amount: formatAmount(amount)}
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Token}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":    m.Token,
			"amount": m.Amount,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("treasury/mongo: put operator balance: %w", err)
	}
	return nil
}

// ==================== Disbursement caps ====================

func (s *Store) PutCaps(ctx context.Context, key types.BalanceKey, caps ratelimit.Caps) error {
	m := toCapsModel(key, caps)
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":       m.ID,
			"tenant_id": m.TenantID,
			"token":     m.Token,
			"tx_cap":    m.TxCap,
			"daily_cap": m.DailyCap,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("treasury/mongo: put caps: %w", err)
	}
	return nil
}

// ==================== Revenue fees ====================

func (s *Store) PutFee(ctx context.Context, tok types.TokenID, percent uint8) error {
	m := &feeModel{Token: string(tok), Percent: int64(percent)}
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Token}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":     m.Token,
			"percent": m.Percent,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("treasury/mongo: put fee: %w", err)
	}
	return nil
}

func (s *Store) DeleteFee(ctx context.Context, tok types.TokenID) error {
	_, err := s.mdb.NewDelete((*feeModel)(nil)).
		Filter(bson.M{"_id": string(tok)}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("treasury/mongo: delete fee: %w", err)
	}
	return nil
}

// ==================== Disbursement history ====================

func (s *Store) PutQueue(ctx context.Context, key types.DisbursementKey, state ratelimit.State) error {
	m := toQueueModel(key, state)
	entries := make([]bson.M, len(m.Entries))
	for i, e := range m.Entries {
		entries[i] = bson.M{"time": e.Time, "quantity": e.Quantity}
	}
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":         m.ID,
			"tenant_id":   m.TenantID,
			"token":       m.Token,
			"recipient":   m.Recipient,
			"initialized": m.Initialized,
			"first_index": m.FirstIndex,
			"last_index":  m.LastIndex,
			"entries":     entries,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("treasury/mongo: put queue: %w", err)
	}
	return nil
}

func (s *Store) DeleteQueue(ctx context.Context, key types.DisbursementKey) error {
	_, err := s.mdb.NewDelete((*queueModel)(nil)).
		Filter(bson.M{"_id": queueDocID(key)}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("treasury/mongo: delete queue: %w", err)
	}
	return nil
}

// ==================== Snapshot ====================

func (s *Store) Load(ctx context.Context) (*treasurystore.Snapshot, error) {
	snap := treasurystore.NewSnapshot()

	var tokens []tokenModel
	if err := s.mdb.NewFind(&tokens).Filter(bson.M{}).Scan(ctx); err != nil && !isNoDocuments(err) {
		return nil, fmt.Errorf("treasury/mongo: load tokens: %w", err)
	}
	snap.Tokens = make([]types.TokenID, len(tokens))
	for i := range tokens {
		snap.Tokens[i] = types.TokenID(tokens[i].Token)
	}

	var balances []balanceModel
	if err := s.mdb.NewFind(&balances).Filter(bson.M{}).Scan(ctx); err != nil && !isNoDocuments(err) {
		return nil, fmt.Errorf("treasury/mongo: load balances: %w", err)
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
	if err := s.mdb.NewFind(&operator).Filter(bson.M{}).Scan(ctx); err != nil && !isNoDocuments(err) {
		return nil, fmt.Errorf("treasury/mongo: load operator balances: %w", err)
	}
	for i := range operator {
		amount, err := parseAmount(operator[i].Amount)
		if err != nil {
			return nil, err
		}
		snap.OperatorBalances[types.TokenID(operator[i].Token)] = amount
	}

	var caps []capsModel
	if err := s.mdb.NewFind(&caps).Filter(bson.M{}).Scan(ctx); err != nil && !isNoDocuments(err) {
		return nil, fmt.Errorf("treasury/mongo: load caps: %w", err)
	}
	for i := range caps {
		key, c, err := fromCapsModel(&caps[i])
		if err != nil {
			return nil, err
		}
		snap.Caps[key] = c
	}

	var fees []feeModel
	if err := s.mdb.NewFind(&fees).Filter(bson.M{}).Scan(ctx); err != nil && !isNoDocuments(err) {
		return nil, fmt.Errorf("treasury/mongo: load fees: %w", err)
	}
	for i := range fees {
		snap.Fees[types.TokenID(fees[i].Token)] = uint8(fees[i].Percent)
	}

	var queues []queueModel
	if err := s.mdb.NewFind(&queues).Filter(bson.M{}).Scan(ctx); err != nil && !isNoDocuments(err) {
		return nil, fmt.Errorf("treasury/mongo: load queues: %w", err)
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

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all treasury collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colTokens: {},
		colBalances: {
			{
				Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "token", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "token", Value: 1}}},
		},
		colOperatorBalances: {},
		colCaps: {
			{
				Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "token", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colFees: {},
		colQueues: {
			{
				Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "token", Value: 1}, {Key: "recipient", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "token", Value: 1}}},
		},
	}
}
