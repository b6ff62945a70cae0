package mongo

import (
	"fmt"
	"strconv"

	"github.com/xraph/grove"

	"github.com/xraph/treasury/ratelimit"
	"github.com/xraph/treasury/types"
)

// Amounts and cap values are stored as decimal strings so the full
// unsigned 64-bit range survives BSON's signed int64 representation.

type tokenModel struct {
	grove.BaseModel `grove:"table:treasury_tokens"`

	Token string `grove:"token,pk" bson:"_id"`
}

type balanceModel struct {
	grove.BaseModel `grove:"table:treasury_balances"`

	ID       string `grove:"id,pk"     bson:"_id"`
	TenantID int64  `grove:"tenant_id" bson:"tenant_id"`
	Token    string `grove:"token"     bson:"token"`
	Amount   string `grove:"amount"    bson:"amount"`
}

type operatorBalanceModel struct {
	grove.BaseModel `grove:"table:treasury_operator_balances"`

	Token  string `grove:"token,pk" bson:"_id"`
	Amount string `grove:"amount"   bson:"amount"`
}

type capsModel struct {
	grove.BaseModel `grove:"table:treasury_caps"`

	ID       string `grove:"id,pk"     bson:"_id"`
	TenantID int64  `grove:"tenant_id" bson:"tenant_id"`
	Token    string `grove:"token"     bson:"token"`
	TxCap    string `grove:"tx_cap"    bson:"tx_cap"`
	DailyCap string `grove:"daily_cap" bson:"daily_cap"`
}

type feeModel struct {
	grove.BaseModel `grove:"table:treasury_fees"`

	Token   string `grove:"token,pk" bson:"_id"`
	Percent int64  `grove:"percent"  bson:"percent"`
}

type queueModel struct {
	grove.BaseModel `grove:"table:treasury_queues"`

	ID          string            `grove:"id,pk"       bson:"_id"`
	TenantID    int64             `grove:"tenant_id"   bson:"tenant_id"`
	Token       string            `grove:"token"       bson:"token"`
	Recipient   string            `grove:"recipient"   bson:"recipient"`
	Initialized bool              `grove:"initialized" bson:"initialized"`
	FirstIndex  string            `grove:"first_index" bson:"first_index"`
	LastIndex   string            `grove:"last_index"  bson:"last_index"`
	Entries     []queueEntryModel `grove:"entries"     bson:"entries"`
}

type queueEntryModel struct {
	Time     int64  `bson:"time"`
	Quantity string `bson:"quantity"`
}

func balanceDocID(key types.BalanceKey) string {
	return fmt.Sprintf("%d:%s", key.Tenant, key.Token)
}

func queueDocID(key types.DisbursementKey) string {
	return fmt.Sprintf("%d:%s:%s", key.Tenant, key.Token, key.Recipient)
}

func toBalanceModel(key types.BalanceKey, amount types.Amount) *balanceModel {
	return &balanceModel{
		ID:       balanceDocID(key),
		TenantID: int64(key.Tenant),
		Token:    string(key.Token),
		Amount:   formatAmount(amount),
	}
}

func toCapsModel(key types.BalanceKey, caps ratelimit.Caps) *capsModel {
	return &capsModel{
		ID:       balanceDocID(key),
		TenantID: int64(key.Tenant),
		Token:    string(key.Token),
		TxCap:    strconv.FormatUint(uint64(caps.Tx), 10),
		DailyCap: strconv.FormatUint(uint64(caps.Daily), 10),
	}
}

func fromCapsModel(m *capsModel) (types.BalanceKey, ratelimit.Caps, error) {
	tx, err := parseUint(m.TxCap)
	if err != nil {
		return types.BalanceKey{}, ratelimit.Caps{}, err
	}
	daily, err := parseUint(m.DailyCap)
	if err != nil {
		return types.BalanceKey{}, ratelimit.Caps{}, err
	}
	key := types.BalanceKey{Tenant: types.TenantID(m.TenantID), Token: types.TokenID(m.Token)}
	return key, ratelimit.Caps{Tx: ratelimit.Cap(tx), Daily: ratelimit.Cap(daily)}, nil
}

func toQueueModel(key types.DisbursementKey, state ratelimit.State) *queueModel {
	entries := make([]queueEntryModel, len(state.Entries))
	for i, e := range state.Entries {
		entries[i] = queueEntryModel{
			Time:     e.Time,
			Quantity: strconv.FormatUint(e.Quantity, 10),
		}
	}
	return &queueModel{
		ID:          queueDocID(key),
		TenantID:    int64(key.Tenant),
		Token:       string(key.Token),
		Recipient:   key.Recipient,
		Initialized: state.Initialized,
		FirstIndex:  strconv.FormatUint(state.First, 10),
		LastIndex:   strconv.FormatUint(state.Last, 10),
		Entries:     entries,
	}
}

func fromQueueModel(m *queueModel) (types.DisbursementKey, ratelimit.State, error) {
	key := types.DisbursementKey{
		Tenant:    types.TenantID(m.TenantID),
		Token:     types.TokenID(m.Token),
		Recipient: m.Recipient,
	}
	first, err := parseUint(m.FirstIndex)
	if err != nil {
		return key, ratelimit.State{}, err
	}
	last, err := parseUint(m.LastIndex)
	if err != nil {
		return key, ratelimit.State{}, err
	}
	entries := make([]ratelimit.Entry, len(m.Entries))
	for i, e := range m.Entries {
		qty, err := parseUint(e.Quantity)
		if err != nil {
			return key, ratelimit.State{}, err
		}
		entries[i] = ratelimit.Entry{Time: e.Time, Quantity: qty}
	}
	return key, ratelimit.State{
		Initialized: m.Initialized,
		First:       first,
		Last:        last,
		Entries:     entries,
	}, nil
}

func formatAmount(a types.Amount) string {
	return strconv.FormatUint(uint64(a), 10)
}

func parseAmount(s string) (types.Amount, error) {
	v, err := parseUint(s)
	return types.Amount(v), err
}

func parseUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("treasury/mongo: parse unsigned value %q: %w", s, err)
	}
	return v, nil
}
