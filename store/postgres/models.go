package postgres

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/xraph/grove"

	"github.com/xraph/treasury/ratelimit"
	"github.com/xraph/treasury/types"
)

// Amounts and cap values are stored as decimal strings so the full
// unsigned 64-bit range survives the signed BIGINT column type.

type tokenModel struct {
	grove.BaseModel `grove:"table:treasury_tokens"`

	Token string `grove:"token,pk"`
}

type balanceModel struct {
	grove.BaseModel `grove:"table:treasury_balances"`

	TenantID int64  `grove:"tenant_id,pk"`
	Token    string `grove:"token,pk"`
	Amount   string `grove:"amount"`
}

type operatorBalanceModel struct {
	grove.BaseModel `grove:"table:treasury_operator_balances"`

	Token  string `grove:"token,pk"`
	Amount string `grove:"amount"`
}

type capsModel struct {
	grove.BaseModel `grove:"table:treasury_caps"`

	TenantID int64  `grove:"tenant_id,pk"`
	Token    string `grove:"token,pk"`
	TxCap    string `grove:"tx_cap"`
	DailyCap string `grove:"daily_cap"`
}

type feeModel struct {
	grove.BaseModel `grove:"table:treasury_fees"`

	Token   string `grove:"token,pk"`
	Percent int64  `grove:"percent"`
}

type queueModel struct {
	grove.BaseModel `grove:"table:treasury_queues"`

	TenantID    int64           `grove:"tenant_id,pk"`
	Token       string          `grove:"token,pk"`
	Recipient   string          `grove:"recipient,pk"`
	Initialized bool            `grove:"initialized"`
	FirstIndex  string          `grove:"first_index"`
	LastIndex   string          `grove:"last_index"`
	Entries     json.RawMessage `grove:"entries,type:jsonb"`
}

func toBalanceModel(key types.BalanceKey, amount types.Amount) *balanceModel {
	return &balanceModel{
		TenantID: int64(key.Tenant),
		Token:    string(key.Token),
		Amount:   formatAmount(amount),
	}
}

func toCapsModel(key types.BalanceKey, caps ratelimit.Caps) *capsModel {
	return &capsModel{
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

func toQueueModel(key types.DisbursementKey, state ratelimit.State) (*queueModel, error) {
	entries, err := json.Marshal(state.Entries)
	if err != nil {
		return nil, fmt.Errorf("treasury/postgres: encode queue entries: %w", err)
	}
	return &queueModel{
		TenantID:    int64(key.Tenant),
		Token:       string(key.Token),
		Recipient:   key.Recipient,
		Initialized: state.Initialized,
		FirstIndex:  strconv.FormatUint(state.First, 10),
		LastIndex:   strconv.FormatUint(state.Last, 10),
		Entries:     entries,
	}, nil
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
	var entries []ratelimit.Entry
	if len(m.Entries) > 0 {
		if err := json.Unmarshal(m.Entries, &entries); err != nil {
			return key, ratelimit.State{}, fmt.Errorf("treasury/postgres: decode queue entries: %w", err)
		}
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
		return 0, fmt.Errorf("treasury/postgres: parse unsigned value %q: %w", s, err)
	}
	return v, nil
}
