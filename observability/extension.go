// Package observability provides a metrics extension for the treasury that
// records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"
	"errors"

	"github.com/xraph/treasury/plugin"
	"github.com/xraph/treasury/ratelimit"
	"github.com/xraph/treasury/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnTokenRegistered      = (*MetricsExtension)(nil)
	_ plugin.OnTokenUnregistered    = (*MetricsExtension)(nil)
	_ plugin.OnBalanceCredited      = (*MetricsExtension)(nil)
	_ plugin.OnBalanceDebited       = (*MetricsExtension)(nil)
	_ plugin.OnDisbursementRecorded = (*MetricsExtension)(nil)
	_ plugin.OnLimitExceeded        = (*MetricsExtension)(nil)
	_ plugin.OnCapsUpdated          = (*MetricsExtension)(nil)
	_ plugin.OnRevenueSplit         = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a treasury plugin to automatically track treasury metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Token registry metrics
	TokenRegistered   Counter
	TokenUnregistered Counter

	// Balance metrics
	BalanceCredits Counter
	BalanceDebits  Counter
	CreditAmount   Histogram
	DebitAmount    Histogram

	// Disbursement metrics
	DisbursementsRecorded Counter
	DisbursementQuantity  Histogram
	TxLimitRejections     Counter
	DailyLimitRejections  Counter
	CapsUpdated           Counter

	// Revenue metrics
	RevenueSplits Counter
	OperatorShare Histogram

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Token registry metrics
		TokenRegistered:   factory.Counter("treasury.token.registered"),
		TokenUnregistered: factory.Counter("treasury.token.unregistered"),

		// Balance metrics
		BalanceCredits: factory.Counter("treasury.balance.credits"),
		BalanceDebits:  factory.Counter("treasury.balance.debits"),
		CreditAmount:   factory.Histogram("treasury.balance.credit_amount"),
		DebitAmount:    factory.Histogram("treasury.balance.debit_amount"),

		// Disbursement metrics
		DisbursementsRecorded: factory.Counter("treasury.disbursement.recorded"),
		DisbursementQuantity:  factory.Histogram("treasury.disbursement.quantity"),
		TxLimitRejections:     factory.Counter("treasury.disbursement.tx_limit_rejections"),
		DailyLimitRejections:  factory.Counter("treasury.disbursement.daily_limit_rejections"),
		CapsUpdated:           factory.Counter("treasury.caps.updated"),

		// Revenue metrics
		RevenueSplits: factory.Counter("treasury.revenue.splits"),
		OperatorShare: factory.Histogram("treasury.revenue.operator_share"),

		// Error metrics
		StoreErrors:  factory.Counter("treasury.store.errors"),
		PluginErrors: factory.Counter("treasury.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Token registry hooks
// ──────────────────────────────────────────────────

// OnTokenRegistered implements plugin.OnTokenRegistered.
func (m *MetricsExtension) OnTokenRegistered(_ context.Context, _ types.TokenID) error {
	m.TokenRegistered.Inc()
	return nil
}

// OnTokenUnregistered implements plugin.OnTokenUnregistered.
func (m *MetricsExtension) OnTokenUnregistered(_ context.Context, _ types.TokenID) error {
	m.TokenUnregistered.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnBalanceCredited implements plugin.OnBalanceCredited.
func (m *MetricsExtension) OnBalanceCredited(_ context.Context, _ types.TenantID, _ types.TokenID, amount, _ types.Amount) error {
	m.BalanceCredits.Inc()
	m.CreditAmount.Observe(float64(amount))
	return nil
}

// OnBalanceDebited implements plugin.OnBalanceDebited.
func (m *MetricsExtension) OnBalanceDebited(_ context.Context, _ types.TenantID, _ types.TokenID, amount, _ types.Amount) error {
	m.BalanceDebits.Inc()
	m.DebitAmount.Observe(float64(amount))
	return nil
}

// ──────────────────────────────────────────────────
// Disbursement hooks
// ──────────────────────────────────────────────────

// OnDisbursementRecorded implements plugin.OnDisbursementRecorded.
func (m *MetricsExtension) OnDisbursementRecorded(_ context.Context, _ types.DisbursementKey, quantity types.Amount) error {
	m.DisbursementsRecorded.Inc()
	m.DisbursementQuantity.Observe(float64(quantity))
	return nil
}

// OnLimitExceeded implements plugin.OnLimitExceeded.
func (m *MetricsExtension) OnLimitExceeded(_ context.Context, _ types.DisbursementKey, _ types.Amount, cause error) error {
	switch {
	case errors.Is(cause, ratelimit.ErrTxLimitExceeded):
		m.TxLimitRejections.Inc()
	case errors.Is(cause, ratelimit.ErrDailyLimitExceeded):
		m.DailyLimitRejections.Inc()
	}
	return nil
}

// OnCapsUpdated implements plugin.OnCapsUpdated.
func (m *MetricsExtension) OnCapsUpdated(_ context.Context, _ types.TenantID, _ types.TokenID, _ ratelimit.Caps) error {
	m.CapsUpdated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Revenue hooks
// ──────────────────────────────────────────────────

// OnRevenueSplit implements plugin.OnRevenueSplit.
func (m *MetricsExtension) OnRevenueSplit(_ context.Context, _ types.TenantID, _ types.TokenID, _, _, operatorShare types.Amount) error {
	m.RevenueSplits.Inc()
	m.OperatorShare.Observe(float64(operatorShare))
	return nil
}
