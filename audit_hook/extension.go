// Package audithook bridges treasury lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/treasury/plugin"
	"github.com/xraph/treasury/ratelimit"
	"github.com/xraph/treasury/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnTokenRegistered      = (*Extension)(nil)
	_ plugin.OnTokenUnregistered    = (*Extension)(nil)
	_ plugin.OnBalanceCredited      = (*Extension)(nil)
	_ plugin.OnBalanceDebited       = (*Extension)(nil)
	_ plugin.OnDisbursementRecorded = (*Extension)(nil)
	_ plugin.OnLimitExceeded        = (*Extension)(nil)
	_ plugin.OnCapsUpdated          = (*Extension)(nil)
	_ plugin.OnRevenueSplit         = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges treasury lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Token registry hooks
// ──────────────────────────────────────────────────

// OnTokenRegistered implements plugin.OnTokenRegistered.
func (e *Extension) OnTokenRegistered(ctx context.Context, tok types.TokenID) error {
	return e.record(ctx, ActionTokenRegistered, SeverityInfo, OutcomeSuccess,
		ResourceToken, string(tok), CategoryRegistry, nil,
		"token", string(tok),
	)
}

// OnTokenUnregistered implements plugin.OnTokenUnregistered.
func (e *Extension) OnTokenUnregistered(ctx context.Context, tok types.TokenID) error {
	return e.record(ctx, ActionTokenUnregistered, SeverityInfo, OutcomeSuccess,
		ResourceToken, string(tok), CategoryRegistry, nil,
		"token", string(tok),
	)
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnBalanceCredited implements plugin.OnBalanceCredited.
func (e *Extension) OnBalanceCredited(ctx context.Context, tenant types.TenantID, tok types.TokenID, amount, balance types.Amount) error {
	return e.record(ctx, ActionBalanceCredited, SeverityInfo, OutcomeSuccess,
		ResourceBalance, string(tok), CategoryLedger, nil,
		"tenant_id", uint32(tenant),
		"token", string(tok),
		"amount", uint64(amount),
		"balance", uint64(balance),
	)
}

// OnBalanceDebited implements plugin.OnBalanceDebited.
func (e *Extension) OnBalanceDebited(ctx context.Context, tenant types.TenantID, tok types.TokenID, amount, balance types.Amount) error {
	return e.record(ctx, ActionBalanceDebited, SeverityInfo, OutcomeSuccess,
		ResourceBalance, string(tok), CategoryLedger, nil,
		"tenant_id", uint32(tenant),
		"token", string(tok),
		"amount", uint64(amount),
		"balance", uint64(balance),
	)
}

// ──────────────────────────────────────────────────
// Disbursement hooks
// ──────────────────────────────────────────────────

// OnDisbursementRecorded implements plugin.OnDisbursementRecorded.
func (e *Extension) OnDisbursementRecorded(ctx context.Context, key types.DisbursementKey, quantity types.Amount) error {
	return e.record(ctx, ActionDisbursementRecorded, SeverityInfo, OutcomeSuccess,
		ResourceDisbursement, key.Recipient, CategoryLimits, nil,
		"tenant_id", uint32(key.Tenant),
		"token", string(key.Token),
		"recipient", key.Recipient,
		"quantity", uint64(quantity),
	)
}

// OnLimitExceeded implements plugin.OnLimitExceeded.
func (e *Extension) OnLimitExceeded(ctx context.Context, key types.DisbursementKey, quantity types.Amount, cause error) error {
	return e.record(ctx, ActionLimitExceeded, SeverityWarning, OutcomeFailure,
		ResourceDisbursement, key.Recipient, CategoryLimits, cause,
		"tenant_id", uint32(key.Tenant),
		"token", string(key.Token),
		"recipient", key.Recipient,
		"quantity", uint64(quantity),
	)
}

// OnCapsUpdated implements plugin.OnCapsUpdated.
func (e *Extension) OnCapsUpdated(ctx context.Context, tenant types.TenantID, tok types.TokenID, caps ratelimit.Caps) error {
	return e.record(ctx, ActionCapsUpdated, SeverityInfo, OutcomeSuccess,
		ResourceCaps, string(tok), CategoryLimits, nil,
		"tenant_id", uint32(tenant),
		"token", string(tok),
		"tx_cap", uint64(caps.Tx),
		"daily_cap", uint64(caps.Daily),
	)
}

// ──────────────────────────────────────────────────
// Revenue hooks
// ──────────────────────────────────────────────────

// OnRevenueSplit implements plugin.OnRevenueSplit.
func (e *Extension) OnRevenueSplit(ctx context.Context, tenant types.TenantID, tok types.TokenID, gross, tenantShare, operatorShare types.Amount) error {
	return e.record(ctx, ActionRevenueSplit, SeverityInfo, OutcomeSuccess,
		ResourceRevenue, string(tok), CategoryRevenue, nil,
		"tenant_id", uint32(tenant),
		"token", string(tok),
		"gross", uint64(gross),
		"tenant_share", uint64(tenantShare),
		"operator_share", uint64(operatorShare),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
