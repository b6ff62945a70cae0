// Package treasury provides a multi-tenant custodial treasury for Go applications.
//
// Treasury is designed as a library, not a service. Import it directly into your
// Go application for maximum performance and flexibility. It provides:
//
//   - Per-tenant token custody with an operator-controlled allow-list
//   - Overflow-safe balance accounting on unsigned integer quantities
//   - Per-recipient disbursement rate limiting over a sliding 24h window
//   - Configurable per-transaction and per-day disbursement caps
//   - Percentage-based revenue splitting between tenant and operator
//   - Pluggable persistence (in-memory, PostgreSQL, SQLite, MongoDB via Grove)
//   - A typed plugin/hook system with metrics and audit bridges built in
//
// # Quick Start
//
// Create a treasury instance with your preferred store:
//
//	import (
//	    "github.com/xraph/treasury"
//	    "github.com/xraph/treasury/store/postgres"
//	)
//
//	// Initialize store
//	st := postgres.New(groveDB)
//
//	// Create treasury
//	t := treasury.New(st)
//
//	// Start the treasury (migrates and hydrates from the store)
//	if err := t.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Stop()
//
// # Core Concepts
//
// Tokens must be registered before any tenant can hold them:
//
//	if err := t.RegisterToken(ctx, "USDC"); err != nil {
//	    log.Fatal(err)
//	}
//
// Balances are credited and debited per tenant and token:
//
//	err := t.Credit(ctx, tenantID, "USDC", 1_000_000)
//
// Disbursements are rate limited per (tenant, token, recipient). Caps bound
// the size of a single disbursement and the total quantity sent to one
// recipient over a sliding 24-hour window:
//
//	t.SetTxCap(ctx, tenantID, "USDC", 10_000)
//	t.SetDailyCap(ctx, tenantID, "USDC", 50_000)
//
//	receipt, err := t.Disburse(ctx, tenantID, "USDC", recipient, 5_000, time.Now().Unix())
//
// Purchases split gross revenue between the tenant and the operator
// according to a per-token fee:
//
//	t.SetRevenueFee(ctx, "USDC", 30) // operator keeps 30%
//	sale, err := t.RecordPurchase(ctx, tenantID, "USDC", 1_000)
//
// # Forge Integration
//
// The extension package adapts Treasury as a Forge extension with DI
// registration, YAML configuration, and lifecycle management:
//
//	app.RegisterExtension(extension.New(
//	    extension.WithGroveDatabase("primary"),
//	))
package treasury
