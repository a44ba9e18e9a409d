/*
balance.go - Balance reconciliation against the external system of record

PURPOSE:
  The official balance lives in an external, unreliable system. This file
  reconciles it with the days the employee has already committed locally:

    tentative = official - sum(days of PENDING and APPROVED-not-PROCESSED)

  Unavailability of the external system is a value, not a Go error: the
  snapshot reports Unavailable with both balances nil, and the engine
  fails closed on submission.

SEE ALSO:
  - engine.go: consumes snapshots for the submission rule
  - integration/balance.go: the HTTP BalanceProvider
*/
package vacation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE PROVIDER - External system of record
// =============================================================================

// BalanceResult is the outcome of reading the official balance. When the
// provider is unreachable or misconfigured, Unavailable is set and Balance
// is meaningless.
type BalanceResult struct {
	Balance     decimal.Decimal
	Unavailable bool
	Reason      string
}

func AvailableBalance(balance decimal.Decimal) BalanceResult {
	return BalanceResult{Balance: balance}
}

func UnavailableBalance(reason string) BalanceResult {
	return BalanceResult{Unavailable: true, Reason: reason}
}

// DeductionResult is the outcome of the processing-time deduction call.
type DeductionResult struct {
	Success     bool
	Unavailable bool
	Message     string
}

// BalanceProvider is the external balance-of-record collaborator. Both calls
// carry a bounded timeout; on timeout the result is unavailable, never an
// automatic mid-transition retry.
type BalanceProvider interface {
	// OfficialBalance reads the employee's balance from the system of record.
	OfficialBalance(ctx context.Context, employeeID EmployeeID) BalanceResult

	// Deduct removes days from the official balance. The engine guarantees
	// at most one call per processing transition; requestID doubles as the
	// idempotency key so upstream retries are safe.
	Deduct(ctx context.Context, employeeID EmployeeID, days int, requestID RequestID) DeductionResult
}

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler computes balance snapshots. It never mutates request records;
// it only reads them to derive the tentative balance.
type Reconciler struct {
	Provider BalanceProvider
	Requests RequestStore
}

// BalanceFor returns the employee's reconciled balance snapshot. The
// snapshot is ephemeral: recomputed on every read, never persisted.
func (r *Reconciler) BalanceFor(ctx context.Context, employeeID EmployeeID) (BalanceSnapshot, error) {
	return r.SnapshotFrom(ctx, employeeID, r.Provider.OfficialBalance(ctx, employeeID))
}

// SnapshotFrom reconciles an already-fetched provider result with the
// employee's committed days. Lets read paths reuse a cached official
// balance without skipping reconciliation.
func (r *Reconciler) SnapshotFrom(ctx context.Context, employeeID EmployeeID, result BalanceResult) (BalanceSnapshot, error) {
	if result.Unavailable {
		return BalanceSnapshot{Unavailable: true, Message: result.Reason}, nil
	}

	committed, err := r.CommittedDays(ctx, employeeID)
	if err != nil {
		return BalanceSnapshot{}, fmt.Errorf("failed to load committed requests: %w", err)
	}

	official := result.Balance
	tentative := official.Sub(decimal.NewFromInt(int64(committed)))
	return BalanceSnapshot{Official: &official, Tentative: &tentative}, nil
}

// CommittedDays sums the chargeable days of the employee's PENDING and
// APPROVED-but-not-PROCESSED requests.
func (r *Reconciler) CommittedDays(ctx context.Context, employeeID EmployeeID) (int, error) {
	open, err := r.Requests.ListByEmployee(ctx, employeeID, StatusPending, StatusApproved)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, req := range open {
		total += req.NumberOfDays
	}
	return total, nil
}
