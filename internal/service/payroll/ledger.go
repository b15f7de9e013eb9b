package payroll

import (
	"context"
	"fmt"

	"github.com/paylane/payroll-engine-go/internal/domain/payroll"
)

// Outcome is what one calculation attempt wants to record for an item.
type Outcome struct {
	Status      payroll.ItemStatus
	Result      *CalcResult
	FailureCode string
	Permanent   bool
}

// Ledger is the single source of truth for "has this item been
// calculated, and with what outcome". All writes go through the
// repository's compare-and-set on item status, which makes a successful
// write at-most-once even under concurrent or duplicate task execution.
type Ledger struct {
	repo payroll.PayrollRepository
}

func NewLedger(repo payroll.PayrollRepository) *Ledger {
	return &Ledger{repo: repo}
}

// RecordAttempt applies PENDING -> COMPLETED|FAILED. If the compare-and-
// set does not apply (the item already settled), the write is a no-op and
// the item's current status is returned instead.
func (l *Ledger) RecordAttempt(ctx context.Context, item payroll.PayrollItem, outcome Outcome) (payroll.ItemStatus, error) {
	var (
		applied bool
		err     error
	)

	switch outcome.Status {
	case payroll.ItemStatusCompleted:
		if outcome.Result == nil {
			return "", fmt.Errorf("completed outcome for item %s carries no result", item.ID)
		}
		completed := item
		completed.GrossSalary = outcome.Result.GrossSalary
		completed.NetSalary = outcome.Result.NetSalary
		completed.TotalDeductions = outcome.Result.TotalDeductions
		completed.TotalContributions = outcome.Result.TotalContributions
		completed.Details = outcome.Result.Details
		applied, err = l.repo.CompleteItem(ctx, completed)
	case payroll.ItemStatusFailed:
		applied, err = l.repo.FailItem(ctx, item.ID, outcome.FailureCode, outcome.Permanent, payroll.ItemStatusPending)
	default:
		return "", fmt.Errorf("outcome status %q is not recordable", outcome.Status)
	}
	if err != nil {
		return "", err
	}
	if applied {
		return outcome.Status, nil
	}

	current, err := l.repo.GetItemByID(ctx, item.ID, item.CompanyID)
	if err != nil {
		return "", err
	}
	return current.Status, nil
}

// Reopen re-arms a non-permanent FAILED item to PENDING for a retry.
func (l *Ledger) Reopen(ctx context.Context, itemID string) (bool, error) {
	return l.repo.ReopenItem(ctx, itemID)
}

// Summary returns item counts by status for the run-completion decision
// and for external reporting.
func (l *Ledger) Summary(ctx context.Context, payrollID string) (payroll.RunSummary, error) {
	return l.repo.CountItemsByStatus(ctx, payrollID)
}
