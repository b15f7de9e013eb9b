package payroll

import "context"

// PayrollRepository defines data access for payrolls and their items.
// Scoped reads include companyID to prevent cross-company access; item
// status writes are compare-and-set so concurrent or duplicate task
// execution cannot double-apply an outcome.
type PayrollRepository interface {
	CreatePayroll(ctx context.Context, p Payroll) (Payroll, error)
	GetPayrollByID(ctx context.Context, id string, companyID string) (Payroll, error)
	// GetPayrollByPeriod returns the non-CANCELLED payroll for the period,
	// or ErrPayrollNotFound. CANCELLED runs do not count against the
	// period uniqueness constraint.
	GetPayrollByPeriod(ctx context.Context, companyID string, month, year int) (Payroll, error)
	// UpdatePayrollStatus applies from -> to and reports whether the row
	// was in the expected state.
	UpdatePayrollStatus(ctx context.Context, id string, from, to PayrollStatus) (bool, error)

	CreateItems(ctx context.Context, items []PayrollItem) error
	GetItemByID(ctx context.Context, id string, companyID string) (PayrollItem, error)
	ListItems(ctx context.Context, payrollID string) ([]PayrollItem, error)

	// CompleteItem sets PENDING -> COMPLETED together with the computed
	// amounts and detail lines.
	CompleteItem(ctx context.Context, item PayrollItem) (bool, error)
	// FailItem sets from -> FAILED with a failure code; permanent failures
	// are skipped by retries.
	FailItem(ctx context.Context, id string, code string, permanent bool, from ItemStatus) (bool, error)
	// ReopenItem re-arms a non-permanent FAILED item back to PENDING.
	ReopenItem(ctx context.Context, id string) (bool, error)
	// ReviewItem sets COMPLETED -> REVIEWED.
	ReviewItem(ctx context.Context, id string) (bool, error)

	CountItemsByStatus(ctx context.Context, payrollID string) (RunSummary, error)
}
