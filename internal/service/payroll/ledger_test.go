package payroll

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paylane/payroll-engine-go/internal/domain/payroll"
	"github.com/paylane/payroll-engine-go/internal/repository/memory"
)

func seedItem(t *testing.T, repo *memory.PayrollRepository) payroll.PayrollItem {
	t.Helper()
	ctx := context.Background()

	item := payroll.PayrollItem{
		ID:         "item-1",
		PayrollID:  "pay-1",
		EmployeeID: "emp-1",
		CompanyID:  "comp-1",
		Status:     payroll.ItemStatusPending,
	}
	require.NoError(t, repo.CreateItems(ctx, []payroll.PayrollItem{item}))
	return item
}

func TestLedger_RecordAttempt_Completed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := memory.NewPayrollRepository()
	item := seedItem(t, repo)
	ledger := NewLedger(repo)

	outcome := Outcome{
		Status: payroll.ItemStatusCompleted,
		Result: &CalcResult{
			GrossSalary:     decimal.RequireFromString("1000"),
			NetSalary:       decimal.RequireFromString("900"),
			TotalDeductions: decimal.RequireFromString("100"),
		},
	}

	// Act
	status, err := ledger.RecordAttempt(ctx, item, outcome)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, payroll.ItemStatusCompleted, status)

	stored, err := repo.GetItemByID(ctx, item.ID, item.CompanyID)
	require.NoError(t, err)
	assert.True(t, stored.NetSalary.Equal(decimal.RequireFromString("900")))
}

func TestLedger_RecordAttempt_DuplicateIsNoOp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := memory.NewPayrollRepository()
	item := seedItem(t, repo)
	ledger := NewLedger(repo)

	completed := Outcome{
		Status: payroll.ItemStatusCompleted,
		Result: &CalcResult{
			GrossSalary: decimal.RequireFromString("1000"),
			NetSalary:   decimal.RequireFromString("900"),
		},
	}
	_, err := ledger.RecordAttempt(ctx, item, completed)
	require.NoError(t, err)

	// Act: a duplicate attempt tries to record a different outcome.
	conflicting := Outcome{Status: payroll.ItemStatusFailed, FailureCode: payroll.FailureCodeTimeout}
	status, err := ledger.RecordAttempt(ctx, item, conflicting)

	// Assert: the write does not apply and the settled status is reported.
	require.NoError(t, err)
	assert.Equal(t, payroll.ItemStatusCompleted, status)

	stored, err := repo.GetItemByID(ctx, item.ID, item.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, payroll.ItemStatusCompleted, stored.Status)
	assert.True(t, stored.NetSalary.Equal(decimal.RequireFromString("900")))
	assert.Empty(t, stored.FailureCode)
}

func TestLedger_RecordAttempt_FailedThenReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := memory.NewPayrollRepository()
	item := seedItem(t, repo)
	ledger := NewLedger(repo)

	failed := Outcome{Status: payroll.ItemStatusFailed, FailureCode: payroll.FailureCodeNegativeNet}
	status, err := ledger.RecordAttempt(ctx, item, failed)
	require.NoError(t, err)
	assert.Equal(t, payroll.ItemStatusFailed, status)

	// Act
	applied, err := ledger.Reopen(ctx, item.ID)

	// Assert
	require.NoError(t, err)
	assert.True(t, applied)

	stored, err := repo.GetItemByID(ctx, item.ID, item.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, payroll.ItemStatusPending, stored.Status)
	assert.Empty(t, stored.FailureCode)
}

func TestLedger_Reopen_PermanentFailure_NotApplied(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := memory.NewPayrollRepository()
	item := seedItem(t, repo)
	ledger := NewLedger(repo)

	_, err := ledger.RecordAttempt(ctx, item, Outcome{
		Status:      payroll.ItemStatusFailed,
		FailureCode: payroll.FailureCodeIneligible,
		Permanent:   true,
	})
	require.NoError(t, err)

	// Act
	applied, err := ledger.Reopen(ctx, item.ID)

	// Assert
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestLedger_Summary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := memory.NewPayrollRepository()
	items := []payroll.PayrollItem{
		{ID: "i-1", PayrollID: "pay-1", EmployeeID: "e-1", CompanyID: "c-1", Status: payroll.ItemStatusPending},
		{ID: "i-2", PayrollID: "pay-1", EmployeeID: "e-2", CompanyID: "c-1", Status: payroll.ItemStatusPending},
		{ID: "i-3", PayrollID: "pay-1", EmployeeID: "e-3", CompanyID: "c-1", Status: payroll.ItemStatusPending},
	}
	require.NoError(t, repo.CreateItems(ctx, items))
	ledger := NewLedger(repo)

	_, err := ledger.RecordAttempt(ctx, items[0], Outcome{
		Status: payroll.ItemStatusCompleted,
		Result: &CalcResult{NetSalary: decimal.RequireFromString("1")},
	})
	require.NoError(t, err)
	_, err = ledger.RecordAttempt(ctx, items[1], Outcome{Status: payroll.ItemStatusFailed, FailureCode: payroll.FailureCodeTimeout})
	require.NoError(t, err)

	// Act
	summary, err := ledger.Summary(ctx, "pay-1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, payroll.RunSummary{Pending: 1, Completed: 1, Failed: 1}, summary)
	assert.False(t, summary.AllSettled())
}
