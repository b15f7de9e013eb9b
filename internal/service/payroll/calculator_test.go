package payroll

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paylane/payroll-engine-go/internal/domain/employee"
	"github.com/paylane/payroll-engine-go/internal/domain/payroll"
	"github.com/paylane/payroll-engine-go/internal/domain/rates"
)

func testEmployee(base string) employee.Employee {
	return employee.Employee{
		ID:         "emp-1",
		CompanyID:  "comp-1",
		FullName:   "Asha Rao",
		Country:    "IN",
		BaseSalary: decimal.RequireFromString(base),
		Status:     employee.StatusActive,
		DateOfJoin: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func percentRule(code string, value int64, category rates.RuleCategory, payer rates.Payer) rates.Rule {
	return rates.Rule{
		Code:      code,
		Kind:      rates.RuleKindPercent,
		Value:     decimal.NewFromInt(value),
		AppliesTo: rates.RuleBaseGross,
		Category:  category,
		Payer:     payer,
	}
}

func flatDeduction(code string, value string) rates.Rule {
	return rates.Rule{
		Code:      code,
		Kind:      rates.RuleKindFlat,
		Value:     decimal.RequireFromString(value),
		AppliesTo: rates.RuleBaseGross,
		Category:  rates.RuleCategoryDeduction,
		Payer:     rates.PayerEmployee,
	}
}

func TestCalculate_SingleDeduction_Success(t *testing.T) {
	t.Parallel()

	in := CalcInput{
		Employee:    testEmployee("60000"),
		Month:       7,
		Year:        2025,
		Rules:       []rates.Rule{percentRule("TDS", 10, rates.RuleCategoryDeduction, rates.PayerEmployee)},
		OnLeavePaid: true,
	}

	// Act
	result, err := Calculate(in)

	// Assert
	require.NoError(t, err)
	assert.True(t, result.GrossSalary.Equal(decimal.RequireFromString("60000")), result.GrossSalary.String())
	assert.True(t, result.TotalDeductions.Equal(decimal.RequireFromString("6000")), result.TotalDeductions.String())
	assert.True(t, result.NetSalary.Equal(decimal.RequireFromString("54000")), result.NetSalary.String())
	assert.True(t, result.TotalContributions.IsZero())
	require.Len(t, result.Details, 1)
	assert.Equal(t, "TDS", result.Details[0].Code)
	assert.True(t, result.Details[0].Amount.Equal(decimal.RequireFromString("6000")))
}

func TestCalculate_MidMonthJoiner_ProratesByCalendarDays(t *testing.T) {
	t.Parallel()

	emp := testEmployee("60000")
	// Joins July 17th: works 15 of 31 calendar days.
	emp.DateOfJoin = time.Date(2025, 7, 17, 0, 0, 0, 0, time.UTC)

	in := CalcInput{
		Employee:    emp,
		Month:       7,
		Year:        2025,
		Rules:       []rates.Rule{percentRule("TDS", 10, rates.RuleCategoryDeduction, rates.PayerEmployee)},
		OnLeavePaid: true,
	}

	// Act
	result, err := Calculate(in)

	// Assert
	require.NoError(t, err)
	// 60000 * 15/31 = 29032.2580..., rounded once at the end.
	assert.Equal(t, "29032.26", result.GrossSalary.StringFixed(2))
	assert.Equal(t, "2903.23", result.TotalDeductions.StringFixed(2))
	assert.Equal(t, "26129.03", result.NetSalary.StringFixed(2))
}

func TestCalculate_JoinAfterPeriod_Ineligible(t *testing.T) {
	t.Parallel()

	emp := testEmployee("60000")
	emp.DateOfJoin = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	_, err := Calculate(CalcInput{
		Employee:    emp,
		Month:       7,
		Year:        2025,
		Rules:       []rates.Rule{flatDeduction("FIXED", "10")},
		OnLeavePaid: true,
	})

	assert.ErrorIs(t, err, payroll.ErrIneligibleEmployee)
}

func TestCalculate_BankersRounding_HalfToEven(t *testing.T) {
	t.Parallel()

	cases := []struct {
		base string
		want string
	}{
		{"10.125", "10.12"},
		{"10.135", "10.14"},
		{"10.145", "10.14"},
	}

	for _, tc := range cases {
		emp := testEmployee(tc.base)
		result, err := Calculate(CalcInput{
			Employee:    emp,
			Month:       7,
			Year:        2025,
			Rules:       []rates.Rule{flatDeduction("NOOP", "0")},
			OnLeavePaid: true,
		})
		require.NoError(t, err)
		assert.Equal(t, tc.want, result.GrossSalary.StringFixed(2), "base %s", tc.base)
	}
}

func TestCalculate_EmployerContribution_DoesNotReduceNet(t *testing.T) {
	t.Parallel()

	result, err := Calculate(CalcInput{
		Employee:    testEmployee("1000"),
		Month:       7,
		Year:        2025,
		Rules:       []rates.Rule{percentRule("EPF_EMPLOYER", 12, rates.RuleCategoryContribution, rates.PayerEmployer)},
		OnLeavePaid: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "120.00", result.TotalContributions.StringFixed(2))
	assert.Equal(t, "0.00", result.TotalDeductions.StringFixed(2))
	assert.Equal(t, "1000.00", result.NetSalary.StringFixed(2))
}

func TestCalculate_EmployeeContribution_ReducesNet(t *testing.T) {
	t.Parallel()

	result, err := Calculate(CalcInput{
		Employee:    testEmployee("1000"),
		Month:       7,
		Year:        2025,
		Rules:       []rates.Rule{percentRule("EPF_EMPLOYEE", 12, rates.RuleCategoryContribution, rates.PayerEmployee)},
		OnLeavePaid: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "120.00", result.TotalContributions.StringFixed(2))
	assert.Equal(t, "120.00", result.TotalDeductions.StringFixed(2))
	assert.Equal(t, "880.00", result.NetSalary.StringFixed(2))
}

func TestCalculate_NetBasedRule_UsesRunningNet(t *testing.T) {
	t.Parallel()

	netRule := rates.Rule{
		Code:      "SURTAX",
		Kind:      rates.RuleKindPercent,
		Value:     decimal.NewFromInt(10),
		AppliesTo: rates.RuleBaseNet,
		Category:  rates.RuleCategoryDeduction,
		Payer:     rates.PayerEmployee,
	}

	result, err := Calculate(CalcInput{
		Employee: testEmployee("1000"),
		Month:    7,
		Year:     2025,
		Rules: []rates.Rule{
			percentRule("TAX", 10, rates.RuleCategoryDeduction, rates.PayerEmployee),
			netRule,
		},
		OnLeavePaid: true,
	})

	require.NoError(t, err)
	// 10% of 1000, then 10% of the remaining 900.
	assert.Equal(t, "190.00", result.TotalDeductions.StringFixed(2))
	assert.Equal(t, "810.00", result.NetSalary.StringFixed(2))
}

func TestCalculate_NegativeNet_Fails(t *testing.T) {
	t.Parallel()

	_, err := Calculate(CalcInput{
		Employee:    testEmployee("1000"),
		Month:       7,
		Year:        2025,
		Rules:       []rates.Rule{flatDeduction("HUGE", "2000")},
		OnLeavePaid: true,
	})

	assert.ErrorIs(t, err, payroll.ErrNegativeResult)
}

func TestCalculate_EmptyRules_InvalidSchedule(t *testing.T) {
	t.Parallel()

	_, err := Calculate(CalcInput{
		Employee:    testEmployee("1000"),
		Month:       7,
		Year:        2025,
		OnLeavePaid: true,
	})

	assert.ErrorIs(t, err, payroll.ErrInvalidRateSchedule)
}

func TestCalculate_MalformedRule_InvalidSchedule(t *testing.T) {
	t.Parallel()

	bad := rates.Rule{Code: "BAD", Kind: "exponential", AppliesTo: rates.RuleBaseGross, Category: rates.RuleCategoryDeduction, Payer: rates.PayerEmployee}

	_, err := Calculate(CalcInput{
		Employee:    testEmployee("1000"),
		Month:       7,
		Year:        2025,
		Rules:       []rates.Rule{bad},
		OnLeavePaid: true,
	})

	assert.ErrorIs(t, err, payroll.ErrInvalidRateSchedule)
}

func TestCalculate_StatusGates(t *testing.T) {
	t.Parallel()

	rules := []rates.Rule{flatDeduction("FIXED", "10")}

	cases := []struct {
		name        string
		status      employee.Status
		onLeavePaid bool
		wantErr     error
	}{
		{"onboarding", employee.StatusOnboarding, true, payroll.ErrIneligibleEmployee},
		{"terminated", employee.StatusTerminated, true, payroll.ErrIneligibleEmployee},
		{"on leave unpaid", employee.StatusOnLeave, false, payroll.ErrIneligibleEmployee},
		{"on leave paid", employee.StatusOnLeave, true, nil},
		{"active", employee.StatusActive, true, nil},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			emp := testEmployee("1000")
			emp.Status = tc.status

			_, err := Calculate(CalcInput{Employee: emp, Month: 7, Year: 2025, Rules: rules, OnLeavePaid: tc.onLeavePaid})

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	t.Parallel()

	in := CalcInput{
		Employee: testEmployee("73211.37"),
		Month:    2,
		Year:     2024,
		Rules: []rates.Rule{
			percentRule("TDS", 10, rates.RuleCategoryDeduction, rates.PayerEmployee),
			percentRule("EPF_EMPLOYEE", 12, rates.RuleCategoryContribution, rates.PayerEmployee),
			percentRule("EPF_EMPLOYER", 12, rates.RuleCategoryContribution, rates.PayerEmployer),
		},
		OnLeavePaid: true,
	}

	first, err := Calculate(in)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Calculate(in)
		require.NoError(t, err)
		assert.True(t, first.NetSalary.Equal(again.NetSalary))
		assert.True(t, first.GrossSalary.Equal(again.GrossSalary))
		assert.True(t, first.TotalDeductions.Equal(again.TotalDeductions))
		assert.True(t, first.TotalContributions.Equal(again.TotalContributions))
	}
}
