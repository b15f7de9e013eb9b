package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paylane/payroll-engine-go/internal/domain/employee"
	"github.com/paylane/payroll-engine-go/internal/domain/payroll"
	"github.com/paylane/payroll-engine-go/internal/domain/rates"
)

var oneHundred = decimal.NewFromInt(100)

// CalcInput is the full input of one item calculation. Eligibility policy
// and rate rules are resolved by the controller beforehand so the
// calculation itself stays a pure function.
type CalcInput struct {
	Employee    employee.Employee
	Month       int
	Year        int
	Rules       []rates.Rule
	OnLeavePaid bool
}

func (in CalcInput) periodStart() time.Time {
	return time.Date(in.Year, time.Month(in.Month), 1, 0, 0, 0, 0, time.UTC)
}

func (in CalcInput) periodEnd() time.Time {
	return in.periodStart().AddDate(0, 1, -1)
}

type CalcResult struct {
	GrossSalary        decimal.Decimal
	NetSalary          decimal.Decimal
	TotalDeductions    decimal.Decimal
	TotalContributions decimal.Decimal
	Details            []payroll.DetailLine
}

// Calculate maps an employee snapshot and a period to the numeric fields
// of a PayrollItem. Deterministic: identical inputs always produce
// identical outputs, which is what makes retries safe.
//
// Rounding: totals are accumulated exactly and banker's-rounded to two
// decimal places once at the end, never per line, so line rounding cannot
// compound. Employer-borne contributions are reported in
// TotalContributions and Details but never reduce net pay.
func Calculate(in CalcInput) (CalcResult, error) {
	emp := in.Employee

	switch emp.Status {
	case employee.StatusActive:
	case employee.StatusOnLeave:
		if !in.OnLeavePaid {
			return CalcResult{}, fmt.Errorf("%w: employee %s is on unpaid leave", payroll.ErrIneligibleEmployee, emp.ID)
		}
	case employee.StatusOnboarding:
		return CalcResult{}, fmt.Errorf("%w: employee %s is still onboarding", payroll.ErrIneligibleEmployee, emp.ID)
	case employee.StatusTerminated:
		return CalcResult{}, fmt.Errorf("%w: employee %s is terminated", payroll.ErrIneligibleEmployee, emp.ID)
	default:
		return CalcResult{}, fmt.Errorf("%w: employee %s has unknown status %q", payroll.ErrIneligibleEmployee, emp.ID, emp.Status)
	}

	if emp.BaseSalary.IsNegative() {
		return CalcResult{}, fmt.Errorf("%w: employee %s has negative base salary", payroll.ErrNegativeResult, emp.ID)
	}

	if len(in.Rules) == 0 {
		return CalcResult{}, fmt.Errorf("%w: empty rule set", payroll.ErrInvalidRateSchedule)
	}
	for _, rule := range in.Rules {
		if err := rule.Validate(); err != nil {
			return CalcResult{}, fmt.Errorf("%w: %v", payroll.ErrInvalidRateSchedule, err)
		}
	}

	daysInPeriod := in.periodEnd().Day()
	daysWorked := workedDays(emp.DateOfJoin, in.periodStart(), in.periodEnd())
	if daysWorked <= 0 {
		return CalcResult{}, fmt.Errorf("%w: employee %s joins after the period", payroll.ErrIneligibleEmployee, emp.ID)
	}

	// Gross is prorated by calendar days for mid-period joiners.
	gross := emp.BaseSalary.
		Mul(decimal.NewFromInt(int64(daysWorked))).
		Div(decimal.NewFromInt(int64(daysInPeriod)))

	deductions := decimal.Zero
	contributions := decimal.Zero
	details := make([]payroll.DetailLine, 0, len(in.Rules))

	for _, rule := range in.Rules {
		var base decimal.Decimal
		switch rule.AppliesTo {
		case rates.RuleBaseGross:
			base = gross
		case rates.RuleBaseNet:
			// Net-based rules apply to the running net after prior
			// employee-borne lines; rule order matters.
			base = gross.Sub(deductions)
		}

		var amount decimal.Decimal
		switch rule.Kind {
		case rates.RuleKindFlat:
			amount = rule.Value
		case rates.RuleKindPercent:
			amount = base.Mul(rule.Value).Div(oneHundred)
		}

		switch rule.Category {
		case rates.RuleCategoryDeduction:
			deductions = deductions.Add(amount)
		case rates.RuleCategoryContribution:
			contributions = contributions.Add(amount)
			if rule.Payer == rates.PayerEmployee {
				deductions = deductions.Add(amount)
			}
		}

		details = append(details, payroll.DetailLine{
			Code:      rule.Code,
			Kind:      rule.Kind,
			Value:     rule.Value,
			AppliesTo: rule.AppliesTo,
			Category:  rule.Category,
			Payer:     rule.Payer,
			Amount:    amount.RoundBank(2),
		})
	}

	grossRounded := gross.RoundBank(2)
	deductionsRounded := deductions.RoundBank(2)
	contributionsRounded := contributions.RoundBank(2)
	net := grossRounded.Sub(deductionsRounded)

	if net.IsNegative() {
		return CalcResult{}, fmt.Errorf("%w: employee %s net %s", payroll.ErrNegativeResult, emp.ID, net)
	}

	return CalcResult{
		GrossSalary:        grossRounded,
		NetSalary:          net,
		TotalDeductions:    deductionsRounded,
		TotalContributions: contributionsRounded,
		Details:            details,
	}, nil
}

// workedDays counts the calendar days of [periodStart, periodEnd] on or
// after the join date.
func workedDays(dateOfJoin, periodStart, periodEnd time.Time) int {
	start := periodStart
	if dateOfJoin.After(start) {
		start = time.Date(dateOfJoin.Year(), dateOfJoin.Month(), dateOfJoin.Day(), 0, 0, 0, 0, time.UTC)
	}
	if start.After(periodEnd) {
		return 0
	}
	return int(periodEnd.Sub(start).Hours()/24) + 1
}
