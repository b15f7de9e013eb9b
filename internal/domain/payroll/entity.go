package payroll

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/paylane/payroll-engine-go/internal/domain/rates"
)

// PayrollStatus enum
type PayrollStatus string

const (
	PayrollStatusDraft      PayrollStatus = "draft"
	PayrollStatusProcessing PayrollStatus = "processing"
	PayrollStatusCompleted  PayrollStatus = "completed"
	PayrollStatusCancelled  PayrollStatus = "cancelled"
)

// payrollTransitions is the closed transition table for a Payroll.
// COMPLETED and CANCELLED are terminal.
var payrollTransitions = map[PayrollStatus][]PayrollStatus{
	PayrollStatusDraft:      {PayrollStatusProcessing, PayrollStatusCancelled},
	PayrollStatusProcessing: {PayrollStatusCompleted, PayrollStatusCancelled},
}

func (s PayrollStatus) CanTransition(to PayrollStatus) bool {
	for _, next := range payrollTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s PayrollStatus) Terminal() bool {
	return s == PayrollStatusCompleted || s == PayrollStatusCancelled
}

// Payroll - one run per company per month/year. At most one non-CANCELLED
// row may exist per (companyID, month, year).
type Payroll struct {
	ID        string
	CompanyID string
	Month     int
	Year      int
	Status    PayrollStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Payroll) PeriodStart() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

func (p Payroll) PeriodEnd() time.Time {
	return p.PeriodStart().AddDate(0, 1, -1)
}

func (p Payroll) DaysInPeriod() int {
	return p.PeriodEnd().Day()
}

// ItemStatus enum
type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusReviewed  ItemStatus = "reviewed"
	ItemStatusCompleted ItemStatus = "completed"
	ItemStatusFailed    ItemStatus = "failed"
)

// itemTransitions: FAILED -> PENDING is the retry re-arm; REVIEWED is the
// human acknowledgement of a COMPLETED item.
var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemStatusPending:   {ItemStatusCompleted, ItemStatusFailed},
	ItemStatusFailed:    {ItemStatusPending},
	ItemStatusCompleted: {ItemStatusReviewed},
}

func (s ItemStatus) CanTransition(to ItemStatus) bool {
	for _, next := range itemTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Settled reports whether the item counts as a success when deciding
// whether the payroll may complete.
func (s ItemStatus) Settled() bool {
	return s == ItemStatusCompleted || s == ItemStatusReviewed
}

// DetailLine is one itemized deduction/contribution on a PayrollItem,
// kept for audit purposes. Amount is the computed value rounded to the
// currency minor unit; totals are rounded from exact sums, not from
// these lines.
type DetailLine struct {
	Code      string             `json:"code"`
	Kind      rates.RuleKind     `json:"kind"`
	Value     decimal.Decimal    `json:"value"`
	AppliesTo rates.RuleBase     `json:"applies_to"`
	Category  rates.RuleCategory `json:"category"`
	Payer     rates.Payer        `json:"payer"`
	Amount    decimal.Decimal    `json:"amount"`
}

// PayrollItem - the computed pay record for one employee within one run.
// Unique per (payrollID, employeeID); owned by its Payroll.
type PayrollItem struct {
	ID                 string
	PayrollID          string
	EmployeeID         string
	CompanyID          string
	GrossSalary        decimal.Decimal
	NetSalary          decimal.Decimal
	TotalDeductions    decimal.Decimal
	TotalContributions decimal.Decimal
	Details            []DetailLine
	Status             ItemStatus
	FailureCode        string
	// Permanent marks a FAILED item that retries must skip, e.g. an
	// employee terminated since the last attempt.
	Permanent bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
