package payroll

import (
	"github.com/paylane/payroll-engine-go/internal/pkg/validator"
)

type StartRunRequest struct {
	CompanyID string
	Month     int
	Year      int
	// StartedBy is the acting user, carried onto audit events.
	StartedBy *string
}

func (r *StartRunRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.CompanyID) {
		errs = append(errs, validator.ValidationError{Field: "company_id", Message: "is required"})
	}
	if r.Month < 1 || r.Month > 12 {
		errs = append(errs, validator.ValidationError{Field: "month", Message: "must be between 1 and 12"})
	}
	if r.Year < 2000 || r.Year > 2200 {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "is out of range"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// RunSummary - item counts by status for one payroll.
type RunSummary struct {
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Reviewed  int `json:"reviewed"`
	Failed    int `json:"failed"`
}

func (s RunSummary) Total() int {
	return s.Pending + s.Completed + s.Reviewed + s.Failed
}

// AllSettled reports whether every item succeeded, i.e. the payroll may
// transition to COMPLETED.
func (s RunSummary) AllSettled() bool {
	return s.Pending == 0 && s.Failed == 0 && s.Total() > 0
}

// ItemOutcome is the per-item result reported back to the caller of a run.
type ItemOutcome struct {
	ItemID      string     `json:"item_id"`
	EmployeeID  string     `json:"employee_id"`
	Status      ItemStatus `json:"status"`
	FailureCode string     `json:"failure_code,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// RunResult - a run reports a summary rather than a pass/fail boolean so
// the caller can decide whether to retry failed items.
type RunResult struct {
	Payroll Payroll       `json:"payroll"`
	Summary RunSummary    `json:"summary"`
	Items   []ItemOutcome `json:"items"`
}
