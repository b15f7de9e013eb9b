package payroll

import "errors"

var (
	ErrPayrollNotFound     = errors.New("payroll not found")
	ErrPayrollItemNotFound = errors.New("payroll item not found")

	// Precondition errors - abort the whole operation before any mutation.
	ErrDuplicateRun = errors.New("a payroll already exists for this period")

	// Per-item errors - isolated to one payroll item, never abort the run.
	ErrIneligibleEmployee  = errors.New("employee is not eligible for this period")
	ErrInvalidRateSchedule = errors.New("invalid rate schedule")
	ErrNegativeResult      = errors.New("net salary is negative")
	ErrCalculationTimeout  = errors.New("calculation timed out")

	// State-machine violations - rejected synchronously, no mutation.
	ErrCannotCancelCompletedWork = errors.New("cannot cancel a payroll with completed items")
	ErrInvalidTransition         = errors.New("invalid status transition")
)

// Failure codes persisted on FAILED items so retries and reporting can
// tell outcomes apart without parsing error strings.
const (
	FailureCodeIneligible   = "ineligible_employee"
	FailureCodeRateSchedule = "invalid_rate_schedule"
	FailureCodeNegativeNet  = "negative_net_salary"
	FailureCodeTimeout      = "calculation_timeout"
)

// FailureCodeFor maps a per-item calculation error to its persisted code.
func FailureCodeFor(err error) string {
	switch {
	case errors.Is(err, ErrIneligibleEmployee):
		return FailureCodeIneligible
	case errors.Is(err, ErrInvalidRateSchedule):
		return FailureCodeRateSchedule
	case errors.Is(err, ErrNegativeResult):
		return FailureCodeNegativeNet
	case errors.Is(err, ErrCalculationTimeout):
		return FailureCodeTimeout
	}
	return "calculation_failed"
}
