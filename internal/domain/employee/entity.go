package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

type Employee struct {
	ID              string
	CompanyID       string
	FullName        string
	Country         string
	BaseSalary      decimal.Decimal
	Status          Status
	ManagerID       *string
	DateOfJoin      time.Time
	TerminationDate *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Status string

const (
	StatusOnboarding Status = "onboarding"
	StatusActive     Status = "active"
	StatusOnLeave    Status = "on_leave"
	StatusTerminated Status = "terminated"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOnboarding, StatusActive, StatusOnLeave, StatusTerminated:
		return true
	}
	return false
}

// Payable reports whether the status alone qualifies the employee for a
// payroll run. ON_LEAVE additionally depends on the company's leave-pay
// policy, which the caller resolves.
func (s Status) Payable(onLeavePaid bool) bool {
	switch s {
	case StatusActive:
		return true
	case StatusOnLeave:
		return onLeavePaid
	}
	return false
}
