package policy

import (
	"context"
	"time"
)

// EligibilityPolicy is the external collaborator owning leave-pay and
// termination-cutoff rules.
type EligibilityPolicy interface {
	// OnLeavePaid reports whether employees ON_LEAVE keep pay entitlement
	// for the company.
	OnLeavePaid(ctx context.Context, companyID string) (bool, error)

	// TerminationExcludes reports whether a termination date excludes the
	// employee from the period starting at periodStart.
	TerminationExcludes(ctx context.Context, companyID string, terminationDate, periodStart time.Time) (bool, error)
}

// StaticPolicy applies the same rules to every company: a single
// leave-pay flag, and terminations exclude the employee once the
// termination date falls before the period start.
type StaticPolicy struct {
	onLeavePaid bool
}

func NewStaticPolicy(onLeavePaid bool) *StaticPolicy {
	return &StaticPolicy{onLeavePaid: onLeavePaid}
}

func (p *StaticPolicy) OnLeavePaid(_ context.Context, _ string) (bool, error) {
	return p.onLeavePaid, nil
}

func (p *StaticPolicy) TerminationExcludes(_ context.Context, _ string, terminationDate, periodStart time.Time) (bool, error) {
	return terminationDate.Before(periodStart), nil
}
