package audit

import (
	"context"
	"time"
)

const (
	ResourcePayroll     = "Payroll"
	ResourcePayrollItem = "PayrollItem"

	ActionRunStarted   = "payroll.run_started"
	ActionRunCompleted = "payroll.run_completed"
	ActionRunCancelled = "payroll.run_cancelled"
	ActionItemFailed   = "payroll.item_failed"
	ActionItemReviewed = "payroll.item_reviewed"
)

// Event matches the AuditLog entity shape of the surrounding system.
type Event struct {
	UserID     *string        `json:"user_id,omitempty"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID string         `json:"resource_id"`
	Payload    map[string]any `json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Sink receives audit events fire-and-forget: implementations swallow
// their own failures and must never block or fail the payroll operation.
type Sink interface {
	Record(ctx context.Context, event Event)
}

// Sinks fans an event out to several sinks.
type Sinks []Sink

func (s Sinks) Record(ctx context.Context, event Event) {
	for _, sink := range s {
		sink.Record(ctx, event)
	}
}

// Discard drops every event. Useful for tests and library embedding when
// no audit collaborator is wired.
type Discard struct{}

func (Discard) Record(context.Context, Event) {}
