package memory

import (
	"context"
	"sync"

	"github.com/paylane/payroll-engine-go/internal/domain/audit"
)

// AuditSink collects audit events in memory for inspection in tests.
type AuditSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func NewAuditSink() *AuditSink {
	return &AuditSink{}
}

func (s *AuditSink) Record(_ context.Context, event audit.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns a copy of everything recorded so far.
func (s *AuditSink) Events() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Event(nil), s.events...)
}

// ByAction filters recorded events by action.
func (s *AuditSink) ByAction(action string) []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
