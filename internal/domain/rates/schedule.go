package rates

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// RuleKind enum
type RuleKind string

const (
	RuleKindFlat    RuleKind = "flat"
	RuleKindPercent RuleKind = "percent"
)

// RuleCategory enum
type RuleCategory string

const (
	RuleCategoryDeduction    RuleCategory = "deduction"
	RuleCategoryContribution RuleCategory = "contribution"
)

// RuleBase enum - what a percent rule is applied to
type RuleBase string

const (
	RuleBaseGross RuleBase = "gross"
	RuleBaseNet   RuleBase = "net"
)

// Payer enum - who bears a contribution
type Payer string

const (
	PayerEmployee Payer = "employee"
	PayerEmployer Payer = "employer"
)

// Rule is one line of a country/period rate schedule. Percent values are
// expressed as whole percents (10 means 10%).
type Rule struct {
	Code      string
	Kind      RuleKind
	Value     decimal.Decimal
	AppliesTo RuleBase
	Category  RuleCategory
	Payer     Payer
}

func (r Rule) Validate() error {
	if r.Code == "" {
		return fmt.Errorf("rule has no code")
	}
	if r.Kind != RuleKindFlat && r.Kind != RuleKindPercent {
		return fmt.Errorf("rule %s: unknown kind %q", r.Code, r.Kind)
	}
	if r.AppliesTo != RuleBaseGross && r.AppliesTo != RuleBaseNet {
		return fmt.Errorf("rule %s: unknown base %q", r.Code, r.AppliesTo)
	}
	if r.Category != RuleCategoryDeduction && r.Category != RuleCategoryContribution {
		return fmt.Errorf("rule %s: unknown category %q", r.Code, r.Category)
	}
	if r.Payer != PayerEmployee && r.Payer != PayerEmployer {
		return fmt.Errorf("rule %s: unknown payer %q", r.Code, r.Payer)
	}
	if r.Value.IsNegative() {
		return fmt.Errorf("rule %s: negative value", r.Code)
	}
	return nil
}

var ErrScheduleNotFound = errors.New("no rate schedule for country")

// Schedule is the external rate-schedule collaborator. The engine treats
// the returned rules as opaque, country/period-specific data.
type Schedule interface {
	Lookup(ctx context.Context, country string, month, year int) ([]Rule, error)
}

// StaticSchedule is an in-memory Schedule keyed by country. Rules keep
// their registration order; the calculator applies them in order.
type StaticSchedule struct {
	mu    sync.RWMutex
	rules map[string][]Rule
}

func NewStaticSchedule() *StaticSchedule {
	return &StaticSchedule{rules: make(map[string][]Rule)}
}

func (s *StaticSchedule) Register(country string, rules ...Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[country] = append(s.rules[country], rules...)
}

func (s *StaticSchedule) Lookup(_ context.Context, country string, _, _ int) ([]Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules, ok := s.rules[country]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScheduleNotFound, country)
	}
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out, nil
}

// DefaultSchedule returns a schedule with placeholder rules for a few
// countries. Real deduction tables come from the rate-schedule
// collaborator; these exist so the runner works out of the box.
func DefaultSchedule() *StaticSchedule {
	s := NewStaticSchedule()
	s.Register("IN",
		Rule{Code: "TDS", Kind: RuleKindPercent, Value: decimal.NewFromInt(10), AppliesTo: RuleBaseGross, Category: RuleCategoryDeduction, Payer: PayerEmployee},
		Rule{Code: "EPF_EMPLOYEE", Kind: RuleKindPercent, Value: decimal.NewFromInt(12), AppliesTo: RuleBaseGross, Category: RuleCategoryContribution, Payer: PayerEmployee},
		Rule{Code: "EPF_EMPLOYER", Kind: RuleKindPercent, Value: decimal.NewFromInt(12), AppliesTo: RuleBaseGross, Category: RuleCategoryContribution, Payer: PayerEmployer},
	)
	s.Register("ID",
		Rule{Code: "PPH21", Kind: RuleKindPercent, Value: decimal.NewFromInt(5), AppliesTo: RuleBaseGross, Category: RuleCategoryDeduction, Payer: PayerEmployee},
		Rule{Code: "BPJS_TK", Kind: RuleKindPercent, Value: decimal.NewFromInt(2), AppliesTo: RuleBaseGross, Category: RuleCategoryContribution, Payer: PayerEmployee},
		Rule{Code: "BPJS_KES", Kind: RuleKindPercent, Value: decimal.NewFromInt(4), AppliesTo: RuleBaseGross, Category: RuleCategoryContribution, Payer: PayerEmployer},
	)
	return s
}
