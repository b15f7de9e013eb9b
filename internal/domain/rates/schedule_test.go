package rates

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticSchedule_Lookup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewStaticSchedule()
	s.Register("IN",
		Rule{Code: "TDS", Kind: RuleKindPercent, Value: decimal.NewFromInt(10), AppliesTo: RuleBaseGross, Category: RuleCategoryDeduction, Payer: PayerEmployee},
		Rule{Code: "EPF", Kind: RuleKindPercent, Value: decimal.NewFromInt(12), AppliesTo: RuleBaseGross, Category: RuleCategoryContribution, Payer: PayerEmployee},
	)

	// Act
	rules, err := s.Lookup(ctx, "IN", 7, 2025)

	// Assert: registration order is preserved.
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "TDS", rules[0].Code)
	assert.Equal(t, "EPF", rules[1].Code)
}

func TestStaticSchedule_UnknownCountry(t *testing.T) {
	t.Parallel()

	s := NewStaticSchedule()

	_, err := s.Lookup(context.Background(), "ZZ", 7, 2025)

	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestRule_Validate(t *testing.T) {
	t.Parallel()

	good := Rule{Code: "TDS", Kind: RuleKindPercent, Value: decimal.NewFromInt(10), AppliesTo: RuleBaseGross, Category: RuleCategoryDeduction, Payer: PayerEmployee}
	assert.NoError(t, good.Validate())

	cases := []struct {
		name   string
		mutate func(*Rule)
	}{
		{"missing code", func(r *Rule) { r.Code = "" }},
		{"unknown kind", func(r *Rule) { r.Kind = "exponential" }},
		{"unknown base", func(r *Rule) { r.AppliesTo = "cost_to_company" }},
		{"unknown category", func(r *Rule) { r.Category = "bonus" }},
		{"unknown payer", func(r *Rule) { r.Payer = "government" }},
		{"negative value", func(r *Rule) { r.Value = decimal.NewFromInt(-1) }},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := good
			tc.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestDefaultSchedule_CoversBuiltinCountries(t *testing.T) {
	t.Parallel()

	s := DefaultSchedule()
	for _, country := range []string{"IN", "ID"} {
		rules, err := s.Lookup(context.Background(), country, 1, 2025)
		require.NoError(t, err, country)
		assert.NotEmpty(t, rules, country)
		for _, r := range rules {
			assert.NoError(t, r.Validate())
		}
	}
}
