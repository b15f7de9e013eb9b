package validator

import (
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"0188D0F2-7B8C-7B4A-8A2B-6B8B8B8B8B8B",
		"123e4567-e89b-12d3-a456-426614174000",
	}
	invalid := []string{
		"0188d0f27b8c7b4a8a2b6b8b8b8b8b8b",     // missing dashes
		"g188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b", // invalid hex
		"",
	}
	for _, id := range valid {
		if !IsValidUUID(id) {
			t.Errorf("IsValidUUID(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if IsValidUUID(id) {
			t.Errorf("IsValidUUID(%q) = true, want false", id)
		}
	}
}

func TestIsValidCountry(t *testing.T) {
	valid := []string{"IN", "ID", "US"}
	invalid := []string{"", "in", "IND", "1N"}
	for _, code := range valid {
		if !IsValidCountry(code) {
			t.Errorf("IsValidCountry(%q) = false, want true", code)
		}
	}
	for _, code := range invalid {
		if IsValidCountry(code) {
			t.Errorf("IsValidCountry(%q) = true, want false", code)
		}
	}
}

func TestIsValidPeriod(t *testing.T) {
	cases := []struct {
		month int
		year  int
		want  bool
	}{
		{1, 2025, true},
		{12, 2000, true},
		{0, 2025, false},
		{13, 2025, false},
		{6, 1999, false},
		{6, 2201, false},
	}
	for _, c := range cases {
		got := IsValidPeriod(c.month, c.year)
		if got != c.want {
			t.Errorf("IsValidPeriod(%d, %d) = %v, want %v", c.month, c.year, got, c.want)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	if _, ok := IsValidDate("2025-07-17"); !ok {
		t.Error("IsValidDate(\"2025-07-17\") = false, want true")
	}
	if _, ok := IsValidDate("17-07-2025"); ok {
		t.Error("IsValidDate(\"17-07-2025\") = true, want false")
	}
	if _, ok := IsValidDate("2025-02-30"); ok {
		t.Error("IsValidDate(\"2025-02-30\") = true, want false")
	}
}
