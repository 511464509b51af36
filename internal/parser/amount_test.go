package parser

import (
	"testing"
	"time"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"1,234.56", "1234.56"},
		{"1,23,750.00", "123750"},
		{"(500.00)", "-500"},
		{"₹2,000", "2000"},
		{"Rs. 1,500.50", "1500.5"},
		{"INR 300", "300"},
		{"1 200.00", "1200"},
		{"250.00 Dr", "-250"},
		{"250.00 Cr", "250"},
		{"-42.10", "-42.1"},
		{"", "0"},
		{"-", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseAmount(tt.raw)
			if err != nil {
				t.Fatalf("parseAmount(%q) error = %v", tt.raw, err)
			}
			if got.String() != tt.want {
				t.Errorf("parseAmount(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseAmountInvalid(t *testing.T) {
	for _, raw := range []string{"abc", "12.3.4", "Closing Balance"} {
		if _, err := parseAmount(raw); err == nil {
			t.Errorf("parseAmount(%q) expected error", raw)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"02/01/2024", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"15/01/2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"12/25/2023", time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC)},
		{"02 Jan 2024", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"03-Feb-24", time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)},
		{"01/02/2023 10:33:21", time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseDate(tt.raw)
			if err != nil {
				t.Fatalf("parseDate(%q) error = %v", tt.raw, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseDate(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, raw := range []string{"", "garbage", "31/02/2024"} {
		if _, err := parseDate(raw); err == nil {
			t.Errorf("parseDate(%q) expected error", raw)
		}
	}
}
