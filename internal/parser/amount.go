package parser

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// amountCleaner strips thousands separators, currency symbols and the
// assorted whitespace bank exports pad numbers with.
var amountCleaner = strings.NewReplacer(
	",", "",
	"₹", "",
	"$", "",
	"€", "",
	"£", "",
	" ", "",
	" ", "",
)

// parseAmount reads a statement cell into a decimal. Empty cells and lone
// dashes read as zero, which callers treat as "no amount in this column".
// Parenthesized values and a trailing Dr marker read as negative.
func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" || s == "--" {
		return decimal.Zero, nil
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	upper := strings.ToUpper(s)
	switch {
	case strings.HasSuffix(upper, "DR."), strings.HasSuffix(upper, "CR."):
		if strings.HasSuffix(upper, "DR.") {
			neg = true
		}
		s = strings.TrimSpace(s[:len(s)-3])
	case strings.HasSuffix(upper, "DR"), strings.HasSuffix(upper, "CR"):
		if strings.HasSuffix(upper, "DR") {
			neg = true
		}
		s = strings.TrimSpace(s[:len(s)-2])
	}

	s = amountCleaner.Replace(s)
	upper = strings.ToUpper(s)
	for _, prefix := range []string{"RS.", "RS", "INR"} {
		if strings.HasPrefix(upper, prefix) {
			s = s[len(prefix):]
			break
		}
	}

	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}
