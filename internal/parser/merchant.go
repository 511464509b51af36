package parser

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFold strips combining marks so accented narrations normalize to the
// same merchant key as their plain-ASCII form.
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// channelTokens are payment-rail prefixes that carry routing data rather
// than the merchant name.
var channelTokens = map[string]struct{}{
	"upi":  {},
	"pos":  {},
	"neft": {},
	"imps": {},
	"rtgs": {},
	"ach":  {},
	"nach": {},
	"ecs":  {},
	"atm":  {},
	"atw":  {},
	"inb":  {},
	"ib":   {},
	"mmt":  {},
	"vps":  {},
	"card": {},
}

// stopTokens never identify a merchant on their own.
var stopTokens = map[string]struct{}{
	"payment":  {},
	"paid":     {},
	"to":       {},
	"from":     {},
	"transfer": {},
	"purchase": {},
	"txn":      {},
	"tran":     {},
	"by":       {},
	"via":      {},
}

// ExtractMerchant reduces a statement narration to a stable merchant key,
// so "UPI-SWIGGY-swiggy@icici-920112" and "UPI/SWIGGY/944301" both map to
// "swiggy". Returns "" when nothing merchant-like survives.
func ExtractMerchant(description string) string {
	s, _, err := transform.String(asciiFold, description)
	if err != nil {
		s = description
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	segments := strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == '-' || r == ':' || r == '|' || r == '*'
	})
	for len(segments) > 0 && isChannelToken(segments[0]) {
		segments = segments[1:]
	}
	for _, seg := range segments {
		if tok := cleanToken(seg); tok != "" {
			return tok
		}
	}
	return cleanToken(s)
}

func isChannelToken(seg string) bool {
	_, ok := channelTokens[strings.TrimSpace(seg)]
	return ok
}

// cleanToken keeps the letters of a segment, dropping VPA handles,
// reference numbers and connective words.
func cleanToken(seg string) string {
	if at := strings.IndexByte(seg, '@'); at >= 0 {
		seg = seg[:at]
	}
	var b strings.Builder
	lastSpace := true
	for _, r := range seg {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) && !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	words := strings.Fields(b.String())
	for len(words) > 0 {
		if _, ok := channelTokens[words[0]]; !ok {
			break
		}
		words = words[1:]
	}
	tok := strings.Join(words, " ")
	if len(tok) < 2 {
		return ""
	}
	if _, stop := stopTokens[tok]; stop {
		return ""
	}
	return tok
}

// NormalizeDescription canonicalizes a narration for duplicate matching:
// case folded with runs of whitespace collapsed.
func NormalizeDescription(description string) string {
	return strings.Join(strings.Fields(strings.ToLower(description)), " ")
}
