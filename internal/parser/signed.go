package parser

import (
	"strings"

	"github.com/bitflow/ledger-backend/internal/domain"
)

// signedFormat handles exports with a single signed amount column instead of
// split debit/credit columns. Negative amounts are expenses; an optional
// type column (DR/CR) overrides the sign when present.
type signedFormat struct{}

func newSignedFormat() *signedFormat {
	return &signedFormat{}
}

func (f *signedFormat) Name() string {
	return "signed"
}

type signedColumns struct {
	date    int
	desc    int
	amount  int
	kind    int
	ref     int
	balance int
}

func (f *signedFormat) Detect(sample []string) float64 {
	if _, _, ok := f.findHeader(sample); !ok {
		return 0
	}
	return 0.8
}

func (f *signedFormat) findHeader(lines []string) (int, signedColumns, bool) {
	limit := len(lines)
	if limit > sampleSize {
		limit = sampleSize
	}
	for i := 0; i < limit; i++ {
		cells := splitCells(lines[i])
		cols := signedColumns{date: -1, desc: -1, amount: -1, kind: -1, ref: -1, balance: -1}
		split := false
		for idx, cell := range cells {
			lower := strings.ToLower(cell)
			switch {
			case matchKey(lower, []string{"debit", "credit", "withdrawal", "deposit"}):
				// Split amount columns mean this is a columnar layout.
				split = true
			case cols.balance < 0 && strings.Contains(lower, "balance"):
				cols.balance = idx
			case cols.amount < 0 && strings.Contains(lower, "amount"):
				cols.amount = idx
			case cols.kind < 0 && (lower == "type" || strings.Contains(lower, "dr/cr") || strings.Contains(lower, "dr / cr")):
				cols.kind = idx
			case cols.desc < 0 && matchKey(lower, []string{"description", "narration", "details", "merchant", "payee"}):
				cols.desc = idx
			case cols.ref < 0 && matchKey(lower, []string{"ref", "check", "cheque"}):
				cols.ref = idx
			case cols.date < 0 && strings.Contains(lower, "date"):
				cols.date = idx
			}
		}
		if !split && cols.date >= 0 && cols.desc >= 0 && cols.amount >= 0 {
			return i, cols, true
		}
	}
	return 0, signedColumns{}, false
}

func (f *signedFormat) Parse(content []byte) (*domain.ParseResult, error) {
	lines := splitLines(content)
	headerIdx, cols, ok := f.findHeader(lines)
	if !ok {
		return nil, domain.ErrUnrecognizedFormat
	}

	minCells := cols.date
	for _, idx := range []int{cols.desc, cols.amount} {
		if idx > minCells {
			minCells = idx
		}
	}
	minCells++

	result := &domain.ParseResult{}
	for i := headerIdx + 1; i < len(lines); i++ {
		lineNo := i + 1
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		cells := splitCells(line)
		if len(cells) < minCells {
			if _, err := parseDate(cellAt(cells, cols.date)); err == nil {
				result.Warnings = append(result.Warnings, domain.ParseWarning{
					Line:   lineNo,
					Reason: "row has too few columns",
				})
			}
			continue
		}

		txnDate, err := parseDate(cellAt(cells, cols.date))
		if err != nil {
			result.Warnings = append(result.Warnings, *rowWarning(lineNo, "unparseable date %q", cellAt(cells, cols.date)))
			continue
		}
		desc := strings.TrimSpace(cellAt(cells, cols.desc))
		if desc == "" {
			result.Warnings = append(result.Warnings, *rowWarning(lineNo, "empty description"))
			continue
		}
		amount, err := parseAmount(cellAt(cells, cols.amount))
		if err != nil {
			result.Warnings = append(result.Warnings, *rowWarning(lineNo, "unparseable amount %q", cellAt(cells, cols.amount)))
			continue
		}
		if amount.IsZero() {
			result.Warnings = append(result.Warnings, *rowWarning(lineNo, "row has no amount"))
			continue
		}

		direction := domain.DirectionIncome
		if amount.IsNegative() {
			direction = domain.DirectionExpense
		}
		if kind := strings.ToLower(strings.TrimSpace(cellAt(cells, cols.kind))); kind != "" {
			switch {
			case strings.HasPrefix(kind, "d"):
				direction = domain.DirectionExpense
			case strings.HasPrefix(kind, "c"):
				direction = domain.DirectionIncome
			}
		}

		cand := &domain.CandidateTransaction{
			TxnDate:     txnDate,
			Description: desc,
			Amount:      amount.Abs(),
			Direction:   direction,
			Merchant:    ExtractMerchant(desc),
			Line:        lineNo,
		}
		if ref := strings.TrimSpace(cellAt(cells, cols.ref)); ref != "" && ref != "-" {
			cand.Reference = &ref
		}
		if b := cellAt(cells, cols.balance); b != "" {
			if bal, err := parseAmount(b); err == nil {
				cand.BalanceAfter = &bal
				result.StatementBalance = &bal
			}
		}
		result.Candidates = append(result.Candidates, cand)
	}
	return result, nil
}
