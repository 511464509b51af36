package parser

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bitflow/ledger-backend/internal/domain"
)

// columnarSpec is a declarative description of one tabular statement layout:
// which header tokens identify each column and which markers identify the
// bank. New bank layouts are added as specs, not as new parser code.
type columnarSpec struct {
	name string

	// markers are bank-specific tokens; finding one anywhere in the sample
	// raises the detection score above the generic fallback.
	markers []string

	dateKeys    []string
	valueKeys   []string
	descKeys    []string
	refKeys     []string
	debitKeys   []string
	creditKeys  []string
	balanceKeys []string

	baseScore   float64
	markerScore float64
}

var particularsSpec = columnarSpec{
	name:        "particulars",
	markers:     []string{"particulars"},
	dateKeys:    []string{"date"},
	valueKeys:   []string{"value date", "value dt"},
	descKeys:    []string{"particulars"},
	refKeys:     []string{"ref", "chq", "cheque"},
	debitKeys:   []string{"withdrawal", "debit"},
	creditKeys:  []string{"deposit", "credit"},
	balanceKeys: []string{"balance"},
	baseScore:   0.4,
	markerScore: 0.9,
}

var debitCreditSpec = columnarSpec{
	name:        "debit_credit",
	markers:     []string{"txn date", "value date", "narration"},
	dateKeys:    []string{"txn date", "tran date", "transaction date", "date"},
	valueKeys:   []string{"value date", "value dt"},
	descKeys:    []string{"description", "narration", "transaction details", "transaction remarks"},
	refKeys:     []string{"ref no", "ref.no", "chq", "cheque", "reference"},
	debitKeys:   []string{"debit", "withdrawal amt", "withdrawal"},
	creditKeys:  []string{"credit", "deposit amt", "deposit"},
	balanceKeys: []string{"balance"},
	baseScore:   0.6,
	markerScore: 0.85,
}

// genericSpec is the tabular fallback. It scores below every bank-specific
// spec so it only wins when nothing else recognizes the file.
var genericSpec = columnarSpec{
	name:        "generic",
	dateKeys:    []string{"date"},
	valueKeys:   []string{"value date"},
	descKeys:    []string{"description", "narration", "details", "remarks", "particulars"},
	refKeys:     []string{"ref", "reference", "chq"},
	debitKeys:   []string{"debit", "withdrawal", "dr amount"},
	creditKeys:  []string{"credit", "deposit", "cr amount"},
	balanceKeys: []string{"balance"},
	baseScore:   0.55,
	markerScore: 0.55,
}

type columnMap struct {
	date      int
	valueDate int
	desc      int
	ref       int
	debit     int
	credit    int
	balance   int
}

// minCells is the cell count a row needs before it can be a data row.
// Trailing optional columns may be absent on short rows.
func (c columnMap) minCells() int {
	n := c.date
	for _, idx := range []int{c.desc, c.debit, c.credit} {
		if idx > n {
			n = idx
		}
	}
	return n + 1
}

type columnarFormat struct {
	spec columnarSpec
}

func newColumnarFormat(spec columnarSpec) *columnarFormat {
	return &columnarFormat{spec: spec}
}

func (f *columnarFormat) Name() string {
	return f.spec.name
}

func (f *columnarFormat) Detect(sample []string) float64 {
	if _, _, ok := f.findHeader(sample); !ok {
		return 0
	}
	for _, line := range sample {
		lower := strings.ToLower(line)
		for _, marker := range f.spec.markers {
			if strings.Contains(lower, marker) {
				return f.spec.markerScore
			}
		}
	}
	return f.spec.baseScore
}

// findHeader scans for the first line that maps every required column:
// date, description, and both amount columns. Everything above it is
// preamble (bank name, account holder, statement period).
func (f *columnarFormat) findHeader(lines []string) (int, columnMap, bool) {
	limit := len(lines)
	if limit > sampleSize {
		limit = sampleSize
	}
	for i := 0; i < limit; i++ {
		cells := splitCells(lines[i])
		cols := columnMap{date: -1, valueDate: -1, desc: -1, ref: -1, debit: -1, credit: -1, balance: -1}
		for idx, cell := range cells {
			lower := strings.ToLower(cell)
			switch {
			case cols.valueDate < 0 && matchKey(lower, f.spec.valueKeys):
				cols.valueDate = idx
			case cols.debit < 0 && matchKey(lower, f.spec.debitKeys):
				cols.debit = idx
			case cols.credit < 0 && matchKey(lower, f.spec.creditKeys):
				cols.credit = idx
			case cols.balance < 0 && matchKey(lower, f.spec.balanceKeys):
				cols.balance = idx
			case cols.desc < 0 && matchKey(lower, f.spec.descKeys):
				cols.desc = idx
			case cols.ref < 0 && matchKey(lower, f.spec.refKeys):
				cols.ref = idx
			case cols.date < 0 && matchKey(lower, f.spec.dateKeys):
				cols.date = idx
			}
		}
		if cols.date >= 0 && cols.desc >= 0 && cols.debit >= 0 && cols.credit >= 0 {
			return i, cols, true
		}
	}
	return 0, columnMap{}, false
}

func matchKey(cell string, keys []string) bool {
	for _, key := range keys {
		if strings.Contains(cell, key) {
			return true
		}
	}
	return false
}

func (f *columnarFormat) Parse(content []byte) (*domain.ParseResult, error) {
	lines := splitLines(content)
	headerIdx, cols, ok := f.findHeader(lines)
	if !ok {
		return nil, domain.ErrUnrecognizedFormat
	}

	result := &domain.ParseResult{}
	for i := headerIdx + 1; i < len(lines); i++ {
		lineNo := i + 1
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		cells := splitCells(line)
		if len(cells) < cols.minCells() {
			// Short rows carrying a date are truncated data rows; the
			// rest are footers and summary lines.
			if _, err := parseDate(cellAt(cells, cols.date)); err == nil {
				result.Warnings = append(result.Warnings, domain.ParseWarning{
					Line:   lineNo,
					Reason: "row has too few columns",
				})
			}
			continue
		}
		cand, warn := f.parseRow(cells, cols, lineNo)
		if warn != nil {
			result.Warnings = append(result.Warnings, *warn)
			continue
		}
		if cand.BalanceAfter != nil {
			result.StatementBalance = cand.BalanceAfter
		}
		result.Candidates = append(result.Candidates, cand)
	}
	return result, nil
}

func (f *columnarFormat) parseRow(cells []string, cols columnMap, lineNo int) (*domain.CandidateTransaction, *domain.ParseWarning) {
	txnDate, err := parseDate(cellAt(cells, cols.date))
	if err != nil {
		return nil, rowWarning(lineNo, "unparseable date %q", cellAt(cells, cols.date))
	}

	desc := strings.TrimSpace(cellAt(cells, cols.desc))
	if desc == "" {
		return nil, rowWarning(lineNo, "empty description")
	}

	debit, err := parseAmount(cellAt(cells, cols.debit))
	if err != nil {
		return nil, rowWarning(lineNo, "unparseable debit amount %q", cellAt(cells, cols.debit))
	}
	credit, err := parseAmount(cellAt(cells, cols.credit))
	if err != nil {
		return nil, rowWarning(lineNo, "unparseable credit amount %q", cellAt(cells, cols.credit))
	}

	var amount decimal.Decimal
	var direction domain.Direction
	switch {
	case !debit.IsZero():
		amount = debit.Abs()
		direction = domain.DirectionExpense
	case !credit.IsZero():
		amount = credit.Abs()
		direction = domain.DirectionIncome
	default:
		return nil, rowWarning(lineNo, "row has no amount")
	}

	cand := &domain.CandidateTransaction{
		TxnDate:     txnDate,
		Description: desc,
		Amount:      amount,
		Direction:   direction,
		Merchant:    ExtractMerchant(desc),
		Line:        lineNo,
	}
	if vd := cellAt(cells, cols.valueDate); vd != "" {
		if t, err := parseDate(vd); err == nil {
			cand.ValueDate = &t
		}
	}
	if ref := strings.TrimSpace(cellAt(cells, cols.ref)); ref != "" && ref != "-" {
		cand.Reference = &ref
	}
	if b := cellAt(cells, cols.balance); b != "" {
		if bal, err := parseAmount(b); err == nil && !bal.IsZero() {
			cand.BalanceAfter = &bal
		}
	}
	return cand, nil
}

func rowWarning(line int, format string, args ...any) *domain.ParseWarning {
	return &domain.ParseWarning{Line: line, Reason: fmt.Sprintf(format, args...)}
}
