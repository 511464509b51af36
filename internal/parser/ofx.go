package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/bitflow/ledger-backend/internal/domain"
)

// ofxFormat parses OFX/QFX downloads, both the v1 SGML and v2 XML flavors.
type ofxFormat struct{}

func newOFXFormat() *ofxFormat {
	return &ofxFormat{}
}

func (f *ofxFormat) Name() string {
	return "ofx"
}

func (f *ofxFormat) Detect(sample []string) float64 {
	joined := strings.ToUpper(strings.Join(sample, "\n"))
	if strings.Contains(joined, "OFXHEADER") ||
		strings.Contains(joined, "<?OFX") ||
		strings.Contains(joined, "<OFX>") {
		return 1.0
	}
	return 0
}

func (f *ofxFormat) Parse(content []byte) (*domain.ParseResult, error) {
	resp, err := ofxgo.ParseResponse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse ofx: %w", err)
	}

	if len(resp.Bank) > 0 {
		stmt, ok := resp.Bank[0].(*ofxgo.StatementResponse)
		if !ok {
			return nil, fmt.Errorf("parse ofx: unexpected bank message %T", resp.Bank[0])
		}
		if stmt.BankTranList == nil {
			return nil, domain.ErrNoTransactions
		}
		return f.convert(stmt.BankTranList.Transactions, stmt.BalAmt)
	}

	if len(resp.CreditCard) > 0 {
		stmt, ok := resp.CreditCard[0].(*ofxgo.CCStatementResponse)
		if !ok {
			return nil, fmt.Errorf("parse ofx: unexpected credit card message %T", resp.CreditCard[0])
		}
		if stmt.BankTranList == nil {
			return nil, domain.ErrNoTransactions
		}
		return f.convert(stmt.BankTranList.Transactions, stmt.BalAmt)
	}

	return nil, domain.ErrNoTransactions
}

func (f *ofxFormat) convert(txns []ofxgo.Transaction, balance ofxgo.Amount) (*domain.ParseResult, error) {
	result := &domain.ParseResult{}
	if bal, err := ofxAmount(balance); err == nil && !bal.IsZero() {
		result.StatementBalance = &bal
	}

	for i, txn := range txns {
		// FiTID is the bank's own transaction id; Line carries the
		// ordinal since OFX rows have no source line numbers.
		ordinal := i + 1

		amount, err := ofxAmount(txn.TrnAmt)
		if err != nil {
			result.Warnings = append(result.Warnings, *rowWarning(ordinal, "unparseable amount %q", txn.TrnAmt.String()))
			continue
		}
		if amount.IsZero() {
			result.Warnings = append(result.Warnings, *rowWarning(ordinal, "row has no amount"))
			continue
		}

		desc := strings.TrimSpace(txn.Name.String())
		if desc == "" {
			desc = strings.TrimSpace(txn.Memo.String())
		}
		if desc == "" {
			result.Warnings = append(result.Warnings, *rowWarning(ordinal, "empty description"))
			continue
		}

		direction := domain.DirectionIncome
		if amount.IsNegative() {
			direction = domain.DirectionExpense
		}

		cand := &domain.CandidateTransaction{
			TxnDate:     txn.DtPosted.Time,
			Description: desc,
			Amount:      amount.Abs(),
			Direction:   direction,
			Merchant:    ExtractMerchant(desc),
			Line:        ordinal,
		}
		if id := strings.TrimSpace(txn.FiTID.String()); id != "" {
			cand.Reference = &id
		}
		result.Candidates = append(result.Candidates, cand)
	}
	return result, nil
}

// ofxAmount converts the OFX rational amount exactly, at bank precision.
func ofxAmount(amt ofxgo.Amount) (decimal.Decimal, error) {
	return decimal.NewFromString(amt.FloatString(2))
}
