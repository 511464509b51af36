package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/bitflow/ledger-backend/internal/domain"
)

const (
	// sampleSize is how many leading non-empty lines Detect gets to look at.
	sampleSize = 40

	// minConfidence is the detection score below which a statement is
	// treated as unrecognized rather than parsed by the closest match.
	minConfidence = 0.5
)

// Format describes one statement layout. Detect scores how likely the sample
// lines are in this layout, in [0,1]. Parse extracts every transaction it can
// and reports unusable rows as warnings instead of failing the whole file.
type Format interface {
	Name() string
	Detect(sample []string) float64
	Parse(content []byte) (*domain.ParseResult, error)
}

// Registry holds the known formats in priority order. On detection ties the
// earlier registration wins, so bank-specific layouts are registered before
// the generic fallbacks.
type Registry struct {
	formats []Format
}

func NewRegistry() *Registry {
	return &Registry{formats: []Format{
		newOFXFormat(),
		newColumnarFormat(particularsSpec),
		newColumnarFormat(debitCreditSpec),
		newSignedFormat(),
		newColumnarFormat(genericSpec),
	}}
}

func (r *Registry) Register(f Format) {
	r.formats = append(r.formats, f)
}

// Names returns the registered format names in priority order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.formats))
	for _, f := range r.formats {
		names = append(names, f.Name())
	}
	return names
}

// Detect picks the format with the highest confidence for the given file.
func (r *Registry) Detect(content []byte) (Format, float64, error) {
	sample := sampleLines(content, sampleSize)
	var best Format
	var bestScore float64
	for _, f := range r.formats {
		if score := f.Detect(sample); score > bestScore {
			best = f
			bestScore = score
		}
	}
	if best == nil || bestScore < minConfidence {
		return nil, 0, domain.ErrUnrecognizedFormat
	}
	return best, bestScore, nil
}

// Parse detects the format and runs it over the full file.
func (r *Registry) Parse(content []byte) (*domain.ParseResult, error) {
	format, _, err := r.Detect(content)
	if err != nil {
		return nil, err
	}
	result, err := format.Parse(content)
	if err != nil {
		return nil, err
	}
	result.Format = format.Name()
	if len(result.Candidates) == 0 {
		// Every row was skipped; hand the per-line reasons back with
		// the failure instead of dropping them.
		return nil, &domain.StatementError{Err: domain.ErrNoTransactions, Warnings: result.Warnings}
	}
	return result, nil
}

func splitLines(content []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func sampleLines(content []byte, n int) []string {
	var sample []string
	for _, line := range splitLines(content) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		sample = append(sample, trimmed)
		if len(sample) == n {
			break
		}
	}
	return sample
}

// splitCells splits one CSV line, tolerating stray quotes the way bank
// exports tend to produce them.
func splitCells(line string) []string {
	rd := csv.NewReader(strings.NewReader(line))
	rd.LazyQuotes = true
	rd.FieldsPerRecord = -1
	rd.TrimLeadingSpace = true
	cells, err := rd.Read()
	if err != nil {
		cells = strings.Split(line, ",")
	}
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

func cellAt(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}
