// Package bankfile holds the typed adapters for the bank batch-file formats
// the engine exchanges with the collection channel. One adapter per format;
// the registry keys them by name.
package bankfile

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ignaciomazza/ofistur-billing/pkg/errors"
)

// Outcome classifies a bank result code.
type Outcome string

const (
	OutcomePaid     Outcome = "paid"
	OutcomeRejected Outcome = "rejected"
	OutcomeError    Outcome = "error"
)

// Header carries the batch-level metadata of a bank file.
type Header struct {
	Protocol     string
	Version      string
	Sequence     int64
	Kind         string
	BusinessDate time.Time
	RecordCount  int
	TotalAmount  decimal.Decimal
}

// OutboundRow is one presentment line requesting a debit.
type OutboundRow struct {
	Ordinal     int
	ExternalRef string
	AmountARS   decimal.Decimal
	HolderName  string
	HolderTaxID string
	MaskedCBU   string
}

// ResponseRow is one inbound settlement line. A non-empty ParseError marks a
// malformed row that must be recorded as an error outcome, never applied.
type ResponseRow struct {
	Ordinal       int
	ExternalRef   string
	ResultCode    string
	ResultMessage string
	SettledAmount decimal.Decimal
	SettledAt     *time.Time
	TraceID       string
	OperationID   string
	Raw           string
	ParseError    string
}

// Trailer closes a bank file with control totals.
type Trailer struct {
	RecordCount int
	TotalAmount decimal.Decimal
}

// Adapter renders and parses one bank file format.
type Adapter interface {
	Name() string
	Version() string
	Signature(firstLine string) bool
	RenderHeader(h Header) string
	RenderOutboundRow(row OutboundRow) string
	RenderTrailer(t Trailer) string
	ParseHeader(line string) (Header, error)
	ParseResponseRow(line string) (ResponseRow, error)
	ParseTrailer(line string) (Trailer, error)
	Outcome(resultCode string) Outcome
}

// ResponseFile is a fully parsed inbound bank file.
type ResponseFile struct {
	Header  Header
	Rows    []ResponseRow
	Trailer Trailer
}

// RenderOutbound serializes a presentment file: header, one line per row,
// control trailer.
func RenderOutbound(a Adapter, h Header, rows []OutboundRow) []byte {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.AmountARS)
	}
	h.RecordCount = len(rows)
	h.TotalAmount = total

	var b strings.Builder
	b.WriteString(a.RenderHeader(h))
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString(a.RenderOutboundRow(row))
		b.WriteByte('\n')
	}
	b.WriteString(a.RenderTrailer(Trailer{RecordCount: len(rows), TotalAmount: total}))
	b.WriteByte('\n')
	return []byte(b.String())
}

// ParseResponse parses an inbound file and validates its structure. A wrong
// signature, header/trailer layout, or control-total drift aborts with
// ADAPTER_MISMATCH; a malformed data row is kept with ParseError set so the
// importer can record it without applying it.
func ParseResponse(a Adapter, content []byte) (*ResponseFile, error) {
	lines := splitLines(content)
	if len(lines) < 2 {
		return nil, mismatch(a, "file has no header/trailer structure")
	}
	if !a.Signature(lines[0]) {
		return nil, mismatch(a, "file signature does not match adapter")
	}

	header, err := a.ParseHeader(lines[0])
	if err != nil {
		return nil, mismatch(a, fmt.Sprintf("header: %v", err))
	}
	trailer, err := a.ParseTrailer(lines[len(lines)-1])
	if err != nil {
		return nil, mismatch(a, fmt.Sprintf("trailer: %v", err))
	}

	body := lines[1 : len(lines)-1]
	if trailer.RecordCount != len(body) {
		return nil, mismatch(a, fmt.Sprintf(
			"trailer declares %d records, file carries %d", trailer.RecordCount, len(body)))
	}

	rows := make([]ResponseRow, 0, len(body))
	sum := decimal.Zero
	clean := true
	for i, line := range body {
		row, err := a.ParseResponseRow(line)
		if err != nil {
			row = ResponseRow{Ordinal: i + 1, Raw: line, ParseError: err.Error()}
			clean = false
		} else {
			sum = sum.Add(row.SettledAmount)
		}
		rows = append(rows, row)
	}

	// A malformed row hides its amount, so the control total can only be
	// checked when every row parsed.
	if clean && !trailer.TotalAmount.Equal(sum) {
		return nil, mismatch(a, fmt.Sprintf(
			"trailer declares total %s, rows sum to %s", trailer.TotalAmount, sum))
	}

	return &ResponseFile{Header: header, Rows: rows, Trailer: trailer}, nil
}

func mismatch(a Adapter, detail string) error {
	return errors.New(errors.CodeAdapterMismatch,
		fmt.Sprintf("%s: %s", a.Name(), detail)).
		WithDetails(map[string]any{"adapter": a.Name(), "reason": detail})
}

func splitLines(content []byte) []string {
	raw := strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
