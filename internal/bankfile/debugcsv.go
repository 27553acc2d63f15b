package bankfile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	debugCSVName    = "debugcsv"
	debugCSVVersion = "1"

	debugCSVDateLayout = "20060102"
)

// DebugCSV is the comma-separated format used outside production so batches
// can be inspected and fabricated by hand. Same semantic fields and result
// codes as the production format.
//
//	#debugcsv,<version>,<seq>,<kind>,<yyyymmdd>,<count>,<total>
//	<ordinal>,<ref>,<amount>,<holder>,<cbu>,<taxid>               (outbound)
//	<ordinal>,<ref>,<code>,<msg>,<amount>,<ts RFC3339>,<trace>,<op>  (inbound)
//	#end,<count>,<total>
type DebugCSV struct{}

// NewDebugCSV returns the debug adapter.
func NewDebugCSV() *DebugCSV {
	return &DebugCSV{}
}

func (d *DebugCSV) Name() string    { return debugCSVName }
func (d *DebugCSV) Version() string { return debugCSVVersion }

func (d *DebugCSV) Signature(firstLine string) bool {
	return strings.HasPrefix(firstLine, "#debugcsv,")
}

func (d *DebugCSV) RenderHeader(h Header) string {
	return strings.Join([]string{
		"#debugcsv",
		debugCSVVersion,
		strconv.FormatInt(h.Sequence, 10),
		"debit",
		h.BusinessDate.Format(debugCSVDateLayout),
		strconv.Itoa(h.RecordCount),
		h.TotalAmount.StringFixed(2),
	}, ",")
}

func (d *DebugCSV) RenderOutboundRow(row OutboundRow) string {
	return strings.Join([]string{
		strconv.Itoa(row.Ordinal),
		row.ExternalRef,
		row.AmountARS.StringFixed(2),
		sanitizeComma(row.HolderName),
		row.MaskedCBU,
		row.HolderTaxID,
	}, ",")
}

func (d *DebugCSV) RenderTrailer(t Trailer) string {
	return fmt.Sprintf("#end,%d,%s", t.RecordCount, t.TotalAmount.StringFixed(2))
}

func (d *DebugCSV) ParseHeader(line string) (Header, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 7 || parts[0] != "#debugcsv" {
		return Header{}, fmt.Errorf("unexpected header layout")
	}
	seq, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Header{}, fmt.Errorf("sequence: %w", err)
	}
	businessDate, err := time.Parse(debugCSVDateLayout, parts[4])
	if err != nil {
		return Header{}, fmt.Errorf("business date: %w", err)
	}
	count, err := strconv.Atoi(parts[5])
	if err != nil {
		return Header{}, fmt.Errorf("record count: %w", err)
	}
	total, err := decimal.NewFromString(parts[6])
	if err != nil {
		return Header{}, fmt.Errorf("total amount: %w", err)
	}
	return Header{
		Protocol:     debugCSVName,
		Version:      parts[1],
		Sequence:     seq,
		Kind:         parts[3],
		BusinessDate: businessDate,
		RecordCount:  count,
		TotalAmount:  total,
	}, nil
}

func (d *DebugCSV) ParseResponseRow(line string) (ResponseRow, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 8 {
		return ResponseRow{}, fmt.Errorf("unexpected data row layout")
	}
	ordinal, err := strconv.Atoi(parts[0])
	if err != nil {
		return ResponseRow{}, fmt.Errorf("ordinal: %w", err)
	}
	amount, err := decimal.NewFromString(parts[4])
	if err != nil {
		return ResponseRow{}, fmt.Errorf("settled amount: %w", err)
	}
	row := ResponseRow{
		Ordinal:       ordinal,
		ExternalRef:   parts[1],
		ResultCode:    parts[2],
		ResultMessage: parts[3],
		SettledAmount: amount,
		TraceID:       parts[6],
		OperationID:   parts[7],
		Raw:           line,
	}
	if parts[5] != "" {
		settledAt, err := time.Parse(time.RFC3339, parts[5])
		if err != nil {
			return ResponseRow{}, fmt.Errorf("settlement timestamp: %w", err)
		}
		row.SettledAt = &settledAt
	}
	return row, nil
}

func (d *DebugCSV) ParseTrailer(line string) (Trailer, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 3 || parts[0] != "#end" {
		return Trailer{}, fmt.Errorf("unexpected trailer layout")
	}
	count, err := strconv.Atoi(parts[1])
	if err != nil {
		return Trailer{}, fmt.Errorf("record count: %w", err)
	}
	total, err := decimal.NewFromString(parts[2])
	if err != nil {
		return Trailer{}, fmt.Errorf("total amount: %w", err)
	}
	return Trailer{RecordCount: count, TotalAmount: total}, nil
}

func (d *DebugCSV) Outcome(resultCode string) Outcome {
	return (&PagoDirecto{}).Outcome(resultCode)
}

func sanitizeComma(value string) string {
	return strings.ReplaceAll(value, ",", " ")
}
