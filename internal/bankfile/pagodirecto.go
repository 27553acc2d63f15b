package bankfile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	pagoDirectoName     = "pagodirecto"
	pagoDirectoProtocol = "PD"
	pagoDirectoVersion  = "02"

	pagoDirectoDateLayout = "20060102"
	pagoDirectoTsLayout   = "20060102150405"
)

// rejection codes the processor documents; everything else non-"00" is an
// error outcome.
var pagoDirectoRejections = map[string]struct{}{
	"R01": {}, // insufficient funds
	"R02": {}, // account closed
	"R03": {}, // no account / unable to locate
	"R04": {}, // invalid account number
	"R05": {}, // mandate revoked
}

// PagoDirecto is the pipe-delimited production debit format.
//
//	H|PD|02|<seq>|DEBITO|<yyyymmdd>|<count>|<total>|
//	D|<ordinal>|<ref>|<amount>|<holder>|<cbu>|<taxid>|            (outbound)
//	D|<ordinal>|<ref>|<code>|<msg>|<amount>|<ts>|<trace>|<op>|    (inbound)
//	T|<count>|<total>|
type PagoDirecto struct{}

// NewPagoDirecto returns the production adapter.
func NewPagoDirecto() *PagoDirecto {
	return &PagoDirecto{}
}

func (p *PagoDirecto) Name() string    { return pagoDirectoName }
func (p *PagoDirecto) Version() string { return pagoDirectoVersion }

func (p *PagoDirecto) Signature(firstLine string) bool {
	return strings.HasPrefix(firstLine, "H|"+pagoDirectoProtocol+"|")
}

func (p *PagoDirecto) RenderHeader(h Header) string {
	return fmt.Sprintf("H|%s|%s|%d|DEBITO|%s|%d|%s|",
		pagoDirectoProtocol,
		pagoDirectoVersion,
		h.Sequence,
		h.BusinessDate.Format(pagoDirectoDateLayout),
		h.RecordCount,
		h.TotalAmount.StringFixed(2),
	)
}

func (p *PagoDirecto) RenderOutboundRow(row OutboundRow) string {
	return fmt.Sprintf("D|%d|%s|%s|%s|%s|%s|",
		row.Ordinal,
		row.ExternalRef,
		row.AmountARS.StringFixed(2),
		sanitizePipe(row.HolderName),
		row.MaskedCBU,
		row.HolderTaxID,
	)
}

func (p *PagoDirecto) RenderTrailer(t Trailer) string {
	return fmt.Sprintf("T|%d|%s|", t.RecordCount, t.TotalAmount.StringFixed(2))
}

func (p *PagoDirecto) ParseHeader(line string) (Header, error) {
	parts := strings.Split(line, "|")
	if len(parts) < 8 || parts[0] != "H" || parts[1] != pagoDirectoProtocol {
		return Header{}, fmt.Errorf("unexpected header layout")
	}
	seq, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return Header{}, fmt.Errorf("sequence: %w", err)
	}
	businessDate, err := time.Parse(pagoDirectoDateLayout, parts[5])
	if err != nil {
		return Header{}, fmt.Errorf("business date: %w", err)
	}
	count, err := strconv.Atoi(parts[6])
	if err != nil {
		return Header{}, fmt.Errorf("record count: %w", err)
	}
	total, err := decimal.NewFromString(parts[7])
	if err != nil {
		return Header{}, fmt.Errorf("total amount: %w", err)
	}
	return Header{
		Protocol:     parts[1],
		Version:      parts[2],
		Sequence:     seq,
		Kind:         parts[4],
		BusinessDate: businessDate,
		RecordCount:  count,
		TotalAmount:  total,
	}, nil
}

func (p *PagoDirecto) ParseResponseRow(line string) (ResponseRow, error) {
	parts := strings.Split(line, "|")
	if len(parts) < 9 || parts[0] != "D" {
		return ResponseRow{}, fmt.Errorf("unexpected data row layout")
	}
	ordinal, err := strconv.Atoi(parts[1])
	if err != nil {
		return ResponseRow{}, fmt.Errorf("ordinal: %w", err)
	}
	amount, err := decimal.NewFromString(parts[5])
	if err != nil {
		return ResponseRow{}, fmt.Errorf("settled amount: %w", err)
	}
	row := ResponseRow{
		Ordinal:       ordinal,
		ExternalRef:   parts[2],
		ResultCode:    parts[3],
		ResultMessage: parts[4],
		SettledAmount: amount,
		TraceID:       parts[7],
		Raw:           line,
	}
	if len(parts) > 8 {
		row.OperationID = parts[8]
	}
	if parts[6] != "" {
		settledAt, err := time.Parse(pagoDirectoTsLayout, parts[6])
		if err != nil {
			return ResponseRow{}, fmt.Errorf("settlement timestamp: %w", err)
		}
		row.SettledAt = &settledAt
	}
	return row, nil
}

func (p *PagoDirecto) ParseTrailer(line string) (Trailer, error) {
	parts := strings.Split(line, "|")
	if len(parts) < 3 || parts[0] != "T" {
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

func (p *PagoDirecto) Outcome(resultCode string) Outcome {
	if resultCode == "00" {
		return OutcomePaid
	}
	if _, ok := pagoDirectoRejections[resultCode]; ok {
		return OutcomeRejected
	}
	return OutcomeError
}

func sanitizePipe(value string) string {
	return strings.ReplaceAll(value, "|", " ")
}
