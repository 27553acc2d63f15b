package bankfile

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ignaciomazza/ofistur-billing/pkg/errors"
)

func outboundFixture(t *testing.T, a Adapter) []byte {
	t.Helper()
	return RenderOutbound(a, Header{
		Sequence:     7,
		BusinessDate: time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
	}, []OutboundRow{
		{
			Ordinal:     1,
			ExternalRef: "OF0001",
			AmountARS:   decimal.RequireFromString("1500.50"),
			HolderName:  "Viajes del Sur SRL",
			HolderTaxID: "30-11111111-1",
			MaskedCBU:   "285035****0001",
		},
		{
			Ordinal:     2,
			ExternalRef: "OF0002",
			AmountARS:   decimal.RequireFromString("999.50"),
			HolderName:  "Turismo Norte SA",
			HolderTaxID: "30-22222222-2",
			MaskedCBU:   "285035****0002",
		},
	})
}

func TestRenderOutbound_PagoDirectoLayout(t *testing.T) {
	content := outboundFixture(t, NewPagoDirecto())
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "H|PD|02|7|DEBITO|20250310|2|2500.00|", lines[0])
	require.Equal(t, "D|1|OF0001|1500.50|Viajes del Sur SRL|285035****0001|30-11111111-1|", lines[1])
	require.Equal(t, "T|2|2500.00|", lines[3])
}

func TestParseHeader_RoundTrip(t *testing.T) {
	for _, adapter := range []Adapter{NewPagoDirecto(), NewDebugCSV()} {
		content := outboundFixture(t, adapter)
		first := strings.Split(string(content), "\n")[0]

		require.True(t, adapter.Signature(first))
		header, err := adapter.ParseHeader(first)
		require.NoError(t, err, adapter.Name())
		require.Equal(t, int64(7), header.Sequence)
		require.Equal(t, 2, header.RecordCount)
		require.True(t, header.TotalAmount.Equal(decimal.RequireFromString("2500.00")))
		require.Equal(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), header.BusinessDate)
	}
}

func pagoDirectoResponse(total string, rows []string) []byte {
	header := fmt.Sprintf("H|PD|02|7|DEBITO|20250310|%d|%s|", len(rows), total)
	trailer := fmt.Sprintf("T|%d|%s|", len(rows), total)
	all := append([]string{header}, rows...)
	all = append(all, trailer)
	return []byte(strings.Join(all, "\n") + "\n")
}

func TestParseResponse_PagoDirectoRows(t *testing.T) {
	adapter := NewPagoDirecto()
	content := pagoDirectoResponse("1500.50", []string{
		"D|1|OF0001|00|debito aplicado|1500.50|20250311090000|TRC-1|OP-901|",
		"D|2|OF0002|R01|fondos insuficientes|0.00||TRC-2|OP-902|",
		"D|3|OF0003|ZZ|codigo desconocido|0.00||TRC-3|OP-903|",
	})

	file, err := ParseResponse(adapter, content)
	require.NoError(t, err)
	require.Len(t, file.Rows, 3)

	paid := file.Rows[0]
	require.Equal(t, "OF0001", paid.ExternalRef)
	require.Equal(t, "00", paid.ResultCode)
	require.True(t, paid.SettledAmount.Equal(decimal.RequireFromString("1500.50")))
	require.NotNil(t, paid.SettledAt)
	require.Equal(t, "OP-901", paid.OperationID)
	require.Equal(t, OutcomePaid, adapter.Outcome(paid.ResultCode))

	require.Equal(t, OutcomeRejected, adapter.Outcome(file.Rows[1].ResultCode))
	require.Nil(t, file.Rows[1].SettledAt)
	require.Equal(t, OutcomeError, adapter.Outcome(file.Rows[2].ResultCode))
}

func TestParseResponse_MalformedRowKeptAsParseError(t *testing.T) {
	adapter := NewPagoDirecto()
	content := pagoDirectoResponse("1500.50", []string{
		"D|1|OF0001|00|ok|1500.50|20250311090000|TRC-1|OP-901|",
		"D|esto-no-es-un-ordinal|OF0002|",
	})

	file, err := ParseResponse(adapter, content)
	require.NoError(t, err)
	require.Len(t, file.Rows, 2)
	require.Empty(t, file.Rows[0].ParseError)
	require.NotEmpty(t, file.Rows[1].ParseError)
	require.Equal(t, "D|esto-no-es-un-ordinal|OF0002|", file.Rows[1].Raw)
}

func TestParseResponse_WrongAdapterSignature(t *testing.T) {
	debugContent := outboundFixture(t, NewDebugCSV())

	_, err := ParseResponse(NewPagoDirecto(), debugContent)
	require.Error(t, err)
	typed := errors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, errors.CodeAdapterMismatch, typed.Code())
}

func TestParseResponse_TrailerCountDrift(t *testing.T) {
	content := []byte(strings.Join([]string{
		"H|PD|02|7|DEBITO|20250310|2|0.00|",
		"D|1|OF0001|00|ok|1500.50|20250311090000|TRC-1|OP-901|",
		"T|2|0.00|",
	}, "\n"))

	_, err := ParseResponse(NewPagoDirecto(), content)
	require.Error(t, err)
	typed := errors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, errors.CodeAdapterMismatch, typed.Code())
}

func TestParseResponse_TrailerTotalDrift(t *testing.T) {
	content := pagoDirectoResponse("9999.99", []string{
		"D|1|OF0001|00|ok|1500.50|20250311090000|TRC-1|OP-901|",
	})

	_, err := ParseResponse(NewPagoDirecto(), content)
	require.Error(t, err)
	typed := errors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, errors.CodeAdapterMismatch, typed.Code())
}

func TestRegistry_Resolution(t *testing.T) {
	reg := DefaultRegistry()

	adapter, err := reg.Get("pagodirecto")
	require.NoError(t, err)
	require.Equal(t, "pagodirecto", adapter.Name())

	_, err = reg.Get("swift")
	require.Error(t, err)
}

func TestDebugCSV_ResponseRoundTrip(t *testing.T) {
	adapter := NewDebugCSV()
	content := []byte(strings.Join([]string{
		"#debugcsv,1,3,debit,20250310,1,1500.50",
		"1,OF0001,00,ok,1500.50,2025-03-11T09:00:00Z,TRC-1,OP-901",
		"#end,1,1500.50",
	}, "\n"))

	file, err := ParseResponse(adapter, content)
	require.NoError(t, err)
	require.Len(t, file.Rows, 1)
	require.Equal(t, "OF0001", file.Rows[0].ExternalRef)
	require.Equal(t, OutcomePaid, adapter.Outcome(file.Rows[0].ResultCode))
	require.NotNil(t, file.Rows[0].SettledAt)
}
