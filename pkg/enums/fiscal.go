package enums

import "fmt"

// FiscalDocType names the tax-authority document issued for a paid charge.
type FiscalDocType string

const (
	FiscalDocTypeFacturaB     FiscalDocType = "factura_b"
	FiscalDocTypeNotaCreditoB FiscalDocType = "nota_credito_b"
)

var validFiscalDocTypes = []FiscalDocType{
	FiscalDocTypeFacturaB,
	FiscalDocTypeNotaCreditoB,
}

// String implements fmt.Stringer.
func (f FiscalDocType) String() string {
	return string(f)
}

// IsValid reports whether the value is known.
func (f FiscalDocType) IsValid() bool {
	for _, candidate := range validFiscalDocTypes {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFiscalDocType converts raw input into a FiscalDocType.
func ParseFiscalDocType(value string) (FiscalDocType, error) {
	for _, candidate := range validFiscalDocTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fiscal doc type %q", value)
}

// FiscalDocStatus tracks issuance progress against the tax authority.
type FiscalDocStatus string

const (
	FiscalDocStatusPending FiscalDocStatus = "pending"
	FiscalDocStatusIssued  FiscalDocStatus = "issued"
	FiscalDocStatusFailed  FiscalDocStatus = "failed"
)

var validFiscalDocStatuses = []FiscalDocStatus{
	FiscalDocStatusPending,
	FiscalDocStatusIssued,
	FiscalDocStatusFailed,
}

// String implements fmt.Stringer.
func (f FiscalDocStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is known.
func (f FiscalDocStatus) IsValid() bool {
	for _, candidate := range validFiscalDocStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}
