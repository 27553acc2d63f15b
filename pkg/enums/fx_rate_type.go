package enums

// FxRateType names a published exchange-rate series.
type FxRateType string

const (
	// FxRateTypeUSDARS is the USD sell rate frozen into billing cycles.
	FxRateTypeUSDARS FxRateType = "usd_ars_venta"
)

// String implements fmt.Stringer.
func (f FxRateType) String() string {
	return string(f)
}

// IsValid reports whether the value is known.
func (f FxRateType) IsValid() bool {
	return f == FxRateTypeUSDARS
}
