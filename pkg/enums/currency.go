package enums

// Currency is the ISO 4217 code carried on orders.
type Currency string

const (
	CurrencyUSD Currency = "USD"
)

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}
