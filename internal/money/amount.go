package money

import (
	"bytes"

	"github.com/shopspring/decimal"
)

// Amount is a backend figure decoded leniently for display: JSON numbers or
// numeric strings, rounded half away from zero to whole units. null and ""
// decode to 0.
type Amount int64

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" || string(b) == `""` {
		*a = 0
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*a = Amount(d.Round(0).IntPart())
	return nil
}

func (a Amount) Int64() int64 { return int64(a) }

func (a Amount) String() string { return FormatCLP(int64(a)) }
