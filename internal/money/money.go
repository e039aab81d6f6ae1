// Package money handles whole-unit peso amounts (CLP/COP have no minor unit in
// practice). Amounts are int64; parsing goes through shopspring/decimal so a
// fractional input is rejected instead of rounded.
package money

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount    = errors.New("monto inválido")
	ErrFractionalAmount = errors.New("el monto debe ser un número entero")
	ErrAmountOverflow   = errors.New("monto demasiado grande")
)

var thousandsGrouped = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+$`)

// ParseAmount reads user input such as "5000", "5.000" or "$ 5.000".
// Dots grouping exactly three digits are thousands separators; anything that
// leaves a fractional part is rejected.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if thousandsGrouped.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
	}
	s = strings.Replace(s, ",", ".", 1)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return fromDecimal(d)
}

// FromJSON reads a JSON number or numeric string. ok is false for null,
// non-numeric or fractional values.
func FromJSON(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return 0, false
	}
	n, err := fromDecimal(d)
	return n, err == nil
}

func fromDecimal(d decimal.Decimal) (int64, error) {
	if !d.IsInteger() {
		return 0, ErrFractionalAmount
	}
	if d.GreaterThan(decimal.NewFromInt(maxInt64)) || d.LessThan(decimal.NewFromInt(minInt64)) {
		return 0, ErrAmountOverflow
	}
	return d.IntPart(), nil
}

const (
	maxInt64 = int64(^uint64(0) >> 1)
	minInt64 = -maxInt64 - 1
)

// group inserts '.' every three digits: 1234567 → "1.234.567".
func group(n int64) string {
	neg := n < 0
	digits := strconv.FormatUint(absUint(n), 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func absUint(n int64) uint64 {
	if n < 0 {
		return uint64(-(n + 1)) + 1
	}
	return uint64(n)
}

// FormatCLP renders "$5.000" (es-CL grouping, no decimals).
func FormatCLP(n int64) string { return "$" + group(n) }

// FormatCOP renders "$ 5.000" as es-CO currency formatting does.
func FormatCOP(n int64) string {
	if n < 0 {
		return "-$ " + group(-n)
	}
	return "$ " + group(n)
}
