package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places kept internally.
const MoneyScale = 4

// DisplayScale is the number of decimal places used for presentation.
const DisplayScale = 2

const unitsPerMajor = 10000

var (
	maxUnits = decimal.NewFromInt(math.MaxInt64)
	minUnits = decimal.NewFromInt(math.MinInt64)
)

// Money is a fixed-point amount stored as an integer count of 1/10000 units.
// The zero value is 0.0000 and is ready to use.
type Money struct {
	units int64
}

// Zero returns 0.0000.
func Zero() Money {
	return Money{}
}

// MoneyFromUnits builds Money from a raw count of 1/10000 units.
func MoneyFromUnits(units int64) Money {
	return Money{units: units}
}

// MoneyFromInt builds Money from a whole number of major units.
func MoneyFromInt(n int64) Money {
	if n > math.MaxInt64/unitsPerMajor || n < math.MinInt64/unitsPerMajor {
		panic(&PrecisionError{Input: fmt.Sprint(n), Reason: "out of range"})
	}
	return Money{units: n * unitsPerMajor}
}

// ParseMoney parses a decimal string. Extra fraction digits are rounded half-up
// to four places.
func ParseMoney(s string) (Money, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Money{}, &PrecisionError{Input: s, Reason: "empty amount"}
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Money{}, &PrecisionError{Input: s, Reason: "not a decimal number"}
	}

	return MoneyFromDecimal(d)
}

// MustParseMoney is ParseMoney for constants and tests. It panics on bad input.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MoneyFromDecimal quantizes d to four places.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	scaled := d.Shift(MoneyScale).Round(0)
	if scaled.GreaterThan(maxUnits) || scaled.LessThan(minUnits) {
		return Money{}, &PrecisionError{Input: d.String(), Reason: "out of range"}
	}
	return Money{units: scaled.IntPart()}, nil
}

// NewMoney converts string, integer, decimal.Decimal and json.Number inputs.
// Binary floating point input is rejected.
func NewMoney(v any) (Money, error) {
	switch x := v.(type) {
	case Money:
		return x, nil
	case string:
		return ParseMoney(x)
	case json.Number:
		return ParseMoney(x.String())
	case decimal.Decimal:
		return MoneyFromDecimal(x)
	case *big.Int:
		return MoneyFromDecimal(decimal.NewFromBigInt(x, 0))
	case int:
		return moneyFromInt64(int64(x))
	case int8:
		return moneyFromInt64(int64(x))
	case int16:
		return moneyFromInt64(int64(x))
	case int32:
		return moneyFromInt64(int64(x))
	case int64:
		return moneyFromInt64(x)
	case uint8:
		return moneyFromInt64(int64(x))
	case uint16:
		return moneyFromInt64(int64(x))
	case uint32:
		return moneyFromInt64(int64(x))
	case uint:
		return MoneyFromDecimal(decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(x)), 0))
	case uint64:
		return MoneyFromDecimal(decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0))
	case float32, float64:
		return Money{}, &PrecisionError{Input: fmt.Sprint(x), Reason: "binary floating point amounts are not accepted"}
	default:
		return Money{}, &PrecisionError{Input: fmt.Sprintf("%T", v), Reason: "unsupported amount type"}
	}
}

func moneyFromInt64(n int64) (Money, error) {
	return MoneyFromDecimal(decimal.NewFromInt(n))
}

// Add returns m + o. It panics on overflow; use AddChecked for amounts that
// come from callers.
func (m Money) Add(o Money) Money {
	sum, err := m.AddChecked(o)
	if err != nil {
		panic(err)
	}
	return sum
}

// AddChecked returns m + o, or a PrecisionError when the sum is out of range.
func (m Money) AddChecked(o Money) (Money, error) {
	sum := m.units + o.units
	if (sum > m.units) != (o.units > 0) {
		return Money{}, &PrecisionError{Input: m.String() + " + " + o.String(), Reason: "out of range"}
	}
	return Money{units: sum}, nil
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	diff := m.units - o.units
	if (diff < m.units) != (o.units > 0) {
		panic(&PrecisionError{Input: m.String() + " - " + o.String(), Reason: "overflow"})
	}
	return Money{units: diff}
}

// Neg returns -m.
func (m Money) Neg() Money {
	if m.units == math.MinInt64 {
		panic(&PrecisionError{Input: m.String(), Reason: "overflow"})
	}
	return Money{units: -m.units}
}

// Abs returns |m|.
func (m Money) Abs() Money {
	if m.units < 0 {
		return m.Neg()
	}
	return m
}

// MulRatio returns m * r rounded half-up to four places.
func (m Money) MulRatio(r decimal.Decimal) Money {
	return m.Scale(r, decimal.NewFromInt(1))
}

// Scale returns m * num / den with a single half-up rounding at the end.
// It panics when den is zero or the result is out of range.
func (m Money) Scale(num, den decimal.Decimal) Money {
	scaled, err := m.ScaleChecked(num, den)
	if err != nil {
		panic(err)
	}
	return scaled
}

// ScaleChecked is Scale returning a PrecisionError instead of panicking.
func (m Money) ScaleChecked(num, den decimal.Decimal) (Money, error) {
	if den.IsZero() {
		return Money{}, &PrecisionError{Input: m.String(), Reason: "division by zero"}
	}

	// units * num / den, rounded to an integer number of units.
	exact := new(big.Rat).SetFrac(
		new(big.Int).Mul(big.NewInt(m.units), num.Coefficient()),
		den.Coefficient(),
	)
	exact.Mul(exact, pow10Rat(num.Exponent()-den.Exponent()))

	units, ok := roundHalfUp(exact)
	if !ok {
		return Money{}, &PrecisionError{Input: fmt.Sprintf("%s * %s / %s", m, num, den), Reason: "out of range"}
	}
	return Money{units: units}, nil
}

func pow10Rat(exp int32) *big.Rat {
	p := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(absInt32(exp))), nil)
	if exp >= 0 {
		return new(big.Rat).SetInt(p)
	}
	return new(big.Rat).SetFrac(big.NewInt(1), p)
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// roundHalfUp rounds r to the nearest integer, ties away from zero.
func roundHalfUp(r *big.Rat) (int64, bool) {
	num := new(big.Int).Abs(r.Num())
	den := r.Denom()

	q, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if rem.Lsh(rem, 1).Cmp(den) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	if r.Sign() < 0 {
		q.Neg(q)
	}

	if !q.IsInt64() {
		return 0, false
	}
	return q.Int64(), true
}

// Sum adds all values. The empty sum is zero.
func Sum(values ...Money) Money {
	total, err := SumChecked(values...)
	if err != nil {
		panic(err)
	}
	return total
}

// SumChecked is Sum returning a PrecisionError when a partial sum is out of
// range.
func SumChecked(values ...Money) (Money, error) {
	total := Zero()
	for _, v := range values {
		var err error
		if total, err = total.AddChecked(v); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(o Money) int {
	switch {
	case m.units < o.units:
		return -1
	case m.units > o.units:
		return 1
	default:
		return 0
	}
}

func (m Money) Equal(o Money) bool       { return m.units == o.units }
func (m Money) LessThan(o Money) bool    { return m.units < o.units }
func (m Money) GreaterThan(o Money) bool { return m.units > o.units }
func (m Money) IsZero() bool             { return m.units == 0 }
func (m Money) IsNegative() bool         { return m.units < 0 }
func (m Money) IsPositive() bool         { return m.units > 0 }

// Units returns the raw count of 1/10000 units.
func (m Money) Units() int64 {
	return m.units
}

// Decimal returns the exact value as a decimal.Decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.units, -MoneyScale)
}

// String returns the canonical four-place representation, e.g. "109.0000".
func (m Money) String() string {
	return m.Decimal().StringFixed(MoneyScale)
}

// Display rounds half-up to two places for presentation only.
func (m Money) Display() string {
	return m.Decimal().StringFixed(DisplayScale)
}

// MarshalJSON encodes Money as a JSON string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts only JSON strings. JSON numbers are decoded by most
// clients through binary floats and are rejected.
func (m *Money) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || data[0] != '"' {
		return &PrecisionError{Input: string(data), Reason: "amounts must be encoded as strings"}
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &PrecisionError{Input: string(data), Reason: "not a string"}
	}

	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
