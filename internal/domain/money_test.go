package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "whole", input: "109", want: "109.0000"},
		{name: "four places", input: "109.0000", want: "109.0000"},
		{name: "rounds half up", input: "1.00005", want: "1.0001"},
		{name: "rounds down", input: "1.00004", want: "1.0000"},
		{name: "negative half rounds away from zero", input: "-1.00005", want: "-1.0001"},
		{name: "whitespace", input: " 2.5 ", want: "2.5000"},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "ten", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrPrecision) {
					t.Fatalf("expected precision error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.String())
			}
		})
	}
}

func TestNewMoneyRejectsFloats(t *testing.T) {
	for _, v := range []any{1.5, float32(2.25)} {
		_, err := NewMoney(v)
		var precisionErr *PrecisionError
		if !errors.As(err, &precisionErr) {
			t.Fatalf("expected PrecisionError for %T, got %v", v, err)
		}
	}
}

func TestNewMoneyAcceptsIntegersAndDecimals(t *testing.T) {
	tests := []struct {
		input any
		want  string
	}{
		{input: 42, want: "42.0000"},
		{input: int64(-7), want: "-7.0000"},
		{input: uint32(3), want: "3.0000"},
		{input: "0.1", want: "0.1000"},
		{input: json.Number("12.345"), want: "12.3450"},
		{input: decimal.RequireFromString("0.00015"), want: "0.0002"},
	}

	for _, tt := range tests {
		got, err := NewMoney(tt.input)
		if err != nil {
			t.Fatalf("unexpected error for %v: %v", tt.input, err)
		}
		if got.String() != tt.want {
			t.Errorf("%v: expected %s, got %s", tt.input, tt.want, got.String())
		}
	}
}

func TestMoneyDisplay(t *testing.T) {
	if got := MustParseMoney("109.0000").Display(); got != "109.00" {
		t.Fatalf("expected 109.00, got %s", got)
	}

	m := MustParseMoney("2.3450")
	if got := m.Display(); got != "2.35" {
		t.Errorf("expected display rounding to 2.35, got %s", got)
	}
	if m.String() != "2.3450" {
		t.Errorf("display must not change the stored value, got %s", m.String())
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := MustParseMoney("10.1234")
	b := MustParseMoney("0.0001")

	if got := a.Add(b).String(); got != "10.1235" {
		t.Errorf("add: got %s", got)
	}
	if got := a.Sub(b).String(); got != "10.1233" {
		t.Errorf("sub: got %s", got)
	}
	if got := Sum(a, b, b).String(); got != "10.1236" {
		t.Errorf("sum: got %s", got)
	}
	if !Sum().IsZero() {
		t.Errorf("empty sum should be zero")
	}
	if got := a.Neg().String(); got != "-10.1234" {
		t.Errorf("neg: got %s", got)
	}
}

func TestMoneyScale(t *testing.T) {
	tests := []struct {
		name  string
		value string
		num   string
		den   string
		want  string
	}{
		{name: "nine percent", value: "100", num: "0.09", den: "1", want: "9.0000"},
		{name: "inclusive extraction", value: "109", num: "0.09", den: "1.09", want: "9.0000"},
		{name: "third rounds down", value: "1", num: "1", den: "3", want: "0.3333"},
		{name: "two thirds rounds up", value: "2", num: "1", den: "3", want: "0.6667"},
		{name: "exact half rounds up", value: "0.0001", num: "1", den: "2", want: "0.0001"},
		{name: "negative half rounds away from zero", value: "-0.0001", num: "1", den: "2", want: "-0.0001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MustParseMoney(tt.value).Scale(decimal.RequireFromString(tt.num), decimal.RequireFromString(tt.den))
			if got.String() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.String())
			}
		})
	}
}

func TestMoneyScaleByZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	MustParseMoney("1").Scale(decimal.NewFromInt(1), decimal.Zero)
}

func TestMoneyCompare(t *testing.T) {
	a := MustParseMoney("1.0001")
	b := MustParseMoney("1.0000")

	if a.Cmp(b) != 1 || b.Cmp(a) != -1 || a.Cmp(a) != 0 {
		t.Fatalf("unexpected ordering")
	}
	if a.Equal(b) {
		t.Fatalf("values differing in the fourth place must not be equal")
	}
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Amount: MustParseMoney("9")})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"amount":"9.0000"}` {
		t.Fatalf("unexpected json %s", data)
	}

	var decoded struct {
		Amount Money `json:"amount"`
	}
	if err := json.Unmarshal([]byte(`{"amount":"12.50"}`), &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Amount.String() != "12.5000" {
		t.Fatalf("unexpected amount %s", decoded.Amount)
	}

	err = json.Unmarshal([]byte(`{"amount":12.5}`), &decoded)
	if !errors.Is(err, ErrPrecision) {
		t.Fatalf("expected precision error for numeric JSON, got %v", err)
	}
}

func TestMoneyCheckedArithmetic(t *testing.T) {
	large := MustParseMoney("900000000000000")

	if _, err := large.AddChecked(large); !errors.Is(err, ErrPrecision) {
		t.Fatalf("expected ErrPrecision from AddChecked, got %v", err)
	}
	if _, err := SumChecked(large, large); !errors.Is(err, ErrPrecision) {
		t.Fatalf("expected ErrPrecision from SumChecked, got %v", err)
	}
	if _, err := MustParseMoney("1").ScaleChecked(decimal.RequireFromString("1e20"), decimal.NewFromInt(1)); !errors.Is(err, ErrPrecision) {
		t.Fatalf("expected ErrPrecision from ScaleChecked, got %v", err)
	}
	if _, err := MustParseMoney("1").ScaleChecked(decimal.NewFromInt(1), decimal.Zero); !errors.Is(err, ErrPrecision) {
		t.Fatalf("expected ErrPrecision for a zero denominator, got %v", err)
	}

	sum, err := SumChecked(MustParseMoney("1.5"), MustParseMoney("2.25"))
	if err != nil || sum.String() != "3.7500" {
		t.Fatalf("unexpected checked sum %s, %v", sum, err)
	}
}
