package report

import (
	"bytes"
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"
)

var jsonNull = []byte("null") //nolint:gochecknoglobals // constant byte slice

// Percent is an optional similarity percentage.
// The zero value is absent.
type Percent struct {
	value float64
	valid bool
}

// PercentOf returns a present Percent.
func PercentOf(v float64) Percent {
	return Percent{value: v, valid: true}
}

// Value returns the percentage and whether it is present.
func (p Percent) Value() (float64, bool) {
	return p.value, p.valid
}

// Valid reports whether the percentage is present.
func (p Percent) Valid() bool { return p.valid }

// Format renders the percentage with exactly two decimals, or "" when absent.
func (p Percent) Format() string {
	if !p.valid {
		return ""
	}
	return FormatPercent(p.value)
}

// UnmarshalJSON accepts numbers and numeric strings. Anything else,
// including null, leaves the value absent without returning an error.
func (p *Percent) UnmarshalJSON(data []byte) error {
	*p = Percent{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		p.set(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")), 64); err == nil {
			p.set(f)
		}
	}
	return nil
}

func (p *Percent) set(f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return
	}
	p.value = f
	p.valid = true
}

// MarshalJSON writes the number, or null when absent.
func (p Percent) MarshalJSON() ([]byte, error) {
	if !p.valid {
		return jsonNull, nil
	}
	return json.Marshal(p.value)
}

// Label is an optional free-form string such as a category or a URL.
// Wrong-typed input decodes to the empty label.
type Label string

// String returns the label text.
func (l Label) String() string { return string(l) }

// UnmarshalJSON accepts strings only. Anything else leaves the label empty.
func (l *Label) UnmarshalJSON(data []byte) error {
	*l = ""
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = Label(s)
	}
	return nil
}

// FormatPercent renders v with exactly two decimal digits: 83 -> "83.00",
// 83.456 -> "83.46". Exact ties such as 0.125 round away from zero; a value
// like 2.675, stored just below the tie, rounds down.
func FormatPercent(v float64) string {
	if isHundredthTie(v) {
		v = math.Round(v*100) / 100
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// tieFraction is the fractional part of an exact tie.
var tieFraction = big.NewFloat(0.5) //nolint:gochecknoglobals // constant

// isHundredthTie reports whether the stored value of v, scaled by 100, has
// a fractional part of exactly one half.
func isHundredthTie(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	// 53 mantissa bits times 100 fit in 128 bits, so the product is exact.
	scaled := new(big.Float).SetPrec(128).Mul(big.NewFloat(v), big.NewFloat(100))
	whole, _ := scaled.Int(nil)
	frac := new(big.Float).SetPrec(128).Sub(scaled, new(big.Float).SetInt(whole))
	return frac.Abs(frac).Cmp(tieFraction) == 0
}
