// Package units converts between base-unit integers and fixed-decimal strings.
//
// Conversions are exact: formatting never rounds and parsing rejects any
// precision that cannot be represented in the requested number of decimals.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// EtherDecimals is the decimal convention of the native currency and of the
// reward token.
const EtherDecimals = 18

// ErrInvalidAmount is returned for strings that are not decimal numbers.
var ErrInvalidAmount = errors.New("invalid decimal amount")

// FormatUnits renders v (in base units) as a decimal string with the given
// number of decimals. Whole values keep one fractional digit ("100.0").
func FormatUnits(v *big.Int, decimals int) string {
	if v == nil {
		return "0.0"
	}
	neg := v.Sign() < 0
	digits := new(big.Int).Abs(v).String()

	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}
	whole := digits[:len(digits)-decimals]
	frac := strings.TrimRight(digits[len(digits)-decimals:], "0")
	if frac == "" {
		frac = "0"
	}

	s := whole + "." + frac
	if neg {
		s = "-" + s
	}
	return s
}

// FormatEther formats wei as an 18-decimal string.
func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, EtherDecimals)
}

// ParseUnits parses a decimal string into base units. Fractional digits
// beyond decimals are accepted only when they are zeros.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	raw := s
	s = strings.TrimSpace(s)
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if !allDigits(whole) || !allDigits(frac) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}

	if len(frac) > decimals {
		if strings.Trim(frac[decimals:], "0") != "" {
			return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, raw, decimals)
		}
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", decimals-len(frac))

	v, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if neg {
		v.Neg(v)
	}
	return v, nil
}

// ParseEther parses an 18-decimal string into wei.
func ParseEther(s string) (*big.Int, error) {
	return ParseUnits(s, EtherDecimals)
}

// ParsePositive parses s and requires the result to be greater than zero.
func ParsePositive(s string, decimals int) (*big.Int, error) {
	v, err := ParseUnits(s, decimals)
	if err != nil {
		return nil, err
	}
	if v.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %q must be positive", ErrInvalidAmount, s)
	}
	return v, nil
}

// Truncate cuts a decimal string to at most places fractional digits
// without rounding. Used for display only.
func Truncate(s string, places int) string {
	whole, frac, ok := strings.Cut(s, ".")
	if !ok {
		return s
	}
	if len(frac) > places {
		frac = frac[:places]
	}
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
