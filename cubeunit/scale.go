// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cubeunit

import (
	"fmt"
	"math"
	"strconv"
)

// A Scaler represents a scaling factor for a number and
// its scientific representation.
type Scaler struct {
	Prec   int     // Digits after the decimal point
	Factor float64 // Unscaled value of 1 Prefix (e.g., 1 k => 1000)
	Prefix string  // Unit prefix ("k", "M", "Ki", etc)
}

// Format formats val and appends the unit prefix. For example, with a
// Decimal scale of "M", Format(123456789) returns "123.5M".
//
// Tidy values with units before formatting them, or the prefix can
// combine with a scaled unit into nonsense such as "kmsec".
func (s Scaler) Format(val float64) string {
	return strconv.FormatFloat(val/s.Factor, 'f', s.Prec, 64) + s.Prefix
}

// FormatUnit formats val followed by its prefixed unit, such as
// "12.50 msec".
func (s Scaler) FormatUnit(val float64, unit string) string {
	n := strconv.FormatFloat(val/s.Factor, 'f', s.Prec, 64)
	if unit == "" {
		return n + s.Prefix
	}
	return n + " " + s.Prefix + unit
}

// NoOpScaler formats numbers with the smallest number of digits that
// capture the exact value, and no prefix. It is meant for output that
// is read by other programs.
var NoOpScaler = Scaler{-1, 1, ""}

// A factor is one prefix and the smallest values printed with 1, 2
// and 3 digits after the decimal point when using it.
type factor struct {
	factor        float64
	prefix        string
	t100, t10, t1 float64
}

var (
	siFactors  = mkFactors(10, 3, 12, []string{"T", "G", "M", "k", "", "m", "µ", "n"})
	iecFactors = mkFactors(2, 10, 40, []string{"Ti", "Gi", "Mi", "Ki", ""})
)

// sigfigs[i] is the threshold for printing i+3 digits after the
// decimal point below the smallest factor.
var sigfigs = mkSigfigs()

// mkFactors returns one factor per prefix, starting at base**exp and
// dividing by base**step each time.
//
// The thresholds are the values that print as 100.0, 10.00 and 1.000,
// so that the choice of factor matches how the value is rounded.
func mkFactors(base, step, exp int, prefixes []string) []factor {
	var out []factor
	for _, p := range prefixes {
		f := factor{factor: math.Pow(float64(base), float64(exp)), prefix: p}
		if base == 10 {
			// Parse the decimal representation to get
			// correctly rounded thresholds.
			f.t100 = parseFloat(fmt.Sprintf("99.995e%d", exp))
			f.t10 = parseFloat(fmt.Sprintf("9.9995e%d", exp))
			f.t1 = parseFloat(fmt.Sprintf(".99995e%d", exp))
		} else {
			// Scaling by a power of two is exact.
			f.t100 = math.Ldexp(99.995, exp)
			f.t10 = math.Ldexp(9.9995, exp)
			f.t1 = math.Ldexp(.99995, exp)
		}
		out = append(out, f)
		exp -= step
	}
	return out
}

func mkSigfigs() []float64 {
	var out []float64
	for exp := -1; exp > -9; exp-- {
		out = append(out, parseFloat(fmt.Sprintf("9.9995e%d", exp)))
	}
	return out
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		panic(err)
	}
	return v
}

// Scale formats val using at least three significant digits,
// appending an SI or binary prefix.
func Scale(val float64, cls Class) string {
	return CommonScale([]float64{val}, cls).Format(val)
}

// CommonScale returns a Scaler that shows at least three significant
// digits for every value in vals. It is chosen by the non-zero value
// closest to zero. NaNs are ignored.
func CommonScale(vals []float64, cls Class) Scaler {
	var min float64
	for _, v := range vals {
		v = math.Abs(v)
		if v != 0 && !math.IsNaN(v) && (min == 0 || v < min) {
			min = v
		}
	}
	if min == 0 {
		return Scaler{3, 1, ""}
	}

	var factors []factor
	switch cls {
	case Decimal:
		factors = siFactors
	case Binary:
		factors = iecFactors
	default:
		panic(fmt.Sprintf("bad Class %v", cls))
	}
	for _, f := range factors {
		switch {
		case min >= f.t100:
			return Scaler{1, f.factor, f.prefix}
		case min >= f.t10:
			return Scaler{2, f.factor, f.prefix}
		case min >= f.t1:
			return Scaler{3, f.factor, f.prefix}
		}
	}

	// Below the smallest factor, add digits instead.
	last := factors[len(factors)-1]
	val := min / last.factor
	for i, thresh := range sigfigs {
		if val >= thresh || i == len(sigfigs)-1 {
			return Scaler{i + 3, last.factor, last.prefix}
		}
	}
	panic("not reachable")
}

// ForUnit tidies vals in place to the base unit of unit and returns
// the new unit and a Scaler common to all of them.
func ForUnit(vals []float64, unit string) (Scaler, string) {
	tidied := unit
	for i, v := range vals {
		vals[i], tidied = Tidy(v, unit)
	}
	if len(vals) == 0 {
		_, tidied = Tidy(0, unit)
	}
	return CommonScale(vals, ClassOf(tidied)), tidied
}
