// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cubemath

import (
	"fmt"

	"github.com/aclements/go-moremath/stats"
)

// DefaultAlpha is the usual significance level of Compare.
const DefaultAlpha = 0.05

// A Comparison is the result of testing whether two samples, such as
// the per-location values of a call path in two experiments, come
// from distributions with the same mean.
type Comparison struct {
	// P is the p-value of the null hypothesis that the means are
	// equal. P can be 0, which indicates an exact result.
	P float64

	// N1 and N2 are the sizes of the two samples.
	N1, N2 int

	// Alpha is the threshold below which the null hypothesis is
	// rejected.
	Alpha float64

	// Warnings is a list of warnings about this comparison
	// result.
	Warnings []error
}

// Compare tests s1 and s2 with Welch's two-sample t-test.
func Compare(s1, s2 *Sample, alpha float64) Comparison {
	c := Comparison{N1: len(s1.Values), N2: len(s2.Values), Alpha: alpha}
	if allEqual(s1.Values, s2.Values) {
		// The t-test is undefined without variance. Identical
		// constant samples are trivially the same.
		c.P = 1
		return c
	}
	t, err := stats.TwoSampleWelchTTest(s1.sample(), s2.sample(), stats.LocationDiffers)
	if err != nil {
		// Report as if there's no significant difference,
		// along with the error.
		c.P = 1
		c.Warnings = append(c.Warnings, err)
		return c
	}
	c.P = t.P
	return c
}

func allEqual(a, b []float64) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	v := a[0]
	for _, xs := range [][]float64{a, b} {
		for _, x := range xs {
			if x != v {
				return false
			}
		}
	}
	return true
}

// String summarizes the comparison. The general form of this string
// is "p=0.PPP n=N1+N2" but can be shortened.
func (c Comparison) String() string {
	var s string
	if c.P != 0 {
		s = fmt.Sprintf("p=%0.3f ", c.P)
	}
	if c.N1 == c.N2 {
		return s + fmt.Sprintf("n=%d", c.N1)
	}
	return s + fmt.Sprintf("n=%d+%d", c.N1, c.N2)
}

// FormatDelta formats the difference between the means old and new.
// If the comparison does not reject the null hypothesis, it returns
// "~". Otherwise it returns the percent difference.
func (c Comparison) FormatDelta(old, new float64) string {
	if c.P > c.Alpha {
		return "~"
	}
	if old == new {
		return "0.00%"
	}
	if old == 0 {
		return "?"
	}
	pct := ((new / old) - 1.0) * 100.0
	return fmt.Sprintf("%+.2f%%", pct)
}
