// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cubemath computes statistics over the values of a metric
// across the locations of a cube, such as the distribution of time
// spent in a call path by every thread.
//
// All results carry a list of warnings, captured as an []error
// value. These don't prevent analysis, but should be presented to
// the user along with the results.
package cubemath

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/aclements/go-moremath/mathx"
	"github.com/aclements/go-moremath/stats"
)

// A Sample is the set of values of one metric at one call path, one
// value per location.
type Sample struct {
	// Values are the present values, in ascending order.
	Values []float64

	// Missing is the number of locations without a value.
	Missing int

	// Warnings is a list of warnings about this sample that
	// should be reported to the user.
	Warnings []error
}

// NewSample constructs a Sample from a severity row. NaN entries mark
// locations without a value and are left out. values is not
// modified.
func NewSample(values []float64) *Sample {
	s := &Sample{Values: make([]float64, 0, len(values))}
	for _, v := range values {
		if math.IsNaN(v) {
			s.Missing++
			continue
		}
		s.Values = append(s.Values, v)
	}
	sort.Float64s(s.Values)
	if s.Missing > 0 {
		s.Warnings = append(s.Warnings, fmt.Errorf("%d of %d locations have no value", s.Missing, len(values)))
	}
	return s
}

func (s *Sample) sample() stats.Sample {
	return stats.Sample{Xs: s.Values, Sorted: true}
}

// A Summary summarizes a Sample.
type Summary struct {
	N int

	Sum, Mean, StdDev float64
	Min, Median, Max  float64

	// Lo and Hi give the bounds of the confidence interval around
	// Mean at level Confidence.
	Lo, Hi     float64
	Confidence float64

	// Warnings is a list of warnings about this summary or its
	// confidence interval.
	Warnings []error
}

// Summary returns the summary statistics of s. Confidence is given in
// the range [0,1], e.g., 0.95 for 95% confidence.
func (s *Sample) Summary(confidence float64) Summary {
	sum := Summary{N: len(s.Values), Confidence: confidence}
	sum.Warnings = append(sum.Warnings, s.Warnings...)
	if len(s.Values) == 0 {
		nan := math.NaN()
		sum.Mean, sum.StdDev, sum.Min, sum.Median, sum.Max, sum.Lo, sum.Hi = nan, nan, nan, nan, nan, nan, nan
		sum.Warnings = append(sum.Warnings, errors.New("no values"))
		return sum
	}
	sample := s.sample()
	sum.Sum = sample.Sum()
	sum.Mean, sum.Lo, sum.Hi = sample.MeanCI(confidence)
	sum.StdDev = sample.StdDev()
	sum.Min, sum.Max = sample.Bounds()
	sum.Median = sample.Quantile(0.5)
	if len(s.Values) < 2 {
		sum.StdDev = 0
		sum.Warnings = append(sum.Warnings, errors.New("need at least 2 values for a confidence interval"))
	}
	return sum
}

// Imbalance returns how much the most loaded location exceeds the
// mean, relative to the mean. It is 0 for a perfectly balanced
// sample.
func (s Summary) Imbalance() float64 {
	if s.N == 0 || s.Mean == 0 {
		return 0
	}
	return (s.Max - s.Mean) / math.Abs(s.Mean)
}

// PctRangeString returns a string representation of the range of this
// Summary's confidence interval as a percentage.
func (s Summary) PctRangeString() string {
	if math.IsInf(s.Lo, 0) || math.IsInf(s.Hi, 0) || math.IsNaN(s.Mean) {
		return "∞"
	}

	// If the signs of the bounds differ from the center, it can't
	// be rendered as a percent.
	csign := mathx.Sign(s.Mean)
	if csign != mathx.Sign(s.Lo) || csign != mathx.Sign(s.Hi) {
		return "?"
	}
	if s.Mean == 0 {
		return "0%"
	}
	v := math.Max(s.Hi/s.Mean-1, 1-s.Lo/s.Mean)
	return fmt.Sprintf("%.0f%%", 100*v)
}
