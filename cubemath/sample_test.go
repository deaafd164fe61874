// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cubemath

import (
	"math"
	"testing"
)

func TestNewSample(t *testing.T) {
	row := []float64{3, math.NaN(), 1, 2}
	s := NewSample(row)
	if len(s.Values) != 3 || s.Values[0] != 1 || s.Values[2] != 3 {
		t.Errorf("Values = %v, want [1 2 3]", s.Values)
	}
	if s.Missing != 1 || len(s.Warnings) != 1 {
		t.Errorf("Missing = %d, Warnings = %v", s.Missing, s.Warnings)
	}
	if row[0] != 3 {
		t.Errorf("NewSample modified its argument")
	}
}

func TestSummary(t *testing.T) {
	s := NewSample([]float64{4, 2, 6, 8}).Summary(0.95)
	if s.N != 4 || s.Sum != 20 || s.Mean != 5 || s.Min != 2 || s.Max != 8 || math.Abs(s.Median-5) > 1e-9 {
		t.Errorf("got %+v", s)
	}
	if s.Lo >= 5 || s.Hi <= 5 {
		t.Errorf("confidence interval [%v, %v] does not contain the mean", s.Lo, s.Hi)
	}
	if got, want := s.Imbalance(), 0.6; math.Abs(got-want) > 1e-12 {
		t.Errorf("Imbalance = %v, want %v", got, want)
	}
	if len(s.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", s.Warnings)
	}

	one := NewSample([]float64{7}).Summary(0.95)
	if one.Mean != 7 || one.StdDev != 0 || len(one.Warnings) != 1 {
		t.Errorf("single value summary %+v", one)
	}
	if one.PctRangeString() != "∞" {
		t.Errorf("single value range %s, want ∞", one.PctRangeString())
	}

	none := NewSample([]float64{math.NaN()}).Summary(0.95)
	if none.N != 0 || !math.IsNaN(none.Mean) || len(none.Warnings) != 2 {
		t.Errorf("empty summary %+v", none)
	}
	if none.Imbalance() != 0 {
		t.Errorf("empty summary imbalance %v", none.Imbalance())
	}
}

func TestSummaryFormat(t *testing.T) {
	check := func(center, lo, hi float64, want string) {
		t.Helper()
		s := Summary{Mean: center, Lo: lo, Hi: hi}
		got := s.PctRangeString()
		if got != want {
			t.Errorf("for %v CI [%v, %v], got %s, want %s", center, lo, hi, got, want)
		}
	}
	inf := math.Inf(1)

	check(1, 0.5, 1.1, "50%")
	check(1, 0.9, 1.5, "50%")
	check(1, 1, 1, "0%")
	check(-1, -0.5, -1.1, "50%")
	check(1, -inf, 1, "∞")
	check(1, -1, 1, "?")
	check(0, -1, 1, "?")
	check(0, 0, 0, "0%")
}
