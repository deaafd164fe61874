// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/perftools/cube/cube"
	"github.com/perftools/cube/cubemath"
	"github.com/perftools/cube/cubeunit"
	"github.com/perftools/cube/internal/texttab"
)

// confidence is the confidence level of the printed intervals.
const confidence = 0.95

// A table holds the statistics of one metric for every call path of
// one cube.
type table struct {
	File    string
	Metric  string
	Unit    string // tidied unit of every value
	NumLocs int

	// Rows are ordered by decreasing sum.
	Rows []*row
	byPath map[string]*row
}

// A row is the distribution of a metric over the locations at one
// call path.
type row struct {
	Path    string
	Sample  *cubemath.Sample
	Summary cubemath.Summary
}

func newTable(c *cube.Cube, metric string) (*table, error) {
	m, err := selectMetric(c, metric)
	if err != nil {
		return nil, err
	}
	_, unit := cubeunit.Tidy(0, m.UOM)
	t := &table{Metric: m.UniqName, Unit: unit, NumLocs: len(c.Locations()), byPath: make(map[string]*row)}
	locs := c.Locations()
	for _, root := range c.Cnodes {
		root.Walk(func(n *cube.Cnode) {
			vals := make([]float64, len(locs))
			found := false
			for i, l := range locs {
				v, ok := c.DeclusteredSeverity(m, n, l)
				if !ok {
					vals[i] = math.NaN()
					continue
				}
				vals[i], _ = cubeunit.Tidy(v, m.UOM)
				found = true
			}
			if !found {
				return
			}
			path := callPath(n)
			if t.byPath[path] != nil {
				path = fmt.Sprintf("%s (cnode %d)", path, n.ID)
			}
			s := cubemath.NewSample(vals)
			r := &row{Path: path, Sample: s, Summary: s.Summary(confidence)}
			t.Rows = append(t.Rows, r)
			t.byPath[path] = r
		})
	}
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return t.Rows[i].Summary.Sum > t.Rows[j].Summary.Sum
	})
	return t, nil
}

// callPath returns the region names from the call tree root to n,
// separated by slashes.
func callPath(n *cube.Cnode) string {
	var names []string
	for ; n != nil; n = n.Parent {
		names = append(names, n.Callee.Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, "/")
}

func (t *table) top(n int) []*row {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

// scaler returns a Scaler common to the given values.
func (t *table) scaler(vals []float64) cubeunit.Scaler {
	return cubeunit.CommonScale(vals, cubeunit.ClassOf(t.Unit))
}

func rowWarnings(t *table, r *row, ws []error, out []string) []string {
	for _, w := range ws {
		out = append(out, fmt.Sprintf("%s: %s: %v", t.File, r.Path, w))
	}
	return out
}

// formatSummaries writes the summaries of the top n rows of t to w
// and returns the warnings about them.
func formatSummaries(w io.Writer, t *table, n int) (warnings []string) {
	rows := t.top(n)
	var vals []float64
	for _, r := range rows {
		s := r.Summary
		vals = append(vals, s.Sum, s.Mean, s.Min, s.Max)
	}
	sc := t.scaler(vals)

	fmt.Fprintf(w, "metric: %s (%s) over %d locations\n\n", t.Metric, t.Unit, t.NumLocs)
	var tab texttab.Table
	tab.Row().Cell("call path").Cell("sum").Cell("mean").Cell("").Cell("min").Cell("max").Cell("imbalance")
	for _, r := range rows {
		s := r.Summary
		tab.Row().Cell(r.Path).
			Cell(sc.FormatUnit(s.Sum, t.Unit), texttab.Right).
			Cell(sc.FormatUnit(s.Mean, t.Unit), texttab.Right).
			Cell("±"+s.PctRangeString()).
			Cell(sc.FormatUnit(s.Min, t.Unit), texttab.Right).
			Cell(sc.FormatUnit(s.Max, t.Unit), texttab.Right).
			Cell(fmt.Sprintf("%.0f%%", 100*s.Imbalance()), texttab.Right)
		warnings = rowWarnings(t, r, s.Warnings, warnings)
	}
	tab.Format(w)
	return warnings
}

// formatComparison writes the comparison of the top n rows of old
// with the matching rows of new to w and returns the warnings about
// them.
func formatComparison(w io.Writer, old, new *table, n int, alpha float64) (warnings []string) {
	rows := old.top(n)
	var vals []float64
	for _, r := range rows {
		vals = append(vals, r.Summary.Mean)
		if nr := new.byPath[r.Path]; nr != nil {
			vals = append(vals, nr.Summary.Mean)
		}
	}
	sc := old.scaler(vals)

	fmt.Fprintf(w, "metric: %s (%s)\n\n", old.Metric, old.Unit)
	var tab texttab.Table
	tab.Row().Cell("call path").Cell("old mean").Cell("new mean").Cell("delta").Cell("")
	for _, r := range rows {
		tab.Row().Cell(r.Path).Cell(sc.FormatUnit(r.Summary.Mean, old.Unit), texttab.Right)
		nr := new.byPath[r.Path]
		if nr == nil {
			tab.Cell("-", texttab.Right).Cell("-", texttab.Right)
			warnings = append(warnings, fmt.Sprintf("%s: %s: no such call path", new.File, r.Path))
			continue
		}
		cmp := cubemath.Compare(r.Sample, nr.Sample, alpha)
		tab.Cell(sc.FormatUnit(nr.Summary.Mean, new.Unit), texttab.Right).
			Cell(cmp.FormatDelta(r.Summary.Mean, nr.Summary.Mean), texttab.Right).
			Cell("(" + cmp.String() + ")")
		warnings = rowWarnings(old, r, cmp.Warnings, warnings)
	}
	tab.Format(w)
	return warnings
}
