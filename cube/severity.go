// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cube

import "math"

// Severity is the sparse (metric, cnode, location) -> value store.
//
// Values are held one row per (metric, cnode) pair. Row index i holds
// the value of the i'th location in ascending id order. A row may be
// shorter than the number of locations; the trailing locations have
// no value.
type Severity struct {
	rows  map[rowKey][]float64
	order []rowKey
}

type rowKey struct {
	metric, cnode int
}

func newSeverity() *Severity {
	return &Severity{rows: make(map[rowKey][]float64)}
}

// Value returns the value at (metric, cnode, location index) and
// whether it is present.
func (s *Severity) Value(metric, cnode, loc int) (float64, bool) {
	row, ok := s.rows[rowKey{metric, cnode}]
	if !ok || loc < 0 || loc >= len(row) {
		return 0, false
	}
	return row[loc], true
}

// Row returns the stored values of one (metric, cnode) pair, or nil.
// The caller must not modify the result.
func (s *Severity) Row(metric, cnode int) []float64 {
	return s.rows[rowKey{metric, cnode}]
}

// Len returns the number of stored rows.
func (s *Severity) Len() int {
	return len(s.rows)
}

// Rows calls fn for every stored row in insertion order.
func (s *Severity) Rows(fn func(metric, cnode int, values []float64)) {
	for _, k := range s.order {
		fn(k.metric, k.cnode, s.rows[k])
	}
}

// SeverityOf returns the value of metric m at cnode n on location l.
func (c *Cube) SeverityOf(m *Metric, n *Cnode, l *Location) (float64, bool) {
	return c.sev.Value(m.ID, n.ID, l.ID)
}

// Row returns the values of metric m at cnode n for every location,
// in ascending location id order. Missing values are NaN.
func (c *Cube) Row(m *Metric, n *Cnode) []float64 {
	out := make([]float64, c.locations.Count())
	stored := c.sev.Row(m.ID, n.ID)
	for i := range out {
		if i < len(stored) {
			out[i] = stored[i]
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}
