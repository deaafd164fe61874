// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cube

import "fmt"

// A MetricKind says how the values of a metric are obtained and
// aggregated along the call tree.
type MetricKind int

const (
	Exclusive MetricKind = iota
	Inclusive
	Simple
	Postderived
	PrederivedInclusive
	PrederivedExclusive
)

var metricKindNames = [...]string{
	Exclusive:           "EXCLUSIVE",
	Inclusive:           "INCLUSIVE",
	Simple:              "SIMPLE",
	Postderived:         "POSTDERIVED",
	PrederivedInclusive: "PREDERIVED_INCLUSIVE",
	PrederivedExclusive: "PREDERIVED_EXCLUSIVE",
}

func (k MetricKind) String() string {
	if k >= 0 && int(k) < len(metricKindNames) {
		return metricKindNames[k]
	}
	return fmt.Sprintf("MetricKind(%d)", int(k))
}

// ParseMetricKind parses the file spelling of a metric kind.
func ParseMetricKind(s string) (MetricKind, bool) {
	for k, name := range metricKindNames {
		if name == s {
			return MetricKind(k), true
		}
	}
	return 0, false
}

// Derived reports whether values of this kind are computed from a
// CubePL expression rather than stored.
func (k MetricKind) Derived() bool {
	return k == Postderived || k == PrederivedInclusive || k == PrederivedExclusive
}

// A VizKind says whether a metric is shown to users.
type VizKind int

const (
	Normal VizKind = iota
	Ghost
)

func (v VizKind) String() string {
	switch v {
	case Normal:
		return "NORMAL"
	case Ghost:
		return "GHOST"
	}
	return fmt.Sprintf("VizKind(%d)", int(v))
}

// ParseVizKind parses the file spelling of a visualization kind.
func ParseVizKind(s string) (VizKind, bool) {
	switch s {
	case "NORMAL":
		return Normal, true
	case "GHOST":
		return Ghost, true
	}
	return 0, false
}

// VoidValue is the Val of a metric whose severities are not stored.
const VoidValue = "VOID"

// A Metric is one node of the metric tree.
type Metric struct {
	ID       int
	DispName string
	UniqName string
	DType    string // value datatype, e.g. "FLOAT" or "UINT64"
	UOM      string // unit of measure, e.g. "sec" or "bytes"
	Val      string // visibility value; VoidValue discards severities
	URL      string
	Descr    string

	Kind        MetricKind
	Viz         VizKind
	Convertible bool
	Cacheable   bool

	// Expr and InitExpr are the CubePL value and initialization
	// expressions of a derived metric. RowWise is the "rowwise"
	// flag of the value expression.
	Expr     string
	InitExpr string
	RowWise  bool

	// Aggregation expressions.
	AggrPlusExpr  string
	AggrMinusExpr string
	AggrAggrExpr  string

	Attrs map[string]string

	Parent   *Metric
	Children []*Metric
}

// IsVoid reports whether m or one of its ancestors has the value
// VoidValue.
func (m *Metric) IsVoid() bool {
	for ; m != nil; m = m.Parent {
		if m.Val == VoidValue {
			return true
		}
	}
	return false
}

// Walk calls fn for m and every descendant of m in depth-first
// pre-order.
func (m *Metric) Walk(fn func(*Metric)) {
	fn(m)
	for _, c := range m.Children {
		c.Walk(fn)
	}
}
