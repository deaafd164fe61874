// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/perftools/cube/cube"
	"github.com/perftools/cube/cubeunit"
	"github.com/perftools/cube/internal/texttab"
)

// A dump is the printable form of one cube.
type dump struct {
	Path    string
	Version string
	Attrs   []line

	// Metric is the unique name of the metric shown in the call
	// tree, and Unit its tidied unit.
	Metric, Unit string
	NumLocs      int

	Metrics    []line
	Calls      []line
	System     []line
	Topologies []line
}

// A line is one row of a dump section. Depth is the nesting depth in
// its tree.
type line struct {
	Depth  int
	Name   string
	Fields []string
}

// Indent returns the indentation of l in the HTML output.
func (l line) Indent() string {
	return strings.Repeat("\u00a0\u00a0", l.Depth)
}

func newDump(path string, c *cube.Cube, metric string) (*dump, error) {
	d := &dump{Path: path, Version: c.Version, NumLocs: len(c.Locations())}

	keys := make([]string, 0, len(c.Attrs))
	for k := range c.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d.Attrs = append(d.Attrs, line{Name: k, Fields: []string{c.Attrs[k]}})
	}

	m, err := selectMetric(c, metric)
	if err != nil {
		return nil, err
	}

	for _, root := range c.Metrics {
		root.Walk(func(mm *cube.Metric) {
			fields := []string{mm.DispName, mm.UOM, mm.Kind.String()}
			if mm.Viz == cube.Ghost {
				fields = append(fields, mm.Viz.String())
			}
			if mm.IsVoid() {
				fields = append(fields, "void")
			}
			d.Metrics = append(d.Metrics, line{depth(mm), mm.UniqName, fields})
		})
	}

	if m != nil {
		d.Metric = m.UniqName
		d.Calls = callLines(c, m, &d.Unit)
	} else {
		for _, root := range c.Cnodes {
			root.Walk(func(n *cube.Cnode) {
				d.Calls = append(d.Calls, line{n.Depth(), n.Callee.Name, []string{cnodeLabel(n)}})
			})
		}
	}

	for _, root := range c.SystemTree {
		root.Walk(func(s *cube.SystemTreeNode) {
			depth := 0
			for p := s.Parent; p != nil; p = p.Parent {
				depth++
			}
			d.System = append(d.System, line{depth, s.Name, []string{s.Class}})
			for _, g := range s.Groups {
				d.System = append(d.System, line{depth + 1, g.Name, []string{g.Type, "rank " + strconv.Itoa(g.Rank)}})
				for _, l := range g.Locations {
					d.System = append(d.System, line{depth + 2, l.Name, []string{l.Type, "rank " + strconv.Itoa(l.Rank), "location " + strconv.Itoa(l.ID)}})
				}
			}
		})
	}

	for _, t := range c.Topologies {
		var dims []string
		for _, dim := range t.Dims {
			s := strconv.Itoa(dim.Size)
			if dim.Name != "" {
				s = dim.Name + "=" + s
			}
			if dim.Periodic {
				s += " periodic"
			}
			dims = append(dims, s)
		}
		d.Topologies = append(d.Topologies, line{0, t.Name, []string{strings.Join(dims, ", "), fmt.Sprintf("%d coordinates", len(t.Coords))}})
	}
	return d, nil
}

// selectMetric returns the metric named uniqName, or if uniqName is
// empty, the first metric that is not void. It returns nil if the cube
// has no such metric.
func selectMetric(c *cube.Cube, uniqName string) (*cube.Metric, error) {
	if uniqName != "" {
		m := c.MetricByName(uniqName)
		if m == nil {
			return nil, fmt.Errorf("no metric %q", uniqName)
		}
		return m, nil
	}
	for _, m := range c.AllMetrics() {
		if !m.IsVoid() {
			return m, nil
		}
	}
	return nil, nil
}

func depth(m *cube.Metric) int {
	d := 0
	for p := m.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// cnodeLabel identifies n in the call tree.
func cnodeLabel(n *cube.Cnode) string {
	if n.Synthetic() {
		return fmt.Sprintf("iteration %d", n.Iteration)
	}
	if n.Line >= 0 {
		return fmt.Sprintf("cnode %d, line %d", n.ID, n.Line)
	}
	return fmt.Sprintf("cnode %d", n.ID)
}

// callLines returns the call tree annotated with the sum of m over all
// locations. It stores the tidied unit of the sums in unit.
func callLines(c *cube.Cube, m *cube.Metric, unit *string) []line {
	var nodes []*cube.Cnode
	var sums []float64
	var present []bool
	for _, root := range c.Cnodes {
		root.Walk(func(n *cube.Cnode) {
			var sum float64
			found := false
			for _, l := range c.Locations() {
				if v, ok := c.DeclusteredSeverity(m, n, l); ok {
					sum += v
					found = true
				}
			}
			nodes = append(nodes, n)
			sums = append(sums, sum)
			present = append(present, found)
		})
	}
	var scaled []float64
	for i, s := range sums {
		if present[i] {
			scaled = append(scaled, s)
		}
	}
	scaler, tidied := cubeunit.ForUnit(scaled, m.UOM)
	*unit = tidied

	lines := make([]line, len(nodes))
	j := 0
	for i, n := range nodes {
		val := "-"
		if present[i] {
			val = scaler.FormatUnit(scaled[j], tidied)
			j++
		}
		lines[i] = line{n.Depth(), n.Callee.Name, []string{cnodeLabel(n), val}}
	}
	return lines
}

func (d *dump) formatText(w io.Writer) error {
	fmt.Fprintf(w, "file %s, version %s\n", d.Path, d.Version)
	// If values is set, the last field of each line is
	// right-aligned.
	section := func(title string, lines []line, values bool) error {
		if len(lines) == 0 {
			return nil
		}
		fmt.Fprintf(w, "\n%s:\n", title)
		var tab texttab.Table
		for _, l := range lines {
			tab.Row().Cell(strings.Repeat("  ", l.Depth+1) + l.Name)
			for i, f := range l.Fields {
				if values && i == len(l.Fields)-1 {
					tab.Cell(f, texttab.Right)
				} else {
					tab.Cell(f)
				}
			}
		}
		return tab.Format(w)
	}
	calls := "call tree"
	if d.Metric != "" {
		calls = fmt.Sprintf("call tree (%s summed over %d locations)", d.Metric, d.NumLocs)
	}
	for _, s := range []struct {
		title  string
		lines  []line
		values bool
	}{
		{"attributes", d.Attrs, false},
		{"metrics", d.Metrics, false},
		{calls, d.Calls, d.Metric != ""},
		{"system tree", d.System, false},
		{"topologies", d.Topologies, false},
	} {
		if err := section(s.title, s.lines, s.values); err != nil {
			return err
		}
	}
	return nil
}
