// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cubefmt

import (
	"bytes"
	"encoding/xml"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/perftools/cube/cube"
)

// WriteVersion is the format version written by Writer.
const WriteVersion = "4.5"

// A Writer writes cubes in the anchor format.
//
// The system dimension is always written with systemtreenode nesting,
// whatever the version of the input. Entities synthesized by
// declustering are not written; a clustered cube is written with its
// literal cluster subtrees, so reading the output declusters it
// again.
type Writer struct {
	w     io.Writer
	buf   bytes.Buffer
	depth int
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes c as a complete anchor document.
func (w *Writer) Write(c *cube.Cube) error {
	w.buf.Reset()
	w.depth = 0
	w.buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	w.open("cube", "version", WriteVersion)
	w.attrs(c.Attrs)
	if len(c.Mirrors) > 0 {
		w.open("doc")
		w.open("mirrors")
		for _, m := range c.Mirrors {
			w.field("murl", m)
		}
		w.close("mirrors")
		w.close("doc")
	}

	w.open("metrics", optional("title", c.MetricsTitle)...)
	for _, m := range c.Metrics {
		w.writeMetric(m)
	}
	w.close("metrics")

	w.open("program", optional("title", c.ProgramTitle)...)
	for _, r := range c.Regions() {
		if !r.Synthetic {
			w.writeRegion(r)
		}
	}
	for _, n := range c.Cnodes {
		w.writeCnode(c, n)
	}
	w.close("program")

	w.open("system", optional("title", c.SystemTitle)...)
	for _, s := range c.SystemTree {
		w.writeSTN(s)
	}
	w.close("system")

	if len(c.Topologies) > 0 {
		w.open("topologies")
		for _, t := range c.Topologies {
			w.writeCart(t)
		}
		w.close("topologies")
	}

	w.writeSeverity(c.Severity())
	w.close("cube")

	_, err := w.w.Write(w.buf.Bytes())
	w.buf.Reset()
	return err
}

func (w *Writer) writeMetric(m *cube.Metric) {
	kv := []string{"id", strconv.Itoa(m.ID), "type", m.Kind.String()}
	if m.Viz != cube.Normal {
		kv = append(kv, "viztype", m.Viz.String())
	}
	if !m.Convertible {
		kv = append(kv, "convertible", "false")
	}
	if !m.Cacheable {
		kv = append(kv, "cacheable", "false")
	}
	w.open("metric", kv...)
	w.field("disp_name", m.DispName)
	w.field("uniq_name", m.UniqName)
	w.field("dtype", m.DType)
	w.field("uom", m.UOM)
	w.optField("val", m.Val)
	w.optField("url", m.URL)
	w.optField("descr", m.Descr)
	if m.Expr != "" {
		if m.RowWise {
			w.field("cubepl", m.Expr)
		} else {
			w.field("cubepl", m.Expr, "rowwise", "false")
		}
	}
	if m.InitExpr != "" {
		w.field("cubeplinit", m.InitExpr)
	}
	for _, a := range []struct{ typ, expr string }{
		{"PLUS", m.AggrPlusExpr},
		{"MINUS", m.AggrMinusExpr},
		{"AGGR", m.AggrAggrExpr},
	} {
		if a.expr != "" {
			w.field("cubeplaggr", a.expr, "cubeplaggrtype", a.typ)
		}
	}
	w.attrs(m.Attrs)
	for _, c := range m.Children {
		w.writeMetric(c)
	}
	w.close("metric")
}

func (w *Writer) writeRegion(r *cube.Region) {
	kv := []string{"id", strconv.Itoa(r.ID), "mod", r.Mod, "begin", strconv.Itoa(r.Begin), "end", strconv.Itoa(r.End)}
	w.open("region", kv...)
	w.field("name", r.Name)
	w.optField("mangled_name", r.MangledName)
	w.optField("paradigm", r.Paradigm)
	w.optField("role", r.Role)
	w.optField("url", r.URL)
	w.optField("descr", r.Descr)
	w.attrs(r.Attrs)
	w.close("region")
}

func (w *Writer) writeCnode(c *cube.Cube, n *cube.Cnode) {
	kv := []string{"id", strconv.Itoa(n.ID), "calleeId", strconv.Itoa(n.Callee.ID)}
	if n.Line >= 0 {
		kv = append(kv, "line", strconv.Itoa(n.Line))
	}
	if n.Mod != "" {
		kv = append(kv, "mod", n.Mod)
	}
	children := n.Children
	if cl := c.Clustering; cl != nil && cl.Enabled && n == cl.Root {
		children = cl.ClusterOrder()
	}
	if len(children) == 0 && len(n.NumParams) == 0 && len(n.StrParams) == 0 && len(n.Attrs) == 0 {
		w.empty("cnode", kv...)
		return
	}
	w.open("cnode", kv...)
	for _, k := range sortedKeys(n.NumParams) {
		v := strconv.FormatFloat(n.NumParams[k], 'g', -1, 64)
		w.empty("parameter", "partype", "numeric", "parkey", k, "parvalue", v)
	}
	for _, k := range sortedKeys(n.StrParams) {
		w.empty("parameter", "partype", "string", "parkey", k, "parvalue", n.StrParams[k])
	}
	w.attrs(n.Attrs)
	for _, ch := range children {
		w.writeCnode(c, ch)
	}
	w.close("cnode")
}

func (w *Writer) writeSTN(s *cube.SystemTreeNode) {
	w.open("systemtreenode", "id", strconv.Itoa(s.ID))
	w.field("name", s.Name)
	w.field("class", s.Class)
	w.optField("descr", s.Descr)
	w.attrs(s.Attrs)
	for _, c := range s.Children {
		w.writeSTN(c)
	}
	for _, g := range s.Groups {
		w.open("locationgroup", "id", strconv.Itoa(g.ID))
		w.field("name", g.Name)
		w.field("rank", strconv.Itoa(g.Rank))
		w.field("type", g.Type)
		w.attrs(g.Attrs)
		for _, l := range g.Locations {
			w.open("location", "id", strconv.Itoa(l.ID))
			w.field("name", l.Name)
			w.field("rank", strconv.Itoa(l.Rank))
			w.field("type", l.Type)
			w.attrs(l.Attrs)
			w.close("location")
		}
		w.close("locationgroup")
	}
	w.close("systemtreenode")
}

var coordAttr = map[cube.ResourceKind]string{
	cube.ResourceLocation:       "locId",
	cube.ResourceLocationGroup:  "lgId",
	cube.ResourceSystemTreeNode: "stnId",
}

func (w *Writer) writeCart(t *cube.Cartesian) {
	w.open("cart", append(optional("name", t.Name), "ndims", strconv.Itoa(len(t.Dims)))...)
	for _, d := range t.Dims {
		kv := []string{"size", strconv.Itoa(d.Size), "periodic", strconv.FormatBool(d.Periodic)}
		w.empty("dim", append(kv, optional("name", d.Name)...)...)
	}
	for _, c := range t.Coords {
		vals := make([]string, len(c.Values))
		for i, v := range c.Values {
			vals[i] = strconv.Itoa(v)
		}
		w.field("coord", strings.Join(vals, " "), coordAttr[c.Kind], strconv.Itoa(c.ID))
	}
	w.close("cart")
}

func (w *Writer) writeSeverity(s *cube.Severity) {
	if s.Len() == 0 {
		return
	}
	// Group the rows by metric, keeping the order of first use.
	type row struct {
		cnode  int
		values []float64
	}
	var metrics []int
	rows := make(map[int][]row)
	s.Rows(func(metric, cnode int, values []float64) {
		if _, ok := rows[metric]; !ok {
			metrics = append(metrics, metric)
		}
		rows[metric] = append(rows[metric], row{cnode, values})
	})
	w.open("severity")
	for _, m := range metrics {
		w.open("matrix", "metricId", strconv.Itoa(m))
		for _, r := range rows[m] {
			vals := make([]string, len(r.values))
			for i, v := range r.values {
				vals[i] = strconv.FormatFloat(v, 'g', -1, 64)
			}
			w.field("row", strings.Join(vals, " "), "cnodeId", strconv.Itoa(r.cnode))
		}
		w.close("matrix")
	}
	w.close("severity")
}

// attrs writes key/value attributes in key order.
func (w *Writer) attrs(m map[string]string) {
	for _, k := range sortedKeys(m) {
		w.empty("attr", "key", k, "value", m[k])
	}
}

// optional returns the attribute key=value if value is non-empty.
func optional(key, value string) []string {
	if value == "" {
		return nil
	}
	return []string{key, value}
}

func (w *Writer) indent() {
	for i := 0; i < w.depth; i++ {
		w.buf.WriteString("  ")
	}
}

func (w *Writer) startTag(name string, kv []string) {
	w.indent()
	w.buf.WriteByte('<')
	w.buf.WriteString(name)
	for i := 0; i+1 < len(kv); i += 2 {
		w.buf.WriteByte(' ')
		w.buf.WriteString(kv[i])
		w.buf.WriteString(`="`)
		xml.EscapeText(&w.buf, []byte(kv[i+1]))
		w.buf.WriteByte('"')
	}
}

func (w *Writer) open(name string, kv ...string) {
	w.startTag(name, kv)
	w.buf.WriteString(">\n")
	w.depth++
}

func (w *Writer) close(name string) {
	w.depth--
	w.indent()
	w.buf.WriteString("</" + name + ">\n")
}

func (w *Writer) empty(name string, kv ...string) {
	w.startTag(name, kv)
	w.buf.WriteString("/>\n")
}

// field writes an element with text content on one line.
func (w *Writer) field(name, text string, kv ...string) {
	w.startTag(name, kv)
	w.buf.WriteByte('>')
	xml.EscapeText(&w.buf, []byte(text))
	w.buf.WriteString("</" + name + ">\n")
}

func (w *Writer) optField(name, text string) {
	if text != "" {
		w.field(name, text)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
