// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cubefmt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/perftools/cube/cube"
)

// actions are the callbacks of a grammar state. open runs after the
// start tag, commit defines the entity of an element in the builder,
// and close runs at the end tag, after commit.
type actions struct {
	open   func(p *parseContext, f *frame) error
	commit func(p *parseContext, f *frame) error
	close  func(p *parseContext, f *frame) error
}

var actionTable = [numStates]actions{
	sCube:          {open: (*parseContext).openCube, close: (*parseContext).closeCube},
	sAttr:          {open: (*parseContext).openAttr},
	sMurl:          {close: (*parseContext).closeMurl},
	sMetrics:       {open: (*parseContext).openMetrics, close: (*parseContext).closeSection},
	sMetric:        {open: openID, commit: (*parseContext).commitMetric, close: (*parseContext).closeMetric},
	sExpr:          {close: (*parseContext).closeExpr},
	sField:         {close: (*parseContext).closeField},
	sProgram:       {open: (*parseContext).openProgram, close: (*parseContext).closeSection},
	sRegion:        {open: openID, commit: (*parseContext).commitRegion},
	sCnode:         {open: openID, commit: (*parseContext).commitCnode, close: (*parseContext).closeCnode},
	sParameter:     {open: (*parseContext).openParameter},
	sSystem:        {open: (*parseContext).openSystem, close: (*parseContext).closeSection},
	sSTN:           {open: (*parseContext).openSTN, commit: (*parseContext).commitSTN, close: (*parseContext).closeSTN},
	sLocationGroup: {open: openID, commit: (*parseContext).commitLocationGroup, close: (*parseContext).closeGroup},
	sLocation:      {open: openID, commit: (*parseContext).commitLocation},
	sMachine:       {open: (*parseContext).openMachine, commit: (*parseContext).commitMachine, close: (*parseContext).closeSTN},
	sNode:          {open: openID, commit: (*parseContext).commitNode, close: (*parseContext).closeSTN},
	sProcess:       {open: openID, commit: (*parseContext).commitProcess, close: (*parseContext).closeGroup},
	sThread:        {open: openID, commit: (*parseContext).commitThread},
	sTopologies:    {close: (*parseContext).closeSection},
	sCart:          {open: (*parseContext).openCart, commit: (*parseContext).commitCart, close: (*parseContext).closeCart},
	sDim:           {open: (*parseContext).openDim},
	sCoord:         {close: (*parseContext).closeCoord},
	sSeverity:      {close: (*parseContext).closeSection},
	sMatrix:        {open: (*parseContext).openMatrix},
	sRow:           {open: openRow, close: (*parseContext).closeRow},
	sDoc:           {close: (*parseContext).closeSection},
}

// Attribute helpers.

func attrString(f *frame, name string) (string, error) {
	v, ok := f.attrs[name]
	if !ok {
		return "", structuref("missing attribute %q on <%s>", name, f.tag)
	}
	return v, nil
}

func attrInt(f *frame, name string) (int, error) {
	v, err := attrString(f, name)
	if err != nil {
		return 0, err
	}
	return parseInt(f, name, v)
}

// optInt returns the integer attribute name, or def if it is absent.
func optInt(f *frame, name string, def int) (int, error) {
	v, ok := f.attrs[name]
	if !ok {
		return def, nil
	}
	return parseInt(f, name, v)
}

// optBool returns the boolean attribute name, or def if it is absent.
func optBool(f *frame, name string, def bool) (bool, error) {
	v, ok := f.attrs[name]
	if !ok {
		return def, nil
	}
	switch strings.TrimSpace(v) {
	case "true", "TRUE", "yes", "1":
		return true, nil
	case "false", "FALSE", "no", "0":
		return false, nil
	}
	return false, structuref("attribute %q on <%s> is %q, want true or false", name, f.tag, v)
}

func parseInt(f *frame, name, v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, structuref("attribute %q on <%s> is %q, want an integer", name, f.tag, v)
	}
	return n, nil
}

// fieldInt returns the integer text of field child name.
func fieldInt(f *frame, name string) (int, error) {
	v := f.fields[name]
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, structuref("<%s> of <%s> is %q, want an integer", name, f.tag, v)
	}
	return n, nil
}

func openID(p *parseContext, f *frame) (err error) {
	f.id, err = attrInt(f, "id")
	return err
}

func openRow(p *parseContext, f *frame) (err error) {
	f.id, err = attrInt(f, "cnodeId")
	return err
}

// Top level.

func (p *parseContext) openCube(f *frame) error {
	v, err := attrString(f, "version")
	if err != nil {
		return err
	}
	return p.b.SetVersion(v)
}

func (p *parseContext) closeCube(f *frame) error {
	c, err := p.b.Seal()
	if err != nil {
		return err
	}
	p.cube, p.done = c, true
	p.r.setProgress(1)
	return nil
}

// closeSection records the end of a top-level section.
func (p *parseContext) closeSection(f *frame) error {
	if parent := p.parent(); parent.state == sCube {
		if prod, ok := lookup(sCube, f.tag); ok {
			p.r.setProgress(float64(prod.rank+1) / float64(len(grammar[sCube])))
		}
	}
	return nil
}

func (p *parseContext) openAttr(f *frame) error {
	key, err := attrString(f, "key")
	if err != nil {
		return err
	}
	value, err := attrString(f, "value")
	if err != nil {
		return err
	}
	parent := p.parent()
	if !parent.setKV(key, value) {
		return structuref("duplicate attribute key %q in <%s>", key, parent.tag)
	}
	if parent.state == sCube {
		p.b.SetAttr(key, value)
	}
	return nil
}

func (p *parseContext) closeMurl(f *frame) error {
	p.b.AddMirror(strings.TrimSpace(f.text.String()))
	return nil
}

func (p *parseContext) closeField(f *frame) error {
	parent := p.parent()
	if parent.fields == nil {
		parent.fields = make(map[string]string)
	}
	parent.fields[f.tag] = f.text.String()
	return nil
}

// Metrics.

func (p *parseContext) openMetrics(f *frame) error {
	p.b.SetMetricsTitle(f.attrs["title"])
	return nil
}

func (p *parseContext) closeExpr(f *frame) error {
	parent := p.parent()
	if parent.exprs == nil {
		parent.exprs = make(map[string]string)
	}
	key := f.tag
	switch f.tag {
	case "cubepl":
		rw, err := optBool(f, "rowwise", true)
		if err != nil {
			return err
		}
		parent.exprs["rowwise"] = strconv.FormatBool(rw)
	case "cubeplaggr":
		t, err := attrString(f, "cubeplaggrtype")
		if err != nil {
			return err
		}
		switch t {
		case "PLUS", "MINUS", "AGGR":
		default:
			return rangef("unknown cubeplaggrtype %q", t)
		}
		key = t
		if _, ok := parent.exprs[key]; ok {
			return structuref("duplicate <cubeplaggr cubeplaggrtype=%q> in <metric>", t)
		}
	}
	parent.exprs[key] = strings.TrimSpace(f.text.String())
	return nil
}

func (p *parseContext) commitMetric(f *frame) error {
	m := cube.Metric{
		ID:       f.id,
		DispName: strings.TrimSpace(f.fields["disp_name"]),
		UniqName: strings.TrimSpace(f.fields["uniq_name"]),
		DType:    strings.TrimSpace(f.fields["dtype"]),
		UOM:      strings.TrimSpace(f.fields["uom"]),
		Val:      strings.TrimSpace(f.fields["val"]),
		URL:      strings.TrimSpace(f.fields["url"]),
		Descr:    strings.TrimSpace(f.fields["descr"]),
		Attrs:    f.kv,
	}
	if s, ok := f.attrs["type"]; ok {
		k, ok := cube.ParseMetricKind(s)
		if !ok {
			return rangef("metric %d has unknown type %q", f.id, s)
		}
		m.Kind = k
	}
	if s, ok := f.attrs["viztype"]; ok {
		v, ok := cube.ParseVizKind(s)
		if !ok {
			return rangef("metric %d has unknown viztype %q", f.id, s)
		}
		m.Viz = v
	}
	var err error
	if m.Convertible, err = optBool(f, "convertible", true); err != nil {
		return err
	}
	if m.Cacheable, err = optBool(f, "cacheable", true); err != nil {
		return err
	}
	if m.UniqName == "" {
		return rangef("metric %d has an empty unique name", f.id)
	}
	m.Expr = f.exprs["cubepl"]
	m.InitExpr = f.exprs["cubeplinit"]
	m.RowWise = f.exprs["rowwise"] != "false"
	m.AggrPlusExpr = f.exprs["PLUS"]
	m.AggrMinusExpr = f.exprs["MINUS"]
	m.AggrAggrExpr = f.exprs["AGGR"]
	if _, err := p.b.DefineMetric(m, peek(p.metricStack)); err != nil {
		return err
	}
	p.metricStack = push(p.metricStack, f.id)
	return nil
}

func (p *parseContext) closeMetric(f *frame) error {
	p.metricStack = pop(p.metricStack)
	return nil
}

// Program.

func (p *parseContext) openProgram(f *frame) error {
	p.b.SetProgramTitle(f.attrs["title"])
	return nil
}

func (p *parseContext) commitRegion(f *frame) error {
	r := cube.Region{
		ID:          f.id,
		Name:        strings.TrimSpace(f.fields["name"]),
		MangledName: strings.TrimSpace(f.fields["mangled_name"]),
		Paradigm:    strings.TrimSpace(f.fields["paradigm"]),
		Role:        strings.TrimSpace(f.fields["role"]),
		URL:         strings.TrimSpace(f.fields["url"]),
		Descr:       strings.TrimSpace(f.fields["descr"]),
		Mod:         f.attrs["mod"],
		Attrs:       f.kv,
	}
	var err error
	if r.Begin, err = optInt(f, "begin", -1); err != nil {
		return err
	}
	if r.End, err = optInt(f, "end", -1); err != nil {
		return err
	}
	_, err = p.b.DefineRegion(r)
	return err
}

func (p *parseContext) commitCnode(f *frame) error {
	callee, err := attrInt(f, "calleeId")
	if err != nil {
		return err
	}
	n := cube.Cnode{
		ID:        f.id,
		Mod:       f.attrs["mod"],
		NumParams: f.numParams,
		StrParams: f.strParams,
		Attrs:     f.kv,
	}
	if n.Line, err = optInt(f, "line", -1); err != nil {
		return err
	}
	if _, err := p.b.DefineCnode(n, callee, peek(p.cnodeStack)); err != nil {
		return err
	}
	p.cnodeStack = push(p.cnodeStack, f.id)
	return nil
}

func (p *parseContext) closeCnode(f *frame) error {
	p.cnodeStack = pop(p.cnodeStack)
	return nil
}

func (p *parseContext) openParameter(f *frame) error {
	typ, err := attrString(f, "partype")
	if err != nil {
		return err
	}
	key, err := attrString(f, "parkey")
	if err != nil {
		return err
	}
	value, err := attrString(f, "parvalue")
	if err != nil {
		return err
	}
	n := p.parent()
	if _, ok := n.numParams[key]; ok {
		return structuref("duplicate parameter %q in cnode %d", key, n.id)
	}
	if _, ok := n.strParams[key]; ok {
		return structuref("duplicate parameter %q in cnode %d", key, n.id)
	}
	switch typ {
	case "numeric":
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return structuref("numeric parameter %q of cnode %d is %q", key, n.id, value)
		}
		if n.numParams == nil {
			n.numParams = make(map[string]float64)
		}
		n.numParams[key] = v
	case "string":
		if n.strParams == nil {
			n.strParams = make(map[string]string)
		}
		n.strParams[key] = value
	default:
		return rangef("parameter %q of cnode %d has unknown type %q", key, n.id, typ)
	}
	return nil
}

// System.

func (p *parseContext) openSystem(f *frame) error {
	p.b.SetSystemTitle(f.attrs["title"])
	return nil
}

// setStyle records the system nesting used by the file.
func (p *parseContext) setStyle(s systemStyle, tag string) error {
	if p.style != styleUnknown && p.style != s {
		return structuref("<%s> mixes legacy machine/node/process/thread and systemtreenode nesting", tag)
	}
	p.style = s
	return nil
}

func (p *parseContext) openSTN(f *frame) error {
	if err := p.setStyle(styleModern, f.tag); err != nil {
		return err
	}
	return openID(p, f)
}

func (p *parseContext) commitSTN(f *frame) error {
	s := cube.SystemTreeNode{
		ID:    f.id,
		Name:  strings.TrimSpace(f.fields["name"]),
		Class: strings.TrimSpace(f.fields["class"]),
		Descr: strings.TrimSpace(f.fields["descr"]),
		Attrs: f.kv,
	}
	if _, err := p.b.DefineSystemTreeNode(s, peek(p.stnStack)); err != nil {
		return err
	}
	p.stnStack = push(p.stnStack, f.id)
	return nil
}

func (p *parseContext) closeSTN(f *frame) error {
	p.stnStack = pop(p.stnStack)
	return nil
}

func (p *parseContext) commitLocationGroup(f *frame) error {
	g := cube.LocationGroup{
		ID:    f.id,
		Name:  strings.TrimSpace(f.fields["name"]),
		Type:  strings.TrimSpace(f.fields["type"]),
		Attrs: f.kv,
	}
	var err error
	if g.Rank, err = fieldInt(f, "rank"); err != nil {
		return err
	}
	if _, err := p.b.DefineLocationGroup(g, peek(p.stnStack)); err != nil {
		return err
	}
	p.groupStack = push(p.groupStack, f.id)
	return nil
}

func (p *parseContext) closeGroup(f *frame) error {
	p.groupStack = pop(p.groupStack)
	return nil
}

func (p *parseContext) commitLocation(f *frame) error {
	l := cube.Location{
		ID:    f.id,
		Name:  strings.TrimSpace(f.fields["name"]),
		Type:  strings.TrimSpace(f.fields["type"]),
		Attrs: f.kv,
	}
	var err error
	if l.Rank, err = fieldInt(f, "rank"); err != nil {
		return err
	}
	_, err = p.b.DefineLocation(l, peek(p.groupStack))
	return err
}

// Legacy system nesting.

func (p *parseContext) openMachine(f *frame) error {
	if err := p.setStyle(styleLegacy, f.tag); err != nil {
		return err
	}
	return openID(p, f)
}

// defineLegacySTN defines a system tree node for a machine or node
// whose file id is recorded in ids.
func (p *parseContext) defineLegacySTN(f *frame, ids *cube.Registry[int], class string) error {
	stn := p.nextSTN
	if err := ids.Insert(f.id, stn); err != nil {
		return err
	}
	p.nextSTN++
	s := cube.SystemTreeNode{
		ID:    stn,
		Name:  strings.TrimSpace(f.fields["name"]),
		Class: class,
		Descr: strings.TrimSpace(f.fields["descr"]),
	}
	if _, err := p.b.DefineSystemTreeNode(s, peek(p.stnStack)); err != nil {
		return err
	}
	p.stnStack = push(p.stnStack, stn)
	return nil
}

func (p *parseContext) commitMachine(f *frame) error {
	return p.defineLegacySTN(f, p.machines, "machine")
}

func (p *parseContext) commitNode(f *frame) error {
	return p.defineLegacySTN(f, p.nodes, "node")
}

func (p *parseContext) commitProcess(f *frame) error {
	g := cube.LocationGroup{
		ID:   f.id,
		Name: strings.TrimSpace(f.fields["name"]),
		Type: cube.GroupProcess,
	}
	var err error
	if g.Rank, err = fieldInt(f, "rank"); err != nil {
		return err
	}
	if g.Name == "" {
		g.Name = fmt.Sprintf("Process %d", g.Rank)
	}
	if _, err := p.b.DefineLocationGroup(g, peek(p.stnStack)); err != nil {
		return err
	}
	p.groupStack = push(p.groupStack, f.id)
	return nil
}

func (p *parseContext) commitThread(f *frame) error {
	l := cube.Location{
		ID:   f.id,
		Name: strings.TrimSpace(f.fields["name"]),
		Type: cube.LocationThread,
	}
	var err error
	if l.Rank, err = fieldInt(f, "rank"); err != nil {
		return err
	}
	if l.Name == "" {
		l.Name = fmt.Sprintf("Thread %d", l.Rank)
	}
	_, err = p.b.DefineLocation(l, peek(p.groupStack))
	return err
}

// Topologies.

func (p *parseContext) openCart(f *frame) (err error) {
	f.id, err = attrInt(f, "ndims")
	if err == nil && f.id <= 0 {
		err = rangef("topology has %d dimensions", f.id)
	}
	return err
}

func (p *parseContext) openDim(f *frame) error {
	size, err := attrInt(f, "size")
	if err != nil {
		return err
	}
	periodic, err := optBool(f, "periodic", false)
	if err != nil {
		return err
	}
	cart := p.parent()
	cart.dims = append(cart.dims, cube.Dim{Size: size, Periodic: periodic, Name: f.attrs["name"]})
	return nil
}

func (p *parseContext) commitCart(f *frame) error {
	if len(f.dims) != f.id {
		return rangef("topology declares %d dimensions but has %d <dim> elements", f.id, len(f.dims))
	}
	c, err := p.b.DefineCartesian(f.attrs["name"], f.dims)
	if err != nil {
		return err
	}
	p.cart = c
	return nil
}

func (p *parseContext) closeCart(f *frame) error {
	p.cart = nil
	return nil
}

// coordResources are the attributes naming the resource of a <coord>.
var coordResources = []string{"locId", "lgId", "stnId", "thrdId", "procId", "nodeId", "machId"}

func (p *parseContext) closeCoord(f *frame) error {
	var name string
	for _, r := range coordResources {
		if _, ok := f.attrs[r]; !ok {
			continue
		}
		if name != "" {
			return structuref("<coord> has both %q and %q", name, r)
		}
		name = r
	}
	if name == "" {
		return structuref("<coord> names no resource")
	}
	id, err := attrInt(f, name)
	if err != nil {
		return err
	}
	var kind cube.ResourceKind
	switch name {
	case "locId", "thrdId":
		kind = cube.ResourceLocation
	case "lgId", "procId":
		kind = cube.ResourceLocationGroup
	case "stnId":
		kind = cube.ResourceSystemTreeNode
	case "machId", "nodeId":
		ids := p.machines
		if name == "nodeId" {
			ids = p.nodes
		}
		if id, err = ids.Lookup(id); err != nil {
			return err
		}
		kind = cube.ResourceSystemTreeNode
	}
	coords, err := parseInts(f.text.String())
	if err != nil {
		return err
	}
	return p.b.AssignCoordinates(p.cart, kind, id, coords)
}

// Severity.

func (p *parseContext) openMatrix(f *frame) error {
	id, err := attrInt(f, "metricId")
	if err != nil {
		return err
	}
	if !p.b.HasMetric(id) {
		return reff("severity matrix for undefined metric %d", id)
	}
	p.matrixMetric = id
	return nil
}

func (p *parseContext) closeRow(f *frame) error {
	if !p.b.HasCnode(f.id) {
		return reff("severity row for undefined cnode %d", f.id)
	}
	values, err := parseFloats(f.text.String())
	if err != nil {
		return err
	}
	return p.b.SetSeverityRow(p.matrixMetric, f.id, values)
}

func isSep(r rune) bool {
	return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// parseInts parses integers separated by white space and/or commas.
func parseInts(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, isSep)
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, structuref("bad coordinate %q", f)
		}
		out[i] = v
	}
	return out, nil
}

// parseFloats parses numbers separated by white space and/or commas.
func parseFloats(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, isSep)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, structuref("bad severity value %q", f)
		}
		out[i] = v
	}
	return out, nil
}
