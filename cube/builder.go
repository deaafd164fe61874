// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cube

import (
	"strconv"
	"strings"
)

// A Builder constructs a Cube one entity at a time.
//
// Parents must be defined before their children. Every Define method
// validates its arguments, inserts the new entity into the registry
// of its kind, links it to its parent, and returns it. Errors are
// *Error values.
//
// The entity passed to a Define method is copied; its link fields
// (Parent, Children, and so on) are ignored.
type Builder struct {
	version string
	attrs   map[string]string
	mirrors []string

	metricsTitle, programTitle, systemTitle string

	metrics   *Registry[*Metric]
	regions   *Registry[*Region]
	cnodes    *Registry[*Cnode]
	stns      *Registry[*SystemTreeNode]
	groups    *Registry[*LocationGroup]
	locations *Registry[*Location]

	metricRoots []*Metric
	cnodeRoots  []*Cnode
	stnRoots    []*SystemTreeNode
	carts       []*Cartesian
	uniqNames   map[string]bool

	sev *Severity

	// clus is nil until the first cnode is defined, at which point
	// the top-level attributes decide whether the call tree is
	// clustered.
	clus *Clustering
	// clusWarn is set if clustering was requested but its root
	// cnode id is unusable.
	clusWarn error

	sealed bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		attrs:     make(map[string]string),
		metrics:   NewRegistry[*Metric]("metric"),
		regions:   NewRegistry[*Region]("region"),
		cnodes:    NewRegistry[*Cnode]("cnode"),
		stns:      NewRegistry[*SystemTreeNode]("system tree node"),
		groups:    NewRegistry[*LocationGroup]("location group"),
		locations: NewRegistry[*Location]("location"),
		uniqNames: make(map[string]bool),
		sev:       newSeverity(),
	}
}

// SetVersion records the format version. It fails with
// ErrUnsupportedVersion if v is not one of KnownVersions.
func (b *Builder) SetVersion(v string) error {
	if !IsKnownVersion(v) {
		return errorf(ErrUnsupportedVersion, "unsupported cube version %q", v)
	}
	b.version = v
	return nil
}

// SetAttr sets a top-level attribute. Later values replace earlier ones.
func (b *Builder) SetAttr(key, value string) {
	b.attrs[key] = value
}

// AddMirror appends a documentation mirror URL.
func (b *Builder) AddMirror(url string) {
	b.mirrors = append(b.mirrors, url)
}

// SetMetricsTitle, SetProgramTitle and SetSystemTitle set the
// optional dimension titles.
func (b *Builder) SetMetricsTitle(t string) { b.metricsTitle = t }
func (b *Builder) SetProgramTitle(t string) { b.programTitle = t }
func (b *Builder) SetSystemTitle(t string)  { b.systemTitle = t }

// DefineMetric defines m as a child of the metric with id parent, or
// as a root metric if parent is NoParent. Unique names must be
// unique across the whole metric tree.
func (b *Builder) DefineMetric(m Metric, parent int) (*Metric, error) {
	var p *Metric
	if parent != NoParent {
		var err error
		if p, err = b.metrics.Lookup(parent); err != nil {
			return nil, err
		}
	}
	if b.uniqNames[m.UniqName] {
		return nil, errorf(ErrReferentialIntegrity, "metric unique name %q already used", m.UniqName)
	}
	nm := new(Metric)
	*nm = m
	nm.Parent, nm.Children = p, nil
	if err := b.metrics.Insert(nm.ID, nm); err != nil {
		return nil, err
	}
	b.uniqNames[m.UniqName] = true
	if p == nil {
		b.metricRoots = append(b.metricRoots, nm)
	} else {
		p.Children = append(p.Children, nm)
	}
	return nm, nil
}

// DefineRegion defines r.
func (b *Builder) DefineRegion(r Region) (*Region, error) {
	if r.Begin < -1 || r.End < -1 {
		return nil, errorf(ErrRange, "region %d has negative source line", r.ID)
	}
	nr := new(Region)
	*nr = r
	nr.Synthetic = false
	if err := b.regions.Insert(nr.ID, nr); err != nil {
		return nil, err
	}
	return nr, nil
}

// DefineCnode defines n as a call of the region with id callee,
// below the cnode with id parent, or as a call-tree root if parent
// is NoParent.
//
// If the top-level attributes enable clustering, each direct child of
// the clustering root becomes the root of a literal cluster subtree:
// it is registered and remembers its parent, but it is kept out of
// the visible call tree until Seal declusters it.
func (b *Builder) DefineCnode(n Cnode, callee, parent int) (*Cnode, error) {
	if b.clus == nil {
		b.initClustering()
	}
	r, err := b.regions.Lookup(callee)
	if err != nil {
		return nil, err
	}
	var p *Cnode
	if parent != NoParent {
		if p, err = b.cnodes.Lookup(parent); err != nil {
			return nil, err
		}
	}
	if n.Line < -1 {
		return nil, errorf(ErrRange, "cnode %d has negative line %d", n.ID, n.Line)
	}
	nn := new(Cnode)
	*nn = n
	nn.Callee, nn.Parent, nn.Children, nn.Sources, nn.Iteration = r, p, nil, nil, -1
	if err := b.cnodes.Insert(nn.ID, nn); err != nil {
		return nil, err
	}
	switch {
	case p == nil:
		b.cnodeRoots = append(b.cnodeRoots, nn)
	case b.clus.Enabled && p.ID == b.clus.rootID:
		b.clus.order = append(b.clus.order, nn)
	default:
		p.Children = append(p.Children, nn)
	}
	return nn, nil
}

// DefineSystemTreeNode defines s below the system tree node with id
// parent, or as a system tree root if parent is NoParent.
func (b *Builder) DefineSystemTreeNode(s SystemTreeNode, parent int) (*SystemTreeNode, error) {
	var p *SystemTreeNode
	if parent != NoParent {
		var err error
		if p, err = b.stns.Lookup(parent); err != nil {
			return nil, err
		}
	}
	ns := new(SystemTreeNode)
	*ns = s
	ns.Parent, ns.Children, ns.Groups = p, nil, nil
	if err := b.stns.Insert(ns.ID, ns); err != nil {
		return nil, err
	}
	if p == nil {
		b.stnRoots = append(b.stnRoots, ns)
	} else {
		p.Children = append(p.Children, ns)
	}
	return ns, nil
}

// DefineLocationGroup defines g below the system tree node with id
// parent.
func (b *Builder) DefineLocationGroup(g LocationGroup, parent int) (*LocationGroup, error) {
	p, err := b.stns.Lookup(parent)
	if err != nil {
		return nil, err
	}
	if g.Rank < 0 {
		return nil, errorf(ErrRange, "location group %d has negative rank %d", g.ID, g.Rank)
	}
	if !validGroupType(g.Type) {
		return nil, errorf(ErrRange, "location group %d has unknown type %q", g.ID, g.Type)
	}
	ng := new(LocationGroup)
	*ng = g
	ng.Parent, ng.Locations = p, nil
	if err := b.groups.Insert(ng.ID, ng); err != nil {
		return nil, err
	}
	p.Groups = append(p.Groups, ng)
	return ng, nil
}

// DefineLocation defines l in the location group with id parent.
func (b *Builder) DefineLocation(l Location, parent int) (*Location, error) {
	p, err := b.groups.Lookup(parent)
	if err != nil {
		return nil, err
	}
	if l.Rank < 0 {
		return nil, errorf(ErrRange, "location %d has negative rank %d", l.ID, l.Rank)
	}
	if !validLocationType(l.Type) {
		return nil, errorf(ErrRange, "location %d has unknown type %q", l.ID, l.Type)
	}
	nl := new(Location)
	*nl = l
	nl.Parent = p
	if err := b.locations.Insert(nl.ID, nl); err != nil {
		return nil, err
	}
	p.Locations = append(p.Locations, nl)
	return nl, nil
}

// DefineCartesian defines a topology with the given dimensions.
// There must be at least one dimension and every size must be
// positive.
func (b *Builder) DefineCartesian(name string, dims []Dim) (*Cartesian, error) {
	if len(dims) == 0 {
		return nil, errorf(ErrRange, "topology %q has no dimensions", name)
	}
	for i, d := range dims {
		if d.Size <= 0 {
			return nil, errorf(ErrRange, "topology %q dimension %d has size %d", name, i, d.Size)
		}
	}
	c := &Cartesian{
		Name:  name,
		Dims:  append([]Dim(nil), dims...),
		index: make(map[resourceKey]int),
	}
	b.carts = append(b.carts, c)
	return c, nil
}

// AssignCoordinates places the resource (kind, id) in topology c.
// The resource must exist, must not already have coordinates in c,
// and coords must have one in-range value per dimension.
func (b *Builder) AssignCoordinates(c *Cartesian, kind ResourceKind, id int, coords []int) error {
	var err error
	switch kind {
	case ResourceLocation:
		_, err = b.locations.Lookup(id)
	case ResourceLocationGroup:
		_, err = b.groups.Lookup(id)
	case ResourceSystemTreeNode:
		_, err = b.stns.Lookup(id)
	default:
		panic("bad ResourceKind " + kind.String())
	}
	if err != nil {
		return err
	}
	if len(coords) != len(c.Dims) {
		return errorf(ErrRange, "%s %d has %d coordinates in topology %q, want %d", kind, id, len(coords), c.Name, len(c.Dims))
	}
	for i, v := range coords {
		if v < 0 || v >= c.Dims[i].Size {
			return errorf(ErrRange, "%s %d coordinate %d is %d, out of range [0, %d)", kind, id, i, v, c.Dims[i].Size)
		}
	}
	key := resourceKey{kind, id}
	if _, ok := c.index[key]; ok {
		return errorf(ErrReferentialIntegrity, "%s %d already has coordinates in topology %q", kind, id, c.Name)
	}
	c.index[key] = len(c.Coords)
	c.Coords = append(c.Coords, Coord{kind, id, append([]int(nil), coords...)})
	return nil
}

// SetSeverityRow stores the values of one (metric, cnode) pair, one
// value per location in ascending location id order.
//
// A row with more values than there are locations is an error. A
// shorter row is accepted; the remaining locations have no value.
// Rows of a void metric (see Metric.IsVoid) are dropped.
func (b *Builder) SetSeverityRow(metric, cnode int, values []float64) error {
	m, err := b.metrics.Lookup(metric)
	if err != nil {
		return err
	}
	if _, err := b.cnodes.Lookup(cnode); err != nil {
		return err
	}
	if m.IsVoid() {
		return nil
	}
	if n := b.locations.Count(); len(values) > n {
		return errorf(ErrRange, "severity row for metric %d, cnode %d has %d values, but there are only %d locations", metric, cnode, len(values), n)
	}
	key := rowKey{metric, cnode}
	if _, ok := b.sev.rows[key]; ok {
		return errorf(ErrReferentialIntegrity, "severity row for metric %d, cnode %d already set", metric, cnode)
	}
	b.sev.rows[key] = append([]float64(nil), values...)
	b.sev.order = append(b.sev.order, key)
	return nil
}

// HasMetric, HasCnode and HasLocation report whether an id has been
// defined.
func (b *Builder) HasMetric(id int) bool   { return b.metrics.Has(id) }
func (b *Builder) HasCnode(id int) bool    { return b.cnodes.Has(id) }
func (b *Builder) HasLocation(id int) bool { return b.locations.Has(id) }

// Seal checks the invariants that span the whole cube, declusters
// the call tree if the cube is clustered, and returns the finished
// Cube. The Builder must not be used afterwards.
func (b *Builder) Seal() (*Cube, error) {
	if b.sealed {
		return nil, errorf(ErrXMLStructure, "cube already sealed")
	}
	b.sealed = true
	if id, ok := b.locations.FirstGap(); ok {
		return nil, errorf(ErrRange, "location ids are not contiguous: id %d is missing below %d", id, b.locations.Span())
	}
	c := &Cube{
		Version:      b.version,
		Attrs:        b.attrs,
		Mirrors:      b.mirrors,
		MetricsTitle: b.metricsTitle,
		ProgramTitle: b.programTitle,
		SystemTitle:  b.systemTitle,
		Metrics:      b.metricRoots,
		Cnodes:       b.cnodeRoots,
		SystemTree:   b.stnRoots,
		Topologies:   b.carts,
		metrics:      b.metrics,
		regions:      b.regions,
		cnodes:       b.cnodes,
		stns:         b.stns,
		groups:       b.groups,
		locations:    b.locations,
		sev:          b.sev,
	}
	if b.clusWarn != nil {
		c.Warnings = append(c.Warnings, b.clusWarn)
	}
	if b.clus != nil && b.clus.Enabled {
		if err := b.decluster(c); err != nil {
			return nil, err
		}
		c.Clustering = b.clus
	}
	return c, nil
}

// parseIDList parses a list of non-negative integers separated by
// commas and/or white space.
func parseIDList(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, errorf(ErrRange, "negative id %d", v)
		}
		out = append(out, v)
	}
	return out, nil
}
