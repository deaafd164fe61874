// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cube

import (
	"fmt"
	"sort"
	"strconv"
)

// Top-level attributes that control clustering.
const (
	// AttrClustering enables clustering when set to "ON".
	AttrClustering = "CLUSTERING"
	// AttrClusterRoot is the id of the cnode whose direct
	// children are the literal cluster subtrees.
	AttrClusterRoot = "CLUSTER ROOT CNODE ID"
	// AttrClusterIterations is the number of iterations.
	AttrClusterIterations = "CLUSTER ITERATION COUNT"
	// AttrClusterMappingPrefix, followed by an iteration number,
	// names the attribute listing the cluster id of every process
	// rank in that iteration.
	AttrClusterMappingPrefix = "CLUSTER_MAPPING_"
)

// TemplateRegionName is the name of the region whose metadata is
// copied into the synthesized iteration regions.
const TemplateRegionName = "instance=1"

// A Clustering describes a clustered call tree.
//
// A clustered file stores a handful of representative call subtrees
// ("clusters") below a clustering root, plus a per-iteration
// assignment of a cluster to every process rank. Declustering
// synthesizes one "iteration=<i>" cnode per iteration below the root
// and merges into it the clusters its ranks ran.
type Clustering struct {
	// Enabled is false if declustering was abandoned because the
	// mapping is incomplete. The literal cluster subtrees are then
	// ordinary children of Root.
	Enabled bool

	Root       *Cnode
	Iterations int

	// Mapping[i][r] is the cluster id rank r ran in iteration i.
	Mapping [][]int

	// Collapsed[i] is the sorted, deduplicated Mapping[i].
	Collapsed [][]int

	// Counts[c][r] is the number of iterations in which rank r
	// ran cluster c.
	Counts map[int][]int

	// Clusters maps a cluster id to its literal subtree root. The
	// cluster id is the id of that cnode.
	Clusters map[int]*Cnode

	// Template is the region iteration regions are modeled on.
	Template *Region

	// IterationCnodes[i] is the synthesized cnode of iteration i.
	IterationCnodes []*Cnode

	rootID int
	order  []*Cnode // literal cluster roots in file order
}

// A ClusterSource links a declustered cnode back to the literal
// cluster cnode it was merged from.
type ClusterSource struct {
	ClusterID int
	Cnode     *Cnode

	// Ranks are the process ranks that ran this cluster in the
	// iteration, in ascending order. Weight is len(Ranks).
	Ranks  []int
	Weight int
}

// ClusterOrder returns the literal cluster subtree roots in file order.
func (cl *Clustering) ClusterOrder() []*Cnode {
	return cl.order
}

// initClustering reads the clustering attributes. It runs when the
// first cnode is defined, after all top-level attributes are known.
// Without a usable root cnode id the cube is read unclustered and
// Seal reports the problem as a warning.
func (b *Builder) initClustering() {
	b.clus = &Clustering{Clusters: make(map[int]*Cnode), rootID: NoParent}
	if b.attrs[AttrClustering] != "ON" {
		return
	}
	s, ok := b.attrs[AttrClusterRoot]
	if !ok {
		b.clusWarn = errorf(ErrClusteringMappingGap, "clustering is on, but attribute %q is missing", AttrClusterRoot)
		return
	}
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		b.clusWarn = errorf(ErrClusteringMappingGap, "bad clustering root cnode id %q", s)
		return
	}
	b.clus.Enabled = true
	b.clus.rootID = id
}

// decluster expands the literal cluster subtrees into one synthetic
// subtree per iteration. An incomplete mapping disables clustering and
// is reported as a warning; a missing template region is an error.
func (b *Builder) decluster(c *Cube) error {
	cl := b.clus
	root, err := b.cnodes.Lookup(cl.rootID)
	if err != nil {
		// No cnode was held out below an undefined root.
		b.disableClustering(c, errorf(ErrClusteringMappingGap, "clustering root cnode %d not defined", cl.rootID))
		return nil
	}
	cl.Root = root
	for _, n := range cl.order {
		cl.Clusters[n.ID] = n
	}

	if err := b.readMapping(); err != nil {
		b.disableClustering(c, err)
		return nil
	}

	// Collapse each iteration and count rank occurrences.
	ranks := b.groups.Count()
	cl.Counts = make(map[int][]int)
	for _, row := range cl.Mapping {
		var ids []int
		for r, id := range row {
			if cl.Counts[id] == nil {
				cl.Counts[id] = make([]int, ranks)
			}
			cl.Counts[id][r]++
			ids = append(ids, id)
		}
		cl.Collapsed = append(cl.Collapsed, dedupInts(ids))
	}

	for _, r := range b.regions.All() {
		if r.Name == TemplateRegionName {
			cl.Template = r
			break
		}
	}
	if cl.Template == nil {
		return errorf(ErrClusteringLayout, "clustered cube has no template region %q", TemplateRegionName)
	}
	tmplMod, tmplLine := cl.Template.Mod, cl.Template.Begin
	for _, n := range cl.order {
		if n.Callee == cl.Template {
			tmplMod, tmplLine = n.Mod, n.Line
			break
		}
	}

	nextRegion := b.regions.Span()
	nextCnode := b.cnodes.Span()
	newCnode := func(n *Cnode) *Cnode {
		n.ID = nextCnode
		nextCnode++
		if err := b.cnodes.Insert(n.ID, n); err != nil {
			panic(err) // fresh id
		}
		return n
	}

	for i := 0; i < cl.Iterations; i++ {
		t := cl.Template
		reg := &Region{
			ID:        nextRegion,
			Name:      fmt.Sprintf("iteration=%d", i),
			Paradigm:  t.Paradigm,
			Role:      t.Role,
			Begin:     t.Begin,
			End:       t.End,
			Mod:       t.Mod,
			URL:       t.URL,
			Descr:     t.Descr,
			Synthetic: true,
		}
		nextRegion++
		if err := b.regions.Insert(reg.ID, reg); err != nil {
			panic(err) // fresh id
		}
		it := newCnode(&Cnode{Callee: reg, Mod: tmplMod, Line: tmplLine, Parent: root, Iteration: i})
		root.Children = append(root.Children, it)
		cl.IterationCnodes = append(cl.IterationCnodes, it)

		for _, id := range cl.Collapsed[i] {
			var rs []int
			for r, cid := range cl.Mapping[i] {
				if cid == id {
					rs = append(rs, r)
				}
			}
			src := cl.Clusters[id]
			it.Sources = append(it.Sources, ClusterSource{id, src, rs, len(rs)})
			mergeCnodes(it, src.Children, id, rs, newCnode)
		}
	}
	return nil
}

// mergeCnodes merges the subtrees srcs of cluster id into the children
// of dst. Children that call the same region from the same place are
// merged into one node.
func mergeCnodes(dst *Cnode, srcs []*Cnode, id int, ranks []int, newCnode func(*Cnode) *Cnode) {
	for _, s := range srcs {
		var d *Cnode
		for _, c := range dst.Children {
			if c.Callee == s.Callee && c.Line == s.Line && c.Mod == s.Mod {
				d = c
				break
			}
		}
		if d == nil {
			d = newCnode(&Cnode{
				Callee:    s.Callee,
				Mod:       s.Mod,
				Line:      s.Line,
				NumParams: s.NumParams,
				StrParams: s.StrParams,
				Attrs:     s.Attrs,
				Parent:    dst,
				Iteration: dst.Iteration,
			})
			dst.Children = append(dst.Children, d)
		}
		d.Sources = append(d.Sources, ClusterSource{id, s, ranks, len(ranks)})
		mergeCnodes(d, s.Children, id, ranks, newCnode)
	}
}

// readMapping parses and checks the per-iteration mapping. It returns
// an ErrClusteringMappingGap error if any iteration does not assign
// a known cluster to every rank.
func (b *Builder) readMapping() error {
	cl := b.clus
	s := b.attrs[AttrClusterIterations]
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return errorf(ErrClusteringMappingGap, "bad clustering iteration count %q", s)
	}
	ranks := b.groups.Count()
	cl.Iterations = n
	cl.Mapping = make([][]int, n)
	for i := 0; i < n; i++ {
		key := AttrClusterMappingPrefix + strconv.Itoa(i)
		s, ok := b.attrs[key]
		if !ok {
			return errorf(ErrClusteringMappingGap, "no cluster mapping for iteration %d", i)
		}
		ids, err := parseIDList(s)
		if err != nil {
			return errorf(ErrClusteringMappingGap, "bad cluster mapping for iteration %d: %v", i, err)
		}
		if len(ids) != ranks {
			return errorf(ErrClusteringMappingGap, "cluster mapping for iteration %d covers %d ranks, want %d", i, len(ids), ranks)
		}
		for r, id := range ids {
			if cl.Clusters[id] == nil {
				return errorf(ErrClusteringMappingGap, "cluster mapping for iteration %d assigns unknown cluster %d to rank %d", i, id, r)
			}
		}
		cl.Mapping[i] = ids
	}
	return nil
}

// disableClustering turns the literal cluster subtrees back into
// ordinary children of the clustering root.
func (b *Builder) disableClustering(c *Cube, why error) {
	cl := b.clus
	cl.Enabled = false
	cl.Iterations, cl.Mapping = 0, nil
	if cl.Root != nil {
		cl.Root.Children = append(cl.Root.Children, cl.order...)
	}
	c.Warnings = append(c.Warnings, why)
}

func dedupInts(xs []int) []int {
	sort.Ints(xs)
	out := xs[:0]
	for i, x := range xs {
		if i == 0 || x != xs[i-1] {
			out = append(out, x)
		}
	}
	return out
}

// DeclusteredSeverity returns the value of metric m at cnode n on
// location l. For a declustered cnode, the value is taken from the
// literal cluster cnode that the location's process rank ran in that
// iteration, divided by the number of iterations in which the rank
// ran that cluster. For any other cnode it is the stored value.
func (c *Cube) DeclusteredSeverity(m *Metric, n *Cnode, l *Location) (float64, bool) {
	if !n.Synthetic() || c.Clustering == nil {
		return c.SeverityOf(m, n, l)
	}
	rank := l.Parent.Rank
	var sum float64
	found := false
	for _, s := range n.Sources {
		if !containsInt(s.Ranks, rank) {
			continue
		}
		v, ok := c.sev.Value(m.ID, s.Cnode.ID, l.ID)
		if !ok {
			continue
		}
		counts := c.Clustering.Counts[s.ClusterID]
		if rank >= len(counts) || counts[rank] == 0 {
			continue
		}
		sum += v / float64(counts[rank])
		found = true
	}
	return sum, found
}

func containsInt(xs []int, x int) bool {
	for _, y := range xs {
		if y == x {
			return true
		}
	}
	return false
}
