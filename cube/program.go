// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cube

// A Region is a named piece of source code, such as a function or a
// loop. Regions are immutable once declared.
type Region struct {
	ID          int
	Name        string
	MangledName string
	Paradigm    string
	Role        string
	Begin, End  int // source lines, -1 if unknown
	Mod         string
	URL         string
	Descr       string
	Attrs       map[string]string

	// Synthetic is set for regions created by declustering. They
	// have no counterpart in the file.
	Synthetic bool
}

// A Cnode is one node of the call tree: a call to Callee in the
// calling context given by its ancestors.
type Cnode struct {
	ID     int
	Callee *Region
	Mod    string
	Line   int // -1 if unknown

	// NumParams and StrParams are the numeric and string
	// parameters of this call path, by parameter name.
	NumParams map[string]float64
	StrParams map[string]string

	Attrs map[string]string

	Parent   *Cnode
	Children []*Cnode

	// Sources is set only on cnodes synthesized by declustering.
	// It lists, for each cluster that contributed to this node,
	// the literal cluster cnode the values come from.
	Sources []ClusterSource

	// Iteration is the iteration a declustered cnode belongs to,
	// or -1.
	Iteration int
}

// Synthetic reports whether n was created by declustering.
func (n *Cnode) Synthetic() bool {
	return n.Iteration >= 0
}

// Walk calls fn for n and every descendant of n in depth-first
// pre-order.
func (n *Cnode) Walk(fn func(*Cnode)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Depth returns the number of ancestors of n.
func (n *Cnode) Depth() int {
	d := 0
	for p := n.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}
