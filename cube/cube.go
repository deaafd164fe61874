// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cube is the in-memory model of a CUBE4 performance
// database: a metric tree, a program dimension (regions and the call
// tree), a system dimension (system tree nodes, location groups and
// locations), Cartesian topologies, and a sparse severity matrix
// keyed by (metric, cnode, location).
//
// A Cube is built exactly once, front to back, by a Builder. Each
// Builder factory validates its own preconditions and links the new
// entity into the graph; Seal checks whole-graph invariants, runs
// declustering if the file is clustered, and hands out the finished
// Cube. The Cube must not be mutated after Seal returns.
//
// The cubefmt package drives a Builder from the anchor XML format.
package cube

// NoParent is passed as the parent id of root entities.
const NoParent = -1

// KnownVersions lists the format versions this package can model.
var KnownVersions = []string{"3.0", "4.0", "4.1", "4.2", "4.3", "4.4", "4.5"}

// IsKnownVersion reports whether v is one of KnownVersions.
func IsKnownVersion(v string) bool {
	for _, k := range KnownVersions {
		if v == k {
			return true
		}
	}
	return false
}

// A Cube is a sealed performance database.
type Cube struct {
	// Version is the format version the cube was read from.
	Version string

	// Attrs holds the top-level key/value attributes, including
	// the clustering control attributes.
	Attrs map[string]string

	// Mirrors are the documentation mirror URLs, in file order.
	Mirrors []string

	// MetricsTitle, ProgramTitle and SystemTitle are the optional
	// titles of the three dimensions.
	MetricsTitle, ProgramTitle, SystemTitle string

	// Metrics, Cnodes and SystemTree are the roots of the metric
	// tree, the call tree and the system tree.
	Metrics    []*Metric
	Cnodes     []*Cnode
	SystemTree []*SystemTreeNode

	// Topologies are the Cartesian topologies in file order.
	Topologies []*Cartesian

	// Clustering describes the cluster mapping and its
	// declustering. It is nil if the file is not clustered.
	Clustering *Clustering

	// Warnings lists recoverable problems found while sealing
	// the cube. They don't invalidate the cube, but should be
	// reported to the user.
	Warnings []error

	metrics   *Registry[*Metric]
	regions   *Registry[*Region]
	cnodes    *Registry[*Cnode]
	stns      *Registry[*SystemTreeNode]
	groups    *Registry[*LocationGroup]
	locations *Registry[*Location]
	sev       *Severity
}

// Metric returns the metric with the given id, or nil.
func (c *Cube) Metric(id int) *Metric {
	m, _ := c.metrics.Lookup(id)
	return m
}

// MetricByName returns the metric with the given unique name, or nil.
func (c *Cube) MetricByName(uniqName string) *Metric {
	for _, m := range c.metrics.All() {
		if m.UniqName == uniqName {
			return m
		}
	}
	return nil
}

// Region returns the region with the given id, or nil.
func (c *Cube) Region(id int) *Region {
	r, _ := c.regions.Lookup(id)
	return r
}

// Cnode returns the call-tree node with the given id, or nil.
func (c *Cube) Cnode(id int) *Cnode {
	n, _ := c.cnodes.Lookup(id)
	return n
}

// SystemTreeNode returns the system tree node with the given id, or nil.
func (c *Cube) SystemTreeNode(id int) *SystemTreeNode {
	n, _ := c.stns.Lookup(id)
	return n
}

// LocationGroup returns the location group with the given id, or nil.
func (c *Cube) LocationGroup(id int) *LocationGroup {
	g, _ := c.groups.Lookup(id)
	return g
}

// Location returns the location with the given id, or nil.
func (c *Cube) Location(id int) *Location {
	l, _ := c.locations.Lookup(id)
	return l
}

// AllMetrics returns every metric in ascending id order.
func (c *Cube) AllMetrics() []*Metric { return c.metrics.All() }

// Regions returns every region in ascending id order, including
// regions synthesized by declustering.
func (c *Cube) Regions() []*Region { return c.regions.All() }

// AllCnodes returns every call-tree node in ascending id order,
// including literal cluster subtrees and declustered nodes.
func (c *Cube) AllCnodes() []*Cnode { return c.cnodes.All() }

// LocationGroups returns every location group in ascending id order.
func (c *Cube) LocationGroups() []*LocationGroup { return c.groups.All() }

// Locations returns every location in ascending id order.
func (c *Cube) Locations() []*Location { return c.locations.All() }

// Severity returns the sparse severity store.
func (c *Cube) Severity() *Severity { return c.sev }
