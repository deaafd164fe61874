// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cube

// Location group kinds.
const (
	GroupProcess     = "process"
	GroupMetrics     = "metrics"
	GroupAccelerator = "accelerator"
)

// Location kinds.
const (
	LocationThread = "CPU thread"
	LocationGPU    = "GPU"
	LocationMetric = "metric"
)

func validGroupType(t string) bool {
	switch t {
	case GroupProcess, GroupMetrics, GroupAccelerator:
		return true
	}
	return false
}

func validLocationType(t string) bool {
	switch t {
	case LocationThread, LocationGPU, LocationMetric:
		return true
	}
	return false
}

// A SystemTreeNode is an inner node of the system tree, such as a
// machine or a compute node.
type SystemTreeNode struct {
	ID    int
	Name  string
	Descr string
	Class string
	Attrs map[string]string

	Parent   *SystemTreeNode
	Children []*SystemTreeNode
	Groups   []*LocationGroup
}

// A LocationGroup is a process-like container of locations.
type LocationGroup struct {
	ID    int
	Name  string
	Rank  int
	Type  string
	Attrs map[string]string

	Parent    *SystemTreeNode
	Locations []*Location
}

// A Location is a thread-like leaf of the system tree. Severity rows
// hold one value per location.
type Location struct {
	ID    int
	Name  string
	Rank  int
	Type  string
	Attrs map[string]string

	Parent *LocationGroup
}

// Walk calls fn for n and every system tree node below n in
// depth-first pre-order.
func (n *SystemTreeNode) Walk(fn func(*SystemTreeNode)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
