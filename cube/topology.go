// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cube

import "fmt"

// A ResourceKind identifies which system registry a coordinate
// assignment refers to.
type ResourceKind int

const (
	ResourceLocation ResourceKind = iota
	ResourceLocationGroup
	ResourceSystemTreeNode
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceLocation:
		return "location"
	case ResourceLocationGroup:
		return "location group"
	case ResourceSystemTreeNode:
		return "system tree node"
	}
	return fmt.Sprintf("ResourceKind(%d)", int(k))
}

// A Dim is one dimension of a Cartesian topology.
type Dim struct {
	Size     int
	Periodic bool
	Name     string // optional
}

// A Coord places one system resource in a Cartesian topology.
type Coord struct {
	Kind   ResourceKind
	ID     int
	Values []int
}

// A Cartesian is a user-defined n-dimensional grid that system
// resources are mapped onto.
type Cartesian struct {
	Name   string // optional
	Dims   []Dim
	Coords []Coord

	index map[resourceKey]int
}

type resourceKey struct {
	kind ResourceKind
	id   int
}

// NDims returns the number of dimensions of c.
func (c *Cartesian) NDims() int {
	return len(c.Dims)
}

// CoordsOf returns the coordinates of the given resource, or nil if
// it has none in this topology.
func (c *Cartesian) CoordsOf(kind ResourceKind, id int) []int {
	i, ok := c.index[resourceKey{kind, id}]
	if !ok {
		return nil
	}
	return c.Coords[i].Values
}
