// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cubefmt

// A state is the grammar state of an open element.
type state uint8

const (
	sDocument state = iota
	sCube
	sAttr
	sDoc
	sMirrors
	sMurl
	sMetrics
	sMetric
	sExpr
	sField
	sProgram
	sRegion
	sCnode
	sParameter
	sSystem
	sSTN
	sLocationGroup
	sLocation
	sMachine
	sNode
	sProcess
	sThread
	sTopologies
	sCart
	sDim
	sCoord
	sSeverity
	sMatrix
	sRow
	numStates
)

// A production is one child element permitted in a state.
type production struct {
	tag   string
	state state

	// Children must appear in non-decreasing rank order.
	rank int

	// repeat permits more than one occurrence.
	repeat bool

	// required children must occur at least once. For entity
	// states, required children are checked when the entity is
	// committed.
	required bool

	// structural children commit their parent entity before they
	// are opened.
	structural bool
}

// field returns the production of a text-only child element.
func field(tag string, rank int, required bool) production {
	return production{tag: tag, state: sField, rank: rank, required: required}
}

var attrChild = production{tag: "attr", state: sAttr, repeat: true}

func withRank(p production, rank int) production {
	p.rank = rank
	return p
}

var grammar = [numStates][]production{
	sDocument: {{tag: "cube", state: sCube, required: true}},
	sCube: {
		withRank(attrChild, 0),
		{tag: "doc", state: sDoc, rank: 1},
		{tag: "metrics", state: sMetrics, rank: 2, required: true},
		{tag: "program", state: sProgram, rank: 3, required: true},
		{tag: "system", state: sSystem, rank: 4, required: true},
		{tag: "topologies", state: sTopologies, rank: 5},
		{tag: "severity", state: sSeverity, rank: 6},
	},
	sDoc:     {{tag: "mirrors", state: sMirrors}},
	sMirrors: {{tag: "murl", state: sMurl, repeat: true}},
	sMetrics: {{tag: "metric", state: sMetric, repeat: true}},
	sMetric: {
		field("disp_name", 0, true),
		field("uniq_name", 0, true),
		field("dtype", 0, true),
		field("uom", 0, true),
		field("val", 0, false),
		field("url", 0, false),
		field("descr", 0, false),
		{tag: "cubepl", state: sExpr, rank: 1},
		{tag: "cubeplinit", state: sExpr, rank: 1},
		{tag: "cubeplaggr", state: sExpr, rank: 1, repeat: true},
		withRank(attrChild, 2),
		{tag: "metric", state: sMetric, rank: 3, repeat: true, structural: true},
	},
	sProgram: {
		{tag: "region", state: sRegion, rank: 0, repeat: true},
		{tag: "cnode", state: sCnode, rank: 1, repeat: true},
	},
	sRegion: {
		field("name", 0, true),
		field("mangled_name", 0, false),
		field("paradigm", 0, false),
		field("role", 0, false),
		field("url", 0, false),
		field("descr", 0, false),
		withRank(attrChild, 1),
	},
	sCnode: {
		{tag: "parameter", state: sParameter, rank: 0, repeat: true},
		withRank(attrChild, 1),
		{tag: "cnode", state: sCnode, rank: 2, repeat: true, structural: true},
	},
	sSystem: {
		{tag: "systemtreenode", state: sSTN, rank: 0, repeat: true},
		{tag: "machine", state: sMachine, rank: 0, repeat: true},
		{tag: "topologies", state: sTopologies, rank: 1},
	},
	sSTN: {
		field("name", 0, true),
		field("class", 0, true),
		field("descr", 0, false),
		withRank(attrChild, 1),
		{tag: "systemtreenode", state: sSTN, rank: 2, repeat: true, structural: true},
		{tag: "locationgroup", state: sLocationGroup, rank: 2, repeat: true, structural: true},
	},
	sLocationGroup: {
		field("name", 0, true),
		field("rank", 0, true),
		field("type", 0, true),
		withRank(attrChild, 1),
		{tag: "location", state: sLocation, rank: 2, repeat: true, structural: true},
	},
	sLocation: {
		field("name", 0, true),
		field("rank", 0, true),
		field("type", 0, true),
		withRank(attrChild, 1),
	},
	sMachine: {
		field("name", 0, true),
		field("descr", 0, false),
		{tag: "node", state: sNode, rank: 1, repeat: true, structural: true},
	},
	sNode: {
		field("name", 0, true),
		field("descr", 0, false),
		{tag: "process", state: sProcess, rank: 1, repeat: true, structural: true},
	},
	sProcess: {
		field("name", 0, false),
		field("rank", 0, true),
		{tag: "thread", state: sThread, rank: 1, repeat: true, structural: true},
	},
	sThread: {
		field("name", 0, false),
		field("rank", 0, true),
	},
	sTopologies: {{tag: "cart", state: sCart, repeat: true}},
	sCart: {
		{tag: "dim", state: sDim, rank: 0, repeat: true, required: true},
		{tag: "coord", state: sCoord, rank: 1, repeat: true, structural: true},
	},
	sSeverity: {{tag: "matrix", state: sMatrix, repeat: true}},
	sMatrix:   {{tag: "row", state: sRow, repeat: true}},
}

// textStates accept character data. Elsewhere only white space is
// allowed between tags.
var textStates = [numStates]bool{
	sMurl:  true,
	sExpr:  true,
	sField: true,
	sCoord: true,
	sRow:   true,
}

// lookup returns the production for tag in state s.
func lookup(s state, tag string) (production, bool) {
	for _, p := range grammar[s] {
		if p.tag == tag {
			return p, true
		}
	}
	return production{}, false
}
