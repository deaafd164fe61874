// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cube

import (
	"errors"
	"reflect"
	"testing"
)

// clusteredBuilder builds a clustered call tree with 4 ranks:
//
//	main(0)
//	  loop(1)                 clustering root
//	    instance=1(2)   A     foo(4)
//	    instance=2(3)   B     foo(5) bar(6)
//
// mapping0 and mapping1 are the cluster mappings of the two iterations.
func clusteredBuilder(t *testing.T, templateName, mapping0, mapping1 string) *Builder {
	b := NewBuilder()
	b.SetAttr(AttrClustering, "ON")
	b.SetAttr(AttrClusterRoot, "1")
	b.SetAttr(AttrClusterIterations, "2")
	b.SetAttr(AttrClusterMappingPrefix+"0", mapping0)
	if mapping1 != "" {
		b.SetAttr(AttrClusterMappingPrefix+"1", mapping1)
	}
	must(b.DefineMetric(Metric{ID: 0, UniqName: "time"}, NoParent))
	for i, name := range []string{"main", "loop", templateName, "instance=2", "foo", "bar"} {
		must(b.DefineRegion(Region{ID: i, Name: name, Paradigm: "user", Role: "loop", Mod: "a.c", Begin: 10 * i, End: 10*i + 5}))
	}
	for _, n := range []struct{ id, callee, parent, line int }{
		{0, 0, NoParent, -1},
		{1, 1, 0, 3},
		{2, 2, 1, 4},
		{4, 4, 2, 7},
		{3, 3, 1, 4},
		{5, 4, 3, 7},
		{6, 5, 3, 8},
	} {
		must(b.DefineCnode(Cnode{ID: n.id, Line: n.line, Mod: "a.c"}, n.callee, n.parent))
	}
	newSystem(t, b, 4)
	if err := b.SetSeverityRow(0, 4, []float64{10, 4, 6, 0}); err != nil {
		t.Fatal(err)
	}
	if err := b.SetSeverityRow(0, 5, []float64{0, 8, 3, 12}); err != nil {
		t.Fatal(err)
	}
	return b
}

func TestDecluster(t *testing.T) {
	b := clusteredBuilder(t, TemplateRegionName, "2,2,3,3", "2 3 2 3")
	c := must(b.Seal())
	if len(c.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", c.Warnings)
	}
	cl := c.Clustering
	if cl == nil || !cl.Enabled {
		t.Fatalf("clustering not enabled")
	}
	if got, want := cl.Collapsed, [][]int{{2, 3}, {2, 3}}; !reflect.DeepEqual(got, want) {
		t.Errorf("Collapsed = %v, want %v", got, want)
	}
	if got, want := cl.Counts, map[int][]int{2: {2, 1, 1, 0}, 3: {0, 1, 1, 2}}; !reflect.DeepEqual(got, want) {
		t.Errorf("Counts = %v, want %v", got, want)
	}
	if cl.Template != c.Region(2) {
		t.Errorf("Template = %v, want region 2", cl.Template)
	}

	root := c.Cnode(1)
	if len(root.Children) != 2 {
		t.Fatalf("clustering root has %d children, want 2 iterations", len(root.Children))
	}
	wantRanks := [][2][]int{
		{{0, 1}, {2, 3}},
		{{0, 2}, {1, 3}},
	}
	for i, it := range cl.IterationCnodes {
		if it != root.Children[i] {
			t.Errorf("iteration %d is not child %d of root", i, i)
		}
		if got, want := it.Callee.Name, []string{"iteration=0", "iteration=1"}[i]; got != want {
			t.Errorf("iteration %d region name %q, want %q", i, got, want)
		}
		if !it.Callee.Synthetic || it.Callee.Paradigm != "user" || it.Callee.Mod != "a.c" {
			t.Errorf("iteration region not modeled on template: %+v", it.Callee)
		}
		weights := map[int]int{}
		for j, s := range it.Sources {
			weights[s.ClusterID] = s.Weight
			if !reflect.DeepEqual(s.Ranks, wantRanks[i][j]) {
				t.Errorf("iteration %d cluster %d ranks %v, want %v", i, s.ClusterID, s.Ranks, wantRanks[i][j])
			}
		}
		if want := map[int]int{2: 2, 3: 2}; !reflect.DeepEqual(weights, want) {
			t.Errorf("iteration %d weights %v, want %v", i, weights, want)
		}
		// foo of both clusters merges; bar comes only from B.
		if len(it.Children) != 2 {
			t.Fatalf("iteration %d has %d children, want 2", i, len(it.Children))
		}
		foo, bar := it.Children[0], it.Children[1]
		if foo.Callee.Name != "foo" || len(foo.Sources) != 2 {
			t.Errorf("iteration %d: merged foo has %d sources", i, len(foo.Sources))
		}
		if bar.Callee.Name != "bar" || len(bar.Sources) != 1 || bar.Sources[0].ClusterID != 3 {
			t.Errorf("iteration %d: bar sources %+v", i, bar.Sources)
		}
		if foo.Iteration != i || !foo.Synthetic() || c.Cnode(foo.ID) != foo {
			t.Errorf("iteration %d: foo not registered as synthetic", i)
		}
	}

	time := c.Metric(0)
	foo0 := cl.IterationCnodes[0].Children[0]
	foo1 := cl.IterationCnodes[1].Children[0]
	for _, test := range []struct {
		n    *Cnode
		loc  int
		want float64
	}{
		{foo0, 0, 10.0 / 2}, // rank 0 ran A twice
		{foo0, 1, 4.0 / 1},  // rank 1 ran A once
		{foo0, 2, 3.0 / 1},  // rank 2 ran B once
		{foo0, 3, 12.0 / 2}, // rank 3 ran B twice
		{foo1, 1, 8.0 / 1},
		{foo1, 2, 6.0 / 1},
	} {
		got, ok := c.DeclusteredSeverity(time, test.n, c.Location(test.loc))
		if !ok || got != test.want {
			t.Errorf("iteration %d location %d: got %v, %v; want %v", test.n.Iteration, test.loc, got, ok, test.want)
		}
	}
}

func TestDeclusterMappingGap(t *testing.T) {
	for _, test := range []struct {
		name, iters, m0, m1 string
	}{
		{"short", "2", "2,2,3,3", "2,3,2"},
		{"missing iteration", "2", "2,2,3,3", ""},
		{"unknown cluster", "2", "2,2,3,9", "2,3,2,3"},
		{"zero iterations", "0", "2,2,3,3", "2,3,2,3"},
		{"bad iteration count", "two", "2,2,3,3", "2,3,2,3"},
	} {
		t.Run(test.name, func(t *testing.T) {
			b := clusteredBuilder(t, TemplateRegionName, test.m0, test.m1)
			b.SetAttr(AttrClusterIterations, test.iters)
			c := must(b.Seal())
			if len(c.Warnings) != 1 || !errors.Is(c.Warnings[0], ErrClusteringMappingGap) {
				t.Fatalf("Warnings = %v, want one ErrClusteringMappingGap", c.Warnings)
			}
			if c.Clustering == nil || c.Clustering.Enabled {
				t.Fatalf("clustering still enabled")
			}
			root := c.Cnode(1)
			if got := []*Cnode{c.Cnode(2), c.Cnode(3)}; !reflect.DeepEqual(root.Children, got) {
				t.Errorf("literal clusters not reattached to the root")
			}
			for _, r := range c.Regions() {
				if r.Synthetic {
					t.Errorf("region %q synthesized despite gap", r.Name)
				}
			}
			// Entities after the gap are intact.
			if c.Location(3) == nil || c.Severity().Len() != 2 {
				t.Errorf("system or severity lost")
			}
		})
	}
}

func TestDeclusterNoTemplate(t *testing.T) {
	_, err := clusteredBuilder(t, "instance=7", "2,2,3,3", "2,3,2,3").Seal()
	if !errors.Is(err, ErrClusteringLayout) {
		t.Fatalf("got %v, want ErrClusteringLayout", err)
	}
}

func TestClusteringRootMissing(t *testing.T) {
	for _, test := range []struct {
		name string
		root string // "" leaves the attribute unset
	}{
		{"missing", ""},
		{"bad", "x"},
		{"undefined", "42"},
	} {
		t.Run(test.name, func(t *testing.T) {
			b := NewBuilder()
			b.SetAttr(AttrClustering, "ON")
			if test.root != "" {
				b.SetAttr(AttrClusterRoot, test.root)
			}
			b.SetAttr(AttrClusterIterations, "1")
			b.SetAttr(AttrClusterMappingPrefix+"0", "1")
			must(b.DefineMetric(Metric{ID: 0, UniqName: "time"}, NoParent))
			must(b.DefineRegion(Region{ID: 0, Name: "main"}))
			must(b.DefineRegion(Region{ID: 1, Name: "foo"}))
			must(b.DefineCnode(Cnode{ID: 0, Line: -1}, 0, NoParent))
			must(b.DefineCnode(Cnode{ID: 1, Line: -1}, 1, 0))
			c := must(b.Seal())
			if len(c.Warnings) != 1 || !errors.Is(c.Warnings[0], ErrClusteringMappingGap) {
				t.Fatalf("Warnings = %v, want one ErrClusteringMappingGap", c.Warnings)
			}
			if c.Clustering != nil && c.Clustering.Enabled {
				t.Fatalf("clustering still enabled")
			}
			if got := c.Cnode(0).Children; len(got) != 1 || got[0] != c.Cnode(1) {
				t.Errorf("cnode 1 not a child of cnode 0")
			}
		})
	}
}
