// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cubefmt

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/perftools/cube/cube"
)

const prolog = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// Minimal sections of a valid document.
const (
	oneMetric = `<metrics><metric id="0"><disp_name>T</disp_name><uniq_name>t</uniq_name>` +
		`<dtype>FLOAT</dtype><uom>sec</uom></metric></metrics>`
	oneCnode = `<program><region id="0"><name>main</name></region><cnode id="0" calleeId="0"/></program>`
	oneLoc   = `<system><systemtreenode id="0"><name>m</name><class>machine</class>` +
		`<locationgroup id="0"><name>p</name><rank>0</rank><type>process</type>` +
		`<location id="0"><name>t</name><rank>0</rank><type>CPU thread</type></location>` +
		`</locationgroup></systemtreenode></system>`
)

func parseFile(t *testing.T, name string) *cube.Cube {
	t.Helper()
	f, err := os.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	c, err := NewReader(f, name).Parse()
	if err != nil {
		t.Fatalf("parsing %s: %v", name, err)
	}
	return c
}

func parseString(s string) (*cube.Cube, error) {
	return NewReader(strings.NewReader(s), "test").Parse()
}

func metricNames(ms []*cube.Metric) []string {
	var out []string
	for _, m := range ms {
		m.Walk(func(m *cube.Metric) {
			out = append(out, m.UniqName)
		})
	}
	return out
}

func TestParseModern(t *testing.T) {
	c := parseFile(t, "testdata/modern.cube")

	if c.Version != "4.5" {
		t.Errorf("Version = %q, want 4.5", c.Version)
	}
	if want := map[string]string{"CUBE_CT_AGGR": "SUM", "Creator": "cubefmt test"}; !cmp.Equal(c.Attrs, want) {
		t.Errorf("Attrs = %v, want %v", c.Attrs, want)
	}
	if want := []string{"http://example.com/doc/"}; !cmp.Equal(c.Mirrors, want) {
		t.Errorf("Mirrors = %v, want %v", c.Mirrors, want)
	}
	if c.MetricsTitle != "Metric tree" || c.ProgramTitle != "Call tree" || c.SystemTitle != "System tree" {
		t.Errorf("titles = %q, %q, %q", c.MetricsTitle, c.ProgramTitle, c.SystemTitle)
	}

	// Metrics.
	if diff := cmp.Diff([]string{"time", "mpi", "avg", "scratch"}, metricNames(c.Metrics)); diff != "" {
		t.Errorf("metric tree (-want +got):\n%s", diff)
	}
	time := c.MetricByName("time")
	if time.Kind != cube.Inclusive || time.Descr != "Total CPU allocation time" || time.Attrs["origin"] != "measured" {
		t.Errorf("time metric = %+v", time)
	}
	if !time.Convertible || !time.Cacheable {
		t.Errorf("time metric flags default to false")
	}
	if mpi := c.Metric(1); mpi.Parent != time || mpi.Kind != cube.Exclusive {
		t.Errorf("mpi metric = %+v", mpi)
	}
	avg := c.MetricByName("avg")
	if avg.Kind != cube.Postderived || avg.Viz != cube.Ghost || avg.Convertible {
		t.Errorf("avg metric = %+v", avg)
	}
	if avg.Expr != "metric::time(i)/metric::visits(e)" || avg.RowWise || avg.AggrPlusExpr != "arg1 + arg2" {
		t.Errorf("avg expressions = %q rowwise=%v plus=%q", avg.Expr, avg.RowWise, avg.AggrPlusExpr)
	}
	if !c.MetricByName("scratch").IsVoid() {
		t.Errorf("scratch is not void")
	}

	// Program.
	solve := c.Region(1)
	if solve.Name != "solve" || solve.MangledName != "_Z5solvev" || solve.Mod != "solve.c" || solve.Begin != 5 || solve.End != 20 {
		t.Errorf("region 1 = %+v", solve)
	}
	if r := c.Region(2); r.Begin != -1 || r.Paradigm != "mpi" {
		t.Errorf("region 2 = %+v", r)
	}
	if len(c.Cnodes) != 1 || len(c.Cnodes[0].Children) != 2 {
		t.Fatalf("call tree has wrong shape")
	}
	n1 := c.Cnode(1)
	if n1.Callee != solve || n1.Line != 30 || n1.Parent != c.Cnodes[0] {
		t.Errorf("cnode 1 = %+v", n1)
	}
	if n1.NumParams["n"] != 128 || n1.StrParams["method"] != "cg" {
		t.Errorf("cnode 1 parameters = %v %v", n1.NumParams, n1.StrParams)
	}
	if n2 := c.Cnode(2); n2.Line != -1 || n2.Depth() != 2 {
		t.Errorf("cnode 2 line=%d depth=%d", n2.Line, n2.Depth())
	}

	// System.
	if len(c.SystemTree) != 1 || len(c.SystemTree[0].Children) != 1 {
		t.Fatalf("system tree has wrong shape")
	}
	node := c.SystemTreeNode(1)
	if node.Class != "node" || node.Descr != "compute node" || len(node.Groups) != 2 {
		t.Errorf("system tree node 1 = %+v", node)
	}
	if l := c.Location(2); l.Parent != c.LocationGroup(1) || l.Type != cube.LocationThread {
		t.Errorf("location 2 = %+v", l)
	}

	// Topologies.
	if len(c.Topologies) != 1 {
		t.Fatalf("got %d topologies, want 1", len(c.Topologies))
	}
	grid := c.Topologies[0]
	if want := []cube.Dim{{Size: 2, Periodic: false, Name: "x"}, {Size: 2, Periodic: true, Name: "y"}}; !cmp.Equal(grid.Dims, want) {
		t.Errorf("Dims = %v, want %v", grid.Dims, want)
	}
	if got := grid.CoordsOf(cube.ResourceLocation, 1); !cmp.Equal(got, []int{0, 1}) {
		t.Errorf("coordinates of location 1 = %v", got)
	}
	if got := grid.CoordsOf(cube.ResourceLocationGroup, 1); !cmp.Equal(got, []int{1, 1}) {
		t.Errorf("coordinates of location group 1 = %v", got)
	}

	// Severity.
	if got := c.Row(time, c.Cnode(1)); !cmp.Equal(got, []float64{0.5, 0.25, 0.125}) {
		t.Errorf("row (time, 1) = %v", got)
	}
	if v, ok := c.SeverityOf(time, c.Cnode(2), c.Location(0)); !ok || v != 1e-3 {
		t.Errorf("severity (time, 2, 0) = %v, %v", v, ok)
	}
	if _, ok := c.SeverityOf(time, c.Cnode(2), c.Location(1)); ok {
		t.Errorf("short row has a value for location 1")
	}
	if _, ok := c.SeverityOf(c.MetricByName("scratch"), c.Cnode(0), c.Location(0)); ok {
		t.Errorf("void metric has a stored value")
	}
	if n := c.Severity().Len(); n != 3 {
		t.Errorf("got %d stored rows, want 3", n)
	}
}

func TestParseLegacy(t *testing.T) {
	c := parseFile(t, "testdata/legacy.cube")

	if len(c.SystemTree) != 1 {
		t.Fatalf("got %d system tree roots, want 1", len(c.SystemTree))
	}
	machine := c.SystemTree[0]
	if machine.Class != "machine" || machine.Name != "cluster" || len(machine.Children) != 2 {
		t.Fatalf("machine = %+v", machine)
	}
	n02 := machine.Children[1]
	if n02.Class != "node" || n02.Name != "n02" {
		t.Errorf("second node = %+v", n02)
	}
	p0 := c.LocationGroup(0)
	if p0.Name != "Process 0" || p0.Type != cube.GroupProcess || p0.Parent != machine.Children[0] {
		t.Errorf("process 0 = %+v", p0)
	}
	if p1 := c.LocationGroup(1); p1.Name != "p1" || p1.Rank != 1 {
		t.Errorf("process 1 = %+v", p1)
	}
	var names []string
	for _, l := range c.Locations() {
		names = append(names, l.Name)
	}
	if diff := cmp.Diff([]string{"Thread 0", "worker", "Thread 0"}, names); diff != "" {
		t.Errorf("thread names (-want +got):\n%s", diff)
	}

	cart := c.Topologies[0]
	if got := cart.CoordsOf(cube.ResourceLocation, 2); !cmp.Equal(got, []int{3}) {
		t.Errorf("coordinates of thread 2 = %v", got)
	}
	if got := cart.CoordsOf(cube.ResourceSystemTreeNode, n02.ID); !cmp.Equal(got, []int{1}) {
		t.Errorf("coordinates of node 1 = %v", got)
	}
	if got := cart.CoordsOf(cube.ResourceSystemTreeNode, machine.ID); !cmp.Equal(got, []int{0}) {
		t.Errorf("coordinates of machine 0 = %v", got)
	}
	if v, ok := c.SeverityOf(c.Metric(0), c.Cnode(0), c.Location(2)); !ok || v != 3 {
		t.Errorf("severity (0, 0, 2) = %v, %v", v, ok)
	}
}

func TestParseClustered(t *testing.T) {
	c := parseFile(t, "testdata/clustered.cube")

	cl := c.Clustering
	if cl == nil || !cl.Enabled {
		t.Fatalf("clustering not enabled: %+v", cl)
	}
	if cl.Iterations != 3 || len(cl.IterationCnodes) != 3 {
		t.Fatalf("got %d iterations and %d iteration cnodes, want 3", cl.Iterations, len(cl.IterationCnodes))
	}
	loop := c.Cnode(1)
	if len(loop.Children) != 3 {
		t.Fatalf("clustering root has %d children, want 3", len(loop.Children))
	}
	for i, n := range loop.Children {
		if n != cl.IterationCnodes[i] {
			t.Errorf("child %d of the clustering root is cnode %d, want iteration %d", i, n.ID, i)
		}
	}
	if want := map[int][]int{2: {2, 1}, 3: {1, 2}}; !cmp.Equal(cl.Counts, want) {
		t.Errorf("Counts = %v, want %v", cl.Counts, want)
	}

	time := c.Metric(0)
	locs := c.Locations()
	for i, want := range [][]float64{{3, 3}, {3, 5}, {4, 5}} {
		it := cl.IterationCnodes[i]
		if it.Callee.Name != fmt.Sprintf("iteration=%d", i) || !it.Callee.Synthetic {
			t.Errorf("iteration %d calls %+v", i, it.Callee)
		}
		if len(it.Children) != 1 {
			t.Fatalf("iteration %d has %d children, want 1", i, len(it.Children))
		}
		work := it.Children[0]
		for r, l := range locs {
			got, ok := c.DeclusteredSeverity(time, work, l)
			if !ok || got != want[r] {
				t.Errorf("iteration %d, rank %d: got %v, %v, want %v", i, r, got, ok, want[r])
			}
		}
	}
}

func TestParseClusteredGap(t *testing.T) {
	data, err := os.ReadFile("testdata/clustered.cube")
	if err != nil {
		t.Fatal(err)
	}
	// Iteration 1 names a cluster for rank 0 only.
	src := strings.Replace(string(data), `value="2,3"`, `value="2"`, 1)
	c, err := parseString(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Warnings) != 1 || !errors.Is(c.Warnings[0], cube.ErrClusteringMappingGap) {
		t.Fatalf("Warnings = %v, want one ErrClusteringMappingGap", c.Warnings)
	}
	if cl := c.Clustering; cl != nil && cl.Enabled {
		t.Fatalf("clustering still enabled")
	}
	var kids []int
	for _, n := range c.Cnode(1).Children {
		kids = append(kids, n.ID)
	}
	if want := []int{2, 3}; !cmp.Equal(kids, want) {
		t.Errorf("children of the clustering root = %v, want %v", kids, want)
	}
	if n := len(c.Locations()); n != 2 {
		t.Errorf("got %d locations, want 2", n)
	}
	if n := c.Severity().Len(); n != 2 {
		t.Errorf("got %d severity rows, want 2", n)
	}
	for _, r := range c.Regions() {
		if r.Synthetic {
			t.Errorf("region %q synthesized despite gap", r.Name)
		}
	}
}

func TestParseErrors(t *testing.T) {
	body := func(s string) string {
		return prolog + `<cube version="4.5">` + s + `</cube>`
	}
	tests := []struct {
		name  string
		input string
		kind  error
		msg   string
		hint  string
	}{
		{"empty", "", cube.ErrXMLStructure, "empty file", "empty"},
		{"no prolog", `<cube version="4.5"></cube>`, cube.ErrXMLStructure, "missing XML declaration", ""},
		{"bad encoding", `<?xml version="1.0" encoding="ISO-8859-1"?><cube version="4.5"/>`,
			cube.ErrXMLStructure, `encoding "ISO-8859-1"`, ""},
		{"version", prolog + `<cube version="5.0">` + oneMetric + `</cube>`,
			cube.ErrUnsupportedVersion, `unsupported cube version "5.0"`, "accepted versions"},
		{"no version", prolog + `<cube></cube>`, cube.ErrXMLStructure, `missing attribute "version"`, ""},
		{"missing system", body(oneMetric + oneCnode), cube.ErrXMLStructure, "missing <system> dimension section", "<system>"},
		{"out of order", body(oneCnode + oneMetric), cube.ErrXMLStructure, "<metrics> out of order in <cube>", ""},
		{"duplicate field", body(`<metrics><metric id="0"><disp_name>a</disp_name><disp_name>b</disp_name></metric></metrics>`),
			cube.ErrXMLStructure, "duplicate <disp_name> in <metric>", ""},
		{"missing field", body(`<metrics><metric id="0"><disp_name>a</disp_name><dtype>FLOAT</dtype><uom>s</uom></metric></metrics>`),
			cube.ErrXMLStructure, "missing <uniq_name> in <metric>", ""},
		{"bad id", body(`<metrics><metric id="x"></metric></metrics>`),
			cube.ErrXMLStructure, `attribute "id" on <metric> is "x"`, ""},
		{"duplicate metric", body(`<metrics><metric id="0"><disp_name>T</disp_name><uniq_name>t</uniq_name><dtype>FLOAT</dtype><uom>sec</uom></metric>` +
			`<metric id="0"><disp_name>U</disp_name><uniq_name>u</uniq_name><dtype>FLOAT</dtype><uom>sec</uom></metric></metrics>`),
			cube.ErrReferentialIntegrity, "metric 0 already defined", ""},
		{"bad metric type", body(`<metrics><metric id="0" type="FANCY"><disp_name>T</disp_name><uniq_name>t</uniq_name><dtype>FLOAT</dtype><uom>sec</uom></metric></metrics>`),
			cube.ErrRange, `unknown type "FANCY"`, ""},
		{"text", body(`<metrics>hello</metrics>`), cube.ErrXMLStructure, "unexpected text in <metrics>", ""},
		{"duplicate region", body(oneMetric + `<program><region id="3"><name>a</name></region><region id="3"><name>b</name></region>` +
			`<cnode id="0" calleeId="3"/></program>` + oneLoc),
			cube.ErrReferentialIntegrity, "region 3 already defined", ""},
		{"two topologies", body(oneMetric + oneCnode +
			strings.Replace(oneLoc, "</system>", `<topologies><cart ndims="1"><dim size="1"/></cart></topologies></system>`, 1) +
			`<topologies><cart ndims="1"><dim size="1"/></cart></topologies>`),
			cube.ErrXMLStructure, "duplicate <topologies>", ""},
		{"undefined callee", body(oneMetric + `<program><region id="0"><name>main</name></region><cnode id="0" calleeId="5"/></program>` + oneLoc),
			cube.ErrReferentialIntegrity, "region 5 not defined", ""},
		{"legacy nesting", body(oneMetric + oneCnode + `<system><machine id="0"><name>m</name><thread id="0"><rank>0</rank></thread></machine></system>`),
			cube.ErrXMLStructure, "malformed process/thread nesting", "<thread> must be nested"},
		{"mixed nesting", body(oneMetric + oneCnode + `<system><machine id="0"><name>m</name></machine><systemtreenode id="0"></systemtreenode></system>`),
			cube.ErrXMLStructure, "mixes legacy", ""},
		{"location gap", body(oneMetric + oneCnode + `<system><systemtreenode id="0"><name>m</name><class>machine</class>` +
			`<locationgroup id="0"><name>p</name><rank>0</rank><type>process</type>` +
			`<location id="1"><name>t</name><rank>0</rank><type>CPU thread</type></location>` +
			`</locationgroup></systemtreenode></system>`),
			cube.ErrRange, "location ids are not contiguous", ""},
		{"coordinate range", body(oneMetric + oneCnode + oneLoc + `<topologies><cart ndims="1"><dim size="2"/><coord locId="0">2</coord></cart></topologies>`),
			cube.ErrRange, "out of range", ""},
		{"dimension count", body(oneMetric + oneCnode + oneLoc + `<topologies><cart ndims="2"><dim size="2"/><coord locId="0">1</coord></cart></topologies>`),
			cube.ErrRange, "declares 2 dimensions", ""},
		{"undefined matrix metric", body(oneMetric + oneCnode + oneLoc + `<severity><matrix metricId="7"></matrix></severity>`),
			cube.ErrReferentialIntegrity, "undefined metric 7", ""},
		{"undefined row cnode", body(oneMetric + oneCnode + oneLoc + `<severity><matrix metricId="0"><row cnodeId="3">1</row></matrix></severity>`),
			cube.ErrReferentialIntegrity, "undefined cnode 3", ""},
		{"long row", body(oneMetric + oneCnode + oneLoc + `<severity><matrix metricId="0"><row cnodeId="0">1 2</row></matrix></severity>`),
			cube.ErrRange, "only 1 locations", ""},
		{"bad value", body(oneMetric + oneCnode + oneLoc + `<severity><matrix metricId="0"><row cnodeId="0">1x</row></matrix></severity>`),
			cube.ErrXMLStructure, `bad severity value "1x"`, ""},
		{"truncated", prolog + `<cube version="4.5">` + oneMetric + oneCnode + oneLoc + `<severity><matrix metricId="0"><row cnodeId="0">1`,
			cube.ErrXMLStructure, "unexpected end of file inside <row>", "severity section is truncated"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := parseString(test.input)
			if err == nil {
				t.Fatalf("want error containing %q, got success", test.msg)
			}
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("error %v is %T, want *SyntaxError", err, err)
			}
			if !errors.Is(err, test.kind) {
				t.Errorf("error %v is not %v", err, test.kind)
			}
			if !strings.Contains(err.Error(), test.msg) {
				t.Errorf("error %q does not contain %q", err, test.msg)
			}
			if !strings.HasPrefix(err.Error(), "test:") {
				t.Errorf("error %q does not name the file", err)
			}
			hint := Hint(err)
			if test.hint == "" {
				return
			}
			if !strings.Contains(hint, test.hint) {
				t.Errorf("Hint = %q, want it to contain %q", hint, test.hint)
			}
		})
	}
}

func TestErrorPosition(t *testing.T) {
	_, err := parseString(prolog + "<cube version=\"4.5\">\n  <metrics>\n    <bogus/>")
	var se *SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want *SyntaxError", err)
	}
	if se.Line != 4 || se.Col != 5 {
		t.Errorf("error at %d:%d, want 4:5", se.Line, se.Col)
	}
	if se.Msg != "unexpected <bogus> in <metrics>" {
		t.Errorf("Msg = %q", se.Msg)
	}
}

func TestProgress(t *testing.T) {
	r := NewReader(strings.NewReader(prolog+`<cube version="4.5">`+oneMetric+oneCnode+oneLoc+`</cube>`), "test")
	if p := r.Progress(); p != 0 {
		t.Errorf("Progress before Parse = %v, want 0", p)
	}
	if _, err := r.Parse(); err != nil {
		t.Fatal(err)
	}
	if p := r.Progress(); p != 1 {
		t.Errorf("Progress after Parse = %v, want 1", p)
	}
	if _, err := r.Parse(); err == nil {
		t.Errorf("second Parse succeeded")
	}
}

func TestHintUnknown(t *testing.T) {
	if h := Hint(nil); h != "" {
		t.Errorf("Hint(nil) = %q", h)
	}
	if h := Hint(errors.New("disk on fire")); h != "" {
		t.Errorf("Hint of an unrelated error = %q", h)
	}
}
