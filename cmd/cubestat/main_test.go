// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/perftools/cube/cubefmt"
)

const testdata = "../../cubefmt/testdata/"

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	t.Logf("cubestat %s", strings.Join(args, " "))
	err = cubestat(&out, &errOut, args)
	return out.String(), errOut.String(), err
}

func wantContains(t *testing.T, got string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("output does not contain %q:\n%s", want, got)
		}
	}
}

func TestSummary(t *testing.T) {
	out, _, err := run(t, testdata+"modern.cube")
	if err != nil {
		t.Fatal(err)
	}
	wantContains(t, out,
		"metric: time (sec) over 3 locations\n",
		"call path",
		"imbalance",
		"main/solve ",
		"main/solve/MPI_Allreduce ",
	)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// Title, blank line, header, and one row per call path with
	// values; cnode 3 has none.
	if len(lines) != 6 {
		t.Errorf("got %d lines, want 6:\n%s", len(lines), out)
	}
	// Rows are sorted by decreasing sum.
	if !strings.HasPrefix(lines[3], "main ") {
		t.Errorf("first row is %q, want main", lines[3])
	}
}

func TestTop(t *testing.T) {
	out, _, err := run(t, "-top", "1", testdata+"modern.cube")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "solve") {
		t.Errorf("-top 1 printed more than one row:\n%s", out)
	}
}

func TestTable(t *testing.T) {
	f, err := os.Open(testdata + "clustered.cube")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	c, err := cubefmt.Parse(f, "clustered.cube")
	if err != nil {
		t.Fatal(err)
	}
	tab, err := newTable(c, "")
	if err != nil {
		t.Fatal(err)
	}
	// Only the declustered work call paths carry values; each
	// iteration has its own.
	want := map[string][]float64{
		"main/loop/iteration=0/work": {3, 3},
		"main/loop/iteration=1/work": {3, 5},
		"main/loop/iteration=2/work": {4, 5},
	}
	if len(tab.Rows) != len(want) {
		var paths []string
		for _, r := range tab.Rows {
			paths = append(paths, r.Path)
		}
		t.Fatalf("got rows %q, want %d rows", paths, len(want))
	}
	for path, vals := range want {
		r := tab.byPath[path]
		if r == nil {
			t.Errorf("no row %s", path)
			continue
		}
		for i, v := range vals {
			if i >= len(r.Sample.Values) || r.Sample.Values[i] != v {
				t.Errorf("%s: values %v, want %v", path, r.Sample.Values, vals)
				break
			}
		}
	}
	if got := tab.Rows[0].Path; got != "main/loop/iteration=2/work" {
		t.Errorf("largest row is %s, want iteration 2", got)
	}
}

func TestCompare(t *testing.T) {
	out, _, err := run(t, testdata+"modern.cube", testdata+"modern.cube")
	if err != nil {
		t.Fatal(err)
	}
	wantContains(t, out, "old mean", "new mean", "delta", "~")
	if strings.Contains(out, "%") {
		t.Errorf("identical files show a change:\n%s", out)
	}
}

func TestUnknownMetric(t *testing.T) {
	_, _, err := run(t, "-metric", "nope", testdata+"modern.cube")
	if err == nil || !strings.Contains(err.Error(), `no metric "nope"`) {
		t.Errorf("got error %v", err)
	}
}

func TestChart(t *testing.T) {
	png := filepath.Join(t.TempDir(), "time.png")
	if _, _, err := run(t, "-png", png, testdata+"modern.cube"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(png)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Errorf("%s is not a PNG file", png)
	}
}

func TestUsage(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"a", "b", "c"},
		{"-top", "0", "a"},
	} {
		_, stderr, err := run(t, args...)
		if err != errUsage {
			t.Errorf("%q: got error %v, want %v", args, err, errUsage)
		}
		if !strings.Contains(stderr, "usage: cubestat") {
			t.Errorf("%q: no usage message", args)
		}
	}
}
