// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Cubestat summarizes how the values of a metric are distributed over
// the locations of a cube, and compares two cubes.
//
// Usage:
//
//	cubestat [-metric name] [-top n] [-alpha α] [-png file] old.cube [new.cube]
//
// For each call path, cubestat collects the value of the metric on
// every location (every thread of every process) and prints the sum,
// the mean with its 95% confidence interval, the minimum, the maximum
// and the imbalance: how much the most loaded location exceeds the
// mean. Call paths are listed in decreasing order of their sum, and
// only the -top paths are shown.
//
// If invoked on two files, cubestat matches call paths by the names of
// the regions along the path and prints the mean of both files, the
// percent change, and the p-value of a two-sample Welch t-test of the
// per-location values. If the change is not significant (p > α),
// cubestat displays a single ~ instead of the percent change.
//
// Values are converted to base units (seconds or bytes) and printed
// with a common SI or binary prefix.
//
// The -png option draws a box plot of the per-location values of the
// shown call paths of the first file.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/perftools/cube/cube"
	"github.com/perftools/cube/cubefmt"
	"github.com/perftools/cube/cubemath"
)

var exit = os.Exit // replaced during testing

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "usage: cubestat [options] old.cube [new.cube]\n")
	fmt.Fprintf(w, "options:\n")
	fs.PrintDefaults()
}

var errUsage = errors.New("bad usage")

func main() {
	log.SetPrefix("cubestat: ")
	log.SetFlags(0)
	if err := cubestat(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if err == errUsage {
			exit(2)
			return
		}
		log.Print(err)
		if hint := cubefmt.Hint(err); hint != "" {
			log.Print("hint: ", hint)
		}
		exit(1)
	}
}

func cubestat(w, wErr io.Writer, args []string) error {
	fs := flag.NewFlagSet("cubestat", flag.ContinueOnError)
	fs.SetOutput(wErr)
	fs.Usage = func() { usage(wErr, fs) }
	flagMetric := fs.String("metric", "", "summarize the metric with unique `name` (default first non-void metric)")
	flagTop := fs.Int("top", 10, "show the `n` call paths with the largest sums")
	flagAlpha := fs.Float64("alpha", cubemath.DefaultAlpha, "consider change significant if p < `α`")
	flagPNG := fs.String("png", "", "write a box plot of the values to `file`")
	flagVerbose := fs.Bool("v", false, "print warnings about the samples")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 || fs.NArg() > 2 || *flagTop < 1 {
		fs.Usage()
		return errUsage
	}

	var tables []*table
	files := cubefmt.Files{Paths: fs.Args()}
	for files.Next() {
		t, err := newTable(files.Cube(), *flagMetric)
		if err != nil {
			return fmt.Errorf("%s: %w", files.Path(), err)
		}
		t.File = files.Path()
		tables = append(tables, t)
	}
	if err := files.Err(); err != nil {
		return err
	}

	var warnings []string
	if len(tables) == 1 {
		warnings = formatSummaries(w, tables[0], *flagTop)
	} else {
		warnings = formatComparison(w, tables[0], tables[1], *flagTop, *flagAlpha)
	}
	if *flagVerbose {
		for _, warn := range warnings {
			fmt.Fprintf(wErr, "warning: %s\n", warn)
		}
	}

	if *flagPNG != "" {
		if err := chart(*flagPNG, tables[0], *flagTop); err != nil {
			return err
		}
	}
	return nil
}

// selectMetric returns the metric named uniqName, or if uniqName is
// empty, the first metric that is not void.
func selectMetric(c *cube.Cube, uniqName string) (*cube.Metric, error) {
	if uniqName != "" {
		m := c.MetricByName(uniqName)
		if m == nil {
			return nil, fmt.Errorf("no metric %q", uniqName)
		}
		return m, nil
	}
	for _, m := range c.AllMetrics() {
		if !m.IsVoid() {
			return m, nil
		}
	}
	return nil, errors.New("no metric with values")
}
