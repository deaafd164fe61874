// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Cubedump prints the dimensions of CUBE4 anchor files.
//
// Usage:
//
//	cubedump [-html] [-metric name] [-v] file...
//
// For each input file, cubedump prints the top-level attributes, the
// metric tree, the call tree, the system tree and the Cartesian
// topologies. Every call path is annotated with the value of one
// metric summed over all locations. The metric is selected with
// -metric by its unique name; by default it is the first metric that
// is not void.
//
// Clustered files are shown declustered: the clustering root has one
// "iteration=<i>" child per iteration.
//
// Input files ending in ".gz" are decompressed. The file name "-"
// reads standard input.
//
// The -html option prints the same information as an HTML document.
//
// The -v option prints recoverable problems found in the files, such
// as an incomplete cluster mapping.
//
// If a file cannot be read, cubedump prints the position of the
// problem and, when it recognizes the problem, a hint on how to fix
// it.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/perftools/cube/cubefmt"
)

var exit = os.Exit // replaced during testing

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "usage: cubedump [options] file...\n")
	fmt.Fprintf(w, "options:\n")
	fs.PrintDefaults()
}

// errUsage is returned by cubedump after printing the usage message.
var errUsage = errors.New("bad usage")

func main() {
	log.SetPrefix("cubedump: ")
	log.SetFlags(0)
	if err := cubedump(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
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

func cubedump(w, wErr io.Writer, args []string) error {
	fs := flag.NewFlagSet("cubedump", flag.ContinueOnError)
	fs.SetOutput(wErr)
	fs.Usage = func() { usage(wErr, fs) }
	flagHTML := fs.Bool("html", false, "print the dump as an HTML document")
	flagMetric := fs.String("metric", "", "annotate call paths with the metric with unique `name`")
	flagVerbose := fs.Bool("v", false, "print warnings about the input files")
	if err := fs.Parse(args); err != nil {
		// fs has already printed the usage message.
		return errUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	var dumps []*dump
	files := cubefmt.Files{Paths: fs.Args(), AllowStdin: true}
	for files.Next() {
		c := files.Cube()
		d, err := newDump(files.Path(), c, *flagMetric)
		if err != nil {
			return err
		}
		if *flagVerbose {
			for _, warn := range c.Warnings {
				fmt.Fprintf(wErr, "%s: warning: %v\n", files.Path(), warn)
			}
		}
		dumps = append(dumps, d)
	}
	if err := files.Err(); err != nil {
		return err
	}

	if *flagHTML {
		return formatHTML(w, dumps)
	}
	for i, d := range dumps {
		if i > 0 {
			fmt.Fprintf(w, "\n")
		}
		if err := d.formatText(w); err != nil {
			return err
		}
	}
	return nil
}
