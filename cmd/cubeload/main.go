// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Cubeload stores CUBE4 anchor files in a SQL database.
//
// Usage:
//
//	cubeload [-config file] [-driver name] [-dsn source] [-metric name] [-top n] [-v] file...
//
// Each input file becomes one upload. Cubeload prints the upload ID
// and the number of stored values of every file. The literal values
// of clustered files are stored; declustered values are not.
//
// The database is selected with -driver (sqlite3 or mysql) and -dsn,
// the data source name passed to the driver. The tables are created
// if they don't exist.
//
// With -metric, cubeload also prints the -top call paths of each
// upload with the largest value of that metric summed over all
// locations, as computed by the database.
//
// Defaults for these flags are read from the YAML file named by
// -config, if it exists:
//
//	driver: sqlite3
//	dsn: cubes.db
//	metric: time
//	top: 5
//
// Flags given on the command line override the file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/perftools/cube/cubefmt"
	"github.com/perftools/cube/storage/db"
	_ "github.com/perftools/cube/storage/db/sqlite3"
)

var exit = os.Exit // replaced during testing

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "usage: cubeload [options] file...\n")
	fmt.Fprintf(w, "options:\n")
	fs.PrintDefaults()
}

var errUsage = errors.New("bad usage")

func main() {
	log.SetPrefix("cubeload: ")
	log.SetFlags(0)
	if err := cubeload(context.Background(), os.Stdout, os.Stderr, os.Args[1:]); err != nil {
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

func cubeload(ctx context.Context, w, wErr io.Writer, args []string) error {
	fs := flag.NewFlagSet("cubeload", flag.ContinueOnError)
	fs.SetOutput(wErr)
	fs.Usage = func() { usage(wErr, fs) }
	flagConfig := fs.String("config", ".cubeload.yaml", "read default settings from `file`")
	flagDriver := fs.String("driver", "sqlite3", "database driver `name`: sqlite3 or mysql")
	flagDSN := fs.String("dsn", "cubes.db", "database data `source` name")
	flagMetric := fs.String("metric", "", "print the largest call paths of the metric with unique `name`")
	flagTop := fs.Int("top", 5, "print `n` call paths with -metric")
	flagVerbose := fs.Bool("v", false, "print warnings about the input files")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	settings, err := LoadSettings(*flagConfig)
	if err != nil {
		return err
	}
	if settings != nil {
		set := make(map[string]bool)
		fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
		apply := func(name, value string, dst *string) {
			if value != "" && !set[name] {
				*dst = value
			}
		}
		apply("driver", settings.Driver, flagDriver)
		apply("dsn", settings.DSN, flagDSN)
		apply("metric", settings.Metric, flagMetric)
		if settings.Top > 0 && !set["top"] {
			*flagTop = settings.Top
		}
	}

	d, err := db.OpenSQL(*flagDriver, *flagDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer d.Close()

	files := cubefmt.Files{Paths: fs.Args()}
	for files.Next() {
		c := files.Cube()
		if *flagVerbose {
			for _, warn := range c.Warnings {
				fmt.Fprintf(wErr, "%s: warning: %v\n", files.Path(), warn)
			}
		}
		u, err := d.InsertCube(ctx, files.Path(), c)
		if err != nil {
			return fmt.Errorf("%s: %w", files.Path(), err)
		}
		fmt.Fprintf(w, "%s: upload %d, %d values\n", files.Path(), u.ID, u.Rows)

		if *flagMetric == "" {
			continue
		}
		totals, err := d.Totals(ctx, u.ID, *flagMetric)
		if err != nil {
			return err
		}
		if len(totals) > *flagTop {
			totals = totals[:*flagTop]
		}
		for _, t := range totals {
			fmt.Fprintf(w, "\t%s (cnode %d)\t%g\n", t.Region, t.CnodeID, t.Value)
		}
	}
	return files.Err()
}
