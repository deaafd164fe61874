// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cubefmt

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/perftools/cube/cube"
)

// A Files reads cubes from a sequence of anchor files.
//
// Files whose name ends in ".gz" are decompressed transparently.
type Files struct {
	// Paths is the list of file names to read in.
	Paths []string

	// AllowStdin indicates that the path "-" should be treated as
	// stdin and if the file list is empty, it should be treated
	// as consisting of stdin.
	AllowStdin bool

	// inputs is the sequence of remaining inputs, or nil if this
	// Files has not started yet.
	inputs []string
	path   string
	cube   *cube.Cube
	err    error
}

func (f *Files) init() {
	f.inputs = []string{}
	if f.AllowStdin && len(f.Paths) == 0 {
		f.inputs = append(f.inputs, "-")
	}
	f.inputs = append(f.inputs, f.Paths...)
}

// Next parses the next file and reports whether it succeeded. If
// there are no more files, or a file could not be read or parsed,
// it returns false; Err then returns the error, if any.
func (f *Files) Next() bool {
	if f.err != nil {
		return false
	}
	if f.inputs == nil {
		f.init()
	}
	if len(f.inputs) == 0 {
		return false
	}
	f.path, f.inputs = f.inputs[0], f.inputs[1:]
	f.cube, f.err = f.parse(f.path)
	return f.err == nil
}

func (f *Files) parse(path string) (*cube.Cube, error) {
	var r io.Reader
	if f.AllowStdin && path == "-" {
		r = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		r = file
	}
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	return NewReader(r, path).Parse()
}

// Cube returns the cube parsed by the last successful call to Next.
func (f *Files) Cube() *cube.Cube {
	return f.cube
}

// Path returns the path of the file read by the last call to Next.
func (f *Files) Path() string {
	return f.path
}

// Err returns the error that stopped Next, if any.
func (f *Files) Err() error {
	return f.err
}
