// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cubefmt

import (
	"fmt"

	"github.com/perftools/cube/cube"
)

// A SyntaxError is a fatal problem at a particular position of a
// cube file. Kind is one of the cube.Err* kinds, so callers can test
// it with errors.Is.
type SyntaxError struct {
	FileName  string
	Line, Col int
	Kind      error
	Msg       string
}

// Pos returns the file name and 1-based line of the error.
func (e *SyntaxError) Pos() (fileName string, line int) {
	return e.FileName, e.Line
}

func (e *SyntaxError) Error() string {
	if e.Col > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.FileName, e.Line, e.Col, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.FileName, e.Line, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.Kind
}

// structuref returns an ErrXMLStructure error.
func structuref(format string, args ...interface{}) error {
	return &cube.Error{Kind: cube.ErrXMLStructure, Msg: fmt.Sprintf(format, args...)}
}

// rangef returns an ErrRange error.
func rangef(format string, args ...interface{}) error {
	return &cube.Error{Kind: cube.ErrRange, Msg: fmt.Sprintf(format, args...)}
}

// reff returns an ErrReferentialIntegrity error.
func reff(format string, args ...interface{}) error {
	return &cube.Error{Kind: cube.ErrReferentialIntegrity, Msg: fmt.Sprintf(format, args...)}
}
