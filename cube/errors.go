// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cube

import (
	"errors"
	"fmt"
)

// Error kinds. Every *Error, and every positioned error produced by
// the cubefmt reader, unwraps to exactly one of these, so callers can
// classify failures with errors.Is.
var (
	// ErrXMLStructure reports bad element nesting, out-of-order
	// sections, or a missing or duplicated mandatory attribute.
	ErrXMLStructure = errors.New("xml structure error")

	// ErrReferentialIntegrity reports a reference to an id that was
	// never declared, or the redeclaration of an id.
	ErrReferentialIntegrity = errors.New("referential integrity error")

	// ErrRange reports a negative id, an out-of-range coordinate, a
	// dimension-count mismatch, or a severity row that is too long.
	ErrRange = errors.New("range error")

	// ErrUnsupportedVersion reports an unrecognized format version.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrClusteringLayout reports clustered data that cannot be
	// declustered because no iteration template region exists.
	ErrClusteringLayout = errors.New("clustering layout error")

	// ErrClusteringMappingGap reports an incomplete or unusable
	// cluster mapping. It is never fatal: it only appears in
	// Cube.Warnings, and the cube is left with clustering disabled.
	ErrClusteringMappingGap = errors.New("clustering mapping gap")
)

// An Error is a failure to build a cube. Kind is one of the Err*
// variables in this package.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func errorf(kind error, format string, args ...interface{}) *Error {
	return &Error{kind, fmt.Sprintf(format, args...)}
}
