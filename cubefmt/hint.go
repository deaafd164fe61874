// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cubefmt

import (
	"errors"
	"strings"

	"github.com/perftools/cube/cube"
)

// Hint returns a sentence that explains a common cause of err, or ""
// if it has nothing to add. The text of err itself is never changed.
func Hint(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, cube.ErrUnsupportedVersion) {
		return "the file was written by a CUBE version this reader does not know; accepted versions are " +
			strings.Join(cube.KnownVersions, ", ")
	}
	msg := err.Error()
	switch {
	case strings.HasSuffix(msg, "empty file"):
		return "the file is empty; the program that wrote it may have crashed before writing any data"
	case strings.Contains(msg, "inside <severity>"),
		strings.Contains(msg, "inside <matrix>"),
		strings.Contains(msg, "inside <row>"):
		return "the severity section is truncated; the file was probably not written completely"
	case strings.Contains(msg, "unexpected end of file"):
		return "the file ends early; it was probably not written completely"
	case strings.Contains(msg, "dimension section"):
		return "every cube needs <metrics>, <program> and <system> sections; the file may be incomplete or not a CUBE anchor file"
	case strings.Contains(msg, "process/thread"):
		return "in legacy files <thread> must be nested in <process>, <process> in <node>, and <node> in <machine>"
	case errors.Is(err, cube.ErrClusteringLayout):
		return "the clustering attributes do not match the call tree; try reading the file without clustering"
	}
	return ""
}
