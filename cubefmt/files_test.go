// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cubefmt

import (
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/perftools/cube/cube"
)

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile("testdata/legacy.cube")
	if err != nil {
		t.Fatal(err)
	}
	gzPath := filepath.Join(dir, "legacy.cube.gz")
	f, err := os.Create(gzPath)
	if err != nil {
		t.Fatal(err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	badPath := filepath.Join(dir, "bad.cube")
	if err := os.WriteFile(badPath, []byte(prolog+`<cube version="9.9"/>`), 0666); err != nil {
		t.Fatal(err)
	}

	files := Files{Paths: []string{"testdata/modern.cube", gzPath, badPath, "testdata/legacy.cube"}}
	var versions []string
	for files.Next() {
		versions = append(versions, files.Cube().Version)
	}
	if len(versions) != 2 || versions[0] != "4.5" || versions[1] != "3.0" {
		t.Errorf("read versions %v, want [4.5 3.0]", versions)
	}
	if files.Path() != badPath {
		t.Errorf("stopped at %s, want %s", files.Path(), badPath)
	}
	if err := files.Err(); !errors.Is(err, cube.ErrUnsupportedVersion) {
		t.Errorf("Err() = %v, want an unsupported version error", err)
	}
	if files.Next() {
		t.Errorf("Next succeeded after an error")
	}
}

func TestFilesMissing(t *testing.T) {
	files := Files{Paths: []string{filepath.Join(t.TempDir(), "nope.cube")}}
	if files.Next() {
		t.Fatal("Next succeeded on a missing file")
	}
	if !errors.Is(files.Err(), os.ErrNotExist) {
		t.Errorf("Err() = %v, want a not-exist error", files.Err())
	}
}
