// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dbtest provides test databases for package db, either
// empty or loaded with cube files.
//
// By default each database is a private in-memory SQLite database.
// With -cloud, a fresh database is created on a Cloud SQL instance
// and dropped when the test finishes.
package dbtest

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"flag"
	"os"
	"testing"

	_ "github.com/GoogleCloudPlatform/cloudsql-proxy/proxy/dialers/mysql"
	"github.com/perftools/cube/cube"
	"github.com/perftools/cube/cubefmt"
	"github.com/perftools/cube/storage/db"
	_ "github.com/perftools/cube/storage/db/sqlite3"
)

var (
	cloud    = flag.Bool("cloud", false, "run database tests on Cloud SQL instead of in-memory SQLite")
	cloudsql = flag.String("cloudsql", "cube-test:us-central1:cube-test", "Cloud SQL `instance` for -cloud")
)

// cloudDSN creates an empty database on the Cloud SQL instance and
// returns its data source name. The database is dropped when t
// finishes.
func cloudDSN(t testing.TB) string {
	t.Helper()
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		t.Fatal(err)
	}
	name := "cube-test-" + base64.RawURLEncoding.EncodeToString(buf[:])
	server := "root:@cloudsql(" + *cloudsql + ")/"

	admin, err := sql.Open("mysql", server)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := admin.Exec("CREATE DATABASE `" + name + "`"); err != nil {
		admin.Close()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if _, err := admin.Exec("DROP DATABASE `" + name + "`"); err != nil {
			t.Error(err)
		}
		admin.Close()
	})
	t.Logf("using Cloud SQL database %q", name)
	return server + name
}

// NewDB returns an empty test database. It is closed when t finishes.
func NewDB(t testing.TB) *db.DB {
	t.Helper()
	driver, dsn := "sqlite3", ":memory:"
	if *cloud {
		driver, dsn = "mysql", cloudDSN(t)
	}
	d, err := db.OpenSQL(driver, dsn)
	if err != nil {
		t.Fatalf("open %s database: %v", driver, err)
	}
	t.Cleanup(func() { d.Close() })

	n, err := d.CountUploads()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("new database has %d upload(s), want 0", n)
	}
	return d
}

// ReadCube parses the cube file at path.
func ReadCube(t testing.TB, path string) *cube.Cube {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	c, err := cubefmt.Parse(f, path)
	if err != nil {
		t.Fatalf("parsing %s: %v", path, err)
	}
	return c
}

// NewLoadedDB returns a test database holding one upload for each
// of the cube files at paths, and those uploads in order.
func NewLoadedDB(t testing.TB, paths ...string) (*db.DB, []*db.Upload) {
	t.Helper()
	d := NewDB(t)
	ups := make([]*db.Upload, 0, len(paths))
	for _, path := range paths {
		u, err := d.InsertCube(context.Background(), path, ReadCube(t, path))
		if err != nil {
			t.Fatalf("InsertCube(%s): %v", path, err)
		}
		ups = append(ups, u)
	}
	return d, ups
}
