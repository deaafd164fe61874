// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package db stores parsed cubes in a SQL database, so that the
// results of many experiments can be queried together.
package db

import (
	"bytes"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"text/template"

	"github.com/perftools/cube/cube"
	"golang.org/x/net/context"
)

// DB is a high-level interface to a cube database. It's safe for
// concurrent use by multiple goroutines.
type DB struct {
	sql *sql.DB // underlying database connection
	// prepared statements
	insertUpload *sql.Stmt
	countUploads *sql.Stmt
}

// OpenSQL creates a DB backed by a SQL database. The parameters are
// the same as the parameters for sql.Open. Only mysql and sqlite3 are
// explicitly supported; other database engines will receive MySQL
// query syntax which may or may not be compatible.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			return nil, err
		}
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		return nil, err
	}
	if err := d.prepareStatements(); err != nil {
		return nil, err
	}
	return d, nil
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a connection to driverName.
// This is used by the sqlite3 package to register a ConnectHook.
// It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// createTmpl is the template used to prepare the CREATE statements
// for the database. It is evaluated with . as a map containing one
// entry whose key is the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Uploads (
	UploadID {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}SERIAL PRIMARY KEY AUTO_INCREMENT{{end}},
	Path VARCHAR(1024),
	Version VARCHAR(16)
);
CREATE TABLE IF NOT EXISTS Metrics (
	UploadID BIGINT UNSIGNED,
	MetricID BIGINT UNSIGNED,
	ParentID BIGINT,
	UniqName VARCHAR(255),
	DispName VARCHAR(255),
	UOM VARCHAR(64),
	Kind VARCHAR(32),
	PRIMARY KEY (UploadID, MetricID),
	FOREIGN KEY (UploadID) REFERENCES Uploads(UploadID) ON UPDATE CASCADE ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS Regions (
	UploadID BIGINT UNSIGNED,
	RegionID BIGINT UNSIGNED,
	Name VARCHAR(1024),
	Module VARCHAR(1024),
	BeginLine BIGINT,
	EndLine BIGINT,
	PRIMARY KEY (UploadID, RegionID),
	FOREIGN KEY (UploadID) REFERENCES Uploads(UploadID) ON UPDATE CASCADE ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS Cnodes (
	UploadID BIGINT UNSIGNED,
	CnodeID BIGINT UNSIGNED,
	ParentID BIGINT,
	RegionID BIGINT UNSIGNED,
	Line BIGINT,
	PRIMARY KEY (UploadID, CnodeID),
	FOREIGN KEY (UploadID, RegionID) REFERENCES Regions(UploadID, RegionID) ON UPDATE CASCADE ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS Locations (
	UploadID BIGINT UNSIGNED,
	LocationID BIGINT UNSIGNED,
	Name VARCHAR(255),
	Type VARCHAR(32),
	ThreadRank BIGINT,
	ProcessRank BIGINT,
	PRIMARY KEY (UploadID, LocationID),
	FOREIGN KEY (UploadID) REFERENCES Uploads(UploadID) ON UPDATE CASCADE ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS Severities (
	UploadID BIGINT UNSIGNED,
	MetricID BIGINT UNSIGNED,
	CnodeID BIGINT UNSIGNED,
	LocationID BIGINT UNSIGNED,
	Value DOUBLE,
	PRIMARY KEY (UploadID, MetricID, CnodeID, LocationID),
	FOREIGN KEY (UploadID, MetricID) REFERENCES Metrics(UploadID, MetricID) ON UPDATE CASCADE ON DELETE CASCADE,
	FOREIGN KEY (UploadID, CnodeID) REFERENCES Cnodes(UploadID, CnodeID) ON UPDATE CASCADE ON DELETE CASCADE,
	FOREIGN KEY (UploadID, LocationID) REFERENCES Locations(UploadID, LocationID) ON UPDATE CASCADE ON DELETE CASCADE
);
{{if .sqlite3}}
CREATE INDEX IF NOT EXISTS MetricsUniqName ON Metrics(UniqName);
{{else}}
CREATE INDEX MetricsUniqName ON Metrics(UniqName);
{{end}}
`))

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			if driverName != "sqlite3" && strings.Contains(q, "CREATE INDEX") && strings.Contains(err.Error(), "Duplicate key name") {
				// MySQL has no CREATE INDEX IF NOT EXISTS.
				continue
			}
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

// prepareStatements calls db.sql.Prepare on reusable SQL statements.
func (db *DB) prepareStatements() error {
	var err error
	db.insertUpload, err = db.sql.Prepare("INSERT INTO Uploads(Path, Version) VALUES (?, ?)")
	if err != nil {
		return err
	}
	db.countUploads, err = db.sql.Prepare("SELECT COUNT(*) FROM Uploads")
	if err != nil {
		return err
	}
	return nil
}

// An Upload is one cube stored in the database.
type Upload struct {
	// ID is the primary key of the upload.
	ID int64

	// Rows is the number of severity values stored.
	Rows int
}

// batchRows is the number of rows inserted by one statement.
const batchRows = 100

// A batch accumulates the rows of a multi-row INSERT.
type batch struct {
	ctx   context.Context
	tx    *sql.Tx
	head  string // "INSERT INTO T VALUES "
	ncols int
	args  []interface{}
	n     int
}

func (b *batch) add(vals ...interface{}) error {
	if len(vals) != b.ncols {
		panic(fmt.Sprintf("%s: got %d values, want %d", b.head, len(vals), b.ncols))
	}
	b.args = append(b.args, vals...)
	b.n++
	if b.n == batchRows {
		return b.flush()
	}
	return nil
}

func (b *batch) flush() error {
	if b.n == 0 {
		return nil
	}
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", b.ncols), ", ") + ")"
	query := b.head + strings.TrimSuffix(strings.Repeat(row+", ", b.n), ", ")
	_, err := b.tx.ExecContext(b.ctx, query, b.args...)
	b.args, b.n = b.args[:0], 0
	return err
}

// InsertCube stores c, read from path, as a new upload. Values of
// declustered call paths are not stored; the literal cluster values
// they are computed from are. NaN values are skipped.
func (db *DB) InsertCube(ctx context.Context, path string, c *cube.Cube) (u *Upload, err error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	res, err := tx.StmtContext(ctx, db.insertUpload).ExecContext(ctx, path, c.Version)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	u = &Upload{ID: id}

	newBatch := func(table string, ncols int) *batch {
		return &batch{ctx: ctx, tx: tx, head: "INSERT INTO " + table + " VALUES ", ncols: ncols}
	}

	metrics := newBatch("Metrics", 7)
	for _, m := range c.AllMetrics() {
		pid := int64(cube.NoParent)
		if m.Parent != nil {
			pid = int64(m.Parent.ID)
		}
		if err := metrics.add(id, m.ID, pid, m.UniqName, m.DispName, m.UOM, m.Kind.String()); err != nil {
			return nil, err
		}
	}
	if err := metrics.flush(); err != nil {
		return nil, err
	}

	regions := newBatch("Regions", 6)
	for _, r := range c.Regions() {
		if r.Synthetic {
			continue
		}
		if err := regions.add(id, r.ID, r.Name, r.Mod, r.Begin, r.End); err != nil {
			return nil, err
		}
	}
	if err := regions.flush(); err != nil {
		return nil, err
	}

	cnodes := newBatch("Cnodes", 5)
	for _, n := range c.AllCnodes() {
		if n.Synthetic() {
			continue
		}
		pid := int64(cube.NoParent)
		if n.Parent != nil {
			pid = int64(n.Parent.ID)
		}
		if err := cnodes.add(id, n.ID, pid, n.Callee.ID, n.Line); err != nil {
			return nil, err
		}
	}
	if err := cnodes.flush(); err != nil {
		return nil, err
	}

	locs := newBatch("Locations", 6)
	for _, l := range c.Locations() {
		if err := locs.add(id, l.ID, l.Name, l.Type, l.Rank, l.Parent.Rank); err != nil {
			return nil, err
		}
	}
	if err := locs.flush(); err != nil {
		return nil, err
	}

	sev := newBatch("Severities", 5)
	c.Severity().Rows(func(metric, cnode int, values []float64) {
		for loc, v := range values {
			if err != nil {
				return
			}
			if math.IsNaN(v) {
				continue
			}
			err = sev.add(id, metric, cnode, loc, v)
			u.Rows++
		}
	})
	if err != nil {
		return nil, err
	}
	if err := sev.flush(); err != nil {
		return nil, err
	}
	return u, nil
}

// CountUploads returns the number of uploads in the database.
func (db *DB) CountUploads() (int, error) {
	var uploads int
	err := db.countUploads.QueryRow().Scan(&uploads)
	return uploads, err
}

// An UploadInfo describes a stored upload.
type UploadInfo struct {
	ID      int64
	Path    string
	Version string
}

// ListUploads returns all uploads in ascending ID order.
func (db *DB) ListUploads(ctx context.Context) ([]UploadInfo, error) {
	rows, err := db.sql.QueryContext(ctx, "SELECT UploadID, Path, Version FROM Uploads ORDER BY UploadID")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UploadInfo
	for rows.Next() {
		var u UploadInfo
		if err := rows.Scan(&u.ID, &u.Path, &u.Version); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// A Total is the sum of a metric over all locations at one call path.
type Total struct {
	CnodeID int
	Region  string
	Value   float64
}

// Totals returns, for every call path with stored values of the
// metric with unique name uniqName, the sum over all locations, in
// descending order of the sum.
func (db *DB) Totals(ctx context.Context, uploadID int64, uniqName string) ([]Total, error) {
	rows, err := db.sql.QueryContext(ctx, `
SELECT s.CnodeID, r.Name, SUM(s.Value) AS Total
FROM Severities s
JOIN Metrics m ON m.UploadID = s.UploadID AND m.MetricID = s.MetricID
JOIN Cnodes c ON c.UploadID = s.UploadID AND c.CnodeID = s.CnodeID
JOIN Regions r ON r.UploadID = c.UploadID AND r.RegionID = c.RegionID
WHERE s.UploadID = ? AND m.UniqName = ?
GROUP BY s.CnodeID, r.Name
ORDER BY Total DESC, s.CnodeID`, uploadID, uniqName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Total
	for rows.Next() {
		var t Total
		if err := rows.Scan(&t.CnodeID, &t.Region, &t.Value); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteUpload removes an upload and everything stored with it.
func (db *DB) DeleteUpload(ctx context.Context, uploadID int64) error {
	res, err := db.sql.ExecContext(ctx, "DELETE FROM Uploads WHERE UploadID = ?", uploadID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("upload %d not found", uploadID)
	}
	return nil
}

// Close closes the database connections, releasing any open resources.
func (db *DB) Close() error {
	if err := db.insertUpload.Close(); err != nil {
		return err
	}
	if err := db.countUploads.Close(); err != nil {
		return err
	}
	return db.sql.Close()
}
