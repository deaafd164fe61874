// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package texttab lays out fixed-width text tables for the cube
// commands.
package texttab

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Table does layout of text-based tables.
//
// Row and Cell return the Table so callers can chain them to build up
// a row at once.
type Table struct {
	rows [][]cell
	ws   []int
}

type cell struct {
	value string
	right bool
}

// A CellOption modifies a cell.
type CellOption func(c *cell)

// Right right-aligns a cell within its column.
var Right CellOption = func(c *cell) { c.right = true }

// Row starts a new row in table t.
func (t *Table) Row() *Table {
	t.rows = append(t.rows, nil)
	return t
}

// Cell adds a cell at the end of the current row.
func (t *Table) Cell(value string, opts ...CellOption) *Table {
	if len(t.rows) == 0 {
		t.Row()
	}
	c := cell{value: value}
	for _, o := range opts {
		o(&c)
	}
	r := len(t.rows) - 1
	col := len(t.rows[r])
	t.rows[r] = append(t.rows[r], c)
	for len(t.ws) <= col {
		t.ws = append(t.ws, 0)
	}
	if n := utf8.RuneCountInString(value); n > t.ws[col] {
		t.ws[col] = n
	}
	return t
}

// Len returns the number of rows in t.
func (t *Table) Len() int {
	return len(t.rows)
}

// Format lays out table t and writes it to w. Columns are separated
// by two spaces and lines carry no trailing white space.
func (t *Table) Format(w io.Writer) error {
	var line strings.Builder
	for _, row := range t.rows {
		line.Reset()
		for col, c := range row {
			if col > 0 {
				line.WriteString("  ")
			}
			pad := t.ws[col] - utf8.RuneCountInString(c.value)
			if c.right {
				line.WriteString(strings.Repeat(" ", pad))
				line.WriteString(c.value)
			} else {
				line.WriteString(c.value)
				line.WriteString(strings.Repeat(" ", pad))
			}
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(line.String(), " ")); err != nil {
			return err
		}
	}
	return nil
}
