// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cubeunit normalizes the units of measure of cube metrics
// and formats numbers in those units.
package cubeunit

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
)

// A Class specifies what class of unit prefixes are in use.
type Class int

const (
	// Decimal values are scaled by powers of 1000 and use SI
	// prefixes such as "k" and "M".
	Decimal Class = iota
	// Binary values are scaled by powers of 1024 and use IEC
	// prefixes such as "Ki" and "Mi".
	Binary
)

func (c Class) String() string {
	switch c {
	case Decimal:
		return "Decimal"
	case Binary:
		return "Binary"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// A term is one factor of a compound unit such as "bytes/sec".
type term struct {
	name  string
	pos   int  // byte offset in the unit
	denom bool // term follows a "/"
}

func isUnitSep(r rune) bool {
	return r == '*' || r == '/' || r == '-' || unicode.IsSpace(r)
}

// terms splits a unit into its factors.
func terms(unit string) []term {
	var out []term
	denom := false
	start := -1
	for i, r := range unit + " " {
		if !isUnitSep(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, term{unit[start:i], start, denom})
			start = -1
		}
		switch r {
		case '*':
			denom = false
		case '/':
			denom = true
		}
	}
	return out
}

// ClassOf returns the Class of unit. Units that count bytes in the
// numerator are Binary; everything else is Decimal.
func ClassOf(unit string) Class {
	for _, t := range terms(unit) {
		if t.denom {
			continue
		}
		switch t.name {
		case "B", "byte", "bytes", "KB", "MB", "GB", "KiB", "MiB", "GiB":
			return Binary
		}
	}
	return Decimal
}

// baseUnits maps a pre-scaled unit to its base unit and the factor
// that converts a value to it.
var baseUnits = map[string]struct {
	base   string
	factor float64
}{
	"ns":   {"sec", 1e-9},
	"nsec": {"sec", 1e-9},
	"us":   {"sec", 1e-6},
	"usec": {"sec", 1e-6},
	"ms":   {"sec", 1e-3},
	"msec": {"sec", 1e-3},
	"s":    {"sec", 1},
	"KB":   {"bytes", 1e3},
	"MB":   {"bytes", 1e6},
	"GB":   {"bytes", 1e9},
	"KiB":  {"bytes", 1 << 10},
	"MiB":  {"bytes", 1 << 20},
	"GiB":  {"bytes", 1 << 30},
}

type tidyEntry struct {
	tidied string
	factor float64
}

var tidyCache sync.Map // unit string -> *tidyEntry

// Tidy normalizes a value with a pre-scaled unit of measure into base
// units. For example, a value in "usec" is converted to "sec", and a
// value in "MB" to "bytes". Only the numerator is rewritten. It
// returns the converted value and its unit.
func Tidy(value float64, unit string) (tidiedValue float64, tidiedUnit string) {
	if unit == "sec" || unit == "bytes" || unit == "occ" || unit == "" {
		return value, unit
	}
	if e, ok := tidyCache.Load(unit); ok {
		e := e.(*tidyEntry)
		return value * e.factor, e.tidied
	}
	e := tidyUnit(unit)
	tidyCache.Store(unit, e)
	return value * e.factor, e.tidied
}

func tidyUnit(unit string) *tidyEntry {
	var b strings.Builder
	factor := 1.0
	last := 0
	for _, t := range terms(unit) {
		bu, ok := baseUnits[t.name]
		if !ok || t.denom {
			continue
		}
		b.WriteString(unit[last:t.pos])
		b.WriteString(bu.base)
		last = t.pos + len(t.name)
		factor *= bu.factor
	}
	b.WriteString(unit[last:])
	return &tidyEntry{b.String(), factor}
}
