// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cubefmt reads and writes the anchor XML format of CUBE
// performance databases.
//
// An anchor document declares three dimensions (metrics, call tree,
// and system) and optionally Cartesian topologies and a severity
// matrix:
//
//	<?xml version="1.0" encoding="UTF-8"?>
//	<cube version="4.5">
//	  <attr key="CUBE_CT_AGGR" value="SUM"/>
//	  <metrics>
//	    <metric id="0">
//	      <disp_name>Time</disp_name><uniq_name>time</uniq_name>
//	      <dtype>FLOAT</dtype><uom>sec</uom>
//	    </metric>
//	  </metrics>
//	  <program>
//	    <region id="0" mod="a.c" begin="1" end="9"><name>main</name></region>
//	    <cnode id="0" calleeId="0"/>
//	  </program>
//	  <system>
//	    <systemtreenode id="0">
//	      <name>node0</name><class>machine</class>
//	      <locationgroup id="0">
//	        <name>rank 0</name><rank>0</rank><type>process</type>
//	        <location id="0"><name>master</name><rank>0</rank><type>CPU thread</type></location>
//	      </locationgroup>
//	    </systemtreenode>
//	  </system>
//	  <severity>
//	    <matrix metricId="0"><row cnodeId="0">1.5</row></matrix>
//	  </severity>
//	</cube>
//
// Versions 3.0 and 4.0 through 4.5 are accepted, including the legacy
// machine/node/process/thread system nesting.
package cubefmt

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync/atomic"

	"github.com/perftools/cube/cube"
)

// A Reader parses one anchor document.
type Reader struct {
	tokens   TokenSource
	fileName string
	parsed   bool

	// progress holds the float64 bits of Progress.
	progress atomic.Uint64
}

// NewReader returns a Reader that parses XML from r. fileName is used
// in error messages; it is purely diagnostic.
func NewReader(r io.Reader, fileName string) *Reader {
	return NewTokenReader(NewXMLTokens(r), fileName)
}

// NewTokenReader returns a Reader that parses the tokens of src.
func NewTokenReader(src TokenSource, fileName string) *Reader {
	if fileName == "" {
		fileName = "<unknown>"
	}
	return &Reader{tokens: src, fileName: fileName}
}

// Progress returns the fraction of the document's top-level sections
// parsed so far, between 0 and 1. It may be called concurrently with
// Parse.
func (r *Reader) Progress() float64 {
	return math.Float64frombits(r.progress.Load())
}

func (r *Reader) setProgress(v float64) {
	if v > r.Progress() {
		r.progress.Store(math.Float64bits(v))
	}
}

// Parse reads the whole document and returns the sealed cube.
//
// Any error other than an I/O error is a *SyntaxError whose Kind is
// one of the cube.Err* kinds. Parse can only be called once.
func (r *Reader) Parse() (*cube.Cube, error) {
	if r.parsed {
		return nil, errors.New("cubefmt: Parse called twice")
	}
	r.parsed = true

	p := newParseContext(r)
	var last Pos
	for {
		tok, err := r.tokens.Next()
		if err != nil {
			return nil, r.tokenError(p, last, err)
		}
		last = tok.Pos
		if tok.Kind == EOF {
			break
		}
		if err := p.step(tok); err != nil {
			return nil, r.syntaxError(tok.Pos, err)
		}
	}
	c, err := p.finish()
	if err != nil {
		return nil, r.syntaxError(last, err)
	}
	return c, nil
}

// syntaxError wraps a parse error with the position it occurred at.
func (r *Reader) syntaxError(pos Pos, err error) error {
	se := &SyntaxError{FileName: r.fileName, Line: pos.Line, Col: pos.Col, Kind: cube.ErrXMLStructure, Msg: err.Error()}
	var ce *cube.Error
	if errors.As(err, &ce) {
		se.Kind, se.Msg = ce.Kind, ce.Msg
	}
	return se
}

// tokenError converts an error of the token source.
func (r *Reader) tokenError(p *parseContext, last Pos, err error) error {
	var xe *xml.SyntaxError
	if !errors.As(err, &xe) {
		if strings.HasPrefix(err.Error(), "xml: ") {
			// Prolog errors of the decoder, such as an
			// unsupported XML version.
			return &SyntaxError{FileName: r.fileName, Line: last.Line, Kind: cube.ErrXMLStructure, Msg: strings.TrimPrefix(err.Error(), "xml: ")}
		}
		return fmt.Errorf("%s:%d: %w", r.fileName, last.Line, err)
	}
	msg := xe.Msg
	if strings.Contains(msg, "unexpected EOF") {
		if len(p.frames) > 1 {
			msg = fmt.Sprintf("unexpected end of file inside <%s>", p.top().tag)
		} else {
			msg = "unexpected end of file"
		}
	}
	return &SyntaxError{FileName: r.fileName, Line: xe.Line, Kind: cube.ErrXMLStructure, Msg: msg}
}

// Parse parses a whole anchor document from r.
func Parse(r io.Reader, fileName string) (*cube.Cube, error) {
	return NewReader(r, fileName).Parse()
}
