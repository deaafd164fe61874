// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cubefmt

import (
	"strings"

	"github.com/perftools/cube/cube"
)

// A frame is one open element.
type frame struct {
	state state
	tag   string
	pos   Pos

	// rank is the highest child rank seen so far.
	rank int
	seen map[string]bool

	attrs  map[string]string // XML attributes
	fields map[string]string // text of field children
	kv     map[string]string // <attr key value> children
	text   strings.Builder

	// id is the file id of the element, if it has one.
	id int

	committed bool

	// Pending data of entities that is only known at commit.
	exprs     map[string]string
	numParams map[string]float64
	strParams map[string]string
	dims      []cube.Dim
}

func (f *frame) setKV(key, value string) bool {
	if f.kv == nil {
		f.kv = make(map[string]string)
	}
	if _, ok := f.kv[key]; ok {
		return false
	}
	f.kv[key] = value
	return true
}

// systemStyle is the nesting used by the system dimension of a file.
type systemStyle uint8

const (
	styleUnknown systemStyle = iota
	styleModern              // systemtreenode/locationgroup/location
	styleLegacy              // machine/node/process/thread
)

// parseContext is the state of one parse.
type parseContext struct {
	r      *Reader
	b      *cube.Builder
	frames []*frame

	prolog bool
	done   bool
	cube   *cube.Cube

	// Parents of the next entity of each kind.
	metricStack []int
	cnodeStack  []int
	stnStack    []int
	groupStack  []int

	cart         *cube.Cartesian
	matrixMetric int

	style systemStyle

	// topologies is set once a <topologies> section was opened,
	// inside <system> or after it.
	topologies bool

	// Legacy machine and node ids live in their own id spaces.
	// They are mapped to sequentially assigned system tree node
	// ids.
	machines *cube.Registry[int]
	nodes    *cube.Registry[int]
	nextSTN  int
}

func newParseContext(r *Reader) *parseContext {
	p := &parseContext{
		r:        r,
		b:        cube.NewBuilder(),
		machines: cube.NewRegistry[int]("machine"),
		nodes:    cube.NewRegistry[int]("node"),
	}
	p.frames = []*frame{{state: sDocument, seen: make(map[string]bool)}}
	return p
}

func (p *parseContext) top() *frame {
	return p.frames[len(p.frames)-1]
}

func (p *parseContext) parent() *frame {
	return p.frames[len(p.frames)-2]
}

// step consumes one token.
func (p *parseContext) step(tok Token) error {
	switch tok.Kind {
	case ProcInst:
		return p.procInst(tok)
	case StartTag:
		if !p.prolog {
			return structuref("missing XML declaration before <%s>", tok.Name)
		}
		return p.start(tok)
	case EndTag:
		return p.end(tok)
	case Text:
		if textStates[p.top().state] {
			p.top().text.WriteString(tok.Text)
			return nil
		}
		if strings.TrimSpace(tok.Text) != "" {
			if len(p.frames) == 1 {
				return structuref("unexpected text outside <cube>")
			}
			return structuref("unexpected text in <%s>", p.top().tag)
		}
	}
	return nil
}

func (p *parseContext) procInst(tok Token) error {
	if tok.Name != "xml" {
		return nil
	}
	if p.prolog || len(p.frames) > 1 || p.done {
		return structuref("XML declaration not at start of document")
	}
	p.prolog = true
	if v, _ := procInstParam(tok.Text, "version"); v != "1.0" {
		return structuref("XML declaration has version %q, want \"1.0\"", v)
	}
	if enc, _ := procInstParam(tok.Text, "encoding"); enc != "UTF-8" {
		return structuref("XML declaration has encoding %q, want \"UTF-8\"", enc)
	}
	return nil
}

func (p *parseContext) start(tok Token) error {
	parent := p.top()
	if parent.state == sDocument && p.done {
		return structuref("unexpected <%s> after </cube>", tok.Name)
	}
	prod, ok := lookup(parent.state, tok.Name)
	if !ok {
		return p.unexpected(tok.Name, parent)
	}
	if parent.seen[tok.Name] && !prod.repeat {
		return structuref("duplicate <%s> in <%s>", tok.Name, parent.tag)
	}
	if prod.rank < parent.rank {
		return structuref("<%s> out of order in <%s>", tok.Name, parent.tag)
	}
	if prod.state == sTopologies {
		if p.topologies {
			return structuref("duplicate <topologies>: only one section is allowed, inside or after <system>")
		}
		p.topologies = true
	}
	if prod.structural && !parent.committed {
		if err := p.commit(parent); err != nil {
			return err
		}
	}
	parent.rank = prod.rank
	parent.seen[tok.Name] = true

	f := &frame{
		state: prod.state,
		tag:   tok.Name,
		pos:   tok.Pos,
		seen:  make(map[string]bool),
		attrs: make(map[string]string, len(tok.Attrs)),
		id:    -1,
	}
	for _, a := range tok.Attrs {
		if _, ok := f.attrs[a.Name]; ok {
			return structuref("duplicate attribute %q on <%s>", a.Name, tok.Name)
		}
		f.attrs[a.Name] = a.Value
	}
	p.frames = append(p.frames, f)
	if fn := actionTable[f.state].open; fn != nil {
		return fn(p, f)
	}
	return nil
}

func (p *parseContext) unexpected(tag string, parent *frame) error {
	switch parent.state {
	case sMachine, sNode, sProcess, sThread:
		return structuref("malformed process/thread nesting: <%s> is not allowed in <%s>", tag, parent.tag)
	}
	switch tag {
	case "process", "thread", "node":
		return structuref("malformed process/thread nesting: <%s> is not allowed in <%s>", tag, parent.tag)
	}
	if parent.state == sDocument {
		return structuref("unexpected <%s>, want <cube>", tag)
	}
	return structuref("unexpected <%s> in <%s>", tag, parent.tag)
}

func (p *parseContext) end(tok Token) error {
	f := p.top()
	if len(p.frames) == 1 || f.tag != tok.Name {
		return structuref("unexpected </%s>", tok.Name)
	}
	if actionTable[f.state].commit != nil {
		if !f.committed {
			if err := p.commit(f); err != nil {
				return err
			}
		}
	} else if err := p.checkRequired(f); err != nil {
		return err
	}
	if fn := actionTable[f.state].close; fn != nil {
		if err := fn(p, f); err != nil {
			return err
		}
	}
	p.frames = p.frames[:len(p.frames)-1]
	return nil
}

// commit defines the entity of f in the builder.
func (p *parseContext) commit(f *frame) error {
	if err := p.checkRequired(f); err != nil {
		return err
	}
	f.committed = true
	if fn := actionTable[f.state].commit; fn != nil {
		return fn(p, f)
	}
	return nil
}

func (p *parseContext) checkRequired(f *frame) error {
	for _, c := range grammar[f.state] {
		if !c.required || f.seen[c.tag] {
			continue
		}
		if f.state == sCube {
			return structuref("missing <%s> dimension section", c.tag)
		}
		return structuref("missing <%s> in <%s>", c.tag, f.tag)
	}
	return nil
}

// finish is called at the end of input.
func (p *parseContext) finish() (*cube.Cube, error) {
	if p.done {
		return p.cube, nil
	}
	if !p.prolog && len(p.frames) == 1 {
		return nil, structuref("empty file")
	}
	if len(p.frames) > 1 {
		return nil, structuref("unexpected end of file inside <%s>", p.top().tag)
	}
	return nil, structuref("missing <cube>")
}

func push(s []int, id int) []int { return append(s, id) }

func pop(s []int) []int { return s[:len(s)-1] }

// peek returns the top of s, or cube.NoParent if s is empty.
func peek(s []int) int {
	if len(s) == 0 {
		return cube.NoParent
	}
	return s[len(s)-1]
}
