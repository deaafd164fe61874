// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cubefmt

import (
	"encoding/xml"
	"fmt"
	"io"
)

// A TokenKind is the category of a Token.
type TokenKind uint8

const (
	EOF TokenKind = iota
	ProcInst
	StartTag
	EndTag
	Text
)

func (k TokenKind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case ProcInst:
		return "ProcInst"
	case StartTag:
		return "StartTag"
	case EndTag:
		return "EndTag"
	case Text:
		return "Text"
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// A Pos is a 1-based line and column in the input.
type Pos struct {
	Line, Col int
}

// An Attr is one attribute of a start tag.
type Attr struct {
	Name, Value string
}

// A Token is one lexical unit of an anchor document.
type Token struct {
	Kind TokenKind

	// Name is the element name of a StartTag or EndTag, or the
	// target of a ProcInst.
	Name string

	// Attrs are the attributes of a StartTag, in input order.
	Attrs []Attr

	// Text is the character data of a Text token, or the
	// instruction of a ProcInst.
	Text string

	Pos Pos
}

// A TokenSource supplies the tokens of one document. After returning
// an EOF token or an error, Next is not called again.
type TokenSource interface {
	Next() (Token, error)
}

// xmlTokens is a TokenSource over encoding/xml.
//
// Adjacent character data is merged into a single Text token, even
// across comments. Comments and directives are dropped.
type xmlTokens struct {
	d       *xml.Decoder
	pending *Token
}

// NewXMLTokens returns a TokenSource that reads XML from r.
func NewXMLTokens(r io.Reader) TokenSource {
	d := xml.NewDecoder(r)
	// The declared encoding is checked by the grammar, which
	// reports it with a precise message. Let the decoder pass any
	// label through rather than fail on it.
	d.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	return &xmlTokens{d: d}
}

func (x *xmlTokens) Next() (Token, error) {
	if x.pending != nil {
		t := *x.pending
		x.pending = nil
		return t, nil
	}
	var text []byte
	var textPos Pos
	haveText := false
	for {
		line, col := x.d.InputPos()
		pos := Pos{line, col}
		tok, err := x.d.Token()
		var t Token
		if err == io.EOF {
			t = Token{Kind: EOF, Pos: pos}
		} else if err != nil {
			return Token{}, err
		} else {
			switch tok := tok.(type) {
			case xml.CharData:
				if !haveText {
					textPos, haveText = pos, true
				}
				text = append(text, tok...)
				continue
			case xml.Comment, xml.Directive:
				continue
			case xml.ProcInst:
				t = Token{Kind: ProcInst, Name: tok.Target, Text: string(tok.Inst), Pos: pos}
			case xml.StartElement:
				t = Token{Kind: StartTag, Name: tok.Name.Local, Pos: pos}
				for _, a := range tok.Attr {
					t.Attrs = append(t.Attrs, Attr{a.Name.Local, a.Value})
				}
			case xml.EndElement:
				t = Token{Kind: EndTag, Name: tok.Name.Local, Pos: pos}
			default:
				continue
			}
		}
		if haveText {
			x.pending = &t
			return Token{Kind: Text, Text: string(text), Pos: textPos}, nil
		}
		return t, nil
	}
}

// procInstParam returns the value of the pseudo-attribute param in
// the instruction s of an XML declaration, such as version in
// `version="1.0" encoding="UTF-8"`.
func procInstParam(s, param string) (string, bool) {
	for {
		// Skip to the next name.
		i := 0
		for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\r' || s[i] == '\n') {
			i++
		}
		s = s[i:]
		if s == "" {
			return "", false
		}
		eq := 0
		for eq < len(s) && s[eq] != '=' {
			eq++
		}
		if eq+1 >= len(s) {
			return "", false
		}
		name := s[:eq]
		for len(name) > 0 && name[len(name)-1] == ' ' {
			name = name[:len(name)-1]
		}
		q := s[eq+1]
		if q != '"' && q != '\'' {
			return "", false
		}
		end := eq + 2
		for end < len(s) && s[end] != q {
			end++
		}
		if end >= len(s) {
			return "", false
		}
		if name == param {
			return s[eq+2 : end], true
		}
		s = s[end+1:]
	}
}
