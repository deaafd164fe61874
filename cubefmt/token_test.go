// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cubefmt

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestXMLTokens(t *testing.T) {
	const input = `<?xml version="1.0" encoding="UTF-8"?>
<a x="1" y="2">ab<!-- note -->cd<b/></a>`
	src := NewXMLTokens(strings.NewReader(input))
	var got []Token
	for {
		tok, err := src.Next()
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, tok)
		if tok.Kind == EOF {
			break
		}
	}
	want := []Token{
		{Kind: ProcInst, Name: "xml", Text: `version="1.0" encoding="UTF-8"`, Pos: Pos{1, 1}},
		{Kind: Text, Text: "\n", Pos: Pos{1, 39}},
		{Kind: StartTag, Name: "a", Attrs: []Attr{{"x", "1"}, {"y", "2"}}, Pos: Pos{2, 1}},
		{Kind: Text, Text: "abcd", Pos: Pos{2, 16}},
		{Kind: StartTag, Name: "b", Pos: Pos{2, 33}},
		{Kind: EndTag, Name: "b", Pos: Pos{2, 37}},
		{Kind: EndTag, Name: "a", Pos: Pos{2, 37}},
		{Kind: EOF, Pos: Pos{2, 41}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tokens (-want +got):\n%s", diff)
	}
}

func TestProcInstParam(t *testing.T) {
	for _, test := range []struct {
		inst, param, want string
		ok                bool
	}{
		{`version="1.0" encoding="UTF-8"`, "version", "1.0", true},
		{`version="1.0" encoding="UTF-8"`, "encoding", "UTF-8", true},
		{`version='1.0'  encoding = 'latin1'`, "encoding", "latin1", true},
		{`version="1.0"`, "encoding", "", false},
		{`version=1.0`, "version", "", false},
	} {
		got, ok := procInstParam(test.inst, test.param)
		if got != test.want || ok != test.ok {
			t.Errorf("procInstParam(%q, %q) = %q, %v, want %q, %v", test.inst, test.param, got, ok, test.want, test.ok)
		}
	}
}
