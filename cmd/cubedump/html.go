// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io"

	"github.com/google/safehtml/template"
)

const htmlSource = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Cube dump</title>
<style>
.cube { border-collapse: collapse; }
.cube th { text-align: left; border-bottom: 1px solid #ccc; padding-top: 1em; }
.cube td { padding: 0em 1em 0em 0em; font-family: monospace; }
</style>
</head>
<body>
{{- range .}}
<h2>{{.Path}}</h2>
<p>Version {{.Version}}</p>
<table class="cube">
{{- if .Attrs}}
<tr><th colspan="4">attributes
{{- range .Attrs}}
<tr><td>{{.Name}}{{range .Fields}}<td>{{.}}{{end}}
{{- end}}
{{- end}}
<tr><th colspan="4">metrics
{{- range .Metrics}}
<tr><td>{{.Indent}}{{.Name}}{{range .Fields}}<td>{{.}}{{end}}
{{- end}}
<tr><th colspan="4">call tree{{if .Metric}} ({{.Metric}} summed over {{.NumLocs}} locations){{end}}
{{- range .Calls}}
<tr><td>{{.Indent}}{{.Name}}{{range .Fields}}<td>{{.}}{{end}}
{{- end}}
<tr><th colspan="4">system tree
{{- range .System}}
<tr><td>{{.Indent}}{{.Name}}{{range .Fields}}<td>{{.}}{{end}}
{{- end}}
{{- if .Topologies}}
<tr><th colspan="4">topologies
{{- range .Topologies}}
<tr><td>{{.Name}}{{range .Fields}}<td>{{.}}{{end}}
{{- end}}
{{- end}}
</table>
{{- end}}
</body>
</html>
`

var htmlTemplate = template.Must(template.New("dump").Parse(htmlSource))

// formatHTML writes an HTML document showing dumps to w.
func formatHTML(w io.Writer, dumps []*dump) error {
	return htmlTemplate.Execute(w, dumps)
}
