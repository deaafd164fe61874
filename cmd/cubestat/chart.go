// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"image/color"
	"math"
	"os"
	"path"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// chart writes a PNG box plot of the per-location values of the top n
// rows of t to file.
func chart(file string, t *table, n int) error {
	rows := t.top(n)

	pl := plot.New()
	pl.Title.Text = t.Metric + " over " + plural(t.NumLocs, "location")
	pl.Y.Label.Text = t.Unit

	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	pl.Add(grid)

	w := vg.Points(20)
	var names []string
	for i, r := range rows {
		b, err := plotter.NewBoxPlot(w, float64(i), plotter.Values(r.Sample.Values))
		if err != nil {
			return err
		}
		b.BoxStyle.Color = color.Black
		pl.Add(b)
		names = append(names, path.Base(r.Path))
	}
	pl.NominalX(names...)
	pl.X.Tick.Label.Rotation = -math.Pi / 8
	pl.X.Tick.Label.YAlign = draw.YTop
	pl.X.Tick.Label.XAlign = draw.XLeft

	width := vg.Length(2+len(rows)) * 1.5 * vg.Centimeter
	if width < 12*vg.Centimeter {
		width = 12 * vg.Centimeter
	}
	height := 10 * vg.Centimeter
	can := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(150), vgimg.UseBackgroundColor(color.White))
	pl.Draw(draw.New(can))

	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: can}).WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
