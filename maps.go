/*
Copyright © 2025 the wrfana authors.
This file is part of wrfana.

wrfana is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

wrfana is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with wrfana.  If not, see <http://www.gnu.org/licenses/>.
*/

package wrfana

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/carto"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/sparse"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// A mapPanel is one field of a side-by-side map comparison.
type mapPanel struct {
	title string
	data  *sparse.DenseArray
}

// drawComparisonMaps renders two fields on geographic maps side by side
// with a shared symmetric color scale and writes the figure to outPath.
// Values beyond ±colorRange are drawn in the end colors of the scale.
func drawComparisonMaps(outPath string, lat, lon *sparse.DenseArray,
	panels [2]mapPanel, colorRange float64, borders []geom.Polygon) error {

	const (
		figWidth     = 16 * vg.Inch
		figHeight    = 6 * vg.Inch
		panelWidth   = figWidth / 2
		titleHeight  = 0.65 * vg.Inch
		legendHeight = 0.5 * vg.Inch
		legendVspace = 2 * vg.Millimeter
	)
	img := vgimg.NewWith(vgimg.UseWH(figWidth, figHeight), vgimg.UseDPI(150))
	c := draw.New(img)

	titleFont, err := vg.MakeFont(plot.DefaultFont, vg.Points(13))
	if err != nil {
		return fmt.Errorf("wrfana: loading font: %v", err)
	}
	ts := draw.TextStyle{
		Color:  color.Black,
		Font:   titleFont,
		XAlign: draw.XCenter,
		YAlign: draw.YTop,
	}

	cmap := carto.NewColorMap(carto.Linear)
	cmap.Font = plot.DefaultFont
	cmap.FontSize = 9
	for _, p := range panels {
		cmap.AddArray(clampElements(p.data, colorRange))
	}
	cmap.AddArray([]float64{-colorRange, colorRange})
	cmap.Set()

	cells := gridCells(lat, lon)
	N, S := maxElement(lat), minElement(lat)
	E, W := maxElement(lon), minElement(lon)

	lineStyle := draw.LineStyle{Width: 0.1 * vg.Millimeter}
	glyph := draw.GlyphStyle{}
	for ip, p := range panels {
		left := vg.Length(ip) * panelWidth
		pc := draw.Crop(c, left, left+panelWidth-figWidth, 0, 0)
		mapc := draw.Crop(pc, 0.2*vg.Inch, -0.2*vg.Inch,
			legendHeight+legendVspace, -titleHeight)
		legendc := draw.Crop(pc, 0.75*vg.Inch, -0.75*vg.Inch, 0, legendHeight-figHeight)

		m := carto.NewCanvas(N, S, E, W, mapc)
		ny, nx := p.data.Shape[0], p.data.Shape[1]
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				v := p.data.Get(j, i)
				if math.IsNaN(v) {
					continue
				}
				fill := cmap.GetColor(clamp(v, colorRange))
				lineStyle.Color = fill
				if err := m.DrawVector(cells[j*nx+i], fill, lineStyle, glyph); err != nil {
					return fmt.Errorf("wrfana: drawing map cell: %v", err)
				}
			}
		}

		stroke := color.NRGBA{0, 0, 0, 255}
		borderStyle := draw.LineStyle{Color: stroke, Width: 0.25 * vg.Millimeter}
		fill := color.NRGBA{0, 0, 0, 0}
		for _, g := range borders {
			if err := m.DrawVector(g, fill, borderStyle, glyph); err != nil {
				return fmt.Errorf("wrfana: drawing border: %v", err)
			}
		}

		x := (pc.Min.X + pc.Max.X) / 2
		y := pc.Max.Y - 0.05*vg.Inch
		for _, line := range strings.Split(p.title, "\n") {
			pc.FillText(ts, vg.Point{X: x, Y: y}, line)
			y -= vg.Points(16)
		}
		if err := cmap.Legend(&legendc, "[K/(km·hr)]"); err != nil {
			return fmt.Errorf("wrfana: drawing legend: %v", err)
		}
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("wrfana: creating figure file: %v", err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("wrfana: writing figure: %v", err)
	}
	return f.Close()
}

// gridCells builds one polygon per grid point, with edges halfway to
// the neighboring points, in row-major order.
func gridCells(lat, lon *sparse.DenseArray) []geom.Polygon {
	cLat := cellCorners(lat)
	cLon := cellCorners(lon)
	ny, nx := lat.Shape[0], lat.Shape[1]
	cells := make([]geom.Polygon, 0, ny*nx)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			cells = append(cells, geom.Polygon{{
				{X: cLon[j][i], Y: cLat[j][i]},
				{X: cLon[j][i+1], Y: cLat[j][i+1]},
				{X: cLon[j+1][i+1], Y: cLat[j+1][i+1]},
				{X: cLon[j+1][i], Y: cLat[j+1][i]},
				{X: cLon[j][i], Y: cLat[j][i]},
			}})
		}
	}
	return cells
}

// cellCorners computes the (ny+1, nx+1) corner coordinates of a grid
// from its (ny, nx) center coordinates, extrapolating at the edges.
func cellCorners(a *sparse.DenseArray) [][]float64 {
	ny, nx := a.Shape[0], a.Shape[1]
	// at returns the center value with edge indices mirrored outward.
	at := func(j, i int) float64 {
		jc := j
		if jc < 0 {
			jc = 0
		} else if jc >= ny {
			jc = ny - 1
		}
		ic := i
		if ic < 0 {
			ic = 0
		} else if ic >= nx {
			ic = nx - 1
		}
		v := a.Get(jc, ic)
		if j < 0 {
			v += v - a.Get(minInt(jc+1, ny-1), ic)
		} else if j >= ny {
			v += v - a.Get(maxInt(jc-1, 0), ic)
		}
		if i < 0 {
			v += a.Get(jc, ic) - a.Get(jc, minInt(ic+1, nx-1))
		} else if i >= nx {
			v += a.Get(jc, ic) - a.Get(jc, maxInt(ic-1, 0))
		}
		return v
	}
	corners := make([][]float64, ny+1)
	for j := range corners {
		corners[j] = make([]float64, nx+1)
		for i := range corners[j] {
			corners[j][i] = (at(j-1, i-1) + at(j-1, i) + at(j, i-1) + at(j, i)) / 4
		}
	}
	return corners
}

// readBorders reads the polygons of a shapefile in geographic
// coordinates.
func readBorders(filename string) ([]geom.Polygon, error) {
	d, err := shp.NewDecoder(filename)
	if err != nil {
		return nil, fmt.Errorf("wrfana: opening border file: %v", err)
	}
	defer d.Close()
	var polys []geom.Polygon
	for {
		var row struct{ geom.Geom }
		if !d.DecodeRow(&row) {
			break
		}
		switch g := row.Geom.(type) {
		case geom.Polygon:
			polys = append(polys, g)
		case geom.MultiPolygon:
			polys = append(polys, g...)
		}
	}
	if d.Error() != nil {
		return nil, fmt.Errorf("wrfana: reading border file %s: %v", filename, d.Error())
	}
	return polys, nil
}

// clampElements returns the elements of a limited to ±limit, for
// setting a color scale. NaN values pass through.
func clampElements(a *sparse.DenseArray, limit float64) []float64 {
	out := make([]float64, len(a.Elements))
	for i, v := range a.Elements {
		out[i] = clamp(v, limit)
	}
	return out
}

func clamp(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
