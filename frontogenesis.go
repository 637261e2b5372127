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
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"github.com/ctessum/unit"
)

// FrontConfig configures the frontogenesis comparison: the Petterssen
// frontogenesis function next to the time tendency of the potential
// temperature gradient magnitude, both at one pressure level, ensemble
// member, and time.
type FrontConfig struct {
	// ThetaFile is the NetCDF file holding potential temperature on
	// pressure levels, and WindFile the horizontal wind components on
	// the same grid.
	ThetaFile string
	WindFile  string

	// OutputDir is the directory the comparison figure is written to.
	// It is created if it does not exist.
	OutputDir string

	// BorderFile is an optional shapefile of coastlines or political
	// borders, in geographic coordinates, to overlay on the maps.
	BorderFile string

	Level      int       // pressure level [hPa]
	Member     int       // ensemble member number
	TargetTime time.Time // analysis time

	// ColorRange [K km⁻¹ h⁻¹] is the symmetric color scale limit shared
	// by the two panels.
	ColorRange float64
}

// DefaultFrontConfig returns the configuration for the standard
// analysis layout.
func DefaultFrontConfig() FrontConfig {
	return FrontConfig{
		ThetaFile:  "output-w2nc/th.nc",
		WindFile:   "output-w2nc/ua,va.nc",
		OutputDir:  "frontogenesis_comparison",
		Level:      850,
		Member:     1,
		TargetTime: time.Date(2006, time.June, 9, 1, 0, 0, 0, time.UTC),
		ColorRange: 0.05,
	}
}

// secondsToHoursMetersToKm converts a rate in K m⁻¹ s⁻¹ to K km⁻¹ h⁻¹.
const secondsToHoursMetersToKm = 3600. * 1000.

// FrontResult holds the two fields of the frontogenesis comparison,
// both in K km⁻¹ h⁻¹.
type FrontResult struct {
	Frontogenesis *sparse.DenseArray
	Tendency      *sparse.DenseArray

	Before, After time.Time
	OutputFile    string
}

// Run computes the frontogenesis comparison and writes a two-panel map
// figure. All coordinate lookups are resolved before anything is drawn
// or written, so a missing member, level, or time leaves no partial
// output behind.
func (c FrontConfig) Run(msgChan chan string) (*FrontResult, error) {
	msg := func(format string, a ...interface{}) {
		if msgChan != nil {
			msgChan <- fmt.Sprintf(format, a...)
		}
	}
	msg("Target analysis: %d hPa at %v, member %d.",
		c.Level, c.TargetTime.Format(time.RFC3339), c.Member)

	theta, err := OpenGridDataset(c.ThetaFile)
	if err != nil {
		return nil, err
	}
	defer theta.Close()
	wind, err := OpenGridDataset(c.WindFile)
	if err != nil {
		return nil, err
	}
	defer wind.Close()

	before := c.TargetTime.Add(-time.Hour)
	after := c.TargetTime.Add(time.Hour)
	// Resolve every lookup up front.
	for _, d := range []*GridDataset{theta, wind} {
		if _, err := d.MemberIndex(c.Member); err != nil {
			return nil, err
		}
		if _, err := d.LevelIndex(c.Level); err != nil {
			return nil, err
		}
		for _, t := range []time.Time{before, c.TargetTime, after} {
			if _, err := d.TimeIndex(t); err != nil {
				return nil, err
			}
		}
	}

	dx, dy, err := LatLonDeltas(theta.Lat, theta.Lon)
	if err != nil {
		return nil, err
	}
	msg("Longitude %.2f° to %.2f°, latitude %.2f° to %.2f°; dx≈%.0f m, dy≈%.0f m.",
		minElement(theta.Lon), maxElement(theta.Lon),
		minElement(theta.Lat), maxElement(theta.Lat),
		arrayMean(dx), arrayMean(dy))

	th, err := readSliceAt(theta, "th", c.Member, c.TargetTime, c.Level)
	if err != nil {
		return nil, err
	}
	u, err := readSliceAt(wind, "ua", c.Member, c.TargetTime, c.Level)
	if err != nil {
		return nil, err
	}
	v, err := readSliceAt(wind, "va", c.Member, c.TargetTime, c.Level)
	if err != nil {
		return nil, err
	}
	front, frontDims, err := Frontogenesis(th, u, v, dx, dy)
	if err != nil {
		return nil, err
	}

	tendency, tendencyDims, err := c.gradientTendency(theta, dx, dy, before, after)
	if err != nil {
		return nil, err
	}

	result := &FrontResult{Before: before, After: after}
	result.Frontogenesis, err = toKmPerHour(front, frontDims)
	if err != nil {
		return nil, err
	}
	result.Tendency, err = toKmPerHour(tendency, tendencyDims)
	if err != nil {
		return nil, err
	}
	msg("Frontogenesis range %.2e to %.2e, tendency range %.2e to %.2e [K/km/h].",
		minElement(result.Frontogenesis), maxElement(result.Frontogenesis),
		minElement(result.Tendency), maxElement(result.Tendency))

	var borders []geom.Polygon
	if c.BorderFile != "" {
		borders, err = readBorders(c.BorderFile)
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(c.OutputDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("wrfana: creating output directory: %v", err)
	}
	result.OutputFile = filepath.Join(c.OutputDir,
		fmt.Sprintf("frontogenesis_tendency_comparison_%s.png",
			c.TargetTime.Format("2006-01-02T15:04:05")))
	panels := [2]mapPanel{
		{
			title: fmt.Sprintf("Frontogenesis\n%s", c.TargetTime.Format("2006-01-02 15:04")),
			data:  result.Frontogenesis,
		},
		{
			title: fmt.Sprintf("Tendency of |∇θ|\n%s to %s",
				before.Format("2006-01-02 15:04"), after.Format("2006-01-02 15:04")),
			data: result.Tendency,
		},
	}
	if err := drawComparisonMaps(result.OutputFile, theta.Lat, theta.Lon,
		panels, c.ColorRange, borders); err != nil {
		return nil, err
	}
	msg("Output saved: %s.", result.OutputFile)
	return result, nil
}

// gradientTendency computes the centered time difference of the
// potential temperature gradient magnitude between before and after.
func (c FrontConfig) gradientTendency(theta *GridDataset, dx, dy *sparse.DenseArray,
	before, after time.Time) (*sparse.DenseArray, unit.Dimensions, error) {

	magAt := func(t time.Time) (*sparse.DenseArray, unit.Dimensions, error) {
		th, err := readSliceAt(theta, "th", c.Member, t, c.Level)
		if err != nil {
			return nil, nil, err
		}
		ddx, ddy, dims, err := GeospatialGradient(th, dx, dy)
		if err != nil {
			return nil, nil, err
		}
		return GradientMagnitude(ddx, ddy), dims, nil
	}
	magBefore, _, err := magAt(before)
	if err != nil {
		return nil, nil, err
	}
	magAfter, gradDims, err := magAt(after)
	if err != nil {
		return nil, nil, err
	}
	interval := unit.New(after.Sub(before).Seconds(), unit.Dimensions{unit.TimeDim: 1})
	out := magAfter.Copy()
	out.AddDense(magBefore.ScaleCopy(-1))
	out.Scale(1 / interval.Value())
	dims := unit.Div(unit.New(1, gradDims), interval).Dimensions()
	return out, dims, nil
}

// toKmPerHour converts a rate field from K m⁻¹ s⁻¹ to K km⁻¹ h⁻¹,
// checking its dimensions first.
func toKmPerHour(a *sparse.DenseArray, dims unit.Dimensions) (*sparse.DenseArray, error) {
	if !dims.Matches(KelvinPerMeterPerSecond) {
		return nil, fmt.Errorf("wrfana: rate dimensions are %v; expected %v",
			dims, KelvinPerMeterPerSecond)
	}
	out := a.Copy()
	out.Scale(secondsToHoursMetersToKm)
	return out, nil
}

func minElement(a *sparse.DenseArray) float64 {
	min := math.Inf(1)
	for _, v := range a.Elements {
		if !math.IsNaN(v) && v < min {
			min = v
		}
	}
	return min
}

func maxElement(a *sparse.DenseArray) float64 {
	max := math.Inf(-1)
	for _, v := range a.Elements {
		if !math.IsNaN(v) && v > max {
			max = v
		}
	}
	return max
}
