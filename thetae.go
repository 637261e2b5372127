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

	"github.com/ctessum/sparse"
	"github.com/ctessum/unit"
)

// ThetaEConfig configures the iterative computation of equivalent
// potential temperature gradients, divergence, and vorticity across all
// ensemble members, times, and a set of pressure levels.
type ThetaEConfig struct {
	// ThetaEFile is the NetCDF file holding equivalent potential
	// temperature interpolated to pressure levels.
	ThetaEFile string

	// WindFile is the NetCDF file holding the horizontal wind components
	// on the same grid and levels.
	WindFile string

	// OutputFile is the path of the NetCDF file to create. Its directory
	// is created if it does not exist.
	OutputFile string

	// Levels are the pressure levels [hPa] to process. Levels that are
	// not present in the input are skipped with a warning.
	Levels []int
}

// DefaultThetaEConfig returns the configuration for the standard analysis
// layout.
func DefaultThetaEConfig() ThetaEConfig {
	return ThetaEConfig{
		ThetaEFile: "extract_wrf_to_nc/eth.nc",
		WindFile:   "extract_wrf_to_nc/ua,va.nc",
		OutputFile: "output/theta_e/WRF/the_gra.nc",
		Levels:     []int{875, 850, 825},
	}
}

// thetaEVariables describes the derived fields that Process writes, in
// output order.
var thetaEVariables = []struct {
	name     string
	units    unit.Dimensions
	longName string
}{
	{"eth", unit.Dimensions{unit.TemperatureDim: 1}, "equivalent potential temperature"},
	{"dtedx", KelvinPerMeter, "zonal gradient of equivalent potential temperature"},
	{"dtedy", KelvinPerMeter, "meridional gradient of equivalent potential temperature"},
	{"absthe", KelvinPerMeter, "magnitude of the equivalent potential temperature gradient"},
	{"divg", PerSecond, "horizontal divergence"},
	{"vort", PerSecond, "relative vorticity"},
}

// A SliceError records the failure of one (member, time, level)
// combination. The corresponding output slice is left as NaN.
type SliceError struct {
	Member int
	Time   time.Time
	Level  int
	Err    error
}

func (e SliceError) Error() string {
	return fmt.Sprintf("member %d, time %v, level %d hPa: %v",
		e.Member, e.Time.Format("2006-01-02 15:04"), e.Level, e.Err)
}

// A Report summarizes one run of ThetaEConfig.Process.
type Report struct {
	// ProcessedLevels are the requested levels that were present in the
	// input, in requested order. MissingLevels are the ones that were
	// not.
	ProcessedLevels []int
	MissingLevels   []int

	// Completed and Failed count (member, time, level) slices.
	Completed int
	Failed    int

	// Errors holds one record per failed slice.
	Errors []SliceError
}

// Process computes the derived fields for every ensemble member, time,
// and requested pressure level and writes them to c.OutputFile. Progress
// and warning messages are sent to msgChan if it is non-nil. A failure
// on an individual slice is recorded in the returned Report and the
// slice is left as NaN in the output; only setup and output errors abort
// the run.
func (c ThetaEConfig) Process(msgChan chan string) (*Report, error) {
	msg := func(format string, a ...interface{}) {
		if msgChan != nil {
			msgChan <- fmt.Sprintf(format, a...)
		}
	}

	theta, err := OpenGridDataset(c.ThetaEFile)
	if err != nil {
		return nil, err
	}
	defer theta.Close()
	wind, err := OpenGridDataset(c.WindFile)
	if err != nil {
		return nil, err
	}
	defer wind.Close()

	r := new(Report)
	for _, l := range c.Levels {
		if _, err := theta.LevelIndex(l); err != nil {
			r.MissingLevels = append(r.MissingLevels, l)
			continue
		}
		r.ProcessedLevels = append(r.ProcessedLevels, l)
	}
	if len(r.MissingLevels) > 0 {
		msg("Levels %v are not in %s; processing %v.",
			r.MissingLevels, c.ThetaEFile, r.ProcessedLevels)
	}
	if len(r.ProcessedLevels) == 0 {
		return nil, fmt.Errorf("wrfana: none of the requested levels %v are in %s (have %v)",
			c.Levels, c.ThetaEFile, theta.Levels)
	}

	dx, dy, err := LatLonDeltas(theta.Lat, theta.Lon)
	if err != nil {
		return nil, err
	}
	msg("Grid spacing: dx≈%v, dy≈%v.",
		unit.New(arrayMean(dx), unit.Dimensions{unit.LengthDim: 1}),
		unit.New(arrayMean(dy), unit.Dimensions{unit.LengthDim: 1}))

	nm, nt, nl := len(theta.Members), len(theta.Times), len(r.ProcessedLevels)
	ny, nx := theta.Ny, theta.Nx
	out := make(map[string]*sparse.DenseArray)
	for _, v := range thetaEVariables {
		a := sparse.ZerosDense(nm, nt, nl, ny, nx)
		for i := range a.Elements {
			a.Elements[i] = math.NaN()
		}
		out[v.name] = a
	}

	msg("Processing %d members × %d times × %d levels.", nm, nt, nl)
	for mi, member := range theta.Members {
		for ti, t := range theta.Times {
			for li, level := range r.ProcessedLevels {
				fields, err := c.processSlice(theta, wind, dx, dy, member, t, level)
				if err != nil {
					r.Failed++
					se := SliceError{Member: member, Time: t, Level: level, Err: err}
					r.Errors = append(r.Errors, se)
					msg("Skipping slice: %v.", se)
					continue
				}
				for name, field := range fields {
					dst := out[name]
					for j := 0; j < ny; j++ {
						for i := 0; i < nx; i++ {
							dst.Set(field.Get(j, i), mi, ti, li, j, i)
						}
					}
				}
				r.Completed++
			}
		}
		msg("Member %d done (%d of %d).", member, mi+1, nm)
	}

	for _, v := range thetaEVariables {
		min, max, valid := fieldStats(out[v.name])
		if valid == 0 {
			msg("%s [%v]: no valid data.", v.name, v.units)
			continue
		}
		msg("%s [%v]: %d of %d values valid, min %.4g, max %.4g.",
			v.name, v.units, valid, len(out[v.name].Elements), min, max)
	}

	d := &AnalysisData{
		Members:    theta.Members,
		TimeValues: encodeTimes(theta),
		TimeUnits:  theta.TimeUnits(),
		Levels:     r.ProcessedLevels,
		Lat:        theta.Lat,
		Lon:        theta.Lon,
		Attrs: map[string]string{
			"title":           "equivalent potential temperature gradient, divergence, and vorticity",
			"description":     "per-member, per-time, per-level horizontal diagnostics on the WRF grid",
			"method":          "second-order finite differences on non-uniform great-circle spacing",
			"pressure_levels": fmt.Sprint(r.ProcessedLevels),
			"source_eth":      c.ThetaEFile,
			"source_wind":     c.WindFile,
			"history":         fmt.Sprintf("created %s by wrfana", time.Now().Format(time.RFC3339)),
		},
	}
	for _, v := range thetaEVariables {
		d.AddVariable(v.name, v.longName, v.units.String(), out[v.name])
		d.SetVariableAttr(v.name, "pressure_levels", fmt.Sprint(r.ProcessedLevels))
	}

	if err := os.MkdirAll(filepath.Dir(c.OutputFile), os.ModePerm); err != nil {
		return nil, fmt.Errorf("wrfana: creating output directory: %v", err)
	}
	w, err := os.Create(c.OutputFile)
	if err != nil {
		return nil, fmt.Errorf("wrfana: creating output file: %v", err)
	}
	if err := d.Write(w); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("wrfana: closing output file: %v", err)
	}
	if fi, err := os.Stat(c.OutputFile); err == nil {
		msg("Wrote %s (%.1f MB); %d slices completed, %d failed.",
			c.OutputFile, float64(fi.Size())/1.0e6, r.Completed, r.Failed)
	}
	return r, nil
}

// processSlice computes all derived fields for one (member, time, level)
// combination.
func (c ThetaEConfig) processSlice(theta, wind *GridDataset, dx, dy *sparse.DenseArray,
	member int, t time.Time, level int) (map[string]*sparse.DenseArray, error) {

	eth, err := readSliceAt(theta, "eth", member, t, level)
	if err != nil {
		return nil, err
	}
	u, err := readSliceAt(wind, "ua", member, t, level)
	if err != nil {
		return nil, err
	}
	v, err := readSliceAt(wind, "va", member, t, level)
	if err != nil {
		return nil, err
	}

	dtedx, dtedy, gradDims, err := GeospatialGradient(eth, dx, dy)
	if err != nil {
		return nil, err
	}
	if !gradDims.Matches(KelvinPerMeter) {
		return nil, fmt.Errorf("gradient dimensions are %v; expected %v", gradDims, KelvinPerMeter)
	}
	divg, _, err := Divergence(u, v, dx, dy)
	if err != nil {
		return nil, err
	}
	vort, _, err := Vorticity(u, v, dx, dy)
	if err != nil {
		return nil, err
	}
	return map[string]*sparse.DenseArray{
		"eth":    eth,
		"dtedx":  dtedx,
		"dtedy":  dtedy,
		"absthe": GradientMagnitude(dtedx, dtedy),
		"divg":   divg,
		"vort":   vort,
	}, nil
}

// readSliceAt resolves coordinate values to indices in d and reads one
// 2-D slice. Each dataset may order its members, times, and levels
// differently, so the lookup is per-dataset.
func readSliceAt(d *GridDataset, varName string, member int, t time.Time, level int) (*sparse.DenseArray, error) {
	mi, err := d.MemberIndex(member)
	if err != nil {
		return nil, err
	}
	ti, err := d.TimeIndex(t)
	if err != nil {
		return nil, err
	}
	li, err := d.LevelIndex(level)
	if err != nil {
		return nil, err
	}
	return d.ReadSlice(varName, mi, ti, li)
}

// fieldStats returns the minimum, maximum, and count of the non-NaN
// elements of a.
func fieldStats(a *sparse.DenseArray) (min, max float64, valid int) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range a.Elements {
		if math.IsNaN(v) {
			continue
		}
		valid++
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, valid
}

func encodeTimes(d *GridDataset) []float64 {
	vals := make([]float64, len(d.Times))
	for i, t := range d.Times {
		vals[i] = d.EncodeTime(t)
	}
	return vals
}
