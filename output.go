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
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Output dimension names.
var analysisDims = []string{"member", "Time", "level", "south_north", "west_east"}

// AnalysisData holds a set of derived fields on the ensemble analysis grid,
// ready to be serialized to a NetCDF file.
type AnalysisData struct {
	// Members, TimeValues, and Levels are the coordinate values of the
	// first three dimensions. TimeValues are numeric offsets described by
	// TimeUnits (CF convention).
	Members    []int
	TimeValues []float64
	TimeUnits  string
	Levels     []int

	// Lat and Lon are the 2-D horizontal coordinates [degrees].
	Lat, Lon *sparse.DenseArray

	// Attrs holds global file attributes.
	Attrs map[string]string

	data map[string]*analysisVariable
}

type analysisVariable struct {
	description string
	units       string
	attrs       map[string]string
	data        *sparse.DenseArray
}

// AddVariable adds a 5-D field to the dataset.
func (d *AnalysisData) AddVariable(name, description, units string, data *sparse.DenseArray) {
	if d.data == nil {
		d.data = make(map[string]*analysisVariable)
	}
	d.data[name] = &analysisVariable{
		description: description,
		units:       units,
		attrs:       make(map[string]string),
		data:        data,
	}
}

// SetVariableAttr attaches an extra attribute to a previously added
// variable.
func (d *AnalysisData) SetVariableAttr(varName, attr, value string) {
	d.data[varName].attrs[attr] = value
}

// Variable returns the data for the named variable, or nil if it has not
// been added.
func (d *AnalysisData) Variable(name string) *sparse.DenseArray {
	v, ok := d.data[name]
	if !ok {
		return nil
	}
	return v.data
}

// VariableNames returns the names of all added variables, sorted.
func (d *AnalysisData) VariableNames() []string {
	names := make([]string, 0, len(d.data))
	for n := range d.data {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Write serializes d to the NetCDF file w with float32 encoding and no
// compression.
func (d *AnalysisData) Write(w *os.File) error {
	ny, nx := d.Lat.Shape[0], d.Lat.Shape[1]
	h := cdf.NewHeader(analysisDims,
		[]int{len(d.Members), len(d.TimeValues), len(d.Levels), ny, nx})

	// Global attributes, written in sorted order so the output is
	// reproducible.
	attrNames := make([]string, 0, len(d.Attrs))
	for n := range d.Attrs {
		attrNames = append(attrNames, n)
	}
	sort.Strings(attrNames)
	for _, n := range attrNames {
		h.AddAttribute("", n, d.Attrs[n])
	}

	// Coordinate variables.
	h.AddVariable("member", []string{"member"}, []int32{0})
	h.AddAttribute("member", "long_name", "ensemble member number")
	h.AddVariable("Time", []string{"Time"}, []float64{0})
	h.AddAttribute("Time", "units", d.TimeUnits)
	h.AddVariable("level", []string{"level"}, []int32{0})
	h.AddAttribute("level", "units", "hPa")
	h.AddVariable("XLAT", []string{"south_north", "west_east"}, []float32{0})
	h.AddAttribute("XLAT", "units", "degrees_north")
	h.AddVariable("XLONG", []string{"south_north", "west_east"}, []float32{0})
	h.AddAttribute("XLONG", "units", "degrees_east")

	names := d.VariableNames()
	for _, name := range names {
		v := d.data[name]
		h.AddVariable(name, analysisDims, []float32{0})
		h.AddAttribute(name, "units", v.units)
		h.AddAttribute(name, "long_name", v.description)
		vAttrs := make([]string, 0, len(v.attrs))
		for n := range v.attrs {
			vAttrs = append(vAttrs, n)
		}
		sort.Strings(vAttrs)
		for _, n := range vAttrs {
			h.AddAttribute(name, n, v.attrs[n])
		}
	}
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("wrfana: creating netcdf file: %v", err)
	}

	members := make([]int32, len(d.Members))
	for i, m := range d.Members {
		members[i] = int32(m)
	}
	if err := writeInts(f, "member", members); err != nil {
		return err
	}
	tw := f.Writer("Time", []int{0}, []int{len(d.TimeValues)})
	if _, err := tw.Write(d.TimeValues); err != nil {
		return fmt.Errorf("wrfana: writing variable Time to netcdf file: %v", err)
	}
	levels := make([]int32, len(d.Levels))
	for i, l := range d.Levels {
		levels[i] = int32(l)
	}
	if err := writeInts(f, "level", levels); err != nil {
		return err
	}
	if err := writeNCF(f, "XLAT", d.Lat); err != nil {
		return err
	}
	if err := writeNCF(f, "XLONG", d.Lon); err != nil {
		return err
	}
	for _, name := range names {
		if err := writeNCF(f, name, d.data[name].data); err != nil {
			return err
		}
	}
	if err := cdf.UpdateNumRecs(w); err != nil {
		return fmt.Errorf("wrfana: finalizing netcdf file: %v", err)
	}
	return nil
}

// writeNCF writes data to variable Var in netcdf file f with float32
// encoding.
func writeNCF(f *cdf.File, Var string, data *sparse.DenseArray) error {
	// Check that data matches dimensions.
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("wrfana: writing variable %s: dims are %d but array length is %d",
			Var, n, len(data.Elements))
	}
	data32 := make([]float32, len(data.Elements))
	for i, e := range data.Elements {
		data32[i] = float32(e)
	}
	end := f.Header.Lengths(Var)
	start := make([]int, len(end))
	w := f.Writer(Var, start, end)
	if _, err := w.Write(data32); err != nil {
		return fmt.Errorf("wrfana: writing variable %s to netcdf file: %v", Var, err)
	}
	return nil
}

func writeInts(f *cdf.File, Var string, data []int32) error {
	w := f.Writer(Var, []int{0}, []int{len(data)})
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("wrfana: writing variable %s to netcdf file: %v", Var, err)
	}
	return nil
}
