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
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// GridDataset is a gridded dataset extracted from an ensemble WRF run,
// dimensioned (member, time, pressure level, y, x), with 2-D latitude and
// longitude coordinates that are shared by every member, time, and level.
type GridDataset struct {
	f  *os.File
	ff *cdf.File

	// names maps canonical dimension and coordinate names to the names
	// used in the file.
	names map[string]string

	// Members holds the ensemble member numbers in file order.
	Members []int
	// Times holds the time coordinate in file order.
	Times []time.Time
	// Levels holds the pressure levels [hPa] in file order.
	Levels []int
	// Lat and Lon are 2-D coordinate arrays [degrees], shape (ny, nx).
	Lat, Lon *sparse.DenseArray

	// Ny and Nx are the numbers of grid cells in the South-North and
	// West-East directions.
	Ny, Nx int

	timeBase time.Time
	timeStep time.Duration
}

// OpenGridDataset opens the gridded dataset at path, translating WRF
// dimension and coordinate naming to the canonical scheme.
func OpenGridDataset(path string) (*GridDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wrfana: opening dataset: %v", err)
	}
	ff, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("wrfana: opening dataset %s: %v", path, err)
	}
	d := &GridDataset{
		f:     f,
		ff:    ff,
		names: wrfDimensions,
	}
	if err := d.readCoordinates(); err != nil {
		f.Close()
		return nil, fmt.Errorf("wrfana: reading coordinates from %s: %v", path, err)
	}
	return d, nil
}

// Close closes the underlying file.
func (d *GridDataset) Close() error { return d.f.Close() }

func (d *GridDataset) readCoordinates() error {
	members, err := d.readNumeric(d.names[DimMember])
	if err != nil {
		return err
	}
	d.Members = make([]int, len(members))
	for i, m := range members {
		d.Members[i] = f2i(m)
	}

	levels, err := d.readNumeric(d.names[DimVertical])
	if err != nil {
		return err
	}
	d.Levels = make([]int, len(levels))
	for i, l := range levels {
		d.Levels[i] = f2i(l)
	}

	if err := d.readTimes(); err != nil {
		return err
	}

	d.Lat, err = d.readCoordArray(d.names[CoordLat])
	if err != nil {
		return err
	}
	d.Lon, err = d.readCoordArray(d.names[CoordLon])
	if err != nil {
		return err
	}
	if len(d.Lat.Shape) != 2 || len(d.Lon.Shape) != 2 {
		return fmt.Errorf("latitude and longitude must be 2-D; got %d-D and %d-D",
			len(d.Lat.Shape), len(d.Lon.Shape))
	}
	d.Ny, d.Nx = d.Lat.Shape[0], d.Lat.Shape[1]
	return nil
}

func (d *GridDataset) readTimes() error {
	timeName := d.names[DimTime]
	vals, err := d.readNumeric(timeName)
	if err != nil {
		return err
	}
	unitsAttr := d.ff.Header.GetAttribute(timeName, "units")
	if unitsAttr == nil {
		return fmt.Errorf("time coordinate %s has no units attribute", timeName)
	}
	units, ok := unitsAttr.(string)
	if !ok {
		return fmt.Errorf("time coordinate %s units attribute is not a string", timeName)
	}
	base, step, err := parseTimeUnits(units)
	if err != nil {
		return err
	}
	d.timeBase, d.timeStep = base, step
	d.Times = make([]time.Time, len(vals))
	for i, v := range vals {
		d.Times[i] = base.Add(time.Duration(v * float64(step)))
	}
	return nil
}

// parseTimeUnits parses a CF-convention time units string such as
// "hours since 2006-06-08 00:00:00".
func parseTimeUnits(units string) (time.Time, time.Duration, error) {
	fields := strings.SplitN(units, " since ", 2)
	if len(fields) != 2 {
		return time.Time{}, 0, fmt.Errorf("cannot parse time units %q", units)
	}
	var step time.Duration
	switch strings.TrimSpace(fields[0]) {
	case "days":
		step = 24 * time.Hour
	case "hours":
		step = time.Hour
	case "minutes":
		step = time.Minute
	case "seconds":
		step = time.Second
	default:
		return time.Time{}, 0, fmt.Errorf("unsupported time unit %q", fields[0])
	}
	stamp := strings.TrimSpace(fields[1])
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"} {
		if base, err := time.Parse(layout, stamp); err == nil {
			return base, step, nil
		}
	}
	return time.Time{}, 0, fmt.Errorf("cannot parse time origin %q", stamp)
}

// EncodeTime converts t back to the numeric value used by the file's time
// coordinate.
func (d *GridDataset) EncodeTime(t time.Time) float64 {
	return float64(t.Sub(d.timeBase)) / float64(d.timeStep)
}

// TimeUnits returns the CF units string describing the file's time
// coordinate.
func (d *GridDataset) TimeUnits() string {
	var u string
	switch d.timeStep {
	case 24 * time.Hour:
		u = "days"
	case time.Hour:
		u = "hours"
	case time.Minute:
		u = "minutes"
	default:
		u = "seconds"
	}
	return fmt.Sprintf("%s since %s", u, d.timeBase.Format("2006-01-02 15:04:05"))
}

// MemberIndex returns the index of ensemble member m.
func (d *GridDataset) MemberIndex(m int) (int, error) {
	for i, v := range d.Members {
		if v == m {
			return i, nil
		}
	}
	return -1, fmt.Errorf("wrfana: member %d is not in the dataset (have %v)", m, d.Members)
}

// LevelIndex returns the index of pressure level l [hPa].
func (d *GridDataset) LevelIndex(l int) (int, error) {
	for i, v := range d.Levels {
		if v == l {
			return i, nil
		}
	}
	return -1, fmt.Errorf("wrfana: level %d hPa is not in the dataset (have %v)", l, d.Levels)
}

// TimeIndex returns the index of the exact time t. There is no
// nearest-time fallback: substituting a different time would change the
// meaning of the analysis.
func (d *GridDataset) TimeIndex(t time.Time) (int, error) {
	for i, v := range d.Times {
		if v.Equal(t) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("wrfana: time %v is not in the dataset (%v to %v)",
		t.Format(time.RFC3339), d.Times[0].Format(time.RFC3339),
		d.Times[len(d.Times)-1].Format(time.RFC3339))
}

// ReadSlice reads the 2-D (y, x) slice of variable varName at the given
// member, time, and level indices.
func (d *GridDataset) ReadSlice(varName string, memberIdx, timeIdx, levelIdx int) (*sparse.DenseArray, error) {
	dims := d.ff.Header.Lengths(varName)
	if len(dims) == 0 {
		return nil, fmt.Errorf("wrfana: variable %s is not in the dataset", varName)
	}
	if len(dims) != 5 {
		return nil, fmt.Errorf("wrfana: variable %s is %d-D; expected (member, time, level, y, x)",
			varName, len(dims))
	}
	for i, idx := range []int{memberIdx, timeIdx, levelIdx} {
		if idx < 0 || idx >= dims[i] {
			return nil, fmt.Errorf("wrfana: variable %s: index %d out of range for dimension %d (length %d)",
				varName, idx, i, dims[i])
		}
	}
	ny, nx := dims[3], dims[4]
	start := []int{memberIdx, timeIdx, levelIdx, 0, 0}
	end := []int{memberIdx + 1, timeIdx + 1, levelIdx + 1, ny, nx}
	r := d.ff.Reader(varName, start, end)
	buf := r.Zero(ny * nx)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("wrfana: reading variable %s: %v", varName, err)
	}
	return bufToDense(buf, ny, nx)
}

// readNumeric reads the full extent of a coordinate variable as float64.
func (d *GridDataset) readNumeric(varName string) ([]float64, error) {
	dims := d.ff.Header.Lengths(varName)
	if len(dims) == 0 {
		return nil, fmt.Errorf("coordinate variable %s is not in the dataset", varName)
	}
	n := 1
	for _, l := range dims {
		n *= l
	}
	r := d.ff.Reader(varName, nil, nil)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("reading coordinate %s: %v", varName, err)
	}
	return bufToFloats(buf)
}

// readCoordArray reads a coordinate array, dropping a leading time
// dimension if present (the grid is static).
func (d *GridDataset) readCoordArray(varName string) (*sparse.DenseArray, error) {
	dims := d.ff.Header.Lengths(varName)
	if len(dims) == 0 {
		return nil, fmt.Errorf("coordinate variable %s is not in the dataset", varName)
	}
	vals, err := d.readNumeric(varName)
	if err != nil {
		return nil, err
	}
	if len(dims) == 3 { // (time, y, x): keep the first time step only.
		dims = dims[1:]
		vals = vals[:dims[0]*dims[1]]
	}
	out := sparse.ZerosDense(dims...)
	copy(out.Elements, vals)
	return out, nil
}

func bufToDense(buf interface{}, ny, nx int) (*sparse.DenseArray, error) {
	out := sparse.ZerosDense(ny, nx)
	switch b := buf.(type) {
	case []float32:
		for i, v := range b {
			out.Elements[i] = float64(v)
		}
	case []float64:
		copy(out.Elements, b)
	default:
		return nil, fmt.Errorf("wrfana: unsupported variable type %T", buf)
	}
	return out, nil
}

func bufToFloats(buf interface{}) ([]float64, error) {
	switch b := buf.(type) {
	case []float64:
		return b, nil
	case []float32:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out, nil
	case []int16:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out, nil
	case []int8:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("wrfana: unsupported coordinate type %T", buf)
	}
}
