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
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctessum/cdf"
)

// drainMessages collects everything sent on the returned channel.
func drainMessages(msgs *[]string) chan string {
	c := make(chan string)
	go func() {
		for m := range c {
			*msgs = append(*msgs, m)
		}
	}()
	return c
}

func testThetaEValue(varName string, m, ti, l, j, i int) float64 {
	switch varName {
	case "eth":
		return 320 + float64(i) - 0.5*float64(j) + float64(ti) + float64(l)
	case "ua":
		return 5 + float64(i)
	case "va":
		return -2 + float64(j)
	}
	return 0
}

func TestThetaEProcess(t *testing.T) {
	dir := t.TempDir()
	g := testGrid{
		members: []int{1, 2},
		times:   []float64{24, 25},
		levels:  []int{875, 850},
		ny:      4, nx: 5,
		value:   testThetaEValue,
	}
	writeTestDataset(t, filepath.Join(dir, "eth.nc"), []string{"eth"}, g)
	writeTestDataset(t, filepath.Join(dir, "ua,va.nc"), []string{"ua", "va"}, g)

	c := ThetaEConfig{
		ThetaEFile: filepath.Join(dir, "eth.nc"),
		WindFile:   filepath.Join(dir, "ua,va.nc"),
		OutputFile: filepath.Join(dir, "out", "the_gra.nc"),
		Levels:     []int{875, 850, 825},
	}
	var msgs []string
	report, err := c.Process(drainMessages(&msgs))
	if err != nil {
		t.Fatal(err)
	}

	if len(report.MissingLevels) != 1 || report.MissingLevels[0] != 825 {
		t.Errorf("missing levels: got %v, want [825]", report.MissingLevels)
	}
	if len(report.ProcessedLevels) != 2 ||
		report.ProcessedLevels[0] != 875 || report.ProcessedLevels[1] != 850 {
		t.Errorf("processed levels: got %v, want [875 850]", report.ProcessedLevels)
	}
	if want := 2 * 2 * 2; report.Completed != want {
		t.Errorf("completed slices: got %d, want %d", report.Completed, want)
	}
	if report.Failed != 0 {
		t.Errorf("failed slices: got %d, want 0: %v", report.Failed, report.Errors)
	}

	var warned bool
	for _, m := range msgs {
		if strings.Contains(m, "825") {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a warning naming the missing level 825")
	}

	// Read the output back and check its structure.
	f, err := os.Open(c.OutputFile)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	ff, err := cdf.Open(f)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range thetaEVariables {
		dims := ff.Header.Dimensions(v.name)
		want := []string{"member", "Time", "level", "south_north", "west_east"}
		if len(dims) != len(want) {
			t.Fatalf("%s: got dimensions %v, want %v", v.name, dims, want)
		}
		for i, d := range dims {
			if d != want[i] {
				t.Fatalf("%s: got dimensions %v, want %v", v.name, dims, want)
			}
		}
		units := ff.Header.GetAttribute(v.name, "units")
		if units == nil || units.(string) != v.units.String() {
			t.Errorf("%s units: got %v, want %v", v.name, units, v.units)
		}
	}
	if u := ff.Header.GetAttribute("Time", "units"); u == nil || u.(string) != testTimeUnits {
		t.Errorf("Time units: got %v, want %q", u, testTimeUnits)
	}

	// eth is copied through, so the output at (member 2, second time,
	// 850 hPa) must match the input function.
	r := ff.Reader("eth", []int{1, 1, 1, 0, 0}, []int{2, 2, 2, g.ny, g.nx})
	buf := r.Zero(g.ny * g.nx)
	if _, err := r.Read(buf); err != nil {
		t.Fatal(err)
	}
	vals := buf.([]float32)
	for j := 0; j < g.ny; j++ {
		for i := 0; i < g.nx; i++ {
			want := testThetaEValue("eth", 1, 1, 1, j, i)
			if got := float64(vals[j*g.nx+i]); math.Abs(got-want) > 1e-4 {
				t.Fatalf("eth(%d,%d): got %g, want %g", j, i, got, want)
			}
		}
	}
}

func TestThetaEProcessAllFailed(t *testing.T) {
	dir := t.TempDir()
	g := testGrid{
		members: []int{1},
		times:   []float64{24, 25},
		levels:  []int{850},
		ny:      4, nx: 5,
		value:   testThetaEValue,
	}
	writeTestDataset(t, filepath.Join(dir, "eth.nc"), []string{"eth"}, g)
	// The wind file has no wind variables, so every slice fails.
	writeTestDataset(t, filepath.Join(dir, "ua,va.nc"), nil, g)

	c := ThetaEConfig{
		ThetaEFile: filepath.Join(dir, "eth.nc"),
		WindFile:   filepath.Join(dir, "ua,va.nc"),
		OutputFile: filepath.Join(dir, "out", "the_gra.nc"),
		Levels:     []int{850},
	}
	var msgs []string
	report, err := c.Process(drainMessages(&msgs))
	if err != nil {
		t.Fatal(err)
	}
	if report.Completed != 0 || report.Failed != 2 {
		t.Fatalf("got %d completed and %d failed, want 0 and 2",
			report.Completed, report.Failed)
	}
	var sawNoData bool
	for _, m := range msgs {
		if strings.Contains(m, "no valid data") {
			sawNoData = true
		}
		if strings.Contains(m, "Inf") {
			t.Errorf("summary message reports an infinite extreme: %q", m)
		}
	}
	if !sawNoData {
		t.Error("expected a no-valid-data summary message")
	}
}

func TestThetaEProcessPartialFailure(t *testing.T) {
	dir := t.TempDir()
	g := testGrid{
		members: []int{1},
		times:   []float64{24, 25, 26},
		levels:  []int{850},
		ny:      4, nx: 5,
		value:   testThetaEValue,
	}
	writeTestDataset(t, filepath.Join(dir, "eth.nc"), []string{"eth"}, g)
	// The wind file is missing the last time, so those slices cannot be
	// computed.
	gWind := g
	gWind.times = []float64{24, 25}
	writeTestDataset(t, filepath.Join(dir, "ua,va.nc"), []string{"ua", "va"}, gWind)

	c := ThetaEConfig{
		ThetaEFile: filepath.Join(dir, "eth.nc"),
		WindFile:   filepath.Join(dir, "ua,va.nc"),
		OutputFile: filepath.Join(dir, "out", "the_gra.nc"),
		Levels:     []int{850},
	}
	report, err := c.Process(nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.Completed != 2 || report.Failed != 1 {
		t.Fatalf("got %d completed and %d failed, want 2 and 1",
			report.Completed, report.Failed)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("error records: got %d, want 1", len(report.Errors))
	}
	if e := report.Errors[0]; e.Member != 1 || e.Level != 850 {
		t.Errorf("error record: got %+v", e)
	}

	// The failed slice must be NaN in the output, and the others must not.
	f, err := os.Open(c.OutputFile)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	ff, err := cdf.Open(f)
	if err != nil {
		t.Fatal(err)
	}
	r := ff.Reader("divg", nil, nil)
	lens := ff.Header.Lengths("divg")
	n := 1
	for _, l := range lens {
		n *= l
	}
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		t.Fatal(err)
	}
	vals := buf.([]float32)
	cellsPerTime := g.ny * g.nx
	for ti := 0; ti < 3; ti++ {
		slice := vals[ti*cellsPerTime : (ti+1)*cellsPerTime]
		wantNaN := ti == 2
		for i, v := range slice {
			if isNaN := math.IsNaN(float64(v)); isNaN != wantNaN {
				t.Fatalf("divg time %d element %d: NaN=%v, want NaN=%v",
					ti, i, isNaN, wantNaN)
			}
		}
	}
}

func TestThetaEProcessNoLevels(t *testing.T) {
	dir := t.TempDir()
	g := testGrid{
		members: []int{1},
		times:   []float64{24},
		levels:  []int{850},
		ny:      3, nx: 3,
		value:   testThetaEValue,
	}
	writeTestDataset(t, filepath.Join(dir, "eth.nc"), []string{"eth"}, g)
	writeTestDataset(t, filepath.Join(dir, "ua,va.nc"), []string{"ua", "va"}, g)
	c := ThetaEConfig{
		ThetaEFile: filepath.Join(dir, "eth.nc"),
		WindFile:   filepath.Join(dir, "ua,va.nc"),
		OutputFile: filepath.Join(dir, "out", "the_gra.nc"),
		Levels:     []int{700, 500},
	}
	if _, err := c.Process(nil); err == nil {
		t.Error("expected an error when no requested level is present")
	}
	if _, err := os.Stat(c.OutputFile); !os.IsNotExist(err) {
		t.Error("no output file should be written when no level can be processed")
	}
}
