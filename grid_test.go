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
	"testing"

	"github.com/ctessum/sparse"
)

// latLonGrid builds 2-D coordinate arrays with constant spacing in
// degrees.
func latLonGrid(ny, nx int, lat0, lon0, dlat, dlon float64) (lat, lon *sparse.DenseArray) {
	lat = sparse.ZerosDense(ny, nx)
	lon = sparse.ZerosDense(ny, nx)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			lat.Set(lat0+dlat*float64(j), j, i)
			lon.Set(lon0+dlon*float64(i), j, i)
		}
	}
	return lat, lon
}

func TestLatLonDeltas(t *testing.T) {
	const ny, nx = 4, 6
	lat, lon := latLonGrid(ny, nx, 0, 120, 0.1, 0.1)
	dx, dy, err := LatLonDeltas(lat, lon)
	if err != nil {
		t.Fatal(err)
	}
	if dx.Shape[0] != ny || dx.Shape[1] != nx-1 {
		t.Errorf("dx shape: got %v, want [%d %d]", dx.Shape, ny, nx-1)
	}
	if dy.Shape[0] != ny-1 || dy.Shape[1] != nx {
		t.Errorf("dy shape: got %v, want [%d %d]", dy.Shape, ny-1, nx)
	}

	// 0.1 degrees along the equator or a meridian is one six-hundredth of
	// a half circumference.
	want := math.Pi * earthRadius / 1800
	if v := dx.Get(0, 0); math.Abs(v-want)/want > 1e-6 {
		t.Errorf("equatorial dx: got %g, want %g", v, want)
	}
	for i := 0; i < nx; i++ {
		for j := 0; j < ny-1; j++ {
			if v := dy.Get(j, i); math.Abs(v-want)/want > 1e-6 {
				t.Errorf("dy(%d,%d): got %g, want %g", j, i, v, want)
			}
		}
	}

	// Zonal spacing shrinks away from the equator.
	if dx.Get(ny-1, 0) >= dx.Get(0, 0) {
		t.Errorf("dx should shrink with latitude: %g at row %d vs %g at row 0",
			dx.Get(ny-1, 0), ny-1, dx.Get(0, 0))
	}
}

func TestLatLonDeltasErrors(t *testing.T) {
	lat, _ := latLonGrid(3, 3, 20, 120, 0.1, 0.1)
	_, lon := latLonGrid(3, 4, 20, 120, 0.1, 0.1)
	if _, _, err := LatLonDeltas(lat, lon); err == nil {
		t.Error("expected an error for mismatched shapes")
	}
	lat1, lon1 := latLonGrid(1, 4, 20, 120, 0.1, 0.1)
	if _, _, err := LatLonDeltas(lat1, lon1); err == nil {
		t.Error("expected an error for a single-row grid")
	}
}

func TestGreatCircleCosineScaling(t *testing.T) {
	// At 60 degrees latitude a degree of longitude spans half the
	// distance it does at the equator.
	dEq := greatCircle(0, 0, 0, 1)
	d60 := greatCircle(60, 0, 60, 1)
	if ratio := d60 / dEq; math.Abs(ratio-0.5) > 1e-3 {
		t.Errorf("60N/equator distance ratio: got %g, want 0.5", ratio)
	}
}
