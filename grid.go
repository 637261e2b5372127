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

	"github.com/ctessum/sparse"
)

// earthRadius is the radius [m] of the sphere used for grid-spacing
// calculations.
const earthRadius = 6370997.

// LatLonDeltas computes the horizontal grid spacing from 2-D latitude and
// longitude coordinate arrays [degrees]. dx has shape (ny, nx-1) and holds
// the great-circle distance [m] between zonally adjacent grid cells; dy has
// shape (ny-1, nx) and holds the distance between meridionally adjacent
// cells. The grid is static, so the deltas are computed once per run and
// reused for every member, time, and level.
func LatLonDeltas(lat, lon *sparse.DenseArray) (dx, dy *sparse.DenseArray, err error) {
	if len(lat.Shape) != 2 || len(lon.Shape) != 2 ||
		lat.Shape[0] != lon.Shape[0] || lat.Shape[1] != lon.Shape[1] {
		return nil, nil, fmt.Errorf("wrfana: latitude and longitude shapes do not match")
	}
	ny, nx := lat.Shape[0], lat.Shape[1]
	if ny < 2 || nx < 2 {
		return nil, nil, fmt.Errorf("wrfana: grid must be at least 2x2; got %dx%d", ny, nx)
	}
	dx = sparse.ZerosDense(ny, nx-1)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx-1; i++ {
			dx.Set(greatCircle(
				lat.Get(j, i), lon.Get(j, i),
				lat.Get(j, i+1), lon.Get(j, i+1)), j, i)
		}
	}
	dy = sparse.ZerosDense(ny-1, nx)
	for j := 0; j < ny-1; j++ {
		for i := 0; i < nx; i++ {
			dy.Set(greatCircle(
				lat.Get(j, i), lon.Get(j, i),
				lat.Get(j+1, i), lon.Get(j+1, i)), j, i)
		}
	}
	return dx, dy, nil
}

// greatCircle returns the haversine distance [m] between two points given
// in degrees.
func greatCircle(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180.
	φ1, φ2 := lat1*degToRad, lat2*degToRad
	Δφ := (lat2 - lat1) * degToRad
	Δλ := (lon2 - lon1) * degToRad
	a := math.Sin(Δφ/2)*math.Sin(Δφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	return 2 * earthRadius * math.Asin(math.Min(1, math.Sqrt(a)))
}

// arrayMean returns the arithmetic mean of the elements of s.
func arrayMean(s *sparse.DenseArray) float64 {
	sum := 0.
	for _, v := range s.Elements {
		sum += v
	}
	return sum / float64(len(s.Elements))
}
