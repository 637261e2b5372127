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
	"github.com/ctessum/unit"
)

// Physical dimensions of the derived diagnostic fields. Input potential
// temperature is [K] and winds are [m/s].
var (
	// KelvinPerMeter describes a horizontal temperature gradient [K/m].
	KelvinPerMeter = unit.Dimensions{unit.TemperatureDim: 1, unit.LengthDim: -1}
	// PerSecond describes divergence and vorticity [1/s].
	PerSecond = unit.Dimensions{unit.TimeDim: -1}
	// KelvinPerMeterPerSecond describes a frontogenesis rate [K/m/s].
	KelvinPerMeterPerSecond = unit.Dimensions{unit.TemperatureDim: 1,
		unit.LengthDim: -1, unit.TimeDim: -1}
)

const (
	axisY = 0
	axisX = 1
)

// firstDerivative computes a second-order accurate first derivative of the
// 2-D field f along the given axis, using the possibly non-uniform spacing
// in deltas (shape (ny, nx-1) for the x axis, (ny-1, nx) for the y axis).
// Interior points use a centered three-point stencil; the edges use
// one-sided three-point stencils of the same order.
func firstDerivative(f, deltas *sparse.DenseArray, axis int) (*sparse.DenseArray, error) {
	if len(f.Shape) != 2 {
		return nil, fmt.Errorf("wrfana: derivative needs a 2-D field; got %d-D", len(f.Shape))
	}
	ny, nx := f.Shape[0], f.Shape[1]
	var n int // number of points along the differentiation axis
	switch axis {
	case axisX:
		n = nx
		if deltas.Shape[0] != ny || deltas.Shape[1] != nx-1 {
			return nil, fmt.Errorf("wrfana: x deltas shape %v does not match field shape %v",
				deltas.Shape, f.Shape)
		}
	case axisY:
		n = ny
		if deltas.Shape[0] != ny-1 || deltas.Shape[1] != nx {
			return nil, fmt.Errorf("wrfana: y deltas shape %v does not match field shape %v",
				deltas.Shape, f.Shape)
		}
	default:
		return nil, fmt.Errorf("wrfana: invalid derivative axis %d", axis)
	}
	if n < 3 {
		return nil, fmt.Errorf("wrfana: need at least 3 points along the derivative axis; have %d", n)
	}

	// value and delta accessors along the axis, with the other index fixed.
	val := func(along, other int) float64 {
		if axis == axisX {
			return f.Get(other, along)
		}
		return f.Get(along, other)
	}
	delta := func(along, other int) float64 {
		if axis == axisX {
			return deltas.Get(other, along)
		}
		return deltas.Get(along, other)
	}

	out := sparse.ZerosDense(ny, nx)
	set := func(v float64, along, other int) {
		if axis == axisX {
			out.Set(v, other, along)
		} else {
			out.Set(v, along, other)
		}
	}

	nOther := ny
	if axis == axisY {
		nOther = nx
	}
	for o := 0; o < nOther; o++ {
		// Left edge.
		d0, d1 := delta(0, o), delta(1, o)
		set(-(2*d0+d1)/(d0*(d0+d1))*val(0, o)+
			(d0+d1)/(d0*d1)*val(1, o)-
			d0/(d1*(d0+d1))*val(2, o), 0, o)
		// Interior.
		for a := 1; a < n-1; a++ {
			d0, d1 = delta(a-1, o), delta(a, o)
			set(-d1/(d0*(d0+d1))*val(a-1, o)+
				(d1-d0)/(d0*d1)*val(a, o)+
				d0/(d1*(d0+d1))*val(a+1, o), a, o)
		}
		// Right edge.
		d0, d1 = delta(n-3, o), delta(n-2, o)
		set(d1/(d0*(d0+d1))*val(n-3, o)-
			(d0+d1)/(d0*d1)*val(n-2, o)+
			(d0+2*d1)/(d1*(d0+d1))*val(n-1, o), n-1, o)
	}
	return out, nil
}

// GeospatialGradient computes the zonal and meridional components of the
// horizontal gradient of the 2-D field f [K], using the grid spacing dx and
// dy [m] from LatLonDeltas. Both components carry dimensions [K/m].
func GeospatialGradient(f, dx, dy *sparse.DenseArray) (ddx, ddy *sparse.DenseArray, dims unit.Dimensions, err error) {
	ddx, err = firstDerivative(f, dx, axisX)
	if err != nil {
		return nil, nil, nil, err
	}
	ddy, err = firstDerivative(f, dy, axisY)
	if err != nil {
		return nil, nil, nil, err
	}
	return ddx, ddy, KelvinPerMeter, nil
}

// GradientMagnitude returns sqrt(ddx² + ddy²). The result is non-negative
// everywhere and zero exactly where both components are zero.
func GradientMagnitude(ddx, ddy *sparse.DenseArray) *sparse.DenseArray {
	out := sparse.ZerosDense(ddx.Shape...)
	for i, vx := range ddx.Elements {
		out.Elements[i] = math.Hypot(vx, ddy.Elements[i])
	}
	return out
}

// Divergence computes the horizontal divergence du/dx + dv/dy [1/s] of the
// wind field (u, v) [m/s].
func Divergence(u, v, dx, dy *sparse.DenseArray) (*sparse.DenseArray, unit.Dimensions, error) {
	dudx, err := firstDerivative(u, dx, axisX)
	if err != nil {
		return nil, nil, err
	}
	dvdy, err := firstDerivative(v, dy, axisY)
	if err != nil {
		return nil, nil, err
	}
	out := sparse.ZerosDense(u.Shape...)
	for i := range out.Elements {
		out.Elements[i] = dudx.Elements[i] + dvdy.Elements[i]
	}
	return out, PerSecond, nil
}

// Vorticity computes the relative vorticity dv/dx - du/dy [1/s] of the
// wind field (u, v) [m/s].
func Vorticity(u, v, dx, dy *sparse.DenseArray) (*sparse.DenseArray, unit.Dimensions, error) {
	dvdx, err := firstDerivative(v, dx, axisX)
	if err != nil {
		return nil, nil, err
	}
	dudy, err := firstDerivative(u, dy, axisY)
	if err != nil {
		return nil, nil, err
	}
	out := sparse.ZerosDense(u.Shape...)
	for i := range out.Elements {
		out.Elements[i] = dvdx.Elements[i] - dudy.Elements[i]
	}
	return out, PerSecond, nil
}

// Frontogenesis computes the 2-D kinematic frontogenesis function
// F = ½|∇θ|(D·cos2β − δ), where D is the total deformation, δ the
// divergence, and β the angle between the dilatation axis and the
// isentropes (Petterssen 1936). theta is potential temperature [K] and
// (u, v) are the horizontal winds [m/s]; the result is [K/m/s].
func Frontogenesis(theta, u, v, dx, dy *sparse.DenseArray) (*sparse.DenseArray, unit.Dimensions, error) {
	dθdx, dθdy, _, err := GeospatialGradient(theta, dx, dy)
	if err != nil {
		return nil, nil, err
	}
	dudx, err := firstDerivative(u, dx, axisX)
	if err != nil {
		return nil, nil, err
	}
	dudy, err := firstDerivative(u, dy, axisY)
	if err != nil {
		return nil, nil, err
	}
	dvdx, err := firstDerivative(v, dx, axisX)
	if err != nil {
		return nil, nil, err
	}
	dvdy, err := firstDerivative(v, dy, axisY)
	if err != nil {
		return nil, nil, err
	}
	out := sparse.ZerosDense(theta.Shape...)
	for i := range out.Elements {
		gx, gy := dθdx.Elements[i], dθdy.Elements[i]
		mag := math.Hypot(gx, gy)
		div := dudx.Elements[i] + dvdy.Elements[i]
		shear := dvdx.Elements[i] + dudy.Elements[i]
		stretch := dudx.Elements[i] - dvdy.Elements[i]
		tdef := math.Hypot(shear, stretch)
		if mag == 0 {
			// No thermal gradient to intensify.
			out.Elements[i] = 0
			continue
		}
		ψ := 0.5 * math.Atan2(shear, stretch)
		β := math.Asin((-gx*math.Cos(ψ) - gy*math.Sin(ψ)) / mag)
		out.Elements[i] = 0.5 * mag * (tdef*math.Cos(2*β) - div)
	}
	return out, KelvinPerMeterPerSecond, nil
}
