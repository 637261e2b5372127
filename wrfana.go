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

// Package wrfana implements post-processing analyses for output from an
// ensemble Weather Research and Forecasting (WRF) model run: case-duration
// statistics, multi-level equivalent potential temperature diagnostics,
// and a comparison of two frontogenesis definitions.
package wrfana

// Version gives the version number.
const Version = "0.1.0"

// Canonical axis names. Input files use WRF naming; the dataset layer
// translates to these so the derivative operators don't care about the
// naming scheme of any particular file.
const (
	DimX        = "x"
	DimY        = "y"
	DimTime     = "time"
	DimVertical = "vertical"
	DimMember   = "member"

	CoordLat = "latitude"
	CoordLon = "longitude"
)

// wrfDimensions maps WRF dimension and coordinate names to the canonical
// scheme above.
var wrfDimensions = map[string]string{
	DimX:        "west_east",
	DimY:        "south_north",
	DimTime:     "Time",
	DimVertical: "interp_level",
	DimMember:   "member",
	CoordLat:    "XLAT",
	CoordLon:    "XLONG",
}

// f2i converts a float to an int (rounding).
func f2i(f float64) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}
