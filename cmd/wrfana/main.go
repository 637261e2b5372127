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

// Command wrfana is a command-line interface for post-processing
// analyses of WRF ensemble output.
package main

import (
	"fmt"
	"os"

	"github.com/YakultSmoothie/visualization-atmospheric/wrfanautil"
)

func main() {
	if err := wrfanautil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
