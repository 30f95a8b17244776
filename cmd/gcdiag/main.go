/*
Copyright © 2019 the InMAP authors.
This file is part of gcdiag.

gcdiag is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gcdiag is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gcdiag.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command gcdiag is a command-line interface for evaluating GEOS-Chem
// model output against observations.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/gcdiag/gcdiagutil"
)

func main() {
	if len(os.Args) == 1 { // With no arguments, start the GUI server.
		gcdiagutil.StartWebServer()
		return
	}

	if err := gcdiagutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
