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

package ncio

import (
	"path/filepath"
	"time"
)

// GCCFilePath returns the path of the GEOS-Chem Classic output file in
// dir holding diagnostic collection for the given date. The Emissions
// collection is written by HEMCO and named differently.
func GCCFilePath(dir, collection string, date time.Time) string {
	day, hm := date.Format("20060102"), date.Format("1504")
	if collection == "Emissions" {
		return filepath.Join(dir, "HEMCO_diagnostics."+day+hm+".nc")
	}
	return filepath.Join(dir, "GEOSChem."+collection+"."+day+"_"+hm+"z.nc4")
}

// GCHPFilePath returns the path of the GCHP output file in dir holding
// diagnostic collection for the given date.
func GCHPFilePath(dir, collection string, date time.Time) string {
	return filepath.Join(dir, "GCHP."+collection+"."+date.Format("20060102")+"_"+date.Format("1504")+"z.nc4")
}
