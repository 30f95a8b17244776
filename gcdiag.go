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

// Package gcdiag compares GEOS-Chem model output against other model
// output and against surface observations. It locates the model grid cell
// and vertical level nearest to an observation station, aligns the model
// and observation time series, and harmonizes legacy diagnostic variable
// names onto their modern netCDF names.
package gcdiag

import "errors"

// Version gives the version number.
const Version = "0.3.0"

var (
	// ErrInvalidGrid is returned when a grid description is empty,
	// inconsistent, or contains NaN coordinates.
	ErrInvalidGrid = errors.New("gcdiag: invalid grid")

	// ErrOutOfRange is returned when a lookup cannot be satisfied,
	// for example when a level table is empty.
	ErrOutOfRange = errors.New("gcdiag: out of range")

	// ErrMissingUnits is returned when a model variable carries no
	// units attribute.
	ErrMissingUnits = errors.New("gcdiag: missing units")

	// ErrNoObservations is returned when no observation files could be
	// found.
	ErrNoObservations = errors.New("gcdiag: no observations")
)
