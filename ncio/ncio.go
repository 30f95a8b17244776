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

// Package ncio reads and writes GEOS-Chem and GCHP diagnostic files in
// the netCDF classic and netCDF-4 formats.
package ncio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/gcdiag"
)

// Variable is a netCDF variable read into memory.
type Variable struct {
	Name  string
	Dims  []string
	Shape []int
	Data  []float64

	// Attrs holds the variable attributes. String attributes are
	// stored as strings and numeric attributes as []float64.
	Attrs map[string]interface{}
}

// Units returns the "units" attribute of v, or "" if it has none.
func (v *Variable) Units() string {
	s, _ := v.Attrs["units"].(string)
	return strings.TrimSpace(s)
}

// errNoVariable is returned by a source that does not hold the requested
// variable.
var errNoVariable = errors.New("ncio: variable not in file")

// source is an open netCDF file.
type source interface {
	Variables() []string
	Variable(name string) (*Variable, error)
	Close() error
}

var (
	classicMagic = []byte("CDF")
	hdf5Magic    = []byte("\x89HDF\r\n\x1a\n")
)

// openSource opens a netCDF file, choosing the decoder from the leading
// bytes of the file.
func openSource(path string) (source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ncio: %w", err)
	}
	magic := make([]byte, len(hdf5Magic))
	n, err := io.ReadFull(f, magic)
	if err != nil && err != io.ErrUnexpectedEOF {
		f.Close()
		return nil, fmt.Errorf("ncio: reading %s: %w", path, err)
	}
	magic = magic[:n]
	switch {
	case bytes.HasPrefix(magic, classicMagic):
		return openClassic(f, path)
	case bytes.HasPrefix(magic, hdf5Magic):
		f.Close()
		return openHDF5(path)
	default:
		f.Close()
		return nil, fmt.Errorf("ncio: %s is not a netCDF file", path)
	}
}

// coordNames holds the coordinate and grid metadata variables of
// GEOS-Chem and GCHP files.
var coordNames = map[string]bool{
	"lon": true, "lat": true, "lev": true, "ilev": true, "time": true,
	"lons": true, "lats": true, "corner_lons": true, "corner_lats": true,
	"hyam": true, "hybm": true, "hyai": true, "hybi": true, "P0": true,
	"nf": true, "Xdim": true, "Ydim": true, "XCdim": true, "YCdim": true,
	"ncontact": true, "contacts": true, "anchor": true, "orientation": true,
}

// ReadDataset reads every data variable in the file at path. Coordinate
// variables are used to build the grid and time axis but are not
// returned. Data variables without units are kept with empty units.
func ReadDataset(path string) (gcdiag.Dataset, error) {
	src, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	grid, err := extractGrid(src)
	if err != nil {
		return nil, fmt.Errorf("ncio: %s: %w", path, err)
	}
	times, err := readTimes(src)
	if err != nil {
		return nil, fmt.Errorf("ncio: %s: %w", path, err)
	}
	ds := make(gcdiag.Dataset)
	for _, name := range src.Variables() {
		if coordNames[name] {
			continue
		}
		v, err := src.Variable(name)
		if err != nil {
			return nil, fmt.Errorf("ncio: %s: %w", path, err)
		}
		if v == nil {
			continue // character data
		}
		ds[name] = toField(v, grid, times)
	}
	return ds, nil
}

// ReadField reads variable name from each of paths and concatenates the
// results along the time dimension. If the variable is missing, the name
// with "VV" removed (e.g. SpeciesConc_O3 for SpeciesConcVV_O3) is tried
// and the field is given the requested name. Fields in mol mol-1 are
// converted to ppbv. A variable without units is an error wrapping
// gcdiag.ErrMissingUnits.
func ReadField(paths []string, name string) (*gcdiag.ModelField, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("ncio: no files given for variable %s", name)
	}
	var fields []*gcdiag.ModelField
	for _, p := range paths {
		f, err := readFieldFile(p, name)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	f, err := concatTime(fields)
	if err != nil {
		return nil, err
	}
	if err := f.ConvertToPPBV(); err != nil {
		return nil, err
	}
	return f, nil
}

// AlternateName returns name with "VV" removed, the older spelling of
// GEOS-Chem volume mixing ratio diagnostics.
func AlternateName(name string) string {
	return strings.Replace(name, "VV", "", -1)
}

func readFieldFile(path, name string) (*gcdiag.ModelField, error) {
	src, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	v, err := src.Variable(name)
	if errors.Is(err, errNoVariable) {
		if alt := AlternateName(name); alt != name {
			v, err = src.Variable(alt)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("ncio: reading %s from %s: %w", name, path, err)
	}
	if v == nil {
		return nil, fmt.Errorf("ncio: variable %s in %s is not numeric", name, path)
	}
	v.Name = name
	if v.Units() == "" {
		return nil, fmt.Errorf("ncio: %s: %w: variable %s", path, gcdiag.ErrMissingUnits, name)
	}
	grid, err := extractGrid(src)
	if err != nil {
		return nil, fmt.Errorf("ncio: %s: %w", path, err)
	}
	times, err := readTimes(src)
	if err != nil {
		return nil, fmt.Errorf("ncio: %s: %w", path, err)
	}
	return toField(v, grid, times), nil
}

// toField converts v into a ModelField. The field is placed on grid when
// its dimensions are time, an optional level, and the horizontal
// dimensions of the grid; otherwise it has no grid.
func toField(v *Variable, grid *gcdiag.GridDescriptor, times []time.Time) *gcdiag.ModelField {
	data := sparse.ZerosDense(v.Shape...)
	copy(data.Elements, v.Data)
	f := &gcdiag.ModelField{
		Name:  v.Name,
		Units: v.Units(),
		Dims:  v.Dims,
		Data:  data,
	}
	hasTime := len(v.Dims) > 0 && v.Dims[0] == "time"
	if hasTime && len(times) == v.Shape[0] {
		f.Times = times
	}
	if grid == nil || !hasTime || f.Times == nil || f.Units == "" {
		return f
	}
	if gf, err := gcdiag.NewModelField(v.Name, f.Units, data, times, grid); err == nil {
		gf.Dims = v.Dims
		return gf
	}
	return f
}

// concatTime joins fields along their time dimension.
func concatTime(fields []*gcdiag.ModelField) (*gcdiag.ModelField, error) {
	if len(fields) == 1 {
		return fields[0], nil
	}
	first := fields[0]
	shape := append([]int(nil), first.Data.Shape...)
	var times []time.Time
	for _, f := range fields {
		if len(f.Data.Shape) != len(shape) || len(f.Data.Shape) == 0 {
			return nil, fmt.Errorf("ncio: variable %s has shape %v in one file and %v in another",
				first.Name, first.Data.Shape, f.Data.Shape)
		}
		for i := 1; i < len(shape); i++ {
			if f.Data.Shape[i] != shape[i] {
				return nil, fmt.Errorf("ncio: variable %s has shape %v in one file and %v in another",
					first.Name, first.Data.Shape, f.Data.Shape)
			}
		}
		if f.Units != first.Units {
			return nil, fmt.Errorf("ncio: variable %s has units %q in one file and %q in another",
				first.Name, first.Units, f.Units)
		}
		times = append(times, f.Times...)
	}
	shape[0] = 0
	for _, f := range fields {
		shape[0] += f.Data.Shape[0]
	}
	data := sparse.ZerosDense(shape...)
	i := 0
	for _, f := range fields {
		i += copy(data.Elements[i:], f.Data.Elements)
	}
	if first.Grid == nil {
		out := *first
		out.Data = data
		out.Times = times
		return &out, nil
	}
	out, err := gcdiag.NewModelField(first.Name, first.Units, data, times, first.Grid)
	if err != nil {
		return nil, fmt.Errorf("ncio: concatenating %s: %w", first.Name, err)
	}
	out.Dims = first.Dims
	return out, nil
}
