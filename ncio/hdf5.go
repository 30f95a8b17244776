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
	"fmt"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// hdf5Source reads netCDF-4 files, which GEOS-Chem writes with the
// .nc4 extension.
type hdf5Source struct {
	g    api.Group
	path string
}

func openHDF5(path string) (source, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ncio: opening %s: %w", path, err)
	}
	return &hdf5Source{g: g, path: path}, nil
}

func (s *hdf5Source) Close() error {
	s.g.Close()
	return nil
}

func (s *hdf5Source) Variables() []string { return s.g.ListVariables() }

func (s *hdf5Source) Variable(name string) (*Variable, error) {
	found := false
	for _, v := range s.g.ListVariables() {
		if v == name {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", errNoVariable, name)
	}
	vg, err := s.g.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("ncio: reading %s from %s: %w", name, s.path, err)
	}
	vals, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("ncio: reading %s from %s: %w", name, s.path, err)
	}
	data, ok := flatten(reflect.ValueOf(vals), nil)
	if !ok {
		return nil, nil // character or compound data
	}
	shape64 := vg.Shape()
	shape := make([]int, len(shape64))
	for i, n := range shape64 {
		shape[i] = int(n)
	}
	if product(shape) != len(data) {
		return nil, fmt.Errorf("ncio: variable %s in %s has shape %v but %d values", name, s.path, shape, len(data))
	}
	v := &Variable{
		Name:  name,
		Dims:  vg.Dimensions(),
		Shape: shape,
		Data:  data,
		Attrs: make(map[string]interface{}),
	}
	if attrs := vg.Attributes(); attrs != nil {
		for _, k := range attrs.Keys() {
			a, _ := attrs.Get(k)
			if str, ok := a.(string); ok {
				v.Attrs[k] = str
			} else if f, ok := flatten(reflect.ValueOf(a), nil); ok {
				v.Attrs[k] = f
			}
		}
	}
	maskFill(v)
	return v, nil
}

// flatten appends the numbers in the possibly nested slice or scalar v to
// dst in row-major order. It returns false if v holds non-numeric data.
func flatten(v reflect.Value, dst []float64) ([]float64, bool) {
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			var ok bool
			dst, ok = flatten(v.Index(i), dst)
			if !ok {
				return nil, false
			}
		}
		if dst == nil {
			dst = []float64{}
		}
		return dst, true
	case reflect.Float32, reflect.Float64:
		return append(dst, v.Float()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return append(dst, float64(v.Int())), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return append(dst, float64(v.Uint())), true
	case reflect.Interface:
		return flatten(v.Elem(), dst)
	}
	return nil, false
}
