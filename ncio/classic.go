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
	"math"
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/spatialmodel/gcdiag"
)

// classicSource reads netCDF classic (CDF-1 and CDF-2) files.
type classicSource struct {
	ff      *os.File
	f       *cdf.File
	numRecs int
	path    string
}

func openClassic(ff *os.File, path string) (source, error) {
	f, err := cdf.Open(ff)
	if err != nil {
		ff.Close()
		return nil, fmt.Errorf("ncio: opening %s: %w", path, err)
	}
	fi, err := ff.Stat()
	if err != nil {
		ff.Close()
		return nil, fmt.Errorf("ncio: %w", err)
	}
	return &classicSource{
		ff:      ff,
		f:       f,
		numRecs: int(f.Header.NumRecs(fi.Size())),
		path:    path,
	}, nil
}

func (s *classicSource) Close() error { return s.ff.Close() }

func (s *classicSource) Variables() []string { return s.f.Header.Variables() }

func (s *classicSource) has(name string) bool {
	for _, v := range s.f.Header.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

func (s *classicSource) Variable(name string) (*Variable, error) {
	h := s.f.Header
	if !s.has(name) {
		return nil, fmt.Errorf("%w: %s", errNoVariable, name)
	}
	if _, ok := h.ZeroValue(name, 0).(string); ok {
		return nil, nil
	}
	shape := append([]int(nil), h.Lengths(name)...)
	if h.IsRecordVariable(name) {
		shape[0] = s.numRecs
	}
	v := &Variable{
		Name:  name,
		Dims:  h.Dimensions(name),
		Shape: shape,
		Attrs: make(map[string]interface{}),
	}
	for _, a := range h.Attributes(name) {
		v.Attrs[a] = attrValue(h.GetAttribute(name, a))
	}

	if !h.IsRecordVariable(name) {
		r := s.f.Reader(name, nil, nil)
		buf := r.Zero(product(shape))
		if _, err := r.Read(buf); err != nil {
			return nil, fmt.Errorf("ncio: reading %s from %s: %w", name, s.path, err)
		}
		v.Data = toFloat64s(buf)
	} else {
		recSize := product(shape[1:])
		v.Data = make([]float64, 0, product(shape))
		for rec := 0; rec < s.numRecs; rec++ {
			begin := make([]int, len(shape))
			end := make([]int, len(shape))
			begin[0], end[0] = rec, rec
			for i := 1; i < len(shape); i++ {
				end[i] = shape[i] - 1
			}
			r := s.f.Reader(name, begin, end)
			buf := r.Zero(recSize)
			if _, err := r.Read(buf); err != nil {
				return nil, fmt.Errorf("ncio: reading %s record %d from %s: %w", name, rec, s.path, err)
			}
			v.Data = append(v.Data, toFloat64s(buf)...)
		}
	}
	maskFill(v)
	return v, nil
}

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// toFloat64s converts a slice returned by a cdf reader to float64.
func toFloat64s(buf interface{}) []float64 {
	switch b := buf.(type) {
	case []float64:
		return b
	case []float32:
		o := make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
		return o
	case []int32:
		o := make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
		return o
	case []int16:
		o := make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
		return o
	case []uint8:
		o := make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
		return o
	}
	panic(fmt.Errorf("ncio: unsupported data type %T", buf))
}

func attrValue(a interface{}) interface{} {
	if s, ok := a.(string); ok {
		return s
	}
	if a == nil {
		return nil
	}
	return toFloat64s(a)
}

// maskFill replaces fill values with NaN.
func maskFill(v *Variable) {
	for _, a := range []string{"_FillValue", "missing_value"} {
		fv, ok := v.Attrs[a].([]float64)
		if !ok || len(fv) == 0 {
			continue
		}
		for i, d := range v.Data {
			if d == fv[0] {
				v.Data[i] = math.NaN()
			}
		}
	}
}

// WriteClassic writes the variables in ds to a netCDF classic file at
// path. Variables without dimension names get dimensions named after the
// variable. Coordinate variables are written for regular and cubed-sphere
// grids and for the time axis so the file can be read back with
// ReadDataset.
func WriteClassic(path string, ds gcdiag.Dataset) error {
	dimLen := make(map[string]int)
	var dimOrder []string
	addDim := func(name string, n int) error {
		if l, ok := dimLen[name]; ok {
			if l != n {
				return fmt.Errorf("ncio: dimension %s has length %d and %d", name, l, n)
			}
			return nil
		}
		dimLen[name] = n
		dimOrder = append(dimOrder, name)
		return nil
	}
	dims := make(map[string][]string)
	names := ds.Names()
	for _, n := range names {
		f := ds[n]
		d := f.Dims
		if len(d) != len(f.Data.Shape) {
			d = make([]string, len(f.Data.Shape))
			for i := range d {
				d[i] = fmt.Sprintf("%s_dim%d", n, i)
			}
		}
		for i, dn := range d {
			if err := addDim(dn, f.Data.Shape[i]); err != nil {
				return err
			}
		}
		dims[n] = d
	}
	sort.Strings(dimOrder)
	lengths := make([]int, len(dimOrder))
	for i, d := range dimOrder {
		lengths[i] = dimLen[d]
	}

	h := cdf.NewHeader(dimOrder, lengths)
	h.AddAttribute("", "comment", "written by gcdiag")
	coords := coordinates(ds, dimLen)
	for _, c := range coords {
		h.AddVariable(c.Name, c.Dims, []float64{0})
		for a, v := range c.Attrs {
			h.AddAttribute(c.Name, a, v)
		}
	}
	for _, n := range names {
		h.AddVariable(n, dims[n], []float64{0})
		if ds[n].Units != "" {
			h.AddAttribute(n, "units", ds[n].Units)
		}
	}
	h.Define()

	ff, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ncio: %w", err)
	}
	f, err := cdf.Create(ff, h)
	if err != nil {
		ff.Close()
		return fmt.Errorf("ncio: creating %s: %w", path, err)
	}
	write := func(name string, data []float64) error {
		if len(data) == 0 {
			return nil
		}
		w := f.Writer(name, nil, nil)
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("ncio: writing %s to %s: %w", name, path, err)
		}
		return nil
	}
	for _, c := range coords {
		if err := write(c.Name, c.Data); err != nil {
			ff.Close()
			return err
		}
	}
	for _, n := range names {
		if err := write(n, ds[n].Data.Elements); err != nil {
			ff.Close()
			return err
		}
	}
	return ff.Close()
}

// coordinates returns the coordinate variables describing the grids and
// time axes of the fields in ds, for the dimensions that exist in dimLen.
func coordinates(ds gcdiag.Dataset, dimLen map[string]int) []*Variable {
	var o []*Variable
	seen := make(map[string]bool)
	add := func(v *Variable) {
		if seen[v.Name] {
			return
		}
		for i, d := range v.Dims {
			if dimLen[d] != v.Shape[i] {
				return
			}
		}
		seen[v.Name] = true
		o = append(o, v)
	}
	for _, n := range ds.Names() {
		f := ds[n]
		if g := f.Grid; g != nil {
			switch g.Kind {
			case gcdiag.Regular:
				add(&Variable{Name: "lon", Dims: []string{"lon"}, Shape: []int{len(g.Lon)}, Data: g.Lon,
					Attrs: map[string]interface{}{"units": "degrees_east"}})
				add(&Variable{Name: "lat", Dims: []string{"lat"}, Shape: []int{len(g.Lat)}, Data: g.Lat,
					Attrs: map[string]interface{}{"units": "degrees_north"}})
			case gcdiag.CubedSphere:
				shape := []int{gcdiag.CubedSphereFaces, g.N, g.N}
				var lons, lats []float64
				for face := 0; face < gcdiag.CubedSphereFaces; face++ {
					lons = append(lons, g.FaceLon[face]...)
					lats = append(lats, g.FaceLat[face]...)
				}
				add(&Variable{Name: "lons", Dims: []string{"nf", "Ydim", "Xdim"}, Shape: shape, Data: lons,
					Attrs: map[string]interface{}{"units": "degrees_east"}})
				add(&Variable{Name: "lats", Dims: []string{"nf", "Ydim", "Xdim"}, Shape: shape, Data: lats,
					Attrs: map[string]interface{}{"units": "degrees_north"}})
			}
		}
		if len(f.Times) > 0 {
			add(timeVariable(f.Times))
		}
	}
	return o
}
