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

package gcdiag

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ctessum/sparse"
)

// MolMolUnits is the units string GEOS-Chem uses for volume mixing ratios.
const MolMolUnits = "mol mol-1"

// PPBVUnits is the units string of a field converted to parts per billion.
const PPBVUnits = "ppbv"

// ModelField is a gridded model variable. Data is laid out as
// time × level × horizontal, where the horizontal dimensions are
// (lat, lon) on a regular grid and (face, y, x) on a cubed-sphere grid.
// Surface fields may leave out the level dimension.
// Fields that are not defined on a grid (Grid == nil) may have any shape;
// they can be compared but not co-located.
// A ModelField should not be modified after it has been read.
type ModelField struct {
	Name  string
	Units string

	// Dims holds the names of the dimensions of Data.
	Dims []string

	Data  *sparse.DenseArray
	Times []time.Time
	Grid  *GridDescriptor
}

// NewModelField creates a ModelField, checking that the units are known
// and that the shape of data matches times and grid.
func NewModelField(name, units string, data *sparse.DenseArray, times []time.Time, grid *GridDescriptor) (*ModelField, error) {
	if strings.TrimSpace(units) == "" {
		return nil, fmt.Errorf("%w: variable %s", ErrMissingUnits, name)
	}
	f := &ModelField{Name: name, Units: units, Data: data, Times: times, Grid: grid}
	if grid == nil {
		return f, nil
	}
	want := append([]int{len(times), -1}, grid.Shape()...)
	if len(data.Shape) == len(want)-1 {
		want = append([]int{len(times)}, grid.Shape()...)
	}
	if len(data.Shape) != len(want) {
		return nil, fmt.Errorf("gcdiag: variable %s has shape %v; want time × level × %v", name, data.Shape, grid.Shape())
	}
	for i, n := range want {
		if n >= 0 && data.Shape[i] != n {
			return nil, fmt.Errorf("gcdiag: variable %s has shape %v; want time × level × %v with %d times",
				name, data.Shape, grid.Shape(), len(times))
		}
	}
	return f, nil
}

// ConvertToPPBV converts a field in mol mol-1 to parts per billion by
// volume and updates its units. Fields in other units are left alone, so
// calling it more than once has no further effect.
func (f *ModelField) ConvertToPPBV() error {
	if strings.TrimSpace(f.Units) == "" {
		return fmt.Errorf("%w: variable %s", ErrMissingUnits, f.Name)
	}
	if !strings.Contains(f.Units, MolMolUnits) {
		return nil
	}
	f.Data.Scale(1.0e9)
	f.Units = PPBVUnits
	return nil
}

// NumLevels returns the length of the level dimension. Gridded fields
// without a level dimension have one level.
func (f *ModelField) NumLevels() int {
	if f.Grid != nil && !f.hasLevels() {
		return 1
	}
	if len(f.Data.Shape) < 2 {
		return 0
	}
	return f.Data.Shape[1]
}

func (f *ModelField) hasLevels() bool {
	return len(f.Data.Shape) == len(f.Grid.Shape())+2
}

func (f *ModelField) index(t, z int, c CellIndex) []int {
	idx := []int{t}
	if f.hasLevels() {
		idx = append(idx, z)
	}
	if f.Grid.Kind == CubedSphere {
		return append(idx, c.Face, c.Y, c.X)
	}
	return append(idx, c.Y, c.X)
}

// Column returns the time × level values in grid cell c.
func (f *ModelField) Column(c CellIndex) ([][]float64, error) {
	if f.Grid == nil {
		return nil, fmt.Errorf("%w: variable %s has no horizontal grid", ErrInvalidGrid, f.Name)
	}
	idx := f.index(0, 0, c)
	if len(idx) != len(f.Data.Shape) {
		return nil, fmt.Errorf("%w: variable %s has shape %v on a %v grid", ErrInvalidGrid, f.Name, f.Data.Shape, f.Grid.Kind)
	}
	for i, n := range idx {
		if n < 0 || n >= f.Data.Shape[i] {
			return nil, fmt.Errorf("%w: cell %v outside variable %s with shape %v", ErrOutOfRange, c, f.Name, f.Data.Shape)
		}
	}
	nt, nz := f.Data.Shape[0], f.NumLevels()
	o := make([][]float64, nt)
	for t := 0; t < nt; t++ {
		o[t] = make([]float64, nz)
		for z := 0; z < nz; z++ {
			o[t][z] = f.Data.Get(f.index(t, z, c)...)
		}
	}
	return o, nil
}

// LevelSeries returns the time series of the field in cell c at the
// given level index.
func (f *ModelField) LevelSeries(c CellIndex, level int) (Series, error) {
	col, err := f.Column(c)
	if err != nil {
		return nil, err
	}
	if level < 0 || level >= f.NumLevels() {
		return nil, fmt.Errorf("%w: level %d of variable %s with %d levels", ErrOutOfRange, level, f.Name, f.NumLevels())
	}
	if len(f.Times) != len(col) {
		return nil, fmt.Errorf("gcdiag: variable %s has %d time steps but %d times", f.Name, len(col), len(f.Times))
	}
	s := make(Series, len(col))
	for t, levels := range col {
		s[t] = Point{Time: f.Times[t], Value: levels[level]}
	}
	return s, nil
}

// Dataset is a collection of model variables keyed by name.
type Dataset map[string]*ModelField

// Names returns the sorted variable names in the dataset.
func (ds Dataset) Names() []string {
	o := make([]string, 0, len(ds))
	for n := range ds {
		o = append(o, n)
	}
	sort.Strings(o)
	return o
}
