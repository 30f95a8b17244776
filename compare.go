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
	"math"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// VarnameComparison lists how the variables of two datasets correspond.
type VarnameComparison struct {
	// Common holds the variables present in both datasets.
	Common []string

	// Common1D, Common2D and Common3D split Common by the number of
	// spatial dimensions of the Ref variable.
	Common1D, Common2D, Common3D []string

	RefOnly, DevOnly []string

	// DimMismatch holds the common variables whose number of dimensions
	// differs between the datasets.
	DimMismatch []string
}

// rank returns the number of dimensions of f, including time. The face
// dimension of cubed-sphere fields is not counted, so that a field has
// the same rank on either kind of grid.
func rank(f *ModelField) int {
	n := len(f.Dims)
	if n == 0 {
		n = len(f.Data.Shape)
	}
	if f.Grid != nil && f.Grid.Kind == CubedSphere {
		n--
	}
	return n
}

// CompareVarnames finds the variables that ref and dev have in common.
func CompareVarnames(ref, dev Dataset) VarnameComparison {
	var c VarnameComparison
	for _, n := range ref.Names() {
		d, ok := dev[n]
		if !ok {
			c.RefOnly = append(c.RefOnly, n)
			continue
		}
		c.Common = append(c.Common, n)
		r := rank(ref[n])
		if r != rank(d) {
			c.DimMismatch = append(c.DimMismatch, n)
		}
		switch r {
		case 2:
			c.Common1D = append(c.Common1D, n)
		case 3:
			c.Common2D = append(c.Common2D, n)
		case 4:
			c.Common3D = append(c.Common3D, n)
		}
	}
	for _, n := range dev.Names() {
		if _, ok := ref[n]; !ok {
			c.DevOnly = append(c.DevOnly, n)
		}
	}
	return c
}

// FieldStats summarizes the values of one variable.
type FieldStats struct {
	Units               string
	Shape               []int
	Mean, Min, Max, Sum float64
}

// SummarizeField calculates global statistics for f.
func SummarizeField(f *ModelField) (FieldStats, error) {
	if len(f.Data.Elements) == 0 {
		return FieldStats{}, fmt.Errorf("gcdiag: variable %s has no values", f.Name)
	}
	return FieldStats{
		Units: f.Units,
		Shape: append([]int(nil), f.Data.Shape...),
		Mean:  stat.Mean(f.Data.Elements, nil),
		Min:   floats.Min(f.Data.Elements),
		Max:   floats.Max(f.Data.Elements),
		Sum:   floats.Sum(f.Data.Elements),
	}, nil
}

// StatsComparison holds global statistics of one variable in two
// datasets.
type StatsComparison struct {
	Name     string
	Ref, Dev FieldStats
}

// CompareStats calculates global statistics of variable name in ref and
// dev.
func CompareStats(ref, dev Dataset, name string) (*StatsComparison, error) {
	c := &StatsComparison{Name: name}
	for _, x := range []struct {
		ds  Dataset
		s   *FieldStats
		lbl string
	}{{ref, &c.Ref, "Ref"}, {dev, &c.Dev, "Dev"}} {
		f, ok := x.ds[name]
		if !ok {
			return nil, fmt.Errorf("gcdiag: variable %s is not in the %s dataset", name, x.lbl)
		}
		s, err := SummarizeField(f)
		if err != nil {
			return nil, err
		}
		*x.s = s
	}
	return c, nil
}

// Identical reports whether the Ref and Dev statistics are the same.
func (c *StatsComparison) Identical() bool {
	return reflect.DeepEqual(c.Ref, c.Dev)
}

// FilterNames returns the names that contain text. If text is empty, all
// non-empty names are returned.
func FilterNames(names []string, text string) []string {
	var o []string
	for _, n := range names {
		if n == "" {
			continue
		}
		if strings.Contains(n, text) {
			o = append(o, n)
		}
	}
	return o
}

// CommonVarnames returns the sorted names of the variables that are in
// both ref and dev and start with prefix.
func CommonVarnames(ref, dev Dataset, prefix string) []string {
	var o []string
	for _, n := range CompareVarnames(ref, dev).Common {
		if strings.HasPrefix(n, prefix) {
			o = append(o, n)
		}
	}
	return o
}

// DivideByCounter divides the variables in names by counter, element by
// element, keeping their units. Counter must either have the same shape
// as each variable or the same shape without the level dimension, in
// which case it is applied to every level. If names is empty, every
// variable except counter itself is divided.
func DivideByCounter(ds Dataset, counter *ModelField, names []string) error {
	if len(names) == 0 {
		for _, n := range ds.Names() {
			if ds[n] != counter && n != counter.Name {
				names = append(names, n)
			}
		}
	}
	for _, n := range names {
		f, ok := ds[n]
		if !ok {
			return fmt.Errorf("gcdiag: variable %s is not in the dataset", n)
		}
		out := f.Data.Copy()
		switch {
		case reflect.DeepEqual(f.Data.Shape, counter.Data.Shape):
			for i, v := range out.Elements {
				out.Elements[i] = v / counter.Data.Elements[i]
			}
		case len(f.Data.Shape) == len(counter.Data.Shape)+1 && len(f.Data.Shape) > 2 &&
			f.Data.Shape[0] == counter.Data.Shape[0] &&
			reflect.DeepEqual(f.Data.Shape[2:], counter.Data.Shape[1:]):
			nz := f.Data.Shape[1]
			nh := len(out.Elements) / f.Data.Shape[0] / nz
			for i, v := range out.Elements {
				t := i / (nz * nh)
				out.Elements[i] = v / counter.Data.Elements[t*nh+i%nh]
			}
		default:
			return fmt.Errorf("gcdiag: can't divide %s with shape %v by %s with shape %v",
				n, f.Data.Shape, counter.Name, counter.Data.Shape)
		}
		c := *f
		c.Data = out
		ds[n] = &c
	}
	return nil
}

// SignificantDifferences returns the names of the variables whose global
// mean differs between ref and dev by more than threshold, relative to the
// Ref mean. It is a screening list for plotting, not a statistical test.
func SignificantDifferences(ref, dev Dataset, names []string, threshold float64) ([]string, error) {
	var o []string
	for _, n := range names {
		c, err := CompareStats(ref, dev, n)
		if err != nil {
			return nil, err
		}
		diff := math.Abs(c.Dev.Mean - c.Ref.Mean)
		if diff == 0 {
			continue
		}
		if c.Ref.Mean == 0 || diff/math.Abs(c.Ref.Mean) > threshold {
			o = append(o, n)
		}
	}
	sort.Strings(o)
	return o, nil
}

// PDFFilename returns the name of the PDF file for plots of a collection,
// e.g. dst/DryDep_Surface.pdf. subdst, which may be empty, identifies the
// averaging period.
func PDFFilename(dst, collection, plotType, subdst string) string {
	name := collection + "_" + plotType
	if subdst != "" {
		name += "_" + subdst
	}
	return filepath.Join(dst, name+".pdf")
}
