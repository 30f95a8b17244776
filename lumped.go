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
	_ "embed"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed data/lumped_species.yml
var lumpedSpecies string

// LumpedSpecies maps the name of each lumped species to the weights of
// the species it is made of.
type LumpedSpecies map[string]map[string]float64

// LoadLumpedSpecies reads lumped species definitions in YAML format.
func LoadLumpedSpecies(r io.Reader) (LumpedSpecies, error) {
	var l LumpedSpecies
	if err := yaml.NewDecoder(r).Decode(&l); err != nil {
		return nil, fmt.Errorf("gcdiag: reading lumped species: %w", err)
	}
	return l, nil
}

// DefaultLumpedSpecies returns the built-in lumped species definitions.
func DefaultLumpedSpecies() LumpedSpecies {
	l, err := LoadLumpedSpecies(strings.NewReader(lumpedSpecies))
	if err != nil {
		panic(err)
	}
	return l
}

// Names returns the sorted names of the lumped species.
func (l LumpedSpecies) Names() []string {
	o := make([]string, 0, len(l))
	for n := range l {
		o = append(o, n)
	}
	sort.Strings(o)
	return o
}

// AddLumpedSpecies adds a variable prefix+name to ds for each lumped
// species in defs, holding the weighted sum of its member variables.
// Members missing from ds are left out with a warning. It is an error for
// the variable to already exist unless overwrite is true.
func AddLumpedSpecies(ds Dataset, defs LumpedSpecies, prefix string, overwrite bool, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	for _, lspc := range defs.Names() {
		name := prefix + lspc
		if _, ok := ds[name]; ok && !overwrite {
			return fmt.Errorf("gcdiag: %s is already in the dataset; set overwrite to replace it", name)
		}
		members := make([]string, 0, len(defs[lspc]))
		for spc := range defs[lspc] {
			members = append(members, spc)
		}
		sort.Strings(members)

		var sum *ModelField
		for _, spc := range members {
			f, ok := ds[prefix+spc]
			if !ok {
				log.WithFields(logrus.Fields{
					"species": spc,
					"lumped":  lspc,
				}).Warn("species needed for lumped species is not in the dataset")
				continue
			}
			w := defs[lspc][spc]
			if sum == nil {
				c := *f
				c.Name = name
				c.Data = f.Data.ScaleCopy(w)
				sum = &c
				continue
			}
			if len(f.Data.Elements) != len(sum.Data.Elements) {
				return fmt.Errorf("gcdiag: lumped species %s: %s has shape %v but other members have %v",
					lspc, f.Name, f.Data.Shape, sum.Data.Shape)
			}
			for i, v := range f.Data.Elements {
				sum.Data.Elements[i] += v * w
			}
		}
		if sum == nil {
			log.WithField("lumped", lspc).Warn("no member species in the dataset; skipping lumped species")
			continue
		}
		ds[name] = sum
	}
	return nil
}

// DerivedVariable defines a new variable as an expression of other
// variables, e.g. {Name: "NOx", Expression: "SpeciesConc_NO + SpeciesConc_NO2"}.
type DerivedVariable struct {
	Name       string
	Expression string

	// Units of the new variable. If empty, the units of the first
	// variable in the expression are used.
	Units string
}

var derivedFunctions = map[string]govaluate.ExpressionFunction{
	"exp": func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("gcdiag: got %d arguments for function 'exp', but needs 1", len(arg))
		}
		return math.Exp(arg[0].(float64)), nil
	},
	"log": func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("gcdiag: got %d arguments for function 'log', but needs 1", len(arg))
		}
		return math.Log(arg[0].(float64)), nil
	},
	"sqrt": func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("gcdiag: got %d arguments for function 'sqrt', but needs 1", len(arg))
		}
		return math.Sqrt(arg[0].(float64)), nil
	},
	"abs": func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("gcdiag: got %d arguments for function 'abs', but needs 1", len(arg))
		}
		return math.Abs(arg[0].(float64)), nil
	},
}

// DeriveVariables evaluates defs in order, element by element, and adds
// the results to ds. Later definitions may use earlier ones. All of the
// variables in an expression must have the same number of elements.
func DeriveVariables(ds Dataset, defs []DerivedVariable) error {
	for _, d := range defs {
		expr, err := govaluate.NewEvaluableExpressionWithFunctions(d.Expression, derivedFunctions)
		if err != nil {
			return fmt.Errorf("gcdiag: derived variable %s: %w", d.Name, err)
		}
		vars := uniqueStrings(expr.Vars())
		if len(vars) == 0 {
			return fmt.Errorf("gcdiag: derived variable %s does not use any variables", d.Name)
		}
		fields := make([]*ModelField, len(vars))
		for i, v := range vars {
			f, ok := ds[v]
			if !ok {
				return fmt.Errorf("gcdiag: derived variable %s: undefined variable name '%s'", d.Name, v)
			}
			fields[i] = f
			if len(f.Data.Elements) != len(fields[0].Data.Elements) {
				return fmt.Errorf("gcdiag: derived variable %s: %s has shape %v but %s has %v",
					d.Name, v, f.Data.Shape, vars[0], fields[0].Data.Shape)
			}
		}
		out := *fields[0]
		out.Name = d.Name
		out.Data = fields[0].Data.Copy()
		if d.Units != "" {
			out.Units = d.Units
		}
		params := make(map[string]interface{}, len(vars))
		for i := range out.Data.Elements {
			for j, v := range vars {
				params[v] = fields[j].Data.Elements[i]
			}
			r, err := expr.Evaluate(params)
			if err != nil {
				return fmt.Errorf("gcdiag: derived variable %s: %w", d.Name, err)
			}
			val, ok := r.(float64)
			if !ok {
				return fmt.Errorf("gcdiag: derived variable %s: expression result %v is not a number", d.Name, r)
			}
			out.Data.Elements[i] = val
		}
		ds[d.Name] = &out
	}
	return nil
}

func uniqueStrings(s []string) []string {
	seen := make(map[string]bool, len(s))
	var o []string
	for _, v := range s {
		if !seen[v] {
			seen[v] = true
			o = append(o, v)
		}
	}
	return o
}
