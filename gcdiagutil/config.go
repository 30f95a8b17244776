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

package gcdiagutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/gcdiag"
	"github.com/spf13/cast"
)

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) map[string]string {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return nil
	case map[string]string:
		return v
	case map[string]interface{}:
		return cast.ToStringMapString(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		d := json.NewDecoder(bytes.NewBufferString(v))
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			panic(err)
		}
		return o
	default:
		panic(fmt.Errorf("invalid type for getStringMapString variable %s: %#v", varName, i))
	}
}

// loadNameTable reads the name rule table at path, or returns the
// built-in table if path is empty.
func loadNameTable(path string) (*gcdiag.NameTable, error) {
	if path == "" {
		return gcdiag.DefaultNameTable(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gcdiag: opening name table: %v", err)
	}
	defer f.Close()
	return gcdiag.LoadNameTable(f)
}

// loadLevels reads the level table at path, or returns the standard
// 72-level table if path is empty.
func loadLevels(path string) (*gcdiag.LevelTable, error) {
	if path == "" {
		return gcdiag.DefaultLevelTable(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gcdiag: opening level table: %v", err)
	}
	defer f.Close()
	return gcdiag.ReadLevelTable(f)
}

// loadLumped reads lumped species definitions from path. "default"
// selects the built-in definitions and an empty path none at all.
func loadLumped(path string) (gcdiag.LumpedSpecies, error) {
	switch path {
	case "":
		return nil, nil
	case "default":
		return gcdiag.DefaultLumpedSpecies(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gcdiag: opening lumped species: %v", err)
	}
	defer f.Close()
	return gcdiag.LoadLumpedSpecies(f)
}

// derivedVariables converts a map of names to expressions into derived
// variable definitions, sorted by name.
func derivedVariables(m map[string]string) ([]gcdiag.DerivedVariable, error) {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	o := make([]gcdiag.DerivedVariable, len(names))
	for i, n := range names {
		expr := strings.TrimSpace(strings.Replace(m[n], "\n", " ", -1))
		if expr == "" {
			return nil, fmt.Errorf("gcdiag: derived variable %s has no expression", n)
		}
		o[i] = gcdiag.DerivedVariable{Name: os.ExpandEnv(n), Expression: expr}
	}
	return o, nil
}
