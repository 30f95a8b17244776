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
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

//go:embed data/bpch_names.toml
var bpchNames string

// Action specifies how a NameMappingRule builds the new variable name.
type Action string

// Actions available to name mapping rules.
const (
	Replace      Action = "replace"
	Append       Action = "append"
	AppendNoUnit Action = "append_no_unit"
	Skip         Action = "skip"
	Custom       Action = "custom"
)

func (a Action) valid() bool {
	switch a {
	case Replace, Append, AppendNoUnit, Skip, Custom:
		return true
	}
	return false
}

// NameMappingRule maps legacy variable names containing Match onto
// netCDF names built from Stem.
type NameMappingRule struct {
	Match  string `toml:"match"`
	Stem   string `toml:"stem"`
	Action Action `toml:"action"`
}

// unitSuffixLen is the length of the unit suffix ("df", "dv") that
// append_no_unit rules remove from the species token.
const unitSuffixLen = 2

// joinExceptions holds the match keys whose species token is combined
// with the stem in a non-default way.
var joinExceptions = map[string]func(stem, token string) string{
	// Photolysis rates are named "J" + species in the legacy files.
	"JV_MAP_S_": func(stem, token string) string {
		if len(token) > 0 {
			token = token[1:]
		}
		return stem + "_" + token
	},
	"IJ_SOA_S_": func(stem, token string) string { return stem + token },
	"BIOBSRCE_": emisJoin,
	"BIOFSRCE_": emisJoin,
	"BIOGSRCE_": emisJoin,
	"ANTHSRCE_": emisJoin,
}

func emisJoin(stem, token string) string { return "Emis" + token + "_" + stem }

// Outcome is the result of looking up a name in a NameTable.
type Outcome int

const (
	// Renamed means a rule matched and produced a new name.
	Renamed Outcome = iota
	// Unchanged means no rule could map the name; it is kept as is.
	Unchanged
	// Dropped means a skip rule matched; the variable should be removed.
	Dropped
)

func (o Outcome) String() string {
	switch o {
	case Renamed:
		return "renamed"
	case Unchanged:
		return "unchanged"
	case Dropped:
		return "dropped"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// NameTable converts legacy bpch diagnostic names to GEOS-Chem netCDF
// names. It is safe for concurrent use once created.
type NameTable struct {
	rules     []NameMappingRule
	overrides map[string]string

	// Log receives a message for every name that could not be mapped.
	Log logrus.FieldLogger
}

type nameTableFile struct {
	Rules     []NameMappingRule `toml:"rules"`
	Overrides map[string]string `toml:"overrides"`
}

// NewNameTable creates a NameTable from an ordered list of rules and a
// table of name overrides, which may be nil.
func NewNameTable(rules []NameMappingRule, overrides map[string]string) (*NameTable, error) {
	for i, r := range rules {
		if r.Match == "" {
			return nil, fmt.Errorf("gcdiag: name rule %d has no match key", i)
		}
		if !r.Action.valid() {
			return nil, fmt.Errorf("gcdiag: name rule %d (%s) has invalid action %q", i, r.Match, r.Action)
		}
		if r.Action != Skip && r.Stem == "" {
			return nil, fmt.Errorf("gcdiag: name rule %d (%s) has no stem", i, r.Match)
		}
		if r.Action == Custom {
			if _, ok := joinExceptions[r.Match]; !ok {
				return nil, fmt.Errorf("gcdiag: name rule %d (%s) is custom but no custom join is defined for it", i, r.Match)
			}
		}
	}
	if overrides == nil {
		overrides = make(map[string]string)
	}
	return &NameTable{
		rules:     rules,
		overrides: overrides,
		Log:       logrus.StandardLogger(),
	}, nil
}

// LoadNameTable reads a NameTable in TOML format from r. The format is
// a list of [[rules]] entries with match, stem and action keys, and an
// optional [overrides] table.
func LoadNameTable(r io.Reader) (*NameTable, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcdiag: reading name table: %w", err)
	}
	var f nameTableFile
	if _, err := toml.Decode(string(b), &f); err != nil {
		return nil, fmt.Errorf("gcdiag: decoding name table: %w", err)
	}
	return NewNameTable(f.Rules, f.Overrides)
}

// DefaultNameTable returns the built-in bpch-to-netCDF name table.
func DefaultNameTable() *NameTable {
	t, err := LoadNameTable(strings.NewReader(bpchNames))
	if err != nil {
		panic(err)
	}
	return t
}

// Rules returns a copy of the rules in t.
func (t *NameTable) Rules() []NameMappingRule {
	return append([]NameMappingRule(nil), t.rules...)
}

// Canonicalize returns the netCDF name for the legacy name old.
// The first rule whose match key is contained in old is used. If no rule
// can map the name, old is returned with outcome Unchanged; if a skip
// rule matches, the outcome is Dropped.
func (t *NameTable) Canonicalize(old string) (string, Outcome) {
	for _, r := range t.rules {
		if !strings.Contains(old, r.Match) {
			continue
		}
		switch r.Action {
		case Skip:
			return "", Dropped
		case Replace:
			return r.Stem, Renamed
		}

		token := old
		if i := strings.LastIndex(old, "_"); i >= 0 {
			token = old[i+1:]
		}
		var name string
		switch {
		case r.Action == AppendNoUnit:
			if len(token) <= unitSuffixLen {
				t.miss(old, "species token too short to remove unit suffix")
				return old, Unchanged
			}
			name = r.Stem + "_" + token[:len(token)-unitSuffixLen]
		case joinExceptions[r.Match] != nil:
			name = joinExceptions[r.Match](r.Stem, token)
		case r.Action == Append:
			name = r.Stem + "_" + token
		default:
			t.miss(old, "nothing defined for rule "+r.Match)
			return old, Unchanged
		}
		if o, ok := t.overrides[name]; ok {
			name = o
		}
		return name, Renamed
	}
	t.miss(old, "no matching rule")
	return old, Unchanged
}

func (t *NameTable) miss(name, reason string) {
	if t.Log == nil {
		return
	}
	t.Log.WithFields(logrus.Fields{
		"variable": name,
		"reason":   reason,
	}).Debug("no netCDF name for legacy variable")
}

// RenameAll looks up every name in names. It returns the mapping from old
// to new names for the names that were renamed, the names that should be
// dropped, and the names that could not be mapped.
func (t *NameTable) RenameAll(names []string) (renames map[string]string, dropped, missed []string) {
	renames = make(map[string]string)
	for _, n := range names {
		nn, outcome := t.Canonicalize(n)
		switch outcome {
		case Renamed:
			renames[n] = nn
		case Dropped:
			dropped = append(dropped, n)
		case Unchanged:
			missed = append(missed, n)
		}
	}
	return
}

// RenameDataset returns a copy of ds with legacy names replaced by their
// netCDF names and skipped variables removed. Variables whose names
// cannot be mapped are kept under their original names. It is an error
// for two variables to end up with the same name.
func (t *NameTable) RenameDataset(ds Dataset) (Dataset, error) {
	renames, dropped, _ := t.RenameAll(ds.Names())
	drop := make(map[string]bool, len(dropped))
	for _, d := range dropped {
		drop[d] = true
	}
	o := make(Dataset, len(ds))
	for _, old := range ds.Names() {
		if drop[old] {
			continue
		}
		name := old
		if n, ok := renames[old]; ok {
			name = n
		}
		if _, ok := o[name]; ok {
			return nil, fmt.Errorf("gcdiag: renaming %s: a variable named %s already exists", old, name)
		}
		f := *ds[old]
		f.Name = name
		o[name] = &f
	}
	return o, nil
}
