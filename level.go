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
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

//go:embed data/levels72.csv
var levels72 []byte

// Level is one entry in a LevelTable.
type Level struct {
	// Number is the model level number, starting at 1 at the surface.
	Number int

	// Altitude is the altitude of the level midpoint [m].
	Altitude float64
}

// LevelTable holds the altitudes of the vertical levels of a model grid,
// ordered from the surface upward. Position i in the table corresponds to
// index i along the level dimension of a ModelField.
type LevelTable struct {
	Levels []Level
}

// NewLevelTable creates a LevelTable from level-midpoint altitudes in
// meters, numbering the levels from 1.
func NewLevelTable(altitudes []float64) *LevelTable {
	t := &LevelTable{Levels: make([]Level, len(altitudes))}
	for i, a := range altitudes {
		t.Levels[i] = Level{Number: i + 1, Altitude: a}
	}
	return t
}

// DefaultLevelTable returns the level-midpoint altitudes of the 72-level
// GEOS-Chem vertical grid for a standard atmosphere.
func DefaultLevelTable() *LevelTable {
	t, err := ReadLevelTable(bytes.NewReader(levels72))
	if err != nil {
		panic(err)
	}
	return t
}

// ReadLevelTable reads a LevelTable from CSV data with a header line and
// the columns level and altitude_m.
func ReadLevelTable(r io.Reader) (*LevelTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("gcdiag: reading level table: %w", err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: level table has no header", ErrOutOfRange)
	}
	if h := strings.ToLower(recs[0][1]); !strings.HasPrefix(h, "altitude") {
		return nil, fmt.Errorf("gcdiag: level table header %q: second column must be altitude_m", recs[0])
	}
	t := &LevelTable{Levels: make([]Level, 0, len(recs)-1)}
	for i, rec := range recs[1:] {
		n, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("gcdiag: level table line %d: %w", i+2, err)
		}
		a, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("gcdiag: level table line %d: %w", i+2, err)
		}
		t.Levels = append(t.Levels, Level{Number: n, Altitude: a})
	}
	return t, nil
}

// Altitudes returns the altitude column of the table.
func (t *LevelTable) Altitudes() []float64 {
	o := make([]float64, len(t.Levels))
	for i, l := range t.Levels {
		o[i] = l.Altitude
	}
	return o
}

// Len returns the number of levels in the table.
func (t *LevelTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Levels)
}

// NearestLevel returns the position in the table of the level whose
// altitude is closest to altitude [m]. Exact ties resolve to the lowest
// position. An error wrapping ErrOutOfRange is returned if the table is
// empty or altitude is NaN.
func (t *LevelTable) NearestLevel(altitude float64) (int, error) {
	if t.Len() == 0 {
		return -1, fmt.Errorf("%w: empty level table", ErrOutOfRange)
	}
	if math.IsNaN(altitude) {
		return -1, fmt.Errorf("%w: altitude is NaN", ErrOutOfRange)
	}
	best := 0
	bestDiff := math.Inf(1)
	for i, l := range t.Levels {
		if d := math.Abs(l.Altitude - altitude); d < bestDiff {
			bestDiff = d
			best = i
		}
	}
	return best, nil
}
