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
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spatialmodel/gcdiag/internal/metrics"
)

var testMonths = []time.Time{
	date(2019, time.January, 1, 0),
	date(2019, time.February, 1, 0),
	date(2019, time.March, 1, 0),
}

// testRefField returns a field on a 3×3 regular grid whose value encodes
// its own (time, level, y, x) index.
func testRefField(t *testing.T) *ModelField {
	g, err := NewRegularGrid([]float64{0, 10, 20}, []float64{-10, 0, 10})
	if err != nil {
		t.Fatal(err)
	}
	data := sparse.ZerosDense(len(testMonths), 4, 3, 3)
	for ti := range testMonths {
		for z := 0; z < 4; z++ {
			for y := 0; y < 3; y++ {
				for x := 0; x < 3; x++ {
					data.Set(float64(ti*1000+z*100+y*10+x), ti, z, y, x)
				}
			}
		}
	}
	f, err := NewModelField("SpeciesConcVV_O3", PPBVUnits, data, testMonths, g)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

// testDevField returns a constant field on a cubed-sphere grid.
func testDevField(t *testing.T, v float64) *ModelField {
	g := testCubedSphereGrid(t, 2)
	data := sparse.ZerosDense(len(testMonths), 4, CubedSphereFaces, 2, 2)
	for i := range data.Elements {
		data.Elements[i] = v
	}
	f, err := NewModelField("SpeciesConcVV_O3", PPBVUnits, data, testMonths, g)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func testColocator(t *testing.T) *Colocator {
	levels := NewLevelTable([]float64{0, 100, 500, 1000})
	c, err := NewColocator(testRefField(t), testDevField(t, 5), levels, "SpeciesConcVV_O3")
	if err != nil {
		t.Fatal(err)
	}
	logger, _ := logtest.NewNullLogger()
	c.Log = logger
	return c
}

func testSite(name string, lon, lat, alt float64) *StationObservation {
	return &StationObservation{
		Name:     name,
		Location: geom.Point{X: lon, Y: lat},
		Altitude: alt,
		Series: Series{
			{Time: date(2019, time.January, 3, 4), Value: 10},
			{Time: date(2019, time.January, 20, 4), Value: 20},
			{Time: date(2019, time.February, 2, 0), Value: 30},
		},
	}
}

func TestColocate(t *testing.T) {
	c := testColocator(t)
	p, err := c.Colocate(testSite("Test Site", 10.4, 0.2, 450))
	if err != nil {
		t.Fatal(err)
	}
	if p.RefCell != (CellIndex{Y: 1, X: 1}) {
		t.Errorf("ref cell: %v", p.RefCell)
	}
	if p.Level != 2 {
		t.Errorf("level: have %d, want 2", p.Level)
	}
	checkSeries(t, "obs", p.Obs, Series{
		{Time: testMonths[0], Value: 15},
		{Time: testMonths[1], Value: 30},
	})
	checkSeries(t, "ref", p.Ref, Series{
		{Time: testMonths[0], Value: 211},
		{Time: testMonths[1], Value: 1211},
		{Time: testMonths[2], Value: 2211},
	})
	for _, v := range p.Dev.Values() {
		if v != 5 {
			t.Errorf("dev value %g, want 5", v)
		}
	}
	if p.Title != "Test Site (0°N,10°E)" {
		t.Errorf("title: %q", p.Title)
	}
	if p.YLabel != "O3 (ppbv)" {
		t.Errorf("ylabel: %q", p.YLabel)
	}
	if p.RefStats.N != 2 {
		t.Errorf("ref stats N = %d", p.RefStats.N)
	}
	if want := ((211.0 - 15) + (1211 - 30)) / 2; different(p.RefStats.MB, want, 1e-10) {
		t.Errorf("ref MB: have %g, want %g", p.RefStats.MB, want)
	}
}

func TestColocateSurfaceField(t *testing.T) {
	g, err := NewRegularGrid([]float64{0, 10, 20}, []float64{-10, 0, 10})
	if err != nil {
		t.Fatal(err)
	}
	times := []time.Time{
		date(2018, time.December, 1, 0),
		date(2019, time.January, 1, 0),
		date(2019, time.February, 1, 0),
	}
	data := sparse.ZerosDense(len(times), 3, 3)
	for ti := range times {
		for y := 0; y < 3; y++ {
			for x := 0; x < 3; x++ {
				data.Set(float64(ti*100+y*10+x), ti, y, x)
			}
		}
	}
	f, err := NewModelField("SpeciesConcVV_O3", PPBVUnits, data, times, g)
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewColocator(f, f, DefaultLevelTable(), "SpeciesConcVV_O3")
	if err != nil {
		t.Fatal(err)
	}
	logger, _ := logtest.NewNullLogger()
	c.Log = logger

	site := testSite("Hill", 10.4, 0.2, 450)
	p, err := c.Colocate(site)
	if err != nil {
		t.Fatal(err)
	}
	if p.Level == 0 {
		t.Error("an elevated site should be matched to a level above the surface")
	}
	checkSeries(t, "ref", p.Ref, Series{
		{Time: times[0], Value: 11},
		{Time: times[1], Value: 111},
		{Time: times[2], Value: 211},
	})

	c.Year = 2019
	p, err = c.Colocate(site)
	if err != nil {
		t.Fatal(err)
	}
	checkSeries(t, "ref 2019", p.Ref, Series{
		{Time: times[1], Value: 111},
		{Time: times[2], Value: 211},
	})
	checkSeries(t, "dev 2019", p.Dev, p.Ref)
}

func TestColocateAll(t *testing.T) {
	c := testColocator(t)
	c.Metrics = metrics.New()
	obs := NewObservationSet()
	for _, s := range []*StationObservation{
		testSite("South", 0, -9, 0),
		testSite("North", 20, 9, 0),
		testSite("Nowhere", math.NaN(), 0, 0),
		{Name: "Empty", Location: geom.Point{X: 0, Y: 0}},
	} {
		if err := obs.Add(s); err != nil {
			t.Fatal(err)
		}
	}
	plotted, skipped := c.ColocateAll(obs)
	if len(plotted) != 2 || len(skipped) != 2 {
		t.Fatalf("have %d plotted and %d skipped", len(plotted), len(skipped))
	}
	if plotted[0].Site.Name != "North" || plotted[1].Site.Name != "South" {
		t.Errorf("sites out of order: %s, %s", plotted[0].Site.Name, plotted[1].Site.Name)
	}
	for _, s := range skipped {
		switch s.Site.Name {
		case "Nowhere":
			if !errors.Is(s.Err, ErrInvalidGrid) {
				t.Errorf("Nowhere: %v", s.Err)
			}
		case "Empty":
			if !errors.Is(s.Err, ErrNoObservations) {
				t.Errorf("Empty: %v", s.Err)
			}
		default:
			t.Errorf("unexpected skipped site %s", s.Site.Name)
		}
		if !IsSkippable(s.Err) {
			t.Errorf("%s: error should be skippable", s.Site.Name)
		}
	}
}

func TestNewColocatorErrors(t *testing.T) {
	levels := NewLevelTable([]float64{0})
	ref := testRefField(t)
	if _, err := NewColocator(ref, nil, levels, "x"); err == nil {
		t.Error("expected an error for a missing field")
	}
	noGrid := &ModelField{Name: "x", Units: PPBVUnits, Data: sparse.ZerosDense(1)}
	if _, err := NewColocator(ref, noGrid, levels, "x"); !errors.Is(err, ErrInvalidGrid) {
		t.Errorf("have %v, want ErrInvalidGrid", err)
	}
	if _, err := NewColocator(ref, ref, &LevelTable{}, "x"); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("have %v, want ErrOutOfRange", err)
	}
	// The 4-level test fields do not match the 72-level default table.
	if _, err := NewColocator(ref, ref, DefaultLevelTable(), "x"); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("level count mismatch: have %v, want ErrOutOfRange", err)
	}
}

func TestPanelTitle(t *testing.T) {
	tests := []struct {
		name     string
		lon, lat float64
		want     string
	}{
		{name: "Jungfraujoch", lon: 7.985, lat: 46.548, want: "Jungfraujoch (47°N,8°E)"},
		{name: " Cape Point ", lon: 18.49, lat: -34.35, want: "Cape Point (34°S,18°E)"},
		{name: "Mace Head", lon: -9.9, lat: 53.33, want: "Mace Head (53°N,10°W)"},
		{name: "Equator", lon: -0.2, lat: 0.3, want: "Equator (0°N,0°E)"},
	}
	for _, test := range tests {
		if have := PanelTitle(test.name, test.lon, test.lat); have != test.want {
			t.Errorf("have %q, want %q", have, test.want)
		}
	}
}

func TestSpecies(t *testing.T) {
	for in, want := range map[string]string{
		"SpeciesConcVV_O3": "O3",
		"SpeciesConc_NO2":  "NO2",
		"AREA":             "AREA",
		"DryDepVel_HNO3_x": "HNO3",
	} {
		if have := Species(in); have != want {
			t.Errorf("%s: have %s, want %s", in, have, want)
		}
	}
}
