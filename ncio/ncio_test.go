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
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ctessum/sparse"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spatialmodel/gcdiag"
	"github.com/spatialmodel/gcdiag/internal/metrics"
)

var (
	jan = time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)
	feb = time.Date(2019, time.February, 1, 0, 0, 0, 0, time.UTC)
)

func regularGrid(t *testing.T) *gcdiag.GridDescriptor {
	g, err := gcdiag.NewRegularGrid([]float64{0, 10, 20}, []float64{-5, 5})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// o3Field returns a time × lev × lat × lon field where each element
// holds its flat index times 1e-9.
func o3Field(name, units string, times []time.Time, g *gcdiag.GridDescriptor) *gcdiag.ModelField {
	d := sparse.ZerosDense(len(times), 2, len(g.Lat), len(g.Lon))
	for i := range d.Elements {
		d.Elements[i] = float64(i) * 1.0e-9
	}
	return &gcdiag.ModelField{
		Name:  name,
		Units: units,
		Dims:  []string{"time", "lev", "lat", "lon"},
		Data:  d,
		Times: times,
		Grid:  g,
	}
}

func writeFixture(t *testing.T, name string, fields ...*gcdiag.ModelField) string {
	ds := make(gcdiag.Dataset)
	for _, f := range fields {
		ds[f.Name] = f
	}
	p := filepath.Join(t.TempDir(), name)
	if err := WriteClassic(p, ds); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestReadField(t *testing.T) {
	g := regularGrid(t)
	p := writeFixture(t, "GEOSChem.SpeciesConc.20190101_0000z.nc",
		o3Field("SpeciesConcVV_O3", gcdiag.MolMolUnits, []time.Time{jan, feb}, g))

	f, err := ReadField([]string{p}, "SpeciesConcVV_O3")
	if err != nil {
		t.Fatal(err)
	}
	if f.Units != gcdiag.PPBVUnits {
		t.Errorf("units: %s", f.Units)
	}
	if !reflect.DeepEqual(f.Data.Shape, []int{2, 2, 2, 3}) {
		t.Errorf("shape: %v", f.Data.Shape)
	}
	for i, v := range f.Data.Elements {
		if math.Abs(v-float64(i)) > 1.0e-6 {
			t.Errorf("element %d: have %g, want %d", i, v, i)
		}
	}
	if len(f.Times) != 2 || !f.Times[0].Equal(jan) || !f.Times[1].Equal(feb) {
		t.Errorf("times: %v", f.Times)
	}
	if f.Grid == nil || f.Grid.Kind != gcdiag.Regular || !reflect.DeepEqual(f.Grid.Lon, []float64{0, 10, 20}) {
		t.Errorf("grid: %+v", f.Grid)
	}
	s, err := f.LevelSeries(gcdiag.CellIndex{Y: 1, X: 2}, 1)
	if err != nil {
		t.Fatal(err)
	}
	// t=1, z=1, y=1, x=2 → 12 + 6 + 3 + 2
	if math.Abs(s[1].Value-23) > 1.0e-6 {
		t.Errorf("series: %v", s)
	}
}

func TestReadFieldAlternateName(t *testing.T) {
	p := writeFixture(t, "old.nc", o3Field("SpeciesConc_O3", gcdiag.MolMolUnits, []time.Time{jan}, regularGrid(t)))
	f, err := ReadField([]string{p}, "SpeciesConcVV_O3")
	if err != nil {
		t.Fatal(err)
	}
	if f.Name != "SpeciesConcVV_O3" {
		t.Errorf("name: %s", f.Name)
	}
	if _, err := ReadField([]string{p}, "SpeciesConcVV_CO"); err == nil {
		t.Error("expected an error for a missing variable")
	}
}

func TestReadFieldMissingUnits(t *testing.T) {
	p := writeFixture(t, "nounits.nc", o3Field("SpeciesConcVV_O3", "", []time.Time{jan}, regularGrid(t)))
	_, err := ReadField([]string{p}, "SpeciesConcVV_O3")
	if !errors.Is(err, gcdiag.ErrMissingUnits) {
		t.Errorf("have error %v, want MissingUnits", err)
	}
}

func TestReadFieldConcat(t *testing.T) {
	g := regularGrid(t)
	p1 := writeFixture(t, "a.nc", o3Field("SpeciesConcVV_O3", gcdiag.MolMolUnits, []time.Time{jan}, g))
	p2 := writeFixture(t, "b.nc", o3Field("SpeciesConcVV_O3", gcdiag.MolMolUnits, []time.Time{feb}, g))
	f, err := ReadField([]string{p1, p2}, "SpeciesConcVV_O3")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(f.Data.Shape, []int{2, 2, 2, 3}) {
		t.Errorf("shape: %v", f.Data.Shape)
	}
	if !f.Times[1].Equal(feb) {
		t.Errorf("times: %v", f.Times)
	}
	if math.Abs(f.Data.Get(1, 0, 0, 1)-1) > 1.0e-6 {
		t.Errorf("second file element: %g", f.Data.Get(1, 0, 0, 1))
	}
	if _, err := ReadField(nil, "SpeciesConcVV_O3"); err == nil {
		t.Error("expected an error for no files")
	}
}

func TestReadDataset(t *testing.T) {
	g := regularGrid(t)
	area := sparse.ZerosDense(2, 3)
	for i := range area.Elements {
		area.Elements[i] = 1e10
	}
	p := writeFixture(t, "ds.nc",
		o3Field("SpeciesConcVV_O3", gcdiag.MolMolUnits, []time.Time{jan}, g),
		&gcdiag.ModelField{Name: "AREA", Units: "m2", Dims: []string{"lat", "lon"}, Data: area},
	)
	ds, err := ReadDataset(p)
	if err != nil {
		t.Fatal(err)
	}
	if have, want := ds.Names(), []string{"AREA", "SpeciesConcVV_O3"}; !reflect.DeepEqual(have, want) {
		t.Errorf("names: have %v, want %v", have, want)
	}
	o3 := ds["SpeciesConcVV_O3"]
	if o3.Units != gcdiag.MolMolUnits {
		t.Errorf("dataset fields should keep their units; have %s", o3.Units)
	}
	if o3.Grid == nil || len(o3.Times) != 1 {
		t.Errorf("O3 grid %v, times %v", o3.Grid, o3.Times)
	}
	if ds["AREA"].Grid != nil {
		t.Error("AREA has no time dimension and should have no grid")
	}
}

func TestExtractGridCubedSphere(t *testing.T) {
	const n = 2
	lons := make([]float64, gcdiag.CubedSphereFaces*n*n)
	lats := make([]float64, len(lons))
	for i := range lons {
		lons[i] = float64(i) * 15
		lats[i] = float64(i%8)*10 - 40
	}
	g, err := gcdiag.NewCubedSphereGrid(n, lons, lats)
	if err != nil {
		t.Fatal(err)
	}
	d := sparse.ZerosDense(1, gcdiag.CubedSphereFaces, n, n)
	p := writeFixture(t, "GCHP.SpeciesConc.20190101_0000z.nc", &gcdiag.ModelField{
		Name: "SpeciesConcVV_O3", Units: gcdiag.MolMolUnits,
		Dims: []string{"time", "nf", "Ydim", "Xdim"},
		Data: d, Times: []time.Time{jan}, Grid: g,
	})
	have, err := ExtractGrid(p)
	if err != nil {
		t.Fatal(err)
	}
	if have == nil || have.Kind != gcdiag.CubedSphere || have.N != n {
		t.Fatalf("grid: %+v", have)
	}
	if !reflect.DeepEqual(have.FaceLon[5], lons[20:24]) {
		t.Errorf("face 5 longitudes: %v", have.FaceLon[5])
	}

	p2 := writeFixture(t, "nogrid.nc", &gcdiag.ModelField{Name: "x", Units: "1", Data: sparse.ZerosDense(3)})
	if g, err := ExtractGrid(p2); err != nil || g != nil {
		t.Errorf("file without coordinates: grid %v, err %v", g, err)
	}
}

func TestParseTimeUnits(t *testing.T) {
	for _, test := range []struct {
		units string
		step  time.Duration
		epoch time.Time
		err   bool
	}{
		{units: "minutes since 2019-01-01 00:00:00", step: time.Minute, epoch: jan},
		{units: "hours since 2019-02-01 00:00:00 UTC", step: time.Hour, epoch: feb},
		{units: "days since 2019-1-1", step: 24 * time.Hour, epoch: jan},
		{units: "seconds since 2019-01-01T00:00:00Z", step: time.Second, epoch: jan},
		{units: "fortnights since 2019-01-01", err: true},
		{units: "minutes", err: true},
		{units: "minutes since yesterday", err: true},
	} {
		t.Run(test.units, func(t *testing.T) {
			step, epoch, err := parseTimeUnits(test.units)
			if (err != nil) != test.err {
				t.Fatalf("error: %v", err)
			}
			if test.err {
				return
			}
			if step != test.step || !epoch.Equal(test.epoch) {
				t.Errorf("have %v since %v, want %v since %v", step, epoch, test.step, test.epoch)
			}
		})
	}
}

func TestNotNetCDF(t *testing.T) {
	p := filepath.Join(t.TempDir(), "x.nc")
	if err := os.WriteFile(p, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadDataset(p); err == nil {
		t.Error("expected an error")
	}
}

func TestFilePaths(t *testing.T) {
	d := time.Date(2019, time.July, 1, 0, 0, 0, 0, time.UTC)
	for _, test := range []struct {
		have, want string
	}{
		{GCCFilePath("run", "SpeciesConc", d), filepath.Join("run", "GEOSChem.SpeciesConc.20190701_0000z.nc4")},
		{GCCFilePath("run", "Emissions", d), filepath.Join("run", "HEMCO_diagnostics.201907010000.nc")},
		{GCHPFilePath("run", "SpeciesConc", d), filepath.Join("run", "GCHP.SpeciesConc.20190701_0000z.nc4")},
	} {
		if test.have != test.want {
			t.Errorf("have %s, want %s", test.have, test.want)
		}
	}
}

func TestReaderCache(t *testing.T) {
	p := writeFixture(t, "cache.nc", o3Field("SpeciesConcVV_O3", gcdiag.MolMolUnits, []time.Time{jan}, regularGrid(t)))
	logger, hook := logtest.NewNullLogger()
	r := &Reader{Log: logger, Metrics: metrics.New()}
	ctx := context.Background()
	f1, err := r.Field(ctx, []string{p}, "SpeciesConcVV_O3")
	if err != nil {
		t.Fatal(err)
	}
	f2, err := r.Field(ctx, []string{p}, "SpeciesConcVV_O3")
	if err != nil {
		t.Fatal(err)
	}
	if f1 != f2 {
		t.Error("second read should come from the cache")
	}
	if len(hook.Entries) != 1 {
		t.Errorf("have %d log entries, want 1", len(hook.Entries))
	}
	ds, err := r.Dataset(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ds["SpeciesConcVV_O3"]; !ok {
		t.Error("dataset missing O3")
	}
	if _, err := r.Field(ctx, []string{p}, "Missing"); err == nil {
		t.Error("expected an error")
	}
}
