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

package render

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/gcdiag"
)

func monthly(f func(m int) float64) gcdiag.Series {
	var s gcdiag.Series
	for m := 1; m <= 12; m++ {
		s = append(s, gcdiag.Point{
			Time:  time.Date(2019, time.Month(m), 1, 0, 0, 0, 0, time.UTC),
			Value: f(m),
		})
	}
	return s
}

func testPanels(n int) []*gcdiag.Panel {
	panels := make([]*gcdiag.Panel, n)
	for i := range panels {
		obs := monthly(func(m int) float64 { return 30 + float64(m+i) })
		panels[i] = &gcdiag.Panel{
			Site: &gcdiag.StationObservation{
				Name:     fmt.Sprintf("Site %d", i),
				Location: geom.Point{X: float64(i), Y: 60 - float64(i)},
			},
			Title:  fmt.Sprintf("Site %d (%d°N, %d°E)", i, 60-i, i),
			YLabel: "O3 (ppbv)",
			Obs:    obs,
			Ref:    monthly(func(m int) float64 { return 35 + float64(m) }),
			Dev: monthly(func(m int) float64 {
				if m == 6 {
					return math.NaN()
				}
				return 25 + float64(m)
			}),
		}
	}
	return panels
}

func TestModelsVsObs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots")
	// Ten stations fill one page and spill onto a second.
	fname, err := ModelsVsObs(testPanels(10), "GCC 14.0.0", "GCC 14.1.0", dir, "SpeciesConcVV_O3")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "models_vs_obs.surface.O3.pdf"); fname != want {
		t.Errorf("file name: have %s, want %s", fname, want)
	}
	fi, err := os.Stat(fname)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() == 0 {
		t.Error("empty file")
	}
}

func TestModelsVsObsNoPanels(t *testing.T) {
	_, err := ModelsVsObs(nil, "Ref", "Dev", t.TempDir(), "SpeciesConcVV_O3")
	if !errors.Is(err, gcdiag.ErrNoObservations) {
		t.Errorf("have %v, want NoObservations", err)
	}
}

func TestMonthTicks(t *testing.T) {
	obs := monthly(func(int) float64 { return 1 })[2:5]
	ticks := monthTicks(obs)
	if len(ticks) != 3 {
		t.Fatalf("have %d ticks", len(ticks))
	}
	for i, want := range []struct {
		v float64
		l string
	}{{3, "M"}, {4, "A"}, {5, "M"}} {
		if ticks[i].Value != want.v || ticks[i].Label != want.l {
			t.Errorf("tick %d: have %+v", i, ticks[i])
		}
	}
	y := yTicks(0, 80)
	if len(y) != 5 || y[4].Label != "80" {
		t.Errorf("y ticks: %+v", y)
	}
}

func TestPairs(t *testing.T) {
	obs := monthly(func(m int) float64 { return float64(m) })
	model := testPanels(1)[0].Dev
	o, m := pairs(obs, model)
	if len(o) != 11 || len(m) != 11 {
		t.Fatalf("have %d pairs, want 11", len(o))
	}
	if o[5] != 7 || m[5] != 32 {
		t.Errorf("pair 5: %g, %g", o[5], m[5])
	}
}
