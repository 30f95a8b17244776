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
	"sort"
	"strings"

	"github.com/ctessum/geom"
)

// StationObservation is the record of a single surface monitoring site.
type StationObservation struct {
	Name string

	// Location holds the longitude (X) and latitude (Y) of the site
	// in degrees.
	Location geom.Point

	// Altitude is the height of the site above sea level in meters.
	Altitude float64

	Series Series
}

// Lon returns the longitude of the station.
func (s *StationObservation) Lon() float64 { return s.Location.X }

// Lat returns the latitude of the station.
func (s *StationObservation) Lat() float64 { return s.Location.Y }

// Merge combines the series of o into s. Where both stations have a value
// at the same time, the larger value is kept.
func (s *StationObservation) Merge(o *StationObservation) error {
	if o.Name != s.Name {
		return fmt.Errorf("gcdiag: can't merge station %s into %s", o.Name, s.Name)
	}
	s.Series = MergeMax(s.Series, o.Series)
	return nil
}

// CleanStationName tidies a site name read from a station file so it can
// be used as a plot title and as a key: runs of spaces are collapsed,
// slashes are replaced with dashes, and the words "Atmospheric
// Observatory" and "Research Station" are removed.
func CleanStationName(name string) string {
	name = strings.TrimSpace(strings.Trim(name, "\r\n"))
	name = strings.Replace(name, "/", "-", -1)
	name = strings.Replace(name, "Atmospheric Observatory", "", -1)
	name = strings.Replace(name, " Research Station", "", -1)
	return strings.Join(strings.Fields(name), " ")
}

// ObservationSet holds the stations read from one or more files, keyed by
// station name.
type ObservationSet struct {
	sites map[string]*StationObservation
	order []string
}

// NewObservationSet returns an empty ObservationSet.
func NewObservationSet() *ObservationSet {
	return &ObservationSet{sites: make(map[string]*StationObservation)}
}

// Add adds s to the set. If a station with the same name is already
// present, the two series are merged by per-timestamp maximum.
func (o *ObservationSet) Add(s *StationObservation) error {
	if s.Name == "" {
		return fmt.Errorf("gcdiag: station has no name")
	}
	if prev, ok := o.sites[s.Name]; ok {
		return prev.Merge(s)
	}
	c := *s
	c.Series = append(Series(nil), s.Series...)
	o.sites[s.Name] = &c
	o.order = append(o.order, s.Name)
	return nil
}

// Len returns the number of stations in the set.
func (o *ObservationSet) Len() int { return len(o.order) }

// Get returns the station with the given name, or nil.
func (o *ObservationSet) Get(name string) *StationObservation { return o.sites[name] }

// Stations returns the stations in the order they were first added.
func (o *ObservationSet) Stations() []*StationObservation {
	out := make([]*StationObservation, len(o.order))
	for i, n := range o.order {
		out[i] = o.sites[n]
	}
	return out
}

// SortedNorthToSouth returns the stations ordered by decreasing latitude.
// Stations at the same latitude are ordered by name.
func (o *ObservationSet) SortedNorthToSouth() []*StationObservation {
	out := o.Stations()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Lat() != out[j].Lat() {
			return out[i].Lat() > out[j].Lat()
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Bounds returns the smallest rectangle containing all of the stations.
func (o *ObservationSet) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	for _, s := range o.sites {
		b.Extend(s.Location.Bounds())
	}
	return b
}

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
