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
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gcdiag/internal/metrics"
)

// SiteStatus is the terminal state of co-locating one observation site.
type SiteStatus int

const (
	// Plotted means the site was co-located and a Panel was produced.
	Plotted SiteStatus = iota
	// Skipped means the site could not be co-located.
	Skipped
)

func (s SiteStatus) String() string {
	switch s {
	case Plotted:
		return "plotted"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("SiteStatus(%d)", int(s))
	}
}

// Panel holds everything needed to draw the comparison for one site.
type Panel struct {
	Site   *StationObservation
	Title  string
	YLabel string

	// Obs holds the monthly mean observations.
	Obs Series

	// Ref and Dev hold the model values in the grid cell and level
	// nearest to the site.
	Ref, Dev Series

	RefCell, DevCell CellIndex
	Level            int

	// RefStats and DevStats compare the monthly mean model values
	// against the monthly mean observations.
	RefStats, DevStats Stats
}

// SkippedSite records a site that could not be co-located.
type SkippedSite struct {
	Site *StationObservation
	Err  error
}

// Colocator pairs observation sites with the nearest values of two
// model fields.
type Colocator struct {
	Ref, Dev *ModelField

	// Levels holds the altitudes of the model levels shared by Ref and
	// Dev.
	Levels *LevelTable

	// Variable is the name of the model variable, e.g. SpeciesConcVV_O3.
	Variable string

	// Year, if not zero, restricts the model series to one calendar year.
	Year int

	Log     logrus.FieldLogger
	Metrics *metrics.Metrics
}

// NewColocator returns a Colocator for the given fields.
func NewColocator(ref, dev *ModelField, levels *LevelTable, variable string) (*Colocator, error) {
	if ref == nil || dev == nil {
		return nil, fmt.Errorf("gcdiag: both Ref and Dev fields are required")
	}
	if ref.Grid == nil || dev.Grid == nil {
		return nil, fmt.Errorf("%w: variable %s must be defined on a horizontal grid", ErrInvalidGrid, variable)
	}
	if levels.Len() == 0 {
		return nil, fmt.Errorf("%w: empty level table", ErrOutOfRange)
	}
	for _, f := range []*ModelField{ref, dev} {
		if f.hasLevels() && f.NumLevels() != levels.Len() {
			return nil, fmt.Errorf("%w: variable %s has %d levels but the level table has %d",
				ErrOutOfRange, f.Name, f.NumLevels(), levels.Len())
		}
	}
	return &Colocator{
		Ref:      ref,
		Dev:      dev,
		Levels:   levels,
		Variable: variable,
		Log:      logrus.StandardLogger(),
	}, nil
}

// Colocate finds the model values nearest to site and packages them with
// the site's monthly mean observations.
func (c *Colocator) Colocate(site *StationObservation) (*Panel, error) {
	lon := roundTo(site.Lon(), 2)
	lat := roundTo(site.Lat(), 2)
	alt := roundTo(site.Altitude, 1)

	level, err := c.Levels.NearestLevel(alt)
	if err != nil {
		return nil, err
	}
	ref, refCell, err := nearestSeries(c.Ref, lon, lat, level)
	if err != nil {
		return nil, fmt.Errorf("gcdiag: Ref at %s: %w", site.Name, err)
	}
	dev, devCell, err := nearestSeries(c.Dev, lon, lat, level)
	if err != nil {
		return nil, fmt.Errorf("gcdiag: Dev at %s: %w", site.Name, err)
	}

	obs := site.Series.Resample(Monthly)
	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: site %s", ErrNoObservations, site.Name)
	}
	if c.Year != 0 {
		ref = ref.Year(c.Year)
		dev = dev.Year(c.Year)
	}
	ref = ref.Resample(Monthly)
	dev = dev.Resample(Monthly)

	return &Panel{
		Site:     site,
		Title:    PanelTitle(site.Name, site.Lon(), site.Lat()),
		YLabel:   YLabel(c.Variable),
		Obs:      obs,
		Ref:      ref,
		Dev:      dev,
		RefCell:  refCell,
		DevCell:  devCell,
		Level:    level,
		RefStats: StatsFromSeries(obs, ref.AlignMonthly(obs)),
		DevStats: StatsFromSeries(obs, dev.AlignMonthly(obs)),
	}, nil
}

// nearestSeries returns the series of f in the cell nearest to lon, lat.
// Fields without a level dimension are read at the surface.
func nearestSeries(f *ModelField, lon, lat float64, level int) (Series, CellIndex, error) {
	cell, err := NearestCell(f.Grid, lon, lat)
	if err != nil {
		return nil, cell, err
	}
	if !f.hasLevels() {
		level = 0
	}
	s, err := f.LevelSeries(cell, level)
	return s, cell, err
}

// ColocateAll co-locates every site in obs, from north to south. Sites
// that cannot be co-located are skipped and reported; they do not stop
// the batch.
func (c *Colocator) ColocateAll(obs *ObservationSet) (plotted []*Panel, skipped []SkippedSite) {
	for _, site := range obs.SortedNorthToSouth() {
		start := time.Now()
		p, err := c.Colocate(site)
		status := Plotted
		if err != nil {
			status = Skipped
			skipped = append(skipped, SkippedSite{Site: site, Err: err})
			l := c.log().WithFields(logrus.Fields{
				"site":  site.Name,
				"lon":   site.Lon(),
				"lat":   site.Lat(),
				"error": err,
			})
			if IsSkippable(err) {
				l.Warn("skipping observation site")
			} else {
				l.Error("skipping observation site")
			}
		} else {
			plotted = append(plotted, p)
			c.log().WithFields(logrus.Fields{
				"site":     site.Name,
				"ref_cell": p.RefCell.String(),
				"dev_cell": p.DevCell.String(),
				"level":    p.Level,
			}).Debug("co-located observation site")
		}
		c.Metrics.Site(status.String(), time.Since(start).Seconds())
	}
	return plotted, skipped
}

// IsSkippable reports whether err means that a single site could not be
// co-located, as opposed to a problem with the whole batch.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrInvalidGrid) || errors.Is(err, ErrOutOfRange) || errors.Is(err, ErrNoObservations)
}

func (c *Colocator) log() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

// PanelTitle returns the plot title for a site, e.g.
// "Jungfraujoch (47°N,8°E)". Coordinates are rounded to whole degrees.
func PanelTitle(name string, lon, lat float64) string {
	ilon := int(math.RoundToEven(lon))
	ilat := int(math.RoundToEven(lat))
	ns, ew := "S", "W"
	if ilat >= 0 {
		ns = "N"
	}
	if ilon >= 0 {
		ew = "E"
	}
	return fmt.Sprintf("%s (%d°%s,%d°%s)", strings.TrimSpace(name), abs(ilat), ns, abs(ilon), ew)
}

// YLabel returns the y-axis label for a variable, e.g. "O3 (ppbv)" for
// SpeciesConcVV_O3.
func YLabel(variable string) string {
	return Species(variable) + " (" + PPBVUnits + ")"
}

// Species returns the species part of a diagnostic name, i.e. the second
// underscore-delimited field, or the whole name if it has no underscore.
func Species(variable string) string {
	parts := strings.Split(variable, "_")
	if len(parts) < 2 {
		return variable
	}
	return parts[1]
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
