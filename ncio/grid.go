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
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spatialmodel/gcdiag"
)

// ExtractGrid returns the horizontal grid of the file at path. It returns
// nil if the file has no recognizable grid coordinates.
func ExtractGrid(path string) (*gcdiag.GridDescriptor, error) {
	src, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	g, err := extractGrid(src)
	if err != nil {
		return nil, fmt.Errorf("ncio: %s: %w", path, err)
	}
	return g, nil
}

// extractGrid builds a regular grid from one-dimensional lon and lat
// variables, or a cubed-sphere grid from the lons and lats variables of a
// GCHP file, which have dimensions (nf, Ydim, Xdim).
func extractGrid(src source) (*gcdiag.GridDescriptor, error) {
	lon, lat, err := coordPair(src, "lon", "lat")
	if err != nil {
		return nil, err
	}
	if lon != nil && len(lon.Shape) == 1 && len(lat.Shape) == 1 {
		return gcdiag.NewRegularGrid(lon.Data, lat.Data)
	}
	lons, lats, err := coordPair(src, "lons", "lats")
	if err != nil {
		return nil, err
	}
	if lons == nil {
		return nil, nil
	}
	if len(lons.Shape) != 3 || lons.Shape[0] != gcdiag.CubedSphereFaces || lons.Shape[1] != lons.Shape[2] {
		return nil, fmt.Errorf("%w: cubed-sphere coordinates have shape %v", gcdiag.ErrInvalidGrid, lons.Shape)
	}
	return gcdiag.NewCubedSphereGrid(lons.Shape[1], lons.Data, lats.Data)
}

// coordPair reads variables x and y, returning nil values if either one
// is missing.
func coordPair(src source, x, y string) (xv, yv *Variable, err error) {
	xv, err = src.Variable(x)
	if errors.Is(err, errNoVariable) {
		return nil, nil, nil
	} else if err != nil {
		return nil, nil, err
	}
	yv, err = src.Variable(y)
	if errors.Is(err, errNoVariable) {
		return nil, nil, nil
	} else if err != nil {
		return nil, nil, err
	}
	if xv == nil || yv == nil {
		return nil, nil, nil
	}
	return xv, yv, nil
}

// readTimes reads the time coordinate of src, which must have CF-style
// units such as "minutes since 2019-01-01 00:00:00". It returns nil if
// there is no time variable.
func readTimes(src source) ([]time.Time, error) {
	v, err := src.Variable("time")
	if errors.Is(err, errNoVariable) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	step, epoch, err := parseTimeUnits(v.Units())
	if err != nil {
		return nil, err
	}
	o := make([]time.Time, len(v.Data))
	for i, t := range v.Data {
		if math.IsNaN(t) {
			return nil, fmt.Errorf("ncio: time value %d is missing", i)
		}
		o[i] = epoch.Add(time.Duration(math.Round(t * float64(step))))
	}
	return o, nil
}

var timeSteps = map[string]time.Duration{
	"seconds": time.Second,
	"second":  time.Second,
	"s":       time.Second,
	"minutes": time.Minute,
	"minute":  time.Minute,
	"min":     time.Minute,
	"hours":   time.Hour,
	"hour":    time.Hour,
	"h":       time.Hour,
	"days":    24 * time.Hour,
	"day":     24 * time.Hour,
	"d":       24 * time.Hour,
}

var epochLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:5",
	"2006-1-2 15:04:05",
	"2006-1-2 15:4:5",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-1-2",
}

// parseTimeUnits parses CF time units of the form "<unit> since <date>".
func parseTimeUnits(units string) (time.Duration, time.Time, error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return 0, time.Time{}, fmt.Errorf("ncio: invalid time units %q", units)
	}
	step, ok := timeSteps[strings.ToLower(strings.TrimSpace(parts[0]))]
	if !ok {
		return 0, time.Time{}, fmt.Errorf("ncio: invalid time step in units %q", units)
	}
	ref := strings.TrimSpace(parts[1])
	ref = strings.TrimSuffix(ref, " UTC")
	ref = strings.TrimSuffix(ref, " GMT")
	for _, layout := range epochLayouts {
		if t, err := time.ParseInLocation(layout, ref, time.UTC); err == nil {
			return step, t, nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("ncio: invalid reference time in units %q", units)
}

// timeVariable returns a time coordinate variable in minutes since the
// first of times.
func timeVariable(times []time.Time) *Variable {
	epoch := times[0].UTC()
	data := make([]float64, len(times))
	for i, t := range times {
		data[i] = t.Sub(epoch).Minutes()
	}
	return &Variable{
		Name:  "time",
		Dims:  []string{"time"},
		Shape: []int{len(times)},
		Data:  data,
		Attrs: map[string]interface{}{
			"units": "minutes since " + epoch.Format("2006-01-02 15:04:05"),
		},
	}
}
