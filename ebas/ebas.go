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

// Package ebas reads surface ozone observations from EBAS
// (https://ebas-data.nilu.no) data files in NASA Ames format.
package ebas

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ctessum/unit"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gcdiag"
	"github.com/spatialmodel/gcdiag/internal/metrics"
)

// MaxHeaderLines is the number of lines at the top of a file that are
// searched for station metadata.
const MaxHeaderLines = 155

// startDateLine is the header line holding the reference date
// (year, month, day) of the time columns.
const startDateLine = 6

var (
	// o3PerPPBV is the mass concentration of one ppbv of ozone at the
	// reference conditions of the EBAS files.
	o3PerPPBV = unit.New(1.99532748e-9, unit.KilogramPerMeter3)

	microgramPerMeter3 = unit.New(1.0e-9, unit.KilogramPerMeter3)
)

// O3Divisor returns the number of μg m-3 of ozone in one ppbv, which
// the values in EBAS files are divided by.
func O3Divisor() float64 {
	d := unit.Div(o3PerPPBV, microgramPerMeter3)
	if err := d.Check(unit.Dimless); err != nil {
		panic(err)
	}
	return d.Value()
}

// Reader reads EBAS station files.
type Reader struct {
	// Year is the year of data to keep. Zero keeps all years.
	Year int

	Log     logrus.FieldLogger
	Metrics *metrics.Metrics
}

// ReadFile reads the station file at path, keeping data from the given
// year.
func ReadFile(path string, year int) (*gcdiag.StationObservation, error) {
	r := &Reader{Year: year}
	return r.ReadFile(path)
}

// ReadDir reads every *nas file in dir, keeping data from the given year.
func ReadDir(dir string, year int) (*gcdiag.ObservationSet, error) {
	r := &Reader{Year: year}
	return r.ReadDir(dir)
}

func (r *Reader) log() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

// ReadDir reads every file in dir whose name ends in "nas", in sorted
// order. Stations with the same name in several files are merged by
// keeping the larger value at each time. It returns an error wrapping
// gcdiag.ErrNoObservations if there are no such files.
func (r *Reader) ReadDir(dir string) (*gcdiag.ObservationSet, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*nas"))
	if err != nil {
		return nil, fmt.Errorf("ebas: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("ebas: %w: no *nas files in %s", gcdiag.ErrNoObservations, dir)
	}
	sort.Strings(files)
	obs := gcdiag.NewObservationSet()
	for _, f := range files {
		s, err := r.ReadFile(f)
		if err != nil {
			return nil, err
		}
		if err := obs.Add(s); err != nil {
			return nil, fmt.Errorf("ebas: %s: %w", f, err)
		}
	}
	r.log().WithFields(logrus.Fields{
		"dir":      dir,
		"files":    len(files),
		"stations": obs.Len(),
	}).Info("read observations")
	return obs, nil
}

// ReadFile reads the station file at path.
func (r *Reader) ReadFile(path string) (*gcdiag.StationObservation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ebas: %w", err)
	}
	defer f.Close()
	s, err := r.Read(f)
	if err != nil {
		return nil, fmt.Errorf("ebas: %s: %w", path, err)
	}
	r.Metrics.FileRead("station")
	r.log().WithFields(logrus.Fields{
		"file":    path,
		"station": s.Name,
		"records": len(s.Series),
	}).Debug("read station file")
	return s, nil
}

// Read reads a station from a NASA Ames file. The first token of the
// file is the number of header lines; the data follow the header.
// Data rows hold the start and end time as days since the reference date,
// the ozone concentration in μg m-3 and, in the last column, a quality
// flag. Only rows with a zero flag are kept. The result is converted to
// ppbv and averaged hourly.
func (r *Reader) Read(rd io.Reader) (*gcdiag.StationObservation, error) {
	var lines []string
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	first := strings.Fields(lines[0])
	if len(first) == 0 {
		return nil, fmt.Errorf("missing header line count")
	}
	nHdr, err := strconv.Atoi(first[0])
	if err != nil {
		return nil, fmt.Errorf("invalid header line count: %w", err)
	}
	if nHdr <= startDateLine || nHdr > len(lines) {
		return nil, fmt.Errorf("header has %d lines but file has %d", nHdr, len(lines))
	}

	s, err := parseHeader(lines[:min(MaxHeaderLines, nHdr)])
	if err != nil {
		return nil, err
	}
	epoch, err := parseStartDate(lines[startDateLine])
	if err != nil {
		return nil, err
	}

	var days, flags, values []float64
	for i, l := range lines[nHdr:] {
		fields := strings.Fields(l)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 4 {
			return nil, fmt.Errorf("line %d: have %d columns, need at least 4", nHdr+i+1, len(fields))
		}
		row := make([]float64, len(fields))
		for j, f := range fields {
			if row[j], err = strconv.ParseFloat(f, 64); err != nil {
				return nil, fmt.Errorf("line %d: %w", nHdr+i+1, err)
			}
		}
		days = append(days, row[1])
		values = append(values, row[2])
		flags = append(flags, row[len(row)-1])
	}
	series, err := gcdiag.ToCalendarSeries(days, epoch, flags, values, O3Divisor())
	if err != nil {
		return nil, err
	}
	if r.Year != 0 {
		series = series.Year(r.Year)
	}
	s.Series = series.Resample(gcdiag.Hourly)
	return s, nil
}

// parseHeader finds the station name, location and altitude in the
// header lines.
func parseHeader(header []string) (*gcdiag.StationObservation, error) {
	s := new(gcdiag.StationObservation)
	var haveName, haveLon, haveLat, haveAlt bool
	for _, l := range header {
		var err error
		switch {
		case strings.Contains(l, "Station name"):
			parts := strings.Split(l, ":")
			s.Name = gcdiag.CleanStationName(strings.Join(parts[1:], "_"))
			haveName = s.Name != ""
		case strings.Contains(l, "Station longitude:"):
			s.Location.X, err = lastField(l, 1)
			haveLon = true
		case strings.Contains(l, "Station latitude:"):
			s.Location.Y, err = lastField(l, 1)
			haveLat = true
		case strings.Contains(l, "Station altitude:"):
			s.Altitude, err = lastField(l, 2)
			haveAlt = true
		}
		if err != nil {
			return nil, err
		}
	}
	for i, ok := range []bool{haveName, haveLon, haveLat, haveAlt} {
		if !ok {
			return nil, fmt.Errorf("no station %s in header", []string{"name", "longitude", "latitude", "altitude"}[i])
		}
	}
	return s, nil
}

// lastField parses the nth space-separated field from the end of l,
// e.g. "Station altitude: 3578.0 m" has the number second from last.
func lastField(l string, n int) (float64, error) {
	f := strings.Fields(l)
	if len(f) < n {
		return 0, fmt.Errorf("invalid header line %q", l)
	}
	v, err := strconv.ParseFloat(f[len(f)-n], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid header line %q: %w", l, err)
	}
	return v, nil
}

func parseStartDate(l string) (time.Time, error) {
	f := strings.Fields(l)
	if len(f) < 3 {
		return time.Time{}, fmt.Errorf("invalid start date line %q", l)
	}
	var ymd [3]int
	for i := range ymd {
		v, err := strconv.Atoi(f[i])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid start date line %q: %w", l, err)
		}
		ymd[i] = v
	}
	return time.Date(ymd[0], time.Month(ymd[1]), ymd[2], 0, 0, 0, 0, time.UTC), nil
}
