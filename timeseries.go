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
	"time"
)

// Point is a single value in a time series.
type Point struct {
	Time  time.Time
	Value float64
}

// Series is a time series, ordered by time unless noted otherwise.
type Series []Point

// Cadence is a resampling interval.
type Cadence int

const (
	// Hourly bins values by clock hour.
	Hourly Cadence = iota
	// Monthly bins values by calendar month.
	Monthly
)

func (c Cadence) String() string {
	switch c {
	case Hourly:
		return "hourly"
	case Monthly:
		return "monthly"
	default:
		return fmt.Sprintf("Cadence(%d)", int(c))
	}
}

// bin returns the start of the interval containing t.
func (c Cadence) bin(t time.Time) time.Time {
	switch c {
	case Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return t.Truncate(time.Hour)
	}
}

// ToCalendarSeries converts observations recorded as fractional days
// since epoch into a time series. Rows whose quality-control flag is not
// zero are dropped, and the remaining raw values are divided by divisor.
// Timestamps are rounded to the nearest second.
// All three input slices must have the same length.
func ToCalendarSeries(fractionalDays []float64, epoch time.Time, qcFlags, raw []float64, divisor float64) (Series, error) {
	if len(qcFlags) != len(fractionalDays) || len(raw) != len(fractionalDays) {
		return nil, fmt.Errorf("gcdiag: time series columns have different lengths: %d times, %d flags, %d values",
			len(fractionalDays), len(qcFlags), len(raw))
	}
	if divisor == 0 || math.IsNaN(divisor) {
		return nil, fmt.Errorf("gcdiag: invalid unit conversion divisor %g", divisor)
	}
	s := make(Series, 0, len(raw))
	for i, d := range fractionalDays {
		if qcFlags[i] != 0 {
			continue
		}
		offset := time.Duration(math.Round(d * 24 * 3600)) * time.Second
		s = append(s, Point{Time: epoch.Add(offset), Value: raw[i] / divisor})
	}
	s.Sort()
	return s, nil
}

// Sort sorts the series by time. Points with equal times keep their order.
func (s Series) Sort() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Time.Before(s[j].Time) })
}

// Times returns the timestamps of the series.
func (s Series) Times() []time.Time {
	o := make([]time.Time, len(s))
	for i, p := range s {
		o[i] = p.Time
	}
	return o
}

// Values returns the values of the series.
func (s Series) Values() []float64 {
	o := make([]float64, len(s))
	for i, p := range s {
		o[i] = p.Value
	}
	return o
}

// Year returns the points of s that fall in the given calendar year.
func (s Series) Year(year int) Series {
	var o Series
	for _, p := range s {
		if p.Time.Year() == year {
			o = append(o, p)
		}
	}
	return o
}

// Resample returns the mean of s over each interval of the given cadence.
// Each output point is labelled with the start of its interval. NaN values
// are ignored and intervals without values are left out.
func (s Series) Resample(c Cadence) Series {
	type acc struct {
		sum float64
		n   int
	}
	bins := make(map[time.Time]*acc)
	var keys []time.Time
	for _, p := range s {
		if math.IsNaN(p.Value) {
			continue
		}
		k := c.bin(p.Time)
		a, ok := bins[k]
		if !ok {
			a = new(acc)
			bins[k] = a
			keys = append(keys, k)
		}
		a.sum += p.Value
		a.n++
	}
	o := make(Series, len(keys))
	for i, k := range keys {
		o[i] = Point{Time: k, Value: bins[k].sum / float64(bins[k].n)}
	}
	o.Sort()
	return o
}

// MergeMax combines two series. Timestamps present in only one series are
// copied; where both have a value at the same time, the larger is kept.
// The result is sorted by time.
func MergeMax(a, b Series) Series {
	vals := make(map[time.Time]float64, len(a)+len(b))
	var keys []time.Time
	for _, s := range []Series{a, b} {
		for _, p := range s {
			k := p.Time.UTC()
			v, ok := vals[k]
			if !ok {
				keys = append(keys, k)
				vals[k] = p.Value
				continue
			}
			if p.Value > v || math.IsNaN(v) {
				vals[k] = p.Value
			}
		}
	}
	o := make(Series, len(keys))
	for i, k := range keys {
		o[i] = Point{Time: k, Value: vals[k]}
	}
	o.Sort()
	return o
}

// AlignMonthly returns, for each point of ref, the mean of s over the same
// calendar month. Months for which s has no values are NaN.
func (s Series) AlignMonthly(ref Series) Series {
	means := make(map[time.Time]float64)
	for _, p := range s.Resample(Monthly) {
		means[p.Time] = p.Value
	}
	o := make(Series, len(ref))
	for i, p := range ref {
		v, ok := means[Monthly.bin(p.Time)]
		if !ok {
			v = math.NaN()
		}
		o[i] = Point{Time: p.Time, Value: v}
	}
	return o
}
