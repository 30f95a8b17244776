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
	"math"

	"github.com/GaryBoone/GoStats/stats"
	"gonum.org/v1/gonum/stat"
)

// Stats holds model performance statistics against observations.
type Stats struct {
	// N is the number of paired values the statistics are based on.
	N int

	ObsMean, ModelMean float64

	// MB is the mean bias, ME the mean error, MFB the mean
	// fractional bias and MFE the mean fractional error.
	MB, ME, MFB, MFE float64

	// Slope, Intercept and R2 describe the least-squares fit of the
	// model values against the observations.
	Slope, Intercept, R2 float64
}

// ModelObsStats calculates performance statistics for paired observed
// and modeled values. Pairs where either value is NaN are ignored.
// Statistics that cannot be calculated are NaN.
func ModelObsStats(obs, model []float64) Stats {
	var o, m []float64
	for i, v := range obs {
		if i >= len(model) {
			break
		}
		if math.IsNaN(v) || math.IsNaN(model[i]) {
			continue
		}
		o = append(o, v)
		m = append(m, model[i])
	}
	s := Stats{
		N:         len(o),
		ObsMean:   math.NaN(),
		ModelMean: math.NaN(),
		MB:        math.NaN(),
		ME:        math.NaN(),
		MFB:       math.NaN(),
		MFE:       math.NaN(),
		Slope:     math.NaN(),
		Intercept: math.NaN(),
		R2:        math.NaN(),
	}
	if s.N == 0 {
		return s
	}
	s.ObsMean = stat.Mean(o, nil)
	s.ModelMean = stat.Mean(m, nil)
	s.MB = mb(o, m)
	s.ME = me(o, m)
	s.MFB = mfb(o, m)
	s.MFE = mfe(o, m)
	if s.N > 1 && stat.Variance(o, nil) > 0 {
		s.Slope, s.Intercept, s.R2, _, _, _ = stats.LinearRegression(o, m)
	}
	return s
}

// StatsFromSeries pairs obs and model by position and calculates their
// performance statistics.
func StatsFromSeries(obs, model Series) Stats {
	return ModelObsStats(obs.Values(), model.Values())
}

func mfb(a, b []float64) float64 {
	r := 0.
	for i, v1 := range a {
		v2 := b[i]
		r += 2 * (v2 - v1) / (v1 + v2)
	}
	return r / float64(len(a))
}

func mfe(a, b []float64) float64 {
	r := 0.
	for i, v1 := range a {
		v2 := b[i]
		r += 2 * math.Abs(v2-v1) / math.Abs(v1+v2)
	}
	return r / float64(len(a))
}

func mb(a, b []float64) float64 {
	r := 0.
	for i, v1 := range a {
		r += b[i] - v1
	}
	return r / float64(len(a))
}

func me(a, b []float64) float64 {
	r := 0.
	for i, v1 := range a {
		r += math.Abs(b[i] - v1)
	}
	return r / float64(len(a))
}

// Range returns the smallest and largest non-NaN values among the given
// series, or NaN if there are none.
func Range(series ...Series) (min, max float64) {
	var vals []float64
	for _, s := range series {
		for _, p := range s {
			if !math.IsNaN(p.Value) {
				vals = append(vals, p.Value)
			}
		}
	}
	if len(vals) == 0 {
		return math.NaN(), math.NaN()
	}
	return stats.StatsMin(vals), stats.StatsMax(vals)
}
