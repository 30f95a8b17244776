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

// Package metrics holds the Prometheus metrics reported by a gcdiag run.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gcdiag"

// Metrics holds the counters and histograms for a diagnostics run.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Sites counts co-located observation sites.
	Sites *prometheus.CounterVec // labels: status={plotted,skipped}

	NameMisses prometheus.Counter

	// FilesRead counts input files by kind.
	FilesRead *prometheus.CounterVec // labels: kind={model,station}

	ColocateDuration prometheus.Histogram

	registry *prometheus.Registry
}

// New creates a set of metrics registered on a private registry.
func New() *Metrics {
	m := &Metrics{
		Sites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sites_total",
			Help:      "Observation sites processed, by outcome.",
		}, []string{"status"}),
		NameMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "name_misses_total",
			Help:      "Legacy variable names with no netCDF equivalent.",
		}),
		FilesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_read_total",
			Help:      "Input files read, by kind.",
		}, []string{"kind"}),
		ColocateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "colocate_duration_seconds",
			Help:      "Time taken to co-locate one observation site.",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.Sites, m.NameMisses, m.FilesRead, m.ColocateDuration)
	return m
}

// Gatherer returns the registry the metrics are registered on.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// Site records the outcome of co-locating one site and the time it took.
func (m *Metrics) Site(status string, seconds float64) {
	if m == nil {
		return
	}
	m.Sites.WithLabelValues(status).Inc()
	m.ColocateDuration.Observe(seconds)
}

// NameMiss records a variable name that could not be mapped.
func (m *Metrics) NameMiss() {
	if m == nil {
		return
	}
	m.NameMisses.Inc()
}

// FileRead records an input file of the given kind.
func (m *Metrics) FileRead(kind string) {
	if m == nil {
		return
	}
	m.FilesRead.WithLabelValues(kind).Inc()
}

// WriteTextfile writes the metrics in the Prometheus text format to
// filename, for collection by the node exporter.
func (m *Metrics) WriteTextfile(filename string) error {
	if err := prometheus.WriteToTextfile(filename, m.registry); err != nil {
		return fmt.Errorf("gcdiag: writing metrics: %w", err)
	}
	return nil
}
