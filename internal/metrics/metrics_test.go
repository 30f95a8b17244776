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

package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New()
	m.Site("plotted", 0.01)
	m.Site("plotted", 0.02)
	m.Site("skipped", 0.001)
	m.NameMiss()
	m.FileRead("station")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Sites.WithLabelValues("plotted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sites.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NameMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesRead.WithLabelValues("station")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Site("plotted", 1)
		m.NameMiss()
		m.FileRead("model")
	})
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.NameMiss()
	f := filepath.Join(t.TempDir(), "gcdiag.prom")
	require.NoError(t, m.WriteTextfile(f))
	b, err := os.ReadFile(f)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), "gcdiag_name_misses_total 1"), string(b))
}
