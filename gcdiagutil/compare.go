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

package gcdiagutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gcdiag"
	"github.com/spatialmodel/gcdiag/internal/metrics"
	"github.com/spatialmodel/gcdiag/ncio"
	"github.com/spatialmodel/gcdiag/report"
)

// CompareConfig holds the settings of a comparison between the output
// files of two model runs.
type CompareConfig struct {
	RefFile, DevFile   string
	RefLabel, DevLabel string

	// Prefix restricts the statistics to variables whose names start
	// with it.
	Prefix string

	// NameTable, if not nil, converts legacy names in both datasets.
	NameTable *gcdiag.NameTable

	// Counter, if set, names a variable that every other variable is
	// divided by.
	Counter string

	Lumped  gcdiag.LumpedSpecies
	Derived []gcdiag.DerivedVariable

	SigDiffThreshold float64

	OutputDir string
}

// Compare writes to w the lists of variables the Ref and Dev files share
// and the global statistics of each common variable. The variables whose
// global means differ significantly are written to a file in
// c.OutputDir.
func Compare(ctx context.Context, w io.Writer, c *CompareConfig, r *ncio.Reader, log logrus.FieldLogger) error {
	ref, err := prepareDataset(ctx, r, c.RefFile, c, log)
	if err != nil {
		return err
	}
	dev, err := prepareDataset(ctx, r, c.DevFile, c, log)
	if err != nil {
		return err
	}

	if err := report.WriteVarnameComparison(w, gcdiag.CompareVarnames(ref, dev), c.RefLabel, c.DevLabel); err != nil {
		return err
	}
	names := gcdiag.CommonVarnames(ref, dev, c.Prefix)

	// Calculate the statistics of each variable in parallel.
	cache := requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
		return gcdiag.CompareStats(ref, dev, request.(string))
	}, runtime.GOMAXPROCS(-1), requestcache.Deduplicate())
	requests := make([]*requestcache.Request, len(names))
	for i, n := range names {
		requests[i] = cache.NewRequest(ctx, n, n)
	}
	for i, req := range requests {
		result, err := req.Result()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "\n%s\n", names[i]); err != nil {
			return err
		}
		if err := report.WriteCompareStats(w, result.(*gcdiag.StatsComparison), c.RefLabel, c.DevLabel); err != nil {
			return err
		}
	}

	sig, err := gcdiag.SignificantDifferences(ref, dev, names, c.SigDiffThreshold)
	if err != nil {
		return err
	}
	fname, err := writeSigDiffs(c.OutputDir, c.Prefix, sig)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"variables":   len(names),
		"significant": len(sig),
		"file":        fname,
	}).Info("compared model runs")
	return nil
}

// prepareDataset reads the dataset at path and applies the renaming,
// counter division, lumped species and derived variables in c.
func prepareDataset(ctx context.Context, r *ncio.Reader, path string, c *CompareConfig, log logrus.FieldLogger) (gcdiag.Dataset, error) {
	shared, err := r.Dataset(ctx, path)
	if err != nil {
		return nil, err
	}
	// The reader's dataset is shared; work on a copy of the map.
	ds := make(gcdiag.Dataset, len(shared))
	for n, f := range shared {
		ds[n] = f
	}
	if c.NameTable != nil {
		if ds, err = c.NameTable.RenameDataset(ds); err != nil {
			return nil, err
		}
	}
	if c.Counter != "" {
		counter, ok := ds[c.Counter]
		if !ok {
			return nil, fmt.Errorf("gcdiag: counter variable %s is not in %s", c.Counter, path)
		}
		if err := gcdiag.DivideByCounter(ds, counter, nil); err != nil {
			return nil, err
		}
	}
	if len(c.Lumped) > 0 {
		if err := gcdiag.AddLumpedSpecies(ds, c.Lumped, speciesPrefix(ds), false, log); err != nil {
			return nil, err
		}
	}
	if err := gcdiag.DeriveVariables(ds, c.Derived); err != nil {
		return nil, err
	}
	return ds, nil
}

// speciesPrefix returns the prefix of the species concentration
// variables in ds.
func speciesPrefix(ds gcdiag.Dataset) string {
	for _, n := range ds.Names() {
		if strings.HasPrefix(n, "SpeciesConcVV_") {
			return "SpeciesConcVV_"
		}
	}
	return "SpeciesConc_"
}

func writeSigDiffs(dir, prefix string, names []string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("gcdiag: %v", err)
	}
	collection := strings.TrimSuffix(prefix, "_")
	if collection == "" {
		collection = "All"
	}
	fname := filepath.Join(dir, collection+"_sig_diffs.txt")
	f, err := os.Create(fname)
	if err != nil {
		return "", fmt.Errorf("gcdiag: %v", err)
	}
	if err := report.WriteSigDiffs(f, collection, names); err != nil {
		f.Close()
		return "", err
	}
	return fname, f.Close()
}

// Rename writes the netCDF name of each legacy name in names to w, one
// per line, and records names that could not be mapped in m.
func Rename(w io.Writer, t *gcdiag.NameTable, names []string, m *metrics.Metrics) error {
	for _, n := range names {
		nn, outcome := t.Canonicalize(n)
		var err error
		switch outcome {
		case gcdiag.Renamed:
			_, err = fmt.Fprintf(w, "%s -> %s\n", n, nn)
		case gcdiag.Dropped:
			_, err = fmt.Fprintf(w, "%s (skipped)\n", n)
		default:
			m.NameMiss()
			_, err = fmt.Fprintf(w, "%s (no match)\n", n)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
