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

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gcdiag"
	"github.com/spatialmodel/gcdiag/ebas"
	"github.com/spatialmodel/gcdiag/internal/metrics"
	"github.com/spatialmodel/gcdiag/ncio"
	"github.com/spatialmodel/gcdiag/render"
	"github.com/spatialmodel/gcdiag/report"
)

// ObsConfig holds the settings of a models-versus-observations comparison.
type ObsConfig struct {
	ObsDir string

	// Year of observations to keep; 0 keeps all years.
	Year int

	RefFiles, DevFiles []string
	RefLabel, DevLabel string

	Variable   string
	LevelsFile string

	OutputDir string
	Format    report.Format
}

// Obs compares the Ref and Dev model runs with the observations in
// c.ObsDir. It writes a PDF of the monthly mean series at every station
// that could be co-located and a statistics report, and returns the paths
// of both.
func Obs(ctx context.Context, c *ObsConfig, r *ncio.Reader, log logrus.FieldLogger, m *metrics.Metrics) (pdf, rpt string, err error) {
	if len(c.RefFiles) == 0 || len(c.DevFiles) == 0 {
		return "", "", fmt.Errorf("gcdiag: both RefFiles and DevFiles must be specified")
	}
	er := &ebas.Reader{Year: c.Year, Log: log, Metrics: m}
	obs, err := er.ReadDir(c.ObsDir)
	if err != nil {
		return "", "", err
	}
	levels, err := loadLevels(c.LevelsFile)
	if err != nil {
		return "", "", err
	}

	ref, err := r.Field(ctx, c.RefFiles, c.Variable)
	if err != nil {
		return "", "", err
	}
	dev, err := r.Field(ctx, c.DevFiles, c.Variable)
	if err != nil {
		return "", "", err
	}

	col, err := gcdiag.NewColocator(ref, dev, levels, c.Variable)
	if err != nil {
		return "", "", err
	}
	col.Log = log
	col.Metrics = m
	col.Year = c.Year
	plotted, skipped := col.ColocateAll(obs)
	log.WithFields(logrus.Fields{
		"plotted": len(plotted),
		"skipped": len(skipped),
	}).Info("co-located observation sites")
	if len(plotted) == 0 {
		return "", "", fmt.Errorf("gcdiag: %w: none of the %d sites could be co-located", gcdiag.ErrNoObservations, obs.Len())
	}

	page := &render.Page{
		RefLabel: c.RefLabel,
		DevLabel: c.DevLabel,
		ObsLabel: fmt.Sprintf("Surface %s (EBAS)", gcdiag.Species(c.Variable)),
		YMin:     0,
		YMax:     80,
		Summary:  true,
		Log:      log,
	}
	if c.Year != 0 {
		page.ObsLabel = fmt.Sprintf("Surface %s (EBAS, %d)", gcdiag.Species(c.Variable), c.Year)
	}
	if pdf, err = page.Write(plotted, c.OutputDir, c.Variable); err != nil {
		return "", "", err
	}
	rep := report.New(c.Variable, c.RefLabel, c.DevLabel, plotted, skipped)
	if rpt, err = rep.Save(c.OutputDir, c.Format); err != nil {
		return "", "", err
	}
	return pdf, rpt, nil
}
