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

// Package report writes model evaluation statistics as text, CSV or
// Excel files.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spatialmodel/gcdiag"
	"github.com/tealeg/xlsx"
)

// Format is an output format for a Report.
type Format string

// These are the supported formats.
const (
	Text Format = "text"
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ParseFormat returns the Format named by s.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Text, CSV, XLSX:
		return f, nil
	case "txt", "":
		return Text, nil
	default:
		return "", fmt.Errorf("report: invalid format %q; valid formats are text, csv, and xlsx", s)
	}
}

func (f Format) ext() string {
	if f == Text {
		return "txt"
	}
	return string(f)
}

// Report holds the results of comparing two model runs with observations
// of one variable.
type Report struct {
	Variable           string
	RefLabel, DevLabel string

	Panels  []*gcdiag.Panel
	Skipped []gcdiag.SkippedSite

	// Generated is the time the report was created.
	Generated time.Time
}

// New creates a new report stamped with the current time.
func New(variable, refLabel, devLabel string, panels []*gcdiag.Panel, skipped []gcdiag.SkippedSite) *Report {
	return &Report{
		Variable:  variable,
		RefLabel:  refLabel,
		DevLabel:  devLabel,
		Panels:    panels,
		Skipped:   skipped,
		Generated: clock.Now().UTC(),
	}
}

// Filename returns the name of the report file for the given format,
// e.g. models_vs_obs.surface.O3.stats.csv.
func (r *Report) Filename(f Format) string {
	return "models_vs_obs.surface." + gcdiag.Species(r.Variable) + ".stats." + f.ext()
}

// Save writes the report in directory dst and returns the path of the
// file.
func (r *Report) Save(dst string, f Format) (string, error) {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return "", fmt.Errorf("report: %w", err)
	}
	fname := filepath.Join(dst, r.Filename(f))
	w, err := os.Create(fname)
	if err != nil {
		return "", fmt.Errorf("report: %w", err)
	}
	if err := r.Write(w, f); err != nil {
		w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("report: %w", err)
	}
	return fname, nil
}

// Write writes the report to w in format f.
func (r *Report) Write(w io.Writer, f Format) error {
	var err error
	switch f {
	case Text:
		err = r.WriteText(w)
	case CSV:
		err = r.WriteCSV(w)
	case XLSX:
		err = r.WriteXLSX(w)
	default:
		err = fmt.Errorf("invalid format %q", f)
	}
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

var statsHeader = []string{"Station", "Lon", "Lat", "Altitude (m)", "Model", "Level", "N",
	"Obs mean", "Model mean", "MB", "ME", "MFB", "MFE", "Slope", "Intercept", "R2"}

// rows returns one row per station and model.
func (r *Report) rows() [][]string {
	var o [][]string
	for _, p := range r.Panels {
		for _, m := range []struct {
			label string
			s     gcdiag.Stats
		}{{r.RefLabel, p.RefStats}, {r.DevLabel, p.DevStats}} {
			o = append(o, []string{
				p.Site.Name,
				ftoa(p.Site.Lon()),
				ftoa(p.Site.Lat()),
				ftoa(p.Site.Altitude),
				m.label,
				strconv.Itoa(p.Level),
				strconv.Itoa(m.s.N),
				ftoa(m.s.ObsMean),
				ftoa(m.s.ModelMean),
				ftoa(m.s.MB),
				ftoa(m.s.ME),
				ftoa(m.s.MFB),
				ftoa(m.s.MFE),
				ftoa(m.s.Slope),
				ftoa(m.s.Intercept),
				ftoa(m.s.R2),
			})
		}
	}
	return o
}

func ftoa(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// WriteText writes the report as aligned columns, followed by the list
// of skipped stations.
func (r *Report) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "%s: %s vs. %s\n", r.Variable, r.RefLabel, r.DevLabel)
	fmt.Fprintf(w, "Generated %s\n\n", r.Generated.Format(time.RFC3339))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(statsHeader, "\t"))
	for _, row := range r.rows() {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "\nSkipped %d stations:\n", len(r.Skipped))
		for _, s := range r.Skipped {
			fmt.Fprintf(w, "  %s: %v\n", s.Site.Name, s.Err)
		}
	}
	return nil
}

// WriteCSV writes the statistics as comma-separated values with a
// header row. Skipped stations are not included.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(statsHeader); err != nil {
		return err
	}
	if err := cw.WriteAll(r.rows()); err != nil {
		return err
	}
	return cw.Error()
}

// WriteXLSX writes the statistics to an Excel workbook with a "Stats"
// sheet and, if any stations were skipped, a "Skipped" sheet.
func (r *Report) WriteXLSX(w io.Writer) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Stats")
	if err != nil {
		return err
	}
	row := sheet.AddRow()
	for _, h := range statsHeader {
		row.AddCell().SetString(h)
	}
	for _, rec := range r.rows() {
		row = sheet.AddRow()
		for i, v := range rec {
			cell := row.AddCell()
			if i == 0 || i == 4 {
				cell.SetString(v)
				continue
			}
			fv, err := strconv.ParseFloat(v, 64)
			if err != nil || math.IsNaN(fv) {
				cell.SetString(v)
				continue
			}
			cell.SetFloat(fv)
		}
	}
	if len(r.Skipped) > 0 {
		skipped, err := f.AddSheet("Skipped")
		if err != nil {
			return err
		}
		row := skipped.AddRow()
		row.AddCell().SetString("Station")
		row.AddCell().SetString("Reason")
		for _, s := range r.Skipped {
			row := skipped.AddRow()
			row.AddCell().SetString(s.Site.Name)
			row.AddCell().SetString(s.Err.Error())
		}
	}
	return f.Write(w)
}
