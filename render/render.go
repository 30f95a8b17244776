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

// Package render draws model-versus-observation comparison plots.
package render

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gcdiag"
	xfont "golang.org/x/image/font"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"
)

const (
	// RowsPerPage and ColsPerPage give the layout of the station panels
	// on each page.
	RowsPerPage = 3
	ColsPerPage = 3

	pageWidth  = 11 * vg.Inch
	pageHeight = 8 * vg.Inch
	legendH    = 0.5 * vg.Inch
)

var (
	obsColor = color.NRGBA{0, 0, 0, 255}
	refColor = color.NRGBA{255, 0, 0, 255}
	devColor = color.NRGBA{0, 128, 0, 255}

	monthLabels = []string{"J", "F", "M", "A", "M", "J", "J", "A", "S", "O", "N", "D"}
)

// Page describes the appearance of a models-versus-observations PDF.
type Page struct {
	RefLabel, DevLabel string

	// ObsLabel is the legend entry for the observations.
	ObsLabel string

	// YMin and YMax are the limits of the concentration axis.
	YMin, YMax float64

	// Summary adds a final page with a scatter plot of every
	// model value against the corresponding observation.
	Summary bool

	Log logrus.FieldLogger
}

// Filename returns the name of the models-versus-observations PDF for
// variable, e.g. models_vs_obs.surface.O3.pdf.
func Filename(variable string) string {
	return "models_vs_obs.surface." + gcdiag.Species(variable) + ".pdf"
}

// ModelsVsObs plots the panels, in order, on pages of 3×3 stations and
// writes them to a PDF named after variable in directory dst. It returns
// the path of the file.
func ModelsVsObs(panels []*gcdiag.Panel, refLabel, devLabel, dst, variable string) (string, error) {
	p := &Page{
		RefLabel: refLabel,
		DevLabel: devLabel,
		ObsLabel: "Surface " + gcdiag.Species(variable) + " (EBAS)",
		YMin:     0,
		YMax:     80,
		Summary:  true,
	}
	return p.Write(panels, dst, variable)
}

// Write plots the panels and writes them to a PDF named after variable in
// directory dst, which is created if necessary.
func (pg *Page) Write(panels []*gcdiag.Panel, dst, variable string) (string, error) {
	if len(panels) == 0 {
		return "", fmt.Errorf("render: %w: no stations to plot", gcdiag.ErrNoObservations)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	fname := filepath.Join(dst, Filename(variable))

	c := vgpdf.New(pageWidth, pageHeight)
	perPage := RowsPerPage * ColsPerPage
	for start := 0; start < len(panels); start += perPage {
		if start > 0 {
			c.NextPage()
		}
		end := start + perPage
		if end > len(panels) {
			end = len(panels)
		}
		if err := pg.drawPage(draw.New(c), panels[start:end]); err != nil {
			return "", err
		}
	}
	if pg.Summary {
		c.NextPage()
		if err := pg.drawSummary(draw.New(c), panels); err != nil {
			return "", err
		}
	}

	f, err := os.Create(fname)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return "", fmt.Errorf("render: writing %s: %w", fname, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	pg.log().WithFields(logrus.Fields{
		"file":     fname,
		"stations": len(panels),
	}).Info("wrote models vs. observations plot")
	return fname, nil
}

func (pg *Page) log() logrus.FieldLogger {
	if pg.Log == nil {
		return logrus.StandardLogger()
	}
	return pg.Log
}

// drawPage draws up to nine station panels and a legend.
func (pg *Page) drawPage(dc draw.Canvas, panels []*gcdiag.Panel) error {
	mainc := draw.Crop(dc, 0, 0, 0, -legendH)
	legendc := draw.Crop(dc, 0, 0, pageHeight-legendH, 0)
	tiles := draw.Tiles{
		Cols:      ColsPerPage,
		Rows:      RowsPerPage,
		PadLeft:   vg.Points(10),
		PadRight:  vg.Points(10),
		PadBottom: vg.Points(10),
		PadX:      5 * vg.Millimeter,
		PadY:      6 * vg.Millimeter,
	}
	var thumbs [3]plot.Thumbnailer
	for i, panel := range panels {
		p, th, err := pg.panelPlot(panel, i%ColsPerPage == 0)
		if err != nil {
			return fmt.Errorf("render: station %s: %w", panel.Site.Name, err)
		}
		for j := range th {
			if th[j] != nil {
				thumbs[j] = th[j]
			}
		}
		p.Draw(tiles.At(mainc, i%ColsPerPage, i/ColsPerPage))
	}

	l := plot.NewLegend()
	l.Top = true
	l.TextStyle.Font.Size = vg.Points(9)
	l.ThumbnailWidth = 0.3 * vg.Inch
	for i, name := range []string{pg.ObsLabel, pg.RefLabel, pg.DevLabel} {
		if thumbs[i] != nil {
			l.Add(name, thumbs[i])
		}
	}
	l.XOffs = -(pageWidth / 2) + 1.5*vg.Inch
	l.Draw(legendc)
	return nil
}

// panelPlot creates the plot for one station. It returns the line-point
// thumbnails of the observations, Ref and Dev series for the legend.
func (pg *Page) panelPlot(panel *gcdiag.Panel, leftmost bool) (*plot.Plot, [3]plot.Thumbnailer, error) {
	var thumbs [3]plot.Thumbnailer
	p := plot.New()
	p.Title.Text = panel.Title
	p.Title.TextStyle.Font.Size = vg.Points(7)
	p.Title.TextStyle.Font.Weight = xfont.WeightBold
	p.X.Tick.Label.Font.Size = vg.Points(6)
	p.Y.Tick.Label.Font.Size = vg.Points(6)
	if leftmost {
		p.Y.Label.Text = panel.YLabel
		p.Y.Label.TextStyle.Font.Size = vg.Points(8)
	}

	series := []struct {
		s     gcdiag.Series
		color color.Color
		shape draw.GlyphDrawer
		r     vg.Length
	}{
		{panel.Obs, obsColor, draw.PyramidGlyph{}, 2},
		{panel.Ref, refColor, draw.CircleGlyph{}, 1.5},
		{panel.Dev, devColor, draw.BoxGlyph{}, 1.5},
	}
	for i, s := range series {
		xys := monthXYs(s.s)
		if len(xys) == 0 {
			continue
		}
		l, sc, err := plotter.NewLinePoints(xys)
		if err != nil {
			return nil, thumbs, err
		}
		l.Color = s.color
		l.Width = vg.Points(1)
		sc.Color = s.color
		sc.Shape = s.shape
		sc.Radius = s.r
		p.Add(l, sc)
		thumbs[i] = lineGlyph{l, sc}
	}

	p.X.Min, p.X.Max = 0.5, 12.5
	p.Y.Min, p.Y.Max = pg.YMin, pg.YMax
	p.X.Tick.Marker = monthTicks(panel.Obs)
	p.Y.Tick.Marker = yTicks(pg.YMin, pg.YMax)
	return p, thumbs, nil
}

// lineGlyph draws a legend thumbnail with both a line and a glyph.
type lineGlyph struct {
	l *plotter.Line
	s *plotter.Scatter
}

func (lg lineGlyph) Thumbnail(c *draw.Canvas) {
	lg.l.Thumbnail(c)
	lg.s.Thumbnail(c)
}

// monthXYs converts a monthly series to points with the month number as
// x. NaN values are left out.
func monthXYs(s gcdiag.Series) plotter.XYs {
	var xys plotter.XYs
	for _, pt := range s {
		if math.IsNaN(pt.Value) || math.IsInf(pt.Value, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(pt.Time.Month()), Y: pt.Value})
	}
	return xys
}

// monthTicks labels the months that have observations with their
// initials.
func monthTicks(obs gcdiag.Series) plot.ConstantTicks {
	var ticks plot.ConstantTicks
	for _, pt := range obs {
		m := int(pt.Time.Month())
		ticks = append(ticks, plot.Tick{Value: float64(m), Label: monthLabels[m-1]})
	}
	return ticks
}

func yTicks(min, max float64) plot.ConstantTicks {
	var ticks plot.ConstantTicks
	step := (max - min) / 4
	if step <= 0 {
		return ticks
	}
	for v := min; v <= max+step/2; v += step {
		ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf("%g", v)})
	}
	return ticks
}

// drawSummary draws a scatter plot of every monthly model value against
// the observation, with a 1:1 line and a regression line per model.
func (pg *Page) drawSummary(dc draw.Canvas, panels []*gcdiag.Panel) error {
	var obsRef, ref, obsDev, dev []float64
	for _, panel := range panels {
		o, r := pairs(panel.Obs, panel.Ref)
		obsRef, ref = append(obsRef, o...), append(ref, r...)
		o, d := pairs(panel.Obs, panel.Dev)
		obsDev, dev = append(obsDev, o...), append(dev, d...)
	}
	refStats := gcdiag.ModelObsStats(obsRef, ref)
	devStats := gcdiag.ModelObsStats(obsDev, dev)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("All stations: monthly mean %s", panels[0].YLabel)
	p.X.Label.Text = "Observed " + panels[0].YLabel
	p.Y.Label.Text = "Model " + panels[0].YLabel
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.ThumbnailWidth = .15 * vg.Inch
	p.Legend.Padding = 0.75 * vg.Millimeter

	min, max := pg.YMin, pg.YMax
	for _, m := range []struct {
		name  string
		obs   []float64
		model []float64
		stats gcdiag.Stats
		color color.Color
		shape draw.GlyphDrawer
	}{
		{pg.RefLabel, obsRef, ref, refStats, refColor, draw.CircleGlyph{}},
		{pg.DevLabel, obsDev, dev, devStats, devColor, draw.BoxGlyph{}},
	} {
		if len(m.obs) == 0 {
			continue
		}
		s, err := plotter.NewScatter(xyPairs(m.obs, m.model))
		if err != nil {
			return fmt.Errorf("render: summary: %w", err)
		}
		s.Color = m.color
		s.Shape = m.shape
		s.Radius = 2
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("%s (MB=%.1f, R²=%.2f)", m.name, m.stats.MB, m.stats.R2), s)
		if math.IsNaN(m.stats.Slope) {
			continue
		}
		fit, err := plotter.NewLine(plotter.XYs{
			{X: min, Y: min*m.stats.Slope + m.stats.Intercept},
			{X: max, Y: max*m.stats.Slope + m.stats.Intercept},
		})
		if err != nil {
			return fmt.Errorf("render: summary: %w", err)
		}
		fit.Color = m.color
		p.Add(fit)
	}
	one, err := plotter.NewLine(plotter.XYs{{X: min, Y: min}, {X: max, Y: max}})
	if err != nil {
		return fmt.Errorf("render: summary: %w", err)
	}
	one.Color = obsColor
	one.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
	p.Add(one)
	p.Legend.Add("1:1", one)
	p.X.Min, p.X.Max = min, max
	p.Y.Min, p.Y.Max = min, max

	side := pageHeight - 1*vg.Inch
	left := (pageWidth - side) / 2
	p.Draw(draw.Crop(dc, left, -left, 0.5*vg.Inch, -0.5*vg.Inch))
	return nil
}

// pairs returns the values of obs and model at the times where both are
// defined.
func pairs(obs, model gcdiag.Series) (o, m []float64) {
	byTime := make(map[int64]float64, len(model))
	for _, pt := range model {
		byTime[pt.Time.Unix()] = pt.Value
	}
	for _, pt := range obs {
		v, ok := byTime[pt.Time.Unix()]
		if !ok || math.IsNaN(v) || math.IsNaN(pt.Value) {
			continue
		}
		o = append(o, pt.Value)
		m = append(m, v)
	}
	return o, m
}

func xyPairs(x, y []float64) plotter.XYs {
	xys := make(plotter.XYs, len(x))
	for i := range x {
		xys[i] = plotter.XY{X: x[i], Y: y[i]}
	}
	return xys
}
