/*
Copyright © 2025 the wrfana authors.
This file is part of wrfana.

wrfana is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

wrfana is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with wrfana.  If not, see <http://www.gnu.org/licenses/>.
*/

package wrfana

import (
	"encoding/csv"
	"fmt"
	"image/color"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/ctessum/geom/carto"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// DurationConfig configures the case-duration analysis.
type DurationConfig struct {
	// InputFile is a CSV file with one row per case and columns
	// start_time, end_time, and duration_hours.
	InputFile string

	// OutputFile is the path of the boxplot PNG to create.
	OutputFile string

	// ReferenceDuration [hours] is the population mean the one-sample
	// t-test compares against.
	ReferenceDuration float64
}

// DefaultDurationConfig returns the configuration for the standard
// analysis layout.
func DefaultDurationConfig() DurationConfig {
	return DurationConfig{
		InputFile:         "case_analysis_results.csv",
		OutputFile:        "ana_duration_hours_boxplot.png",
		ReferenceDuration: 42,
	}
}

// A CaseRecord is one row of the case-analysis CSV file.
type CaseRecord struct {
	StartTime, EndTime string
	DurationHours      float64
}

// ReadCaseDurations reads the case-analysis CSV file at path. The
// columns are located by name, so their order in the file does not
// matter.
func ReadCaseDurations(path string) ([]CaseRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wrfana: opening case file: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("wrfana: reading case file %s: %v", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("wrfana: case file %s has no data rows", path)
	}
	cols := make(map[string]int)
	for i, name := range rows[0] {
		cols[name] = i
	}
	for _, name := range []string{"start_time", "end_time", "duration_hours"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("wrfana: case file %s is missing column %s (have %v)",
				path, name, rows[0])
		}
	}
	records := make([]CaseRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		d, err := strconv.ParseFloat(row[cols["duration_hours"]], 64)
		if err != nil {
			return nil, fmt.Errorf("wrfana: case file %s row %d: parsing duration_hours: %v",
				path, i+2, err)
		}
		records = append(records, CaseRecord{
			StartTime:     row[cols["start_time"]],
			EndTime:       row[cols["end_time"]],
			DurationHours: d,
		})
	}
	return records, nil
}

// DurationStats holds summary statistics of a set of case durations and
// the result of a one-sample t-test against a reference duration.
type DurationStats struct {
	Count                int
	Mean, Std, Min, Max  float64
	Q1, Median, Q3       float64
	Skewness, ExKurtosis float64

	// TStat and PValue are the one-sample t statistic and its two-sided
	// p-value.
	TStat, PValue float64
}

// AnalyzeDurations computes summary statistics of durations [hours] and
// tests whether their mean differs from reference.
func AnalyzeDurations(durations []float64, reference float64) (DurationStats, error) {
	if len(durations) < 2 {
		return DurationStats{}, fmt.Errorf("wrfana: need at least 2 cases, have %d", len(durations))
	}
	var d stats.Stats
	d.UpdateArray(durations)

	sorted := make([]float64, len(durations))
	copy(sorted, durations)
	sort.Float64s(sorted)

	s := DurationStats{
		Count:      d.Count(),
		Mean:       d.Mean(),
		Std:        d.SampleStandardDeviation(),
		Min:        d.Min(),
		Max:        d.Max(),
		Q1:         stat.Quantile(0.25, stat.Empirical, sorted, nil),
		Median:     stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Q3:         stat.Quantile(0.75, stat.Empirical, sorted, nil),
		Skewness:   stat.Skew(durations, nil),
		ExKurtosis: stat.ExKurtosis(durations, nil),
	}
	s.TStat = (s.Mean - reference) / (s.Std / math.Sqrt(float64(s.Count)))
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(s.Count - 1)}
	s.PValue = 2 * t.CDF(-math.Abs(s.TStat))
	return s, nil
}

// A FrequencyBin is one row of a duration frequency table.
type FrequencyBin struct {
	Duration   float64
	Count      int
	Percentage float64
}

// FrequencyTable counts how often each distinct duration occurs,
// in ascending duration order.
func FrequencyTable(durations []float64) []FrequencyBin {
	counts := make(map[float64]int)
	for _, d := range durations {
		counts[d]++
	}
	table := make([]FrequencyBin, 0, len(counts))
	for d, n := range counts {
		table = append(table, FrequencyBin{
			Duration:   d,
			Count:      n,
			Percentage: 100 * float64(n) / float64(len(durations)),
		})
	}
	sort.Slice(table, func(i, j int) bool { return table[i].Duration < table[j].Duration })
	return table
}

// Run performs the case-duration analysis: it reads c.InputFile,
// reports statistics on msgChan, and writes an annotated boxplot to
// c.OutputFile.
func (c DurationConfig) Run(msgChan chan string) error {
	msg := func(format string, a ...interface{}) {
		if msgChan != nil {
			msgChan <- fmt.Sprintf(format, a...)
		}
	}

	records, err := ReadCaseDurations(c.InputFile)
	if err != nil {
		return err
	}
	durations := make([]float64, len(records))
	first, last := records[0].StartTime, records[0].EndTime
	for i, rec := range records {
		durations[i] = rec.DurationHours
		if rec.StartTime < first {
			first = rec.StartTime
		}
		if rec.EndTime > last {
			last = rec.EndTime
		}
	}
	msg("Loaded %d cases from %s (%s to %s).", len(records), c.InputFile, first, last)

	s, err := AnalyzeDurations(durations, c.ReferenceDuration)
	if err != nil {
		return err
	}
	msg("Duration [hours]: n=%d mean=%.2f std=%.2f min=%.0f q1=%.1f median=%.1f q3=%.1f max=%.0f.",
		s.Count, s.Mean, s.Std, s.Min, s.Q1, s.Median, s.Q3, s.Max)
	msg("Skewness %.3f, excess kurtosis %.3f.", s.Skewness, s.ExKurtosis)
	for _, bin := range FrequencyTable(durations) {
		msg("%2.0f hours: %2d cases (%5.1f%%).", bin.Duration, bin.Count, bin.Percentage)
	}
	msg("One-sample t-test against %.0f hours: t=%.4f, p=%.4f.",
		c.ReferenceDuration, s.TStat, s.PValue)

	if err := c.drawBoxplot(durations, s); err != nil {
		return err
	}
	msg("Boxplot saved to %s.", c.OutputFile)
	return nil
}

// drawBoxplot renders the duration boxplot with jittered per-case
// points and a statistics annotation.
func (c DurationConfig) drawBoxplot(durations []float64, s DurationStats) error {
	const (
		figWidth  = 5 * vg.Inch
		figHeight = 6 * vg.Inch
	)
	labelFont, err := vg.MakeFont(plot.DefaultFont, vg.Points(12))
	if err != nil {
		return fmt.Errorf("wrfana: loading font: %v", err)
	}

	p, err := plot.New()
	if err != nil {
		return fmt.Errorf("wrfana: creating plot: %v", err)
	}
	ts := draw.TextStyle{
		Color: color.Black,
		Font:  labelFont,
	}
	p.Title.Text = "Distribution of Case Duration"
	p.Y.Label.Text = "Duration (hours)"
	p.Y.Label.TextStyle = ts
	p.Y.Tick.Label = ts
	p.X.Label.Text = "Cases"
	p.X.Label.TextStyle = ts
	p.X.Min, p.X.Max = 0.5, 1.5
	p.X.Tick.Marker = plot.ConstantTicks(nil)

	grid := plotter.NewGrid()
	grid.Vertical.Width = 0
	p.Add(grid)

	box, err := plotter.NewBoxPlot(0.5*vg.Inch, 1, plotter.Values(durations))
	if err != nil {
		return fmt.Errorf("wrfana: creating boxplot: %v", err)
	}
	box.BoxStyle.Color = color.NRGBA{70, 130, 180, 255}
	box.BoxStyle.Width = vg.Points(1.5)
	box.MedianStyle.Color = color.NRGBA{255, 0, 0, 255}
	box.MedianStyle.Width = vg.Points(2)
	p.Add(box)

	// Jittered per-case points on top of the box, colored by duration.
	// The seed is fixed so the figure is reproducible.
	r := rand.New(rand.NewSource(42))
	xy := make(plotter.XYs, len(durations))
	for i, d := range durations {
		xy[i].X = 1 + r.NormFloat64()*0.015
		xy[i].Y = d
	}
	cmap := carto.NewColorMap(carto.Linear)
	cmap.AddArray(durations)
	cmap.Set()
	scatter, err := plotter.NewScatter(xy)
	if err != nil {
		return fmt.Errorf("wrfana: creating scatter: %v", err)
	}
	scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		return draw.GlyphStyle{
			Color:  cmap.GetColor(durations[i]),
			Radius: vg.Points(3),
			Shape:  draw.CircleGlyph{},
		}
	}
	p.Add(scatter)

	img := vgimg.NewWith(vgimg.UseWH(figWidth, figHeight), vgimg.UseDPI(100))
	dc := draw.New(img)
	p.Draw(dc)

	annotFont, err := vg.MakeFont(plot.DefaultFont, vg.Points(9))
	if err != nil {
		return fmt.Errorf("wrfana: loading font: %v", err)
	}
	annot := draw.TextStyle{
		Color:  color.Black,
		Font:   annotFont,
		XAlign: draw.XRight,
		YAlign: draw.YTop,
	}
	lines := []string{
		fmt.Sprintf("Median: %.1fh", s.Median),
		fmt.Sprintf("Mean: %.1fh", s.Mean),
		fmt.Sprintf("Q1: %.1fh", s.Q1),
		fmt.Sprintf("Q3: %.1fh", s.Q3),
		fmt.Sprintf("Min: %.0fh", s.Min),
		fmt.Sprintf("Max: %.0fh", s.Max),
		fmt.Sprintf("Std: %.1fh", s.Std),
		fmt.Sprintf("Skewness: %.2f", s.Skewness),
		fmt.Sprintf("n = %d cases", s.Count),
	}
	top := dc.Max.Y - 0.5*vg.Inch
	right := dc.Max.X - 0.3*vg.Inch
	rowspace := vg.Points(12)
	for j, line := range lines {
		dc.FillText(annot, vg.Point{X: right, Y: top - vg.Length(j)*rowspace}, line)
	}

	if err := os.MkdirAll(filepath.Dir(c.OutputFile), os.ModePerm); err != nil {
		return fmt.Errorf("wrfana: creating figure directory: %v", err)
	}
	f, err := os.Create(c.OutputFile)
	if err != nil {
		return fmt.Errorf("wrfana: creating figure file: %v", err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("wrfana: writing figure: %v", err)
	}
	return f.Close()
}
