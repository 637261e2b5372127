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
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testCaseCSV = `case_id,start_time,end_time,duration_hours
1,2006-06-08 00:00:00,2006-06-08 10:00:00,10
2,2006-06-09 00:00:00,2006-06-09 10:00:00,10
3,2006-06-10 00:00:00,2006-06-10 20:00:00,20
4,2006-06-11 00:00:00,2006-06-12 16:00:00,40
`

func writeCaseCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "case_analysis_results.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadCaseDurations(t *testing.T) {
	records, err := ReadCaseDurations(writeCaseCSV(t, testCaseCSV))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	if records[2].DurationHours != 20 {
		t.Errorf("record 2 duration: got %g, want 20", records[2].DurationHours)
	}
	if records[0].StartTime != "2006-06-08 00:00:00" {
		t.Errorf("record 0 start: got %q", records[0].StartTime)
	}
}

func TestReadCaseDurationsMissingColumn(t *testing.T) {
	csv := "case_id,start_time,end_time\n1,a,b\n"
	_, err := ReadCaseDurations(writeCaseCSV(t, csv))
	if err == nil {
		t.Fatal("expected an error for a missing column")
	}
	if !strings.Contains(err.Error(), "duration_hours") {
		t.Errorf("error should name the missing column: %v", err)
	}
}

func TestAnalyzeDurations(t *testing.T) {
	s, err := AnalyzeDurations([]float64{10, 10, 20, 40}, 42)
	if err != nil {
		t.Fatal(err)
	}
	if s.Count != 4 {
		t.Errorf("count: got %d, want 4", s.Count)
	}
	if s.Mean != 20 {
		t.Errorf("mean: got %g, want 20", s.Mean)
	}
	if s.Min != 10 || s.Max != 40 {
		t.Errorf("min/max: got %g/%g, want 10/40", s.Min, s.Max)
	}
	if s.Median < 10 || s.Median > 20 {
		t.Errorf("median: got %g, want a value between the middle samples 10 and 20", s.Median)
	}
	if s.Q1 > s.Median || s.Median > s.Q3 {
		t.Errorf("quartiles out of order: q1=%g median=%g q3=%g", s.Q1, s.Median, s.Q3)
	}
	// Sample standard deviation of {10,10,20,40} is sqrt(200).
	if want := math.Sqrt(200); math.Abs(s.Std-want) > 1e-12 {
		t.Errorf("std: got %g, want %g", s.Std, want)
	}
	if s.TStat >= 0 {
		t.Errorf("t statistic should be negative for a mean below the reference: %g", s.TStat)
	}
	if s.PValue <= 0 || s.PValue >= 1 {
		t.Errorf("p-value out of range: %g", s.PValue)
	}
}

func TestAnalyzeDurationsAtReference(t *testing.T) {
	// Testing against the sample mean itself gives t = 0 and p = 1.
	s, err := AnalyzeDurations([]float64{40, 41, 42, 43, 44}, 42)
	if err != nil {
		t.Fatal(err)
	}
	if s.TStat != 0 {
		t.Errorf("t statistic: got %g, want 0", s.TStat)
	}
	if math.Abs(s.PValue-1) > 1e-12 {
		t.Errorf("p-value: got %g, want 1", s.PValue)
	}
	if s.Skewness != 0 {
		t.Errorf("skewness of a symmetric sample: got %g, want 0", s.Skewness)
	}
}

func TestAnalyzeDurationsNegationSymmetry(t *testing.T) {
	durations := []float64{10, 10, 20, 40}
	negated := []float64{-10, -10, -20, -40}
	s, err := AnalyzeDurations(durations, 42)
	if err != nil {
		t.Fatal(err)
	}
	n, err := AnalyzeDurations(negated, -42)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(n.TStat+s.TStat) > 1e-12 {
		t.Errorf("t under negation: got %g, want %g", n.TStat, -s.TStat)
	}
	if math.Abs(n.PValue-s.PValue) > 1e-12 {
		t.Errorf("p-value under negation: got %g, want %g", n.PValue, s.PValue)
	}
}

func TestAnalyzeDurationsTooFew(t *testing.T) {
	if _, err := AnalyzeDurations([]float64{42}, 42); err == nil {
		t.Error("expected an error for a single case")
	}
}

func TestFrequencyTable(t *testing.T) {
	table := FrequencyTable([]float64{10, 10, 20, 40})
	if len(table) != 3 {
		t.Fatalf("got %d bins, want 3", len(table))
	}
	wantDur := []float64{10, 20, 40}
	wantCount := []int{2, 1, 1}
	wantPct := []float64{50, 25, 25}
	total := 0
	pct := 0.
	for i, bin := range table {
		if bin.Duration != wantDur[i] || bin.Count != wantCount[i] ||
			math.Abs(bin.Percentage-wantPct[i]) > 1e-12 {
			t.Errorf("bin %d: got %+v, want {%g %d %g}",
				i, bin, wantDur[i], wantCount[i], wantPct[i])
		}
		total += bin.Count
		pct += bin.Percentage
	}
	if total != 4 {
		t.Errorf("counts sum to %d, want 4", total)
	}
	if math.Abs(pct-100) > 1e-12 {
		t.Errorf("percentages sum to %g, want 100", pct)
	}
}

func TestDurationRun(t *testing.T) {
	dir := t.TempDir()
	// The figure directory does not exist yet; Run is expected to create it.
	c := DurationConfig{
		InputFile:         writeCaseCSV(t, testCaseCSV),
		OutputFile:        filepath.Join(dir, "figures", "boxplot.png"),
		ReferenceDuration: 42,
	}
	var msgs []string
	if err := c.Run(drainMessages(&msgs)); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(c.OutputFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) < 8 || string(b[1:4]) != "PNG" {
		t.Error("output is not a PNG file")
	}
	var sawTest bool
	for _, m := range msgs {
		if strings.Contains(m, "t-test") {
			sawTest = true
		}
	}
	if !sawTest {
		t.Error("expected a t-test result message")
	}
}
