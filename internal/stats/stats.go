// Package stats contains sleep statistics and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/verte-zerg/sleeptrack/internal/format"
	"github.com/verte-zerg/sleeptrack/internal/model"
)

const (
	sparkChars          = " .:-=+*#%@"
	terminalWidthBackup = 80
)

// Summary aggregates a set of sessions.
type Summary struct {
	Sessions   int
	Completed  int
	Rated      int
	TotalSleep float64 // hours
	AvgSleep   float64 // hours
	Shortest   float64 // hours
	Longest    float64 // hours
	AvgQuality float64
}

// Summarize computes totals over completed sessions. Quality is averaged
// over rated sessions only.
func Summarize(records []model.SessionRecord) Summary {
	sum := Summary{Sessions: len(records)}
	var qualityTotal int
	for _, rec := range records {
		if rec.Rated() {
			sum.Rated++
			qualityTotal += rec.Quality
		}
		if rec.InProgress() {
			continue
		}
		hours := rec.Duration().Hours()
		if sum.Completed == 0 || hours < sum.Shortest {
			sum.Shortest = hours
		}
		if hours > sum.Longest {
			sum.Longest = hours
		}
		sum.Completed++
		sum.TotalSleep += hours
	}
	if sum.Completed > 0 {
		sum.AvgSleep = sum.TotalSleep / float64(sum.Completed)
	}
	if sum.Rated > 0 {
		sum.AvgQuality = float64(qualityTotal) / float64(sum.Rated)
	}
	return sum
}

// HoursSeries returns slept hours per completed session, in input order.
func HoursSeries(records []model.SessionRecord) []float64 {
	out := make([]float64, 0, len(records))
	for _, rec := range records {
		if rec.InProgress() {
			continue
		}
		out = append(out, rec.Duration().Hours())
	}
	return out
}

// QualitySeries returns the rating of every rated session, in input order.
func QualitySeries(records []model.SessionRecord) []float64 {
	out := make([]float64, 0, len(records))
	for _, rec := range records {
		if rec.Rated() {
			out = append(out, float64(rec.Quality))
		}
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints the summary block for records.
func RenderSummary(w io.Writer, records []model.SessionRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	sum := Summarize(records)
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d (%d completed, %d rated)", sum.Sessions, sum.Completed, sum.Rated),
		fmt.Sprintf("Total sleep: %.2f h", sum.TotalSleep),
		fmt.Sprintf("Avg sleep: %.2f h", sum.AvgSleep),
		fmt.Sprintf("Shortest: %.2f h", sum.Shortest),
		fmt.Sprintf("Longest: %.2f h", sum.Longest),
	}
	if sum.Rated > 0 {
		lines = append(lines, fmt.Sprintf("Avg quality: %.2f (%s)", sum.AvgQuality, format.QualityLabel(int(math.Round(sum.AvgQuality)))))
	} else {
		lines = append(lines, "Avg quality: --")
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTrends prints moving-average sparklines for hours and quality,
// keeping the most recent points that fit in width. A width of 0 uses the
// terminal width.
func RenderTrends(w io.Writer, records []model.SessionRecord, window, width int) error {
	if width <= 0 {
		width = terminalWidth()
	}
	trends := []struct {
		label  string
		values []float64
	}{
		{label: "Hours  ", values: MovingAverage(HoursSeries(records), window)},
		{label: "Quality", values: MovingAverage(QualitySeries(records), window)},
	}
	if _, err := fmt.Fprintf(w, "Trends (moving average, window %d)\n", window); err != nil {
		return err
	}
	for _, tr := range trends {
		if len(tr.values) == 0 {
			continue
		}
		values := tailFit(tr.values, width-len(tr.label)-3)
		if _, err := fmt.Fprintf(w, "%s | %s\n", tr.label, Sparkline(values)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderTable prints one aligned row per session.
func RenderTable(w io.Writer, records []model.SessionRecord, layout string) error {
	if len(records) == 0 {
		return nil
	}
	headers := []string{"ID", "Start", "End", "Duration", "Quality"}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		end := "in progress"
		duration := "--"
		if !rec.InProgress() {
			end = rec.EndTime.Format(layout)
			duration = format.Duration(rec.Duration())
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", rec.ID),
			rec.StartTime.Format(layout),
			end,
			duration,
			format.QualityLabel(rec.Quality),
		})
	}
	rightAlign := map[int]bool{0: true, 3: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func tailFit(values []float64, width int) []float64 {
	if width <= 0 || len(values) <= width {
		return values
	}
	return values[len(values)-width:]
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
