// Package format renders sleep sessions as text.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/sleeptrack/internal/model"
)

// DefaultTimeLayout is used when no layout is configured.
const DefaultTimeLayout = "Mon Jan 02 2006 15:04"

var qualityLabels = [...]string{
	"Very bad",
	"Poor",
	"So-so",
	"OK",
	"Pretty good",
	"Excellent",
}

// QualityLabel returns the human label for a rating, "--" when unrated.
func QualityLabel(q int) string {
	if !model.ValidQuality(q) {
		return "--"
	}
	return qualityLabels[q]
}

// QualityLabels returns labels indexed by rating.
func QualityLabels() []string {
	return append([]string(nil), qualityLabels[:]...)
}

// Duration formats d as H:MM:SS.
func Duration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// Session renders one record as a block of labelled lines.
func Session(rec model.SessionRecord, layout string) string {
	if layout == "" {
		layout = DefaultTimeLayout
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Start: %s\n", rec.StartTime.Format(layout))
	if rec.InProgress() {
		b.WriteString("End: in progress\n")
	} else {
		fmt.Fprintf(&b, "End: %s\n", rec.EndTime.Format(layout))
	}
	fmt.Fprintf(&b, "Quality: %s\n", QualityLabel(rec.Quality))
	fmt.Fprintf(&b, "Hours:Minutes:Seconds: %s\n", Duration(rec.Duration()))
	return b.String()
}

// Sessions renders the display text for a list of records.
func Sessions(records []model.SessionRecord, layout string) string {
	if len(records) == 0 {
		return "No sleep data yet."
	}
	var b strings.Builder
	b.WriteString("Here is your sleep data:\n")
	for _, rec := range records {
		b.WriteString("\n")
		b.WriteString(Session(rec, layout))
	}
	return strings.TrimRight(b.String(), "\n")
}
