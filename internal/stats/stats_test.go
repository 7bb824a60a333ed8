package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/sleeptrack/internal/format"
	"github.com/verte-zerg/sleeptrack/internal/model"
)

func session(id int64, start time.Time, hours float64, quality int) model.SessionRecord {
	rec := model.NewSessionRecord(start)
	rec.ID = id
	rec.EndTime = start.Add(time.Duration(hours * float64(time.Hour)))
	rec.Quality = quality
	return rec
}

func sampleSessions() []model.SessionRecord {
	base := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	return []model.SessionRecord{
		session(1, base, 6, 2),
		session(2, base.AddDate(0, 0, 1), 8, 4),
		session(3, base.AddDate(0, 0, 2), 7, model.QualityUnset),
		model.NewSessionRecord(base.AddDate(0, 0, 3)),
	}
}

func TestSummarize(t *testing.T) {
	sum := Summarize(sampleSessions())
	if sum.Sessions != 4 || sum.Completed != 3 || sum.Rated != 2 {
		t.Fatalf("unexpected counts %+v", sum)
	}
	if math.Abs(sum.TotalSleep-21) > 1e-9 || math.Abs(sum.AvgSleep-7) > 1e-9 {
		t.Fatalf("unexpected totals %+v", sum)
	}
	if sum.Shortest != 6 || sum.Longest != 8 {
		t.Fatalf("unexpected extremes %+v", sum)
	}
	if sum.AvgQuality != 3 {
		t.Fatalf("expected avg quality 3, got %v", sum.AvgQuality)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if sum := Summarize(nil); sum != (Summary{}) {
		t.Fatalf("expected zero summary, got %+v", sum)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{1, 1, 1}); got != "+++" {
		t.Fatalf("expected flat sparkline, got %q", got)
	}
	got := Sparkline([]float64{0, 10})
	if got != " @" {
		t.Fatalf("expected min and max glyphs, got %q", got)
	}
}

func TestRenderSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.String() != "No sessions found.\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestReportRender(t *testing.T) {
	report := Report{Sessions: sampleSessions()}
	report.Summary = Summarize(report.Sessions)

	var buf bytes.Buffer
	if err := report.Render(&buf, 2, 40, format.DefaultTimeLayout); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Sessions: 4 (3 completed, 2 rated)",
		"Avg sleep: 7.00 h",
		"Avg quality: 3.00 (OK)",
		"Hours   | ",
		"Quality | ",
		"in progress",
		"Pretty good",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderTrendsFitsWidth(t *testing.T) {
	base := time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)
	var records []model.SessionRecord
	for i := 0; i < 100; i++ {
		records = append(records, session(int64(i+1), base.AddDate(0, 0, i), float64(5+i%4), i%6))
	}
	var buf bytes.Buffer
	if err := RenderTrends(&buf, records, 3, 30); err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n")[1:] {
		if len(line) > 30 {
			t.Fatalf("line exceeds width: %q", line)
		}
	}
}
