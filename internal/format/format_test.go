package format

import (
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/sleeptrack/internal/model"
)

func TestQualityLabel(t *testing.T) {
	if got := QualityLabel(model.QualityUnset); got != "--" {
		t.Fatalf("unexpected unrated label %q", got)
	}
	if got := QualityLabel(0); got != "Very bad" {
		t.Fatalf("unexpected label for 0: %q", got)
	}
	if got := QualityLabel(5); got != "Excellent" {
		t.Fatalf("unexpected label for 5: %q", got)
	}
	if len(QualityLabels()) != model.QualityMax+1 {
		t.Fatalf("expected one label per rating")
	}
}

func TestDuration(t *testing.T) {
	if got := Duration(7*time.Hour + 5*time.Minute + 9*time.Second); got != "7:05:09" {
		t.Fatalf("unexpected duration %q", got)
	}
	if got := Duration(-time.Second); got != "0:00:00" {
		t.Fatalf("unexpected negative duration %q", got)
	}
}

func TestSessionsRendersEachRecord(t *testing.T) {
	start := time.Date(2026, 3, 2, 23, 15, 0, 0, time.UTC)
	done := model.NewSessionRecord(start)
	done.EndTime = start.Add(8 * time.Hour)
	done.Quality = 3
	open := model.NewSessionRecord(start.AddDate(0, 0, 1))

	out := Sessions([]model.SessionRecord{open, done}, "2006-01-02 15:04")
	want := []string{
		"Here is your sleep data:",
		"Start: 2026-03-03 23:15",
		"End: in progress",
		"Start: 2026-03-02 23:15",
		"End: 2026-03-03 07:15",
		"Quality: OK",
		"Quality: --",
		"Hours:Minutes:Seconds: 8:00:00",
	}
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Fatalf("missing %q in:\n%s", w, out)
		}
	}
	if strings.HasSuffix(out, "\n") {
		t.Fatalf("expected trailing newline trimmed")
	}
}

func TestSessionsEmpty(t *testing.T) {
	if got := Sessions(nil, ""); got != "No sleep data yet." {
		t.Fatalf("unexpected empty text %q", got)
	}
}
