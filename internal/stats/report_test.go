package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/sleeptrack/internal/model"
	"github.com/verte-zerg/sleeptrack/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sleeptrack.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	var ids []int64
	for i := 0; i < 3; i++ {
		rec := session(0, base.AddDate(0, 0, i), 7, i+2)
		id, err := st.Insert(ctx, rec)
		if err != nil {
			t.Fatalf("insert session: %v", err)
		}
		ids = append(ids, id)
	}

	report, err := BuildReport(ctx, st, model.StatsConfig{Last: 2})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(report.Sessions))
	}
	if report.Sessions[0].ID != ids[1] || report.Sessions[1].ID != ids[2] {
		t.Fatalf("unexpected session ids: %+v", report.Sessions)
	}
	if report.Summary.Completed != 2 || report.Summary.AvgQuality != 3.5 {
		t.Fatalf("unexpected summary %+v", report.Summary)
	}

	since := base.AddDate(0, 0, 2)
	report, err = BuildReport(ctx, st, model.StatsConfig{Since: &since})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 1 || report.Sessions[0].ID != ids[2] {
		t.Fatalf("expected only the last session since %v, got %+v", since, report.Sessions)
	}
}
