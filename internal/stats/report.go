package stats

import (
	"context"
	"io"

	"github.com/verte-zerg/sleeptrack/internal/model"
	"github.com/verte-zerg/sleeptrack/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions []model.SessionRecord
	Summary  Summary
}

// BuildReport loads and prepares data for stats rendering. Sessions are
// ordered oldest first.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	sessions, err := st.ListSince(ctx, cfg.Since)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}
	return Report{
		Sessions: sessions,
		Summary:  Summarize(sessions),
	}, nil
}

// Render writes the summary, the trend lines and the session table.
func (r Report) Render(w io.Writer, window, width int, layout string) error {
	if err := RenderSummary(w, r.Sessions); err != nil {
		return err
	}
	if len(r.Sessions) == 0 {
		return nil
	}
	if err := RenderTrends(w, r.Sessions, window, width); err != nil {
		return err
	}
	return RenderTable(w, r.Sessions, layout)
}
