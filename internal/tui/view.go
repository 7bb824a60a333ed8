package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/sleeptrack/internal/format"
	"github.com/verte-zerg/sleeptrack/internal/model"
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	snackbarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// Title, status and a blank line above the viewport; notice and help below.
const baseChromeHeight = 5

// View implements tea.Model.
func (a *App) View() string {
	if a.screen == screenQuality {
		return a.viewQuality()
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("sleeptrack"))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(renderStatus(a.current, a.now, a.cfg.TimeLayout)))
	b.WriteString("\n\n")
	b.WriteString(a.viewport.View())
	b.WriteString("\n")
	b.WriteString(a.renderNotice())
	b.WriteString("\n")
	b.WriteString(footerStyle.Render(a.help.View(a.keys)))
	return b.String()
}

func (a *App) viewQuality() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("How did you sleep?"))
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render(format.Session(a.rated, a.cfg.TimeLayout)))
	b.WriteString("\n")
	switch {
	case a.saving:
		b.WriteString(statusStyle.Render("Saving rating..."))
	case a.form != nil:
		b.WriteString(a.form.View())
	}
	if a.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(a.errMsg))
	}
	b.WriteString("\n")
	b.WriteString(footerStyle.Render(a.help.ShortHelpView([]key.Binding{a.keys.Skip, a.keys.Quit})))
	return b.String()
}

func (a *App) renderNotice() string {
	switch {
	case a.errMsg != "":
		return errorStyle.Render(a.errMsg)
	case a.snackbar != "":
		return snackbarStyle.Render(a.snackbar)
	}
	return ""
}

func (a *App) chromeHeight() int {
	h := baseChromeHeight
	if a.snackbar != "" {
		h += 2
	}
	if a.help.ShowAll {
		h += 2
	}
	return h
}

// renderStatus describes the tracked session relative to now.
func renderStatus(cur *model.SessionRecord, now time.Time, layout string) string {
	if cur == nil {
		return "Awake. Press s when you go to sleep."
	}
	if layout == "" {
		layout = format.DefaultTimeLayout
	}
	if cur.InProgress() {
		elapsed := max(0, now.Sub(cur.StartTime))
		return fmt.Sprintf("Sleeping since %s (%s, %s)",
			cur.StartTime.Format(layout),
			humanize.RelTime(cur.StartTime, now, "ago", "from now"),
			format.Duration(elapsed.Truncate(time.Second)))
	}
	return fmt.Sprintf("Woke up %s after %s",
		humanize.RelTime(cur.EndTime, now, "ago", "from now"),
		format.Duration(cur.Duration()))
}

// newQualityForm asks for a rating of rec and writes it to value.
func newQualityForm(rec model.SessionRecord, value *int, layout string) *huh.Form {
	if layout == "" {
		layout = format.DefaultTimeLayout
	}
	labels := format.QualityLabels()
	options := make([]huh.Option[int], 0, len(labels))
	for q := model.QualityMax; q >= model.QualityMin; q-- {
		options = append(options, huh.NewOption(fmt.Sprintf("%d  %s", q, labels[q]), q))
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Sleep quality").
				Description(fmt.Sprintf("Night of %s", rec.StartTime.Format(layout))).
				Options(options...).
				Value(value),
		),
	).WithShowHelp(false)
}
