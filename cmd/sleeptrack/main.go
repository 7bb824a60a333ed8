// Package main provides the CLI entrypoint for sleeptrack.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/sleeptrack/internal/config"
	"github.com/verte-zerg/sleeptrack/internal/format"
	"github.com/verte-zerg/sleeptrack/internal/model"
	"github.com/verte-zerg/sleeptrack/internal/stats"
	"github.com/verte-zerg/sleeptrack/internal/statsui"
	"github.com/verte-zerg/sleeptrack/internal/tui"
)

const (
	defaultWorkers     = 4
	defaultStatsLast   = 0
	defaultStatsWindow = 7
)

var (
	trackerDBPath     string
	trackerWorkers    int
	trackerTimeFormat string

	stopQuality int
	clearYes    bool

	statsSince  string
	statsLast   int
	statsWindow int
	statsText   bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sleeptrack",
		Short:         "Terminal sleep tracker",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTrackerCmd,
	}

	rootCmd.PersistentFlags().StringVar(&trackerDBPath, "db", config.DefaultDBPath(), "path to the SQLite database")
	rootCmd.PersistentFlags().IntVar(&trackerWorkers, "workers", defaultWorkers, "concurrent database calls")
	rootCmd.PersistentFlags().StringVar(&trackerTimeFormat, "time-format", format.DefaultTimeLayout, "Go time layout for timestamps")

	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newStopCmd())
	rootCmd.AddCommand(newRateCmd())
	rootCmd.AddCommand(newClearCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// resolveConfig merges the config file into flags the user did not set.
func resolveConfig(cmd *cobra.Command) (model.Config, config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "db", &trackerDBPath, fileCfg.Tracker.DBPath)
	applyIntConfig(cmd, "workers", &trackerWorkers, fileCfg.Tracker.Workers)
	applyStringConfig(cmd, "time-format", &trackerTimeFormat, fileCfg.Tracker.TimeFormat)

	cfg := model.Config{
		DBPath:     trackerDBPath,
		Workers:    trackerWorkers,
		TimeLayout: trackerTimeFormat,
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, config.FileConfig{}, err
	}
	return cfg, fileCfg, nil
}

func runTrackerCmd(cmd *cobra.Command, _ []string) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return withTracker(cfg, func(h *headless) error {
			return h.list(cmd.OutOrStdout())
		})
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	app := tui.NewApp(st, cfg)
	defer app.Close()
	program := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a sleep session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return withTracker(cfg, func(h *headless) error {
				return h.start(cmd.OutOrStdout())
			})
		},
	}
}

func newStopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the current sleep session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			quality := model.QualityUnset
			if cmd.Flags().Changed("quality") {
				quality = stopQuality
			}
			return withTracker(cfg, func(h *headless) error {
				return h.stop(cmd.OutOrStdout(), quality)
			})
		},
	}
	cmd.Flags().IntVar(&stopQuality, "quality", model.QualityUnset,
		fmt.Sprintf("rate the stopped session (%d-%d)", model.QualityMin, model.QualityMax))
	return cmd
}

func newRateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rate <id> <quality>",
		Short: "Rate a stored sleep session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid session id %q: %w", args[0], err)
			}
			quality, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quality %q: %w", args[1], err)
			}
			cfg, _, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return withTracker(cfg, func(h *headless) error {
				return h.rate(cmd.OutOrStdout(), id, quality)
			})
		},
	}
}

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all sleep sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if !clearYes {
				ok, err := confirmClear()
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			return withTracker(cfg, func(h *headless) error {
				return h.clear(cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func confirmClear() (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("refusing to clear without a terminal; pass --yes")
	}
	confirmed := false
	err := huh.NewConfirm().
		Title("Delete all sleep sessions?").
		Affirmative("Delete").
		Negative("Keep").
		Value(&confirmed).
		Run()
	if err != nil {
		return false, fmt.Errorf("failed to confirm: %w", err)
	}
	return confirmed, nil
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print all sleep sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return withTracker(cfg, func(h *headless) error {
				return h.list(cmd.OutOrStdout())
			})
		},
	}
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show sleep stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", defaultStatsLast, "limit to last N sessions")
	cmd.Flags().IntVar(&statsWindow, "window", defaultStatsWindow, "moving average window")
	cmd.Flags().BoolVar(&statsText, "text", false, "print a text report instead of the interactive view")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, fileCfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	applyIntConfig(cmd, "last", &statsLast, fileCfg.Stats.Last)
	applyIntConfig(cmd, "window", &statsWindow, fileCfg.Stats.Window)

	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	statsCfg := model.StatsConfig{
		Since:  sinceTime,
		Last:   statsLast,
		Window: statsWindow,
	}
	if statsCfg.Last < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if statsCfg.Window < 1 {
		return fmt.Errorf("--window must be > 0")
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	if statsText || !term.IsTerminal(int(os.Stdout.Fd())) {
		report, err := stats.BuildReport(context.Background(), st, statsCfg)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		return report.Render(cmd.OutOrStdout(), statsCfg.Window, 0, cfg.TimeLayout)
	}

	program := tea.NewProgram(statsui.NewModel(st, statsCfg, cfg.TimeLayout), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# sleeptrack configuration
# Uncomment a value to enable it. CLI flags override config values.

[tracker]
# db-path = %q
# workers = %d            # Concurrent database calls
# time-format = %q        # Go time layout for timestamps

[stats]
# last = %d               # Limit stats to the last N sessions (0 = all)
# window = %d             # Moving average window
`,
		config.DefaultDBPath(),
		defaultWorkers,
		format.DefaultTimeLayout,
		defaultStatsLast,
		defaultStatsWindow,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.DBPath == "" {
		return fmt.Errorf("--db must not be empty")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("--workers must be > 0")
	}
	if strings.TrimSpace(cfg.TimeLayout) == "" {
		return fmt.Errorf("--time-format must not be empty")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
