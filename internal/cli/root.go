package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"breach-analyzer/internal/analysis"
	"breach-analyzer/internal/analysis/stats"
	"breach-analyzer/internal/config"
	apperrors "breach-analyzer/internal/errors"
	"breach-analyzer/internal/logging"
	"breach-analyzer/internal/report"
	"breach-analyzer/internal/store"
	"breach-analyzer/pkg/utils"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-10-01"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  *store.SQLiteStore

	configDir string
}

// NewRootCmd creates the root command for the CLI. A nil cfg is loaded from
// the --config directory before any command runs.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "breach-analyzer",
		Short: "Market impact analysis of data breach disclosures",
		Long: `breach-analyzer measures how a company's stock moved against the market
index around each of its data breach disclosures.

For every disclosure it takes the trading days within a week of the
disclosure date, runs a paired t-test, a Wilcoxon signed-rank test, a
Pearson correlation and a Mann-Whitney U test on the daily price changes
and summarizes the results across all disclosures.

Run without arguments to start the interactive menu.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu(cmd, app)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/breach-analyzer)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("output", "", "report output directory (overrides output.dir)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newMenuCmd(app))
	rootCmd.AddCommand(newCompaniesCmd(app))
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newImportCmd(app))

	return rootCmd
}

// setup loads configuration when needed and applies the global flags.
func (a *App) setup(cmd *cobra.Command) error {
	if a.Config == nil {
		dir, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		a.Config = cfg
		a.configDir = dir
		a.Logger = logging.NewLoggerWithConfig(logConfig(cfg))
	}

	if !a.Config.UI.ColorEnabled {
		color.NoColor = true
	}
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		a.Config.Output.Dir = out
	}

	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		logging.SetDebugLevel()
		a.Logger = a.Logger.Level(zerolog.DebugLevel)
	}
	return nil
}

// logConfig maps the logging section of the configuration.
func logConfig(cfg *config.Config) logging.LogConfig {
	return logging.LogConfig{
		Level:      cfg.Logging.Level,
		Console:    cfg.Logging.Console,
		File:       cfg.Logging.File != "",
		FilePath:   cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
	}
}

// OpenStore opens the configured database on first use and checks it is
// reachable, retrying connectivity failures with backoff.
func (a *App) OpenStore(ctx context.Context) (*store.SQLiteStore, error) {
	if a.Store != nil {
		return a.Store, nil
	}

	s, err := store.NewSQLiteStore(a.Config.Database.Path, a.Logger)
	if err != nil {
		if apperrors.IsFatal(err) {
			return nil, err
		}
		return nil, apperrors.NewStoreError("open", err)
	}

	retry := utils.DefaultRetryConfig()
	if a.Config.Database.PingAttempts > 0 {
		retry.MaxAttempts = a.Config.Database.PingAttempts
	}
	retry.Retryable = apperrors.IsFatal
	retry.OnRetry = func(attempt int, delay time.Duration, err error) {
		a.Logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("Store ping failed, retrying")
	}
	if err := utils.Retry(ctx, retry, func() error { return s.Ping(ctx) }); err != nil {
		s.Close()
		return nil, err
	}

	a.Logger.Debug().Str("path", a.Config.Database.Path).Msg("SQLite store initialized")
	a.Store = s
	return s, nil
}

// Close releases the store if it was opened.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	err := a.Store.Close()
	a.Store = nil
	return err
}

// Analyzer builds an analyzer over the opened store using the configured
// window sizes and rank-sum method.
func (a *App) Analyzer(ds store.DataStore) (*analysis.Analyzer, error) {
	method, err := stats.ParseRankSumMethod(a.Config.Analysis.RankSumMethod)
	if err != nil {
		return nil, err
	}
	return analysis.NewAnalyzer(ds, analysis.Options{
		WindowDays:      a.Config.Analysis.WindowDays,
		SearchDays:      a.Config.Analysis.SearchDays,
		NoForwardSearch: a.Config.Analysis.SearchDays == 0,
		RankSumMethod:   method,
	}, a.Logger), nil
}

// Exporter builds a report exporter from the output configuration.
func (a *App) Exporter() *report.Exporter {
	return report.NewExporter(report.Options{
		Dir:         a.Config.Output.Dir,
		Spreadsheet: a.Config.Output.Spreadsheet,
		PDF:         a.Config.Output.PDF,
		Charts:      a.Config.Output.Charts,
	}, a.Logger)
}

func (a *App) configPath() string {
	dir := a.configDir
	if dir == "" {
		dir = config.DefaultConfigDir()
	}
	return filepath.Join(dir, "config.toml")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("breach-analyzer v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": app.configPath()})
			}
			output.Println(app.configPath())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return apperrors.Wrap(apperrors.ErrConfigInvalid, err.Error())
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Database")
	output.Printf("  Path:            %s\n", cfg.Database.Path)
	output.Printf("  Ping Attempts:   %d\n", cfg.Database.PingAttempts)
	output.Println()

	output.Bold("Analysis")
	output.Printf("  Window:          ±%d days\n", cfg.Analysis.WindowDays)
	output.Printf("  Forward Search:  %d days\n", cfg.Analysis.SearchDays)
	output.Printf("  Rank-Sum Method: %s\n", cfg.Analysis.RankSumMethod)
	output.Println()

	output.Bold("Output")
	output.Printf("  Directory:       %s\n", cfg.Output.Dir)
	output.Printf("  Spreadsheet:     %s\n", utils.YesNo(cfg.Output.Spreadsheet))
	output.Printf("  PDF:             %s\n", utils.YesNo(cfg.Output.PDF))
	output.Printf("  Charts:          %s\n", utils.YesNo(cfg.Output.Charts))
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Logging.Level)
	output.Printf("  File:            %s\n", cfg.Logging.File)
	output.Printf("  Console:         %s\n", utils.YesNo(cfg.Logging.Console))
}

// errorMessage renders err for the operator.
func errorMessage(err error) string {
	switch {
	case apperrors.Is(err, apperrors.ErrStoreUnavailable):
		return fmt.Sprintf("Data store unavailable: %v", err)
	default:
		return err.Error()
	}
}
