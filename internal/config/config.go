// Package config provides configuration management for the disclosure analyzer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	UI       UIConfig       `mapstructure:"ui"`
}

// DatabaseConfig holds data store configuration.
type DatabaseConfig struct {
	Path         string `mapstructure:"path"`
	PingAttempts int    `mapstructure:"ping_attempts"`
}

// AnalysisConfig holds disclosure window and test configuration.
type AnalysisConfig struct {
	WindowDays    int    `mapstructure:"window_days"`     // ± calendar days around the center date
	SearchDays    int    `mapstructure:"search_days"`     // forward search bound for a missing date
	RankSumMethod string `mapstructure:"rank_sum_method"` // auto, exact, asymptotic
}

// OutputConfig holds report export configuration.
type OutputConfig struct {
	Dir         string `mapstructure:"dir"`
	Spreadsheet bool   `mapstructure:"spreadsheet"`
	PDF         bool   `mapstructure:"pdf"`
	Charts      bool   `mapstructure:"charts"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// UIConfig holds console output configuration.
type UIConfig struct {
	ColorEnabled bool `mapstructure:"color_enabled"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/breach-analyzer"
	}
	return filepath.Join(home, ".config", "breach-analyzer")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is replaced by the template and defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{}
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("database.path", filepath.Join(configDir, "disclosures.db"))
	v.SetDefault("database.ping_attempts", 3)

	v.SetDefault("analysis.window_days", 7)
	v.SetDefault("analysis.search_days", 7)
	v.SetDefault("analysis.rank_sum_method", "auto")

	v.SetDefault("output.dir", "output")
	v.SetDefault("output.spreadsheet", true)
	v.SetDefault("output.pdf", true)
	v.SetDefault("output.charts", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", false)
	v.SetDefault("logging.file", filepath.Join(configDir, "logs", "app.log"))
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)

	v.SetDefault("ui.color_enabled", true)
}

func loadConfigFile(configDir, name string, target *Config) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// Best effort: an unwritable config dir still runs on defaults.
		_ = createTemplateConfig(configDir, name)
	}

	return v.Unmarshal(target)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BREACH_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("BREACH_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("BREACH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("BREACH_RANK_SUM_METHOD"); v != "" {
		cfg.Analysis.RankSumMethod = strings.ToLower(v)
	}
}

// resolvePaths expands a leading ~ in file paths.
func (c *Config) resolvePaths() {
	c.Database.Path = expandHome(c.Database.Path)
	c.Logging.File = expandHome(c.Logging.File)
	c.Output.Dir = expandHome(c.Output.Dir)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Analysis.WindowDays < 1 {
		return fmt.Errorf("analysis.window_days must be at least 1")
	}
	if c.Analysis.SearchDays < 0 {
		return fmt.Errorf("analysis.search_days must be non-negative")
	}
	switch c.Analysis.RankSumMethod {
	case "auto", "exact", "asymptotic":
	default:
		return fmt.Errorf("invalid rank_sum_method: %s (must be 'auto', 'exact' or 'asymptotic')", c.Analysis.RankSumMethod)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must not be empty")
	}
	return nil
}
