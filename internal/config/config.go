// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Browser    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	Recorder   RecorderConfig   `mapstructure:"recorder" yaml:"recorder"`
	ManualMode ManualModeConfig `mapstructure:"manual_mode" yaml:"manual_mode"`
	Secrets    SecretsConfig    `mapstructure:"secrets" yaml:"secrets"`
	Archive    ArchiveConfig    `mapstructure:"archive" yaml:"archive"`
}

// LoggerConfig controls the zap logger and its file sink.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig tunes the managed Chrome process and per-action timeouts.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	WindowWidth       int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight      int           `mapstructure:"window_height" yaml:"window_height"`
	DisableCache      bool          `mapstructure:"disable_cache" yaml:"disable_cache"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// RecorderConfig controls where action logs and screenshots land.
type RecorderConfig struct {
	ArtifactsDir       string `mapstructure:"artifacts_dir" yaml:"artifacts_dir"`
	CaptureScreenshots bool   `mapstructure:"capture_screenshots" yaml:"capture_screenshots"`
	MaxScanElements    int    `mapstructure:"max_scan_elements" yaml:"max_scan_elements"`
}

// ManualModeConfig governs the manual-mode escalation watcher.
type ManualModeConfig struct {
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PromptInterval time.Duration `mapstructure:"prompt_interval" yaml:"prompt_interval"`
}

// SecretsConfig names the environment variables registered as secrets for
// the sensitive-value mask. Values are never stored in configuration.
type SecretsConfig struct {
	EnvKeys []string `mapstructure:"env_keys" yaml:"env_keys"`
}

// ArchiveConfig holds the optional Postgres run-archive connection details.
type ArchiveConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	DBName   string `mapstructure:"dbname" yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// DSN assembles a pgx-compatible connection string.
func (a ArchiveConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		a.User, a.Password, a.Host, a.Port, a.DBName, a.SSLMode)
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "retrace")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.disable_cache", false)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.action_timeout", "10s")
	v.SetDefault("browser.post_load_wait", "1500ms")

	// -- Recorder --
	v.SetDefault("recorder.artifacts_dir", "generated")
	v.SetDefault("recorder.capture_screenshots", false)
	v.SetDefault("recorder.max_scan_elements", 400)

	// -- Manual mode --
	v.SetDefault("manual_mode.timeout", "120s")
	v.SetDefault("manual_mode.prompt_interval", "10s")

	// -- Archive --
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.host", "localhost")
	v.SetDefault("archive.port", 5432)
	v.SetDefault("archive.user", "postgres")
	v.SetDefault("archive.password", "")
	v.SetDefault("archive.dbname", "retrace")
	v.SetDefault("archive.sslmode", "disable")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with pure defaults, but fail loudly if it does.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a validated configuration from a viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The archive password is sensitive and comes from the environment.
	v.BindEnv("archive.password", "RETRACE_ARCHIVE_PASSWORD")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if cfg.Archive.Enabled && cfg.Archive.Password == "" {
		cfg.Archive.Password = os.Getenv("RETRACE_ARCHIVE_PASSWORD")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// DefaultConfigDir returns the user-level directory searched for a config
// file, typically ~/.retrace.
func DefaultConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".retrace"), nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		return fmt.Errorf("browser.window_width and browser.window_height must be positive")
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be a positive duration")
	}
	if c.Browser.ActionTimeout <= 0 {
		return fmt.Errorf("browser.action_timeout must be a positive duration")
	}
	if c.Recorder.ArtifactsDir == "" {
		return fmt.Errorf("recorder.artifacts_dir is required")
	}
	if c.Recorder.MaxScanElements <= 0 {
		return fmt.Errorf("recorder.max_scan_elements must be a positive integer")
	}
	if c.ManualMode.Timeout <= 0 {
		return fmt.Errorf("manual_mode.timeout must be a positive duration")
	}
	if c.ManualMode.PromptInterval <= 0 {
		return fmt.Errorf("manual_mode.prompt_interval must be a positive duration")
	}
	if c.Archive.Enabled {
		if c.Archive.Host == "" || c.Archive.DBName == "" {
			return fmt.Errorf("archive.host and archive.dbname are required when the archive is enabled")
		}
	}
	return nil
}
