package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/vburojevic/shotbridge/internal/gspro"
	"github.com/vburojevic/shotbridge/internal/logger"
	"github.com/vburojevic/shotbridge/internal/shotlog"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SHOTBRIDGE"

// Config holds application configuration
type Config struct {
	// CLI output
	Format  string `mapstructure:"format"`
	Quiet   bool   `mapstructure:"quiet"`
	Verbose bool   `mapstructure:"verbose"`

	Simulator SimulatorConfig `mapstructure:"simulator"`
	Tail      TailConfig      `mapstructure:"tail"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`
	History   HistoryConfig   `mapstructure:"history"`
	Log       logger.Config   `mapstructure:"log"`
}

// SimulatorConfig locates the Open Connect socket.
type SimulatorConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// TailConfig controls how the launch monitor log is followed.
type TailConfig struct {
	// LogPath empty means DefaultLogPath.
	LogPath      string        `mapstructure:"log_path"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// HeartbeatConfig controls keep-alive shots. Zero disables them.
type HeartbeatConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type HistoryConfig struct {
	Size int `mapstructure:"size"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Format: "ndjson",
		Simulator: SimulatorConfig{
			Host:         gspro.DefaultHost,
			Port:         gspro.DefaultPort,
			DialTimeout:  gspro.DefaultDialTimeout,
			WriteTimeout: gspro.DefaultWriteTimeout,
		},
		Tail: TailConfig{
			PollInterval: shotlog.DefaultPollInterval,
		},
		History: HistoryConfig{Size: gspro.DefaultHistorySize},
		Log: logger.Config{
			Level:   "info",
			Format:  logger.FormatAuto,
			Console: true,
			File: logger.FileConfig{
				Path:       "./logs",
				Name:       "shotbridge.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 14,
				Compress:   true,
			},
		},
	}
}

// Load loads configuration from files and environment
// Config file search order (highest precedence first):
// 0. $SHOTBRIDGE_CONFIG
// 1. ./.shotbridge.yaml or ./shotbridge.yaml (.yml too)
// 2. the same names in the home directory
// 3. $XDG_CONFIG_HOME/shotbridge/config.yaml (or the OS equivalent)
// 4. /etc/shotbridge/config.yaml
func Load() (*Config, error) {
	cfg := Default()

	if path := findConfigFile(); path != "" {
		if err := readInto(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := readInto(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigFile returns the path to the config file that would be loaded
func ConfigFile() string {
	return findConfigFile()
}

func readInto(cfg *Config, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func findConfigFile() string {
	if path := env("CONFIG"); path != "" {
		return path
	}
	names := []string{".shotbridge.yaml", ".shotbridge.yml", "shotbridge.yaml", "shotbridge.yml"}

	var searchPaths []string
	if cwd, err := os.Getwd(); err == nil {
		searchPaths = append(searchPaths, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, home)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(dir, "shotbridge"))
	}
	searchPaths = append(searchPaths, "/etc/shotbridge")

	for _, dir := range searchPaths {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		path := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func applyEnvOverrides(cfg *Config) error {
	if v := env("FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := env("LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := env("QUIET"); v == "true" || v == "1" {
		cfg.Quiet = true
	}
	if v := env("VERBOSE"); v == "true" || v == "1" {
		cfg.Verbose = true
	}
	if v := env("HOST"); v != "" {
		cfg.Simulator.Host = v
	}
	if v := env("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s_PORT: %w", EnvPrefix, err)
		}
		cfg.Simulator.Port = port
	}
	if v := env("LOG_PATH"); v != "" {
		cfg.Tail.LogPath = v
	}
	return nil
}

func env(key string) string {
	return os.Getenv(EnvPrefix + "_" + key)
}

// Validate rejects values no command can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Format != "ndjson" && c.Format != "text" {
		errs = append(errs, fmt.Errorf("format must be ndjson or text, got %q", c.Format))
	}
	if c.Simulator.Port < 1 || c.Simulator.Port > 65535 {
		errs = append(errs, fmt.Errorf("simulator.port out of range: %d", c.Simulator.Port))
	}
	if c.Tail.PollInterval <= 0 {
		errs = append(errs, errors.New("tail.poll_interval must be positive"))
	}
	if c.Heartbeat.Interval < 0 {
		errs = append(errs, errors.New("heartbeat.interval must not be negative"))
	}
	if c.History.Size <= 0 {
		errs = append(errs, errors.New("history.size must be positive"))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// SessionConfig converts the simulator settings for gspro.NewSession.
func (c *Config) SessionConfig() gspro.SessionConfig {
	return gspro.SessionConfig{
		Host:         c.Simulator.Host,
		Port:         c.Simulator.Port,
		DialTimeout:  c.Simulator.DialTimeout,
		WriteTimeout: c.Simulator.WriteTimeout,
		HistorySize:  c.History.Size,
	}
}

// LogPath returns the configured log path, falling back to DefaultLogPath.
func (c *Config) LogPath() string {
	if c.Tail.LogPath != "" {
		return c.Tail.LogPath
	}
	return DefaultLogPath()
}

// DefaultLogPath is where GSPro writes output_log.txt:
// %USERPROFILE%\AppData\LocalLow\GSPro\GSPro on Windows, the same tree under
// the home directory elsewhere.
func DefaultLogPath() string {
	home := os.Getenv("USERPROFILE")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, "AppData", "LocalLow", "GSPro", "GSPro", "output_log.txt")
}
