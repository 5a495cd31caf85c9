package cli

import (
	"encoding/json"
	"fmt"

	"github.com/vburojevic/shotbridge/internal/config"
)

// ConfigCmd shows or manages configuration
type ConfigCmd struct {
	Show     ConfigShowCmd     `cmd:"" default:"withargs" help:"Show current configuration"`
	Path     ConfigPathCmd     `cmd:"" help:"Show configuration file path"`
	Generate ConfigGenerateCmd `cmd:"" help:"Generate sample configuration file"`
}

// ConfigShowCmd shows current configuration
type ConfigShowCmd struct{}

// Run executes the config show command
func (c *ConfigShowCmd) Run(globals *Globals) error {
	cfg := globals.config()

	if globals.Format == "ndjson" {
		output := map[string]any{
			"type":    "config",
			"format":  cfg.Format,
			"quiet":   cfg.Quiet,
			"verbose": cfg.Verbose,
			"simulator": map[string]any{
				"host":          cfg.Simulator.Host,
				"port":          cfg.Simulator.Port,
				"dial_timeout":  cfg.Simulator.DialTimeout.String(),
				"write_timeout": cfg.Simulator.WriteTimeout.String(),
			},
			"tail": map[string]any{
				"log_path":      cfg.LogPath(),
				"poll_interval": cfg.Tail.PollInterval.String(),
			},
			"heartbeat":    cfg.Heartbeat.Interval.String(),
			"history_size": cfg.History.Size,
			"log": map[string]any{
				"level":        cfg.Log.Level,
				"format":       cfg.Log.Format,
				"console":      cfg.Log.Console,
				"file_enabled": cfg.Log.File.Enabled,
			},
			"config_file": config.ConfigFile(),
		}
		encoder := json.NewEncoder(globals.Stdout)
		return encoder.Encode(output)
	}

	// Text output
	fmt.Fprintln(globals.Stdout, "Current Configuration:")
	fmt.Fprintln(globals.Stdout, "")
	fmt.Fprintf(globals.Stdout, "  format:  %s\n", cfg.Format)
	fmt.Fprintf(globals.Stdout, "  quiet:   %v\n", cfg.Quiet)
	fmt.Fprintf(globals.Stdout, "  verbose: %v\n", cfg.Verbose)
	fmt.Fprintln(globals.Stdout, "")
	fmt.Fprintln(globals.Stdout, "Simulator:")
	fmt.Fprintf(globals.Stdout, "  address:       %s\n", cfg.SessionConfig().Addr())
	fmt.Fprintf(globals.Stdout, "  dial_timeout:  %s\n", cfg.Simulator.DialTimeout)
	fmt.Fprintf(globals.Stdout, "  write_timeout: %s\n", cfg.Simulator.WriteTimeout)
	fmt.Fprintln(globals.Stdout, "")
	fmt.Fprintln(globals.Stdout, "Tail:")
	fmt.Fprintf(globals.Stdout, "  log_path:      %s\n", cfg.LogPath())
	fmt.Fprintf(globals.Stdout, "  poll_interval: %s\n", cfg.Tail.PollInterval)
	fmt.Fprintln(globals.Stdout, "")
	fmt.Fprintf(globals.Stdout, "heartbeat: %s\n", cfg.Heartbeat.Interval)
	fmt.Fprintf(globals.Stdout, "history:   %d\n", cfg.History.Size)
	fmt.Fprintf(globals.Stdout, "log:       level=%s format=%s console=%v file=%v\n",
		cfg.Log.Level, cfg.Log.Format, cfg.Log.Console, cfg.Log.File.Enabled)

	if path := config.ConfigFile(); path != "" {
		fmt.Fprintln(globals.Stdout, "")
		fmt.Fprintf(globals.Stdout, "Loaded from: %s\n", path)
	}

	return nil
}

// ConfigPathCmd shows config file path
type ConfigPathCmd struct{}

// Run executes the config path command
func (c *ConfigPathCmd) Run(globals *Globals) error {
	path := config.ConfigFile()

	if globals.Format == "ndjson" {
		output := map[string]any{
			"type": "config_path",
			"path": path,
		}
		encoder := json.NewEncoder(globals.Stdout)
		return encoder.Encode(output)
	}

	if path == "" {
		fmt.Fprintln(globals.Stdout, "No configuration file found")
		fmt.Fprintln(globals.Stdout, "")
		fmt.Fprintln(globals.Stdout, "Create one at:")
		fmt.Fprintln(globals.Stdout, "  ~/.shotbridge.yaml")
		fmt.Fprintln(globals.Stdout, "  ./shotbridge.yaml")
		fmt.Fprintln(globals.Stdout, "or point "+config.EnvPrefix+"_CONFIG at a file.")
	} else {
		fmt.Fprintf(globals.Stdout, "Config file: %s\n", path)
	}

	return nil
}

// ConfigGenerateCmd generates a sample configuration file
type ConfigGenerateCmd struct{}

// Run executes the config generate command
func (c *ConfigGenerateCmd) Run(globals *Globals) error {
	sampleConfig := `# shotbridge configuration file
# Place this file at ~/.shotbridge.yaml or ./shotbridge.yaml

# Output format: "ndjson" (default) or "text"
format: ndjson

# Suppress info and warning records
quiet: false

# Log debug output to stderr
verbose: false

# GSPro Open Connect API
simulator:
  host: 127.0.0.1
  port: 921
  dial_timeout: 5s
  write_timeout: 5s

# Launch monitor log
tail:
  # Empty means %USERPROFILE%\AppData\LocalLow\GSPro\GSPro\output_log.txt
  # log_path: C:\Users\golfer\AppData\LocalLow\GSPro\GSPro\output_log.txt
  poll_interval: 100ms

# Keep-alive shots while idle (0s disables)
heartbeat:
  interval: 0s

# Sent and received messages kept per session
history:
  size: 1000

# Diagnostic logging (stderr and an optional rotating file)
log:
  level: info        # debug, info, warn, error
  format: auto       # auto, console, json
  console: true
  file:
    enabled: false
    path: ./logs
    name: shotbridge.log
    max_size_mb: 50
    max_backups: 3
    max_age_days: 14
    compress: true
`

	_, err := fmt.Fprint(globals.Stdout, sampleConfig)
	return err
}
