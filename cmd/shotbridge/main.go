package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/vburojevic/shotbridge/internal/cli"
	"github.com/vburojevic/shotbridge/internal/config"
	"github.com/vburojevic/shotbridge/internal/logger"
)

const quickStart = `shotbridge - GSPro launch monitor log to Open Connect bridge

START HERE (this is the command you want):
  shotbridge run

It follows GSPro's output_log.txt and sends every shot to 127.0.0.1:921.

Other useful commands:
  shotbridge send --heartbeat           Check the simulator connection
  shotbridge tail                       Print shots without sending them
  shotbridge replay <file> --send       Play a recorded log into the simulator
  shotbridge examples                   More examples
`

func main() {
	// Show quick start if no args provided
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	// Load configuration from files/environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Apply config defaults before parsing
	// These will be overridden by CLI flags if specified
	vars := kong.Vars{
		"config_format":    cfg.Format,
		"config_heartbeat": cfg.Heartbeat.Interval.String(),
	}

	ctx := kong.Parse(&c,
		kong.Name("shotbridge"),
		kong.Description("Bridge GSPro launch monitor shots to the Open Connect API\n\nSTART HERE: shotbridge run"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		vars,
	)

	if c.Verbose || cfg.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration:\n%v\n", err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to set up logging: %v\n", err)
		log = zap.NewNop()
	}
	defer func() { _ = log.Sync() }()

	// Create globals with config fallbacks
	globals := cli.NewGlobalsWithConfig(&c, cfg, log)
	err = ctx.Run(globals)
	if err != nil {
		// Commands emit their own structured errors; anything else is
		// reported here.
		var cliErr *cli.CLIError
		if !errors.As(err, &cliErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		_ = log.Sync()
		os.Exit(1)
	}
}
