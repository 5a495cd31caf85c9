package cli

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/vburojevic/shotbridge/internal/chart"
	"github.com/vburojevic/shotbridge/internal/config"
	"github.com/vburojevic/shotbridge/internal/logger"
	"github.com/vburojevic/shotbridge/internal/output"
)

// CLI is the root command structure for shotbridge
type CLI struct {
	// Global flags
	Format  string `short:"f" default:"${config_format}" enum:"ndjson,text" help:"Output format"`
	Quiet   bool   `short:"q" help:"Suppress info and warning records (only shots, responses and errors)"`
	Verbose bool   `short:"v" help:"Log debug output to stderr"`

	// Commands
	Run      RunCmd      `cmd:"" help:"Tail the GSPro log and bridge shots to the simulator"`
	Tail     TailCmd     `cmd:"" help:"Tail the GSPro log and print parsed shots without connecting"`
	Replay   ReplayCmd   `cmd:"" help:"Parse a recorded log from the start, optionally sending each shot"`
	Send     SendCmd     `cmd:"" help:"Send one test shot or heartbeat and print the responses"`
	Chart    ChartCmd    `cmd:"" help:"Print or look up the optimal launch chart"`
	Config   ConfigCmd   `cmd:"" help:"Show or manage configuration"`
	Examples ExamplesCmd `cmd:"" help:"Show usage examples for shotbridge commands"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`
}

// Globals holds shared state for all commands
type Globals struct {
	Format  string
	Quiet   bool
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
	Config  *config.Config
	Logger  *zap.Logger
}

// NewGlobalsWithConfig creates a new Globals instance with config fallbacks
func NewGlobalsWithConfig(cli *CLI, cfg *config.Config, l *zap.Logger) *Globals {
	if cfg == nil {
		cfg = config.Default()
	}
	g := &Globals{
		Format:  cli.Format,
		Quiet:   cli.Quiet || cfg.Quiet,
		Verbose: cli.Verbose || cfg.Verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Config:  cfg,
		Logger:  logger.OrNop(l),
	}
	if g.Format == "" {
		g.Format = cfg.Format
	}
	return g
}

func (g *Globals) config() *config.Config {
	if g.Config == nil {
		return config.Default()
	}
	return g.Config
}

func (g *Globals) logger() *zap.Logger {
	return logger.OrNop(g.Logger)
}

// emitter returns an emitter on stdout in the selected format, and the
// underlying writer. With a chart, ball shots carry a comparison at aoa.
func (g *Globals) emitter(c *chart.Chart, aoa float64) (*output.Emitter, output.Writer) {
	w := output.New(g.Format, g.Stdout)
	var filtered output.Writer = w
	if g.Quiet {
		filtered = quietWriter{w}
	}
	return output.NewEmitter(filtered, c, aoa), w
}

// setRunID tags NDJSON records with id. Text output ignores it.
func setRunID(w output.Writer, id string) {
	if nd, ok := w.(*output.NDJSONWriter); ok {
		nd.SetRunID(id)
	}
}

// quietWriter drops info and warning records.
type quietWriter struct {
	output.Writer
}

func (quietWriter) WriteInfo(string) error    { return nil }
func (quietWriter) WriteWarning(string) error { return nil }

// VersionCmd shows version information
type VersionCmd struct{}

// Run executes the version command
func (v *VersionCmd) Run(globals *Globals) error {
	var err error
	if globals.Format == "ndjson" {
		_, err = io.WriteString(globals.Stdout, `{"type":"version","version":"`+Version+`","commit":"`+Commit+`"}`+"\n")
	} else {
		_, err = io.WriteString(globals.Stdout, "shotbridge version "+Version+" ("+Commit+")\n")
	}
	return err
}

// Version information (set at build time)
var (
	Version = "dev"
	Commit  = "none"
)
