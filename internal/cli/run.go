package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vburojevic/shotbridge/internal/bridge"
	"github.com/vburojevic/shotbridge/internal/chart"
	"github.com/vburojevic/shotbridge/internal/domain"
	"github.com/vburojevic/shotbridge/internal/gspro"
	"github.com/vburojevic/shotbridge/internal/output"
	"github.com/vburojevic/shotbridge/internal/shotlog"
)

// SimulatorFlags select the Open Connect endpoint. Empty values fall back
// to the config.
type SimulatorFlags struct {
	Host string `help:"Open Connect host (default from config)"`
	Port int    `help:"Open Connect port (default from config)"`
}

func (f SimulatorFlags) sessionConfig(globals *Globals) gspro.SessionConfig {
	cfg := globals.config().SessionConfig()
	if f.Host != "" {
		cfg.Host = f.Host
	}
	if f.Port != 0 {
		cfg.Port = f.Port
	}
	return cfg
}

// connect dials the simulator and emits CONNECT_FAILED on failure.
func (f SimulatorFlags) connect(ctx context.Context, globals *Globals) (*gspro.Session, error) {
	cfg := f.sessionConfig(globals)
	session := gspro.NewSession(cfg, gspro.WithLogger(globals.logger().Named("gspro")))
	if err := session.Connect(ctx); err != nil {
		return nil, connectError(globals, cfg.Addr(), err)
	}
	return session, nil
}

// ChartFlags attach optimal-chart comparisons to shot output.
type ChartFlags struct {
	Chart bool    `help:"Compare each shot with the optimal launch chart"`
	AOA   float64 `name:"aoa" help:"Angle of attack in degrees for chart comparisons"`
}

func (f ChartFlags) load(globals *Globals) (*chart.Chart, error) {
	if !f.Chart {
		return nil, nil
	}
	c, err := chart.Load()
	if err != nil {
		return nil, outputErrorCommon(globals, CodeInternal, err.Error(), "")
	}
	return c, nil
}

// RunCmd tails the GSPro log and forwards every shot to the simulator.
type RunCmd struct {
	SimulatorFlags
	ChartFlags

	LogPath     string        `short:"p" name:"log-path" help:"GSPro output_log.txt to follow (default from config)"`
	Heartbeat   time.Duration `default:"${config_heartbeat}" help:"Heartbeat interval (0 disables)"`
	MaxDuration time.Duration `name:"max-duration" help:"Stop after this long (0 runs until interrupted)"`
}

// Run executes the run command
func (c *RunCmd) Run(globals *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := withMaxDuration(ctx, c.MaxDuration)
	defer cancel()
	return c.run(ctx, globals)
}

func (c *RunCmd) run(ctx context.Context, globals *Globals) error {
	cfg := globals.config()
	logger := globals.logger()
	logPath := c.LogPath
	if logPath == "" {
		logPath = cfg.LogPath()
	}

	ch, err := c.ChartFlags.load(globals)
	if err != nil {
		return err
	}
	emitter, w := globals.emitter(ch, c.AOA)

	session, err := c.connect(ctx, globals)
	if err != nil {
		return err
	}
	defer session.Close()

	tailer := shotlog.NewTailer(logPath,
		shotlog.WithPollInterval(cfg.Tail.PollInterval),
		shotlog.WithLogger(logger.Named("tailer")),
	)
	b := bridge.New(tailer, session,
		bridge.WithHeartbeat(c.Heartbeat),
		bridge.WithLogger(logger.Named("bridge")),
		bridge.WithObserver(emitter),
	)
	setRunID(w, b.ID())

	errc := make(chan error, 1)
	go func() {
		errc <- b.Run(ctx)
	}()

	select {
	case <-tailer.Ready():
		emitter.Ready(output.Ready{
			LogPath:   logPath,
			Simulator: session.Config().Addr(),
			RunID:     b.ID(),
			Mode:      "bridge",
		})
		err = <-errc
	case err = <-errc:
	}

	if player := b.Player(); player != nil {
		logger.Debug("last player", zap.Any("player", player))
	}
	stats := tailer.Stats()
	summary := output.Summary{RunID: b.ID(), Lines: stats.Lines, ShotsParsed: stats.Shots}
	summary = withParserStats(summary, stats.Parse)
	summary = withSessionHistory(summary, session, logger)
	emitter.WriteSummary(summary)
	if err != nil {
		return outputError(globals, err)
	}
	return emitter.Err()
}

// TailCmd follows the GSPro log and prints shots without a simulator.
type TailCmd struct {
	ChartFlags

	LogPath     string        `short:"p" name:"log-path" help:"GSPro output_log.txt to follow (default from config)"`
	MaxDuration time.Duration `name:"max-duration" help:"Stop after this long (0 runs until interrupted)"`
	MaxShots    int           `name:"max-shots" help:"Stop after this many shots (0 for unlimited)"`
}

var errMaxShots = errors.New("shot limit reached")

// Run executes the tail command
func (c *TailCmd) Run(globals *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := withMaxDuration(ctx, c.MaxDuration)
	defer cancel()
	return c.run(ctx, globals)
}

func (c *TailCmd) run(ctx context.Context, globals *Globals) error {
	cfg := globals.config()
	logPath := c.LogPath
	if logPath == "" {
		logPath = cfg.LogPath()
	}

	ch, err := c.ChartFlags.load(globals)
	if err != nil {
		return err
	}
	emitter, _ := globals.emitter(ch, c.AOA)

	tailer := shotlog.NewTailer(logPath,
		shotlog.WithPollInterval(cfg.Tail.PollInterval),
		shotlog.WithLogger(globals.logger().Named("tailer")),
	)

	errc := make(chan error, 1)
	go func() {
		shots := 0
		errc <- tailer.Run(ctx, func(shot *domain.Shot) error {
			emitter.ShotParsed(shot)
			shots++
			if c.MaxShots > 0 && shots >= c.MaxShots {
				return errMaxShots
			}
			return nil
		})
	}()

	select {
	case <-tailer.Ready():
		emitter.Ready(output.Ready{LogPath: logPath, Mode: "tail"})
		err = <-errc
	case err = <-errc:
	}

	stats := tailer.Stats()
	emitter.WriteSummary(withParserStats(output.Summary{Lines: stats.Lines}, stats.Parse))
	switch {
	case err == nil, errors.Is(err, errMaxShots):
		return emitter.Err()
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return emitter.Err()
	default:
		return outputError(globals, err)
	}
}

// historyLogLimit caps the exchanges logged at debug when a command ends.
const historyLogLimit = 20

// withSessionHistory adds the session's history counts to s and logs the
// most recent exchanges at debug.
func withSessionHistory(s output.Summary, session *gspro.Session, log *zap.Logger) output.Summary {
	h := session.HistoryBuffer()
	counts := h.CountByDirection()
	s.HistorySent = counts[gspro.DirectionSent]
	s.HistoryReceived = counts[gspro.DirectionReceived]

	entries := session.History()
	log.Debug("session history", zap.Int("held", h.Count()))
	for _, e := range entries[max(0, len(entries)-historyLogLimit):] {
		fields := []zap.Field{zap.Time("at", e.Time), zap.String("direction", string(e.Direction))}
		if e.Shot != nil {
			fields = append(fields, zap.Stringer("shot", e.Shot))
		}
		if e.Message != nil {
			fields = append(fields, zap.Int("code", e.Message.Code), zap.String("message", e.Message.Text()))
		}
		log.Debug("exchange", fields...)
	}
	return s
}

func withParserStats(s output.Summary, p shotlog.ParserStats) output.Summary {
	s.UnmatchedRecords = p.Missed
	s.ParseErrors = p.Errors
	return s
}

func withMaxDuration(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
