package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vburojevic/shotbridge/internal/domain"
	"github.com/vburojevic/shotbridge/internal/gspro"
	"github.com/vburojevic/shotbridge/internal/output"
	"github.com/vburojevic/shotbridge/internal/shotlog"
)

// ReplayCmd parses a recorded GSPro log from the beginning
type ReplayCmd struct {
	SimulatorFlags
	ChartFlags

	File   string        `arg:"" help:"GSPro output_log.txt (or a copy of one) to replay"`
	Send   bool          `help:"Send every shot to the simulator"`
	Delay  time.Duration `default:"1s" help:"Pause between sent shots"`
	Settle time.Duration `default:"2s" help:"How long to keep reading responses after the last shot"`
}

// Run executes the replay command
func (c *ReplayCmd) Run(globals *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.run(ctx, globals)
}

func (c *ReplayCmd) run(ctx context.Context, globals *Globals) error {
	f, err := os.Open(c.File)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return outputErrorCommon(globals, CodeLogNotFound, fmt.Sprintf("log file not found: %s", c.File), "Check the path passed to replay")
		}
		return outputErrorCommon(globals, CodeReadFailed, err.Error(), "")
	}
	defer f.Close()

	ch, err := c.ChartFlags.load(globals)
	if err != nil {
		return err
	}
	emitter, _ := globals.emitter(ch, c.AOA)
	parser := shotlog.NewParser(globals.logger().Named("parser"))

	if !c.Send {
		_, err := shotlog.Replay(ctx, f, parser, func(shot *domain.Shot) error {
			emitter.ShotParsed(shot)
			return nil
		})
		emitter.WriteSummary(withParserStats(output.Summary{}, parser.Stats()))
		if err != nil && !(ctx.Err() != nil && errors.Is(err, ctx.Err())) {
			return outputError(globals, err)
		}
		return emitter.Err()
	}

	session, err := c.connect(ctx, globals)
	if err != nil {
		return err
	}
	defer session.Close()
	emitter.Ready(output.Ready{LogPath: c.File, Simulator: session.Config().Addr(), Mode: "replay"})

	recvCtx, stopRecv := context.WithCancel(ctx)
	defer stopRecv()
	group, gctx := errgroup.WithContext(recvCtx)
	group.Go(func() error {
		return drainResponses(gctx, session, emitter)
	})
	group.Go(func() error {
		defer stopRecv()
		sent := 0
		_, err := shotlog.Replay(gctx, f, parser, func(shot *domain.Shot) error {
			emitter.ShotParsed(shot)
			if sent > 0 {
				if err := sleep(gctx, c.Delay); err != nil {
					return err
				}
			}
			if err := session.SendShot(shot); err != nil {
				return err
			}
			sent++
			emitter.ShotSent(shot)
			return nil
		})
		if err != nil {
			return err
		}
		return sleep(gctx, c.Settle)
	})

	err = group.Wait()
	summary := withParserStats(output.Summary{}, parser.Stats())
	emitter.WriteSummary(withSessionHistory(summary, session, globals.logger()))
	if err != nil && !errors.Is(err, context.Canceled) {
		return outputError(globals, err)
	}
	return emitter.Err()
}

// drainResponses emits simulator messages until ctx is done.
func drainResponses(ctx context.Context, session *gspro.Session, emitter *output.Emitter) error {
	for {
		msgs, err := session.RecvData(ctx)
		for _, msg := range msgs {
			emitter.MessageReceived(msg)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
