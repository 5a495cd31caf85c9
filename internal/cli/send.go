package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vburojevic/shotbridge/internal/domain"
	"github.com/vburojevic/shotbridge/internal/gspro"
	"github.com/vburojevic/shotbridge/internal/output"
)

// SendCmd sends one hand-built shot, or a heartbeat, and prints what the
// simulator answers.
type SendCmd struct {
	SimulatorFlags

	Speed      float64       `default:"145" help:"Ball speed (mph)"`
	SpinAxis   float64       `name:"spin-axis" default:"0" help:"Spin axis (degrees, negative is draw)"`
	TotalSpin  float64       `name:"total-spin" default:"2600" help:"Total spin (rpm)"`
	HLA        float64       `name:"hla" default:"0" help:"Horizontal launch angle (degrees)"`
	VLA        float64       `name:"vla" default:"12" help:"Vertical launch angle (degrees)"`
	ShotNumber int           `name:"shot-number" default:"1" help:"Shot number to report"`
	Heartbeat  bool          `help:"Send a heartbeat instead of a shot"`
	Wait       time.Duration `default:"3s" help:"How long to wait for a response"`
}

// Run executes the send command
func (c *SendCmd) Run(globals *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.run(ctx, globals)
}

func (c *SendCmd) shot() *domain.Shot {
	if c.Heartbeat {
		return domain.NewHeartbeat()
	}
	ball := domain.NewBallData(c.Speed, c.SpinAxis, c.TotalSpin, c.HLA, c.VLA)
	return domain.NewBallShot(ball, c.ShotNumber)
}

func (c *SendCmd) run(ctx context.Context, globals *Globals) error {
	if !c.Heartbeat && c.Speed <= 0 {
		return outputErrorCommon(globals, CodeInvalidFlags, "--speed must be positive", "Pass --heartbeat to send a heartbeat")
	}

	emitter, w := globals.emitter(nil, 0)
	session, err := c.connect(ctx, globals)
	if err != nil {
		return err
	}
	defer session.Close()

	shot := c.shot()
	if err := session.SendShot(shot); err != nil {
		return outputErrorCommon(globals, CodeSendFailed, err.Error(), "")
	}
	if shot.IsHeartbeat() {
		// The emitter only counts heartbeats; send shows it.
		if err := w.WriteShot(output.EventSent, shot, nil); err != nil {
			return err
		}
	}
	emitter.ShotSent(shot)

	err = c.awaitResponse(ctx, globals, session, emitter)
	emitter.WriteSummary(withSessionHistory(output.Summary{}, session, globals.logger()))
	if err != nil {
		return err
	}
	return emitter.Err()
}

// awaitResponse prints messages until the shot is acknowledged or rejected,
// or until --wait elapses. A heartbeat has no acknowledgement, so it always
// waits the full time.
func (c *SendCmd) awaitResponse(ctx context.Context, globals *Globals, session *gspro.Session, emitter *output.Emitter) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.Wait)
	defer cancel()

	for {
		msgs, err := session.RecvData(waitCtx)
		for _, msg := range msgs {
			emitter.MessageReceived(msg)
		}
		if !c.Heartbeat && answered(msgs) {
			return nil
		}
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, context.DeadlineExceeded):
			if !c.Heartbeat {
				emitter.Warning("no response to shot within " + c.Wait.String())
			}
			return nil
		default:
			return outputError(globals, err)
		}
	}
}

// answered reports whether msgs settle a shot: received or rejected.
func answered(msgs []domain.InboundMessage) bool {
	for _, msg := range msgs {
		if msg.Code == domain.CodeShotReceived || msg.IsError() {
			return true
		}
	}
	return false
}
