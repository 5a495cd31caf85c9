// Package bridge forwards shots parsed from the launch monitor log to the
// simulator and consumes what the simulator sends back.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vburojevic/shotbridge/internal/domain"
	"github.com/vburojevic/shotbridge/internal/logger"
	"github.com/vburojevic/shotbridge/internal/shotlog"
)

// Simulator is the connection the bridge drives. *gspro.Session satisfies it.
type Simulator interface {
	SendShot(shot *domain.Shot) error
	SendHeartbeat() error
	RecvData(ctx context.Context) ([]domain.InboundMessage, error)
}

// Observer is told about traffic as it happens. Calls come from several
// goroutines.
type Observer interface {
	ShotSent(shot *domain.Shot)
	MessageReceived(msg domain.InboundMessage)
}

// Stats counts bridge traffic.
type Stats struct {
	ShotsSent      int
	HeartbeatsSent int
	Messages       int
	ErrorMessages  int
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithHeartbeat sends a heartbeat every interval. Zero disables heartbeats.
func WithHeartbeat(interval time.Duration) Option {
	return func(b *Bridge) { b.heartbeat = interval }
}

// WithClock sets the clock driving the heartbeat ticker.
func WithClock(clk clock.Clock) Option {
	return func(b *Bridge) {
		if clk != nil {
			b.clock = clk
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger.OrNop(l)
	}
}

func WithObserver(o Observer) Option {
	return func(b *Bridge) { b.observer = o }
}

// Bridge runs the tailer, the response reader and the optional heartbeat
// as one unit. The first of them to fail stops the others.
type Bridge struct {
	id        string
	tailer    *shotlog.Tailer
	sim       Simulator
	observer  Observer
	logger    *zap.Logger
	clock     clock.Clock
	heartbeat time.Duration

	mu     sync.Mutex
	player *domain.Player
	stats  Stats
}

// New creates a bridge with a fresh run ID.
func New(tailer *shotlog.Tailer, sim Simulator, opts ...Option) *Bridge {
	b := &Bridge{
		id:     uuid.NewString(),
		tailer: tailer,
		sim:    sim,
		logger: logger.OrNop(nil),
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(zap.String("run_id", b.id))
	return b
}

// ID identifies this bridge run in logs and output.
func (b *Bridge) ID() string {
	return b.id
}

// Player returns the last player information the simulator reported, or nil.
func (b *Bridge) Player() *domain.Player {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.player == nil {
		return nil
	}
	p := *b.player
	return &p
}

// Stats returns a snapshot of the counters.
func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Run bridges until ctx is cancelled, which returns nil, or until one of
// the loops fails, which returns that error.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info("bridge starting",
		zap.String("log_path", b.tailer.Path()),
		zap.Duration("heartbeat", b.heartbeat),
	)

	// The ticker exists before any loop starts so no tick is missed.
	var ticker *clock.Ticker
	if b.heartbeat > 0 {
		ticker = b.clock.Ticker(b.heartbeat)
		defer ticker.Stop()
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return b.tailer.Run(gctx, b.forward)
	})
	group.Go(func() error {
		return b.receive(gctx)
	})
	if ticker != nil {
		group.Go(func() error {
			return b.beat(gctx, ticker)
		})
	}

	err := group.Wait()
	stats := b.Stats()
	fields := []zap.Field{
		zap.Int("shots_sent", stats.ShotsSent),
		zap.Int("heartbeats_sent", stats.HeartbeatsSent),
		zap.Int("messages", stats.Messages),
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		b.logger.Info("bridge stopped", fields...)
		return nil
	}
	b.logger.Error("bridge failed", append(fields, zap.Error(err))...)
	return err
}

func (b *Bridge) forward(shot *domain.Shot) error {
	if err := b.sim.SendShot(shot); err != nil {
		return err
	}
	b.mu.Lock()
	b.stats.ShotsSent++
	b.mu.Unlock()
	if b.observer != nil {
		b.observer.ShotSent(shot)
	}
	return nil
}

func (b *Bridge) receive(ctx context.Context) error {
	for {
		msgs, err := b.sim.RecvData(ctx)
		for _, msg := range msgs {
			b.handleMessage(msg)
		}
		if err != nil {
			return fmt.Errorf("receive from simulator: %w", err)
		}
	}
}

func (b *Bridge) handleMessage(msg domain.InboundMessage) {
	b.mu.Lock()
	b.stats.Messages++
	if msg.IsError() {
		b.stats.ErrorMessages++
	}
	if msg.Code == domain.CodePlayerInfo && msg.Player != nil {
		p := *msg.Player
		b.player = &p
	}
	b.mu.Unlock()

	switch {
	case msg.IsError():
		b.logger.Warn("simulator reported an error", zap.Int("code", msg.Code), zap.String("message", msg.Text()))
	case msg.Code == domain.CodePlayerInfo:
		b.logger.Info("player information", playerFields(msg.Player)...)
	case msg.Code == domain.CodeReady:
		b.logger.Info("simulator ready for next shot")
	case msg.Code == domain.CodeRoundEnded:
		b.logger.Info("round ended")
	}

	if b.observer != nil {
		b.observer.MessageReceived(msg)
	}
}

func (b *Bridge) beat(ctx context.Context, ticker *clock.Ticker) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := b.sim.SendHeartbeat(); err != nil {
				return fmt.Errorf("send heartbeat: %w", err)
			}
			b.mu.Lock()
			b.stats.HeartbeatsSent++
			b.mu.Unlock()
		}
	}
}

func playerFields(p *domain.Player) []zap.Field {
	if p == nil {
		return nil
	}
	var fields []zap.Field
	if p.Handed != nil {
		fields = append(fields, zap.String("handed", *p.Handed))
	}
	if p.Club != nil {
		fields = append(fields, zap.String("club", *p.Club))
	}
	if p.DistanceToTarget != nil {
		fields = append(fields, zap.Float64("distance_to_target", *p.DistanceToTarget))
	}
	return fields
}
