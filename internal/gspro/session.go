package gspro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/shotbridge/internal/domain"
	"github.com/vburojevic/shotbridge/internal/logger"
)

const (
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 921
	DefaultDialTimeout  = 5 * time.Second
	DefaultWriteTimeout = 5 * time.Second

	// ReadBufferSize is the most a single read takes off the socket.
	ReadBufferSize = 2048

	chunkQueueSize = 64
)

var (
	// ErrNotConnected is returned by operations on a session that has not
	// connected or has been closed.
	ErrNotConnected = errors.New("not connected to simulator")
	// ErrPeerClosed is returned once the simulator has closed its end.
	ErrPeerClosed = errors.New("simulator closed the connection")
	errConnected  = errors.New("already connected to simulator")
)

// SessionConfig describes where the simulator listens.
type SessionConfig struct {
	Host         string
	Port         int
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	HistorySize  int
}

// DefaultSessionConfig returns the Open Connect defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Host:         DefaultHost,
		Port:         DefaultPort,
		DialTimeout:  DefaultDialTimeout,
		WriteTimeout: DefaultWriteTimeout,
		HistorySize:  DefaultHistorySize,
	}
}

// Addr returns host:port.
func (c SessionConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Dialer opens the simulator connection. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger.OrNop(l)
	}
}

// WithClock sets the clock used to timestamp history entries.
func WithClock(clk clock.Clock) SessionOption {
	return func(s *Session) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithDialer replaces the TCP dialer.
func WithDialer(d Dialer) SessionOption {
	return func(s *Session) {
		if d != nil {
			s.dialer = d
		}
	}
}

// Session is a client connection to the simulator's Open Connect socket.
//
// A background goroutine owns all reads from the connection and queues what
// it gets, which lets DataAvailable answer without blocking. SendShot,
// RecvData and DataAvailable are safe for concurrent use.
type Session struct {
	cfg     SessionConfig
	dialer  Dialer
	logger  *zap.Logger
	clock   clock.Clock
	history *History

	writeMu sync.Mutex
	recvMu  sync.Mutex
	decoder *FrameDecoder

	mu     sync.Mutex
	conn   net.Conn
	chunks chan []byte
	done   chan struct{}
	stop   chan struct{}
	// readErr is written by the reader before it closes done.
	readErr error
	wg      sync.WaitGroup
}

// NewSession creates an unconnected session.
func NewSession(cfg SessionConfig, opts ...SessionOption) *Session {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	s := &Session{
		cfg:    cfg,
		dialer: &net.Dialer{},
		logger: logger.OrNop(nil),
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.history = NewHistory(cfg.HistorySize, s.clock)
	return s
}

// Config returns the session configuration.
func (s *Session) Config() SessionConfig {
	return s.cfg
}

// Connect dials the simulator. The dial is bounded by ctx and DialTimeout.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return errConnected
	}

	if s.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DialTimeout)
		defer cancel()
	}

	addr := s.cfg.Addr()
	s.logger.Info("connecting to simulator", zap.String("addr", addr))
	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to simulator at %s: %w", addr, err)
	}

	s.conn = conn
	s.chunks = make(chan []byte, chunkQueueSize)
	s.done = make(chan struct{})
	s.stop = make(chan struct{})
	s.readErr = nil
	s.decoder = NewFrameDecoder()

	s.wg.Add(1)
	go s.readLoop(conn, s.chunks, s.done, s.stop)

	s.logger.Info("connected to simulator", zap.String("addr", addr))
	return nil
}

func (s *Session) readLoop(conn net.Conn, chunks chan<- []byte, done, stop chan struct{}) {
	defer s.wg.Done()
	defer close(done)

	buf := make([]byte, ReadBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case chunks <- chunk:
			case <-stop:
				s.readErr = net.ErrClosed
				return
			}
		}
		if err != nil {
			s.readErr = err
			return
		}
	}
}

// SendShot serialises shot and writes all of it to the simulator.
func (s *Session) SendShot(shot *domain.Shot) error {
	if shot == nil {
		return errors.New("send shot: nil shot")
	}
	data, err := json.Marshal(shot)
	if err != nil {
		return fmt.Errorf("encode shot %d: %w", shot.ShotNumber, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	conn := s.current()
	if conn == nil {
		return ErrNotConnected
	}

	s.logger.Info("sending shot",
		zap.Int("shot_number", shot.ShotNumber),
		zap.Bool("heartbeat", shot.IsHeartbeat()),
		zap.ByteString("payload", data),
	)

	if s.cfg.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	if err := writeFull(conn, data); err != nil {
		return fmt.Errorf("send shot %d: %w", shot.ShotNumber, err)
	}
	s.history.AddShot(shot)
	return nil
}

// SendHeartbeat sends a shot carrying no ball data.
func (s *Session) SendHeartbeat() error {
	return s.SendShot(domain.NewHeartbeat())
}

// writeFull keeps writing until p is exhausted.
func writeFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		p = p[n:]
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}

// RecvData waits for the next chunk from the simulator and returns the
// messages it completes. A message split across reads is returned by the
// call that receives its last byte, so a call may return no messages.
//
// Once the simulator closes the connection, RecvData returns ErrPeerClosed.
func (s *Session) RecvData(ctx context.Context) ([]domain.InboundMessage, error) {
	s.recvMu.Lock()
	defer s.recvMu.Unlock()

	s.mu.Lock()
	chunks, done, decoder := s.chunks, s.done, s.decoder
	s.mu.Unlock()
	if chunks == nil {
		return nil, ErrNotConnected
	}

	var chunk []byte
	select {
	case chunk = <-chunks:
	case <-done:
		select {
		case chunk = <-chunks:
		default:
			return nil, s.readFailure()
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.logger.Debug("received data", zap.Int("bytes", len(chunk)))

	frames, ferr := decoder.Feed(chunk)
	msgs := make([]domain.InboundMessage, 0, len(frames))
	for _, frame := range frames {
		msg, err := domain.DecodeInbound(frame)
		if err != nil {
			return msgs, fmt.Errorf("decode simulator message: %w", err)
		}
		s.logger.Info("simulator message",
			zap.Int("code", msg.Code),
			zap.String("message", msg.Text()),
		)
		s.history.AddMessage(msg)
		msgs = append(msgs, msg)
	}
	if ferr != nil {
		return msgs, fmt.Errorf("decode simulator stream: %w", ferr)
	}
	return msgs, nil
}

func (s *Session) readFailure() error {
	err := s.readErr
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return ErrPeerClosed
	case errors.Is(err, net.ErrClosed):
		return ErrNotConnected
	default:
		return fmt.Errorf("read from simulator: %w", err)
	}
}

// DataAvailable reports, without blocking, whether RecvData would return
// immediately: data is queued or the connection has ended.
func (s *Session) DataAvailable() bool {
	s.mu.Lock()
	chunks, done := s.chunks, s.done
	s.mu.Unlock()
	if chunks == nil {
		return false
	}
	if len(chunks) > 0 {
		return true
	}
	select {
	case <-done:
		return true
	default:
		return false
	}
}

// Close shuts the connection and waits for the reader to exit. It is safe
// to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	conn, stop := s.conn, s.stop
	s.conn = nil
	s.chunks = nil
	s.mu.Unlock()
	if conn == nil {
		return nil
	}

	close(stop)
	err := conn.Close()
	s.wg.Wait()
	s.logger.Info("disconnected from simulator")
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close simulator connection: %w", err)
	}
	return nil
}

// History returns every recorded exchange, oldest first.
func (s *Session) History() []HistoryEntry {
	return s.history.GetAll()
}

// HistoryBuffer exposes the underlying history.
func (s *Session) HistoryBuffer() *History {
	return s.history
}

func (s *Session) current() net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}
