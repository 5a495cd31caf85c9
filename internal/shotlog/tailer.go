package shotlog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/shotbridge/internal/domain"
	"github.com/vburojevic/shotbridge/internal/logger"
)

// DefaultPollInterval is how long the tailer waits at end of file before
// checking for new content.
const DefaultPollInterval = 100 * time.Millisecond

// ErrLogNotFound is returned by Run when the log file does not exist.
var ErrLogNotFound = errors.New("log file not found")

// ShotHandler receives every shot parsed from new log content. Returning an
// error stops the tailer.
type ShotHandler func(shot *domain.Shot) error

// TailerOption configures a Tailer.
type TailerOption func(*Tailer)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) TailerOption {
	return func(t *Tailer) {
		if d > 0 {
			t.pollInterval = d
		}
	}
}

// WithClock sets the clock used for the end-of-file wait.
func WithClock(clk clock.Clock) TailerOption {
	return func(t *Tailer) {
		if clk != nil {
			t.clock = clk
		}
	}
}

// WithLogger sets the tailer logger. The parser logs through a child of it
// unless WithParser is also given.
func WithLogger(l *zap.Logger) TailerOption {
	return func(t *Tailer) {
		t.logger = logger.OrNop(l)
	}
}

// WithParser sets the line parser.
func WithParser(p *Parser) TailerOption {
	return func(t *Tailer) {
		t.parser = p
	}
}

// TailerStats counts tailer activity since Run started.
type TailerStats struct {
	Lines       int
	Shots       int
	Truncations int
	Dropped     int
	Parse       ParserStats
}

// Tailer follows a growing log file and parses every line appended after it
// starts. Content already in the file when Run opens it is skipped.
type Tailer struct {
	path         string
	pollInterval time.Duration
	clock        clock.Clock
	logger       *zap.Logger
	parser       *Parser

	ready     chan struct{}
	readyOnce sync.Once

	mu    sync.Mutex
	stats TailerStats
}

// NewTailer creates a tailer for the log file at path.
func NewTailer(path string, opts ...TailerOption) *Tailer {
	t := &Tailer{
		path:         path,
		pollInterval: DefaultPollInterval,
		clock:        clock.New(),
		logger:       logger.OrNop(nil),
		ready:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.parser == nil {
		t.parser = NewParser(t.logger.Named("parser"))
	}
	return t
}

// Path returns the file being tailed.
func (t *Tailer) Path() string {
	return t.path
}

// Ready is closed once the file is open and positioned at its end.
func (t *Tailer) Ready() <-chan struct{} {
	return t.ready
}

// Stats returns a snapshot of the counters.
func (t *Tailer) Stats() TailerStats {
	t.mu.Lock()
	stats := t.stats
	t.mu.Unlock()
	stats.Parse = t.parser.Stats()
	return stats
}

// Run tails the file until ctx is cancelled or handle returns an error.
// A missing file is reported immediately and never retried.
func (t *Tailer) Run(ctx context.Context, handle ShotHandler) error {
	f, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrLogNotFound, t.path)
		}
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	offset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("seek to end of log: %w", err)
	}
	t.logger.Info("tailing log", zap.String("path", t.path), zap.Int64("offset", offset))
	t.readyOnce.Do(func() { close(t.ready) })

	reader := bufio.NewReader(f)
	var partial []byte
	// Set while skipping the rest of a line already dropped as oversized.
	discarding := false

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, err := reader.ReadBytes('\n')
		offset += int64(len(chunk))
		if err == nil {
			line := append(partial, chunk...)
			partial = partial[:0]
			if discarding {
				discarding = false
				continue
			}
			if len(line) > maxLineBytes {
				t.dropLine(len(line))
				continue
			}
			if err := t.handleLine(line, handle); err != nil {
				return err
			}
			continue
		}
		if !errors.Is(err, io.EOF) {
			return fmt.Errorf("read log: %w", err)
		}
		// Keep the unterminated tail until its newline is written.
		if !discarding {
			partial = append(partial, chunk...)
			if len(partial) > maxLineBytes {
				t.dropLine(len(partial))
				partial = partial[:0]
				discarding = true
			}
		}

		truncated, err := t.truncated(f, offset)
		if err != nil {
			return err
		}
		if truncated {
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("rewind truncated log: %w", err)
			}
			reader.Reset(f)
			partial = partial[:0]
			discarding = false
			offset = 0
			t.mu.Lock()
			t.stats.Truncations++
			t.mu.Unlock()
			t.logger.Info("log truncated, reading from start", zap.String("path", t.path))
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.clock.After(t.pollInterval):
		}
	}
}

func (t *Tailer) truncated(f *os.File, offset int64) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat log: %w", err)
	}
	return info.Size() < offset, nil
}

func (t *Tailer) dropLine(n int) {
	t.mu.Lock()
	t.stats.Dropped++
	t.mu.Unlock()
	t.logger.Warn("dropping oversized log line", zap.Int("bytes", n), zap.Int("limit", maxLineBytes))
}

func (t *Tailer) handleLine(raw []byte, handle ShotHandler) error {
	line := normalizeLine(raw)

	t.mu.Lock()
	t.stats.Lines++
	t.mu.Unlock()

	shot := t.parser.Parse(line)
	if shot == nil {
		return nil
	}

	t.mu.Lock()
	t.stats.Shots++
	t.mu.Unlock()
	t.logger.Info("parsed shot", zap.Int("shot_number", shot.ShotNumber), zap.Stringer("shot", shot))

	if handle == nil {
		return nil
	}
	if err := handle(shot); err != nil {
		return fmt.Errorf("handle shot %d: %w", shot.ShotNumber, err)
	}
	return nil
}
