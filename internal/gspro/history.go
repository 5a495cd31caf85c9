package gspro

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vburojevic/shotbridge/internal/domain"
)

// DefaultHistorySize is the number of exchanges a session remembers.
const DefaultHistorySize = 1000

// Direction says which way an exchange travelled.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// HistoryEntry is one shot sent to, or one message received from, the
// simulator. Exactly one of Shot and Message is set.
type HistoryEntry struct {
	Time      time.Time
	Direction Direction
	Shot      *domain.Shot
	Message   *domain.InboundMessage
}

// History is a thread-safe circular buffer of session exchanges.
type History struct {
	mu     sync.RWMutex
	clock  clock.Clock
	buffer []HistoryEntry
	size   int
	head   int
	count  int
}

// NewHistory creates a history holding at most size entries.
func NewHistory(size int, clk clock.Clock) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	if clk == nil {
		clk = clock.New()
	}
	return &History{
		clock:  clk,
		buffer: make([]HistoryEntry, size),
		size:   size,
	}
}

// Push adds an entry, overwriting the oldest once full.
func (h *History) Push(entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buffer[h.head] = entry
	h.head = (h.head + 1) % h.size
	if h.count < h.size {
		h.count++
	}
}

// AddShot records a deep copy of an outgoing shot.
func (h *History) AddShot(shot *domain.Shot) {
	cp := *shot
	if shot.BallData != nil {
		ball := *shot.BallData
		cp.BallData = &ball
	}
	opts := &cp.ShotDataOptions
	opts.LaunchMonitorIsReady = copyBool(opts.LaunchMonitorIsReady)
	opts.LaunchMonitorBallDetected = copyBool(opts.LaunchMonitorBallDetected)
	opts.IsHeartbeat = copyBool(opts.IsHeartbeat)
	h.Push(HistoryEntry{Time: h.clock.Now(), Direction: DirectionSent, Shot: &cp})
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

// AddMessage records an inbound message.
func (h *History) AddMessage(msg domain.InboundMessage) {
	h.Push(HistoryEntry{Time: h.clock.Now(), Direction: DirectionReceived, Message: &msg})
}

// GetAll returns all entries, oldest first.
func (h *History) GetAll() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last(h.count)
}

func (h *History) last(n int) []HistoryEntry {
	if n > h.count {
		n = h.count
	}
	if n < 0 {
		n = 0
	}
	result := make([]HistoryEntry, n)
	start := (h.head - n + h.size) % h.size
	for i := 0; i < n; i++ {
		result[i] = h.buffer[(start+i)%h.size]
	}
	return result
}

// Count returns the number of entries held.
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// CountByDirection returns entry counts grouped by direction.
func (h *History) CountByDirection() map[Direction]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	counts := make(map[Direction]int)
	for _, e := range h.last(h.count) {
		counts[e.Direction]++
	}
	return counts
}
