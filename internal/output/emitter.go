package output

import (
	"sync"

	"github.com/vburojevic/shotbridge/internal/chart"
	"github.com/vburojevic/shotbridge/internal/domain"
)

// Emitter serialises writes from concurrent producers and counts what it
// emits. It satisfies bridge.Observer.
type Emitter struct {
	mu      sync.Mutex
	w       Writer
	chart   *chart.Chart
	aoa     float64
	summary Summary
	err     error
}

// NewEmitter wraps w. With a chart, every emitted ball shot carries a
// comparison at the given angle of attack.
func NewEmitter(w Writer, c *chart.Chart, aoa float64) *Emitter {
	return &Emitter{w: w, chart: c, aoa: aoa}
}

func (e *Emitter) record(err error) {
	if err != nil && e.err == nil {
		e.err = err
	}
}

// Err returns the first write error.
func (e *Emitter) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *Emitter) compare(shot *domain.Shot) *chart.Comparison {
	if e.chart == nil || shot.BallData == nil {
		return nil
	}
	cmp := e.chart.Compare(*shot.BallData, e.aoa)
	return &cmp
}

// ShotParsed emits a shot read from the log.
func (e *Emitter) ShotParsed(shot *domain.Shot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.summary.ShotsParsed++
	e.record(e.w.WriteShot(EventParsed, shot, e.compare(shot)))
}

// ShotSent emits a shot delivered to the simulator. Heartbeats are counted
// but not emitted.
func (e *Emitter) ShotSent(shot *domain.Shot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if shot.IsHeartbeat() {
		e.summary.HeartbeatsSent++
		return
	}
	e.summary.ShotsSent++
	e.record(e.w.WriteShot(EventSent, shot, e.compare(shot)))
}

func (e *Emitter) MessageReceived(msg domain.InboundMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.summary.Messages++
	if msg.IsError() {
		e.summary.ErrorMessages++
	}
	e.record(e.w.WriteResponse(msg))
}

func (e *Emitter) Ready(r Ready) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(e.w.WriteReady(r))
}

func (e *Emitter) Info(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(e.w.WriteInfo(msg))
}

func (e *Emitter) Warning(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(e.w.WriteWarning(msg))
}

func (e *Emitter) Error(code, msg, hint string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(e.w.WriteError(code, msg, hint))
}

// Summary returns the counts so far.
func (e *Emitter) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summary
}

// WriteSummary emits the counts, merged with extra: lines read, run ID,
// parser and history counters, and shots parsed by a tailer that reports
// to the bridge rather than here.
func (e *Emitter) WriteSummary(extra Summary) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.summary
	s.RunID = extra.RunID
	s.Lines = extra.Lines
	s.ShotsParsed = max(s.ShotsParsed, extra.ShotsParsed)
	s.UnmatchedRecords = extra.UnmatchedRecords
	s.ParseErrors = extra.ParseErrors
	s.HistorySent = extra.HistorySent
	s.HistoryReceived = extra.HistoryReceived
	e.record(e.w.WriteSummary(s))
}
