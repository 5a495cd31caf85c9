package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vburojevic/shotbridge/internal/chart"
	"github.com/vburojevic/shotbridge/internal/domain"
)

// Shot events.
const (
	EventParsed   = "parsed"
	EventSent     = "sent"
	EventCompared = "compared"
)

// Writer renders command output. NDJSONWriter and TextWriter implement it.
type Writer interface {
	WriteShot(event string, shot *domain.Shot, cmp *chart.Comparison) error
	WriteResponse(msg domain.InboundMessage) error
	WriteReady(r Ready) error
	WriteInfo(message string) error
	WriteWarning(message string) error
	WriteError(code, message, hint string) error
	WriteSummary(s Summary) error
	WriteChartEntry(e chart.Entry) error
}

// New returns the writer for format ("ndjson" or "text").
func New(format string, w io.Writer) Writer {
	if format == "text" {
		return NewTextWriter(w)
	}
	return NewNDJSONWriter(w)
}

// Ready describes what a long-running command is attached to.
type Ready struct {
	LogPath   string
	Simulator string
	RunID     string
	Mode      string
}

// Summary totals a command run.
type Summary struct {
	RunID          string `json:"run_id,omitempty"`
	Lines          int    `json:"lines,omitempty"`
	ShotsParsed    int    `json:"shots_parsed"`
	ShotsSent      int    `json:"shots_sent"`
	HeartbeatsSent int    `json:"heartbeats_sent,omitempty"`
	Messages       int    `json:"messages"`
	ErrorMessages  int    `json:"error_messages,omitempty"`
	// Launch-vars records the parser could not turn into a shot.
	UnmatchedRecords int `json:"unmatched_records,omitempty"`
	ParseErrors      int `json:"parse_errors,omitempty"`
	// Exchanges held in the session history when the command ended.
	HistorySent     int `json:"history_sent,omitempty"`
	HistoryReceived int `json:"history_received,omitempty"`
}

// ShotOutput is one shot, parsed from the log or sent to the simulator.
type ShotOutput struct {
	Type          string            `json:"type"` // Always "shot"
	SchemaVersion int               `json:"schemaVersion"`
	Timestamp     string            `json:"timestamp"`
	Event         string            `json:"event"`
	RunID         string            `json:"run_id,omitempty"`
	Shot          *domain.Shot      `json:"shot"`
	Chart         *chart.Comparison `json:"chart,omitempty"`
}

// ResponseOutput is one message received from the simulator.
type ResponseOutput struct {
	Type          string         `json:"type"` // Always "response"
	SchemaVersion int            `json:"schemaVersion"`
	Timestamp     string         `json:"timestamp"`
	RunID         string         `json:"run_id,omitempty"`
	Code          int            `json:"code"`
	Message       *string        `json:"message,omitempty"`
	Player        *domain.Player `json:"player,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// ReadyOutput signals that tailing is active
type ReadyOutput struct {
	Type          string `json:"type"` // Always "ready"
	SchemaVersion int    `json:"schemaVersion"`
	Timestamp     string `json:"timestamp"`
	Mode          string `json:"mode"`
	LogPath       string `json:"log_path,omitempty"`
	Simulator     string `json:"simulator,omitempty"`
	RunID         string `json:"run_id,omitempty"`
}

// InfoOutput represents an informational message
type InfoOutput struct {
	Type          string `json:"type"` // Always "info"
	SchemaVersion int    `json:"schemaVersion"`
	Message       string `json:"message"`
}

// WarningOutput represents a warning message
type WarningOutput struct {
	Type          string `json:"type"` // Always "warning"
	SchemaVersion int    `json:"schemaVersion"`
	Message       string `json:"message"`
}

// ErrorOutput represents a structured error
type ErrorOutput struct {
	Type          string `json:"type"` // Always "error"
	SchemaVersion int    `json:"schemaVersion"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	Hint          string `json:"hint,omitempty"`
}

type SummaryOutput struct {
	Type          string `json:"type"` // Always "summary"
	SchemaVersion int    `json:"schemaVersion"`
	Summary
}

type ChartEntryOutput struct {
	Type          string `json:"type"` // Always "chart_entry"
	SchemaVersion int    `json:"schemaVersion"`
	chart.Entry
}

// NDJSONWriter writes one JSON record per line
type NDJSONWriter struct {
	encoder *json.Encoder
	clock   clock.Clock
	runID   string
}

// NewNDJSONWriter creates a new NDJSON writer
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &NDJSONWriter{encoder: enc, clock: clock.New()}
}

// SetRunID tags shot and response records with a bridge run ID.
func (w *NDJSONWriter) SetRunID(id string) { w.runID = id }

func (w *NDJSONWriter) now() string {
	return w.clock.Now().UTC().Format(time.RFC3339Nano)
}

func (w *NDJSONWriter) WriteShot(event string, shot *domain.Shot, cmp *chart.Comparison) error {
	return w.encoder.Encode(&ShotOutput{
		Type:          "shot",
		SchemaVersion: SchemaVersion,
		Timestamp:     w.now(),
		Event:         event,
		RunID:         w.runID,
		Shot:          shot,
		Chart:         cmp,
	})
}

func (w *NDJSONWriter) WriteResponse(msg domain.InboundMessage) error {
	out := &ResponseOutput{
		Type:          "response",
		SchemaVersion: SchemaVersion,
		Timestamp:     w.now(),
		RunID:         w.runID,
		Code:          msg.Code,
		Message:       msg.Message,
		Player:        msg.Player,
	}
	if len(msg.Extra) > 0 {
		out.Extra = msg.Extra
	}
	return w.encoder.Encode(out)
}

// WriteReady outputs a ready signal indicating tailing is active
func (w *NDJSONWriter) WriteReady(r Ready) error {
	return w.encoder.Encode(&ReadyOutput{
		Type:          "ready",
		SchemaVersion: SchemaVersion,
		Timestamp:     w.now(),
		Mode:          r.Mode,
		LogPath:       r.LogPath,
		Simulator:     r.Simulator,
		RunID:         r.RunID,
	})
}

// WriteInfo outputs an informational message
func (w *NDJSONWriter) WriteInfo(message string) error {
	return w.encoder.Encode(&InfoOutput{Type: "info", SchemaVersion: SchemaVersion, Message: message})
}

// WriteWarning outputs a warning message
func (w *NDJSONWriter) WriteWarning(message string) error {
	return w.encoder.Encode(&WarningOutput{Type: "warning", SchemaVersion: SchemaVersion, Message: message})
}

// WriteError outputs an error
func (w *NDJSONWriter) WriteError(code, message, hint string) error {
	return w.encoder.Encode(&ErrorOutput{
		Type:          "error",
		SchemaVersion: SchemaVersion,
		Code:          code,
		Message:       message,
		Hint:          hint,
	})
}

func (w *NDJSONWriter) WriteSummary(s Summary) error {
	if s.RunID == "" {
		s.RunID = w.runID
	}
	return w.encoder.Encode(&SummaryOutput{Type: "summary", SchemaVersion: SchemaVersion, Summary: s})
}

func (w *NDJSONWriter) WriteChartEntry(e chart.Entry) error {
	return w.encoder.Encode(&ChartEntryOutput{Type: "chart_entry", SchemaVersion: SchemaVersion, Entry: e})
}

// WriteRaw outputs any value as one record
func (w *NDJSONWriter) WriteRaw(v any) error {
	return w.encoder.Encode(v)
}
