package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vburojevic/shotbridge/internal/domain"
	"github.com/vburojevic/shotbridge/internal/gspro"
	"github.com/vburojevic/shotbridge/internal/output"
	"github.com/vburojevic/shotbridge/internal/shotlog"
)

// Stable error codes for error records.
const (
	CodeInvalidConfig  = "INVALID_CONFIG"
	CodeInvalidFlags   = "INVALID_FLAGS"
	CodeLogNotFound    = "LOG_NOT_FOUND"
	CodeReadFailed     = "READ_FAILED"
	CodeConnectFailed  = "CONNECT_FAILED"
	CodeSendFailed     = "SEND_FAILED"
	CodePeerClosed     = "SIMULATOR_CLOSED"
	CodeProtocolError  = "PROTOCOL_ERROR"
	CodeTimeout        = "TIMEOUT"
	CodeSimulatorError = "SIMULATOR_ERROR"
	CodeInternal       = "INTERNAL_ERROR"
)

// outputErrorCommon normalizes error emission across commands, respecting
// ndjson vs text formats so scripts always get machine-readable failures.
func outputErrorCommon(globals *Globals, code, message, hint string) error {
	if globals != nil {
		output.New(globals.Format, errorSink(globals)).WriteError(code, message, hint)
	}
	return &CLIError{Code: code, Message: message, Hint: hint}
}

// errorSink is stdout for NDJSON, so error records stay in the stream, and
// stderr for text.
func errorSink(globals *Globals) io.Writer {
	if globals.Format == "ndjson" {
		return globals.Stdout
	}
	return globals.Stderr
}

// outputError classifies err and emits it.
func outputError(globals *Globals, err error) error {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	code, hint := classify(err)
	emitted := outputErrorCommon(globals, code, err.Error(), hint).(*CLIError)
	emitted.Err = err
	return emitted
}

// classify maps an error to its code and a hint for the user.
func classify(err error) (code, hint string) {
	switch {
	case errors.Is(err, shotlog.ErrLogNotFound):
		return CodeLogNotFound, "Start GSPro once so it creates output_log.txt, or pass --log-path"
	case errors.Is(err, gspro.ErrPeerClosed):
		return CodePeerClosed, "GSPro closed the Open Connect socket; restart the connector in GSPro and run again"
	case errors.Is(err, gspro.ErrNotConnected):
		return CodeConnectFailed, "Connect before sending"
	case errors.Is(err, gspro.ErrFrameDesync),
		errors.Is(err, gspro.ErrMalformedFrame),
		errors.Is(err, gspro.ErrIncompleteFrame),
		errors.Is(err, gspro.ErrFrameTooLarge),
		errors.Is(err, domain.ErrMissingCode):
		return CodeProtocolError, "The simulator sent data that is not Open Connect JSON; check host and port"
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout, ""
	default:
		return CodeInternal, ""
	}
}

// connectError wraps a failed dial.
func connectError(globals *Globals, addr string, err error) error {
	return outputErrorCommon(globals, CodeConnectFailed,
		fmt.Sprintf("connect to %s: %v", addr, err),
		"Is GSPro running with the Open Connect API enabled? Check --host and --port",
	)
}
