package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/shotbridge/internal/config"
	"github.com/vburojevic/shotbridge/internal/gspro"
	"github.com/vburojevic/shotbridge/internal/shotlog"
)

const (
	shotLine      = "[12:01:05] GSPro: LaunchExt Vars: sp 145.300, el 12.400, az -2.100, ts 6200.500, sa 1.500, cy 5, id 42 (ok)"
	otherShotLine = "[12:02:11] GSPro: LaunchExt Vars: sp 98.250, el 24.100, az 3.300, ts 7450.000, sa -4.750, cy 0, id 44"
	noiseLine     = "[12:01:00] Unity: frame time 16ms"
	brokenLine    = "[12:01:30] GSPro: LaunchExt Vars: sp 101.000, el"
)

// syncBuffer is a bytes.Buffer safe for a command writing from one
// goroutine while the test reads from another.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Bytes() []byte {
	return []byte(b.String())
}

// testGlobals creates a Globals struct with captured stdout/stderr
func testGlobals(format string) (*Globals, *syncBuffer, *syncBuffer) {
	stdout := &syncBuffer{}
	stderr := &syncBuffer{}
	cfg := config.Default()
	cfg.Tail.PollInterval = 5 * time.Millisecond
	return &Globals{
		Format: format,
		Stdout: stdout,
		Stderr: stderr,
		Config: cfg,
	}, stdout, stderr
}

func decodeRecords(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m), "line: %s", scanner.Text())
		out = append(out, m)
	}
	return out
}

func recordsOfType(records []map[string]any, typ string) []map[string]any {
	var out []map[string]any
	for _, r := range records {
		if r["type"] == typ {
			out = append(out, r)
		}
	}
	return out
}

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "output_log.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func appendLog(t *testing.T, path string, lines ...string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(strings.Join(lines, "\n") + "\n")
	require.NoError(t, err)
}

// responder is a fake simulator that acknowledges every ball shot with
// code 200 and ignores heartbeats.
type responder struct {
	ln       net.Listener
	mu       sync.Mutex
	conn     net.Conn
	received []map[string]any
	done     chan struct{}
}

func newResponder(t *testing.T) *responder {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	r := &responder{ln: ln, done: make(chan struct{})}
	go r.serve()
	t.Cleanup(func() {
		_ = ln.Close()
		r.mu.Lock()
		if r.conn != nil {
			_ = r.conn.Close()
		}
		r.mu.Unlock()
		<-r.done
	})
	return r
}

func (r *responder) serve() {
	defer close(r.done)
	conn, err := r.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()

	dec := json.NewDecoder(conn)
	for {
		var frame map[string]any
		if err := dec.Decode(&frame); err != nil {
			return
		}
		r.mu.Lock()
		r.received = append(r.received, frame)
		r.mu.Unlock()
		if opts, ok := frame["ShotDataOptions"].(map[string]any); ok && opts["IsHeartbeat"] == true {
			continue
		}
		if _, err := conn.Write([]byte(`{"Code":200,"Message":"Shot received successfully"}`)); err != nil {
			return
		}
	}
}

func (r *responder) flags() SimulatorFlags {
	return SimulatorFlags{Host: "127.0.0.1", Port: r.ln.Addr().(*net.TCPAddr).Port}
}

func (r *responder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.received)
}

// closedPort returns a port nothing listens on.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

// --- Config Command Tests ---

func TestConfigShowCmd_Run(t *testing.T) {
	t.Run("outputs config in text format", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		cmd := &ConfigShowCmd{}

		err := cmd.Run(globals)
		require.NoError(t, err)

		output := stdout.String()
		assert.Contains(t, output, "Current Configuration:")
		assert.Contains(t, output, "address:       127.0.0.1:921")
		assert.Contains(t, output, "poll_interval: 5ms")
		assert.Contains(t, output, "log_path:")
	})

	t.Run("outputs config in NDJSON format", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		globals.Config.Heartbeat.Interval = 30 * time.Second
		cmd := &ConfigShowCmd{}

		err := cmd.Run(globals)
		require.NoError(t, err)

		var result map[string]any
		err = json.Unmarshal(stdout.Bytes(), &result)
		require.NoError(t, err)

		assert.Equal(t, "config", result["type"])
		assert.Equal(t, "30s", result["heartbeat"])
		sim := result["simulator"].(map[string]any)
		assert.Equal(t, "127.0.0.1", sim["host"])
		assert.EqualValues(t, 921, sim["port"])
		assert.Contains(t, result, "log")
	})
}

func TestConfigPathCmd_Run(t *testing.T) {
	t.Run("outputs path info in text format", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		cmd := &ConfigPathCmd{}

		err := cmd.Run(globals)
		require.NoError(t, err)

		output := stdout.String()
		// Either shows the path or says no config found
		assert.True(t, strings.Contains(output, "Config file:") || strings.Contains(output, "No configuration file found"))
	})

	t.Run("reports the file named by the environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bridge.yaml")
		require.NoError(t, os.WriteFile(path, []byte("format: text\n"), 0o644))
		t.Setenv("SHOTBRIDGE_CONFIG", path)

		globals, stdout, _ := testGlobals("ndjson")
		require.NoError(t, (&ConfigPathCmd{}).Run(globals))

		var result map[string]any
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
		assert.Equal(t, "config_path", result["type"])
		assert.Equal(t, path, result["path"])
	})
}

func TestConfigGenerateCmd_Run(t *testing.T) {
	globals, stdout, _ := testGlobals("text")
	require.NoError(t, (&ConfigGenerateCmd{}).Run(globals))
	assert.Contains(t, stdout.String(), "# shotbridge configuration file")

	path := filepath.Join(t.TempDir(), "shotbridge.yaml")
	require.NoError(t, os.WriteFile(path, stdout.Bytes(), 0o644))

	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err, "generated config must load")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, config.Default().Simulator, cfg.Simulator)
	assert.Equal(t, config.Default().Log, cfg.Log)
}

func TestNewGlobalsWithConfig(t *testing.T) {
	t.Run("config fills unset flags", func(t *testing.T) {
		cfg := config.Default()
		cfg.Format = "text"
		cfg.Quiet = true

		g := NewGlobalsWithConfig(&CLI{}, cfg, nil)
		assert.Equal(t, "text", g.Format)
		assert.True(t, g.Quiet)
		assert.False(t, g.Verbose)
		assert.NotNil(t, g.Logger)
	})

	t.Run("flags win", func(t *testing.T) {
		g := NewGlobalsWithConfig(&CLI{Format: "ndjson", Verbose: true}, nil, nil)
		assert.Equal(t, "ndjson", g.Format)
		assert.True(t, g.Verbose)
		assert.Equal(t, config.Default().Simulator, g.Config.Simulator)
	})
}

// --- Version / Examples ---

func TestVersionCmd_Run(t *testing.T) {
	t.Run("ndjson", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		require.NoError(t, (&VersionCmd{}).Run(globals))

		var result map[string]any
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
		assert.Equal(t, "version", result["type"])
		assert.Equal(t, Version, result["version"])
	})

	t.Run("text", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		require.NoError(t, (&VersionCmd{}).Run(globals))
		assert.Equal(t, "shotbridge version dev (none)\n", stdout.String())
	})
}

func TestExamplesCmd_Run(t *testing.T) {
	t.Run("every command has examples", func(t *testing.T) {
		for _, name := range exampleOrder {
			ex, ok := commandExamples[name]
			require.True(t, ok, name)
			assert.NotEmpty(t, ex.Examples, name)
			for _, e := range ex.Examples {
				assert.True(t, strings.HasPrefix(e.Command, "shotbridge "+name), e.Command)
			}
		}
	})

	t.Run("json for one command", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		require.NoError(t, (&ExamplesCmd{Command: "send", JSON: true}).Run(globals))

		var all AllExamples
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &all))
		require.Len(t, all.Commands, 1)
		assert.Equal(t, "send", all.Commands[0].Name)
		assert.NotEmpty(t, all.Workflows)
	})

	t.Run("text lists workflows", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		require.NoError(t, (&ExamplesCmd{}).Run(globals))
		assert.Contains(t, stdout.String(), "SHOTBRIDGE USAGE EXAMPLES")
		assert.Contains(t, stdout.String(), "## first_connection")
	})

	t.Run("unknown command", func(t *testing.T) {
		globals, _, _ := testGlobals("text")
		err := (&ExamplesCmd{Command: "query"}).Run(globals)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "run, tail, replay")
	})
}

// --- Chart ---

func TestChartCmd_Run(t *testing.T) {
	t.Run("full chart as chart_entry records", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		require.NoError(t, (&ChartCmd{}).Run(globals))

		records := decodeRecords(t, stdout.Bytes())
		assert.Len(t, records, 13*11)
		assert.Equal(t, "chart_entry", records[0]["type"])
		assert.EqualValues(t, 200, records[0]["ballSpeed"])
		assert.EqualValues(t, -10, records[0]["attackAngle"])
	})

	t.Run("speed selects the nearest row", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		require.NoError(t, (&ChartCmd{Speed: 158}).Run(globals))

		records := decodeRecords(t, stdout.Bytes())
		require.Len(t, records, 11)
		for _, r := range records {
			assert.EqualValues(t, 160, r["ballSpeed"])
		}
	})

	t.Run("single entry", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		require.NoError(t, (&ChartCmd{Speed: 160, AOA: 4, Entry: true}).Run(globals))

		records := decodeRecords(t, stdout.Bytes())
		require.Len(t, records, 1)
		assert.EqualValues(t, 14.4, records[0]["launch"])
		assert.EqualValues(t, 2300, records[0]["spin"])
		assert.EqualValues(t, 275, records[0]["carry"])
	})

	t.Run("compare a shot", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		require.NoError(t, (&ChartCmd{Speed: 160, AOA: 4, Launch: 11, Spin: 3100}).Run(globals))

		records := decodeRecords(t, stdout.Bytes())
		require.Len(t, records, 1)
		assert.Equal(t, "shot", records[0]["type"])
		assert.Equal(t, "compared", records[0]["event"])
		cmp := records[0]["chart"].(map[string]any)
		assert.InDelta(t, -3.4, cmp["launchDelta"], 1e-9)
		assert.InDelta(t, 800, cmp["spinDelta"], 1e-9)
	})

	t.Run("column for one angle of attack", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		require.NoError(t, (&ChartCmd{AOA: 0.4, Column: true}).Run(globals))

		records := decodeRecords(t, stdout.Bytes())
		require.Len(t, records, 13)
		assert.EqualValues(t, 200, records[0]["ballSpeed"])
		assert.EqualValues(t, 80, records[12]["ballSpeed"])
		for _, r := range records {
			assert.EqualValues(t, 0, r["attackAngle"])
		}
	})

	t.Run("column rejects speed", func(t *testing.T) {
		globals, _, _ := testGlobals("ndjson")
		err := (&ChartCmd{Speed: 120, Column: true}).Run(globals)

		var cliErr *CLIError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, CodeInvalidFlags, cliErr.Code)
	})

	t.Run("entry without speed", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		err := (&ChartCmd{Entry: true}).Run(globals)

		var cliErr *CLIError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, CodeInvalidFlags, cliErr.Code)
		assert.Contains(t, stdout.String(), `"code":"INVALID_FLAGS"`)
	})

	t.Run("text table", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		require.NoError(t, (&ChartCmd{Speed: 80}).Run(globals))

		out := stdout.String()
		var header string
		for _, line := range strings.Split(out, "\n") {
			if strings.Contains(line, "speed") {
				header = line
				break
			}
		}
		require.NotEmpty(t, header, "header row in:\n%s", out)
		assert.Contains(t, header, "aoa -10")
		assert.Contains(t, header, "aoa +10")
		assert.NotContains(t, out, "SPEED")
		assert.Contains(t, out, "80")
		assert.Contains(t, out, "mygolfdistance.com")
	})
}

// --- Errors ---

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"missing log", shotlog.ErrLogNotFound, CodeLogNotFound},
		{"peer closed", errors.Join(errors.New("receive"), gspro.ErrPeerClosed), CodePeerClosed},
		{"desync", gspro.ErrFrameDesync, CodeProtocolError},
		{"too large", gspro.ErrFrameTooLarge, CodeProtocolError},
		{"timeout", context.DeadlineExceeded, CodeTimeout},
		{"other", errors.New("boom"), CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := classify(tt.err)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestOutputErrorCommon(t *testing.T) {
	t.Run("ndjson goes to stdout", func(t *testing.T) {
		globals, stdout, stderr := testGlobals("ndjson")
		err := outputErrorCommon(globals, CodeConnectFailed, "no route", "check host")

		var cliErr *CLIError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, "no route", cliErr.Error())
		assert.Empty(t, stderr.String())

		records := decodeRecords(t, stdout.Bytes())
		require.Len(t, records, 1)
		assert.Equal(t, "error", records[0]["type"])
		assert.Equal(t, "check host", records[0]["hint"])
	})

	t.Run("text goes to stderr", func(t *testing.T) {
		globals, stdout, stderr := testGlobals("text")
		_ = outputErrorCommon(globals, CodeConnectFailed, "no route", "")
		assert.Empty(t, stdout.String())
		assert.Contains(t, stderr.String(), "CONNECT_FAILED")
	})

	t.Run("already emitted errors pass through", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		first := &CLIError{Code: CodeSendFailed, Message: "x"}
		assert.Same(t, first, outputError(globals, first))
		assert.Empty(t, stdout.String())
	})
}

func TestQuietWriter(t *testing.T) {
	globals, stdout, _ := testGlobals("ndjson")
	globals.Quiet = true
	emitter, _ := globals.emitter(nil, 0)

	emitter.Info("hello")
	emitter.Warning("careful")
	emitter.Error(CodeInternal, "bad", "")

	records := decodeRecords(t, stdout.Bytes())
	require.Len(t, records, 1)
	assert.Equal(t, "error", records[0]["type"])
}

// --- Send ---

func TestSendCmd(t *testing.T) {
	t.Run("shot is acknowledged", func(t *testing.T) {
		sim := newResponder(t)
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &SendCmd{SimulatorFlags: sim.flags(), Speed: 150, VLA: 11.5, TotalSpin: 2400, ShotNumber: 3, Wait: 2 * time.Second}

		require.NoError(t, cmd.run(context.Background(), globals))

		records := decodeRecords(t, stdout.Bytes())
		shots := recordsOfType(records, "shot")
		require.Len(t, shots, 1)
		assert.Equal(t, "sent", shots[0]["event"])
		shot := shots[0]["shot"].(map[string]any)
		assert.EqualValues(t, 3, shot["ShotNumber"])
		assert.EqualValues(t, 150, shot["BallData"].(map[string]any)["Speed"])

		responses := recordsOfType(records, "response")
		require.Len(t, responses, 1)
		assert.EqualValues(t, 200, responses[0]["code"])

		summary := recordsOfType(records, "summary")
		require.Len(t, summary, 1)
		assert.EqualValues(t, 1, summary[0]["shots_sent"])
		assert.EqualValues(t, 1, summary[0]["history_sent"])
		assert.EqualValues(t, 1, summary[0]["history_received"])
		assert.Equal(t, 1, sim.count())
	})

	t.Run("heartbeat waits and reports", func(t *testing.T) {
		sim := newResponder(t)
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &SendCmd{SimulatorFlags: sim.flags(), Heartbeat: true, Wait: 50 * time.Millisecond}

		require.NoError(t, cmd.run(context.Background(), globals))

		records := decodeRecords(t, stdout.Bytes())
		shots := recordsOfType(records, "shot")
		require.Len(t, shots, 1)
		opts := shots[0]["shot"].(map[string]any)["ShotDataOptions"].(map[string]any)
		assert.Equal(t, true, opts["IsHeartbeat"])
		assert.Empty(t, recordsOfType(records, "warning"))

		summary := recordsOfType(records, "summary")
		require.Len(t, summary, 1)
		assert.EqualValues(t, 1, summary[0]["heartbeats_sent"])
		assert.EqualValues(t, 1, summary[0]["history_sent"])
		assert.NotContains(t, summary[0], "history_received")
	})

	t.Run("connection refused", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &SendCmd{SimulatorFlags: SimulatorFlags{Host: "127.0.0.1", Port: closedPort(t)}, Speed: 100, Wait: time.Second}

		err := cmd.run(context.Background(), globals)
		var cliErr *CLIError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, CodeConnectFailed, cliErr.Code)
		assert.Contains(t, stdout.String(), "CONNECT_FAILED")
	})

	t.Run("rejects non-positive speed", func(t *testing.T) {
		globals, _, _ := testGlobals("ndjson")
		err := (&SendCmd{Speed: 0}).run(context.Background(), globals)
		var cliErr *CLIError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, CodeInvalidFlags, cliErr.Code)
	})
}

// --- Replay ---

func TestReplayCmd(t *testing.T) {
	t.Run("prints shots from the start of the file", func(t *testing.T) {
		path := writeLog(t, noiseLine, shotLine, brokenLine, noiseLine, otherShotLine)
		globals, stdout, _ := testGlobals("ndjson")

		require.NoError(t, (&ReplayCmd{File: path}).run(context.Background(), globals))

		records := decodeRecords(t, stdout.Bytes())
		shots := recordsOfType(records, "shot")
		require.Len(t, shots, 2)
		assert.EqualValues(t, 42, shots[0]["shot"].(map[string]any)["ShotNumber"])
		assert.EqualValues(t, 44, shots[1]["shot"].(map[string]any)["ShotNumber"])

		summary := recordsOfType(records, "summary")
		require.Len(t, summary, 1)
		assert.EqualValues(t, 2, summary[0]["shots_parsed"])
		assert.EqualValues(t, 0, summary[0]["shots_sent"])
		assert.EqualValues(t, 1, summary[0]["unmatched_records"])
		assert.NotContains(t, summary[0], "history_sent")
	})

	t.Run("attaches chart comparisons", func(t *testing.T) {
		path := writeLog(t, shotLine)
		globals, stdout, _ := testGlobals("ndjson")

		cmd := &ReplayCmd{File: path, ChartFlags: ChartFlags{Chart: true, AOA: -2}}
		require.NoError(t, cmd.run(context.Background(), globals))

		shots := recordsOfType(decodeRecords(t, stdout.Bytes()), "shot")
		require.Len(t, shots, 1)
		cell := shots[0]["chart"].(map[string]any)["cell"].(map[string]any)
		assert.EqualValues(t, 150, cell["ballSpeed"])
		assert.EqualValues(t, -2, cell["attackAngle"])
	})

	t.Run("sends every shot", func(t *testing.T) {
		sim := newResponder(t)
		path := writeLog(t, shotLine, otherShotLine)
		globals, stdout, _ := testGlobals("ndjson")

		cmd := &ReplayCmd{SimulatorFlags: sim.flags(), File: path, Send: true, Settle: 200 * time.Millisecond}
		require.NoError(t, cmd.run(context.Background(), globals))

		records := decodeRecords(t, stdout.Bytes())
		assert.Len(t, recordsOfType(records, "ready"), 1)
		sent := 0
		for _, r := range recordsOfType(records, "shot") {
			if r["event"] == "sent" {
				sent++
			}
		}
		assert.Equal(t, 2, sent)
		assert.Len(t, recordsOfType(records, "response"), 2)
		assert.Equal(t, 2, sim.count())

		summary := recordsOfType(records, "summary")
		require.Len(t, summary, 1)
		assert.EqualValues(t, 2, summary[0]["history_sent"])
		assert.EqualValues(t, 2, summary[0]["history_received"])
	})

	t.Run("missing file", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		err := (&ReplayCmd{File: filepath.Join(t.TempDir(), "nope.txt")}).run(context.Background(), globals)

		var cliErr *CLIError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, CodeLogNotFound, cliErr.Code)
		assert.Contains(t, stdout.String(), "LOG_NOT_FOUND")
	})
}

// --- Tail / Run ---

func waitForRecord(t *testing.T, out *syncBuffer, fragment string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), fragment)
	}, 3*time.Second, 5*time.Millisecond, "waiting for %s in %s", fragment, out.String())
}

func TestTailCmd(t *testing.T) {
	t.Run("prints appended shots and stops at the limit", func(t *testing.T) {
		path := writeLog(t, shotLine)
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &TailCmd{LogPath: path, MaxShots: 1}

		errc := make(chan error, 1)
		go func() { errc <- cmd.run(context.Background(), globals) }()

		waitForRecord(t, stdout, `"type":"ready"`)
		appendLog(t, path, noiseLine, otherShotLine)

		select {
		case err := <-errc:
			require.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("tail did not stop at --max-shots")
		}

		records := decodeRecords(t, stdout.Bytes())
		shots := recordsOfType(records, "shot")
		require.Len(t, shots, 1, "content present before start is skipped")
		assert.EqualValues(t, 44, shots[0]["shot"].(map[string]any)["ShotNumber"])

		summary := recordsOfType(records, "summary")
		require.Len(t, summary, 1)
		assert.EqualValues(t, 2, summary[0]["lines"])
	})

	t.Run("missing log", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		err := (&TailCmd{LogPath: filepath.Join(t.TempDir(), "output_log.txt")}).run(context.Background(), globals)

		var cliErr *CLIError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, CodeLogNotFound, cliErr.Code)
		assert.ErrorIs(t, err, shotlog.ErrLogNotFound)
		assert.Contains(t, stdout.String(), "LOG_NOT_FOUND")
	})

	t.Run("cancellation is a clean stop", func(t *testing.T) {
		path := writeLog(t)
		globals, stdout, _ := testGlobals("ndjson")
		ctx, cancel := context.WithCancel(context.Background())

		errc := make(chan error, 1)
		go func() { errc <- (&TailCmd{LogPath: path}).run(ctx, globals) }()
		waitForRecord(t, stdout, `"type":"ready"`)
		cancel()

		select {
		case err := <-errc:
			require.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("tail did not stop on cancel")
		}
	})
}

func TestRunCmd(t *testing.T) {
	t.Run("bridges appended shots", func(t *testing.T) {
		sim := newResponder(t)
		path := writeLog(t, noiseLine)
		globals, stdout, _ := testGlobals("ndjson")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cmd := &RunCmd{SimulatorFlags: sim.flags(), LogPath: path}
		errc := make(chan error, 1)
		go func() { errc <- cmd.run(ctx, globals) }()

		waitForRecord(t, stdout, `"type":"ready"`)
		appendLog(t, path, brokenLine, shotLine)
		waitForRecord(t, stdout, `"type":"response"`)
		cancel()

		select {
		case err := <-errc:
			require.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("run did not stop on cancel")
		}

		records := decodeRecords(t, stdout.Bytes())
		ready := recordsOfType(records, "ready")
		require.Len(t, ready, 1)
		assert.Equal(t, "bridge", ready[0]["mode"])
		runID := ready[0]["run_id"]
		assert.NotEmpty(t, runID)

		shots := recordsOfType(records, "shot")
		require.Len(t, shots, 1)
		assert.Equal(t, "sent", shots[0]["event"])
		assert.Equal(t, runID, shots[0]["run_id"])

		summary := recordsOfType(records, "summary")
		require.Len(t, summary, 1)
		assert.EqualValues(t, 1, summary[0]["shots_parsed"])
		assert.EqualValues(t, 1, summary[0]["shots_sent"])
		assert.EqualValues(t, 1, summary[0]["messages"])
		assert.EqualValues(t, 2, summary[0]["lines"])
		assert.EqualValues(t, 1, summary[0]["unmatched_records"])
		assert.EqualValues(t, 1, summary[0]["history_sent"])
		assert.EqualValues(t, 1, summary[0]["history_received"])
	})

	t.Run("connection refused", func(t *testing.T) {
		path := writeLog(t)
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &RunCmd{SimulatorFlags: SimulatorFlags{Host: "127.0.0.1", Port: closedPort(t)}, LogPath: path}

		err := cmd.run(context.Background(), globals)
		var cliErr *CLIError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, CodeConnectFailed, cliErr.Code)
		assert.NotContains(t, stdout.String(), `"type":"ready"`)
	})

	t.Run("missing log after connecting", func(t *testing.T) {
		sim := newResponder(t)
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &RunCmd{SimulatorFlags: sim.flags(), LogPath: filepath.Join(t.TempDir(), "output_log.txt")}

		err := cmd.run(context.Background(), globals)
		var cliErr *CLIError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, CodeLogNotFound, cliErr.Code)

		records := decodeRecords(t, stdout.Bytes())
		assert.Len(t, recordsOfType(records, "summary"), 1)
		assert.Len(t, recordsOfType(records, "error"), 1)
	})
}
