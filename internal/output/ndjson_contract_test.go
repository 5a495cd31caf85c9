package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vburojevic/shotbridge/internal/chart"
	"github.com/vburojevic/shotbridge/internal/domain"
)

func decodeAll(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	dec := json.NewDecoder(bytes.NewReader(buf.Bytes()))
	var out []map[string]any
	for {
		var m map[string]any
		err := dec.Decode(&m)
		if err == nil {
			out = append(out, m)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
	}
	return out
}

func getByType(t *testing.T, items []map[string]any, typ string) map[string]any {
	t.Helper()
	for _, m := range items {
		if m["type"] == typ {
			return m
		}
	}
	require.FailNowf(t, "missing NDJSON type", "type=%s", typ)
	return nil
}

func TestNDJSONWriterContract_AllTypesHaveSchemaVersion(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNDJSONWriter(buf)
	w.SetRunID("run-1")

	shot := domain.NewBallShot(domain.NewBallData(145.3, 1.5, 6200.5, -2.1, 12.4), 42)
	msg := "Shot received successfully"

	require.NoError(t, w.WriteShot(EventSent, shot, &chart.Comparison{LaunchDelta: 1}))
	require.NoError(t, w.WriteShot(EventSent, domain.NewHeartbeat(), nil))
	require.NoError(t, w.WriteResponse(domain.InboundMessage{Code: 200, Message: &msg, Extra: map[string]any{}}))
	require.NoError(t, w.WriteReady(Ready{Mode: "run", LogPath: "/tmp/output_log.txt", Simulator: "127.0.0.1:921", RunID: "run-1"}))
	require.NoError(t, w.WriteInfo("info"))
	require.NoError(t, w.WriteWarning("warn"))
	require.NoError(t, w.WriteError("E_CODE", "something went wrong", "try again"))
	require.NoError(t, w.WriteSummary(Summary{ShotsParsed: 1, ShotsSent: 1}))
	require.NoError(t, w.WriteChartEntry(chart.Entry{BallSpeed: 200, AttackAngle: -10, Launch: 2.5, Spin: 3450, Carry: 318, Score: 300}))

	items := decodeAll(t, buf)
	require.Len(t, items, 9)

	for _, it := range items {
		require.Contains(t, it, "type")
		require.Contains(t, it, "schemaVersion")
		require.EqualValues(t, SchemaVersion, it["schemaVersion"])
	}

	shotOut := getByType(t, items, "shot")
	require.Equal(t, "sent", shotOut["event"])
	require.Equal(t, "run-1", shotOut["run_id"])
	require.Contains(t, shotOut, "timestamp")
	require.Contains(t, shotOut, "chart")

	resp := getByType(t, items, "response")
	require.EqualValues(t, 200, resp["code"])
	require.NotContains(t, resp, "extra")
	require.NotContains(t, resp, "player")

	errOut := getByType(t, items, "error")
	require.Equal(t, "E_CODE", errOut["code"])
	require.Equal(t, "try again", errOut["hint"])

	summary := getByType(t, items, "summary")
	require.Equal(t, "run-1", summary["run_id"])

	entry := getByType(t, items, "chart_entry")
	require.EqualValues(t, 318, entry["carry"])
	require.EqualValues(t, -10, entry["attackAngle"])
}
