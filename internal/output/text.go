package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/benbjohnson/clock"

	"github.com/vburojevic/shotbridge/internal/chart"
	"github.com/vburojevic/shotbridge/internal/domain"
)

// Tolerances used to color chart deltas in text output.
const (
	launchTolerance = 1.5
	spinTolerance   = 300
)

// TextWriter writes styled, human-readable lines
type TextWriter struct {
	w     io.Writer
	clock clock.Clock
}

// NewTextWriter creates a new text writer
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w, clock: clock.New()}
}

func (w *TextWriter) line(s string) error {
	_, err := io.WriteString(w.w, Styles.Timestamp.Render(w.clock.Now().Format("15:04:05.000"))+" "+s+"\n")
	return err
}

func (w *TextWriter) WriteShot(event string, shot *domain.Shot, cmp *chart.Comparison) error {
	if shot.IsHeartbeat() || shot.BallData == nil {
		return w.line(Styles.Heartbeat.Render("HEARTBEAT " + event))
	}

	b := shot.BallData
	var sb strings.Builder
	sb.WriteString(Styles.Shot.Render("SHOT #" + strconv.Itoa(shot.ShotNumber)))
	sb.WriteString(" " + event)
	sb.WriteString(field("speed", b.Speed, 1))
	sb.WriteString(field("vla", b.VLA, 1))
	sb.WriteString(field("hla", b.HLA, 1))
	sb.WriteString(field("spin", b.TotalSpin, 0))
	sb.WriteString(field("axis", b.SpinAxis, 1))
	if cmp != nil {
		c := cmp.Cell
		sb.WriteString(Styles.Label.Render(fmt.Sprintf("  | chart %g/%+g ", c.BallSpeed, c.AttackAngle)))
		sb.WriteString(Styles.Label.Render("launch ") + DeltaStyle(cmp.LaunchDelta, launchTolerance).Render(fmt.Sprintf("%+.1f", cmp.LaunchDelta)))
		sb.WriteString(Styles.Label.Render(" spin ") + DeltaStyle(cmp.SpinDelta, spinTolerance).Render(fmt.Sprintf("%+.0f", cmp.SpinDelta)))
		sb.WriteString(Styles.Label.Render(" carry ") + Styles.Value.Render(fmt.Sprintf("%.0f", c.Carry)))
	}
	return w.line(sb.String())
}

func field(name string, v float64, prec int) string {
	return "  " + Styles.Label.Render(name+" ") + Styles.Value.Render(strconv.FormatFloat(v, 'f', prec, 64))
}

func (w *TextWriter) WriteResponse(msg domain.InboundMessage) error {
	s := CodeStyle(msg.Code).Render(strconv.Itoa(msg.Code))
	if text := msg.Text(); text != "" {
		s += " " + text
	}
	if p := msg.Player; p != nil {
		var parts []string
		if p.Handed != nil {
			parts = append(parts, *p.Handed)
		}
		if p.Club != nil {
			parts = append(parts, *p.Club)
		}
		if p.DistanceToTarget != nil {
			parts = append(parts, strconv.FormatFloat(*p.DistanceToTarget, 'f', -1, 64)+"y")
		}
		if len(parts) > 0 {
			s += " " + Styles.Player.Render("["+strings.Join(parts, " ")+"]")
		}
	}
	return w.line(s)
}

func (w *TextWriter) WriteReady(r Ready) error {
	s := Styles.Success.Render("READY") + " " + r.Mode
	if r.LogPath != "" {
		s += Styles.Label.Render(" log=") + r.LogPath
	}
	if r.Simulator != "" {
		s += Styles.Label.Render(" simulator=") + r.Simulator
	}
	return w.line(s)
}

func (w *TextWriter) WriteInfo(message string) error {
	return w.line(Styles.Info.Render(message))
}

func (w *TextWriter) WriteWarning(message string) error {
	_, err := io.WriteString(w.w, Styles.Warning.Render("Warning:")+" "+message+"\n")
	return err
}

// WriteError outputs a styled error
func (w *TextWriter) WriteError(code, message, hint string) error {
	line := Styles.Danger.Render("Error") + " " + Styles.Warning.Render("["+code+"]") + ": " + message + "\n"
	if hint != "" {
		line += Styles.Label.Render("Hint: ") + hint + "\n"
	}
	_, err := io.WriteString(w.w, line)
	return err
}

// WriteSummary outputs a styled summary
func (w *TextWriter) WriteSummary(s Summary) error {
	line := "\n" + Styles.Header.Render("Summary") + "\n"
	line += Styles.Label.Render("Shots parsed: ") + Styles.Value.Render(strconv.Itoa(s.ShotsParsed)) + " | "
	line += Styles.Label.Render("Sent: ") + Styles.Value.Render(strconv.Itoa(s.ShotsSent)) + " | "
	line += Styles.Label.Render("Responses: ") + Styles.Value.Render(strconv.Itoa(s.Messages))
	if s.ErrorMessages > 0 {
		line += " | " + Styles.Danger.Render("Errors: "+strconv.Itoa(s.ErrorMessages))
	}
	if bad := s.UnmatchedRecords + s.ParseErrors; bad > 0 {
		line += " | " + Styles.Warning.Render("Unparsed records: "+strconv.Itoa(bad))
	}
	if s.HistorySent+s.HistoryReceived > 0 {
		line += " | " + Styles.Label.Render("History: ") +
			Styles.Value.Render(fmt.Sprintf("%d sent, %d received", s.HistorySent, s.HistoryReceived))
	}
	line += "\n"
	_, err := io.WriteString(w.w, line)
	return err
}

func (w *TextWriter) WriteChartEntry(e chart.Entry) error {
	_, err := fmt.Fprintf(w.w, "%s %s launch %s spin %s carry %s score %d\n",
		Styles.Label.Render(fmt.Sprintf("%3.0f mph", e.BallSpeed)),
		Styles.Label.Render(fmt.Sprintf("aoa %+3.0f", e.AttackAngle)),
		Styles.Value.Render(strconv.FormatFloat(e.Launch, 'f', 1, 64)),
		Styles.Value.Render(strconv.FormatFloat(e.Spin, 'f', 0, 64)),
		Styles.Value.Render(strconv.FormatFloat(e.Carry, 'f', 0, 64)),
		e.Score,
	)
	return err
}
