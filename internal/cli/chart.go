package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/vburojevic/shotbridge/internal/chart"
	"github.com/vburojevic/shotbridge/internal/domain"
	"github.com/vburojevic/shotbridge/internal/output"
)

// ChartCmd prints the optimal launch chart, one row or column of it, one
// entry, or a comparison of a shot against the nearest entry.
type ChartCmd struct {
	Speed  float64 `help:"Ball speed (mph); selects the nearest chart row"`
	AOA    float64 `name:"aoa" help:"Angle of attack (degrees) for --entry, --column and comparisons"`
	Entry  bool    `help:"Print only the entry nearest to --speed and --aoa"`
	Column bool    `help:"Print every ball speed at the angle of attack nearest to --aoa"`
	Launch float64 `help:"Launch angle (degrees) to compare against the nearest entry"`
	Spin   float64 `help:"Total spin (rpm) to compare against the nearest entry"`
}

// Run executes the chart command
func (c *ChartCmd) Run(globals *Globals) error {
	ch, err := chart.Load()
	if err != nil {
		return outputErrorCommon(globals, CodeInternal, err.Error(), "")
	}

	comparing := c.Launch != 0 || c.Spin != 0
	if (comparing || c.Entry) && c.Speed <= 0 {
		return outputErrorCommon(globals, CodeInvalidFlags, "--speed is required with --entry, --launch or --spin", "")
	}
	if c.Column && (comparing || c.Entry || c.Speed > 0) {
		return outputErrorCommon(globals, CodeInvalidFlags, "--column takes only --aoa", "Drop --speed, --entry, --launch and --spin")
	}

	w := output.New(globals.Format, globals.Stdout)
	switch {
	case comparing:
		ball := domain.NewBallData(c.Speed, 0, c.Spin, 0, c.Launch)
		cmp := ch.Compare(*ball, c.AOA)
		return w.WriteShot(output.EventCompared, domain.NewBallShot(ball, domain.UnsetShotNumber), &cmp)
	case c.Entry:
		return w.WriteChartEntry(ch.Nearest(c.Speed, c.AOA))
	case c.Column:
		aoa := ch.Nearest(ch.BallSpeeds()[0], c.AOA).AttackAngle
		return writeEntries(w, ch.RowByAttackAngle(aoa))
	}

	speeds := ch.BallSpeeds()
	if c.Speed > 0 {
		speeds = []float64{ch.Nearest(c.Speed, 0).BallSpeed}
	}
	if globals.Format == "text" {
		return renderChart(globals, ch, speeds)
	}
	if c.Speed > 0 {
		return writeEntries(w, ch.RowBySpeed(speeds[0]))
	}
	return writeEntries(w, ch.Entries())
}

func writeEntries(w output.Writer, entries []chart.Entry) error {
	for _, e := range entries {
		if err := w.WriteChartEntry(e); err != nil {
			return err
		}
	}
	return nil
}

// renderChart draws one table row per ball speed and one column per angle
// of attack. Each cell is launch/spin over carry, colored by its score.
func renderChart(globals *Globals, ch *chart.Chart, speeds []float64) error {
	header := []any{"speed"}
	for _, aoa := range ch.AttackAngles() {
		header = append(header, fmt.Sprintf("aoa %+g", aoa))
	}

	table := tablewriter.NewTable(globals.Stdout, tablewriter.WithHeaderAutoFormat(tw.Off))
	table.Header(header...)
	for _, speed := range speeds {
		row := []string{fmt.Sprintf("%g", speed)}
		for _, e := range ch.RowBySpeed(speed) {
			cell := fmt.Sprintf("%.1f/%.0f %.0fy", e.Launch, e.Spin, e.Carry)
			row = append(row, output.ScoreStyle(ch.LegendColor(e.Score)).Render(cell))
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if !globals.Quiet {
		_, err := fmt.Fprintf(globals.Stdout, "launch (deg) / spin (rpm), carry (yards). Source: %s\n", ch.Source())
		return err
	}
	return nil
}
