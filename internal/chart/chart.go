// Package chart holds the optimal launch reference chart: for each ball
// speed and angle of attack, the launch angle and spin that maximise carry.
package chart

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/vburojevic/shotbridge/internal/domain"
)

//go:embed chart.yaml
var chartYAML []byte

// Entry is one chart cell.
type Entry struct {
	BallSpeed   float64 `json:"ballSpeed"`
	AttackAngle float64 `json:"attackAngle"`
	Launch      float64 `json:"launch"`
	Spin        float64 `json:"spin"`
	Carry       float64 `json:"carry"`
	Score       int     `json:"score"`
}

// Comparison measures a shot against the nearest chart cell. Deltas are
// shot minus chart.
type Comparison struct {
	Cell        Entry   `json:"cell"`
	LaunchDelta float64 `json:"launchDelta"`
	SpinDelta   float64 `json:"spinDelta"`
}

type document struct {
	Source string         `yaml:"source"`
	Legend map[int]string `yaml:"legend"`
	Rows   []struct {
		BallSpeed float64 `yaml:"ball_speed"`
		Cells     []struct {
			AttackAngle float64 `yaml:"aoa"`
			Launch      float64 `yaml:"launch"`
			Spin        float64 `yaml:"spin"`
			Carry       float64 `yaml:"carry"`
			Score       int     `yaml:"score"`
		} `yaml:"cells"`
	} `yaml:"rows"`
}

type key struct {
	speed, aoa float64
}

// Chart is an immutable, complete grid of entries.
type Chart struct {
	source  string
	legend  map[int]string
	entries map[key]Entry
	speeds  []float64
	angles  []float64
}

// Load parses the built-in chart.
func Load() (*Chart, error) {
	return Parse(chartYAML)
}

// Parse reads a chart document. Every ball speed must list the same angles
// of attack, each exactly once.
func Parse(data []byte) (*Chart, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse chart: %w", err)
	}
	if len(doc.Rows) == 0 {
		return nil, errors.New("parse chart: no rows")
	}

	c := &Chart{
		source:  doc.Source,
		legend:  doc.Legend,
		entries: make(map[key]Entry),
	}
	for i, row := range doc.Rows {
		if slices.Contains(c.speeds, row.BallSpeed) {
			return nil, fmt.Errorf("parse chart: duplicate ball speed %g", row.BallSpeed)
		}
		c.speeds = append(c.speeds, row.BallSpeed)

		var angles []float64
		for _, cell := range row.Cells {
			if slices.Contains(angles, cell.AttackAngle) {
				return nil, fmt.Errorf("parse chart: ball speed %g lists angle %g twice", row.BallSpeed, cell.AttackAngle)
			}
			angles = append(angles, cell.AttackAngle)
			c.entries[key{row.BallSpeed, cell.AttackAngle}] = Entry{
				BallSpeed:   row.BallSpeed,
				AttackAngle: cell.AttackAngle,
				Launch:      cell.Launch,
				Spin:        cell.Spin,
				Carry:       cell.Carry,
				Score:       cell.Score,
			}
		}
		slices.Sort(angles)
		if i == 0 {
			c.angles = angles
		} else if !slices.Equal(c.angles, angles) {
			return nil, fmt.Errorf("parse chart: ball speed %g has angles %v, want %v", row.BallSpeed, angles, c.angles)
		}
	}
	if len(c.angles) == 0 {
		return nil, errors.New("parse chart: no cells")
	}
	slices.Sort(c.speeds)
	slices.Reverse(c.speeds)
	return c, nil
}

// Source names where the chart values come from.
func (c *Chart) Source() string { return c.source }

// BallSpeeds returns the chart's ball speeds, highest first.
func (c *Chart) BallSpeeds() []float64 { return slices.Clone(c.speeds) }

// AttackAngles returns the chart's angles of attack, lowest first.
func (c *Chart) AttackAngles() []float64 { return slices.Clone(c.angles) }

// Lookup returns the cell at exactly speed and aoa.
func (c *Chart) Lookup(speed, aoa float64) (Entry, bool) {
	e, ok := c.entries[key{speed, aoa}]
	return e, ok
}

// RowBySpeed returns the cells for one ball speed, lowest angle first. It is
// empty for a speed the chart does not list.
func (c *Chart) RowBySpeed(speed float64) []Entry {
	if !slices.Contains(c.speeds, speed) {
		return nil
	}
	row := make([]Entry, 0, len(c.angles))
	for _, aoa := range c.angles {
		row = append(row, c.entries[key{speed, aoa}])
	}
	return row
}

// RowByAttackAngle returns the cells for one angle of attack, highest speed
// first.
func (c *Chart) RowByAttackAngle(aoa float64) []Entry {
	if !slices.Contains(c.angles, aoa) {
		return nil
	}
	col := make([]Entry, 0, len(c.speeds))
	for _, speed := range c.speeds {
		col = append(col, c.entries[key{speed, aoa}])
	}
	return col
}

// Entries returns every cell, row by row.
func (c *Chart) Entries() []Entry {
	all := make([]Entry, 0, len(c.entries))
	for _, speed := range c.speeds {
		all = append(all, c.RowBySpeed(speed)...)
	}
	return all
}

// Nearest returns the cell closest to speed and aoa on each axis. Ties go
// to the higher speed and the lower angle.
func (c *Chart) Nearest(speed, aoa float64) Entry {
	return c.entries[key{nearest(c.speeds, speed), nearest(c.angles, aoa)}]
}

// Compare measures ball against the nearest cell for its speed and the
// given angle of attack. The log does not carry the angle of attack, so the
// caller supplies it.
func (c *Chart) Compare(ball domain.BallData, aoa float64) Comparison {
	cell := c.Nearest(ball.Speed, aoa)
	return Comparison{
		Cell:        cell,
		LaunchDelta: ball.VLA - cell.Launch,
		SpinDelta:   ball.TotalSpin - cell.Spin,
	}
}

// LegendColor returns the hex color of a score band, or "" if unknown.
func (c *Chart) LegendColor(score int) string {
	return c.legend[score]
}

func nearest(axis []float64, v float64) float64 {
	best := axis[0]
	for _, a := range axis[1:] {
		if math.Abs(a-v) < math.Abs(best-v) {
			best = a
		}
	}
	return best
}
