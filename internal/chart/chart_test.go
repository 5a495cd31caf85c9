package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/shotbridge/internal/domain"
)

func TestLoad(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	speeds := c.BallSpeeds()
	require.Len(t, speeds, 13)
	assert.Equal(t, 200.0, speeds[0])
	assert.Equal(t, 80.0, speeds[len(speeds)-1])

	assert.Equal(t, []float64{-10, -8, -6, -4, -2, 0, 2, 4, 6, 8, 10}, c.AttackAngles())
	assert.Len(t, c.Entries(), 13*11)
	assert.Contains(t, c.Source(), "mygolfdistance.com")
}

func loadChart(t *testing.T) *Chart {
	t.Helper()
	c, err := Load()
	require.NoError(t, err)
	return c
}

func TestLookup(t *testing.T) {
	c := loadChart(t)

	t.Run("known cells", func(t *testing.T) {
		e, ok := c.Lookup(200, -10)
		require.True(t, ok)
		assert.Equal(t, Entry{BallSpeed: 200, AttackAngle: -10, Launch: 2.5, Spin: 3450, Carry: 318, Score: 300}, e)

		e, ok = c.Lookup(80, 10)
		require.True(t, ok)
		assert.InDelta(t, 24.0, e.Launch, 1e-9)
		assert.InDelta(t, 107.0, e.Carry, 1e-9)
	})

	t.Run("off grid", func(t *testing.T) {
		_, ok := c.Lookup(205, 0)
		assert.False(t, ok)
		_, ok = c.Lookup(150, 1)
		assert.False(t, ok)
	})

	t.Run("score band", func(t *testing.T) {
		e, ok := c.Lookup(150, 6)
		require.True(t, ok)
		assert.Equal(t, 275, e.Score)
		assert.Equal(t, "#D9EAD3", c.LegendColor(e.Score))
		assert.Empty(t, c.LegendColor(42))
	})
}

func TestRows(t *testing.T) {
	c := loadChart(t)

	row := c.RowBySpeed(120)
	require.Len(t, row, 11)
	assert.Equal(t, -10.0, row[0].AttackAngle)
	assert.Equal(t, 10.0, row[10].AttackAngle)
	for _, e := range row {
		assert.Equal(t, 120.0, e.BallSpeed)
	}

	col := c.RowByAttackAngle(0)
	require.Len(t, col, 13)
	assert.Equal(t, 200.0, col[0].BallSpeed)
	assert.InDelta(t, 9.5, col[0].Launch, 1e-9)

	assert.Nil(t, c.RowBySpeed(125))
	assert.Nil(t, c.RowByAttackAngle(3))
}

func TestNearest(t *testing.T) {
	c := loadChart(t)

	tests := []struct {
		name       string
		speed, aoa float64
		wantSpeed  float64
		wantAoA    float64
	}{
		{"exact", 140, -4, 140, -4},
		{"rounds to closest", 143.2, 2.9, 140, 2},
		{"clamps above", 230, 14, 200, 10},
		{"clamps below", 20, -30, 80, -10},
		{"speed tie goes up", 145, 0, 150, 0},
		{"angle tie goes down", 100, 1, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := c.Nearest(tt.speed, tt.aoa)
			assert.Equal(t, tt.wantSpeed, e.BallSpeed)
			assert.Equal(t, tt.wantAoA, e.AttackAngle)
		})
	}
}

func TestCompare(t *testing.T) {
	c := loadChart(t)

	ball := domain.NewBallData(151.0, -1.2, 2900, 0.4, 14.0)
	cmp := c.Compare(*ball, -2.2)

	assert.Equal(t, 150.0, cmp.Cell.BallSpeed)
	assert.Equal(t, -2.0, cmp.Cell.AttackAngle)
	assert.InDelta(t, 14.0-11.1, cmp.LaunchDelta, 1e-9)
	assert.InDelta(t, 2900.0-2750.0, cmp.SpinDelta, 1e-9)
	assert.InDelta(t, 246.0, cmp.Cell.Carry, 1e-9)
	assert.Equal(t, 250, cmp.Cell.Score)
}

func TestParseRejectsBadCharts(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ``},
		{"not yaml", `rows: [`},
		{"no cells", "rows:\n  - ball_speed: 100\n"},
		{"duplicate speed", `
rows:
  - ball_speed: 100
    cells: [{aoa: 0, launch: 1, spin: 1, carry: 1, score: 1}]
  - ball_speed: 100
    cells: [{aoa: 0, launch: 1, spin: 1, carry: 1, score: 1}]
`},
		{"duplicate angle", `
rows:
  - ball_speed: 100
    cells: [{aoa: 0, launch: 1, spin: 1, carry: 1, score: 1}, {aoa: 0, launch: 1, spin: 1, carry: 1, score: 1}]
`},
		{"ragged grid", `
rows:
  - ball_speed: 100
    cells: [{aoa: 0, launch: 1, spin: 1, carry: 1, score: 1}, {aoa: 2, launch: 1, spin: 1, carry: 1, score: 1}]
  - ball_speed: 90
    cells: [{aoa: 0, launch: 1, spin: 1, carry: 1, score: 1}]
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}
