package app

import (
	"math"
	"time"

	"github.com/roman-kulish/rf-relay/internal/spectrum"
	"github.com/roman-kulish/rf-relay/internal/telemetry"
)

// BearingGrid accumulates the samples of one band into heading columns and time rows.
// Each cell keeps the strongest level seen in it.
type BearingGrid struct {
	Band        spectrum.Band
	BinWidth    float64
	RowDuration time.Duration
	Start       time.Time
	End         time.Time
	Columns     int
	Rows        int
	Cells       [][]*float64 // indexed [row][column], nil when empty
	Placed      int64
	Skipped     int64 // samples without a usable heading or outside the time range
}

func NewBearingGrid(band spectrum.Band, binWidth float64, rowDuration time.Duration, start, end time.Time) *BearingGrid {
	if end.Before(start) {
		end = start
	}

	g := &BearingGrid{
		Band:        band,
		BinWidth:    binWidth,
		RowDuration: rowDuration,
		Start:       start,
		End:         end,
		Columns:     int(math.Ceil(360 / binWidth)),
		Rows:        int(end.Sub(start)/rowDuration) + 1,
	}

	g.Cells = make([][]*float64, g.Rows)
	for i := range g.Cells {
		g.Cells[i] = make([]*float64, g.Columns)
	}
	return g
}

// Add places a sample in its cell. Samples without a valid heading are dropped
// unless includeNoFix is set, in which case they land in the 0° column.
func (g *BearingGrid) Add(s spectrum.ScanSample, includeNoFix bool) bool {
	if s.HeadingStatus != telemetry.StatusOK && !includeNoFix {
		g.Skipped++
		return false
	}

	row, ok := g.row(s.Timestamp)
	if !ok {
		g.Skipped++
		return false
	}

	col := g.Column(s.Heading)
	if cell := g.Cells[row][col]; cell == nil || s.Level > *cell {
		level := s.Level
		g.Cells[row][col] = &level
	}
	g.Placed++
	return true
}

// Column returns the column index for a heading in degrees, wrapping it into [0, 360).
func (g *BearingGrid) Column(heading float64) int {
	if math.IsNaN(heading) || math.IsInf(heading, 0) {
		return 0
	}

	h := math.Mod(heading, 360)
	if h < 0 {
		h += 360
	}

	col := int(h / g.BinWidth)
	if col >= g.Columns {
		col = g.Columns - 1
	}
	return col
}

// RowTime returns the start time of a row.
func (g *BearingGrid) RowTime(row int) time.Time {
	return g.Start.Add(time.Duration(row) * g.RowDuration)
}

func (g *BearingGrid) row(t time.Time) (int, bool) {
	if t.Before(g.Start) {
		return 0, false
	}

	row := int(t.Sub(g.Start) / g.RowDuration)
	if row >= g.Rows {
		return 0, false
	}
	return row, true
}
