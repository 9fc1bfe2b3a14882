package app

import (
	"image"
	"testing"
	"time"

	"github.com/roman-kulish/rf-relay/internal/spectrum"
	"github.com/roman-kulish/rf-relay/internal/telemetry"
)

func TestHeadingLabelStep(t *testing.T) {
	tests := []struct {
		bin  float64
		cell int
		want float64
	}{
		{5, 4, 90},
		{1, 4, 15},
		{1, 1, 90},
		{10, 1, 180},
	}
	for _, tt := range tests {
		if got := headingLabelStep(tt.bin, tt.cell); got != tt.want {
			t.Errorf("headingLabelStep(%v, %d): expected %v, got %v", tt.bin, tt.cell, tt.want, got)
		}
	}
}

func TestRowsPerLabel(t *testing.T) {
	for cell, want := range map[int]int{1: 24, 4: 6, 5: 5, 30: 1} {
		if got := rowsPerLabel(cell); got != want {
			t.Errorf("rowsPerLabel(%d): expected %d, got %d", cell, want, got)
		}
	}
}

func TestFormatHeading(t *testing.T) {
	for deg, want := range map[float64]string{0: "0°", 90: "90°", 2.5: "2.5°"} {
		if got := formatHeading(deg); got != want {
			t.Errorf("formatHeading(%v): expected %q, got %q", deg, want, got)
		}
	}
}

func testGrids() []*BearingGrid {
	var grids []*BearingGrid
	for i, band := range spectrum.Bands {
		g := NewBearingGrid(band, 90, time.Second, gridStart, gridStart.Add(2*time.Second))
		g.Add(spectrum.ScanSample{
			Timestamp:     gridStart,
			Band:          band,
			Level:         -40 - float64(i)*20,
			Heading:       45,
			HeadingStatus: telemetry.StatusOK,
		}, false)
		grids = append(grids, g)
	}
	return grids
}

func TestRenderWithoutAnnotations(t *testing.T) {
	renderer := NewBearingRenderer(RenderConfig{ColorTheme: GrayscaleTheme, CellSize: 4})
	bounds := LevelBounds{Min: -100, Max: 0}

	img, err := renderer.Render(testGrids(), bounds)
	if err != nil {
		t.Fatal(err)
	}

	if want := image.Rect(0, 0, 16, 24); img.Bounds() != want {
		t.Fatalf("Expected bounds %v, got %v", want, img.Bounds())
	}

	colors := NewColorMapper(GrayscaleTheme, bounds)
	tests := []struct {
		x, y  int
		level *float64
	}{
		{0, 0, ptr(-40)},
		{3, 3, ptr(-40)},
		{4, 0, nil},
		{0, 12, ptr(-60)},
		{15, 23, nil},
	}
	for _, tt := range tests {
		if got, want := img.At(tt.x, tt.y), colors.Color(tt.level); got != want {
			t.Errorf("Pixel (%d, %d): expected %v, got %v", tt.x, tt.y, want, got)
		}
	}
}

func TestRenderWithAnnotations(t *testing.T) {
	renderer := NewBearingRenderer(RenderConfig{
		ColorTheme: ClassicTheme,
		CellSize:   4,
		Annotate:   true,
		Location:   time.UTC,
	})
	bounds := LevelBounds{Min: -100, Max: 0}

	img, err := renderer.Render(testGrids(), bounds)
	if err != nil {
		t.Fatal(err)
	}

	panelWidth := defaultLeftBorder + 16 + defaultRightBorder
	panelHeight := defaultTopBorder + 12 + defaultBottomBorder
	if want := image.Rect(0, 0, panelWidth, 2*panelHeight); img.Bounds() != want {
		t.Fatalf("Expected bounds %v, got %v", want, img.Bounds())
	}

	colors := NewColorMapper(ClassicTheme, bounds)
	if got, want := img.At(defaultLeftBorder, defaultTopBorder), colors.Color(ptr(-40)); got != want {
		t.Errorf("Expected first cell %v, got %v", want, got)
	}
	if got, want := img.At(defaultLeftBorder, panelHeight+defaultTopBorder), colors.Color(ptr(-60)); got != want {
		t.Errorf("Expected second panel first cell %v, got %v", want, got)
	}
}

func TestRenderNothing(t *testing.T) {
	if _, err := NewBearingRenderer(RenderConfig{}).Render(nil, defaultLevelBounds()); err == nil {
		t.Error("Expected error when there are no grids")
	}
}
