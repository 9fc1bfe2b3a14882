package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

const (
	dpi             = 96.0
	fontSize        = 10.0
	tickMarkLength  = 5
	pixelsPerLabel  = 60
	pixelsPerLegend = 12

	defaultTopBorder    = 30
	defaultLeftBorder   = 70
	defaultBottomBorder = 30
	defaultRightBorder  = 30

	defaultTimeFormat     = "15:04:05"
	defaultDatetimeFormat = time.DateTime
)

// headingSteps are the candidate spacings, in degrees, between heading labels.
var headingSteps = []float64{5, 10, 15, 30, 45, 90, 180}

// BorderConfig defines the white space around each band panel.
type BorderConfig struct {
	Top    int // heading scale
	Left   int // time scale
	Bottom int // information bar
	Right  int
}

type RenderConfig struct {
	TimeFormat     string
	DatetimeFormat string
	Location       *time.Location
	FontSize       float64
	ColorTheme     ColorTheme
	CellSize       int
	Annotate       bool
	BorderConfig   BorderConfig
}

// BearingRenderer draws bearing grids as panels stacked top to bottom.
type BearingRenderer struct {
	config RenderConfig
}

func NewBearingRenderer(config RenderConfig) *BearingRenderer {
	if config.TimeFormat == "" {
		config.TimeFormat = defaultTimeFormat
	}
	if config.DatetimeFormat == "" {
		config.DatetimeFormat = defaultDatetimeFormat
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.CellSize <= 0 {
		config.CellSize = 1
	}
	if config.Annotate && config.BorderConfig == (BorderConfig{}) {
		config.BorderConfig = BorderConfig{
			Top:    defaultTopBorder,
			Left:   defaultLeftBorder,
			Bottom: defaultBottomBorder,
			Right:  defaultRightBorder,
		}
	}
	return &BearingRenderer{config: config}
}

// panelSize returns the size of the panel drawn for g, borders included.
func (r *BearingRenderer) panelSize(g *BearingGrid) image.Point {
	b := r.config.BorderConfig
	return image.Pt(
		b.Left+g.Columns*r.config.CellSize+b.Right,
		b.Top+g.Rows*r.config.CellSize+b.Bottom,
	)
}

// Render draws every grid with a shared colour scale so that bands are comparable.
func (r *BearingRenderer) Render(grids []*BearingGrid, bounds LevelBounds) (*image.RGBA, error) {
	if len(grids) == 0 {
		return nil, fmt.Errorf("nothing to render")
	}

	var width, height int
	for _, g := range grids {
		size := r.panelSize(g)
		width = max(width, size.X)
		height += size.Y
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	var ann *annotator
	if r.config.Annotate {
		var err error
		if ann, err = newAnnotator(r.config); err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		defer ann.Close()
		ann.context.SetClip(img.Bounds())
		ann.context.SetDst(img)
	}

	colors := NewColorMapper(r.config.ColorTheme, bounds)

	var top int
	for _, g := range grids {
		size := r.panelSize(g)
		panel := image.Rect(0, top, size.X, top+size.Y)
		area := image.Rect(
			panel.Min.X+r.config.BorderConfig.Left,
			panel.Min.Y+r.config.BorderConfig.Top,
			panel.Min.X+r.config.BorderConfig.Left+g.Columns*r.config.CellSize,
			panel.Min.Y+r.config.BorderConfig.Top+g.Rows*r.config.CellSize,
		)

		if ann != nil {
			if err := ann.annotate(img, panel, area, g); err != nil {
				return nil, fmt.Errorf("annotating %s band: %w", g.Band, err)
			}
		}
		r.renderGrid(img, area, g, colors)
		top += size.Y
	}
	return img, nil
}

func (r *BearingRenderer) renderGrid(img *image.RGBA, area image.Rectangle, g *BearingGrid, colors *ColorMapper) {
	cell := r.config.CellSize
	for y, row := range g.Cells {
		for x, level := range row {
			rect := image.Rect(
				area.Min.X+x*cell,
				area.Min.Y+y*cell,
				area.Min.X+(x+1)*cell,
				area.Min.Y+(y+1)*cell,
			)
			draw.Draw(img, rect, image.NewUniform(colors.Color(level)), image.Point{}, draw.Src)
		}
	}
}

type annotator struct {
	context  *freetype.Context
	config   RenderConfig
	fontFace font.Face
}

func newAnnotator(config RenderConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) annotate(img *image.RGBA, panel, area image.Rectangle, g *BearingGrid) error {
	if err := a.drawHeadingScale(img, area, g); err != nil {
		return fmt.Errorf("drawing heading scale: %w", err)
	}
	if err := a.drawTimeScale(img, panel, area, g); err != nil {
		return fmt.Errorf("drawing time scale: %w", err)
	}
	if err := a.drawInfoBar(panel, area, g); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}
	return nil
}

func (a *annotator) drawHeadingScale(img *image.RGBA, area image.Rectangle, g *BearingGrid) error {
	step := headingLabelStep(g.BinWidth, a.config.CellSize)
	textY := area.Min.Y - tickMarkLength - a.fontHeight()/3

	for deg := 0.0; deg <= 360; deg += step {
		x := area.Min.X + int(math.Round(deg/g.BinWidth*float64(a.config.CellSize)))
		if x > area.Max.X {
			x = area.Max.X
		}

		for y := area.Min.Y - tickMarkLength; y < area.Min.Y; y++ {
			img.Set(x, y, color.Black)
		}

		label := formatHeading(deg)
		width := font.MeasureString(a.fontFace, label)
		if _, err := a.context.DrawString(label, freetype.Pt(x-width.Round()/2, textY)); err != nil {
			return fmt.Errorf("drawing heading label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawTimeScale(img *image.RGBA, panel, area image.Rectangle, g *BearingGrid) error {
	every := rowsPerLabel(a.config.CellSize)
	metrics := a.fontFace.Metrics()

	for row := 0; row < g.Rows; row += every {
		y := area.Min.Y + row*a.config.CellSize

		for x := area.Min.X - tickMarkLength; x < area.Min.X; x++ {
			img.Set(x, y, color.Black)
		}

		label := g.RowTime(row).In(a.config.Location).Format(a.config.TimeFormat)
		textY := y + a.fontHeight()/2 - metrics.Descent.Round()
		if _, err := a.context.DrawString(label, freetype.Pt(panel.Min.X+5, textY)); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(panel, area image.Rectangle, g *BearingGrid) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Band %s (%d)", g.Band, uint8(g.Band))
	fmt.Fprintf(&sb, "; %s - %s",
		g.Start.In(a.config.Location).Format(a.config.DatetimeFormat),
		g.End.In(a.config.Location).Format(a.config.DatetimeFormat))
	fmt.Fprintf(&sb, "; %s samples", humanize.Comma(g.Placed))
	if g.Skipped > 0 {
		fmt.Fprintf(&sb, " (%s skipped)", humanize.Comma(g.Skipped))
	}
	fmt.Fprintf(&sb, "; cell = %s x %s", formatHeading(g.BinWidth), g.RowDuration)

	metrics := a.fontFace.Metrics()
	bottom := panel.Max.Y - area.Max.Y
	textY := panel.Max.Y - (bottom-a.fontHeight())/2 - metrics.Descent.Round()
	if _, err := a.context.DrawString(sb.String(), freetype.Pt(area.Min.X, textY)); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

// headingLabelStep picks the smallest label spacing that leaves room for the text.
func headingLabelStep(binWidth float64, cellSize int) float64 {
	pixelsPerDegree := float64(cellSize) / binWidth
	for _, step := range headingSteps {
		if step*pixelsPerDegree >= pixelsPerLabel {
			return step
		}
	}
	return headingSteps[len(headingSteps)-1]
}

func rowsPerLabel(cellSize int) int {
	return max(1, int(math.Ceil(float64(pixelsPerLegend*2)/float64(cellSize))))
}

func formatHeading(deg float64) string {
	if deg == math.Trunc(deg) {
		return fmt.Sprintf("%.0f°", deg)
	}
	return fmt.Sprintf("%.1f°", deg)
}
