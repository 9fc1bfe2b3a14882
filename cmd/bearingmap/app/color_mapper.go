package app

import (
	"image/color"
	"math"
)

// ColorTheme names a level to colour ramp.
type ColorTheme string

const (
	ClassicTheme   ColorTheme = "classic"   // Blue to red
	GrayscaleTheme ColorTheme = "grayscale" // Black to white
	JungleTheme    ColorTheme = "jungle"    // Dark green to yellow
	ThermalTheme   ColorTheme = "thermal"   // Black to red to yellow to white
	MarineTheme    ColorTheme = "marine"    // Deep blue to cyan to white

	defaultColorMapSize = 256
)

// NoDataColor fills cells no sample fell into.
var NoDataColor = color.RGBA{R: 235, G: 235, B: 235, A: 255}

var themes = map[ColorTheme]func(float64) color.Color{
	ClassicTheme: func(v float64) color.Color {
		return HSV{H: 240 - (v * 240), S: 0.9 + (v * 0.1), V: 0.2 + math.Pow(v, 0.7)*0.8}.RGB()
	},
	GrayscaleTheme: func(v float64) color.Color {
		g := uint8(math.Pow(v, 0.7) * 255)
		return color.RGBA{R: g, G: g, B: g, A: 255}
	},
	JungleTheme: func(v float64) color.Color {
		return HSV{H: 120 - (v * 60), S: 1.0, V: 0.3 + (math.Pow(v, 0.6) * 0.7)}.RGB()
	},
	ThermalTheme: func(v float64) color.Color {
		switch {
		case v < 0.33:
			return color.RGBA{R: uint8(v * 3 * 255), A: 255}
		case v < 0.66:
			return color.RGBA{R: 255, G: uint8((v - 0.33) * 3 * 255), A: 255}
		default:
			return color.RGBA{R: 255, G: 255, B: uint8(math.Min(1, (v-0.66)*3) * 255), A: 255}
		}
	},
	MarineTheme: func(v float64) color.Color {
		return HSV{H: 240 - (v * 60), S: 1.0 - (v * 0.8), V: 0.3 + (math.Pow(v, 0.6) * 0.7)}.RGB()
	},
}

func validTheme(t ColorTheme) bool {
	_, ok := themes[t]
	return ok
}

// ColorMapper maps levels onto a precomputed colour ramp.
type ColorMapper struct {
	colorMap      []color.Color
	levelPerIndex float64
	boundsMin     float64
}

func NewColorMapper(theme ColorTheme, bounds LevelBounds) *ColorMapper {
	ramp, ok := themes[theme]
	if !ok {
		ramp = themes[ClassicTheme]
	}

	cm := &ColorMapper{
		colorMap:      make([]color.Color, defaultColorMapSize),
		boundsMin:     bounds.Min,
		levelPerIndex: (bounds.Max - bounds.Min) / float64(defaultColorMapSize-1),
	}
	for i := range cm.colorMap {
		cm.colorMap[i] = ramp(float64(i) / float64(defaultColorMapSize-1))
	}
	return cm
}

// Color returns the colour for a level in dBm, clamped to the ends of the ramp.
func (cm *ColorMapper) Color(level *float64) color.Color {
	if level == nil {
		return NoDataColor
	}

	index := int((*level - cm.boundsMin) / cm.levelPerIndex)
	if index < 0 {
		return cm.colorMap[0]
	}
	if index >= len(cm.colorMap) {
		return cm.colorMap[len(cm.colorMap)-1]
	}
	return cm.colorMap[index]
}

// HSV is a colour in hue (degrees), saturation and value ([0, 1]) space.
type HSV struct {
	H float64
	S float64
	V float64
}

func (hsv HSV) RGB() color.Color {
	value := math.Max(0, math.Min(1, hsv.V))
	if hsv.S <= 0.0 {
		v := uint8(value * 255)
		return color.RGBA{R: v, G: v, B: v, A: 255}
	}

	h := math.Mod(hsv.H, 360)
	if h < 0 {
		h += 360
	}
	h /= 60

	i := int(h)
	f := h - float64(i)
	s := math.Min(1, hsv.S)

	v := uint8(value * 255)
	p := uint8((value * (1 - s)) * 255)
	q := uint8((value * (1 - (s * f))) * 255)
	t := uint8((value * (1 - (s * (1 - f)))) * 255)

	switch i {
	case 0:
		return color.RGBA{R: v, G: t, B: p, A: 255}
	case 1:
		return color.RGBA{R: q, G: v, B: p, A: 255}
	case 2:
		return color.RGBA{R: p, G: v, B: t, A: 255}
	case 3:
		return color.RGBA{R: p, G: q, B: v, A: 255}
	case 4:
		return color.RGBA{R: t, G: p, B: v, A: 255}
	default:
		return color.RGBA{R: v, G: p, B: q, A: 255}
	}
}
