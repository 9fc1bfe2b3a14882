package app

import "math"

const (
	defaultMinLevel = -127.5 // dBm, the weakest level the receiver reports for a single byte
	defaultMaxLevel = 0.0    // dBm

	minimumSampleCount = 20
	minimumLevelRange  = 30 // dB
)

// LevelBounds is the level range mapped onto the colour scale.
type LevelBounds struct {
	Min  float64 // dBm
	Max  float64 // dBm
	Mean float64 // dBm
}

func defaultLevelBounds() LevelBounds {
	return LevelBounds{
		Min:  defaultMinLevel,
		Max:  defaultMaxLevel,
		Mean: (defaultMinLevel + defaultMaxLevel) / 2,
	}
}

// LevelHistogram counts levels in 1 dB bins.
type LevelHistogram struct {
	bins       map[int]uint32
	totalCount uint64
	minBin     int
	maxBin     int
}

func NewLevelHistogram() *LevelHistogram {
	return &LevelHistogram{
		bins:   make(map[int]uint32),
		minBin: math.MaxInt32,
		maxBin: math.MinInt32,
	}
}

func binIndex(level float64) int {
	return int(math.Floor(level))
}

func (h *LevelHistogram) Update(level float64) {
	if math.IsNaN(level) || math.IsInf(level, 0) {
		return
	}

	bin := binIndex(level)
	if h.bins[bin] == math.MaxUint32 {
		return
	}

	h.bins[bin]++
	h.totalCount++

	if bin < h.minBin {
		h.minBin = bin
	}
	if bin > h.maxBin {
		h.maxBin = bin
	}
}

func (h *LevelHistogram) Count() uint64 {
	return h.totalCount
}

// Bounds returns the 5th to 95th percentile range widened by a 10% margin and
// stretched to at least 30 dB. Sparse histograms get the receiver's full range.
func (h *LevelHistogram) Bounds() LevelBounds {
	if h.totalCount < minimumSampleCount {
		return defaultLevelBounds()
	}

	target := h.totalCount * 5 / 100

	var count uint64
	var low, high int
	for bin := h.minBin; bin <= h.maxBin; bin++ {
		count += uint64(h.bins[bin])
		if count >= target {
			low = bin
			break
		}
	}

	count = 0
	for bin := h.maxBin; bin >= h.minBin; bin-- {
		count += uint64(h.bins[bin])
		if count >= target {
			high = bin
			break
		}
	}

	var sum float64
	for bin, n := range h.bins {
		sum += float64(bin) * float64(n)
	}

	if high-low < minimumLevelRange {
		center := (high + low) / 2
		low = center - minimumLevelRange/2
		high = center + minimumLevelRange/2
	}

	margin := (high - low) / 10
	return LevelBounds{
		Min:  float64(low - margin),
		Max:  float64(high + margin),
		Mean: sum / float64(h.totalCount),
	}
}

// WithOverrides replaces the computed limits with manual ones where given.
func (b LevelBounds) WithOverrides(minLevel, maxLevel *float64) LevelBounds {
	if minLevel != nil {
		b.Min = *minLevel
	}
	if maxLevel != nil {
		b.Max = *maxLevel
	}
	if b.Max <= b.Min {
		b.Max = b.Min + minimumLevelRange
	}
	return b
}
