package scan

import (
	"fmt"
	"time"

	"github.com/roman-kulish/rf-relay/internal/clock"
)

// Config holds the scan cycle timing.
type Config struct {
	Period         clock.Duration `yaml:"period" json:"period"`                 // target cycle cadence
	BandSettle     clock.Duration `yaml:"bandSettle" json:"bandSettle"`         // wait after switching bands
	IndicatorPulse clock.Duration `yaml:"indicatorPulse" json:"indicatorPulse"` // status LED on time per cycle
	StartupBlink   clock.Duration `yaml:"startupBlink" json:"startupBlink"`     // status LED on time before the first cycle
}

func DefaultConfig() Config {
	return Config{
		Period:         clock.Duration(500 * time.Millisecond),
		BandSettle:     clock.Duration(50 * time.Millisecond),
		IndicatorPulse: clock.Duration(50 * time.Millisecond),
		StartupBlink:   clock.Duration(time.Second),
	}
}

func (c *Config) Validate() error {
	if c.Period <= 0 {
		return fmt.Errorf("scan.Config: period must be positive, got %s", c.Period)
	}
	if c.BandSettle < 0 || c.IndicatorPulse < 0 || c.StartupBlink < 0 {
		return fmt.Errorf("scan.Config: waits must not be negative: settle=%s pulse=%s blink=%s",
			c.BandSettle, c.IndicatorPulse, c.StartupBlink)
	}
	if c.BandSettle*2+c.IndicatorPulse >= c.Period {
		return fmt.Errorf("scan.Config: period %s too short for settle %s and pulse %s",
			c.Period, c.BandSettle, c.IndicatorPulse)
	}
	return nil
}
