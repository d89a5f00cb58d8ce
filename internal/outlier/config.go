package outlier

import "fmt"

// Defaults for Config.
const (
	DefaultMinSampleThreshold = 10
	DefaultAdaptiveLowerMult  = 0.3
	DefaultAdaptiveUpperMult  = 1.7
)

// Config controls a filtering run. It is echoed into Stats so that every
// report records how it was produced.
type Config struct {
	MinSampleThreshold     int     `json:"min_sample_threshold"`
	AdaptiveLowerMult      float64 `json:"adaptive_lower_mult"`
	AdaptiveUpperMult      float64 `json:"adaptive_upper_mult"`
	EnableStage1HardBounds bool    `json:"enable_stage1_hard_bounds"`
	EnableAdaptive         bool    `json:"enable_adaptive"`
}

// DefaultConfig returns the production filter settings.
func DefaultConfig() Config {
	return Config{
		MinSampleThreshold:     DefaultMinSampleThreshold,
		AdaptiveLowerMult:      DefaultAdaptiveLowerMult,
		AdaptiveUpperMult:      DefaultAdaptiveUpperMult,
		EnableStage1HardBounds: true,
		EnableAdaptive:         true,
	}
}

// Validate checks the multipliers and threshold.
func (c Config) Validate() error {
	if c.MinSampleThreshold < 1 {
		return fmt.Errorf("min_sample_threshold must be at least 1, got %d", c.MinSampleThreshold)
	}
	if c.AdaptiveLowerMult < 0 {
		return fmt.Errorf("adaptive_lower_mult must be non-negative, got %f", c.AdaptiveLowerMult)
	}
	if c.AdaptiveUpperMult < c.AdaptiveLowerMult {
		return fmt.Errorf("adaptive_upper_mult (%f) must not be below adaptive_lower_mult (%f)",
			c.AdaptiveUpperMult, c.AdaptiveLowerMult)
	}
	return nil
}
