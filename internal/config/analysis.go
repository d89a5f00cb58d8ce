// Package config loads the analysis settings shared by the filter, the
// enhancement models and the reports.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/queue.report/internal/enhance"
	"github.com/banshee-data/queue.report/internal/outlier"
	"github.com/banshee-data/queue.report/internal/passage"
	"github.com/banshee-data/queue.report/internal/units"
)

// DefaultConfigPath is the canonical defaults file, relative to the
// repository root.
const DefaultConfigPath = "config/analysis.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// AnalysisConfig is the JSON analysis configuration. Every field is
// optional; the Get* methods supply the default for an omitted field.
type AnalysisConfig struct {
	// Outlier filter
	MinSampleThreshold     *int     `json:"min_sample_threshold,omitempty"`
	AdaptiveLowerMult      *float64 `json:"adaptive_lower_mult,omitempty"`
	AdaptiveUpperMult      *float64 `json:"adaptive_upper_mult,omitempty"`
	EnableStage1HardBounds *bool    `json:"enable_stage1_hard_bounds,omitempty"`
	EnableAdaptive         *bool    `json:"enable_adaptive,omitempty"`

	// Enhancement models
	WindowMinutes     *int     `json:"window_minutes,omitempty"`
	MinSamplesPerHour *int     `json:"min_samples_per_hour,omitempty"`
	SmoothingFactor   *float64 `json:"smoothing_factor,omitempty"`
	ConservativeBias  *float64 `json:"conservative_bias,omitempty"`

	// Input and reporting
	Timezone         *string `json:"timezone,omitempty"` // tz database name; empty means local
	QueueBucketWidth *int    `json:"queue_bucket_width,omitempty"`
	WaitUnits        *string `json:"wait_units,omitempty"` // "s" or "min"
}

// EmptyAnalysisConfig returns a config with every field unset.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// LoadAnalysisConfig loads and validates a config file. The file must have
// a .json extension and be at most 1MB. Omitted fields keep their defaults.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or one of its ancestors. It panics when the file cannot be found, and is
// meant for test setup.
func MustLoadDefaultConfig() *AnalysisConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/queue-report/ and deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the fields that are set, and the relations between the
// effective values.
func (c *AnalysisConfig) Validate() error {
	if err := c.OutlierConfig().Validate(); err != nil {
		return err
	}
	if err := c.TimeOfDayOptions().Validate(); err != nil {
		return err
	}
	if err := c.GrowthOptions().Validate(); err != nil {
		return err
	}
	if c.ConservativeBias != nil && *c.ConservativeBias <= 0 {
		return fmt.Errorf("conservative_bias must be positive, got %f", *c.ConservativeBias)
	}
	if c.Timezone != nil && *c.Timezone != "" && !units.IsTimezoneValid(*c.Timezone) {
		return fmt.Errorf("unknown timezone %q", *c.Timezone)
	}
	if c.QueueBucketWidth != nil && *c.QueueBucketWidth < 1 {
		return fmt.Errorf("queue_bucket_width must be at least 1, got %d", *c.QueueBucketWidth)
	}
	if c.WaitUnits != nil && !units.IsValid(*c.WaitUnits) {
		return fmt.Errorf("wait_units must be one of %s, got %q", units.GetValidUnitsString(), *c.WaitUnits)
	}
	return nil
}

func (c *AnalysisConfig) GetMinSampleThreshold() int {
	if c.MinSampleThreshold == nil {
		return outlier.DefaultMinSampleThreshold
	}
	return *c.MinSampleThreshold
}

func (c *AnalysisConfig) GetAdaptiveLowerMult() float64 {
	if c.AdaptiveLowerMult == nil {
		return outlier.DefaultAdaptiveLowerMult
	}
	return *c.AdaptiveLowerMult
}

func (c *AnalysisConfig) GetAdaptiveUpperMult() float64 {
	if c.AdaptiveUpperMult == nil {
		return outlier.DefaultAdaptiveUpperMult
	}
	return *c.AdaptiveUpperMult
}

func (c *AnalysisConfig) GetEnableStage1HardBounds() bool {
	if c.EnableStage1HardBounds == nil {
		return true
	}
	return *c.EnableStage1HardBounds
}

func (c *AnalysisConfig) GetEnableAdaptive() bool {
	if c.EnableAdaptive == nil {
		return true
	}
	return *c.EnableAdaptive
}

func (c *AnalysisConfig) GetWindowMinutes() int {
	if c.WindowMinutes == nil {
		return enhance.DefaultWindowMinutes
	}
	return *c.WindowMinutes
}

func (c *AnalysisConfig) GetMinSamplesPerHour() int {
	if c.MinSamplesPerHour == nil {
		return enhance.DefaultMinSamplesPerHour
	}
	return *c.MinSamplesPerHour
}

func (c *AnalysisConfig) GetSmoothingFactor() float64 {
	if c.SmoothingFactor == nil {
		return enhance.DefaultSmoothing
	}
	return *c.SmoothingFactor
}

func (c *AnalysisConfig) GetConservativeBias() float64 {
	if c.ConservativeBias == nil {
		return enhance.DefaultConservativeBias
	}
	return *c.ConservativeBias
}

func (c *AnalysisConfig) GetTimezone() string {
	if c.Timezone == nil {
		return ""
	}
	return *c.Timezone
}

// Location resolves GetTimezone.
func (c *AnalysisConfig) Location() (*time.Location, error) {
	return units.LoadLocation(c.GetTimezone())
}

func (c *AnalysisConfig) GetQueueBucketWidth() int {
	if c.QueueBucketWidth == nil {
		return passage.DefaultBucketWidth
	}
	return *c.QueueBucketWidth
}

func (c *AnalysisConfig) GetWaitUnits() string {
	if c.WaitUnits == nil {
		return units.Seconds
	}
	return *c.WaitUnits
}

// OutlierConfig returns the effective filter settings.
func (c *AnalysisConfig) OutlierConfig() outlier.Config {
	return outlier.Config{
		MinSampleThreshold:     c.GetMinSampleThreshold(),
		AdaptiveLowerMult:      c.GetAdaptiveLowerMult(),
		AdaptiveUpperMult:      c.GetAdaptiveUpperMult(),
		EnableStage1HardBounds: c.GetEnableStage1HardBounds(),
		EnableAdaptive:         c.GetEnableAdaptive(),
	}
}

// TimeOfDayOptions returns the effective time-of-day training settings.
func (c *AnalysisConfig) TimeOfDayOptions() enhance.TimeOfDayOptions {
	return enhance.TimeOfDayOptions{
		MinSamplesPerHour: c.GetMinSamplesPerHour(),
		Smoothing:         c.GetSmoothingFactor(),
	}
}

// GrowthOptions returns the effective queue-growth training settings.
func (c *AnalysisConfig) GrowthOptions() enhance.GrowthOptions {
	return enhance.GrowthOptions{WindowMinutes: c.GetWindowMinutes()}
}
