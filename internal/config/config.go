package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the application configuration. A value of this type flows
// into the pipeline at construction; nothing reads tunables from package
// state.
type Config struct {
	Geometry    GeometryConfig    `json:"geometry"`
	Photometry  PhotometryConfig  `json:"photometry"`
	Orientation OrientationConfig `json:"orientation"`
	Resize      ResizeConfig      `json:"resize"`
	ColorMatch  ColorMatchConfig  `json:"color_match"`
	Compositor  CompositorConfig  `json:"compositor"`
	Generator   GeneratorConfig   `json:"generator"`
	Output      OutputConfig      `json:"output"`
}

// GeometryConfig holds configuration for bounding-box expansion
type GeometryConfig struct {
	PaddingFraction float64 `json:"padding_fraction"`
}

// PhotometryConfig holds the lighting classification thresholds
type PhotometryConfig struct {
	BrightThreshold   float64 `json:"bright_threshold"`
	ModerateThreshold float64 `json:"moderate_threshold"`
	DimThreshold      float64 `json:"dim_threshold"`
	WarmDelta         float64 `json:"warm_delta"`
}

// OrientationConfig holds configuration for orientation analysis
type OrientationConfig struct {
	ReferenceAspect float64 `json:"reference_aspect"`
	TiltTolerance   float64 `json:"tilt_tolerance"`
}

// ResizeConfig holds the cap on the region sent to the generator
type ResizeConfig struct {
	MaxDimension int `json:"max_dimension"`
}

// ColorMatchConfig holds the adaptive correction strength ramp
type ColorMatchConfig struct {
	MinStrength    float64 `json:"min_strength"`
	MaxStrength    float64 `json:"max_strength"`
	MagnitudeScale float64 `json:"magnitude_scale"`
}

// CompositorConfig holds configuration for feathered blending
type CompositorConfig struct {
	FeatherFraction float64 `json:"feather_fraction"`
}

// GeneratorConfig holds backend selection for the external calls
type GeneratorConfig struct {
	Model       string `json:"model"`
	VisionModel string `json:"vision_model"`
	SendFormat  string `json:"send_format"`
	SendQuality int    `json:"send_quality"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	DefaultFormat string `json:"default_format"`
	OutputDir     string `json:"output_dir"`
	Quality       int    `json:"quality"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Geometry: GeometryConfig{
			PaddingFraction: 0.30,
		},
		Photometry: PhotometryConfig{
			BrightThreshold:   170,
			ModerateThreshold: 120,
			DimThreshold:      70,
			WarmDelta:         15,
		},
		Orientation: OrientationConfig{
			ReferenceAspect: 0.5,
			TiltTolerance:   0.15,
		},
		Resize: ResizeConfig{
			// 1536 keeps the generator payload bounded without discarding
			// the detail the photometric context depends on; the legacy
			// 1000px cap lost too much.
			MaxDimension: 1536,
		},
		ColorMatch: ColorMatchConfig{
			MinStrength:    0.3,
			MaxStrength:    0.6,
			MagnitudeScale: 100,
		},
		Compositor: CompositorConfig{
			FeatherFraction: 0.12,
		},
		Generator: GeneratorConfig{
			Model:       "gemini-2.5-flash-image",
			VisionModel: "openbmb/minicpm-v4.5",
			SendFormat:  "jpg",
			SendQuality: 85,
		},
		Output: OutputConfig{
			DefaultFormat: "jpg",
			OutputDir:     "./output",
			Quality:       90,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Geometry.PaddingFraction < 0 {
		return fmt.Errorf("geometry.padding_fraction must be non-negative")
	}

	if c.Photometry.BrightThreshold <= c.Photometry.ModerateThreshold ||
		c.Photometry.ModerateThreshold <= c.Photometry.DimThreshold {
		return fmt.Errorf("photometry thresholds must be strictly decreasing: bright > moderate > dim")
	}

	if c.Photometry.WarmDelta < 0 {
		return fmt.Errorf("photometry.warm_delta must be non-negative")
	}

	if c.Orientation.ReferenceAspect <= 0 {
		return fmt.Errorf("orientation.reference_aspect must be positive")
	}

	if c.Orientation.TiltTolerance < 0 {
		return fmt.Errorf("orientation.tilt_tolerance must be non-negative")
	}

	if c.Resize.MaxDimension < 1 {
		return fmt.Errorf("resize.max_dimension must be positive")
	}

	if c.ColorMatch.MinStrength < 0 || c.ColorMatch.MinStrength > c.ColorMatch.MaxStrength {
		return fmt.Errorf("color_match strengths must satisfy 0 <= min <= max")
	}

	if c.ColorMatch.MaxStrength > 1 {
		return fmt.Errorf("color_match.max_strength must not exceed 1")
	}

	if c.ColorMatch.MagnitudeScale <= 0 {
		return fmt.Errorf("color_match.magnitude_scale must be positive")
	}

	if c.Compositor.FeatherFraction <= 0 || c.Compositor.FeatherFraction >= 1 {
		return fmt.Errorf("compositor.feather_fraction must be between 0 and 1 exclusive")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "scene-composer", "config.json")
}
