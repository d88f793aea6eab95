package types

import (
	"errors"
	"fmt"
	"image"
)

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Validate checks the box invariants: positive extent, all edges inside [0,1].
func (b Box) Validate() error {
	if b.W <= 0 || b.H <= 0 {
		return fmt.Errorf("%w: non-positive extent %.4fx%.4f", ErrInvalidGeometry, b.W, b.H)
	}
	if b.X < 0 || b.Y < 0 || b.X+b.W > 1 || b.Y+b.H > 1 {
		return fmt.Errorf("%w: box [%.4f,%.4f %.4fx%.4f] outside unit square",
			ErrInvalidGeometry, b.X, b.Y, b.W, b.H)
	}
	return nil
}

// PixelRect maps the normalized box onto a w x h pixel grid with
// round-to-nearest edges. Cropping and compositing both go through this so a
// crop taken from a box always fills the same box exactly. The result is
// clamped to the image and never empty.
func (b Box) PixelRect(w, h int) image.Rectangle {
	x0 := int(b.X*float64(w) + 0.5)
	y0 := int(b.Y*float64(h) + 0.5)
	x1 := int((b.X+b.W)*float64(w) + 0.5)
	y1 := int((b.Y+b.H)*float64(h) + 0.5)
	if x1 > w {
		x1 = w
	}
	if y1 > h {
		y1 = h
	}
	if x1 <= x0 {
		x0 = x1 - 1
	}
	if y1 <= y0 {
		y0 = y1 - 1
	}
	if x0 < 0 {
		x0, x1 = 0, 1
	}
	if y0 < 0 {
		y0, y1 = 0, 1
	}
	return image.Rect(x0, y0, x1, y1)
}

// Contains reports whether other lies entirely inside b.
func (b Box) Contains(other Box) bool {
	return other.X >= b.X && other.Y >= b.Y &&
		other.X+other.W <= b.X+b.W && other.Y+other.H <= b.Y+b.H
}

// Primary represents the primary subject detected in an image
type Primary struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
	Cx         float64 `json:"cx"`
	Cy         float64 `json:"cy"`
}

// AnalysisResult contains the complete detection result from the vision model
type AnalysisResult struct {
	Primary     Primary  `json:"primary"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// ColorStats holds per-channel arithmetic means of a region, 0-255 domain.
type ColorStats struct {
	MeanR float64 `json:"mean_r"`
	MeanG float64 `json:"mean_g"`
	MeanB float64 `json:"mean_b"`
}

// Brightness returns the average of the three channel means.
func (s ColorStats) Brightness() float64 {
	return (s.MeanR + s.MeanG + s.MeanB) / 3
}

// TemperatureDelta returns the red-blue mean difference. Positive values
// indicate warm light, negative cool.
func (s ColorStats) TemperatureDelta() float64 {
	return s.MeanR - s.MeanB
}

// BrightnessLevel is the categorical brightness of a region
type BrightnessLevel string

const (
	Bright   BrightnessLevel = "bright"
	Moderate BrightnessLevel = "moderate"
	Dim      BrightnessLevel = "dim"
	Dark     BrightnessLevel = "dark"
)

// Temperature is the categorical color temperature of a region
type Temperature string

const (
	Warm    Temperature = "warm"
	Cool    Temperature = "cool"
	Neutral Temperature = "neutral"
)

// Lighting describes the measured lighting of a region
type Lighting struct {
	Level       BrightnessLevel `json:"level"`
	Temperature Temperature     `json:"temperature"`
	Brightness  float64         `json:"brightness"`
	TempDelta   float64         `json:"temp_delta"`
}

// Describe renders the lighting as a single deterministic sentence. This is
// the only place the lighting description is formatted; everything downstream
// (generation prompt, logs, metadata) uses this string.
func (l Lighting) Describe() string {
	var level string
	switch l.Level {
	case Bright:
		level = "bright"
	case Moderate:
		level = "moderately bright"
	case Dim:
		level = "dim"
	default:
		level = "dark"
	}
	return fmt.Sprintf("%s, %s lighting (brightness %.1f, temperature delta %.1f)",
		level, l.Temperature, l.Brightness, l.TempDelta)
}

// VerticalZone is the vertical placement of a region within the frame
type VerticalZone string

const (
	Upper  VerticalZone = "upper"
	Middle VerticalZone = "middle"
	Lower  VerticalZone = "lower"
)

// Orientation describes the inferred geometry of a detected region
type Orientation struct {
	AspectRatio  float64      `json:"aspect_ratio"`
	TiltDetected bool         `json:"tilt_detected"`
	VerticalZone VerticalZone `json:"vertical_zone"`
}

// Describe renders the orientation as a single deterministic sentence.
func (o Orientation) Describe() string {
	tilt := "upright"
	if o.TiltDetected {
		tilt = "tilted or angled"
	}
	return fmt.Sprintf("%s subject in the %s part of the frame (aspect ratio %.2f)",
		tilt, o.VerticalZone, o.AspectRatio)
}

// ColorCorrection is the adaptive per-channel cast correction computed by the
// color matcher. The same scalar shift applies uniformly to every pixel.
type ColorCorrection struct {
	ShiftR    float64 `json:"shift_r"`
	ShiftG    float64 `json:"shift_g"`
	ShiftB    float64 `json:"shift_b"`
	Magnitude float64 `json:"magnitude"`
	Strength  float64 `json:"strength"`
}

// CompositeResult carries the diagnostic metadata of a finished composite.
// The final image itself is returned separately and owned by the caller.
type CompositeResult struct {
	Lighting    Lighting        `json:"lighting"`
	Orientation Orientation     `json:"orientation"`
	Correction  ColorCorrection `json:"correction"`
	Box         Box             `json:"box"`
}

// Error taxonomy shared by all pipeline components. All of these indicate
// malformed inputs or wiring bugs, never transient conditions.
var (
	ErrInvalidGeometry   = errors.New("invalid geometry")
	ErrEmptyRegion       = errors.New("empty region")
	ErrDimensionMismatch = errors.New("dimension mismatch")
)
