// Package colormatch computes and applies the adaptive color-cast correction
// that pulls a generated region toward the original scene's lighting.
package colormatch

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/scene-composer/pkg/types"
)

// Matcher computes adaptive color corrections from region statistics
type Matcher struct {
	config Config
}

// Config holds the strength ramp parameters
type Config struct {
	// MinStrength is applied even when the generated region already matches
	// the scene; MaxStrength caps the correction so the generated region's
	// own shading is never fully replaced.
	MinStrength float64
	MaxStrength float64
	// MagnitudeScale is the shift magnitude at which the ramp contributes
	// one full MinStrength step on top of the floor.
	MagnitudeScale float64
}

// New creates a new Matcher with the default 0.3-0.6 ramp
func New() *Matcher {
	return &Matcher{
		config: Config{
			MinStrength:    0.3,
			MaxStrength:    0.6,
			MagnitudeScale: 100,
		},
	}
}

// NewWithConfig creates a new Matcher with custom configuration
func NewWithConfig(config Config) *Matcher {
	return &Matcher{config: config}
}

// Match compares the original region's statistics against the generated
// region's and returns the correction to apply. Strength ramps linearly with
// the Euclidean shift magnitude, floored at MinStrength and capped at
// MaxStrength.
func (m *Matcher) Match(original, generated types.ColorStats) types.ColorCorrection {
	shiftR := original.MeanR - generated.MeanR
	shiftG := original.MeanG - generated.MeanG
	shiftB := original.MeanB - generated.MeanB

	magnitude := math.Sqrt(shiftR*shiftR + shiftG*shiftG + shiftB*shiftB)

	strength := m.config.MinStrength + (magnitude/m.config.MagnitudeScale)*m.config.MinStrength
	if strength > m.config.MaxStrength {
		strength = m.config.MaxStrength
	}

	return types.ColorCorrection{
		ShiftR:    shiftR,
		ShiftG:    shiftG,
		ShiftB:    shiftB,
		Magnitude: magnitude,
		Strength:  strength,
	}
}

// Apply adds the scaled shift uniformly to every pixel of img and returns a
// new image. This is a global cast correction, not per-pixel relighting:
// spatial shading within the region is preserved. Alpha passes through.
func (m *Matcher) Apply(img image.Image, c types.ColorCorrection) *image.NRGBA {
	out := imaging.Clone(img)

	dr := c.ShiftR * c.Strength
	dg := c.ShiftG * c.Strength
	db := c.ShiftB * c.Strength

	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i+0] = ClampChannel(float64(out.Pix[i+0]) + dr)
		out.Pix[i+1] = ClampChannel(float64(out.Pix[i+1]) + dg)
		out.Pix[i+2] = ClampChannel(float64(out.Pix[i+2]) + db)
	}
	return out
}

// ClampChannel saturates a float channel value to the [0,255] domain. All
// pixel arithmetic in the pipeline goes through this so overflow can never
// reach an output pixel.
func ClampChannel(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
