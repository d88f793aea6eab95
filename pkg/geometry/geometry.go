// Package geometry expands detection bounding boxes so the crop sent to the
// generator includes enough surrounding scene context.
package geometry

import (
	"github.com/menta2k/scene-composer/pkg/types"
)

// Expander grows a normalized bounding box by a padding fraction
type Expander struct {
	config Config
}

// Config holds configuration for box expansion
type Config struct {
	// PaddingFraction of the box's own extent added to each side.
	PaddingFraction float64
}

// New creates a new Expander with default configuration
func New() *Expander {
	return &Expander{
		config: Config{
			PaddingFraction: 0.30,
		},
	}
}

// NewWithConfig creates a new Expander with custom configuration
func NewWithConfig(config Config) *Expander {
	return &Expander{config: config}
}

// Expand grows box outward by PaddingFraction of its width horizontally and
// of its height vertically, keeping the original box centered. Each edge is
// clamped to the unit square independently: overflow on one side shrinks the
// expansion on that side only and never pushes the opposite edge inward past
// the original box.
func (e *Expander) Expand(box types.Box) (types.Box, error) {
	if err := box.Validate(); err != nil {
		return types.Box{}, err
	}

	padX := e.config.PaddingFraction * box.W
	padY := e.config.PaddingFraction * box.H

	x0 := clamp(box.X-padX, 0, box.X)
	y0 := clamp(box.Y-padY, 0, box.Y)
	x1 := clamp(box.X+box.W+padX, box.X+box.W, 1)
	y1 := clamp(box.Y+box.H+padY, box.Y+box.H, 1)

	return types.Box{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
