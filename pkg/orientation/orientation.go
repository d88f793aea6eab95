// Package orientation infers tilt and vertical placement of a detected
// region from its bounding box alone.
package orientation

import (
	"math"

	"github.com/menta2k/scene-composer/pkg/types"
)

// Analyzer classifies the geometry of a detection box
type Analyzer struct {
	config Config
}

// Config holds configuration for orientation analysis
type Config struct {
	// ReferenceAspect is the expected width:height ratio of the target
	// subject when photographed upright.
	ReferenceAspect float64
	// TiltTolerance is the relative aspect deviation above which the
	// subject is assumed tilted.
	TiltTolerance float64
}

// New creates a new Analyzer with defaults tuned for upright bottles
func New() *Analyzer {
	return &Analyzer{
		config: Config{
			ReferenceAspect: 0.5,
			TiltTolerance:   0.15,
		},
	}
}

// NewWithConfig creates a new Analyzer with custom configuration
func NewWithConfig(config Config) *Analyzer {
	return &Analyzer{config: config}
}

// Analyze derives aspect ratio, tilt and vertical zone from the box. A box
// whose aspect deviates from the reference by more than the tolerance is
// reported as tilted; the vertical zone comes from the box's vertical center.
func (a *Analyzer) Analyze(box types.Box) (types.Orientation, error) {
	if err := box.Validate(); err != nil {
		return types.Orientation{}, err
	}

	aspect := box.W / box.H
	deviation := math.Abs(aspect-a.config.ReferenceAspect) / a.config.ReferenceAspect

	centerY := box.Y + box.H/2
	var zone types.VerticalZone
	switch {
	case centerY < 1.0/3.0:
		zone = types.Upper
	case centerY < 2.0/3.0:
		zone = types.Middle
	default:
		zone = types.Lower
	}

	return types.Orientation{
		AspectRatio:  aspect,
		TiltDetected: deviation > a.config.TiltTolerance,
		VerticalZone: zone,
	}, nil
}
