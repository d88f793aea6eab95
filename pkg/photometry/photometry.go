// Package photometry measures the average color of an image region and
// classifies its lighting for the generation prompt.
package photometry

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/scene-composer/pkg/types"
)

// Analyzer computes region color statistics and lighting classification
type Analyzer struct {
	config Config
}

// Config holds the classification thresholds, all in the 0-255 domain
type Config struct {
	BrightThreshold   float64
	ModerateThreshold float64
	DimThreshold      float64
	WarmDelta         float64
}

// New creates a new Analyzer with default thresholds
func New() *Analyzer {
	return &Analyzer{
		config: Config{
			BrightThreshold:   170,
			ModerateThreshold: 120,
			DimThreshold:      70,
			WarmDelta:         15,
		},
	}
}

// NewWithConfig creates a new Analyzer with custom thresholds
func NewWithConfig(config Config) *Analyzer {
	return &Analyzer{config: config}
}

// Analyze computes the per-channel arithmetic mean over every pixel of the
// region and classifies brightness and color temperature. The full region is
// measured, never a sample, so results are reproducible.
func (a *Analyzer) Analyze(region image.Image) (types.ColorStats, types.Lighting, error) {
	stats, err := a.Stats(region)
	if err != nil {
		return types.ColorStats{}, types.Lighting{}, err
	}
	return stats, a.Classify(stats), nil
}

// Stats computes only the per-channel means of the region.
func (a *Analyzer) Stats(region image.Image) (types.ColorStats, error) {
	bounds := region.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return types.ColorStats{}, fmt.Errorf("%w: region is %dx%d", types.ErrEmptyRegion, w, h)
	}

	// Clone to NRGBA so every pixel is plain 8-bit non-premultiplied RGB
	// regardless of the source color model.
	nrgba := imaging.Clone(region)

	var sumR, sumG, sumB float64
	for y := 0; y < h; y++ {
		i := y * nrgba.Stride
		for x := 0; x < w; x++ {
			sumR += float64(nrgba.Pix[i+0])
			sumG += float64(nrgba.Pix[i+1])
			sumB += float64(nrgba.Pix[i+2])
			i += 4
		}
	}

	n := float64(w * h)
	return types.ColorStats{
		MeanR: sumR / n,
		MeanG: sumG / n,
		MeanB: sumB / n,
	}, nil
}

// Classify maps color statistics to a lighting descriptor using the
// configured thresholds.
func (a *Analyzer) Classify(stats types.ColorStats) types.Lighting {
	brightness := stats.Brightness()
	delta := stats.TemperatureDelta()

	var level types.BrightnessLevel
	switch {
	case brightness >= a.config.BrightThreshold:
		level = types.Bright
	case brightness >= a.config.ModerateThreshold:
		level = types.Moderate
	case brightness >= a.config.DimThreshold:
		level = types.Dim
	default:
		level = types.Dark
	}

	var temp types.Temperature
	switch {
	case delta > a.config.WarmDelta:
		temp = types.Warm
	case delta < -a.config.WarmDelta:
		temp = types.Cool
	default:
		temp = types.Neutral
	}

	return types.Lighting{
		Level:       level,
		Temperature: temp,
		Brightness:  brightness,
		TempDelta:   delta,
	}
}
