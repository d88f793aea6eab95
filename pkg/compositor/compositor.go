// Package compositor merges a corrected generated region back into the
// original photograph with a feathered mask so the seam is invisible.
package compositor

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/scene-composer/pkg/colormatch"
	"github.com/menta2k/scene-composer/pkg/types"
)

// Compositor blends a region image into a base image inside a normalized box
type Compositor struct {
	config Config
}

// Config holds configuration for feathered compositing
type Config struct {
	// FeatherFraction is the share of the box half-extent, measured inward
	// from the boundary, over which the blend weight falls from 1 to 0.
	FeatherFraction float64
}

// New creates a new Compositor with default configuration
func New() *Compositor {
	return &Compositor{
		config: Config{
			FeatherFraction: 0.12,
		},
	}
}

// NewWithConfig creates a new Compositor with custom configuration
func NewWithConfig(config Config) *Compositor {
	return &Compositor{config: config}
}

// Composite returns a new image equal to base outside box and a feathered
// blend of base and region inside it. The region must match the box's pixel
// dimensions in base exactly; a mismatch is a wiring bug upstream and fails
// with types.ErrDimensionMismatch.
//
// The blend weight is 1 at the box center, stays 1 through the interior, and
// falls to 0 at the box boundary along a cosine curve over the outer
// FeatherFraction of the half-extent.
func (c *Compositor) Composite(base, region image.Image, box types.Box) (*image.NRGBA, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}

	out := imaging.Clone(base)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()

	rect := box.PixelRect(w, h)
	x0, y0 := rect.Min.X, rect.Min.Y
	boxW, boxH := rect.Dx(), rect.Dy()

	rb := region.Bounds()
	if rb.Dx() != boxW || rb.Dy() != boxH {
		return nil, fmt.Errorf("%w: region %dx%d does not fill box %dx%d",
			types.ErrDimensionMismatch, rb.Dx(), rb.Dy(), boxW, boxH)
	}

	src := imaging.Clone(region)

	cx := float64(boxW-1) / 2
	cy := float64(boxH-1) / 2
	halfW := math.Max(float64(boxW)/2, 1)
	halfH := math.Max(float64(boxH)/2, 1)
	inner := 1 - c.config.FeatherFraction

	for ry := 0; ry < boxH; ry++ {
		si := ry * src.Stride
		oi := (y0+ry)*out.Stride + x0*4
		for rx := 0; rx < boxW; rx++ {
			weight := featherWeight(
				math.Abs(float64(rx)-cx)/halfW,
				math.Abs(float64(ry)-cy)/halfH,
				inner,
			)

			if weight >= 1 {
				out.Pix[oi+0] = src.Pix[si+0]
				out.Pix[oi+1] = src.Pix[si+1]
				out.Pix[oi+2] = src.Pix[si+2]
			} else if weight > 0 {
				for ch := 0; ch < 3; ch++ {
					b := float64(out.Pix[oi+ch])
					s := float64(src.Pix[si+ch])
					out.Pix[oi+ch] = colormatch.ClampChannel(b*(1-weight) + s*weight)
				}
			}

			si += 4
			oi += 4
		}
	}

	return out, nil
}

// featherWeight maps a pixel's normalized distance from the box center to a
// blend weight. dx and dy are in [0,1] half-extent units; inner marks where
// the falloff band begins.
func featherWeight(dx, dy, inner float64) float64 {
	r := math.Max(dx, dy)
	switch {
	case r <= inner:
		return 1
	case r >= 1:
		return 0
	default:
		// Cosine falloff across the band, continuous at both ends.
		return 0.5 * (1 + math.Cos(math.Pi*(r-inner)/(1-inner)))
	}
}
