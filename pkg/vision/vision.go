// Package vision is a local fallback detector. When no vision-model server is
// configured it picks the most salient region of the photo as the replacement
// target, using edge and contrast heuristics only.
package vision

import (
	"fmt"
	"image"
	"math"

	"github.com/menta2k/scene-composer/pkg/types"
)

// Detector finds the dominant salient region of an image
type Detector struct {
	config Config
}

// Config holds configuration for local saliency detection
type Config struct {
	EdgeThreshold  float64
	ContrastWeight float64
	ColorWeight    float64
	// MinBoxRatio is the smallest acceptable box area relative to the image.
	MinBoxRatio float64
}

// New creates a new Detector with default configuration
func New() *Detector {
	return &Detector{
		config: Config{
			EdgeThreshold:  0.01,
			ContrastWeight: 0.3,
			ColorWeight:    0.2,
			MinBoxRatio:    0.05,
		},
	}
}

// NewWithConfig creates a new Detector with custom configuration
func NewWithConfig(config Config) *Detector {
	return &Detector{config: config}
}

// DetectBox returns the normalized bounding box of the most salient region.
// When nothing clears the threshold it falls back to a centered half-frame
// box, the same fallback the model backends use.
func (d *Detector) DetectBox(img image.Image) (types.Box, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 3 || height < 3 {
		return types.Box{}, fmt.Errorf("%w: image %dx%d too small for saliency detection",
			types.ErrEmptyRegion, width, height)
	}

	saliency := d.saliencyMap(img)

	best, found := d.bestWindow(saliency, width, height)
	if !found {
		return types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}, nil
	}

	return types.Box{
		X: float64(best.Min.X) / float64(width),
		Y: float64(best.Min.Y) / float64(height),
		W: float64(best.Dx()) / float64(width),
		H: float64(best.Dy()) / float64(height),
	}, nil
}

// saliencyMap scores each interior pixel by local edge strength and
// brightness contrast
func (d *Detector) saliencyMap(img image.Image) [][]float64 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	saliency := make([][]float64, height)
	for i := range saliency {
		saliency[i] = make([]float64, width)
	}

	neighbors := [][]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			r1, g1, b1, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()

			var edgeStrength float64
			for _, offset := range neighbors {
				r2, g2, b2, _ := img.At(x+offset[0]+bounds.Min.X, y+offset[1]+bounds.Min.Y).RGBA()

				dr := float64(r1) - float64(r2)
				dg := float64(g1) - float64(g2)
				db := float64(b1) - float64(b2)
				edgeStrength += math.Sqrt(dr*dr + dg*dg + db*db)
			}
			// 8 neighbors, 16-bit channel range
			edgeStrength /= 8.0 * 65535.0

			brightness := (float64(r1) + float64(g1) + float64(b1)) / (3.0 * 65535.0)

			saliency[y][x] = d.config.ContrastWeight*edgeStrength + d.config.ColorWeight*brightness
		}
	}

	return saliency
}

// bestWindow slides windows of several sizes over the saliency map and keeps
// the highest-scoring one that clears the threshold and the area floor
func (d *Detector) bestWindow(saliency [][]float64, width, height int) (image.Rectangle, bool) {
	minArea := int(float64(width*height) * d.config.MinBoxRatio)

	bestScore := d.config.EdgeThreshold
	var best image.Rectangle
	found := false

	for _, div := range []int{8, 6, 4, 3, 2} {
		winW := width / div
		winH := height / div
		if winW < 10 || winH < 10 || winW*winH < minArea {
			continue
		}
		stepX := maxInt(winW/8, 1)
		stepY := maxInt(winH/8, 1)

		for y := 0; y+winH <= height; y += stepY {
			for x := 0; x+winW <= width; x += stepX {
				score := windowScore(saliency, x, y, winW, winH)
				if score > bestScore {
					bestScore = score
					best = image.Rect(x, y, x+winW, y+winH)
					found = true
				}
			}
		}
	}

	return best, found
}

func windowScore(saliency [][]float64, x, y, w, h int) float64 {
	var total float64
	for ry := y; ry < y+h; ry++ {
		for rx := x; rx < x+w; rx++ {
			total += saliency[ry][rx]
		}
	}
	return total / float64(w*h)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
