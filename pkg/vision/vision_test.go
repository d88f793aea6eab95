package vision

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/scene-composer/pkg/types"
)

// createTestImage creates an image with a bright high-contrast subject
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/3 && x < 2*width/3 && y > height/3 && y < 2*height/3 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{32, 32, 32, 255})
			}
		}
	}

	return img
}

func TestDetectBox(t *testing.T) {
	detector := New()
	img := createTestImage(300, 300)

	box, err := detector.DetectBox(img)
	if err != nil {
		t.Fatalf("DetectBox failed: %v", err)
	}

	if err := box.Validate(); err != nil {
		t.Errorf("Detected box invalid: %v", err)
	}

	// The detected box should overlap the bright central subject
	subject := types.Box{X: 1.0 / 3.0, Y: 1.0 / 3.0, W: 1.0 / 3.0, H: 1.0 / 3.0}
	if box.X+box.W < subject.X || box.X > subject.X+subject.W ||
		box.Y+box.H < subject.Y || box.Y > subject.Y+subject.H {
		t.Errorf("Detected box %+v does not overlap subject %+v", box, subject)
	}
}

func TestDetectBoxFlatImage(t *testing.T) {
	detector := New()

	// No edges anywhere: falls back to the centered half-frame box
	flat := image.NewRGBA(image.Rect(0, 0, 100, 100))
	box, err := detector.DetectBox(flat)
	if err != nil {
		t.Fatalf("DetectBox failed: %v", err)
	}

	if err := box.Validate(); err != nil {
		t.Errorf("Fallback box invalid: %v", err)
	}
}

func TestDetectBoxTooSmall(t *testing.T) {
	detector := New()

	tiny := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if _, err := detector.DetectBox(tiny); !errors.Is(err, types.ErrEmptyRegion) {
		t.Errorf("Expected ErrEmptyRegion, got %v", err)
	}
}
