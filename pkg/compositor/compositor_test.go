package compositor

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/scene-composer/pkg/types"
)

func uniformImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestCompositeBoundaryProperty(t *testing.T) {
	comp := New()

	base := uniformImage(200, 200, color.NRGBA{60, 60, 60, 255})
	box := types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}
	region := uniformImage(100, 100, color.NRGBA{200, 30, 30, 255})

	out, err := comp.Composite(base, region, box)
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}

	// Strictly outside the box: base pixels untouched
	outside := []image.Point{{0, 0}, {10, 100}, {199, 199}, {100, 10}, {49, 100}, {100, 151}}
	for _, pt := range outside {
		c := out.NRGBAAt(pt.X, pt.Y)
		if c.R != 60 || c.G != 60 || c.B != 60 {
			t.Errorf("Pixel %v outside box changed: got (%d,%d,%d)", pt, c.R, c.G, c.B)
		}
	}

	// Box center: fully generated content
	center := out.NRGBAAt(100, 100)
	if center.R != 200 || center.G != 30 || center.B != 30 {
		t.Errorf("Center pixel not taken from region: got (%d,%d,%d)", center.R, center.G, center.B)
	}
}

func TestCompositeFeatherBand(t *testing.T) {
	comp := New()

	base := uniformImage(200, 200, color.NRGBA{0, 0, 0, 255})
	box := types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}
	region := uniformImage(100, 100, color.NRGBA{200, 200, 200, 255})

	out, err := comp.Composite(base, region, box)
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}

	// A pixel just inside the box edge sits in the feather band: neither
	// fully base nor fully region
	edge := out.NRGBAAt(51, 100)
	if edge.R == 0 || edge.R == 200 {
		t.Errorf("Feather band pixel should be blended, got %d", edge.R)
	}

	// Weight decreases monotonically toward the boundary
	prev := uint8(255)
	for x := 100; x >= 50; x-- {
		v := out.NRGBAAt(x, 100).R
		if v > prev {
			t.Fatalf("Blend weight not monotonic at x=%d: %d after %d", x, v, prev)
		}
		prev = v
	}
}

func TestCompositeDimensionMismatch(t *testing.T) {
	comp := New()

	base := uniformImage(200, 200, color.NRGBA{60, 60, 60, 255})
	box := types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}
	wrong := uniformImage(99, 100, color.NRGBA{200, 30, 30, 255})

	if _, err := comp.Composite(base, wrong, box); !errors.Is(err, types.ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch, got %v", err)
	}
}

func TestCompositeInvalidBox(t *testing.T) {
	comp := New()

	base := uniformImage(100, 100, color.NRGBA{60, 60, 60, 255})
	region := uniformImage(50, 50, color.NRGBA{200, 30, 30, 255})

	if _, err := comp.Composite(base, region, types.Box{X: 0.8, Y: 0.1, W: 0.5, H: 0.5}); !errors.Is(err, types.ErrInvalidGeometry) {
		t.Errorf("Expected ErrInvalidGeometry, got %v", err)
	}
}

func TestFeatherWeight(t *testing.T) {
	inner := 0.88

	if w := featherWeight(0, 0, inner); w != 1 {
		t.Errorf("Weight at center = %f, want 1", w)
	}
	if w := featherWeight(1, 0, inner); w != 0 {
		t.Errorf("Weight at boundary = %f, want 0", w)
	}
	if w := featherWeight(0.5, 0.88, inner); w != 1 {
		t.Errorf("Weight at inner edge = %f, want 1", w)
	}

	mid := featherWeight(0.94, 0, inner)
	if mid <= 0 || mid >= 1 {
		t.Errorf("Weight inside band = %f, want strictly between 0 and 1", mid)
	}

	// Monotone decrease across the band
	prev := 1.0
	for r := 0.88; r <= 1.0; r += 0.01 {
		w := featherWeight(r, 0, inner)
		if w > prev {
			t.Fatalf("featherWeight not monotone at r=%f", r)
		}
		prev = w
	}
}

func BenchmarkComposite(b *testing.B) {
	comp := New()
	base := uniformImage(1024, 768, color.NRGBA{60, 60, 60, 255})
	box := types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}
	region := uniformImage(512, 384, color.NRGBA{200, 30, 30, 255})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := comp.Composite(base, region, box); err != nil {
			b.Fatal(err)
		}
	}
}
