package colormatch

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/menta2k/scene-composer/pkg/types"
)

func uniformImage(width, height int, c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestMatchZeroDivergence(t *testing.T) {
	matcher := New()

	stats := types.ColorStats{MeanR: 120, MeanG: 110, MeanB: 100}
	c := matcher.Match(stats, stats)

	if c.ShiftR != 0 || c.ShiftG != 0 || c.ShiftB != 0 {
		t.Errorf("Expected zero shift, got (%f,%f,%f)", c.ShiftR, c.ShiftG, c.ShiftB)
	}
	if c.Magnitude != 0 {
		t.Errorf("Expected zero magnitude, got %f", c.Magnitude)
	}
	if c.Strength != 0.3 {
		t.Errorf("Expected strength floored at 0.3, got %f", c.Strength)
	}
}

func TestApplyZeroShiftIsIdentity(t *testing.T) {
	matcher := New()

	stats := types.ColorStats{MeanR: 120, MeanG: 110, MeanB: 100}
	c := matcher.Match(stats, stats)

	img := uniformImage(16, 16, color.NRGBA{87, 121, 201, 255})
	out := matcher.Apply(img, c)

	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i] != 87 || out.Pix[i+1] != 121 || out.Pix[i+2] != 201 || out.Pix[i+3] != 255 {
			t.Fatalf("Pixel changed under zero correction: got (%d,%d,%d,%d)",
				out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3])
		}
	}
}

func TestMatchDocumentedExample(t *testing.T) {
	matcher := New()

	original := types.ColorStats{MeanR: 185, MeanG: 172, MeanB: 143}
	generated := types.ColorStats{MeanR: 140, MeanG: 140, MeanB: 115}

	c := matcher.Match(original, generated)

	if c.ShiftR != 45 || c.ShiftG != 32 || c.ShiftB != 28 {
		t.Errorf("Expected shift (45,32,28), got (%f,%f,%f)", c.ShiftR, c.ShiftG, c.ShiftB)
	}

	wantMagnitude := math.Sqrt(45*45 + 32*32 + 28*28)
	if math.Abs(c.Magnitude-wantMagnitude) > 1e-9 {
		t.Errorf("Expected magnitude %f, got %f", wantMagnitude, c.Magnitude)
	}

	wantStrength := 0.3 + (wantMagnitude/100)*0.3
	if math.Abs(c.Strength-wantStrength) > 1e-9 {
		t.Errorf("Expected strength %f, got %f", wantStrength, c.Strength)
	}
	if math.Abs(c.Strength-0.49) > 0.01 {
		t.Errorf("Strength %f should be approximately 0.49", c.Strength)
	}
}

func TestStrengthMonotonicAndBounded(t *testing.T) {
	matcher := New()

	base := types.ColorStats{MeanR: 100, MeanG: 100, MeanB: 100}

	var last float64
	for i, d := range []float64{0, 5, 20, 50, 80, 99} {
		c := matcher.Match(base, types.ColorStats{MeanR: 100 - d, MeanG: 100, MeanB: 100})
		if i > 0 && c.Strength <= last {
			t.Errorf("Strength not strictly increasing below the cap: %f after %f", c.Strength, last)
		}
		last = c.Strength
	}

	// Past the cap everything pins to 0.6
	for _, d := range []float64{100, 150, 255, 1000} {
		c := matcher.Match(base, types.ColorStats{MeanR: 100 - d, MeanG: 100, MeanB: 100})
		if c.Strength > 0.6 {
			t.Errorf("Strength %f exceeds 0.6 at magnitude %f", c.Strength, c.Magnitude)
		}
		if c.Strength < 0.3 {
			t.Errorf("Strength %f below 0.3 at magnitude %f", c.Strength, c.Magnitude)
		}
	}
}

func TestApplySaturates(t *testing.T) {
	matcher := New()

	// Push a bright image brighter and a dark image darker
	up := matcher.Match(
		types.ColorStats{MeanR: 255, MeanG: 255, MeanB: 255},
		types.ColorStats{MeanR: 55, MeanG: 55, MeanB: 55},
	)
	bright := matcher.Apply(uniformImage(4, 4, color.NRGBA{250, 250, 250, 255}), up)
	for i := 0; i < len(bright.Pix); i += 4 {
		if bright.Pix[i] != 255 {
			t.Fatalf("Expected red channel saturated at 255, got %d", bright.Pix[i])
		}
	}

	down := matcher.Match(
		types.ColorStats{MeanR: 0, MeanG: 0, MeanB: 0},
		types.ColorStats{MeanR: 200, MeanG: 200, MeanB: 200},
	)
	dark := matcher.Apply(uniformImage(4, 4, color.NRGBA{10, 10, 10, 255}), down)
	for i := 0; i < len(dark.Pix); i += 4 {
		if dark.Pix[i] != 0 {
			t.Fatalf("Expected red channel saturated at 0, got %d", dark.Pix[i])
		}
	}
}

func TestApplyUniformShift(t *testing.T) {
	matcher := New()

	c := types.ColorCorrection{ShiftR: 20, ShiftG: -10, ShiftB: 0, Magnitude: 22.4, Strength: 0.5}
	out := matcher.Apply(uniformImage(4, 4, color.NRGBA{100, 100, 100, 255}), c)

	// 100 + 20*0.5 = 110, 100 - 10*0.5 = 95
	if out.Pix[0] != 110 || out.Pix[1] != 95 || out.Pix[2] != 100 {
		t.Errorf("Expected (110,95,100), got (%d,%d,%d)", out.Pix[0], out.Pix[1], out.Pix[2])
	}
}

func TestClampChannel(t *testing.T) {
	cases := []struct {
		in   float64
		want uint8
	}{
		{-50, 0}, {-0.1, 0}, {0, 0}, {127.4, 127}, {127.6, 128}, {255, 255}, {300, 255},
	}
	for _, tc := range cases {
		if got := ClampChannel(tc.in); got != tc.want {
			t.Errorf("ClampChannel(%f) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
