package orientation

import (
	"errors"
	"testing"

	"github.com/menta2k/scene-composer/pkg/types"
)

func TestAnalyzeUpright(t *testing.T) {
	analyzer := New()

	// Aspect 0.4/0.8 = 0.5 matches the reference exactly
	result, err := analyzer.Analyze(types.Box{X: 0.3, Y: 0.1, W: 0.4, H: 0.8})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.AspectRatio != 0.5 {
		t.Errorf("Expected aspect ratio 0.5, got %f", result.AspectRatio)
	}
	if result.TiltDetected {
		t.Error("Expected no tilt at reference aspect")
	}
}

func TestAnalyzeTilted(t *testing.T) {
	analyzer := New()

	// Aspect 0.623: deviation 24.6% exceeds the 15% tolerance
	result, err := analyzer.Analyze(types.Box{X: 0.1, Y: 0.1, W: 0.4984, H: 0.8})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !result.TiltDetected {
		t.Errorf("Expected tilt at aspect ratio %f", result.AspectRatio)
	}
}

func TestAnalyzeTiltBoundary(t *testing.T) {
	analyzer := New()

	// 14% deviation stays under the tolerance, 16% goes over
	under, err := analyzer.Analyze(types.Box{X: 0.1, Y: 0.1, W: 0.456, H: 0.8})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if under.TiltDetected {
		t.Errorf("14%% deviation (aspect %f) should not report tilt", under.AspectRatio)
	}

	over, err := analyzer.Analyze(types.Box{X: 0.1, Y: 0.1, W: 0.464, H: 0.8})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !over.TiltDetected {
		t.Errorf("16%% deviation (aspect %f) should report tilt", over.AspectRatio)
	}
}

func TestAnalyzeVerticalZones(t *testing.T) {
	analyzer := New()

	cases := []struct {
		name string
		box  types.Box
		zone types.VerticalZone
	}{
		{"upper", types.Box{X: 0.4, Y: 0.0, W: 0.1, H: 0.2}, types.Upper},
		{"middle", types.Box{X: 0.4, Y: 0.4, W: 0.1, H: 0.2}, types.Middle},
		{"lower", types.Box{X: 0.4, Y: 0.7, W: 0.1, H: 0.2}, types.Lower},
		{"upper boundary", types.Box{X: 0.4, Y: 0.0, W: 0.1, H: 2.0 / 3.0}, types.Middle},
	}

	for _, tc := range cases {
		result, err := analyzer.Analyze(tc.box)
		if err != nil {
			t.Fatalf("%s: Analyze failed: %v", tc.name, err)
		}
		if result.VerticalZone != tc.zone {
			t.Errorf("%s: expected zone %s, got %s", tc.name, tc.zone, result.VerticalZone)
		}
	}
}

func TestAnalyzeInvalidBox(t *testing.T) {
	analyzer := New()

	if _, err := analyzer.Analyze(types.Box{X: 0.5, Y: 0.5, W: 0.6, H: 0.2}); !errors.Is(err, types.ErrInvalidGeometry) {
		t.Errorf("Expected ErrInvalidGeometry, got %v", err)
	}
	if _, err := analyzer.Analyze(types.Box{X: 0.1, Y: 0.1, W: 0.2, H: 0}); !errors.Is(err, types.ErrInvalidGeometry) {
		t.Errorf("Expected ErrInvalidGeometry for zero height, got %v", err)
	}
}

func TestCustomReferenceAspect(t *testing.T) {
	analyzer := NewWithConfig(Config{ReferenceAspect: 1.0, TiltTolerance: 0.1})

	result, err := analyzer.Analyze(types.Box{X: 0.1, Y: 0.1, W: 0.4, H: 0.4})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.TiltDetected {
		t.Error("Square box should match a square reference")
	}
}
