package prompt

import (
	"strings"
	"testing"
)

func TestBuildGenerationPrompt(t *testing.T) {
	ctx := Context{
		ProductDescription: "a green glass bottle with a cork stopper",
		Lighting:           "bright, warm lighting (brightness 180.0, temperature delta 22.0)",
		Orientation:        "upright subject in the middle part of the frame (aspect ratio 0.50)",
		SceneLabel:         "bottle",
	}

	p := BuildGenerationPrompt(ctx)

	for _, want := range []string{
		"Replace the bottle",
		ctx.ProductDescription,
		ctx.Lighting,
		ctx.Orientation,
		"same dimensions",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("Prompt missing %q:\n%s", want, p)
		}
	}
}

func TestBuildGenerationPromptNoLabel(t *testing.T) {
	ctx := Context{
		ProductDescription: "a matte black can",
		Lighting:           "dim, neutral lighting (brightness 90.0, temperature delta 3.0)",
		Orientation:        "tilted or angled subject in the lower part of the frame (aspect ratio 0.80)",
	}

	p := BuildGenerationPrompt(ctx)

	if !strings.Contains(p, "Replace the product in the center of this photo") {
		t.Errorf("Expected generic subject phrase, got:\n%s", p)
	}
}

func TestBuildGenerationPromptDeterministic(t *testing.T) {
	ctx := Context{
		ProductDescription: "a bottle",
		Lighting:           "moderately bright, cool lighting (brightness 140.0, temperature delta -18.0)",
		Orientation:        "upright subject in the upper part of the frame (aspect ratio 0.48)",
		SceneLabel:         "jar",
	}

	first := BuildGenerationPrompt(ctx)
	for i := 0; i < 5; i++ {
		if got := BuildGenerationPrompt(ctx); got != first {
			t.Fatalf("Prompt not deterministic on run %d", i)
		}
	}
}
