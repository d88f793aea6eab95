// Package prompt assembles the text context sent to the image generator. The
// wording is derived only from the typed lighting and orientation values so
// the same measurements always produce the same prompt.
package prompt

import (
	"fmt"
	"strings"
)

// Context carries everything the generation prompt is built from
type Context struct {
	// ProductDescription names the replacement object, e.g. a bottle label
	// and shape description supplied by the caller.
	ProductDescription string
	// Lighting and Orientation are the Describe() sentences of the measured
	// descriptors.
	Lighting    string
	Orientation string
	// SceneLabel is the detector's label for the object being replaced,
	// empty when detection ran without one.
	SceneLabel string
}

// BuildGenerationPrompt renders the instruction for the external generator:
// replace the subject in the crop with the described product while matching
// the measured scene lighting and placement.
func BuildGenerationPrompt(c Context) string {
	var b strings.Builder

	b.WriteString("Replace the ")
	if c.SceneLabel != "" {
		b.WriteString(c.SceneLabel)
	} else {
		b.WriteString("product in the center of this photo")
	}
	b.WriteString(" with the following product: ")
	b.WriteString(c.ProductDescription)
	b.WriteString(".\n")

	fmt.Fprintf(&b, "Scene lighting: %s.\n", c.Lighting)
	fmt.Fprintf(&b, "Subject placement: %s.\n", c.Orientation)

	b.WriteString("Match the scene's lighting direction, shadows and reflections. ")
	b.WriteString("Keep the background and everything around the product unchanged. ")
	b.WriteString("Return an image with the exact same dimensions as the input.")

	return b.String()
}
