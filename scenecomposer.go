// Package scenecomposer composites a separately generated replacement product
// back into a region of an original photograph so the result stays
// photometrically and geometrically consistent with the source scene.
//
// The pipeline around the external generation call is deterministic pixel
// math: the detection box is padded and clamped, the padded region is
// measured for brightness and color temperature, the subject's orientation is
// inferred from the box geometry, the crop is capped for the generator call,
// and the generator's output is color-matched against the original region and
// blended back under a feathered mask.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		scenecomposer "github.com/menta2k/scene-composer"
//		"github.com/menta2k/scene-composer/pkg/gemini"
//		"github.com/menta2k/scene-composer/pkg/processing"
//		"github.com/menta2k/scene-composer/pkg/types"
//	)
//
//	func main() {
//		ctx := context.Background()
//
//		processor := processing.NewProcessor()
//		img, err := processor.LoadImage("shelf.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		generator, err := gemini.NewClient(ctx, apiKey, "")
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer generator.Close()
//
//		pipeline := scenecomposer.New()
//		final, meta, err := pipeline.Composite(ctx, scenecomposer.Request{
//			Image:              img,
//			Box:                types.Box{X: 0.35, Y: 0.2, W: 0.25, H: 0.55},
//			ProductDescription: "a 750ml green glass bottle with a white label",
//		}, generator)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		log.Printf("lighting: %s, strength %.2f", meta.Lighting.Describe(), meta.Correction.Strength)
//		if err := processor.SaveImage(final, "shelf_composited.jpg", "jpg", 90, false); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// Every stage is a pure function over its inputs; images are never mutated in
// place, so independent requests need no locking.
package scenecomposer

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/scene-composer/internal/config"
	"github.com/menta2k/scene-composer/pkg/client"
	"github.com/menta2k/scene-composer/pkg/colormatch"
	"github.com/menta2k/scene-composer/pkg/compositor"
	"github.com/menta2k/scene-composer/pkg/geometry"
	"github.com/menta2k/scene-composer/pkg/orientation"
	"github.com/menta2k/scene-composer/pkg/photometry"
	"github.com/menta2k/scene-composer/pkg/processing"
	"github.com/menta2k/scene-composer/pkg/prompt"
	"github.com/menta2k/scene-composer/pkg/types"
)

// Version of the scene composer library
const Version = "1.0.0"

// Pipeline wires the analysis and compositing stages together. All tunables
// come from the config value given at construction.
type Pipeline struct {
	config      *config.Config
	expander    *geometry.Expander
	photometry  *photometry.Analyzer
	orientation *orientation.Analyzer
	matcher     *colormatch.Matcher
	compositor  *compositor.Compositor
	processor   *processing.Processor
}

// New creates a Pipeline with default configuration
func New() *Pipeline {
	return NewWithConfig(config.Default())
}

// NewWithConfig creates a Pipeline from an explicit configuration value
func NewWithConfig(cfg *config.Config) *Pipeline {
	return &Pipeline{
		config: cfg,
		expander: geometry.NewWithConfig(geometry.Config{
			PaddingFraction: cfg.Geometry.PaddingFraction,
		}),
		photometry: photometry.NewWithConfig(photometry.Config{
			BrightThreshold:   cfg.Photometry.BrightThreshold,
			ModerateThreshold: cfg.Photometry.ModerateThreshold,
			DimThreshold:      cfg.Photometry.DimThreshold,
			WarmDelta:         cfg.Photometry.WarmDelta,
		}),
		orientation: orientation.NewWithConfig(orientation.Config{
			ReferenceAspect: cfg.Orientation.ReferenceAspect,
			TiltTolerance:   cfg.Orientation.TiltTolerance,
		}),
		matcher: colormatch.NewWithConfig(colormatch.Config{
			MinStrength:    cfg.ColorMatch.MinStrength,
			MaxStrength:    cfg.ColorMatch.MaxStrength,
			MagnitudeScale: cfg.ColorMatch.MagnitudeScale,
		}),
		compositor: compositor.NewWithConfig(compositor.Config{
			FeatherFraction: cfg.Compositor.FeatherFraction,
		}),
		processor: processing.NewProcessor(),
	}
}

// Request is one compositing job: the original photo, the detector's box for
// the product being replaced, and what to put there instead.
type Request struct {
	Image              image.Image
	Box                types.Box
	ProductDescription string
	// SceneLabel is the detector's label for the existing subject, optional.
	SceneLabel string
}

// SceneAnalysis is the measured context of the region being replaced
type SceneAnalysis struct {
	ExpandedBox types.Box
	Stats       types.ColorStats
	Lighting    types.Lighting
	Orientation types.Orientation
	// Region is the expanded crop at native resolution.
	Region *image.NRGBA
}

// AnalyzeScene expands the detection box, crops the region and measures its
// lighting and orientation. Composite runs this internally; it is exported
// for callers that only need the generation context.
func (p *Pipeline) AnalyzeScene(img image.Image, box types.Box) (*SceneAnalysis, error) {
	expanded, err := p.expander.Expand(box)
	if err != nil {
		return nil, fmt.Errorf("box expansion failed: %w", err)
	}

	region, err := p.processor.CropRegion(img, expanded)
	if err != nil {
		return nil, fmt.Errorf("region crop failed: %w", err)
	}

	stats, lighting, err := p.photometry.Analyze(region)
	if err != nil {
		return nil, fmt.Errorf("photometric analysis failed: %w", err)
	}

	// Orientation reads the tight detection box, not the padded one; padding
	// would skew the aspect ratio.
	orient, err := p.orientation.Analyze(box)
	if err != nil {
		return nil, fmt.Errorf("orientation analysis failed: %w", err)
	}

	return &SceneAnalysis{
		ExpandedBox: expanded,
		Stats:       stats,
		Lighting:    lighting,
		Orientation: orient,
		Region:      region,
	}, nil
}

// GenerationPrompt builds the text context for the generator from a scene
// analysis and the request's product description.
func (p *Pipeline) GenerationPrompt(req Request, scene *SceneAnalysis) string {
	return prompt.BuildGenerationPrompt(prompt.Context{
		ProductDescription: req.ProductDescription,
		Lighting:           scene.Lighting.Describe(),
		Orientation:        scene.Orientation.Describe(),
		SceneLabel:         req.SceneLabel,
	})
}

// Composite runs the full pipeline: analyze the scene, call the generator on
// the size-capped crop, color-match the generated region against the original
// and blend it back with a feathered mask. The returned image is owned by the
// caller; the metadata is suitable for logging.
func (p *Pipeline) Composite(ctx context.Context, req Request, generator client.ImageGenerator) (*image.NRGBA, *types.CompositeResult, error) {
	scene, err := p.AnalyzeScene(req.Image, req.Box)
	if err != nil {
		return nil, nil, err
	}

	promptText := p.GenerationPrompt(req, scene)

	sendImg := p.processor.ResizeForGeneration(scene.Region, p.config.Resize.MaxDimension)
	sendBytes, err := p.processor.EncodeImage(sendImg, p.config.Generator.SendFormat, p.config.Generator.SendQuality)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode region for generation: %w", err)
	}

	mimeType := "image/jpeg"
	if p.config.Generator.SendFormat == "png" {
		mimeType = "image/png"
	}

	genBytes, err := generator.GenerateRegion(ctx, sendBytes, mimeType, promptText)
	if err != nil {
		return nil, nil, fmt.Errorf("generation call failed: %w", err)
	}

	genImg, err := p.processor.DecodeImage(genBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode generated image: %w", err)
	}

	// The crop was downscaled for the call; bring the generated region back
	// to the native crop size before matching and compositing.
	rb := scene.Region.Bounds()
	if gb := genImg.Bounds(); gb.Dx() != rb.Dx() || gb.Dy() != rb.Dy() {
		genImg = imaging.Resize(genImg, rb.Dx(), rb.Dy(), imaging.Lanczos)
	}

	genStats, err := p.photometry.Stats(genImg)
	if err != nil {
		return nil, nil, fmt.Errorf("photometric analysis of generated region failed: %w", err)
	}

	correction := p.matcher.Match(scene.Stats, genStats)
	corrected := p.matcher.Apply(genImg, correction)

	final, err := p.compositor.Composite(req.Image, corrected, scene.ExpandedBox)
	if err != nil {
		return nil, nil, fmt.Errorf("compositing failed: %w", err)
	}

	return final, &types.CompositeResult{
		Lighting:    scene.Lighting,
		Orientation: scene.Orientation,
		Correction:  correction,
		Box:         scene.ExpandedBox,
	}, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
