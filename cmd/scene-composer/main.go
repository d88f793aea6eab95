package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	scenecomposer "github.com/menta2k/scene-composer"
	"github.com/menta2k/scene-composer/internal/config"
	"github.com/menta2k/scene-composer/internal/utils"
	"github.com/menta2k/scene-composer/pkg/client"
	"github.com/menta2k/scene-composer/pkg/detection"
	"github.com/menta2k/scene-composer/pkg/gemini"
	"github.com/menta2k/scene-composer/pkg/llamacpp"
	"github.com/menta2k/scene-composer/pkg/ollama"
	"github.com/menta2k/scene-composer/pkg/processing"
	"github.com/menta2k/scene-composer/pkg/types"
	"github.com/menta2k/scene-composer/pkg/vision"
)

func main() {
	var in, outDir, product, boxSpec string
	var backend, url, visionModel, genModel string
	var cfgPath, ext string
	var quality int
	var lossless, debug bool

	flag.StringVar(&in, "in", "", "input image path or URL (jpg/png/webp)")
	flag.StringVar(&outDir, "out", "out", "output directory")
	flag.StringVar(&product, "product", "", "description of the replacement product")
	flag.StringVar(&boxSpec, "box", "", "detection box x,y,w,h normalized to [0,1]; skips detection")

	flag.StringVar(&backend, "backend", "local", "detection backend: ollama, llamacpp or local")
	flag.StringVar(&url, "url", "", "vision server URL (defaults: ollama=http://localhost:11434, llamacpp=http://localhost:8080)")
	flag.StringVar(&visionModel, "visionmodel", "", "vision model for detection (default from config)")
	flag.StringVar(&genModel, "genmodel", "", "Gemini image model for generation (default from config)")

	flag.StringVar(&cfgPath, "config", "", "config file path (JSON)")
	flag.StringVar(&ext, "ext", "jpg", "output format: jpg|png|webp")
	flag.IntVar(&quality, "quality", 90, "JPEG/WebP output quality (1-100)")
	flag.BoolVar(&lossless, "lossless", false, "WebP lossless mode")
	flag.BoolVar(&debug, "debug", false, "write a debug overlay with detection and crop boxes")

	flag.Parse()
	if in == "" || product == "" {
		log.Fatalf("usage: %s -in input.jpg|URL -product \"description\" [-box x,y,w,h] [-backend ollama|llamacpp|local]",
			filepath.Base(os.Args[0]))
	}

	// .env is optional; environment wins either way
	_ = godotenv.Load()

	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.LoadFromFile(cfgPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	}
	if visionModel != "" {
		cfg.Generator.VisionModel = visionModel
	}
	if genModel != "" {
		cfg.Generator.Model = genModel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := utils.EnsureDir(outDir); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	processor := processing.NewProcessor()

	img, err := processor.LoadImageSmart(in)
	if err != nil {
		log.Fatal(err)
	}

	box, label, err := resolveBox(ctx, processor, cfg, img, boxSpec, backend, url)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("box=[%.3f,%.3f %.3fx%.3f] label=%q", box.X, box.Y, box.W, box.H, label)

	apiKey := os.Getenv("GEMINI_API_KEY")
	generator, err := gemini.NewClient(ctx, apiKey, cfg.Generator.Model)
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	defer generator.Close()

	pipeline := scenecomposer.NewWithConfig(cfg)
	final, meta, err := pipeline.Composite(ctx, scenecomposer.Request{
		Image:              img,
		Box:                box,
		ProductDescription: product,
		SceneLabel:         label,
	}, generator)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("lighting: %s", meta.Lighting.Describe())
	log.Printf("orientation: %s", meta.Orientation.Describe())
	log.Printf("correction: shift=(%.1f,%.1f,%.1f) magnitude=%.1f strength=%.2f",
		meta.Correction.ShiftR, meta.Correction.ShiftG, meta.Correction.ShiftB,
		meta.Correction.Magnitude, meta.Correction.Strength)

	outPath := utils.GenerateOutputFilename(in, outDir, "_composited", strings.ToLower(ext))
	if err := processor.SaveImage(final, outPath, ext, quality, lossless); err != nil {
		log.Fatalf("save %s failed: %v", outPath, err)
	}
	log.Printf("wrote %s", outPath)

	if debug {
		overlay := processor.CreateDebugOverlay(img, box, meta.Box)
		dbgPath := filepath.Join(outDir, "debug_boxes.png")
		if err := processor.SaveImage(overlay, dbgPath, "png", quality, false); err != nil {
			log.Printf("debug overlay save failed: %v", err)
		} else {
			log.Printf("wrote %s", dbgPath)
		}
	}

	js, _ := json.MarshalIndent(meta, "", "  ")
	_ = os.WriteFile(filepath.Join(outDir, "composite_metadata.json"), js, 0o644)
}

// resolveBox takes the box from the -box flag when given, otherwise runs the
// selected detection backend.
func resolveBox(ctx context.Context, processor *processing.Processor, cfg *config.Config,
	img image.Image, boxSpec, backend, url string) (types.Box, string, error) {

	if boxSpec != "" {
		box, err := parseBox(boxSpec)
		if err != nil {
			return types.Box{}, "", err
		}
		return box, "", nil
	}

	if backend == "local" {
		box, err := vision.New().DetectBox(img)
		if err != nil {
			return types.Box{}, "", fmt.Errorf("local detection failed: %w", err)
		}
		return box, "", nil
	}

	var visionClient client.VisionClient
	var err error
	switch backend {
	case "ollama":
		if url == "" {
			url = "http://localhost:11434"
		}
		visionClient, err = ollama.NewClient(url)
	case "llamacpp":
		if url == "" {
			url = "http://localhost:8080"
		}
		visionClient, err = llamacpp.NewClient(url)
	default:
		return types.Box{}, "", fmt.Errorf("unknown backend: %s (use 'ollama', 'llamacpp' or 'local')", backend)
	}
	if err != nil {
		return types.Box{}, "", fmt.Errorf("failed to create %s client: %w", backend, err)
	}

	imgB64, err := processor.PrepareForModel(img, cfg.Generator.SendFormat, cfg.Resize.MaxDimension, cfg.Generator.SendQuality)
	if err != nil {
		return types.Box{}, "", err
	}

	detector := detection.NewDetector(visionClient)
	result, err := detector.DetectSubject(ctx, cfg.Generator.VisionModel, imgB64)
	if err != nil {
		return types.Box{}, "", err
	}

	box := result.Primary.Box
	if err := box.Validate(); err != nil {
		return types.Box{}, "", err
	}

	label := result.Primary.Label
	if label == "none" {
		label = ""
	}
	return box, label, nil
}

// parseBox parses "x,y,w,h" with normalized values
func parseBox(spec string) (types.Box, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 4 {
		return types.Box{}, fmt.Errorf("box must be x,y,w,h (got %q)", spec)
	}

	vals := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return types.Box{}, fmt.Errorf("invalid box value %q: %w", part, err)
		}
		vals[i] = v
	}

	box := types.Box{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}
	if err := box.Validate(); err != nil {
		return types.Box{}, err
	}
	return box, nil
}
