package client

import (
	"context"

	"github.com/menta2k/scene-composer/pkg/types"
)

// VisionClient locates the subject to replace. Implementations talk to a
// vision model backend; the pipeline only sees the normalized box result.
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.AnalysisResult, error)
}

// ImageGenerator produces the replacement object for a cropped region. The
// returned image should match the input crop's pixel dimensions; the pipeline
// normalizes small drifts and the compositor rejects anything else.
type ImageGenerator interface {
	GenerateRegion(ctx context.Context, crop []byte, mimeType, prompt string) ([]byte, error)
}
