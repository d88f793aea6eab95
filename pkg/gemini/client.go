// Package gemini implements the image generator backend on the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Client generates replacement-product images through a Gemini image model
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini-backed generator. The model must be an
// image-output model, e.g. "gemini-2.5-flash-image".
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: missing API key")
	}
	if model == "" {
		model = "gemini-2.5-flash-image"
	}

	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	return &Client{client: c, model: model}, nil
}

// Close releases the underlying API client
func (c *Client) Close() error {
	return c.client.Close()
}

// GenerateRegion sends the cropped region and the generation prompt to the
// model and returns the first image part of the reply. Rate-limit errors are
// retried a few times; everything else surfaces immediately.
func (c *Client) GenerateRegion(ctx context.Context, crop []byte, mimeType, prompt string) ([]byte, error) {
	const maxAttempts = 3

	format := strings.TrimPrefix(mimeType, "image/")
	model := c.client.GenerativeModel(c.model)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := model.GenerateContent(ctx,
			genai.Text(prompt),
			genai.ImageData(format, crop),
		)
		if err == nil {
			img, err := firstImagePart(resp)
			if err != nil {
				return nil, err
			}
			return img, nil
		}

		lastErr = err
		if !isRateLimited(err) {
			return nil, fmt.Errorf("gemini: generation failed: %w", err)
		}

		log.Printf("gemini: rate limited (attempt %d/%d), backing off", attempt, maxAttempts)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	return nil, fmt.Errorf("gemini: generation failed after %d attempts: %w", maxAttempts, lastErr)
}

func firstImagePart(resp *genai.GenerateContentResponse) ([]byte, error) {
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if blob, ok := part.(genai.Blob); ok && strings.HasPrefix(blob.MIMEType, "image/") {
				return blob.Data, nil
			}
		}
	}
	return nil, fmt.Errorf("gemini: response contained no image part")
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "quota")
}
