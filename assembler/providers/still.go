package providers

import (
	"context"
	"fmt"
	"log"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// StillImageGenerator renders a single wide still from a text prompt.
// It backs up the stock image backends when search finds nothing.
type StillImageGenerator struct {
	client     openai.Client
	downloader *MediaDownloader
	enabled    bool
}

func NewStillImageGenerator(apiKey string, downloader *MediaDownloader) *StillImageGenerator {
	if apiKey == "" {
		return &StillImageGenerator{}
	}
	return &StillImageGenerator{
		client:     openai.NewClient(option.WithAPIKey(apiKey)),
		downloader: downloader,
		enabled:    true,
	}
}

func (g *StillImageGenerator) Available() bool {
	return g != nil && g.enabled
}

// Generate renders a still to dest. An optional style hint is folded
// into the prompt.
func (g *StillImageGenerator) Generate(ctx context.Context, prompt, style, dest string) error {
	full := prompt
	if style != "" {
		full = fmt.Sprintf("%s, %s style", prompt, style)
	}

	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: full,
		Model:  openai.ImageModelDallE3,
		Size:   openai.ImageGenerateParamsSize1792x1024,
	})
	if err != nil {
		return fmt.Errorf("image generation failed: %v", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return fmt.Errorf("image generation returned no image")
	}

	if err := g.downloader.FetchURL(ctx, resp.Data[0].URL, dest); err != nil {
		return fmt.Errorf("failed to download generated image: %v", err)
	}

	log.Printf("✓ Still generated: %s", dest)
	return nil
}
