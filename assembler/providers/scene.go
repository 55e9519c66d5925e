package providers

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"google.golang.org/genai"
)

const defaultSceneModel = "veo-3.0-fast-generate-001"

// SceneVideoGenerator produces short cinematic clips from text prompts
// through the Gemini video generation API. Generation is asynchronous
// on the provider side, so Generate polls until the operation finishes
// or the context deadline cuts it off.
type SceneVideoGenerator struct {
	client       *genai.Client
	Model        string
	PollInterval time.Duration
}

func NewSceneVideoGenerator(ctx context.Context, apiKey string) (*SceneVideoGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("no API key for scene generation")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create generation client: %v", err)
	}

	return &SceneVideoGenerator{
		client:       client,
		Model:        defaultSceneModel,
		PollInterval: 10 * time.Second,
	}, nil
}

func (g *SceneVideoGenerator) Available() bool {
	return g != nil && g.client != nil
}

// Generate renders one scene to dest. The caller bounds total wall
// clock time through ctx, polling stops as soon as it expires.
func (g *SceneVideoGenerator) Generate(ctx context.Context, prompt, dest string) error {
	op, err := g.client.Models.GenerateVideos(ctx, g.Model, prompt, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to start scene generation: %v", err)
	}

	for !op.Done {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.PollInterval):
		}
		op, err = g.client.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return fmt.Errorf("failed to poll scene generation: %v", err)
		}
		log.Printf("⏳ Scene generation in progress...")
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return fmt.Errorf("scene generation returned no video")
	}

	video := op.Response.GeneratedVideos[0]
	if _, err := g.client.Files.Download(ctx, video.Video, nil); err != nil {
		return fmt.Errorf("failed to download generated scene: %v", err)
	}

	if err := os.WriteFile(dest, video.Video.VideoBytes, 0644); err != nil {
		return fmt.Errorf("failed to write generated scene: %v", err)
	}

	log.Printf("✓ Scene generated: %s", dest)
	return nil
}
