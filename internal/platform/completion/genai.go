package completion

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAI calls the Gemini API.
type GenAI struct {
	client *genai.Client
}

func NewGenAI(ctx context.Context, apiKey string) (*GenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create GenAI client: %w", err)
	}
	return &GenAI{client: client}, nil
}

func (g *GenAI) Complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("GenAI generate: %w", err)
	}
	return resp.Text(), nil
}
