package extract

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// samplingTemperature keeps completions near-deterministic to minimize
// schema drift in the returned JSON.
const samplingTemperature = float32(0.1)

// GeminiInvoker issues completions through the Google GenAI SDK.
type GeminiInvoker struct {
	client *genai.Client
	log    *slog.Logger
}

// NewGeminiInvoker wraps an initialized genai client.
func NewGeminiInvoker(client *genai.Client, log *slog.Logger) (*GeminiInvoker, error) {
	if client == nil {
		return nil, fmt.Errorf("gemini invoker: client not initialized")
	}
	if log == nil {
		log = slog.Default()
	}
	return &GeminiInvoker{client: client, log: log}, nil
}

// Generate requests a JSON-only completion for the system and user
// prompts and returns the raw response text.
func (g *GeminiInvoker) Generate(ctx context.Context, model, system, user string) ([]byte, error) {
	temp := samplingTemperature
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		Temperature:       &temp,
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(user)}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("no parts in candidate content")
	}
	text := candidate.Content.Parts[0].Text
	if text == "" {
		return nil, fmt.Errorf("no text in first part of response")
	}

	g.log.Debug("gemini completion received", "model", model, "response_length", len(text))
	return []byte(text), nil
}
