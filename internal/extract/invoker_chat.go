package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ChatInvoker calls an OpenAI-compatible chat-completions endpoint.
// It covers both the OpenAI API itself and DashScope's compatible mode.
type ChatInvoker struct {
	BaseURL string
	APIKey  string

	HTTPClient *http.Client
	Log        *slog.Logger
}

type chatRequest struct {
	Model          string             `json:"model"`
	Messages       []chatMessage      `json:"messages"`
	ResponseFormat chatResponseFormat `json:"response_format"`
	Temperature    float32            `json:"temperature"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate posts a two-message chat completion and returns the
// assistant's content.
func (c *ChatInvoker) Generate(ctx context.Context, model, system, user string) ([]byte, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("chat invoker: base URL required")
	}

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: chatResponseFormat{Type: "json_object"},
		Temperature:    samplingTemperature,
	})
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimSuffix(c.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode completion response: %w", err)
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("completion error: %s", payload.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("completion endpoint returned HTTP %d", resp.StatusCode)
	}
	if len(payload.Choices) == 0 || payload.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("empty completion response")
	}

	c.logger().Debug("chat completion received", "model", model,
		"response_length", len(payload.Choices[0].Message.Content))
	return []byte(payload.Choices[0].Message.Content), nil
}

func (c *ChatInvoker) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 120 * time.Second}
}

func (c *ChatInvoker) logger() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}
