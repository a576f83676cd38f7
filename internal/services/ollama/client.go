// Package ollama forwards prompts to a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"visionbridge/internal/config"
)

// FallbackResponse is relayed when Ollama answers with a non-200 status.
const FallbackResponse = "Failed to get a response from Ollama."

// ErrUnexpectedStatus is returned for non-200 answers from Ollama.
var ErrUnexpectedStatus = errors.New("unexpected status from ollama")

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// Client talks to the /api/generate endpoint.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
}

// NewClient creates a client from the Ollama settings in cfg.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.OllamaURL, "/"),
		model:   cfg.OllamaModel,
		http:    &http.Client{Timeout: cfg.OllamaTimeout},
	}
}

// Model returns the model prompts are sent to.
func (c *Client) Model() string {
	return c.model
}

// Ask sends a non-streaming generate request and returns the answer text.
// If the reply has no "response" field the whole reply object is returned
// as JSON text.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if answer, ok := body["response"].(string); ok {
		return answer, nil
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode fallback response: %w", err)
	}
	return string(raw), nil
}
