// Package client talks to a running vision bridge over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"visionbridge/internal/detection"
)

// DetectResponse mirrors the bridge's /detect-objects reply.
type DetectResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"request_id"`
	detection.Result
}

// APIError is a non-2xx reply from the bridge.
type APIError struct {
	Status    int
	Code      string `json:"code"`
	Message   string `json:"error"`
	RequestID string `json:"request_id"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("bridge returned status %d", e.Status)
	}
	return fmt.Sprintf("bridge returned status %d (%s): %s", e.Status, e.Code, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Ask sends a question to /ask and returns the model's answer.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	endpoint := c.baseURL + "/ask?q=" + url.QueryEscape(question)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// Detect uploads an image as the raw request body. A negative threshold
// leaves the server default in place.
func (c *Client) Detect(ctx context.Context, image []byte, contentType string, threshold float64) (*DetectResponse, error) {
	endpoint := c.baseURL + "/detect-objects"
	if threshold >= 0 {
		endpoint += "?threshold=" + strconv.FormatFloat(threshold, 'f', -1, 64)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	var out DetectResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		json.Unmarshal(body, apiErr)
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
