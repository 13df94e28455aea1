package visual

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dealerstudio/internal/config"
)

// Queue states reported by the fal.ai queue API.
const (
	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// ErrNoImages is returned when a completed edit produced no image.
var ErrNoImages = errors.New("image edit returned no images")

// FalClient calls the hosted image-edit model through the fal.ai request queue.
type FalClient struct {
	apiKey       string
	queueURL     string
	model        string
	outputFormat string
	pollInterval time.Duration
	maxWait      time.Duration
	httpClient   *http.Client
}

// NewFalClient creates a client from the fal config section.
func NewFalClient(cfg config.FalConfig) (*FalClient, error) {
	if !config.HasValidAPIKey(cfg.APIKey) {
		return nil, fmt.Errorf("fal API key is required. Set FAL_KEY or ai.fal.api_key in the config file")
	}
	c := &FalClient{
		apiKey:       cfg.APIKey,
		queueURL:     strings.TrimRight(cfg.QueueURL, "/"),
		model:        strings.Trim(cfg.Model, "/"),
		outputFormat: cfg.OutputFormat,
		pollInterval: cfg.PollInterval,
		maxWait:      cfg.MaxWait,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
	if c.queueURL == "" {
		c.queueURL = "https://queue.fal.run"
	}
	if c.model == "" {
		c.model = "fal-ai/nano-banana/edit"
	}
	if c.outputFormat == "" {
		c.outputFormat = "jpeg"
	}
	if c.pollInterval <= 0 {
		c.pollInterval = 2 * time.Second
	}
	if c.maxWait <= 0 {
		c.maxWait = 3 * time.Minute
	}
	return c, nil
}

// EditRequest is the payload accepted by the image-edit model.
type EditRequest struct {
	Prompt       string   `json:"prompt"`
	ImageURLs    []string `json:"image_urls"`
	NumImages    int      `json:"num_images"`
	AspectRatio  string   `json:"aspect_ratio,omitempty"`
	OutputFormat string   `json:"output_format,omitempty"`
}

// EditResponse is the result payload of a completed edit.
type EditResponse struct {
	Images      []FalImage `json:"images"`
	Description string     `json:"description,omitempty"`
}

// FalImage is one generated image.
type FalImage struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

type queueSubmitResponse struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type queueStatusResponse struct {
	Status        string `json:"status"`
	QueuePosition int    `json:"queue_position,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Edit submits an edit, waits for it to finish and returns the first image URL.
func (c *FalClient) Edit(ctx context.Context, req EditRequest) (string, error) {
	if len(req.ImageURLs) == 0 || req.ImageURLs[0] == "" {
		return "", fmt.Errorf("image edit needs a source image")
	}
	if req.NumImages <= 0 {
		req.NumImages = 1
	}
	if req.OutputFormat == "" {
		req.OutputFormat = c.outputFormat
	}

	ctx, cancel := context.WithTimeout(ctx, c.maxWait)
	defer cancel()

	submitted, err := c.submit(ctx, req)
	if err != nil {
		return "", err
	}
	if err := c.waitForCompletion(ctx, submitted.StatusURL); err != nil {
		return "", fmt.Errorf("image edit %s: %w", submitted.RequestID, err)
	}

	var result EditResponse
	if err := c.doJSON(ctx, http.MethodGet, submitted.ResponseURL, nil, &result); err != nil {
		return "", fmt.Errorf("failed to fetch image edit result: %w", err)
	}
	for _, img := range result.Images {
		if img.URL != "" {
			return img.URL, nil
		}
	}
	return "", ErrNoImages
}

func (c *FalClient) submit(ctx context.Context, req EditRequest) (queueSubmitResponse, error) {
	var out queueSubmitResponse
	if err := c.doJSON(ctx, http.MethodPost, c.queueURL+"/"+c.model, req, &out); err != nil {
		return out, fmt.Errorf("failed to submit image edit: %w", err)
	}
	if out.RequestID == "" {
		return out, fmt.Errorf("failed to submit image edit: no request id in response")
	}
	base := c.queueURL + "/" + c.model + "/requests/" + out.RequestID
	if out.StatusURL == "" {
		out.StatusURL = base + "/status"
	}
	if out.ResponseURL == "" {
		out.ResponseURL = base
	}
	return out, nil
}

func (c *FalClient) waitForCompletion(ctx context.Context, statusURL string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var status queueStatusResponse
		if err := c.doJSON(ctx, http.MethodGet, statusURL, nil, &status); err != nil {
			return fmt.Errorf("failed to poll status: %w", err)
		}
		switch status.Status {
		case StatusCompleted:
			if status.Error != "" {
				return fmt.Errorf("edit failed: %s", status.Error)
			}
			return nil
		case StatusFailed:
			return fmt.Errorf("edit failed: %s", status.Error)
		case StatusInQueue, StatusInProgress:
		default:
			return fmt.Errorf("unexpected queue status %q", status.Status)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("gave up waiting for image edit: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *FalClient) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		reqBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fal API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
