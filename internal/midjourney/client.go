// Package midjourney provides a client for a Midjourney-compatible
// text-to-image HTTP API (the GoAPI "mj/v2" surface).
//
// Image generation is asynchronous:
//  1. Submit a prompt ("imagine") and receive a task ID
//  2. Poll the task ("fetch") until it reports finished
//  3. The base task yields a 4-variant grid; each variant is upscaled
//     individually ("upscale"), producing four more tasks to poll
//
// All requests are JSON over POST with an X-API-KEY header. A call succeeds
// when the transport status is 200 and the body status field is success (or
// finished, for fetch). Everything else is a GenerationError.
package midjourney

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// defaultBaseURL is the vendor API base URL.
	defaultBaseURL = "https://api.midjourneyapi.xyz/mj/v2"

	// defaultTimeout is the HTTP client timeout for single API calls.
	defaultTimeout = 10 * time.Second

	// defaultPollInterval is how long AwaitResult waits between fetch calls.
	defaultPollInterval = 30 * time.Second

	// upscaleSpacing is the pause between successive upscale submissions,
	// keeping the vendor from throttling burst requests.
	upscaleSpacing = time.Second

	// variantCount is the number of variants one imagine task produces.
	variantCount = 4

	defaultAspectRatio = "1:1"
	defaultProcessMode = "fast"
)

// GenerationError reports a failed vendor call: either a non-200 transport
// status (StatusCode set) or a body-level failure (Status/Message set).
type GenerationError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("midjourney: unexpected HTTP status %d", e.StatusCode)
	}
	if e.Message != "" {
		return fmt.Sprintf("midjourney: status %q: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("midjourney: status %q", e.Status)
}

// Client calls the text-to-image vendor API. It holds only configuration;
// no state is carried across calls.
type Client struct {
	httpClient   *http.Client
	apiKey       string
	baseURL      string
	processMode  string
	pollInterval time.Duration
	spacing      time.Duration
}

// NewClient creates a vendor API client using the given API key.
func NewClient(apiKey string) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: defaultTimeout},
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		processMode:  defaultProcessMode,
		pollInterval: defaultPollInterval,
		spacing:      upscaleSpacing,
	}
}

// --- API response types ---

// taskResponse is the response shape of imagine and upscale submissions.
type taskResponse struct {
	Status  string `json:"status"`
	TaskID  string `json:"task_id"`
	Message string `json:"message,omitempty"`
}

// fetchResponse is the response shape of the fetch (poll) endpoint.
type fetchResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	TaskResult struct {
		ImageURL string `json:"image_url"`
	} `json:"task_result"`
}

// --- Operations ---

// Submit creates a generation task for the prompt and returns its task ID.
// One task yields a grid of four variants.
func (c *Client) Submit(ctx context.Context, prompt, aspectRatio string) (string, error) {
	if aspectRatio == "" {
		aspectRatio = defaultAspectRatio
	}
	body := map[string]string{
		"prompt":       prompt,
		"process_mode": c.processMode,
		"aspect_ratio": aspectRatio,
	}

	var resp taskResponse
	if err := c.postJSON(ctx, "/imagine", body, &resp); err != nil {
		return "", err
	}
	if resp.Status != "success" {
		return "", &GenerationError{Status: resp.Status, Message: resp.Message}
	}
	log.Info().Str("taskId", resp.TaskID).Msg("Generation task submitted")
	return resp.TaskID, nil
}

// Upscale requests upscaling of one of the four variants (index 1-4) of a
// finished base task. Same success contract as Submit.
func (c *Client) Upscale(ctx context.Context, taskID string, index int) (string, error) {
	if index < 1 || index > variantCount {
		return "", fmt.Errorf("midjourney: upscale index must be 1-%d, got %d", variantCount, index)
	}
	body := map[string]string{
		"origin_task_id": taskID,
		"index":          strconv.Itoa(index),
	}

	var resp taskResponse
	if err := c.postJSON(ctx, "/upscale", body, &resp); err != nil {
		return "", err
	}
	if resp.Status != "success" {
		return "", &GenerationError{Status: resp.Status, Message: resp.Message}
	}
	log.Info().Str("taskId", resp.TaskID).Int("index", index).Msg("Upscale task submitted")
	return resp.TaskID, nil
}

// Fetch polls a task once and returns its status plus, when finished, the
// result image URL. Statuses other than processing and finished are vendor
// failures and come back as a GenerationError.
func (c *Client) Fetch(ctx context.Context, taskID string) (status, imageURL string, err error) {
	body := map[string]string{"task_id": taskID}

	var resp fetchResponse
	if err := c.postJSON(ctx, "/fetch", body, &resp); err != nil {
		return "", "", err
	}
	switch resp.Status {
	case "processing":
		return resp.Status, "", nil
	case "finished":
		return resp.Status, resp.TaskResult.ImageURL, nil
	default:
		return "", "", &GenerationError{Status: resp.Status, Message: resp.Message}
	}
}

// AwaitResult polls a task on a fixed interval until it finishes, returning
// the result image URL. The wait has no cap of its own: it blocks until the
// vendor reports finished, the vendor reports failure, or ctx is cancelled.
// Callers who need a deadline attach one to ctx.
func (c *Client) AwaitResult(ctx context.Context, taskID string) (string, error) {
	for {
		log.Debug().Str("taskId", taskID).Dur("interval", c.pollInterval).Msg("Waiting before next poll")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}

		status, imageURL, err := c.Fetch(ctx, taskID)
		if err != nil {
			return "", err
		}
		if status == "finished" {
			log.Info().Str("taskId", taskID).Str("imageUrl", imageURL).Msg("Task finished")
			return imageURL, nil
		}
		log.Debug().Str("taskId", taskID).Msg("Task still processing")
	}
}

// GenerateAlbum runs the full generation workflow for one prompt: submit,
// await the 4-variant grid, upscale each variant sequentially, await each
// upscale, and return the four upscaled image URLs in variant order.
func (c *Client) GenerateAlbum(ctx context.Context, prompt string) ([]string, error) {
	taskID, err := c.Submit(ctx, prompt, defaultAspectRatio)
	if err != nil {
		return nil, err
	}

	gridURL, err := c.AwaitResult(ctx, taskID)
	if err != nil {
		return nil, err
	}
	log.Info().Str("taskId", taskID).Str("gridUrl", gridURL).Msg("Base grid generated, upscaling variants")

	upscaleIDs := make([]string, 0, variantCount)
	for idx := 1; idx <= variantCount; idx++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.spacing):
		}
		upscaleID, err := c.Upscale(ctx, taskID, idx)
		if err != nil {
			return nil, err
		}
		upscaleIDs = append(upscaleIDs, upscaleID)
	}

	urls := make([]string, 0, variantCount)
	for _, upscaleID := range upscaleIDs {
		imageURL, err := c.AwaitResult(ctx, upscaleID)
		if err != nil {
			return nil, err
		}
		urls = append(urls, imageURL)
	}
	return urls, nil
}

// --- Internal helpers ---

// postJSON sends a POST request with a JSON body and decodes the JSON
// response into out. Non-200 transport statuses become GenerationErrors.
func (c *Client) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	startTime := time.Now()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	httpResp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		log.Debug().Str("path", endpoint).Dur("duration", duration).Err(err).Msg("Vendor API request failed")
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	log.Debug().Str("path", endpoint).Int("statusCode", httpResp.StatusCode).Dur("duration", duration).Msg("Vendor API response")

	if httpResp.StatusCode != http.StatusOK {
		return &GenerationError{StatusCode: httpResp.StatusCode}
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(body), 200))
	}
	return nil
}

// truncate returns the first n characters of s, appending "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
