// Package instagram provides a client for posting multi-image albums to an
// Instagram account through the private mobile API surface.
//
// Posting is a session-based, multi-step process:
//  1. Login with username/password, establishing a cookie session
//  2. Upload each photo, receiving an upload ID per item
//  3. Configure the album (sidecar) referencing the upload IDs with a caption
//  4. Logout, terminating the session
//
// The client performs no retries: any failed step surfaces as an AuthError
// (session lifecycle) or PostError (upload/configure) to the caller.
package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// defaultBaseURL is the private mobile API base URL.
	defaultBaseURL = "https://i.instagram.com/api/v1"

	// defaultTimeout is the HTTP client timeout for API calls. Photo uploads
	// carry full JPEG payloads, so this is more generous than a JSON call needs.
	defaultTimeout = 60 * time.Second

	// maxAlbumItems is the album (sidecar) size limit.
	maxAlbumItems = 10
)

// AuthError reports a failed login or logout.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("instagram auth: %s", e.Message)
	}
	return fmt.Sprintf("instagram auth: unexpected HTTP status %d", e.StatusCode)
}

// PostError reports a failed photo upload or album configure.
type PostError struct {
	StatusCode int
	Message    string
}

func (e *PostError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("instagram post: %s", e.Message)
	}
	return fmt.Sprintf("instagram post: unexpected HTTP status %d", e.StatusCode)
}

// Client holds one account's credentials and, between Login and Logout, a
// cookie-backed session. Device and session GUIDs are generated per client.
type Client struct {
	httpClient *http.Client
	username   string
	password   string
	baseURL    string
	deviceID   string
	loggedIn   bool
}

// NewClient creates a client for the given account. No network calls happen
// until Login.
func NewClient(username, password string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout, Jar: jar},
		username:   username,
		password:   password,
		baseURL:    defaultBaseURL,
		deviceID:   uuid.NewString(),
	}
}

// --- API response types ---

// apiResponse is the generic private API response envelope.
type apiResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	UploadID string `json:"upload_id,omitempty"`
	Media    *struct {
		ID   string `json:"id"`
		Code string `json:"code,omitempty"`
	} `json:"media,omitempty"`
}

// --- Session lifecycle ---

// Login authenticates the session. Must be called before AlbumUpload.
func (c *Client) Login(ctx context.Context) error {
	params := url.Values{
		"username":  {c.username},
		"password":  {c.password},
		"device_id": {c.deviceID},
		"guid":      {uuid.NewString()},
	}

	resp, status, err := c.postForm(ctx, "/accounts/login/", params)
	if err != nil {
		return &AuthError{Message: err.Error()}
	}
	if status != http.StatusOK {
		return &AuthError{StatusCode: status}
	}
	if resp.Status != "ok" {
		return &AuthError{Message: resp.Message}
	}

	c.loggedIn = true
	log.Info().Str("username", c.username).Msg("Instagram session established")
	return nil
}

// Logout terminates the session.
func (c *Client) Logout(ctx context.Context) error {
	resp, status, err := c.postForm(ctx, "/accounts/logout/", url.Values{
		"device_id": {c.deviceID},
	})
	if err != nil {
		return &AuthError{Message: err.Error()}
	}
	if status != http.StatusOK {
		return &AuthError{StatusCode: status}
	}
	if resp.Status != "ok" {
		return &AuthError{Message: resp.Message}
	}

	c.loggedIn = false
	log.Info().Str("username", c.username).Msg("Instagram session terminated")
	return nil
}

// --- Posting ---

// AlbumUpload uploads the local image files as a single multi-image post
// with the given caption and returns the published media ID. Files appear
// in the album in argument order.
func (c *Client) AlbumUpload(ctx context.Context, paths []string, caption string) (string, error) {
	if !c.loggedIn {
		return "", &PostError{Message: "not logged in"}
	}
	if len(paths) < 2 {
		return "", &PostError{Message: fmt.Sprintf("album requires at least 2 items, got %d", len(paths))}
	}
	if len(paths) > maxAlbumItems {
		return "", &PostError{Message: fmt.Sprintf("album supports at most %d items, got %d", maxAlbumItems, len(paths))}
	}

	uploadIDs := make([]string, 0, len(paths))
	for _, path := range paths {
		uploadID, err := c.uploadPhoto(ctx, path)
		if err != nil {
			return "", err
		}
		uploadIDs = append(uploadIDs, uploadID)
	}

	mediaID, err := c.configureAlbum(ctx, uploadIDs, caption)
	if err != nil {
		return "", err
	}
	log.Info().Str("mediaId", mediaID).Int("items", len(paths)).Msg("Album published")
	return mediaID, nil
}

// uploadPhoto uploads one local JPEG and returns its upload ID.
func (c *Client) uploadPhoto(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", &PostError{Message: fmt.Sprintf("open %s: %v", path, err)}
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("upload_id", uuid.NewString()); err != nil {
		return "", &PostError{Message: err.Error()}
	}
	part, err := writer.CreateFormFile("photo", filepath.Base(path))
	if err != nil {
		return "", &PostError{Message: err.Error()}
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", &PostError{Message: fmt.Sprintf("read %s: %v", path, err)}
	}
	if err := writer.Close(); err != nil {
		return "", &PostError{Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload/photo/", &body)
	if err != nil {
		return "", &PostError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, status, err := c.do(req)
	if err != nil {
		return "", &PostError{Message: err.Error()}
	}
	if status != http.StatusOK {
		return "", &PostError{StatusCode: status}
	}
	if resp.Status != "ok" || resp.UploadID == "" {
		return "", &PostError{Message: resp.Message}
	}

	log.Debug().Str("path", path).Str("uploadId", resp.UploadID).Msg("Photo uploaded")
	return resp.UploadID, nil
}

// configureAlbum creates the album post from previously uploaded items.
func (c *Client) configureAlbum(ctx context.Context, uploadIDs []string, caption string) (string, error) {
	params := url.Values{
		"caption":     {caption},
		"children":    {strings.Join(uploadIDs, ",")},
		"device_id":   {c.deviceID},
		"upload_type": {"sidecar"},
	}

	resp, status, err := c.postForm(ctx, "/media/configure_sidecar/", params)
	if err != nil {
		return "", &PostError{Message: err.Error()}
	}
	if status != http.StatusOK {
		return "", &PostError{StatusCode: status}
	}
	if resp.Status != "ok" || resp.Media == nil {
		return "", &PostError{Message: resp.Message}
	}
	return resp.Media.ID, nil
}

// --- Internal helpers ---

// postForm sends a POST request with form-encoded parameters.
func (c *Client) postForm(ctx context.Context, endpoint string, params url.Values) (*apiResponse, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint,
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// do executes a request and decodes the API response envelope. The HTTP
// status is returned separately so callers can classify transport failures.
func (c *Client) do(req *http.Request) (*apiResponse, int, error) {
	startTime := time.Now()
	httpResp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		log.Debug().Str("path", req.URL.Path).Dur("duration", duration).Err(err).Msg("Instagram API request failed")
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	log.Debug().Str("path", req.URL.Path).Int("statusCode", httpResp.StatusCode).Dur("duration", duration).Msg("Instagram API response")

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, httpResp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	resp := &apiResponse{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, resp); err != nil {
			return nil, httpResp.StatusCode, fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(body), 200))
		}
	}
	return resp, httpResp.StatusCode, nil
}

// truncate returns the first n characters of s, appending "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
