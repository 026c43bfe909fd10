package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newTestClient creates a Client pointing at a test HTTP server.
func newTestClient(server *httptest.Server) *Client {
	jar, _ := cookiejar.New(nil)
	client := server.Client()
	client.Jar = jar
	return &Client{
		httpClient: client,
		username:   "testuser",
		password:   "testpass",
		baseURL:    server.URL,
		deviceID:   "device-0001",
	}
}

// writeTestImages creates n small files in a temp dir and returns their paths.
func writeTestImages(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, "img_"+string(rune('a'+i))+".jpg")
		if err := os.WriteFile(path, []byte("jpeg-bytes"), 0o644); err != nil {
			t.Fatalf("failed to write test image: %v", err)
		}
		paths = append(paths, path)
	}
	return paths
}

func TestLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/accounts/login/") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		r.ParseForm()
		if r.Form.Get("username") != "testuser" {
			t.Errorf("unexpected username: %s", r.Form.Get("username"))
		}
		if r.Form.Get("password") != "testpass" {
			t.Errorf("unexpected password: %s", r.Form.Get("password"))
		}
		if r.Form.Get("device_id") != "device-0001" {
			t.Errorf("expected device_id to be sent")
		}
		json.NewEncoder(w).Encode(apiResponse{Status: "ok"})
	}))
	defer server.Close()

	client := newTestClient(server)
	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !client.loggedIn {
		t.Error("expected client to be marked logged in")
	}
}

func TestLoginBadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiResponse{Status: "fail", Message: "The password you entered is incorrect."})
	}))
	defer server.Close()

	client := newTestClient(server)
	err := client.Login(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if !strings.Contains(authErr.Message, "incorrect") {
		t.Errorf("expected platform message to be carried, got %q", authErr.Message)
	}
}

func TestLoginTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server)
	err := client.Login(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", authErr.StatusCode)
	}
}

func TestAlbumUpload(t *testing.T) {
	var uploads int
	var configuredChildren string
	var configuredCaption string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/accounts/login/"):
			json.NewEncoder(w).Encode(apiResponse{Status: "ok"})
		case strings.HasSuffix(r.URL.Path, "/upload/photo/"):
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("expected multipart upload: %v", err)
			}
			if _, _, err := r.FormFile("photo"); err != nil {
				t.Errorf("expected photo part: %v", err)
			}
			uploads++
			json.NewEncoder(w).Encode(apiResponse{Status: "ok", UploadID: "up-" + string(rune('0'+uploads))})
		case strings.HasSuffix(r.URL.Path, "/media/configure_sidecar/"):
			r.ParseForm()
			configuredChildren = r.Form.Get("children")
			configuredCaption = r.Form.Get("caption")
			resp := apiResponse{Status: "ok"}
			resp.Media = &struct {
				ID   string `json:"id"`
				Code string `json:"code,omitempty"`
			}{ID: "media-123"}
			json.NewEncoder(w).Encode(resp)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(server)
	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	paths := writeTestImages(t, 4)
	mediaID, err := client.AlbumUpload(context.Background(), paths, "Morning fog #sea #mist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mediaID != "media-123" {
		t.Errorf("expected media-123, got %s", mediaID)
	}
	if uploads != 4 {
		t.Errorf("expected 4 photo uploads, got %d", uploads)
	}
	if configuredChildren != "up-1,up-2,up-3,up-4" {
		t.Errorf("expected children in upload order, got %q", configuredChildren)
	}
	if configuredCaption != "Morning fog #sea #mist" {
		t.Errorf("unexpected caption: %q", configuredCaption)
	}
}

func TestAlbumUploadRequiresLogin(t *testing.T) {
	client := &Client{username: "u", password: "p"}
	_, err := client.AlbumUpload(context.Background(), []string{"a.jpg", "b.jpg"}, "caption")

	var postErr *PostError
	if !errors.As(err, &postErr) {
		t.Fatalf("expected PostError, got %v", err)
	}
}

func TestAlbumUploadConfigureFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/accounts/login/"):
			json.NewEncoder(w).Encode(apiResponse{Status: "ok"})
		case strings.HasSuffix(r.URL.Path, "/upload/photo/"):
			json.NewEncoder(w).Encode(apiResponse{Status: "ok", UploadID: "up-1"})
		case strings.HasSuffix(r.URL.Path, "/media/configure_sidecar/"):
			json.NewEncoder(w).Encode(apiResponse{Status: "fail", Message: "media could not be configured"})
		}
	}))
	defer server.Close()

	client := newTestClient(server)
	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	paths := writeTestImages(t, 2)
	_, err := client.AlbumUpload(context.Background(), paths, "caption")

	var postErr *PostError
	if !errors.As(err, &postErr) {
		t.Fatalf("expected PostError, got %v", err)
	}
	if !strings.Contains(postErr.Message, "configured") {
		t.Errorf("expected platform message to be carried, got %q", postErr.Message)
	}
}

func TestLogout(t *testing.T) {
	var loggedOut bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/accounts/logout/") {
			loggedOut = true
		}
		json.NewEncoder(w).Encode(apiResponse{Status: "ok"})
	}))
	defer server.Close()

	client := newTestClient(server)
	client.loggedIn = true
	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !loggedOut {
		t.Error("expected logout endpoint to be called")
	}
	if client.loggedIn {
		t.Error("expected client to be marked logged out")
	}
}
