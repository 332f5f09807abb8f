package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	scanHTTPTimeout    = 120 * time.Second
	httpTimeoutEnvKey  = "SIGNLENS_HTTP_TIMEOUT"
)

// Client is a simple HTTP client for the signlens API.
type Client struct {
	baseURL  string
	http     *http.Client
	scanHTTP *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: httpTimeoutFromEnv()},
		scanHTTP: &http.Client{Timeout: scanHTTPTimeout},
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, nil, &resp)
	return resp, err
}

// Scan uploads the image at path for detection, OCR and capture storage.
// Scans can run a detection model server-side, so this uses a longer timeout
// than the rest of the API.
func (c *Client) Scan(ctx context.Context, imagePath string) (ScanResponse, error) {
	var resp ScanResponse

	f, err := os.Open(imagePath)
	if err != nil {
		return resp, err
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		return resp, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return resp, err
	}
	if err := writer.Close(); err != nil {
		return resp, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/scan", &body)
	if err != nil {
		return resp, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	httpResp, err := c.scanHTTP.Do(req)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

func (c *Client) CreateCapture(ctx context.Context, req CaptureCreateRequest) (CaptureResponse, error) {
	var resp CaptureResponse
	err := c.do(ctx, http.MethodPost, "/v1/captures", nil, req, &resp)
	return resp, err
}

func (c *Client) ListCaptures(ctx context.Context, query url.Values) ([]CaptureResponse, error) {
	var resp []CaptureResponse
	err := c.do(ctx, http.MethodGet, "/v1/captures", query, nil, &resp)
	return resp, err
}

func (c *Client) GetCapture(ctx context.Context, id int64) (CaptureResponse, error) {
	var resp CaptureResponse
	err := c.do(ctx, http.MethodGet, "/v1/captures/"+strconv.FormatInt(id, 10), nil, nil, &resp)
	return resp, err
}

func (c *Client) DeleteCapture(ctx context.Context, id int64) (CaptureDeleteResponse, error) {
	var resp CaptureDeleteResponse
	err := c.do(ctx, http.MethodDelete, "/v1/captures/"+strconv.FormatInt(id, 10), nil, nil, &resp)
	return resp, err
}

func (c *Client) ClearCaptures(ctx context.Context) (CaptureClearResponse, error) {
	var resp CaptureClearResponse
	err := c.do(ctx, http.MethodDelete, "/v1/captures", nil, nil, &resp)
	return resp, err
}

func (c *Client) CaptureStats(ctx context.Context) (CaptureStatsResponse, error) {
	var resp CaptureStatsResponse
	err := c.do(ctx, http.MethodGet, "/v1/captures/stats", nil, nil, &resp)
	return resp, err
}

func (c *Client) Speak(ctx context.Context, id int64) (SpeakResponse, error) {
	var resp SpeakResponse
	err := c.do(ctx, http.MethodPost, "/v1/captures/"+strconv.FormatInt(id, 10)+"/speak", nil, nil, &resp)
	return resp, err
}

// Export streams the JSON export to a writer.
func (c *Client) Export(ctx context.Context, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/export", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *Client) CacheStats(ctx context.Context) (CacheStatsResponse, error) {
	var resp CacheStatsResponse
	err := c.do(ctx, http.MethodGet, "/v1/cache/stats", nil, nil, &resp)
	return resp, err
}

func (c *Client) CacheCleanup(ctx context.Context) (CacheCleanupResponse, error) {
	var resp CacheCleanupResponse
	err := c.do(ctx, http.MethodPost, "/v1/cache/cleanup", nil, nil, &resp)
	return resp, err
}

func (c *Client) CacheClear(ctx context.Context) (CacheCleanupResponse, error) {
	var resp CacheCleanupResponse
	err := c.do(ctx, http.MethodPost, "/v1/cache/clear", nil, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		return &APIError{
			Status:    resp.StatusCode,
			Code:      errResp.Code,
			ErrorCode: errResp.ErrorCode,
			Message:   errResp.Error,
		}
	}
	return fmt.Errorf("api error: %s", resp.Status)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
