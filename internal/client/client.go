// Package client talks to a running spacedetect server.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	goahttp "goa.design/goa/v3/http"

	"spacedetect/internal/api"
	"spacedetect/internal/codec"
	"spacedetect/internal/detection"
	"spacedetect/internal/services"
)

// Client calls the spacedetect HTTP API
type Client struct {
	base  *url.URL
	doer  goahttp.Doer
	token string
}

// New creates a client for the server at baseURL
func New(baseURL string, doer goahttp.Doer) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: scheme and host are required", baseURL)
	}
	return &Client{base: u, doer: doer}, nil
}

// SetToken sets the bearer token sent with every request
func (c *Client) SetToken(token string) {
	c.token = token
}

// DetectFile uploads the image at path for detection
func (c *Client) DetectFile(ctx context.Context, path string) (*services.DetectionResponse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return c.Detect(ctx, &services.DetectPayload{
		Image:    codec.EncodeBase64(data),
		Filename: filepath.Base(path),
		FileSize: int64(len(data)),
	})
}

// Detect sends a detection request
func (c *Client) Detect(ctx context.Context, p *services.DetectPayload) (*services.DetectionResponse, error) {
	var res services.DetectionResponse
	if err := c.do(ctx, http.MethodPost, "/detect", nil, p, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Health queries the health endpoint
func (c *Client) Health(ctx context.Context) (*services.HealthResult, error) {
	var res services.HealthResult
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Info returns the model served by the server
func (c *Client) Info(ctx context.Context) (*detection.ModelInfo, error) {
	var res detection.ModelInfo
	if err := c.do(ctx, http.MethodGet, "/info", nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Artifacts lists recently persisted artifacts
func (c *Client) Artifacts(ctx context.Context, limit int) (*services.ArtifactList, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var res services.ArtifactList
	if err := c.do(ctx, http.MethodGet, "/artifacts", q, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Login exchanges credentials for a token and keeps it for later calls
func (c *Client) Login(ctx context.Context, username, password string) (*services.LoginResult, error) {
	var res services.LoginResult
	body := &services.LoginPayload{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &res); err != nil {
		return nil, err
	}
	c.token = res.Token
	return &res, nil
}

// Error is returned for non-2xx responses
type Error struct {
	Status int
	api.ErrorResponse
}

// StatusCode returns the HTTP status of the failed call
func (e *Error) StatusCode() int {
	return e.Status
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.ID != "" {
		return fmt.Sprintf("%s: %s (status %d, request %s)", e.Name, msg, e.Status, e.ID)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Name, msg, e.Status)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		if err := goahttp.RequestEncoder(req).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		// bodies that are not ErrorResponse JSON still yield a status error
		_ = goahttp.ResponseDecoder(resp).Decode(&apiErr.ErrorResponse)
		if apiErr.Name == "" {
			apiErr.Name = "http_error"
		}
		return apiErr
	}

	if err := goahttp.ResponseDecoder(resp).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
