// Package remote talks to detection models served by another process, over
// HTTP or gRPC.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"spacedetect/internal/codec"
	"spacedetect/internal/detection"
)

const defaultTimeout = 15 * time.Second

// Options configures a remote backend
type Options struct {
	Endpoint      string
	ModelName     string
	Labels        []string
	ConfThreshold float32
	Timeout       time.Duration
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return defaultTimeout
	}
	return o.Timeout
}

// fallbackInfo describes the remote model when it does not report one
func (o Options) fallbackInfo() detection.ModelInfo {
	labels := o.Labels
	if labels == nil {
		labels = []string{}
	}
	return detection.ModelInfo{
		ModelName:  o.ModelName,
		ModelPath:  o.Endpoint,
		InputShape: detection.DefaultInputShape(),
		NumClasses: len(labels),
		Labels:     labels,
	}
}

// HTTPDetector calls a YOLO inference service over HTTP
type HTTPDetector struct {
	endpoint      string
	client        *http.Client
	confThreshold float32
	codec         *codec.Codec
}

// httpDetection is one entry of the service's detect response
type httpDetection struct {
	ClassID    int       `json:"class_id"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox"` // [x1, y1, x2, y2]
}

type httpDetectResponse struct {
	Detections []httpDetection `json:"detections"`
}

// httpHealthResponse is the service's health payload
type httpHealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// NewHTTPDetector creates a detector for the service at opts.Endpoint
func NewHTTPDetector(opts Options) *HTTPDetector {
	return &HTTPDetector{
		endpoint:      strings.TrimRight(opts.Endpoint, "/"),
		client:        &http.Client{Timeout: opts.timeout()},
		confThreshold: opts.ConfThreshold,
		codec:         codec.New(codec.DefaultQuality),
	}
}

func (hd *HTTPDetector) Name() string {
	return "http"
}

// ConcurrencySafe is true: http.Client handles parallel requests
func (hd *HTTPDetector) ConcurrencySafe() bool {
	return true
}

func (hd *HTTPDetector) Close() error {
	hd.client.CloseIdleConnections()
	return nil
}

// Detect uploads img as JPEG and returns the service's detections
func (hd *HTTPDetector) Detect(ctx context.Context, img image.Image) ([]detection.RawDetection, error) {
	data, err := hd.codec.Encode(img)
	if err != nil {
		return nil, err
	}

	// Create multipart form data
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if hd.confThreshold > 0 {
		if err := w.WriteField("conf_threshold", fmt.Sprintf("%.3f", hd.confThreshold)); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hd.endpoint+"/detect", &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := hd.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detection request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("detection service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result httpDetectResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode detection response: %w", err)
	}

	raw := make([]detection.RawDetection, 0, len(result.Detections))
	for i, d := range result.Detections {
		if len(d.BBox) < 4 {
			return nil, fmt.Errorf("detection %d has %d bbox values, expected 4", i, len(d.BBox))
		}
		raw = append(raw, detection.RawDetection{
			ClassID:    d.ClassID,
			Confidence: d.Confidence,
			X1:         d.BBox[0],
			Y1:         d.BBox[1],
			X2:         d.BBox[2],
			Y2:         d.BBox[3],
		})
	}
	return raw, nil
}

// health reports whether the service has its model loaded
func (hd *HTTPDetector) health(ctx context.Context) error {
	var health httpHealthResponse
	if err := hd.getJSON(ctx, "/health", &health); err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}
	if !health.ModelLoaded {
		return fmt.Errorf("detection service at %s has no model loaded", hd.endpoint)
	}
	return nil
}

func (hd *HTTPDetector) info(ctx context.Context) (detection.ModelInfo, error) {
	var info detection.ModelInfo
	if err := hd.getJSON(ctx, "/info", &info); err != nil {
		return info, fmt.Errorf("failed to read model info: %w", err)
	}
	if info.Labels == nil {
		info.Labels = []string{}
	}
	return info, nil
}

func (hd *HTTPDetector) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hd.endpoint+path, nil)
	if err != nil {
		return err
	}
	resp, err := hd.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// HTTPLoader brings up the HTTP backend for the capability probe
type HTTPLoader struct {
	opts   Options
	logger *log.Logger
}

// NewHTTPLoader creates a loader for the service at opts.Endpoint
func NewHTTPLoader(opts Options, logger *log.Logger) *HTTPLoader {
	return &HTTPLoader{opts: opts, logger: logger}
}

func (l *HTTPLoader) Name() string {
	return "http"
}

// Artifact reports the endpoint; there is no local file to check
func (l *HTTPLoader) Artifact() (string, bool) {
	return l.opts.Endpoint, false
}

// Load requires the service to report a loaded model. Model info comes
// from the service when it exposes /info.
func (l *HTTPLoader) Load(ctx context.Context) (detection.Backend, detection.ModelInfo, error) {
	hd := NewHTTPDetector(l.opts)

	if err := hd.health(ctx); err != nil {
		return nil, detection.ModelInfo{}, err
	}

	info, err := hd.info(ctx)
	if err != nil {
		l.logger.Printf("[HTTPDetector] %v, using configured model info", err)
		info = l.opts.fallbackInfo()
	}
	return hd, info, nil
}

// Ensure HTTPDetector implements detection.Backend
var _ detection.Backend = (*HTTPDetector)(nil)

// Ensure HTTPLoader implements detection.Loader
var _ detection.Loader = (*HTTPLoader)(nil)
