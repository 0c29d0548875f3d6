package remote

import (
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacedetect/internal/detection"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 32, 24))
}

// yoloService fakes the remote inference service
func yoloService(t *testing.T, modelLoaded bool, withInfo bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "healthy", "model_loaded": modelLoaded})
	})
	if withInfo {
		mux.HandleFunc("GET /info", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(detection.ModelInfo{
				ModelName:  "remote yolo",
				ModelPath:  "/models/best.pt",
				InputShape: []int{1, 3, 640, 640},
				NumClasses: 2,
				Labels:     []string{"toolbox", "oxygen tank"},
			})
		})
	}
	mux.HandleFunc("POST /detect", func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()

		img, err := jpeg.Decode(file)
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		assert.Equal(t, 32, img.Bounds().Dx())
		assert.Equal(t, "0.400", r.FormValue("conf_threshold"))

		json.NewEncoder(w).Encode(map[string]any{
			"detections": []map[string]any{
				{"class_id": 1, "confidence": 0.66, "bbox": []float64{-4, 2, 30, 40}},
			},
		})
	})
	return httptest.NewServer(mux)
}

func TestHTTPLoaderLoad(t *testing.T) {
	srv := yoloService(t, true, true)
	defer srv.Close()

	loader := NewHTTPLoader(Options{Endpoint: srv.URL + "/", ConfThreshold: 0.4}, discardLogger())
	location, local := loader.Artifact()
	assert.False(t, local)
	assert.Equal(t, srv.URL+"/", location)

	backend, info, err := loader.Load(context.Background())
	require.NoError(t, err)
	defer backend.Close()

	assert.Equal(t, "remote yolo", info.ModelName)
	assert.Equal(t, []string{"toolbox", "oxygen tank"}, info.Labels)
	assert.True(t, backend.ConcurrencySafe())

	raw, err := backend.Detect(context.Background(), testImage())
	require.NoError(t, err)
	assert.Equal(t, []detection.RawDetection{
		{ClassID: 1, Confidence: 0.66, X1: -4, Y1: 2, X2: 30, Y2: 40},
	}, raw)
}

func TestHTTPLoaderWithoutInfo(t *testing.T) {
	srv := yoloService(t, true, false)
	defer srv.Close()

	loader := NewHTTPLoader(Options{Endpoint: srv.URL, ModelName: "configured", Labels: []string{"a"}}, discardLogger())

	_, info, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "configured", info.ModelName)
	assert.Equal(t, srv.URL, info.ModelPath)
	assert.Equal(t, 1, info.NumClasses)
}

func TestHTTPLoaderModelNotLoaded(t *testing.T) {
	srv := yoloService(t, false, true)
	defer srv.Close()

	_, _, err := NewHTTPLoader(Options{Endpoint: srv.URL}, discardLogger()).Load(context.Background())
	assert.ErrorContains(t, err, "no model loaded")
}

func TestHTTPLoaderUnreachable(t *testing.T) {
	srv := yoloService(t, true, true)
	srv.Close()

	_, _, err := NewHTTPLoader(Options{Endpoint: srv.URL}, discardLogger()).Load(context.Background())
	assert.Error(t, err)
}

func TestHTTPDetectorErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "CUDA out of memory", http.StatusInternalServerError)
			},
			want: "CUDA out of memory",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{"))
			},
			want: "failed to decode",
		},
		{
			name: "short bbox",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"detections":[{"class_id":0,"confidence":0.5,"bbox":[1,2]}]}`))
			},
			want: "expected 4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewHTTPDetector(Options{Endpoint: srv.URL}).Detect(context.Background(), testImage())
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
