package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in ModelConfig.Backend
const (
	BackendONNX = "onnx"
	BackendHTTP = "http"
	BackendGRPC = "grpc"
)

// Config holds the service configuration
type Config struct {
	Server ServerConfig `yaml:"server"`
	Model  ModelConfig  `yaml:"model"`
	Render RenderConfig `yaml:"render"`
	Input  InputConfig  `yaml:"input"`
	Output OutputConfig `yaml:"output"`
	Auth   AuthConfig   `yaml:"auth"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host  string `yaml:"host"`
	Port  string `yaml:"port"`
	Debug bool   `yaml:"debug"`

	// CORSOrigins lists origins allowed to call the API from a browser.
	// "*" allows any origin; an empty list disables CORS headers.
	CORSOrigins []string `yaml:"cors_origins"`
}

// ModelConfig describes the detection backend and its model artifact
type ModelConfig struct {
	Name           string        `yaml:"name"`
	Path           string        `yaml:"path"`
	Backend        string        `yaml:"backend"`
	RuntimeLibrary string        `yaml:"runtime_library"`
	Endpoint       string        `yaml:"endpoint"`
	Labels         []string      `yaml:"labels"`
	InputSize      int           `yaml:"input_size"`
	ConfThreshold  float32       `yaml:"conf_threshold"`
	IoUThreshold   float32       `yaml:"iou_threshold"`
	Timeout        time.Duration `yaml:"timeout"`
}

// RenderConfig controls the annotation overlay
type RenderConfig struct {
	FontPath string   `yaml:"font_path"`
	FontSize float64  `yaml:"font_size"`
	Palette  []string `yaml:"palette"`
}

// InputConfig controls how uploaded images are decoded
type InputConfig struct {
	// AutoOrient rotates images according to their EXIF orientation tag
	// before detection. Off by default so boxes refer to the stored pixels.
	AutoOrient bool `yaml:"auto_orient"`
}

// OutputConfig controls artifact persistence
type OutputConfig struct {
	Dir          string `yaml:"dir"`
	DatabasePath string `yaml:"database_path"`
	QueueSize    int    `yaml:"queue_size"`
	JPEGQuality  int    `yaml:"jpeg_quality"`
}

// AuthConfig controls optional JWT authentication
type AuthConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	JWTSecret string        `yaml:"jwt_secret"`
	JWTExpiry time.Duration `yaml:"jwt_expiry"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "localhost",
			Port:        "8000",
			CORSOrigins: []string{"*"},
		},
		Model: ModelConfig{
			Name:           "YOLOv8 Spacecraft Detector",
			Path:           "models/best.onnx",
			Backend:        BackendONNX,
			RuntimeLibrary: "third_party/onnxruntime.so",
			Endpoint:       "http://localhost:8081",
			InputSize:      640,
			ConfThreshold:  0.25,
			IoUThreshold:   0.45,
			Timeout:        15 * time.Second,
		},
		Render: RenderConfig{
			FontSize: 16,
		},
		Output: OutputConfig{
			Dir:         "output_results",
			QueueSize:   16,
			JPEGQuality: 95,
		},
		Auth: AuthConfig{
			Username:  "admin",
			JWTExpiry: 24 * time.Hour,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment overrides, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Port, "PORT")
	setString(&c.Model.Path, "MODEL_PATH")
	setString(&c.Model.Backend, "MODEL_BACKEND")
	setString(&c.Model.RuntimeLibrary, "ONNXRUNTIME_LIB")
	setString(&c.Model.Endpoint, "INFERENCE_ENDPOINT")
	setString(&c.Output.Dir, "OUTPUT_DIR")
	setString(&c.Output.DatabasePath, "DATABASE_PATH")
	setString(&c.Render.FontPath, "FONT_PATH")
	setString(&c.Auth.Username, "AUTH_USERNAME")
	setString(&c.Auth.Password, "AUTH_PASSWORD")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")

	if v := os.Getenv("MODEL_LABELS"); v != "" {
		c.Model.Labels = splitAndTrim(v, ",")
	}
	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitAndTrim(v, ",")
	}
	if v := os.Getenv("AUTO_ORIENT"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid AUTO_ORIENT %q: %w", v, err)
		}
		c.Input.AutoOrient = enabled
	}
	if v := os.Getenv("AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid AUTH_ENABLED %q: %w", v, err)
		}
		c.Auth.Enabled = enabled
	}
	if v := os.Getenv("JWT_EXPIRY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid JWT_EXPIRY %q: %w", v, err)
		}
		c.Auth.JWTExpiry = d
	}
	return nil
}

// Validate checks values that cannot be defaulted at use site
func (c *Config) Validate() error {
	switch c.Model.Backend {
	case BackendONNX, BackendHTTP, BackendGRPC:
	default:
		return fmt.Errorf("unknown model backend %q (valid: %s|%s|%s)", c.Model.Backend, BackendONNX, BackendHTTP, BackendGRPC)
	}
	if c.Model.InputSize <= 0 {
		return fmt.Errorf("model input_size must be positive, got %d", c.Model.InputSize)
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output jpeg_quality must be within 1..100, got %d", c.Output.JPEGQuality)
	}
	if c.Auth.Enabled && c.Auth.Password == "" {
		return fmt.Errorf("auth is enabled but no password is configured")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// splitAndTrim splits a string by separator and trims whitespace from each element
func splitAndTrim(s string, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
