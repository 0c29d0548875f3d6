package services

import (
	"spacedetect/internal/artifact"
	"spacedetect/internal/detection"
)

// DetectPayload is the inbound detection request. Image carries base64
// bytes for JSON clients; Data carries raw bytes for multipart uploads.
type DetectPayload struct {
	Image    string `json:"image"`
	Filename string `json:"filename"`
	FileSize int64  `json:"file_size"`
	Data     []byte `json:"-"`
}

// DetectionResponse is returned by a successful detection request
type DetectionResponse struct {
	Detections     []detection.Detection `json:"detections"`
	ModelInfo      detection.ModelInfo   `json:"model_info"`
	ProcessedImage string                `json:"processed_image"`
}

// HealthResult reports service health
type HealthResult struct {
	Status      string         `json:"status"`
	ModelLoaded bool           `json:"model_loaded"`
	Mode        detection.Mode `json:"mode"`
}

// ArtifactList is a page of persisted artifacts, newest first
type ArtifactList struct {
	Artifacts []*artifact.Record `json:"artifacts"`
	Count     int                `json:"count"`
}

// LoginPayload carries user credentials
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult carries an issued token
type LoginResult struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// AuthStatus describes the caller's authentication state
type AuthStatus struct {
	Enabled       bool    `json:"enabled"`
	Authenticated bool    `json:"authenticated"`
	Username      *string `json:"username,omitempty"`
	TokenID       *string `json:"token_id,omitempty"`
	ExpiresAt     *int64  `json:"expires_at,omitempty"`
}
