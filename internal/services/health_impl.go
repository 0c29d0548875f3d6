package services

import (
	"context"

	"spacedetect/internal/detection"
)

// HealthImplementation implements the health and info queries
type HealthImplementation struct {
	capability *detection.Capability
}

// NewHealthService creates a new health service implementation
func NewHealthService(capability *detection.Capability) *HealthImplementation {
	return &HealthImplementation{capability: capability}
}

// Health reports the service as healthy whenever it can answer. model_loaded
// is true in both modes since the fallback still serves a valid ModelInfo.
func (h *HealthImplementation) Health(ctx context.Context) (*HealthResult, error) {
	return &HealthResult{
		Status:      "healthy",
		ModelLoaded: h.capability.ModelLoaded(),
		Mode:        h.capability.Mode(),
	}, nil
}

// Info returns the active model metadata
func (h *HealthImplementation) Info(ctx context.Context) (*detection.ModelInfo, error) {
	info := h.capability.Info()
	return &info, nil
}
