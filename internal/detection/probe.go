package detection

import (
	"context"
	"fmt"
	"log"
	"os"
)

// Loader brings up one kind of detection backend
type Loader interface {
	// Name returns the backend identifier
	Name() string

	// Artifact returns the model location reported in ModelInfo and whether
	// it is a local file that must exist before loading
	Artifact() (location string, local bool)

	// Load initialises the runtime and returns the backend together with the
	// model description read from it. An error means the runtime is not
	// available.
	Load(ctx context.Context) (Backend, ModelInfo, error)
}

// Probe resolves the operating mode once. A missing model artifact or an
// unavailable runtime downgrades to fallback mode; it never fails.
func Probe(ctx context.Context, loader Loader, logger *log.Logger) *Capability {
	location, local := loader.Artifact()

	if local {
		if _, err := os.Stat(location); err != nil {
			logger.Printf("[Probe] %v", fmt.Errorf("%w: model artifact %s: %w", ErrConfiguration, location, err))
			logger.Printf("[Probe] Falling back to synthetic detections")
			return FallbackCapability(location)
		}
	}

	backend, info, err := loader.Load(ctx)
	if err != nil {
		logger.Printf("[Probe] %v", fmt.Errorf("%w: %s runtime unavailable: %w", ErrConfiguration, loader.Name(), err))
		logger.Printf("[Probe] Falling back to synthetic detections")
		return FallbackCapability(location)
	}

	logger.Printf("[Probe] Loaded %s (%s backend, %d classes)", info.ModelName, backend.Name(), info.NumClasses)
	return RealCapability(backend, info)
}
