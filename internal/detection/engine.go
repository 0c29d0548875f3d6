package detection

import (
	"context"
	"fmt"
	"image"
	"sync"
)

// Engine runs inference for every request against the capability fixed at
// startup. Calls into a backend that is not concurrency safe are serialized.
type Engine struct {
	capability *Capability
	mu         sync.Mutex
}

// NewEngine creates an engine over a resolved capability
func NewEngine(capability *Capability) *Engine {
	return &Engine{capability: capability}
}

// Capability returns the handle the engine was built with
func (e *Engine) Capability() *Capability {
	return e.capability
}

// Infer returns the raw detections for img in two-corner form
func (e *Engine) Infer(ctx context.Context, img image.Image) ([]RawDetection, error) {
	switch e.capability.Mode() {
	case ModeFallback:
		b := img.Bounds()
		return Synthesize(b.Dx(), b.Dy()), nil
	case ModeReal:
		return e.invoke(ctx, img)
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInference, e.capability.Mode())
	}
}

// Detect runs Infer and normalizes the result
func (e *Engine) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	raw, err := e.Infer(ctx, img)
	if err != nil {
		return nil, err
	}
	return Normalize(raw), nil
}

func (e *Engine) invoke(ctx context.Context, img image.Image) ([]RawDetection, error) {
	backend := e.capability.Backend()
	if !backend.ConcurrencySafe() {
		e.mu.Lock()
		defer e.mu.Unlock()
	}

	raw, err := backend.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%w: %s backend: %w", ErrInference, backend.Name(), err)
	}
	return raw, nil
}
