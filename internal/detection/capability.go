package detection

// Capability is the detection handle resolved once at startup. In real mode
// it carries the backend; in fallback mode the backend is nil and detections
// are synthesized. A Capability is never mutated after construction.
type Capability struct {
	mode    Mode
	backend Backend
	info    ModelInfo
}

// RealCapability wraps a loaded backend and the model description read from it
func RealCapability(backend Backend, info ModelInfo) *Capability {
	return &Capability{mode: ModeReal, backend: backend, info: info}
}

// FallbackCapability returns the synthetic capability
func FallbackCapability(modelPath string) *Capability {
	return &Capability{mode: ModeFallback, info: FallbackModelInfo(modelPath)}
}

func (c *Capability) Mode() Mode {
	return c.mode
}

// Backend returns nil in fallback mode
func (c *Capability) Backend() Backend {
	return c.backend
}

func (c *Capability) Info() ModelInfo {
	return c.info
}

// ModelLoaded reports whether any detection capability is available. It is
// true in both modes since fallback still serves a valid model description.
func (c *Capability) ModelLoaded() bool {
	return c != nil
}

// Close releases the backend, if any
func (c *Capability) Close() error {
	if c.backend == nil {
		return nil
	}
	return c.backend.Close()
}
