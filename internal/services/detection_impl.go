package services

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"spacedetect/internal/artifact"
	"spacedetect/internal/codec"
	"spacedetect/internal/detection"
	"spacedetect/internal/render"
	"spacedetect/internal/ws"
)

// ArtifactSink accepts annotated images for background persistence
type ArtifactSink interface {
	Submit(a *artifact.Artifact) error
}

// EventPublisher fans detection events out to live subscribers
type EventPublisher interface {
	BroadcastDetection(msg *ws.DetectionMessage)
}

// DetectionImplementation runs the detection pipeline for one request:
// decode, infer, normalize, render, encode and hand off for persistence.
type DetectionImplementation struct {
	engine   *detection.Engine
	codec    *codec.Codec
	renderer *render.Renderer
	sink     ArtifactSink
	events   EventPublisher
	logger   *log.Logger
}

// NewDetectionService creates a new detection service. sink and events may
// be nil.
func NewDetectionService(engine *detection.Engine, c *codec.Codec, renderer *render.Renderer, sink ArtifactSink, events EventPublisher, logger *log.Logger) *DetectionImplementation {
	return &DetectionImplementation{
		engine:   engine,
		codec:    c,
		renderer: renderer,
		sink:     sink,
		events:   events,
		logger:   logger,
	}
}

// Detect decodes the payload image, detects objects and returns the
// annotated result. Decode and inference failures abort the request only.
func (s *DetectionImplementation) Detect(ctx context.Context, p *DetectPayload) (*DetectionResponse, error) {
	res, err := s.detect(ctx, p)
	if err != nil {
		s.logger.Printf("[Detect] Error processing image: %v", err)
		return nil, err
	}
	return res, nil
}

func (s *DetectionImplementation) detect(ctx context.Context, p *DetectPayload) (*DetectionResponse, error) {
	data := p.Data
	if data == nil {
		var err error
		if data, err = codec.DecodeBase64(p.Image); err != nil {
			return nil, err
		}
	}
	fileSize := p.FileSize
	if fileSize == 0 {
		fileSize = int64(len(data))
	}

	s.logger.Printf("[Detect] Received image: %s, size: %d bytes", p.Filename, fileSize)

	img, err := s.codec.Decode(data)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	s.logger.Printf("[Detect] Image dimensions: %dx%d", bounds.Dx(), bounds.Dy())

	detections, err := s.engine.Detect(ctx, img)
	if err != nil {
		return nil, err
	}

	capability := s.engine.Capability()
	info := capability.Info()

	annotated := s.renderer.Render(img, detections, info.Labels)
	encoded, err := s.codec.Encode(annotated)
	if err != nil {
		return nil, err
	}

	id := artifact.NewID()
	s.persist(id, encoded, p.Filename, fileSize, detections, capability.Mode())
	s.publish(id, p.Filename, capability.Mode(), bounds, detections, info.Labels)

	return &DetectionResponse{
		Detections:     detections,
		ModelInfo:      info,
		ProcessedImage: codec.EncodeBase64(encoded),
	}, nil
}

func (s *DetectionImplementation) persist(id string, data []byte, filename string, fileSize int64, detections []detection.Detection, mode detection.Mode) {
	if s.sink == nil {
		return
	}
	err := s.sink.Submit(&artifact.Artifact{
		ID:         id,
		Data:       data,
		Filename:   filename,
		FileSize:   fileSize,
		Detections: detections,
		Mode:       mode,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		s.logger.Printf("[Detect] Could not save processed image: %v", err)
	}
}

func (s *DetectionImplementation) publish(id, filename string, mode detection.Mode, bounds image.Rectangle, detections []detection.Detection, labels []string) {
	if s.events == nil {
		return
	}
	msg := ws.NewDetectionMessage(id, mode, bounds.Dx(), bounds.Dy())
	msg.Filename = filename
	for _, d := range detections {
		msg.AddObject(d, labels)
	}
	s.events.BroadcastDetection(msg)
}

// String describes the active capability for startup logs
func (s *DetectionImplementation) String() string {
	c := s.engine.Capability()
	return fmt.Sprintf("%s mode, model %q", c.Mode(), c.Info().ModelName)
}
