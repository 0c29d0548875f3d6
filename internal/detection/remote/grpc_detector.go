package remote

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"

	"spacedetect/internal/codec"
	"spacedetect/internal/detection"
)

// Detection service served by remote gRPC backends. Messages are
// google.protobuf.Struct so no generated stubs are needed.
const (
	ServiceName  = "spacedetect.v1.DetectionService"
	DetectMethod = "/" + ServiceName + "/Detect"
	InfoMethod   = "/" + ServiceName + "/Info"
)

// GRPCDetector calls a detection service over gRPC
type GRPCDetector struct {
	endpoint      string
	conn          *grpc.ClientConn
	timeout       time.Duration
	confThreshold float32
	codec         *codec.Codec
}

// NewGRPCDetector creates a client for the service at opts.Endpoint. The
// connection is established lazily by the first call.
func NewGRPCDetector(opts Options, dialOpts ...grpc.DialOption) (*GRPCDetector, error) {
	kacp := keepalive.ClientParameters{
		Time:                10 * time.Second,
		Timeout:             5 * time.Second,
		PermitWithoutStream: true,
	}

	options := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
	}, dialOpts...)

	conn, err := grpc.NewClient(opts.Endpoint, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &GRPCDetector{
		endpoint:      opts.Endpoint,
		conn:          conn,
		timeout:       opts.timeout(),
		confThreshold: opts.ConfThreshold,
		codec:         codec.New(codec.DefaultQuality),
	}, nil
}

func (gd *GRPCDetector) Name() string {
	return "grpc"
}

// ConcurrencySafe is true: a ClientConn multiplexes parallel calls
func (gd *GRPCDetector) ConcurrencySafe() bool {
	return true
}

func (gd *GRPCDetector) Close() error {
	return gd.conn.Close()
}

// Detect sends img as base64 JPEG and returns the service's detections
func (gd *GRPCDetector) Detect(ctx context.Context, img image.Image) ([]detection.RawDetection, error) {
	data, err := gd.codec.Encode(img)
	if err != nil {
		return nil, err
	}

	req, err := structpb.NewStruct(map[string]any{
		"image":          codec.EncodeBase64(data),
		"conf_threshold": float64(gd.confThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, gd.timeout)
	defer cancel()

	resp := &structpb.Struct{}
	if err := gd.conn.Invoke(ctx, DetectMethod, req, resp); err != nil {
		return nil, fmt.Errorf("detect call failed: %w", err)
	}
	return parseDetections(resp)
}

// health requires the standard health service to report SERVING
func (gd *GRPCDetector) health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, gd.timeout)
	defer cancel()

	resp, err := healthpb.NewHealthClient(gd.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("detection service at %s is %s", gd.endpoint, resp.GetStatus())
	}
	return nil
}

func (gd *GRPCDetector) info(ctx context.Context) (detection.ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, gd.timeout)
	defer cancel()

	resp := &structpb.Struct{}
	if err := gd.conn.Invoke(ctx, InfoMethod, &structpb.Struct{}, resp); err != nil {
		return detection.ModelInfo{}, fmt.Errorf("info call failed: %w", err)
	}
	return parseModelInfo(resp), nil
}

// parseDetections reads {detections: [{class_id, confidence, x1, y1, x2, y2}]}
func parseDetections(resp *structpb.Struct) ([]detection.RawDetection, error) {
	list := resp.GetFields()["detections"].GetListValue().GetValues()

	raw := make([]detection.RawDetection, 0, len(list))
	for i, v := range list {
		fields := v.GetStructValue().GetFields()
		if fields == nil {
			return nil, fmt.Errorf("detection %d is not an object", i)
		}
		for _, key := range []string{"x1", "y1", "x2", "y2"} {
			if _, ok := fields[key]; !ok {
				return nil, fmt.Errorf("detection %d is missing %s", i, key)
			}
		}
		raw = append(raw, detection.RawDetection{
			ClassID:    int(fields["class_id"].GetNumberValue()),
			Confidence: fields["confidence"].GetNumberValue(),
			X1:         fields["x1"].GetNumberValue(),
			Y1:         fields["y1"].GetNumberValue(),
			X2:         fields["x2"].GetNumberValue(),
			Y2:         fields["y2"].GetNumberValue(),
		})
	}
	return raw, nil
}

func parseModelInfo(resp *structpb.Struct) detection.ModelInfo {
	fields := resp.GetFields()

	info := detection.ModelInfo{
		ModelName:  fields["model_name"].GetStringValue(),
		ModelPath:  fields["model_path"].GetStringValue(),
		NumClasses: int(fields["num_classes"].GetNumberValue()),
		Labels:     []string{},
	}
	for _, v := range fields["input_shape"].GetListValue().GetValues() {
		info.InputShape = append(info.InputShape, int(v.GetNumberValue()))
	}
	if len(info.InputShape) == 0 {
		info.InputShape = detection.DefaultInputShape()
	}
	for _, v := range fields["labels"].GetListValue().GetValues() {
		info.Labels = append(info.Labels, v.GetStringValue())
	}
	if info.NumClasses == 0 {
		info.NumClasses = len(info.Labels)
	}
	return info
}

// GRPCLoader brings up the gRPC backend for the capability probe
type GRPCLoader struct {
	opts     Options
	dialOpts []grpc.DialOption
	logger   *log.Logger
}

// NewGRPCLoader creates a loader for the service at opts.Endpoint
func NewGRPCLoader(opts Options, logger *log.Logger, dialOpts ...grpc.DialOption) *GRPCLoader {
	return &GRPCLoader{opts: opts, dialOpts: dialOpts, logger: logger}
}

func (l *GRPCLoader) Name() string {
	return "grpc"
}

// Artifact reports the endpoint; there is no local file to check
func (l *GRPCLoader) Artifact() (string, bool) {
	return l.opts.Endpoint, false
}

// Load requires a SERVING health status. Model info comes from the Info
// method when the service implements it.
func (l *GRPCLoader) Load(ctx context.Context) (detection.Backend, detection.ModelInfo, error) {
	gd, err := NewGRPCDetector(l.opts, l.dialOpts...)
	if err != nil {
		return nil, detection.ModelInfo{}, err
	}

	if err := gd.health(ctx); err != nil {
		gd.Close()
		return nil, detection.ModelInfo{}, err
	}

	info, err := gd.info(ctx)
	if err != nil {
		l.logger.Printf("[GRPCDetector] %v, using configured model info", err)
		info = l.opts.fallbackInfo()
	}
	l.logger.Printf("[GRPCDetector] Connected to %s", l.opts.Endpoint)
	return gd, info, nil
}

// Ensure GRPCDetector implements detection.Backend
var _ detection.Backend = (*GRPCDetector)(nil)

// Ensure GRPCLoader implements detection.Loader
var _ detection.Loader = (*GRPCLoader)(nil)
