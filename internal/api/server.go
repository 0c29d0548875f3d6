// Package api exposes the detection services over HTTP using the goa
// runtime: a goa muxer, goa request decoders and response encoders, and
// goa ServiceError shaped error bodies.
package api

import (
	"context"
	"net/http"

	goahttp "goa.design/goa/v3/http"
	goa "goa.design/goa/v3/pkg"
)

// ServiceName is reported in the goa service context key
const ServiceName = "spacedetect"

// MountPoint holds information about the mounted endpoints
type MountPoint struct {
	// Method is the name of the service method served by the mounted HTTP handler.
	Method string
	// Verb is the HTTP method used to match requests to the mounted handler.
	Verb string
	// Pattern is the HTTP request path pattern used to match requests to the
	// mounted handler.
	Pattern string
}

// Server lists the HTTP handlers for the service endpoints
type Server struct {
	Mounts        []*MountPoint
	Detect        http.Handler
	Health        http.Handler
	Info          http.Handler
	ListArtifacts http.Handler
	GetArtifact   http.Handler
	Login         http.Handler
	AuthStatus    http.Handler
}

// New instantiates HTTP handlers for all the service endpoints using the
// provided encoder and decoder. errhandler is called whenever a response
// fails to be encoded.
func New(
	e *Endpoints,
	mux goahttp.Muxer,
	decoder func(*http.Request) goahttp.Decoder,
	encoder func(context.Context, http.ResponseWriter) goahttp.Encoder,
	errhandler func(context.Context, http.ResponseWriter, error),
) *Server {
	encodeError := ErrorEncoder(encoder)
	encodeResponse := ResponseEncoder(encoder)
	h := func(method string, endpoint goa.Endpoint, decode func(*http.Request) (any, error)) http.Handler {
		return newHandler(method, endpoint, decode, encodeResponse, encodeError, errhandler)
	}

	return &Server{
		Mounts: []*MountPoint{
			{"Detect", "POST", "/detect"},
			{"Health", "GET", "/health"},
			{"Info", "GET", "/info"},
			{"ListArtifacts", "GET", "/artifacts"},
			{"GetArtifact", "GET", "/artifacts/{id}"},
			{"Login", "POST", "/auth/login"},
			{"AuthStatus", "GET", "/auth/status"},
		},
		Detect:        h("detect", e.Detect, DecodeDetectRequest(decoder)),
		Health:        h("health", e.Health, noPayload),
		Info:          h("info", e.Info, noPayload),
		ListArtifacts: h("list_artifacts", e.ListArtifacts, DecodeListArtifactsRequest),
		GetArtifact:   h("get_artifact", e.GetArtifact, DecodeGetArtifactRequest(mux)),
		Login:         h("login", e.Login, DecodeLoginRequest(decoder)),
		AuthStatus:    h("auth_status", e.AuthStatus, noPayload),
	}
}

// Service returns the name of the service served.
func (s *Server) Service() string { return ServiceName }

// Use wraps the server handlers with the given middleware.
func (s *Server) Use(m func(http.Handler) http.Handler) {
	s.Detect = m(s.Detect)
	s.Health = m(s.Health)
	s.Info = m(s.Info)
	s.ListArtifacts = m(s.ListArtifacts)
	s.GetArtifact = m(s.GetArtifact)
	s.Login = m(s.Login)
	s.AuthStatus = m(s.AuthStatus)
}

// MethodNames returns the methods served.
func (s *Server) MethodNames() []string {
	names := make([]string, len(s.Mounts))
	for i, m := range s.Mounts {
		names[i] = m.Method
	}
	return names
}

// Mount configures the mux to serve the service endpoints.
func Mount(mux goahttp.Muxer, h *Server) {
	mux.Handle("POST", "/detect", h.Detect.ServeHTTP)
	mux.Handle("GET", "/health", h.Health.ServeHTTP)
	mux.Handle("GET", "/info", h.Info.ServeHTTP)
	mux.Handle("GET", "/artifacts", h.ListArtifacts.ServeHTTP)
	mux.Handle("GET", "/artifacts/{id}", h.GetArtifact.ServeHTTP)
	mux.Handle("POST", "/auth/login", h.Login.ServeHTTP)
	mux.Handle("GET", "/auth/status", h.AuthStatus.ServeHTTP)
}

// MountWebSocket serves the live detection stream on the mux
func MountWebSocket(mux goahttp.Muxer, h http.Handler) *MountPoint {
	mux.Handle("GET", "/ws/detections", h.ServeHTTP)
	return &MountPoint{"DetectionStream", "GET", "/ws/detections"}
}

// PublicPaths are served without a token when authentication is enabled
var PublicPaths = []string{"/health", "/info", "/auth/login"}

func newHandler(
	method string,
	endpoint goa.Endpoint,
	decodeRequest func(*http.Request) (any, error),
	encodeResponse func(context.Context, http.ResponseWriter, any) error,
	encodeError func(context.Context, http.ResponseWriter, error) error,
	errhandler func(context.Context, http.ResponseWriter, error),
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), goahttp.AcceptTypeKey, r.Header.Get("Accept"))
		ctx = context.WithValue(ctx, goa.MethodKey, method)
		ctx = context.WithValue(ctx, goa.ServiceKey, ServiceName)

		payload, err := decodeRequest(r)
		if err != nil {
			if err := encodeError(ctx, w, err); err != nil {
				errhandler(ctx, w, err)
			}
			return
		}
		res, err := endpoint(ctx, payload)
		if err != nil {
			if err := encodeError(ctx, w, err); err != nil {
				errhandler(ctx, w, err)
			}
			return
		}
		if err := encodeResponse(ctx, w, res); err != nil {
			errhandler(ctx, w, err)
		}
	})
}

func noPayload(*http.Request) (any, error) {
	return nil, nil
}
