package api

import (
	"context"

	goa "goa.design/goa/v3/pkg"

	"spacedetect/internal/artifact"
	"spacedetect/internal/detection"
	"spacedetect/internal/services"
)

// DetectionService runs the detection pipeline
type DetectionService interface {
	Detect(ctx context.Context, p *services.DetectPayload) (*services.DetectionResponse, error)
}

// HealthService answers health and model info queries
type HealthService interface {
	Health(ctx context.Context) (*services.HealthResult, error)
	Info(ctx context.Context) (*detection.ModelInfo, error)
}

// ArtifactService reads the artifact ledger
type ArtifactService interface {
	List(ctx context.Context, limit int) (*services.ArtifactList, error)
	Get(ctx context.Context, id string) (*artifact.Record, error)
}

// AuthService issues tokens
type AuthService interface {
	Login(ctx context.Context, p *services.LoginPayload) (*services.LoginResult, error)
	Status(ctx context.Context) (*services.AuthStatus, error)
}

// Endpoints wraps the service methods in transport independent endpoints
type Endpoints struct {
	Detect        goa.Endpoint
	Health        goa.Endpoint
	Info          goa.Endpoint
	ListArtifacts goa.Endpoint
	GetArtifact   goa.Endpoint
	Login         goa.Endpoint
	AuthStatus    goa.Endpoint
}

// NewEndpoints wraps the methods of the services in endpoints
func NewEndpoints(det DetectionService, health HealthService, artifacts ArtifactService, auth AuthService) *Endpoints {
	return &Endpoints{
		Detect:        NewDetectEndpoint(det),
		Health:        NewHealthEndpoint(health),
		Info:          NewInfoEndpoint(health),
		ListArtifacts: NewListArtifactsEndpoint(artifacts),
		GetArtifact:   NewGetArtifactEndpoint(artifacts),
		Login:         NewLoginEndpoint(auth),
		AuthStatus:    NewAuthStatusEndpoint(auth),
	}
}

// Use applies the given middleware to all the endpoints
func (e *Endpoints) Use(m func(goa.Endpoint) goa.Endpoint) {
	e.Detect = m(e.Detect)
	e.Health = m(e.Health)
	e.Info = m(e.Info)
	e.ListArtifacts = m(e.ListArtifacts)
	e.GetArtifact = m(e.GetArtifact)
	e.Login = m(e.Login)
	e.AuthStatus = m(e.AuthStatus)
}

// NewDetectEndpoint returns an endpoint function that calls Detect
func NewDetectEndpoint(s DetectionService) goa.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		p := req.(*services.DetectPayload)
		return s.Detect(ctx, p)
	}
}

// NewHealthEndpoint returns an endpoint function that calls Health
func NewHealthEndpoint(s HealthService) goa.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		return s.Health(ctx)
	}
}

// NewInfoEndpoint returns an endpoint function that calls Info
func NewInfoEndpoint(s HealthService) goa.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		return s.Info(ctx)
	}
}

// NewListArtifactsEndpoint returns an endpoint function that calls List
func NewListArtifactsEndpoint(s ArtifactService) goa.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		return s.List(ctx, req.(int))
	}
}

// NewGetArtifactEndpoint returns an endpoint function that calls Get
func NewGetArtifactEndpoint(s ArtifactService) goa.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		return s.Get(ctx, req.(string))
	}
}

// NewLoginEndpoint returns an endpoint function that calls Login
func NewLoginEndpoint(s AuthService) goa.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		p := req.(*services.LoginPayload)
		return s.Login(ctx, p)
	}
}

// NewAuthStatusEndpoint returns an endpoint function that calls Status
func NewAuthStatusEndpoint(s AuthService) goa.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		return s.Status(ctx)
	}
}
