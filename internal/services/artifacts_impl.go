package services

import (
	"context"
	"fmt"

	goa "goa.design/goa/v3/pkg"

	"spacedetect/internal/artifact"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// ArtifactLister reads persisted artifact records
type ArtifactLister interface {
	List(limit int) ([]*artifact.Record, error)
	Get(id string) (*artifact.Record, error)
}

// ArtifactsImplementation exposes the artifact ledger
type ArtifactsImplementation struct {
	ledger ArtifactLister
}

// NewArtifactsService creates the artifacts service. A nil ledger makes
// every call return a not_found error.
func NewArtifactsService(ledger ArtifactLister) *ArtifactsImplementation {
	return &ArtifactsImplementation{ledger: ledger}
}

// List returns the most recent artifacts. limit <= 0 uses the default.
func (a *ArtifactsImplementation) List(ctx context.Context, limit int) (*ArtifactList, error) {
	if a.ledger == nil {
		return nil, goa.PermanentError("not_found", "artifact ledger is disabled")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	records, err := a.ledger.List(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	return &ArtifactList{Artifacts: records, Count: len(records)}, nil
}

// Get returns a single artifact record
func (a *ArtifactsImplementation) Get(ctx context.Context, id string) (*artifact.Record, error) {
	if a.ledger == nil {
		return nil, goa.PermanentError("not_found", "artifact ledger is disabled")
	}
	record, err := a.ledger.Get(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	if record == nil {
		return nil, goa.PermanentError("not_found", "artifact %s not found", id)
	}
	return record, nil
}
