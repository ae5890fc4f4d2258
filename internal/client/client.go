// Package client provides a transport-agnostic interface for the application
// registry and HTTP/JSON and gRPC implementations of it.
package client

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/appreg/internal/model"
)

// RegistryClient is the interface the CLIs and the discovery agent use to
// talk to the registry. It is implemented by HTTPClient (default) and
// GRPCClient.
type RegistryClient interface {
	// CreateApplication submits app and returns the stored record, including
	// the id the registry assigned.
	CreateApplication(ctx context.Context, app *model.Application) (*model.Application, error)
	GetApplication(ctx context.Context, id string) (*model.Application, error)
	ListApplications(ctx context.Context) ([]*model.Application, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// IsNotFound reports whether err is a not-found response from either
// transport.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	if s, ok := status.FromError(err); ok {
		return s.Code() == codes.NotFound
	}
	return false
}
