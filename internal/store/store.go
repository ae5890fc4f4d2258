package store

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/appreg/internal/model"
)

// ErrNotFound is returned when no application has the requested id.
var ErrNotFound = errors.New("application not found")

// Store defines the storage interface for registered applications.
type Store interface {
	// CreateApplication stores app under app.ID. An existing record with the
	// same id is replaced in place, keeping its position in the listing and
	// its CreatedAt, which is copied back into app.
	CreateApplication(ctx context.Context, app *model.Application) error
	GetApplication(ctx context.Context, id string) (*model.Application, error)
	// ListApplications returns every record in insertion order.
	ListApplications(ctx context.Context) ([]*model.Application, error)

	// Lifecycle
	Close() error
}
