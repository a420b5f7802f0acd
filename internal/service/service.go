// Package service provides the operations behind the admin views, delegating
// every call to the REST bindings of the PhotoTrack API.
package service

import (
	"context"
	"errors"

	"github.com/atinyakov/phototrack-admin/internal/client/api"
)

// ErrMissingID is returned when an operation needs an entity identifier
// and none was given.
var ErrMissingID = errors.New("missing identifier")

// Resource defines the REST operations available on one entity type.
type Resource[T any] interface {
	// Query lists the collection selected by params.
	Query(ctx context.Context, params api.Params) ([]T, error)
	// Get fetches one entity by identifier.
	Get(ctx context.Context, id string) (T, error)
	// Save creates entity and returns it with its assigned identifier.
	Save(ctx context.Context, entity T) (T, error)
	// Update replaces the entity stored under id. The identifier is not
	// part of the submitted payload.
	Update(ctx context.Context, id string, entity T) (T, error)
	// Remove deletes the entity stored under id.
	Remove(ctx context.Context, id string) error
}

func get[T any](ctx context.Context, r Resource[T], id string) (T, error) {
	if id == "" {
		var zero T
		return zero, ErrMissingID
	}
	return r.Get(ctx, id)
}

func update[T any](ctx context.Context, r Resource[T], id string, entity T) (T, error) {
	if id == "" {
		var zero T
		return zero, ErrMissingID
	}
	return r.Update(ctx, id, entity)
}

func remove[T any](ctx context.Context, r Resource[T], id string) error {
	if id == "" {
		return ErrMissingID
	}
	return r.Remove(ctx, id)
}
