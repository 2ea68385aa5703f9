// Package storage defines the stores behind the resource API. A store keeps
// objects of type T by key and publishes every write to its watchers.
package storage

import (
	"context"

	"github.com/sunyakun/foo-controller/pkg/storage/selector"
	"github.com/sunyakun/foo-controller/pkg/watch"
)

type ListOptions struct {
	Offset       int
	Limit        int
	Requirements []selector.Requirement
}

// Store returns NotFound, AlreadyExist and ConcurrentConflict StatusErrors.
type Store[T any] interface {
	Get(ctx context.Context, key string) (*T, error)
	// GetList returns one page of objects and the number of matching objects.
	GetList(ctx context.Context, opts ListOptions) ([]*T, int64, error)
	// Create stores obj with the first revision.
	Create(ctx context.Context, obj *T) (*T, error)
	// Update writes the spec of obj, the status of the stored object is kept.
	// A revision set on obj must match the stored one.
	Update(ctx context.Context, key string, obj *T) error
	// UpdateStatus writes the status of obj, the spec of the stored object is
	// kept.
	UpdateStatus(ctx context.Context, key string, obj *T) error
	// Delete removes the object of key. A revision set on obj must match the
	// stored one.
	Delete(ctx context.Context, key string, obj *T) error
}

type WatchableStore[T any] interface {
	watch.Watcher[T]
	Store[T]
}

// SchemaChecker reports whether the backing schema of a store is installed.
type SchemaChecker interface {
	HasSchema(ctx context.Context) (bool, error)
}
