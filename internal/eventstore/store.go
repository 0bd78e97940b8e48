// Package eventstore exposes create/list/delete over one of two
// persistence backends: the remote authenticated row store or a local
// key-value blob.
package eventstore

import (
	"context"
	"errors"

	"github.com/iliyamo/minimal-calendar/internal/model"
)

// ErrNotFound is returned by a remote Remove whose id does not exist.
var ErrNotFound = errors.New("event not found")

// Store is the capability every backend offers. There is no update;
// editing an event is a Remove followed by an Add.
type Store interface {
	// List returns the whole collection of the store's scope.
	List(ctx context.Context) ([]model.Event, error)
	// Add persists ev immediately and returns it with its id.
	Add(ctx context.Context, ev model.NewEvent) (model.Event, error)
	// Remove deletes by id.
	Remove(ctx context.Context, id string) error
}
