package images

import (
	"context"
	"time"
)

type ObjectInfo struct {
	Name    string
	ModTime time.Time
}

// Backend persists encoded variants under flat object names.
type Backend interface {
	Put(ctx context.Context, name string, data []byte) error
	// Remove deletes name; a missing object is not an error.
	Remove(ctx context.Context, name string) error
	List(ctx context.Context) ([]ObjectInfo, error)
	Ping(ctx context.Context) error
}
