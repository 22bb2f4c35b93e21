// Package blob stores artifact payloads under content-addressed keys.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when no object exists under the requested key.
var ErrNotFound = errors.New("object not found")

// Object describes a stored payload.
type Object struct {
	Key         string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Bucket is the payload storage used by the artifact store.
type Bucket interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (Object, error)
}
