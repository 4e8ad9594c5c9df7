// Package storage persists uploaded diagnosis images. MinIO backs
// deployments; LocalStore keeps files on disk for development and tests.
package storage

import (
	"context"
	"io"
)

// ImageStore saves and removes uploaded images. Put returns the URL the
// stored image is reachable at.
type ImageStore interface {
	Put(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error)
	Remove(ctx context.Context, name string) error
}
