// Package objectstore adapts MinIO and Amazon S3 clients to the two calls the
// metadata handlers need: stat an object and copy its bytes to local disk.
package objectstore

import (
	"errors"
	"time"
)

var (
	// ErrObjectNotFound signals that the key does not exist in the container.
	ErrObjectNotFound = errors.New("object not found")
	// ErrContainerNotFound signals that the bucket itself is missing or in another region.
	ErrContainerNotFound = errors.New("container not found")
)

// ObjectInfo is the subset of object metadata recorded at upload time.
type ObjectInfo struct {
	Size         int64
	ContentType  string
	LastModified time.Time
}
