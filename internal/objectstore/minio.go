package objectstore

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
)

type minioAPI interface {
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	FGetObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.GetObjectOptions) error
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
}

// MinIOStore adapts minio.Client to the metadata object store contract.
type MinIOStore struct {
	client minioAPI
}

// NewMinIOStore constructs an adapter.
func NewMinIOStore(client minioAPI) *MinIOStore {
	return &MinIOStore{client: client}
}

// Stat returns size, content type and last-modified time of an object.
func (s *MinIOStore) Stat(ctx context.Context, container, key string) (ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, container, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, translateMinIOError(err)
	}
	return ObjectInfo{
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

// Download copies the object to destPath.
func (s *MinIOStore) Download(ctx context.Context, container, key, destPath string) error {
	if err := s.client.FGetObject(ctx, container, key, destPath, minio.GetObjectOptions{}); err != nil {
		return translateMinIOError(err)
	}
	return nil
}

// Ping verifies the store is reachable.
func (s *MinIOStore) Ping(ctx context.Context) error {
	_, err := s.client.ListBuckets(ctx)
	return err
}

func translateMinIOError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("%w: %v", ErrObjectNotFound, err)
	case "NoSuchBucket", "AuthorizationHeaderMalformed", "PermanentRedirect":
		return fmt.Errorf("%w: %v", ErrContainerNotFound, err)
	default:
		return err
	}
}
