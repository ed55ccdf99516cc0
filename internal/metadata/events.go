package metadata

import (
	"context"
	"strings"

	"github.com/minio/minio-go/v7/pkg/notification"
)

// UploadEvent is the S3 event notification document delivered by MinIO and S3.
type UploadEvent struct {
	Records []notification.Event `json:"Records"`
}

// IsObjectCreated reports whether e announces a new or overwritten object.
// Events without a name are treated as uploads.
func IsObjectCreated(e notification.Event) bool {
	return e.EventName == "" || strings.Contains(e.EventName, "ObjectCreated:")
}

// HandleEvents ingests every upload record in order and stops at the first failure,
// returning the number of records ingested so far.
func (s *Service) HandleEvents(ctx context.Context, events []notification.Event) (int, error) {
	ingested := 0
	for _, e := range events {
		if !IsObjectCreated(e) {
			continue
		}
		if _, err := s.Ingest(ctx, e.S3.Bucket.Name, e.S3.Object.Key); err != nil {
			return ingested, err
		}
		ingested++
	}
	return ingested, nil
}
