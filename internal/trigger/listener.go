// Package trigger feeds bucket notifications from MinIO into the ingestion handler.
package trigger

import (
	"context"
	"errors"
	"time"

	"github.com/minio/minio-go/v7/pkg/notification"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

var objectCreatedEvents = []string{"s3:ObjectCreated:*"}

// errStreamClosed is reported when the notification stream ends while the listener is still running.
var errStreamClosed = errors.New("notification stream closed")

const (
	resubscribeBase = time.Second
	resubscribeCap  = 30 * time.Second
)

// newBackoff is replaced in tests.
var newBackoff = func() retry.Backoff {
	return retry.WithCappedDuration(resubscribeCap, retry.NewExponential(resubscribeBase))
}

type notificationSource interface {
	ListenBucketNotification(ctx context.Context, bucketName, prefix, suffix string, events []string) <-chan notification.Info
}

type eventHandler interface {
	HandleEvents(ctx context.Context, events []notification.Event) (int, error)
}

// Listener subscribes to object-created notifications for one bucket.
type Listener struct {
	source  notificationSource
	handler eventHandler
	bucket  string
	prefix  string
	suffix  string
	log     *zap.Logger
}

// NewListener builds a listener for bucket, filtered by key prefix and suffix.
func NewListener(source notificationSource, handler eventHandler, bucket, prefix, suffix string, log *zap.Logger) *Listener {
	return &Listener{
		source:  source,
		handler: handler,
		bucket:  bucket,
		prefix:  prefix,
		suffix:  suffix,
		log:     log.With(zap.String("bucket", bucket), zap.String("prefix", prefix)),
	}
}

// Run blocks until ctx is cancelled and always returns ctx.Err().
// minio-go closes the stream after any connection error, so a closed stream is
// resubscribed with capped exponential backoff. A failed ingestion is logged and
// does not stop the stream.
func (l *Listener) Run(ctx context.Context) error {
	backoff := newBackoff()
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := l.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.log.Warn("resubscribing to bucket notifications", zap.Error(err))
		return retry.RetryableError(err)
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	// only reachable if the backoff gives up
	return err
}

// consume reads one subscription until it closes and reports why it ended.
func (l *Listener) consume(ctx context.Context) error {
	l.log.Info("listening for uploads")

	var lastErr error
	stream := l.source.ListenBucketNotification(ctx, l.bucket, l.prefix, l.suffix, objectCreatedEvents)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case info, ok := <-stream:
			if !ok {
				if lastErr != nil {
					return errors.Join(errStreamClosed, lastErr)
				}
				return errStreamClosed
			}
			if info.Err != nil {
				lastErr = info.Err
				l.log.Error("notification stream error", zap.Error(info.Err))
				continue
			}
			if len(info.Records) == 0 {
				continue
			}
			n, err := l.handler.HandleEvents(ctx, info.Records)
			if err != nil {
				l.log.Error("ingestion failed", zap.Int("ingested", n), zap.Error(err))
				continue
			}
			l.log.Debug("ingested uploads", zap.Int("ingested", n))
		}
	}
}
