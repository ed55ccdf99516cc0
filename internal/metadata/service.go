package metadata

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/abduss/imgmeta/internal/logger"
	"github.com/abduss/imgmeta/internal/metrics"
	"github.com/abduss/imgmeta/internal/objectstore"
	"go.uber.org/zap"
)

const defaultScanPageSize = 500

type objectStore interface {
	Stat(ctx context.Context, container, key string) (objectstore.ObjectInfo, error)
	Download(ctx context.Context, container, key, destPath string) error
}

// Options configures the retrieval and statistics handlers.
type Options struct {
	DownloadBucket string
	ScratchDir     string
	ScanPageSize   int
}

// Service implements the ingestion, lookup, retrieval and statistics handlers.
type Service struct {
	table          Table
	objects        objectStore
	downloadBucket string
	scratchDir     string
	pageSize       int
	log            *zap.Logger
}

// NewService constructs a metadata service.
func NewService(table Table, objects objectStore, opts Options, log *zap.Logger) *Service {
	if opts.ScanPageSize <= 0 {
		opts.ScanPageSize = defaultScanPageSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		table:          table,
		objects:        objects,
		downloadBucket: opts.DownloadBucket,
		scratchDir:     opts.ScratchDir,
		pageSize:       opts.ScanPageSize,
		log:            log,
	}
}

// Ingest records metadata for a freshly uploaded object. rawKey is percent-encoded.
func (s *Service) Ingest(ctx context.Context, container, rawKey string) (rec Record, err error) {
	defer func() { metrics.ObserveHandler("ingest", err) }()

	key, err := DecodeKey(rawKey)
	if err != nil {
		return Record{}, &Error{Kind: KindInvalidKey, Op: "ingest", Key: rawKey, Container: container, Err: err}
	}

	info, err := s.objects.Stat(ctx, container, key)
	if err != nil {
		return Record{}, s.objectFailure(ctx, "ingest", key, container, err)
	}

	rec = Record{
		ObjectKey:   key,
		SizeBytes:   float64(info.Size),
		ContentType: info.ContentType,
		UploadedAt:  FormatUploadedAt(info.LastModified),
	}

	if err := s.table.Put(ctx, rec); err != nil {
		return Record{}, s.tableFailure(ctx, "ingest", key, err)
	}

	logger.FromContext(ctx, s.log).Info("metadata recorded",
		zap.String("key", key),
		zap.String("container", container),
		zap.Float64("size_bytes", rec.SizeBytes),
	)
	return rec, nil
}

// Lookup returns the record stored for rawKey.
func (s *Service) Lookup(ctx context.Context, rawKey string) (rec Record, err error) {
	defer func() { metrics.ObserveHandler("lookup", err) }()

	key, err := DecodeKey(rawKey)
	if err != nil {
		return Record{}, &Error{Kind: KindInvalidKey, Op: "lookup", Key: rawKey, Err: err}
	}

	rec, err = s.table.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return Record{}, &Error{Kind: KindNotFound, Op: "lookup", Key: key, Container: s.table.Name(), Err: err}
		}
		return Record{}, s.tableFailure(ctx, "lookup", key, err)
	}
	return rec, nil
}

// Retrieve copies the object's bytes from the download bucket into the scratch directory.
func (s *Service) Retrieve(ctx context.Context, rawKey string) (res DownloadResult, err error) {
	defer func() { metrics.ObserveHandler("retrieve", err) }()

	key, err := DecodeKey(rawKey)
	if err != nil {
		return DownloadResult{}, &Error{Kind: KindInvalidKey, Op: "retrieve", Key: rawKey, Container: s.downloadBucket, Err: err}
	}

	name := filepath.Base(key)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return DownloadResult{}, &Error{Kind: KindInvalidKey, Op: "retrieve", Key: key, Container: s.downloadBucket, Err: ErrInvalidKey}
	}
	dest := filepath.Join(s.scratchDir, name)

	if err := s.objects.Download(ctx, s.downloadBucket, key, dest); err != nil {
		return DownloadResult{}, s.objectFailure(ctx, "retrieve", key, s.downloadBucket, err)
	}

	return DownloadResult{Message: downloadSuccessMessage, Path: dest}, nil
}

// Statistics folds every record, page by page, into Stats.
func (s *Service) Statistics(ctx context.Context) (stats Stats, err error) {
	defer func() { metrics.ObserveHandler("statistics", err) }()

	agg := NewAggregator()
	cursor := ""
	for {
		page, err := s.table.ScanPage(ctx, cursor, s.pageSize)
		if err != nil {
			return Stats{}, s.tableFailure(ctx, "statistics", "", err)
		}
		for _, rec := range page.Records {
			agg.Add(rec)
		}
		if page.Next == "" {
			break
		}
		if page.Next == cursor {
			return Stats{}, s.tableFailure(ctx, "statistics", "", fmt.Errorf("scan cursor did not advance past %q", cursor))
		}
		cursor = page.Next
	}
	metrics.AddScanned(agg.Count())

	stats, err = agg.Result()
	if err != nil {
		return Stats{}, &Error{Kind: KindEmpty, Op: "statistics", Container: s.table.Name(), Err: err}
	}
	return stats, nil
}

func (s *Service) objectFailure(ctx context.Context, op, key, container string, err error) error {
	logger.FromContext(ctx, s.log).Error("error getting object; make sure it exists and the bucket is in the same region",
		zap.String("op", op),
		zap.String("key", key),
		zap.String("container", container),
		zap.Error(err),
	)
	return &Error{Kind: KindUpstream, Op: op, Key: key, Container: container, Err: err}
}

func (s *Service) tableFailure(ctx context.Context, op, key string, err error) error {
	logger.FromContext(ctx, s.log).Error("error accessing table; make sure it exists and is in the same region",
		zap.String("op", op),
		zap.String("key", key),
		zap.String("table", s.table.Name()),
		zap.Error(err),
	)
	return &Error{Kind: KindUpstream, Op: op, Key: key, Container: s.table.Name(), Err: err}
}
