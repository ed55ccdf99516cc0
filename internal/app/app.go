// Package app wires configuration into the table, object store and metadata service
// shared by the API server and the imgmetactl CLI.
package app

import (
	"context"
	"fmt"

	"github.com/abduss/imgmeta/internal/config"
	"github.com/abduss/imgmeta/internal/metadata"
	"github.com/abduss/imgmeta/internal/objectstore"
	"github.com/abduss/imgmeta/internal/storage"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ObjectStore is the object storage contract used by the handlers and health checks.
type ObjectStore interface {
	Stat(ctx context.Context, container, key string) (objectstore.ObjectInfo, error)
	Download(ctx context.Context, container, key, destPath string) error
	Ping(ctx context.Context) error
}

// App holds the opened backends. Close releases them.
type App struct {
	Config   config.Config
	Table    metadata.Table
	Objects  ObjectStore
	Metadata *metadata.Service

	// MinIO is set only for the minio object backend.
	MinIO *minio.Client

	closers []func()
}

// Open connects the configured backends and builds the metadata service.
func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg}

	if err := a.openObjects(ctx, log); err != nil {
		return nil, err
	}
	if err := a.openTable(ctx, log); err != nil {
		a.Close()
		return nil, err
	}

	a.Metadata = metadata.NewService(a.Table, a.Objects, metadata.Options{
		DownloadBucket: cfg.Retrieval.Bucket,
		ScratchDir:     cfg.Retrieval.ScratchDir,
		ScanPageSize:   cfg.Table.ScanPageSize,
	}, log)

	return a, nil
}

// Close releases backend connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openTable(ctx context.Context, log *zap.Logger) error {
	cfg := a.Config
	switch cfg.Table.Backend {
	case config.TableBackendPostgres:
		pool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		if cfg.Postgres.RunMigrations {
			if err := storage.Migrate(ctx, pool); err != nil {
				return err
			}
			log.Info("postgres migrations applied")
		}
		a.Table = metadata.NewRepository(pool)

	case config.TableBackendDynamoDB:
		awsCfg, err := storage.LoadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			return err
		}
		a.Table = metadata.NewDynamoRepository(storage.NewDynamoDBClient(awsCfg, cfg.AWS), cfg.Table.Name)

	default:
		return fmt.Errorf("unsupported table backend %q", cfg.Table.Backend)
	}

	log.Info("metadata table ready", zap.String("backend", cfg.Table.Backend), zap.String("table", a.Table.Name()))
	return nil
}

func (a *App) openObjects(ctx context.Context, log *zap.Logger) error {
	cfg := a.Config
	switch cfg.Retrieval.ObjectBackend {
	case config.ObjectBackendMinIO:
		client, err := storage.NewMinIOClient(cfg.MinIO)
		if err != nil {
			return err
		}
		if cfg.Trigger.EnsureBucket {
			if err := storage.EnsureBuckets(ctx, client, cfg.MinIO.Region, cfg.Trigger.Bucket, cfg.Retrieval.Bucket); err != nil {
				return fmt.Errorf("ensure buckets: %w", err)
			}
		}
		a.MinIO = client
		a.Objects = objectstore.NewMinIOStore(client)

	case config.ObjectBackendS3:
		awsCfg, err := storage.LoadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			return err
		}
		a.Objects = objectstore.NewS3Store(storage.NewS3Client(awsCfg, cfg.AWS))

	default:
		return fmt.Errorf("unsupported object backend %q", cfg.Retrieval.ObjectBackend)
	}

	log.Debug("object store ready", zap.String("backend", cfg.Retrieval.ObjectBackend))
	return nil
}
