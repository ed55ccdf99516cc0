package metadata

import "context"

// Table is the metadata index contract: upsert by key, exact-key get, and a
// cursor-paginated scan.
type Table interface {
	Name() string
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, key string) (Record, error)
	ScanPage(ctx context.Context, cursor string, limit int) (Page, error)
	Ping(ctx context.Context) error
}
