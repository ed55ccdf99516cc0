package metadata

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/abduss/imgmeta/internal/objectstore"
)

// --- fakes ---

type fakeTable struct {
	mu       sync.Mutex
	records  map[string]Record
	order    []string
	putErr   error
	getErr   error
	scanErr  error
	scanned  []string
	pageSize []int
}

func newFakeTable(recs ...Record) *fakeTable {
	t := &fakeTable{records: make(map[string]Record)}
	for _, r := range recs {
		_ = t.Put(context.Background(), r)
	}
	return t
}

func (f *fakeTable) Name() string { return "fake-table" }

func (f *fakeTable) Put(ctx context.Context, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	if _, ok := f.records[rec.ObjectKey]; !ok {
		f.order = append(f.order, rec.ObjectKey)
	}
	f.records[rec.ObjectKey] = rec
	return nil
}

func (f *fakeTable) Get(ctx context.Context, key string) (Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return Record{}, f.getErr
	}
	rec, ok := f.records[key]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

// ScanPage walks records in insertion order; the cursor is the last key returned.
func (f *fakeTable) ScanPage(ctx context.Context, cursor string, limit int) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanned = append(f.scanned, cursor)
	f.pageSize = append(f.pageSize, limit)
	if f.scanErr != nil {
		return Page{}, f.scanErr
	}

	start := 0
	if cursor != "" {
		for i, k := range f.order {
			if k == cursor {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(f.order) {
		end = len(f.order)
	}

	var page Page
	for _, k := range f.order[start:end] {
		page.Records = append(page.Records, f.records[k])
	}
	if end < len(f.order) {
		page.Next = f.order[end-1]
	}
	return page, nil
}

func (f *fakeTable) Ping(ctx context.Context) error { return nil }

type fakeObjects struct {
	objects     map[string]objectstore.ObjectInfo
	statErr     error
	downloadErr error
	statCalls   []string
	downloads   []string
	downloadBkt string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string]objectstore.ObjectInfo)}
}

func (f *fakeObjects) put(key string, size int64, contentType string) {
	f.objects[key] = objectstore.ObjectInfo{
		Size:         size,
		ContentType:  contentType,
		LastModified: time.Date(2023, 5, 1, 10, 30, 0, 0, time.UTC),
	}
}

func (f *fakeObjects) Stat(ctx context.Context, container, key string) (objectstore.ObjectInfo, error) {
	f.statCalls = append(f.statCalls, key)
	if f.statErr != nil {
		return objectstore.ObjectInfo{}, f.statErr
	}
	info, ok := f.objects[key]
	if !ok {
		return objectstore.ObjectInfo{}, objectstore.ErrObjectNotFound
	}
	return info, nil
}

func (f *fakeObjects) Download(ctx context.Context, container, key, destPath string) error {
	f.downloadBkt = container
	if f.downloadErr != nil {
		return f.downloadErr
	}
	if _, ok := f.objects[key]; !ok {
		return objectstore.ErrObjectNotFound
	}
	f.downloads = append(f.downloads, destPath)
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
