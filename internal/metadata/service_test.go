package metadata

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/abduss/imgmeta/internal/objectstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestService(table Table, objects objectStore) *Service {
	return NewService(table, objects, Options{DownloadBucket: "images", ScratchDir: "/tmp/scratch", ScanPageSize: 2}, zap.NewNop())
}

func TestIngestStoresDecodedKey(t *testing.T) {
	table := newFakeTable()
	objects := newFakeObjects()
	objects.put("uploads/file.jpg", 1024, "image/jpeg")
	service := newTestService(table, objects)

	rec, err := service.Ingest(context.Background(), "images", "uploads%2Ffile.jpg")
	require.NoError(t, err)

	assert.Equal(t, []string{"uploads/file.jpg"}, objects.statCalls)
	assert.Equal(t, "uploads/file.jpg", rec.ObjectKey)
	assert.Equal(t, 1024.0, rec.SizeBytes)
	assert.Equal(t, "image/jpeg", rec.ContentType)
	assert.Equal(t, "2023-05-01 10:30:00+00:00", rec.UploadedAt)
	require.Len(t, table.records, 1)
	assert.Equal(t, rec, table.records["uploads/file.jpg"])
}

func TestIngestDecodesPlusAsSpace(t *testing.T) {
	table := newFakeTable()
	objects := newFakeObjects()
	objects.put("uploads/my photo.png", 10, "image/png")
	service := newTestService(table, objects)

	_, err := service.Ingest(context.Background(), "images", "uploads/my+photo.png")
	require.NoError(t, err)
	assert.Contains(t, table.records, "uploads/my photo.png")
}

func TestIngestOverwritesPreviousRecord(t *testing.T) {
	table := newFakeTable()
	objects := newFakeObjects()
	service := newTestService(table, objects)

	objects.put("uploads/k.png", 100, "image/png")
	_, err := service.Ingest(context.Background(), "images", "uploads%2Fk.png")
	require.NoError(t, err)

	objects.put("uploads/k.png", 250, "image/png")
	_, err = service.Ingest(context.Background(), "images", "uploads%2Fk.png")
	require.NoError(t, err)

	rec, err := service.Lookup(context.Background(), "uploads%2Fk.png")
	require.NoError(t, err)
	assert.Equal(t, 250.0, rec.SizeBytes)
	assert.Len(t, table.records, 1)
}

func TestIngestLogsAndReturnsObjectFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	table := newFakeTable()
	objects := newFakeObjects()
	service := NewService(table, objects, Options{}, zap.New(core))

	_, err := service.Ingest(context.Background(), "images", "uploads%2Fmissing.png")
	require.Error(t, err)

	assert.Equal(t, KindUpstream, KindOf(err))
	assert.ErrorIs(t, err, objectstore.ErrObjectNotFound)
	assert.Empty(t, table.records)

	var metaErr *Error
	require.ErrorAs(t, err, &metaErr)
	assert.Equal(t, "uploads/missing.png", metaErr.Key)
	assert.Equal(t, "images", metaErr.Container)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "uploads/missing.png", entries[0].ContextMap()["key"])
	assert.Equal(t, "images", entries[0].ContextMap()["container"])
}

func TestIngestReturnsTableFailure(t *testing.T) {
	table := newFakeTable()
	table.putErr = errors.New("throughput exceeded")
	objects := newFakeObjects()
	objects.put("a.png", 1, "image/png")
	service := newTestService(table, objects)

	_, err := service.Ingest(context.Background(), "images", "a.png")
	assert.Equal(t, KindUpstream, KindOf(err))
	assert.ErrorIs(t, err, table.putErr)
}

func TestIngestRejectsMalformedKey(t *testing.T) {
	objects := newFakeObjects()
	service := newTestService(newFakeTable(), objects)

	_, err := service.Ingest(context.Background(), "images", "bad%zzkey")
	assert.Equal(t, KindInvalidKey, KindOf(err))
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.Empty(t, objects.statCalls)
}

func TestLookupRoundTripsSizeAsFloat(t *testing.T) {
	table := newFakeTable(Record{ObjectKey: "uploads/a.jpg", SizeBytes: 1024, ContentType: "image/jpeg", UploadedAt: "2023-05-01 10:30:00+00:00"})
	service := newTestService(table, newFakeObjects())

	rec, err := service.Lookup(context.Background(), "uploads%2Fa.jpg")
	require.NoError(t, err)

	assert.Equal(t, 1024.0, rec.SizeBytes)
	assert.Equal(t, "image/jpeg", rec.ContentType)
}

func TestLookupMissingKeyIsNotFound(t *testing.T) {
	service := newTestService(newFakeTable(), newFakeObjects())

	_, err := service.Lookup(context.Background(), "uploads%2Fnone.jpg")
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestLookupTableFailureIsUpstream(t *testing.T) {
	table := newFakeTable()
	table.getErr = errors.New("timeout")
	service := newTestService(table, newFakeObjects())

	_, err := service.Lookup(context.Background(), "k")
	assert.Equal(t, KindUpstream, KindOf(err))
}

func TestRetrieveDownloadsIntoScratchDir(t *testing.T) {
	objects := newFakeObjects()
	objects.put("uploads/file.jpg", 10, "image/jpeg")
	service := newTestService(newFakeTable(), objects)

	res, err := service.Retrieve(context.Background(), "uploads%2Ffile.jpg")
	require.NoError(t, err)

	assert.Equal(t, "Download successful!", res.Message)
	assert.Equal(t, "images", objects.downloadBkt)
	assert.Equal(t, []string{filepath.Join("/tmp/scratch", "file.jpg")}, objects.downloads)
}

func TestRetrieveMissingObjectFails(t *testing.T) {
	objects := newFakeObjects()
	service := newTestService(newFakeTable(), objects)

	res, err := service.Retrieve(context.Background(), "uploads%2Fghost.jpg")
	require.Error(t, err)

	assert.Empty(t, res.Message)
	assert.Equal(t, KindUpstream, KindOf(err))
	assert.ErrorIs(t, err, objectstore.ErrObjectNotFound)
}

func TestRetrieveRejectsTraversalKey(t *testing.T) {
	objects := newFakeObjects()
	service := newTestService(newFakeTable(), objects)

	_, err := service.Retrieve(context.Background(), "..")
	assert.Equal(t, KindInvalidKey, KindOf(err))
	assert.Empty(t, objects.downloads)
}

func TestStatisticsFoldsAcrossPages(t *testing.T) {
	table := newFakeTable(
		Record{ObjectKey: "K1", SizeBytes: 500, ContentType: "image/png"},
		Record{ObjectKey: "K2", SizeBytes: 2000, ContentType: "image/jpeg"},
		Record{ObjectKey: "K3", SizeBytes: 2000, ContentType: "image/png"},
	)
	service := newTestService(table, newFakeObjects())

	stats, err := service.Statistics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "K3", stats.Largest)
	assert.Equal(t, "K1", stats.Smallest)
	assert.Equal(t, []string{"image/png", "image/jpeg"}, stats.ContentTypes)
	assert.Equal(t, map[string]int{"image/png": 2, "image/jpeg": 1}, stats.TypeCounts)
	assert.Equal(t, []string{"", "K2"}, table.scanned)
	assert.Equal(t, []int{2, 2}, table.pageSize)
}

func TestStatisticsSingleRecord(t *testing.T) {
	service := newTestService(newFakeTable(Record{ObjectKey: "solo", SizeBytes: 7, ContentType: "image/gif"}), newFakeObjects())

	stats, err := service.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "solo", stats.Largest)
	assert.Equal(t, "solo", stats.Smallest)
}

func TestStatisticsEmptyTable(t *testing.T) {
	service := newTestService(newFakeTable(), newFakeObjects())

	_, err := service.Statistics(context.Background())
	assert.Equal(t, KindEmpty, KindOf(err))
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestStatisticsScanFailure(t *testing.T) {
	table := newFakeTable()
	table.scanErr = errors.New("access denied")
	service := newTestService(table, newFakeObjects())

	_, err := service.Statistics(context.Background())
	assert.Equal(t, KindUpstream, KindOf(err))
	assert.ErrorIs(t, err, table.scanErr)
}

type stuckTable struct{ *fakeTable }

func (s stuckTable) ScanPage(ctx context.Context, cursor string, limit int) (Page, error) {
	return Page{Records: []Record{{ObjectKey: "loop", SizeBytes: 1}}, Next: "loop"}, nil
}

func TestStatisticsStopsOnStuckCursor(t *testing.T) {
	service := newTestService(stuckTable{newFakeTable()}, newFakeObjects())

	_, err := service.Statistics(context.Background())
	assert.Equal(t, KindUpstream, KindOf(err))
}

func TestErrorMessageIncludesContext(t *testing.T) {
	err := &Error{Kind: KindUpstream, Op: "ingest", Key: "uploads/a.png", Container: "images", Err: errors.New("boom")}
	assert.Equal(t, `ingest "uploads/a.png" in "images": boom`, err.Error())
	assert.Equal(t, "upstream", err.Kind.String())
}
