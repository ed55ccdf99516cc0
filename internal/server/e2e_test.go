//go:build e2e

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/abduss/imgmeta/internal/app"
	"github.com/abduss/imgmeta/internal/config"
	"github.com/abduss/imgmeta/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Needs reachable MinIO and table backends configured through IMGMETA_* variables:
//
//	IMGMETA_ENSURE_BUCKET=true go test -tags e2e ./internal/server/...
func TestUploadToStatisticsWorkflow(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	if cfg.Retrieval.ObjectBackend != config.ObjectBackendMinIO {
		t.Skip("e2e workflow uploads through minio")
	}
	cfg.Retrieval.ScratchDir = t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deps, err := app.Open(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer deps.Close()

	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()
	srv := httptest.NewServer(NewRouter(Dependencies{
		Config:      cfg,
		Table:       deps.Table,
		ObjectStore: deps.Objects,
		Metadata:    deps.Metadata,
	}))
	defer srv.Close()
	client := &http.Client{Timeout: 30 * time.Second}

	// 1. upload
	key := fmt.Sprintf("uploads/e2e %d.png", time.Now().UnixNano())
	payload := bytes.Repeat([]byte{0x89}, 2048)
	_, err = deps.MinIO.PutObject(ctx, cfg.Retrieval.Bucket, key, bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "image/png"})
	require.NoError(t, err)

	// 2. notify
	encoded := url.QueryEscape(key)
	event := fmt.Sprintf(`{"Records":[{"eventName":"s3:ObjectCreated:Put","s3":{"bucket":{"name":%q},"object":{"key":%q}}}]}`,
		cfg.Retrieval.Bucket, encoded)
	resp, err := client.Post(srv.URL+"/v1/events/upload", "application/json", strings.NewReader(event))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// 3. lookup
	resp, err = client.Get(srv.URL + "/v1/images/" + encoded)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rec struct {
		ObjectKey   string  `json:"object_key"`
		SizeBytes   float64 `json:"size_bytes"`
		ContentType string  `json:"content_type"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	resp.Body.Close()
	assert.Equal(t, key, rec.ObjectKey)
	assert.Equal(t, float64(len(payload)), rec.SizeBytes)
	assert.Equal(t, "image/png", rec.ContentType)

	// 4. statistics
	resp, err = client.Get(srv.URL + "/v1/images/info")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats struct {
		Counts map[string]int `json:"quantidades_tipos"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.GreaterOrEqual(t, stats.Counts["image/png"], 1)

	// 5. download
	resp, err = client.Get(srv.URL + "/v1/images/download/" + encoded)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
