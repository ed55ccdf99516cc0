package server

import (
	"context"
	"net/http"

	"github.com/abduss/imgmeta/internal/config"
	"github.com/abduss/imgmeta/internal/logger"
	"github.com/abduss/imgmeta/internal/metadata"
	"github.com/abduss/imgmeta/internal/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger is implemented by every backend the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config      config.Config
	Table       Pinger
	ObjectStore Pinger
	Metadata    *metadata.Service
	Logger      *zap.Logger
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	router := gin.New()
	// object keys arrive percent-encoded and are decoded once by the handlers
	router.UseRawPath = true
	router.UnescapePathValues = false

	router.Use(gin.Recovery())
	router.Use(logger.Middleware())
	router.Use(logger.AccessLog(deps.Logger))
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/v1")
	if deps.Metadata != nil {
		metadata.RegisterRoutes(api, deps.Metadata)
	}

	return rawPathHandler{next: router}
}

// rawPathHandler always hands gin the escaped path. net/url leaves RawPath empty
// when the escaping is the default one ("100%25.jpg"), and gin would then route
// on the decoded path, so handlers would decode keys a second time.
type rawPathHandler struct {
	next http.Handler
}

func (h rawPathHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.RawPath == "" {
		u := *r.URL
		u.RawPath = u.EscapedPath()
		r2 := new(http.Request)
		*r2 = *r
		r2.URL = &u
		r = r2
	}
	h.next.ServeHTTP(w, r)
}
