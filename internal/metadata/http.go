package metadata

import (
	"errors"
	"net/http"

	"github.com/abduss/imgmeta/internal/objectstore"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the metadata handlers. The router must leave path values
// escaped (gin.Engine.UnescapePathValues = false) so keys such as
// "uploads%2Ffile.jpg" reach DecodeKey intact.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.GET("/images/info", handler.statistics)
	group.GET("/images/download/:key", handler.download)
	group.GET("/images/:key", handler.lookup)
	group.POST("/events/upload", handler.uploadEvent)
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) lookup(c *gin.Context) {
	rec, err := h.service.Lookup(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *httpHandler) download(c *gin.Context) {
	res, err := h.service.Retrieve(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *httpHandler) statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *httpHandler) uploadEvent(c *gin.Context) {
	var event UploadEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
		return
	}

	ingested, err := h.service.HandleEvents(c.Request.Context(), event.Records)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ingested": ingested})
}

func writeError(c *gin.Context, err error) {
	switch KindOf(err) {
	case KindInvalidKey:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid object key"})
	case KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case KindEmpty:
		c.JSON(http.StatusNotFound, gin.H{"error": "no records"})
	default:
		if errors.Is(err, objectstore.ErrObjectNotFound) || errors.Is(err, objectstore.ErrContainerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream service failure"})
	}
}
