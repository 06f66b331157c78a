package iclock

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Ingestor is the batch-processing collaborator behind the POST
// endpoint. It returns the accepted-count for a handled batch; an error
// means the whole batch was aborted.
type Ingestor interface {
	ProcessBatch(ctx context.Context, raw []byte, meta BatchMeta) (int, error)
}

// RegisterRoutes mounts the device endpoints. The push channel is
// trusted and unauthenticated: terminals cannot present credentials,
// and they cannot act on anything richer than the fixed replies below.
func RegisterRoutes(r gin.IRouter, ing Ingestor, hs Handshake) {
	r.GET("/iclock/cdata", func(c *gin.Context) {
		c.String(http.StatusOK, "%s", hs.Body(c.Query("SN")))
	})

	r.POST("/iclock/cdata", func(c *gin.Context) {
		raw, err := c.GetRawData()
		if err != nil {
			log.Printf("iclock: read body failed: %v", err)
			c.String(http.StatusInternalServerError, "ERROR: 0")
			return
		}
		meta := BatchMeta{
			SN:    c.Query("SN"),
			Table: c.Query("table"),
			Stamp: c.Query("Stamp"),
		}

		accepted, err := ing.ProcessBatch(c.Request.Context(), raw, meta)
		if err != nil {
			log.Printf("iclock: batch from %s aborted: %v", meta.SN, err)
			c.String(http.StatusInternalServerError, "ERROR: 0")
			return
		}
		c.String(http.StatusOK, "OK: %d", accepted)
	})
}
