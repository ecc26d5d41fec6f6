package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"dm-service/internal/filestore"
)

// ImageOpener reads a stored image by its content hash.
type ImageOpener interface {
	Open(hash string) (io.ReadCloser, string, error)
}

// ServeUpload streams /uploads/:hash.
func ServeUpload(images ImageOpener) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, mime, err := images.Open(c.Param("hash"))
		if err != nil {
			if errors.Is(err, filestore.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			internalError(c, "open upload", err)
			return
		}
		defer body.Close()

		c.Header("Cache-Control", "public, max-age=31536000, immutable")
		c.DataFromReader(http.StatusOK, -1, mime, body, nil)
	}
}
