package handler

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// multipart framing on top of the image itself
const uploadOverhead = 1 << 20

func (h *Handler) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.config.Media.MaxUploadSize+uploadOverhead)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		log.Debug("no upload in request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "No file uploaded"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No file uploaded"})
		return
	}
	defer file.Close() //nolint:errcheck

	ref, err := h.relay.Upload(c.Request.Context(), file, fileHeader.Header.Get("Content-Type"), fileHeader.Filename)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"imageUrl": ref})
}

func (h *Handler) DeleteImage(c *gin.Context) {
	if err := h.relay.Delete(c.Request.Context(), c.Query("imageUrl")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image Deleted Successfully"})
}

// ServeUpload streams a stored image back to the client.
func (h *Handler) ServeUpload(c *gin.Context) {
	obj, err := h.relay.Read(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	defer obj.Body.Close() //nolint:errcheck

	size := obj.Size
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, obj.ContentType, obj.Body, map[string]string{
		"Cache-Control": "public, max-age=31536000, immutable",
	})
}
