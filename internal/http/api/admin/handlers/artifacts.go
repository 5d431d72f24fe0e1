package handlers

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/unicore-lms/aicore/internal/artifacts"
)

// ArtifactHandler serves and removes generated artifact files.
type ArtifactHandler struct {
	store *artifacts.Store
}

// NewArtifactHandler constructs an ArtifactHandler.
func NewArtifactHandler(store *artifacts.Store) *ArtifactHandler {
	return &ArtifactHandler{store: store}
}

// Read returns an artifact's content. Path traversal attempts fail closed.
func (h *ArtifactHandler) Read(c *gin.Context) {
	relPath := strings.TrimSpace(c.Query("path"))
	content, errRead := h.store.Read(relPath)
	if errRead != nil {
		if errors.Is(errRead, artifacts.ErrPathNotAllowed) {
			c.JSON(http.StatusForbidden, gin.H{"error": "path not allowed"})
			return
		}
		if errors.Is(errRead, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read artifact failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": relPath, "content": content})
}

// Delete removes an artifact. Path traversal attempts fail closed.
func (h *ArtifactHandler) Delete(c *gin.Context) {
	relPath := strings.TrimSpace(c.Query("path"))
	if errDelete := h.store.Delete(relPath); errDelete != nil {
		if errors.Is(errDelete, artifacts.ErrPathNotAllowed) {
			c.JSON(http.StatusForbidden, gin.H{"error": "path not allowed"})
			return
		}
		if errors.Is(errDelete, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete artifact failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
