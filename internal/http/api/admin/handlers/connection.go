package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unicore-lms/aicore/internal/generation"
)

// ConnectionHandler lets operators probe the upstream credential path.
type ConnectionHandler struct {
	generator *generation.Service
}

// NewConnectionHandler constructs a ConnectionHandler.
func NewConnectionHandler(generator *generation.Service) *ConnectionHandler {
	return &ConnectionHandler{generator: generator}
}

// Test issues a one-shot low-token completion and reports latency.
func (h *ConnectionHandler) Test(c *gin.Context) {
	result, errTest := h.generator.TestConnection(c.Request.Context())
	if errTest != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errTest.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
