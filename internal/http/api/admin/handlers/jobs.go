package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/unicore-lms/aicore/internal/models"
)

// JobHandler exposes generation job tracking.
type JobHandler struct {
	db *gorm.DB
}

// NewJobHandler constructs a JobHandler.
func NewJobHandler(conn *gorm.DB) *JobHandler {
	return &JobHandler{db: conn}
}

// List returns recent jobs, newest first, optionally filtered.
func (h *JobHandler) List(c *gin.Context) {
	limit := 50
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}
	query := h.db.WithContext(c.Request.Context()).Model(&models.GenerationJob{})
	if actor := strings.TrimSpace(c.Query("actor")); actor != "" {
		query = query.Where("actor = ?", actor)
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		query = query.Where("status = ?", status)
	}
	var rows []models.GenerationJob
	if errFind := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list jobs failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": rows})
}

// Get returns one job by its public reference.
func (h *JobHandler) Get(c *gin.Context) {
	reference := strings.TrimSpace(c.Param("reference"))
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reference"})
		return
	}
	var job models.GenerationJob
	if errFind := h.db.WithContext(c.Request.Context()).Where("reference = ?", reference).First(&job).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, job)
}
