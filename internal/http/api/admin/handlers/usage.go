package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/unicore-lms/aicore/internal/models"
	"github.com/unicore-lms/aicore/internal/usage"
)

// UsageHandler exposes the usage log and per-actor aggregates.
type UsageHandler struct {
	db       *gorm.DB
	recorder *usage.Recorder
}

// NewUsageHandler constructs a UsageHandler.
func NewUsageHandler(conn *gorm.DB, recorder *usage.Recorder) *UsageHandler {
	return &UsageHandler{db: conn, recorder: recorder}
}

// List returns recent usage records, newest first.
func (h *UsageHandler) List(c *gin.Context) {
	limit := 100
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	query := h.db.WithContext(c.Request.Context()).Model(&models.UsageRecord{})
	if actor := strings.TrimSpace(c.Query("actor")); actor != "" {
		query = query.Where("actor = ?", actor)
	}
	if kind := strings.TrimSpace(c.Query("kind")); kind != "" {
		query = query.Where("request_kind = ?", kind)
	}
	var rows []models.UsageRecord
	if errFind := query.Order("requested_at DESC, id DESC").Limit(limit).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list usage failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": rows})
}

// Summary returns an aggregate for one actor over a trailing window.
func (h *UsageHandler) Summary(c *gin.Context) {
	actor := strings.TrimSpace(c.Query("actor"))
	if actor == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actor is required"})
		return
	}
	windowHours := 24
	if raw := strings.TrimSpace(c.Query("window_hours")); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed > 0 && parsed <= 24*30 {
			windowHours = parsed
		}
	}
	summary, errSummarize := h.recorder.Summarize(c.Request.Context(), actor, windowHours)
	if errSummarize != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "summarize usage failed"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
