package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/unicore-lms/aicore/internal/models"
	"github.com/unicore-lms/aicore/internal/settings"
)

// SettingHandler exposes the generation configuration surface.
type SettingHandler struct {
	db       *gorm.DB
	settings *settings.Service
}

// NewSettingHandler constructs a settings handler.
func NewSettingHandler(conn *gorm.DB, svc *settings.Service) *SettingHandler {
	return &SettingHandler{db: conn, settings: svc}
}

// Get returns the resolved generation configuration snapshot.
func (h *SettingHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Generation(c.Request.Context()))
}

// List returns the raw stored settings rows sorted by key.
func (h *SettingHandler) List(c *gin.Context) {
	var rows []models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).Order("key ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list settings failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{"key": row.Key, "value": row.Value})
	}
	c.JSON(http.StatusOK, gin.H{"settings": out})
}

// Update validates and applies a batch of setting changes, then
// invalidates the cached snapshot.
func (h *SettingHandler) Update(c *gin.Context) {
	var body map[string]json.RawMessage
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no settings provided"})
		return
	}
	if errUpdate := h.settings.UpdateGeneration(c.Request.Context(), body); errUpdate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errUpdate.Error()})
		return
	}
	c.JSON(http.StatusOK, h.settings.Generation(c.Request.Context()))
}
