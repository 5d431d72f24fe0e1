package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/unicore-lms/aicore/internal/db"
	"github.com/unicore-lms/aicore/internal/keys"
	"github.com/unicore-lms/aicore/internal/models"
	"github.com/unicore-lms/aicore/internal/secrets"
)

// CredentialHandler manages upstream credential endpoints.
type CredentialHandler struct {
	db     *gorm.DB
	cipher *secrets.Cipher
	keys   keys.Manager
}

// NewCredentialHandler constructs a CredentialHandler.
func NewCredentialHandler(conn *gorm.DB, cipher *secrets.Cipher, manager keys.Manager) *CredentialHandler {
	return &CredentialHandler{db: conn, cipher: cipher, keys: manager}
}

// Create stores a new credential with the secret encrypted at rest.
func (h *CredentialHandler) Create(c *gin.Context) {
	var body struct {
		Label    string `json:"label"`
		Provider string `json:"provider"`
		Secret   string `json:"secret"`
		Priority int    `json:"priority"`
		RPMLimit int    `json:"rpm_limit"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	label := strings.TrimSpace(body.Label)
	secret := strings.TrimSpace(body.Secret)
	if label == "" || secret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "label and secret are required"})
		return
	}
	rpm := body.RPMLimit
	if rpm <= 0 {
		rpm = models.DefaultRPMLimit
	}
	if rpm > 1000 {
		rpm = 1000
	}

	encrypted, errEncrypt := h.cipher.Encrypt(secret)
	if errEncrypt != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encrypt secret failed"})
		return
	}
	row := models.Credential{
		Label:           label,
		Provider:        strings.TrimSpace(body.Provider),
		Priority:        body.Priority,
		EncryptedSecret: encrypted,
		SecretHint:      secrets.Hint(secret),
		Status:          models.CredentialStatusActive,
		RPMLimit:        rpm,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&row).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create credential failed"})
		return
	}
	c.JSON(http.StatusCreated, formatCredential(&row))
}

// List returns credentials, optionally filtered by a label search.
func (h *CredentialHandler) List(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).Model(&models.Credential{})
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := db.NormalizeLikePattern(h.db, "%"+search+"%")
		query = query.Where(db.CaseInsensitiveLikeExpr(h.db, "label"), pattern)
	}
	var rows []models.Credential
	if errFind := query.Order("priority ASC, created_at ASC, id ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list credentials failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatCredential(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"credentials": out})
}

// Update changes label, priority, or RPM ceiling; a new secret re-encrypts.
func (h *CredentialHandler) Update(c *gin.Context) {
	row, ok := h.findByParam(c)
	if !ok {
		return
	}
	var body struct {
		Label    *string `json:"label"`
		Provider *string `json:"provider"`
		Secret   *string `json:"secret"`
		Priority *int    `json:"priority"`
		RPMLimit *int    `json:"rpm_limit"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Label != nil {
		if label := strings.TrimSpace(*body.Label); label != "" {
			row.Label = label
		}
	}
	if body.Provider != nil {
		row.Provider = strings.TrimSpace(*body.Provider)
	}
	if body.Priority != nil {
		row.Priority = *body.Priority
	}
	if body.RPMLimit != nil {
		rpm := *body.RPMLimit
		if rpm < 1 {
			rpm = 1
		}
		if rpm > 1000 {
			rpm = 1000
		}
		row.RPMLimit = rpm
	}
	if body.Secret != nil {
		secret := strings.TrimSpace(*body.Secret)
		if secret == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "secret cannot be empty"})
			return
		}
		encrypted, errEncrypt := h.cipher.Encrypt(secret)
		if errEncrypt != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "encrypt secret failed"})
			return
		}
		row.EncryptedSecret = encrypted
		row.SecretHint = secrets.Hint(secret)
	}
	if errSave := h.db.WithContext(c.Request.Context()).Save(row).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update credential failed"})
		return
	}
	c.JSON(http.StatusOK, formatCredential(row))
}

// Enable reactivates a credential, clearing error state and cooldown.
// This is the manual recovery path after an error streak disables a key.
func (h *CredentialHandler) Enable(c *gin.Context) {
	row, ok := h.findByParam(c)
	if !ok {
		return
	}
	row.Disabled = false
	row.Status = models.CredentialStatusActive
	row.ErrorCount = 0
	row.CooldownUntil = nil
	if errSave := h.db.WithContext(c.Request.Context()).Save(row).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enable credential failed"})
		return
	}
	c.JSON(http.StatusOK, formatCredential(row))
}

// Disable switches a credential off so selection skips it.
func (h *CredentialHandler) Disable(c *gin.Context) {
	row, ok := h.findByParam(c)
	if !ok {
		return
	}
	row.Disabled = true
	row.Status = models.CredentialStatusDisabled
	if errSave := h.db.WithContext(c.Request.Context()).Save(row).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "disable credential failed"})
		return
	}
	c.JSON(http.StatusOK, formatCredential(row))
}

// Delete removes a credential.
func (h *CredentialHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.Credential{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete credential failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Health returns the health snapshot of every credential for dashboards.
func (h *CredentialHandler) Health(c *gin.Context) {
	status, errHealth := h.keys.HealthStatus(c.Request.Context())
	if errHealth != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "health status failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"credentials": status})
}

func (h *CredentialHandler) findByParam(c *gin.Context) (*models.Credential, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return nil, false
	}
	var row models.Credential
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}
	return &row, true
}

// formatCredential renders a credential row without the encrypted secret.
func formatCredential(row *models.Credential) gin.H {
	return gin.H{
		"id":             row.ID,
		"label":          row.Label,
		"provider":       row.Provider,
		"priority":       row.Priority,
		"secret_hint":    row.SecretHint,
		"status":         row.Status,
		"disabled":       row.Disabled,
		"error_count":    row.ErrorCount,
		"total_requests": row.TotalRequests,
		"last_error":     row.LastError,
		"last_error_at":  row.LastErrorAt,
		"last_success":   row.LastSuccessAt,
		"latency_ms":     row.LastLatencyMs,
		"rpm_limit":      row.RPMLimit,
		"cooldown_until": row.CooldownUntil,
		"created_at":     row.CreatedAt,
	}
}
