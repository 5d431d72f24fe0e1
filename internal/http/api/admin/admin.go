package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/unicore-lms/aicore/internal/artifacts"
	"github.com/unicore-lms/aicore/internal/config"
	"github.com/unicore-lms/aicore/internal/generation"
	handlers "github.com/unicore-lms/aicore/internal/http/api/admin/handlers"
	"github.com/unicore-lms/aicore/internal/keys"
	"github.com/unicore-lms/aicore/internal/models"
	"github.com/unicore-lms/aicore/internal/secrets"
	"github.com/unicore-lms/aicore/internal/security"
	"github.com/unicore-lms/aicore/internal/settings"
	"github.com/unicore-lms/aicore/internal/usage"
)

// Deps carries the collaborators the admin API needs.
type Deps struct {
	DB        *gorm.DB
	JWT       config.JWTConfig
	Cipher    *secrets.Cipher
	Keys      keys.Manager
	Settings  *settings.Service
	Usage     *usage.Recorder
	Store     *artifacts.Store
	Generator *generation.Service
}

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	adminGroup := r.Group("/v1/admin")

	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT)
	adminGroup.POST("/login", authHandler.Login)

	authed := adminGroup.Group("")
	authed.Use(adminAuthMiddleware(deps.DB, deps.JWT))

	credentialHandler := handlers.NewCredentialHandler(deps.DB, deps.Cipher, deps.Keys)
	authed.POST("/keys", credentialHandler.Create)
	authed.GET("/keys", credentialHandler.List)
	authed.PUT("/keys/:id", credentialHandler.Update)
	authed.DELETE("/keys/:id", credentialHandler.Delete)
	authed.POST("/keys/:id/enable", credentialHandler.Enable)
	authed.POST("/keys/:id/disable", credentialHandler.Disable)
	authed.GET("/keys/health", credentialHandler.Health)

	settingHandler := handlers.NewSettingHandler(deps.DB, deps.Settings)
	authed.GET("/settings", settingHandler.Get)
	authed.GET("/settings/raw", settingHandler.List)
	authed.PUT("/settings", settingHandler.Update)

	usageHandler := handlers.NewUsageHandler(deps.DB, deps.Usage)
	authed.GET("/usage", usageHandler.List)
	authed.GET("/usage/summary", usageHandler.Summary)

	jobHandler := handlers.NewJobHandler(deps.DB)
	authed.GET("/jobs", jobHandler.List)
	authed.GET("/jobs/:reference", jobHandler.Get)

	artifactHandler := handlers.NewArtifactHandler(deps.Store)
	authed.GET("/artifacts", artifactHandler.Read)
	authed.DELETE("/artifacts", artifactHandler.Delete)

	connectionHandler := handlers.NewConnectionHandler(deps.Generator)
	authed.POST("/connection-test", connectionHandler.Test)
}

// adminAuthMiddleware validates admin JWTs and loads admin context.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !admin.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin disabled"})
			return
		}

		c.Set("adminID", admin.ID)
		c.Set("adminUsername", admin.Username)
		c.Next()
	}
}
