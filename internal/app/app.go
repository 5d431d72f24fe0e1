package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/unicore-lms/aicore/internal/artifacts"
	"github.com/unicore-lms/aicore/internal/config"
	"github.com/unicore-lms/aicore/internal/db"
	"github.com/unicore-lms/aicore/internal/generation"
	"github.com/unicore-lms/aicore/internal/http/api/admin"
	"github.com/unicore-lms/aicore/internal/http/api/front"
	"github.com/unicore-lms/aicore/internal/keys"
	"github.com/unicore-lms/aicore/internal/models"
	"github.com/unicore-lms/aicore/internal/ratelimit"
	"github.com/unicore-lms/aicore/internal/secrets"
	"github.com/unicore-lms/aicore/internal/settings"
	"github.com/unicore-lms/aicore/internal/usage"
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the generation API server with database-backed components.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	if errAdmin := EnsureAdminFromEnv(conn); errAdmin != nil {
		return errAdmin
	}

	jwtConfig, _ := config.LoadJWTConfig(configPath)

	secretKey, err := config.LoadSecretKey(configPath)
	if err != nil {
		return err
	}
	cipher, err := secrets.NewCipher(secretKey)
	if err != nil {
		return err
	}

	settingsService := settings.NewService(conn)
	recorder := usage.NewRecorder(conn)

	limiter := ratelimit.NewManager(redisProvider(settingsService), nil, nil)

	keysConfig, err := config.LoadKeysConfig(configPath)
	if err != nil {
		return err
	}
	manager, err := buildKeyManager(keysConfig, conn, cipher, limiter)
	if err != nil {
		return err
	}

	artifactsConfig := config.LoadArtifactsConfig(configPath)
	store, err := artifacts.NewStore(artifactsConfig.Root)
	if err != nil {
		return err
	}

	client := generation.NewClient(manager, settingsService, recorder, keysConfig.UpstreamBaseURL)
	generator := generation.NewService(conn, client, settingsService, recorder, store)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	admin.RegisterAdminRoutes(engine, admin.Deps{
		DB:        conn,
		JWT:       jwtConfig,
		Cipher:    cipher,
		Keys:      manager,
		Settings:  settingsService,
		Usage:     recorder,
		Store:     store,
		Generator: generator,
	})
	documentsConfig := config.LoadDocumentsConfig(configPath)
	front.RegisterFrontRoutes(engine, generator, settingsService, recorder, documentsConfig.Root)

	serverConfig := config.LoadServerConfig(configPath)
	srv := &http.Server{
		Addr:    serverConfig.ListenAddr,
		Handler: engine,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	log.Infof("starting generation server on %s (keys mode=%s)", serverConfig.ListenAddr, keysConfig.Mode)
	if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
		return errListen
	}
	return nil
}

// buildKeyManager selects the credential source configured for the server.
func buildKeyManager(cfg config.KeysConfig, conn *gorm.DB, cipher *secrets.Cipher, limiter *ratelimit.Manager) (keys.Manager, error) {
	switch cfg.Mode {
	case config.KeysModeEnv:
		return keys.NewEnvManager(cfg.UpstreamAPIKey, models.DefaultRPMLimit, limiter), nil
	case config.KeysModePool:
		return keys.NewPoolManager(conn, cipher, limiter), nil
	default:
		return nil, fmt.Errorf("unknown keys mode: %s", cfg.Mode)
	}
}

// redisProvider adapts the settings service into a rate limiter config source.
func redisProvider(svc *settings.Service) ratelimit.ConfigProvider {
	return func() ratelimit.BackendConfig {
		cfg := svc.Redis(context.Background())
		return ratelimit.BackendConfig{
			RedisEnabled:  cfg.Enabled,
			RedisAddr:     cfg.Addr,
			RedisPassword: cfg.Password,
			RedisDB:       cfg.DB,
			RedisPrefix:   cfg.Prefix,
		}
	}
}

// corsMiddleware enables permissive CORS for the API surface.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Actor-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
