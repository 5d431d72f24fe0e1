package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath      = "CONFIG_PATH"
	EnvDBConnection    = "DB_CONNECTION"
	EnvJWTSecret       = "JWT_SECRET"
	EnvJWTExpiry       = "JWT_EXPIRY"
	EnvSecretKey       = "SECRET_KEY"
	EnvListenAddr      = "LISTEN_ADDR"
	EnvArtifactRoot    = "ARTIFACT_ROOT"
	EnvDocumentRoot    = "DOCUMENT_ROOT"
	EnvUpstreamAPIKey  = "UPSTREAM_API_KEY"
	EnvUpstreamBaseURL = "UPSTREAM_BASE_URL"
	EnvAdminUsername   = "ADMIN_USERNAME"
	EnvAdminPassword   = "ADMIN_PASSWORD"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// ErrMissingSecretKey indicates no secret key is configured for credential encryption.
var ErrMissingSecretKey = errors.New("missing secret key (set `secret-key` in config file or SECRET_KEY)")

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// Credential source modes for the key manager.
const (
	// KeysModeEnv serves the single key from the environment.
	KeysModeEnv = "env"
	// KeysModePool serves keys from the database pool.
	KeysModePool = "pool"
)

// KeysConfig selects the credential source and upstream endpoint.
type KeysConfig struct {
	Mode            string `yaml:"mode"`
	UpstreamAPIKey  string `yaml:"upstream-api-key"`
	UpstreamBaseURL string `yaml:"upstream-base-url"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	ListenAddr string `yaml:"listen-addr"`
}

// ArtifactsConfig holds artifact storage settings.
type ArtifactsConfig struct {
	Root string `yaml:"root"`
}

// DocumentsConfig holds the root directory callers may extract documents from.
type DocumentsConfig struct {
	Root string `yaml:"root"`
}

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// LoadJWTConfig loads JWT settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	// fileConfig maps the YAML fields needed for JWT settings.
	type fileConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	result := JWTConfig{Expiry: defaultJWTExpiry}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.JWT
		}
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// LoadSecretKey loads the credential encryption secret. SECRET_KEY wins over
// the `secret-key` file entry.
func LoadSecretKey(configPath string) (string, error) {
	if secret := strings.TrimSpace(os.Getenv(EnvSecretKey)); secret != "" {
		return secret, nil
	}

	// fileConfig maps the YAML field needed for the secret key.
	type fileConfig struct {
		SecretKey string `yaml:"secret-key"`
	}

	data, errRead := os.ReadFile(configPath)
	if errRead != nil {
		return "", ErrMissingSecretKey
	}
	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}
	if secret := strings.TrimSpace(cfg.SecretKey); secret != "" {
		return secret, nil
	}
	return "", ErrMissingSecretKey
}

// LoadKeysConfig loads the credential source settings from the config file
// with environment overrides. Unknown modes fall back to the database pool.
func LoadKeysConfig(configPath string) (KeysConfig, error) {
	// fileConfig maps the YAML fields for the key manager.
	type fileConfig struct {
		Keys KeysConfig `yaml:"keys"`
	}

	result := KeysConfig{Mode: KeysModePool}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.Keys
		}
	}

	if key := strings.TrimSpace(os.Getenv(EnvUpstreamAPIKey)); key != "" {
		result.UpstreamAPIKey = key
	}
	if base := strings.TrimSpace(os.Getenv(EnvUpstreamBaseURL)); base != "" {
		result.UpstreamBaseURL = base
	}

	result.Mode = strings.ToLower(strings.TrimSpace(result.Mode))
	switch result.Mode {
	case KeysModeEnv, KeysModePool:
	case "":
		result.Mode = KeysModePool
	default:
		return KeysConfig{}, fmt.Errorf("unknown keys mode: %s", result.Mode)
	}
	if result.Mode == KeysModeEnv && strings.TrimSpace(result.UpstreamAPIKey) == "" {
		return KeysConfig{}, fmt.Errorf("keys mode %q requires an upstream api key", KeysModeEnv)
	}
	return result, nil
}

// defaultListenAddr is used when the config omits the HTTP listener address.
const defaultListenAddr = ":8317"

// LoadServerConfig loads HTTP listener settings from the config file.
func LoadServerConfig(configPath string) ServerConfig {
	// fileConfig maps the YAML fields for the HTTP server.
	type fileConfig struct {
		Server ServerConfig `yaml:"server"`
	}

	result := ServerConfig{ListenAddr: defaultListenAddr}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil && strings.TrimSpace(cfg.Server.ListenAddr) != "" {
			result.ListenAddr = strings.TrimSpace(cfg.Server.ListenAddr)
		}
	}

	if addr := strings.TrimSpace(os.Getenv(EnvListenAddr)); addr != "" {
		result.ListenAddr = addr
	}
	return result
}

// defaultArtifactRoot is used when the config omits the artifact directory.
const defaultArtifactRoot = "./artifacts"

// LoadArtifactsConfig loads artifact storage settings from the config file.
func LoadArtifactsConfig(configPath string) ArtifactsConfig {
	// fileConfig maps the YAML fields for artifact storage.
	type fileConfig struct {
		Artifacts ArtifactsConfig `yaml:"artifacts"`
	}

	result := ArtifactsConfig{Root: defaultArtifactRoot}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil && strings.TrimSpace(cfg.Artifacts.Root) != "" {
			result.Root = strings.TrimSpace(cfg.Artifacts.Root)
		}
	}

	if root := strings.TrimSpace(os.Getenv(EnvArtifactRoot)); root != "" {
		result.Root = root
	}
	if abs, errAbs := filepath.Abs(result.Root); errAbs == nil {
		result.Root = abs
	}
	return result
}

// defaultDocumentRoot is used when the config omits the documents directory.
const defaultDocumentRoot = "./documents"

// LoadDocumentsConfig loads the extractable-documents root from the config file.
func LoadDocumentsConfig(configPath string) DocumentsConfig {
	// fileConfig maps the YAML fields for document extraction.
	type fileConfig struct {
		Documents DocumentsConfig `yaml:"documents"`
	}

	result := DocumentsConfig{Root: defaultDocumentRoot}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil && strings.TrimSpace(cfg.Documents.Root) != "" {
			result.Root = strings.TrimSpace(cfg.Documents.Root)
		}
	}

	if root := strings.TrimSpace(os.Getenv(EnvDocumentRoot)); root != "" {
		result.Root = root
	}
	if abs, errAbs := filepath.Abs(result.Root); errAbs == nil {
		result.Root = abs
	}
	return result
}
