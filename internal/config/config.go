// Package config loads ~/.pingme/config.toml and its environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Identity providers.
const (
	ProviderStatic = "static"
	ProviderJWT    = "jwt"
)

// Environment variables that override the file.
const (
	EnvStoreBackend     = "PINGME_STORE_BACKEND"
	EnvFirestoreProject = "PINGME_FIRESTORE_PROJECT"
	EnvCredentials      = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvJWTSecret        = "PINGME_JWT_SECRET"
)

// Config represents the global ~/.pingme/config.toml.
type Config struct {
	DefaultProfile string         `toml:"default_profile"`
	Store          StoreConfig    `toml:"store"`
	Identity       IdentityConfig `toml:"identity"`
	Metrics        MetricsConfig  `toml:"metrics"`
}

type StoreConfig struct {
	Backend          string `toml:"backend"`
	SQLitePath       string `toml:"sqlite_path"`
	FirestoreProject string `toml:"firestore_project"`
	CredentialsFile  string `toml:"credentials_file"`
}

type IdentityConfig struct {
	Provider    string `toml:"provider"`
	UID         string `toml:"uid"`
	DisplayName string `toml:"display_name"`
	Email       string `toml:"email"`
	PhotoURL    string `toml:"photo_url"`
	TokenFile   string `toml:"token_file"`
	JWTSecret   string `toml:"jwt_secret"`
}

type MetricsConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Store:    StoreConfig{Backend: BackendSQLite},
		Identity: IdentityConfig{Provider: ProviderStatic},
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault reads path if it exists, falls back to Default otherwise,
// and applies environment overrides.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.ApplyEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv loads envFile into the process environment when present, without
// overriding variables already set, then applies the overrides.
func (c *Config) ApplyEnv(envFile string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	if v := os.Getenv(EnvStoreBackend); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv(EnvFirestoreProject); v != "" {
		c.Store.FirestoreProject = v
	}
	if v := os.Getenv(EnvCredentials); v != "" && c.Store.CredentialsFile == "" {
		c.Store.CredentialsFile = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.Identity.JWTSecret = v
	}
	return nil
}

// Validate checks that the selected backend and provider are usable.
func (c *Config) Validate() error {
	if !slices.Contains([]string{BackendSQLite, BackendFirestore, BackendMemory}, c.Store.Backend) {
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == BackendFirestore && c.Store.FirestoreProject == "" {
		return errors.New("store backend firestore requires firestore_project")
	}
	switch c.Identity.Provider {
	case ProviderStatic:
	case ProviderJWT:
		if c.Identity.TokenFile == "" || c.Identity.JWTSecret == "" {
			return errors.New("identity provider jwt requires token_file and jwt_secret")
		}
	default:
		return fmt.Errorf("unknown identity provider %q", c.Identity.Provider)
	}
	return nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
