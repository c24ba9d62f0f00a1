package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jbweber/homelab/dao"
	"github.com/jbweber/homelab/dao/internal/boltstore"
	"github.com/jbweber/homelab/dao/internal/memory"
	"github.com/jbweber/homelab/dao/internal/remote"
	"github.com/jbweber/homelab/dao/internal/sqlstore"
	"github.com/joho/godotenv"
)

// Supported backends
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBolt     = "bolt"
	BackendRemote   = "remote"
)

// Config holds all configuration for the dao service
type Config struct {
	Backend     string
	DBPath      string
	PostgresDSN string
	RemoteURL   string
	Table       string
	Addr        string
	LogLevel    string
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Backend:  BackendSQLite,
		DBPath:   "~/dao/data/dao.db",
		Table:    "entities",
		Addr:     ":8080",
		LogLevel: "info",
	}
}

// Load returns the default configuration overridden by the DAO_* environment
// variables. The given env files are loaded first when they exist; with no
// files, .env is tried.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	c := NewConfig()
	c.applyEnv()
	return c, nil
}

func (c *Config) applyEnv() {
	for env, field := range map[string]*string{
		"DAO_BACKEND":      &c.Backend,
		"DAO_DB_PATH":      &c.DBPath,
		"DAO_POSTGRES_DSN": &c.PostgresDSN,
		"DAO_REMOTE_URL":   &c.RemoteURL,
		"DAO_TABLE":        &c.Table,
		"DAO_ADDR":         &c.Addr,
		"DAO_LOG_LEVEL":    &c.LogLevel,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*field = v
		}
	}
}

// Logger builds a text logger on stderr at the configured level
func (c *Config) Logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// OpenStore builds the store of the configured backend. The caller owns the
// store and must close it.
func OpenStore[T any](ctx context.Context, c *Config, logger *slog.Logger) (dao.Store[T], error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch c.Backend {
	case BackendMemory:
		return memory.New[T](), nil

	case BackendSQLite, BackendPostgres:
		db, err := c.InitializeDatabase(ctx)
		if err != nil {
			return nil, err
		}
		store, err := sqlstore.New[T](ctx, db, c.Table, sqlstore.WithLogger(logger), sqlstore.WithOwnedDB())
		if err != nil {
			if cerr := db.Close(); cerr != nil {
				logger.Warn("failed to close database", "error", cerr)
			}
			return nil, err
		}
		return store, nil

	case BackendBolt:
		path := c.expandPath(c.DBPath)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		return boltstore.Open[T](path, c.Table, boltstore.WithLogger(logger))

	case BackendRemote:
		if c.RemoteURL == "" {
			return nil, fmt.Errorf("remote backend requires a remote URL")
		}
		return remote.New[T](c.RemoteURL)

	default:
		return nil, fmt.Errorf("unknown backend %q", c.Backend)
	}
}

// expandPath expands ~ to home directory
func (c *Config) expandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Return original path if we can't get home dir
		return path
	}

	return filepath.Join(homeDir, path[2:])
}
