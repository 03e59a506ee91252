package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hpungsan/glean/internal/config"
	"github.com/hpungsan/glean/internal/db"
	"github.com/hpungsan/glean/internal/mcp"
	"github.com/hpungsan/glean/internal/prefs"
)

// appState holds what commands share: the base directory, config, database
// and flag store. It is filled lazily so --help needs none of it.
type appState struct {
	baseDir string
	cfg     *config.Config
	db      *sql.DB
	prefs   prefs.Store
	logger  *slog.Logger

	closers []func()
}

// open resolves the base directory, loads config and opens the stores.
// Fields already set (as in tests) are kept.
func (s *appState) open(dir string) error {
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.baseDir == "" {
		if dir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("could not determine home directory: %w", err)
			}
			dir = filepath.Join(homeDir, ".glean")
		}
		s.baseDir = dir
	}

	if s.cfg == nil {
		cfg, err := config.Load(s.baseDir)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		s.cfg = cfg
	}

	if s.db == nil {
		database, err := db.Init(s.baseDir)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		db.ConfigurePool(database, s.cfg)
		s.db = database
		s.closers = append(s.closers, func() { database.Close() })
	}

	if s.prefs == nil {
		store, closeFn, err := openPrefs(s.cfg, s.db)
		if err != nil {
			return err
		}
		s.prefs = store
		if closeFn != nil {
			s.closers = append(s.closers, closeFn)
		}
	}
	return nil
}

// Close releases everything open opened, newest first.
func (s *appState) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// openPrefs builds the configured flag store. The Redis backend is pinged
// up front so a bad address fails at startup rather than on the first event.
func openPrefs(cfg *config.Config, database *sql.DB) (prefs.Store, func(), error) {
	switch cfg.PrefsBackend {
	case config.PrefsRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("redis not responding at %s: %w", cfg.RedisAddr, err)
		}
		return prefs.NewRedis(rdb, cfg.RedisPrefix), func() { rdb.Close() }, nil
	default:
		return prefs.NewSQLite(database), nil, nil
	}
}

// newLogger builds the process logger. Logs always go to stderr so stdout
// stays clean for JSON output and the MCP stdio transport.
func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

// runMCP serves the capture tools over stdio.
func runMCP(st *appState) error {
	if err := st.open(os.Getenv("GLEAN_DIR")); err != nil {
		return err
	}
	if unknown := mcp.ValidateDisabledTools(st.cfg.DisabledTools); len(unknown) > 0 {
		st.logger.Warn("unknown tools in disabled_tools", "tools", unknown)
	}
	h := mcp.NewHandlers(st.db, st.cfg, st.prefs, nil, st.baseDir)
	return mcp.Run(h, Version, st.cfg.DisabledTools)
}
