package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Prefs backends.
const (
	PrefsSQLite = "sqlite"
	PrefsRedis  = "redis"
)

// Config holds application configuration.
type Config struct {
	// DedupCapacity is the number of recently seen keys kept in memory.
	DedupCapacity int `json:"dedup_capacity"`

	// ThrottleIntervalMS is the minimum gap between two traversals.
	// Events arriving sooner are dropped, not queued.
	ThrottleIntervalMS int `json:"throttle_interval_ms"`

	// PollIntervalMS is how often the display feed re-reads recent captures.
	PollIntervalMS int `json:"poll_interval_ms"`

	// RecentLimit is the default number of items returned by recent reads.
	RecentLimit int `json:"recent_limit"`

	// AsyncInserts moves store writes off the event path onto a writer goroutine.
	// The dedup check always stays synchronous.
	AsyncInserts bool `json:"async_inserts,omitempty"`

	// InsertQueueSize bounds the async writer queue. Items beyond it are dropped.
	InsertQueueSize int `json:"insert_queue_size"`

	// AllowedPaths is an allowlist of directories for export files.
	// Paths outside <base>/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for export.
	// When true, any directory is allowed (but symlink and extension checks still apply).
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// PrefsBackend selects where the enabled flag and counters live: "sqlite" or "redis".
	PrefsBackend string `json:"prefs_backend"`

	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty"`
	RedisPrefix   string `json:"redis_prefix"`

	// NatsURL enables the NATS snapshot source when non-empty.
	NatsURL     string `json:"nats_url,omitempty"`
	NatsSubject string `json:"nats_subject"`

	WebBind string `json:"web_bind"`
	WebPort int    `json:"web_port"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DedupCapacity:      200,
		ThrottleIntervalMS: 500,
		PollIntervalMS:     5000,
		RecentLimit:        20,
		InsertQueueSize:    256,
		PrefsBackend:       PrefsSQLite,
		RedisPrefix:        "glean:",
		NatsSubject:        "glean.snapshots",
		WebBind:            "127.0.0.1",
		WebPort:            8377,
	}
}

// ThrottleInterval returns ThrottleIntervalMS as a duration.
func (c *Config) ThrottleInterval() time.Duration {
	return time.Duration(c.ThrottleIntervalMS) * time.Millisecond
}

// PollInterval returns PollIntervalMS as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Validate rejects values that cannot be defaulted away.
func (c *Config) Validate() error {
	if c.DedupCapacity < 0 {
		return fmt.Errorf("dedup_capacity must be non-negative, got %d", c.DedupCapacity)
	}
	if c.ThrottleIntervalMS < 0 {
		return fmt.Errorf("throttle_interval_ms must be non-negative, got %d", c.ThrottleIntervalMS)
	}
	switch c.PrefsBackend {
	case PrefsSQLite:
	case PrefsRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("prefs_backend %q requires redis_addr", c.PrefsBackend)
		}
	default:
		return fmt.Errorf("unknown prefs_backend %q (want sqlite or redis)", c.PrefsBackend)
	}
	return nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.glean.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	merged := Merge(DefaultConfig(), cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		DedupCapacity:      pickInt(overlay.DedupCapacity, base.DedupCapacity),
		ThrottleIntervalMS: pickInt(overlay.ThrottleIntervalMS, base.ThrottleIntervalMS),
		PollIntervalMS:     pickInt(overlay.PollIntervalMS, base.PollIntervalMS),
		RecentLimit:        pickInt(overlay.RecentLimit, base.RecentLimit),
		InsertQueueSize:    pickInt(overlay.InsertQueueSize, base.InsertQueueSize),
		DBMaxOpenConns:     pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:     pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		RedisDB:            pickInt(overlay.RedisDB, base.RedisDB),
		WebPort:            pickInt(overlay.WebPort, base.WebPort),

		PrefsBackend:  pickString(overlay.PrefsBackend, base.PrefsBackend),
		RedisAddr:     pickString(overlay.RedisAddr, base.RedisAddr),
		RedisPassword: pickString(overlay.RedisPassword, base.RedisPassword),
		RedisPrefix:   pickString(overlay.RedisPrefix, base.RedisPrefix),
		NatsURL:       pickString(overlay.NatsURL, base.NatsURL),
		NatsSubject:   pickString(overlay.NatsSubject, base.NatsSubject),
		WebBind:       pickString(overlay.WebBind, base.WebBind),
	}

	// Booleans: overlay wins if true, else base
	result.AsyncInserts = base.AsyncInserts || overlay.AsyncInserts
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
