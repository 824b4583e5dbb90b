// Package config loads the DQM's AppConfig: whether migrations run
// automatically, and the list of configured databases with their
// engine, connection string, and per-database worker tuning. Load
// substitutes ${VAR} environment references before parsing; Watcher
// hot-reloads the file via fsnotify.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// AppConfig is the top-level DQM configuration (spec.md §6).
type AppConfig struct {
	AutoMigration bool             `yaml:"auto_migration"`
	Databases     []DatabaseConfig `yaml:"databases"`
}

// DatabaseConfig is one configured database (spec.md §6).
type DatabaseConfig struct {
	Name             string        `yaml:"name"`
	Engine           string        `yaml:"engine"`
	ConnectionString string        `yaml:"connection_string"`
	Workers          WorkersConfig `yaml:"workers"`
}

// WorkersConfig tunes a database's Lead/Worker queue topology.
type WorkersConfig struct {
	MaxChildQueues             int `yaml:"max_child_queues"`
	HeartbeatIntervalSeconds   int `yaml:"heartbeat_interval_seconds"`
	PreparedStatementCacheSize int `yaml:"prepared_statement_cache_size"`
}

// EffectiveHeartbeatInterval returns the configured heartbeat interval
// or a default of 30 seconds.
func (w WorkersConfig) EffectiveHeartbeatInterval() time.Duration {
	if w.HeartbeatIntervalSeconds > 0 {
		return time.Duration(w.HeartbeatIntervalSeconds) * time.Second
	}
	return 30 * time.Second
}

// EffectiveMaxChildQueues returns the configured child-queue ceiling or
// a conservative default.
func (w WorkersConfig) EffectiveMaxChildQueues() int {
	if w.MaxChildQueues > 0 {
		return w.MaxChildQueues
	}
	return 4
}

// EffectiveCacheSize returns the configured prepared-statement cache
// size or a default of 1000.
func (w WorkersConfig) EffectiveCacheSize() int {
	if w.PreparedStatementCacheSize > 0 {
		return w.PreparedStatementCacheSize
	}
	return 1000
}

var redactPattern = regexp.MustCompile(`(:)([^:@/]+)(@)`)

// Redacted returns a copy of d with any password embedded in
// connection_string masked, for safe logging.
func (d DatabaseConfig) Redacted() DatabaseConfig {
	c := d
	c.ConnectionString = redactPattern.ReplaceAllString(c.ConnectionString, "$1***REDACTED***$3")
	return c
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment
// variable values, leaving unresolved references untouched.
func substituteEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		if val, ok := os.LookupEnv(string(varName)); ok {
			return []byte(val)
		}
		return match
	})
}

// Load reads and parses a YAML AppConfig file with env var substitution.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data = substituteEnvVars(data)

	cfg := &AppConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func validate(cfg *AppConfig) error {
	seen := make(map[string]bool, len(cfg.Databases))
	for _, db := range cfg.Databases {
		if db.Name == "" {
			return fmt.Errorf("database entry missing name")
		}
		if seen[db.Name] {
			return fmt.Errorf("duplicate database name %q", db.Name)
		}
		seen[db.Name] = true

		switch db.Engine {
		case "postgresql", "mysql", "sqlite", "db2", "ai":
		default:
			return fmt.Errorf("database %q: unrecognized engine %q", db.Name, db.Engine)
		}
	}
	return nil
}

// Watcher watches a config file for changes and calls the callback with
// the reloaded AppConfig.
type Watcher struct {
	path     string
	callback func(*AppConfig)
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	stopCh   chan struct{}
}

// NewWatcher creates a new config file watcher.
func NewWatcher(path string, callback func(*AppConfig)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching config file: %w", err)
	}

	cw := &Watcher{
		path:     path,
		callback: callback,
		watcher:  w,
		stopCh:   make(chan struct{}),
	}

	go cw.run()
	return cw, nil
}

func (cw *Watcher) run() {
	var debounce *time.Timer
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, cw.reload)
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "err", err)
		case <-cw.stopCh:
			return
		}
	}
}

func (cw *Watcher) reload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cfg, err := Load(cw.path)
	if err != nil {
		slog.Warn("config hot-reload failed", "path", cw.path, "err", err)
		return
	}

	slog.Info("configuration reloaded", "path", cw.path)
	cw.callback(cfg)
}

// Stop stops the config watcher.
func (cw *Watcher) Stop() error {
	close(cw.stopCh)
	return cw.watcher.Close()
}
