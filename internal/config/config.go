// Package config persists the sync settings in a YAML file.
//
// MODPACK_* environment variables override the file; built-in defaults
// fill whatever neither sets.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config keys.
const (
	KeyEnabled      = "enabled"
	KeyAPIURL       = "api_url"
	KeyUsername     = "username"
	KeyPassword     = "password"
	KeySyncInterval = "sync_interval"
)

// Keys lists every settable key.
var Keys = []string{KeyEnabled, KeyAPIURL, KeyUsername, KeyPassword, KeySyncInterval}

// DefaultSyncInterval is the stored default for sync_interval, in seconds.
const DefaultSyncInterval = 30

// ErrUnknownKey is returned by Set for a key not in Keys.
var ErrUnknownKey = errors.New("unknown config key")

// Sync holds the live-sync connection settings.
type Sync struct {
	Enabled  bool   `mapstructure:"enabled"`
	APIURL   string `mapstructure:"api_url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// SyncInterval is stored and reported but nothing schedules on it.
	SyncInterval int `mapstructure:"sync_interval"`
}

// Redacted returns a copy safe to print.
func (s Sync) Redacted() Sync {
	if s.Password != "" {
		s.Password = "****"
	}
	return s
}

// Store reads and writes one config file through a private viper instance.
type Store struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// DefaultPath returns $HOME/.modpack/sync.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".modpack", "sync.yaml"), nil
}

// Open prepares a Store for path. A missing file is not an error; the
// defaults apply until Save writes one.
func Open(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MODPACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyEnabled, false)
	v.SetDefault(KeyAPIURL, "")
	v.SetDefault(KeyUsername, "")
	v.SetDefault(KeyPassword, "")
	v.SetDefault(KeySyncInterval, DefaultSyncInterval)

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	return &Store{v: v, path: path}, nil
}

// Path returns the config file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the current settings.
func (s *Store) Load() (Sync, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (Sync, error) {
	var cfg Sync
	if err := s.v.Unmarshal(&cfg); err != nil {
		return Sync{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Save replaces every setting and writes the file.
func (s *Store) Save(cfg Sync) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(cfg)
}

// Set parses value for key and writes the file.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.load()
	if err != nil {
		return err
	}

	switch key {
	case KeyEnabled:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		cfg.Enabled = b
	case KeySyncInterval:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		if n < 0 {
			return fmt.Errorf("set %s: must not be negative", key)
		}
		cfg.SyncInterval = n
	case KeyAPIURL:
		cfg.APIURL = value
	case KeyUsername:
		cfg.Username = value
	case KeyPassword:
		cfg.Password = value
	default:
		return fmt.Errorf("set %q: %w", key, ErrUnknownKey)
	}

	return s.write(cfg)
}

// write encodes cfg through a scratch viper instance, so the reading
// instance never holds overrides that would mask later file edits, then
// re-reads the file.
func (s *Store) write(cfg Sync) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	w := viper.New()
	w.SetConfigType("yaml")
	w.Set(KeyEnabled, cfg.Enabled)
	w.Set(KeyAPIURL, cfg.APIURL)
	w.Set(KeyUsername, cfg.Username)
	w.Set(KeyPassword, cfg.Password)
	w.Set(KeySyncInterval, cfg.SyncInterval)
	if err := w.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write config %s: %w", s.path, err)
	}

	if err := s.v.ReadInConfig(); err != nil {
		return fmt.Errorf("reread config %s: %w", s.path, err)
	}
	return nil
}

// Watch calls onChange with the new settings whenever the file changes
// on disk. Settings that fail to decode are logged and skipped.
func (s *Store) Watch(onChange func(Sync)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("config changed", "file", e.Name, "op", e.Op.String())

		cfg, err := s.Load()
		if err != nil {
			slog.Warn("config reload failed", "error", err)
			return
		}
		onChange(cfg)
	})
	s.v.WatchConfig()
}
