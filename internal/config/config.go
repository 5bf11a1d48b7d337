// Package config loads and validates the server configuration from
// flags, the config file, and the process environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	homedir "github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

// DefaultPort is used when neither flag, config file, nor the PORT
// variable selects one.
const DefaultPort = 8000

// Env captures the raw process environment the deployment contract
// defines: a port override and a cache-home directory.
type Env struct {
	Port     int    `env:"PORT"`
	CacheDir string `env:"NOTESAI_CACHE_DIR"`
}

// ParseEnv reads the deployment environment variables.
func ParseEnv() (Env, error) {
	return env.ParseAs[Env]()
}

// Config is the resolved server configuration.
type Config struct {
	Host string
	Port int

	StaticDir   string
	SecretsFile string

	CacheDir        string
	CacheMaxSizeMB  int
	CacheMaxAgeDays int
	Compression     int

	NotesModel        string
	QuizModel         string
	RequestsPerMinute int

	ChunkSeconds float64
	FFmpeg       string
	FFprobe      string
	YTDLP        string

	Workers   int
	QueueSize int
}

// SetDefaults registers viper defaults for every config key.
func SetDefaults() {
	viper.SetDefault("listen.host", "0.0.0.0")
	viper.SetDefault("listen.port", 0)
	viper.SetDefault("static.dir", "static")
	viper.SetDefault("secrets.file", "secrets.json")
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("cache.max_size", 512)
	viper.SetDefault("cache.max_age_days", 30)
	viper.SetDefault("cache.compression", 3)
	viper.SetDefault("llm.notes_model", "gemini-2.5-pro")
	viper.SetDefault("llm.quiz_model", "gemini-2.5-flash")
	viper.SetDefault("llm.requests_per_minute", 30)
	viper.SetDefault("media.chunk_seconds", 2400)
	viper.SetDefault("media.ffmpeg", "ffmpeg")
	viper.SetDefault("media.ffprobe", "ffprobe")
	viper.SetDefault("media.ytdlp", "yt-dlp")
	viper.SetDefault("jobs.workers", 2)
	viper.SetDefault("jobs.queue_size", 64)
}

// Load resolves the configuration from viper and the process
// environment. Port resolution order: flag/config file → PORT variable →
// DefaultPort.
func Load() (Config, error) {
	procEnv, err := ParseEnv()
	if err != nil {
		return Config{}, fmt.Errorf("error parsing environment: %w", err)
	}

	cfg := Config{
		Host:              viper.GetString("listen.host"),
		Port:              ResolvePort(viper.GetInt("listen.port"), procEnv),
		StaticDir:         ExpandPath(viper.GetString("static.dir")),
		SecretsFile:       ExpandPath(viper.GetString("secrets.file")),
		CacheDir:          viper.GetString("cache.dir"),
		CacheMaxSizeMB:    viper.GetInt("cache.max_size"),
		CacheMaxAgeDays:   viper.GetInt("cache.max_age_days"),
		Compression:       viper.GetInt("cache.compression"),
		NotesModel:        viper.GetString("llm.notes_model"),
		QuizModel:         viper.GetString("llm.quiz_model"),
		RequestsPerMinute: viper.GetInt("llm.requests_per_minute"),
		ChunkSeconds:      viper.GetFloat64("media.chunk_seconds"),
		FFmpeg:            viper.GetString("media.ffmpeg"),
		FFprobe:           viper.GetString("media.ffprobe"),
		YTDLP:             viper.GetString("media.ytdlp"),
		Workers:           viper.GetInt("jobs.workers"),
		QueueSize:         viper.GetInt("jobs.queue_size"),
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = procEnv.CacheDir
	}
	if cfg.CacheDir == "" {
		dir, err := DefaultCacheDir()
		if err != nil {
			return Config{}, err
		}
		cfg.CacheDir = dir
	}
	cfg.CacheDir = ExpandPath(cfg.CacheDir)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ResolvePort picks the listen port: an explicit flag or config value
// wins, then the PORT variable, then the default.
func ResolvePort(configured int, procEnv Env) int {
	if configured > 0 {
		return configured
	}
	if procEnv.Port > 0 {
		return procEnv.Port
	}
	return DefaultPort
}

// Validate checks configuration values.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.CacheMaxSizeMB < 1 || c.CacheMaxSizeMB > 100000 {
		return fmt.Errorf("cache max_size must be between 1 and 100000 MB, got %d", c.CacheMaxSizeMB)
	}
	if c.CacheMaxAgeDays < 0 {
		return fmt.Errorf("cache max_age_days cannot be negative, got %d", c.CacheMaxAgeDays)
	}
	if c.Compression < 0 || c.Compression > 22 {
		return fmt.Errorf("cache compression must be between 0 and 22, got %d", c.Compression)
	}
	if c.ChunkSeconds < 60 {
		return fmt.Errorf("media chunk_seconds must be at least 60, got %.0f", c.ChunkSeconds)
	}
	if c.NotesModel == "" || c.QuizModel == "" {
		return fmt.Errorf("llm models cannot be empty")
	}
	if c.RequestsPerMinute < 1 {
		return fmt.Errorf("llm requests_per_minute must be positive, got %d", c.RequestsPerMinute)
	}
	if c.Workers < 1 {
		return fmt.Errorf("jobs workers must be positive, got %d", c.Workers)
	}
	return nil
}

// EnsureCacheDir creates the cache directory, verifies it is writable,
// and publishes its location through the cache-home variable so child
// processes resolve the same path.
func (c Config) EnsureCacheDir() error {
	if err := os.MkdirAll(c.CacheDir, 0o755); err != nil {
		return fmt.Errorf("unable to create cache directory %s: %w", c.CacheDir, err)
	}

	probe := filepath.Join(c.CacheDir, ".write-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("cache directory %s is not writable: %w", c.CacheDir, err)
	}
	os.Remove(probe)

	if err := os.Setenv("NOTESAI_CACHE_DIR", c.CacheDir); err != nil {
		return fmt.Errorf("unable to set cache-home variable: %w", err)
	}

	return nil
}

// CacheCapacityBytes returns the cache capacity in bytes.
func (c Config) CacheCapacityBytes() int64 {
	return int64(c.CacheMaxSizeMB) * 1024 * 1024
}

// DefaultCacheDir returns the per-user cache directory for the service.
func DefaultCacheDir() (string, error) {
	scope := gap.NewScope(gap.User, "notesai")
	dir, err := scope.CacheDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve cache directory: %w", err)
	}
	return dir, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}
