// Package secrets resolves the server's Google API key from the
// environment, a .env file, or secrets.json, and hot-reloads the file on
// change.
package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
)

// envKey is the environment variable carrying the server key.
const envKey = "GOOGLE_API_KEY"

// ErrNoAPIKey is returned when neither the server nor the request
// supplies a key.
var ErrNoAPIKey = errors.New("no API key found. Please enter one in the sidebar or configure secrets")

// Resolver holds the server-side API key and resolves per-request
// overrides against it.
type Resolver struct {
	mu        sync.RWMutex
	serverKey string

	secretsFile string
	watcher     *fsnotify.Watcher
}

// secretsFileDoc mirrors the secrets.json layout.
type secretsFileDoc struct {
	GoogleAPIKey string `json:"GOOGLE_API_KEY"`
}

// NewResolver loads the server key. Order: process environment, .env
// file (if present), then the secrets file. A missing key is not an
// error at startup; requests without a key fail individually.
func NewResolver(secretsFile string) *Resolver {
	// Best effort: a .env next to the binary fills the process env.
	_ = godotenv.Load()

	r := &Resolver{secretsFile: secretsFile}
	r.reload()
	return r
}

// reload re-resolves the server key from env and the secrets file.
func (r *Resolver) reload() {
	key := os.Getenv(envKey)

	if key == "" && r.secretsFile != "" {
		fileKey, err := readSecretsFile(r.secretsFile)
		switch {
		case err == nil && fileKey != "":
			key = fileKey
			log.Info("loaded API key from secrets file", "path", r.secretsFile)
		case err != nil && !os.IsNotExist(err):
			log.Warn("could not load secrets file", "path", r.secretsFile, "err", err)
		}
	}

	r.mu.Lock()
	r.serverKey = key
	r.mu.Unlock()
}

func readSecretsFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	var doc secretsFileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("unable to parse secrets file: %w", err)
	}

	return strings.TrimSpace(doc.GoogleAPIKey), nil
}

// Watch re-reads the secrets file whenever it changes, so keys can be
// rotated without a restart. Returns an error when the watcher cannot be
// created; a missing directory is not fatal.
func (r *Resolver) Watch() error {
	if r.secretsFile == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create secrets watcher: %w", err)
	}

	// Watch the directory: editors replace files instead of writing in
	// place, which would drop a file-level watch.
	dir := filepath.Dir(r.secretsFile)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("unable to watch %s: %w", dir, err)
	}

	r.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(r.secretsFile) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					log.Debug("secrets file changed, reloading", "path", r.secretsFile)
					r.reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("secrets watcher error", "err", err)
			}
		}
	}()

	return nil
}

// Close stops the watcher.
func (r *Resolver) Close() error {
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}

// HasServerKey reports whether a server-side key is configured.
func (r *Resolver) HasServerKey() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.serverKey != ""
}

// Resolve returns the key to use for a request: the caller's key when
// supplied, otherwise the server key. ErrNoAPIKey when neither exists.
func (r *Resolver) Resolve(userKey string) (string, error) {
	if k := strings.TrimSpace(userKey); k != "" {
		return k, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.serverKey == "" {
		return "", ErrNoAPIKey
	}
	return r.serverKey, nil
}
