package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# address to bind
listen:
  host: "0.0.0.0"
  # 0 honors the PORT variable, falling back to 8000
  port: 0

static:
  # directory holding index.html and assets
  dir: "static"

secrets:
  # JSON file holding GOOGLE_API_KEY; the environment variable wins
  file: "secrets.json"

cache:
  # empty uses the per-user cache path (or NOTESAI_CACHE_DIR)
  dir: ""
  # on-disk result cache ceiling, in MB
  max_size: 512
  # entries older than this are pruned at startup, 0 disables pruning
  max_age_days: 30
  # zstd level, 0 disables compression
  compression: 3

llm:
  notes_model: "gemini-2.5-pro"
  quiz_model: "gemini-2.5-flash"
  requests_per_minute: 30

media:
  # media slice length in seconds (40 minutes)
  chunk_seconds: 2400
  ffmpeg: "ffmpeg"
  ffprobe: "ffprobe"
  ytdlp: "yt-dlp"

jobs:
  workers: 2
  queue_size: 64
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the notesai config file",
	Long:    paragraph(fmt.Sprintf("\n%s the notesai config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("notesai config\nnotesai config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("NotesAI", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
