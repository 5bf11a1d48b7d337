// Package main provides the entry point for the notesai server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MONKEYM4N9/notesai3.0/internal/cache"
	"github.com/MONKEYM4N9/notesai3.0/internal/config"
	"github.com/MONKEYM4N9/notesai3.0/internal/llm"
	"github.com/MONKEYM4N9/notesai3.0/internal/media"
	"github.com/MONKEYM4N9/notesai3.0/internal/notes"
	"github.com/MONKEYM4N9/notesai3.0/internal/queue"
	"github.com/MONKEYM4N9/notesai3.0/internal/secrets"
	"github.com/MONKEYM4N9/notesai3.0/internal/server"
	"github.com/MONKEYM4N9/notesai3.0/internal/youtube"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string

	rootCmd = &cobra.Command{
		Use:   "notesai",
		Short: "Turn lectures into study notes, quizzes and mind maps",
		Long: paragraph(
			fmt.Sprintf("\nRun the %s server: paste a lecture recording or a YouTube link, get structured study notes back.", keyword("notesai")),
		),
		SilenceErrors: false,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          serve,
	}
)

func serve(*cobra.Command, []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := cfg.EnsureCacheDir(); err != nil {
		return fmt.Errorf("unable to prepare cache directory: %w", err)
	}
	log.Info("Cache directory ready",
		"path", cfg.CacheDir,
		"max_size", humanize.IBytes(uint64(cfg.CacheCapacityBytes())), //nolint:gosec
	)

	keys := secrets.NewResolver(cfg.SecretsFile)
	if err := keys.Watch(); err != nil {
		log.Warn("Secrets file watching disabled", "err", err)
	}
	defer keys.Close() //nolint:errcheck

	store, err := cache.NewStore(filepath.Join(cfg.CacheDir, "results"), cfg.CacheCapacityBytes(), cfg.Compression)
	if err != nil {
		return fmt.Errorf("unable to open cache: %w", err)
	}
	defer store.Close() //nolint:errcheck

	if cfg.CacheMaxAgeDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -cfg.CacheMaxAgeDays)
		if removed := store.RemoveOlderThan(cutoff); removed > 0 {
			log.Info("Pruned stale cache entries", "removed", removed, "max_age_days", cfg.CacheMaxAgeDays)
		}
	}

	jobs := queue.New(cfg.Workers, cfg.QueueSize)
	defer jobs.Close() //nolint:errcheck

	client := llm.NewClient(llm.ClientConfig{
		Models:            llm.Models{Notes: cfg.NotesModel, Quiz: cfg.QuizModel},
		RequestsPerMinute: cfg.RequestsPerMinute,
	})

	tools := media.NewTools(media.ToolsConfig{
		FFmpeg:  cfg.FFmpeg,
		FFprobe: cfg.FFprobe,
	})
	if err := tools.Validate(); err != nil {
		log.Warn("Media tools unavailable, uploads and chunking disabled", "err", err)
	}

	downloader := youtube.NewDownloader(youtube.DownloaderConfig{
		Binary: cfg.YTDLP,
		OutDir: filepath.Join(cfg.CacheDir, "downloads"),
	})
	if err := downloader.Validate(); err != nil {
		log.Warn("yt-dlp unavailable, YouTube downloads disabled", "err", err)
	}

	pipeline := notes.NewPipeline(notes.PipelineConfig{
		LLM:          client,
		Tools:        tools,
		Transcripts:  youtube.NewTranscriptClient(youtube.TranscriptConfig{}),
		Downloader:   downloader,
		Store:        store,
		Jobs:         jobs,
		ChunkSeconds: cfg.ChunkSeconds,
		TempDir:      filepath.Join(cfg.CacheDir, "chunks"),
	})

	srv := server.New(server.Config{
		Host:      cfg.Host,
		Port:      cfg.Port,
		StaticDir: cfg.StaticDir,
		UploadDir: filepath.Join(cfg.CacheDir, "uploads"),
	}, pipeline, client, keys, jobs)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting server", "host", cfg.Host, "port", cfg.Port)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	log.Info("Server shut down cleanly")
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().String("host", "0.0.0.0", "address to bind")
	rootCmd.Flags().IntP("port", "p", 0, "port to listen on (0 honors the PORT variable, then 8000)")
	rootCmd.Flags().String("static", "static", "directory holding index.html and assets")
	rootCmd.Flags().String("secrets", "secrets.json", "secrets file holding the server API key")
	rootCmd.Flags().String("cache-dir", "", "cache directory (default per-user cache path)")
	rootCmd.Flags().IntP("workers", "w", 2, "media chunk workers")

	_ = viper.BindPFlag("listen.host", rootCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("listen.port", rootCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("static.dir", rootCmd.Flags().Lookup("static"))
	_ = viper.BindPFlag("secrets.file", rootCmd.Flags().Lookup("secrets"))
	_ = viper.BindPFlag("cache.dir", rootCmd.Flags().Lookup("cache-dir"))
	_ = viper.BindPFlag("jobs.workers", rootCmd.Flags().Lookup("workers"))

	config.SetDefaults()

	rootCmd.AddCommand(configCmd, previewCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "notesai")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "notesai")}, dirs...)
	}

	if c := os.Getenv("NOTESAI_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("notesai")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("notesai")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "notesai.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
