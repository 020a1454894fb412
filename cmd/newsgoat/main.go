package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/ui"
)

var (
	cfgFile    string
	verbose    bool
	siteName   string
	outputPath string
	outputType string
	logFormat  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "newsgoat",
		Short: "NewsGoat: news article scraper with sentiment analysis",
		Long: `NewsGoat searches news sites for a keyword, scrapes every matching
article and appends the rows to CSV (or another configured store).

The analysis commands enrich a scraped CSV with sentiment labels, summarize
single articles and serve a dashboard over the enriched datasets.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (overrides config)")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(shellCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(summarizeCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sitesCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ui.Error(err))
		stop()
		os.Exit(1)
	}
}

// loadConfig reads .env, the config file and the environment, applies
// CLI overrides and validates the result.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if outputType != "" {
		cfg.Storage.Type = strings.ToLower(outputType)
	}
	if outputPath != "" {
		cfg.Storage.Path = outputPath
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
}

// setupLogger creates a structured logger from the logging section.
func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
