package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/fetcher"
	"github.com/IshaanNene/newsgoat/internal/observability"
	"github.com/IshaanNene/newsgoat/internal/pipeline"
	"github.com/IshaanNene/newsgoat/internal/repl"
	"github.com/IshaanNene/newsgoat/internal/storage"
	"github.com/IshaanNene/newsgoat/internal/ui"
)

const robotsAgent = "newsgoat"

// scraper holds the collaborators shared by every run of one process.
type scraper struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	http    *fetcher.HTTPFetcher
	browser *fetcher.BrowserFetcher
	robots  *fetcher.RobotsChecker
	server  *observability.Server
}

func newScraper(cfg *config.Config, logger *slog.Logger) (*scraper, error) {
	identity := fetcher.NewRandomIdentity(cfg.Fetcher.UserAgents)

	httpFetcher, err := fetcher.NewHTTPFetcher(cfg, identity, logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	browserOpts := []fetcher.BrowserOption{fetcher.WithBrowserIdentity(identity)}
	if cfg.Proxy.Enabled && len(cfg.Proxy.URLs) > 0 {
		pm := fetcher.NewProxyManager(&cfg.Proxy, logger)
		logger.Debug("browser proxies loaded", "count", pm.Count(), "rotation", cfg.Proxy.Rotation)
		browserOpts = append(browserOpts, fetcher.WithBrowserProxy(pm))
	}

	s := &scraper{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(logger),
		http:    httpFetcher,
		browser: fetcher.NewBrowserFetcher(cfg, logger, browserOpts...),
	}
	if cfg.Fetcher.RespectRobots {
		s.robots = fetcher.NewRobotsChecker(httpFetcher, robotsAgent, logger)
	}
	if cfg.Metrics.Enabled {
		s.server = s.metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}
	return s, nil
}

// run scrapes one keyword on one site and returns where the rows went.
func (s *scraper) run(ctx context.Context, site config.SiteConfig, keyword string) (*pipeline.RunResult, string, error) {
	sink, err := storage.NewSink(ctx, s.cfg, site, s.logger)
	if err != nil {
		return nil, "", fmt.Errorf("create storage: %w", err)
	}
	defer sink.Close()

	opts := []pipeline.Option{pipeline.WithMetrics(s.metrics)}
	if s.robots != nil {
		opts = append(opts, pipeline.WithRobots(s.robots))
	}

	orch, err := pipeline.New(s.cfg, site, pipeline.Deps{
		HTTP:    s.http,
		Browser: s.browser,
		Sink:    sink,
	}, s.logger, opts...)
	if err != nil {
		return nil, "", err
	}

	res, err := orch.Run(ctx, keyword)
	return res, describeOutput(s.cfg, site), err
}

func (s *scraper) Close() {
	if err := s.server.Stop(context.Background()); err != nil {
		s.logger.Warn("metrics server shutdown", "error", err)
	}
	s.browser.Close()
	s.http.Close()
}

func describeOutput(cfg *config.Config, site config.SiteConfig) string {
	switch cfg.Storage.Type {
	case "postgres":
		return "postgres"
	case "mongodb":
		return fmt.Sprintf("mongodb %s.%s", cfg.Storage.Database, cfg.Storage.Collection)
	}
	out := cfg.OutputPath(site)
	if len(cfg.Storage.Mirrors) > 0 {
		out += " (+" + strings.Join(cfg.Storage.Mirrors, ", ") + ")"
	}
	return out
}

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [keyword]",
		Short: "Search a news site and save every matching article",
		Long: `Search the selected site for a keyword, expand the result list, then
fetch each article and append Keyword Searched, Title, Content and URL rows
to the output. When no keyword is given it is read from the terminal.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScrape,
	}
	cmd.Flags().StringVarP(&siteName, "site", "s", "aljazeera", "site profile to search")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default <site>_articles.<type>)")
	cmd.Flags().StringVarP(&outputType, "format", "f", "", "storage type: csv, jsonl, sqlite, postgres, mongodb")
	return cmd
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	site, err := cfg.Site(siteName)
	if err != nil {
		return err
	}

	var keyword string
	if len(args) == 1 {
		keyword = strings.TrimSpace(args[0])
	} else {
		if !repl.IsInteractive(os.Stdin) {
			return errors.New("keyword argument required when stdin is not a terminal")
		}
		if keyword, err = repl.PromptKeyword(os.Stdin, os.Stdout); err != nil {
			return err
		}
	}
	if keyword == "" {
		return repl.ErrNoKeyword
	}

	s, err := newScraper(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	res, output, err := s.run(cmd.Context(), site, keyword)
	if err != nil {
		return err
	}
	if res.NoArticles() {
		fmt.Println(ui.NoArticles(site.Name, keyword))
		return nil
	}
	fmt.Println(ui.Completed(res, output))
	return nil
}

// shellCmd creates the "shell" subcommand.
func shellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell that scrapes one keyword per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)
			if _, err := cfg.Site(siteName); err != nil {
				return err
			}

			s, err := newScraper(cfg, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			return repl.New(cfg, siteName, s.run, os.Stdin, os.Stdout, logger).Start(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&siteName, "site", "s", "aljazeera", "initial site profile")
	cmd.Flags().StringVarP(&outputType, "format", "f", "", "storage type: csv, jsonl, sqlite, postgres, mongodb")
	return cmd
}
