package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/pipeline"
)

var (
	schedule string
	timezone string
)

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ logger *slog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}

type runFunc func(ctx context.Context, site config.SiteConfig, keyword string) (*pipeline.RunResult, string, error)

// newWatcher schedules one job per schedule tick that scrapes every keyword in
// turn. A tick that fires while the previous one is still running is skipped.
func newWatcher(ctx context.Context, expr string, loc *time.Location, site config.SiteConfig, keywords []string, run runFunc, logger *slog.Logger) (*cron.Cron, error) {
	cl := cronLogger{logger: logger.With("component", "watch")}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	_, err := c.AddFunc(expr, func() {
		for _, kw := range keywords {
			if ctx.Err() != nil {
				return
			}
			res, output, err := run(ctx, site, kw)
			if err != nil {
				cl.logger.Error("scheduled scrape failed", "site", site.Name, "keyword", kw, "error", err)
				continue
			}
			cl.logger.Info("scheduled scrape finished",
				"site", site.Name,
				"keyword", kw,
				"run_id", res.RunID,
				"saved", res.Saved,
				"output", output,
			)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("add cron: %w", err)
	}
	return c, nil
}

// watchCmd creates the "watch" subcommand.
func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch keyword...",
		Short: "Scrape keywords on a cron schedule",
		Long: `Run a scrape for every keyword each time the cron schedule fires,
appending to the same output. Runs never overlap: a tick that arrives while
the previous one is still scraping is skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			site, err := cfg.Site(siteName)
			if err != nil {
				return err
			}
			loc, err := time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("load timezone: %w", err)
			}

			keywords := make([]string, 0, len(args))
			for _, a := range args {
				if kw := strings.TrimSpace(a); kw != "" {
					keywords = append(keywords, kw)
				}
			}

			s, err := newScraper(cfg, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			c, err := newWatcher(ctx, schedule, loc, site, keywords, s.run, logger)
			if err != nil {
				return err
			}

			logger.Info("watching", "site", site.Name, "keywords", keywords, "schedule", schedule)
			c.Start()
			<-ctx.Done()
			logger.Info("stopping scheduler, waiting for the current run")
			<-c.Stop().Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "@every 6h", "cron schedule (standard 5-field spec or @every)")
	cmd.Flags().StringVar(&timezone, "timezone", "Local", "timezone for the schedule")
	cmd.Flags().StringVarP(&siteName, "site", "s", "aljazeera", "site profile to search")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default <site>_articles.<type>)")
	cmd.Flags().StringVarP(&outputType, "format", "f", "", "storage type: csv, jsonl, sqlite, postgres, mongodb")
	return cmd
}
