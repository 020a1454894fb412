package main

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/newsgoat/internal/dashboard"
	"github.com/IshaanNene/newsgoat/internal/nlp"
	"github.com/IshaanNene/newsgoat/internal/observability"
)

var (
	dataDir   string
	port      int
	noSummary bool
)

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sentiment dashboard",
		Long: `Serve the dashboard over the enriched CSV files in the data directory.
Each browser gets its own session holding the dataset it loaded. When
metrics are enabled the Prometheus endpoint is served alongside.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dataDir != "" {
				cfg.Dashboard.DataDir = dataDir
			}
			if port > 0 {
				cfg.Dashboard.Port = port
			}
			logger := setupLogger(cfg)

			metrics := observability.NewMetrics(logger)
			var summarizer nlp.Summarizer
			if !noSummary {
				summarizer = nlp.NewClient(cfg.NLP, logger, nlp.WithMetrics(metrics))
			}
			dash := dashboard.NewDashboard(cfg, summarizer, logger)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return dash.Start(ctx) })
			if cfg.Metrics.Enabled {
				srv := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path)
				g.Go(func() error {
					<-ctx.Done()
					return srv.Stop(context.Background())
				})
			}
			return g.Wait()
		},
	}
	cmd.Flags().StringVarP(&dataDir, "data", "d", "", "directory holding enriched CSV files")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "dashboard port (overrides config)")
	cmd.Flags().BoolVar(&noSummary, "no-summary", false, "disable the summary view")
	return cmd
}
