package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/newsgoat/internal/analysis"
	"github.com/IshaanNene/newsgoat/internal/nlp"
	"github.com/IshaanNene/newsgoat/internal/observability"
	"github.com/IshaanNene/newsgoat/internal/ui"
)

var (
	inPath       string
	outPath      string
	label        string
	articleIndex int
	articleTitle string
)

// analyzeCmd creates the "analyze" subcommand.
func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Add Sentiment and Confidence columns to a scraped CSV",
		Long: `Classify the Content of every row with the configured NLP provider and
write a copy of the CSV with Sentiment and Confidence columns. Empty content
is labelled EMPTY and failed requests ERROR.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			if inPath == "" {
				return errors.New("--in is required")
			}
			out := outPath
			if out == "" {
				out = nlp.EnrichedName(inPath, label)
			}

			metrics := observability.NewMetrics(logger)
			client := nlp.NewClient(cfg.NLP, logger, nlp.WithMetrics(metrics))
			stats, err := nlp.EnrichCSV(cmd.Context(), client, inPath, out, cfg.NLP.SentimentMaxChars, logger)
			if err != nil {
				return err
			}
			logger.Debug("nlp requests", "counters", metrics.Snapshot())

			fmt.Println(ui.SuccessStyle.Render("Sentiment analysis complete"))
			fmt.Printf("  Rows:    %d\n", stats.Rows)
			for _, l := range []string{nlp.LabelPositive, nlp.LabelNegative, nlp.LabelEmpty, nlp.LabelError} {
				if n := stats.Labels[l]; n > 0 {
					fmt.Printf("  %-8s %d\n", l+":", n)
				}
			}
			fmt.Printf("  Output:  %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&inPath, "in", "i", "", "scraped CSV to analyze")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output CSV (default <in>_with_sentiment[_<label>].csv)")
	cmd.Flags().StringVarP(&label, "label", "l", "", "dataset label used in the default output name")
	return cmd
}

// summarizeCmd creates the "summarize" subcommand.
func summarizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize one article of a scraped or enriched CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			if inPath == "" {
				return errors.New("--in is required")
			}
			ds, err := analysis.LoadDataset(inPath, cfg.Dashboard.DatasetPrefix)
			if err != nil {
				return err
			}

			var article analysis.Article
			if articleTitle != "" {
				article, err = ds.ArticleByTitle(articleTitle)
			} else {
				article, err = ds.Article(articleIndex)
			}
			if err != nil {
				return err
			}

			client := nlp.NewClient(cfg.NLP, logger)
			text := nlp.Truncate(article.Content, cfg.NLP.SummaryMaxChars)
			summary, err := client.Summarize(cmd.Context(), text, cfg.NLP.SummaryMaxLength, cfg.NLP.SummaryMinLength)
			if err != nil {
				return fmt.Errorf("summarize %q: %w", article.Title, err)
			}

			fmt.Println(ui.HeaderStyle.Render(ui.Title(article.Title, ui.TitleWidth)))
			fmt.Println(summary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&inPath, "in", "i", "", "CSV containing the article")
	cmd.Flags().IntVarP(&articleIndex, "article", "a", 0, "article index")
	cmd.Flags().StringVarP(&articleTitle, "title", "t", "", "article title (overrides --article)")
	return cmd
}
