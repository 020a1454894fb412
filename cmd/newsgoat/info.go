package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/ui"
)

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("NewsGoat %s\n", config.Version)
		},
	}
}

// sitesCmd creates the "sites" subcommand.
func sitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List the configured site profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			for _, name := range cfg.SiteNames() {
				site, err := cfg.Site(name)
				if err != nil {
					return err
				}
				fmt.Println(ui.HeaderStyle.Render(name))
				fmt.Printf("  Search URL:  %s\n", site.SearchURL)
				fmt.Printf("  Discovery:   %s\n", site.Discovery)
				if site.ShowMoreSelector != "" {
					fmt.Printf("  Show more:   %s\n", site.ShowMoreSelector)
				}
				fmt.Printf("  Articles:    %s fetch, %s extractor\n", site.ArticleFetch, site.Extractor)
				fmt.Printf("  Output:      %s\n", cfg.OutputPath(site))
			}
			return nil
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.NLP.APIKey != "" {
				cfg.NLP.APIKey = "********"
			}
			if cfg.Storage.DSN != "" {
				cfg.Storage.DSN = "********"
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
}
