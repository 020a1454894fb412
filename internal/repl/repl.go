// Package repl provides the keyword prompt and the interactive newsgoat shell.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/pipeline"
	"github.com/IshaanNene/newsgoat/internal/ui"
)

// ErrNoKeyword is returned when the user enters an empty keyword.
var ErrNoKeyword = errors.New("no keyword entered")

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// PromptKeyword asks for a search keyword on out and reads one line from in.
func PromptKeyword(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter the keyword to search: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read keyword: %w", err)
	}
	keyword := strings.TrimSpace(line)
	if keyword == "" {
		return "", ErrNoKeyword
	}
	return keyword, nil
}

// Runner performs one scrape run for a site and keyword.
type Runner func(ctx context.Context, site config.SiteConfig, keyword string) (*pipeline.RunResult, string, error)

// REPL is an interactive shell that runs scrapes one keyword at a time.
type REPL struct {
	cfg    *config.Config
	site   string
	run    Runner
	reader *bufio.Reader
	out    io.Writer
	logger *slog.Logger
}

// New creates a shell starting on the given site.
func New(cfg *config.Config, site string, run Runner, in io.Reader, out io.Writer, logger *slog.Logger) *REPL {
	return &REPL{
		cfg:    cfg,
		site:   site,
		run:    run,
		reader: bufio.NewReader(in),
		out:    out,
		logger: logger.With("component", "repl"),
	}
}

// Start runs the read loop until exit, EOF or ctx cancellation.
func (r *REPL) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, ui.HeaderStyle.Render("NewsGoat interactive shell"))
	fmt.Fprintln(r.out, "   Type 'help' for available commands, 'exit' to quit.")
	fmt.Fprintln(r.out)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "newsgoat[%s]> ", r.site)
		line, err := r.reader.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch cmd {
		case "help", "?":
			r.printHelp()
		case "exit", "quit", "q":
			fmt.Fprintln(r.out, "Goodbye!")
			return nil
		case "scrape", "s":
			r.cmdScrape(ctx, rest)
		case "site":
			r.cmdSite(rest)
		case "sites":
			r.cmdSites()
		default:
			// A bare line is treated as a keyword.
			r.cmdScrape(ctx, line)
		}
	}
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.out, `
Available Commands:
  scrape <keyword>      Search the current site and save matching articles
  <keyword>             Same as scrape
  site <name>           Switch the site profile
  sites                 List site profiles

  help                  Show this help
  exit                  Exit the shell`)
}

func (r *REPL) cmdScrape(ctx context.Context, keyword string) {
	if keyword == "" {
		fmt.Fprintln(r.out, "Usage: scrape <keyword>")
		return
	}
	site, err := r.cfg.Site(r.site)
	if err != nil {
		fmt.Fprintln(r.out, ui.Error(err))
		return
	}

	res, output, err := r.run(ctx, site, keyword)
	if err != nil {
		r.logger.Error("scrape failed", "site", r.site, "keyword", keyword, "error", err)
		fmt.Fprintln(r.out, ui.Error(err))
		return
	}
	if res.NoArticles() {
		fmt.Fprintln(r.out, ui.NoArticles(site.Name, keyword))
		return
	}
	fmt.Fprintln(r.out, ui.Completed(res, output))
}

func (r *REPL) cmdSite(name string) {
	if name == "" {
		fmt.Fprintf(r.out, "Current site: %s\n", r.site)
		return
	}
	if _, err := r.cfg.Site(name); err != nil {
		fmt.Fprintln(r.out, ui.Error(err))
		return
	}
	r.site = name
	fmt.Fprintf(r.out, "Site set to %s\n", name)
}

func (r *REPL) cmdSites() {
	for _, name := range r.cfg.SiteNames() {
		marker := " "
		if name == r.site {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %-12s %s\n", marker, name, r.cfg.Sites[name].SearchURL)
	}
}
