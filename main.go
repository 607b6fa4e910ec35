package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hughisie/agent0-article-pipeline/internal/checksource"
	"github.com/hughisie/agent0-article-pipeline/internal/common"
	"github.com/hughisie/agent0-article-pipeline/internal/db"
	"github.com/hughisie/agent0-article-pipeline/internal/links"
	"github.com/hughisie/agent0-article-pipeline/internal/registry"
	"github.com/hughisie/agent0-article-pipeline/internal/resolve"
	"github.com/hughisie/agent0-article-pipeline/internal/run"
	"github.com/hughisie/agent0-article-pipeline/internal/validate"
	"github.com/hughisie/agent0-article-pipeline/internal/weave"
	"github.com/hughisie/agent0-article-pipeline/pkg/help"
	"github.com/hughisie/agent0-article-pipeline/pkg/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	fileFlag := &cli.StringFlag{Name: "file", Aliases: []string{"f"}, Value: "-", Usage: "article HTML file, - for stdin"}
	outFlag := &cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write the article here instead of stdout"}

	return &cli.App{
		Name:                 "a0",
		Usage:                "validate, repair and weave the links of news articles before publishing",
		EnableBashCompletion: true,
		Flags:                append(common.GlobalFlags, common.HistoryFlag),
		Commands: []*cli.Command{
			{
				Name:  "quickstart",
				Usage: "Print a YAML cheat sheet of commands and conventions",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprint(c.App.Writer, help.ColdstartYAML)
					return err
				},
			},
			{
				Name:      "validate",
				Usage:     "Validate URLs: status, content type, soft 404s and homepages",
				ArgsUsage: "<url> [url...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "read URLs from a file, one per line"},
					&cli.BoolFlag{Name: "expect-pdf", Usage: "reject anything that is not a PDF"},
					&cli.BoolFlag{Name: "original-source", Usage: "treat URLs as original news sources, trying X/Twitter forms"},
					&cli.IntFlag{Name: "workers", Value: 4, Usage: "concurrent validations"},
				},
				Action: validate.ValidateAction,
			},
			{
				Name:  "resolve",
				Usage: "Pick a validated primary source from a research proposal",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "proposal", Aliases: []string{"p"}, Value: "-", Usage: "proposal JSON or YAML, - for stdin"},
					&cli.StringFlag{Name: "article-id", Usage: "article id recorded in the registry"},
					&cli.StringFlag{Name: "filename", Usage: "article filename recorded in the registry"},
					&cli.StringFlag{Name: "run-id", Usage: "run id recorded in the registry"},
					&cli.StringFlag{Name: "date", Usage: "article date recorded in the registry"},
					&cli.StringFlag{Name: "title", Usage: "article headline, used for rediscovery"},
					&cli.StringFlag{Name: "source-url", Usage: "original news URL"},
				},
				Action: resolve.ResolveAction,
			},
			{
				Name:  "links",
				Usage: "Check outbound links: repair or remove the broken ones",
				Flags: []cli.Flag{
					fileFlag,
					outFlag,
					&cli.StringSliceFlag{Name: "allow", Usage: "URL kept without checking (repeatable)"},
					&cli.StringSliceFlag{Name: "allow-domain", Usage: "domain kept without checking (repeatable)"},
					&cli.StringFlag{Name: "source-url", Usage: "original news URL, always kept"},
					&cli.BoolFlag{Name: "no-repair", Usage: "remove broken links without looking for replacements"},
					&cli.BoolFlag{Name: "force", Usage: "check links even when validate_outbound_urls is off"},
				},
				Action: links.DelinkAction,
			},
			{
				Name:  "fixlinks",
				Usage: "Repair or unlink every broken external link",
				Flags: []cli.Flag{
					fileFlag,
					outFlag,
					&cli.BoolFlag{Name: "search", Usage: "search for replacements on official domains"},
				},
				Action: links.FixLinksAction,
			},
			{
				Name:  "weave",
				Usage: "Insert related internal links into an article",
				Flags: []cli.Flag{
					fileFlag,
					outFlag,
					&cli.StringFlag{Name: "related", Aliases: []string{"r"}, Usage: "related links as JSON or YAML: [{url, anchor_text}]"},
					&cli.IntFlag{Name: "max-links", Value: pipeline.DefaultMaxInternalLinks, Usage: "maximum links to insert"},
					&cli.BoolFlag{Name: "no-llm", Usage: "use the deterministic weaver only"},
				},
				Action: weave.WeaveAction,
			},
			{
				Name:      "check-source",
				Usage:     "Check that a source page matches the article",
				ArgsUsage: "<url>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "article headline"},
					&cli.StringFlag{Name: "content-file", Usage: "article text file"},
					&cli.StringSliceFlag{Name: "keyword", Aliases: []string{"k"}, Usage: "keyword the page must mention (repeatable)"},
					&cli.StringFlag{Name: "compare", Usage: "second URL; print whichever matches better"},
				},
				Action: checksource.CheckSourceAction,
			},
			{
				Name:  "registry",
				Usage: "Inspect and maintain the primary sources registry",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List registry entries",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "domain", Usage: "only hosts containing this"},
							&cli.StringFlag{Name: "type", Usage: "only this source type (primary, news)"},
							&cli.BoolFlag{Name: "table", Usage: "print a table instead of YAML/JSON"},
						},
						Action: registry.ListAction,
					},
					{
						Name:  "audit",
						Usage: "Re-validate every registry entry",
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "fix", Usage: "remove invalid entries (a .backup copy is kept)"},
							&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "per-request timeout"},
						},
						Action: registry.AuditAction,
					},
				},
			},
			{
				Name:  "run",
				Usage: "Run every link pass over article job files",
				Description: "Each job file holds {article, primary_source, content, related_links}.\n" +
					"Directories contribute their .json and .yaml files.",
				ArgsUsage: "<job file|dir> [...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Value: "results", Usage: "directory for per-article outcomes, empty to skip"},
					&cli.IntFlag{Name: "workers", Usage: "concurrent articles (at most 2)"},
					&cli.IntFlag{Name: "max-links", Value: pipeline.DefaultMaxInternalLinks, Usage: "maximum internal links per article"},
					&cli.StringFlag{Name: "metrics-addr", Usage: "serve Prometheus metrics on this address, e.g. :9090"},
				},
				Action: run.RunAction,
			},
			{
				Name:  "db",
				Usage: "Query validation history and past runs",
				Subcommands: []*cli.Command{
					{
						Name:   "history",
						Usage:  "List stored validations, newest first",
						Flags:  db.FilterFlags,
						Action: db.HistoryAction,
					},
					{
						Name:   "reasons",
						Usage:  "Count stored validations per reason",
						Flags:  db.FilterFlags,
						Action: db.ReasonsAction,
					},
					{
						Name:  "runs",
						Usage: "List recent pipeline runs",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum runs, 0 for all"},
						},
						Action: db.RunsAction,
					},
					{
						Name:      "run",
						Usage:     "Show one run (default: latest)",
						ArgsUsage: "[run id]",
						Action:    db.RunAction,
					},
					{
						Name:  "prune",
						Usage: "Delete old validations",
						Flags: []cli.Flag{
							&cli.DurationFlag{Name: "older-than", Value: 30 * 24 * time.Hour, Usage: "age cutoff"},
						},
						Action: db.PruneAction,
					},
				},
			},
		},
	}
}
