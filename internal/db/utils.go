package db

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	dbpkg "github.com/hughisie/agent0-article-pipeline/pkg/db"
)

// Flags shared by the history and reasons commands.
var FilterFlags = []cli.Flag{
	&cli.StringFlag{Name: "url", Usage: "only this URL, ignoring tracking parameters and fragments"},
	&cli.StringFlag{Name: "domain", Usage: "only URLs whose host contains this"},
	&cli.StringFlag{Name: "reason", Usage: "only verdicts whose reason starts with this (e.g. status_4)"},
	&cli.BoolFlag{Name: "failed", Usage: "only failed validations"},
	&cli.BoolFlag{Name: "ok", Usage: "only successful validations"},
	&cli.DurationFlag{Name: "since", Usage: "only validations newer than this (e.g. 24h)"},
	&cli.IntFlag{Name: "limit", Value: 50, Usage: "maximum rows, 0 for all"},
}

func historyFilter(c *cli.Context) (dbpkg.HistoryFilter, error) {
	f := dbpkg.HistoryFilter{
		URL:    c.String("url"),
		Domain: c.String("domain"),
		Reason: c.String("reason"),
		Limit:  c.Int("limit"),
	}
	failed, ok := c.Bool("failed"), c.Bool("ok")
	switch {
	case failed && ok:
		return f, fmt.Errorf("--failed and --ok are mutually exclusive")
	case failed:
		success := false
		f.Success = &success
	case ok:
		success := true
		f.Success = &success
	}
	if since := c.Duration("since"); since > 0 {
		f.Since = time.Now().Add(-since)
	}
	return f, nil
}

// GetRunIDOrLatest returns the run ID from args, or the latest run if not provided.
func GetRunIDOrLatest(c *cli.Context, database *dbpkg.DB) (string, error) {
	if c.NArg() > 0 {
		return c.Args().First(), nil
	}
	runs, err := database.ListRuns(c.Context, 1)
	if err != nil {
		return "", fmt.Errorf("failed to get latest run: %w", err)
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs found. Run 'a0 run <jobs>' first")
	}
	return runs[0].RunID, nil
}
