package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hughisie/agent0-article-pipeline/internal/common"
	dbpkg "github.com/hughisie/agent0-article-pipeline/pkg/db"
)

const timeLayout = "2006-01-02 15:04:05"

// HistoryAction lists stored validation verdicts, newest first.
func HistoryAction(c *cli.Context) error {
	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	filter, err := historyFilter(c)
	if err != nil {
		return err
	}
	entries, err := database.ListAccesses(c.Context, filter)
	if err != nil {
		return err
	}

	w := c.App.Writer
	if len(entries) == 0 {
		fmt.Fprintln(w, "No validations found")
		return nil
	}

	fmt.Fprintf(w, "%-8s %-20s %-6s %-24s %-10s %s\n",
		"ID", "Accessed", "Code", "Reason", "Type", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, e := range entries {
		reason := e.Reason
		if e.Success {
			reason = "ok"
		}
		fmt.Fprintf(w, "%-8d %-20s %-6d %-24s %-10s %s\n",
			e.AccessID,
			e.AccessedAt.Format(timeLayout),
			e.StatusCode,
			reason,
			e.DomainType,
			e.URL,
		)
		if e.FinalURL != "" && e.FinalURL != e.URL {
			fmt.Fprintf(w, "%-8s -> %s\n", "", e.FinalURL)
		}
	}
	fmt.Fprintf(w, "\nTotal: %d validations\n", len(entries))
	return nil
}

// ReasonsAction counts stored verdicts per failure reason.
func ReasonsAction(c *cli.Context) error {
	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	filter, err := historyFilter(c)
	if err != nil {
		return err
	}
	counts, err := database.CountByReason(c.Context, filter)
	if err != nil {
		return err
	}

	w := c.App.Writer
	if len(counts) == 0 {
		fmt.Fprintln(w, "No validations found")
		return nil
	}
	fmt.Fprintf(w, "%-28s %s\n", "Reason", "Count")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	for _, rc := range counts {
		reason := rc.Reason
		if reason == "" {
			reason = "ok"
		}
		fmt.Fprintf(w, "%-28s %d\n", reason, rc.Count)
	}
	return nil
}

// RunsAction lists recent pipeline runs.
func RunsAction(c *cli.Context) error {
	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := database.ListRuns(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	w := c.App.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return nil
	}

	fmt.Fprintf(w, "%-36s %-20s %-9s %-8s %-8s %-10s %s\n",
		"Run", "Created", "Articles", "Success", "Failed", "Unresolved", "Finished")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s %-20s %-9d %-8d %-8d %-10d %s\n",
			r.RunID,
			r.CreatedAt.Format(timeLayout),
			r.ArticleCount,
			r.SuccessCount,
			r.FailedCount,
			r.UnresolvedCount,
			finished(r.FinishedAt),
		)
	}
	fmt.Fprintf(w, "\nTotal: %d runs\n", len(runs))
	fmt.Fprintf(w, "\nTip: Use 'a0 db run <id>' to see per-article outcomes\n")
	return nil
}

// RunAction shows one run with its per-article outcomes.
func RunAction(c *cli.Context) error {
	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	runID, err := GetRunIDOrLatest(c, database)
	if err != nil {
		return err
	}
	run, err := database.GetRun(c.Context, runID)
	if err != nil {
		return err
	}
	articles, err := database.GetRunArticles(c.Context, runID)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Run %s\n", run.RunID)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Created:     %s\n", run.CreatedAt.Format(timeLayout))
	fmt.Fprintf(w, "Finished:    %s\n", finished(run.FinishedAt))
	fmt.Fprintf(w, "Articles:    %d total (%d success, %d failed, %d unresolved)\n",
		run.ArticleCount, run.SuccessCount, run.FailedCount, run.UnresolvedCount)

	if len(articles) > 0 {
		fmt.Fprintf(w, "\nArticles (%d):\n", len(articles))
		fmt.Fprintln(w, strings.Repeat("-", 60))
		for i, a := range articles {
			fmt.Fprintf(w, "%2d. [%s] %s\n", i+1, a.Status, a.ArticleID)
			if a.Status == "failed" {
				fmt.Fprintf(w, "    Error: %s\n", a.ErrorMessage)
				continue
			}
			primary := a.PrimaryURL
			if primary == "" {
				primary = "(none)"
			}
			fmt.Fprintf(w, "    Resolution: %s | Primary: %s | Links removed: %d\n",
				a.ResolutionReason, primary, a.LinksRemoved)
		}
	}
	return nil
}

// PruneAction deletes validations older than --older-than.
func PruneAction(c *cli.Context) error {
	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	age := c.Duration("older-than")
	if age <= 0 {
		return fmt.Errorf("--older-than must be positive, got %s", age)
	}
	n, err := database.PruneAccesses(c.Context, time.Now().Add(-age))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Pruned %d validations older than %s\n", n, age)
	return nil
}

func finished(t *time.Time) string {
	if t == nil {
		return "(running)"
	}
	return t.Format(timeLayout)
}

func openDatabase(c *cli.Context) (*dbpkg.DB, error) {
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return nil, err
	}
	database, err := dbpkg.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}
