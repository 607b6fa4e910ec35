package registry

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hughisie/agent0-article-pipeline/internal/common"
)

// ListAction prints registry entries, optionally filtered by domain and
// source type.
func ListAction(c *cli.Context) error {
	svc, err := common.NewServices(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	views, err := svc.Registry.Filter(c.String("domain"), c.String("type"))
	if err != nil {
		return err
	}
	if c.Bool("table") {
		w := c.App.Writer
		if len(views) == 0 {
			fmt.Fprintln(w, "No registry entries found")
			return nil
		}
		fmt.Fprintf(w, "%-8s %-6s %-10s %-24s %s\n", "Type", "Uses", "Last seen", "Domain", "URL")
		fmt.Fprintln(w, strings.Repeat("-", 120))
		for _, v := range views {
			lastSeen := "-"
			if v.LastSeenDaysAgo != nil {
				lastSeen = fmt.Sprintf("%dd ago", *v.LastSeenDaysAgo)
			}
			fmt.Fprintf(w, "%-8s %-6d %-10s %-24s %s\n", v.SourceType, v.UsageCount, lastSeen, v.Domain, v.URL)
		}
		fmt.Fprintf(w, "\nTotal: %d entries\n", len(views))
		return nil
	}
	return common.WriteOutput(c, views)
}

// AuditAction re-validates every registry entry and, with --fix, removes the
// invalid ones after backing up the file.
func AuditAction(c *cli.Context) error {
	svc, err := common.NewServices(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := svc.Registry.Audit(c.Context, svc.AuditValidator(c.Duration("timeout")))
	if err != nil {
		return fmt.Errorf("failed to audit registry: %w", err)
	}
	svc.Logger.Info("Registry audited",
		"total", report.Total,
		"valid", report.Valid,
		"invalid", len(report.Invalid),
		"warnings", len(report.Warnings))

	if err := common.WriteOutput(c, report); err != nil {
		return err
	}
	if !c.Bool("fix") || len(report.Invalid) == 0 {
		return nil
	}

	removed, backup, err := svc.Registry.Remove(report.InvalidURLs())
	if err != nil {
		return fmt.Errorf("failed to remove invalid entries: %w", err)
	}
	svc.Logger.Info("Removed invalid registry entries", "removed", removed, "backup", backup)
	return nil
}
