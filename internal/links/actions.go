package links

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/hughisie/agent0-article-pipeline/internal/common"
	"github.com/hughisie/agent0-article-pipeline/pkg/linkcheck"
	"github.com/hughisie/agent0-article-pipeline/pkg/weaver"
)

// DelinkAction validates every outbound link in an article and removes or
// repairs the broken ones. The cleaned article goes to --out (stdout by
// default); the link report is printed when the article goes to a file.
func DelinkAction(c *cli.Context) error {
	svc, err := common.NewServices(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	data, err := common.ReadInput(c, c.String("file"))
	if err != nil {
		return err
	}

	allowed := c.StringSlice("allow")
	if src := c.String("source-url"); src != "" {
		allowed = append(allowed, src)
	}
	content, report := svc.LinkChecker().DelinkOutbound(c.Context, string(data), linkcheck.Options{
		Enabled:        svc.Config.OutboundValidationEnabled() || c.Bool("force"),
		RepairEnabled:  !c.Bool("no-repair"),
		InternalDomain: svc.Config.InternalDomain,
		AllowedURLs:    allowed,
		AllowedDomains: c.StringSlice("allow-domain"),
	})
	content = weaver.EnforceUniqueInternalLinks(content, svc.Config.InternalDomain)

	svc.Logger.Info("Outbound links checked",
		"checked", report.Checked,
		"broken", report.Broken,
		"repaired", report.Repaired,
		"removed", len(report.RemovedLinks))

	out := c.String("out")
	if err := common.WriteContent(c, out, content); err != nil {
		return err
	}
	if out != "" && out != "-" {
		return common.WriteOutput(c, report)
	}
	return nil
}

// FixLinksAction repairs or unlinks every broken external anchor in an
// article, searching for replacements when --search is set.
func FixLinksAction(c *cli.Context) error {
	svc, err := common.NewServices(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	data, err := common.ReadInput(c, c.String("file"))
	if err != nil {
		return err
	}

	searchEnabled := c.Bool("search")
	if searchEnabled && svc.Search == nil {
		return fmt.Errorf("--search needs gemini_api_key (or GEMINI_API_KEY) to be set")
	}
	content, report := svc.LinkChecker().FixLinks(c.Context, string(data), searchEnabled)

	svc.Logger.Info("Links fixed",
		"total", report.TotalLinks,
		"broken", report.BrokenLinks,
		"replaced", report.ReplacedLinks,
		"unlinked", report.UnlinkedLinks)

	out := c.String("out")
	if err := common.WriteContent(c, out, content); err != nil {
		return err
	}
	if out != "" && out != "-" {
		return common.WriteOutput(c, report)
	}
	return nil
}
