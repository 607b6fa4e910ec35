package weave

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/hughisie/agent0-article-pipeline/internal/common"
	"github.com/hughisie/agent0-article-pipeline/models"
	"github.com/hughisie/agent0-article-pipeline/pkg/weaver"
)

// WeaveAction inserts related internal links into an article. Related links
// come from --related as a JSON or YAML list of {url, anchor_text}.
func WeaveAction(c *cli.Context) error {
	svc, err := common.NewServices(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	if c.String("related") == "" {
		return fmt.Errorf("--related is required")
	}
	if c.String("file") == c.String("related") {
		return fmt.Errorf("--file and --related must be different inputs")
	}

	content, err := common.ReadInput(c, c.String("file"))
	if err != nil {
		return err
	}
	relatedData, err := common.ReadInput(c, c.String("related"))
	if err != nil {
		return err
	}
	var related []models.RelatedLink
	if err := common.Decode(relatedData, &related); err != nil {
		return fmt.Errorf("failed to parse related links: %w", err)
	}

	var (
		updated string
		report  models.WeaveReport
	)
	if c.Bool("no-llm") {
		updated, report = weaver.Weave(string(content), related, c.Int("max-links"))
	} else {
		updated, report = svc.Weaver().Weave(c.Context, string(content), related, c.Int("max-links"))
	}
	updated = weaver.EnforceUniqueInternalLinks(updated, svc.Config.InternalDomain)

	svc.Logger.Info("Internal links woven",
		"related", report.TotalRelated,
		"inserted", len(report.Inserted),
		"skipped", len(report.Skipped),
		"used_llm", report.UsedLLM,
		"internal_links", weaver.CountInternalLinks(updated, svc.Config.InternalDomain))

	out := c.String("out")
	if err := common.WriteContent(c, out, updated); err != nil {
		return err
	}
	if out != "" && out != "-" {
		return common.WriteOutput(c, report)
	}
	return nil
}
