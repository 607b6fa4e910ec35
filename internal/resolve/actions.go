package resolve

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/hughisie/agent0-article-pipeline/internal/common"
	"github.com/hughisie/agent0-article-pipeline/models"
	"github.com/hughisie/agent0-article-pipeline/pkg/resolver"
)

// Output is what the resolve command prints.
type Output struct {
	PrimarySource models.PrimarySourceProposal `json:"primary_source" yaml:"primary_source"`
	Resolution    models.Resolution            `json:"resolution" yaml:"resolution"`
}

// ResolveAction validates a primary source proposal read from --proposal (or
// stdin) and prints the proposal with the validated URL applied, together
// with the resolution report.
func ResolveAction(c *cli.Context) error {
	svc, err := common.NewServices(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	data, err := common.ReadInput(c, c.String("proposal"))
	if err != nil {
		return err
	}
	var proposal models.PrimarySourceProposal
	if err := common.Decode(data, &proposal); err != nil {
		return fmt.Errorf("failed to parse proposal: %w", err)
	}

	article := &models.Article{
		ID:        c.String("article-id"),
		Filename:  c.String("filename"),
		RunID:     c.String("run-id"),
		Date:      c.String("date"),
		Title:     c.String("title"),
		SourceURL: c.String("source-url"),
	}

	res := svc.Resolver().Resolve(c.Context, proposal, article)
	resolver.Apply(&proposal, res)

	if !res.Resolved() {
		svc.Logger.Warn("No valid primary source",
			"article_id", article.ID,
			"reason", res.Report.Reason,
			"candidates_tried", len(res.Report.CandidatesTried))
		for _, tried := range res.Report.CandidatesTried {
			svc.Logger.Info("Rejected primary source candidate", "url", tried.OriginalURL, "reason", tried.Reason)
		}
	}

	if err := common.WriteOutput(c, Output{PrimarySource: proposal, Resolution: res}); err != nil {
		return err
	}
	if !res.Resolved() && svc.Config.StrictPrimarySource() {
		return cli.Exit("no valid primary source", 2)
	}
	return nil
}
