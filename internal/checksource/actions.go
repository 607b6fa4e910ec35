package checksource

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/hughisie/agent0-article-pipeline/internal/common"
	"github.com/hughisie/agent0-article-pipeline/pkg/contentmatch"
)

// CompareResult is printed by check-source --compare.
type CompareResult struct {
	Best string `json:"best" yaml:"best"`
}

// CheckSourceAction fetches a primary source page and scores it against
// the article given by --title, --content-file and --keyword.
func CheckSourceAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("URL required\nUsage: a0 check-source <url> --title \"...\"")
	}

	svc, err := common.NewServices(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	exp := contentmatch.Expectation{
		Title:    c.String("title"),
		Keywords: c.StringSlice("keyword"),
	}
	if path := c.String("content-file"); path != "" {
		data, err := common.ReadInput(c, path)
		if err != nil {
			return err
		}
		exp.Content = string(data)
	}

	checker := svc.ContentChecker()
	target := c.Args().First()

	if other := c.String("compare"); other != "" {
		best := checker.CompareSimilar(c.Context, target, other, exp)
		return common.WriteOutput(c, CompareResult{Best: best})
	}

	result := checker.Check(c.Context, target, exp)
	if err := common.WriteOutput(c, result); err != nil {
		return err
	}
	if !result.IsValid {
		return cli.Exit("source does not match the article", 1)
	}
	return nil
}
