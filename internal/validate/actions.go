package validate

import (
	"fmt"
	"strings"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/hughisie/agent0-article-pipeline/internal/common"
	"github.com/hughisie/agent0-article-pipeline/models"
)

// Job is one URL to validate.
type Job struct {
	Index int
	URL   string
}

// OriginalSourceResult is the verdict for an original news URL.
type OriginalSourceResult struct {
	URL      string `json:"url" yaml:"url"`
	Resolved string `json:"resolved,omitempty" yaml:"resolved,omitempty"`
	Status   string `json:"status" yaml:"status"`
}

// ValidateAction validates the URLs given as arguments (or one per line in
// --file) and prints one verdict per URL in input order.
func ValidateAction(c *cli.Context) error {
	svc, err := common.NewServices(c)
	if err != nil {
		return err
	}
	defer svc.Close()
	logger := svc.Logger

	rawURLs, err := collectURLs(c)
	if err != nil {
		return err
	}
	if len(rawURLs) == 0 {
		return fmt.Errorf("at least one URL is required\nUsage: a0 validate <url> [url...]")
	}

	urls, invalid := common.SanitizeAndValidateURLs(rawURLs)
	for _, u := range invalid {
		logger.Warn("Skipping malformed URL", "url", u.Raw, "reason", u.Reason)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no valid URLs to check")
	}

	workers := c.Int("workers")
	if workers <= 0 {
		workers = 1
	}
	if workers > len(urls) {
		workers = len(urls)
	}

	if c.Bool("original-source") {
		results := make([]OriginalSourceResult, len(urls))
		run(urls, workers, func(j Job) {
			resolved, status := svc.Validator.ValidateOriginalSource(c.Context, j.URL)
			results[j.Index] = OriginalSourceResult{URL: j.URL, Resolved: resolved, Status: status}
		})
		if err := common.WriteOutput(c, results); err != nil {
			return err
		}
		for _, r := range results {
			if r.Status != models.ReasonOK {
				return cli.Exit("one or more URLs failed validation", 1)
			}
		}
		return nil
	}

	results := make([]models.ValidationResult, len(urls))
	expectPDF := c.Bool("expect-pdf")
	run(urls, workers, func(j Job) {
		results[j.Index] = svc.Validator.Validate(c.Context, j.URL, expectPDF)
	})
	if err := common.WriteOutput(c, results); err != nil {
		return err
	}
	for _, r := range results {
		if !r.OK {
			return cli.Exit("one or more URLs failed validation", 1)
		}
	}
	return nil
}

// run feeds urls to workers goroutines and waits for them.
func run(urls []string, workers int, fn func(Job)) {
	var wg sync.WaitGroup
	jobs := make(chan Job, len(urls))
	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				fn(j)
			}
		}()
	}
	for i, u := range urls {
		jobs <- Job{Index: i, URL: u}
	}
	close(jobs)
	wg.Wait()
}

func collectURLs(c *cli.Context) ([]string, error) {
	urls := c.Args().Slice()
	if path := c.String("file"); path != "" {
		data, err := common.ReadInput(c, path)
		if err != nil {
			return nil, err
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			urls = append(urls, line)
		}
	}
	return urls, nil
}
