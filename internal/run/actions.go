package run

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/hughisie/agent0-article-pipeline/internal/common"
	"github.com/hughisie/agent0-article-pipeline/models"
	"github.com/hughisie/agent0-article-pipeline/pkg/caching"
	"github.com/hughisie/agent0-article-pipeline/pkg/metrics"
	"github.com/hughisie/agent0-article-pipeline/pkg/pipeline"
	"github.com/hughisie/agent0-article-pipeline/pkg/storage"
)

// RunAction runs the full link pipeline over article jobs. Arguments are
// job files or directories of them. Each outcome is written to
// <output-dir>/<article id>.json and the run summary is printed.
func RunAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one job file or directory is required\nUsage: a0 run <job.json|dir> [...]")
	}

	svc, err := common.NewServices(c)
	if err != nil {
		return err
	}
	defer svc.Close()
	logger := svc.Logger

	if w := c.Int("workers"); w > 0 {
		svc.Config.Workers = min(w, models.MaxWorkers)
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	addr := c.String("metrics-addr")
	if addr == "" {
		addr = svc.Config.MetricsAddr
	}
	if addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, logger); err != nil {
				logger.Error("Metrics server failed", "addr", addr, "error", err)
			}
		}()
	}

	paths, err := JobFiles(c.Args().Slice())
	if err != nil {
		return err
	}
	jobs, err := LoadJobs(paths)
	if err != nil {
		return err
	}
	logger.Info("Loaded article jobs", "count", len(jobs), "files", len(paths))

	p := svc.Pipeline(pipeline.WithMaxInternalLinks(c.Int("max-links")))

	summary, outcomes := p.RunBatch(ctx, jobs)

	if dir := c.String("output-dir"); dir != "" {
		if err := saveOutcomes(dir, outcomes); err != nil {
			return err
		}
		logger.Info("Saved article outcomes", "dir", dir, "count", len(outcomes))
	}
	pruneCache(svc.Config, logger)

	if err := common.WriteOutput(c, summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d articles failed", summary.Failed, summary.Articles), 1)
	}
	return nil
}

func saveOutcomes(dir string, outcomes []models.ArticleOutcome) error {
	s := &storage.Storage{}
	for i, o := range outcomes {
		name := o.ArticleID
		if name == "" {
			name = fmt.Sprintf("job-%d", i+1)
		}
		data, err := json.MarshalIndent(o, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal outcome for %s: %w", name, err)
		}
		if err := s.SaveFile(filepath.Join(dir, name+".json"), data); err != nil {
			return fmt.Errorf("failed to save outcome for %s: %w", name, err)
		}
	}
	return nil
}

func pruneCache(cfg *models.Config, logger *slog.Logger) {
	if cfg.CacheDir == "" {
		return
	}
	cache, err := caching.NewCache(cfg.CacheDir, cfg.CacheTTL)
	if err != nil {
		logger.Warn("Failed to open LLM cache for pruning", "dir", cfg.CacheDir, "error", err)
		return
	}
	n, err := cache.Prune()
	if err != nil {
		logger.Warn("Failed to prune LLM cache", "dir", cfg.CacheDir, "error", err)
		return
	}
	logger.Debug("Pruned LLM cache", "removed", n)
}
