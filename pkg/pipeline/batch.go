package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hughisie/agent0-article-pipeline/models"
	"github.com/hughisie/agent0-article-pipeline/pkg/db"
	"github.com/hughisie/agent0-article-pipeline/pkg/metrics"
)

const (
	statusOK     = "ok"
	statusFailed = "failed"
)

// RunStore persists batch runs; *db.DB satisfies it.
type RunStore interface {
	CreateRun(ctx context.Context, runID string, articleCount int) error
	InsertRunArticle(ctx context.Context, runID string, a db.RunArticle) error
	FinishRun(ctx context.Context, runID string, successCount, failedCount, unresolvedCount int) error
}

func newRunID() string {
	return uuid.NewString()
}

type batchJob struct {
	index int
	job   models.ArticleJob
}

// RunBatch processes jobs on at most models.MaxWorkers workers. Outcomes
// come back in job order. Articles without a run id get the batch's id.
func (p *Pipeline) RunBatch(ctx context.Context, jobs []models.ArticleJob) (models.RunSummary, []models.ArticleOutcome) {
	start := time.Now()
	runID := p.newRunID()
	summary := models.RunSummary{RunID: runID, Articles: len(jobs)}
	logger := p.logger.With("run_id", runID)

	if p.store != nil {
		if err := p.store.CreateRun(ctx, runID, len(jobs)); err != nil {
			logger.Warn("Failed to record run", "error", err)
		}
	}

	workers := p.cfg.Workers
	if workers <= 0 || workers > models.MaxWorkers {
		workers = models.MaxWorkers
	}
	logger.Info("Starting pipeline run", "article_count", len(jobs), "workers", workers)

	var wg sync.WaitGroup
	queue := make(chan batchJob, len(jobs))
	outcomes := make([]models.ArticleOutcome, len(jobs))

	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go p.worker(ctx, w, runID, &wg, queue, outcomes)
	}
	for i, job := range jobs {
		if job.Article.RunID == "" {
			job.Article.RunID = runID
		}
		queue <- batchJob{index: i, job: job}
	}
	close(queue)
	wg.Wait()

	for _, o := range outcomes {
		switch {
		case o.Error != "":
			summary.Failed++
		case !o.Resolution.Resolved():
			summary.Succeeded++
			summary.Unresolved++
		default:
			summary.Succeeded++
		}
	}
	summary.Elapsed = time.Since(start)

	if p.store != nil {
		// The run is closed even when ctx was cancelled mid-batch.
		if err := p.store.FinishRun(context.WithoutCancel(ctx), runID, summary.Succeeded, summary.Failed, summary.Unresolved); err != nil {
			logger.Warn("Failed to finish run", "error", err)
		}
	}
	logger.Info("Pipeline run finished",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"unresolved", summary.Unresolved,
		"elapsed", summary.Elapsed)
	return summary, outcomes
}

func (p *Pipeline) worker(ctx context.Context, id int, runID string, wg *sync.WaitGroup, queue <-chan batchJob, outcomes []models.ArticleOutcome) {
	defer wg.Done()
	for bj := range queue {
		p.logger.Debug("Worker started article", "worker_id", id, "article_id", bj.job.Article.ID)

		var outcome models.ArticleOutcome
		var err error
		if err = ctx.Err(); err == nil {
			outcome, err = p.Process(ctx, bj.job)
		}
		outcome.ArticleID = bj.job.Article.ID

		record := db.RunArticle{
			ArticleID:        bj.job.Article.ID,
			Status:           statusOK,
			ResolutionReason: outcome.Resolution.Report.Reason,
			PrimaryURL:       outcome.PrimarySource.URL,
			LinksRemoved:     len(outcome.Links.RemovedLinks),
		}
		switch {
		case err != nil:
			p.logger.Error("Article failed", "worker_id", id, "article_id", bj.job.Article.ID, "error", err)
			outcome.Error = err.Error()
			record.Status = statusFailed
			record.ErrorMessage = err.Error()
			metrics.ArticlesTotal.WithLabelValues(statusFailed).Inc()
		case !outcome.Resolution.Resolved():
			metrics.ArticlesTotal.WithLabelValues("unresolved").Inc()
		default:
			metrics.ArticlesTotal.WithLabelValues(statusOK).Inc()
		}
		outcomes[bj.index] = outcome

		if p.store != nil && record.ArticleID != "" {
			if dbErr := p.store.InsertRunArticle(context.WithoutCancel(ctx), runID, record); dbErr != nil {
				p.logger.Warn("Failed to record article outcome", "article_id", record.ArticleID, "error", dbErr)
			}
		}
	}
}
