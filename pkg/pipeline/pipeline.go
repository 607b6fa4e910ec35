// Package pipeline runs the link passes over finished articles: primary source
// resolution, internal link weaving, source credits and outbound link checks.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hughisie/agent0-article-pipeline/models"
	"github.com/hughisie/agent0-article-pipeline/pkg/blocks"
	"github.com/hughisie/agent0-article-pipeline/pkg/linkcheck"
	"github.com/hughisie/agent0-article-pipeline/pkg/resolver"
	"github.com/hughisie/agent0-article-pipeline/pkg/weaver"
)

const DefaultMaxInternalLinks = 3

var ErrMissingArticleID = errors.New("article id is required")

type Resolver interface {
	Resolve(ctx context.Context, proposal models.PrimarySourceProposal, article *models.Article) models.Resolution
}

type Weaver interface {
	Weave(ctx context.Context, content string, related []models.RelatedLink, maxLinks int) (string, models.WeaveReport)
}

type LinkChecker interface {
	DelinkOutbound(ctx context.Context, content string, opts linkcheck.Options) (string, models.LinkReport)
}

type Pipeline struct {
	cfg      *models.Config
	resolver Resolver
	weaver   Weaver
	links    LinkChecker
	store    RunStore
	maxLinks int
	newRunID func() string
	logger   *slog.Logger
}

type Option func(*Pipeline)

// WithRunStore records batch runs and per-article outcomes.
func WithRunStore(s RunStore) Option {
	return func(p *Pipeline) { p.store = s }
}

func WithMaxInternalLinks(n int) Option {
	return func(p *Pipeline) { p.maxLinks = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func New(cfg *models.Config, r Resolver, w Weaver, l LinkChecker, opts ...Option) *Pipeline {
	if cfg == nil {
		cfg = models.DefaultConfig()
	}
	p := &Pipeline{
		cfg:      cfg,
		resolver: r,
		weaver:   w,
		links:    l,
		maxLinks: DefaultMaxInternalLinks,
		newRunID: newRunID,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs every pass over one article. Problems with individual URLs
// end up in the outcome's reports; an error means the article could not be
// processed at all.
func (p *Pipeline) Process(ctx context.Context, job models.ArticleJob) (models.ArticleOutcome, error) {
	outcome := models.ArticleOutcome{ArticleID: job.Article.ID}
	if job.Article.ID == "" {
		return outcome, ErrMissingArticleID
	}
	logger := p.logger.With("article_id", job.Article.ID)

	proposal := job.PrimarySource
	res := p.resolver.Resolve(ctx, proposal, &job.Article)
	resolver.Apply(&proposal, res)
	outcome.Resolution = res
	outcome.PrimarySource = proposal.PrimarySource
	if !res.Resolved() {
		p.reportUnresolved(logger, res)
	}
	if err := ctx.Err(); err != nil {
		return outcome, err
	}

	content, weave := p.weaver.Weave(ctx, job.Content, job.RelatedLinks, p.maxLinks)
	content = weaver.EnforceUniqueInternalLinks(content, p.cfg.InternalDomain)
	outcome.Weave = weave

	primaryURL := ""
	if res.Report.SourceType == models.SourceTypePrimary {
		primaryURL = res.ResolvedURL
	}
	content = blocks.FinaliseSourceCredits(content, job.Article.SourceURL, primaryURL,
		proposal.PrimarySource.Confidence, p.cfg.ConfidenceThreshold)

	var allowed []string
	for _, u := range []string{job.Article.SourceURL, primaryURL} {
		if u != "" {
			allowed = append(allowed, u)
		}
	}
	content, links := p.links.DelinkOutbound(ctx, content, linkcheck.Options{
		Enabled:        p.cfg.OutboundValidationEnabled(),
		RepairEnabled:  true,
		InternalDomain: p.cfg.InternalDomain,
		AllowedURLs:    allowed,
	})
	outcome.Links = links
	outcome.Content = weaver.EnforceUniqueInternalLinks(content, p.cfg.InternalDomain)

	logger.Info("Article processed",
		"resolution", res.Report.Reason,
		"links_inserted", len(weave.Inserted),
		"links_removed", len(links.RemovedLinks),
		"links_repaired", links.Repaired)
	return outcome, ctx.Err()
}

// reportUnresolved lists every rejected candidate in strict mode, so an
// operator can see why the article went out without a primary source.
func (p *Pipeline) reportUnresolved(logger *slog.Logger, res models.Resolution) {
	if !p.cfg.StrictPrimarySource() {
		logger.Info("No valid primary source", "candidates_tried", len(res.Report.CandidatesTried))
		return
	}
	logger.Error("No valid primary source", "reason", res.Report.Reason, "candidates_tried", len(res.Report.CandidatesTried))
	for _, tried := range res.Report.CandidatesTried {
		logger.Warn("Rejected primary source candidate", "url", tried.OriginalURL, "reason", tried.Reason, "status_code", tried.StatusCode)
	}
}
