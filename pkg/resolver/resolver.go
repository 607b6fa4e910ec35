// Package resolver picks a working primary source URL for an article from
// LLM-proposed candidates, search rediscovery or the article's own source.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hughisie/agent0-article-pipeline/models"
	"github.com/hughisie/agent0-article-pipeline/pkg/llm"
	"github.com/hughisie/agent0-article-pipeline/pkg/metrics"
	"github.com/hughisie/agent0-article-pipeline/pkg/urlnorm"
)

const (
	rediscoverPrompt = "Find the official primary source URL for the referenced document or announcement."
	maxURLsPerQuery  = 5
)

// URLValidator validates one URL.
type URLValidator interface {
	Validate(ctx context.Context, url string, expectPDF bool) models.ValidationResult
}

// Recorder stores the source chosen for an article.
type Recorder interface {
	Update(url, sourceType string, ref models.ArticleRef) error
}

type Resolver struct {
	validator URLValidator
	search    llm.Generator
	registry  Recorder
	logger    *slog.Logger
}

type Option func(*Resolver)

// WithSearch enables rediscovery through a search-grounded generator.
func WithSearch(g llm.Generator) Option {
	return func(r *Resolver) { r.search = g }
}

func WithRegistry(rec Recorder) Option {
	return func(r *Resolver) { r.registry = rec }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

func New(v URLValidator, opts ...Option) *Resolver {
	r := &Resolver{validator: v, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type meta struct {
	title       string
	publisher   string
	originalURL string
	typeGuess   string
}

// Resolve tries the proposal's candidates in the order given, then search
// rediscovery, then the article's own source URL.
func (r *Resolver) Resolve(ctx context.Context, proposal models.PrimarySourceProposal, article *models.Article) models.Resolution {
	report := models.ResolutionReport{CandidatesTried: []models.ValidationResult{}}

	var candidates []string
	if proposal.PrimarySource.URL != "" {
		candidates = append(candidates, proposal.PrimarySource.URL)
	}
	for _, alt := range proposal.Alternatives {
		if alt.URL != "" {
			candidates = append(candidates, alt.URL)
		}
	}

	m := meta{
		title:     proposal.PrimarySource.Title,
		publisher: proposal.PrimarySource.PublisherGuess,
		typeGuess: proposal.PrimarySource.TypeGuess,
	}
	if article != nil {
		m.originalURL = article.SourceURL
	}

	for _, candidate := range candidates {
		if result, ok := r.resolveCandidate(ctx, candidate, m, &report); ok {
			return r.selected(result, models.ResolutionValidated, &report, article)
		}
	}

	if result, ok := r.rediscover(ctx, m, &report); ok {
		return r.selected(result, models.ResolutionRediscovered, &report, article)
	}

	if m.originalURL != "" {
		report.Selected = m.originalURL
		report.Reason = models.ResolutionFallback
		report.SourceType = models.SourceTypeNews
		r.record(m.originalURL, models.SourceTypeNews, article)
		metrics.ResolutionsTotal.WithLabelValues(report.Reason).Inc()
		r.logger.Info("Primary source fell back to news article", "url", m.originalURL, "tried", len(report.CandidatesTried))
		return models.Resolution{ResolvedURL: m.originalURL, Report: report}
	}

	report.Reason = models.ReasonNoValidPrimarySource
	report.SourceType = models.SourceTypeNews
	metrics.ResolutionsTotal.WithLabelValues(report.Reason).Inc()
	r.logger.Warn("No valid primary source", "tried", len(report.CandidatesTried))
	return models.Resolution{Report: report}
}

func (r *Resolver) selected(result models.ValidationResult, reason string, report *models.ResolutionReport, article *models.Article) models.Resolution {
	resolved := result.ResolvedURL()
	report.Selected = resolved
	report.Reason = reason
	report.SourceType = models.SourceTypePrimary
	r.record(resolved, models.SourceTypePrimary, article)
	metrics.ResolutionsTotal.WithLabelValues(reason).Inc()
	r.logger.Info("Resolved primary source", "url", resolved, "reason", reason)
	return models.Resolution{ResolvedURL: resolved, Report: *report, SelectedValidation: &result}
}

// record never fails the resolution.
func (r *Resolver) record(sourceURL, sourceType string, article *models.Article) {
	if r.registry == nil {
		return
	}
	if err := r.registry.Update(sourceURL, sourceType, article.Ref()); err != nil {
		r.logger.Warn("Failed to update primary sources registry", "url", sourceURL, "error", err)
	}
}

func expectsPDF(normalized, typeGuess string) bool {
	return strings.HasSuffix(strings.ToLower(normalized), ".pdf") ||
		strings.Contains(strings.ToLower(typeGuess), "pdf")
}

// resolveCandidate validates the candidate, its unwrapped target and its
// retry variants, stopping at the first that passes.
func (r *Resolver) resolveCandidate(ctx context.Context, candidate string, m meta, report *models.ResolutionReport) (models.ValidationResult, bool) {
	normalized := urlnorm.Normalize(candidate)
	expectPDF := expectsPDF(normalized, m.typeGuess)

	try := func(u string) (models.ValidationResult, bool) {
		result := r.validator.Validate(ctx, u, expectPDF)
		report.CandidatesTried = append(report.CandidatesTried, result)
		return result, result.OK
	}

	if result, ok := try(normalized); ok {
		return result, true
	}
	if wrapped, ok := urlnorm.ExtractWrappedURL(normalized); ok {
		if result, ok := try(urlnorm.Normalize(wrapped)); ok {
			return result, true
		}
	}
	for _, variant := range urlnorm.RetryChain.Expand(normalized) {
		if result, ok := try(urlnorm.Normalize(variant)); ok {
			return result, true
		}
	}
	return models.ValidationResult{}, false
}

func searchQueries(m meta) []string {
	var queries []string
	if m.publisher != "" && m.title != "" {
		queries = append(queries, fmt.Sprintf("%s %s", m.publisher, m.title))
	}
	if m.title != "" {
		queries = append(queries, m.title)
	}
	if domain := urlnorm.Host(m.originalURL); domain != "" && m.title != "" {
		queries = append(queries, fmt.Sprintf("site:%s %s", domain, m.title))
	}
	return queries
}

func (r *Resolver) rediscover(ctx context.Context, m meta, report *models.ResolutionReport) (models.ValidationResult, bool) {
	if r.search == nil {
		return models.ValidationResult{}, false
	}
	for _, query := range searchQueries(m) {
		answer, err := r.search.Generate(ctx, rediscoverPrompt, query)
		if err != nil {
			r.logger.Warn("Rediscovery search failed", "query", query, "error", err)
			continue
		}
		urls := urlnorm.ExtractURLs(answer)
		if len(urls) > maxURLsPerQuery {
			urls = urls[:maxURLsPerQuery]
		}
		for _, u := range urls {
			normalized := urlnorm.Normalize(u)
			result := r.validator.Validate(ctx, normalized, expectsPDF(normalized, ""))
			report.CandidatesTried = append(report.CandidatesTried, result)
			if result.OK {
				return result, true
			}
		}
	}
	return models.ValidationResult{}, false
}

// Apply writes the resolution back into the proposal. An unresolved
// proposal keeps its URL but loses its confidence.
func Apply(proposal *models.PrimarySourceProposal, res models.Resolution) {
	if proposal == nil {
		return
	}
	proposal.PrimarySource.SourceType = res.Report.SourceType
	if !res.Resolved() {
		proposal.PrimarySource.Confidence = 0
		return
	}
	proposal.PrimarySource.URL = res.ResolvedURL
}
