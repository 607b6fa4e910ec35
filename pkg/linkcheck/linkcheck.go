// Package linkcheck validates the outbound links of an article, repairs the
// broken ones it can and turns the rest into plain text.
package linkcheck

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hughisie/agent0-article-pipeline/models"
	"github.com/hughisie/agent0-article-pipeline/pkg/blocks"
	"github.com/hughisie/agent0-article-pipeline/pkg/detector"
	"github.com/hughisie/agent0-article-pipeline/pkg/fetcher"
	"github.com/hughisie/agent0-article-pipeline/pkg/llm"
	"github.com/hughisie/agent0-article-pipeline/pkg/metrics"
	"github.com/hughisie/agent0-article-pipeline/pkg/urlnorm"
)

const (
	taxiHost          = "taxi.amb.cat"
	taxiOpenDataPath  = "transparencia-y-datos-abiertos"
	taxiSearchQuery   = "site:taxi.amb.cat datos del sector transparencia datos abiertos"
	taxiSearchPrompt  = "Find the official taxi.amb.cat page for 'datos del sector' or 'transparencia datos abiertos'."
	notFoundAnswer    = "NOT_FOUND"
	redirectTimeout   = 10 * time.Second
	officialPromptFmt = "Find the exact official page on %s that matches this content. " +
		"The URL MUST be a working page that currently exists. " +
		"For govern.cat, look in both /gov/notes-premsa/ and /salapremsa/notes-premsa/ paths. " +
		"Return ONLY the full URL, nothing else. " +
		"If you cannot find a matching page, respond with 'NOT_FOUND'."
)

// URLValidator is the subset of the validator used here.
type URLValidator interface {
	Validate(ctx context.Context, url string, expectPDF bool) models.ValidationResult
}

// Redirector resolves search redirect URLs to their targets.
type Redirector interface {
	Head(ctx context.Context, url string) (*fetcher.Response, error)
}

// Options control one DelinkOutbound pass.
type Options struct {
	Enabled        bool
	RepairEnabled  bool
	InternalDomain string // defaults to models.DefaultInternalDomain
	AllowedURLs    []string
	AllowedDomains []string
}

type Checker struct {
	validator      URLValidator
	search         llm.Generator
	redirects      Redirector
	internalDomain string
	fixEnabled     bool
	logger         *slog.Logger
}

type Option func(*Checker)

// WithSearch enables search-based repair. A nil generator disables it.
func WithSearch(g llm.Generator) Option {
	return func(c *Checker) { c.search = g }
}

func WithRedirector(r Redirector) Option {
	return func(c *Checker) { c.redirects = r }
}

func WithInternalDomain(domain string) Option {
	return func(c *Checker) { c.internalDomain = domain }
}

// WithOutboundValidation turns FixLinks into a no-op when disabled.
func WithOutboundValidation(enabled bool) Option {
	return func(c *Checker) { c.fixEnabled = enabled }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) { c.logger = l }
}

func New(v URLValidator, opts ...Option) *Checker {
	c := &Checker{
		validator:      v,
		internalDomain: models.DefaultInternalDomain,
		fixEnabled:     true,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.redirects == nil {
		c.redirects = fetcher.NewFetcher(fetcher.WithTimeout(redirectTimeout))
	}
	return c
}

// DelinkOutbound checks every outbound anchor in content, last first.
// Allowed URLs and domains are kept without a network call; internal links
// are left alone and not counted. Broken links are repaired when possible,
// otherwise replaced by their text.
func (c *Checker) DelinkOutbound(ctx context.Context, content string, opts Options) (string, models.LinkReport) {
	report := models.NewLinkReport(opts.Enabled, opts.RepairEnabled)
	if !opts.Enabled || content == "" {
		return content, report
	}
	internal := opts.InternalDomain
	if internal == "" {
		internal = models.DefaultInternalDomain
	}

	allowed := make(map[string]bool)
	for _, u := range opts.AllowedURLs {
		if u = strings.TrimSpace(u); u != "" {
			allowed[u] = true
			allowed[urlnorm.CompareKey(u)] = true
		}
	}
	allowedDomains := make(map[string]bool)
	for _, d := range opts.AllowedDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			allowedDomains[d] = true
		}
	}

	keep := func(href string) {
		report.KeptLinks = append(report.KeptLinks, models.KeptLink{URL: href})
		metrics.LinksTotal.WithLabelValues("kept").Inc()
	}
	remove := func(href, reason string) {
		report.Broken++
		report.RemovedLinks = append(report.RemovedLinks, models.RemovedLink{URL: href, Reason: reason})
		metrics.LinksTotal.WithLabelValues("removed").Inc()
		c.logger.Info("Removed outbound link", "url", href, "reason", reason)
	}

	updated := blocks.Rewrite(content, func(m blocks.AnchorMatch) (string, bool) {
		href := m.Href
		if href == "" || !urlnorm.IsHTTP(href) {
			return "", false
		}
		if allowed[href] || allowed[urlnorm.CompareKey(href)] || allowedDomains[urlnorm.Host(href)] {
			report.Checked++
			keep(href)
			return "", false
		}
		if strings.Contains(href, internal) {
			return "", false
		}

		report.Checked++
		if IsGenericHomepage(href) {
			remove(href, models.ReasonGenericHomepage)
			return blocks.Delink(m), true
		}
		if IsFabricatedSocial(href) {
			remove(href, models.ReasonFabricatedSocial)
			return blocks.Delink(m), true
		}

		result := c.validator.Validate(ctx, href, false)
		if result.OK {
			keep(href)
			return "", false
		}
		if opts.RepairEnabled {
			if repaired, ok := c.Repair(ctx, href, m.Text, true); ok {
				report.Repaired++
				report.RepairedLinks = append(report.RepairedLinks, models.RepairedLink{
					OriginalURL: href,
					RepairedURL: repaired,
					Reason:      result.Reason,
				})
				metrics.LinksTotal.WithLabelValues("repaired").Inc()
				c.logger.Info("Repaired outbound link", "url", href, "repaired_url", repaired, "reason", result.Reason)
				return blocks.ReplaceHref(m, repaired), true
			}
		}
		remove(href, result.Reason)
		return blocks.Delink(m), true
	})
	return updated, report
}

// FixLinks validates every http(s) anchor except internal ones. Broken links are
// repaired when possible and unlinked otherwise.
func (c *Checker) FixLinks(ctx context.Context, content string, searchEnabled bool) (string, models.FixReport) {
	matches := blocks.FindAnchors(content)
	report := models.FixReport{TotalLinks: len(matches), Actions: []models.LinkAction{}}
	if !c.fixEnabled {
		report.Skipped = true
		return content, report
	}
	if len(matches) == 0 {
		return content, report
	}

	updated := blocks.Rewrite(content, func(m blocks.AnchorMatch) (string, bool) {
		href := m.Href
		if href == "" || !urlnorm.IsHTTP(href) || strings.Contains(href, c.internalDomain) {
			return "", false
		}
		if c.validator.Validate(ctx, href, false).OK {
			return "", false
		}
		report.BrokenLinks++
		if repaired, ok := c.Repair(ctx, href, "", searchEnabled); ok {
			report.ReplacedLinks++
			report.Actions = append(report.Actions, models.LinkAction{Href: href, Action: models.LinkActionReplaced, Replacement: repaired})
			return blocks.ReplaceHref(m, repaired), true
		}
		report.UnlinkedLinks++
		report.Actions = append(report.Actions, models.LinkAction{Href: href, Action: models.LinkActionUnlinked})
		return blocks.Delink(m), true
	})
	return updated, report
}

// Repair looks for a working replacement of a broken href. Locale variants
// are tried for the taxi.amb.cat open data pages; official domains are
// searched with the LLM search tool when searchEnabled is set. Every
// candidate must validate before it is returned.
func (c *Checker) Repair(ctx context.Context, href, anchor string, searchEnabled bool) (string, bool) {
	host := urlnorm.Host(href)

	if strings.Contains(host, taxiHost) && strings.Contains(urlPath(href), taxiOpenDataPath) {
		for _, candidate := range imetCandidates(href) {
			if c.validator.Validate(ctx, candidate, false).OK {
				return candidate, true
			}
		}
		if searchEnabled {
			if candidate, ok := c.searchFor(ctx, taxiSearchPrompt, taxiSearchQuery, taxiHost); ok {
				return candidate, true
			}
		}
	}

	if _, ok := detector.OfficialDomain(host); ok && searchEnabled {
		terms := searchTerms(href)
		if anchor = strings.TrimSpace(anchor); anchor != "" {
			terms = anchor + " " + terms
		}
		query := fmt.Sprintf("site:%s %s", host, terms)
		if strings.Contains(host, "govern.cat") {
			query = "site:govern.cat notes-premsa " + terms
		}
		if candidate, ok := c.searchFor(ctx, fmt.Sprintf(officialPromptFmt, host), "Search: "+query, host); ok {
			return candidate, true
		}
	}
	return "", false
}

// searchFor asks the search model and returns the first answer URL on domain
// that validates.
func (c *Checker) searchFor(ctx context.Context, system, user, domain string) (string, bool) {
	if c.search == nil {
		return "", false
	}
	answer, err := c.search.Generate(ctx, system, user)
	if err != nil {
		c.logger.Warn("Repair search failed", "domain", domain, "error", err)
		return "", false
	}
	if answer == "" || strings.Contains(strings.ToUpper(answer), notFoundAnswer) {
		return "", false
	}
	candidate, ok := c.firstMatchingURL(ctx, answer, domain)
	if !ok || !c.validator.Validate(ctx, candidate, false).OK {
		return "", false
	}
	return candidate, true
}

// firstMatchingURL finds a URL on domain in text, following a Google or
// Vertex AI search redirect when the answer only cites one.
func (c *Checker) firstMatchingURL(ctx context.Context, text, domain string) (string, bool) {
	if u, ok := urlnorm.FirstURLOnDomain(text, domain); ok {
		return u, true
	}
	redirect, ok := urlnorm.FirstRedirectURL(text)
	if !ok {
		return "", false
	}
	resp, err := c.redirects.Head(ctx, redirect)
	if err != nil {
		c.logger.Debug("Failed to follow search redirect", "url", redirect, "error", err)
		return "", false
	}
	if strings.Contains(resp.FinalURL, domain) {
		return resp.FinalURL, true
	}
	return "", false
}

func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Path
}
