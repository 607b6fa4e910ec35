// Package contentmatch checks that a primary source page is about the same
// thing as the article citing it.
package contentmatch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/hughisie/agent0-article-pipeline/models"
	"github.com/hughisie/agent0-article-pipeline/pkg/detector"
	"github.com/hughisie/agent0-article-pipeline/pkg/fetcher"
)

const (
	DefaultTimeout = 15 * time.Second

	minContentChars   = 200
	errorWindowChars  = 1000
	minTitleScore     = 0.3
	minContentScore   = 0.2
	validTitleScore   = 0.4
	maxMissingKeyword = 3
)

var errorIndicators = []string{
	"404", "not found", "no encontrada", "error",
	"article no longer available", "artículo no disponible",
	"unpublished", "removed", "deleted", "no longer exists",
	"la noticia ya no está disponible", "ha sido despublicada",
	"content has been removed", "page not found",
}

var homepageIndicators = []string{
	"/home", "/index", "/about", "/associacio", "/asociacion",
	"/contact", "/contacte", "/contacto", "/qui-som", "/quienes-somos",
	"/about-us", "/home.html", "/index.html", "/default.aspx",
}

var articleID = regexp.MustCompile(`/(\d{5,})`)

// Getter fetches a page with GET, following redirects.
type Getter interface {
	Get(ctx context.Context, url string) (*fetcher.Response, error)
}

// Expectation describes the article a source is supposed to support.
type Expectation struct {
	Title    string
	Content  string
	Keywords []string
}

type Checker struct {
	getter Getter
	logger *slog.Logger
}

type Option func(*Checker)

func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) { c.logger = l }
}

// New returns a Checker fetching through g; nil uses a fetcher with DefaultTimeout.
func New(g Getter, opts ...Option) *Checker {
	if g == nil {
		g = fetcher.NewFetcher(fetcher.WithTimeout(DefaultTimeout))
	}
	c := &Checker{getter: g, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check fetches rawURL and scores it against exp. Problems are reported in
// the result, never as an error.
func (c *Checker) Check(ctx context.Context, rawURL string, exp Expectation) models.SourceCheck {
	result := newResult(rawURL)

	u, err := url.Parse(rawURL)
	if err != nil {
		result.Issues = append(result.Issues, fmt.Sprintf("URL parsing error: %v", err))
		return result
	}
	if u.Scheme == "" || u.Host == "" {
		result.Issues = append(result.Issues, "Invalid URL format")
		return result
	}

	resp, err := c.getter.Get(ctx, rawURL)
	if err != nil {
		c.logger.Debug("Source fetch failed", "url", rawURL, "error", err)
		result.Issues = append(result.Issues, fmt.Sprintf("Request failed: %v", err))
		return result
	}
	return evaluate(u, resp, exp, result)
}

func newResult(rawURL string) models.SourceCheck {
	return models.SourceCheck{URL: rawURL, Issues: []string{}, Warnings: []string{}}
}

func evaluate(u *url.URL, resp *fetcher.Response, exp Expectation, result models.SourceCheck) models.SourceCheck {
	result.StatusCode = resp.StatusCode
	if resp.StatusCode >= 400 {
		if (resp.StatusCode == 401 || resp.StatusCode == 403) && detector.IsSocialHost(u.Host) {
			result.Issues = append(result.Issues,
				fmt.Sprintf("Social media URL blocked (HTTP %d) - requires authentication or unavailable", resp.StatusCode),
				"Recommend finding official press release instead of social media post")
		} else {
			result.Issues = append(result.Issues, fmt.Sprintf("HTTP %d error", resp.StatusCode))
		}
		return result
	}

	if resp.FinalURL != "" && resp.FinalURL != u.String() {
		if w, ok := redirectWarning(u.Path, resp.FinalURL); ok {
			result.Warnings = append(result.Warnings, w)
		}
	}

	doc, err := parseHTML(resp.Body)
	if err != nil {
		result.Issues = append(result.Issues, "No extractable content from source")
		return result
	}
	result.ExtractedTitle, result.ExtractedDate = pageMetadata(doc)
	fillFromReadability(u, resp, &result)

	text := pageText(doc)
	if text == "" {
		result.Issues = append(result.Issues, "No extractable content from source")
		return result
	}
	lang := detectLanguage(text)
	result.Language = isoCode(lang)

	lower := strings.ToLower(text)
	window := truncateRunes(lower, errorWindowChars)
	for _, indicator := range errorIndicators {
		if strings.Contains(window, indicator) {
			result.Issues = append(result.Issues, fmt.Sprintf("Source shows error/unavailable message: '%s'", indicator))
			break
		}
	}

	if isHomepagePath(u.Path) {
		result.Issues = append(result.Issues, "URL appears to be homepage or generic about/association page, not a specific document")
	}
	if len([]rune(text)) < minContentChars {
		result.Warnings = append(result.Warnings, "Very short content - may be navigation/index page rather than full document")
	}

	if result.ExtractedTitle != "" && exp.Title != "" {
		result.TitleMatchScore = similarity(result.ExtractedTitle, exp.Title)
		if result.TitleMatchScore < minTitleScore {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Title mismatch (score: %.2f)", result.TitleMatchScore))
		}
	}

	articleLang := detectLanguage(exp.Content)
	result.ContentMatchScore = overlap(keyTerms(exp.Content, articleLang), keyTerms(text, lang))
	if result.ContentMatchScore < minContentScore {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Low content match (score: %.2f)", result.ContentMatchScore))
	}

	var missing []string
	for _, kw := range exp.Keywords {
		if !strings.Contains(lower, strings.ToLower(kw)) {
			missing = append(missing, kw)
		}
	}
	if len(missing) > 0 {
		if len(missing) > maxMissingKeyword {
			missing = missing[:maxMissingKeyword]
		}
		result.Warnings = append(result.Warnings, "Missing expected keywords: "+strings.Join(missing, ", "))
	}

	result.IsValid = result.StatusCode == 200 && len(result.Issues) == 0 &&
		(result.ContentMatchScore >= minContentScore || result.TitleMatchScore >= validTitleScore)
	return result
}

// fillFromReadability supplies the title and date when the page markup has none.
func fillFromReadability(u *url.URL, resp *fetcher.Response, result *models.SourceCheck) {
	if result.ExtractedTitle != "" && result.ExtractedDate != "" {
		return
	}
	pageURL := u
	if final, err := url.Parse(resp.FinalURL); err == nil && final.Host != "" {
		pageURL = final
	}
	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(resp.Body), pageURL)
	if err != nil {
		return
	}
	profile := detector.Analyze(pageURL.String(), article, &detector.HTTPMetadata{
		StatusCode:    resp.StatusCode,
		FinalURL:      resp.FinalURL,
		RedirectChain: resp.RedirectChain,
	})
	if result.ExtractedTitle == "" {
		result.ExtractedTitle = cleanText(article.Title)
	}
	if result.ExtractedDate == "" {
		result.ExtractedDate = profile.PublishedTime
	}
}

func redirectWarning(originalPath, finalURL string) (string, bool) {
	final, err := url.Parse(finalURL)
	if err != nil {
		return "", false
	}
	before := articleIDs(originalPath)
	after := articleIDs(final.Path)
	if len(before) == 0 || len(after) == 0 || slices.Equal(before, after) {
		return "", false
	}
	return fmt.Sprintf("URL redirected to different article ID: %s -> %s", before[0], after[0]), true
}

func articleIDs(path string) []string {
	var ids []string
	for _, m := range articleID.FindAllStringSubmatch(path, -1) {
		ids = append(ids, m[1])
	}
	return ids
}

func isHomepagePath(path string) bool {
	path = strings.ToLower(path)
	if path == "" || path == "/" {
		return true
	}
	for _, p := range homepageIndicators {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

// CompareSimilar checks both URLs and returns the better one: a valid URL
// beats an invalid one, otherwise the higher mean of the two scores wins,
// with ties going to a.
func (c *Checker) CompareSimilar(ctx context.Context, a, b string, exp Expectation) string {
	ra := c.Check(ctx, a, exp)
	rb := c.Check(ctx, b, exp)
	if ra.IsValid != rb.IsValid {
		if ra.IsValid {
			return a
		}
		return b
	}
	scoreA := (ra.ContentMatchScore + ra.TitleMatchScore) / 2
	scoreB := (rb.ContentMatchScore + rb.TitleMatchScore) / 2
	if scoreA >= scoreB {
		return a
	}
	return b
}
