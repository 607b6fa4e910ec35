// Package validator decides whether a URL is a real, reachable, specific page.
//
// Checks run cheapest first. Later checks rely on earlier ones having passed:
// the soft-404 text scan only ever sees HTML bodies.
package validator

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hughisie/agent0-article-pipeline/models"
	"github.com/hughisie/agent0-article-pipeline/pkg/fetcher"
	"github.com/hughisie/agent0-article-pipeline/pkg/metrics"
	"github.com/hughisie/agent0-article-pipeline/pkg/urlnorm"
)

const (
	sampleChars   = 2000
	shortHTMLSize = 400
)

// ErrorSignatures are lower-case phrases that mark a 200 page as "not found".
var ErrorSignatures = []string{
	"404",
	"not found",
	"page not found",
	"no se encuentra",
	"no encontrada",
	"error 404",
	"document not found",
	"página no encontrada",
	"pagina no encontrada",
	"no s'ha trobat",
	"no encontrado",
	"content not available",
	"article removed",
	"unpublished",
	"no longer available",
	"access denied",
}

// HomepageIndicators are path endings of landing, about and contact pages.
var HomepageIndicators = []string{
	"/index",
	"/home",
	"/about",
	"/qui-som",
	"/nosotros",
	"/associacio",
	"/asociacion",
	"/contact",
	"/contacte",
}

var languageOnlyPath = regexp.MustCompile(`^/[a-z]{2}(-[a-z]{2})?$`)

// Prober is the HTTP capability the validator needs.
type Prober interface {
	Head(ctx context.Context, url string) (*fetcher.Response, error)
	Get(ctx context.Context, url string) (*fetcher.Response, error)
}

// AccessRecorder receives every verdict, e.g. to keep a validation history.
type AccessRecorder interface {
	RecordValidation(ctx context.Context, result models.ValidationResult) error
}

type Validator struct {
	prober   Prober
	retries  int
	recorder AccessRecorder
	logger   *slog.Logger
}

type Option func(*Validator)

// WithRetries sets how many extra attempts a 5xx response gets. No backoff is applied.
func WithRetries(n int) Option {
	return func(v *Validator) {
		if n >= 0 {
			v.retries = n
		}
	}
}

func WithRecorder(r AccessRecorder) Option {
	return func(v *Validator) { v.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// New returns a Validator probing through p. A nil p uses a default fetcher.
func New(p Prober, opts ...Option) *Validator {
	if p == nil {
		p = fetcher.NewFetcher()
	}
	v := &Validator{prober: p, retries: 1, logger: slog.Default()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate probes rawURL and returns a verdict. It never returns an error:
// transport failures become ok=false results with a request_error reason.
// expectPDF is also implied by a .pdf suffix.
func (v *Validator) Validate(ctx context.Context, rawURL string, expectPDF bool) models.ValidationResult {
	start := time.Now()
	var result models.ValidationResult
	for attempt := 0; attempt <= v.retries; attempt++ {
		result = v.validateOnce(ctx, rawURL, expectPDF)
		if result.StatusCode < 500 || attempt == v.retries || ctx.Err() != nil {
			break
		}
		v.logger.Debug("Retrying after server error", "url", rawURL, "status", result.StatusCode, "attempt", attempt+1)
	}

	metrics.ObserveValidation(models.ReasonClass(result.Reason), time.Since(start))
	v.logger.Debug("Validated URL", "url", rawURL, "ok", result.OK, "reason", result.Reason, "final_url", result.FinalURL)
	if v.recorder != nil {
		if err := v.recorder.RecordValidation(ctx, result); err != nil {
			v.logger.Warn("Failed to record validation", "url", rawURL, "error", err)
		}
	}
	return result
}

func (v *Validator) validateOnce(ctx context.Context, rawURL string, expectPDF bool) models.ValidationResult {
	resp, err := v.prober.Head(ctx, rawURL)
	switch {
	case err != nil || resp.StatusCode >= 400 || resp.StatusCode == 0:
		resp, err = v.prober.Get(ctx, rawURL)
	case isHTML(resp.ContentType):
		// HEAD carries no body; the content checks need one.
		resp, err = v.prober.Get(ctx, rawURL)
	}
	if err != nil {
		return models.ValidationResult{
			OriginalURL:   rawURL,
			RedirectChain: []string{},
			Reason:        models.RequestErrorReason(err),
		}
	}
	return Judge(rawURL, resp, expectPDF)
}

// Judge applies the ordered checklist to an observed response.
func Judge(rawURL string, resp *fetcher.Response, expectPDF bool) models.ValidationResult {
	chain := resp.RedirectChain
	if chain == nil {
		chain = []string{}
	}
	result := models.ValidationResult{
		OriginalURL:   rawURL,
		FinalURL:      resp.FinalURL,
		StatusCode:    resp.StatusCode,
		ContentType:   resp.ContentType,
		ContentLength: resp.ContentLength,
		RedirectChain: chain,
	}
	reject := func(reason string) models.ValidationResult {
		result.Reason = reason
		return result
	}

	if resp.StatusCode >= 400 {
		return reject(models.StatusReason(resp.StatusCode))
	}
	html, pdf := isHTML(resp.ContentType), isPDF(resp.ContentType)
	if !html && !pdf {
		return reject(models.ReasonUnsupportedContentType)
	}
	if (expectPDF || strings.HasSuffix(strings.ToLower(rawURL), ".pdf")) && !pdf {
		return reject(models.ReasonExpectedPDF)
	}
	if strings.Contains(resp.FinalURL, "/not-found") {
		return reject(models.ReasonNotFoundPath)
	}
	if IsHomepagePath(resp.FinalURL) {
		return reject(models.ReasonHomepage)
	}
	if html && resp.Method != http.MethodHead {
		body := string(resp.Body)
		if HasErrorSignature(firstChars(body, sampleChars)) {
			return reject(models.ReasonSoft404Signature)
		}
		if resp.ContentLength < shortHTMLSize && HasErrorSignature(body) {
			return reject(models.ReasonSoft404ShortHTML)
		}
	}

	result.OK = true
	result.Reason = models.ReasonOK
	return result
}

// IsHomepagePath reports whether the URL's path is a site root, a bare
// language root such as /es/, or a landing/about/contact page.
func IsHomepagePath(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.TrimRight(strings.ToLower(u.Path), "/")
	if path == "" || languageOnlyPath.MatchString(path) {
		return true
	}
	for _, indicator := range HomepageIndicators {
		if strings.HasSuffix(path, indicator) {
			return true
		}
	}
	return false
}

// HasErrorSignature reports whether text contains any not-found phrase.
func HasErrorSignature(text string) bool {
	lower := strings.ToLower(text)
	for _, sig := range ErrorSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

func firstChars(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func isHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}

func isPDF(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "pdf")
}

// ValidateOriginalSource checks an original news URL, trying its X/Twitter
// canonical forms as well. It returns the working URL and "ok", or "" and
// "validation_failed" ("missing" for an empty input).
func (v *Validator) ValidateOriginalSource(ctx context.Context, rawURL string) (string, string) {
	if strings.TrimSpace(rawURL) == "" {
		return "", "missing"
	}
	normalized := urlnorm.Normalize(rawURL)
	candidates := append([]string{normalized}, urlnorm.SocialChain.Expand(normalized)...)
	for _, candidate := range candidates {
		if result := v.Validate(ctx, candidate, false); result.OK {
			return result.ResolvedURL(), models.ReasonOK
		}
	}
	return "", "validation_failed"
}
