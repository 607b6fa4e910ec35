package models

import (
	"fmt"
	"strings"
)

// Validation reasons. Everything except ReasonOK means the URL was rejected.
const (
	ReasonOK                     = "ok"
	ReasonUnsupportedContentType = "unsupported_content_type"
	ReasonExpectedPDF            = "expected_pdf_but_not_pdf"
	ReasonHomepage               = "homepage_or_generic_page"
	ReasonSoft404Signature       = "soft_404_signature"
	ReasonSoft404ShortHTML       = "soft_404_short_html"
	ReasonNotFoundPath           = "not_found_path"
	ReasonNoValidPrimarySource   = "no_valid_primary_source"

	requestErrorPrefix = "request_error: "
	statusPrefix       = "status_"
)

// ValidationResult is the verdict for one probe of one URL.
// It is built once by the validator and passed around by value.
type ValidationResult struct {
	OriginalURL   string   `json:"original_url" yaml:"original_url"`
	FinalURL      string   `json:"final_url,omitempty" yaml:"final_url,omitempty"` // after redirects
	StatusCode    int      `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	ContentType   string   `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	ContentLength int64    `json:"content_length,omitempty" yaml:"content_length,omitempty"`
	RedirectChain []string `json:"redirect_chain" yaml:"redirect_chain"`
	OK            bool     `json:"ok" yaml:"ok"`
	Reason        string   `json:"reason" yaml:"reason"`
}

// RequestErrorReason formats a transport failure.
func RequestErrorReason(err error) string {
	return requestErrorPrefix + err.Error()
}

// StatusReason formats an HTTP error status.
func StatusReason(code int) string {
	return fmt.Sprintf("%s%d", statusPrefix, code)
}

// ReasonClass collapses a reason to a bounded label set, e.g. for metrics.
// "request_error: dial tcp ..." becomes "request_error" and "status_404" stays as is.
func ReasonClass(reason string) string {
	if strings.HasPrefix(reason, requestErrorPrefix) {
		return strings.TrimSuffix(requestErrorPrefix, ": ")
	}
	return reason
}

// ResolvedURL returns FinalURL, or OriginalURL when no redirect target is known.
func (r ValidationResult) ResolvedURL() string {
	if r.FinalURL != "" {
		return r.FinalURL
	}
	return r.OriginalURL
}
