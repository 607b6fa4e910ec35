package common

import (
	"errors"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/hughisie/agent0-article-pipeline/pkg/urlnorm"
)

var (
	markdownLinkPattern = regexp.MustCompile(`^\[[^\]]*\]\(\s*(\S+?)\s*\)$`)
	citationPattern     = regexp.MustCompile(`^\[\d+\]\s*`)
)

var (
	errEmpty      = errors.New("empty")
	errWhitespace = errors.New("contains whitespace")
	errScheme     = errors.New("not http or https")
	errHost       = errors.New("missing or malformed host")
)

// InvalidURL is an input rejected before any request is made.
type InvalidURL struct {
	Raw    string `json:"raw" yaml:"raw"`
	Reason string `json:"reason" yaml:"reason"`
}

// SanitizeURL cleans a URL copied out of an article, a research proposal or
// an LLM answer: markdown links and citation markers, surrounding quotes and
// brackets, trailing prose punctuation, view-source: prefixes, Google News
// wrappers and tracking parameters.
func SanitizeURL(rawURL string) string {
	cleaned := citationPattern.ReplaceAllString(strings.TrimSpace(rawURL), "")
	if m := markdownLinkPattern.FindStringSubmatch(cleaned); m != nil {
		cleaned = m[1]
	}
	cleaned = strings.Trim(cleaned, "\"'<>` ")
	cleaned = strings.TrimLeft(cleaned, "([{")
	cleaned = trimTrailing(cleaned)

	for strings.HasPrefix(strings.ToLower(cleaned), "view-source:") {
		cleaned = strings.TrimSpace(cleaned[len("view-source:"):])
	}
	if inner, ok := urlnorm.ExtractWrappedURL(cleaned); ok {
		cleaned = inner
	}
	if !urlnorm.IsHTTP(cleaned) {
		return cleaned
	}
	return urlnorm.StripTracking(cleaned)
}

// trimTrailing drops prose punctuation and closing brackets that have no
// opening partner inside the URL, so /wiki/Foo_(bar) keeps its parenthesis.
func trimTrailing(s string) string {
	pairs := map[byte]byte{')': '(', ']': '[', '}': '{'}
	for s != "" {
		last := s[len(s)-1]
		if strings.IndexByte(".,;:!*\"'", last) >= 0 {
			s = s[:len(s)-1]
			continue
		}
		open, ok := pairs[last]
		if ok && strings.Count(s, string(open)) < strings.Count(s, string(last)) {
			s = s[:len(s)-1]
			continue
		}
		break
	}
	return s
}

// checkURL reports why a sanitised URL cannot be fetched, or nil.
func checkURL(cleaned string) error {
	if cleaned == "" {
		return errEmpty
	}
	if strings.ContainsAny(cleaned, " \t\r\n") {
		return errWhitespace
	}
	if !urlnorm.IsHTTP(cleaned) {
		return errScheme
	}
	u, err := url.Parse(cleaned)
	if err != nil {
		return err
	}
	host := u.Hostname()
	switch {
	case host == "", strings.ContainsAny(host, "{}[]<>\"'|\\"):
		return errHost
	case host == "localhost", net.ParseIP(host) != nil:
		return nil
	case !strings.Contains(host, "."), strings.HasPrefix(host, "."), strings.HasSuffix(host, "."), strings.Contains(host, ".."):
		return errHost
	}
	return nil
}

// SanitizeAndValidateURLs cleans every input and splits them into fetchable
// URLs, in input order without repeats, and rejected inputs with a reason.
func SanitizeAndValidateURLs(urls []string) ([]string, []InvalidURL) {
	valid := make([]string, 0, len(urls))
	var invalid []InvalidURL
	seen := make(map[string]bool)

	for _, raw := range urls {
		cleaned := SanitizeURL(raw)
		if err := checkURL(cleaned); err != nil {
			invalid = append(invalid, InvalidURL{Raw: raw, Reason: err.Error()})
			continue
		}
		if seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		valid = append(valid, cleaned)
	}
	return valid, invalid
}
