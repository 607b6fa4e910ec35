package urlnorm

import (
	"regexp"
	"strings"
)

var (
	urlPattern      = regexp.MustCompile(`https?://[^\s"'<>]+`)
	redirectPattern = regexp.MustCompile(`(?i)https?://[^\s"'<>]*(?:vertexaisearch|google)[^\s"'<>]*`)
)

// ExtractURLs returns every http(s) URL in free text, in order of appearance.
// Trailing punctuation picked up from prose is trimmed.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;:)]}*`")
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// FirstURLOnDomain returns the first URL in text hosted under domain.
func FirstURLOnDomain(text, domain string) (string, bool) {
	re, err := regexp.Compile(`(?i)https?://` + regexp.QuoteMeta(domain) + `/[^\s"'<>]+`)
	if err != nil {
		return "", false
	}
	m := re.FindString(text)
	if m == "" {
		return "", false
	}
	return strings.TrimRight(m, ".,;:)]}*`"), true
}

// FirstRedirectURL returns the first Google or Vertex AI search redirect URL in text.
// Search-grounded LLM answers often cite these instead of the target page.
func FirstRedirectURL(text string) (string, bool) {
	m := redirectPattern.FindString(text)
	return m, m != ""
}
