package blocks

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	LabelSource          = "Source"
	LabelOriginalArticle = "Link to original article"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// IsReliablePrimary reports whether a primary source is trustworthy enough to
// replace the credit to the original news article.
func IsReliablePrimary(primaryURL string, confidence, threshold float64) bool {
	return strings.TrimSpace(primaryURL) != "" && confidence >= threshold
}

// FinaliseSourceCredits leaves at most one credit to the original article at
// the end of content. Existing "Source" and "Link to original article"
// credits for sourceURL are removed, as block paragraphs or raw <p>
// elements. A new "Link to original article" paragraph block is appended
// unless the primary source is reliable.
func FinaliseSourceCredits(content, sourceURL, primaryURL string, confidence, threshold float64) string {
	sourceURL = strings.TrimSpace(sourceURL)
	if content == "" || sourceURL == "" {
		return content
	}

	content = removeCredit(content, sourceURL, LabelSource)
	content = removeCredit(content, sourceURL, LabelOriginalArticle)
	content = strings.TrimRight(blankLines.ReplaceAllString(content, "\n\n"), " \t\r\n")

	if IsReliablePrimary(primaryURL, confidence, threshold) {
		return content
	}
	return content + "\n\n" + ParagraphOpen + "\n" +
		fmt.Sprintf(`<p><a href="%s" target="_blank" rel="noopener">%s</a></p>`, sourceURL, LabelOriginalArticle) +
		"\n" + ParagraphClose + "\n"
}

func removeCredit(content, sourceURL, label string) string {
	link := `<p>\s*<a[^>]*href=["']` + regexp.QuoteMeta(sourceURL) + `["'][^>]*>\s*` + regexp.QuoteMeta(label) + `\s*</a>\s*</p>`
	block := regexp.MustCompile(`(?is)<!--\s*wp:paragraph\s*-->\s*` + link + `\s*<!--\s*/wp:paragraph\s*-->`)
	raw := regexp.MustCompile(`(?is)` + link)
	content = block.ReplaceAllLiteralString(content, "")
	return raw.ReplaceAllLiteralString(content, "")
}

// MaybeAppendSourceLink appends a plain "Source" credit to the original
// article when there is no reliable primary source.
func MaybeAppendSourceLink(content, sourceURL, primaryURL string, confidence, threshold float64) string {
	sourceURL = strings.TrimSpace(sourceURL)
	if content == "" || sourceURL == "" || IsReliablePrimary(primaryURL, confidence, threshold) {
		return content
	}
	credit := "<p>\n" +
		fmt.Sprintf(`  <a href="%s" target="_blank" rel="noopener">`, sourceURL) + "\n" +
		"    " + LabelSource + "\n" +
		"  </a>\n" +
		"</p>\n"
	return strings.TrimRight(content, " \t\r\n") + "\n\n" + credit
}
