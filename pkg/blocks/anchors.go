package blocks

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

var (
	anchorPattern    = regexp.MustCompile(`(?is)<a\s+[^>]*href=["']([^"']+)["'][^>]*>(.*?)</a>`)
	hasAnchorPattern = regexp.MustCompile(`(?i)<a\s+[^>]*href=`)
	hrefAttrPattern  = regexp.MustCompile(`(?i)href=["']([^"']+)["']`)
)

// AnchorMatch is one <a href> element found in content.
// Href is HTML-unescaped; RawHref is the attribute text as written.
type AnchorMatch struct {
	Full    string
	Href    string
	RawHref string
	Text    string
	Start   int
	End     int
}

// Edit replaces content[Start:End] with Replacement.
type Edit struct {
	Start       int
	End         int
	Replacement string
}

// FindAnchors returns every anchor in content in document order.
func FindAnchors(content string) []AnchorMatch {
	locs := anchorPattern.FindAllStringSubmatchIndex(content, -1)
	out := make([]AnchorMatch, 0, len(locs))
	for _, l := range locs {
		raw := content[l[2]:l[3]]
		out = append(out, AnchorMatch{
			Full:    content[l[0]:l[1]],
			Href:    strings.TrimSpace(html.UnescapeString(raw)),
			RawHref: raw,
			Text:    content[l[4]:l[5]],
			Start:   l[0],
			End:     l[1],
		})
	}
	return out
}

// HasAnchor reports whether s contains an <a href> tag.
func HasAnchor(s string) bool {
	return hasAnchorPattern.MatchString(s)
}

// ApplyEdits applies non-overlapping edits in decreasing Start order so that
// each edit's offsets are still valid when it is applied.
func ApplyEdits(content string, edits []Edit) string {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start > sorted[j].Start })
	for _, e := range sorted {
		content = content[:e.Start] + e.Replacement + content[e.End:]
	}
	return content
}

// Rewrite calls edit for every anchor in reverse document order. When edit
// returns true the anchor is replaced by the returned markup.
func Rewrite(content string, edit func(AnchorMatch) (string, bool)) string {
	matches := FindAnchors(content)
	var edits []Edit
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		if replacement, ok := edit(m); ok {
			edits = append(edits, Edit{Start: m.Start, End: m.End, Replacement: replacement})
		}
	}
	return ApplyEdits(content, edits)
}

// Delink returns the anchor's inner text, dropping the tag.
func Delink(m AnchorMatch) string {
	return m.Text
}

// ReplaceHref returns the anchor markup with its href set to href.
// Every other attribute and the inner text are kept.
func ReplaceHref(m AnchorMatch, href string) string {
	loc := hrefAttrPattern.FindStringSubmatchIndex(m.Full)
	if loc == nil {
		return m.Full
	}
	return m.Full[:loc[2]] + html.EscapeString(href) + m.Full[loc[3]:]
}
