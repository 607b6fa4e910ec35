// Package weaver inserts internal link recommendations into the paragraphs
// of a Gutenberg article.
package weaver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hughisie/agent0-article-pipeline/models"
	"github.com/hughisie/agent0-article-pipeline/pkg/blocks"
	"github.com/hughisie/agent0-article-pipeline/pkg/metrics"
)

const (
	DefaultMaxLinks = 3

	SkipNoParagraph   = "no_available_paragraph"
	SkipMissingOutput = "missing_from_llm_output"
)

var templates = []string{
	`That debate has been building for months — we covered it in <a href="%s">%s</a>.`,
	`This follows the issues we reported in <a href="%s">%s</a>.`,
	`The wider context is explained in our earlier piece on <a href="%s">%s</a>.`,
	`We previously looked at the background in <a href="%s">%s</a>.`,
}

func sentence(template int, link models.RelatedLink) string {
	return fmt.Sprintf(templates[template], link.URL, link.AnchorText)
}

// usable drops items without a URL or anchor text and duplicate URLs, then
// caps the list at maxLinks.
func usable(related []models.RelatedLink, maxLinks int) []models.RelatedLink {
	if maxLinks <= 0 {
		maxLinks = DefaultMaxLinks
	}
	seen := make(map[string]bool)
	out := make([]models.RelatedLink, 0, maxLinks)
	for _, r := range related {
		r.URL = strings.TrimSpace(r.URL)
		r.AnchorText = strings.TrimSpace(r.AnchorText)
		if r.URL == "" || r.AnchorText == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
		if len(out) >= maxLinks {
			break
		}
	}
	return out
}

// preferredIndices lists the paragraph positions tried for insertion, early
// paragraphs first.
func preferredIndices(n int) []int {
	var idx []int
	switch {
	case n == 1:
		idx = []int{0}
	case n > 1:
		idx = []int{0, 1}
	}
	if n >= 3 {
		idx = append(idx, 2, 3)
	}
	if n >= 5 {
		idx = append(idx, 4, 5)
	}
	out := idx[:0]
	for _, i := range idx {
		if i < n {
			out = append(out, i)
		}
	}
	return out
}

// Weave appends one template sentence per related link to the first free
// preferred paragraph. A paragraph that already holds a link is not used
// again, and each template is used at most once while unused ones remain.
// When nothing could be placed, the first link goes into a new trailing
// paragraph block.
func Weave(content string, related []models.RelatedLink, maxLinks int) (string, models.WeaveReport) {
	links := usable(related, maxLinks)
	report := models.WeaveReport{
		TotalRelated: len(links),
		Inserted:     []models.Insertion{},
		Skipped:      []models.SkippedLink{},
	}
	if content == "" || len(links) == 0 {
		return content, report
	}

	doc := blocks.Parse(content)
	var paras []*blocks.Block
	for _, p := range doc.Paragraphs() {
		if _, ok := p.ParagraphBody(); ok {
			paras = append(paras, p)
		}
	}
	preferred := preferredIndices(len(paras))

	nextTemplate := 0
	for _, link := range links {
		chosen := -1
		for _, i := range preferred {
			body, _ := paras[i].ParagraphBody()
			if !blocks.HasAnchor(body) {
				chosen = i
				break
			}
		}
		if chosen < 0 {
			report.Skipped = append(report.Skipped, models.SkippedLink{URL: link.URL, Reason: SkipNoParagraph})
			continue
		}

		body, _ := paras[chosen].ParagraphBody()
		body = strings.TrimRight(body, " \t\r\n")
		if !strings.HasSuffix(body, ".") && !strings.HasSuffix(body, "!") && !strings.HasSuffix(body, "?") {
			body += "."
		}
		paras[chosen].SetParagraphBody(body + " " + sentence(nextTemplate%len(templates), link))
		nextTemplate++
		report.Inserted = append(report.Inserted, models.Insertion{URL: link.URL, ParagraphIndex: chosen})
	}

	if len(report.Inserted) == 0 {
		first := links[0]
		doc.Append(blocks.NewParagraph(sentence(0, first)))
		report.FallbackInserted = true
		report.Inserted = append(report.Inserted, models.Insertion{URL: first.URL, ParagraphIndex: -1, Appended: true})
		report.Skipped = report.Skipped[1:]
		metrics.InternalLinksTotal.WithLabelValues("fallback").Inc()
	}
	metrics.InternalLinksTotal.WithLabelValues("inserted").Add(float64(len(report.Inserted)))
	metrics.InternalLinksTotal.WithLabelValues("skipped").Add(float64(len(report.Skipped)))
	return doc.String(), report
}

// EnforceUniqueInternalLinks de-links every repeat of an internal link,
// keeping the first occurrence of each href.
func EnforceUniqueInternalLinks(content, domain string) string {
	if content == "" {
		return content
	}
	if domain == "" {
		domain = models.DefaultInternalDomain
	}
	seen := make(map[string]bool)
	var edits []blocks.Edit
	for _, m := range blocks.FindAnchors(content) {
		if !strings.Contains(m.Href, domain) {
			continue
		}
		if seen[m.Href] {
			edits = append(edits, blocks.Edit{Start: m.Start, End: m.End, Replacement: blocks.Delink(m)})
			continue
		}
		seen[m.Href] = true
	}
	return blocks.ApplyEdits(content, edits)
}

// CountInternalLinks counts URLs on domain anywhere in content.
func CountInternalLinks(content, domain string) int {
	if domain == "" {
		domain = models.DefaultInternalDomain
	}
	re := regexp.MustCompile(`(?i)https?://` + regexp.QuoteMeta(domain) + `/[^\s"'<>]+`)
	return len(re.FindAllString(content, -1))
}

// EnsureInternalLinksPresent weaves in the related links whose URL does not
// appear in content and returns the URLs that were missing.
func EnsureInternalLinksPresent(content string, related []models.RelatedLink) (string, []string) {
	var missing []string
	var toWeave []models.RelatedLink
	for _, r := range related {
		if r.URL == "" || strings.Contains(content, r.URL) {
			continue
		}
		missing = append(missing, r.URL)
		toWeave = append(toWeave, r)
	}
	if len(missing) == 0 {
		return content, nil
	}
	updated, _ := Weave(content, toWeave, DefaultMaxLinks)
	return updated, missing
}
