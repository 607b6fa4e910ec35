package weaver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hughisie/agent0-article-pipeline/models"
	"github.com/hughisie/agent0-article-pipeline/pkg/blocks"
	"github.com/hughisie/agent0-article-pipeline/pkg/caching"
	"github.com/hughisie/agent0-article-pipeline/pkg/llm"
	"github.com/hughisie/agent0-article-pipeline/pkg/metrics"
)

const systemPrompt = "You are an editor inserting internal links into an existing WordPress Gutenberg article.\n" +
	"You must preserve all content and block comments exactly, only adding link sentences.\n" +
	"Return ONLY valid JSON."

const userPrompt = `
You will receive:
  1) Gutenberg content.
  2) A list of internal links to insert.

Rules:
  - Use each URL at most once.
  - Insert links inside existing <!-- wp:paragraph --> blocks only.
  - Do not insert links in headings or HTML blocks.
  - Do not remove or rewrite existing content.
  - Add a short, natural sentence that includes the anchor text with <a href="URL">anchor</a>.
  - Vary phrasing between links; do not repeat the same pattern.

Return ONLY JSON in this exact shape:
{
  "content": "FULL_UPDATED_GUTENBERG_CONTENT"
}

GUTENBERG_CONTENT:
%s

RELATED_LINKS:
%s
`

// ErrRejectedRewrite is returned when an LLM rewrite does not keep the article intact.
var ErrRejectedRewrite = errors.New("rewrite rejected")

// Cache stores LLM rewrites by key.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, data []byte) error
}

// Weaver prefers an LLM rewrite and falls back to the deterministic Weave.
type Weaver struct {
	gen    llm.Generator
	cache  Cache
	logger *slog.Logger
}

type Option func(*Weaver)

func WithGenerator(g llm.Generator) Option {
	return func(w *Weaver) { w.gen = g }
}

func WithCache(c Cache) Option {
	return func(w *Weaver) { w.cache = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Weaver) { w.logger = l }
}

func New(opts ...Option) *Weaver {
	w := &Weaver{logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Weave inserts the related links. The LLM rewrite is tried first when a
// generator is configured; any failure falls back to the template weave.
func (w *Weaver) Weave(ctx context.Context, content string, related []models.RelatedLink, maxLinks int) (string, models.WeaveReport) {
	links := usable(related, maxLinks)
	if w.gen == nil || content == "" || len(links) == 0 {
		return Weave(content, related, maxLinks)
	}

	updated, err := w.rewrite(ctx, content, links)
	if err != nil {
		w.logger.Warn("LLM weaving failed, using template weave", "error", err)
		return Weave(content, related, maxLinks)
	}
	metrics.InternalLinksTotal.WithLabelValues("llm").Inc()
	return updated, reportFor(updated, links)
}

func (w *Weaver) rewrite(ctx context.Context, content string, links []models.RelatedLink) (string, error) {
	linksJSON, err := json.MarshalIndent(links, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode related links: %w", err)
	}
	key := "weave:" + caching.ContentHash([]byte(content+"\x00"+string(linksJSON)))
	if w.cache != nil {
		if data, ok := w.cache.Get(key); ok {
			w.logger.Debug("Using cached LLM weave", "key", key)
			return string(data), nil
		}
	}

	answer, err := w.gen.Generate(ctx, systemPrompt, fmt.Sprintf(userPrompt, content, linksJSON))
	if err != nil {
		return "", err
	}
	var payload struct {
		Content string `json:"content"`
	}
	if err := llm.DecodeJSONResponse(answer, &payload); err != nil {
		return "", err
	}
	if err := checkRewrite(content, payload.Content); err != nil {
		return "", err
	}

	if w.cache != nil {
		if err := w.cache.Set(key, []byte(payload.Content)); err != nil {
			w.logger.Warn("Failed to cache LLM weave", "error", err)
		}
	}
	return payload.Content, nil
}

// checkRewrite rejects empty output and output that lost block delimiters.
func checkRewrite(original, updated string) error {
	if strings.TrimSpace(updated) == "" {
		return fmt.Errorf("empty content: %w", ErrRejectedRewrite)
	}
	for _, marker := range []string{"<!-- wp:", "<!-- /wp:"} {
		if strings.Count(updated, marker) < strings.Count(original, marker) {
			return fmt.Errorf("block delimiters were removed: %w", ErrRejectedRewrite)
		}
	}
	return nil
}

// reportFor describes where each link ended up in an LLM rewrite.
func reportFor(content string, links []models.RelatedLink) models.WeaveReport {
	report := models.WeaveReport{
		TotalRelated: len(links),
		Inserted:     []models.Insertion{},
		Skipped:      []models.SkippedLink{},
		UsedLLM:      true,
	}
	paras := blocks.Parse(content).Paragraphs()
	for _, link := range links {
		if !strings.Contains(content, link.URL) {
			report.Skipped = append(report.Skipped, models.SkippedLink{URL: link.URL, Reason: SkipMissingOutput})
			continue
		}
		idx := -1
		for i, p := range paras {
			if strings.Contains(p.Inner, link.URL) {
				idx = i
				break
			}
		}
		report.Inserted = append(report.Inserted, models.Insertion{URL: link.URL, ParagraphIndex: idx})
	}
	return report
}
