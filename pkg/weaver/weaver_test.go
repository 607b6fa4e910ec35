package weaver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hughisie/agent0-article-pipeline/models"
	"github.com/hughisie/agent0-article-pipeline/pkg/llm"
)

func para(text string) string {
	return "<!-- wp:paragraph -->\n<p>" + text + "</p>\n<!-- /wp:paragraph -->\n\n"
}

func TestWeave_SingleParagraph(t *testing.T) {
	content := "<!-- wp:paragraph --><p>Intro.</p><!-- /wp:paragraph -->"
	related := []models.RelatedLink{{URL: "https://site.news/a", AnchorText: "topic A"}}

	got, report := Weave(content, related, 3)
	if n := strings.Count(got, "https://site.news/a"); n != 1 {
		t.Errorf("URL occurs %d times, want 1", n)
	}
	if !strings.Contains(got, "topic A") {
		t.Error("anchor text missing")
	}
	if strings.Count(got, "<!-- wp:paragraph -->") != 1 || strings.Count(got, "<!-- /wp:paragraph -->") != 1 {
		t.Errorf("block markers changed: %q", got)
	}
	want := `<!-- wp:paragraph --><p>Intro. That debate has been building for months — we covered it in <a href="https://site.news/a">topic A</a>.</p><!-- /wp:paragraph -->`
	if got != want {
		t.Errorf("Weave() = %q, want %q", got, want)
	}
	if report.FallbackInserted || len(report.Inserted) != 1 || report.Inserted[0].ParagraphIndex != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestWeave_ParagraphPlacement(t *testing.T) {
	related := []models.RelatedLink{{URL: "https://site.news/a", AnchorText: "topic A"}}
	tests := []struct {
		name     string
		content  string
		want     string
		fallback bool
	}{
		{
			name:    "nested in group",
			content: "<!-- wp:group --><div><!-- wp:paragraph --><p>Intro.</p><!-- /wp:paragraph --></div><!-- /wp:group -->",
			want:    `<p>Intro. That debate has been building for months — we covered it in <a href="https://site.news/a">topic A</a>.</p>`,
		},
		{
			name:    "unclosed html block before paragraph",
			content: "<!-- wp:html -->\n<div>embed</div>\n<!-- wp:paragraph --><p>Intro.</p><!-- /wp:paragraph -->",
			want:    `<p>Intro. That debate`,
		},
		{
			name:    "classic html mixed with blocks",
			content: "<p>Classic.</p>\n<!-- wp:paragraph --><p>Block</p><!-- /wp:paragraph -->",
			want:    `<p>Block. That debate`,
		},
		{
			name:     "classic html only",
			content:  "<p>Classic.</p>",
			want:     "<p>Classic.</p>\n\n<!-- wp:paragraph -->",
			fallback: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, report := Weave(tt.content, related, 3)
			if report.FallbackInserted != tt.fallback {
				t.Errorf("FallbackInserted = %v, want %v", report.FallbackInserted, tt.fallback)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("Weave() = %q, want it to contain %q", got, tt.want)
			}
			if n := strings.Count(got, "https://site.news/a"); n != 1 {
				t.Errorf("URL occurs %d times, want 1", n)
			}
			wantMarkers := strings.Count(tt.content, "<!-- wp:paragraph -->")
			if tt.fallback {
				wantMarkers++
			}
			if n := strings.Count(got, "<!-- wp:paragraph -->"); n != wantMarkers {
				t.Errorf("paragraph openers = %d, want %d", n, wantMarkers)
			}
		})
	}
}

func TestWeave_SpreadsLinksAndVariesTemplates(t *testing.T) {
	content := `<!-- wp:heading -->
<h2>Title</h2>
<!-- /wp:heading -->

` + para("First paragraph") + para("Second paragraph has <a href=\"https://gencat.cat/x\">a link</a>.") + para("Third paragraph!") + para("Fourth paragraph?")
	related := []models.RelatedLink{
		{URL: "https://barna.news/a", AnchorText: "A"},
		{URL: "https://barna.news/b", AnchorText: "B"},
		{URL: "https://barna.news/a", AnchorText: "A again"},
		{URL: "", AnchorText: "no url"},
		{URL: "https://barna.news/c", AnchorText: "C"},
		{URL: "https://barna.news/d", AnchorText: "D"},
	}

	got, report := Weave(content, related, 3)
	if report.TotalRelated != 3 {
		t.Errorf("TotalRelated = %d, want 3", report.TotalRelated)
	}
	wantIdx := map[string]int{"https://barna.news/a": 0, "https://barna.news/b": 2, "https://barna.news/c": 3}
	if len(report.Inserted) != 3 {
		t.Fatalf("Inserted = %+v", report.Inserted)
	}
	for _, ins := range report.Inserted {
		if wantIdx[ins.URL] != ins.ParagraphIndex {
			t.Errorf("%s inserted at paragraph %d, want %d", ins.URL, ins.ParagraphIndex, wantIdx[ins.URL])
		}
	}
	if strings.Contains(got, "barna.news/d") {
		t.Error("link beyond maxLinks was inserted")
	}
	for _, s := range []string{
		"<p>First paragraph. That debate has been building",
		"<p>Third paragraph! This follows the issues we reported in",
		"<p>Fourth paragraph? The wider context is explained in",
	} {
		if !strings.Contains(got, s) {
			t.Errorf("output missing %q", s)
		}
	}
	if !strings.HasPrefix(got, "<!-- wp:heading -->\n<h2>Title</h2>") {
		t.Error("heading block was altered")
	}
}

func TestWeave_SkipsWhenParagraphsAreTaken(t *testing.T) {
	content := para(`Only one.`)
	related := []models.RelatedLink{
		{URL: "https://barna.news/a", AnchorText: "A"},
		{URL: "https://barna.news/b", AnchorText: "B"},
	}
	_, report := Weave(content, related, 3)
	if len(report.Inserted) != 1 || len(report.Skipped) != 1 {
		t.Fatalf("report = %+v", report)
	}
	if report.Skipped[0].URL != "https://barna.news/b" || report.Skipped[0].Reason != SkipNoParagraph {
		t.Errorf("skipped = %+v", report.Skipped[0])
	}
}

func TestWeave_Fallback(t *testing.T) {
	related := []models.RelatedLink{{URL: "https://barna.news/a", AnchorText: "A"}, {URL: "https://barna.news/b", AnchorText: "B"}}
	tests := []struct {
		name    string
		content string
	}{
		{"no paragraph blocks", "<!-- wp:html -->\n<div>embed</div>\n<!-- /wp:html -->\n"},
		{"every paragraph linked", para(`See <a href="https://gencat.cat/x">this</a>.`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, report := Weave(tt.content, related, 3)
			if !report.FallbackInserted {
				t.Fatal("FallbackInserted = false")
			}
			wantTail := "\n\n<!-- wp:paragraph -->\n<p>That debate has been building for months — we covered it in <a href=\"https://barna.news/a\">A</a>.</p>\n<!-- /wp:paragraph -->\n"
			if !strings.HasSuffix(got, wantTail) {
				t.Errorf("Weave() = %q, want fallback paragraph appended", got)
			}
			if len(report.Inserted) != 1 || !report.Inserted[0].Appended || report.Inserted[0].ParagraphIndex != -1 {
				t.Errorf("Inserted = %+v", report.Inserted)
			}
			if len(report.Skipped) != 1 || report.Skipped[0].URL != "https://barna.news/b" {
				t.Errorf("Skipped = %+v", report.Skipped)
			}
		})
	}
}

func TestWeave_NothingToDo(t *testing.T) {
	got, report := Weave(para("x"), nil, 3)
	if got != para("x") || len(report.Inserted) != 0 || report.FallbackInserted {
		t.Errorf("Weave(nil related) = %q, %+v", got, report)
	}
}

func TestEnforceUniqueInternalLinks(t *testing.T) {
	content := `<p><a href="https://barna.news/a">first</a> <a href="https://gencat.cat/x">ext</a> <a href="https://gencat.cat/x">ext again</a> <a href="https://barna.news/a">second</a> <a href="https://barna.news/b">other</a></p>`
	want := `<p><a href="https://barna.news/a">first</a> <a href="https://gencat.cat/x">ext</a> <a href="https://gencat.cat/x">ext again</a> second <a href="https://barna.news/b">other</a></p>`
	if got := EnforceUniqueInternalLinks(content, "barna.news"); got != want {
		t.Errorf("EnforceUniqueInternalLinks() = %q, want %q", got, want)
	}
}

func TestCountInternalLinks(t *testing.T) {
	content := `<a href="https://barna.news/a">a</a> http://barna.news/b https://barna.news/ https://other.news/c`
	if got := CountInternalLinks(content, "barna.news"); got != 2 {
		t.Errorf("CountInternalLinks() = %d, want 2", got)
	}
}

func TestEnsureInternalLinksPresent(t *testing.T) {
	content := para(`Has <a href="https://barna.news/a">A</a>.`) + para("Plain.")
	related := []models.RelatedLink{
		{URL: "https://barna.news/a", AnchorText: "A"},
		{URL: "https://barna.news/b", AnchorText: "B"},
	}
	got, missing := EnsureInternalLinksPresent(content, related)
	if len(missing) != 1 || missing[0] != "https://barna.news/b" {
		t.Errorf("missing = %v", missing)
	}
	if strings.Count(got, "https://barna.news/a") != 1 || strings.Count(got, "https://barna.news/b") != 1 {
		t.Errorf("EnsureInternalLinksPresent() = %q", got)
	}

	same, missing := EnsureInternalLinksPresent(got, related)
	if same != got || missing != nil {
		t.Error("second call changed content")
	}
}

type fakeGenerator struct {
	answer string
	err    error
	calls  int
}

func (f *fakeGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.answer, f.err
}

type memoryCache map[string][]byte

func (m memoryCache) Get(key string) ([]byte, bool) {
	v, ok := m[key]
	return v, ok
}

func (m memoryCache) Set(key string, data []byte) error {
	m[key] = data
	return nil
}

func TestWeaver_UsesLLMRewrite(t *testing.T) {
	content := para("Intro.")
	rewritten := para(`Intro. Read <a href="https://barna.news/a">our housing explainer</a>.`)
	gen := &fakeGenerator{answer: "```json\n" + `{"content": "` + strings.ReplaceAll(strings.ReplaceAll(rewritten, `"`, `\"`), "\n", `\n`) + `"}` + "\n```"}
	cache := memoryCache{}
	w := New(WithGenerator(gen), WithCache(cache))
	related := []models.RelatedLink{{URL: "https://barna.news/a", AnchorText: "our housing explainer"}}

	got, report := w.Weave(context.Background(), content, related, 3)
	if got != rewritten {
		t.Errorf("Weave() = %q, want the LLM rewrite", got)
	}
	if !report.UsedLLM || len(report.Inserted) != 1 || report.Inserted[0].ParagraphIndex != 0 {
		t.Errorf("report = %+v", report)
	}

	again, _ := w.Weave(context.Background(), content, related, 3)
	if again != rewritten || gen.calls != 1 {
		t.Errorf("second Weave() made %d LLM calls, want 1 (cached)", gen.calls)
	}
}

func TestWeaver_FallsBack(t *testing.T) {
	content := "<!-- wp:paragraph --><p>Intro.</p><!-- /wp:paragraph -->"
	related := []models.RelatedLink{{URL: "https://barna.news/a", AnchorText: "A"}}
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"llm error", &fakeGenerator{err: &llm.Error{Model: "m", StatusCode: 503}}},
		{"not json", &fakeGenerator{answer: "Sorry, I cannot help."}},
		{"empty content", &fakeGenerator{answer: `{"content": ""}`}},
		{"blocks dropped", &fakeGenerator{answer: `{"content": "<p>Intro.</p>"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, report := New(WithGenerator(tt.gen)).Weave(context.Background(), content, related, 3)
			want, _ := Weave(content, related, 3)
			if got != want || report.UsedLLM {
				t.Errorf("Weave() = %q (llm=%v), want template weave %q", got, report.UsedLLM, want)
			}
		})
	}
}

func TestCheckRewrite(t *testing.T) {
	if err := checkRewrite(para("a"), "  "); !errors.Is(err, ErrRejectedRewrite) {
		t.Errorf("checkRewrite(empty) = %v", err)
	}
	if err := checkRewrite(para("a"), para("a b")); err != nil {
		t.Errorf("checkRewrite(valid) = %v", err)
	}
}
