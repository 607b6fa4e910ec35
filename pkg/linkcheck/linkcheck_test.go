package linkcheck

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/hughisie/agent0-article-pipeline/models"
	"github.com/hughisie/agent0-article-pipeline/pkg/fetcher"
	"github.com/hughisie/agent0-article-pipeline/pkg/llm"
)

// fakeValidator accepts the URLs in ok and rejects everything else with status_404.
type fakeValidator struct {
	mu    sync.Mutex
	ok    map[string]bool
	calls []string
}

func newFakeValidator(okURLs ...string) *fakeValidator {
	v := &fakeValidator{ok: map[string]bool{}}
	for _, u := range okURLs {
		v.ok[u] = true
	}
	return v
}

func (v *fakeValidator) Validate(_ context.Context, url string, _ bool) models.ValidationResult {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, url)
	if v.ok[url] {
		return models.ValidationResult{OriginalURL: url, FinalURL: url, StatusCode: 200, OK: true, Reason: models.ReasonOK}
	}
	return models.ValidationResult{OriginalURL: url, FinalURL: url, StatusCode: 404, Reason: "status_404"}
}

func (v *fakeValidator) called(url string) bool {
	for _, c := range v.calls {
		if c == url {
			return true
		}
	}
	return false
}

type fakeSearch struct {
	answer string
	err    error
	users  []string
}

func (f *fakeSearch) Generate(_ context.Context, _, user string) (string, error) {
	f.users = append(f.users, user)
	return f.answer, f.err
}

type fakeRedirector map[string]string

func (r fakeRedirector) Head(_ context.Context, url string) (*fetcher.Response, error) {
	if target, ok := r[url]; ok {
		return &fetcher.Response{StatusCode: 200, FinalURL: target}, nil
	}
	return nil, errors.New("unreachable")
}

func anchor(href, text string) string {
	return `<a href="` + href + `">` + text + `</a>`
}

func TestDelinkOutbound_StripsBrokenLinkKeepsText(t *testing.T) {
	c := New(newFakeValidator(), WithRedirector(fakeRedirector{}))
	content := `<p>See <a href="https://dead.example.com/story">example</a> now.</p>`

	got, report := c.DelinkOutbound(context.Background(), content, Options{Enabled: true})
	if got != "<p>See example now.</p>" {
		t.Errorf("DelinkOutbound() = %q", got)
	}
	if report.Checked != 1 || report.Broken != 1 || len(report.RemovedLinks) != 1 {
		t.Errorf("report = %+v", report)
	}
	if report.RemovedLinks[0].Reason != "status_404" {
		t.Errorf("reason = %q, want status_404", report.RemovedLinks[0].Reason)
	}
}

func TestDelinkOutbound_Classification(t *testing.T) {
	good := "https://www.gencat.cat/ca/actualitat/detall/pla-habitatge"
	allowed := "https://elpais.com/espana/2024/nota.html"
	v := newFakeValidator(good)
	c := New(v, WithRedirector(fakeRedirector{}))

	content := strings.Join([]string{
		anchor(allowed+"?utm_source=tw", "allowed"),
		anchor("https://barna.news/housing/", "internal"),
		anchor("https://www.ajuntament.barcelona.cat/", "homepage"),
		anchor("https://x.com/gencat/status/123", "tweet"),
		anchor(good, "good"),
		anchor("https://trusted.example/any", "trusted domain"),
		anchor("mailto:press@gencat.cat", "mail"),
	}, " ")

	got, report := c.DelinkOutbound(context.Background(), content, Options{
		Enabled:        true,
		AllowedURLs:    []string{allowed},
		AllowedDomains: []string{"Trusted.example"},
	})

	for _, kept := range []string{allowed + "?utm_source=tw", "https://barna.news/housing/", good, "https://trusted.example/any", "mailto:press@gencat.cat"} {
		if !strings.Contains(got, `href="`+kept+`"`) {
			t.Errorf("link %s was removed", kept)
		}
	}
	for _, gone := range []string{"https://www.ajuntament.barcelona.cat/", "https://x.com/gencat/status/123"} {
		if strings.Contains(got, gone) {
			t.Errorf("link %s was kept", gone)
		}
	}
	if report.Checked != 5 || report.Broken != 2 || len(report.KeptLinks) != 3 {
		t.Errorf("report checked=%d broken=%d kept=%d, want 5/2/3", report.Checked, report.Broken, len(report.KeptLinks))
	}
	if v.called(allowed+"?utm_source=tw") || v.called("https://trusted.example/any") || v.called("https://barna.news/housing/") {
		t.Error("allowed or internal URL was validated over the network")
	}

	reasons := map[string]string{}
	for _, r := range report.RemovedLinks {
		reasons[r.URL] = r.Reason
	}
	if reasons["https://www.ajuntament.barcelona.cat/"] != models.ReasonGenericHomepage {
		t.Errorf("homepage reason = %q", reasons["https://www.ajuntament.barcelona.cat/"])
	}
	if reasons["https://x.com/gencat/status/123"] != models.ReasonFabricatedSocial {
		t.Errorf("tweet reason = %q", reasons["https://x.com/gencat/status/123"])
	}
}

func TestDelinkOutbound_Disabled(t *testing.T) {
	v := newFakeValidator()
	content := anchor("https://dead.example.com/x", "x")
	got, report := New(v).DelinkOutbound(context.Background(), content, Options{Enabled: false})
	if got != content || report.Enabled || report.Checked != 0 {
		t.Errorf("DelinkOutbound(disabled) = %q, %+v", got, report)
	}
	if len(v.calls) != 0 {
		t.Errorf("validator called %d times while disabled", len(v.calls))
	}
}

func TestDelinkOutbound_RepairsOfficialLink(t *testing.T) {
	broken := "https://govern.cat/gov/notes-premsa/pla-habitatge-2024"
	fixed := "https://govern.cat/salapremsa/notes-premsa/612345/pla-habitatge"
	search := &fakeSearch{answer: "The page is " + fixed + "."}
	c := New(newFakeValidator(fixed), WithSearch(search), WithRedirector(fakeRedirector{}))

	got, report := c.DelinkOutbound(context.Background(), anchor(broken, "housing plan"), Options{Enabled: true, RepairEnabled: true})
	if got != anchor(fixed, "housing plan") {
		t.Errorf("DelinkOutbound() = %q", got)
	}
	if report.Repaired != 1 || report.Broken != 0 || report.Checked != 1 {
		t.Errorf("report = %+v, want one repaired and nothing broken", report)
	}
	if len(report.RepairedLinks) != 1 || report.RepairedLinks[0].Reason != "status_404" {
		t.Errorf("repaired links = %+v", report.RepairedLinks)
	}
	want := "Search: site:govern.cat notes-premsa housing plan gov notes premsa pla habitatge 2024"
	if len(search.users) != 1 || search.users[0] != want {
		t.Errorf("search prompt = %v, want %q", search.users, want)
	}
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name      string
		href      string
		ok        []string
		search    llm.Generator
		redirects fakeRedirector
		want      string
	}{
		{
			name: "taxi locale variant",
			href: "https://taxi.amb.cat/es/transparencia-y-datos-abiertos/datos",
			ok:   []string{"https://taxi.amb.cat/ca/transparencia-y-datos-abiertos/datos"},
			want: "https://taxi.amb.cat/ca/transparencia-y-datos-abiertos/datos",
		},
		{
			name:   "not found answer is ignored",
			href:   "https://www.boe.es/diario_boe/txt.php?id=BOE-A-2024-1",
			search: &fakeSearch{answer: "NOT_FOUND"},
			want:   "",
		},
		{
			name:      "search redirect is followed",
			href:      "https://www.gencat.cat/web/pla",
			ok:        []string{"https://www.gencat.cat/ca/actualitat/detall/pla"},
			search:    &fakeSearch{answer: "Source: https://vertexaisearch.cloud.google.com/grounding-api-redirect/abc"},
			redirects: fakeRedirector{"https://vertexaisearch.cloud.google.com/grounding-api-redirect/abc": "https://www.gencat.cat/ca/actualitat/detall/pla"},
			want:      "https://www.gencat.cat/ca/actualitat/detall/pla",
		},
		{
			name:   "candidate must validate",
			href:   "https://www.lamoncloa.gob.es/serviciosdeprensa/notasprensa/x.aspx",
			search: &fakeSearch{answer: "https://www.lamoncloa.gob.es/other"},
			want:   "",
		},
		{
			name:   "llm error",
			href:   "https://www.lamoncloa.gob.es/x",
			search: &fakeSearch{err: &llm.Error{Model: "m", StatusCode: 500}},
			want:   "",
		},
		{
			name: "unofficial domain",
			href: "https://blog.example.com/post",
			ok:   []string{"https://blog.example.com/post/"},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []Option{WithRedirector(tt.redirects)}
			if tt.search != nil {
				opts = append(opts, WithSearch(tt.search))
			}
			c := New(newFakeValidator(tt.ok...), opts...)
			got, ok := c.Repair(context.Background(), tt.href, "", true)
			if got != tt.want || ok != (tt.want != "") {
				t.Errorf("Repair() = (%q, %v), want %q", got, ok, tt.want)
			}
		})
	}
}

func TestFixLinks(t *testing.T) {
	good := "https://www.boe.es/eli/es/l/2024/1"
	c := New(newFakeValidator(good), WithRedirector(fakeRedirector{}))
	content := anchor(good, "law") + " " + anchor("https://barna.news/a", "ours") + " " + anchor("https://dead.example.com/x", "dead")

	got, report := c.FixLinks(context.Background(), content, false)
	want := anchor(good, "law") + " " + anchor("https://barna.news/a", "ours") + " dead"
	if got != want {
		t.Errorf("FixLinks() = %q, want %q", got, want)
	}
	if report.TotalLinks != 3 || report.BrokenLinks != 1 || report.UnlinkedLinks != 1 || report.ReplacedLinks != 0 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Actions) != 1 || report.Actions[0].Action != models.LinkActionUnlinked {
		t.Errorf("actions = %+v", report.Actions)
	}

	skipped, report := New(newFakeValidator(), WithOutboundValidation(false)).FixLinks(context.Background(), content, true)
	if skipped != content || !report.Skipped {
		t.Errorf("FixLinks(disabled) = %q, skipped=%v", skipped, report.Skipped)
	}
}

func TestIsGenericHomepage(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.gencat.cat", true},
		{"https://www.gencat.cat/ca/", true},
		{"https://example.com/index.php", true},
		{"https://example.com/quienes-somos/", true},
		{"https://whatsapp.com/channel/0029Vb6PJDh6", false},
		{"https://example.com/ca/actualitat/detall/pla", false},
		{"https://example.com/about/team", false},
	}
	for _, tt := range tests {
		if got := IsGenericHomepage(tt.url); got != tt.want {
			t.Errorf("IsGenericHomepage(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestIsFabricatedSocial(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://x.com/gencat/status/1234567890123456789", false},
		{"https://twitter.com/gencat/status/12345", true},
		{"https://x.com/gencat/status/1010101010101010101", true},
		{"https://x.com/gencat/status/XXXXXXXX", true},
		{"https://x.com/gencat", true},
		{"https://x.com/gencat/media/likes", false},
		{"https://www.instagram.com/p/abc/", true},
		{"https://www.instagram.com/p/C1a2B3c4D5e/", false},
		{"https://facebook.com/gencat", false},
	}
	for _, tt := range tests {
		if got := IsFabricatedSocial(tt.url); got != tt.want {
			t.Errorf("IsFabricatedSocial(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestImetCandidates(t *testing.T) {
	got := imetCandidates("https://taxi.amb.cat/web/taxi/es/transparencia-y-datos-abiertos")
	want := []string{
		"https://taxi.amb.cat/web/taxi/ca/transparencia-y-datos-abiertos",
		"https://taxi.amb.cat/web/taxi/en/transparencia-y-datos-abiertos",
		"https://taxi.amb.cat/web/taxi/transparencia-y-datos-abiertos",
		"https://taxi.amb.cat/ca/web/taxi/es/transparencia-y-datos-abiertos",
		"https://taxi.amb.cat/en/web/taxi/es/transparencia-y-datos-abiertos",
		"https://taxi.amb.cat/taxi/es/transparencia-y-datos-abiertos",
		"https://taxi.amb.cat/es/transparencia-y-datos-abiertos",
		"https://taxi.amb.cat/web/imet/es/transparencia-y-datos-abiertos",
		"https://taxi.amb.cat/imet/es/transparencia-y-datos-abiertos",
		"https://taxi.amb.cat/web/taxi/es/transparencia-y-datos-abiertos",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("imetCandidates() =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestSearchTerms(t *testing.T) {
	got := searchTerms("https://www.lamoncloa.gob.es/serviciosdeprensa/notasprensa/hacienda/Paginas/2024/plan_vivienda-joven.aspx")
	if got != "hacienda 2024 plan vivienda joven" {
		t.Errorf("searchTerms() = %q", got)
	}
}
