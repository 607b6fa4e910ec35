package registry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hughisie/agent0-article-pipeline/models"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.json")
	return New(path, WithClock(func() time.Time { return fixedNow }))
}

func TestUpdate_SameURLTwice(t *testing.T) {
	r := newTestRegistry(t)
	ref := models.ArticleRef{ID: "42", Filename: "a.json"}

	for i := 0; i < 2; i++ {
		if err := r.Update("https://gencat.cat/x.pdf", models.SourceTypePrimary, ref); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}

	entries, err := r.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	e := entries[0]
	if len(e.ArticleIDs) != 1 || e.ArticleIDs[0] != "42" {
		t.Errorf("ArticleIDs = %v, want [42]", e.ArticleIDs)
	}
	if len(e.ArticleRefs) != 1 {
		t.Errorf("ArticleRefs = %v, want one ref", e.ArticleRefs)
	}
	if e.FirstSeen != "2025-03-10T12:00:00Z" || e.LastSeen != e.FirstSeen {
		t.Errorf("timestamps = %q / %q", e.FirstSeen, e.LastSeen)
	}
}

func TestUpdate_Merges(t *testing.T) {
	r := newTestRegistry(t)
	url := "https://ine.es/nota.pdf"

	if err := r.Update(url, models.SourceTypePrimary, models.ArticleRef{ID: "1"}); err != nil {
		t.Fatal(err)
	}
	later := fixedNow.Add(48 * time.Hour)
	r.now = func() time.Time { return later }
	if err := r.Update(url, models.SourceTypeNews, models.ArticleRef{ID: "2", RunID: "run-b"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Update("", models.SourceTypePrimary, models.ArticleRef{ID: "3"}); err != nil {
		t.Fatal(err)
	}

	entries, _ := r.Load()
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.SourceType != models.SourceTypeNews {
		t.Errorf("SourceType = %q, want news", e.SourceType)
	}
	if len(e.ArticleIDs) != 2 || len(e.ArticleRefs) != 2 {
		t.Errorf("ids = %v, refs = %v", e.ArticleIDs, e.ArticleRefs)
	}
	if e.FirstSeen == e.LastSeen {
		t.Error("LastSeen was not updated")
	}
}

func TestUpdate_DefaultsArticleID(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.Update("https://boe.es/a", models.SourceTypePrimary, models.ArticleRef{}); err != nil {
		t.Fatal(err)
	}
	entries, _ := r.Load()
	if got := entries[0].ArticleIDs; len(got) != 1 || got[0] != "unknown" {
		t.Errorf("ArticleIDs = %v, want [unknown]", got)
	}
}

func TestLoad_MissingAndCorrupt(t *testing.T) {
	r := newTestRegistry(t)
	entries, err := r.Load()
	if err != nil || len(entries) != 0 {
		t.Errorf("Load(missing) = %v, %v", entries, err)
	}

	if err := os.WriteFile(r.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	entries, err = r.Load()
	if err != nil || len(entries) != 0 {
		t.Errorf("Load(corrupt) = %v, %v", entries, err)
	}
}

func TestSave_Format(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.Update("https://gencat.cat/a?x=1&y=2", models.SourceTypePrimary, models.ArticleRef{ID: "7"}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(r.Path())
	if err != nil {
		t.Fatal(err)
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("registry is not a JSON array: %v", err)
	}
	if string(data[:4]) != "[\n  " {
		t.Errorf("registry not indented with two spaces: %q", data[:10])
	}
	if ref := raw[0]["article_refs"].([]any)[0].(map[string]any); len(ref) != 1 {
		t.Errorf("article ref = %v, want only the id", ref)
	}
}

func TestFilter(t *testing.T) {
	r := newTestRegistry(t)
	_ = r.Update("https://www.gencat.cat/a", models.SourceTypePrimary, models.ArticleRef{ID: "1"})
	_ = r.Update("https://www.gencat.cat/a", models.SourceTypePrimary, models.ArticleRef{ID: "2"})
	_ = r.Update("https://elpais.com/b", models.SourceTypeNews, models.ArticleRef{ID: "3"})
	r.now = func() time.Time { return fixedNow.Add(73 * time.Hour) }

	tests := []struct {
		name       string
		domain     string
		sourceType string
		want       int
	}{
		{"all", "", "", 2},
		{"domain substring", "gencat", "", 1},
		{"source type", "", models.SourceTypeNews, 1},
		{"no match", "boe.es", "", 0},
		{"both", "elpais", models.SourceTypePrimary, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Filter(tt.domain, tt.sourceType)
			if err != nil {
				t.Fatalf("Filter() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Filter(%q, %q) returned %d entries, want %d", tt.domain, tt.sourceType, len(got), tt.want)
			}
		})
	}

	views, _ := r.Filter("gencat", "")
	v := views[0]
	if v.Domain != "www.gencat.cat" || v.UsageCount != 2 {
		t.Errorf("view = %+v", v)
	}
	if v.LastSeenDaysAgo == nil || *v.LastSeenDaysAgo != 3 {
		t.Errorf("LastSeenDaysAgo = %v, want 3", v.LastSeenDaysAgo)
	}
}

func TestDaysAgo(t *testing.T) {
	if got := daysAgo("garbage", fixedNow); got != nil {
		t.Errorf("daysAgo(garbage) = %v, want nil", *got)
	}
	if got := daysAgo("2025-03-08T12:00:00.123456+00:00", fixedNow); got == nil || *got != 1 {
		t.Errorf("daysAgo(offset) = %v, want 1", got)
	}
	if got := daysAgo("2025-03-01T12:00:00", fixedNow); got == nil || *got != 9 {
		t.Errorf("daysAgo(naive) = %v, want 9", got)
	}
}

type fakeValidator map[string]models.ValidationResult

func (f fakeValidator) Validate(_ context.Context, url string, _ bool) models.ValidationResult {
	return f[url]
}

func TestAuditAndRemove(t *testing.T) {
	r := newTestRegistry(t)
	_ = r.Update("https://a.gov/ok", models.SourceTypePrimary, models.ArticleRef{ID: "1"})
	_ = r.Update("https://a.gov/gone", models.SourceTypePrimary, models.ArticleRef{ID: "2"})
	_ = r.Update("https://a.gov/moved", models.SourceTypePrimary, models.ArticleRef{ID: "3"})

	v := fakeValidator{
		"https://a.gov/ok":    {OK: true, StatusCode: 200, Reason: models.ReasonOK},
		"https://a.gov/gone":  {OK: false, StatusCode: 404, Reason: models.StatusReason(404)},
		"https://a.gov/moved": {OK: true, StatusCode: 203, FinalURL: "https://a.gov/new", Reason: models.ReasonOK},
	}
	report, err := r.Audit(context.Background(), v)
	if err != nil {
		t.Fatalf("Audit() error = %v", err)
	}
	if report.Total != 3 || report.Valid != 1 || len(report.Invalid) != 1 || len(report.Warnings) != 1 {
		t.Fatalf("report = %+v", report)
	}
	if inv := report.Invalid[0]; inv.URL != "https://a.gov/gone" || inv.Reason != models.StatusReason(404) || inv.ArticleIDs[0] != "2" {
		t.Errorf("invalid = %+v", inv)
	}
	if w := report.Warnings[0]; w.FinalURL != "https://a.gov/new" || w.StatusCode != 203 {
		t.Errorf("warning = %+v", w)
	}

	removed, backup, err := r.Remove(report.InvalidURLs())
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if removed != 1 || backup != r.Path()+".backup" {
		t.Errorf("Remove() = %d, %q", removed, backup)
	}
	entries, _ := r.Load()
	if len(entries) != 2 {
		t.Errorf("len(entries) after remove = %d, want 2", len(entries))
	}
	data, err := os.ReadFile(backup)
	if err != nil {
		t.Fatalf("backup not written: %v", err)
	}
	var old []models.RegistryEntry
	if err := json.Unmarshal(data, &old); err != nil || len(old) != 3 {
		t.Errorf("backup holds %d entries, want 3 (err %v)", len(old), err)
	}
}
