// Package registry persists every primary source the pipeline has used, with
// the articles that used it, in a JSON array file.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hughisie/agent0-article-pipeline/models"
	"github.com/hughisie/agent0-article-pipeline/pkg/storage"
)

const (
	unknownArticleID = "unknown"
	backupSuffix     = ".backup"
)

// Registry serialises its own writes. Several processes writing the same
// file are not coordinated; the last rename wins.
type Registry struct {
	path   string
	store  *storage.Storage
	mu     sync.Mutex
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Registry)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

func New(path string, opts ...Option) *Registry {
	if path == "" {
		path = models.DefaultRegistryPath
	}
	r := &Registry{
		path:   path,
		store:  &storage.Storage{},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Path() string {
	return r.path
}

// Load returns every entry. A missing file is an empty registry; so is a
// file that does not parse, which is logged.
func (r *Registry) Load() ([]models.RegistryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *Registry) load() ([]models.RegistryEntry, error) {
	if !r.store.HasFile(r.path) {
		return []models.RegistryEntry{}, nil
	}
	data, err := r.store.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	var entries []models.RegistryEntry
	if len(bytes.TrimSpace(data)) == 0 {
		return []models.RegistryEntry{}, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		r.logger.Warn("Registry file is not valid JSON, starting empty", "path", r.path, "error", err)
		return []models.RegistryEntry{}, nil
	}
	return entries, nil
}

func (r *Registry) save(entries []models.RegistryEntry) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}
	if err := r.store.SaveFile(r.path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	return nil
}

// Update records that ref used sourceURL. An existing entry with the exact
// same URL gets a new last_seen, the article id and ref if they are new and
// the given source type; otherwise a new entry is appended.
func (r *Registry) Update(sourceURL, sourceType string, ref models.ArticleRef) error {
	if sourceURL == "" {
		return nil
	}
	if ref.ID == "" {
		ref.ID = unknownArticleID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return err
	}
	now := r.now().UTC().Format(time.RFC3339Nano)

	for i := range entries {
		e := &entries[i]
		if e.URL != sourceURL {
			continue
		}
		e.LastSeen = now
		if !contains(e.ArticleIDs, ref.ID) {
			e.ArticleIDs = append(e.ArticleIDs, ref.ID)
		}
		if !containsRef(e.ArticleRefs, ref) {
			e.ArticleRefs = append(e.ArticleRefs, ref)
		}
		e.SourceType = sourceType
		return r.save(entries)
	}

	entries = append(entries, models.RegistryEntry{
		URL:         sourceURL,
		FirstSeen:   now,
		LastSeen:    now,
		SourceType:  sourceType,
		ArticleIDs:  []string{ref.ID},
		ArticleRefs: []models.ArticleRef{ref},
	})
	return r.save(entries)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsRef(list []models.ArticleRef, ref models.ArticleRef) bool {
	for _, v := range list {
		if v == ref {
			return true
		}
	}
	return false
}

// Filter returns the entries whose host contains domain and whose source
// type equals sourceType; empty arguments match everything.
func (r *Registry) Filter(domain, sourceType string) ([]models.RegistryView, error) {
	entries, err := r.Load()
	if err != nil {
		return nil, err
	}
	now := r.now()
	views := []models.RegistryView{}
	for _, e := range entries {
		host := ""
		if u, err := url.Parse(e.URL); err == nil {
			host = u.Host
		}
		if domain != "" && !strings.Contains(host, domain) {
			continue
		}
		if sourceType != "" && e.SourceType != sourceType {
			continue
		}
		usage := len(e.ArticleRefs)
		if usage == 0 {
			usage = len(e.ArticleIDs)
		}
		views = append(views, models.RegistryView{
			RegistryEntry:   e,
			Domain:          host,
			UsageCount:      usage,
			LastSeenDaysAgo: daysAgo(e.LastSeen, now),
		})
	}
	return views, nil
}

func daysAgo(iso string, now time.Time) *int {
	if iso == "" {
		return nil
	}
	seen, err := time.Parse(time.RFC3339Nano, iso)
	if err != nil {
		// Timestamps without an offset are UTC.
		if seen, err = time.Parse("2006-01-02T15:04:05.999999999", iso); err != nil {
			return nil
		}
	}
	days := int(now.Sub(seen).Hours() / 24)
	return &days
}

// URLValidator is the subset of the validator the audit needs.
type URLValidator interface {
	Validate(ctx context.Context, url string, expectPDF bool) models.ValidationResult
}

// Finding is one registry entry flagged by an audit.
type Finding struct {
	URL        string   `json:"url" yaml:"url"`
	Reason     string   `json:"reason,omitempty" yaml:"reason,omitempty"`
	StatusCode int      `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	FinalURL   string   `json:"final_url,omitempty" yaml:"final_url,omitempty"`
	ArticleIDs []string `json:"article_ids,omitempty" yaml:"article_ids,omitempty"`
}

type AuditReport struct {
	Total    int       `json:"total" yaml:"total"`
	Valid    int       `json:"valid" yaml:"valid"`
	Invalid  []Finding `json:"invalid" yaml:"invalid"`
	Warnings []Finding `json:"warnings" yaml:"warnings"`
}

// InvalidURLs lists the URLs of the invalid findings.
func (a AuditReport) InvalidURLs() []string {
	urls := make([]string, 0, len(a.Invalid))
	for _, f := range a.Invalid {
		urls = append(urls, f.URL)
	}
	return urls
}

// Audit re-validates every entry. Entries that fail are invalid; entries
// that pass with a status other than 200 are warnings.
func (r *Registry) Audit(ctx context.Context, v URLValidator) (AuditReport, error) {
	entries, err := r.Load()
	if err != nil {
		return AuditReport{}, err
	}
	report := AuditReport{Total: len(entries), Invalid: []Finding{}, Warnings: []Finding{}}
	for i, e := range entries {
		if e.URL == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		result := v.Validate(ctx, e.URL, false)
		switch {
		case !result.OK:
			report.Invalid = append(report.Invalid, Finding{
				URL:        e.URL,
				Reason:     result.Reason,
				StatusCode: result.StatusCode,
				ArticleIDs: e.ArticleIDs,
			})
		case result.StatusCode != 200:
			report.Warnings = append(report.Warnings, Finding{
				URL:        e.URL,
				StatusCode: result.StatusCode,
				FinalURL:   result.FinalURL,
			})
		}
		r.logger.Debug("Audited registry entry", "index", i+1, "total", len(entries), "url", e.URL, "ok", result.OK, "reason", result.Reason)
	}
	report.Valid = report.Total - len(report.Invalid) - len(report.Warnings)
	return report, nil
}

// Remove deletes the entries with the given URLs after copying the current
// file to <path>.backup. It returns how many entries were removed.
func (r *Registry) Remove(urls []string) (int, string, error) {
	if len(urls) == 0 {
		return 0, "", nil
	}
	drop := make(map[string]bool, len(urls))
	for _, u := range urls {
		drop[u] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return 0, "", err
	}
	kept := make([]models.RegistryEntry, 0, len(entries))
	for _, e := range entries {
		if !drop[e.URL] {
			kept = append(kept, e)
		}
	}
	removed := len(entries) - len(kept)
	if removed == 0 {
		return 0, "", nil
	}

	backup, err := r.store.Backup(r.path, backupSuffix)
	if err != nil {
		return 0, "", fmt.Errorf("failed to back up registry: %w", err)
	}
	if err := r.save(kept); err != nil {
		return 0, backup, err
	}
	r.logger.Info("Removed registry entries", "removed", removed, "backup", backup)
	return removed, backup, nil
}
